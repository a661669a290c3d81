package wildberries

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wbpricebot/wbwatch/internal/config"
)

const baseEncoded = "ab_testing=false&ab_testid=no_promo&appType=1&curr=rub&dest=-1257786" +
	"&hide_dtype=9%3B11&hide_vflags=4294967296&inheritFilters=false&lang=ru&page=1"

func TestBuildParamsEncode(t *testing.T) {
	t.Parallel()

	tail := "&resultset=catalog&sort=priceup&spp=30&suppressSpellcheck=false"

	tests := []struct {
		name     string
		query    string
		keywords []string
		want     string
	}{
		{
			name:  "plain query",
			query: "iphone 16 pro",
			want:  baseEncoded + "&query=iphone%2016%20pro" + tail,
		},
		{
			name:     "keywords add filters in order",
			query:    "iphone",
			keywords: []string{"256gb", " silver "},
			want:     baseEncoded + "&query=iphone" + tail + "&f4424=25425&f14177449=20214430%3B12065905",
		},
		{
			name:     "duplicate segment is not repeated",
			query:    "iphone",
			keywords: []string{"Silver", "white"},
			want:     baseEncoded + "&query=iphone" + tail + "&f14177449=20214430%3B12065905",
		},
		{
			name:     "repeated param joins values",
			query:    "iphone",
			keywords: []string{"Black", "Blue"},
			want:     baseEncoded + "&query=iphone" + tail + "&f14177449=13600062%3B20214646",
		},
		{
			name:     "normalized keyword match",
			query:    "iphone",
			keywords: []string{"NANO SIM esim", "unknown", ""},
			want:     baseEncoded + "&query=iphone" + tail + "&f4433=830086596",
		},
		{
			name:  "cyrillic and slash are escaped",
			query: "айфон 1/2",
			want:  baseEncoded + "&query=%D0%B0%D0%B9%D1%84%D0%BE%D0%BD%201%2F2" + tail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := BuildParams(tt.query, tt.keywords, DefaultFilters()).Encode()
			if got != tt.want {
				t.Errorf("Encode() mismatch\n got: %s\nwant: %s", got, tt.want)
			}
		})
	}
}

func TestBuildParamsKeepsQueryText(t *testing.T) {
	t.Parallel()

	p := BuildParams("iphone 16", []string{"256GB", "чехол"}, DefaultFilters())
	if got := p.Get("query"); got != "iphone 16" {
		t.Errorf("query = %q, keywords must not be appended", got)
	}
}

func TestNormKey(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"nano-SIM+Esim": "nano sim esim",
		"  Esim+esim ":  "esim esim",
		"256GB":         "256gb",
		"Серебристый!":  "серебристый",
	}
	for in, want := range tests {
		if got := normKey(in); got != want {
			t.Errorf("normKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFiltersMerge(t *testing.T) {
	t.Parallel()

	ff := &config.FilterFile{Keywords: map[string]map[string]string{
		"2TB":   {"f4424": "1116843"},
		"black": {"f14177449": "1"},
	}}

	merged := DefaultFilters().Merge(ff)
	if len(merged) != len(DefaultFilters())+1 {
		t.Fatalf("expected one new mapping, got %d entries", len(merged))
	}

	got := BuildParams("q", []string{"2tb", "Black"}, merged)
	want := Params{{Key: "f4424", Value: "1116843"}, {Key: "f14177449", Value: "1"}}
	if diff := cmp.Diff(want, got[len(fixedOrder):]); diff != "" {
		t.Errorf("extra params mismatch (-want +got):\n%s", diff)
	}

	if !strings.Contains(DefaultFilters().Merge(nil)[0].Keyword, "nano") {
		t.Error("merging a nil file should keep defaults")
	}
}
