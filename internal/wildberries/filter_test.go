package wildberries

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/wbpricebot/wbwatch/internal/model"
)

func rawProduct(t *testing.T, js string) model.RawProduct {
	t.Helper()

	dec := json.NewDecoder(bytes.NewReader([]byte(js)))
	dec.UseNumber()
	var p model.RawProduct
	if err := dec.Decode(&p); err != nil {
		t.Fatalf("invalid fixture: %v", err)
	}
	return p
}

func names(products []model.RawProduct) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.Name())
	}
	return out
}

func TestFilterByKeywords(t *testing.T) {
	t.Parallel()

	products := []model.RawProduct{
		rawProduct(t, `{"id": 1, "name": "Apple iPhone 16 Pro 256GB Black"}`),
		rawProduct(t, `{"id": 2, "name": "Apple iPhone 16", "colors": [{"name": "Белый"}]}`),
		rawProduct(t, `{"id": 3, "name": "Case", "a": {"b": {"c": {"d": "deepword"}}}}`),
		rawProduct(t, `{"id": 4, "name": "Case", "a": {"b": {"c": "shallow"}}}`),
	}

	tests := []struct {
		name     string
		keywords []string
		want     []string
	}{
		{name: "no keywords keeps all", keywords: nil, want: []string{"Apple iPhone 16 Pro 256GB Black", "Apple iPhone 16", "Case", "Case"}},
		{name: "case insensitive", keywords: []string{"256gb"}, want: []string{"Apple iPhone 16 Pro 256GB Black"}},
		{name: "nested values", keywords: []string{"белый"}, want: []string{"Apple iPhone 16"}},
		{name: "any keyword", keywords: []string{"black", "белый"}, want: []string{"Apple iPhone 16 Pro 256GB Black", "Apple iPhone 16"}},
		{name: "depth three reached", keywords: []string{"shallow"}, want: []string{"Case"}},
		{name: "depth four ignored", keywords: []string{"deepword"}, want: []string{}},
		{name: "numbers are text", keywords: []string{"4"}, want: []string{"Case"}},
		{name: "blank keywords match nothing", keywords: []string{" "}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := names(FilterByKeywords(products, tt.keywords))
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}

func TestFilterByExclusions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		product    string
		exclusions []string
		wantKept   bool
	}{
		{
			name:       "no exclusions",
			product:    `{"name": "iPhone 16 Pro"}`,
			exclusions: nil,
			wantKept:   true,
		},
		{
			name:       "single token",
			product:    `{"name": "Чехол для iPhone 16 Pro"}`,
			exclusions: []string{"чехол"},
			wantKept:   false,
		},
		{
			name:       "substring is not a token",
			product:    `{"name": "iPhone 16 Promax"}`,
			exclusions: []string{"pro"},
			wantKept:   true,
		},
		{
			name:       "compact equality",
			product:    `{"name": "Apple iPhone 16 Pro-Max"}`,
			exclusions: []string{"promax"},
			wantKept:   false,
		},
		{
			name:       "multi word",
			product:    `{"name": "Apple iPhone 16 Pro Max 256GB"}`,
			exclusions: []string{"pro max"},
			wantKept:   false,
		},
		{
			name:       "seller field",
			product:    `{"name": "iPhone", "supplier": "Restore Shop"}`,
			exclusions: []string{"restore"},
			wantKept:   false,
		},
		{
			name:       "colour field",
			product:    `{"name": "iPhone", "colors": [{"name": "Розовый"}]}`,
			exclusions: []string{"розовый"},
			wantKept:   false,
		},
		{
			name: "first characteristic value ignored",
			product: `{"name": "iPhone", "metadata": {"characteristics": [
				{"name": "Тип SIM", "values": [{"name": "refurbished"}, {"name": "nano"}]}
			]}}`,
			exclusions: []string{"refurbished"},
			wantKept:   true,
		},
		{
			name: "second characteristic value checked",
			product: `{"name": "iPhone", "metadata": {"characteristics": [
				{"name": "Состояние", "values": ["новый", "refurbished"]}
			]}}`,
			exclusions: []string{"refurbished"},
			wantKept:   false,
		},
		{
			name:       "esim with physical sim is kept",
			product:    `{"name": "iPhone 16 nano-sim + esim"}`,
			exclusions: []string{"esim"},
			wantKept:   true,
		},
		{
			name:       "esim only is excluded",
			product:    `{"name": "iPhone 17 Air esim only"}`,
			exclusions: []string{"esim"},
			wantKept:   false,
		},
		{
			name:       "dual esim is excluded",
			product:    `{"name": "iPhone 16 dual esim"}`,
			exclusions: []string{"esim"},
			wantKept:   false,
		},
		{
			name:       "metadata name",
			product:    `{"name": "iPhone", "metadata": {"name": "Витрина demo"}}`,
			exclusions: []string{"demo"},
			wantKept:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := rawProduct(t, tt.product)
			got := FilterByExclusions([]model.RawProduct{p}, tt.exclusions)
			if kept := len(got) == 1; kept != tt.wantKept {
				t.Errorf("kept = %v, want %v", kept, tt.wantKept)
			}
		})
	}
}

func TestPhysicalSIMWithESIM(t *testing.T) {
	t.Parallel()

	tests := map[string]bool{
		"iphone nano-sim esim":  true,
		"iphone 2 sim esim":     true,
		"iphone esim":           false,
		"iphone esim only":      false,
		"iphone dual sim esim":  true,
		"iphone without e-sim":  false,
		"sim + esim":            true,
		"iphone esim+esim dual": false,
	}
	for text, want := range tests {
		if got := physicalSIMWithESIM(text); got != want {
			t.Errorf("physicalSIMWithESIM(%q) = %v, want %v", text, got, want)
		}
	}
}
