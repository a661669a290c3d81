package wildberries

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/wbpricebot/wbwatch/internal/config"
)

// Param is one query parameter of a search request.
type Param struct {
	Key   string
	Value string
}

// Params is an ordered parameter list.
type Params []Param

// Get returns the value of key, or "".
func (p Params) Get(key string) string {
	for _, kv := range p {
		if kv.Key == key {
			return kv.Value
		}
	}
	return ""
}

// Encode renders p as a query string. Every character outside the
// unreserved set is percent-encoded, including ';' and '/', and spaces
// become %20.
func (p Params) Encode() string {
	var b strings.Builder
	for i, kv := range p {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(escape(kv.Key))
		b.WriteByte('=')
		b.WriteString(escape(kv.Value))
	}
	return b.String()
}

func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// fixedOrder is the order in which the storefront itself sends the
// standard parameters.
var fixedOrder = []string{
	"ab_testing", "ab_testid", "appType", "curr", "dest",
	"hide_dtype", "hide_vflags", "inheritFilters", "lang",
	"page", "query", "resultset", "sort", "spp", "suppressSpellcheck",
}

func baseParams(query string) map[string]string {
	return map[string]string{
		"query":              query,
		"resultset":          "catalog",
		"sort":               "priceup",
		"page":               "1",
		"ab_testid":          "no_promo",
		"ab_testing":         "false",
		"appType":            "1",
		"curr":               "rub",
		"dest":               "-1257786",
		"hide_dtype":         "9;11",
		"hide_vflags":        "4294967296",
		"inheritFilters":     "false",
		"lang":               "ru",
		"spp":                "30",
		"suppressSpellcheck": "false",
	}
}

// FilterMapping turns a watch keyword into catalogue filter parameters.
type FilterMapping struct {
	Keyword string
	Params  []config.KeywordParam
}

// Filters is the ordered keyword map consulted when building a search.
type Filters []FilterMapping

// DefaultFilters returns the built-in keyword map: SIM type (f4433),
// storage (f4424) and colour (f14177449).
func DefaultFilters() Filters {
	one := func(keyword, key, value string) FilterMapping {
		return FilterMapping{Keyword: keyword, Params: []config.KeywordParam{{Key: key, Value: value}}}
	}
	return Filters{
		one("nano-SIM+Esim", "f4433", "830086596"),
		one("Esim", "f4433", "8047145"),
		one("Esim+esim", "f4433", "804347144"),
		one("Nano-SIM", "f4433", "469834"),
		one("256GB", "f4424", "25425"),
		one("512GB", "f4424", "117419"),
		one("1TB", "f4424", "231154"),
		one("Silver", "f14177449", "20214430;12065905"),
		one("Orange", "f14177449", "20214770"),
		one("Blue", "f14177449", "20214646"),
		one("White", "f14177449", "12065905"),
		one("Black", "f14177449", "13600062"),
	}
}

// Merge returns f extended with the keyword mappings of ff. A mapping whose
// keyword normalizes to an existing one replaces it in place; new keywords
// are appended.
func (f Filters) Merge(ff *config.FilterFile) Filters {
	out := append(Filters(nil), f...)
	for _, e := range ff.Entries() {
		m := FilterMapping{Keyword: e.Keyword, Params: e.Params}
		replaced := false
		for i := range out {
			if normKey(out[i].Keyword) == normKey(e.Keyword) {
				out[i] = m
				replaced = true
				break
			}
		}
		if !replaced {
			out = append(out, m)
		}
	}
	return out
}

var nonWord = regexp.MustCompile(`[^0-9a-zа-яё]+`)

// normKey lowercases s and collapses every run of non-alphanumerics into a
// single space, so "nano-SIM+Esim" and "Nano SIM Esim" compare equal.
func normKey(s string) string {
	s = nonWord.ReplaceAllString(strings.ToLower(s), " ")
	return strings.TrimSpace(s)
}

// BuildParams assembles the search parameters for query. Keywords that match
// a filter mapping add its parameters; a parameter set twice gets its values
// joined with ';' without repeating a segment. Keywords never change the
// query text.
func BuildParams(query string, keywords []string, filters Filters) Params {
	values := baseParams(query)
	var extra []string

	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		norm := normKey(kw)
		for _, m := range filters {
			if normKey(m.Keyword) != norm {
				continue
			}
			for _, p := range m.Params {
				existing, ok := values[p.Key]
				if !ok {
					extra = append(extra, p.Key)
				}
				if existing == "" {
					values[p.Key] = p.Value
					continue
				}
				if !hasSegment(existing, p.Value) {
					values[p.Key] = existing + ";" + p.Value
				}
			}
		}
	}

	params := make(Params, 0, len(fixedOrder)+len(extra))
	for _, k := range fixedOrder {
		params = append(params, Param{Key: k, Value: values[k]})
	}
	for _, k := range extra {
		params = append(params, Param{Key: k, Value: values[k]})
	}
	return params
}

func hasSegment(joined, v string) bool {
	for _, seg := range strings.Split(joined, ";") {
		if seg != "" && seg == v {
			return true
		}
	}
	return false
}
