package wildberries

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/wbpricebot/wbwatch/internal/model"
)

// maxTextDepth bounds how deep FilterByKeywords descends into a product.
const maxTextDepth = 3

// FilterByKeywords keeps products whose text contains at least one keyword
// (case-insensitive substring). All string and scalar values up to three
// levels below the product are searched. No keywords keeps everything.
func FilterByKeywords(products []model.RawProduct, keywords []string) []model.RawProduct {
	var needles []string
	for _, kw := range keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			needles = append(needles, kw)
		}
	}
	if len(keywords) == 0 {
		return products
	}

	var out []model.RawProduct
	for _, p := range products {
		text := productText(p)
		for _, kw := range needles {
			if strings.Contains(text, kw) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// productText flattens p into one lowercase string.
func productText(p model.RawProduct) string {
	var parts []string
	var collect func(v any, depth int)
	collect = func(v any, depth int) {
		if depth > maxTextDepth {
			return
		}
		switch x := v.(type) {
		case nil:
		case string:
			parts = append(parts, x)
		case map[string]any:
			keys := make([]string, 0, len(x))
			for k := range x {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				collect(x[k], depth+1)
			}
		case model.RawProduct:
			collect(map[string]any(x), depth)
		case []any:
			for _, e := range x {
				collect(e, depth+1)
			}
		case bool:
			parts = append(parts, strconv.FormatBool(x))
		default:
			parts = append(parts, fmt.Sprint(x))
		}
	}
	collect(p, 0)
	return strings.ToLower(strings.Join(parts, " "))
}

var (
	nonConnector = regexp.MustCompile(`[^0-9a-zа-яё+\-/]+`)
	spaces       = regexp.MustCompile(`\s+`)
)

// normalizeKeepConnectors lowercases s and replaces everything except
// letters, digits, '+', '-' and '/' with single spaces.
func normalizeKeepConnectors(s string) string {
	s = nonConnector.ReplaceAllString(strings.ToLower(s), " ")
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}

// compact keeps only lowercase letters and digits.
func compact(s string) string {
	return nonWord.ReplaceAllString(strings.ToLower(s), "")
}

var (
	physicalSIMMarkers = []string{
		" sim", " nano-sim", " nanosim", " nano sim", " physical sim",
		" 2 sim", " dual sim", "sim +", "+ sim",
	}
	esimOnlyMarkers = []string{
		"esim only", "only esim", "e-sim only", "esim+esim", "dual esim",
	}
)

// physicalSIMWithESIM reports whether text mentions eSIM together with a
// physical SIM slot. Such a fragment must not trigger an "esim" exclusion.
func physicalSIMWithESIM(text string) bool {
	t := strings.ToLower(text)
	if !strings.Contains(t, "esim") {
		return false
	}
	for _, bad := range esimOnlyMarkers {
		if strings.Contains(t, bad) {
			return false
		}
	}
	for _, ph := range physicalSIMMarkers {
		if strings.Contains(t, ph) {
			return true
		}
	}
	return false
}

// fragment is one text field examined by the exclusion filter.
type fragment struct {
	// skip marks the first value of a characteristic, which only repeats
	// the characteristic itself.
	skip    bool
	tokens  []string
	compact []string
	text    string
}

func newFragment(text string, skip bool) fragment {
	norm := normalizeKeepConnectors(text)
	tokens := strings.Fields(norm)
	compacts := make([]string, len(tokens))
	for i, t := range tokens {
		compacts[i] = compact(t)
	}
	return fragment{skip: skip, tokens: tokens, compact: compacts, text: strings.Join(tokens, " ")}
}

// selectedFragments collects the fields the exclusion filter looks at:
// metadata name, characteristic names and values, product name, seller
// and colour names.
func selectedFragments(p model.RawProduct) []fragment {
	var out []fragment
	add := func(v any, skip bool) {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, newFragment(s, skip))
		}
	}

	if meta := p.Metadata(); meta != nil {
		add(meta["name"], false)

		for _, c := range p.Characteristics() {
			ch, ok := c.(map[string]any)
			if !ok {
				continue
			}
			add(ch["name"], false)

			values, _ := firstNonEmpty(ch, "values", "value", "items").([]any)
			for j, v := range values {
				switch val := v.(type) {
				case map[string]any:
					add(firstNonEmpty(val, "name", "value", "title"), j == 0)
				case string:
					add(val, j == 0)
				}
			}
		}
	}

	add(p["name"], false)
	add(firstNonEmpty(p, "supplier", "supplierName", "brand"), false)

	if colors, ok := p["colors"].([]any); ok {
		for _, c := range colors {
			if cm, ok := c.(map[string]any); ok {
				add(firstNonEmpty(cm, "name", "title"), false)
			}
		}
	}
	return out
}

// firstNonEmpty returns the first value under keys that is neither nil,
// an empty string, nor an empty list or object.
func firstNonEmpty(m map[string]any, keys ...string) any {
	for _, k := range keys {
		switch v := m[k].(type) {
		case nil:
			continue
		case string:
			if v != "" {
				return v
			}
		case []any:
			if len(v) > 0 {
				return v
			}
		case map[string]any:
			if len(v) > 0 {
				return v
			}
		default:
			return v
		}
	}
	return nil
}

// FilterByExclusions drops products where any exclusion matches a selected
// field. An exclusion matches a field when it is one of the field's tokens,
// when its compact form equals a token's compact form, or when its tokens
// appear consecutively in the field. Exclusions mentioning "esim" ignore
// fields that describe eSIM alongside a physical SIM.
func FilterByExclusions(products []model.RawProduct, exclusions []string) []model.RawProduct {
	if len(exclusions) == 0 {
		return products
	}

	var out []model.RawProduct
	for _, p := range products {
		if !excluded(selectedFragments(p), exclusions) {
			out = append(out, p)
		}
	}
	return out
}

func excluded(fragments []fragment, exclusions []string) bool {
	for _, ex := range exclusions {
		ex = strings.ToLower(strings.TrimSpace(ex))
		if ex == "" {
			continue
		}
		exNorm := normalizeKeepConnectors(ex)
		exTokens := strings.Fields(exNorm)
		exCompact := compact(exNorm)
		esimRule := strings.Contains(exNorm, "esim")

		for _, f := range fragments {
			if f.skip {
				continue
			}
			if esimRule && physicalSIMWithESIM(f.text) {
				continue
			}
			if matchesFragment(f, exTokens, exCompact) {
				return true
			}
		}
	}
	return false
}

func matchesFragment(f fragment, exTokens []string, exCompact string) bool {
	if len(exTokens) == 1 {
		for _, t := range f.tokens {
			if t == exTokens[0] {
				return true
			}
		}
	}

	if exCompact != "" {
		for _, ct := range f.compact {
			if ct == exCompact {
				return true
			}
		}
	}

	if len(exTokens) > 1 {
		for i := 0; i+len(exTokens) <= len(f.tokens); i++ {
			if equalTokens(f.tokens[i:i+len(exTokens)], exTokens) {
				return true
			}
		}
	}
	return false
}

func equalTokens(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
