package model

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// GlobalProduct is a watch entry managed by admins.
// Several rows may share a name (after trimming); the monitor searches each
// name once and checks every row's threshold against the results.
type GlobalProduct struct {
	ID   int64
	Name string

	// ThresholdMin and ThresholdMax bound the price window in rubles, after
	// the site discount is applied. A nil ThresholdMax means no upper bound
	// was given and the window collapses to ThresholdMin; an explicit zero
	// is kept as zero.
	ThresholdMin int64
	ThresholdMax *int64

	// Keywords restrict results to products mentioning at least one of them.
	// Keywords that match a known filter also narrow the search request.
	Keywords []string

	// Exclusions drop results that mention any of them.
	Exclusions []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Threshold returns a pointer to v, for ThresholdMax.
func Threshold(v int64) *int64 {
	return &v
}

// Window returns the effective price window.
// Without a maximum the maximum equals the minimum.
func (p *GlobalProduct) Window() (minPrice, maxPrice int64) {
	minPrice = p.ThresholdMin
	if minPrice < 0 {
		minPrice = 0
	}
	maxPrice = minPrice
	if p.ThresholdMax != nil {
		maxPrice = *p.ThresholdMax
	}
	return minPrice, maxPrice
}

// InWindow reports whether price lies inside the product's window, bounds included.
func (p *GlobalProduct) InWindow(price int64) bool {
	lo, hi := p.Window()
	return lo <= price && price <= hi
}

// ThresholdLabel formats the window as "min-max".
func (p *GlobalProduct) ThresholdLabel() string {
	lo, hi := p.Window()
	return strconv.FormatInt(lo, 10) + "-" + strconv.FormatInt(hi, 10)
}

// EncodeWords serializes a word list the way it is stored in the database.
// A nil or empty list is stored as an empty string.
func EncodeWords(words []string) string {
	if len(words) == 0 {
		return ""
	}
	data, err := json.Marshal(words)
	if err != nil {
		return ""
	}
	return string(data)
}

// DecodeWords parses a stored word list.
// Besides JSON arrays it accepts a plain comma separated list, which is what
// admins type into spreadsheet cells.
func DecodeWords(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	var words []string
	if strings.HasPrefix(s, "[") {
		if err := json.Unmarshal([]byte(s), &words); err == nil {
			return cleanWords(words)
		}
	}

	return SplitWords(s)
}

// SplitWords splits a comma separated list, trims and lowercases each entry
// and drops empty ones.
func SplitWords(s string) []string {
	return cleanWords(strings.Split(s, ","))
}

func cleanWords(in []string) []string {
	var out []string
	for _, w := range in {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}
