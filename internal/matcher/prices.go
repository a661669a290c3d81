package matcher

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/wbpricebot/wbwatch/internal/model"
)

const (
	// PriceListDiscount is subtracted from supplier list prices.
	PriceListDiscount = 0.085

	// WindowWidth is the distance between the lower and upper bound of a
	// window derived from a single price.
	WindowWidth = 18000
)

// ErrInvalidRange is returned for threshold input that holds no number.
var ErrInvalidRange = errors.New("invalid price range")

// PriceEntry is one line of a supplier price list.
type PriceEntry struct {
	Original    string
	ProductText string // flags removed
	SimType     string // ProductText with SIM spelling normalized
	Price       int64
}

var (
	flagPattern  = regexp.MustCompile(`[\x{1F1E6}-\x{1F1FF}]+\s*`)
	pricePattern = regexp.MustCompile(`(\d+)\s*₽?`)
	esimSpelling = regexp.MustCompile(`(?i)esim`)
	nonDigits    = regexp.MustCompile(`[^0-9]`)
)

// ParsePriceEntries parses lines like
//
//	🇭🇰 Sim+eSim 17 Pro Max 512GB Blue — 134000₽
//
// Lines without exactly one em dash or without a price are skipped.
// Air models are always eSIM only.
func ParsePriceEntries(text string) []PriceEntry {
	var entries []PriceEntry
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.Contains(line, "—") {
			continue
		}
		parts := strings.Split(line, "—")
		if len(parts) != 2 {
			continue
		}

		product := strings.TrimSpace(flagPattern.ReplaceAllString(strings.TrimSpace(parts[0]), ""))
		m := pricePattern.FindStringSubmatch(strings.TrimSpace(parts[1]))
		if m == nil {
			continue
		}
		price, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			continue
		}

		sim := NormalizeSimType(product)
		if strings.Contains(strings.ToLower(ExtractComponents(product).Model), "air") {
			sim = SimESIM
		}

		entries = append(entries, PriceEntry{
			Original:    line,
			ProductText: product,
			SimType:     sim,
			Price:       price,
		})
	}
	return entries
}

// NormalizeSimType rewrites "Sim+eSim" spellings to SimDual and every other
// "esim" spelling to SimESIM.
func NormalizeSimType(text string) string {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "sim+esim") || strings.Contains(lower, "sim + esim") {
		r := strings.NewReplacer(
			"Sim+eSim", SimDual,
			"sim+esim", SimDual,
			"Sim + eSim", SimDual,
			"sim + esim", SimDual,
		)
		text = r.Replace(text)
	}
	text = esimSpelling.ReplaceAllString(text, SimESIM)
	return strings.TrimSpace(text)
}

// FindMatchingProduct returns the first product whose name has the same
// components as the entry, or nil.
func FindMatchingProduct(entry PriceEntry, products []*model.GlobalProduct) *model.GlobalProduct {
	want := ExtractComponents(entry.ProductText)
	for _, p := range products {
		if ComponentsMatch(want, ExtractComponents(p.Name)) {
			return p
		}
	}
	return nil
}

// PriceUpdateWindow turns a supplier price into a watch window: the upper
// bound is the price less PriceListDiscount, the lower bound is WindowWidth
// below it.
func PriceUpdateWindow(price int64) (minPrice, maxPrice int64) {
	maxPrice = int64(math.RoundToEven(float64(price) * (1 - PriceListDiscount)))
	return maxPrice - WindowWidth, maxPrice
}

// ParseRange parses admin input for a single product's window. "a-b" gives
// the ordered pair; a single value v gives (max(0, v-WindowWidth), v).
// Spaces and ₽ signs are ignored.
func ParseRange(s string) (minPrice, maxPrice int64, err error) {
	s = strings.TrimSpace(strings.NewReplacer("₽", "", " ", "").Replace(s))

	if before, after, ok := strings.Cut(s, "-"); ok {
		a, err := digitsOnly(before)
		if err != nil {
			return 0, 0, err
		}
		b, err := digitsOnly(after)
		if err != nil {
			return 0, 0, err
		}
		return min(a, b), max(a, b), nil
	}

	v, err := digitsOnly(s)
	if err != nil {
		return 0, 0, err
	}
	return max(0, v-WindowWidth), v, nil
}

func digitsOnly(s string) (int64, error) {
	d := nonDigits.ReplaceAllString(s, "")
	if d == "" {
		return 0, ErrInvalidRange
	}
	v, err := strconv.ParseInt(d, 10, 64)
	if err != nil {
		return 0, ErrInvalidRange
	}
	return v, nil
}

// ParseThresholdCell reads the threshold column of a product workbook.
// Numeric cells are a fixed price (v, v). Text cells hold "a-b", giving
// (a, b) as written, or a single upper bound v, giving (0, v).
func ParseThresholdCell(cell string, numeric bool) (minPrice, maxPrice int64, err error) {
	cell = strings.TrimSpace(cell)
	if numeric {
		v, err := parseAmount(cell)
		if err != nil {
			return 0, 0, err
		}
		return v, v, nil
	}

	if before, after, ok := strings.Cut(cell, "-"); ok {
		a, err := parseAmount(before)
		if err != nil {
			return 0, 0, err
		}
		b, err := parseAmount(after)
		if err != nil {
			return 0, 0, err
		}
		return a, b, nil
	}

	v, err := parseAmount(cell)
	if err != nil {
		return 0, 0, err
	}
	return 0, v, nil
}

func parseAmount(s string) (int64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ErrInvalidRange
	}
	return int64(math.Round(f)), nil
}
