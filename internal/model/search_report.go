package model

import (
	"sort"
	"time"
)

// ReportItem is one product of a search report.
type ReportItem struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	SimType   string `json:"sim_type"`
	Seller    string `json:"seller"`
	Stock     int64  `json:"stock"`
	URL       string `json:"url"`

	// Price is the listed price; DiscountedPrice has the site discount applied.
	Price           int64 `json:"price"`
	DiscountedPrice int64 `json:"discounted_price"`
}

// SearchReport is the outcome of a one-off catalogue search.
type SearchReport struct {
	Query      string       `json:"query"`
	Keywords   []string     `json:"keywords,omitempty"`
	Exclusions []string     `json:"exclusions,omitempty"`
	Discount   int          `json:"discount"`
	SearchedAt time.Time    `json:"searched_at"`
	Items      []ReportItem `json:"items"`
	Error      string       `json:"error,omitempty"`
}

// Cheapest returns the item with the lowest discounted price, or nil.
func (r *SearchReport) Cheapest() *ReportItem {
	var best *ReportItem
	for i := range r.Items {
		if best == nil || r.Items[i].DiscountedPrice < best.DiscountedPrice {
			best = &r.Items[i]
		}
	}
	return best
}

// SortByPrice orders items by discounted price, cheapest first.
// Items with equal prices keep their search order.
func (r *SearchReport) SortByPrice() {
	sort.SliceStable(r.Items, func(i, j int) bool {
		return r.Items[i].DiscountedPrice < r.Items[j].DiscountedPrice
	})
}

// SimTypeCounts counts items per SIM type.
func (r *SearchReport) SimTypeCounts() map[string]int {
	counts := make(map[string]int)
	for _, it := range r.Items {
		counts[it.SimType]++
	}
	return counts
}
