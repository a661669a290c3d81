package report

import (
	"time"

	"github.com/wbpricebot/wbwatch/internal/export"
	"github.com/wbpricebot/wbwatch/internal/model"
	"github.com/wbpricebot/wbwatch/internal/wildberries"
)

// NewSearchReport builds a report from filtered search results.
// Products without a valid price are left out. Items keep search order.
func NewSearchReport(query string, raws []model.RawProduct, discount int) *model.SearchReport {
	r := &model.SearchReport{
		Query:      query,
		Discount:   discount,
		SearchedAt: time.Now(),
		Items:      make([]model.ReportItem, 0, len(raws)),
	}
	for _, raw := range raws {
		info, ok := wildberries.ExtractProductInfo(raw)
		if !ok {
			continue
		}
		r.Items = append(r.Items, model.ReportItem{
			ProductID:       info.ProductID,
			Name:            info.Name,
			SimType:         export.SimType(raw),
			Seller:          info.Seller,
			Stock:           info.Stock,
			URL:             info.URL,
			Price:           info.Price,
			DiscountedPrice: wildberries.ApplyDiscount(info.Price, discount),
		})
	}
	return r
}
