package model

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// RawProduct is one element of the "products" array returned by the
// Wildberries search endpoint, decoded with json.Decoder.UseNumber.
// The payload changes often, so it is kept as a generic map and read
// through the accessors below.
type RawProduct map[string]any

// SearchResponse is the part of the search payload wbwatch uses.
type SearchResponse struct {
	Products []RawProduct `json:"products"`
}

// ID returns the product (nm) id, or 0.
func (p RawProduct) ID() int64 {
	n, _ := AsInt(p["id"])
	return n
}

// Name returns the product name, or "".
func (p RawProduct) Name() string {
	return AsString(p["name"])
}

// Supplier returns the seller name. A "supplier" key wins whenever it is
// present, even with an empty value; "supplierName" is read only without it.
// The bool is false when neither key is present.
func (p RawProduct) Supplier() (string, bool) {
	if v, ok := p["supplier"]; ok {
		return AsString(v), true
	}
	if v, ok := p["supplierName"]; ok {
		return AsString(v), true
	}
	return "", false
}

// SupplierID returns the seller id, or 0.
func (p RawProduct) SupplierID() int64 {
	n, _ := AsInt(p["supplierId"])
	return n
}

// TotalQuantity returns the stock across all warehouses.
func (p RawProduct) TotalQuantity() int64 {
	n, _ := AsInt(p["totalQuantity"])
	return n
}

// PriceKopecks returns sizes[0].price.product, the price in kopecks.
func (p RawProduct) PriceKopecks() (float64, bool) {
	sizes, ok := p["sizes"].([]any)
	if !ok || len(sizes) == 0 {
		return 0, false
	}
	size, ok := sizes[0].(map[string]any)
	if !ok {
		return 0, false
	}
	price, ok := size["price"].(map[string]any)
	if !ok {
		return 0, false
	}
	return AsFloat(price["product"])
}

// Metadata returns the "metadata" (or legacy "meta") object.
func (p RawProduct) Metadata() map[string]any {
	if m, ok := p["metadata"].(map[string]any); ok && len(m) > 0 {
		return m
	}
	if m, ok := p["meta"].(map[string]any); ok {
		return m
	}
	return nil
}

// Characteristics returns metadata.characteristics (or characteristicsList).
func (p RawProduct) Characteristics() []any {
	meta := p.Metadata()
	if meta == nil {
		return nil
	}
	if c, ok := meta["characteristics"].([]any); ok && len(c) > 0 {
		return c
	}
	c, _ := meta["characteristicsList"].([]any)
	return c
}

// ProductInfo is the normalized view of a RawProduct used for notifications
// and exports.
type ProductInfo struct {
	ProductID  int64
	Name       string
	Price      int64 // listed price in rubles, before the site discount
	Seller     string
	SupplierID int64
	Stock      int64
	URL        string
}

// AsString returns v when it is a string.
func AsString(v any) string {
	s, _ := v.(string)
	return s
}

// AsFloat converts JSON numbers (json.Number or float64) and numeric strings.
func AsFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// AsInt converts JSON numbers to int64, truncating fractions.
func AsInt(v any) (int64, bool) {
	if n, ok := v.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			return i, true
		}
	}
	f, ok := AsFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int64(f), true
}
