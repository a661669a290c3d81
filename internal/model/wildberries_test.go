package model

import (
	"encoding/json"
	"strings"
	"testing"
)

func decodeRaw(t *testing.T, s string) RawProduct {
	t.Helper()

	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()

	var p RawProduct
	if err := dec.Decode(&p); err != nil {
		t.Fatalf("failed to decode product: %v", err)
	}
	return p
}

func TestRawProductAccessors(t *testing.T) {
	t.Parallel()

	p := decodeRaw(t, `{
		"id": 123456789,
		"name": "Apple iPhone 17 Pro 256GB",
		"supplierName": "Store",
		"supplierId": 42,
		"totalQuantity": 7,
		"sizes": [{"price": {"basic": 15000000, "product": 13490000}}],
		"meta": {"characteristics": [{"name": "SIM"}]}
	}`)

	if p.ID() != 123456789 {
		t.Errorf("ID() = %d", p.ID())
	}
	if p.Name() != "Apple iPhone 17 Pro 256GB" {
		t.Errorf("Name() = %q", p.Name())
	}
	if s, ok := p.Supplier(); !ok || s != "Store" {
		t.Errorf("Supplier() = %q, %v", s, ok)
	}
	if p.SupplierID() != 42 {
		t.Errorf("SupplierID() = %d", p.SupplierID())
	}
	if p.TotalQuantity() != 7 {
		t.Errorf("TotalQuantity() = %d", p.TotalQuantity())
	}
	price, ok := p.PriceKopecks()
	if !ok || price != 13490000 {
		t.Errorf("PriceKopecks() = %v, %v", price, ok)
	}
	if len(p.Characteristics()) != 1 {
		t.Errorf("expected characteristics from meta, got %v", p.Characteristics())
	}
}

func TestRawProductMissingFields(t *testing.T) {
	t.Parallel()

	p := decodeRaw(t, `{"sizes": []}`)

	if p.ID() != 0 || p.Name() != "" {
		t.Error("expected zero values for missing fields")
	}
	if s, ok := p.Supplier(); ok || s != "" {
		t.Errorf("Supplier() = %q, %v, want no supplier", s, ok)
	}
	if _, ok := p.PriceKopecks(); ok {
		t.Error("expected no price without sizes")
	}
	if p.Metadata() != nil {
		t.Error("expected nil metadata")
	}
}

func TestAsInt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   any
		want int64
		ok   bool
	}{
		{"json integer", json.Number("15"), 15, true},
		{"json fraction", json.Number("15.7"), 15, true},
		{"float", 3.0, 3, true},
		{"numeric string", "12", 12, true},
		{"garbage", "abc", 0, false},
		{"nil", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := AsInt(tt.in)
			if got != tt.want || ok != tt.ok {
				t.Errorf("AsInt(%v) = (%d, %v), want (%d, %v)", tt.in, got, ok, tt.want, tt.ok)
			}
		})
	}
}
