package wildberries

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/wbpricebot/wbwatch/internal/model"
)

// SiteURL is the storefront origin used in product links.
const SiteURL = "https://www.wildberries.ru"

const unknown = "Unknown"

// ExtractProductInfo normalizes a search result. It returns false when the
// product has no positive price. Prices are rounded half to even, to whole
// rubles.
func ExtractProductInfo(p model.RawProduct) (*model.ProductInfo, bool) {
	kopecks, ok := p.PriceKopecks()
	if !ok {
		return nil, false
	}
	price := kopecks / 100
	if price <= 0 || math.IsNaN(price) {
		return nil, false
	}

	name := p.Name()
	if _, present := p["name"]; !present {
		name = unknown
	}
	seller, present := p.Supplier()
	if !present {
		seller = unknown
	}

	return &model.ProductInfo{
		ProductID:  p.ID(),
		Name:       name,
		Price:      int64(math.RoundToEven(price)),
		Seller:     seller,
		SupplierID: p.SupplierID(),
		Stock:      p.TotalQuantity(),
		URL:        ProductURL(p.ID(), name),
	}, true
}

// ProductURL links to the product card. The name slug is the first 50
// characters of name, lowercased, with spaces turned into dashes. Without
// an id the storefront root is returned.
func ProductURL(id int64, name string) string {
	if id == 0 {
		return SiteURL
	}
	runes := []rune(name)
	if len(runes) > 50 {
		runes = runes[:50]
	}
	slug := strings.ReplaceAll(strings.ToLower(string(runes)), " ", "-")
	return SiteURL + "/catalog/" + strconv.FormatInt(id, 10) + "/detail.aspx?name=" + slug
}

// SellerURL links to the seller's storefront page, or "" without an id.
func SellerURL(supplierID int64) string {
	if supplierID == 0 {
		return ""
	}
	return SiteURL + "/seller/" + strconv.FormatInt(supplierID, 10)
}

// ApplyDiscount returns price reduced by pct percent, rounded half to even.
func ApplyDiscount(price int64, pct int) int64 {
	return int64(math.RoundToEven(float64(price) * (1 - float64(pct)/100)))
}

var nonDigit = regexp.MustCompile(`[^0-9]`)

// ParseDiscount reads the site discount setting. Formats like "11", "11%"
// and " 11 % " are accepted; anything without digits yields the default.
func ParseDiscount(setting string) int {
	s := strings.TrimSpace(setting)
	s = strings.TrimSpace(strings.TrimRight(s, "%"))
	digits := nonDigit.ReplaceAllString(s, "")
	if digits == "" {
		return model.DefaultSiteBaseDiscount
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return model.DefaultSiteBaseDiscount
	}
	return n
}
