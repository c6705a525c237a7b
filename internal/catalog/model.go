package catalog

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	placeholderImage = "/images/placeholder-product.png"
	defaultCategory  = "Product"
	lowStockLimit    = 5
	excerptLength    = 100
)

// Category is a row of categories.
type Category struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	SortOrder int    `json:"sort_order"`
}

// Product is a row of products.
type Product struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	Description      string         `json:"description"`
	ShortDescription string         `json:"short_description"`
	Price            float64        `json:"price"`
	ComparePrice     *float64       `json:"compare_price"`
	ImageURL         string         `json:"image_url"`
	GalleryImages    []string       `json:"gallery_images"`
	CategoryID       string         `json:"category_id"`
	StockQuantity    int            `json:"stock_quantity"`
	SKU              string         `json:"sku"`
	Specifications   map[string]any `json:"specifications"`
	IsFeatured       bool           `json:"is_featured"`
	CreatedAt        time.Time      `json:"created_at"`
}

// OnSale reports whether a higher compare price is set.
func (p Product) OnSale() bool {
	return p.ComparePrice != nil && *p.ComparePrice > 0
}

// DiscountPercent is the rounded saving against the compare price.
func (p Product) DiscountPercent() int {
	if !p.OnSale() {
		return 0
	}
	return int(math.Round((*p.ComparePrice - p.Price) / *p.ComparePrice * 100))
}

// LowStock reports 1 to 5 units left.
func (p Product) LowStock() bool {
	return p.StockQuantity > 0 && p.StockQuantity <= lowStockLimit
}

// OutOfStock reports no units left.
func (p Product) OutOfStock() bool {
	return p.StockQuantity <= 0
}

// Image falls back to the placeholder when no image is set.
func (p Product) Image() string {
	if p.ImageURL == "" {
		return placeholderImage
	}
	return p.ImageURL
}

// Excerpt is the short description, or the first characters of the description.
func (p Product) Excerpt() string {
	if p.ShortDescription != "" {
		return p.ShortDescription
	}
	runes := []rune(p.Description)
	if len(runes) > excerptLength {
		runes = runes[:excerptLength]
	}
	return string(runes) + "..."
}

// FormatPrice renders an amount in pesos with two decimals.
func FormatPrice(v float64) string {
	return fmt.Sprintf("₱%.2f", v)
}

func (p Product) matches(term string) bool {
	return strings.Contains(strings.ToLower(p.Name), term) ||
		strings.Contains(strings.ToLower(p.Description), term) ||
		strings.Contains(strings.ToLower(p.ShortDescription), term)
}
