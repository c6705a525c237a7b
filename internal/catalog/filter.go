package catalog

import (
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Sort keys.
const (
	SortName      = "name"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortNewest    = "newest"
)

var (
	ErrInvalidPriceRange = errors.New("catalog: invalid price range")
	ErrUnknownSort       = errors.New("catalog: unknown sort order")
)

// PriceRange is an inclusive price bracket. Max is +Inf for open-ended ranges.
type PriceRange struct {
	Min float64
	Max float64
}

// ParsePriceRange reads "min-max" or "min+".
func ParsePriceRange(s string) (*PriceRange, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if lo, ok := strings.CutSuffix(s, "+"); ok {
		low, err := strconv.ParseFloat(lo, 64)
		if err != nil || low < 0 {
			return nil, ErrInvalidPriceRange
		}
		return &PriceRange{Min: low, Max: math.Inf(1)}, nil
	}
	lo, hi, ok := strings.Cut(s, "-")
	if !ok {
		return nil, ErrInvalidPriceRange
	}
	low, err := strconv.ParseFloat(lo, 64)
	if err != nil {
		return nil, ErrInvalidPriceRange
	}
	high, err := strconv.ParseFloat(hi, 64)
	if err != nil || low < 0 || high < low {
		return nil, ErrInvalidPriceRange
	}
	return &PriceRange{Min: low, Max: high}, nil
}

func (r *PriceRange) contains(price float64) bool {
	return price >= r.Min && price <= r.Max
}

// Filter is a catalog query. Zero values mean "no constraint".
type Filter struct {
	CategoryID string
	Price      *PriceRange
	Search     string
	Sort       string
}

// Apply filters and sorts products without modifying the input slice.
func Apply(products []Product, f Filter) ([]Product, error) {
	less, err := sorter(f.Sort)
	if err != nil {
		return nil, err
	}
	term := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if f.CategoryID != "" && p.CategoryID != f.CategoryID {
			continue
		}
		if f.Price != nil && !f.Price.contains(p.Price) {
			continue
		}
		if term != "" && !p.matches(term) {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out, nil
}

func sorter(key string) (func(a, b Product) bool, error) {
	switch key {
	case "", SortName:
		return func(a, b Product) bool {
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}, nil
	case SortPriceAsc:
		return func(a, b Product) bool { return a.Price < b.Price }, nil
	case SortPriceDesc:
		return func(a, b Product) bool { return a.Price > b.Price }, nil
	case SortNewest:
		return func(a, b Product) bool { return a.CreatedAt.After(b.CreatedAt) }, nil
	}
	return nil, ErrUnknownSort
}
