package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/wolfman30/quickie-platform/internal/observability/metrics"
	"github.com/wolfman30/quickie-platform/pkg/logging"
)

// Browser answers catalog and shopping list requests from the snapshot.
type Browser struct {
	catalog *Catalog
	carts   CartStore
	metrics *metrics.SiteMetrics
	logger  *logging.Logger
}

// NewBrowser creates a browser over catalog and carts. m may be nil.
func NewBrowser(catalog *Catalog, carts CartStore, m *metrics.SiteMetrics, logger *logging.Logger) *Browser {
	if catalog == nil {
		panic("catalog: catalog required")
	}
	if carts == nil {
		panic("catalog: cart store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Browser{catalog: catalog, carts: carts, metrics: m, logger: logger}
}

// List filters and sorts the full snapshot.
func (b *Browser) List(ctx context.Context, f Filter) (*Snapshot, []Product, error) {
	snap, err := b.catalog.Snapshot(ctx)
	if err != nil {
		return nil, nil, err
	}
	products, err := Apply(snap.Products, f)
	if err != nil {
		return nil, nil, err
	}
	return snap, products, nil
}

// Product returns one product from the snapshot.
func (b *Browser) Product(ctx context.Context, id string) (*Snapshot, Product, error) {
	snap, err := b.catalog.Snapshot(ctx)
	if err != nil {
		return nil, Product{}, err
	}
	p, ok := snap.Product(id)
	if !ok {
		return snap, Product{}, ErrProductNotFound
	}
	return snap, p, nil
}

// Cart returns the visitor's shopping list.
func (b *Browser) Cart(ctx context.Context, visitorID string) (Cart, error) {
	return b.carts.Load(ctx, visitorID)
}

// AddToCart adds one unit of productID. On ErrStockLimit the returned cart is
// the unchanged stored cart.
func (b *Browser) AddToCart(ctx context.Context, visitorID, productID string) (Cart, Product, error) {
	_, p, err := b.Product(ctx, productID)
	if err != nil {
		b.observeAdd(err)
		return nil, Product{}, err
	}
	cart, err := b.carts.Load(ctx, visitorID)
	if err != nil {
		b.observeAdd(err)
		return nil, p, err
	}
	updated, err := cart.Add(p)
	if err != nil {
		b.observeAdd(err)
		return cart, p, err
	}
	if err := b.carts.Save(ctx, visitorID, updated); err != nil {
		b.observeAdd(err)
		return nil, p, fmt.Errorf("catalog: add to cart: %w", err)
	}
	b.observeAdd(nil)
	return updated, p, nil
}

// ClearCart empties the visitor's shopping list.
func (b *Browser) ClearCart(ctx context.Context, visitorID string) error {
	return b.carts.Clear(ctx, visitorID)
}

func (b *Browser) observeAdd(err error) {
	result := "added"
	switch {
	case err == nil:
	case errors.Is(err, ErrProductNotFound):
		result = "not_found"
	case errors.Is(err, ErrOutOfStock):
		result = "out_of_stock"
	case errors.Is(err, ErrStockLimit):
		result = "stock_limit"
	default:
		result = "error"
		b.logger.Error("cart update failed", "error", err)
	}
	b.metrics.ObserveCartAddition(result)
}
