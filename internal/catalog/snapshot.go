package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wolfman30/quickie-platform/internal/gateway"
	"github.com/wolfman30/quickie-platform/pkg/logging"
)

// ErrProductNotFound is returned for ids missing from the snapshot.
var ErrProductNotFound = errors.New("catalog: product not found")

// Source is the slice of the gateway the catalog reads from.
type Source interface {
	Query(ctx context.Context, table string, filters gateway.FilterSet, order gateway.Ordering, limit int) ([]gateway.Row, error)
	SubscribeChanges(table string, mask gateway.EventMask) (*gateway.Subscription[gateway.ChangeEvent], error)
}

// Snapshot is a point-in-time copy of active products and categories.
type Snapshot struct {
	Products   []Product
	Categories []Category
	LoadedAt   time.Time

	byID       map[string]int
	categoryOf map[string]Category
}

// Product looks up an active product by id.
func (s *Snapshot) Product(id string) (Product, bool) {
	i, ok := s.byID[id]
	if !ok {
		return Product{}, false
	}
	return s.Products[i], true
}

// Category returns the category of p, or false when it is unset or inactive.
func (s *Snapshot) Category(p Product) (Category, bool) {
	c, ok := s.categoryOf[p.CategoryID]
	return c, ok
}

func newSnapshot(products []Product, categories []Category, at time.Time) *Snapshot {
	s := &Snapshot{
		Products:   products,
		Categories: categories,
		LoadedAt:   at,
		byID:       make(map[string]int, len(products)),
		categoryOf: make(map[string]Category, len(categories)),
	}
	for i, p := range products {
		s.byID[p.ID] = i
	}
	for _, c := range categories {
		s.categoryOf[c.ID] = c
	}
	return s
}

// Catalog loads the snapshot once and serves every later read from memory.
// Product or category changes invalidate it.
type Catalog struct {
	source Source
	maxAge time.Duration
	logger *logging.Logger
	now    func() time.Time

	mu         sync.RWMutex
	current    *Snapshot
	generation uint64
	loads      singleflight.Group
}

// NewCatalog creates a catalog. maxAge of zero keeps a snapshot until it is invalidated.
func NewCatalog(source Source, maxAge time.Duration, logger *logging.Logger) *Catalog {
	if source == nil {
		panic("catalog: source required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Catalog{source: source, maxAge: maxAge, logger: logger, now: time.Now}
}

// Snapshot returns the cached snapshot, loading it when missing or stale.
// Concurrent callers share one load.
func (c *Catalog) Snapshot(ctx context.Context) (*Snapshot, error) {
	c.mu.RLock()
	snap := c.current
	gen := c.generation
	c.mu.RUnlock()
	if snap != nil && (c.maxAge <= 0 || c.now().Sub(snap.LoadedAt) < c.maxAge) {
		return snap, nil
	}

	v, err, _ := c.loads.Do(loadKey(gen), func() (any, error) {
		loaded, err := c.load(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.generation == gen {
			c.current = loaded
		}
		c.mu.Unlock()
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

// Invalidate drops the cached snapshot. A load already in flight is not
// installed once it finishes.
func (c *Catalog) Invalidate() {
	c.mu.Lock()
	c.current = nil
	c.generation++
	c.mu.Unlock()
}

func loadKey(gen uint64) string { return "snapshot-" + strconv.FormatUint(gen, 10) }

func (c *Catalog) load(ctx context.Context) (*Snapshot, error) {
	catRows, err := c.source.Query(ctx, gateway.TableCategories,
		gateway.Where(gateway.Eq("is_active", true)), gateway.Asc("sort_order"), 0)
	if err != nil {
		return nil, fmt.Errorf("catalog: load categories: %w", err)
	}
	categories, err := gateway.DecodeRows[Category](catRows)
	if err != nil {
		return nil, fmt.Errorf("catalog: decode categories: %w", err)
	}

	productRows, err := c.source.Query(ctx, gateway.TableProducts,
		gateway.Where(gateway.Eq("is_active", true)), gateway.Desc("created_at"), 0)
	if err != nil {
		return nil, fmt.Errorf("catalog: load products: %w", err)
	}
	products, err := gateway.DecodeRows[Product](productRows)
	if err != nil {
		return nil, fmt.Errorf("catalog: decode products: %w", err)
	}

	c.logger.Debug("catalog snapshot loaded", "products", len(products), "categories", len(categories))
	return newSnapshot(products, categories, c.now()), nil
}

// Watch invalidates the snapshot on every product or category change until
// ctx is cancelled. It returns gateway.ErrRealtimeDisabled when the gateway
// has no change stream.
func (c *Catalog) Watch(ctx context.Context) error {
	products, err := c.source.SubscribeChanges(gateway.TableProducts, gateway.MaskAll)
	if err != nil {
		return fmt.Errorf("catalog: subscribe products: %w", err)
	}
	defer products.Close()
	categories, err := c.source.SubscribeChanges(gateway.TableCategories, gateway.MaskAll)
	if err != nil {
		return fmt.Errorf("catalog: subscribe categories: %w", err)
	}
	defer categories.Close()

	for {
		var (
			ev gateway.ChangeEvent
			ok bool
		)
		select {
		case <-ctx.Done():
			return nil
		case ev, ok = <-products.Events():
		case ev, ok = <-categories.Events():
		}
		if !ok {
			return nil
		}
		c.logger.Debug("catalog invalidated", "table", ev.Table, "type", ev.Type, "id", ev.ID)
		c.Invalidate()
	}
}
