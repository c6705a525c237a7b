package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrOutOfStock = errors.New("catalog: product out of stock")
	ErrStockLimit = errors.New("catalog: stock limit reached")
)

// Item is one line of the shopping list.
type Item struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Image     string  `json:"image"`
	Quantity  int     `json:"quantity"`
}

// Cart is a visitor's shopping list.
type Cart []Item

// Count is the total quantity across items.
func (c Cart) Count() int {
	n := 0
	for _, it := range c {
		n += it.Quantity
	}
	return n
}

// Total is the sum of price times quantity.
func (c Cart) Total() float64 {
	var t float64
	for _, it := range c {
		t += it.Price * float64(it.Quantity)
	}
	return t
}

// Add puts one unit of p in the cart. It refuses products without stock and
// leaves the quantity unchanged once it reaches the available stock.
func (c Cart) Add(p Product) (Cart, error) {
	if p.OutOfStock() {
		return c, ErrOutOfStock
	}
	for i := range c {
		if c[i].ProductID != p.ID {
			continue
		}
		if c[i].Quantity >= p.StockQuantity {
			return c, ErrStockLimit
		}
		out := append(Cart(nil), c...)
		out[i].Quantity++
		return out, nil
	}
	out := append(Cart(nil), c...)
	return append(out, Item{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Image:     p.ImageURL,
		Quantity:  1,
	}), nil
}

// CartStore persists carts per visitor. Load returns an empty cart for new visitors.
type CartStore interface {
	Load(ctx context.Context, visitorID string) (Cart, error)
	Save(ctx context.Context, visitorID string, cart Cart) error
	Clear(ctx context.Context, visitorID string) error
}

func encodeCart(c Cart) (string, error) {
	if c == nil {
		c = Cart{}
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("catalog: encode cart: %w", err)
	}
	return string(raw), nil
}

func decodeCart(raw string) (Cart, error) {
	if raw == "" {
		return Cart{}, nil
	}
	var c Cart
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		return nil, fmt.Errorf("catalog: decode cart: %w", err)
	}
	return c, nil
}

// RedisCartStore keeps each cart as JSON text under cart:<visitor>.
type RedisCartStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCartStore creates a store whose carts expire ttl after the last save.
func NewRedisCartStore(client *redis.Client, ttl time.Duration) *RedisCartStore {
	if client == nil {
		panic("catalog: redis client required")
	}
	return &RedisCartStore{client: client, ttl: ttl}
}

func cartKey(visitorID string) string { return "cart:" + visitorID }

// Load returns an empty cart for unknown visitors.
func (s *RedisCartStore) Load(ctx context.Context, visitorID string) (Cart, error) {
	raw, err := s.client.Get(ctx, cartKey(visitorID)).Result()
	if errors.Is(err, redis.Nil) {
		return Cart{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: load cart: %w", err)
	}
	return decodeCart(raw)
}

// Save replaces the stored cart and refreshes its expiry.
func (s *RedisCartStore) Save(ctx context.Context, visitorID string, cart Cart) error {
	raw, err := encodeCart(cart)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, cartKey(visitorID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("catalog: save cart: %w", err)
	}
	return nil
}

// Clear deletes the visitor's cart.
func (s *RedisCartStore) Clear(ctx context.Context, visitorID string) error {
	if err := s.client.Del(ctx, cartKey(visitorID)).Err(); err != nil {
		return fmt.Errorf("catalog: clear cart: %w", err)
	}
	return nil
}

// MemoryCartStore is an in-process CartStore for development and tests.
type MemoryCartStore struct {
	mu    sync.Mutex
	carts map[string]string
}

func NewMemoryCartStore() *MemoryCartStore {
	return &MemoryCartStore{carts: make(map[string]string)}
}

func (s *MemoryCartStore) Load(_ context.Context, visitorID string) (Cart, error) {
	s.mu.Lock()
	raw := s.carts[visitorID]
	s.mu.Unlock()
	return decodeCart(raw)
}

func (s *MemoryCartStore) Save(_ context.Context, visitorID string, cart Cart) error {
	raw, err := encodeCart(cart)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.carts[visitorID] = raw
	s.mu.Unlock()
	return nil
}

func (s *MemoryCartStore) Clear(_ context.Context, visitorID string) error {
	s.mu.Lock()
	delete(s.carts, visitorID)
	s.mu.Unlock()
	return nil
}
