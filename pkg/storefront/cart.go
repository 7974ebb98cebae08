package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shopcart/storefront/pkg/pricing"
)

// Product is the catalog data a cart line needs.
type Product struct {
	ID    int64   `json:"id"`
	Title string  `json:"title"`
	Price float64 `json:"price"`
	Image string  `json:"image"`
}

// CartItem is one cart line.
type CartItem struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// Cart holds line items. It never touches the network; see CartStore for
// persistence. Safe for concurrent use.
type Cart struct {
	mu    sync.Mutex
	items []CartItem
}

func NewCart(items ...CartItem) *Cart {
	c := &Cart{}
	c.Replace(items)
	return c
}

// AddItem merges quantity into the line of the same product, or appends a
// new line. Non-positive quantities are ignored.
func (c *Cart) AddItem(p Product, quantity int) {
	if quantity <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].Product.ID == p.ID {
			c.items[i].Quantity += quantity
			return
		}
	}
	c.items = append(c.items, CartItem{Product: p, Quantity: quantity})
}

func (c *Cart) RemoveItem(productID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remove(productID)
}

// UpdateQuantity sets the quantity of a line; qty <= 0 removes it.
func (c *Cart) UpdateQuantity(productID int64, qty int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if qty <= 0 {
		c.remove(productID)
		return
	}
	for i := range c.items {
		if c.items[i].Product.ID == productID {
			c.items[i].Quantity = qty
			return
		}
	}
}

func (c *Cart) remove(productID int64) {
	for i := range c.items {
		if c.items[i].Product.ID == productID {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return
		}
	}
}

// TotalPrice is the sum of price times quantity, unrounded.
func (c *Cart) TotalPrice() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total float64
	for _, it := range c.items {
		total += it.Product.Price * float64(it.Quantity)
	}
	return total
}

func (c *Cart) ItemCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

// Items returns a copy of the lines.
func (c *Cart) Items() []CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]CartItem(nil), c.items...)
}

// Quote prices the cart with shipping.
func (c *Cart) Quote() pricing.Quote {
	return pricing.QuoteFor(c.TotalPrice())
}

func (c *Cart) Clear() {
	c.mu.Lock()
	c.items = nil
	c.mu.Unlock()
}

// Replace swaps in items, dropping lines with a non-positive quantity.
func (c *Cart) Replace(items []CartItem) {
	kept := make([]CartItem, 0, len(items))
	for _, it := range items {
		if it.Quantity > 0 {
			kept = append(kept, it)
		}
	}
	c.mu.Lock()
	c.items = kept
	c.mu.Unlock()
}

// CartStore persists a user's cart between sessions.
type CartStore interface {
	Load(ctx context.Context, userID string) ([]CartItem, error)
	Save(ctx context.Context, userID string, items []CartItem) error
}

// CartTTL is how long an untouched cart is kept.
const CartTTL = 7 * 24 * time.Hour

// RedisCartStore keeps each cart as JSON under cart:user:<id>.
type RedisCartStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCartStore(client *redis.Client) *RedisCartStore {
	return &RedisCartStore{client: client, ttl: CartTTL}
}

func (r *RedisCartStore) getCartKey(userID string) string {
	return fmt.Sprintf("cart:user:%s", userID)
}

func (r *RedisCartStore) Load(ctx context.Context, userID string) ([]CartItem, error) {
	data, err := r.client.Get(ctx, r.getCartKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	var items []CartItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return items, nil
}

func (r *RedisCartStore) Save(ctx context.Context, userID string, items []CartItem) error {
	if len(items) == 0 {
		return r.client.Del(ctx, r.getCartKey(userID)).Err()
	}
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.getCartKey(userID), data, r.ttl).Err()
}

// MemoryCartStore is a process-local CartStore.
type MemoryCartStore struct {
	mu    sync.Mutex
	carts map[string][]CartItem
}

func NewMemoryCartStore() *MemoryCartStore {
	return &MemoryCartStore{carts: map[string][]CartItem{}}
}

func (m *MemoryCartStore) Load(_ context.Context, userID string) ([]CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CartItem(nil), m.carts[userID]...), nil
}

func (m *MemoryCartStore) Save(_ context.Context, userID string, items []CartItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(items) == 0 {
		delete(m.carts, userID)
		return nil
	}
	m.carts[userID] = append([]CartItem(nil), items...)
	return nil
}
