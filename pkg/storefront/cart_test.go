package storefront

import (
	"context"
	"os"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	shirt = Product{ID: 1, Title: "Shirt", Price: 19.99, Image: "https://img/shirt.png"}
	shoes = Product{ID: 2, Title: "Shoes", Price: 80}
)

func TestCart_AddItemMergesSameProduct(t *testing.T) {
	c := NewCart()
	c.AddItem(shirt, 1)
	c.AddItem(shoes, 2)
	c.AddItem(shirt, 2)

	items := c.Items()
	require.Len(t, items, 2)
	assert.Equal(t, int64(1), items[0].Product.ID)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, 5, c.ItemCount())
	assert.InDelta(t, 19.99*3+80*2, c.TotalPrice(), 1e-9)
}

func TestCart_IgnoresNonPositiveQuantity(t *testing.T) {
	c := NewCart()
	c.AddItem(shirt, 0)
	c.AddItem(shirt, -2)
	assert.Empty(t, c.Items())
}

func TestCart_UpdateAndRemove(t *testing.T) {
	c := NewCart()
	c.AddItem(shirt, 1)
	c.AddItem(shoes, 1)

	c.UpdateQuantity(shirt.ID, 4)
	assert.Equal(t, 5, c.ItemCount())

	c.UpdateQuantity(shoes.ID, 0)
	require.Len(t, c.Items(), 1)

	c.RemoveItem(shirt.ID)
	assert.Empty(t, c.Items())
	assert.Equal(t, float64(0), c.TotalPrice())
}

func TestCart_ItemsIsACopy(t *testing.T) {
	c := NewCart()
	c.AddItem(shirt, 1)
	items := c.Items()
	items[0].Quantity = 99
	assert.Equal(t, 1, c.ItemCount())
}

func TestCart_Quote(t *testing.T) {
	c := NewCart()
	c.AddItem(Product{ID: 3, Price: 25}, 2)
	q := c.Quote()
	assert.Equal(t, 50.0, q.Subtotal)
	assert.Equal(t, 5.99, q.Shipping)
	assert.InDelta(t, 55.99, q.Total, 1e-9)

	c.Clear()
	c.AddItem(Product{ID: 4, Price: 300}, 2)
	q = c.Quote()
	assert.Equal(t, 0.0, q.Shipping)
	assert.Equal(t, 600.0, q.Total)
}

func exerciseCartStore(t *testing.T, store CartStore) {
	ctx := context.Background()
	items, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, items)

	require.NoError(t, store.Save(ctx, "u1", []CartItem{{Product: shirt, Quantity: 2}}))
	items, err = store.Load(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, shirt, items[0].Product)
	assert.Equal(t, 2, items[0].Quantity)

	require.NoError(t, store.Save(ctx, "u1", nil))
	items, err = store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestMemoryCartStore(t *testing.T) {
	exerciseCartStore(t, NewMemoryCartStore())
}

func TestRedisCartStore(t *testing.T) {
	if os.Getenv("RUN_REDIS_INTEGRATION") != "true" {
		t.Skip("set RUN_REDIS_INTEGRATION=true to run against REDIS_URL")
	}
	opts, err := redis.ParseURL(os.Getenv("REDIS_URL"))
	require.NoError(t, err)
	client := redis.NewClient(opts)
	defer client.Close()
	client.Del(context.Background(), "cart:user:u1")

	exerciseCartStore(t, NewRedisCartStore(client))
}
