package repository

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopcart/storefront/services/checkout-service/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseSessionStore(t *testing.T, store SessionStore) {
	ctx := context.Background()
	orderID, key := uuid.NewString(), uuid.NewString()

	cached, err := store.Reserve(ctx, orderID, key)
	require.NoError(t, err)
	assert.Nil(t, cached)

	_, err = store.Reserve(ctx, orderID, key)
	assert.ErrorIs(t, err, ErrSessionInFlight)

	session := &models.PaymentSession{Customer: "cus_1", EphemeralKey: "ek_1", PaymentIntent: "pi_1_secret_x", PaymentIntentID: "pi_1"}
	require.NoError(t, store.Save(ctx, orderID, key, session))

	cached, err = store.Reserve(ctx, orderID, key)
	require.NoError(t, err)
	assert.Equal(t, session, cached)

	// A different key for the same order is a separate attempt.
	cached, err = store.Reserve(ctx, orderID, uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, cached)

	other := uuid.NewString()
	_, err = store.Reserve(ctx, orderID, other)
	require.NoError(t, err)
	require.NoError(t, store.Release(ctx, orderID, other))
	cached, err = store.Reserve(ctx, orderID, other)
	require.NoError(t, err)
	assert.Nil(t, cached)
}

func TestMemorySessionStore(t *testing.T) {
	exerciseSessionStore(t, NewMemorySessionStore(time.Minute, time.Hour))
}

// Runs only when REDIS_URL points at a disposable Redis.
func TestRedisSessionStore(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" || os.Getenv("RUN_REDIS_INTEGRATION") != "true" {
		t.Skip("skipping redis integration test; set RUN_REDIS_INTEGRATION=true and REDIS_URL to run")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	defer client.Close()

	exerciseSessionStore(t, NewRedisSessionStore(client, time.Minute, time.Hour))
}

func TestMemorySessionStore_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemorySessionStore(2*time.Minute, time.Hour)
	store.now = func() time.Time { return now }

	// A claim that was never saved or released stops blocking once it expires.
	_, err := store.Reserve(ctx, "order-1", "key-1")
	require.NoError(t, err)
	_, err = store.Reserve(ctx, "order-1", "key-1")
	assert.ErrorIs(t, err, ErrSessionInFlight)

	now = now.Add(2*time.Minute + time.Second)
	got, err := store.Reserve(ctx, "order-1", "key-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Saved sessions replay until the session TTL passes.
	session := &models.PaymentSession{Customer: "cus_1", EphemeralKey: "ek_1", PaymentIntent: "pi_1_secret_x", PaymentIntentID: "pi_1"}
	require.NoError(t, store.Save(ctx, "order-1", "key-1", session))
	now = now.Add(59 * time.Minute)
	got, err = store.Reserve(ctx, "order-1", "key-1")
	require.NoError(t, err)
	assert.Equal(t, session, got)

	now = now.Add(2 * time.Minute)
	got, err = store.Reserve(ctx, "order-1", "key-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemorySessionStore_PrunesExpiredEntries(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemorySessionStore(time.Minute, time.Hour)
	store.now = func() time.Time { return now }

	for i := 0; i < 50; i++ {
		_, err := store.Reserve(ctx, "order", fmt.Sprintf("key-%d", i))
		require.NoError(t, err)
	}
	assert.Equal(t, 50, store.Len())

	now = now.Add(2 * time.Minute)
	_, err := store.Reserve(ctx, "order", "fresh")
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())
}
