package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopcart/storefront/services/checkout-service/models"
)

// ErrSessionInFlight means another request holds the claim for the same
// (order, idempotency key) pair and has not finished yet.
var ErrSessionInFlight = errors.New("payment session already in progress")

const pendingMarker = "pending"

// SessionStore deduplicates payment-session creation per (order id, idempotency key).
type SessionStore interface {
	// Reserve claims the pair. It returns (nil, nil) when the caller now owns
	// the claim, the stored session when one was already created, or
	// ErrSessionInFlight.
	Reserve(ctx context.Context, orderID, key string) (*models.PaymentSession, error)
	Save(ctx context.Context, orderID, key string, session *models.PaymentSession) error
	Release(ctx context.Context, orderID, key string) error
}

type storedSession struct {
	Customer        string `json:"customer"`
	EphemeralKey    string `json:"ephemeral_key"`
	PaymentIntent   string `json:"payment_intent"`
	PaymentIntentID string `json:"payment_intent_id"`
}

func encodeSession(s *models.PaymentSession) ([]byte, error) {
	return json.Marshal(storedSession{
		Customer:        s.Customer,
		EphemeralKey:    s.EphemeralKey,
		PaymentIntent:   s.PaymentIntent,
		PaymentIntentID: s.PaymentIntentID,
	})
}

func decodeSession(raw []byte) (*models.PaymentSession, error) {
	var s storedSession
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	return &models.PaymentSession{
		Customer:        s.Customer,
		EphemeralKey:    s.EphemeralKey,
		PaymentIntent:   s.PaymentIntent,
		PaymentIntentID: s.PaymentIntentID,
	}, nil
}

// Default lifetimes of an in-flight claim and of a replayable session.
const (
	SessionClaimTTL = 2 * time.Minute
	SessionTTL      = 24 * time.Hour
)

// RedisSessionStore keeps claims and sessions under idem:checkout:<order>:<key>.
type RedisSessionStore struct {
	client   *redis.Client
	claimTTL time.Duration
	ttl      time.Duration
}

// NewRedisSessionStore creates a store whose claims expire after claimTTL
// (so a crashed request does not block retries forever) and whose sessions
// are replayable for ttl.
func NewRedisSessionStore(client *redis.Client, claimTTL, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, claimTTL: claimTTL, ttl: ttl}
}

func (r *RedisSessionStore) getIdemKey(orderID, key string) string {
	return fmt.Sprintf("idem:checkout:%s:%s", orderID, key)
}

func (r *RedisSessionStore) Reserve(ctx context.Context, orderID, key string) (*models.PaymentSession, error) {
	k := r.getIdemKey(orderID, key)
	ok, err := r.client.SetNX(ctx, k, pendingMarker, r.claimTTL).Result()
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, nil
	}

	val, err := r.client.Get(ctx, k).Result()
	if err == redis.Nil {
		// Claim expired between SETNX and GET; try once more.
		ok, err = r.client.SetNX(ctx, k, pendingMarker, r.claimTTL).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return nil, nil
		}
		return nil, ErrSessionInFlight
	}
	if err != nil {
		return nil, err
	}
	if val == pendingMarker {
		return nil, ErrSessionInFlight
	}
	return decodeSession([]byte(val))
}

func (r *RedisSessionStore) Save(ctx context.Context, orderID, key string, session *models.PaymentSession) error {
	data, err := encodeSession(session)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.getIdemKey(orderID, key), data, r.ttl).Err()
}

func (r *RedisSessionStore) Release(ctx context.Context, orderID, key string) error {
	return r.client.Del(ctx, r.getIdemKey(orderID, key)).Err()
}

// MemorySessionStore is the single-process SessionStore used when no Redis is
// configured. Entries expire like their Redis counterparts and expired ones are
// pruned at most once per claim TTL.
type MemorySessionStore struct {
	mu        sync.Mutex
	entries   map[string]memoryEntry
	claimTTL  time.Duration
	ttl       time.Duration
	lastPrune time.Time
	now       func() time.Time
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

func NewMemorySessionStore(claimTTL, ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		entries:  map[string]memoryEntry{},
		claimTTL: claimTTL,
		ttl:      ttl,
		now:      time.Now,
	}
}

func (m *MemorySessionStore) Reserve(_ context.Context, orderID, key string) (*models.PaymentSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.prune(now)

	k := orderID + ":" + key
	e, ok := m.entries[k]
	if !ok || !now.Before(e.expiresAt) {
		m.entries[k] = memoryEntry{value: []byte(pendingMarker), expiresAt: now.Add(m.claimTTL)}
		return nil, nil
	}
	if string(e.value) == pendingMarker {
		return nil, ErrSessionInFlight
	}
	return decodeSession(e.value)
}

func (m *MemorySessionStore) Save(_ context.Context, orderID, key string, session *models.PaymentSession) error {
	data, err := encodeSession(session)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.entries[orderID+":"+key] = memoryEntry{value: data, expiresAt: m.now().Add(m.ttl)}
	m.mu.Unlock()
	return nil
}

func (m *MemorySessionStore) Release(_ context.Context, orderID, key string) error {
	m.mu.Lock()
	delete(m.entries, orderID+":"+key)
	m.mu.Unlock()
	return nil
}

// Len reports how many entries are held, expired ones included until the next prune.
func (m *MemorySessionStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *MemorySessionStore) prune(now time.Time) {
	if now.Sub(m.lastPrune) < m.claimTTL {
		return
	}
	m.lastPrune = now
	for k, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, k)
		}
	}
}
