package services_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v80"

	"github.com/shopcart/storefront/services/checkout-service/models"
	"github.com/shopcart/storefront/services/checkout-service/providers"
	"github.com/shopcart/storefront/services/checkout-service/repository"
)

// ---- mock order repository ----

type mockOrderRepo struct {
	mu        sync.Mutex
	orders    map[uuid.UUID]*models.Order
	createErr error
	findErr   error
	markErr   error
	updateErr error
	markCalls int
	// beforeStart runs under the lock ahead of StartShipping's check.
	beforeStart func(stored *models.Order)
}

func newMockOrderRepo(orders ...*models.Order) *mockOrderRepo {
	m := &mockOrderRepo{orders: map[uuid.UUID]*models.Order{}}
	for _, o := range orders {
		m.orders[o.ID] = o
	}
	return m
}

func (m *mockOrderRepo) Create(_ context.Context, o *models.Order) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o.ID = uuid.New()
	cp := *o
	m.orders[o.ID] = &cp
	return nil
}

func (m *mockOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) FindByUserEmail(_ context.Context, email string, _, _ int) ([]models.Order, int64, error) {
	if m.findErr != nil {
		return nil, 0, m.findErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.orders {
		if o.UserEmail == email {
			out = append(out, *o)
		}
	}
	return out, int64(len(out)), nil
}

func (m *mockOrderRepo) MarkPaid(_ context.Context, id uuid.UUID, intentID string, paidAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markCalls++
	if m.markErr != nil {
		return false, m.markErr
	}
	o, ok := m.orders[id]
	if !ok {
		return false, repository.ErrOrderNotFound
	}
	if o.PaymentStatus != models.PaymentStatusPending {
		return false, nil
	}
	o.PaymentStatus = models.PaymentStatusPaid
	o.PaymentIntentID = intentID
	o.PaidAt = &paidAt
	return true, nil
}

func (m *mockOrderRepo) StartShipping(_ context.Context, o *models.Order) (bool, error) {
	if m.updateErr != nil {
		return false, m.updateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.orders[o.ID]
	if !ok {
		return false, repository.ErrOrderNotFound
	}
	if m.beforeStart != nil {
		m.beforeStart(stored)
	}
	if stored.TrackingCode != "" {
		return false, nil
	}
	stored.TrackingCode = o.TrackingCode
	stored.ShippingStatus = o.ShippingStatus
	stored.TrackingHistory = append([]models.TrackingEntry(nil), o.TrackingHistory...)
	return true, nil
}

func (m *mockOrderRepo) UpdateShipping(_ context.Context, o *models.Order) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := m.orders[o.ID]
	stored.TrackingCode = o.TrackingCode
	stored.ShippingStatus = o.ShippingStatus
	stored.TrackingHistory = append([]models.TrackingEntry(nil), o.TrackingHistory...)
	return nil
}

func (m *mockOrderRepo) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[id]; !ok {
		return repository.ErrOrderNotFound
	}
	delete(m.orders, id)
	return nil
}

// ---- mock payment provider ----

type mockProvider struct {
	customerErr error
	keyErr      error
	intentErr   error
	getErr      error
	webhookErr  error

	intent  *providers.PaymentIntent
	event   stripe.Event
	created []providers.PaymentIntentRequest
	calls   int
}

func (m *mockProvider) CreateCustomer(_ context.Context, req providers.CustomerRequest) (string, error) {
	m.calls++
	if m.customerErr != nil {
		return "", m.customerErr
	}
	return "cus_123", nil
}

func (m *mockProvider) CreateEphemeralKey(_ context.Context, customerID, _ string) (string, error) {
	m.calls++
	if m.keyErr != nil {
		return "", m.keyErr
	}
	return "ek_secret_" + customerID, nil
}

func (m *mockProvider) CreatePaymentIntent(_ context.Context, req providers.PaymentIntentRequest) (*providers.PaymentIntent, error) {
	m.calls++
	if m.intentErr != nil {
		return nil, m.intentErr
	}
	m.created = append(m.created, req)
	return &providers.PaymentIntent{
		ID:           "pi_1",
		ClientSecret: "pi_1_secret_abc",
		Status:       "requires_payment_method",
		Metadata:     map[string]string{"order_id": req.OrderID, "email": req.Email},
	}, nil
}

func (m *mockProvider) GetPaymentIntent(_ context.Context, id string) (*providers.PaymentIntent, error) {
	m.calls++
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.intent == nil || m.intent.ID != id {
		return nil, errors.New("no such payment_intent")
	}
	return m.intent, nil
}

func (m *mockProvider) ParseWebhook(_ []byte, _ string) (stripe.Event, error) {
	return m.event, m.webhookErr
}

// ---- mock publisher / metrics ----

type mockPublisher struct {
	mu       sync.Mutex
	messages [][]byte
	err      error
}

func (m *mockPublisher) Publish(_ context.Context, _ string, message []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, message)
	return m.err
}

func (m *mockPublisher) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

type mockCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func (m *mockCounter) RecordCount(_ context.Context, name string, _ map[string]string) error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts == nil {
		m.counts = map[string]int{}
	}
	m.counts[name]++
	return nil
}

func (m *mockCounter) get(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[name]
}

// ---- fixtures ----

func completeAddress() models.ShippingAddress {
	return models.ShippingAddress{
		Phone: "+1 555 0100", Street: "1 Main St", City: "Austin",
		State: "TX", PostalCode: "73301", Country: "US",
	}
}

func pendingOrder(email string, total float64) *models.Order {
	return &models.Order{
		ID:              uuid.New(),
		UserEmail:       email,
		TotalPrice:      total,
		Items:           []models.OrderItem{{ProductID: 1, Quantity: 1, Price: total, Title: "Item"}},
		ShippingAddress: completeAddress(),
		PaymentStatus:   models.PaymentStatusPending,
	}
}
