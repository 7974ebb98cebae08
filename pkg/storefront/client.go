package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

const (
	defaultTimeout = 10 * time.Second
	// IdempotencyKeyHeader mirrors the body field accepted by POST /checkout.
	IdempotencyKeyHeader = "Idempotency-Key"
)

// OrderItem is one line of a placed order.
type OrderItem struct {
	ProductID int64   `json:"product_id"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
	Title     string  `json:"title"`
	Image     string  `json:"image"`
}

// NewOrder is the body of POST /orders.
type NewOrder struct {
	TotalPrice      float64     `json:"total_price"`
	Items           []OrderItem `json:"items"`
	ShippingAddress Address     `json:"shipping_address"`
}

// Order is the backend's view of an order.
type Order struct {
	ID              string      `json:"id"`
	UserEmail       string      `json:"user_email"`
	TotalPrice      float64     `json:"total_price"`
	Items           []OrderItem `json:"items"`
	PaymentStatus   string      `json:"payment_status"`
	PaymentIntentID string      `json:"payment_intent_id,omitempty"`
	PaidAt          *time.Time  `json:"paid_at,omitempty"`
	ShippingAddress Address     `json:"shipping_address"`
	TrackingCode    string      `json:"tracking_code,omitempty"`
	ShippingStatus  string      `json:"shipping_status,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
}

const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
)

// OrderPage is one page of GET /orders.
type OrderPage struct {
	Orders []Order `json:"orders"`
	Total  int64   `json:"total"`
	Page   int     `json:"page"`
	Limit  int     `json:"limit"`
}

// ConfirmResult is the answer of POST /orders/:id/confirm-payment.
type ConfirmResult struct {
	Message     string `json:"message"`
	Order       *Order `json:"order"`
	AlreadyPaid bool   `json:"already_paid"`
}

// SessionRequest is the body of POST /checkout.
type SessionRequest struct {
	Email          string  `json:"email"`
	Price          float64 `json:"price"`
	OrderID        string  `json:"order_id,omitempty"`
	IdempotencyKey string  `json:"idempotency_key,omitempty"`
}

// PaymentSession holds the tokens the payment sheet is initialised with.
type PaymentSession struct {
	Customer       string `json:"customer"`
	EphemeralKey   string `json:"ephemeralKey"`
	PaymentIntent  string `json:"paymentIntent"`
	PublishableKey string `json:"publishableKey"`
}

// Complete reports whether all three sheet tokens are present.
func (p *PaymentSession) Complete() bool {
	return p != nil && p.Customer != "" && p.EphemeralKey != "" && p.PaymentIntent != ""
}

type sessionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	PaymentSession
}

type rawResponse struct {
	status int
	body   []byte
}

// BackendClient talks to the checkout service. Calls go through a circuit
// breaker that opens after five consecutive transport or 5xx failures.
type BackendClient struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[*rawResponse]
	logger  *zap.Logger
}

type Option func(*BackendClient)

func WithHTTPClient(c *http.Client) Option {
	return func(b *BackendClient) { b.client = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(b *BackendClient) { b.logger = l }
}

func NewBackendClient(baseURL string, opts ...Option) *BackendClient {
	b := &BackendClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: defaultTimeout},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.breaker = gobreaker.NewCircuitBreaker[*rawResponse](gobreaker.Settings{
		Name:    "checkout-backend",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return b
}

// CreateOrder persists a pending order for the token's user.
func (b *BackendClient) CreateOrder(ctx context.Context, token string, order NewOrder) (*Order, error) {
	var out struct {
		Order *Order `json:"order"`
	}
	if err := b.call(ctx, http.MethodPost, "/orders", nil, token, nil, order, &out); err != nil {
		return nil, err
	}
	if out.Order == nil || out.Order.ID == "" {
		return nil, &APIError{StatusCode: http.StatusBadGateway, Message: "order response missing id"}
	}
	return out.Order, nil
}

func (b *BackendClient) GetOrder(ctx context.Context, token, orderID string) (*Order, error) {
	var out struct {
		Order *Order `json:"order"`
	}
	if err := b.call(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID), nil, token, nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Order, nil
}

func (b *BackendClient) ListOrders(ctx context.Context, token string, page, limit int) (*OrderPage, error) {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out OrderPage
	if err := b.call(ctx, http.MethodGet, "/orders", q, token, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConfirmPayment asks the backend to verify the intent and mark the order paid.
func (b *BackendClient) ConfirmPayment(ctx context.Context, token, orderID, paymentIntent string) (*ConfirmResult, error) {
	body := map[string]string{"payment_intent": paymentIntent}
	var out ConfirmResult
	path := "/orders/" + url.PathEscape(orderID) + "/confirm-payment"
	if err := b.call(ctx, http.MethodPost, path, nil, token, nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreatePaymentSession calls the payment session broker.
func (b *BackendClient) CreatePaymentSession(ctx context.Context, req SessionRequest) (*PaymentSession, error) {
	var headers http.Header
	if req.IdempotencyKey != "" {
		headers = http.Header{IdempotencyKeyHeader: []string{req.IdempotencyKey}}
	}
	var out sessionResponse
	if err := b.call(ctx, http.MethodPost, "/checkout", nil, "", headers, req, &out); err != nil {
		return nil, err
	}
	if !out.Success || !out.PaymentSession.Complete() {
		msg := out.Message
		if msg == "" {
			msg = "payment session response incomplete"
		}
		return nil, &APIError{StatusCode: http.StatusBadGateway, Message: msg}
	}
	return &out.PaymentSession, nil
}

func (b *BackendClient) GetAddress(ctx context.Context, token string) (*Address, error) {
	var out struct {
		Address *Address `json:"address"`
	}
	if err := b.call(ctx, http.MethodGet, "/addresses/me", nil, token, nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Address, nil
}

func (b *BackendClient) SaveAddress(ctx context.Context, token string, addr Address) (*Address, error) {
	var out struct {
		Address *Address `json:"address"`
	}
	if err := b.call(ctx, http.MethodPut, "/addresses/me", nil, token, nil, addr, &out); err != nil {
		return nil, err
	}
	return out.Address, nil
}

// call sends one request and decodes a 2xx body into out. Transport failures
// and an open breaker come back matching ErrNetwork; non-2xx answers come
// back as *APIError.
func (b *BackendClient) call(ctx context.Context, method, path string, query url.Values, token string, headers http.Header, in, out interface{}) error {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	resp, err := b.breaker.Execute(func() (*rawResponse, error) {
		r, err := b.do(ctx, method, path, query, token, headers, payload)
		if err != nil {
			return nil, err
		}
		if r.status >= http.StatusInternalServerError {
			return r, apiError(r)
		}
		return r, nil
	})
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return apiErr
		}
		b.logger.Warn("backend request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		return &CheckoutError{Code: CodeNetwork, Message: ErrNetwork.Message, Err: err}
	}
	if resp.status >= http.StatusBadRequest {
		return apiError(resp)
	}
	if out == nil || len(resp.body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return &APIError{StatusCode: resp.status, Message: "invalid response body: " + err.Error()}
	}
	return nil
}

func (b *BackendClient) do(ctx context.Context, method, path string, query url.Values, token string, headers http.Header, payload []byte) (*rawResponse, error) {
	u := b.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if len(payload) > 0 {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range headers {
		for _, vv := range v {
			req.Header.Add(k, vv)
		}
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &rawResponse{status: resp.StatusCode, body: data}, nil
}

// apiError reads the message out of either error body shape the backend
// uses: {"error": ...} or {"success": false, "message": ...}.
func apiError(r *rawResponse) *APIError {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(r.body, &body)
	msg := body.Error
	if msg == "" {
		msg = body.Message
	}
	if msg == "" {
		msg = http.StatusText(r.status)
	}
	return &APIError{StatusCode: r.status, Message: msg}
}
