package storefront

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shopcart/storefront/pkg/pricing"
)

// OrderStore persists orders and confirms their payment.
type OrderStore interface {
	CreateOrder(ctx context.Context, token string, order NewOrder) (*Order, error)
	ConfirmPayment(ctx context.Context, token, orderID, paymentIntent string) (*ConfirmResult, error)
}

// PaymentBroker issues payment sessions.
type PaymentBroker interface {
	CreatePaymentSession(ctx context.Context, req SessionRequest) (*PaymentSession, error)
}

// PlacedOrder is a persisted order together with the session to pay it.
type PlacedOrder struct {
	OrderID string
	Quote   pricing.Quote
	Session *PaymentSession
}

// Checkout turns the session's cart into a pending order and a payment session.
type Checkout struct {
	session  *Session
	orders   OrderStore
	broker   PaymentBroker
	carts    CartStore
	logger   *zap.Logger
	newToken func() string
}

// NewCheckout wires the flow. carts may be nil when the cart is not persisted.
func NewCheckout(session *Session, orders OrderStore, broker PaymentBroker, carts CartStore, logger *zap.Logger) *Checkout {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Checkout{
		session:  session,
		orders:   orders,
		broker:   broker,
		carts:    carts,
		logger:   logger,
		newToken: uuid.NewString,
	}
}

// PlaceOrder validates the address, persists a pending order and requests a
// payment session for it. The cart is cleared only once the session exists.
// When the session request fails the order stays pending and the returned
// error carries its id.
func (c *Checkout) PlaceOrder(ctx context.Context) (*PlacedOrder, error) {
	user := c.session.User()
	if user == nil {
		return nil, ErrAuthRequired
	}

	addr := c.session.Address()
	if addr == nil {
		return nil, ErrIncompleteAddress
	}
	if missing := addr.MissingFields(); len(missing) > 0 {
		return nil, incompleteAddress(missing)
	}

	cart := c.session.Cart()
	items := cart.Items()
	if len(items) == 0 {
		return nil, &CheckoutError{Code: CodeValidation, Message: "Your cart is empty."}
	}
	quote := cart.Quote()

	order, err := c.orders.CreateOrder(ctx, user.Token, NewOrder{
		TotalPrice:      quote.Total,
		Items:           orderItems(items),
		ShippingAddress: *addr,
	})
	if err != nil {
		c.logger.Error("failed to create order", zap.String("user_id", user.ID), zap.Error(err))
		return nil, fail(ErrOrderPersistFailed, "", err)
	}
	log := c.logger.With(zap.String("order_id", order.ID))

	session, err := c.requestSession(ctx, user, order.ID, quote.Total)
	if err != nil {
		log.Error("failed to create payment session", zap.Error(err))
		return nil, fail(ErrPaymentSessionFailed, order.ID, err)
	}

	cart.Clear()
	if c.carts != nil {
		if err := c.carts.Save(ctx, user.ID, nil); err != nil {
			log.Warn("failed to persist cleared cart", zap.Error(err))
		}
	}
	log.Info("order placed", zap.Float64("total", quote.Total))
	return &PlacedOrder{OrderID: order.ID, Quote: quote, Session: session}, nil
}

// PayOrder requests a fresh payment session for an order that is still pending.
func (c *Checkout) PayOrder(ctx context.Context, order *Order) (*PaymentSession, error) {
	user := c.session.User()
	if user == nil {
		return nil, ErrAuthRequired
	}
	if order == nil || order.ID == "" {
		return nil, &CheckoutError{Code: CodeValidation, Message: "Order is missing."}
	}
	if order.PaymentStatus != PaymentStatusPending {
		return nil, &CheckoutError{Code: CodeValidation, OrderID: order.ID, Message: "This order has already been paid."}
	}

	session, err := c.requestSession(ctx, user, order.ID, order.TotalPrice)
	if err != nil {
		c.logger.Error("failed to create payment session", zap.String("order_id", order.ID), zap.Error(err))
		return nil, fail(ErrPaymentSessionFailed, order.ID, err)
	}
	return session, nil
}

func (c *Checkout) requestSession(ctx context.Context, user *User, orderID string, total float64) (*PaymentSession, error) {
	session, err := c.broker.CreatePaymentSession(ctx, SessionRequest{
		Email:          user.Email,
		Price:          total,
		OrderID:        orderID,
		IdempotencyKey: c.newToken(),
	})
	if err != nil {
		return nil, err
	}
	if !session.Complete() {
		return nil, &APIError{StatusCode: http.StatusBadGateway, Message: "payment session response incomplete"}
	}
	return session, nil
}

func orderItems(items []CartItem) []OrderItem {
	out := make([]OrderItem, 0, len(items))
	for _, it := range items {
		out = append(out, OrderItem{
			ProductID: it.Product.ID,
			Quantity:  it.Quantity,
			Price:     it.Product.Price,
			Title:     it.Product.Title,
			Image:     it.Product.Image,
		})
	}
	return out
}
