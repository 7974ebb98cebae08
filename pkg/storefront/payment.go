package storefront

import (
	"context"

	"go.uber.org/zap"
)

// MerchantDisplayName is shown at the top of the payment sheet.
const MerchantDisplayName = "Shopcart Store"

// SheetConfig initialises the payment sheet with a broker session.
type SheetConfig struct {
	MerchantDisplayName         string
	CustomerID                  string
	EphemeralKey                string
	PaymentIntent               string
	ReturnURL                   string
	AllowsDelayedPaymentMethods bool
}

// SheetOutcome is how the user left the payment sheet.
type SheetOutcome int

const (
	SheetCompleted SheetOutcome = iota
	SheetCanceled
)

// PaymentSheet is the processor's payment UI.
type PaymentSheet interface {
	Init(ctx context.Context, cfg SheetConfig) error
	Present(ctx context.Context) (SheetOutcome, error)
}

// PaymentStatus is the result of a confirmation attempt.
type PaymentStatus int

const (
	PaymentPaid PaymentStatus = iota
	PaymentCanceled
)

// PaymentResult is what the UI shows after the sheet closes.
type PaymentResult struct {
	Status      PaymentStatus
	Title       string
	Message     string
	Order       *Order
	AlreadyPaid bool
}

// PaymentConfirmer presents the sheet and records a completed payment.
type PaymentConfirmer struct {
	session   *Session
	sheet     PaymentSheet
	orders    OrderStore
	returnURL string
	logger    *zap.Logger
}

func NewPaymentConfirmer(session *Session, sheet PaymentSheet, orders OrderStore, returnURL string, logger *zap.Logger) *PaymentConfirmer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentConfirmer{session: session, sheet: sheet, orders: orders, returnURL: returnURL, logger: logger}
}

// Confirm runs the payment sheet for orderID. A canceled sheet leaves the
// order pending and is not an error.
func (p *PaymentConfirmer) Confirm(ctx context.Context, orderID string, ps *PaymentSession) (*PaymentResult, error) {
	user := p.session.User()
	if user == nil {
		return nil, ErrAuthRequired
	}
	if orderID == "" || !ps.Complete() {
		return nil, &CheckoutError{Code: CodeValidation, OrderID: orderID, Message: "Payment session is incomplete."}
	}
	log := p.logger.With(zap.String("order_id", orderID))

	err := p.sheet.Init(ctx, SheetConfig{
		MerchantDisplayName:         MerchantDisplayName,
		CustomerID:                  ps.Customer,
		EphemeralKey:                ps.EphemeralKey,
		PaymentIntent:               ps.PaymentIntent,
		ReturnURL:                   p.returnURL,
		AllowsDelayedPaymentMethods: true,
	})
	if err != nil {
		log.Error("payment sheet init failed", zap.Error(err))
		return nil, &CheckoutError{Code: CodePaymentConfirmFailed, OrderID: orderID, Message: ErrPaymentConfirmFailed.Message, Err: err}
	}

	outcome, err := p.sheet.Present(ctx)
	if err != nil {
		log.Error("payment sheet failed", zap.Error(err))
		return nil, &CheckoutError{Code: CodePaymentConfirmFailed, OrderID: orderID, Message: ErrPaymentConfirmFailed.Message, Err: err}
	}
	if outcome == SheetCanceled {
		log.Info("payment canceled")
		return &PaymentResult{Status: PaymentCanceled, Title: "Payment Canceled", Message: "Your order is saved. You can pay for it later."}, nil
	}

	res, err := p.orders.ConfirmPayment(ctx, user.Token, orderID, ps.PaymentIntent)
	if err != nil {
		log.Error("failed to record payment", zap.Error(err))
		return nil, fail(ErrPaymentConfirmFailed, orderID, err)
	}
	log.Info("payment confirmed", zap.Bool("already_paid", res.AlreadyPaid))
	return &PaymentResult{
		Status:      PaymentPaid,
		Title:       "Payment Successful",
		Message:     "Thank you for your purchase!",
		Order:       res.Order,
		AlreadyPaid: res.AlreadyPaid,
	}, nil
}
