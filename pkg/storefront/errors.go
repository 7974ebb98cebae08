package storefront

import "errors"

// ErrorCode classifies a checkout failure.
type ErrorCode string

const (
	CodeAuthRequired         ErrorCode = "auth_required"
	CodeIncompleteAddress    ErrorCode = "incomplete_address"
	CodeOrderPersistFailed   ErrorCode = "order_persist_failed"
	CodePaymentSessionFailed ErrorCode = "payment_session_failed"
	CodePaymentConfirmFailed ErrorCode = "payment_confirm_failed"
	CodeValidation           ErrorCode = "validation"
	CodeNetwork              ErrorCode = "network"
	CodeUpstream             ErrorCode = "upstream"
)

// CheckoutError is returned by every client flow operation. Code says which
// step failed, Cause (network or upstream) says why, and OrderID is set once
// an order exists so the caller can offer pay-later.
type CheckoutError struct {
	Code    ErrorCode
	Cause   ErrorCode
	OrderID string
	Message string
	Err     error
}

func (e *CheckoutError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *CheckoutError) Unwrap() error { return e.Err }

// Is matches a sentinel by Code or by Cause.
func (e *CheckoutError) Is(target error) bool {
	t, ok := target.(*CheckoutError)
	if !ok {
		return false
	}
	return t.Code == e.Code || (e.Cause != "" && t.Code == e.Cause)
}

var (
	ErrAuthRequired         = &CheckoutError{Code: CodeAuthRequired, Message: "Please sign in to place an order."}
	ErrIncompleteAddress    = &CheckoutError{Code: CodeIncompleteAddress, Message: "Please add a shipping address before placing your order."}
	ErrOrderPersistFailed   = &CheckoutError{Code: CodeOrderPersistFailed, Message: "We could not save your order."}
	ErrPaymentSessionFailed = &CheckoutError{Code: CodePaymentSessionFailed, Message: "Your order was saved but payment could not be started."}
	ErrPaymentConfirmFailed = &CheckoutError{Code: CodePaymentConfirmFailed, Message: "Payment could not be completed."}
	ErrValidation           = &CheckoutError{Code: CodeValidation, Message: "Invalid checkout data."}
	ErrNetwork              = &CheckoutError{Code: CodeNetwork, Message: "Cannot reach the store. Check your connection and try again."}
	ErrUpstream             = &CheckoutError{Code: CodeUpstream, Message: "The store could not process the request. Please try again later."}
)

// APIError is a non-2xx answer from the backend.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// causeOf reports whether err came from the transport or from the backend.
func causeOf(err error) ErrorCode {
	switch {
	case errors.Is(err, ErrNetwork):
		return CodeNetwork
	case err != nil:
		return CodeUpstream
	default:
		return ""
	}
}

// fail wraps err as a step failure. The user-facing message names the step
// and, when known, what to do about the cause.
func fail(step *CheckoutError, orderID string, err error) *CheckoutError {
	cause := causeOf(err)
	msg := step.Message
	switch cause {
	case CodeNetwork:
		msg += " " + ErrNetwork.Message
	case CodeUpstream:
		msg += " " + ErrUpstream.Message
	}
	return &CheckoutError{Code: step.Code, Cause: cause, OrderID: orderID, Message: msg, Err: err}
}
