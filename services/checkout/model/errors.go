package model

import "fmt"

const (
	ErrQuoteUnavailable       Error = "model: shipping quote unavailable"
	ErrPaymentIntentFailure   Error = "model: failed to create payment intent"
	ErrPersistence            Error = "model: failed to persist checkout"
	ErrGatewayUnavailable     Error = "model: payment gateway unavailable"
	ErrVoucherNotApplicable   Error = "model: voucher not applicable to this amount"
	ErrGuestEmailTaken        Error = "model: email already belongs to a customer"
	ErrTransactionAlreadyPaid Error = "model: transaction already paid"
	ErrTransactionCancelled   Error = "model: transaction cancelled"
	ErrPaymentNotRetryable    Error = "model: only a failed payment can be retried"
	ErrNoRowsChanged          Error = "model: no rows changed"
	ErrInvalidSignature       Error = "model: invalid notification signature"
)

var (
	ErrStoreNotFound          = &NotFoundError{Entity: "store"}
	ErrVariantNotFound        = &NotFoundError{Entity: "variant"}
	ErrPaymentMethodNotFound  = &NotFoundError{Entity: "payment method"}
	ErrShippingMethodNotFound = &NotFoundError{Entity: "shipping method"}
	ErrVoucherNotFound        = &NotFoundError{Entity: "voucher"}
	ErrInvoiceNotFound        = &NotFoundError{Entity: "invoice"}
	ErrTransactionNotFound    = &NotFoundError{Entity: "transaction"}
	ErrPaymentNotFound        = &NotFoundError{Entity: "payment"}
	ErrCustomerNotFound       = &NotFoundError{Entity: "customer"}
)

type Error string

func (e Error) Error() string {
	return string(e)
}

// NotFoundError names the entity that does not exist or is out of scope.
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string {
	return "model: " + e.Entity + " not found"
}

// ValidationError is a malformed or inconsistent request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("model: invalid %s: %s", e.Field, e.Reason)
}

// NewValidationError returns a ValidationError for field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}
