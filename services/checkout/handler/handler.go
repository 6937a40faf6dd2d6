// Package handler exposes the checkout service over http.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-playground/validator/v10"

	"github.com/sellora/marketplace/libs/clients/gateway"
	"github.com/sellora/marketplace/libs/clients/shipping"
	"github.com/sellora/marketplace/libs/handlers"
	"github.com/sellora/marketplace/libs/logging"
	"github.com/sellora/marketplace/libs/requestutils"
	"github.com/sellora/marketplace/services/checkout/model"
)

const reqBodyLimit1MB = 1 << 20

type checkoutService interface {
	Checkout(ctx context.Context, req *model.CheckoutRequest) (*model.CheckoutResult, error)
}

type transactionService interface {
	Reconcile(ctx context.Context, code string) (*model.Payment, error)
	Confirm(ctx context.Context, code, note string) (*model.Payment, error)
	Cancel(ctx context.Context, code string) (*model.Transaction, error)
	RetryPayment(ctx context.Context, code string) (*model.Payment, error)
}

type Checkout struct {
	svc   checkoutService
	valid *validator.Validate
}

func NewCheckout(svc checkoutService) *Checkout {
	return &Checkout{svc: svc, valid: validator.New()}
}

func (h *Checkout) Create(w http.ResponseWriter, r *http.Request) *handlers.AppError {
	ctx := r.Context()

	raw, err := requestutils.ReadWithLimit(ctx, r.Body, reqBodyLimit1MB)
	if err != nil {
		return handlers.WrapError(err, "Failed to read request body", http.StatusBadRequest)
	}

	req := &model.CheckoutRequest{}
	if err := json.Unmarshal(raw, req); err != nil {
		return handlers.WrapError(err, "Failed to deserialize request", http.StatusBadRequest)
	}

	if err := h.valid.StructCtx(ctx, req); err != nil {
		verrs, ok := collectValidationErrors(err)
		if !ok {
			return handlers.WrapError(err, "Failed to validate request", http.StatusBadRequest)
		}

		return handlers.ValidationError("request body", verrs)
	}

	lg := logging.Logger(ctx, "checkout").With().Str("func", "CreateCheckout").Logger()

	result, err := h.svc.Checkout(ctx, req)
	if err != nil {
		lg.Error().Err(err).Msg("failed to checkout")

		return mapError(err)
	}

	return handlers.RenderContent(ctx, result, w, http.StatusCreated)
}

type Transaction struct {
	svc   transactionService
	valid *validator.Validate
}

func NewTransaction(svc transactionService) *Transaction {
	return &Transaction{svc: svc, valid: validator.New()}
}

// PaymentStatus reconciles the latest payment with the gateway and returns it.
func (h *Transaction) PaymentStatus(w http.ResponseWriter, r *http.Request) *handlers.AppError {
	ctx := r.Context()
	code := chi.URLParam(r, "code")

	payment, err := h.svc.Reconcile(ctx, code)
	if err != nil {
		logging.Logger(ctx, "checkout").Error().Err(err).Str("code", code).Msg("failed to reconcile payment")

		return mapError(err)
	}

	return handlers.RenderContent(ctx, payment, w, http.StatusOK)
}

func (h *Transaction) Confirm(w http.ResponseWriter, r *http.Request) *handlers.AppError {
	ctx := r.Context()
	code := chi.URLParam(r, "code")

	raw, err := requestutils.ReadWithLimit(ctx, r.Body, reqBodyLimit1MB)
	if err != nil {
		return handlers.WrapError(err, "Failed to read request body", http.StatusBadRequest)
	}

	// The note is optional, so is the body.
	req := &model.ConfirmRequest{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, req); err != nil {
			return handlers.WrapError(err, "Failed to deserialize request", http.StatusBadRequest)
		}
	}

	if err := h.valid.StructCtx(ctx, req); err != nil {
		verrs, ok := collectValidationErrors(err)
		if !ok {
			return handlers.WrapError(err, "Failed to validate request", http.StatusBadRequest)
		}

		return handlers.ValidationError("request body", verrs)
	}

	payment, err := h.svc.Confirm(ctx, code, req.Note)
	if err != nil {
		logging.Logger(ctx, "checkout").Error().Err(err).Str("code", code).Msg("failed to confirm payment")

		return mapError(err)
	}

	return handlers.RenderContent(ctx, payment, w, http.StatusOK)
}

func (h *Transaction) Cancel(w http.ResponseWriter, r *http.Request) *handlers.AppError {
	ctx := r.Context()
	code := chi.URLParam(r, "code")

	tx, err := h.svc.Cancel(ctx, code)
	if err != nil {
		logging.Logger(ctx, "checkout").Warn().Err(err).Str("code", code).Msg("failed to cancel transaction")

		return mapError(err)
	}

	return handlers.RenderContent(ctx, tx, w, http.StatusOK)
}

// RetryPayment starts a new payment after the latest one failed.
func (h *Transaction) RetryPayment(w http.ResponseWriter, r *http.Request) *handlers.AppError {
	ctx := r.Context()
	code := chi.URLParam(r, "code")

	payment, err := h.svc.RetryPayment(ctx, code)
	if err != nil {
		logging.Logger(ctx, "checkout").Warn().Err(err).Str("code", code).Msg("failed to retry payment")

		return mapError(err)
	}

	return handlers.RenderContent(ctx, payment, w, http.StatusCreated)
}

// Webhook receives asynchronous payment notifications from the gateway.
type Webhook struct {
	svc       transactionService
	serverKey string
}

func NewWebhook(svc transactionService, serverKey string) *Webhook {
	return &Webhook{svc: svc, serverKey: serverKey}
}

// Payment verifies the notification and reconciles the transaction it names. The
// notification body is only trusted for routing; the status is fetched from the gateway.
func (h *Webhook) Payment(w http.ResponseWriter, r *http.Request) *handlers.AppError {
	ctx := r.Context()

	n := &gateway.Notification{}
	if err := requestutils.ReadJSON(ctx, r.Body, n); err != nil {
		return handlers.WrapError(err, "Error in request body", http.StatusBadRequest)
	}

	if !gateway.Verify(n, h.serverKey) {
		return &handlers.AppError{
			Cause:   model.ErrInvalidSignature,
			Message: "Invalid signature",
			Code:    http.StatusUnauthorized,
		}
	}

	lg := logging.Logger(ctx, "checkout").With().Str("func", "PaymentWebhook").Str("order_id", n.OrderID).Logger()

	payment, err := h.svc.Reconcile(ctx, gateway.BaseCode(n.OrderID))
	if err != nil {
		lg.Error().Err(err).Msg("failed to reconcile notification")

		return mapError(err)
	}

	lg.Info().Str("status", payment.Status).Msg("notification processed")

	return handlers.RenderContent(ctx, payment, w, http.StatusOK)
}

// Shipping serves the rate provider's reference data.
type Shipping struct {
	client shipping.Client
}

func NewShipping(client shipping.Client) *Shipping {
	return &Shipping{client: client}
}

func (h *Shipping) Provinces(w http.ResponseWriter, r *http.Request) *handlers.AppError {
	ctx := r.Context()

	result, err := h.client.Provinces(ctx, &shipping.ProvinceFilter{Search: r.URL.Query().Get("search")})
	if err != nil {
		return handlers.InternalError(err, "shipping_unavailable", "Shipping provider unavailable")
	}

	return handlers.RenderContent(ctx, result, w, http.StatusOK)
}

func (h *Shipping) Cities(w http.ResponseWriter, r *http.Request) *handlers.AppError {
	ctx := r.Context()

	q := r.URL.Query()
	result, err := h.client.Cities(ctx, &shipping.CityFilter{ProvinceID: q.Get("province_id"), Search: q.Get("search")})
	if err != nil {
		return handlers.InternalError(err, "shipping_unavailable", "Shipping provider unavailable")
	}

	return handlers.RenderContent(ctx, result, w, http.StatusOK)
}

func mapError(err error) *handlers.AppError {
	var (
		verr  *model.ValidationError
		nferr *model.NotFoundError
	)

	switch {
	case errors.As(err, &verr):
		return handlers.ValidationError("request", map[string]string{verr.Field: verr.Reason})

	case errors.As(err, &nferr):
		return handlers.WrapError(err, "Not found", http.StatusNotFound)

	case errors.Is(err, model.ErrVoucherNotApplicable), errors.Is(err, model.ErrGuestEmailTaken):
		return handlers.WrapError(err, "Invalid request", http.StatusBadRequest)

	case errors.Is(err, model.ErrTransactionAlreadyPaid),
		errors.Is(err, model.ErrTransactionCancelled),
		errors.Is(err, model.ErrPaymentNotRetryable):
		return handlers.WrapError(err, "Conflict", http.StatusConflict)

	case errors.Is(err, model.ErrQuoteUnavailable):
		return handlers.InternalError(err, "quote_unavailable", "Shipping quote unavailable")

	case errors.Is(err, model.ErrPaymentIntentFailure):
		return handlers.InternalError(err, "payment_intent_failed", "Payment could not be started")

	case errors.Is(err, model.ErrGatewayUnavailable):
		return handlers.InternalError(err, "gateway_unavailable", "Payment gateway unavailable")

	default:
		return handlers.InternalError(err, "internal", "Something went wrong")
	}
}

func collectValidationErrors(err error) (map[string]string, bool) {
	var verr validator.ValidationErrors
	if !errors.As(err, &verr) {
		return nil, false
	}

	result := make(map[string]string, len(verr))
	for i := range verr {
		result[verr[i].Field()] = verr[i].Error()
	}

	return result, true
}
