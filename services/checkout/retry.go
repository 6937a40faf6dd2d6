package checkout

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sellora/marketplace/libs/clients/gateway"
	"github.com/sellora/marketplace/libs/datastore"
	"github.com/sellora/marketplace/libs/logging"
	"github.com/sellora/marketplace/libs/ptr"
	"github.com/sellora/marketplace/services/checkout/model"
)

// RetryPayment opens a new pending payment for a transaction whose latest payment failed.
// The new payment asks the gateway for the same amount under the next order code, so
// Reconcile follows it from then on.
func (s *Service) RetryPayment(ctx context.Context, code string) (*model.Payment, error) {
	logger := logging.Logger(ctx, "checkout").With().Str("func", "RetryPayment").Str("code", code).Logger()

	var result *model.Payment
	err := datastore.WithTx(ctx, s.Datastore, func(dbtx *sqlx.Tx) error {
		tx, err := s.txns.GetByCodeForUpdate(ctx, dbtx, code)
		if err != nil {
			return lookupErr(err)
		}

		switch {
		case tx.IsPaid():
			return model.ErrTransactionAlreadyPaid
		case tx.IsCancelled():
			return model.ErrTransactionCancelled
		}

		payments, err := s.payments.ListByTransaction(ctx, dbtx, tx.ID)
		if err != nil {
			return persistErr(err)
		}

		if len(payments) == 0 {
			return model.ErrPaymentNotFound
		}

		latest := payments[0]
		if latest.Status != model.PaymentStatusFailed {
			return model.ErrPaymentNotRetryable
		}

		pm, err := s.methods.GetPaymentMethod(ctx, dbtx, latest.PaymentMethodID)
		if err != nil {
			return lookupErr(err)
		}

		payment := &model.Payment{
			TransactionID:   tx.ID,
			PaymentMethodID: pm.ID,
			Amount:          latest.Amount,
			Status:          model.PaymentStatusPending,
		}

		if pm.Slug == model.PaymentMethodTransfer {
			customer, err := s.customers.Get(ctx, dbtx, tx.CustomerID)
			if err != nil {
				return lookupErr(err)
			}

			intent, err := s.gateway.CreateIntent(ctx, &gateway.IntentRequest{
				OrderCode:   gateway.OrderCode(tx.Code, len(payments)+1),
				GrossAmount: latest.Amount,
				Items: []gateway.LineItem{{
					ID:       tx.Code,
					Name:     "Transaction " + tx.Code,
					Price:    latest.Amount,
					Quantity: 1,
				}},
				Customer: gateway.Customer{
					Name:  customer.Name,
					Email: customer.Email,
					Phone: ptr.StringOr(customer.Phone, ""),
				},
			})
			if err != nil {
				return fmt.Errorf("%w: %w", model.ErrPaymentIntentFailure, err)
			}

			payment.Token = &intent.Token
			if intent.RedirectURL != "" {
				payment.RedirectURL = &intent.RedirectURL
			}
		}

		if result, err = s.payments.Create(ctx, dbtx, payment); err != nil {
			return persistErr(err)
		}

		return nil
	})
	if err != nil {
		return nil, txErr(err)
	}

	logger.Info().Str("payment_id", result.ID.String()).Msg("payment retried")

	return result, nil
}
