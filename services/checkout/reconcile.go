package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/sellora/marketplace/libs/clients/gateway"
	"github.com/sellora/marketplace/libs/datastore"
	"github.com/sellora/marketplace/libs/logging"
	"github.com/sellora/marketplace/libs/ptr"
	"github.com/sellora/marketplace/services/checkout/model"
)

// Reconcile asks the gateway for the status of the latest payment of the transaction
// identified by code and applies it. Settled payments are returned without a gateway call.
func (s *Service) Reconcile(ctx context.Context, code string) (*model.Payment, error) {
	logger := logging.Logger(ctx, "checkout").With().Str("func", "Reconcile").Str("code", code).Logger()

	tx, payments, err := s.loadPayments(ctx, code)
	if err != nil {
		return nil, err
	}

	latest := payments[0]
	if latest.IsCompleted() || tx.IsPaid() {
		return latest, nil
	}

	if latest.Status == model.PaymentStatusFailed {
		return latest, nil
	}

	status, err := s.gateway.GetStatus(ctx, gateway.OrderCode(tx.Code, len(payments)))
	if err != nil {
		logger.Warn().Err(err).Msg("failed to fetch payment status")
		return nil, fmt.Errorf("%w: %w", model.ErrGatewayUnavailable, err)
	}

	next := model.PaymentStatusFromGateway(status.TransactionStatus)
	logger.Debug().Str("gateway_status", status.TransactionStatus).Str("status", next).Msg("payment status fetched")

	err = datastore.WithTx(ctx, s.Datastore, func(dbtx *sqlx.Tx) error {
		if err := s.payments.SetPayload(ctx, dbtx, latest.ID, types.JSONText(status.Raw)); err != nil {
			return persistErr(err)
		}

		switch next {
		case model.PaymentStatusFailed:
			if err := s.payments.MarkFailed(ctx, dbtx, latest.ID); err != nil {
				if errors.Is(err, model.ErrNoRowsChanged) {
					return nil
				}

				return persistErr(err)
			}

			latest.Status = model.PaymentStatusFailed

		case model.PaymentStatusCompleted:
			return s.settle(ctx, dbtx, tx, latest, nil)
		}

		return nil
	})

	switch {
	case errors.Is(err, errPaymentNotPending):
		logger.Info().Msg("payment left pending concurrently")
		return s.latestPayment(ctx, tx)
	case err != nil:
		return nil, txErr(err)
	}

	return latest, nil
}

// Confirm settles the latest payment of the transaction without asking the gateway.
// It is used by operators for payments confirmed out of band. A failed payment is
// returned unchanged; the customer retries it with a new payment instead.
func (s *Service) Confirm(ctx context.Context, code, note string) (*model.Payment, error) {
	logger := logging.Logger(ctx, "checkout").With().Str("func", "Confirm").Str("code", code).Logger()

	tx, payments, err := s.loadPayments(ctx, code)
	if err != nil {
		return nil, err
	}

	latest := payments[0]
	if latest.IsCompleted() || tx.IsPaid() || latest.Status == model.PaymentStatusFailed {
		return latest, nil
	}

	var notePtr *string
	if note != "" {
		notePtr = ptr.To(note)
	}

	err = datastore.WithTx(ctx, s.Datastore, func(dbtx *sqlx.Tx) error {
		return s.settle(ctx, dbtx, tx, latest, notePtr)
	})

	switch {
	case errors.Is(err, errPaymentNotPending):
		return s.latestPayment(ctx, tx)
	case err != nil:
		return nil, txErr(err)
	}

	logger.Info().Msg("payment confirmed by operator")

	return latest, nil
}

// settle completes p and marks the transaction, its invoices and items paid. Stock moves
// only when both guarded updates changed a row, so only a pending payment is settled and
// a transaction is settled at most once.
func (s *Service) settle(ctx context.Context, dbtx *sqlx.Tx, tx *model.Transaction, p *model.Payment, note *string) error {
	now := s.now()

	if err := s.payments.MarkCompleted(ctx, dbtx, p.ID, note, now); err != nil {
		if errors.Is(err, model.ErrNoRowsChanged) {
			return errPaymentNotPending
		}

		return persistErr(err)
	}

	if err := s.txns.MarkPaid(ctx, dbtx, tx.ID, now); err != nil {
		if errors.Is(err, model.ErrNoRowsChanged) {
			return errPaymentNotPending
		}

		return persistErr(err)
	}

	if err := s.invoices.MarkPaid(ctx, dbtx, tx.ID, now); err != nil {
		return persistErr(err)
	}

	if err := s.items.MarkPaid(ctx, dbtx, tx.ID); err != nil {
		return persistErr(err)
	}

	items, err := s.items.ListByTransaction(ctx, dbtx, tx.ID)
	if err != nil {
		return persistErr(err)
	}

	for _, item := range items {
		if err := s.catalog.DecrementStock(ctx, dbtx, item.VariantID, item.Quantity); err != nil {
			return lookupErr(err)
		}
	}

	ev, err := model.NewSettledEvent(tx, p, now)
	if err != nil {
		return err
	}

	if err := s.outbox.Insert(ctx, dbtx, ev); err != nil {
		return persistErr(err)
	}

	p.Status = model.PaymentStatusCompleted
	p.SettledAt = &now
	if note != nil {
		p.Note = note
	}

	tx.Status = model.TransactionStatusPaid
	tx.PaidAt = &now

	return nil
}

func (s *Service) loadPayments(ctx context.Context, code string) (*model.Transaction, []*model.Payment, error) {
	tx, err := s.txns.GetByCode(ctx, s.Datastore, code)
	if err != nil {
		return nil, nil, lookupErr(err)
	}

	payments, err := s.payments.ListByTransaction(ctx, s.Datastore, tx.ID)
	if err != nil {
		return nil, nil, persistErr(err)
	}

	if len(payments) == 0 {
		return nil, nil, model.ErrPaymentNotFound
	}

	return tx, payments, nil
}

func (s *Service) latestPayment(ctx context.Context, tx *model.Transaction) (*model.Payment, error) {
	payments, err := s.payments.ListByTransaction(ctx, s.Datastore, tx.ID)
	if err != nil {
		return nil, persistErr(err)
	}

	if len(payments) == 0 {
		return nil, model.ErrPaymentNotFound
	}

	return payments[0], nil
}
