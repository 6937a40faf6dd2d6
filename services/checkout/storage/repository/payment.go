package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	uuid "github.com/satori/go.uuid"

	"github.com/sellora/marketplace/services/checkout/model"
)

const paymentColumns = `id, transaction_id, payment_method_id, amount, status, token, redirect_url,
	payload, note, settled_at, created_at, updated_at`

type Payment struct{}

func NewPayment() *Payment { return &Payment{} }

// Create inserts p and returns the stored row.
func (r *Payment) Create(ctx context.Context, dbi sqlx.QueryerContext, p *model.Payment) (*model.Payment, error) {
	const q = `INSERT INTO payments
		(transaction_id, payment_method_id, amount, status, token, redirect_url, note)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING ` + paymentColumns

	result := &model.Payment{}
	if err := dbi.QueryRowxContext(
		ctx,
		q,
		p.TransactionID,
		p.PaymentMethodID,
		p.Amount,
		p.Status,
		p.Token,
		p.RedirectURL,
		p.Note,
	).StructScan(result); err != nil {
		return nil, err
	}

	return result, nil
}

// ListByTransaction returns the payments of the transaction, newest first.
func (r *Payment) ListByTransaction(ctx context.Context, dbi sqlx.QueryerContext, txID uuid.UUID) ([]*model.Payment, error) {
	const q = `SELECT ` + paymentColumns + ` FROM payments WHERE transaction_id = $1 ORDER BY created_at DESC, id`

	result := make([]*model.Payment, 0)
	if err := sqlx.SelectContext(ctx, dbi, &result, q, txID); err != nil {
		return nil, err
	}

	return result, nil
}

// SetPayload stores the raw gateway status payload.
func (r *Payment) SetPayload(ctx context.Context, dbi sqlx.ExecerContext, id uuid.UUID, payload types.JSONText) error {
	const q = `UPDATE payments SET payload = $2, updated_at = now() WHERE id = $1`

	return execUpdate(ctx, dbi, q, id, payload)
}

// MarkFailed fails a pending payment.
// It returns model.ErrNoRowsChanged when the payment was not pending.
func (r *Payment) MarkFailed(ctx context.Context, dbi sqlx.ExecerContext, id uuid.UUID) error {
	const q = `UPDATE payments SET status = 'failed', updated_at = now() WHERE id = $1 AND status = 'pending'`

	return execUpdate(ctx, dbi, q, id)
}

// MarkCompleted completes a pending payment.
// It returns model.ErrNoRowsChanged when the payment was not pending.
func (r *Payment) MarkCompleted(ctx context.Context, dbi sqlx.ExecerContext, id uuid.UUID, note *string, when time.Time) error {
	const q = `UPDATE payments
	SET status = 'completed', settled_at = $2, note = COALESCE($3, note), updated_at = now()
	WHERE id = $1 AND status = 'pending'`

	return execUpdate(ctx, dbi, q, id, when, note)
}
