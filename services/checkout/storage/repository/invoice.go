package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	uuid "github.com/satori/go.uuid"

	"github.com/sellora/marketplace/services/checkout/model"
)

const invoiceColumns = `id, transaction_id, store_id, code, base_amount, shipping_cost, tax,
	voucher_id, voucher_amount, amount, due_date, paid_at, status, tracking_number, created_at, updated_at`

type Invoice struct{}

func NewInvoice() *Invoice { return &Invoice{} }

// Create inserts inv and returns the stored row.
func (r *Invoice) Create(ctx context.Context, dbi sqlx.QueryerContext, inv *model.Invoice) (*model.Invoice, error) {
	const q = `INSERT INTO invoices
		(transaction_id, store_id, code, base_amount, shipping_cost, tax, voucher_id, voucher_amount, amount, due_date, status)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	RETURNING ` + invoiceColumns

	result := &model.Invoice{}
	if err := dbi.QueryRowxContext(
		ctx,
		q,
		inv.TransactionID,
		inv.StoreID,
		inv.Code,
		inv.BaseAmount,
		inv.ShippingCost,
		inv.Tax,
		inv.VoucherID,
		inv.VoucherAmount,
		inv.Amount,
		inv.DueDate,
		inv.Status,
	).StructScan(result); err != nil {
		return nil, err
	}

	return result, nil
}

// ListByTransaction returns invoices of the transaction in creation order.
func (r *Invoice) ListByTransaction(ctx context.Context, dbi sqlx.QueryerContext, txID uuid.UUID) ([]*model.Invoice, error) {
	const q = `SELECT ` + invoiceColumns + ` FROM invoices WHERE transaction_id = $1 ORDER BY code`

	result := make([]*model.Invoice, 0)
	if err := sqlx.SelectContext(ctx, dbi, &result, q, txID); err != nil {
		return nil, err
	}

	return result, nil
}

// MarkPaid marks every invoice of the transaction paid.
func (r *Invoice) MarkPaid(ctx context.Context, dbi sqlx.ExecerContext, txID uuid.UUID, when time.Time) error {
	const q = `UPDATE invoices SET status = 'paid', paid_at = $2, updated_at = now() WHERE transaction_id = $1`

	return execMany(ctx, dbi, q, txID, when)
}

// CancelByTransaction marks every invoice of the transaction cancelled.
func (r *Invoice) CancelByTransaction(ctx context.Context, dbi sqlx.ExecerContext, txID uuid.UUID) error {
	const q = `UPDATE invoices SET status = 'cancelled', updated_at = now() WHERE transaction_id = $1`

	return execMany(ctx, dbi, q, txID)
}
