package repository

import (
	"context"

	"github.com/jmoiron/sqlx"
	uuid "github.com/satori/go.uuid"

	"github.com/sellora/marketplace/services/checkout/model"
)

const itemColumns = `id, transaction_id, store_id, variant_id, quantity, base_price, discount_type,
	discount_amount, final_price, subtotal, fulfillment_status, rating, review, created_at`

type TransactionItem struct{}

func NewTransactionItem() *TransactionItem { return &TransactionItem{} }

// Create inserts item and returns the stored row.
func (r *TransactionItem) Create(ctx context.Context, dbi sqlx.QueryerContext, item *model.TransactionItem) (*model.TransactionItem, error) {
	const q = `INSERT INTO transaction_items
		(transaction_id, store_id, variant_id, quantity, base_price, discount_type, discount_amount, final_price, subtotal, fulfillment_status)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	RETURNING ` + itemColumns

	result := &model.TransactionItem{}
	if err := dbi.QueryRowxContext(
		ctx,
		q,
		item.TransactionID,
		item.StoreID,
		item.VariantID,
		item.Quantity,
		item.BasePrice,
		item.DiscountType,
		item.DiscountAmount,
		item.FinalPrice,
		item.Subtotal,
		item.Status,
	).StructScan(result); err != nil {
		return nil, err
	}

	return result, nil
}

// ListByTransaction returns the items of the transaction.
func (r *TransactionItem) ListByTransaction(ctx context.Context, dbi sqlx.QueryerContext, txID uuid.UUID) ([]*model.TransactionItem, error) {
	const q = `SELECT ` + itemColumns + ` FROM transaction_items WHERE transaction_id = $1 ORDER BY created_at, id`

	result := make([]*model.TransactionItem, 0)
	if err := sqlx.SelectContext(ctx, dbi, &result, q, txID); err != nil {
		return nil, err
	}

	return result, nil
}

// MarkPaid sets the fulfillment status of every item of the transaction to paid.
func (r *TransactionItem) MarkPaid(ctx context.Context, dbi sqlx.ExecerContext, txID uuid.UUID) error {
	const q = `UPDATE transaction_items SET fulfillment_status = 'paid' WHERE transaction_id = $1`

	return execMany(ctx, dbi, q, txID)
}
