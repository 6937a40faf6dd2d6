// Package repository provides access to data available in SQL-based data store.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	uuid "github.com/satori/go.uuid"

	"github.com/sellora/marketplace/services/checkout/model"
)

const transactionColumns = `id, code, customer_id, payment_method_id, shipping_method_id,
	destination_id, destination_label, province, city, district, subdistrict, zip_code, address,
	shipping_cost, voucher_id, voucher_amount, status, note, paid_at, created_at, updated_at`

type Transaction struct{}

func NewTransaction() *Transaction { return &Transaction{} }

// Create inserts tx and returns the stored row.
func (r *Transaction) Create(ctx context.Context, dbi sqlx.QueryerContext, tx *model.Transaction) (*model.Transaction, error) {
	const q = `INSERT INTO transactions
		(code, customer_id, payment_method_id, shipping_method_id,
		destination_id, destination_label, province, city, district, subdistrict, zip_code, address,
		shipping_cost, voucher_id, voucher_amount, status, note)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	RETURNING ` + transactionColumns

	result := &model.Transaction{}
	if err := dbi.QueryRowxContext(
		ctx,
		q,
		tx.Code,
		tx.CustomerID,
		tx.PaymentMethodID,
		tx.ShippingMethodID,
		tx.DestinationID,
		tx.DestinationLabel,
		tx.Province,
		tx.City,
		tx.District,
		tx.Subdistrict,
		tx.ZipCode,
		tx.Address,
		tx.ShippingCost,
		tx.VoucherID,
		tx.VoucherAmount,
		tx.Status,
		tx.Note,
	).StructScan(result); err != nil {
		return nil, err
	}

	return result, nil
}

// GetByCode retrieves the transaction with the given code.
func (r *Transaction) GetByCode(ctx context.Context, dbi sqlx.QueryerContext, code string) (*model.Transaction, error) {
	const q = `SELECT ` + transactionColumns + ` FROM transactions WHERE code = $1`

	result := &model.Transaction{}
	if err := sqlx.GetContext(ctx, dbi, result, q, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrTransactionNotFound
		}

		return nil, err
	}

	return result, nil
}

// GetByCodeForUpdate reads the transaction and locks its row until dbi commits.
func (r *Transaction) GetByCodeForUpdate(ctx context.Context, dbi sqlx.QueryerContext, code string) (*model.Transaction, error) {
	const q = `SELECT ` + transactionColumns + ` FROM transactions WHERE code = $1 FOR UPDATE`

	result := &model.Transaction{}
	if err := sqlx.GetContext(ctx, dbi, result, q, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrTransactionNotFound
		}

		return nil, err
	}

	return result, nil
}

// SetTotals records the accumulated shipping cost and the transaction voucher.
func (r *Transaction) SetTotals(ctx context.Context, dbi sqlx.ExecerContext, id uuid.UUID, shippingCost int64, voucherID *uuid.UUID, voucherAmount int64) error {
	const q = `UPDATE transactions
	SET shipping_cost = $2, voucher_id = $3, voucher_amount = $4, updated_at = now()
	WHERE id = $1`

	return execUpdate(ctx, dbi, q, id, shippingCost, voucherID, voucherAmount)
}

// MarkPaid moves the transaction to paid unless it already is.
// It returns model.ErrNoRowsChanged when the transaction was already paid.
func (r *Transaction) MarkPaid(ctx context.Context, dbi sqlx.ExecerContext, id uuid.UUID, when time.Time) error {
	const q = `UPDATE transactions
	SET status = 'paid', paid_at = $2, updated_at = now()
	WHERE id = $1 AND status != 'paid'`

	return execUpdate(ctx, dbi, q, id, when)
}

// Cancel moves the transaction to cancelled unless it is paid.
// It returns model.ErrNoRowsChanged when nothing matched.
func (r *Transaction) Cancel(ctx context.Context, dbi sqlx.QueryerContext, code string) (*model.Transaction, error) {
	const q = `UPDATE transactions
	SET status = 'cancelled', updated_at = now()
	WHERE code = $1 AND status != 'paid'
	RETURNING ` + transactionColumns

	result := &model.Transaction{}
	if err := dbi.QueryRowxContext(ctx, q, code).StructScan(result); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrNoRowsChanged
		}

		return nil, err
	}

	return result, nil
}

func execUpdate(ctx context.Context, dbi sqlx.ExecerContext, q string, args ...interface{}) error {
	result, err := dbi.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}

	numAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if numAffected == 0 {
		return model.ErrNoRowsChanged
	}

	return nil
}

func execMany(ctx context.Context, dbi sqlx.ExecerContext, q string, args ...interface{}) error {
	_, err := dbi.ExecContext(ctx, q, args...)
	return err
}
