package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	uuid "github.com/satori/go.uuid"

	"github.com/sellora/marketplace/services/checkout/model"
)

const errCodeUniqueViolation = "23505"

type Store struct{}

func NewStore() *Store { return &Store{} }

// Get retrieves the store with the given id.
func (r *Store) Get(ctx context.Context, dbi sqlx.QueryerContext, id uuid.UUID) (*model.Store, error) {
	const q = `SELECT id, name, origin_id FROM stores WHERE id = $1`

	result := &model.Store{}
	if err := sqlx.GetContext(ctx, dbi, result, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrStoreNotFound
		}

		return nil, err
	}

	return result, nil
}

type Method struct{}

func NewMethod() *Method { return &Method{} }

// GetPaymentMethod retrieves an enabled payment method.
func (r *Method) GetPaymentMethod(ctx context.Context, dbi sqlx.QueryerContext, id uuid.UUID) (*model.Method, error) {
	const q = `SELECT id, name, slug FROM payment_methods WHERE id = $1 AND enabled`

	return r.get(ctx, dbi, q, id, model.ErrPaymentMethodNotFound)
}

// GetShippingMethod retrieves an enabled shipping method.
func (r *Method) GetShippingMethod(ctx context.Context, dbi sqlx.QueryerContext, id uuid.UUID) (*model.Method, error) {
	const q = `SELECT id, name, slug FROM shipping_methods WHERE id = $1 AND enabled`

	return r.get(ctx, dbi, q, id, model.ErrShippingMethodNotFound)
}

func (r *Method) get(ctx context.Context, dbi sqlx.QueryerContext, q string, id uuid.UUID, errNotFound error) (*model.Method, error) {
	result := &model.Method{}
	if err := sqlx.GetContext(ctx, dbi, result, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errNotFound
		}

		return nil, err
	}

	return result, nil
}

type Voucher struct{}

func NewVoucher() *Voucher { return &Voucher{} }

// GetByCode retrieves the voucher with code scoped to storeID, or a global voucher when storeID is nil.
func (r *Voucher) GetByCode(ctx context.Context, dbi sqlx.QueryerContext, code string, storeID *uuid.UUID) (*model.Voucher, error) {
	const q = `SELECT
		id, store_id, code, name, type, amount, min_amount, max_amount,
		start_date, end_date, disabled_at, usage_limit
	FROM vouchers
	WHERE code = $1 AND store_id IS NOT DISTINCT FROM $2`

	result := &model.Voucher{}
	if err := sqlx.GetContext(ctx, dbi, result, q, code, storeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrVoucherNotFound
		}

		return nil, err
	}

	return result, nil
}

type Customer struct{}

func NewCustomer() *Customer { return &Customer{} }

// Get retrieves the customer with the given id.
func (r *Customer) Get(ctx context.Context, dbi sqlx.QueryerContext, id uuid.UUID) (*model.Customer, error) {
	const q = `SELECT id, name, email, phone FROM customers WHERE id = $1`

	result := &model.Customer{}
	if err := sqlx.GetContext(ctx, dbi, result, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrCustomerNotFound
		}

		return nil, err
	}

	return result, nil
}

// CreateGuest creates a customer without an account.
func (r *Customer) CreateGuest(ctx context.Context, dbi sqlx.QueryerContext, name, email, phone string) (*model.Customer, error) {
	const q = `INSERT INTO customers (name, email, phone, is_guest)
	VALUES ($1, $2, NULLIF($3, ''), true)
	RETURNING id, name, email, phone`

	result := &model.Customer{}
	if err := dbi.QueryRowxContext(ctx, q, name, email, phone).StructScan(result); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == errCodeUniqueViolation {
			return nil, model.ErrGuestEmailTaken
		}

		return nil, err
	}

	return result, nil
}
