package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	uuid "github.com/satori/go.uuid"

	"github.com/sellora/marketplace/services/checkout/model"
)

type MockTransaction struct {
	FnCreate             func(ctx context.Context, dbi sqlx.QueryerContext, tx *model.Transaction) (*model.Transaction, error)
	FnGetByCode          func(ctx context.Context, dbi sqlx.QueryerContext, code string) (*model.Transaction, error)
	FnGetByCodeForUpdate func(ctx context.Context, dbi sqlx.QueryerContext, code string) (*model.Transaction, error)
	FnSetTotals          func(ctx context.Context, dbi sqlx.ExecerContext, id uuid.UUID, shippingCost int64, voucherID *uuid.UUID, voucherAmount int64) error
	FnMarkPaid           func(ctx context.Context, dbi sqlx.ExecerContext, id uuid.UUID, when time.Time) error
	FnCancel             func(ctx context.Context, dbi sqlx.QueryerContext, code string) (*model.Transaction, error)
}

func (r *MockTransaction) Create(ctx context.Context, dbi sqlx.QueryerContext, tx *model.Transaction) (*model.Transaction, error) {
	if r.FnCreate == nil {
		result := *tx
		result.ID = uuid.NewV4()
		result.CreatedAt = time.Now().UTC()

		return &result, nil
	}

	return r.FnCreate(ctx, dbi, tx)
}

func (r *MockTransaction) GetByCode(ctx context.Context, dbi sqlx.QueryerContext, code string) (*model.Transaction, error) {
	if r.FnGetByCode == nil {
		return &model.Transaction{ID: uuid.NewV4(), Code: code, Status: model.TransactionStatusPending}, nil
	}

	return r.FnGetByCode(ctx, dbi, code)
}

func (r *MockTransaction) GetByCodeForUpdate(ctx context.Context, dbi sqlx.QueryerContext, code string) (*model.Transaction, error) {
	if r.FnGetByCodeForUpdate == nil {
		return r.GetByCode(ctx, dbi, code)
	}

	return r.FnGetByCodeForUpdate(ctx, dbi, code)
}

func (r *MockTransaction) SetTotals(ctx context.Context, dbi sqlx.ExecerContext, id uuid.UUID, shippingCost int64, voucherID *uuid.UUID, voucherAmount int64) error {
	if r.FnSetTotals == nil {
		return nil
	}

	return r.FnSetTotals(ctx, dbi, id, shippingCost, voucherID, voucherAmount)
}

func (r *MockTransaction) MarkPaid(ctx context.Context, dbi sqlx.ExecerContext, id uuid.UUID, when time.Time) error {
	if r.FnMarkPaid == nil {
		return nil
	}

	return r.FnMarkPaid(ctx, dbi, id, when)
}

func (r *MockTransaction) Cancel(ctx context.Context, dbi sqlx.QueryerContext, code string) (*model.Transaction, error) {
	if r.FnCancel == nil {
		return &model.Transaction{ID: uuid.NewV4(), Code: code, Status: model.TransactionStatusCancelled}, nil
	}

	return r.FnCancel(ctx, dbi, code)
}

type MockInvoice struct {
	FnCreate              func(ctx context.Context, dbi sqlx.QueryerContext, inv *model.Invoice) (*model.Invoice, error)
	FnListByTransaction   func(ctx context.Context, dbi sqlx.QueryerContext, txID uuid.UUID) ([]*model.Invoice, error)
	FnMarkPaid            func(ctx context.Context, dbi sqlx.ExecerContext, txID uuid.UUID, when time.Time) error
	FnCancelByTransaction func(ctx context.Context, dbi sqlx.ExecerContext, txID uuid.UUID) error
}

func (r *MockInvoice) Create(ctx context.Context, dbi sqlx.QueryerContext, inv *model.Invoice) (*model.Invoice, error) {
	if r.FnCreate == nil {
		result := *inv
		result.ID = uuid.NewV4()

		return &result, nil
	}

	return r.FnCreate(ctx, dbi, inv)
}

func (r *MockInvoice) ListByTransaction(ctx context.Context, dbi sqlx.QueryerContext, txID uuid.UUID) ([]*model.Invoice, error) {
	if r.FnListByTransaction == nil {
		return []*model.Invoice{}, nil
	}

	return r.FnListByTransaction(ctx, dbi, txID)
}

func (r *MockInvoice) MarkPaid(ctx context.Context, dbi sqlx.ExecerContext, txID uuid.UUID, when time.Time) error {
	if r.FnMarkPaid == nil {
		return nil
	}

	return r.FnMarkPaid(ctx, dbi, txID, when)
}

func (r *MockInvoice) CancelByTransaction(ctx context.Context, dbi sqlx.ExecerContext, txID uuid.UUID) error {
	if r.FnCancelByTransaction == nil {
		return nil
	}

	return r.FnCancelByTransaction(ctx, dbi, txID)
}

type MockTransactionItem struct {
	FnCreate            func(ctx context.Context, dbi sqlx.QueryerContext, item *model.TransactionItem) (*model.TransactionItem, error)
	FnListByTransaction func(ctx context.Context, dbi sqlx.QueryerContext, txID uuid.UUID) ([]*model.TransactionItem, error)
	FnMarkPaid          func(ctx context.Context, dbi sqlx.ExecerContext, txID uuid.UUID) error
}

func (r *MockTransactionItem) Create(ctx context.Context, dbi sqlx.QueryerContext, item *model.TransactionItem) (*model.TransactionItem, error) {
	if r.FnCreate == nil {
		result := *item
		result.ID = uuid.NewV4()

		return &result, nil
	}

	return r.FnCreate(ctx, dbi, item)
}

func (r *MockTransactionItem) ListByTransaction(ctx context.Context, dbi sqlx.QueryerContext, txID uuid.UUID) ([]*model.TransactionItem, error) {
	if r.FnListByTransaction == nil {
		return []*model.TransactionItem{}, nil
	}

	return r.FnListByTransaction(ctx, dbi, txID)
}

func (r *MockTransactionItem) MarkPaid(ctx context.Context, dbi sqlx.ExecerContext, txID uuid.UUID) error {
	if r.FnMarkPaid == nil {
		return nil
	}

	return r.FnMarkPaid(ctx, dbi, txID)
}

type MockPayment struct {
	FnCreate            func(ctx context.Context, dbi sqlx.QueryerContext, p *model.Payment) (*model.Payment, error)
	FnListByTransaction func(ctx context.Context, dbi sqlx.QueryerContext, txID uuid.UUID) ([]*model.Payment, error)
	FnSetPayload        func(ctx context.Context, dbi sqlx.ExecerContext, id uuid.UUID, payload types.JSONText) error
	FnMarkFailed        func(ctx context.Context, dbi sqlx.ExecerContext, id uuid.UUID) error
	FnMarkCompleted     func(ctx context.Context, dbi sqlx.ExecerContext, id uuid.UUID, note *string, when time.Time) error
}

func (r *MockPayment) Create(ctx context.Context, dbi sqlx.QueryerContext, p *model.Payment) (*model.Payment, error) {
	if r.FnCreate == nil {
		result := *p
		result.ID = uuid.NewV4()

		return &result, nil
	}

	return r.FnCreate(ctx, dbi, p)
}

func (r *MockPayment) ListByTransaction(ctx context.Context, dbi sqlx.QueryerContext, txID uuid.UUID) ([]*model.Payment, error) {
	if r.FnListByTransaction == nil {
		return []*model.Payment{{ID: uuid.NewV4(), TransactionID: txID, Status: model.PaymentStatusPending}}, nil
	}

	return r.FnListByTransaction(ctx, dbi, txID)
}

func (r *MockPayment) SetPayload(ctx context.Context, dbi sqlx.ExecerContext, id uuid.UUID, payload types.JSONText) error {
	if r.FnSetPayload == nil {
		return nil
	}

	return r.FnSetPayload(ctx, dbi, id, payload)
}

func (r *MockPayment) MarkFailed(ctx context.Context, dbi sqlx.ExecerContext, id uuid.UUID) error {
	if r.FnMarkFailed == nil {
		return nil
	}

	return r.FnMarkFailed(ctx, dbi, id)
}

func (r *MockPayment) MarkCompleted(ctx context.Context, dbi sqlx.ExecerContext, id uuid.UUID, note *string, when time.Time) error {
	if r.FnMarkCompleted == nil {
		return nil
	}

	return r.FnMarkCompleted(ctx, dbi, id, note, when)
}

type MockCatalog struct {
	FnGetVariant     func(ctx context.Context, dbi sqlx.QueryerContext, storeID, variantID uuid.UUID) (*model.Variant, error)
	FnDecrementStock func(ctx context.Context, dbi sqlx.ExecerContext, variantID uuid.UUID, qty int) error
}

func (r *MockCatalog) GetVariant(ctx context.Context, dbi sqlx.QueryerContext, storeID, variantID uuid.UUID) (*model.Variant, error) {
	if r.FnGetVariant == nil {
		return &model.Variant{ID: variantID, StoreID: storeID, BasePrice: 10000, FinalPrice: 10000, Stock: 10}, nil
	}

	return r.FnGetVariant(ctx, dbi, storeID, variantID)
}

func (r *MockCatalog) DecrementStock(ctx context.Context, dbi sqlx.ExecerContext, variantID uuid.UUID, qty int) error {
	if r.FnDecrementStock == nil {
		return nil
	}

	return r.FnDecrementStock(ctx, dbi, variantID, qty)
}

type MockStore struct {
	FnGet func(ctx context.Context, dbi sqlx.QueryerContext, id uuid.UUID) (*model.Store, error)
}

func (r *MockStore) Get(ctx context.Context, dbi sqlx.QueryerContext, id uuid.UUID) (*model.Store, error) {
	if r.FnGet == nil {
		return &model.Store{ID: id, Name: "store", OriginID: "origin"}, nil
	}

	return r.FnGet(ctx, dbi, id)
}

type MockMethod struct {
	FnGetPaymentMethod  func(ctx context.Context, dbi sqlx.QueryerContext, id uuid.UUID) (*model.Method, error)
	FnGetShippingMethod func(ctx context.Context, dbi sqlx.QueryerContext, id uuid.UUID) (*model.Method, error)
}

func (r *MockMethod) GetPaymentMethod(ctx context.Context, dbi sqlx.QueryerContext, id uuid.UUID) (*model.Method, error) {
	if r.FnGetPaymentMethod == nil {
		return &model.Method{ID: id, Name: "Bank Transfer", Slug: model.PaymentMethodTransfer}, nil
	}

	return r.FnGetPaymentMethod(ctx, dbi, id)
}

func (r *MockMethod) GetShippingMethod(ctx context.Context, dbi sqlx.QueryerContext, id uuid.UUID) (*model.Method, error) {
	if r.FnGetShippingMethod == nil {
		return &model.Method{ID: id, Name: "Pickup", Slug: "pickup"}, nil
	}

	return r.FnGetShippingMethod(ctx, dbi, id)
}

type MockVoucher struct {
	FnGetByCode func(ctx context.Context, dbi sqlx.QueryerContext, code string, storeID *uuid.UUID) (*model.Voucher, error)
}

func (r *MockVoucher) GetByCode(ctx context.Context, dbi sqlx.QueryerContext, code string, storeID *uuid.UUID) (*model.Voucher, error) {
	if r.FnGetByCode == nil {
		return nil, model.ErrVoucherNotFound
	}

	return r.FnGetByCode(ctx, dbi, code, storeID)
}

type MockCustomer struct {
	FnGet         func(ctx context.Context, dbi sqlx.QueryerContext, id uuid.UUID) (*model.Customer, error)
	FnCreateGuest func(ctx context.Context, dbi sqlx.QueryerContext, name, email, phone string) (*model.Customer, error)
}

func (r *MockCustomer) Get(ctx context.Context, dbi sqlx.QueryerContext, id uuid.UUID) (*model.Customer, error) {
	if r.FnGet == nil {
		return &model.Customer{ID: id, Name: "customer", Email: "customer@example.com"}, nil
	}

	return r.FnGet(ctx, dbi, id)
}

func (r *MockCustomer) CreateGuest(ctx context.Context, dbi sqlx.QueryerContext, name, email, phone string) (*model.Customer, error) {
	if r.FnCreateGuest == nil {
		return &model.Customer{ID: uuid.NewV4(), Name: name, Email: email}, nil
	}

	return r.FnCreateGuest(ctx, dbi, name, email, phone)
}

type MockOutbox struct {
	FnInsert        func(ctx context.Context, dbi sqlx.ExecerContext, ev *model.OutboxEvent) error
	FnFetchPending  func(ctx context.Context, dbi sqlx.QueryerContext, limit int) ([]*model.OutboxEvent, error)
	FnMarkPublished func(ctx context.Context, dbi sqlx.ExecerContext, ids []uuid.UUID, when time.Time) error
}

func (r *MockOutbox) Insert(ctx context.Context, dbi sqlx.ExecerContext, ev *model.OutboxEvent) error {
	if r.FnInsert == nil {
		return nil
	}

	return r.FnInsert(ctx, dbi, ev)
}

func (r *MockOutbox) FetchPending(ctx context.Context, dbi sqlx.QueryerContext, limit int) ([]*model.OutboxEvent, error) {
	if r.FnFetchPending == nil {
		return []*model.OutboxEvent{}, nil
	}

	return r.FnFetchPending(ctx, dbi, limit)
}

func (r *MockOutbox) MarkPublished(ctx context.Context, dbi sqlx.ExecerContext, ids []uuid.UUID, when time.Time) error {
	if r.FnMarkPublished == nil {
		return nil
	}

	return r.FnMarkPublished(ctx, dbi, ids, when)
}
