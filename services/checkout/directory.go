package checkout

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	uuid "github.com/satori/go.uuid"

	"github.com/sellora/marketplace/libs/middleware"
	"github.com/sellora/marketplace/services/checkout/model"
	"github.com/sellora/marketplace/services/checkout/storage/repository"
)

// CustomerDirectory resolves who is buying.
type CustomerDirectory interface {
	ResolveAuthenticated(ctx context.Context) (uuid.UUID, bool)
	Get(ctx context.Context, dbi sqlx.QueryerContext, id uuid.UUID) (*model.Customer, error)
	CreateGuest(ctx context.Context, dbi sqlx.QueryerContext, name, email, phone string) (*model.Customer, error)
}

// CatalogReader reads authoritative prices and moves stock.
type CatalogReader interface {
	GetVariant(ctx context.Context, dbi sqlx.QueryerContext, storeID, variantID uuid.UUID) (*model.Variant, error)
	DecrementStock(ctx context.Context, dbi sqlx.ExecerContext, variantID uuid.UUID, qty int) error
}

type StoreDirectory interface {
	Get(ctx context.Context, dbi sqlx.QueryerContext, id uuid.UUID) (*model.Store, error)
}

type MethodDirectory interface {
	GetPaymentMethod(ctx context.Context, dbi sqlx.QueryerContext, id uuid.UUID) (*model.Method, error)
	GetShippingMethod(ctx context.Context, dbi sqlx.QueryerContext, id uuid.UUID) (*model.Method, error)
}

// VoucherDirectory looks vouchers up by code. A nil storeID means a transaction-wide voucher.
type VoucherDirectory interface {
	GetByCode(ctx context.Context, dbi sqlx.QueryerContext, code string, storeID *uuid.UUID) (*model.Voucher, error)
}

type transactionStore interface {
	Create(ctx context.Context, dbi sqlx.QueryerContext, tx *model.Transaction) (*model.Transaction, error)
	GetByCode(ctx context.Context, dbi sqlx.QueryerContext, code string) (*model.Transaction, error)
	GetByCodeForUpdate(ctx context.Context, dbi sqlx.QueryerContext, code string) (*model.Transaction, error)
	SetTotals(ctx context.Context, dbi sqlx.ExecerContext, id uuid.UUID, shippingCost int64, voucherID *uuid.UUID, voucherAmount int64) error
	MarkPaid(ctx context.Context, dbi sqlx.ExecerContext, id uuid.UUID, when time.Time) error
	Cancel(ctx context.Context, dbi sqlx.QueryerContext, code string) (*model.Transaction, error)
}

type invoiceStore interface {
	Create(ctx context.Context, dbi sqlx.QueryerContext, inv *model.Invoice) (*model.Invoice, error)
	ListByTransaction(ctx context.Context, dbi sqlx.QueryerContext, txID uuid.UUID) ([]*model.Invoice, error)
	MarkPaid(ctx context.Context, dbi sqlx.ExecerContext, txID uuid.UUID, when time.Time) error
	CancelByTransaction(ctx context.Context, dbi sqlx.ExecerContext, txID uuid.UUID) error
}

type itemStore interface {
	Create(ctx context.Context, dbi sqlx.QueryerContext, item *model.TransactionItem) (*model.TransactionItem, error)
	ListByTransaction(ctx context.Context, dbi sqlx.QueryerContext, txID uuid.UUID) ([]*model.TransactionItem, error)
	MarkPaid(ctx context.Context, dbi sqlx.ExecerContext, txID uuid.UUID) error
}

type paymentStore interface {
	Create(ctx context.Context, dbi sqlx.QueryerContext, p *model.Payment) (*model.Payment, error)
	ListByTransaction(ctx context.Context, dbi sqlx.QueryerContext, txID uuid.UUID) ([]*model.Payment, error)
	SetPayload(ctx context.Context, dbi sqlx.ExecerContext, id uuid.UUID, payload types.JSONText) error
	MarkFailed(ctx context.Context, dbi sqlx.ExecerContext, id uuid.UUID) error
	MarkCompleted(ctx context.Context, dbi sqlx.ExecerContext, id uuid.UUID, note *string, when time.Time) error
}

type outboxStore interface {
	Insert(ctx context.Context, dbi sqlx.ExecerContext, ev *model.OutboxEvent) error
	FetchPending(ctx context.Context, dbi sqlx.QueryerContext, limit int) ([]*model.OutboxEvent, error)
	MarkPublished(ctx context.Context, dbi sqlx.ExecerContext, ids []uuid.UUID, when time.Time) error
}

type customerRepository interface {
	Get(ctx context.Context, dbi sqlx.QueryerContext, id uuid.UUID) (*model.Customer, error)
	CreateGuest(ctx context.Context, dbi sqlx.QueryerContext, name, email, phone string) (*model.Customer, error)
}

// customerDirectory takes the signed in customer from the request context and
// keeps guests in the customers table.
type customerDirectory struct {
	customerRepository
}

func newCustomerDirectory(repo customerRepository) *customerDirectory {
	return &customerDirectory{customerRepository: repo}
}

func (d *customerDirectory) ResolveAuthenticated(ctx context.Context) (uuid.UUID, bool) {
	return middleware.CustomerIDFromContext(ctx)
}

var _ CustomerDirectory = (*customerDirectory)(nil)

var (
	_ CatalogReader    = (*repository.Catalog)(nil)
	_ StoreDirectory   = (*repository.Store)(nil)
	_ MethodDirectory  = (*repository.Method)(nil)
	_ VoucherDirectory = (*repository.Voucher)(nil)
	_ transactionStore = (*repository.PromTransaction)(nil)
	_ invoiceStore     = (*repository.Invoice)(nil)
	_ itemStore        = (*repository.TransactionItem)(nil)
	_ paymentStore     = (*repository.PromPayment)(nil)
	_ outboxStore      = (*repository.Outbox)(nil)
)
