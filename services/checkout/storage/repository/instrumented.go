package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	uuid "github.com/satori/go.uuid"

	"github.com/sellora/marketplace/services/checkout/model"
)

var repoDuration = promauto.NewSummaryVec(prometheus.SummaryOpts{
	Name:       "checkout_repository_duration_seconds",
	Help:       "checkout repository runtime duration and result",
	MaxAge:     time.Minute,
	Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
}, []string{"instance_name", "method", "result"})

func observe(name, method string, since time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}

	repoDuration.WithLabelValues(name, method, result).Observe(time.Since(since).Seconds())
}

// PromTransaction wraps Transaction with Prometheus metrics.
type PromTransaction struct {
	name string
	repo *Transaction
}

func NewPromTransaction(name string, repo *Transaction) *PromTransaction {
	return &PromTransaction{name: name, repo: repo}
}

func (r *PromTransaction) Create(ctx context.Context, dbi sqlx.QueryerContext, tx *model.Transaction) (rt *model.Transaction, err error) {
	now := time.Now()
	defer func() { observe(r.name, "Create", now, err) }()

	return r.repo.Create(ctx, dbi, tx)
}

func (r *PromTransaction) GetByCode(ctx context.Context, dbi sqlx.QueryerContext, code string) (rt *model.Transaction, err error) {
	now := time.Now()
	defer func() { observe(r.name, "GetByCode", now, err) }()

	return r.repo.GetByCode(ctx, dbi, code)
}

func (r *PromTransaction) GetByCodeForUpdate(ctx context.Context, dbi sqlx.QueryerContext, code string) (rt *model.Transaction, err error) {
	now := time.Now()
	defer func() { observe(r.name, "GetByCodeForUpdate", now, err) }()

	return r.repo.GetByCodeForUpdate(ctx, dbi, code)
}

func (r *PromTransaction) SetTotals(ctx context.Context, dbi sqlx.ExecerContext, id uuid.UUID, shippingCost int64, voucherID *uuid.UUID, voucherAmount int64) (err error) {
	now := time.Now()
	defer func() { observe(r.name, "SetTotals", now, err) }()

	return r.repo.SetTotals(ctx, dbi, id, shippingCost, voucherID, voucherAmount)
}

func (r *PromTransaction) MarkPaid(ctx context.Context, dbi sqlx.ExecerContext, id uuid.UUID, when time.Time) (err error) {
	now := time.Now()
	defer func() { observe(r.name, "MarkPaid", now, err) }()

	return r.repo.MarkPaid(ctx, dbi, id, when)
}

func (r *PromTransaction) Cancel(ctx context.Context, dbi sqlx.QueryerContext, code string) (rt *model.Transaction, err error) {
	now := time.Now()
	defer func() { observe(r.name, "Cancel", now, err) }()

	return r.repo.Cancel(ctx, dbi, code)
}

// PromPayment wraps Payment with Prometheus metrics.
type PromPayment struct {
	name string
	repo *Payment
}

func NewPromPayment(name string, repo *Payment) *PromPayment {
	return &PromPayment{name: name, repo: repo}
}

func (r *PromPayment) Create(ctx context.Context, dbi sqlx.QueryerContext, p *model.Payment) (rt *model.Payment, err error) {
	now := time.Now()
	defer func() { observe(r.name, "Create", now, err) }()

	return r.repo.Create(ctx, dbi, p)
}

func (r *PromPayment) ListByTransaction(ctx context.Context, dbi sqlx.QueryerContext, txID uuid.UUID) (rt []*model.Payment, err error) {
	now := time.Now()
	defer func() { observe(r.name, "ListByTransaction", now, err) }()

	return r.repo.ListByTransaction(ctx, dbi, txID)
}

func (r *PromPayment) SetPayload(ctx context.Context, dbi sqlx.ExecerContext, id uuid.UUID, payload types.JSONText) (err error) {
	now := time.Now()
	defer func() { observe(r.name, "SetPayload", now, err) }()

	return r.repo.SetPayload(ctx, dbi, id, payload)
}

func (r *PromPayment) MarkFailed(ctx context.Context, dbi sqlx.ExecerContext, id uuid.UUID) (err error) {
	now := time.Now()
	defer func() { observe(r.name, "MarkFailed", now, err) }()

	return r.repo.MarkFailed(ctx, dbi, id)
}

func (r *PromPayment) MarkCompleted(ctx context.Context, dbi sqlx.ExecerContext, id uuid.UUID, note *string, when time.Time) (err error) {
	now := time.Now()
	defer func() { observe(r.name, "MarkCompleted", now, err) }()

	return r.repo.MarkCompleted(ctx, dbi, id, note, when)
}
