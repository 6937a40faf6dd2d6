package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	uuid "github.com/satori/go.uuid"

	"github.com/sellora/marketplace/services/checkout/model"
)

type Outbox struct{}

func NewOutbox() *Outbox { return &Outbox{} }

// Insert queues ev for publishing.
func (r *Outbox) Insert(ctx context.Context, dbi sqlx.ExecerContext, ev *model.OutboxEvent) error {
	const q = `INSERT INTO outbox_events (kind, key, payload) VALUES ($1, $2, $3)`

	_, err := dbi.ExecContext(ctx, q, ev.Kind, ev.Key, ev.Payload)
	return err
}

// FetchPending locks up to limit unpublished events, oldest first.
// Rows locked by another worker are skipped.
func (r *Outbox) FetchPending(ctx context.Context, dbi sqlx.QueryerContext, limit int) ([]*model.OutboxEvent, error) {
	const q = `SELECT id, kind, key, payload, created_at, published_at
	FROM outbox_events
	WHERE published_at IS NULL
	ORDER BY created_at
	LIMIT $1
	FOR UPDATE SKIP LOCKED`

	result := make([]*model.OutboxEvent, 0)
	if err := sqlx.SelectContext(ctx, dbi, &result, q, limit); err != nil {
		return nil, err
	}

	return result, nil
}

// MarkPublished records that the events were delivered.
func (r *Outbox) MarkPublished(ctx context.Context, dbi sqlx.ExecerContext, ids []uuid.UUID, when time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	const q = `UPDATE outbox_events SET published_at = $2 WHERE id = ANY($1::uuid[])`

	strs := make([]string, 0, len(ids))
	for i := range ids {
		strs = append(strs, ids[i].String())
	}

	return execMany(ctx, dbi, q, pq.Array(strs), when)
}
