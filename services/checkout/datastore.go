package checkout

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/sellora/marketplace/libs/datastore"
)

// Datastore is the database handle the service runs its transactions on.
type Datastore interface {
	datastore.TxAble
	sqlx.QueryerContext
	PingContext(ctx context.Context) error
}

// NewPostgres opens the checkout database, applying migrations when performMigration is set.
func NewPostgres(databaseURL string, performMigration bool) (*datastore.Postgres, error) {
	pg, err := datastore.NewPostgres(databaseURL, performMigration, "checkout_db")
	if err != nil {
		return nil, err
	}

	return pg, nil
}

var _ Datastore = (*datastore.Postgres)(nil)
