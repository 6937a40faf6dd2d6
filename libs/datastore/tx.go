package datastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sellora/marketplace/libs/logging"
)

var (
	// ErrBeginTx is returned when a transaction could not be started
	ErrBeginTx = errors.New("datastore: failed to begin transaction")
	// ErrCommitTx is returned when a transaction could not be committed
	ErrCommitTx = errors.New("datastore: failed to commit transaction")
)

// TxAble - something that is capable of beginning a sqlx.Tx
type TxAble interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// WithTx runs fn inside a transaction. The transaction commits when fn returns nil
// and rolls back otherwise, including when fn panics.
func WithTx(ctx context.Context, ta TxAble, fn func(tx *sqlx.Tx) error) error {
	logger := logging.Logger(ctx, "datastore.WithTx")

	tx, err := ta.BeginTxx(ctx, nil)
	if err != nil {
		logger.Error().Err(err).Msg("error creating transaction")
		return fmt.Errorf("%w: %w", ErrBeginTx, err)
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			logger.Error().Err(err).Msg("failed to roll back transaction")
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		logger.Error().Err(err).Msg("failed to commit transaction")
		return fmt.Errorf("%w: %w", ErrCommitTx, err)
	}

	return nil
}
