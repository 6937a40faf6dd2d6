package checkout

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/sellora/marketplace/libs/datastore"
	"github.com/sellora/marketplace/libs/logging"
	"github.com/sellora/marketplace/services/checkout/model"
)

// Cancel cancels an unpaid transaction and its invoices. The cancelled invoices are
// returned with the transaction.
func (s *Service) Cancel(ctx context.Context, code string) (*model.Transaction, error) {
	logger := logging.Logger(ctx, "checkout").With().Str("func", "Cancel").Str("code", code).Logger()

	var result *model.Transaction
	err := datastore.WithTx(ctx, s.Datastore, func(dbtx *sqlx.Tx) error {
		tx, err := s.txns.Cancel(ctx, dbtx, code)
		if err != nil {
			if !errors.Is(err, model.ErrNoRowsChanged) {
				return persistErr(err)
			}

			// Either the code is unknown or the guard rejected a paid transaction.
			if _, err := s.txns.GetByCode(ctx, dbtx, code); err != nil {
				return lookupErr(err)
			}

			return model.ErrTransactionAlreadyPaid
		}

		if err := s.invoices.CancelByTransaction(ctx, dbtx, tx.ID); err != nil {
			return persistErr(err)
		}

		invoices, err := s.invoices.ListByTransaction(ctx, dbtx, tx.ID)
		if err != nil {
			return persistErr(err)
		}

		tx.Invoices = invoices
		result = tx

		return nil
	})
	if err != nil {
		return nil, txErr(err)
	}

	logger.Info().Msg("transaction cancelled")

	return result, nil
}
