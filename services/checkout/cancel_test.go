package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	uuid "github.com/satori/go.uuid"
	should "github.com/stretchr/testify/assert"
	must "github.com/stretchr/testify/require"

	"github.com/sellora/marketplace/services/checkout/model"
)

func TestService_Cancel(t *testing.T) {
	type tcGiven struct {
		status     string
		exists     bool
		invoiceErr error
	}

	type tcExpected struct {
		err       error
		commit    bool
		cancelled bool
	}

	type testCase struct {
		name  string
		given tcGiven
		exp   tcExpected
	}

	tests := []testCase{
		{
			name:  "pending",
			given: tcGiven{status: model.TransactionStatusPending, exists: true},
			exp:   tcExpected{commit: true, cancelled: true},
		},

		{
			name:  "already_cancelled",
			given: tcGiven{status: model.TransactionStatusCancelled, exists: true},
			exp:   tcExpected{commit: true, cancelled: true},
		},

		{
			name:  "paid",
			given: tcGiven{status: model.TransactionStatusPaid, exists: true},
			exp:   tcExpected{err: model.ErrTransactionAlreadyPaid},
		},

		{
			name:  "not_found",
			given: tcGiven{},
			exp:   tcExpected{err: model.ErrTransactionNotFound},
		},

		{
			name:  "invoice_update_fails",
			given: tcGiven{status: model.TransactionStatusPending, exists: true, invoiceErr: errors.New("conn closed")},
			exp:   tcExpected{err: model.ErrPersistence},
		},
	}

	for i := range tests {
		tc := tests[i]

		t.Run(tc.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			mock.ExpectBegin()
			if tc.exp.commit {
				mock.ExpectCommit()
			} else {
				mock.ExpectRollback()
			}

			tx := &model.Transaction{ID: uuid.NewV4(), Code: "SL-1", Status: tc.given.status}

			m := newMocks()
			m.txns.FnCancel = func(ctx context.Context, dbi sqlx.QueryerContext, code string) (*model.Transaction, error) {
				if !tc.given.exists || tx.Status == model.TransactionStatusPaid {
					return nil, model.ErrNoRowsChanged
				}

				result := *tx
				result.Status = model.TransactionStatusCancelled

				return &result, nil
			}

			m.txns.FnGetByCode = func(ctx context.Context, dbi sqlx.QueryerContext, code string) (*model.Transaction, error) {
				if !tc.given.exists {
					return nil, model.ErrTransactionNotFound
				}

				return tx, nil
			}

			var invoicesCancelled bool
			m.invoices.FnCancelByTransaction = func(ctx context.Context, dbi sqlx.ExecerContext, txID uuid.UUID) error {
				should.Equal(t, tx.ID, txID)
				if tc.given.invoiceErr != nil {
					return tc.given.invoiceErr
				}

				invoicesCancelled = true
				return nil
			}

			m.invoices.FnListByTransaction = func(ctx context.Context, dbi sqlx.QueryerContext, txID uuid.UUID) ([]*model.Invoice, error) {
				should.Equal(t, tx.ID, txID)
				must.True(t, invoicesCancelled)

				return []*model.Invoice{
					{ID: uuid.NewV4(), TransactionID: txID, Code: "INV-1709287200000-0", Status: model.FulfillmentStatusCancelled},
					{ID: uuid.NewV4(), TransactionID: txID, Code: "INV-1709287200000-1", Status: model.FulfillmentStatusCancelled},
				}, nil
			}

			actual, err := m.service(db, time.Now()).Cancel(context.Background(), "SL-1")
			if tc.exp.err != nil {
				should.ErrorIs(t, err, tc.exp.err)
				should.Nil(t, actual)
				should.False(t, invoicesCancelled)
				return
			}

			must.NoError(t, err)
			should.Equal(t, model.TransactionStatusCancelled, actual.Status)
			should.Equal(t, tc.exp.cancelled, invoicesCancelled)

			must.Len(t, actual.Invoices, 2)
			for _, inv := range actual.Invoices {
				should.Equal(t, model.FulfillmentStatusCancelled, inv.Status)
			}
		})
	}
}
