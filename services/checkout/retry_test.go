package checkout

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	should "github.com/stretchr/testify/assert"
	must "github.com/stretchr/testify/require"

	"github.com/sellora/marketplace/libs/clients/gateway"
	"github.com/sellora/marketplace/services/checkout/model"
)

func TestService_RetryPayment(t *testing.T) {
	type tcGiven struct {
		txStatus      string
		paymentStatus string
		intentErr     error
	}

	type tcExpected struct {
		err      error
		commit   bool
		payments int
	}

	type testCase struct {
		name  string
		given tcGiven
		exp   tcExpected
	}

	tests := []testCase{
		{
			name:  "failed_payment",
			given: tcGiven{txStatus: model.TransactionStatusPending, paymentStatus: model.PaymentStatusFailed},
			exp:   tcExpected{commit: true, payments: 2},
		},

		{
			name:  "latest_pending",
			given: tcGiven{txStatus: model.TransactionStatusPending, paymentStatus: model.PaymentStatusPending},
			exp:   tcExpected{err: model.ErrPaymentNotRetryable, payments: 1},
		},

		{
			name:  "paid",
			given: tcGiven{txStatus: model.TransactionStatusPaid, paymentStatus: model.PaymentStatusCompleted},
			exp:   tcExpected{err: model.ErrTransactionAlreadyPaid, payments: 1},
		},

		{
			name:  "cancelled",
			given: tcGiven{txStatus: model.TransactionStatusCancelled, paymentStatus: model.PaymentStatusFailed},
			exp:   tcExpected{err: model.ErrTransactionCancelled, payments: 1},
		},

		{
			name: "intent_fails",
			given: tcGiven{
				txStatus:      model.TransactionStatusPending,
				paymentStatus: model.PaymentStatusFailed,
				intentErr:     errors.New("gateway down"),
			},
			exp: tcExpected{err: model.ErrPaymentIntentFailure, payments: 1},
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

			l := newLedger()
			l.tx.Status = tc.given.txStatus
			l.payments[0].Status = tc.given.paymentStatus

			m := newMocks()
			l.wire(m)

			var locked bool
			m.txns.FnGetByCodeForUpdate = func(ctx context.Context, dbi sqlx.QueryerContext, code string) (*model.Transaction, error) {
				locked = true
				return m.txns.FnGetByCode(ctx, dbi, code)
			}

			var orderCode string
			m.gateway.FnCreateIntent = func(ctx context.Context, req *gateway.IntentRequest) (*gateway.IntentResponse, error) {
				orderCode = req.OrderCode
				should.Equal(t, int64(33000), req.GrossAmount)

				if tc.given.intentErr != nil {
					return nil, tc.given.intentErr
				}

				return &gateway.IntentResponse{Token: "tok_" + req.OrderCode, RedirectURL: "https://pay.example.com/" + req.OrderCode}, nil
			}

			actual, err := m.service(db, time.Now()).RetryPayment(context.Background(), l.tx.Code)
			should.True(t, locked)
			should.Len(t, l.payments, tc.exp.payments)

			if tc.exp.err != nil {
				should.ErrorIs(t, err, tc.exp.err)
				should.Nil(t, actual)
				return
			}

			must.NoError(t, err)
			should.Equal(t, "SL-1709287200000-1", orderCode)
			should.Equal(t, model.PaymentStatusPending, actual.Status)
			should.Equal(t, int64(33000), actual.Amount)
			must.NotNil(t, actual.Token)
			should.Equal(t, "tok_SL-1709287200000-1", *actual.Token)
			must.NotNil(t, actual.RedirectURL)
		})
	}
}

func TestService_RetryPayment_Settlement(t *testing.T) {
	db, mock := newMockDB(t)
	// One db transaction to fail, one to retry, one to settle and a rejected retry.
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectRollback()

	l := newLedger()
	m := newMocks()
	l.wire(m)

	var polled []string
	m.gateway.FnGetStatus = func(ctx context.Context, orderCode string) (*gateway.StatusResponse, error) {
		polled = append(polled, orderCode)

		if len(polled) == 1 {
			return gatewayStatus(model.GatewayStatusFailure)(ctx, orderCode)
		}

		return gatewayStatus(model.GatewayStatusSettlement)(ctx, orderCode)
	}

	svc := m.service(db, time.Now())

	failed, err := svc.Reconcile(context.Background(), l.tx.Code)
	must.NoError(t, err)
	should.Equal(t, model.PaymentStatusFailed, failed.Status)

	// A failed payment is not settled by an operator.
	confirmed, err := svc.Confirm(context.Background(), l.tx.Code, "")
	must.NoError(t, err)
	should.Equal(t, model.PaymentStatusFailed, confirmed.Status)
	should.Equal(t, 10, l.stock[l.items[0].VariantID])

	retried, err := svc.RetryPayment(context.Background(), l.tx.Code)
	must.NoError(t, err)
	should.Equal(t, model.PaymentStatusPending, retried.Status)

	settled, err := svc.Reconcile(context.Background(), l.tx.Code)
	must.NoError(t, err)

	should.Equal(t, []string{"SL-1709287200000", "SL-1709287200000-1"}, polled)
	should.Equal(t, retried.ID, settled.ID)
	should.Equal(t, model.PaymentStatusCompleted, settled.Status)
	should.Equal(t, model.PaymentStatusFailed, l.payments[1].Status)
	should.Equal(t, model.TransactionStatusPaid, l.tx.Status)
	should.Equal(t, 7, l.stock[l.items[0].VariantID])
	should.Len(t, l.events, 1)

	// The transaction is paid now, so there is nothing left to retry.
	_, err = svc.RetryPayment(context.Background(), l.tx.Code)
	should.ErrorIs(t, err, model.ErrTransactionAlreadyPaid)
}
