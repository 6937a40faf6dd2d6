package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	uuid "github.com/satori/go.uuid"
	should "github.com/stretchr/testify/assert"
	must "github.com/stretchr/testify/require"

	"github.com/sellora/marketplace/libs/clients/gateway"
	"github.com/sellora/marketplace/services/checkout/model"
)

// ledger keeps just enough state for settlement to be observed across calls.
type ledger struct {
	tx       *model.Transaction
	payments []*model.Payment
	items    []*model.TransactionItem
	stock    map[uuid.UUID]int
	invoices string
	payload  types.JSONText
	events   []*model.OutboxEvent
}

func newLedger() *ledger {
	variantID := uuid.NewV4()
	txID := uuid.NewV4()

	return &ledger{
		tx: &model.Transaction{ID: txID, Code: "SL-1709287200000", Status: model.TransactionStatusPending},
		payments: []*model.Payment{
			{ID: uuid.NewV4(), TransactionID: txID, Amount: 33000, Status: model.PaymentStatusPending},
		},
		items: []*model.TransactionItem{
			{ID: uuid.NewV4(), TransactionID: txID, VariantID: variantID, Quantity: 3, Status: model.FulfillmentStatusPending},
		},
		stock:    map[uuid.UUID]int{variantID: 10},
		invoices: model.FulfillmentStatusPending,
	}
}

func (l *ledger) wire(m *mocks) {
	m.txns.FnGetByCode = func(ctx context.Context, dbi sqlx.QueryerContext, code string) (*model.Transaction, error) {
		if code != l.tx.Code {
			return nil, model.ErrTransactionNotFound
		}

		result := *l.tx
		return &result, nil
	}

	m.txns.FnMarkPaid = func(ctx context.Context, dbi sqlx.ExecerContext, id uuid.UUID, when time.Time) error {
		if l.tx.Status == model.TransactionStatusPaid {
			return model.ErrNoRowsChanged
		}

		l.tx.Status = model.TransactionStatusPaid
		return nil
	}

	m.payments.FnListByTransaction = func(ctx context.Context, dbi sqlx.QueryerContext, txID uuid.UUID) ([]*model.Payment, error) {
		result := make([]*model.Payment, 0, len(l.payments))
		for _, p := range l.payments {
			cp := *p
			result = append(result, &cp)
		}

		return result, nil
	}

	// Newest first, as the store lists them.
	m.payments.FnCreate = func(ctx context.Context, dbi sqlx.QueryerContext, p *model.Payment) (*model.Payment, error) {
		result := *p
		result.ID = uuid.NewV4()
		l.payments = append([]*model.Payment{&result}, l.payments...)

		cp := result
		return &cp, nil
	}

	m.payments.FnSetPayload = func(ctx context.Context, dbi sqlx.ExecerContext, id uuid.UUID, payload types.JSONText) error {
		l.payload = payload
		return nil
	}

	m.payments.FnMarkCompleted = func(ctx context.Context, dbi sqlx.ExecerContext, id uuid.UUID, note *string, when time.Time) error {
		for _, p := range l.payments {
			if uuid.Equal(p.ID, id) {
				if p.Status != model.PaymentStatusPending {
					return model.ErrNoRowsChanged
				}

				p.Status = model.PaymentStatusCompleted
				p.Note = note
				return nil
			}
		}

		return model.ErrNoRowsChanged
	}

	m.payments.FnMarkFailed = func(ctx context.Context, dbi sqlx.ExecerContext, id uuid.UUID) error {
		for _, p := range l.payments {
			if uuid.Equal(p.ID, id) && p.Status == model.PaymentStatusPending {
				p.Status = model.PaymentStatusFailed
				return nil
			}
		}

		return model.ErrNoRowsChanged
	}

	m.invoices.FnMarkPaid = func(ctx context.Context, dbi sqlx.ExecerContext, txID uuid.UUID, when time.Time) error {
		l.invoices = model.FulfillmentStatusPaid
		return nil
	}

	m.items.FnMarkPaid = func(ctx context.Context, dbi sqlx.ExecerContext, txID uuid.UUID) error {
		for _, item := range l.items {
			item.Status = model.FulfillmentStatusPaid
		}

		return nil
	}

	m.items.FnListByTransaction = func(ctx context.Context, dbi sqlx.QueryerContext, txID uuid.UUID) ([]*model.TransactionItem, error) {
		return l.items, nil
	}

	m.catalog.FnDecrementStock = func(ctx context.Context, dbi sqlx.ExecerContext, variantID uuid.UUID, qty int) error {
		l.stock[variantID] -= qty
		return nil
	}

	m.outbox.FnInsert = func(ctx context.Context, dbi sqlx.ExecerContext, ev *model.OutboxEvent) error {
		l.events = append(l.events, ev)
		return nil
	}
}

func gatewayStatus(status string) func(ctx context.Context, orderCode string) (*gateway.StatusResponse, error) {
	return func(ctx context.Context, orderCode string) (*gateway.StatusResponse, error) {
		raw, _ := json.Marshal(map[string]string{"order_id": orderCode, "transaction_status": status})

		return &gateway.StatusResponse{OrderID: orderCode, StatusCode: "200", TransactionStatus: status, Raw: raw}, nil
	}
}

func TestService_Reconcile_Settlement(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	l := newLedger()
	m := newMocks()
	l.wire(m)

	var calls int
	m.gateway.FnGetStatus = func(ctx context.Context, orderCode string) (*gateway.StatusResponse, error) {
		calls++
		should.Equal(t, "SL-1709287200000", orderCode)

		return gatewayStatus(model.GatewayStatusSettlement)(ctx, orderCode)
	}

	svc := m.service(db, time.Now())

	actual, err := svc.Reconcile(context.Background(), l.tx.Code)
	must.NoError(t, err)

	should.Equal(t, model.PaymentStatusCompleted, actual.Status)
	should.NotNil(t, actual.SettledAt)
	should.Equal(t, model.TransactionStatusPaid, l.tx.Status)
	should.Equal(t, model.FulfillmentStatusPaid, l.invoices)
	should.Equal(t, model.FulfillmentStatusPaid, l.items[0].Status)
	should.Equal(t, 7, l.stock[l.items[0].VariantID])
	should.NotEmpty(t, l.payload)

	must.Len(t, l.events, 1)
	should.Equal(t, model.EventTransactionSettled, l.events[0].Kind)
	should.Equal(t, l.tx.Code, l.events[0].Key)

	// A repeated poll is a no-op and does not reach the gateway.
	again, err := svc.Reconcile(context.Background(), l.tx.Code)
	must.NoError(t, err)

	should.Equal(t, model.PaymentStatusCompleted, again.Status)
	should.Equal(t, 7, l.stock[l.items[0].VariantID])
	should.Len(t, l.events, 1)
	should.Equal(t, 1, calls)
}

func TestService_Reconcile_ConcurrentSettlement(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	l := newLedger()
	m := newMocks()
	l.wire(m)
	m.gateway.FnGetStatus = gatewayStatus(model.GatewayStatusSettlement)

	// Another request settled the payment between the read and the update.
	m.payments.FnMarkCompleted = func(ctx context.Context, dbi sqlx.ExecerContext, id uuid.UUID, note *string, when time.Time) error {
		l.payments[0].Status = model.PaymentStatusCompleted
		return model.ErrNoRowsChanged
	}

	actual, err := m.service(db, time.Now()).Reconcile(context.Background(), l.tx.Code)
	must.NoError(t, err)

	should.Equal(t, model.PaymentStatusCompleted, actual.Status)
	should.Equal(t, 10, l.stock[l.items[0].VariantID])
	should.Empty(t, l.events)
}

func TestService_Reconcile(t *testing.T) {
	type tcGiven struct {
		code   string
		setup  func(l *ledger, m *mocks)
		begin  bool
		commit bool
	}

	type tcExpected struct {
		status string
		err    error
		stock  int
		calls  int
	}

	type testCase struct {
		name  string
		given tcGiven
		exp   tcExpected
	}

	tests := []testCase{
		{
			name:  "unknown_code",
			given: tcGiven{code: "SL-0"},
			exp:   tcExpected{err: model.ErrTransactionNotFound, stock: 10},
		},

		{
			name: "no_payments",
			given: tcGiven{
				setup: func(l *ledger, m *mocks) {
					l.payments = nil
				},
			},
			exp: tcExpected{err: model.ErrPaymentNotFound, stock: 10},
		},

		{
			name: "transaction_already_paid",
			given: tcGiven{
				setup: func(l *ledger, m *mocks) {
					l.tx.Status = model.TransactionStatusPaid
				},
			},
			exp: tcExpected{status: model.PaymentStatusPending, stock: 10},
		},

		{
			name: "latest_failed",
			given: tcGiven{
				setup: func(l *ledger, m *mocks) {
					l.payments[0].Status = model.PaymentStatusFailed
				},
			},
			exp: tcExpected{status: model.PaymentStatusFailed, stock: 10},
		},

		{
			name: "still_pending",
			given: tcGiven{
				setup: func(l *ledger, m *mocks) {
					m.gateway.FnGetStatus = gatewayStatus("pending")
				},
				begin:  true,
				commit: true,
			},
			exp: tcExpected{status: model.PaymentStatusPending, stock: 10, calls: 1},
		},

		{
			name: "gateway_reports_failure",
			given: tcGiven{
				setup: func(l *ledger, m *mocks) {
					m.gateway.FnGetStatus = gatewayStatus(model.GatewayStatusFailure)
				},
				begin:  true,
				commit: true,
			},
			exp: tcExpected{status: model.PaymentStatusFailed, stock: 10, calls: 1},
		},

		{
			name: "gateway_unavailable",
			given: tcGiven{
				setup: func(l *ledger, m *mocks) {
					m.gateway.FnGetStatus = func(ctx context.Context, orderCode string) (*gateway.StatusResponse, error) {
						return nil, errors.New("connection refused")
					}
				},
			},
			exp: tcExpected{err: model.ErrGatewayUnavailable, stock: 10, calls: 1},
		},

		{
			name: "retry_suffix",
			given: tcGiven{
				setup: func(l *ledger, m *mocks) {
					failed := &model.Payment{ID: uuid.NewV4(), TransactionID: l.tx.ID, Status: model.PaymentStatusFailed}
					l.payments = append(l.payments, failed)

					m.gateway.FnGetStatus = func(ctx context.Context, orderCode string) (*gateway.StatusResponse, error) {
						if orderCode != "SL-1709287200000-1" {
							return nil, errors.New("unexpected order code " + orderCode)
						}

						return gatewayStatus(model.GatewayStatusSettlement)(ctx, orderCode)
					}
				},
				begin:  true,
				commit: true,
			},
			exp: tcExpected{status: model.PaymentStatusCompleted, stock: 7, calls: 1},
		},

		{
			name: "stock_update_fails",
			given: tcGiven{
				setup: func(l *ledger, m *mocks) {
					m.gateway.FnGetStatus = gatewayStatus(model.GatewayStatusSettlement)
					m.catalog.FnDecrementStock = func(ctx context.Context, dbi sqlx.ExecerContext, variantID uuid.UUID, qty int) error {
						return errors.New("deadlock detected")
					}
				},
				begin: true,
			},
			exp: tcExpected{err: model.ErrPersistence, stock: 10, calls: 1},
		},
	}

	for i := range tests {
		tc := tests[i]

		t.Run(tc.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			if tc.given.begin {
				mock.ExpectBegin()
				if tc.given.commit {
					mock.ExpectCommit()
				} else {
					mock.ExpectRollback()
				}
			}

			l := newLedger()
			m := newMocks()
			l.wire(m)

			if tc.given.setup != nil {
				tc.given.setup(l, m)
			}

			var calls int
			getStatus := m.gateway.FnGetStatus
			m.gateway.FnGetStatus = func(ctx context.Context, orderCode string) (*gateway.StatusResponse, error) {
				calls++
				if getStatus == nil {
					return gatewayStatus("pending")(ctx, orderCode)
				}

				return getStatus(ctx, orderCode)
			}

			code := tc.given.code
			if code == "" {
				code = l.tx.Code
			}

			actual, err := m.service(db, time.Now()).Reconcile(context.Background(), code)
			should.Equal(t, tc.exp.calls, calls)
			should.Equal(t, tc.exp.stock, l.stock[l.items[0].VariantID])

			if tc.exp.err != nil {
				should.ErrorIs(t, err, tc.exp.err)
				should.Nil(t, actual)
				return
			}

			must.NoError(t, err)
			should.Equal(t, tc.exp.status, actual.Status)
		})
	}
}

func TestService_Confirm(t *testing.T) {
	t.Run("settles_without_gateway", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectCommit()

		l := newLedger()
		m := newMocks()
		l.wire(m)
		m.gateway.FnGetStatus = func(ctx context.Context, orderCode string) (*gateway.StatusResponse, error) {
			t.Fatal("unexpected gateway call")
			return nil, nil
		}

		actual, err := m.service(db, time.Now()).Confirm(context.Background(), l.tx.Code, "transfer received")
		must.NoError(t, err)

		should.Equal(t, model.PaymentStatusCompleted, actual.Status)
		must.NotNil(t, actual.Note)
		should.Equal(t, "transfer received", *actual.Note)
		should.Equal(t, 7, l.stock[l.items[0].VariantID])
		should.Equal(t, model.TransactionStatusPaid, l.tx.Status)
	})

	t.Run("already_settled", func(t *testing.T) {
		db, _ := newMockDB(t)

		l := newLedger()
		l.payments[0].Status = model.PaymentStatusCompleted

		m := newMocks()
		l.wire(m)

		actual, err := m.service(db, time.Now()).Confirm(context.Background(), l.tx.Code, "")
		must.NoError(t, err)

		should.Equal(t, model.PaymentStatusCompleted, actual.Status)
		should.Equal(t, 10, l.stock[l.items[0].VariantID])
	})

	t.Run("failed_payment", func(t *testing.T) {
		db, _ := newMockDB(t)

		l := newLedger()
		l.payments[0].Status = model.PaymentStatusFailed

		m := newMocks()
		l.wire(m)

		actual, err := m.service(db, time.Now()).Confirm(context.Background(), l.tx.Code, "transfer received")
		must.NoError(t, err)

		should.Equal(t, model.PaymentStatusFailed, actual.Status)
		should.Nil(t, actual.Note)
		should.Equal(t, 10, l.stock[l.items[0].VariantID])
		should.Equal(t, model.TransactionStatusPending, l.tx.Status)
		should.Empty(t, l.events)
	})

	t.Run("failed_while_confirming", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		l := newLedger()
		m := newMocks()
		l.wire(m)

		// The gateway failure lands between the read and the guarded update.
		m.payments.FnMarkCompleted = func(ctx context.Context, dbi sqlx.ExecerContext, id uuid.UUID, note *string, when time.Time) error {
			l.payments[0].Status = model.PaymentStatusFailed
			return model.ErrNoRowsChanged
		}

		actual, err := m.service(db, time.Now()).Confirm(context.Background(), l.tx.Code, "")
		must.NoError(t, err)

		should.Equal(t, model.PaymentStatusFailed, actual.Status)
		should.Equal(t, 10, l.stock[l.items[0].VariantID])
		should.Equal(t, model.TransactionStatusPending, l.tx.Status)
	})
}
