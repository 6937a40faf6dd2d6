package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/rs/zerolog"
	should "github.com/stretchr/testify/assert"
	must "github.com/stretchr/testify/require"

	"github.com/sellora/marketplace/libs/clients"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)

	os.Exit(m.Run())
}

func newTestClient(t *testing.T, h http.HandlerFunc) *HTTPClient {
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)

	snap, err := clients.New(ts.URL, "")
	must.NoError(t, err)

	api, err := clients.New(ts.URL, "")
	must.NoError(t, err)

	return New(snap, api, "server-key")
}

func TestHTTPClient_CreateIntent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		should.Equal(t, http.MethodPost, r.Method)
		should.Equal(t, "/snap/v1/transactions", r.URL.Path)
		should.Equal(t, "Basic "+base64.StdEncoding.EncodeToString([]byte("server-key:")), r.Header.Get("authorization"))

		var body snapRequest
		must.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		should.Equal(t, "SL-1700000000000", body.TransactionDetails.OrderID)
		should.Equal(t, int64(33000), body.TransactionDetails.GrossAmount)
		should.Len(t, body.ItemDetails, 2)
		should.Equal(t, "Budi", body.CustomerDetails.Name)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"token":"tok-1","redirect_url":"https://pay.example/tok-1"}`))
	})

	actual, err := c.CreateIntent(context.Background(), &IntentRequest{
		OrderCode:   "SL-1700000000000",
		GrossAmount: 33000,
		Items: []LineItem{
			{ID: "v1", Name: "Shirt", Price: 25000, Quantity: 1},
			{ID: "shipping-0", Name: "Shipping", Price: 8000, Quantity: 1},
		},
		Customer: Customer{Name: "Budi", Email: "budi@example.com"},
	})
	must.NoError(t, err)
	should.Equal(t, &IntentResponse{Token: "tok-1", RedirectURL: "https://pay.example/tok-1"}, actual)
}

func TestHTTPClient_CreateIntent_Rejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error_messages":["Access denied"]}`))
	})

	_, err := c.CreateIntent(context.Background(), &IntentRequest{OrderCode: "SL-1", GrossAmount: 1})
	must.Error(t, err)

	state, uerr := clients.UnwrapHTTPState(err)
	must.NoError(t, uerr)
	should.Equal(t, http.StatusUnauthorized, state.Status)
}

func TestHTTPClient_GetStatus(t *testing.T) {
	type tcExpected struct {
		status string
		err    error
	}

	type testCase struct {
		name  string
		given string
		exp   tcExpected
	}

	tests := []testCase{
		{
			name:  "settlement",
			given: `{"order_id":"SL-1-1","status_code":"200","transaction_status":"settlement","gross_amount":"33000.00"}`,
			exp:   tcExpected{status: "settlement"},
		},

		{
			name:  "pending",
			given: `{"order_id":"SL-1-1","status_code":"201","transaction_status":"pending","gross_amount":"33000.00"}`,
			exp:   tcExpected{status: "pending"},
		},

		{
			name:  "unknown_order",
			given: `{"status_code":"404","status_message":"Transaction doesn't exist."}`,
			exp:   tcExpected{err: ErrOrderNotFound},
		},
	}

	for i := range tests {
		tc := tests[i]

		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				should.Equal(t, "/v2/SL-1-1/status", r.URL.Path)
				_, _ = w.Write([]byte(tc.given))
			})

			actual, err := c.GetStatus(context.Background(), "SL-1-1")
			if tc.exp.err != nil {
				should.True(t, errors.Is(err, tc.exp.err))
				return
			}

			must.NoError(t, err)
			should.Equal(t, tc.exp.status, actual.TransactionStatus)
			should.JSONEq(t, tc.given, string(actual.Raw))
		})
	}
}

func TestOrderCode(t *testing.T) {
	should.Equal(t, "SL-1700000000000", OrderCode("SL-1700000000000", 0))
	should.Equal(t, "SL-1700000000000", OrderCode("SL-1700000000000", 1))
	should.Equal(t, "SL-1700000000000-1", OrderCode("SL-1700000000000", 2))
	should.Equal(t, "SL-1700000000000-4", OrderCode("SL-1700000000000", 5))
}

func TestBaseCode(t *testing.T) {
	should.Equal(t, "SL-1700000000000", BaseCode("SL-1700000000000"))
	should.Equal(t, "SL-1700000000000", BaseCode("SL-1700000000000-3"))
	should.Equal(t, "SL-1700000000000-x", BaseCode("SL-1700000000000-x"))
	should.Equal(t, "SL", BaseCode("SL"))

	for n := 1; n < 4; n++ {
		should.Equal(t, "SL-42", BaseCode(OrderCode("SL-42", n)))
	}
}

func TestVerify(t *testing.T) {
	n := &Notification{
		OrderID:     "SL-1700000000000",
		StatusCode:  "200",
		GrossAmount: "33000.00",
	}
	n.SignatureKey = Sign(n, "server-key")

	should.Len(t, n.SignatureKey, 128)
	should.True(t, Verify(n, "server-key"))
	should.False(t, Verify(n, "other-key"))

	tampered := *n
	tampered.GrossAmount = "1.00"
	should.False(t, Verify(&tampered, "server-key"))

	should.False(t, Verify(&Notification{OrderID: "SL-1"}, "server-key"))
	should.False(t, Verify(nil, "server-key"))
}
