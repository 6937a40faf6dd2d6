package requestutils

import (
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	should "github.com/stretchr/testify/assert"
	must "github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.Disabled)

	os.Exit(m.Run())
}

func TestReadWithLimit(t *testing.T) {
	type tcExpected struct {
		body string
		err  error
	}

	type testCase struct {
		name  string
		given string
		exp   tcExpected
	}

	tests := []testCase{
		{
			name:  "under_limit",
			given: `{"note":"ok"}`,
			exp:   tcExpected{body: `{"note":"ok"}`},
		},

		{
			name:  "at_limit",
			given: strings.Repeat("a", 16),
			exp:   tcExpected{body: strings.Repeat("a", 16)},
		},

		{
			name:  "over_limit",
			given: strings.Repeat("a", 17),
			exp:   tcExpected{err: ErrBodyTooLarge},
		},
	}

	for i := range tests {
		tc := tests[i]

		t.Run(tc.name, func(t *testing.T) {
			actual, err := ReadWithLimit(context.Background(), strings.NewReader(tc.given), 16)
			if tc.exp.err != nil {
				should.ErrorIs(t, err, tc.exp.err)
				should.Nil(t, actual)
				return
			}

			must.NoError(t, err)
			should.Equal(t, tc.exp.body, string(actual))
		})
	}
}

func TestReadJSON(t *testing.T) {
	var n struct {
		OrderID string `json:"order_id"`
	}

	must.NoError(t, ReadJSON(context.Background(), strings.NewReader(`{"order_id":"SL-1-1"}`), &n))
	should.Equal(t, "SL-1-1", n.OrderID)

	err := ReadJSON(context.Background(), nil, &n)
	should.True(t, errors.Is(err, errNilBody))

	should.Error(t, ReadJSON(context.Background(), strings.NewReader(`{"order_id":`), &n))
}

func TestSetRequestID(t *testing.T) {
	r := httptest.NewRequest("GET", "/v1/calculate", nil)
	SetRequestID(context.Background(), r)
	should.Empty(t, r.Header.Get(RequestIDHeaderKey))

	ctx := context.WithValue(context.Background(), RequestID, "req-1")
	SetRequestID(ctx, r)
	should.Equal(t, "req-1", r.Header.Get(RequestIDHeaderKey))
}
