package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	should "github.com/stretchr/testify/assert"
	must "github.com/stretchr/testify/require"

	"github.com/sellora/marketplace/libs/handlers"
)

func TestAppHandler_ServeHTTP(t *testing.T) {
	type tcExpected struct {
		code int
		msg  string
	}

	type testCase struct {
		name  string
		given handlers.AppHandler
		exp   tcExpected
	}

	tests := []testCase{
		{
			name: "client_error_includes_cause",
			given: func(w http.ResponseWriter, r *http.Request) *handlers.AppError {
				return handlers.WrapError(errors.New("bad field"), "Error in request body", http.StatusBadRequest)
			},
			exp: tcExpected{code: http.StatusBadRequest, msg: "Error in request body: bad field"},
		},

		{
			name: "server_error_hides_cause",
			given: func(w http.ResponseWriter, r *http.Request) *handlers.AppError {
				return handlers.InternalError(errors.New("pq: relation does not exist"), "persistence_failure", "Checkout could not be completed")
			},
			exp: tcExpected{code: http.StatusInternalServerError, msg: "Checkout could not be completed"},
		},

		{
			name: "success",
			given: func(w http.ResponseWriter, r *http.Request) *handlers.AppError {
				return handlers.RenderContent(r.Context(), map[string]string{"ok": "yes"}, w, http.StatusCreated)
			},
			exp: tcExpected{code: http.StatusCreated},
		},
	}

	for i := range tests {
		tc := tests[i]

		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "http://localhost", nil)
			rw := httptest.NewRecorder()

			tc.given.ServeHTTP(rw, req)

			should.Equal(t, tc.exp.code, rw.Code)
			should.Equal(t, "application/json", rw.Header().Get("content-type"))

			if tc.exp.msg == "" {
				return
			}

			act := &handlers.AppError{}
			must.NoError(t, json.Unmarshal(rw.Body.Bytes(), act))
			should.Equal(t, tc.exp.msg, act.Message)
		})
	}
}

type pinger struct{ err error }

func (p pinger) PingContext(ctx context.Context) error { return p.err }

func TestHealthCheckHandler(t *testing.T) {
	h := handlers.HealthCheckHandler("1.0.0", "now", "abc", map[string]handlers.Pinger{
		"postgres": pinger{},
		"redis":    pinger{err: errors.New("dial tcp: refused")},
	})

	rw := httptest.NewRecorder()
	h(rw, httptest.NewRequest(http.MethodGet, "/health-check", nil))

	must.Equal(t, http.StatusServiceUnavailable, rw.Code)

	act := handlers.HealthCheckResponse{}
	must.NoError(t, json.Unmarshal(rw.Body.Bytes(), &act))

	should.Equal(t, "1.0.0", act.Version)
	should.Equal(t, "up", act.ServiceStatus["postgres"])
	should.Equal(t, "down", act.ServiceStatus["redis"])
}
