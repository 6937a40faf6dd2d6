package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	should "github.com/stretchr/testify/assert"
	must "github.com/stretchr/testify/require"

	"github.com/sellora/marketplace/libs/requestutils"
)

func newIdempotencyFixture(t *testing.T) (*miniredis.Miniredis, *RedisIdempotencyStore) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return mr, NewRedisIdempotencyStore(rdb, "checkout")
}

func TestIdempotency(t *testing.T) {
	_, store := newIdempotencyFixture(t)

	var calls int32
	h := Idempotency(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("content-type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"code":"SL-1"}`))
	}))

	send := func(key, body string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/v1/checkout", bytes.NewBufferString(body))
		if key != "" {
			r.Header.Set(requestutils.IdempotencyKeyHeaderKey, key)
		}
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w
	}

	t.Run("first_request_passes_through", func(t *testing.T) {
		w := send("key-1", `{"a":1}`)
		should.Equal(t, http.StatusCreated, w.Code)
		should.Equal(t, `{"code":"SL-1"}`, w.Body.String())
		should.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("repeat_is_replayed", func(t *testing.T) {
		w := send("key-1", `{"a":1}`)
		should.Equal(t, http.StatusCreated, w.Code)
		should.Equal(t, `{"code":"SL-1"}`, w.Body.String())
		should.Equal(t, "true", w.Header().Get("Idempotent-Replayed"))
		should.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("different_body_conflicts", func(t *testing.T) {
		w := send("key-1", `{"a":2}`)
		should.Equal(t, http.StatusConflict, w.Code)
		should.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("no_key_always_runs", func(t *testing.T) {
		send("", `{"a":1}`)
		send("", `{"a":1}`)
		should.Equal(t, int32(3), atomic.LoadInt32(&calls))
	})
}

func TestIdempotency_InFlight(t *testing.T) {
	_, store := newIdempotencyFixture(t)

	ok, err := store.Lock(context.Background(), "key-2", idempotencyLockTTL)
	must.NoError(t, err)
	must.True(t, ok)

	h := Idempotency(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run while the key is locked")
	}))

	r := httptest.NewRequest(http.MethodPost, "/v1/checkout", bytes.NewBufferString(`{}`))
	r.Header.Set(requestutils.IdempotencyKeyHeaderKey, "key-2")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	should.Equal(t, http.StatusConflict, w.Code)
}

func TestIdempotency_ServerErrorNotStored(t *testing.T) {
	mr, store := newIdempotencyFixture(t)

	var calls int32
	h := Idempotency(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	for i := 0; i < 2; i++ {
		r := httptest.NewRequest(http.MethodPost, "/v1/checkout", bytes.NewBufferString(`{}`))
		r.Header.Set(requestutils.IdempotencyKeyHeaderKey, "key-3")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		should.Equal(t, http.StatusInternalServerError, w.Code)
	}

	should.Equal(t, int32(2), atomic.LoadInt32(&calls))
	should.False(t, mr.Exists("checkout:resp:key-3"))
	should.False(t, mr.Exists("checkout:lock:key-3"))
}
