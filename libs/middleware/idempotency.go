package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/sellora/marketplace/libs/handlers"
	"github.com/sellora/marketplace/libs/logging"
	"github.com/sellora/marketplace/libs/requestutils"
)

const (
	idempotencyResponseTTL = 24 * time.Hour
	idempotencyLockTTL     = 30 * time.Second
)

// StoredResponse is what gets replayed for a repeated Idempotency-Key
type StoredResponse struct {
	RequestHash string `json:"requestHash"`
	Status      int    `json:"status"`
	ContentType string `json:"contentType"`
	Body        []byte `json:"body"`
}

// IdempotencyStore keeps responses and in-flight locks per idempotency key
type IdempotencyStore interface {
	Get(ctx context.Context, key string) (*StoredResponse, error)
	Save(ctx context.Context, key string, resp *StoredResponse, ttl time.Duration) error
	Lock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

// RedisIdempotencyStore is an IdempotencyStore backed by redis
type RedisIdempotencyStore struct {
	rdb    redis.UniversalClient
	prefix string
}

// NewRedisIdempotencyStore returns a store writing keys under prefix
func NewRedisIdempotencyStore(rdb redis.UniversalClient, prefix string) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{rdb: rdb, prefix: prefix}
}

// Get returns nil without error when nothing is stored for key
func (s *RedisIdempotencyStore) Get(ctx context.Context, key string) (*StoredResponse, error) {
	raw, err := s.rdb.Get(ctx, s.prefix+":resp:"+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	result := &StoredResponse{}
	if err := json.Unmarshal(raw, result); err != nil {
		return nil, err
	}

	return result, nil
}

// Save stores resp for key
func (s *RedisIdempotencyStore) Save(ctx context.Context, key string, resp *StoredResponse, ttl time.Duration) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return err
	}

	return s.rdb.Set(ctx, s.prefix+":resp:"+key, raw, ttl).Err()
}

// Lock reports whether the caller now owns key
func (s *RedisIdempotencyStore) Lock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.rdb.SetNX(ctx, s.prefix+":lock:"+key, 1, ttl).Result()
}

// Unlock releases key
func (s *RedisIdempotencyStore) Unlock(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, s.prefix+":lock:"+key).Err()
}

// Idempotency replays the stored response when a client repeats a request with the
// same Idempotency-Key. A key reused with a different request is rejected, as is a
// key whose first request is still being served. Server errors are not stored so the
// client may retry them.
func Idempotency(store IdempotencyStore) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(requestutils.IdempotencyKeyHeaderKey)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			logger := logging.Logger(ctx, "middleware.Idempotency")

			body, err := io.ReadAll(io.LimitReader(r.Body, 10<<20))
			if err != nil {
				handlers.WrapError(err, "Failed to read request body", http.StatusBadRequest).ServeHTTP(w, r)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			hash := requestHash(r, body)

			stored, err := store.Get(ctx, key)
			if err != nil {
				logger.Error().Err(err).Msg("failed to look up idempotency key")
				handlers.InternalError(err, "idempotency_unavailable", "Request could not be processed").ServeHTTP(w, r)
				return
			}

			if stored != nil {
				if stored.RequestHash != hash {
					conflict(w, r, "Idempotency-Key was already used for a different request")
					return
				}

				w.Header().Set("content-type", stored.ContentType)
				w.Header().Set("Idempotent-Replayed", "true")
				w.WriteHeader(stored.Status)
				if _, err := w.Write(stored.Body); err != nil {
					logger.Error().Err(err).Msg("failed to write replayed response")
				}
				return
			}

			locked, err := store.Lock(ctx, key, idempotencyLockTTL)
			if err != nil {
				logger.Error().Err(err).Msg("failed to lock idempotency key")
				handlers.InternalError(err, "idempotency_unavailable", "Request could not be processed").ServeHTTP(w, r)
				return
			}
			if !locked {
				conflict(w, r, "A request with this Idempotency-Key is in progress")
				return
			}

			defer func() {
				if err := store.Unlock(context.Background(), key); err != nil {
					logger.Warn().Err(err).Msg("failed to unlock idempotency key")
				}
			}()

			var buf bytes.Buffer
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&buf)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			if status >= http.StatusInternalServerError {
				return
			}

			resp := &StoredResponse{
				RequestHash: hash,
				Status:      status,
				ContentType: ww.Header().Get("content-type"),
				Body:        buf.Bytes(),
			}
			if err := store.Save(context.Background(), key, resp, idempotencyResponseTTL); err != nil {
				logger.Error().Err(err).Msg("failed to store idempotent response")
			}
		})
	}
}

func requestHash(r *http.Request, body []byte) string {
	h := sha256.New()
	h.Write([]byte(r.Method + ":" + r.URL.Path + ":" + r.Header.Get(CustomerIDHeaderKey) + ":"))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

func conflict(w http.ResponseWriter, r *http.Request, msg string) {
	(&handlers.AppError{
		Message:   msg,
		ErrorCode: "idempotency_conflict",
		Code:      http.StatusConflict,
	}).ServeHTTP(w, r)
}
