// Package requestutils reads request bodies and carries request ids to upstream calls.
package requestutils

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/sellora/marketplace/libs/closers"
	errorutils "github.com/sellora/marketplace/libs/errors"
	"github.com/sellora/marketplace/libs/logging"
)

type requestID string

const (
	payloadLimit10MB = int64(1024 * 1024 * 10)

	// RequestIDHeaderKey carries the request id to the rate provider and the gateway.
	RequestIDHeaderKey = "x-request-id"
	// IdempotencyKeyHeaderKey makes a checkout request replayable.
	IdempotencyKeyHeaderKey = "Idempotency-Key"

	// RequestID is the context key the request id is kept under.
	RequestID = requestID(RequestIDHeaderKey)
)

var (
	// ErrBodyTooLarge is returned when a body is longer than the limit it was read with.
	ErrBodyTooLarge = errors.New("requestutils: body exceeds limit")

	errNilBody = errors.New("requestutils: body is nil")
)

// ReadWithLimit reads at most limit bytes of body and closes it. Longer bodies are
// rejected with ErrBodyTooLarge rather than truncated.
func ReadWithLimit(ctx context.Context, body io.Reader, limit int64) ([]byte, error) {
	if c, ok := body.(io.Closer); ok {
		defer closers.Panic(ctx, c)
	}

	b, err := io.ReadAll(io.LimitReader(body, limit+1))
	if err != nil {
		return nil, err
	}

	if int64(len(b)) > limit {
		return nil, ErrBodyTooLarge
	}

	return b, nil
}

// Read reads body up to 10MB.
func Read(ctx context.Context, body io.Reader) ([]byte, error) {
	b, err := ReadWithLimit(ctx, body, payloadLimit10MB)
	if err != nil {
		return nil, errorutils.Wrap(err, "error reading body")
	}

	return b, nil
}

// ReadJSON decodes body into v. Payloads may carry customer details, so only their size is logged.
func ReadJSON(ctx context.Context, body io.Reader, v interface{}) error {
	if body == nil {
		return errorutils.New(errNilBody, "Error in request body", nil)
	}

	b, err := Read(ctx, body)
	if err != nil {
		return err
	}

	logging.Logger(ctx, "requestutils").Debug().Int("bytes", len(b)).Msg("read json payload")

	if err := json.Unmarshal(b, v); err != nil {
		return errorutils.Wrap(err, "error unmarshalling body")
	}

	return nil
}

// SetRequestID copies the request id on ctx onto an outgoing request.
func SetRequestID(ctx context.Context, r *http.Request) {
	if id := GetRequestID(ctx); id != "" {
		r.Header.Set(RequestIDHeaderKey, id)
	}
}

func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestID).(string)
	return id
}
