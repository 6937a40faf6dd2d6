package middleware

import (
	"context"
	"net/http"

	uuid "github.com/satori/go.uuid"

	appctx "github.com/sellora/marketplace/libs/context"
)

// CustomerIDHeaderKey is set by the authenticating proxy in front of the service
const CustomerIDHeaderKey = "X-Customer-ID"

// CustomerIdentity places the authenticated customer id on the request context.
// Requests without a valid id are treated as guests.
func CustomerIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.FromString(r.Header.Get(CustomerIDHeaderKey))
		if err != nil || uuid.Equal(id, uuid.Nil) {
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), appctx.CustomerIDCTXKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CustomerIDFromContext returns the authenticated customer id, if any
func CustomerIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(appctx.CustomerIDCTXKey).(uuid.UUID)
	return id, ok
}
