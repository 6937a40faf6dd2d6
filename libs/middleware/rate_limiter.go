package middleware

import (
	"context"
	"net/http"

	"github.com/throttled/throttled"
	"github.com/throttled/throttled/store/memstore"

	appctx "github.com/sellora/marketplace/libs/context"
	"github.com/sellora/marketplace/libs/logging"
)

// IPRateLimiterWithStore rate limits based on IP using
// a provided store and a GCRA leaky bucket algorithm.
func IPRateLimiterWithStore(
	ctx context.Context,
	perMin int,
	burst int,
	store throttled.GCRAStore,
) func(next http.Handler) http.Handler {
	logger := logging.Logger(ctx, "middleware.IPRateLimiterWithStore")

	quota := throttled.RateQuota{
		MaxRate:  throttled.PerMin(perMin),
		MaxBurst: burst,
	}
	rateLimiter, err := throttled.NewGCRARateLimiter(store, quota)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create rate limiter")
	}

	httpRateLimiter := throttled.HTTPRateLimiter{
		RateLimiter: rateLimiter,
		VaryBy: &throttled.VaryBy{
			RemoteAddr: true,
			Path:       true,
			Method:     true,
		},
	}

	return func(next http.Handler) http.Handler {
		limited := httpRateLimiter.RateLimit(next)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// preflight bursts from browsers are not counted
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			// operators are exempt
			if isOperatorToken(OperatorTokens, bearerTokenFromContext(r.Context())) {
				next.ServeHTTP(w, r)
				return
			}

			limited.ServeHTTP(w, r)
		})
	}
}

// RateLimiter rate limits the number of requests a
// user from a single IP address can make using a simple
// in-memory store that will not synchronize across instances.
func RateLimiter(ctx context.Context, perMin int) func(next http.Handler) http.Handler {
	logger := logging.Logger(ctx, "middleware.RateLimiter")
	store, err := memstore.New(65536)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create rate limiter store")
	}

	burst, err := appctx.GetIntFromContext(ctx, appctx.RateLimiterBurstCTXKey)
	if err != nil {
		burst = 0
	}

	return IPRateLimiterWithStore(ctx, perMin, burst, store)
}
