package clients

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

var breakerState = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "client_circuit_breaker_state",
		Help: "Circuit breaker state per client (0=closed, 1=open, 2=half-open)",
	},
	[]string{"name"},
)

func init() {
	prometheus.MustRegister(breakerState)
}

// ErrCircuitOpen is returned without calling upstream while the breaker refuses requests
var ErrCircuitOpen = errors.New("circuit breaker open")

// Breaker guards calls to one upstream service
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// NewBreaker trips after at least 5 requests in a 30s window with 60% failing.
// Upstream 4xx responses are the caller's fault and are not counted as failures.
func NewBreaker(name string) *Breaker {
	breakerState.WithLabelValues(name).Set(0)

	return &Breaker{cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && ratio >= 0.6
		},
		IsSuccessful: func(err error) bool {
			return err == nil || IsClientError(err) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			var v float64
			switch to {
			case gobreaker.StateOpen:
				v = 1
			case gobreaker.StateHalfOpen:
				v = 2
			}
			breakerState.WithLabelValues(name).Set(v)

			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})}
}

// State of the breaker, e.g. "closed"
func (b *Breaker) State() string {
	return b.cb.State().String()
}

// Call runs fn through b
func Call[T any](b *Breaker, fn func() (T, error)) (T, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		var zero T
		return zero, errors.Join(ErrCircuitOpen, err)
	}

	v, _ := result.(T)
	return v, err
}
