package shipping

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var clientDuration = promauto.NewSummaryVec(prometheus.SummaryOpts{
	Name:       "shipping_client_duration_seconds",
	Help:       "shipping client runtime duration and result",
	MaxAge:     time.Minute,
	Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
},
	[]string{"instance_name", "method", "result"},
)

// ClientWithPrometheus implements Client interface with all methods wrapped
// with Prometheus metrics
type ClientWithPrometheus struct {
	base         Client
	instanceName string
}

// NewClientWithPrometheus returns an instance of the Client decorated with prometheus summary metric
func NewClientWithPrometheus(base Client, instanceName string) *ClientWithPrometheus {
	return &ClientWithPrometheus{
		base:         base,
		instanceName: instanceName,
	}
}

func (_d *ClientWithPrometheus) observe(method string, since time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}

	clientDuration.WithLabelValues(_d.instanceName, method, result).Observe(time.Since(since).Seconds())
}

// GetQuote implements Client
func (_d *ClientWithPrometheus) GetQuote(ctx context.Context, originID, destinationID string, weightGrams int, carrier string) (qp1 *Quote, err error) {
	_since := time.Now()
	defer func() { _d.observe("GetQuote", _since, err) }()
	return _d.base.GetQuote(ctx, originID, destinationID, weightGrams, carrier)
}

// Provinces implements Client
func (_d *ClientWithPrometheus) Provinces(ctx context.Context, filter *ProvinceFilter) (pa1 []Province, err error) {
	_since := time.Now()
	defer func() { _d.observe("Provinces", _since, err) }()
	return _d.base.Provinces(ctx, filter)
}

// Cities implements Client
func (_d *ClientWithPrometheus) Cities(ctx context.Context, filter *CityFilter) (ca1 []City, err error) {
	_since := time.Now()
	defer func() { _d.observe("Cities", _since, err) }()
	return _d.base.Cities(ctx, filter)
}
