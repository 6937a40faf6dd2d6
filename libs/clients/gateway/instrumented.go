package gateway

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var clientDuration = promauto.NewSummaryVec(prometheus.SummaryOpts{
	Name:       "gateway_client_duration_seconds",
	Help:       "payment gateway client runtime duration and result",
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

// CreateIntent implements Client
func (_d *ClientWithPrometheus) CreateIntent(ctx context.Context, req *IntentRequest) (ip1 *IntentResponse, err error) {
	_since := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}

		clientDuration.WithLabelValues(_d.instanceName, "CreateIntent", result).Observe(time.Since(_since).Seconds())
	}()
	return _d.base.CreateIntent(ctx, req)
}

// GetStatus implements Client
func (_d *ClientWithPrometheus) GetStatus(ctx context.Context, orderCode string) (sp1 *StatusResponse, err error) {
	_since := time.Now()
	defer func() {
		result := "ok"
		if err != nil {
			result = "error"
		}

		clientDuration.WithLabelValues(_d.instanceName, "GetStatus", result).Observe(time.Since(_since).Seconds())
	}()
	return _d.base.GetStatus(ctx, orderCode)
}
