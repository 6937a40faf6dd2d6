package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sellora/marketplace/libs/logging"
)

// Pinger is anything the health check can probe, a database handle for instance
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthCheckResponse - response structure for healthchecks
type HealthCheckResponse struct {
	BuildTime string `json:"buildTime"`
	Commit    string `json:"commit"`
	Version   string `json:"version"`
	// service status is an accumulated map of dependency health mapped on dependency name
	ServiceStatus map[string]interface{} `json:"serviceStatus,omitempty"`
}

// RenderJSON - helper to render a HealthCheckResponse as Json to an http.ResponseWriter
func (hcr HealthCheckResponse) RenderJSON(ctx context.Context, w http.ResponseWriter, status int) error {
	logger := logging.Logger(ctx, "handlers.HealthCheckResponse.RenderJSON")
	body, err := json.Marshal(hcr)
	if err != nil {
		return fmt.Errorf("failed to marshal response in render json: %w", err)
	}
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		logger.Error().Err(err).Msg("failed to write response to writer")
	}
	return nil
}

// HealthCheckHandler - function which generates a health check http.HandlerFunc
func HealthCheckHandler(version, buildTime, commit string, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := logging.Logger(ctx, "handlers.HealthCheckHandler")

		hcr := HealthCheckResponse{
			Commit:    commit,
			BuildTime: buildTime,
			Version:   version,
		}

		status := http.StatusOK
		if len(deps) > 0 {
			hcr.ServiceStatus = make(map[string]interface{}, len(deps))
			for name, dep := range deps {
				if err := dep.PingContext(ctx); err != nil {
					logger.Warn().Err(err).Str("dependency", name).Msg("dependency unhealthy")
					hcr.ServiceStatus[name] = "down"
					status = http.StatusServiceUnavailable
					continue
				}
				hcr.ServiceStatus[name] = "up"
			}
		}

		if err := hcr.RenderJSON(ctx, w, status); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			if _, err := w.Write([]byte("unhealthy")); err != nil {
				logger.Error().Err(err).Msg("failed to write response to writer")
			}
		}
	}
}
