package cmd

import (
	"context"
	"time"

	"github.com/go-chi/chi"
	chiware "github.com/go-chi/chi/middleware"
	"github.com/rs/zerolog/hlog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	appctx "github.com/sellora/marketplace/libs/context"
	"github.com/sellora/marketplace/libs/handlers"
	"github.com/sellora/marketplace/libs/logging"
	"github.com/sellora/marketplace/libs/middleware"
	srv "github.com/sellora/marketplace/libs/service"
)

const (
	timeout            = 10 * time.Second
	defaultRatePerMin  = 180
	productionEnvValue = "production"
)

// ServeCmd the serve command
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "entrypoint to serve a micro-service",
}

func init() {
	RootCmd.AddCommand(ServeCmd)

	fb := NewPersistentFlagBuilder(ServeCmd)

	fb.Flag().String("address", ":8080",
		"the default address to bind to").
		Bind().
		Env("ADDR")

	fb.Flag().Bool("enable-job-workers", true,
		"enable job workers (defaults true)").
		Bind().
		Env("ENABLE_JOB_WORKERS")

	fb.Flag().Int("rate-limit-per-min", defaultRatePerMin,
		"requests per minute allowed per ip in production").
		Bind().
		Env("RATE_LIMIT_PER_MIN")
}

// SetupRouter sets up a router with the generic middlewares, the health check
// probing deps, and the metrics endpoint
func SetupRouter(ctx context.Context, deps map[string]handlers.Pinger) *chi.Mux {
	logger := logging.FromContext(ctx)

	r := chi.NewRouter()
	r.Use(
		chiware.RequestID,
		chiware.RealIP,
		chiware.Heartbeat("/"),
		chiware.Timeout(timeout),
		middleware.BearerToken,
		middleware.RequestIDTransfer,
	)

	if viper.GetString("environment") == productionEnvValue {
		rl, err := appctx.GetIntFromContext(ctx, appctx.RateLimitPerMinuteCTXKey)
		if err != nil || rl <= 0 {
			rl = defaultRatePerMin
		}
		r.Use(middleware.RateLimiter(ctx, rl))
	}

	// also handles panic recovery
	r.Use(
		hlog.NewHandler(*logger),
		hlog.UserAgentHandler("user_agent"),
		hlog.RequestIDHandler("req_id", "Request-Id"),
		middleware.RequestLogger(logger),
	)

	version, _ := appctx.GetStringFromContext(ctx, appctx.VersionCTXKey)
	commit, _ := appctx.GetStringFromContext(ctx, appctx.CommitCTXKey)
	buildTime, _ := appctx.GetStringFromContext(ctx, appctx.BuildTimeCTXKey)

	logger.Info().
		Str("version", version).
		Str("commit", commit).
		Str("build_time", buildTime).
		Str("address", viper.GetString("address")).
		Str("environment", viper.GetString("environment")).
		Msg("server starting")

	r.Get("/health-check", handlers.HealthCheckHandler(version, buildTime, commit, deps))
	r.Get("/metrics", middleware.Metrics())

	return r
}

// SetupJobWorkers starts the workers of every job unless job workers are disabled
func SetupJobWorkers(ctx context.Context, jobs []srv.Job) {
	logger := logging.FromContext(ctx)

	if !viper.GetBool("enable-job-workers") {
		logger.Info().Msg("job workers disabled")
		return
	}

	for _, job := range jobs {
		for i := 0; i < job.Workers; i++ {
			logger.Debug().Dur("cadence", job.Cadence).Msg("starting job worker")
			go srv.JobWorker(ctx, job.Func, job.Cadence)
		}
	}
}
