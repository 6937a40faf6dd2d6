package checkoutcli

import (
	"context"
	"fmt"
	"net/http"
	"time"

	// pprof imports
	_ "net/http/pprof"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sellora/marketplace/cmd"
	"github.com/sellora/marketplace/libs/closers"
	appctx "github.com/sellora/marketplace/libs/context"
	"github.com/sellora/marketplace/libs/handlers"
	"github.com/sellora/marketplace/libs/logging"
	"github.com/sellora/marketplace/libs/middleware"
	"github.com/sellora/marketplace/services/checkout"
)

const idempotencyKeyPrefix = "checkout:idem:"

// RestRun - Main entrypoint of the REST subcommand
// This function takes a cobra command and starts up the
// checkout rest microservice.
func RestRun(command *cobra.Command, args []string) error {
	ctx := command.Context()
	logger := logging.FromContext(ctx)

	if dsn := viper.GetString("sentry-dsn"); dsn != "" {
		commit, _ := appctx.GetStringFromContext(ctx, appctx.CommitCTXKey)
		buildTime, _ := appctx.GetStringFromContext(ctx, appctx.BuildTimeCTXKey)

		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         dsn,
			Environment: viper.GetString("environment"),
			Release:     fmt.Sprintf("marketplace@%s-%s", commit, buildTime),
		}); err != nil {
			return fmt.Errorf("unable to setup reporting: %w", err)
		}
		// make sure exceptions go to sentry
		defer sentry.Flush(2 * time.Second)
	}

	ctx = withConfig(ctx)

	pg, err := checkout.NewPostgres(viper.GetString("datastore"), true)
	if err != nil {
		sentry.CaptureException(err)
		return fmt.Errorf("must be able to init postgres connection to start: %w", err)
	}

	svc, err := checkout.InitService(ctx, pg)
	if err != nil {
		sentry.CaptureException(err)
		return fmt.Errorf("checkout service initialization failed: %w", err)
	}
	defer closers.Log(ctx, svc)

	deps := map[string]handlers.Pinger{"postgres": pg}

	var idem middleware.IdempotencyStore
	if addr := viper.GetString("redis-addr"); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		defer closers.Log(ctx, rdb)

		idem = middleware.NewRedisIdempotencyStore(rdb, idempotencyKeyPrefix)
		deps["redis"] = redisPinger{rdb}
	} else {
		logger.Warn().Msg("no redis address configured, checkout requests are not idempotent")
	}

	r := cmd.SetupRouter(ctx, deps)

	r.Mount("/v1", checkout.Router(svc, idem))
	r.Mount("/v1/webhooks", checkout.WebhookRouter(svc))
	r.Mount("/v1/shipping", checkout.ShippingRouter(svc))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd.SetupJobWorkers(ctx, svc.Jobs())

	if viper.GetString("pprof-enabled") != "" {
		// pprof attaches routes to default serve mux
		// host:6061/debug/pprof/
		go func() {
			logger.Error().Err(http.ListenAndServe(":6061", http.DefaultServeMux)).Msg("pprof server stopped")
		}()
	}

	srv := http.Server{
		Addr:         viper.GetString("address"),
		Handler:      chi.ServerBaseContext(ctx, r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 20 * time.Second,
	}

	if err := srv.ListenAndServe(); err != nil {
		sentry.CaptureException(err)
		return fmt.Errorf("http server start failed: %w", err)
	}

	return nil
}

// withConfig places the command line params on the context the service and clients read them from
func withConfig(ctx context.Context) context.Context {
	ctx = context.WithValue(ctx, appctx.EnvironmentCTXKey, viper.GetString("environment"))

	ctx = context.WithValue(ctx, appctx.ShippingServerCTXKey, viper.GetString("shipping-server"))
	ctx = context.WithValue(ctx, appctx.ShippingAccessTokenCTXKey, viper.GetString("shipping-token"))
	ctx = context.WithValue(ctx, appctx.ShippingDefaultWeightCTXKey, viper.GetInt("shipping-default-weight"))
	ctx = context.WithValue(ctx, appctx.ShippingDefaultCarrierCTXKey, viper.GetString("shipping-default-carrier"))
	ctx = context.WithValue(ctx, appctx.ShippingCacheExpiryDurationCTXKey, viper.GetDuration("shipping-cache-expiry"))

	ctx = context.WithValue(ctx, appctx.GatewaySnapServerCTXKey, viper.GetString("gateway-snap-server"))
	ctx = context.WithValue(ctx, appctx.GatewayAPIServerCTXKey, viper.GetString("gateway-api-server"))
	ctx = context.WithValue(ctx, appctx.GatewayServerKeyCTXKey, viper.GetString("gateway-server-key"))
	ctx = context.WithValue(ctx, appctx.InvoiceDueCTXKey, viper.GetDuration("invoice-due"))

	ctx = context.WithValue(ctx, appctx.KafkaBrokersCTXKey, viper.GetString("kafka-brokers"))
	ctx = context.WithValue(ctx, appctx.SettlementTopicCTXKey, viper.GetString("settlement-topic"))
	ctx = context.WithValue(ctx, appctx.RedisAddrCTXKey, viper.GetString("redis-addr"))
	ctx = context.WithValue(ctx, appctx.RateLimitPerMinuteCTXKey, viper.GetInt("rate-limit-per-min"))

	return ctx
}

type redisPinger struct {
	rdb *redis.Client
}

func (p redisPinger) PingContext(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}
