package checkoutcli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/sellora/marketplace/cmd"
)

var (
	// CheckoutCmd is the checkout micro-service entrypoint
	CheckoutCmd = &cobra.Command{
		Use:   "checkout",
		Short: "provides checkout micro-service entrypoint",
	}

	checkoutRestCmd = &cobra.Command{
		Use:   "rest",
		Short: "provides REST api services",
		Run:   cmd.Perform("checkout rest", RestRun),
	}
)

func init() {
	CheckoutCmd.AddCommand(checkoutRestCmd)
	cmd.ServeCmd.AddCommand(CheckoutCmd)

	fb := cmd.NewFlagBuilder(checkoutRestCmd)

	fb.Flag().String("datastore", "",
		"the datastore for the checkout service").
		Bind().
		Env("DATABASE_URL")

	// shipping rate provider
	fb.Flag().String("shipping-server", "",
		"the shipping rate provider address").
		Bind().
		Env("SHIPPING_SERVER")

	fb.Flag().String("shipping-token", "",
		"the shipping rate provider token").
		Bind().
		Env("SHIPPING_TOKEN")

	fb.Flag().Int("shipping-default-weight", 1000,
		"the parcel weight quoted for every store, in grams").
		Bind().
		Env("SHIPPING_DEFAULT_WEIGHT")

	fb.Flag().String("shipping-default-carrier", "jne",
		"the carrier quoted for every store").
		Bind().
		Env("SHIPPING_DEFAULT_CARRIER")

	fb.Flag().Duration("shipping-cache-expiry", time.Hour,
		"how long provinces and cities are cached").
		Bind().
		Env("SHIPPING_CACHE_EXPIRY")

	// payment gateway
	fb.Flag().String("gateway-snap-server", "",
		"the payment gateway address intents are created at").
		Bind().
		Env("GATEWAY_SNAP_SERVER")

	fb.Flag().String("gateway-api-server", "",
		"the payment gateway address statuses are read from").
		Bind().
		Env("GATEWAY_API_SERVER")

	fb.Flag().String("gateway-server-key", "",
		"the payment gateway server key").
		Bind().
		Env("GATEWAY_SERVER_KEY")

	fb.Flag().Duration("invoice-due", 24*time.Hour,
		"how long an invoice stays payable").
		Bind().
		Env("INVOICE_DUE")

	// settlement events
	fb.Flag().String("kafka-brokers", "",
		"comma separated kafka brokers settlement events are published to").
		Bind().
		Env("KAFKA_BROKERS")

	fb.Flag().String("settlement-topic", "marketplace.transaction.settled",
		"the topic settlement events are published to").
		Bind().
		Env("SETTLEMENT_TOPIC")

	fb.Flag().String("redis-addr", "",
		"the redis address idempotency keys are kept at, idempotency is off when empty").
		Bind().
		Env("REDIS_ADDR")

	fb.Flag().String("sentry-dsn", "",
		"the sentry dsn errors are reported to").
		Bind().
		Env("SENTRY_DSN")
}
