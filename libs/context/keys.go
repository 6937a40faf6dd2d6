package context

import "errors"

// CTXKey - a type for context keys
type CTXKey string

const (
	// DatastoreCTXKey - the context key for getting the datastore
	DatastoreCTXKey CTXKey = "datastore"
	// DatabaseTransactionCTXKey - context key for database transactions
	DatabaseTransactionCTXKey CTXKey = "db_tx"
	// EnvironmentCTXKey - the key used for service context
	EnvironmentCTXKey CTXKey = "environment"
	// DebugLoggingCTXKey - context key for debug logging
	DebugLoggingCTXKey CTXKey = "debug_logging"
	// LogLevelCTXKey - context key for application logging level
	LogLevelCTXKey CTXKey = "log_level"
	// LogWriterCTXKey - the context key for getting the log writer
	LogWriterCTXKey CTXKey = "log_writer"

	// VersionCTXKey - context key for version of code
	VersionCTXKey CTXKey = "version"
	// CommitCTXKey - context key for the commit of the code
	CommitCTXKey CTXKey = "commit"
	// BuildTimeCTXKey - context key for the build time of code
	BuildTimeCTXKey CTXKey = "build_time"

	// CustomerIDCTXKey - context key for the authenticated customer id
	CustomerIDCTXKey CTXKey = "customer_id"

	// ShippingServerCTXKey - the context key for the shipping rate provider address
	ShippingServerCTXKey CTXKey = "shipping_server"
	// ShippingAccessTokenCTXKey - the context key for the shipping rate provider token
	ShippingAccessTokenCTXKey CTXKey = "shipping_access_token"
	// ShippingDefaultWeightCTXKey - the context key for the parcel weight used when quoting, in grams
	ShippingDefaultWeightCTXKey CTXKey = "shipping_default_weight"
	// ShippingDefaultCarrierCTXKey - the context key for the carrier used when quoting
	ShippingDefaultCarrierCTXKey CTXKey = "shipping_default_carrier"
	// ShippingCacheExpiryDurationCTXKey - context key for reference data cache expiry
	ShippingCacheExpiryDurationCTXKey CTXKey = "shipping_cache_expiry"

	// GatewaySnapServerCTXKey - the context key for the payment gateway intent endpoint
	GatewaySnapServerCTXKey CTXKey = "gateway_snap_server"
	// GatewayAPIServerCTXKey - the context key for the payment gateway status endpoint
	GatewayAPIServerCTXKey CTXKey = "gateway_api_server"
	// GatewayServerKeyCTXKey - the context key for the payment gateway server key
	GatewayServerKeyCTXKey CTXKey = "gateway_server_key"

	// InvoiceDueCTXKey - context key for how long an invoice stays payable
	InvoiceDueCTXKey CTXKey = "invoice_due"

	// KafkaBrokersCTXKey - context key for the kafka brokers
	KafkaBrokersCTXKey CTXKey = "kafka_brokers"
	// SettlementTopicCTXKey - context key for the topic settlement events go to
	SettlementTopicCTXKey CTXKey = "settlement_topic"

	// RedisAddrCTXKey - context key for the redis address used for idempotency keys
	RedisAddrCTXKey CTXKey = "redis_addr"

	// RateLimitPerMinuteCTXKey - context key for the rate limit per minute
	RateLimitPerMinuteCTXKey CTXKey = "rate_limit_per_min"
	// RateLimiterBurstCTXKey - context key for setting the rate limiter burst value
	RateLimiterBurstCTXKey CTXKey = "rate_limit_burst"
)

var (
	// ErrNotInContext - error you get when you ask for something not in the context.
	ErrNotInContext = errors.New("failed to get value from context")
	// ErrValueWrongType - error you get when you ask for something not in the context.
	ErrValueWrongType = errors.New("context value of wrong type")
)
