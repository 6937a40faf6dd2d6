package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/sellora/marketplace/libs/clients/gateway"
	"github.com/sellora/marketplace/libs/clients/shipping"
	"github.com/sellora/marketplace/libs/datastore"
	"github.com/sellora/marketplace/libs/logging"
	"github.com/sellora/marketplace/services/checkout/model"
	"github.com/sellora/marketplace/services/checkout/storage/repository"

	appctx "github.com/sellora/marketplace/libs/context"
	kafkautils "github.com/sellora/marketplace/libs/kafka"
	srv "github.com/sellora/marketplace/libs/service"
)

const (
	defaultInvoiceDue     = 24 * time.Hour
	defaultParcelWeight   = 1000
	defaultCarrier        = "jne"
	defaultSettledTopic   = "marketplace.transaction.settled"
	outboxBatchSize       = 100
	outboxRelayCadence    = 5 * time.Second
	errPaymentNotPending  = model.Error("service: payment is no longer pending")
	errNoBrokersForOutbox = model.Error("service: settlement events are not published")
)

// Config holds the checkout knobs read from the context.
type Config struct {
	InvoiceDue       time.Duration
	ParcelWeight     int
	Carrier          string
	GatewayServerKey string
}

// Service turns carts into transactions and settles their payments.
type Service struct {
	Datastore Datastore

	customers CustomerDirectory
	catalog   CatalogReader
	stores    StoreDirectory
	methods   MethodDirectory
	vouchers  VoucherDirectory

	txns     transactionStore
	invoices invoiceStore
	items    itemStore
	payments paymentStore
	outbox   outboxStore

	shipping shipping.Client
	gateway  gateway.Client
	writer   kafkautils.Writer

	cfg  Config
	now  func() time.Time
	jobs []srv.Job
}

// Jobs - Implement srv.JobService interface
func (s *Service) Jobs() []srv.Job {
	return s.jobs
}

// Shipping exposes the rate provider for the reference data routes.
func (s *Service) Shipping() shipping.Client {
	return s.shipping
}

// GatewayServerKey is the key gateway notifications are signed with.
func (s *Service) GatewayServerKey() string {
	return s.cfg.GatewayServerKey
}

// InitService creates a service using the passed datastore and clients configured from the context
func InitService(ctx context.Context, db Datastore) (*Service, error) {
	sublogger := logging.Logger(ctx, "checkout").With().Str("func", "InitService").Logger()

	shippingClient, err := shipping.NewWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize shipping client: %w", err)
	}

	gatewayClient, err := gateway.NewWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gateway client: %w", err)
	}

	cfg := configFromContext(ctx)

	s := newService(db, shippingClient, gatewayClient, cfg)

	topic, err := appctx.GetStringFromContext(ctx, appctx.SettlementTopicCTXKey)
	if err != nil || topic == "" {
		topic = defaultSettledTopic
	}

	writer, err := kafkautils.InitKafkaWriter(ctx, topic)
	switch {
	case errors.Is(err, kafkautils.ErrNoBrokers):
		sublogger.Warn().Msg("no kafka brokers configured, settlement events stay in the outbox")
	case err != nil:
		return nil, fmt.Errorf("failed to initialize kafka: %w", err)
	default:
		s.writer = writer
		s.jobs = append(s.jobs, srv.Job{
			Func:    s.PublishSettlementEvents,
			Cadence: outboxRelayCadence,
			Workers: 1,
		})
	}

	sublogger.Info().
		Int("parcel_weight", cfg.ParcelWeight).
		Str("carrier", cfg.Carrier).
		Dur("invoice_due", cfg.InvoiceDue).
		Msg("checkout service initialized")

	return s, nil
}

func newService(db Datastore, sc shipping.Client, gc gateway.Client, cfg Config) *Service {
	return &Service{
		Datastore: db,
		customers: newCustomerDirectory(repository.NewCustomer()),
		catalog:   repository.NewCatalog(),
		stores:    repository.NewStore(),
		methods:   repository.NewMethod(),
		vouchers:  repository.NewVoucher(),
		txns:      repository.NewPromTransaction("transactions", repository.NewTransaction()),
		invoices:  repository.NewInvoice(),
		items:     repository.NewTransactionItem(),
		payments:  repository.NewPromPayment("payments", repository.NewPayment()),
		outbox:    repository.NewOutbox(),
		shipping:  sc,
		gateway:   gc,
		cfg:       cfg,
		now:       time.Now,
	}
}

func configFromContext(ctx context.Context) Config {
	cfg := Config{
		InvoiceDue:   defaultInvoiceDue,
		ParcelWeight: defaultParcelWeight,
		Carrier:      defaultCarrier,
	}

	if d, err := appctx.GetDurationFromContext(ctx, appctx.InvoiceDueCTXKey); err == nil && d > 0 {
		cfg.InvoiceDue = d
	}

	if w, err := appctx.GetIntFromContext(ctx, appctx.ShippingDefaultWeightCTXKey); err == nil && w > 0 {
		cfg.ParcelWeight = w
	}

	if c, err := appctx.GetStringFromContext(ctx, appctx.ShippingDefaultCarrierCTXKey); err == nil && c != "" {
		cfg.Carrier = c
	}

	cfg.GatewayServerKey, _ = appctx.GetStringFromContext(ctx, appctx.GatewayServerKeyCTXKey)

	return cfg
}

// Close releases the kafka writer.
func (s *Service) Close() error {
	if s.writer == nil {
		return nil
	}

	return s.writer.Close()
}

func persistErr(err error) error {
	return fmt.Errorf("%w: %w", model.ErrPersistence, err)
}

// lookupErr passes domain errors through and treats anything else as a storage failure.
func lookupErr(err error) error {
	var nf *model.NotFoundError
	if errors.As(err, &nf) {
		return err
	}

	return persistErr(err)
}

// txErr maps failures of the surrounding db transaction itself.
func txErr(err error) error {
	if errors.Is(err, datastore.ErrBeginTx) || errors.Is(err, datastore.ErrCommitTx) {
		return persistErr(err)
	}

	return err
}

func settledMessage(ev *model.OutboxEvent) kafka.Message {
	return kafka.Message{
		Key:   []byte(ev.Key),
		Value: ev.Payload,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(ev.Kind)},
			{Key: "event_id", Value: []byte(ev.ID.String())},
		},
	}
}
