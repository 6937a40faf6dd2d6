package kafka

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	appctx "github.com/sellora/marketplace/libs/context"
	"github.com/sellora/marketplace/libs/logging"
)

// ErrNoBrokers is returned when no kafka brokers are configured
var ErrNoBrokers = errors.New("kafka: no brokers configured")

// Writer defines methods for producing kafka messages
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// InitKafkaWriter - create a kafka writer given a topic. Messages with the same key
// land on the same partition.
func InitKafkaWriter(ctx context.Context, topic string) (*kafka.Writer, error) {
	logger := logging.Logger(ctx, "kafka.InitKafkaWriter")

	kafkaBrokers, _ := ctx.Value(appctx.KafkaBrokersCTXKey).(string)
	if kafkaBrokers == "" {
		return nil, ErrNoBrokers
	}

	transport := &kafka.Transport{
		DialTimeout: 10 * time.Second,
	}

	tlsConfig, err := tlsConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("kafka: failed to load tls config: %w", err)
	}
	transport.TLS = tlsConfig

	w := &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(kafkaBrokers, ",")...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
		Transport:    transport,
		ErrorLogger:  kafka.LoggerFunc(logger.Printf),
	}

	logger.Info().Str("topic", topic).Bool("tls", tlsConfig != nil).Msg("kafka writer initialized")

	return w, nil
}

// tlsConfigFromEnv builds a client tls config when KAFKA_SSL_CERTIFICATE_LOCATION is set
func tlsConfigFromEnv() (*tls.Config, error) {
	certLoc := os.Getenv("KAFKA_SSL_CERTIFICATE_LOCATION")
	if certLoc == "" {
		return nil, nil
	}

	keyLoc := os.Getenv("KAFKA_SSL_KEY_LOCATION")
	if keyLoc == "" {
		return nil, errors.New("KAFKA_SSL_KEY_LOCATION must be passed")
	}

	certificate, err := tls.LoadX509KeyPair(certLoc, keyLoc)
	if err != nil {
		return nil, err
	}

	config := &tls.Config{
		Certificates: []tls.Certificate{certificate},
		MinVersion:   tls.VersionTLS12,
	}

	if caLoc := os.Getenv("KAFKA_SSL_CA_LOCATION"); caLoc != "" {
		caPEM, err := os.ReadFile(caLoc)
		if err != nil {
			return nil, err
		}

		pool := x509.NewCertPool()
		if ok := pool.AppendCertsFromPEM(caPEM); !ok {
			return nil, errors.New("could not add custom CA from KAFKA_SSL_CA_LOCATION")
		}
		config.RootCAs = pool
	}

	return config, nil
}
