package checkout

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/segmentio/kafka-go"
	uuid "github.com/satori/go.uuid"

	"github.com/sellora/marketplace/libs/datastore"
	"github.com/sellora/marketplace/libs/logging"
)

// PublishSettlementEvents relays one batch of pending outbox events to kafka.
// It reports whether a full batch was sent so the worker can come straight back.
func (s *Service) PublishSettlementEvents(ctx context.Context) (bool, error) {
	if s.writer == nil {
		return false, errNoBrokersForOutbox
	}

	logger := logging.Logger(ctx, "checkout").With().Str("func", "PublishSettlementEvents").Logger()

	var sent int
	err := datastore.WithTx(ctx, s.Datastore, func(dbtx *sqlx.Tx) error {
		events, err := s.outbox.FetchPending(ctx, dbtx, outboxBatchSize)
		if err != nil {
			return err
		}

		if len(events) == 0 {
			return nil
		}

		msgs := make([]kafka.Message, 0, len(events))
		ids := make([]uuid.UUID, 0, len(events))
		for _, ev := range events {
			msgs = append(msgs, settledMessage(ev))
			ids = append(ids, ev.ID)
		}

		// Rows stay locked until commit, so a failed write is retried on the next run.
		if err := s.writer.WriteMessages(ctx, msgs...); err != nil {
			return err
		}

		if err := s.outbox.MarkPublished(ctx, dbtx, ids, s.now()); err != nil {
			return err
		}

		sent = len(events)

		return nil
	})
	if err != nil {
		logger.Error().Err(err).Msg("failed to publish settlement events")
		return false, err
	}

	if sent > 0 {
		logger.Debug().Int("events", sent).Msg("settlement events published")
	}

	return sent == outboxBatchSize, nil
}
