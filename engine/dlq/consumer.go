package dlq

import (
	"context"
	"errors"
	"log/slog"

	"github.com/archon-intelligence/enrichment-pipeline/engine/event"
	"github.com/archon-intelligence/enrichment-pipeline/pkg/kafkautil"
	"github.com/segmentio/kafka-go"
)

// Consumer reads the DLQ topic and attempts to replay each entry onto the
// main enrichment topic. Same fetch-decode-commit shape as
// engine/consumer.Processor but without worker concurrency: DLQ replay is a
// low-volume, operator-triggered path, not a high-throughput fleet.
type Consumer struct {
	reader    kafkautil.Reader
	processor *Processor
	log       *slog.Logger
}

// NewConsumer builds a Consumer over reader, replaying through processor.
func NewConsumer(reader kafkautil.Reader, processor *Processor, log *slog.Logger) *Consumer {
	if log == nil {
		log = slog.Default()
	}
	return &Consumer{reader: reader, processor: processor, log: log}
}

// Run fetches DLQ entries and replays them until ctx is cancelled. An entry
// that fails to decode is committed and dropped (it can never replay
// correctly); an entry that fails to replay (producer unavailable) stops Run
// with that error before anything later is committed, so the entry stays
// uncommitted and the next run fetches it again.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		_, _, entry, err := event.Decode[Entry](ctx, msg)
		if err != nil {
			c.log.Error("malformed dlq entry, dropping", "error", err)
			c.commit(ctx, msg)
			continue
		}

		if err := c.processor.Replay(ctx, entry); err != nil {
			c.log.Error("dlq replay failed, will retry next pass",
				"document_id", entry.OriginalMessage.DocumentID, "error", err)
			return err
		}
		c.log.Info("dlq entry replayed", "document_id", entry.OriginalMessage.DocumentID, "category", entry.FailureCategory)
		c.commit(ctx, msg)
	}
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.log.Error("dlq commit failed", "error", err)
	}
}
