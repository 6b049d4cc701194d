package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/quake-timeline/internal/config"
	"github.com/couchcryptid/quake-timeline/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer forwards applied event collections to a Kafka topic, one message
// per event keyed by event ID. It implements viewer.SnapshotSink.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured snapshot topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishSnapshot writes every event of snap in a single WriteMessages call.
// An empty snapshot is a no-op.
func (w *Writer) PublishSnapshot(ctx context.Context, snap domain.Snapshot) error {
	if len(snap.Events) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(snap.Events))
	for i := range snap.Events {
		msg, err := serializeToMessage(snap, snap.Events[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write snapshot %d: %w", snap.Generation, err)
	}
	w.logger.Debug("snapshot published", "generation", snap.Generation, "events", len(msgs), "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals one event of a snapshot into a Kafka message.
func serializeToMessage(snap domain.Snapshot, event domain.Event) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize event %s: %w", event.ID, err)
	}
	return kafkago.Message{
		Key:   []byte(event.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "generation", Value: []byte(strconv.FormatUint(snap.Generation, 10))},
			{Key: "query", Value: []byte(snap.Query.String())},
			{Key: "fetched_at", Value: []byte(snap.FetchedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
