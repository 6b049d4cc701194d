//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/couchcryptid/quake-timeline/internal/adapter/kafka"
	"github.com/couchcryptid/quake-timeline/internal/config"
	"github.com/couchcryptid/quake-timeline/internal/domain"
	"github.com/couchcryptid/quake-timeline/internal/observability"
	"github.com/couchcryptid/quake-timeline/internal/viewer"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTopic = "test-earthquake-snapshots"

type fixtureFeed struct {
	events []domain.Event
}

func (f fixtureFeed) Fetch(_ context.Context, _ domain.Query) ([]domain.Event, error) {
	return f.events, nil
}

func loadFixtureEvents(t *testing.T) []domain.Event {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "domain", "testdata", "feed_sample.json"))
	require.NoError(t, err)
	events, _, err := domain.ParseFeatureCollection(data)
	require.NoError(t, err)
	return events
}

// TestSessionPublishesSnapshotToKafka wires a viewer session to the Kafka
// writer and reads the forwarded collection back from the topic.
func TestSessionPublishesSnapshotToKafka(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	cfg := &config.Config{
		KafkaEnabled: true,
		KafkaBrokers: []string{broker},
		KafkaTopic:   testTopic,
	}
	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	events := loadFixtureEvents(t)
	session := viewer.New(fixtureFeed{events: events}, discardLogger(), observability.NewMetricsForTesting(),
		viewer.Options{Sink: writer})
	t.Cleanup(func() { _ = session.Close() })

	q := domain.Query{
		StartDate:    time.Date(2024, time.April, 20, 0, 0, 0, 0, time.UTC),
		EndDate:      time.Date(2024, time.April, 27, 0, 0, 0, 0, time.UTC),
		MinMagnitude: 2.5,
		Limit:        1000,
	}
	done, err := session.SetQuery(q)
	require.NoError(t, err)
	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("fetch did not settle")
	}

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	want := make(map[string]domain.Event, len(events))
	for _, e := range events {
		want[e.ID] = e
	}

	for range events {
		readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
		msg, err := consumer.ReadMessage(readCtx)
		readCancel()
		require.NoError(t, err, "read from snapshot topic")

		headers := make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			headers[h.Key] = string(h.Value)
		}
		assert.Equal(t, strconv.FormatUint(1, 10), headers["generation"])
		assert.Equal(t, q.String(), headers["query"])
		_, err = time.Parse(time.RFC3339, headers["fetched_at"])
		assert.NoError(t, err, "fetched_at should be valid RFC3339")

		var got domain.Event
		require.NoError(t, json.Unmarshal(msg.Value, &got))
		expected, ok := want[string(msg.Key)]
		require.True(t, ok, "unexpected key %s", msg.Key)
		assert.Equal(t, expected.ID, got.ID)
		assert.Equal(t, expected.TimeMs, got.TimeMs)
		assert.Equal(t, expected.Place, got.Place)
		assert.Equal(t, expected.HasValidCoordinates(), got.HasValidCoordinates())
		delete(want, expected.ID)
	}
	assert.Empty(t, want, "every event is forwarded once")
}

// TestWriterRejectsUnreachableBroker checks that a dead broker surfaces as an
// error from the sink rather than blocking the caller forever.
func TestWriterRejectsUnreachableBroker(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	cfg := &config.Config{KafkaBrokers: []string{"127.0.0.1:1"}, KafkaTopic: testTopic}
	writer := kafka.NewWriter(cfg, discardLogger())
	defer writer.Close()

	err := writer.PublishSnapshot(ctx, domain.Snapshot{
		Generation: 1,
		Events:     []domain.Event{{ID: "x", TimeMs: 1}},
		FetchedAt:  time.Now(),
	})
	assert.Error(t, err)
}
