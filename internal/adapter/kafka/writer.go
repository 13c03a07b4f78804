// Package kafka is the optional ranked-output sink: when brokers are
// configured, every scored feature (ranked and eliminated) is published to a
// topic keyed by candidate ID after the run completes.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/bess-site-scout/internal/config"
	"github.com/couchcryptid/bess-site-scout/internal/export"
)

// Writer produces scored features to a Kafka topic.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg config.Service, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// Publish serializes and writes the features in a single WriteMessages call.
// Keying on candidate ID keeps re-runs of the same region in the same
// partitions.
func (w *Writer) Publish(ctx context.Context, runID string, features []export.Feature) error {
	if len(features) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(features))
	for i := range features {
		msg, err := serializeToMessage(runID, features[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish scored features: %w", err)
	}
	w.logger.Info("published scored features", "count", len(features), "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals one scored feature into a Kafka message.
func serializeToMessage(runID string, f export.Feature) (kafkago.Message, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize scored feature: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(f.Properties.CandidateID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "schema_version", Value: []byte(f.Properties.SchemaVersion)},
			{Key: "run_id", Value: []byte(runID)},
		},
	}, nil
}
