package kafka

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/storm-windfield/internal/config"
	"github.com/couchcryptid/storm-windfield/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Reader consumes scenario messages from a Kafka topic using a consumer group.
// It implements pipeline.BatchExtractor.
type Reader struct {
	reader        *kafkago.Reader
	flushInterval time.Duration
	logger        *slog.Logger
}

// NewReader creates a consumer-group reader for the configured source topic.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       cfg.KafkaSourceTopic,
		GroupID:     cfg.KafkaGroupID,
		StartOffset: kafkago.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	interval := cfg.BatchFlushInterval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &Reader{reader: r, flushInterval: interval, logger: logger}
}

// ExtractBatch fetches up to n messages. It waits for the first message for
// as long as ctx allows, then keeps filling the batch until the flush
// interval elapses. Offsets are not committed here; each scenario carries a
// Commit callback the pipeline invokes once its records are delivered.
func (r *Reader) ExtractBatch(ctx context.Context, n int) ([]domain.RawScenario, error) {
	batch := make([]domain.RawScenario, 0, n)

	first, err := r.reader.FetchMessage(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	batch = append(batch, r.toRaw(first))

	fillCtx, cancel := context.WithTimeout(ctx, r.flushInterval)
	defer cancel()
	for len(batch) < n {
		msg, err := r.reader.FetchMessage(fillCtx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || fillCtx.Err() != nil {
				break
			}
			return batch, err
		}
		batch = append(batch, r.toRaw(msg))
	}
	r.logger.Debug("batch extracted", "size", len(batch))
	return batch, nil
}

func (r *Reader) toRaw(msg kafkago.Message) domain.RawScenario {
	raw := mapMessageToRawScenario(msg)
	raw.Commit = func(ctx context.Context) error {
		return r.reader.CommitMessages(ctx, msg)
	}
	return raw
}

// Close leaves the consumer group and releases the connection.
func (r *Reader) Close() error {
	return r.reader.Close()
}

func mapMessageToRawScenario(msg kafkago.Message) domain.RawScenario {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return domain.RawScenario{
		Key:       msg.Key,
		Value:     msg.Value,
		Headers:   headers,
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
	}
}
