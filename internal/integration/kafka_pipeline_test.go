//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/couchcryptid/storm-windfield/internal/adapter/kafka"
	"github.com/couchcryptid/storm-windfield/internal/config"
	"github.com/couchcryptid/storm-windfield/internal/domain"
	"github.com/couchcryptid/storm-windfield/internal/observability"
	"github.com/couchcryptid/storm-windfield/internal/pipeline"
	"github.com/couchcryptid/storm-windfield/internal/windfield"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSourceTopic = "test-scenarios"
	testSinkTopic   = "test-station-winds"
)

// sinkMessage holds a deserialized station record read from the sink topic.
type sinkMessage struct {
	Record  domain.StationRecord
	Key     string
	Headers map[string]string
}

// readRecord reads a single message from the sink consumer and deserializes it.
func readRecord(ctx context.Context, t *testing.T, consumer *kafkago.Reader) sinkMessage {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from sink topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var rec domain.StationRecord
	require.NoError(t, json.Unmarshal(msg.Value, &rec), "unmarshal sink message")

	return sinkMessage{Record: rec, Key: string(msg.Key), Headers: headers}
}

func loadFixture(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile("../pipeline/testdata/scenario.json")
	require.NoError(t, err)
	return data
}

func testConfig(broker, group string) *config.Config {
	return &config.Config{
		KafkaBrokers:       []string{broker},
		KafkaSourceTopic:   testSourceTopic,
		KafkaSinkTopic:     testSinkTopic,
		KafkaGroupID:       fmt.Sprintf("%s-%d", group, time.Now().UnixNano()),
		BatchFlushInterval: 5 * time.Second,
	}
}

func newSinkConsumer(broker string) *kafkago.Reader {
	return kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testSinkTopic,
		GroupID:     fmt.Sprintf("test-sink-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
}

// TestKafkaReaderWriter verifies the adapter layer: kafka.Reader (Extractor) and
// kafka.Writer (Loader) correctly round-trip a scenario and its records.
func TestKafkaReaderWriter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)

	cfg := testConfig(broker, "test-reader")
	payload := loadFixture(t)

	producer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testSourceTopic}
	t.Cleanup(func() { _ = producer.Close() })
	require.NoError(t, producer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte("fixture-northbound"),
		Value: payload,
	}))

	// Retry because the consumer group may need time to rebalance before
	// partitions are assigned and messages become available.
	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	var batch []domain.RawScenario
	for {
		var err error
		batch, err = reader.ExtractBatch(ctx, 1)
		require.NoError(t, err)
		if len(batch) > 0 {
			break
		}
		if ctx.Err() != nil {
			t.Fatal("timed out waiting for message from source topic")
		}
	}
	require.Len(t, batch, 1)
	raw := batch[0]
	assert.Equal(t, []byte("fixture-northbound"), raw.Key)
	assert.Equal(t, payload, raw.Value)
	assert.Equal(t, testSourceTopic, raw.Topic)
	require.NotNil(t, raw.Commit, "commit callback should be set")
	require.NoError(t, raw.Commit(ctx))

	simulator := pipeline.NewSimulator(&windfield.Builder{
		Physics:         windfield.DefaultPhysics(),
		SolverWorkers:   2,
		EnsembleWorkers: 2,
		Logger:          discardLogger(),
	}, discardLogger())
	msgs, err := simulator.Simulate(ctx, raw)
	require.NoError(t, err)
	require.Len(t, msgs, 4)

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })
	require.NoError(t, writer.LoadBatch(ctx, msgs))

	consumer := newSinkConsumer(broker)
	t.Cleanup(func() { _ = consumer.Close() })

	seen := map[string]bool{}
	for range msgs {
		sm := readRecord(ctx, t, consumer)
		assert.Equal(t, "fixture-northbound", sm.Headers["scenario_id"])
		_, err := time.Parse(time.RFC3339, sm.Headers["simulated_at"])
		assert.NoError(t, err, "simulated_at should be valid RFC3339")
		assert.Equal(t, sm.Key, sm.Record.StationID)
		assert.Len(t, sm.Record.PeakSpeeds, 3)
		assert.Equal(t, domain.GustDuration, sm.Record.GustDuration)
		seen[sm.Headers["realization"]+"/"+sm.Key] = true
	}
	assert.Equal(t, map[string]bool{
		"0/miami": true, "0/nassau": true, "1/miami": true, "1/nassau": true,
	}, seen)
}

// TestPipelineEndToEnd wires the full pipeline (Reader → Simulator → Writer)
// with real Kafka, including a poison-pill scenario that must be skipped.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testSourceTopic)
	createTopic(t, broker, testSinkTopic)

	cfg := testConfig(broker, "test-pipeline")

	producer := &kafkago.Writer{Addr: kafkago.TCP(broker), Topic: testSourceTopic}
	t.Cleanup(func() { _ = producer.Close() })
	require.NoError(t, producer.WriteMessages(ctx,
		kafkago.Message{Key: []byte("bad"), Value: []byte("not-json{{{")},
		kafkago.Message{Key: []byte("good"), Value: loadFixture(t)},
	))

	reader := kafka.NewReader(cfg, discardLogger())
	t.Cleanup(func() { _ = reader.Close() })

	metrics := observability.NewMetricsForTesting()
	simulator := pipeline.NewSimulator(&windfield.Builder{
		Physics:         windfield.DefaultPhysics(),
		SolverWorkers:   2,
		EnsembleWorkers: 2,
		Logger:          discardLogger(),
		Metrics:         metrics,
	}, discardLogger())

	writer := kafka.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	p := pipeline.New(reader, simulator, writer, discardLogger(), metrics, 50)

	pipelineCtx, pipelineCancel := context.WithCancel(ctx)
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(pipelineCtx) }()

	consumer := newSinkConsumer(broker)
	t.Cleanup(func() { _ = consumer.Close() })

	received := make([]sinkMessage, 0, 4)
	for len(received) < 4 {
		received = append(received, readRecord(ctx, t, consumer))
	}

	// The poison pill produced nothing.
	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err := consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no further messages on sink topic")

	pipelineCancel()
	require.NoError(t, <-errCh)

	// Miami sits under the track; Nassau stays outside the mesh and keeps
	// zero peaks.
	for _, sm := range received {
		assert.True(t, sm.Record.Finite, "station %s", sm.Key)
		for _, v := range sm.Record.PeakSpeeds {
			if sm.Key == "miami" {
				assert.Greater(t, v, 0.0)
			} else {
				assert.Zero(t, v)
			}
		}
	}
	require.NoError(t, p.CheckReadiness(ctx))
}
