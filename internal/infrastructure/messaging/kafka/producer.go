package kafka

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/molrank/internal/config"
	"github.com/turtacn/molrank/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molrank/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/molrank/pkg/errors"
)

// writerInterface abstracts kafka.Writer for testing.
type writerInterface interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes ranking events.  Messages are keyed by dataset ID so
// events for one dataset stay ordered within a partition.
type Producer struct {
	writer  writerInterface
	cfg     config.KafkaConfig
	logger  logging.Logger
	metrics *prometheus.AppMetrics
	closed  atomic.Bool
}

// NewProducer builds a producer from configuration.
func NewProducer(cfg config.KafkaConfig, logger logging.Logger) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "kafka brokers are required")
	}

	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = time.Second
	}
	maxAttempts := cfg.ProducerRetries + 1
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		MaxAttempts:  maxAttempts,
		BatchTimeout: batchTimeout,
		RequiredAcks: kafka.RequireAll,
	}
	return &Producer{writer: writer, cfg: cfg, logger: logger}, nil
}

// newProducerWithWriter wires a test double in place of the real writer.
func newProducerWithWriter(w writerInterface, cfg config.KafkaConfig, logger logging.Logger) *Producer {
	return &Producer{writer: w, cfg: cfg, logger: logger}
}

// SetMetrics enables per-topic publish counters.  Safe to leave unset.
func (p *Producer) SetMetrics(m *prometheus.AppMetrics) {
	p.metrics = m
}

// PublishRankingRequested enqueues a ranking request for the worker.
func (p *Producer) PublishRankingRequested(ctx context.Context, ev RankingRequested) error {
	return p.publish(ctx, p.cfg.RequestTopic, EventTypeRankingRequested, ev.DatasetID.String(), ev)
}

// PublishRankingCompleted announces a finished ranking run.
func (p *Producer) PublishRankingCompleted(ctx context.Context, ev RankingCompleted) error {
	return p.publish(ctx, p.cfg.CompletedTopic, EventTypeRankingCompleted, ev.DatasetID.String(), ev)
}

func (p *Producer) publish(ctx context.Context, topic, eventType, key string, payload interface{}) error {
	if p.closed.Load() {
		return errors.New(errors.ErrCodeMessagingError, "producer is closed")
	}
	if topic == "" {
		return errors.New(errors.ErrCodeValidation, "event topic is not configured")
	}

	value, err := EncodeEvent(eventType, payload)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
		},
	}
	err = p.writer.WriteMessages(ctx, msg)
	prometheus.RecordMessageProduced(p.metrics, topic, err)
	if err != nil {
		return errors.Wrapf(err, errors.ErrCodeMessagingError, "failed to publish %s", eventType)
	}

	p.logger.Debug("event published",
		logging.String("topic", topic),
		logging.String("event_type", eventType),
		logging.String("key", key))
	return nil
}

// Close flushes and shuts the writer down.  Safe to call more than once.
func (p *Producer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := p.writer.Close(); err != nil {
		p.logger.Error("failed to close Kafka producer", logging.Err(err))
		return err
	}
	p.logger.Info("Kafka producer closed")
	return nil
}
