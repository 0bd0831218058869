package kafka

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/turtacn/molrank/internal/config"
	"github.com/turtacn/molrank/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molrank/pkg/errors"
)

// Handler processes one decoded event payload.  A non-nil error marks the
// message failed; the consumer logs it and moves on, so handlers own their
// retries.
type Handler func(ctx context.Context, eventType string, payload json.RawMessage) error

// readerInterface abstracts kafka.Reader for testing.
type readerInterface interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer runs a fetch-process-commit loop over the request topic.
type Consumer struct {
	reader  readerInterface
	handler Handler
	logger  logging.Logger

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	processed atomic.Int64
	failed    atomic.Int64
}

// NewConsumer builds a group consumer for the ranking request topic.
func NewConsumer(cfg config.KafkaConfig, handler Handler, logger logging.Logger) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "kafka brokers are required")
	}
	if cfg.GroupID == "" {
		return nil, errors.New(errors.ErrCodeValidation, "kafka group_id is required")
	}
	if cfg.RequestTopic == "" {
		return nil, errors.New(errors.ErrCodeValidation, "kafka request_topic is required")
	}
	if handler == nil {
		return nil, errors.New(errors.ErrCodeValidation, "consumer handler is required")
	}

	minBytes := cfg.MinBytes
	if minBytes <= 0 {
		minBytes = 1
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 10 * 1024 * 1024
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		Topic:       cfg.RequestTopic,
		MinBytes:    minBytes,
		MaxBytes:    maxBytes,
		StartOffset: kafka.FirstOffset,
	})
	return &Consumer{reader: reader, handler: handler, logger: logger}, nil
}

// newConsumerWithReader wires a test double in place of the real reader.
func newConsumerWithReader(r readerInterface, handler Handler, logger logging.Logger) *Consumer {
	return &Consumer{reader: r, handler: handler, logger: logger}
}

// Start launches the consume loop.  It returns immediately; use Close to
// stop and wait.
func (c *Consumer) Start(ctx context.Context) error {
	if c.running.Swap(true) {
		return errors.New(errors.ErrCodeConflict, "consumer is already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.wg.Add(1)
	go c.loop(ctx)

	c.logger.Info("Kafka consumer started")
	return nil
}

func (c *Consumer) loop(ctx context.Context) {
	defer c.wg.Done()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("fetch failed", logging.Err(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		c.handleMessage(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("commit failed",
				logging.String("topic", msg.Topic),
				logging.Int64("offset", msg.Offset),
				logging.Err(err))
		}
	}
}

func (c *Consumer) handleMessage(ctx context.Context, msg kafka.Message) {
	eventType, payload, err := DecodeEvent(msg.Value)
	if err != nil {
		// Undecodable messages are committed and dropped; redelivery cannot
		// fix them.
		c.failed.Add(1)
		c.logger.Error("dropping undecodable message",
			logging.String("topic", msg.Topic),
			logging.Int64("offset", msg.Offset),
			logging.Err(err))
		return
	}

	if err := c.handler(ctx, eventType, payload); err != nil {
		c.failed.Add(1)
		c.logger.Error("message handling failed",
			logging.String("event_type", eventType),
			logging.Int64("offset", msg.Offset),
			logging.Err(err))
		return
	}
	c.processed.Add(1)
}

// Stats reports processed/failed message counts.
func (c *Consumer) Stats() (processed, failed int64) {
	return c.processed.Load(), c.failed.Load()
}

// Close stops the loop, waits for it to drain, and closes the reader.
func (c *Consumer) Close() error {
	if !c.running.CompareAndSwap(true, false) {
		return nil
	}
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()

	err := c.reader.Close()
	c.logger.Info("Kafka consumer closed",
		logging.Int64("processed", c.processed.Load()),
		logging.Int64("failed", c.failed.Load()))
	return err
}
