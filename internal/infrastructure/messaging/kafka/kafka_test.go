package kafka

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	segkafka "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/molrank/internal/config"
	"github.com/turtacn/molrank/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molrank/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/molrank/pkg/errors"
	"github.com/turtacn/molrank/pkg/types/common"
)

func TestEncodeDecodeEvent(t *testing.T) {
	ev := RankingRequested{
		RequestID:   common.NewID(),
		DatasetID:   common.NewID(),
		Objectives:  []string{"potency", "toxicity"},
		Directions:  []string{"max", "min"},
		RequestedAt: time.Now().UTC().Truncate(time.Second),
	}

	data, err := EncodeEvent(EventTypeRankingRequested, ev)
	require.NoError(t, err)

	eventType, payload, err := DecodeEvent(data)
	require.NoError(t, err)
	assert.Equal(t, EventTypeRankingRequested, eventType)

	var got RankingRequested
	require.NoError(t, json.Unmarshal(payload, &got))
	assert.Equal(t, ev, got)
}

func TestDecodeEvent_Invalid(t *testing.T) {
	_, _, err := DecodeEvent([]byte("not json"))
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSerialization))

	_, _, err = DecodeEvent([]byte(`{"payload":{}}`))
	require.Error(t, err)
}

type capturingWriter struct {
	mu   sync.Mutex
	msgs []segkafka.Message
	err  error
}

func (w *capturingWriter) WriteMessages(_ context.Context, msgs ...segkafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *capturingWriter) Close() error { return nil }

func kafkaTestConfig() config.KafkaConfig {
	return config.KafkaConfig{
		Brokers:        []string{"localhost:9092"},
		GroupID:        "molrank-worker",
		RequestTopic:   "molrank.ranking.requested",
		CompletedTopic: "molrank.ranking.completed",
	}
}

func TestProducer_PublishRankingRequested(t *testing.T) {
	w := &capturingWriter{}
	p := newProducerWithWriter(w, kafkaTestConfig(), logging.NewNop())

	ev := RankingRequested{RequestID: common.NewID(), DatasetID: common.NewID()}
	require.NoError(t, p.PublishRankingRequested(context.Background(), ev))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "molrank.ranking.requested", msg.Topic)
	assert.Equal(t, ev.DatasetID.String(), string(msg.Key))

	eventType, payload, err := DecodeEvent(msg.Value)
	require.NoError(t, err)
	assert.Equal(t, EventTypeRankingRequested, eventType)
	var got RankingRequested
	require.NoError(t, json.Unmarshal(payload, &got))
	assert.Equal(t, ev.RequestID, got.RequestID)
}

func TestProducer_WriteFailure(t *testing.T) {
	w := &capturingWriter{err: io.ErrClosedPipe}
	p := newProducerWithWriter(w, kafkaTestConfig(), logging.NewNop())

	err := p.PublishRankingCompleted(context.Background(), RankingCompleted{DatasetID: common.NewID()})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeMessagingError))
}

func TestProducer_ClosedAndMissingTopic(t *testing.T) {
	p := newProducerWithWriter(&capturingWriter{}, config.KafkaConfig{Brokers: []string{"b"}}, logging.NewNop())
	err := p.PublishRankingRequested(context.Background(), RankingRequested{})
	require.Error(t, err) // no topic configured

	p = newProducerWithWriter(&capturingWriter{}, kafkaTestConfig(), logging.NewNop())
	require.NoError(t, p.Close())
	require.NoError(t, p.Close()) // idempotent
	err = p.PublishRankingRequested(context.Background(), RankingRequested{})
	assert.True(t, errors.IsCode(err, errors.ErrCodeMessagingError))
}

func TestProducer_RecordsPublishCounters(t *testing.T) {
	collector, err := prometheus.NewMetricsCollector(
		prometheus.CollectorConfig{Namespace: "molrank"}, logging.NewNop())
	require.NoError(t, err)
	m := prometheus.NewAppMetrics(collector)

	w := &capturingWriter{}
	p := newProducerWithWriter(w, kafkaTestConfig(), logging.NewNop())
	p.SetMetrics(m)

	require.NoError(t, p.PublishRankingCompleted(context.Background(), RankingCompleted{DatasetID: common.NewID()}))
	w.err = io.ErrClosedPipe
	require.Error(t, p.PublishRankingCompleted(context.Background(), RankingCompleted{DatasetID: common.NewID()}))

	rec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, `molrank_messages_produced_total{status="success",topic="molrank.ranking.completed"} 1`)
	assert.Contains(t, body, `molrank_messages_produced_total{status="failure",topic="molrank.ranking.completed"} 1`)
}

func TestNewProducer_Validation(t *testing.T) {
	_, err := NewProducer(config.KafkaConfig{}, logging.NewNop())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

type scriptedReader struct {
	mu        sync.Mutex
	msgs      []segkafka.Message
	committed []segkafka.Message
}

func (r *scriptedReader) FetchMessage(ctx context.Context) (segkafka.Message, error) {
	r.mu.Lock()
	if len(r.msgs) == 0 {
		r.mu.Unlock()
		// Block until cancelled, like a quiet topic.
		<-ctx.Done()
		return segkafka.Message{}, ctx.Err()
	}
	msg := r.msgs[0]
	r.msgs = r.msgs[1:]
	r.mu.Unlock()
	return msg, nil
}

func (r *scriptedReader) CommitMessages(_ context.Context, msgs ...segkafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.committed = append(r.committed, msgs...)
	return nil
}

func (r *scriptedReader) Close() error { return nil }

func TestConsumer_ProcessesAndCommits(t *testing.T) {
	good, err := EncodeEvent(EventTypeRankingRequested, RankingRequested{DatasetID: common.NewID()})
	require.NoError(t, err)

	reader := &scriptedReader{msgs: []segkafka.Message{
		{Topic: "molrank.ranking.requested", Offset: 1, Value: good},
		{Topic: "molrank.ranking.requested", Offset: 2, Value: []byte("garbage")},
	}}

	var handled []string
	var mu sync.Mutex
	done := make(chan struct{})
	handler := func(_ context.Context, eventType string, _ json.RawMessage) error {
		mu.Lock()
		handled = append(handled, eventType)
		mu.Unlock()
		close(done)
		return nil
	}

	c := newConsumerWithReader(reader, handler, logging.NewNop())
	require.NoError(t, c.Start(context.Background()))
	require.Error(t, c.Start(context.Background())) // already running

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handler was not invoked")
	}
	require.NoError(t, c.Close())
	require.NoError(t, c.Close()) // idempotent

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{EventTypeRankingRequested}, handled)

	processed, failed := c.Stats()
	assert.Equal(t, int64(1), processed)
	assert.Equal(t, int64(1), failed) // the garbage message

	reader.mu.Lock()
	defer reader.mu.Unlock()
	assert.Len(t, reader.committed, 2) // both messages committed
}

func TestNewConsumer_Validation(t *testing.T) {
	handler := func(context.Context, string, json.RawMessage) error { return nil }

	_, err := NewConsumer(config.KafkaConfig{}, handler, logging.NewNop())
	require.Error(t, err)

	cfg := kafkaTestConfig()
	_, err = NewConsumer(cfg, nil, logging.NewNop())
	require.Error(t, err)

	cfg.GroupID = ""
	_, err = NewConsumer(cfg, handler, logging.NewNop())
	require.Error(t, err)
}
