package mykafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

type mockWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if m.err != nil {
		return m.err
	}
	m.msgs = append(m.msgs, msgs...)
	return nil
}

func (m *mockWriter) Close() error {
	m.closed = true
	return nil
}

func TestNewProducer_NoBrokers(t *testing.T) {
	_, err := NewProducer(nil)
	assert.Error(t, err)
}

func TestNewProducer_WritesAtMostOnce(t *testing.T) {
	p, err := NewProducer([]string{"localhost:9092"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, 1, w.MaxAttempts)
	assert.Equal(t, kafka.RequireAll, w.RequiredAcks)
	assert.IsType(t, &kafka.Hash{}, w.Balancer)
}

func TestProducer_Publish(t *testing.T) {
	w := &mockWriter{}
	p := &Producer{writer: w}

	require.NoError(t, p.Publish(context.Background(), "shop.events", "NOTIFICATION_SERVICE", []byte(`{"eventType":"ORDER_CREATED"}`)))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "shop.events", msg.Topic)
	assert.Equal(t, "NOTIFICATION_SERVICE", string(msg.Key))
	assert.JSONEq(t, `{"eventType":"ORDER_CREATED"}`, string(msg.Value))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, RoutingKeyHeader, msg.Headers[0].Key)
	assert.Equal(t, "NOTIFICATION_SERVICE", string(msg.Headers[0].Value))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestProducer_PublishError(t *testing.T) {
	boom := errors.New("leader not available")
	p := &Producer{writer: &mockWriter{err: boom}}

	err := p.Publish(context.Background(), "shop.events", "rk", []byte(`{}`))
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "shop.events")
}

func TestProducer_Kafka(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping kafka container test in short mode")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	if err != nil {
		t.Skipf("kafka container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)

	require.NoError(t, EnsureTopics(ctx, brokers[0], "shop.events"))
	require.NoError(t, EnsureTopics(ctx, brokers[0], "shop.events"))

	p, err := NewProducer(brokers)
	require.NoError(t, err)
	defer p.Close()

	require.NoError(t, p.Publish(ctx, "shop.events", "NOTIFICATION_SERVICE", []byte(`{"eventType":"ORDER_CREATED"}`)))

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    "shop.events",
		GroupID:  "producer-test",
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	msg, err := reader.ReadMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, "NOTIFICATION_SERVICE", string(msg.Key))
	assert.JSONEq(t, `{"eventType":"ORDER_CREATED"}`, string(msg.Value))
}
