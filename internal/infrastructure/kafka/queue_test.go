package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type mockWriter struct {
	WriteMessagesFunc func(ctx context.Context, msgs ...kafka.Message) error
	written           []kafka.Message
}

func (m *mockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	m.written = append(m.written, msgs...)
	if m.WriteMessagesFunc != nil {
		return m.WriteMessagesFunc(ctx, msgs...)
	}
	return nil
}

func (m *mockWriter) Close() error { return nil }

func TestQueue_EnqueueTask(t *testing.T) {
	writer := &mockWriter{}
	q := NewQueue(writer)

	err := q.EnqueueTask(context.Background(), "exchange.addpoint", "addpoint", []byte(`{"orderId":"o-1"}`))
	require.NoError(t, err)

	require.Len(t, writer.written, 1)
	msg := writer.written[0]
	assert.Equal(t, "exchange.addpoint", msg.Topic)
	assert.Equal(t, []byte("addpoint"), msg.Key)
	assert.JSONEq(t, `{"orderId":"o-1"}`, string(msg.Value))
}

func TestQueue_PublishDelayed_SetsDeliverAt(t *testing.T) {
	writer := &mockWriter{}
	q := NewQueue(writer)
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	q.now = func() time.Time { return now }

	err := q.PublishDelayed(context.Background(), "order-close-check", []byte(`{"orderId":"o-1","attempt":1}`), 30*time.Minute)
	require.NoError(t, err)

	require.Len(t, writer.written, 1)
	msg := writer.written[0]
	assert.Equal(t, "order-close-check", msg.Topic)

	deliverAt, ok := DeliverAt(msg)
	require.True(t, ok)
	assert.Equal(t, now.Add(30*time.Minute), deliverAt)
}

func TestQueue_WriteFailure(t *testing.T) {
	writer := &mockWriter{
		WriteMessagesFunc: func(ctx context.Context, msgs ...kafka.Message) error {
			return errors.New("leader not available")
		},
	}
	q := NewQueue(writer)

	err := q.PublishDelayed(context.Background(), "order-close-check", []byte(`{}`), time.Minute)

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "order-close-check")
}

func TestDeliverAt_MissingOrInvalid(t *testing.T) {
	_, ok := DeliverAt(kafka.Message{})
	assert.False(t, ok)

	_, ok = DeliverAt(kafka.Message{Headers: []kafka.Header{{Key: HeaderDeliverAt, Value: []byte("soon")}}})
	assert.False(t, ok)
}

func TestTraceContext_RoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10},
		SpanID:     trace.SpanID{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	writer := &mockWriter{}
	require.NoError(t, NewQueue(writer).EnqueueTask(ctx, "exchange.addpoint", "addpoint", []byte(`{}`)))

	msg := writer.written[0]
	_, ok := header(msg, "traceparent")
	assert.True(t, ok)

	extracted := trace.SpanContextFromContext(ExtractTraceContext(context.Background(), msg))
	assert.Equal(t, sc.TraceID(), extracted.TraceID())
}
