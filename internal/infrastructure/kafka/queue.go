package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// HeaderDeliverAt marks the earliest time a delayed message may be handled.
const HeaderDeliverAt = "deliver-at"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Queue publishes deferred tasks and delayed messages. Topics are chosen per
// message, so one writer serves every destination.
type Queue struct {
	writer messageWriter
	now    func() time.Time
}

func NewWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}
}

func NewQueue(writer messageWriter) *Queue {
	return &Queue{writer: writer, now: time.Now}
}

// EnqueueTask publishes payload to the topic named by exchange, keyed by routingKey.
func (q *Queue) EnqueueTask(ctx context.Context, exchange, routingKey string, payload []byte) error {
	msg := kafka.Message{
		Topic: exchange,
		Key:   []byte(routingKey),
		Value: payload,
	}
	injectTraceContext(ctx, &msg)

	if err := q.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("enqueueing task to %s: %w", exchange, err)
	}
	return nil
}

// PublishDelayed writes payload to queue now; consumers hold it until the
// deliver-at header time.
func (q *Queue) PublishDelayed(ctx context.Context, queue string, payload []byte, delay time.Duration) error {
	deliverAt := q.now().Add(delay).UTC()

	msg := kafka.Message{
		Topic: queue,
		Value: payload,
		Headers: []kafka.Header{
			{Key: HeaderDeliverAt, Value: []byte(deliverAt.Format(time.RFC3339Nano))},
		},
	}
	injectTraceContext(ctx, &msg)

	if err := q.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing delayed message to %s: %w", queue, err)
	}
	return nil
}

func (q *Queue) Close() error {
	return q.writer.Close()
}

// DeliverAt reads the deliver-at header. Messages without one are due immediately.
func DeliverAt(msg kafka.Message) (time.Time, bool) {
	v, ok := header(msg, HeaderDeliverAt)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
