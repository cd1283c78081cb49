package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/rapidreserve/internal/domain"
	"github.com/segmentio/kafka-go"
)

// ErrMalformed marks a message that can never be handled. The consumer
// commits it and moves on.
var ErrMalformed = errors.New("malformed lifecycle message")

type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(brokers []string, groupID, topic string) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:           brokers,
			GroupID:           groupID,
			Topic:             topic,
			HeartbeatInterval: 3 * time.Second,
			SessionTimeout:    30 * time.Second,
		}),
	}
}

func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// Consume hands each message to handler and commits it once handled. A
// handler error other than ErrMalformed stops consumption without committing,
// so the message is redelivered after restart.
func (c *Consumer) Consume(ctx context.Context, handler func(context.Context, domain.LifecycleEvent) error) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if err := handleMessage(ctx, msg.Value, handler); err != nil && !errors.Is(err, ErrMalformed) {
			return err
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("commit offset %d: %w", msg.Offset, err)
		}
	}
}

func handleMessage(ctx context.Context, value []byte, handler func(context.Context, domain.LifecycleEvent) error) error {
	event, err := DecodeLifecycleEvent(value)
	if err != nil {
		return err
	}
	return handler(ctx, event)
}

func DecodeLifecycleEvent(value []byte) (domain.LifecycleEvent, error) {
	var event domain.LifecycleEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return event, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if event.BookingID == "" || !event.Status.Valid() {
		return event, fmt.Errorf("%w: missing booking id or status", ErrMalformed)
	}
	return event, nil
}
