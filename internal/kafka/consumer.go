package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/travelbooking/internal/domain"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Consumer struct {
	reader messageReader
	logger *zap.Logger
}

func NewConsumer(brokers []string, groupID, topic string, logger *zap.Logger) *Consumer {
	return newConsumer(kafka.NewReader(kafka.ReaderConfig{
		Brokers:           brokers,
		GroupID:           groupID,
		Topic:             topic,
		HeartbeatInterval: 3 * time.Second,
		SessionTimeout:    30 * time.Second,
	}), logger)
}

func newConsumer(r messageReader, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{reader: r, logger: logger}
}

func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// Consume feeds decoded reservation events to handler until ctx is done.
// Undecodable messages are logged and skipped; a handler error stops the loop.
func (c *Consumer) Consume(ctx context.Context, handler func(context.Context, domain.ReservationEvent) error) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				return nil
			}
			return err
		}

		ev, err := DecodeEvent(msg)
		if err != nil {
			c.logger.Warn("skipping malformed event",
				zap.String("key", string(msg.Key)), zap.Int64("offset", msg.Offset), zap.Error(err))
			continue
		}
		if err := handler(ctx, ev); err != nil {
			return fmt.Errorf("handle %s for %s: %w", ev.Type, ev.PNR, err)
		}
	}
}

// DecodeEvent reads the payload; the event_type header wins over the type
// field in the body.
func DecodeEvent(msg kafka.Message) (domain.ReservationEvent, error) {
	var ev domain.ReservationEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		return ev, fmt.Errorf("decode event: %w", err)
	}
	for _, h := range msg.Headers {
		if h.Key == HeaderEventType && len(h.Value) > 0 {
			ev.Type = string(h.Value)
		}
	}
	if ev.Type == "" {
		return ev, errors.New("event has no type")
	}
	return ev, nil
}
