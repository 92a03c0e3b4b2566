package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/travelbooking/internal/domain"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const HeaderEventType = "event_type"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer writes outbox events to the reservations topic keyed by PNR, so
// every event of one reservation lands on the same partition.
type Producer struct {
	brokers []string
	writer  messageWriter
	logger  *zap.Logger
}

func NewProducer(brokers []string, topic string, logger *zap.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           50 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return newProducer(brokers, writer, logger)
}

func newProducer(brokers []string, w messageWriter, logger *zap.Logger) *Producer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Producer{brokers: brokers, writer: w, logger: logger}
}

func Message(ev domain.OutboxEvent) kafka.Message {
	return kafka.Message{
		Key:   []byte(ev.AggregateID),
		Value: ev.Payload,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(ev.EventType)},
		},
		Time: ev.CreatedAt,
	}
}

func (p *Producer) Publish(ctx context.Context, ev domain.OutboxEvent) error {
	if err := p.writer.WriteMessages(ctx, Message(ev)); err != nil {
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}
	p.logger.Debug("event published",
		zap.String("event_id", ev.ID.String()),
		zap.String("event_type", ev.EventType),
		zap.String("key", ev.AggregateID),
	)
	return nil
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

// CheckConnection dials the first broker and reads its partitions.
func (p *Producer) CheckConnection(ctx context.Context) error {
	if len(p.brokers) == 0 {
		return fmt.Errorf("no kafka brokers configured")
	}
	conn, err := kafka.DialContext(ctx, "tcp", p.brokers[0])
	if err != nil {
		return fmt.Errorf("failed to connect to Kafka: %w", err)
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions()
	if err != nil {
		return fmt.Errorf("failed to read partitions: %w", err)
	}
	p.logger.Info("connected to kafka", zap.Int("partitions", len(partitions)))
	return nil
}
