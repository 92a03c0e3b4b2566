package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/travelbooking/internal/domain"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

type fakeReader struct {
	msgs []kafka.Message
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := r.msgs[0]
	r.msgs = r.msgs[1:]
	return msg, nil
}

func (r *fakeReader) Close() error { return nil }

func outboxEvent(t *testing.T, eventType string) domain.OutboxEvent {
	t.Helper()
	res := &domain.Reservation{
		ID:            7,
		PNR:           "ABCDE12345",
		UserID:        42,
		Status:        domain.ReservationStatusConfirmed,
		PaymentStatus: domain.PaymentStatusPaid,
		TotalPrice:    domain.NewMoney(200000, "TRY"),
		Tickets:       []*domain.Ticket{{FlightID: 3, Contact: domain.ContactInfo{Email: "ayse@example.com"}}},
	}
	ev, err := domain.NewReservationEvent(eventType, res, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return *ev
}

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer([]string{"localhost:9092"}, w, nil)
	ev := outboxEvent(t, domain.EventReservationCreated)

	require.NoError(t, p.Publish(context.Background(), ev))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, []byte("ABCDE12345"), w.msgs[0].Key)
	assert.Equal(t, ev.Payload, w.msgs[0].Value)
	assert.Equal(t, []kafka.Header{{Key: HeaderEventType, Value: []byte(domain.EventReservationCreated)}}, w.msgs[0].Headers)
}

func TestProducer_PublishError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker unavailable")}
	p := newProducer(nil, w, nil)

	err := p.Publish(context.Background(), domain.OutboxEvent{ID: uuid.New()})
	assert.ErrorContains(t, err, "broker unavailable")
}

func TestConsumer_Consume(t *testing.T) {
	good := Message(outboxEvent(t, domain.EventReservationCancelled))
	r := &fakeReader{msgs: []kafka.Message{{Key: []byte("junk"), Value: []byte("{")}, good}}
	c := newConsumer(r, nil)

	ctx, cancel := context.WithCancel(context.Background())
	var got []domain.ReservationEvent
	err := c.Consume(ctx, func(_ context.Context, ev domain.ReservationEvent) error {
		got = append(got, ev)
		cancel()
		return nil
	})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.EventReservationCancelled, got[0].Type)
	assert.Equal(t, "ABCDE12345", got[0].PNR)
	assert.Equal(t, []string{"ayse@example.com"}, got[0].Emails)
}

func TestConsumer_HandlerErrorStops(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{Message(outboxEvent(t, domain.EventReservationCreated))}}
	c := newConsumer(r, nil)

	err := c.Consume(context.Background(), func(context.Context, domain.ReservationEvent) error {
		return errors.New("smtp down")
	})
	assert.ErrorContains(t, err, "smtp down")
}

func TestDecodeEvent(t *testing.T) {
	msg := Message(outboxEvent(t, domain.EventReservationCreated))
	msg.Headers[0].Value = []byte(domain.EventPaymentRequested)

	ev, err := DecodeEvent(msg)
	require.NoError(t, err)
	assert.Equal(t, domain.EventPaymentRequested, ev.Type, "header wins")

	_, err = DecodeEvent(kafka.Message{Value: []byte(`{"pnr":"X"}`)})
	assert.Error(t, err)
}
