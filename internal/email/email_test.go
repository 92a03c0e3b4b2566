package email

import (
	"context"
	"testing"

	"github.com/Domenick1991/travelbooking/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompose(t *testing.T) {
	ev := domain.ReservationEvent{
		Type:          domain.EventReservationConfirmed,
		PNR:           "ABCDE12345",
		Status:        "CONFIRMED",
		PaymentStatus: "PAID",
		TotalAmount:   200000,
		Currency:      "TRY",
		Emails:        []string{"a@example.com", "b@example.com"},
	}

	msgs := Compose(ev)
	require.Len(t, msgs, 2)
	assert.Equal(t, "a@example.com", msgs[0].To)
	assert.Equal(t, "Your reservation ABCDE12345 is confirmed", msgs[0].Subject)
	assert.Contains(t, msgs[0].Body, "total 2000.00 TRY")

	ev.Type = domain.EventPaymentRequested
	assert.Empty(t, Compose(ev))
}

func TestNotifier_Handle(t *testing.T) {
	n := NewNotifier(NewSender(nil), nil)
	ev := domain.ReservationEvent{Type: domain.EventReservationCancelled, PNR: "ABCDE12345", Emails: []string{"a@example.com"}}

	assert.NoError(t, n.Handle(context.Background(), ev))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, n.Handle(ctx, ev), context.Canceled)
}
