package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReservation_StateMachine(t *testing.T) {
	r := &Reservation{PNR: "ABCDE12345", Status: ReservationStatusPending}

	require.NoError(t, r.Confirm())
	assert.Equal(t, ReservationStatusConfirmed, r.Status)
	require.NoError(t, r.Confirm(), "confirming twice is a no-op")

	require.NoError(t, r.Complete())
	assert.Equal(t, ReservationStatusCompleted, r.Status)

	assert.ErrorIs(t, r.Cancel(), ErrValidationFailed, "completed reservations cannot be cancelled")
	assert.ErrorIs(t, r.UpdatePaymentStatus(PaymentStatusPaid), ErrValidationFailed)
}

func TestReservation_Cancel(t *testing.T) {
	for _, from := range []ReservationStatus{ReservationStatusPending, ReservationStatusConfirmed} {
		r := &Reservation{PNR: "ABCDE12345", Status: from}
		require.NoError(t, r.Cancel())
		assert.Equal(t, ReservationStatusCancelled, r.Status)

		err := r.Cancel()
		assert.ErrorIs(t, err, ErrAlreadyCancelled)
	}
}

func TestReservation_CompleteRequiresConfirmed(t *testing.T) {
	r := &Reservation{PNR: "ABCDE12345", Status: ReservationStatusPending}
	assert.ErrorIs(t, r.Complete(), ErrValidationFailed)
}

func TestReservation_MutatorsRejectCancelled(t *testing.T) {
	r := &Reservation{ID: 3, PNR: "ABCDE12345", Status: ReservationStatusPending}
	require.NoError(t, r.AddTicket(&Ticket{}))
	require.NoError(t, r.AddPayment(&Payment{}))
	require.NoError(t, r.AddPassenger(11))
	require.NoError(t, r.AddPassenger(11))
	assert.Equal(t, []int64{11}, r.PassengerIDs)
	assert.Equal(t, int64(3), r.Tickets[0].ReservationID)
	assert.Equal(t, int64(3), r.Payments[0].ReservationID)

	require.NoError(t, r.Cancel())

	assert.ErrorIs(t, r.AddTicket(&Ticket{}), ErrAlreadyCancelled)
	assert.ErrorIs(t, r.AddPayment(&Payment{}), ErrAlreadyCancelled)
	assert.ErrorIs(t, r.AddPassenger(12), ErrAlreadyCancelled)
	assert.ErrorIs(t, r.UpdatePaymentStatus(PaymentStatusRefunded), ErrAlreadyCancelled)
	assert.Len(t, r.Tickets, 1)
	assert.Len(t, r.Payments, 1)
}

func TestReservation_Expired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	assert.True(t, (&Reservation{Status: ReservationStatusPending, ExpirationDate: &past}).Expired(now))
	assert.False(t, (&Reservation{Status: ReservationStatusPending, ExpirationDate: &future}).Expired(now))
	assert.False(t, (&Reservation{Status: ReservationStatusPending}).Expired(now))
	assert.False(t, (&Reservation{Status: ReservationStatusConfirmed, ExpirationDate: &past}).Expired(now))
}
