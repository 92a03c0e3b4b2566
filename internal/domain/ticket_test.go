package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ticketFixtures() (*Flight, *Reservation, *Passenger) {
	return &Flight{ID: 1, BasePrice: NewMoney(100000, "TRY"), TotalSeats: 2, AvailableSeats: 2, Active: true},
		&Reservation{ID: 2, PNR: "ABCDE12345", Status: ReservationStatusPending},
		&Passenger{ID: 3, FirstName: "Ayse", LastName: "Yilmaz", Type: PassengerTypeAdult}
}

func TestNewTicket(t *testing.T) {
	f, r, p := ticketFixtures()

	ticket, err := NewTicket(f, r, p, ContactInfo{Email: " ayse@example.com "}, SeatClassEconomy, BaggageLight,
		NewMoney(100000, "TRY"), NewMoney(0, "TRY"))
	require.NoError(t, err)

	assert.Equal(t, int64(1), ticket.FlightID)
	assert.Equal(t, int64(2), ticket.ReservationID)
	assert.Equal(t, int64(3), ticket.PassengerID)
	assert.Equal(t, "ayse@example.com", ticket.Contact.Email)
	assert.Equal(t, TicketStatusActive, ticket.Status)
	assert.Equal(t, NewMoney(100000, "TRY"), ticket.Total())
	assert.Empty(t, r.Tickets, "factory must not link the ticket")
	assert.Equal(t, 2, f.AvailableSeats, "factory must not touch inventory")
}

func TestNewTicket_Validation(t *testing.T) {
	f, r, p := ticketFixtures()
	contact := ContactInfo{Phone: "+905551112233"}

	testCases := []struct {
		name    string
		contact ContactInfo
		price   Money
		fee     Money
	}{
		{"negative price", contact, NewMoney(-1, "TRY"), NewMoney(0, "TRY")},
		{"negative fee", contact, NewMoney(1, "TRY"), NewMoney(-1, "TRY")},
		{"currency mismatch", contact, NewMoney(1, "EUR"), NewMoney(0, "EUR")},
		{"no contact", ContactInfo{}, NewMoney(1, "TRY"), NewMoney(0, "TRY")},
		{"bad email", ContactInfo{Email: "nope"}, NewMoney(1, "TRY"), NewMoney(0, "TRY")},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewTicket(f, r, p, tc.contact, SeatClassEconomy, BaggageLight, tc.price, tc.fee)
			assert.ErrorIs(t, err, ErrValidationFailed)
		})
	}

	_, err := NewTicket(nil, r, p, contact, SeatClassEconomy, BaggageLight, NewMoney(1, "TRY"), NewMoney(0, "TRY"))
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestTicket_CancelAndAssignSeat(t *testing.T) {
	ticket := &Ticket{ID: 5, Status: TicketStatusActive}

	require.NoError(t, ticket.AssignSeat(" 12c "))
	require.NotNil(t, ticket.SeatNumber)
	assert.Equal(t, "12C", *ticket.SeatNumber)
	assert.ErrorIs(t, ticket.AssignSeat("Z9"), ErrValidationFailed)

	at := time.Now()
	require.NoError(t, ticket.Cancel(at))
	assert.Equal(t, TicketStatusCancelled, ticket.Status)
	assert.Equal(t, &at, ticket.CancelledAt)

	assert.ErrorIs(t, ticket.Cancel(at), ErrAlreadyCancelled)
	assert.ErrorIs(t, ticket.AssignSeat("1A"), ErrAlreadyCancelled)
}

func TestPassenger_Validate(t *testing.T) {
	p := &Passenger{FirstName: "Ali", LastName: "Kaya"}
	require.NoError(t, p.Validate())
	assert.Equal(t, PassengerTypeAdult, p.Type)

	assert.ErrorIs(t, (&Passenger{FirstName: "Ali"}).Validate(), ErrValidationFailed)
	assert.ErrorIs(t, (&Passenger{FirstName: "A", LastName: "B", Type: "ROBOT"}).Validate(), ErrValidationFailed)
	future := time.Now().Add(48 * time.Hour)
	assert.ErrorIs(t, (&Passenger{FirstName: "A", LastName: "B", DateOfBirth: &future}).Validate(), ErrValidationFailed)
}
