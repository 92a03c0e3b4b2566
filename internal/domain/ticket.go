package domain

import (
	"regexp"
	"strings"
	"time"
)

type SeatClass string

const (
	SeatClassEconomy        SeatClass = "ECONOMY"
	SeatClassPremiumEconomy SeatClass = "PREMIUM_ECONOMY"
	SeatClassBusiness       SeatClass = "BUSINESS"
	SeatClassFirst          SeatClass = "FIRST"
)

type BaggageOption string

const (
	BaggageLight    BaggageOption = "LIGHT"
	BaggageStandard BaggageOption = "STANDARD"
	BaggageExtra    BaggageOption = "EXTRA"
)

type TicketStatus string

const (
	TicketStatusActive    TicketStatus = "ACTIVE"
	TicketStatusCancelled TicketStatus = "CANCELLED"
)

type ContactInfo struct {
	Email string
	Phone string
}

type Ticket struct {
	ID            int64
	FlightID      int64
	ReservationID int64
	PassengerID   int64
	Contact       ContactInfo
	SeatClass     SeatClass
	BaggageOption BaggageOption
	Price         Money
	BaggageFee    Money
	SeatNumber    *string
	Status        TicketStatus
	CancelledAt   *time.Time
	CreatedAt     time.Time
}

var seatPattern = regexp.MustCompile(`^[1-9][0-9]{0,2}[A-K]$`)

// NewTicket builds an active ticket. The ticket is not linked into the
// reservation; the caller does that explicitly.
func NewTicket(flight *Flight, reservation *Reservation, passenger *Passenger, contact ContactInfo,
	class SeatClass, baggage BaggageOption, price, fee Money) (*Ticket, error) {
	if flight == nil || reservation == nil || passenger == nil {
		return nil, Validation("ticket requires flight, reservation and passenger")
	}
	if price.IsNegative() || fee.IsNegative() {
		return nil, Validation("ticket price and baggage fee must be non-negative")
	}
	if price.Currency != flight.BasePrice.Currency || fee.Currency != flight.BasePrice.Currency {
		return nil, Validation("ticket currency must match flight currency %s", flight.BasePrice.Currency)
	}
	contact.Email = strings.TrimSpace(contact.Email)
	contact.Phone = strings.TrimSpace(contact.Phone)
	if contact.Email == "" && contact.Phone == "" {
		return nil, Validation("ticket contact email or phone is required")
	}
	if contact.Email != "" && !strings.Contains(contact.Email, "@") {
		return nil, Validation("invalid contact email %q", contact.Email)
	}

	return &Ticket{
		FlightID:      flight.ID,
		ReservationID: reservation.ID,
		PassengerID:   passenger.ID,
		Contact:       contact,
		SeatClass:     class,
		BaggageOption: baggage,
		Price:         price,
		BaggageFee:    fee,
		Status:        TicketStatusActive,
	}, nil
}

// Total is price plus baggage fee.
func (t *Ticket) Total() Money {
	return Money{Amount: t.Price.Amount + t.BaggageFee.Amount, Currency: t.Price.Currency}
}

func (t *Ticket) Active() bool { return t.Status == TicketStatusActive }

func (t *Ticket) Cancel(at time.Time) error {
	if t.Status == TicketStatusCancelled {
		return AlreadyCancelled("ticket", t.ID)
	}
	t.Status = TicketStatusCancelled
	t.CancelledAt = &at
	return nil
}

func (t *Ticket) AssignSeat(seat string) error {
	if t.Status == TicketStatusCancelled {
		return AlreadyCancelled("ticket", t.ID)
	}
	seat = NormalizeSeat(seat)
	if !seatPattern.MatchString(seat) {
		return Validation("invalid seat number %q", seat)
	}
	t.SeatNumber = &seat
	return nil
}

func NormalizeSeat(seat string) string {
	return strings.ToUpper(strings.TrimSpace(seat))
}
