package booking

import (
	"strings"
	"time"

	"github.com/Domenick1991/travelbooking/internal/domain"
)

// CreateReservationInput is the booking request. TotalPrice is used only for
// bookings without tickets.
type CreateReservationInput struct {
	UserID       int64                  `json:"user_id"`
	Type         domain.ReservationType `json:"type"`
	HotelID      *int64                 `json:"hotel_id,omitempty"`
	CarID        *int64                 `json:"car_id,omitempty"`
	TourID       *int64                 `json:"tour_id,omitempty"`
	CarRental    *CarRentalInput        `json:"car_rental,omitempty"`
	Tickets      []TicketRequest        `json:"tickets"`
	Participants []PassengerRef         `json:"participants,omitempty"`
	Payment      *PaymentInput          `json:"payment,omitempty"`
	PNR          string                 `json:"pnr,omitempty"`
	TotalPrice   *domain.Money          `json:"total_price,omitempty"`
	ExpiresAt    *time.Time             `json:"expires_at,omitempty"`
}

type CarRentalInput struct {
	PickupLocation  string    `json:"pickup_location"`
	DropoffLocation string    `json:"dropoff_location"`
	PickupAt        time.Time `json:"pickup_at"`
	ReturnAt        time.Time `json:"return_at"`
}

// TicketRequest references an existing passenger by id or carries the
// details of a new one.
type TicketRequest struct {
	FlightID   int64                `json:"flight_id"`
	Passenger  PassengerRef         `json:"passenger"`
	Contact    ContactInput         `json:"contact"`
	SeatClass  domain.SeatClass     `json:"seat_class"`
	Baggage    domain.BaggageOption `json:"baggage_option"`
	SeatNumber *string              `json:"seat_number,omitempty"`
}

type PassengerRef struct {
	PassengerID int64           `json:"passenger_id,omitempty"`
	Details     *PassengerInput `json:"details,omitempty"`
}

type PassengerInput struct {
	FirstName      string               `json:"first_name"`
	LastName       string               `json:"last_name"`
	NationalID     string               `json:"national_id,omitempty"`
	PassportNumber string               `json:"passport_number,omitempty"`
	DateOfBirth    *time.Time           `json:"date_of_birth,omitempty"`
	Type           domain.PassengerType `json:"type,omitempty"`
}

type ContactInput struct {
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type PaymentInput struct {
	Method        domain.PaymentMethod   `json:"method"`
	TransactionID string                 `json:"transaction_id,omitempty"`
	Type          domain.TransactionType `json:"type,omitempty"`
}

// PaymentCallback is what the gateway reports for an async payment.
type PaymentCallback struct {
	PaymentID int64  `json:"payment_id"`
	Success   bool   `json:"success"`
	Reason    string `json:"reason,omitempty"`
}

func (in *CreateReservationInput) validate() error {
	if in.UserID <= 0 {
		return domain.Validation("user id is required")
	}
	if in.Type == "" {
		in.Type = domain.ReservationTypeFlight
	}
	if !in.Type.Valid() {
		return domain.Validation("unknown reservation type %q", in.Type)
	}
	if in.Type == domain.ReservationTypeFlight && len(in.Tickets) == 0 && len(in.Participants) == 0 {
		return domain.Validation("flight reservation needs at least one ticket or participant")
	}
	for i, t := range in.Tickets {
		if t.FlightID <= 0 {
			return domain.Validation("ticket %d: flight id is required", i)
		}
		if t.Passenger.PassengerID <= 0 && t.Passenger.Details == nil {
			return domain.Validation("ticket %d: passenger id or details are required", i)
		}
	}
	for i, p := range in.Participants {
		if p.PassengerID <= 0 && p.Details == nil {
			return domain.Validation("participant %d: passenger id or details are required", i)
		}
	}
	if len(in.Tickets) == 0 && in.TotalPrice != nil {
		if in.TotalPrice.IsNegative() {
			return domain.Validation("total price must be non-negative")
		}
		if !domain.ValidCurrency(in.TotalPrice.Currency) {
			return domain.Validation("invalid currency %q", in.TotalPrice.Currency)
		}
	}
	if c := in.CarRental; c != nil {
		if strings.TrimSpace(c.PickupLocation) == "" {
			return domain.Validation("car rental pickup location is required")
		}
		if !c.ReturnAt.After(c.PickupAt) {
			return domain.Validation("car rental return must be after pickup")
		}
	}
	if p := in.Payment; p != nil {
		if !p.Method.Valid() {
			return domain.Validation("unknown payment method %q", p.Method)
		}
		if p.Type != "" && p.Type != domain.TransactionTypePayment {
			return domain.Validation("booking payments must be of type %s", domain.TransactionTypePayment)
		}
	}
	return nil
}

// total is the caller supplied amount for bookings without tickets.
func (in *CreateReservationInput) total() domain.Money {
	if in.TotalPrice == nil {
		return domain.NewMoney(0, domain.DefaultCurrency)
	}
	return domain.NewMoney(in.TotalPrice.Amount, in.TotalPrice.Currency)
}

func (in *CreateReservationInput) carRental() *domain.CarRentalDetails {
	if in.CarRental == nil {
		return nil
	}
	return &domain.CarRentalDetails{
		PickupLocation:  strings.TrimSpace(in.CarRental.PickupLocation),
		DropoffLocation: strings.TrimSpace(in.CarRental.DropoffLocation),
		PickupAt:        in.CarRental.PickupAt,
		ReturnAt:        in.CarRental.ReturnAt,
	}
}

func (p *PassengerInput) toDomain() *domain.Passenger {
	return &domain.Passenger{
		FirstName:      strings.TrimSpace(p.FirstName),
		LastName:       strings.TrimSpace(p.LastName),
		NationalID:     strings.TrimSpace(p.NationalID),
		PassportNumber: strings.TrimSpace(p.PassportNumber),
		DateOfBirth:    p.DateOfBirth,
		Type:           p.Type,
	}
}

func (c ContactInput) toDomain() domain.ContactInfo {
	return domain.ContactInfo{Email: c.Email, Phone: c.Phone}
}
