package domain

import "time"

type ReservationType string

const (
	ReservationTypeFlight ReservationType = "FLIGHT"
	ReservationTypeHotel  ReservationType = "HOTEL"
	ReservationTypeCar    ReservationType = "CAR"
	ReservationTypeTour   ReservationType = "TOUR"
)

func (t ReservationType) Valid() bool {
	switch t {
	case ReservationTypeFlight, ReservationTypeHotel, ReservationTypeCar, ReservationTypeTour:
		return true
	}
	return false
}

type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "PENDING"
	ReservationStatusConfirmed ReservationStatus = "CONFIRMED"
	ReservationStatusCancelled ReservationStatus = "CANCELLED"
	ReservationStatusCompleted ReservationStatus = "COMPLETED"
)

type CarRentalDetails struct {
	PickupLocation  string
	DropoffLocation string
	PickupAt        time.Time
	ReturnAt        time.Time
}

// Reservation is the aggregate root of a booking. Tickets, Payments and
// PassengerIDs are only populated when explicitly loaded.
type Reservation struct {
	ID              int64
	PNR             string
	UserID          int64
	Type            ReservationType
	TotalPrice      Money
	PaymentStatus   PaymentStatus
	PaymentMethod   PaymentMethod
	Status          ReservationStatus
	ReservationDate time.Time
	ExpirationDate  *time.Time
	HotelID         *int64
	CarID           *int64
	TourID          *int64
	CarRental       *CarRentalDetails
	Version         int64
	DeletedAt       *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time

	Tickets      []*Ticket
	Payments     []*Payment
	PassengerIDs []int64
}

func (r *Reservation) Cancelled() bool { return r.Status == ReservationStatusCancelled }

func (r *Reservation) terminal() bool {
	return r.Status == ReservationStatusCancelled || r.Status == ReservationStatusCompleted
}

func (r *Reservation) Confirm() error {
	switch r.Status {
	case ReservationStatusPending:
		r.Status = ReservationStatusConfirmed
		return nil
	case ReservationStatusConfirmed:
		return nil
	case ReservationStatusCancelled:
		return AlreadyCancelled("reservation", r.PNR)
	}
	return Validation("reservation %s is %s and cannot be confirmed", r.PNR, r.Status)
}

func (r *Reservation) Complete() error {
	switch r.Status {
	case ReservationStatusConfirmed:
		r.Status = ReservationStatusCompleted
		return nil
	case ReservationStatusCancelled:
		return AlreadyCancelled("reservation", r.PNR)
	}
	return Validation("reservation %s is %s, only confirmed reservations can be completed", r.PNR, r.Status)
}

func (r *Reservation) Cancel() error {
	switch r.Status {
	case ReservationStatusCancelled:
		return AlreadyCancelled("reservation", r.PNR)
	case ReservationStatusCompleted:
		return Validation("reservation %s is completed and cannot be cancelled", r.PNR)
	}
	r.Status = ReservationStatusCancelled
	return nil
}

func (r *Reservation) UpdatePaymentStatus(status PaymentStatus) error {
	if r.terminal() {
		if r.Cancelled() {
			return AlreadyCancelled("reservation", r.PNR)
		}
		return Validation("reservation %s is %s, payment status is frozen", r.PNR, r.Status)
	}
	r.PaymentStatus = status
	return nil
}

func (r *Reservation) AddTicket(t *Ticket) error {
	if r.Cancelled() {
		return AlreadyCancelled("reservation", r.PNR)
	}
	t.ReservationID = r.ID
	r.Tickets = append(r.Tickets, t)
	return nil
}

func (r *Reservation) AddPayment(p *Payment) error {
	if r.Cancelled() {
		return AlreadyCancelled("reservation", r.PNR)
	}
	p.ReservationID = r.ID
	r.Payments = append(r.Payments, p)
	return nil
}

func (r *Reservation) AddPassenger(passengerID int64) error {
	if r.Cancelled() {
		return AlreadyCancelled("reservation", r.PNR)
	}
	for _, id := range r.PassengerIDs {
		if id == passengerID {
			return nil
		}
	}
	r.PassengerIDs = append(r.PassengerIDs, passengerID)
	return nil
}

// Expired reports whether a pending reservation has outlived its hold.
func (r *Reservation) Expired(now time.Time) bool {
	return r.Status == ReservationStatusPending && r.ExpirationDate != nil && !now.Before(*r.ExpirationDate)
}
