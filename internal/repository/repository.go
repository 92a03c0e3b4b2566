package repository

import (
	"context"
	"time"

	"github.com/Domenick1991/travelbooking/internal/domain"
	"github.com/google/uuid"
)

type IsolationLevel string

const (
	ReadCommitted  IsolationLevel = "read_committed"
	RepeatableRead IsolationLevel = "repeatable_read"
	Serializable   IsolationLevel = "serializable"
)

func ParseIsolationLevel(s string) IsolationLevel {
	switch IsolationLevel(s) {
	case ReadCommitted, RepeatableRead:
		return IsolationLevel(s)
	}
	return Serializable
}

// UnitOfWork opens transactions. Every repository obtained from a Tx runs
// inside that transaction; Commit is the only flush.
type UnitOfWork interface {
	Begin(ctx context.Context, level IsolationLevel) (Tx, error)
}

// Tx is the explicit transaction handle threaded through the orchestrator.
type Tx interface {
	Flights() FlightRepository
	Passengers() PassengerRepository
	Reservations() ReservationRepository
	Tickets() TicketRepository
	Payments() PaymentRepository
	Outbox() OutboxRepository
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type FlightRepository interface {
	List(ctx context.Context) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	// ReserveSeats decrements the counter only if enough seats remain.
	ReserveSeats(ctx context.Context, flightID int64, n int) error
	// ReleaseSeats increments the counter, never past total seats.
	ReleaseSeats(ctx context.Context, flightID int64, n int) error
	// Update persists the seat count and active flag of a loaded flight.
	Update(ctx context.Context, f *domain.Flight) error
}

type PassengerRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Passenger, error)
	Add(ctx context.Context, p *domain.Passenger) error
}

type ReservationRepository interface {
	Add(ctx context.Context, r *domain.Reservation) error
	GetByID(ctx context.Context, id int64) (*domain.Reservation, error)
	GetByPNR(ctx context.Context, pnr string) (*domain.Reservation, error)
	// Update writes status fields if r.Version is still current and bumps it.
	Update(ctx context.Context, r *domain.Reservation) error
	AddPassenger(ctx context.Context, reservationID, passengerID int64) error
	ListPassengerIDs(ctx context.Context, reservationID int64) ([]int64, error)
	ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]domain.Reservation, error)
}

type TicketRepository interface {
	AddRange(ctx context.Context, tickets []*domain.Ticket) error
	Update(ctx context.Context, t *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	ListByReservation(ctx context.Context, reservationID int64) ([]*domain.Ticket, error)
}

type PaymentRepository interface {
	Add(ctx context.Context, p *domain.Payment) error
	Update(ctx context.Context, p *domain.Payment) error
	GetByID(ctx context.Context, id int64) (*domain.Payment, error)
	ListByReservation(ctx context.Context, reservationID int64) ([]*domain.Payment, error)
}

type OutboxRepository interface {
	Add(ctx context.Context, e *domain.OutboxEvent) error
	ListUnpublished(ctx context.Context, limit int) ([]domain.OutboxEvent, error)
	MarkPublished(ctx context.Context, id uuid.UUID) error
}
