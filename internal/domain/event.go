package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	EventReservationCreated   = "reservation_created"
	EventReservationConfirmed = "reservation_confirmed"
	EventReservationCancelled = "reservation_cancelled"
	EventReservationCompleted = "reservation_completed"
	EventPaymentRequested     = "payment_requested"
	EventPaymentFailed        = "payment_failed"
	EventPaymentRefunded      = "payment_refunded"
)

// OutboxEvent is written in the same transaction as the state change it
// describes and relayed to the broker afterwards.
type OutboxEvent struct {
	ID          uuid.UUID
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
	PublishedAt *time.Time
}

type ReservationEvent struct {
	Type          string    `json:"type"`
	ReservationID int64     `json:"reservation_id"`
	PNR           string    `json:"pnr"`
	UserID        int64     `json:"user_id"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	TotalAmount   int64     `json:"total_amount"`
	Currency      string    `json:"currency"`
	FlightIDs     []int64   `json:"flight_ids,omitempty"`
	Emails        []string  `json:"emails,omitempty"`
	PaymentID     int64     `json:"payment_id,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// NewReservationEvent snapshots a reservation into an outbox event.
func NewReservationEvent(eventType string, r *Reservation, at time.Time) (*OutboxEvent, error) {
	ev := ReservationEvent{
		Type:          eventType,
		ReservationID: r.ID,
		PNR:           r.PNR,
		UserID:        r.UserID,
		Status:        string(r.Status),
		PaymentStatus: string(r.PaymentStatus),
		TotalAmount:   r.TotalPrice.Amount,
		Currency:      r.TotalPrice.Currency,
		OccurredAt:    at,
	}
	seenFlight := make(map[int64]struct{})
	seenEmail := make(map[string]struct{})
	for _, t := range r.Tickets {
		if _, ok := seenFlight[t.FlightID]; !ok {
			seenFlight[t.FlightID] = struct{}{}
			ev.FlightIDs = append(ev.FlightIDs, t.FlightID)
		}
		if t.Contact.Email == "" {
			continue
		}
		if _, ok := seenEmail[t.Contact.Email]; !ok {
			seenEmail[t.Contact.Email] = struct{}{}
			ev.Emails = append(ev.Emails, t.Contact.Email)
		}
	}
	if n := len(r.Payments); n > 0 {
		ev.PaymentID = r.Payments[n-1].ID
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return &OutboxEvent{
		ID:          uuid.New(),
		AggregateID: r.PNR,
		EventType:   eventType,
		Payload:     payload,
		CreatedAt:   at,
	}, nil
}
