package repository

import (
	"context"

	"github.com/Domenick1991/travelbooking/internal/domain"
	"github.com/jackc/pgx/v5"
)

const selectTicket = `SELECT id, flight_id, reservation_id, passenger_id, contact_email, contact_phone,
	seat_class, baggage_option, (price * 100)::bigint, (baggage_fee * 100)::bigint, currency,
	seat_number, status, cancelled_at, created_at
	FROM tickets`

type PGTicketRepository struct {
	db Querier
}

func NewTicketRepository(db Querier) TicketRepository {
	return &PGTicketRepository{db: db}
}

func scanTicket(row scanner) (*domain.Ticket, error) {
	var t domain.Ticket
	if err := row.Scan(&t.ID, &t.FlightID, &t.ReservationID, &t.PassengerID, &t.Contact.Email, &t.Contact.Phone,
		&t.SeatClass, &t.BaggageOption, &t.Price.Amount, &t.BaggageFee.Amount, &t.Price.Currency,
		&t.SeatNumber, &t.Status, &t.CancelledAt, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.BaggageFee.Currency = t.Price.Currency
	return &t, nil
}

// AddRange inserts all tickets in one round trip and fills in their ids.
func (r *PGTicketRepository) AddRange(ctx context.Context, tickets []*domain.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, t := range tickets {
		batch.Queue(`INSERT INTO tickets (flight_id, reservation_id, passenger_id, contact_email, contact_phone,
			seat_class, baggage_option, price, baggage_fee, currency, seat_number, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7, ($8::bigint)::numeric / 100, ($9::bigint)::numeric / 100, $10, $11, $12)
			RETURNING id, created_at`,
			t.FlightID, t.ReservationID, t.PassengerID, t.Contact.Email, t.Contact.Phone,
			t.SeatClass, t.BaggageOption, t.Price.Amount, t.BaggageFee.Amount, t.Price.Currency, t.SeatNumber, t.Status).
			QueryRow(func(row pgx.Row) error {
				return row.Scan(&t.ID, &t.CreatedAt)
			})
	}
	return mapError("add tickets", r.db.SendBatch(ctx, batch).Close())
}

func (r *PGTicketRepository) Update(ctx context.Context, t *domain.Ticket) error {
	res, err := r.db.Exec(ctx, `UPDATE tickets SET seat_number = $2, status = $3, cancelled_at = $4 WHERE id = $1`,
		t.ID, t.SeatNumber, t.Status, t.CancelledAt)
	if err != nil {
		return mapError("update ticket", err)
	}
	if res.RowsAffected() == 0 {
		return domain.NotFound("ticket", t.ID)
	}
	return nil
}

func (r *PGTicketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	t, err := scanTicket(r.db.QueryRow(ctx, selectTicket+" WHERE id = $1", id))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.NotFound("ticket", id)
		}
		return nil, mapError("get ticket", err)
	}
	return t, nil
}

func (r *PGTicketRepository) ListByReservation(ctx context.Context, reservationID int64) ([]*domain.Ticket, error) {
	rows, err := r.db.Query(ctx, selectTicket+" WHERE reservation_id = $1 ORDER BY id", reservationID)
	if err != nil {
		return nil, mapError("list tickets", err)
	}
	defer rows.Close()

	var out []*domain.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, mapError("scan ticket", err)
		}
		out = append(out, t)
	}
	return out, mapError("list tickets", rows.Err())
}

var _ TicketRepository = (*PGTicketRepository)(nil)
