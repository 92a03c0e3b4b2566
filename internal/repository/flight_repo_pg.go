package repository

import (
	"context"

	"github.com/Domenick1991/travelbooking/internal/domain"
)

const selectFlight = `SELECT id, flight_number, airline, from_airport, to_airport, departure_time, arrival_time,
	(base_price * 100)::bigint, currency, total_seats, available_seats, active, deleted_at, created_at, updated_at
	FROM flights`

type PGFlightRepository struct {
	db Querier
}

func NewFlightRepository(db Querier) FlightRepository {
	return &PGFlightRepository{db: db}
}

func scanFlight(row scanner) (*domain.Flight, error) {
	var f domain.Flight
	if err := row.Scan(&f.ID, &f.FlightNumber, &f.Airline, &f.FromAirport, &f.ToAirport, &f.DepartureTime, &f.ArrivalTime,
		&f.BasePrice.Amount, &f.BasePrice.Currency, &f.TotalSeats, &f.AvailableSeats, &f.Active, &f.DeletedAt,
		&f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *PGFlightRepository) List(ctx context.Context) ([]domain.Flight, error) {
	rows, err := r.db.Query(ctx, liveQuery(selectFlight, "active")+" ORDER BY departure_time")
	if err != nil {
		return nil, mapError("list flights", err)
	}
	defer rows.Close()

	flights := make([]domain.Flight, 0)
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, mapError("scan flight", err)
		}
		flights = append(flights, *f)
	}
	return flights, mapError("list flights", rows.Err())
}

func (r *PGFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	f, err := scanFlight(r.db.QueryRow(ctx, liveQuery(selectFlight, "id = $1"), id))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.NotFound("flight", id)
		}
		return nil, mapError("get flight", err)
	}
	return f, nil
}

func (r *PGFlightRepository) ReserveSeats(ctx context.Context, flightID int64, n int) error {
	if n <= 0 {
		return domain.Validation("seat count must be positive, got %d", n)
	}
	res, err := r.db.Exec(ctx,
		liveQuery(`UPDATE flights SET available_seats = available_seats - $2, updated_at = now()`, "id = $1", "available_seats >= $2"),
		flightID, n)
	if err != nil {
		return mapError("reserve seats", err)
	}
	if res.RowsAffected() == 1 {
		return nil
	}

	var available int
	if err := r.db.QueryRow(ctx, liveQuery(`SELECT available_seats FROM flights`, "id = $1"), flightID).Scan(&available); err != nil {
		if isNoRows(err) {
			return domain.NotFound("flight", flightID)
		}
		return mapError("reserve seats", err)
	}
	return domain.InsufficientInventory(flightID, n, available)
}

func (r *PGFlightRepository) ReleaseSeats(ctx context.Context, flightID int64, n int) error {
	if n <= 0 {
		return nil
	}
	res, err := r.db.Exec(ctx,
		liveQuery(`UPDATE flights SET available_seats = LEAST(total_seats, available_seats + $2), updated_at = now()`, "id = $1"),
		flightID, n)
	if err != nil {
		return mapError("release seats", err)
	}
	if res.RowsAffected() == 0 {
		return domain.NotFound("flight", flightID)
	}
	return nil
}

func (r *PGFlightRepository) Update(ctx context.Context, f *domain.Flight) error {
	err := r.db.QueryRow(ctx,
		liveQuery(`UPDATE flights SET available_seats = $2, active = $3, updated_at = now()`, "id = $1")+" RETURNING updated_at",
		f.ID, f.AvailableSeats, f.Active).Scan(&f.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return domain.NotFound("flight", f.ID)
		}
		return mapError("update flight", err)
	}
	return nil
}

var _ FlightRepository = (*PGFlightRepository)(nil)
