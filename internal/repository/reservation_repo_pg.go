package repository

import (
	"context"
	"time"

	"github.com/Domenick1991/travelbooking/internal/domain"
)

const selectReservation = `SELECT id, pnr, user_id, reservation_type, (total_price * 100)::bigint, currency,
	payment_status, payment_method, status, reservation_date, expiration_date, hotel_id, car_id, tour_id,
	car_pickup_location, car_dropoff_location, car_pickup_at, car_return_at,
	version, deleted_at, created_at, updated_at
	FROM reservations`

type PGReservationRepository struct {
	db Querier
}

func NewReservationRepository(db Querier) ReservationRepository {
	return &PGReservationRepository{db: db}
}

func scanReservation(row scanner) (*domain.Reservation, error) {
	var (
		r               domain.Reservation
		pickup, dropoff *string
		pickupAt, retAt *time.Time
	)
	if err := row.Scan(&r.ID, &r.PNR, &r.UserID, &r.Type, &r.TotalPrice.Amount, &r.TotalPrice.Currency,
		&r.PaymentStatus, &r.PaymentMethod, &r.Status, &r.ReservationDate, &r.ExpirationDate,
		&r.HotelID, &r.CarID, &r.TourID, &pickup, &dropoff, &pickupAt, &retAt,
		&r.Version, &r.DeletedAt, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	if pickup != nil && pickupAt != nil && retAt != nil {
		r.CarRental = &domain.CarRentalDetails{PickupLocation: *pickup, PickupAt: *pickupAt, ReturnAt: *retAt}
		if dropoff != nil {
			r.CarRental.DropoffLocation = *dropoff
		}
	}
	return &r, nil
}

func carRentalArgs(c *domain.CarRentalDetails) (pickup, dropoff *string, pickupAt, retAt *time.Time) {
	if c == nil {
		return nil, nil, nil, nil
	}
	return &c.PickupLocation, &c.DropoffLocation, &c.PickupAt, &c.ReturnAt
}

func (r *PGReservationRepository) Add(ctx context.Context, res *domain.Reservation) error {
	pickup, dropoff, pickupAt, retAt := carRentalArgs(res.CarRental)
	err := r.db.QueryRow(ctx, `INSERT INTO reservations (pnr, user_id, reservation_type, total_price, currency,
		payment_status, payment_method, status, reservation_date, expiration_date, hotel_id, car_id, tour_id,
		car_pickup_location, car_dropoff_location, car_pickup_at, car_return_at)
		VALUES ($1, $2, $3, ($4::bigint)::numeric / 100, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id, version, created_at, updated_at`,
		res.PNR, res.UserID, res.Type, res.TotalPrice.Amount, res.TotalPrice.Currency,
		res.PaymentStatus, res.PaymentMethod, res.Status, res.ReservationDate, res.ExpirationDate,
		res.HotelID, res.CarID, res.TourID, pickup, dropoff, pickupAt, retAt).
		Scan(&res.ID, &res.Version, &res.CreatedAt, &res.UpdatedAt)
	return mapError("add reservation", err)
}

func (r *PGReservationRepository) GetByID(ctx context.Context, id int64) (*domain.Reservation, error) {
	res, err := scanReservation(r.db.QueryRow(ctx, liveQuery(selectReservation, "id = $1"), id))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.NotFound("reservation", id)
		}
		return nil, mapError("get reservation", err)
	}
	return res, nil
}

func (r *PGReservationRepository) GetByPNR(ctx context.Context, pnr string) (*domain.Reservation, error) {
	res, err := scanReservation(r.db.QueryRow(ctx, liveQuery(selectReservation, "pnr = $1"), pnr))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.NotFound("reservation", pnr)
		}
		return nil, mapError("get reservation by pnr", err)
	}
	return res, nil
}

func (r *PGReservationRepository) Update(ctx context.Context, res *domain.Reservation) error {
	err := r.db.QueryRow(ctx,
		`UPDATE reservations SET status = $3, payment_status = $4, payment_method = $5,
			total_price = ($6::bigint)::numeric / 100, expiration_date = $7,
			version = version + 1, updated_at = now()
		WHERE deleted_at IS NULL AND id = $1 AND version = $2
		RETURNING version, updated_at`,
		res.ID, res.Version, res.Status, res.PaymentStatus, res.PaymentMethod, res.TotalPrice.Amount, res.ExpirationDate).
		Scan(&res.Version, &res.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return domain.Conflict("reservation", res.ID, "modified concurrently or deleted")
		}
		return mapError("update reservation", err)
	}
	return nil
}

func (r *PGReservationRepository) AddPassenger(ctx context.Context, reservationID, passengerID int64) error {
	_, err := r.db.Exec(ctx, `INSERT INTO reservation_passengers (reservation_id, passenger_id)
		VALUES ($1, $2) ON CONFLICT DO NOTHING`, reservationID, passengerID)
	return mapError("add reservation passenger", err)
}

func (r *PGReservationRepository) ListPassengerIDs(ctx context.Context, reservationID int64) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT passenger_id FROM reservation_passengers
		WHERE reservation_id = $1 ORDER BY passenger_id`, reservationID)
	if err != nil {
		return nil, mapError("list reservation passengers", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, mapError("scan reservation passenger", err)
		}
		ids = append(ids, id)
	}
	return ids, mapError("list reservation passengers", rows.Err())
}

// ListExpiredPending returns candidates only. The cancel transaction checks
// the hold again before changing anything.
func (r *PGReservationRepository) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]domain.Reservation, error) {
	rows, err := r.db.Query(ctx,
		liveQuery(selectReservation, "status = 'PENDING'", "expiration_date IS NOT NULL", "expiration_date <= $1")+
			" ORDER BY expiration_date LIMIT $2",
		now, limit)
	if err != nil {
		return nil, mapError("list expired reservations", err)
	}
	defer rows.Close()

	var out []domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, mapError("scan reservation", err)
		}
		out = append(out, *res)
	}
	return out, mapError("list expired reservations", rows.Err())
}

var _ ReservationRepository = (*PGReservationRepository)(nil)
