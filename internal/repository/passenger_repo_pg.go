package repository

import (
	"context"

	"github.com/Domenick1991/travelbooking/internal/domain"
)

type PGPassengerRepository struct {
	db Querier
}

func NewPassengerRepository(db Querier) PassengerRepository {
	return &PGPassengerRepository{db: db}
}

func (r *PGPassengerRepository) GetByID(ctx context.Context, id int64) (*domain.Passenger, error) {
	row := r.db.QueryRow(ctx, liveQuery(`SELECT id, first_name, last_name, national_id, passport_number, date_of_birth,
		passenger_type, deleted_at, created_at FROM passengers`, "id = $1"), id)
	var p domain.Passenger
	if err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.NationalID, &p.PassportNumber, &p.DateOfBirth,
		&p.Type, &p.DeletedAt, &p.CreatedAt); err != nil {
		if isNoRows(err) {
			return nil, domain.NotFound("passenger", id)
		}
		return nil, mapError("get passenger", err)
	}
	return &p, nil
}

func (r *PGPassengerRepository) Add(ctx context.Context, p *domain.Passenger) error {
	err := r.db.QueryRow(ctx, `INSERT INTO passengers (first_name, last_name, national_id, passport_number, date_of_birth, passenger_type)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		p.FirstName, p.LastName, p.NationalID, p.PassportNumber, p.DateOfBirth, p.Type).
		Scan(&p.ID, &p.CreatedAt)
	return mapError("add passenger", err)
}

var _ PassengerRepository = (*PGPassengerRepository)(nil)
