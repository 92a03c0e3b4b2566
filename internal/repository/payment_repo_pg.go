package repository

import (
	"context"

	"github.com/Domenick1991/travelbooking/internal/domain"
)

const selectPayment = `SELECT id, reservation_id, (amount * 100)::bigint, currency, payment_method, transaction_id,
	transaction_type, status, error_message, transaction_date
	FROM payments`

type PGPaymentRepository struct {
	db Querier
}

func NewPaymentRepository(db Querier) PaymentRepository {
	return &PGPaymentRepository{db: db}
}

func scanPayment(row scanner) (*domain.Payment, error) {
	var p domain.Payment
	if err := row.Scan(&p.ID, &p.ReservationID, &p.Amount.Amount, &p.Amount.Currency, &p.Method, &p.TransactionID,
		&p.Type, &p.Status, &p.ErrorMessage, &p.TransactionDate); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PGPaymentRepository) Add(ctx context.Context, p *domain.Payment) error {
	err := r.db.QueryRow(ctx, `INSERT INTO payments (reservation_id, amount, currency, payment_method, transaction_id,
		transaction_type, status, error_message, transaction_date)
		VALUES ($1, ($2::bigint)::numeric / 100, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		p.ReservationID, p.Amount.Amount, p.Amount.Currency, p.Method, p.TransactionID,
		p.Type, p.Status, p.ErrorMessage, p.TransactionDate).
		Scan(&p.ID)
	return mapError("add payment", err)
}

// Update persists status transitions only; amount and type are immutable.
func (r *PGPaymentRepository) Update(ctx context.Context, p *domain.Payment) error {
	res, err := r.db.Exec(ctx, `UPDATE payments SET status = $2, error_message = $3, transaction_date = $4 WHERE id = $1`,
		p.ID, p.Status, p.ErrorMessage, p.TransactionDate)
	if err != nil {
		return mapError("update payment", err)
	}
	if res.RowsAffected() == 0 {
		return domain.NotFound("payment", p.ID)
	}
	return nil
}

func (r *PGPaymentRepository) GetByID(ctx context.Context, id int64) (*domain.Payment, error) {
	p, err := scanPayment(r.db.QueryRow(ctx, selectPayment+" WHERE id = $1", id))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.NotFound("payment", id)
		}
		return nil, mapError("get payment", err)
	}
	return p, nil
}

func (r *PGPaymentRepository) ListByReservation(ctx context.Context, reservationID int64) ([]*domain.Payment, error) {
	rows, err := r.db.Query(ctx, selectPayment+" WHERE reservation_id = $1 ORDER BY id", reservationID)
	if err != nil {
		return nil, mapError("list payments", err)
	}
	defer rows.Close()

	var out []*domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, mapError("scan payment", err)
		}
		out = append(out, p)
	}
	return out, mapError("list payments", rows.Err())
}

var _ PaymentRepository = (*PGPaymentRepository)(nil)
