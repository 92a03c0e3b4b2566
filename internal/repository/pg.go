package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/Domenick1991/travelbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type scanner interface {
	Scan(dest ...any) error
}

// liveQuery appends the tombstone filter every read and write path shares,
// followed by the extra conditions.
func liveQuery(base string, conds ...string) string {
	all := append([]string{"deleted_at IS NULL"}, conds...)
	return base + " WHERE " + strings.Join(all, " AND ")
}

const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateForeignKeyViolation  = "23503"
	sqlStateUniqueViolation      = "23505"
	sqlStateCheckViolation       = "23514"

	constraintFlightSeats = "flights_available_seats_check"
)

// mapError translates driver failures into domain error kinds.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return de.WithOp(op)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateSerializationFailure, sqlStateDeadlockDetected:
			return &domain.Error{Kind: domain.ErrPersistenceConflict, Op: op, Msg: "concurrent transaction conflict", Err: err}
		case sqlStateForeignKeyViolation:
			return domain.ForeignKeyViolation("referenced row is missing ("+pgErr.ConstraintName+")", err).WithOp(op)
		case sqlStateUniqueViolation:
			return &domain.Error{Kind: domain.ErrDuplicateKey, Op: op, Msg: "duplicate value violates " + pgErr.ConstraintName, Err: err}
		case sqlStateCheckViolation:
			if pgErr.ConstraintName == constraintFlightSeats {
				return &domain.Error{Kind: domain.ErrInsufficientInventory, Op: op, Msg: "flight seat count out of range", Err: err}
			}
			return &domain.Error{Kind: domain.ErrValidationFailed, Op: op, Msg: "check constraint " + pgErr.ConstraintName, Err: err}
		}
	}
	return domain.Unexpected(op, err)
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

type PGUnitOfWork struct {
	pool *pgxpool.Pool
}

func NewUnitOfWork(pool *pgxpool.Pool) *PGUnitOfWork {
	return &PGUnitOfWork{pool: pool}
}

func (u *PGUnitOfWork) Begin(ctx context.Context, level IsolationLevel) (Tx, error) {
	tx, err := u.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgxIsoLevel(level)})
	if err != nil {
		return nil, mapError("begin transaction", err)
	}
	return &pgTx{tx: tx}, nil
}

func pgxIsoLevel(level IsolationLevel) pgx.TxIsoLevel {
	switch level {
	case ReadCommitted:
		return pgx.ReadCommitted
	case RepeatableRead:
		return pgx.RepeatableRead
	}
	return pgx.Serializable
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) Flights() FlightRepository           { return NewFlightRepository(t.tx) }
func (t *pgTx) Passengers() PassengerRepository     { return NewPassengerRepository(t.tx) }
func (t *pgTx) Reservations() ReservationRepository { return NewReservationRepository(t.tx) }
func (t *pgTx) Tickets() TicketRepository           { return NewTicketRepository(t.tx) }
func (t *pgTx) Payments() PaymentRepository         { return NewPaymentRepository(t.tx) }
func (t *pgTx) Outbox() OutboxRepository            { return NewOutboxRepository(t.tx) }

// Commit may itself fail with a serialization error under Serializable.
func (t *pgTx) Commit(ctx context.Context) error {
	return mapError("commit", t.tx.Commit(ctx))
}

func (t *pgTx) Rollback(ctx context.Context) error {
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

var (
	_ UnitOfWork = (*PGUnitOfWork)(nil)
	_ Tx         = (*pgTx)(nil)
)
