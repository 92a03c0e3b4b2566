package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Domenick1991/travelbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRepositories(t *testing.T) {
	pool := &pgxpool.Pool{}
	assert.NotNil(t, NewFlightRepository(pool))
	assert.NotNil(t, NewPassengerRepository(pool))
	assert.NotNil(t, NewReservationRepository(pool))
	assert.NotNil(t, NewTicketRepository(pool))
	assert.NotNil(t, NewPaymentRepository(pool))
	assert.NotNil(t, NewOutboxRepository(pool))
	assert.NotNil(t, NewUnitOfWork(pool))
}

func TestLiveQuery(t *testing.T) {
	assert.Equal(t, "SELECT 1 FROM flights WHERE deleted_at IS NULL", liveQuery("SELECT 1 FROM flights"))
	assert.Equal(t, "UPDATE flights SET x = 1 WHERE deleted_at IS NULL AND id = $1 AND available_seats >= $2",
		liveQuery("UPDATE flights SET x = 1", "id = $1", "available_seats >= $2"))
}

func TestMapError(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want error
	}{
		{"serialization", &pgconn.PgError{Code: "40001"}, domain.ErrPersistenceConflict},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, domain.ErrPersistenceConflict},
		{"foreign key", &pgconn.PgError{Code: "23503", ConstraintName: "tickets_flight_id_fkey"}, domain.ErrForeignKeyViolation},
		{"unique", &pgconn.PgError{Code: "23505", ConstraintName: "reservations_pnr_key"}, domain.ErrPersistenceConflict},
		{"unique kind", &pgconn.PgError{Code: "23505", ConstraintName: "payments_transaction_id_key"}, domain.ErrDuplicateKey},
		{"seat check", &pgconn.PgError{Code: "23514", ConstraintName: constraintFlightSeats}, domain.ErrInsufficientInventory},
		{"other check", &pgconn.PgError{Code: "23514", ConstraintName: "payments_amount_check"}, domain.ErrValidationFailed},
		{"unknown pg", &pgconn.PgError{Code: "XX000"}, domain.ErrUnexpected},
		{"plain", errors.New("connection reset"), domain.ErrUnexpected},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := mapError("op", fmt.Errorf("wrapped: %w", tc.err))
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	assert.NoError(t, mapError("op", nil))
	assert.ErrorIs(t, mapError("op", &pgconn.PgError{Code: "23503"}), domain.ErrPersistenceConflict,
		"foreign key violations are also persistence conflicts")
	assert.ErrorIs(t, mapError("op", context.Canceled), context.Canceled)

	nf := mapError("get flight", domain.NotFound("flight", 7))
	assert.ErrorIs(t, nf, domain.ErrNotFound)
}

func TestIsNoRows(t *testing.T) {
	assert.True(t, isNoRows(fmt.Errorf("scan: %w", pgx.ErrNoRows)))
	assert.False(t, isNoRows(errors.New("other")))
}

func TestParseIsolationLevel(t *testing.T) {
	assert.Equal(t, ReadCommitted, ParseIsolationLevel("read_committed"))
	assert.Equal(t, RepeatableRead, ParseIsolationLevel("repeatable_read"))
	assert.Equal(t, Serializable, ParseIsolationLevel("serializable"))
	assert.Equal(t, Serializable, ParseIsolationLevel(""))

	assert.Equal(t, pgx.ReadCommitted, pgxIsoLevel(ReadCommitted))
	assert.Equal(t, pgx.RepeatableRead, pgxIsoLevel(RepeatableRead))
	assert.Equal(t, pgx.Serializable, pgxIsoLevel("bogus"))
}

func TestCarRentalArgs(t *testing.T) {
	p, d, pa, ra := carRentalArgs(nil)
	assert.Nil(t, p)
	assert.Nil(t, d)
	assert.Nil(t, pa)
	assert.Nil(t, ra)

	c := &domain.CarRentalDetails{PickupLocation: "IST", DropoffLocation: "SAW"}
	p, d, _, _ = carRentalArgs(c)
	assert.Equal(t, "IST", *p)
	assert.Equal(t, "SAW", *d)
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir(migrationsDir)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, "00001_init.sql", entries[0].Name())
}
