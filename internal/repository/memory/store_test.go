package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/travelbooking/internal/domain"
	"github.com/Domenick1991/travelbooking/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedFlight(s *Store, seats int) domain.Flight {
	return s.AddFlight(domain.Flight{
		FlightNumber:   "TK2124",
		BasePrice:      domain.NewMoney(100000, "TRY"),
		TotalSeats:     seats,
		AvailableSeats: seats,
		Active:         true,
		DepartureTime:  time.Now().Add(24 * time.Hour),
	})
}

func TestStore_CommitPublishesRollbackDiscards(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	f := seedFlight(s, 3)

	tx, err := s.Begin(ctx, repository.Serializable)
	require.NoError(t, err)
	require.NoError(t, tx.Flights().ReserveSeats(ctx, f.ID, 2))
	require.NoError(t, tx.Rollback(ctx))

	got, _ := s.Flight(f.ID)
	assert.Equal(t, 3, got.AvailableSeats)

	tx, err = s.Begin(ctx, repository.Serializable)
	require.NoError(t, err)
	require.NoError(t, tx.Flights().ReserveSeats(ctx, f.ID, 2))
	require.NoError(t, tx.Commit(ctx))

	got, _ = s.Flight(f.ID)
	assert.Equal(t, 1, got.AvailableSeats)
	assert.NoError(t, tx.Rollback(ctx), "rollback after commit is a no-op")
}

func TestStore_ReserveAndReleaseSeats(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	f := seedFlight(s, 1)
	flights := s.Flights()

	require.NoError(t, flights.ReserveSeats(ctx, f.ID, 1))
	assert.ErrorIs(t, flights.ReserveSeats(ctx, f.ID, 1), domain.ErrInsufficientInventory)
	assert.ErrorIs(t, flights.ReserveSeats(ctx, 999, 1), domain.ErrNotFound)

	require.NoError(t, flights.ReleaseSeats(ctx, f.ID, 5))
	got, _ := s.Flight(f.ID)
	assert.Equal(t, 1, got.AvailableSeats, "release clamps at total seats")

	s.DeleteFlight(f.ID)
	assert.ErrorIs(t, flights.ReleaseSeats(ctx, f.ID, 1), domain.ErrNotFound)
	_, err := flights.GetByID(ctx, f.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	list, err := flights.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestStore_ForeignKeysAndUniqueness(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	f := seedFlight(s, 2)
	p := s.AddPassenger(domain.Passenger{FirstName: "Ali", LastName: "Kaya"})

	tx, err := s.Begin(ctx, repository.Serializable)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	res := &domain.Reservation{PNR: "ABCDE12345", Status: domain.ReservationStatusPending}
	require.NoError(t, tx.Reservations().Add(ctx, res))
	assert.Equal(t, int64(1), res.Version)
	assert.ErrorIs(t, tx.Reservations().Add(ctx, &domain.Reservation{PNR: "ABCDE12345"}), domain.ErrPersistenceConflict)

	err = tx.Tickets().AddRange(ctx, []*domain.Ticket{{FlightID: 404, ReservationID: res.ID, PassengerID: p.ID}})
	assert.ErrorIs(t, err, domain.ErrForeignKeyViolation)

	seat := "1A"
	first := &domain.Ticket{FlightID: f.ID, ReservationID: res.ID, PassengerID: p.ID, Status: domain.TicketStatusActive, SeatNumber: &seat}
	require.NoError(t, tx.Tickets().AddRange(ctx, []*domain.Ticket{first}))
	second := &domain.Ticket{FlightID: f.ID, ReservationID: res.ID, PassengerID: p.ID, Status: domain.TicketStatusActive, SeatNumber: &seat}
	assert.ErrorIs(t, tx.Tickets().AddRange(ctx, []*domain.Ticket{second}), domain.ErrPersistenceConflict)

	pay := &domain.Payment{ReservationID: res.ID, TransactionID: "tx-1"}
	require.NoError(t, tx.Payments().Add(ctx, pay))
	assert.ErrorIs(t, tx.Payments().Add(ctx, &domain.Payment{ReservationID: res.ID, TransactionID: "tx-1"}), domain.ErrPersistenceConflict)
	assert.ErrorIs(t, tx.Payments().Add(ctx, &domain.Payment{ReservationID: 404, TransactionID: "tx-2"}), domain.ErrForeignKeyViolation)

	assert.ErrorIs(t, tx.Reservations().AddPassenger(ctx, res.ID, 404), domain.ErrForeignKeyViolation)
	require.NoError(t, tx.Reservations().AddPassenger(ctx, res.ID, p.ID))
	require.NoError(t, tx.Reservations().AddPassenger(ctx, res.ID, p.ID))
	ids, err := tx.Reservations().ListPassengerIDs(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{p.ID}, ids)
}

func TestStore_OptimisticUpdate(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	tx, _ := s.Begin(ctx, repository.Serializable)
	res := &domain.Reservation{PNR: "ZZZZZ00000", Status: domain.ReservationStatusPending}
	require.NoError(t, tx.Reservations().Add(ctx, res))
	require.NoError(t, tx.Commit(ctx))

	tx, _ = s.Begin(ctx, repository.Serializable)
	defer tx.Rollback(ctx)
	a, err := tx.Reservations().GetByID(ctx, res.ID)
	require.NoError(t, err)
	b, err := tx.Reservations().GetByPNR(ctx, "ZZZZZ00000")
	require.NoError(t, err)

	a.Status = domain.ReservationStatusConfirmed
	require.NoError(t, tx.Reservations().Update(ctx, a))
	assert.Equal(t, int64(2), a.Version)

	b.Status = domain.ReservationStatusCancelled
	assert.ErrorIs(t, tx.Reservations().Update(ctx, b), domain.ErrPersistenceConflict)
}

func TestStore_FaultInjection(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	f := seedFlight(s, 2)
	boom := errors.New("boom")

	s.FailOn("commit", boom)
	tx, err := s.Begin(ctx, repository.Serializable)
	require.NoError(t, err)
	require.NoError(t, tx.Flights().ReserveSeats(ctx, f.ID, 1))
	assert.ErrorIs(t, tx.Commit(ctx), boom)

	got, _ := s.Flight(f.ID)
	assert.Equal(t, 2, got.AvailableSeats)

	s.ClearFaults()
	tx, err = s.Begin(ctx, repository.Serializable)
	require.NoError(t, err, "failed commit must release the transaction slot")
	require.NoError(t, tx.Commit(ctx))
}

func TestStore_CancelledContext(t *testing.T) {
	s := NewStore()
	ctx, cancel := context.WithCancel(context.Background())

	tx, err := s.Begin(ctx, repository.Serializable)
	require.NoError(t, err)
	cancel()
	assert.ErrorIs(t, tx.Commit(ctx), context.Canceled)

	_, err = s.Begin(ctx, repository.Serializable)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStore_ConcurrentReserveNeverOversells(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	f := seedFlight(s, 5)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Flights().ReserveSeats(ctx, f.ID, 1); err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	got, _ := s.Flight(f.ID)
	assert.Equal(t, 5, success)
	assert.Equal(t, 0, got.AvailableSeats)
}

func TestStore_ExpiredPendingAndOutbox(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	past := time.Now().Add(-time.Hour)

	tx, _ := s.Begin(ctx, repository.Serializable)
	res := &domain.Reservation{PNR: "EXPIRE0001", Status: domain.ReservationStatusPending, ExpirationDate: &past}
	require.NoError(t, tx.Reservations().Add(ctx, res))
	require.NoError(t, tx.Reservations().Add(ctx, &domain.Reservation{PNR: "KEEP000001", Status: domain.ReservationStatusPending}))
	require.NoError(t, tx.Outbox().Add(ctx, &domain.OutboxEvent{EventType: domain.EventReservationCreated}))
	require.NoError(t, tx.Commit(ctx))

	tx, _ = s.Begin(ctx, repository.Serializable)
	expired, err := tx.Reservations().ListExpiredPending(ctx, time.Now(), 10)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "EXPIRE0001", expired[0].PNR)

	events, err := tx.Outbox().ListUnpublished(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.NoError(t, tx.Outbox().MarkPublished(ctx, events[0].ID))
	require.NoError(t, tx.Commit(ctx))

	require.Len(t, s.Events(), 1)
	assert.NotNil(t, s.Events()[0].PublishedAt)
}

func TestStore_FlightUpdate(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	f := seedFlight(s, 4)
	flights := s.Flights()

	loaded, err := flights.GetByID(ctx, f.ID)
	require.NoError(t, err)
	require.NoError(t, loaded.ReserveSeats(3))
	loaded.Active = false
	require.NoError(t, flights.Update(ctx, loaded))

	got, _ := s.Flight(f.ID)
	assert.Equal(t, 1, got.AvailableSeats)
	assert.False(t, got.Active)

	loaded.AvailableSeats = 9
	assert.ErrorIs(t, flights.Update(ctx, loaded), domain.ErrInsufficientInventory)
	assert.ErrorIs(t, flights.Update(ctx, &domain.Flight{ID: 404}), domain.ErrNotFound)
}
