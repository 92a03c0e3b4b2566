// Package memory is a transactional in-memory implementation of the
// repository interfaces. Transactions are fully serialized and work on a
// private copy of the state that replaces the committed state on Commit.
package memory

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Domenick1991/travelbooking/internal/domain"
	"github.com/Domenick1991/travelbooking/internal/repository"
)

type state struct {
	flights       map[int64]domain.Flight
	passengers    map[int64]domain.Passenger
	reservations  map[int64]domain.Reservation
	resPassengers map[int64][]int64
	tickets       map[int64]domain.Ticket
	payments      map[int64]domain.Payment
	outbox        []domain.OutboxEvent
}

func newState() *state {
	return &state{
		flights:       make(map[int64]domain.Flight),
		passengers:    make(map[int64]domain.Passenger),
		reservations:  make(map[int64]domain.Reservation),
		resPassengers: make(map[int64][]int64),
		tickets:       make(map[int64]domain.Ticket),
		payments:      make(map[int64]domain.Payment),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.flights {
		c.flights[k] = v
	}
	for k, v := range s.passengers {
		c.passengers[k] = v
	}
	for k, v := range s.reservations {
		c.reservations[k] = v
	}
	for k, v := range s.resPassengers {
		c.resPassengers[k] = append([]int64(nil), v...)
	}
	for k, v := range s.tickets {
		c.tickets[k] = v
	}
	for k, v := range s.payments {
		c.payments[k] = v
	}
	c.outbox = append([]domain.OutboxEvent(nil), s.outbox...)
	return c
}

// Store is safe for concurrent use.
type Store struct {
	sem    chan struct{}
	mu     sync.RWMutex
	state  *state
	nextID atomic.Int64
	now    func() time.Time

	faultsMu sync.Mutex
	faults   map[string]error
}

func NewStore() *Store {
	return &Store{
		sem:    make(chan struct{}, 1),
		state:  newState(),
		now:    time.Now,
		faults: make(map[string]error),
	}
}

func (s *Store) id() int64 { return s.nextID.Add(1) }

// FailOn makes the named operation return err until ClearFaults is called.
// Operation names look like "tickets.AddRange" or "commit".
func (s *Store) FailOn(op string, err error) {
	s.faultsMu.Lock()
	defer s.faultsMu.Unlock()
	s.faults[op] = err
}

func (s *Store) ClearFaults() {
	s.faultsMu.Lock()
	defer s.faultsMu.Unlock()
	s.faults = make(map[string]error)
}

func (s *Store) fault(op string) error {
	s.faultsMu.Lock()
	defer s.faultsMu.Unlock()
	return s.faults[op]
}

// Begin blocks until no other transaction is open. Every level is served
// as serializable.
func (s *Store) Begin(ctx context.Context, _ repository.IsolationLevel) (repository.Tx, error) {
	if err := s.fault("begin"); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, domain.Unexpected("begin transaction", err)
	}
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, domain.Unexpected("begin transaction", ctx.Err())
	}
	s.mu.RLock()
	work := s.state.clone()
	s.mu.RUnlock()
	return &tx{store: s, st: work}, nil
}

// Flights returns a repository that runs each call in its own transaction.
func (s *Store) Flights() repository.FlightRepository {
	return autoFlights{store: s}
}

// AddFlight seeds a committed flight and returns it with its id.
func (s *Store) AddFlight(f domain.Flight) domain.Flight {
	if f.ID == 0 {
		f.ID = s.id()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = s.now()
		f.UpdatedAt = f.CreatedAt
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.flights[f.ID] = f
	return f
}

func (s *Store) AddPassenger(p domain.Passenger) domain.Passenger {
	if p.ID == 0 {
		p.ID = s.id()
	}
	if p.Type == "" {
		p.Type = domain.PassengerTypeAdult
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.passengers[p.ID] = p
	return p
}

// DeleteFlight tombstones a flight.
func (s *Store) DeleteFlight(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.state.flights[id]; ok {
		at := s.now()
		f.DeletedAt = &at
		s.state.flights[id] = f
	}
}

// SetReservationExpiry rewrites the hold deadline of a committed reservation.
func (s *Store) SetReservationExpiry(id int64, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.state.reservations[id]; ok {
		r.ExpirationDate = &at
		s.state.reservations[id] = r
	}
}

func (s *Store) Flight(id int64) (domain.Flight, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.state.flights[id]
	return f, ok
}

func (s *Store) Reservations() []domain.Reservation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Reservation, 0, len(s.state.reservations))
	for _, r := range s.state.reservations {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) Tickets() []domain.Ticket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Ticket, 0, len(s.state.tickets))
	for _, t := range s.state.tickets {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) Payments() []domain.Payment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Payment, 0, len(s.state.payments))
	for _, p := range s.state.payments {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) Passengers() []domain.Passenger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Passenger, 0, len(s.state.passengers))
	for _, p := range s.state.passengers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) Events() []domain.OutboxEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.OutboxEvent(nil), s.state.outbox...)
}

type tx struct {
	store *Store
	st    *state
	done  bool
}

func (t *tx) Flights() repository.FlightRepository           { return flights{t} }
func (t *tx) Passengers() repository.PassengerRepository     { return passengers{t} }
func (t *tx) Reservations() repository.ReservationRepository { return reservations{t} }
func (t *tx) Tickets() repository.TicketRepository           { return tickets{t} }
func (t *tx) Payments() repository.PaymentRepository         { return payments{t} }
func (t *tx) Outbox() repository.OutboxRepository            { return outbox{t} }

func (t *tx) check(ctx context.Context, op string) error {
	if t.done {
		return domain.Unexpected(op, errTxClosed)
	}
	if err := ctx.Err(); err != nil {
		return domain.Unexpected(op, err)
	}
	return t.store.fault(op)
}

func (t *tx) release() {
	if !t.done {
		t.done = true
		<-t.store.sem
	}
}

func (t *tx) Commit(ctx context.Context) error {
	if t.done {
		return domain.Unexpected("commit", errTxClosed)
	}
	defer t.release()
	if err := ctx.Err(); err != nil {
		return domain.Unexpected("commit", err)
	}
	if err := t.store.fault("commit"); err != nil {
		return err
	}
	t.store.mu.Lock()
	t.store.state = t.st
	t.store.mu.Unlock()
	return nil
}

func (t *tx) Rollback(context.Context) error {
	t.release()
	return nil
}

var (
	_ repository.UnitOfWork = (*Store)(nil)
	_ repository.Tx         = (*tx)(nil)
)
