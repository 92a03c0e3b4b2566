package memory

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/Domenick1991/travelbooking/internal/domain"
	"github.com/Domenick1991/travelbooking/internal/repository"
	"github.com/google/uuid"
)

var errTxClosed = errors.New("transaction already closed")

type flights struct{ t *tx }

func (r flights) live(id int64) (domain.Flight, bool) {
	f, ok := r.t.st.flights[id]
	return f, ok && !f.Deleted()
}

func (r flights) List(ctx context.Context) ([]domain.Flight, error) {
	if err := r.t.check(ctx, "flights.List"); err != nil {
		return nil, err
	}
	out := make([]domain.Flight, 0, len(r.t.st.flights))
	for _, f := range r.t.st.flights {
		if f.Bookable() {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DepartureTime.Before(out[j].DepartureTime) })
	return out, nil
}

func (r flights) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	if err := r.t.check(ctx, "flights.GetByID"); err != nil {
		return nil, err
	}
	f, ok := r.live(id)
	if !ok {
		return nil, domain.NotFound("flight", id)
	}
	return &f, nil
}

func (r flights) ReserveSeats(ctx context.Context, flightID int64, n int) error {
	if err := r.t.check(ctx, "flights.ReserveSeats"); err != nil {
		return err
	}
	f, ok := r.live(flightID)
	if !ok {
		return domain.NotFound("flight", flightID)
	}
	if err := f.ReserveSeats(n); err != nil {
		return err
	}
	f.UpdatedAt = r.t.store.now()
	r.t.st.flights[flightID] = f
	return nil
}

func (r flights) ReleaseSeats(ctx context.Context, flightID int64, n int) error {
	if err := r.t.check(ctx, "flights.ReleaseSeats"); err != nil {
		return err
	}
	if n <= 0 {
		return nil
	}
	f, ok := r.live(flightID)
	if !ok {
		return domain.NotFound("flight", flightID)
	}
	f.ReleaseSeats(n)
	f.UpdatedAt = r.t.store.now()
	r.t.st.flights[flightID] = f
	return nil
}

func (r flights) Update(ctx context.Context, f *domain.Flight) error {
	if err := r.t.check(ctx, "flights.Update"); err != nil {
		return err
	}
	cur, ok := r.live(f.ID)
	if !ok {
		return domain.NotFound("flight", f.ID)
	}
	if f.AvailableSeats < 0 || f.AvailableSeats > cur.TotalSeats {
		return domain.InsufficientInventory(f.ID, cur.AvailableSeats-f.AvailableSeats, cur.AvailableSeats)
	}
	cur.AvailableSeats = f.AvailableSeats
	cur.Active = f.Active
	cur.UpdatedAt = r.t.store.now()
	r.t.st.flights[f.ID] = cur
	f.UpdatedAt = cur.UpdatedAt
	return nil
}

// autoFlights wraps every call in a short transaction of its own.
type autoFlights struct{ store *Store }

func (a autoFlights) run(ctx context.Context, fn func(repository.FlightRepository) error) error {
	t, err := a.store.Begin(ctx, repository.ReadCommitted)
	if err != nil {
		return err
	}
	if err := fn(t.Flights()); err != nil {
		_ = t.Rollback(ctx)
		return err
	}
	return t.Commit(ctx)
}

func (a autoFlights) List(ctx context.Context) (out []domain.Flight, err error) {
	err = a.run(ctx, func(r repository.FlightRepository) error {
		out, err = r.List(ctx)
		return err
	})
	return out, err
}

func (a autoFlights) GetByID(ctx context.Context, id int64) (f *domain.Flight, err error) {
	err = a.run(ctx, func(r repository.FlightRepository) error {
		f, err = r.GetByID(ctx, id)
		return err
	})
	return f, err
}

func (a autoFlights) ReserveSeats(ctx context.Context, flightID int64, n int) error {
	return a.run(ctx, func(r repository.FlightRepository) error { return r.ReserveSeats(ctx, flightID, n) })
}

func (a autoFlights) Update(ctx context.Context, f *domain.Flight) error {
	return a.run(ctx, func(r repository.FlightRepository) error { return r.Update(ctx, f) })
}

func (a autoFlights) ReleaseSeats(ctx context.Context, flightID int64, n int) error {
	return a.run(ctx, func(r repository.FlightRepository) error { return r.ReleaseSeats(ctx, flightID, n) })
}

type passengers struct{ t *tx }

func (r passengers) GetByID(ctx context.Context, id int64) (*domain.Passenger, error) {
	if err := r.t.check(ctx, "passengers.GetByID"); err != nil {
		return nil, err
	}
	p, ok := r.t.st.passengers[id]
	if !ok || p.DeletedAt != nil {
		return nil, domain.NotFound("passenger", id)
	}
	return &p, nil
}

func (r passengers) Add(ctx context.Context, p *domain.Passenger) error {
	if err := r.t.check(ctx, "passengers.Add"); err != nil {
		return err
	}
	p.ID = r.t.store.id()
	p.CreatedAt = r.t.store.now()
	r.t.st.passengers[p.ID] = *p
	return nil
}

type reservations struct{ t *tx }

// stored strips the loaded collections; they live in their own tables.
func stored(res *domain.Reservation) domain.Reservation {
	cp := *res
	cp.Tickets, cp.Payments, cp.PassengerIDs = nil, nil, nil
	return cp
}

func (r reservations) Add(ctx context.Context, res *domain.Reservation) error {
	if err := r.t.check(ctx, "reservations.Add"); err != nil {
		return err
	}
	for _, existing := range r.t.st.reservations {
		if existing.PNR == res.PNR {
			return domain.Duplicate("reservation", res.PNR, "duplicate pnr")
		}
	}
	now := r.t.store.now()
	res.ID = r.t.store.id()
	res.Version = 1
	res.CreatedAt, res.UpdatedAt = now, now
	r.t.st.reservations[res.ID] = stored(res)
	return nil
}

func (r reservations) GetByID(ctx context.Context, id int64) (*domain.Reservation, error) {
	if err := r.t.check(ctx, "reservations.GetByID"); err != nil {
		return nil, err
	}
	res, ok := r.t.st.reservations[id]
	if !ok || res.DeletedAt != nil {
		return nil, domain.NotFound("reservation", id)
	}
	return &res, nil
}

func (r reservations) GetByPNR(ctx context.Context, pnr string) (*domain.Reservation, error) {
	if err := r.t.check(ctx, "reservations.GetByPNR"); err != nil {
		return nil, err
	}
	for _, res := range r.t.st.reservations {
		if res.PNR == pnr && res.DeletedAt == nil {
			return &res, nil
		}
	}
	return nil, domain.NotFound("reservation", pnr)
}

func (r reservations) Update(ctx context.Context, res *domain.Reservation) error {
	if err := r.t.check(ctx, "reservations.Update"); err != nil {
		return err
	}
	cur, ok := r.t.st.reservations[res.ID]
	if !ok || cur.DeletedAt != nil || cur.Version != res.Version {
		return domain.Conflict("reservation", res.ID, "modified concurrently or deleted")
	}
	cur.Status = res.Status
	cur.PaymentStatus = res.PaymentStatus
	cur.PaymentMethod = res.PaymentMethod
	cur.TotalPrice = res.TotalPrice
	cur.ExpirationDate = res.ExpirationDate
	cur.Version++
	cur.UpdatedAt = r.t.store.now()
	r.t.st.reservations[res.ID] = cur

	res.Version = cur.Version
	res.UpdatedAt = cur.UpdatedAt
	return nil
}

func (r reservations) AddPassenger(ctx context.Context, reservationID, passengerID int64) error {
	if err := r.t.check(ctx, "reservations.AddPassenger"); err != nil {
		return err
	}
	if _, ok := r.t.st.reservations[reservationID]; !ok {
		return domain.ForeignKeyViolation("reservation passenger references missing reservation", nil)
	}
	if _, ok := r.t.st.passengers[passengerID]; !ok {
		return domain.ForeignKeyViolation("reservation passenger references missing passenger", nil)
	}
	for _, id := range r.t.st.resPassengers[reservationID] {
		if id == passengerID {
			return nil
		}
	}
	r.t.st.resPassengers[reservationID] = append(r.t.st.resPassengers[reservationID], passengerID)
	return nil
}

func (r reservations) ListPassengerIDs(ctx context.Context, reservationID int64) ([]int64, error) {
	if err := r.t.check(ctx, "reservations.ListPassengerIDs"); err != nil {
		return nil, err
	}
	ids := append([]int64(nil), r.t.st.resPassengers[reservationID]...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r reservations) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]domain.Reservation, error) {
	if err := r.t.check(ctx, "reservations.ListExpiredPending"); err != nil {
		return nil, err
	}
	var out []domain.Reservation
	for _, res := range r.t.st.reservations {
		if res.DeletedAt == nil && res.Expired(now) {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExpirationDate.Before(*out[j].ExpirationDate) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type tickets struct{ t *tx }

func (r tickets) seatTaken(flightID, ticketID int64, seat *string) bool {
	if seat == nil {
		return false
	}
	for _, other := range r.t.st.tickets {
		if other.ID != ticketID && other.FlightID == flightID && other.Active() &&
			other.SeatNumber != nil && *other.SeatNumber == *seat {
			return true
		}
	}
	return false
}

func (r tickets) AddRange(ctx context.Context, ts []*domain.Ticket) error {
	if err := r.t.check(ctx, "tickets.AddRange"); err != nil {
		return err
	}
	for _, tk := range ts {
		if _, ok := r.t.st.flights[tk.FlightID]; !ok {
			return domain.ForeignKeyViolation("ticket references missing flight", nil)
		}
		if _, ok := r.t.st.reservations[tk.ReservationID]; !ok {
			return domain.ForeignKeyViolation("ticket references missing reservation", nil)
		}
		if _, ok := r.t.st.passengers[tk.PassengerID]; !ok {
			return domain.ForeignKeyViolation("ticket references missing passenger", nil)
		}
		if r.seatTaken(tk.FlightID, 0, tk.SeatNumber) {
			return domain.Conflict("ticket", *tk.SeatNumber, "seat already assigned")
		}
	}
	now := r.t.store.now()
	for _, tk := range ts {
		tk.ID = r.t.store.id()
		tk.CreatedAt = now
		r.t.st.tickets[tk.ID] = *tk
	}
	return nil
}

func (r tickets) Update(ctx context.Context, tk *domain.Ticket) error {
	if err := r.t.check(ctx, "tickets.Update"); err != nil {
		return err
	}
	cur, ok := r.t.st.tickets[tk.ID]
	if !ok {
		return domain.NotFound("ticket", tk.ID)
	}
	if tk.Active() && r.seatTaken(cur.FlightID, tk.ID, tk.SeatNumber) {
		return domain.Conflict("ticket", *tk.SeatNumber, "seat already assigned")
	}
	cur.SeatNumber = tk.SeatNumber
	cur.Status = tk.Status
	cur.CancelledAt = tk.CancelledAt
	r.t.st.tickets[tk.ID] = cur
	return nil
}

func (r tickets) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	if err := r.t.check(ctx, "tickets.GetByID"); err != nil {
		return nil, err
	}
	tk, ok := r.t.st.tickets[id]
	if !ok {
		return nil, domain.NotFound("ticket", id)
	}
	return &tk, nil
}

func (r tickets) ListByReservation(ctx context.Context, reservationID int64) ([]*domain.Ticket, error) {
	if err := r.t.check(ctx, "tickets.ListByReservation"); err != nil {
		return nil, err
	}
	var out []*domain.Ticket
	for _, tk := range r.t.st.tickets {
		if tk.ReservationID == reservationID {
			cp := tk
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type payments struct{ t *tx }

func (r payments) Add(ctx context.Context, p *domain.Payment) error {
	if err := r.t.check(ctx, "payments.Add"); err != nil {
		return err
	}
	if _, ok := r.t.st.reservations[p.ReservationID]; !ok {
		return domain.ForeignKeyViolation("payment references missing reservation", nil)
	}
	for _, other := range r.t.st.payments {
		if other.TransactionID == p.TransactionID {
			return domain.Duplicate("payment", p.TransactionID, "duplicate transaction id")
		}
	}
	p.ID = r.t.store.id()
	r.t.st.payments[p.ID] = *p
	return nil
}

func (r payments) Update(ctx context.Context, p *domain.Payment) error {
	if err := r.t.check(ctx, "payments.Update"); err != nil {
		return err
	}
	cur, ok := r.t.st.payments[p.ID]
	if !ok {
		return domain.NotFound("payment", p.ID)
	}
	cur.Status = p.Status
	cur.ErrorMessage = p.ErrorMessage
	cur.TransactionDate = p.TransactionDate
	r.t.st.payments[p.ID] = cur
	return nil
}

func (r payments) GetByID(ctx context.Context, id int64) (*domain.Payment, error) {
	if err := r.t.check(ctx, "payments.GetByID"); err != nil {
		return nil, err
	}
	p, ok := r.t.st.payments[id]
	if !ok {
		return nil, domain.NotFound("payment", id)
	}
	return &p, nil
}

func (r payments) ListByReservation(ctx context.Context, reservationID int64) ([]*domain.Payment, error) {
	if err := r.t.check(ctx, "payments.ListByReservation"); err != nil {
		return nil, err
	}
	var out []*domain.Payment
	for _, p := range r.t.st.payments {
		if p.ReservationID == reservationID {
			cp := p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type outbox struct{ t *tx }

func (r outbox) Add(ctx context.Context, e *domain.OutboxEvent) error {
	if err := r.t.check(ctx, "outbox.Add"); err != nil {
		return err
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	r.t.st.outbox = append(r.t.st.outbox, *e)
	return nil
}

func (r outbox) ListUnpublished(ctx context.Context, limit int) ([]domain.OutboxEvent, error) {
	if err := r.t.check(ctx, "outbox.ListUnpublished"); err != nil {
		return nil, err
	}
	var out []domain.OutboxEvent
	for _, e := range r.t.st.outbox {
		if e.PublishedAt == nil {
			out = append(out, e)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r outbox) MarkPublished(ctx context.Context, id uuid.UUID) error {
	if err := r.t.check(ctx, "outbox.MarkPublished"); err != nil {
		return err
	}
	for i := range r.t.st.outbox {
		if r.t.st.outbox[i].ID == id {
			at := r.t.store.now()
			r.t.st.outbox[i].PublishedAt = &at
			return nil
		}
	}
	return nil
}
