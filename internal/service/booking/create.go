package booking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Domenick1991/travelbooking/internal/domain"
	"github.com/Domenick1991/travelbooking/internal/payment"
	"github.com/Domenick1991/travelbooking/internal/pricing"
	"github.com/Domenick1991/travelbooking/internal/repository"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// loader caches flights and passengers for the duration of one call so a
// flight referenced by several tickets is read once.
type loader struct {
	tx         repository.Tx
	flights    map[int64]*domain.Flight
	passengers map[int64]*domain.Passenger
}

func newLoader(tx repository.Tx) *loader {
	return &loader{
		tx:         tx,
		flights:    make(map[int64]*domain.Flight),
		passengers: make(map[int64]*domain.Passenger),
	}
}

func (l *loader) flight(ctx context.Context, id int64) (*domain.Flight, error) {
	if f, ok := l.flights[id]; ok {
		return f, nil
	}
	f, err := l.tx.Flights().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	l.flights[id] = f
	return f, nil
}

// passenger loads a referenced passenger or inserts the inline one.
func (l *loader) passenger(ctx context.Context, ref PassengerRef) (*domain.Passenger, error) {
	if ref.PassengerID > 0 {
		if p, ok := l.passengers[ref.PassengerID]; ok {
			return p, nil
		}
		p, err := l.tx.Passengers().GetByID(ctx, ref.PassengerID)
		if err != nil {
			return nil, err
		}
		l.passengers[p.ID] = p
		return p, nil
	}
	if ref.Details == nil {
		return nil, domain.Validation("passenger id or details are required")
	}
	p := ref.Details.toDomain()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := l.tx.Passengers().Add(ctx, p); err != nil {
		return nil, err
	}
	l.passengers[p.ID] = p
	return p, nil
}

type ticketPlan struct {
	req       TicketRequest
	flight    *domain.Flight
	passenger *domain.Passenger
	class     domain.SeatClass
	baggage   domain.BaggageOption
	price     domain.Money
	fee       domain.Money
}

func (s *BookingService) CreateReservationWithTicketsAndPayment(ctx context.Context, input CreateReservationInput) (*domain.Reservation, error) {
	ctx, span := s.tracer.Start(ctx, "booking.CreateReservation", trace.WithAttributes(
		attribute.Int64("user_id", input.UserID),
		attribute.Int("tickets", len(input.Tickets)),
	))
	defer span.End()

	var res *domain.Reservation
	err := s.withRetry(ctx, "create reservation", func(ctx context.Context) error {
		var err error
		res, err = s.createReservation(ctx, input)
		return err
	})
	if err != nil {
		s.fail(span, "create reservation failed", err, zap.Int64("user_id", input.UserID))
		return nil, domain.Wrap("create reservation", err)
	}

	span.SetAttributes(attribute.String("pnr", res.PNR), attribute.Int64("reservation_id", res.ID))
	s.logger.Info("reservation created",
		zap.Int64("reservation_id", res.ID),
		zap.String("pnr", res.PNR),
		zap.Int("tickets", len(res.Tickets)),
		zap.String("total", res.TotalPrice.String()),
		zap.String("payment_status", string(res.PaymentStatus)),
	)
	s.invalidateFlights(ctx, flightIDs(res.Tickets))
	return res, nil
}

func (s *BookingService) createReservation(ctx context.Context, input CreateReservationInput) (*domain.Reservation, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	pnr, err := s.resolvePNR(input.PNR)
	if err != nil {
		return nil, err
	}

	var res *domain.Reservation
	err = s.inTx(ctx, s.createIsolation, func(tx repository.Tx) error {
		ld := newLoader(tx)

		plans, total, err := s.priceTickets(ctx, ld, input.Tickets)
		if err != nil {
			return err
		}
		if len(plans) == 0 {
			total = input.total()
		}

		now := s.now()
		draft := &domain.Reservation{
			PNR:             pnr,
			UserID:          input.UserID,
			Type:            input.Type,
			TotalPrice:      total,
			PaymentStatus:   domain.PaymentStatusPending,
			Status:          domain.ReservationStatusPending,
			ReservationDate: now,
			ExpirationDate:  input.ExpiresAt,
			HotelID:         input.HotelID,
			CarID:           input.CarID,
			TourID:          input.TourID,
			CarRental:       input.carRental(),
		}
		if draft.ExpirationDate == nil && s.holdTTL > 0 {
			exp := now.Add(s.holdTTL)
			draft.ExpirationDate = &exp
		}
		if err := tx.Reservations().Add(ctx, draft); err != nil {
			if input.PNR != "" && errors.Is(err, domain.ErrDuplicateKey) {
				return domain.Validation("pnr %s is already taken", pnr)
			}
			return err
		}
		res, err = reload(ctx, tx, draft.ID)
		if err != nil {
			return err
		}

		if err := s.issueTickets(ctx, tx, res, plans); err != nil {
			return err
		}
		for _, ref := range input.Participants {
			p, err := ld.passenger(ctx, ref)
			if err != nil {
				return err
			}
			if err := res.AddPassenger(p.ID); err != nil {
				return err
			}
			if err := tx.Reservations().AddPassenger(ctx, res.ID, p.ID); err != nil {
				return err
			}
		}
		if input.Payment != nil {
			if err := s.takePayment(ctx, tx, res, *input.Payment); err != nil {
				return err
			}
		}

		if err := s.emit(ctx, tx, domain.EventReservationCreated, res); err != nil {
			return err
		}
		if input.Payment != nil && s.paymentMode == payment.ModeAsync {
			return s.emit(ctx, tx, domain.EventPaymentRequested, res)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *BookingService) resolvePNR(supplied string) (string, error) {
	if strings.TrimSpace(supplied) != "" {
		return domain.NormalizePNR(supplied)
	}
	pnr, err := domain.GeneratePNR()
	if err != nil {
		return "", fmt.Errorf("generate pnr: %w", err)
	}
	return pnr, nil
}

// priceTickets loads every flight and passenger, checks remaining seats
// counting earlier tickets of the same request and prices each ticket.
func (s *BookingService) priceTickets(ctx context.Context, ld *loader, reqs []TicketRequest) ([]ticketPlan, domain.Money, error) {
	var total domain.Money
	plans := make([]ticketPlan, 0, len(reqs))
	requested := make(map[int64]int)

	for _, req := range reqs {
		f, err := ld.flight(ctx, req.FlightID)
		if err != nil {
			return nil, total, err
		}
		if !f.Bookable() {
			return nil, total, domain.Validation("flight %s is not open for booking", f.FlightNumber)
		}
		requested[f.ID]++
		if f.AvailableSeats < requested[f.ID] {
			return nil, total, domain.InsufficientInventory(f.ID, requested[f.ID], f.AvailableSeats)
		}
		p, err := ld.passenger(ctx, req.Passenger)
		if err != nil {
			return nil, total, err
		}

		class := pricing.NormalizeSeatClass(req.SeatClass)
		baggage := pricing.NormalizeBaggage(req.Baggage)
		price, fee := pricing.CalculateTicketPriceAndBaggage(f, class, baggage)
		if total, err = total.Add(price); err != nil {
			return nil, total, err
		}
		if total, err = total.Add(fee); err != nil {
			return nil, total, err
		}
		plans = append(plans, ticketPlan{req: req, flight: f, passenger: p, class: class, baggage: baggage, price: price, fee: fee})
	}
	return plans, total, nil
}

// issueTickets builds and links every ticket, takes one seat per ticket and
// inserts them in one batch.
func (s *BookingService) issueTickets(ctx context.Context, tx repository.Tx, res *domain.Reservation, plans []ticketPlan) error {
	if len(plans) == 0 {
		return nil
	}
	seats := make(map[int64]int)
	for _, p := range plans {
		t, err := domain.NewTicket(p.flight, res, p.passenger, p.req.Contact.toDomain(), p.class, p.baggage, p.price, p.fee)
		if err != nil {
			return err
		}
		if p.req.SeatNumber != nil && strings.TrimSpace(*p.req.SeatNumber) != "" {
			if err := t.AssignSeat(*p.req.SeatNumber); err != nil {
				return err
			}
		}
		if err := res.AddTicket(t); err != nil {
			return err
		}
		if err := p.flight.ReserveSeats(1); err != nil {
			return err
		}
		seats[p.flight.ID]++
	}

	// Rows are locked in ascending flight id so two multi-flight bookings
	// cannot deadlock on each other.
	ids := make([]int64, 0, len(seats))
	for id := range seats {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if err := tx.Flights().ReserveSeats(ctx, id, seats[id]); err != nil {
			return err
		}
	}
	return tx.Tickets().AddRange(ctx, res.Tickets)
}

// takePayment records one payment per ticket, or a single one for bookings
// without tickets. In sync mode the simulated gateway captures them at once.
func (s *BookingService) takePayment(ctx context.Context, tx repository.Tx, res *domain.Reservation, in PaymentInput) error {
	if _, err := reload(ctx, tx, res.ID); err != nil {
		return err
	}

	shares := []domain.Money{res.TotalPrice}
	if len(res.Tickets) > 0 {
		shares = shares[:0]
		for _, t := range res.Tickets {
			shares = append(shares, t.Total())
		}
	}
	for i, amount := range shares {
		txID := strings.TrimSpace(in.TransactionID)
		if txID != "" && len(shares) > 1 {
			txID = fmt.Sprintf("%s-%d", txID, i+1)
		}
		p, err := s.recorder.RecordPayment(res, amount, in.Method, txID, in.Type)
		if err != nil {
			return err
		}
		if s.paymentMode == payment.ModeSync {
			if err := s.recorder.MarkPaid(p); err != nil {
				return err
			}
		}
		if err := tx.Payments().Add(ctx, p); err != nil {
			if in.TransactionID != "" && errors.Is(err, domain.ErrDuplicateKey) {
				return domain.Validation("transaction id %s is already recorded", txID)
			}
			return err
		}
	}

	res.PaymentMethod = in.Method
	if s.paymentMode == payment.ModeSync {
		if err := res.UpdatePaymentStatus(domain.PaymentStatusPaid); err != nil {
			return err
		}
		if err := res.Confirm(); err != nil {
			return err
		}
	}
	return tx.Reservations().Update(ctx, res)
}
