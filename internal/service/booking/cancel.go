package booking

import (
	"context"
	"errors"
	"sort"

	"github.com/Domenick1991/travelbooking/internal/domain"
	"github.com/Domenick1991/travelbooking/internal/payment"
	"github.com/Domenick1991/travelbooking/internal/repository"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// errHoldActive reports that a reservation picked by the expiry sweep was
// confirmed or extended before its cancellation started.
var errHoldActive = errors.New("reservation hold is no longer expired")

func (s *BookingService) CancelReservation(ctx context.Context, reservationID int64) (*domain.Reservation, error) {
	return s.cancel(ctx, "booking.CancelReservation", reservationID, false)
}

// expireReservation cancels a reservation only if it is still pending past
// its hold when the cancel transaction reads it.
func (s *BookingService) expireReservation(ctx context.Context, reservationID int64) (*domain.Reservation, error) {
	return s.cancel(ctx, "booking.ExpireReservation", reservationID, true)
}

func (s *BookingService) cancel(ctx context.Context, spanName string, reservationID int64, onlyExpired bool) (*domain.Reservation, error) {
	ctx, span := s.tracer.Start(ctx, spanName, trace.WithAttributes(
		attribute.Int64("reservation_id", reservationID),
	))
	defer span.End()

	var res *domain.Reservation
	err := s.withRetry(ctx, "cancel reservation", func(ctx context.Context) error {
		var err error
		res, err = s.cancelReservation(ctx, reservationID, onlyExpired)
		return err
	})
	if errors.Is(err, errHoldActive) {
		return nil, err
	}
	if err != nil {
		s.fail(span, "cancel reservation failed", err, zap.Int64("reservation_id", reservationID))
		return nil, domain.Wrap("cancel reservation", err)
	}

	s.logger.Info("reservation cancelled",
		zap.Int64("reservation_id", res.ID),
		zap.String("pnr", res.PNR),
		zap.String("payment_status", string(res.PaymentStatus)),
	)
	s.invalidateFlights(ctx, flightIDs(res.Tickets))
	return res, nil
}

func (s *BookingService) cancelReservation(ctx context.Context, reservationID int64, onlyExpired bool) (*domain.Reservation, error) {
	var res *domain.Reservation
	err := s.inTx(ctx, s.cancelIsolation, func(tx repository.Tx) error {
		var err error
		res, err = tx.Reservations().GetByID(ctx, reservationID)
		if err != nil {
			return err
		}
		switch res.Status {
		case domain.ReservationStatusCancelled:
			return domain.AlreadyCancelled("reservation", res.PNR)
		case domain.ReservationStatusCompleted:
			return domain.Validation("reservation %s is completed and cannot be cancelled", res.PNR)
		}
		if onlyExpired && !res.Expired(s.now()) {
			return errHoldActive
		}
		if err := loadAggregate(ctx, tx, res); err != nil {
			return err
		}

		if err := s.releaseTickets(ctx, tx, res); err != nil {
			return err
		}
		refunded, err := s.compensatePayments(ctx, tx, res)
		if err != nil {
			return err
		}

		if refunded {
			if err := res.UpdatePaymentStatus(domain.PaymentStatusRefunded); err != nil {
				return err
			}
		} else if res.PaymentStatus == domain.PaymentStatusPending && len(res.Payments) > 0 {
			if err := res.UpdatePaymentStatus(domain.PaymentStatusFailed); err != nil {
				return err
			}
		}
		if err := res.Cancel(); err != nil {
			return err
		}
		if err := tx.Reservations().Update(ctx, res); err != nil {
			return err
		}

		if err := s.emit(ctx, tx, domain.EventReservationCancelled, res); err != nil {
			return err
		}
		if refunded {
			return s.emit(ctx, tx, domain.EventPaymentRefunded, res)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// releaseTickets cancels every active ticket and returns its seat. A flight
// that has been deleted since booking has no inventory left to restore.
func (s *BookingService) releaseTickets(ctx context.Context, tx repository.Tx, res *domain.Reservation) error {
	now := s.now()
	seats := make(map[int64]int)
	for _, t := range res.Tickets {
		if !t.Active() {
			continue
		}
		if err := t.Cancel(now); err != nil {
			return err
		}
		if err := tx.Tickets().Update(ctx, t); err != nil {
			return err
		}
		seats[t.FlightID]++
	}

	ids := make([]int64, 0, len(seats))
	for id := range seats {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		err := tx.Flights().ReleaseSeats(ctx, id, seats[id])
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("seats not released, flight is gone",
				zap.Int64("flight_id", id), zap.Int("seats", seats[id]), zap.String("pnr", res.PNR))
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// compensatePayments refunds captured payments and fails pending ones.
func (s *BookingService) compensatePayments(ctx context.Context, tx repository.Tx, res *domain.Reservation) (bool, error) {
	refunded := false
	originals := append([]*domain.Payment(nil), res.Payments...)
	for _, p := range originals {
		switch {
		case p.Type == domain.TransactionTypePayment && p.Status == domain.PaymentStatusPaid:
			refund, err := s.recorder.MarkRefunded(res, p)
			if err != nil {
				return false, err
			}
			if err := tx.Payments().Update(ctx, p); err != nil {
				return false, err
			}
			if err := tx.Payments().Add(ctx, refund); err != nil {
				return false, err
			}
			refunded = true
		case p.Status == domain.PaymentStatusPending:
			if err := s.recorder.MarkFailed(p, payment.ReasonReservationCancelled); err != nil {
				return false, err
			}
			if err := tx.Payments().Update(ctx, p); err != nil {
				return false, err
			}
		}
	}
	return refunded, nil
}
