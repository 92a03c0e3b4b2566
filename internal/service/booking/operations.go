package booking

import (
	"context"
	"errors"

	"github.com/Domenick1991/travelbooking/internal/domain"
	"github.com/Domenick1991/travelbooking/internal/repository"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const reasonGatewayDeclined = "declined by payment gateway"

func (s *BookingService) GetReservation(ctx context.Context, reservationID int64) (*domain.Reservation, error) {
	var res *domain.Reservation
	err := s.readTx(ctx, func(tx repository.Tx) error {
		var err error
		if res, err = tx.Reservations().GetByID(ctx, reservationID); err != nil {
			return err
		}
		return loadAggregate(ctx, tx, res)
	})
	if err != nil {
		return nil, domain.Wrap("get reservation", err)
	}
	return res, nil
}

func (s *BookingService) GetReservationByPNR(ctx context.Context, pnr string) (*domain.Reservation, error) {
	pnr, err := domain.NormalizePNR(pnr)
	if err != nil {
		return nil, err
	}
	var res *domain.Reservation
	err = s.readTx(ctx, func(tx repository.Tx) error {
		var err error
		if res, err = tx.Reservations().GetByPNR(ctx, pnr); err != nil {
			return err
		}
		return loadAggregate(ctx, tx, res)
	})
	if err != nil {
		return nil, domain.Wrap("get reservation by pnr", err)
	}
	return res, nil
}

// CompletePayment applies the gateway outcome of an async payment. The
// reservation is confirmed once every booking payment has been captured.
func (s *BookingService) CompletePayment(ctx context.Context, cb PaymentCallback) (*domain.Reservation, error) {
	ctx, span := s.tracer.Start(ctx, "booking.CompletePayment", trace.WithAttributes(
		attribute.Int64("payment_id", cb.PaymentID),
		attribute.Bool("success", cb.Success),
	))
	defer span.End()

	var res *domain.Reservation
	err := s.withRetry(ctx, "complete payment", func(ctx context.Context) error {
		var err error
		res, err = s.completePayment(ctx, cb)
		return err
	})
	if err != nil {
		s.fail(span, "complete payment failed", err, zap.Int64("payment_id", cb.PaymentID))
		return nil, domain.Wrap("complete payment", err)
	}
	s.logger.Info("payment completed",
		zap.Int64("payment_id", cb.PaymentID),
		zap.Bool("success", cb.Success),
		zap.String("pnr", res.PNR),
		zap.String("status", string(res.Status)),
	)
	return res, nil
}

func (s *BookingService) completePayment(ctx context.Context, cb PaymentCallback) (*domain.Reservation, error) {
	var res *domain.Reservation
	err := s.inTx(ctx, s.createIsolation, func(tx repository.Tx) error {
		stored, err := tx.Payments().GetByID(ctx, cb.PaymentID)
		if err != nil {
			return err
		}
		if stored.Type != domain.TransactionTypePayment {
			return domain.Validation("payment %d is a %s and has no gateway outcome", stored.ID, stored.Type)
		}
		if res, err = tx.Reservations().GetByID(ctx, stored.ReservationID); err != nil {
			return err
		}
		if res.Cancelled() {
			return domain.AlreadyCancelled("reservation", res.PNR)
		}
		if err := loadAggregate(ctx, tx, res); err != nil {
			return err
		}
		p := findPayment(res, cb.PaymentID)
		if p == nil {
			return domain.NotFound("payment", cb.PaymentID)
		}

		eventType := domain.EventPaymentFailed
		if cb.Success {
			if err := s.recorder.MarkPaid(p); err != nil {
				return err
			}
			if allCaptured(res) {
				if err := res.UpdatePaymentStatus(domain.PaymentStatusPaid); err != nil {
					return err
				}
				if err := res.Confirm(); err != nil {
					return err
				}
				eventType = domain.EventReservationConfirmed
			} else {
				eventType = ""
			}
		} else {
			reason := cb.Reason
			if reason == "" {
				reason = reasonGatewayDeclined
			}
			if err := s.recorder.MarkFailed(p, reason); err != nil {
				return err
			}
			if err := res.UpdatePaymentStatus(domain.PaymentStatusFailed); err != nil {
				return err
			}
		}

		if err := tx.Payments().Update(ctx, p); err != nil {
			return err
		}
		if err := tx.Reservations().Update(ctx, res); err != nil {
			return err
		}
		if eventType == "" {
			return nil
		}
		return s.emit(ctx, tx, eventType, res)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func findPayment(res *domain.Reservation, id int64) *domain.Payment {
	for _, p := range res.Payments {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func allCaptured(res *domain.Reservation) bool {
	for _, p := range res.Payments {
		if p.Type == domain.TransactionTypePayment && p.Status != domain.PaymentStatusPaid {
			return false
		}
	}
	return true
}

// AssignSeat puts a ticket on a concrete seat. The distributed lock keeps
// two requests for the same seat from racing; the unique index on active
// seats is the final guard.
func (s *BookingService) AssignSeat(ctx context.Context, ticketID int64, seat string) (*domain.Ticket, error) {
	seat = domain.NormalizeSeat(seat)
	var ticket *domain.Ticket
	err := s.inTx(ctx, s.createIsolation, func(tx repository.Tx) error {
		t, err := tx.Tickets().GetByID(ctx, ticketID)
		if err != nil {
			return err
		}
		res, err := tx.Reservations().GetByID(ctx, t.ReservationID)
		if err != nil {
			return err
		}
		if res.Cancelled() {
			return domain.AlreadyCancelled("reservation", res.PNR)
		}
		if err := t.AssignSeat(seat); err != nil {
			return err
		}

		if s.cache != nil {
			ok, err := s.cache.AcquireSeatLock(ctx, t.FlightID, seat, s.seatLockTTL)
			if err != nil {
				return err
			}
			if !ok {
				return domain.Conflict("seat", seat, "seat is being assigned by another request")
			}
			defer func() {
				if err := s.cache.ReleaseSeatLock(context.WithoutCancel(ctx), t.FlightID, seat); err != nil {
					s.logger.Warn("seat lock release failed", zap.Int64("flight_id", t.FlightID), zap.String("seat", seat), zap.Error(err))
				}
			}()
		}

		if err := tx.Tickets().Update(ctx, t); err != nil {
			return err
		}
		ticket = t
		return nil
	})
	if err != nil {
		return nil, domain.Wrap("assign seat", err)
	}
	s.logger.Info("seat assigned", zap.Int64("ticket_id", ticket.ID), zap.String("seat", seat))
	return ticket, nil
}

func (s *BookingService) CompleteReservation(ctx context.Context, reservationID int64) (*domain.Reservation, error) {
	var res *domain.Reservation
	err := s.withRetry(ctx, "complete reservation", func(ctx context.Context) error {
		return s.inTx(ctx, s.cancelIsolation, func(tx repository.Tx) error {
			var err error
			if res, err = tx.Reservations().GetByID(ctx, reservationID); err != nil {
				return err
			}
			if err := res.Complete(); err != nil {
				return err
			}
			if err := tx.Reservations().Update(ctx, res); err != nil {
				return err
			}
			if err := loadAggregate(ctx, tx, res); err != nil {
				return err
			}
			return s.emit(ctx, tx, domain.EventReservationCompleted, res)
		})
	})
	if err != nil {
		return nil, domain.Wrap("complete reservation", err)
	}
	return res, nil
}

// ExpirePendingReservations cancels pending reservations whose hold has run
// out. The hold is checked again inside each cancel transaction, so a
// reservation confirmed in the meantime is skipped.
func (s *BookingService) ExpirePendingReservations(ctx context.Context) ([]domain.Reservation, error) {
	var expired []domain.Reservation
	err := s.readTx(ctx, func(tx repository.Tx) error {
		var err error
		expired, err = tx.Reservations().ListExpiredPending(ctx, s.now(), s.sweepBatch)
		return err
	})
	if err != nil {
		return nil, domain.Wrap("list expired reservations", err)
	}

	cancelled := make([]domain.Reservation, 0, len(expired))
	for _, r := range expired {
		res, err := s.expireReservation(ctx, r.ID)
		switch {
		case err == nil:
			cancelled = append(cancelled, *res)
		case errors.Is(err, errHoldActive):
			s.logger.Debug("reservation confirmed before expiry, skipped", zap.String("pnr", r.PNR))
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return cancelled, err
		default:
			s.logger.Debug("expired reservation skipped", zap.String("pnr", r.PNR), zap.Error(err))
		}
	}
	if len(cancelled) > 0 {
		s.logger.Info("expired reservations cancelled", zap.Int("count", len(cancelled)))
	}
	return cancelled, nil
}
