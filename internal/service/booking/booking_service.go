package booking

import (
	"context"
	"errors"
	"time"

	"github.com/Domenick1991/travelbooking/internal/domain"
	"github.com/Domenick1991/travelbooking/internal/payment"
	"github.com/Domenick1991/travelbooking/internal/repository"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type BookingUseCase interface {
	CreateReservationWithTicketsAndPayment(ctx context.Context, input CreateReservationInput) (*domain.Reservation, error)
	CancelReservation(ctx context.Context, reservationID int64) (*domain.Reservation, error)
	GetReservation(ctx context.Context, reservationID int64) (*domain.Reservation, error)
	GetReservationByPNR(ctx context.Context, pnr string) (*domain.Reservation, error)
	CompletePayment(ctx context.Context, callback PaymentCallback) (*domain.Reservation, error)
	AssignSeat(ctx context.Context, ticketID int64, seat string) (*domain.Ticket, error)
	CompleteReservation(ctx context.Context, reservationID int64) (*domain.Reservation, error)
	ExpirePendingReservations(ctx context.Context) ([]domain.Reservation, error)
}

// Cache is the flight read cache plus the distributed seat lock.
type Cache interface {
	InvalidateFlights(ctx context.Context, flightIDs ...int64) error
	AcquireSeatLock(ctx context.Context, flightID int64, seat string, ttl time.Duration) (bool, error)
	ReleaseSeatLock(ctx context.Context, flightID int64, seat string) error
}

type BookingService struct {
	uow      repository.UnitOfWork
	recorder *payment.Recorder
	cache    Cache
	logger   *zap.Logger
	tracer   trace.Tracer
	now      func() time.Time

	createIsolation repository.IsolationLevel
	cancelIsolation repository.IsolationLevel
	paymentMode     payment.Mode
	holdTTL         time.Duration
	seatLockTTL     time.Duration
	maxRetries      uint64
	retryBase       time.Duration
	sweepBatch      int
}

type BookingServiceOption func(*BookingService)

func WithCache(c Cache) BookingServiceOption {
	return func(s *BookingService) {
		s.cache = c
	}
}

func WithLogger(l *zap.Logger) BookingServiceOption {
	return func(s *BookingService) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithTracer(t trace.Tracer) BookingServiceOption {
	return func(s *BookingService) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithIsolation sets the levels used by the create and cancel paths.
func WithIsolation(create, cancel repository.IsolationLevel) BookingServiceOption {
	return func(s *BookingService) {
		s.createIsolation = create
		s.cancelIsolation = cancel
	}
}

func WithPaymentMode(m payment.Mode) BookingServiceOption {
	return func(s *BookingService) {
		s.paymentMode = m
	}
}

// WithHoldTTL sets how long an unpaid reservation stays pending before the
// expiry sweep cancels it. Zero disables the default expiration.
func WithHoldTTL(d time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		s.holdTTL = d
	}
}

func WithSeatLockTTL(d time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		if d > 0 {
			s.seatLockTTL = d
		}
	}
}

// WithRetry retries conflicting transactions up to max times with
// exponential backoff starting at base.
func WithRetry(max uint64, base time.Duration) BookingServiceOption {
	return func(s *BookingService) {
		s.maxRetries = max
		if base > 0 {
			s.retryBase = base
		}
	}
}

func WithSweepBatch(n int) BookingServiceOption {
	return func(s *BookingService) {
		if n > 0 {
			s.sweepBatch = n
		}
	}
}

func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
		s.recorder = payment.NewRecorderWithClock(now)
	}
}

func NewBookingService(uow repository.UnitOfWork, opts ...BookingServiceOption) *BookingService {
	service := &BookingService{
		uow:             uow,
		recorder:        payment.NewRecorder(),
		logger:          zap.NewNop(),
		tracer:          otel.Tracer("travelbooking/booking"),
		now:             time.Now,
		createIsolation: repository.Serializable,
		cancelIsolation: repository.ReadCommitted,
		paymentMode:     payment.ModeSync,
		holdTTL:         15 * time.Minute,
		seatLockTTL:     30 * time.Second,
		retryBase:       20 * time.Millisecond,
		sweepBatch:      100,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// inTx runs fn inside a transaction and commits it. The transaction is
// rolled back on every failure path, including a caller cancellation that
// is observed before commit.
func (s *BookingService) inTx(ctx context.Context, level repository.IsolationLevel, fn func(tx repository.Tx) error) error {
	tx, err := s.uow.Begin(ctx, level)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil {
			s.logger.Error("rollback failed", zap.Error(err))
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	committed = true
	return nil
}

// readTx runs fn in a transaction that is always rolled back.
func (s *BookingService) readTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	tx, err := s.uow.Begin(ctx, repository.ReadCommitted)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(context.WithoutCancel(ctx))
	}()
	return fn(tx)
}

// loadAggregate fills the explicitly loaded collections of a reservation.
func loadAggregate(ctx context.Context, tx repository.Tx, res *domain.Reservation) error {
	tickets, err := tx.Tickets().ListByReservation(ctx, res.ID)
	if err != nil {
		return err
	}
	payments, err := tx.Payments().ListByReservation(ctx, res.ID)
	if err != nil {
		return err
	}
	passengerIDs, err := tx.Reservations().ListPassengerIDs(ctx, res.ID)
	if err != nil {
		return err
	}
	res.Tickets, res.Payments, res.PassengerIDs = tickets, payments, passengerIDs
	return nil
}

// reload re-reads a row written earlier in the same transaction. A missing
// row means the insert never became visible, which is a conflict.
func reload(ctx context.Context, tx repository.Tx, id int64) (*domain.Reservation, error) {
	res, err := tx.Reservations().GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.Conflict("reservation", id, "row not visible after insert")
	}
	return res, err
}

func (s *BookingService) emit(ctx context.Context, tx repository.Tx, eventType string, res *domain.Reservation) error {
	ev, err := domain.NewReservationEvent(eventType, res, s.now())
	if err != nil {
		return err
	}
	return tx.Outbox().Add(ctx, ev)
}

func (s *BookingService) invalidateFlights(ctx context.Context, flightIDs []int64) {
	if s.cache == nil || len(flightIDs) == 0 {
		return
	}
	if err := s.cache.InvalidateFlights(context.WithoutCancel(ctx), flightIDs...); err != nil {
		s.logger.Warn("flight cache invalidation failed", zap.Int64s("flight_ids", flightIDs), zap.Error(err))
	}
}

// fail records err on the span and logs it. Expected business outcomes are
// logged at warn level, everything else at error level.
func (s *BookingService) fail(span trace.Span, msg string, err error, fields ...zap.Field) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	fields = append(fields, zap.Error(err))
	if domain.Kind(err) == domain.ErrUnexpected {
		s.logger.Error(msg, fields...)
		return
	}
	s.logger.Warn(msg, fields...)
}

func flightIDs(tickets []*domain.Ticket) []int64 {
	seen := make(map[int64]struct{}, len(tickets))
	var ids []int64
	for _, t := range tickets {
		if _, ok := seen[t.FlightID]; ok {
			continue
		}
		seen[t.FlightID] = struct{}{}
		ids = append(ids, t.FlightID)
	}
	return ids
}

var _ BookingUseCase = (*BookingService)(nil)
