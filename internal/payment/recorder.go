package payment

import (
	"strings"
	"time"

	"github.com/Domenick1991/travelbooking/internal/domain"
	"github.com/google/uuid"
)

// Mode selects how the gateway settles a payment.
type Mode string

const (
	// ModeSync captures the payment inside the booking transaction.
	ModeSync Mode = "sync"
	// ModeAsync leaves the payment pending until the gateway callback.
	ModeAsync Mode = "async"
)

func ParseMode(s string) Mode {
	if Mode(strings.ToLower(s)) == ModeAsync {
		return ModeAsync
	}
	return ModeSync
}

const ReasonReservationCancelled = "reservation cancelled"

// Recorder creates payment rows and moves them through their statuses.
type Recorder struct {
	now func() time.Time
}

func NewRecorder() *Recorder {
	return &Recorder{now: time.Now}
}

// NewRecorderWithClock is used by tests that pin the transaction date.
func NewRecorderWithClock(now func() time.Time) *Recorder {
	return &Recorder{now: now}
}

// RecordPayment creates a pending payment and attaches it to the reservation.
func (r *Recorder) RecordPayment(res *domain.Reservation, amount domain.Money, method domain.PaymentMethod,
	transactionID string, typ domain.TransactionType) (*domain.Payment, error) {
	if amount.IsNegative() {
		return nil, domain.Validation("payment amount must be non-negative")
	}
	if !domain.ValidCurrency(amount.Currency) {
		return nil, domain.Validation("invalid payment currency %q", amount.Currency)
	}
	if !method.Valid() {
		return nil, domain.Validation("unknown payment method %q", method)
	}
	if typ == "" {
		typ = domain.TransactionTypePayment
	}
	if typ != domain.TransactionTypePayment && typ != domain.TransactionTypeRefund {
		return nil, domain.Validation("unknown transaction type %q", typ)
	}
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		transactionID = uuid.NewString()
	}

	p := &domain.Payment{
		Amount:          amount,
		Method:          method,
		TransactionID:   transactionID,
		Type:            typ,
		Status:          domain.PaymentStatusPending,
		TransactionDate: r.now(),
	}
	if err := res.AddPayment(p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *Recorder) MarkPaid(p *domain.Payment) error {
	return p.MarkPaid(r.now())
}

func (r *Recorder) MarkFailed(p *domain.Payment, reason string) error {
	return p.MarkFailed(reason, r.now())
}

// MarkRefunded emits the compensating refund row for a captured payment and
// attaches it to the reservation.
func (r *Recorder) MarkRefunded(res *domain.Reservation, original *domain.Payment) (*domain.Payment, error) {
	refund, err := domain.NewRefund(original, r.now())
	if err != nil {
		return nil, err
	}
	if err := res.AddPayment(refund); err != nil {
		return nil, err
	}
	return refund, nil
}
