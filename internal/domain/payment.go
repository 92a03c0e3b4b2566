package domain

import "time"

type PaymentMethod string

const (
	PaymentMethodNone         PaymentMethod = ""
	PaymentMethodCreditCard   PaymentMethod = "CREDIT_CARD"
	PaymentMethodDebitCard    PaymentMethod = "DEBIT_CARD"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodCash         PaymentMethod = "CASH"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCreditCard, PaymentMethodDebitCard, PaymentMethodBankTransfer, PaymentMethodCash:
		return true
	}
	return false
}

type TransactionType string

const (
	TransactionTypePayment TransactionType = "PAYMENT"
	TransactionTypeRefund  TransactionType = "REFUND"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusFailed   PaymentStatus = "FAILED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// Payment is one monetary transaction against a reservation. Type and amount
// never change after creation; a refund is a separate row.
type Payment struct {
	ID              int64
	ReservationID   int64
	Amount          Money
	Method          PaymentMethod
	TransactionID   string
	Type            TransactionType
	Status          PaymentStatus
	ErrorMessage    string
	TransactionDate time.Time
}

func (p *Payment) MarkPaid(at time.Time) error {
	if p.Status != PaymentStatusPending {
		return Validation("payment %d is %s, only pending payments can be paid", p.ID, p.Status)
	}
	p.Status = PaymentStatusPaid
	p.ErrorMessage = ""
	p.TransactionDate = at
	return nil
}

func (p *Payment) MarkFailed(reason string, at time.Time) error {
	if p.Status != PaymentStatusPending {
		return Validation("payment %d is %s, only pending payments can fail", p.ID, p.Status)
	}
	p.Status = PaymentStatusFailed
	p.ErrorMessage = reason
	p.TransactionDate = at
	return nil
}

func (p *Payment) markRefunded() error {
	if p.Type != TransactionTypePayment || p.Status != PaymentStatusPaid {
		return Validation("payment %d (%s, %s) cannot be refunded", p.ID, p.Type, p.Status)
	}
	p.Status = PaymentStatusRefunded
	return nil
}

// NewRefund creates the compensating row for a captured payment and flags
// the original as refunded.
func NewRefund(original *Payment, at time.Time) (*Payment, error) {
	if err := original.markRefunded(); err != nil {
		return nil, err
	}
	return &Payment{
		ReservationID:   original.ReservationID,
		Amount:          original.Amount,
		Method:          original.Method,
		TransactionID:   "REFUND-" + original.TransactionID,
		Type:            TransactionTypeRefund,
		Status:          PaymentStatusRefunded,
		TransactionDate: at,
	}, nil
}
