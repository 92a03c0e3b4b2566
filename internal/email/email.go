// Package email turns reservation events into customer notifications. The
// sender only logs; wiring a real mail gateway replaces Send.
package email

import (
	"context"
	"fmt"

	"github.com/Domenick1991/travelbooking/internal/domain"
	"go.uber.org/zap"
)

var subjects = map[string]string{
	domain.EventReservationCreated:   "Your reservation %s was received",
	domain.EventReservationConfirmed: "Your reservation %s is confirmed",
	domain.EventReservationCancelled: "Your reservation %s was cancelled",
	domain.EventReservationCompleted: "Thank you for travelling with us (%s)",
	domain.EventPaymentFailed:        "Payment for reservation %s failed",
	domain.EventPaymentRefunded:      "Refund issued for reservation %s",
}

type Message struct {
	To      string
	Subject string
	Body    string
}

type Sender struct {
	logger *zap.Logger
}

func NewSender(logger *zap.Logger) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sender{logger: logger}
}

func (s *Sender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.logger.Info("send email", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

// Compose builds the messages for an event. Events nobody is told about
// yield none.
func Compose(ev domain.ReservationEvent) []Message {
	subject, ok := subjects[ev.Type]
	if !ok {
		return nil
	}
	amount := domain.NewMoney(ev.TotalAmount, ev.Currency)
	body := fmt.Sprintf("Reservation %s: status %s, payment %s, total %s.", ev.PNR, ev.Status, ev.PaymentStatus, amount)
	out := make([]Message, 0, len(ev.Emails))
	for _, to := range ev.Emails {
		out = append(out, Message{To: to, Subject: fmt.Sprintf(subject, ev.PNR), Body: body})
	}
	return out
}

// Notifier is the consumer handler for reservation events.
type Notifier struct {
	sender interface {
		Send(ctx context.Context, msg Message) error
	}
	logger *zap.Logger
}

func NewNotifier(sender *Sender, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{sender: sender, logger: logger}
}

func (n *Notifier) Handle(ctx context.Context, ev domain.ReservationEvent) error {
	msgs := Compose(ev)
	if len(msgs) == 0 {
		n.logger.Debug("no notification for event", zap.String("type", ev.Type), zap.String("pnr", ev.PNR))
		return nil
	}
	for _, msg := range msgs {
		if err := n.sender.Send(ctx, msg); err != nil {
			return fmt.Errorf("notify %s: %w", msg.To, err)
		}
	}
	return nil
}
