// Package notifier delivers lending notifications over email, a webhook or
// the application log.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/emzola/bibliotheca-circulation/data"
)

// Event names sent with every notification.
const (
	EventReservationConfirmed = "reservation_confirmed"
	EventReservationReady     = "reservation_ready"
	EventLoanOverdue          = "loan_overdue"
)

// ErrRejected marks a notification the channel refused for good. Sending it
// again will not help.
var ErrRejected = errors.New("notification rejected")

// Message is one notification, independent of the channel that carries it.
type Message struct {
	Event       string     `json:"event"`
	UserID      uuid.UUID  `json:"user_id"`
	BookTitle   string     `json:"book_title"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	DaysOverdue int        `json:"days_overdue,omitempty"`
	Fine        float64    `json:"fine,omitempty"`
}

// Text renders m as a one-line human readable summary.
func (m Message) Text() string {
	switch m.Event {
	case EventReservationConfirmed:
		return fmt.Sprintf("Your reservation for %q is confirmed.", m.BookTitle)
	case EventReservationReady:
		return fmt.Sprintf("%q is ready for pickup until %s.", m.BookTitle, m.ExpiresAt.Format(time.DateOnly))
	case EventLoanOverdue:
		return fmt.Sprintf("%q is %d day(s) overdue; fine so far %.2f.", m.BookTitle, m.DaysOverdue, m.Fine)
	}
	return m.BookTitle
}

// deliverer is the single method each channel implements.
type deliverer interface {
	deliver(ctx context.Context, m Message) (bool, error)
}

// Notifier turns a deliverer into the three typed notifications the lending
// service sends.
type Notifier struct {
	d deliverer
}

func (n Notifier) SendReservationConfirmation(ctx context.Context, userID uuid.UUID, bookTitle string) (bool, error) {
	return n.d.deliver(ctx, Message{Event: EventReservationConfirmed, UserID: userID, BookTitle: bookTitle})
}

func (n Notifier) SendReservationReady(ctx context.Context, userID uuid.UUID, bookTitle string, expiresAt time.Time) (bool, error) {
	return n.d.deliver(ctx, Message{Event: EventReservationReady, UserID: userID, BookTitle: bookTitle, ExpiresAt: &expiresAt})
}

func (n Notifier) SendOverdueNotice(ctx context.Context, userID uuid.UUID, bookTitle string, daysOverdue int, fine float64) (bool, error) {
	return n.d.deliver(ctx, Message{Event: EventLoanOverdue, UserID: userID, BookTitle: bookTitle, DaysOverdue: daysOverdue, Fine: fine})
}

// UserGetter looks up the recipient of a notification.
type UserGetter interface {
	GetUser(ctx context.Context, userID uuid.UUID) (*data.User, error)
}
