package notifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/emzola/bibliotheca-circulation/internal/mailer"
	"github.com/emzola/bibliotheca-circulation/repository"
)

// Sender sends a templated email. mailer.Mailer satisfies it.
type Sender interface {
	Send(ctx context.Context, recipient, templateFile string, data interface{}) error
}

type email struct {
	sender Sender
	users  UserGetter
}

// NewEmail returns a notifier that emails the user the notification is for.
func NewEmail(sender Sender, users UserGetter) Notifier {
	return Notifier{d: email{sender: sender, users: users}}
}

func (e email) deliver(ctx context.Context, m Message) (bool, error) {
	user, err := e.users.GetUser(ctx, m.UserID)
	switch {
	case errors.Is(err, repository.ErrRecordNotFound):
		return false, fmt.Errorf("%w: recipient %s not found", ErrRejected, m.UserID)
	case err != nil:
		return false, fmt.Errorf("looking up recipient: %w", err)
	}
	payload := map[string]interface{}{
		"userName":  user.Name,
		"bookTitle": m.BookTitle,
	}
	var tmpl string
	switch m.Event {
	case EventReservationConfirmed:
		tmpl = mailer.TemplateReservationConfirmed
	case EventReservationReady:
		tmpl = mailer.TemplateReservationReady
		payload["expiresAt"] = m.ExpiresAt.Format(time.DateOnly)
	case EventLoanOverdue:
		tmpl = mailer.TemplateLoanOverdue
		payload["daysOverdue"] = m.DaysOverdue
		payload["fine"] = fmt.Sprintf("%.2f", m.Fine)
	default:
		return false, fmt.Errorf("%w: unknown event %q", ErrRejected, m.Event)
	}
	if err := e.sender.Send(ctx, user.Email, tmpl, payload); err != nil {
		return false, err
	}
	return true, nil
}
