package notifier

import (
	"context"
	"strconv"
	"time"

	"github.com/emzola/bibliotheca-circulation/internal/jsonlog"
)

type logNotifier struct {
	logger *jsonlog.Logger
}

// NewLog returns a notifier that writes every notification to logger. It
// never fails and is the default channel in development.
func NewLog(logger *jsonlog.Logger) Notifier {
	return Notifier{d: logNotifier{logger: logger.With(map[string]string{"component": "notifier"})}}
}

func (l logNotifier) deliver(_ context.Context, m Message) (bool, error) {
	properties := map[string]string{
		"event":      m.Event,
		"user_id":    m.UserID.String(),
		"book_title": m.BookTitle,
	}
	if m.ExpiresAt != nil {
		properties["expires_at"] = m.ExpiresAt.Format(time.RFC3339)
	}
	if m.Event == EventLoanOverdue {
		properties["days_overdue"] = strconv.Itoa(m.DaysOverdue)
		properties["fine"] = strconv.FormatFloat(m.Fine, 'f', 2, 64)
	}
	l.logger.PrintInfo(m.Text(), properties)
	return true, nil
}
