package mailer

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"time"

	"gopkg.in/mail.v2"
)

//go:embed "templates"
var templateFS embed.FS

// Template files shipped with the mailer.
const (
	TemplateReservationConfirmed = "reservation_confirmed.tmpl"
	TemplateReservationReady     = "reservation_ready.tmpl"
	TemplateLoanOverdue          = "loan_overdue.tmpl"
)

// The Mailer struct contains a mail.Dialer instance (used to connect to a
// SMTP server) and the sender information for emails (the name and address you
// want the email to be from, such as "Alice Smith <alice@example.com>").
type Mailer struct {
	dialer   *mail.Dialer
	sender   string
	attempts int
	backoff  time.Duration
}

// New initializes a new mail.Dialer instance with the given SMTP server settings.
// We also configure this to use a 5-second timeout whenever we send an email.
func New(host string, port int, username, password, sender string) Mailer {
	dialer := mail.NewDialer(host, port, username, password)
	dialer.Timeout = 5 * time.Second
	return Mailer{
		dialer:   dialer,
		sender:   sender,
		attempts: 3,
		backoff:  time.Second,
	}
}

// Render executes the subject, plainBody and htmlBody templates of templateFile.
func Render(templateFile string, data interface{}) (subject, plainBody, htmlBody string, err error) {
	tmpl, err := template.New("email").ParseFS(templateFS, "templates/"+templateFile)
	if err != nil {
		return "", "", "", err
	}
	var parts [3]bytes.Buffer
	for i, name := range []string{"subject", "plainBody", "htmlBody"} {
		if err := tmpl.ExecuteTemplate(&parts[i], name, data); err != nil {
			return "", "", "", err
		}
	}
	return parts[0].String(), parts[1].String(), parts[2].String(), nil
}

// Send renders templateFile with data and delivers it to recipient. Delivery
// is attempted up to three times; the wait between attempts is cut short
// when ctx is done.
func (m Mailer) Send(ctx context.Context, recipient, templateFile string, data interface{}) error {
	subject, plainBody, htmlBody, err := Render(templateFile, data)
	if err != nil {
		return err
	}
	msg := mail.NewMessage()
	msg.SetHeader("To", recipient)
	msg.SetHeader("From", m.sender)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", plainBody)
	msg.AddAlternative("text/html", htmlBody)
	for i := 1; i <= m.attempts; i++ {
		err = m.dialer.DialAndSend(msg)
		if err == nil || i == m.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.backoff):
		}
	}
	return err
}
