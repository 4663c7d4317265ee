package notify

import (
	"context"

	"gopkg.in/gomail.v2"
)

// EmailSink sends rendered messages over SMTP. The dial alone can take
// seconds against a slow relay, so the sink declares itself suspending
// and the fan-out awaits it with a bounded timeout.
type EmailSink struct {
	baseSink
	dialer  *gomail.Dialer
	from    string
	to      string
	subject string
}

func NewEmailSink(template, host string, port int, username, password, from, to, subject string) *EmailSink {
	if subject == "" {
		subject = "New appointment slot"
	}
	return &EmailSink{
		baseSink: baseSink{name: "email", mode: ModeSuspending, template: template},
		dialer:   gomail.NewDialer(host, port, username, password),
		from:     from,
		to:       to,
		subject:  subject,
	}
}

func (s *EmailSink) Deliver(ctx context.Context, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", s.to)
	m.SetHeader("Subject", s.subject)
	m.SetBody("text/plain", message)

	return s.dialer.DialAndSend(m)
}
