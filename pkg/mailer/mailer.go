package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/wneessen/go-mail"

	"github.com/youngmin0324/stock-news-email/pkg/domain"
)

// ErrNoCredentials is returned when the relay username or password is not
// configured; the send fails before any network activity
var ErrNoCredentials = errors.New("smtp credentials not set")

// SMTP submits the briefing to a mail relay over authenticated STARTTLS
type SMTP struct {
	host string
	port int
	user string
	pass string
}

// New creates an SMTP mailer for the given relay. The username doubles as
// the sender address.
func New(host string, port int, user, pass string) *SMTP {
	return &SMTP{host: host, port: port, user: user, pass: pass}
}

// Send delivers the document to a single recipient as a multipart message
// with plain and HTML alternatives
func (s *SMTP) Send(ctx context.Context, to string, doc domain.RenderedDocument) error {
	if s.user == "" || s.pass == "" {
		return ErrNoCredentials
	}

	msg := mail.NewMsg()
	if err := msg.From(s.user); err != nil {
		return fmt.Errorf("set sender: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("set recipient: %w", err)
	}
	msg.Subject(doc.Subject)
	msg.SetImportance(mail.ImportanceHigh)

	// plain part first so clients that fold or prefer text/plain still show
	// the complete content
	msg.SetBodyString(mail.TypeTextPlain, doc.PlainBody)
	msg.AddAlternativeString(mail.TypeTextHTML, doc.HTMLBody)

	client, err := mail.NewClient(s.host,
		mail.WithPort(s.port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.user),
		mail.WithPassword(s.pass),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return fmt.Errorf("create smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}
