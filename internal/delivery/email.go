package delivery

import (
	"context"
	"net/http"

	"gunes-backend/internal/apperr"

	"github.com/juju/errors"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

type EmailChannel struct {
	apiKey string
	host   string
	from   *sgmail.Email
}

func NewEmailChannel(apiKey, fromAddress, fromName string) *EmailChannel {
	return &EmailChannel{
		apiKey: apiKey,
		host:   sendgridHost,
		from:   sgmail.NewEmail(fromName, fromAddress),
	}
}

// WithHost farklı bir SendGrid uyumlu sunucu (test ortamı) kullanır.
func (ch *EmailChannel) WithHost(host string) *EmailChannel {
	ch.host = host
	return ch
}

func (ch *EmailChannel) Name() string { return "email" }

func (ch *EmailChannel) prepare(msg Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	p.AddTos(sgmail.NewEmail(msg.To.Name, msg.To.Email))

	m := sgmail.NewV3Mail()
	m.SetFrom(ch.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/plain", msg.Text))
	if msg.HTML != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTML))
	}
	return m
}

func (ch *EmailChannel) Send(ctx context.Context, msg Message) error {
	if ch.apiKey == "" {
		return ErrNotConfigured
	}
	if msg.To.Email == "" {
		return apperr.Invalid("alıcı e-posta adresi yok")
	}

	req := sendgrid.GetRequest(ch.apiKey, sendgridEndpoint, ch.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(ch.prepare(msg))

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return errors.Annotate(err, "sendgrid isteği")
	}
	if res.StatusCode >= http.StatusBadRequest {
		return errors.Errorf("sendgrid %d: %s", res.StatusCode, res.Body)
	}
	return nil
}
