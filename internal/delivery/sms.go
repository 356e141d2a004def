package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/juju/errors"
)

// SMSChannel JSON kabul eden HTTP SMS sağlayıcısına gönderir.
type SMSChannel struct {
	apiURL   string
	username string
	password string
	header   string // onaylı gönderici başlığı
	client   *http.Client
}

func NewSMSChannel(apiURL, username, password, header string) *SMSChannel {
	return &SMSChannel{
		apiURL:   apiURL,
		username: username,
		password: password,
		header:   header,
		client:   http.DefaultClient,
	}
}

func (ch *SMSChannel) Name() string { return "sms" }

type smsRequest struct {
	Username string   `json:"username"`
	Password string   `json:"password"`
	Header   string   `json:"header"`
	Numbers  []string `json:"numbers"`
	Message  string   `json:"message"`
	Encoding string   `json:"encoding"`
}

func (ch *SMSChannel) Send(ctx context.Context, msg Message) error {
	if ch.apiURL == "" || ch.username == "" {
		return ErrNotConfigured
	}
	phone, err := NormalizePhone(msg.To.Phone)
	if err != nil {
		return err
	}

	text := msg.Short
	if text == "" {
		text = msg.Text
	}

	payload, err := json.Marshal(smsRequest{
		Username: ch.username,
		Password: ch.password,
		Header:   ch.header,
		Numbers:  []string{phone},
		Message:  text,
		Encoding: "TR",
	})
	if err != nil {
		return errors.Trace(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ch.apiURL, bytes.NewReader(payload))
	if err != nil {
		return errors.Trace(err)
	}
	req.Header.Set("Content-Type", "application/json")

	return doRequest(ch.client, req, "sms")
}
