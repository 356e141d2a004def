package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/juju/errors"
)

// WhatsAppChannel Meta WhatsApp Cloud API üzerinden metin mesajı gönderir.
type WhatsAppChannel struct {
	apiURL        string
	token         string
	phoneNumberID string
	client        *http.Client
}

func NewWhatsAppChannel(apiURL, token, phoneNumberID string) *WhatsAppChannel {
	return &WhatsAppChannel{
		apiURL:        apiURL,
		token:         token,
		phoneNumberID: phoneNumberID,
		client:        http.DefaultClient,
	}
}

func (ch *WhatsAppChannel) Name() string { return "whatsapp" }

type whatsappText struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

type whatsappMessage struct {
	MessagingProduct string       `json:"messaging_product"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             whatsappText `json:"text"`
}

func (ch *WhatsAppChannel) Send(ctx context.Context, msg Message) error {
	if ch.token == "" || ch.phoneNumberID == "" {
		return ErrNotConfigured
	}
	phone, err := NormalizePhone(msg.To.Phone)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(whatsappMessage{
		MessagingProduct: "whatsapp",
		To:               phone,
		Type:             "text",
		Text:             whatsappText{PreviewURL: true, Body: msg.Text},
	})
	if err != nil {
		return errors.Trace(err)
	}

	url := fmt.Sprintf("%s/%s/messages", ch.apiURL, ch.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return errors.Trace(err)
	}
	req.Header.Set("Authorization", "Bearer "+ch.token)
	req.Header.Set("Content-Type", "application/json")

	return doRequest(ch.client, req, "whatsapp")
}

// doRequest 2xx dışındaki cevapları gövdesiyle birlikte hataya çevirir.
func doRequest(client *http.Client, req *http.Request, name string) error {
	resp, err := client.Do(req)
	if err != nil {
		return errors.Annotatef(err, "%s isteği", name)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Errorf("%s %d: %s", name, resp.StatusCode, bytes.TrimSpace(body))
	}
	return nil
}
