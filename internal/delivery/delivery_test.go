package delivery

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	name  string
	err   error
	delay time.Duration
}

func (f fakeChannel) Name() string { return f.name }

func (f fakeChannel) Send(ctx context.Context, _ Message) error {
	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
		return ctx.Err()
	}
	return f.err
}

func TestDeliverSucceedsIfAnyChannelSucceeds(t *testing.T) {
	channels := []Channel{
		fakeChannel{name: "email", err: errors.New("smtp kapalı")},
		fakeChannel{name: "whatsapp", delay: 20 * time.Millisecond},
		fakeChannel{name: "sms", err: ErrNotConfigured},
	}

	report := Deliver(context.Background(), channels, Message{})

	assert.True(t, report.Success)
	assert.Equal(t, []Result{
		{Channel: "email", Success: false, Error: "smtp kapalı"},
		{Channel: "whatsapp", Success: true},
		{Channel: "sms", Success: false, Error: ErrNotConfigured.Error()},
	}, report.Results)
}

func TestDeliverFailsWhenAllChannelsFail(t *testing.T) {
	report := Deliver(context.Background(), []Channel{
		fakeChannel{name: "email", err: errors.New("x")},
		fakeChannel{name: "sms", err: errors.New("y")},
	}, Message{})

	assert.False(t, report.Success)
	assert.Len(t, report.Results, 2)
}

func TestDeliverWithoutChannels(t *testing.T) {
	report := Deliver(context.Background(), nil, Message{})
	assert.False(t, report.Success)
	assert.Empty(t, report.Results)
}

func TestNormalizePhone(t *testing.T) {
	valid := map[string]string{
		"0532 123 45 67":     "905321234567",
		"5321234567":         "905321234567",
		"+90 (532) 123-4567": "905321234567",
		"905321234567":       "905321234567",
	}
	for in, want := range valid {
		got, err := NormalizePhone(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	for _, in := range []string{"", "12345", "02121234567890", "4321234567"} {
		_, err := NormalizePhone(in)
		assert.True(t, errors.Is(err, errors.NotValid), in)
	}
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "1.234.567,50 TL", FormatMoney(decimal.RequireFromString("1234567.5"), "TRY"))
	assert.Equal(t, "999,00 TL", FormatMoney(decimal.NewFromInt(999), ""))
	assert.Equal(t, "12.000,00 USD", FormatMoney(decimal.NewFromInt(12000), "USD"))
	assert.Equal(t, "-1.000,10 TL", FormatMoney(decimal.RequireFromString("-1000.1"), "TRY"))
}

func sampleQuote() QuoteInfo {
	return QuoteInfo{
		Number:       "TKL-2026-0001",
		CompanyName:  "Ege Solar",
		CustomerName: "Ayşe <Yılmaz>",
		Total:        decimal.RequireFromString("245000"),
		Currency:     "TRY",
		ValidUntil:   time.Date(2026, time.June, 30, 0, 0, 0, 0, time.UTC),
		Link:         "https://app.example.com/teklif/abc",
	}
}

func TestQuoteMessage(t *testing.T) {
	msg, err := QuoteMessage(sampleQuote(), Recipient{Email: "ayse@example.com"})
	require.NoError(t, err)

	assert.Equal(t, "Ege Solar - Teklif TKL-2026-0001", msg.Subject)
	assert.Contains(t, msg.Text, "*245.000,00 TL*")
	assert.Contains(t, msg.Text, "30.06.2026")
	assert.Contains(t, msg.HTML, "Ayşe &lt;Yılmaz&gt;", "HTML kaçışlı")
	assert.Contains(t, msg.HTML, `href="https://app.example.com/teklif/abc"`)
	assert.Contains(t, msg.Short, "TKL-2026-0001")
	assert.NotContains(t, msg.Short, "\n")
}

func TestWhatsAppChannel(t *testing.T) {
	var got whatsappMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/123456/messages", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ch := NewWhatsAppChannel(srv.URL, "tok", "123456")
	err := ch.Send(context.Background(), Message{To: Recipient{Phone: "0532 123 45 67"}, Text: "merhaba"})
	require.NoError(t, err)
	assert.Equal(t, "905321234567", got.To)
	assert.Equal(t, "merhaba", got.Text.Body)
	assert.Equal(t, "whatsapp", got.MessagingProduct)
}

func TestWhatsAppChannelErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	err := NewWhatsAppChannel(srv.URL, "tok", "1").
		Send(context.Background(), Message{To: Recipient{Phone: "5321234567"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestSMSChannelUsesShortText(t *testing.T) {
	var got smsRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	ch := NewSMSChannel(srv.URL, "user", "pass", "EGESOLAR")
	err := ch.Send(context.Background(), Message{
		To:    Recipient{Phone: "05321234567"},
		Text:  "uzun metin",
		Short: "kısa metin",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"905321234567"}, got.Numbers)
	assert.Equal(t, "kısa metin", got.Message)
	assert.Equal(t, "EGESOLAR", got.Header)
}

func TestEmailChannel(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		data, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(data, &body))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	ch := NewEmailChannel("key", "teklif@example.com", "Ege Solar").WithHost(srv.URL)
	err := ch.Send(context.Background(), Message{
		To:      Recipient{Name: "Ayşe", Email: "ayse@example.com"},
		Subject: "Teklif",
		Text:    "metin",
		HTML:    "<p>metin</p>",
	})
	require.NoError(t, err)

	from := body["from"].(map[string]any)
	assert.Equal(t, "teklif@example.com", from["email"])
	assert.Len(t, body["content"], 2)
}

func TestChannelsWithoutCredentials(t *testing.T) {
	msg := Message{To: Recipient{Email: "a@b.com", Phone: "5321234567"}}
	for _, ch := range []Channel{
		NewEmailChannel("", "a@b.com", "x"),
		NewWhatsAppChannel("http://127.0.0.1:1", "", ""),
		NewSMSChannel("", "", "", ""),
	} {
		assert.ErrorIs(t, ch.Send(context.Background(), msg), ErrNotConfigured, ch.Name())
	}
}

func TestRegistrySelect(t *testing.T) {
	r := NewRegistry(fakeChannel{name: "email"}, fakeChannel{name: "sms"})

	chs, err := r.Select([]string{"sms", "email", "sms"})
	require.NoError(t, err)
	require.Len(t, chs, 2)
	assert.Equal(t, "sms", chs[0].Name())

	_, err = r.Select([]string{"fax"})
	assert.True(t, errors.Is(err, errors.NotValid))

	_, err = r.Select(nil)
	assert.Error(t, err)
}
