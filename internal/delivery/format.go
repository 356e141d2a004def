package delivery

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"
	"unicode"

	"gunes-backend/internal/apperr"

	"github.com/shopspring/decimal"
)

// NormalizePhone Türkiye numaralarını 90XXXXXXXXXX biçimine getirir.
func NormalizePhone(raw string) (string, error) {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	digits := b.String()

	switch {
	case len(digits) == 12 && strings.HasPrefix(digits, "90"):
		return digits, nil
	case len(digits) == 11 && strings.HasPrefix(digits, "0"):
		return "9" + digits, nil
	case len(digits) == 10 && strings.HasPrefix(digits, "5"):
		return "90" + digits, nil
	}
	return "", apperr.Invalid("geçersiz telefon numarası: %q", raw)
}

// QuoteInfo mesaj şablonlarına giren teklif özeti.
type QuoteInfo struct {
	Number       string
	CompanyName  string
	CustomerName string
	Total        decimal.Decimal
	Currency     string
	ValidUntil   time.Time
	Link         string
}

// FormatMoney 1234567.5 -> "1.234.567,50 TL"
func FormatMoney(amount decimal.Decimal, currency string) string {
	fixed := amount.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")

	var grouped strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteByte('.')
		}
		grouped.WriteRune(r)
	}

	sign := ""
	if amount.IsNegative() {
		sign = "-"
	}
	symbol := currency
	if currency == "" || currency == "TRY" {
		symbol = "TL"
	}
	return fmt.Sprintf("%s%s,%s %s", sign, grouped.String(), frac, symbol)
}

func FormatQuoteWhatsApp(q QuoteInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Merhaba %s,\n\n", q.CustomerName)
	fmt.Fprintf(&b, "*%s* tarafından hazırlanan *%s* numaralı güneş enerjisi teklifiniz hazır.\n\n", q.CompanyName, q.Number)
	fmt.Fprintf(&b, "Toplam: *%s*\n", FormatMoney(q.Total, q.Currency))
	fmt.Fprintf(&b, "Geçerlilik: %s\n\n", q.ValidUntil.Format("02.01.2006"))
	fmt.Fprintf(&b, "Teklifi görüntülemek ve yanıtlamak için:\n%s", q.Link)
	return b.String()
}

// FormatQuoteSMS tek SMS'e sığacak kısa metin.
func FormatQuoteSMS(q QuoteInfo) string {
	return fmt.Sprintf("%s: %s no'lu teklifiniz hazir. Toplam %s, son gecerlilik %s. %s",
		q.CompanyName, q.Number, FormatMoney(q.Total, q.Currency), q.ValidUntil.Format("02.01.2006"), q.Link)
}

var quoteEmailTmpl = template.Must(template.New("quote").Parse(`<!DOCTYPE html>
<html lang="tr">
<body style="font-family: Arial, sans-serif; color: #1f2937;">
  <p>Sayın {{.CustomerName}},</p>
  <p><strong>{{.CompanyName}}</strong> tarafından hazırlanan <strong>{{.Number}}</strong> numaralı teklifiniz ektedir.</p>
  <table cellpadding="6" style="border-collapse: collapse;">
    <tr><td>Toplam</td><td><strong>{{.Total}}</strong></td></tr>
    <tr><td>Geçerlilik</td><td>{{.ValidUntil}}</td></tr>
  </table>
  <p><a href="{{.Link}}" style="background:#f59e0b;color:#fff;padding:10px 16px;text-decoration:none;border-radius:4px;">Teklifi Görüntüle</a></p>
  <p style="font-size:12px;color:#6b7280;">Bu e-posta otomatik olarak gönderilmiştir.</p>
</body>
</html>`))

// RenderQuoteEmail konu, düz metin ve HTML gövdesini üretir.
func RenderQuoteEmail(q QuoteInfo) (subject, text, html string, err error) {
	subject = fmt.Sprintf("%s - Teklif %s", q.CompanyName, q.Number)
	text = FormatQuoteWhatsApp(q)

	var buf bytes.Buffer
	err = quoteEmailTmpl.Execute(&buf, map[string]string{
		"CustomerName": q.CustomerName,
		"CompanyName":  q.CompanyName,
		"Number":       q.Number,
		"Total":        FormatMoney(q.Total, q.Currency),
		"ValidUntil":   q.ValidUntil.Format("02.01.2006"),
		"Link":         q.Link,
	})
	return subject, text, buf.String(), err
}

// QuoteMessage tüm kanallar için ortak mesajı hazırlar.
func QuoteMessage(q QuoteInfo, to Recipient) (Message, error) {
	subject, text, html, err := RenderQuoteEmail(q)
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: subject, Text: text, HTML: html, Short: FormatQuoteSMS(q)}, nil
}
