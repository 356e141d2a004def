// Package exchange manuel ve TCMB kaynaklı döviz kurlarını yönetir.
package exchange

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/shopspring/decimal"
)

// Tracked TCMB'den çekilen dövizler.
var Tracked = []string{"USD", "EUR", "GBP"}

type tcmbCurrency struct {
	Code         string `xml:"CurrencyCode,attr"`
	Unit         string `xml:"Unit"`
	ForexBuying  string `xml:"ForexBuying"`
	ForexSelling string `xml:"ForexSelling"`
}

type tcmbBulletin struct {
	XMLName    xml.Name       `xml:"Tarih_Date"`
	Date       string         `xml:"Date,attr"` // 10/17/2026
	Currencies []tcmbCurrency `xml:"Currency"`
}

// Quote TCMB bülteninden tek bir döviz satırı; Rate 1 birim dövizin TL karşılığı (döviz satış).
type Quote struct {
	Currency string
	Rate     decimal.Decimal
	Date     time.Time
}

type Client struct {
	url  string
	http *http.Client
}

func NewClient(url string) *Client {
	return &Client{url: url, http: &http.Client{Timeout: 15 * time.Second}}
}

// Fetch günlük bülteni indirir ve takip edilen dövizleri döndürür.
func (cl *Client) Fetch(ctx context.Context) ([]Quote, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cl.url, nil)
	if err != nil {
		return nil, errors.Trace(err)
	}
	resp, err := cl.http.Do(req)
	if err != nil {
		return nil, errors.Annotate(err, "TCMB kurları alınamadı")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("TCMB yanıtı: %d", resp.StatusCode)
	}
	return parseBulletin(resp.Body)
}

func parseBulletin(r io.Reader) ([]Quote, error) {
	var b tcmbBulletin
	if err := xml.NewDecoder(r).Decode(&b); err != nil {
		return nil, errors.Annotate(err, "TCMB XML okunamadı")
	}
	date, err := time.ParseInLocation("01/02/2006", b.Date, time.UTC)
	if err != nil {
		return nil, errors.Annotatef(err, "bülten tarihi geçersiz: %q", b.Date)
	}

	want := map[string]bool{}
	for _, c := range Tracked {
		want[c] = true
	}

	var out []Quote
	for _, c := range b.Currencies {
		if !want[c.Code] {
			continue
		}
		selling, err := decimal.NewFromString(strings.TrimSpace(c.ForexSelling))
		if err != nil {
			return nil, errors.Annotatef(err, "%s satış kuru geçersiz", c.Code)
		}
		unit := decimal.NewFromInt(1)
		if u := strings.TrimSpace(c.Unit); u != "" {
			if unit, err = decimal.NewFromString(u); err != nil || !unit.IsPositive() {
				return nil, errors.Errorf("%s birim değeri geçersiz: %q", c.Code, u)
			}
		}
		out = append(out, Quote{Currency: c.Code, Rate: selling.Div(unit).Round(4), Date: date})
	}
	if len(out) == 0 {
		return nil, errors.New("TCMB bülteninde takip edilen döviz yok")
	}
	return out, nil
}
