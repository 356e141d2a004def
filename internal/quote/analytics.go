package quote

import (
	"time"

	"gunes-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/juju/clock"
	"github.com/shopspring/decimal"
)

type StatusStat struct {
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

type MonthStat struct {
	Month         string          `json:"month"` // 2026-05
	Created       int             `json:"created"`
	Accepted      int             `json:"accepted"`
	AcceptedTotal decimal.Decimal `json:"accepted_total"`
}

type Analytics struct {
	TotalQuotes      int                                `json:"total_quotes"`
	ByStatus         map[models.QuoteStatus]*StatusStat `json:"by_status"`
	ConversionRate   float64                            `json:"conversion_rate"`    // kabul / (kabul + red + süresi dolan), yüzde
	AvgResponseHours float64                            `json:"avg_response_hours"` // gönderimden yanıta
	Monthly          []MonthStat                        `json:"monthly"`
}

// Summarize teklif listesinden durum dağılımı, dönüşüm oranı ve son `months` ayın serisini çıkarır.
func Summarize(quotes []models.Quote, now time.Time, months int) Analytics {
	a := Analytics{ByStatus: map[models.QuoteStatus]*StatusStat{}}
	for _, s := range []models.QuoteStatus{
		models.QuoteDraft, models.QuoteSent, models.QuoteViewed,
		models.QuoteAccepted, models.QuoteRejected, models.QuoteExpired,
	} {
		a.ByStatus[s] = &StatusStat{}
	}

	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -(months - 1), 0)
	a.Monthly = make([]MonthStat, months)
	for i := range a.Monthly {
		a.Monthly[i].Month = start.AddDate(0, i, 0).Format("2006-01")
	}

	var responseHours float64
	responded := 0
	for _, q := range quotes {
		a.TotalQuotes++
		if st, ok := a.ByStatus[q.Status]; ok {
			st.Count++
			st.Total = st.Total.Add(q.Total)
		}

		if q.SentAt != nil && q.RespondedAt != nil {
			responseHours += q.RespondedAt.Sub(*q.SentAt).Hours()
			responded++
		}

		created := q.CreatedAt.In(now.Location())
		idx := (created.Year()-start.Year())*12 + int(created.Month()) - int(start.Month())
		if idx < 0 || idx >= months {
			continue
		}
		a.Monthly[idx].Created++
		if q.Status == models.QuoteAccepted {
			a.Monthly[idx].Accepted++
			a.Monthly[idx].AcceptedTotal = a.Monthly[idx].AcceptedTotal.Add(q.Total)
		}
	}

	accepted := a.ByStatus[models.QuoteAccepted].Count
	closed := accepted + a.ByStatus[models.QuoteRejected].Count + a.ByStatus[models.QuoteExpired].Count
	if closed > 0 {
		a.ConversionRate = round1(float64(accepted) * 100 / float64(closed))
	}
	if responded > 0 {
		a.AvgResponseHours = round1(responseHours / float64(responded))
	}
	return a
}

func round1(v float64) float64 {
	return decimal.NewFromFloat(v).Round(1).InexactFloat64()
}

// GET /api/quotes/analytics?months=6
func AnalyticsHandler(clk clock.Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		months := c.QueryInt("months", 6)
		if months <= 0 || months > 36 {
			return fiber.NewError(fiber.StatusBadRequest, "months 1-36 arasında olmalı")
		}
		now := clk.Now()
		dbq, err := listQuery(c, now)
		if err != nil {
			return err
		}
		var quotes []models.Quote
		if err := dbq.Select("id", "status", "total", "sent_at", "responded_at", "created_at").
			Find(&quotes).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Teklif analizi hesaplanamadı")
		}
		return c.JSON(Summarize(quotes, now, months))
	}
}
