// Package dashboard firma paneli için özet ve teklif grafiği.
package dashboard

import (
	"sort"
	"strconv"
	"time"

	"gunes-backend/internal/auth"
	"gunes-backend/internal/database"
	"gunes-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/juju/clock"
	"github.com/shopspring/decimal"
)

type ChartPoint struct {
	Label         string          `json:"label"` // gün / hafta başlangıcı / ay başlangıcı
	Created       int             `json:"created"`
	Sent          int             `json:"sent"`
	Accepted      int             `json:"accepted"`
	Value         decimal.Decimal `json:"value"`          // oluşturulan tekliflerin toplamı
	AcceptedValue decimal.Decimal `json:"accepted_value"` // kabul edilenlerin toplamı
}

type ChartTotals struct {
	Created       int             `json:"created"`
	Sent          int             `json:"sent"`
	Accepted      int             `json:"accepted"`
	Value         decimal.Decimal `json:"value"`
	AcceptedValue decimal.Decimal `json:"accepted_value"`
}

type ChartResponse struct {
	CompanyID   *uint        `json:"company_id"`
	Period      string       `json:"period"` // daily | weekly | monthly
	From        string       `json:"from"`
	To          string       `json:"to"`
	Points      []ChartPoint `json:"points"`
	GrandTotals ChartTotals  `json:"grand_totals"`
}

// Window period ve count'a göre [start, end) aralığını ve kova başlangıçlarını döndürür.
func Window(period string, count int, now time.Time) (string, time.Time, time.Time, []time.Time) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	var start, end time.Time
	var step func(time.Time) time.Time

	switch period {
	case "weekly":
		// Pazartesi başlangıçlı haftalar
		offset := (int(today.Weekday()) + 6) % 7
		end = today.AddDate(0, 0, -offset+7)
		start = end.AddDate(0, 0, -7*count)
		step = func(t time.Time) time.Time { return t.AddDate(0, 0, 7) }
	case "monthly":
		end = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, 1, 0)
		start = end.AddDate(0, -count, 0)
		step = func(t time.Time) time.Time { return t.AddDate(0, 1, 0) }
	default:
		period = "daily"
		end = today.AddDate(0, 0, 1)
		start = end.AddDate(0, 0, -count)
		step = func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }
	}

	var buckets []time.Time
	for b := start; b.Before(end); b = step(b) {
		buckets = append(buckets, b)
	}
	return period, start, end, buckets
}

// bucketOf t'nin düştüğü kovanın indeksi; aralık dışındaysa -1.
func bucketOf(buckets []time.Time, end, t time.Time) int {
	if len(buckets) == 0 || t.Before(buckets[0]) || !t.Before(end) {
		return -1
	}
	i := sort.Search(len(buckets), func(i int) bool { return buckets[i].After(t) })
	return i - 1
}

// BuildChart teklifleri kovalara dağıtır. Oluşturma, gönderim ve yanıt tarihleri ayrı ayrı sayılır.
func BuildChart(quotes []models.Quote, buckets []time.Time, end time.Time) ([]ChartPoint, ChartTotals) {
	points := make([]ChartPoint, len(buckets))
	for i, b := range buckets {
		points[i] = ChartPoint{Label: b.Format("2006-01-02"), Value: decimal.Zero, AcceptedValue: decimal.Zero}
	}
	loc := end.Location()

	for _, q := range quotes {
		if i := bucketOf(buckets, end, q.CreatedAt.In(loc)); i >= 0 {
			points[i].Created++
			points[i].Value = points[i].Value.Add(q.Total)
		}
		if q.SentAt != nil {
			if i := bucketOf(buckets, end, q.SentAt.In(loc)); i >= 0 {
				points[i].Sent++
			}
		}
		if q.Status == models.QuoteAccepted && q.RespondedAt != nil {
			if i := bucketOf(buckets, end, q.RespondedAt.In(loc)); i >= 0 {
				points[i].Accepted++
				points[i].AcceptedValue = points[i].AcceptedValue.Add(q.Total)
			}
		}
	}

	totals := ChartTotals{Value: decimal.Zero, AcceptedValue: decimal.Zero}
	for _, p := range points {
		totals.Created += p.Created
		totals.Sent += p.Sent
		totals.Accepted += p.Accepted
		totals.Value = totals.Value.Add(p.Value)
		totals.AcceptedValue = totals.AcceptedValue.Add(p.AcceptedValue)
	}
	return points, totals
}

// GET /api/dashboard/quote-chart?period=monthly&count=6&company_id=1
func QuoteChartHandler(clk clock.Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		companyID, err := auth.ResolveCompanyFilter(c)
		if err != nil {
			return err
		}

		period := c.Query("period", "daily")
		count := 0
		if raw := c.Query("count"); raw != "" {
			count, err = strconv.Atoi(raw)
			if err != nil || count <= 0 || count > 60 {
				return fiber.NewError(fiber.StatusBadRequest, "count geçersiz")
			}
		} else {
			switch period {
			case "weekly":
				count = 8
			case "monthly":
				count = 6
			default:
				count = 7
			}
		}

		period, start, end, buckets := Window(period, count, clk.Now())

		// Gönderim/yanıt tarihi aralıkta olup daha önce oluşturulmuş teklifler de gerekir
		dbq := database.DB.Model(&models.Quote{}).
			Where("((created_at >= ? AND created_at < ?) OR (sent_at >= ? AND sent_at < ?) OR (responded_at >= ? AND responded_at < ?))",
				start, end, start, end, start, end)
		if companyID != nil {
			dbq = dbq.Where("company_id = ?", *companyID)
		}
		var quotes []models.Quote
		if err := dbq.Find(&quotes).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Veri toplanırken hata oluştu")
		}

		points, totals := BuildChart(quotes, buckets, end)
		return c.JSON(ChartResponse{
			CompanyID:   companyID,
			Period:      period,
			From:        start.Format("2006-01-02"),
			To:          end.AddDate(0, 0, -1).Format("2006-01-02"),
			Points:      points,
			GrandTotals: totals,
		})
	}
}
