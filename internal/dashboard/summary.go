package dashboard

import (
	"time"

	"gunes-backend/internal/auth"
	"gunes-backend/internal/database"
	"gunes-backend/internal/kvkk"
	"gunes-backend/internal/models"
	"gunes-backend/internal/nextstep"
	"gunes-backend/internal/quote"

	"github.com/gofiber/fiber/v2"
	"github.com/juju/clock"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type QuoteSummary struct {
	Open                int             `json:"open"` // SENT + VIEWED
	Draft               int             `json:"draft"`
	AcceptedThisMonth   int             `json:"accepted_this_month"`
	AcceptedValueMonth  decimal.Decimal `json:"accepted_value_month"`
	ExpiringWithin7Days int             `json:"expiring_within_7_days"`
}

type Summary struct {
	Customers          int64           `json:"customers"`
	ActiveProjects     int64           `json:"active_projects"`
	OpenRequests       int64           `json:"open_requests"`
	OverdueSteps       int             `json:"overdue_steps"`
	Quotes             QuoteSummary    `json:"quotes"`
	PendingPhotos      int64           `json:"pending_photo_requests"`
	UnreadNotification int64           `json:"unread_notifications"`
	Companies          *int64          `json:"companies,omitempty"`
	KVKKOverdue        *int            `json:"kvkk_overdue,omitempty"`
	NextSteps          []nextstep.Step `json:"next_steps"`
}

// SummarizeQuotes ay başı now'ın ayına göre alınır.
func SummarizeQuotes(quotes []models.Quote, now time.Time) QuoteSummary {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	soon := now.Add(7 * 24 * time.Hour)
	s := QuoteSummary{AcceptedValueMonth: decimal.Zero}
	for _, q := range quotes {
		switch q.Status {
		case models.QuoteDraft:
			s.Draft++
		case models.QuoteSent, models.QuoteViewed:
			s.Open++
			if !q.ValidUntil.Before(now) && q.ValidUntil.Before(soon) {
				s.ExpiringWithin7Days++
			}
		case models.QuoteAccepted:
			if q.RespondedAt != nil && !q.RespondedAt.Before(monthStart) {
				s.AcceptedThisMonth++
				s.AcceptedValueMonth = s.AcceptedValueMonth.Add(q.Total)
			}
		}
	}
	return s
}

// GET /api/dashboard/summary?company_id=1
func SummaryHandler(clk clock.Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.CurrentIdentity(c)
		if err != nil {
			return err
		}
		companyID, err := auth.ResolveCompanyFilter(c)
		if err != nil {
			return err
		}
		now := clk.Now()

		scope := func(model any) *gorm.DB {
			dbq := database.DB.Model(model)
			if companyID != nil {
				dbq = dbq.Where("company_id = ?", *companyID)
			}
			return dbq
		}

		var s Summary
		scope(&models.Customer{}).Count(&s.Customers)
		scope(&models.Project{}).
			Where("status IN ?", []models.ProjectStatus{models.ProjectApproved, models.ProjectInstalling}).
			Count(&s.ActiveProjects)
		scope(&models.PhotoRequest{}).
			Where("status IN ?", []models.PhotoRequestStatus{models.PhotoPending, models.PhotoPartial}).
			Count(&s.PendingPhotos)
		database.DB.Model(&models.Notification{}).
			Where("user_id = ? AND is_read = ?", id.UserID, false).
			Count(&s.UnreadNotification)

		var requests []models.ProjectRequest
		if err := scope(&models.ProjectRequest{}).
			Where("status NOT IN ?", []models.RequestStatus{models.RequestWon, models.RequestLost}).
			Find(&requests).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Özet hesaplanamadı")
		}
		s.OpenRequests = int64(len(requests))
		steps := nextstep.Derive(requests, now)
		for _, st := range steps {
			if st.IsOverdue {
				s.OverdueSteps++
			}
		}
		if len(steps) > 5 {
			steps = steps[:5]
		}
		s.NextSteps = steps

		if _, err := quote.ExpireDueFor(database.DB, companyID, now); err != nil {
			return err
		}
		var quotes []models.Quote
		if err := scope(&models.Quote{}).
			Select("id", "status", "total", "valid_until", "responded_at").
			Find(&quotes).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Özet hesaplanamadı")
		}
		s.Quotes = SummarizeQuotes(quotes, now)

		if id.IsAdmin() && companyID == nil {
			var companies int64
			database.DB.Model(&models.Company{}).Count(&companies)
			s.Companies = &companies

			var apps []models.KVKKApplication
			database.DB.Where("status IN ?", []models.KVKKStatus{models.KVKKPending, models.KVKKInProgress}).Find(&apps)
			overdue := 0
			for _, a := range apps {
				if kvkk.IsOverdue(a, now) {
					overdue++
				}
			}
			s.KVKKOverdue = &overdue
		}

		return c.JSON(s)
	}
}
