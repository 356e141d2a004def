package exchange

import (
	"fmt"
	"strings"
	"time"

	"gunes-backend/internal/apperr"
	"gunes-backend/internal/audit"
	"gunes-backend/internal/auth"
	"gunes-backend/internal/database"
	"gunes-backend/internal/metrics"
	"gunes-backend/internal/models"
	"gunes-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type RateRequest struct {
	Currency      string          `json:"currency" validate:"required,len=3,alpha"`
	Rate          decimal.Decimal `json:"rate"`
	EffectiveDate string          `json:"effective_date" validate:"omitempty,datetime=2006-01-02"`
}

type BulkRequest struct {
	Rates []RateRequest `json:"rates" validate:"required,min=1,max=20,dive"`
}

// manualChange tek bir manuel kur değişikliğinin önce/sonra hali.
type manualChange struct {
	previous *models.ExchangeRate
	current  models.ExchangeRate
}

func effectiveDate(s string, now time.Time) time.Time {
	if s == "" {
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
	d, _ := time.Parse("2006-01-02", s)
	return d
}

// setManual önceki aktif manuel kuru pasife alıp yenisini yazar; tx içinde çağrılmalı.
func setManual(tx *gorm.DB, body RateRequest, userID uint, now time.Time) (manualChange, error) {
	var ch manualChange
	if !body.Rate.IsPositive() {
		return ch, apperr.Invalid("%s kuru sıfırdan büyük olmalı", body.Currency)
	}
	currency := strings.ToUpper(body.Currency)

	var prev models.ExchangeRate
	err := tx.Where("currency = ? AND source = ? AND is_active = ?", currency, models.RateSourceManual, true).
		First(&prev).Error
	switch {
	case err == nil:
		if err := tx.Model(&prev).Update("is_active", false).Error; err != nil {
			return ch, err
		}
		ch.previous = &prev
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return ch, err
	}

	ch.current = models.ExchangeRate{
		Currency:      currency,
		Rate:          body.Rate.Round(4),
		Source:        models.RateSourceManual,
		IsActive:      true,
		EffectiveDate: effectiveDate(body.EffectiveDate, now),
		CreatedBy:     &userID,
	}
	if err := tx.Create(&ch.current).Error; err != nil {
		return ch, err
	}
	return ch, nil
}

func recordChange(c *fiber.Ctx, ch manualChange) {
	action := models.AuditActionCreate
	var before any
	if ch.previous != nil {
		action = models.AuditActionUpdate
		before = ch.previous
	}
	audit.Record(c, database.DB, audit.LogOptions{
		EntityType:  audit.EntityExchangeRate,
		EntityID:    ch.current.ID,
		Action:      action,
		Description: fmt.Sprintf("Manuel kur: %s = %s TL", ch.current.Currency, ch.current.Rate.StringFixed(4)),
		Before:      before,
		After:       ch.current,
	})
}

// POST /api/admin/exchange-rates
func CreateManualHandler(clk clock.Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RateRequest
		if err := validation.Parse(c, &body); err != nil {
			return err
		}
		id, err := auth.CurrentIdentity(c)
		if err != nil {
			return err
		}

		var ch manualChange
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			var err error
			ch, err = setManual(tx, body, id.UserID, clk.Now())
			return err
		})
		if err != nil {
			return apperr.ToFiber(err)
		}
		recordChange(c, ch)
		return c.Status(fiber.StatusCreated).JSON(ch.current)
	}
}

// PUT /api/admin/exchange-rates/bulk
func BulkUpdateHandler(clk clock.Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body BulkRequest
		if err := validation.Parse(c, &body); err != nil {
			return err
		}
		id, err := auth.CurrentIdentity(c)
		if err != nil {
			return err
		}

		seen := map[string]bool{}
		for _, r := range body.Rates {
			code := strings.ToUpper(r.Currency)
			if seen[code] {
				return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("%s birden fazla kez gönderildi", code))
			}
			seen[code] = true
		}

		now := clk.Now()
		changes := make([]manualChange, 0, len(body.Rates))
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			for _, r := range body.Rates {
				ch, err := setManual(tx, r, id.UserID, now)
				if err != nil {
					return err
				}
				changes = append(changes, ch)
			}
			return nil
		})
		if err != nil {
			return apperr.ToFiber(err)
		}

		out := make([]models.ExchangeRate, 0, len(changes))
		for _, ch := range changes {
			recordChange(c, ch)
			out = append(out, ch.current)
		}
		return c.JSON(out)
	}
}

// GET /api/admin/exchange-rates?currency=USD&source=TCMB
func ListHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.ExchangeRate{})
		if cur := c.Query("currency"); cur != "" {
			dbq = dbq.Where("currency = ?", strings.ToUpper(cur))
		}
		if src := c.Query("source"); src != "" {
			dbq = dbq.Where("source = ?", strings.ToUpper(src))
		}

		var rates []models.ExchangeRate
		if err := dbq.Order("effective_date desc, id desc").Limit(500).Find(&rates).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kurlar listelenemedi")
		}
		return c.JSON(rates)
	}
}

// GET /api/exchange-rates/active
func ActiveHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rates, err := ActiveRates(database.DB)
		if err != nil {
			return err
		}
		return c.JSON(rates)
	}
}

// GET /api/exchange-rates/convert?amount=1000&from=USD&to=TRY
func ConvertHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		amount, err := decimal.NewFromString(c.Query("amount"))
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "amount geçersiz")
		}
		from := strings.ToUpper(c.Query("from", "TRY"))
		to := strings.ToUpper(c.Query("to", "TRY"))

		rates, err := ActiveRates(database.DB)
		if err != nil {
			return err
		}
		res, err := Convert(rates, amount, from, to)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(fiber.Map{"amount": amount, "from": from, "to": to, "result": res})
	}
}

// POST /api/admin/exchange-rates/sync
func SyncHandler(f Fetcher) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := Sync(c.UserContext(), database.DB, f)
		metrics.SchedulerRuns.WithLabelValues("rate_sync_manual", metrics.Outcome(err)).Inc()
		if err != nil {
			return fiber.NewError(fiber.StatusBadGateway, "TCMB kurları alınamadı")
		}
		return c.JSON(res)
	}
}
