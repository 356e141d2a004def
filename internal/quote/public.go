package quote

import (
	"fmt"

	"gunes-backend/internal/apperr"
	"gunes-backend/internal/database"
	"gunes-backend/internal/models"
	"gunes-backend/internal/notification"
	"gunes-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/juju/clock"
)

type RespondBody struct {
	Decision string `json:"decision" validate:"required,oneof=ACCEPTED REJECTED"`
	Note     string `json:"note" validate:"max=2000"`
}

// loadByToken taslaklar müşteriye hiç gösterilmez.
func loadByToken(token string) (*models.Quote, error) {
	var q models.Quote
	err := database.DB.
		Preload("Company").
		Preload("Customer").
		Preload("Items").
		Where("public_token = ? AND status <> ?", token, models.QuoteDraft).
		First(&q).Error
	if err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Teklif bulunamadı")
	}
	return &q, nil
}

// GET /api/public/quotes/:token
// İlk görüntülemede SENT -> VIEWED ve firmaya bildirim.
func PublicViewHandler(clk clock.Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := loadByToken(c.Params("token"))
		if err != nil {
			return err
		}
		now := clk.Now()
		if err := expireIfDue(database.DB, q, now); err != nil {
			return err
		}

		if q.Status == models.QuoteSent {
			res := database.DB.Model(&models.Quote{}).
				Where("id = ? AND status = ?", q.ID, models.QuoteSent).
				Updates(map[string]interface{}{"status": models.QuoteViewed, "viewed_at": now})
			if res.Error != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "Teklif güncellenemedi")
			}
			if res.RowsAffected == 1 {
				q.Status = models.QuoteViewed
				q.ViewedAt = &now
				notification.NotifyCompany(q.CompanyID, notification.Payload{
					Type:    notification.TypeQuoteViewed,
					Title:   "Teklif görüntülendi",
					Message: fmt.Sprintf("%s, %s numaralı teklifi görüntüledi.", q.Customer.Name, q.QuoteNumber),
					Link:    fmt.Sprintf("/quotes/%d", q.ID),
				})
			}
		}
		return c.JSON(toPublicResponse(q))
	}
}

// POST /api/public/quotes/:token/respond
func PublicRespondHandler(clk clock.Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RespondBody
		if err := validation.Parse(c, &body); err != nil {
			return err
		}
		q, err := loadByToken(c.Params("token"))
		if err != nil {
			return err
		}
		now := clk.Now()
		if err := expireIfDue(database.DB, q, now); err != nil {
			return err
		}
		if q.Status == models.QuoteExpired {
			return apperr.ToFiber(apperr.Gone("Teklifin geçerlilik süresi dolmuş"))
		}
		if q.Status != models.QuoteSent && q.Status != models.QuoteViewed {
			return fiber.NewError(fiber.StatusConflict, "Teklif zaten yanıtlanmış")
		}

		decision := models.QuoteStatus(body.Decision)
		updates := map[string]interface{}{"status": decision, "responded_at": now}
		if q.ViewedAt == nil {
			updates["viewed_at"] = now
		}
		res := database.DB.Model(&models.Quote{}).
			Where("id = ? AND status IN ?", q.ID, expirable).
			Updates(updates)
		if res.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Yanıt kaydedilemedi")
		}
		if res.RowsAffected == 0 {
			return fiber.NewError(fiber.StatusConflict, "Teklif zaten yanıtlanmış")
		}
		q.Status = decision
		q.RespondedAt = &now
		if q.ViewedAt == nil {
			q.ViewedAt = &now
		}

		verb := "kabul etti"
		if decision == models.QuoteRejected {
			verb = "reddetti"
		}
		msg := fmt.Sprintf("%s, %s numaralı teklifi %s.", q.Customer.Name, q.QuoteNumber, verb)
		if body.Note != "" {
			msg += " Not: " + body.Note
		}
		notification.NotifyCompany(q.CompanyID, notification.Payload{
			Type:    notification.TypeQuoteResponded,
			Title:   "Teklif yanıtlandı",
			Message: truncate(msg, 1000),
			Link:    fmt.Sprintf("/quotes/%d", q.ID),
		})

		return c.JSON(toPublicResponse(q))
	}
}
