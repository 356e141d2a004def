package partner

import (
	"gunes-backend/internal/auth"
	"gunes-backend/internal/database"
	"gunes-backend/internal/models"
	"gunes-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/juju/clock"
	"gorm.io/gorm"
)

type ReviewRequest struct {
	QuoteRequestID *uint  `json:"quote_request_id"`
	CustomerName   string `json:"customer_name" validate:"required,max=150"`
	Rating         int    `json:"rating" validate:"required,min=1,max=5"`
	Comment        string `json:"comment" validate:"max=1000"`
}

// GET /api/admin/commissions?status=PENDING&partner_id=1
// GET /api/partner/commissions (partner kendi komisyonları)
func ListCommissionsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.CurrentIdentity(c)
		if err != nil {
			return err
		}
		dbq := database.DB.Model(&models.Commission{})
		if !id.IsAdmin() {
			p, err := currentPartner(c)
			if err != nil {
				return err
			}
			dbq = dbq.Where("partner_id = ?", p.ID)
		} else if pid := c.QueryInt("partner_id"); pid > 0 {
			dbq = dbq.Where("partner_id = ?", pid)
		}
		if status := c.Query("status"); status != "" {
			dbq = dbq.Where("status = ?", status)
		}

		var rows []models.Commission
		if err := dbq.Order("created_at desc, id desc").Find(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Komisyonlar listelenemedi")
		}
		return c.JSON(rows)
	}
}

// PUT /api/admin/commissions/:id/pay
func PayCommissionHandler(clk clock.Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var cm models.Commission
		if err := database.DB.First(&cm, "id = ?", c.Params("id")).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Komisyon bulunamadı")
		}
		now := clk.Now()
		res := database.DB.Model(&models.Commission{}).
			Where("id = ? AND status = ?", cm.ID, models.CommissionPending).
			Updates(map[string]interface{}{"status": models.CommissionPaid, "paid_at": now})
		if res.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Komisyon güncellenemedi")
		}
		if res.RowsAffected == 0 {
			return fiber.NewError(fiber.StatusConflict, "Komisyon ödenebilir durumda değil")
		}
		cm.Status = models.CommissionPaid
		cm.PaidAt = &now
		return c.JSON(cm)
	}
}

// POST /api/public/partners/:id/reviews
func CreateReviewHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ReviewRequest
		if err := validation.Parse(c, &body); err != nil {
			return err
		}
		var p models.Partner
		if err := database.DB.First(&p, "id = ? AND is_active = ?", c.Params("id"), true).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Partner bulunamadı")
		}
		if body.QuoteRequestID != nil {
			var count int64
			database.DB.Model(&models.PartnerQuoteRequest{}).
				Where("id = ? AND partner_id = ? AND status = ?", *body.QuoteRequestID, p.ID, models.LeadCompleted).
				Count(&count)
			if count == 0 {
				return fiber.NewError(fiber.StatusBadRequest, "Değerlendirme sadece tamamlanmış iş için yapılabilir")
			}
		}

		review := models.PartnerReview{
			PartnerID:      p.ID,
			QuoteRequestID: body.QuoteRequestID,
			CustomerName:   body.CustomerName,
			Rating:         body.Rating,
			Comment:        body.Comment,
		}
		err := database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&review).Error; err != nil {
				return err
			}
			return RecalculateRating(tx, p.ID)
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Değerlendirme kaydedilemedi")
		}
		return c.Status(fiber.StatusCreated).JSON(review)
	}
}

// GET /api/public/partners/:id/reviews
func ListReviewsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var reviews []models.PartnerReview
		if err := database.DB.Where("partner_id = ?", c.Params("id")).
			Order("created_at desc, id desc").
			Find(&reviews).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Değerlendirmeler listelenemedi")
		}
		return c.JSON(reviews)
	}
}
