package partner

import (
	"strings"

	"gunes-backend/internal/auth"
	"gunes-backend/internal/database"
	"gunes-backend/internal/models"
	"gunes-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/juju/clock"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type LeadRequest struct {
	CustomerName string  `json:"customer_name" validate:"required,max=150"`
	Phone        string  `json:"phone" validate:"required,max=30"`
	Email        string  `json:"email" validate:"omitempty,email"`
	City         string  `json:"city" validate:"required,max=60"`
	ServiceType  string  `json:"service_type" validate:"required,oneof=RESIDENTIAL COMMERCIAL AGRICULTURAL INDUSTRIAL MAINTENANCE CONSULTING"`
	EstimatedKW  float64 `json:"estimated_kw" validate:"gte=0"`
	Notes        string  `json:"notes" validate:"max=2000"`
}

type CompleteRequest struct {
	ContractAmount decimal.Decimal `json:"contract_amount"`
}

// POST /api/public/partner-requests
// Talep kaydedilir ve hemen uygun ortağa yönlendirilir.
func CreateLeadHandler(clk clock.Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LeadRequest
		if err := validation.Parse(c, &body); err != nil {
			return err
		}

		lead := models.PartnerQuoteRequest{
			CustomerName: strings.TrimSpace(body.CustomerName),
			Phone:        strings.TrimSpace(body.Phone),
			Email:        strings.ToLower(strings.TrimSpace(body.Email)),
			City:         strings.TrimSpace(body.City),
			ServiceType:  body.ServiceType,
			EstimatedKW:  body.EstimatedKW,
			Notes:        body.Notes,
			Status:       models.LeadPending,
		}

		var assigned *models.Partner
		err := database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&lead).Error; err != nil {
				return err
			}
			var err error
			assigned, err = Route(tx, &lead, clk.Now())
			return err
		})
		if err != nil {
			log.Error().Err(err).Msg("partner talebi kaydedilemedi")
			return fiber.NewError(fiber.StatusInternalServerError, "Talep kaydedilemedi")
		}

		NotifyAssigned(assigned, &lead)

		resp := fiber.Map{
			"id":     lead.ID,
			"status": lead.Status,
		}
		if assigned != nil {
			var company models.Company
			if database.DB.First(&company, assigned.CompanyID).Error == nil {
				resp["partner_name"] = company.Name
			}
		}
		return c.Status(fiber.StatusCreated).JSON(resp)
	}
}

// GET /api/partner/leads?status=ASSIGNED   (partner firma: kendi talepleri)
// GET /api/admin/partner-requests?status=PENDING (admin: hepsi)
func ListLeadsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.CurrentIdentity(c)
		if err != nil {
			return err
		}
		dbq := database.DB.Model(&models.PartnerQuoteRequest{})
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

		var leads []models.PartnerQuoteRequest
		if err := dbq.Order("created_at desc, id desc").Find(&leads).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Talepler listelenemedi")
		}
		return c.JSON(leads)
	}
}

// loadOwnLead partner firmanın kendisine atanmış talebi.
func loadOwnLead(c *fiber.Ctx) (*models.PartnerQuoteRequest, *models.Partner, error) {
	p, err := currentPartner(c)
	if err != nil {
		return nil, nil, err
	}
	var lead models.PartnerQuoteRequest
	if err := database.DB.First(&lead, "id = ?", c.Params("id")).Error; err != nil {
		return nil, nil, fiber.NewError(fiber.StatusNotFound, "Talep bulunamadı")
	}
	if lead.PartnerID == nil || *lead.PartnerID != p.ID {
		return nil, nil, fiber.NewError(fiber.StatusNotFound, "Talep bulunamadı")
	}
	return &lead, p, nil
}

// PUT /api/partner/leads/:id/accept
func AcceptLeadHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		lead, p, err := loadOwnLead(c)
		if err != nil {
			return err
		}
		res := database.DB.Model(&models.PartnerQuoteRequest{}).
			Where("id = ? AND partner_id = ? AND status = ?", lead.ID, p.ID, models.LeadAssigned).
			Update("status", models.LeadAccepted)
		if res.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Talep güncellenemedi")
		}
		if res.RowsAffected == 0 {
			return fiber.NewError(fiber.StatusConflict, "Sadece atanmış talepler kabul edilebilir")
		}
		lead.Status = models.LeadAccepted
		return c.JSON(lead)
	}
}

// PUT /api/partner/leads/:id/decline
// Reddeden ortak hariç tutularak talep yeniden yönlendirilir.
func DeclineLeadHandler(clk clock.Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lead, p, err := loadOwnLead(c)
		if err != nil {
			return err
		}
		if lead.Status != models.LeadAssigned {
			return fiber.NewError(fiber.StatusConflict, "Sadece atanmış talepler reddedilebilir")
		}

		addDeclined(lead, p.ID)
		next, err := Route(database.DB, lead, clk.Now())
		if err != nil {
			log.Error().Err(err).Uint("lead_id", lead.ID).Msg("talep yeniden yönlendirilemedi")
			return fiber.NewError(fiber.StatusInternalServerError, "Talep yeniden yönlendirilemedi")
		}
		NotifyAssigned(next, lead)
		return c.JSON(fiber.Map{"id": lead.ID, "status": lead.Status})
	}
}

// PUT /api/partner/leads/:id/complete
// Sözleşme tutarı üzerinden partner komisyonu oluşturulur.
func CompleteLeadHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CompleteRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz JSON")
		}
		if !body.ContractAmount.IsPositive() {
			return fiber.NewError(fiber.StatusBadRequest, "contract_amount sıfırdan büyük olmalı")
		}
		lead, p, err := loadOwnLead(c)
		if err != nil {
			return err
		}
		if lead.Status != models.LeadAccepted {
			return fiber.NewError(fiber.StatusConflict, "Sadece kabul edilmiş talepler tamamlanabilir")
		}

		commission := models.Commission{
			PartnerID:      p.ID,
			QuoteRequestID: lead.ID,
			Amount:         CommissionAmount(body.ContractAmount, p.CommissionRate),
			Rate:           p.CommissionRate,
			Status:         models.CommissionPending,
		}
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&models.PartnerQuoteRequest{}).
				Where("id = ? AND status = ?", lead.ID, models.LeadAccepted).
				Updates(map[string]interface{}{
					"status":          models.LeadCompleted,
					"contract_amount": body.ContractAmount,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fiber.NewError(fiber.StatusConflict, "Talep zaten tamamlanmış")
			}
			return tx.Create(&commission).Error
		})
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				return fe
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Talep tamamlanamadı")
		}

		log.Info().
			Uint("lead_id", lead.ID).
			Uint("partner_id", p.ID).
			Str("commission", commission.Amount.String()).
			Msg("partner talebi tamamlandı")
		return c.JSON(commission)
	}
}

// POST /api/admin/partner-requests/:id/route
// Beklemede kalan talebi yeni ortaklar eklendikten sonra tekrar yönlendirir.
func RerouteLeadHandler(clk clock.Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var lead models.PartnerQuoteRequest
		if err := database.DB.First(&lead, "id = ?", c.Params("id")).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Talep bulunamadı")
		}
		if lead.Status != models.LeadPending {
			return fiber.NewError(fiber.StatusConflict, "Sadece bekleyen talepler yönlendirilebilir")
		}
		next, err := Route(database.DB, &lead, clk.Now())
		if err != nil {
			return err
		}
		NotifyAssigned(next, &lead)
		return c.JSON(lead)
	}
}
