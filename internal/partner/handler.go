package partner

import (
	"errors"

	"gunes-backend/internal/auth"
	"gunes-backend/internal/database"
	"gunes-backend/internal/models"
	"gunes-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PartnerRequest struct {
	CompanyID      uint            `json:"company_id" validate:"required"`
	Cities         []string        `json:"cities" validate:"required,min=1,dive,required,max=60"`
	ServiceTypes   []string        `json:"service_types" validate:"required,min=1,dive,oneof=RESIDENTIAL COMMERCIAL AGRICULTURAL INDUSTRIAL MAINTENANCE CONSULTING"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
	IsActive       *bool           `json:"is_active"`
}

type VerifyRequest struct {
	IsVerified bool `json:"is_verified"`
}

type PartnerResponse struct {
	models.Partner
	CompanyName string   `json:"company_name"`
	CityList    []string `json:"city_list"`
	ServiceList []string `json:"service_list"`
}

func toPartnerResponse(p models.Partner) PartnerResponse {
	return PartnerResponse{
		Partner:     p,
		CompanyName: p.Company.Name,
		CityList:    SplitList(p.Cities),
		ServiceList: SplitList(p.ServiceTypes),
	}
}

func checkRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(100)) {
		return fiber.NewError(fiber.StatusBadRequest, "commission_rate 0-100 arasında olmalı")
	}
	return nil
}

// POST /api/admin/partners
func CreatePartnerHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body PartnerRequest
		if err := validation.Parse(c, &body); err != nil {
			return err
		}
		if err := checkRate(body.CommissionRate); err != nil {
			return err
		}

		var company models.Company
		if err := database.DB.First(&company, "id = ?", body.CompanyID).Error; err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Firma bulunamadı")
		}

		p := models.Partner{
			CompanyID:      company.ID,
			Cities:         JoinList(body.Cities),
			ServiceTypes:   JoinList(body.ServiceTypes),
			CommissionRate: body.CommissionRate,
			IsActive:       true,
		}
		if body.IsActive != nil {
			p.IsActive = *body.IsActive
		}
		if err := database.DB.Omit("Company").Create(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fiber.NewError(fiber.StatusConflict, "Bu firma zaten partner olarak kayıtlı")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Partner oluşturulamadı")
		}
		// IsActive=false ise default:true tag'i yüzünden güncellemek gerekir
		if !p.IsActive {
			database.DB.Model(&p).Update("is_active", false)
		}
		p.Company = company
		return c.Status(fiber.StatusCreated).JSON(toPartnerResponse(p))
	}
}

// GET /api/admin/partners?city=Konya&verified=true
func ListPartnersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Preload("Company")
		if v := c.Query("verified"); v != "" {
			dbq = dbq.Where("is_verified = ?", c.QueryBool("verified"))
		}

		var partners []models.Partner
		if err := dbq.Order("rating desc, id asc").Find(&partners).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Partnerler listelenemedi")
		}

		city := c.Query("city")
		resp := make([]PartnerResponse, 0, len(partners))
		for _, p := range partners {
			if city != "" && !contains(p.Cities, city) {
				continue
			}
			resp = append(resp, toPartnerResponse(p))
		}
		return c.JSON(resp)
	}
}

func loadPartner(c *fiber.Ctx) (*models.Partner, error) {
	var p models.Partner
	if err := database.DB.Preload("Company").First(&p, "id = ?", c.Params("id")).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Partner bulunamadı")
	}
	return &p, nil
}

// PUT /api/admin/partners/:id
func UpdatePartnerHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body PartnerRequest
		if err := validation.Parse(c, &body); err != nil {
			return err
		}
		if err := checkRate(body.CommissionRate); err != nil {
			return err
		}
		p, err := loadPartner(c)
		if err != nil {
			return err
		}
		if body.CompanyID != p.CompanyID {
			return fiber.NewError(fiber.StatusBadRequest, "Partner firması değiştirilemez")
		}

		updates := map[string]interface{}{
			"cities":          JoinList(body.Cities),
			"service_types":   JoinList(body.ServiceTypes),
			"commission_rate": body.CommissionRate,
		}
		if body.IsActive != nil {
			updates["is_active"] = *body.IsActive
		}
		if err := database.DB.Model(p).Updates(updates).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Partner güncellenemedi")
		}
		if err := database.DB.Preload("Company").First(p, p.ID).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Partner okunamadı")
		}
		return c.JSON(toPartnerResponse(*p))
	}
}

// PUT /api/admin/partners/:id/verify
func VerifyPartnerHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body VerifyRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Geçersiz JSON")
		}
		p, err := loadPartner(c)
		if err != nil {
			return err
		}
		if err := database.DB.Model(p).Update("is_verified", body.IsVerified).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Partner güncellenemedi")
		}
		p.IsVerified = body.IsVerified
		log.Info().Uint("partner_id", p.ID).Bool("verified", body.IsVerified).Msg("partner doğrulama durumu değişti")
		return c.JSON(toPartnerResponse(*p))
	}
}

// GET /api/partner/me
func MeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := currentPartner(c)
		if err != nil {
			return err
		}
		return c.JSON(toPartnerResponse(*p))
	}
}

// currentPartner oturumdaki firma kullanıcısının partner kaydı.
func currentPartner(c *fiber.Ctx) (*models.Partner, error) {
	id, err := auth.CurrentIdentity(c)
	if err != nil {
		return nil, err
	}
	if id.CompanyID == nil {
		return nil, fiber.NewError(fiber.StatusForbidden, "Firma bilgisi bulunamadı")
	}
	var p models.Partner
	if err := database.DB.Preload("Company").Where("company_id = ?", *id.CompanyID).First(&p).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusForbidden, "Firmanız partner olarak kayıtlı değil")
	}
	return &p, nil
}
