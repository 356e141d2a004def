package nextstep

import (
	"strings"
	"time"

	"gunes-backend/internal/auth"
	"gunes-backend/internal/database"
	"gunes-backend/internal/models"
	"gunes-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/juju/clock"
	"gorm.io/gorm"
)

type ProjectRequestBody struct {
	CompanyID    *uint   `json:"company_id"`
	CustomerID   *uint   `json:"customer_id"`
	CustomerName string  `json:"customer_name" validate:"required,max=150"`
	Phone        string  `json:"phone" validate:"max=30"`
	Email        string  `json:"email" validate:"omitempty,email"`
	City         string  `json:"city" validate:"max=60"`
	ProjectType  string  `json:"project_type" validate:"omitempty,oneof=RESIDENTIAL COMMERCIAL INDUSTRIAL AGRICULTURAL"`
	EstimatedKW  float64 `json:"estimated_kw" validate:"gte=0"`
	Status       string  `json:"status" validate:"omitempty,oneof=NEW CONTACTED SITE_VISIT_SCHEDULED SITE_VISIT_DONE QUOTE_SENT NEGOTIATION WON LOST"`
	Notes        string  `json:"notes" validate:"max=5000"`
}

type StatusBody struct {
	Status string `json:"status" validate:"required,oneof=NEW CONTACTED SITE_VISIT_SCHEDULED SITE_VISIT_DONE QUOTE_SENT NEGOTIATION WON LOST"`
}

type RequestResponse struct {
	models.ProjectRequest
	NextSteps []Step `json:"next_steps"`
}

// scoped firma kullanıcısı sadece kendi taleplerini görür.
func scoped(c *fiber.Ctx) (*gorm.DB, error) {
	companyID, err := auth.ResolveCompanyFilter(c)
	if err != nil {
		return nil, err
	}
	dbq := database.DB.Model(&models.ProjectRequest{})
	if companyID != nil {
		dbq = dbq.Where("company_id = ?", *companyID)
	}
	return dbq, nil
}

func load(c *fiber.Ctx) (models.ProjectRequest, error) {
	var r models.ProjectRequest
	dbq, err := scoped(c)
	if err != nil {
		return r, err
	}
	if err := dbq.First(&r, "id = ?", c.Params("id")).Error; err != nil {
		return r, fiber.NewError(fiber.StatusNotFound, "Talep bulunamadı")
	}
	return r, nil
}

// POST /api/project-requests
func CreateHandler(clk clock.Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ProjectRequestBody
		if err := validation.Parse(c, &body); err != nil {
			return err
		}
		companyID, err := auth.ResolveCompanyIDFromBody(c, body.CompanyID)
		if err != nil {
			return err
		}
		if body.CustomerID != nil {
			var count int64
			database.DB.Model(&models.Customer{}).
				Where("id = ? AND company_id = ?", *body.CustomerID, companyID).
				Count(&count)
			if count == 0 {
				return fiber.NewError(fiber.StatusBadRequest, "Müşteri bulunamadı")
			}
		}

		status := models.RequestNew
		if body.Status != "" {
			status = models.RequestStatus(body.Status)
		}
		r := models.ProjectRequest{
			CompanyID:       &companyID,
			CustomerID:      body.CustomerID,
			CustomerName:    strings.TrimSpace(body.CustomerName),
			Phone:           body.Phone,
			Email:           strings.TrimSpace(strings.ToLower(body.Email)),
			City:            body.City,
			ProjectType:     body.ProjectType,
			EstimatedKW:     body.EstimatedKW,
			Status:          status,
			StatusChangedAt: clk.Now(),
			Notes:           body.Notes,
		}
		if err := database.DB.Create(&r).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Talep oluşturulamadı")
		}
		return c.Status(fiber.StatusCreated).JSON(RequestResponse{r, ForRequest(r, clk.Now())})
	}
}

// POST /api/public/project-requests
// Web formundan gelen talep; company_id verilmezse platform havuzuna düşer.
func PublicCreateHandler(clk clock.Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ProjectRequestBody
		if err := validation.Parse(c, &body); err != nil {
			return err
		}
		if strings.TrimSpace(body.Phone) == "" && strings.TrimSpace(body.Email) == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Telefon veya e-posta zorunlu")
		}
		if body.CompanyID != nil {
			var count int64
			database.DB.Model(&models.Company{}).Where("id = ?", *body.CompanyID).Count(&count)
			if count == 0 {
				return fiber.NewError(fiber.StatusBadRequest, "Firma bulunamadı")
			}
		}

		r := models.ProjectRequest{
			CompanyID:       body.CompanyID,
			CustomerName:    strings.TrimSpace(body.CustomerName),
			Phone:           body.Phone,
			Email:           strings.TrimSpace(strings.ToLower(body.Email)),
			City:            body.City,
			ProjectType:     body.ProjectType,
			EstimatedKW:     body.EstimatedKW,
			Status:          models.RequestNew,
			StatusChangedAt: clk.Now(),
			Notes:           body.Notes,
		}
		if err := database.DB.Create(&r).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Talep oluşturulamadı")
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": r.ID, "status": r.Status})
	}
}

// GET /api/project-requests?status=NEW
func ListHandler(clk clock.Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq, err := scoped(c)
		if err != nil {
			return err
		}
		if status := c.Query("status"); status != "" {
			if !models.RequestStatus(status).Valid() {
				return fiber.NewError(fiber.StatusBadRequest, "status geçersiz")
			}
			dbq = dbq.Where("status = ?", status)
		}

		var rows []models.ProjectRequest
		if err := dbq.Order("created_at desc, id desc").Find(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Talepler listelenemedi")
		}

		now := clk.Now()
		resp := make([]RequestResponse, 0, len(rows))
		for _, r := range rows {
			resp = append(resp, RequestResponse{r, ForRequest(r, now)})
		}
		return c.JSON(resp)
	}
}

// GET /api/project-requests/:id
func GetHandler(clk clock.Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		r, err := load(c)
		if err != nil {
			return err
		}
		return c.JSON(RequestResponse{r, ForRequest(r, clk.Now())})
	}
}

// PUT /api/project-requests/:id
func UpdateHandler(clk clock.Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ProjectRequestBody
		if err := validation.Parse(c, &body); err != nil {
			return err
		}
		r, err := load(c)
		if err != nil {
			return err
		}

		r.CustomerID = body.CustomerID
		r.CustomerName = strings.TrimSpace(body.CustomerName)
		r.Phone = body.Phone
		r.Email = strings.TrimSpace(strings.ToLower(body.Email))
		r.City = body.City
		r.ProjectType = body.ProjectType
		r.EstimatedKW = body.EstimatedKW
		r.Notes = body.Notes
		now := clk.Now()
		if body.Status != "" {
			setStatus(&r, models.RequestStatus(body.Status), now)
		}

		if err := database.DB.Save(&r).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Talep güncellenemedi")
		}
		return c.JSON(RequestResponse{r, ForRequest(r, now)})
	}
}

// setStatus durum gerçekten değiştiyse adım sürelerinin başlangıcını sıfırlar.
func setStatus(r *models.ProjectRequest, status models.RequestStatus, now time.Time) {
	if r.Status == status {
		return
	}
	r.Status = status
	r.StatusChangedAt = now
}

// PUT /api/project-requests/:id/status
func UpdateStatusHandler(clk clock.Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body StatusBody
		if err := validation.Parse(c, &body); err != nil {
			return err
		}
		r, err := load(c)
		if err != nil {
			return err
		}

		now := clk.Now()
		setStatus(&r, models.RequestStatus(body.Status), now)
		if err := database.DB.Model(&models.ProjectRequest{}).
			Where("id = ?", r.ID).
			Updates(map[string]interface{}{
				"status":            r.Status,
				"status_changed_at": r.StatusChangedAt,
			}).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Durum güncellenemedi")
		}
		return c.JSON(RequestResponse{r, ForRequest(r, now)})
	}
}

// DELETE /api/project-requests/:id
func DeleteHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		r, err := load(c)
		if err != nil {
			return err
		}
		if err := database.DB.Delete(&r).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Talep silinemedi")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// GET /api/project-requests/next-steps?overdue=true&priority=HIGH
func NextStepsHandler(clk clock.Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq, err := scoped(c)
		if err != nil {
			return err
		}
		var rows []models.ProjectRequest
		if err := dbq.Where("status <> ?", models.RequestLost).Find(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Talepler okunamadı")
		}

		steps := Derive(rows, clk.Now())
		onlyOverdue := c.QueryBool("overdue")
		priority := Priority(c.Query("priority"))
		if !onlyOverdue && priority == "" {
			return c.JSON(steps)
		}
		filtered := make([]Step, 0, len(steps))
		for _, s := range steps {
			if onlyOverdue && !s.IsOverdue {
				continue
			}
			if priority != "" && s.Priority != priority {
				continue
			}
			filtered = append(filtered, s)
		}
		return c.JSON(filtered)
	}
}

// GET /api/project-requests/:id/next-steps
func RequestNextStepsHandler(clk clock.Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		r, err := load(c)
		if err != nil {
			return err
		}
		return c.JSON(ForRequest(r, clk.Now()))
	}
}
