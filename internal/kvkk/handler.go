package kvkk

import (
	"fmt"
	"strings"
	"time"

	"gunes-backend/internal/apperr"
	"gunes-backend/internal/auth"
	"gunes-backend/internal/database"
	"gunes-backend/internal/models"
	"gunes-backend/internal/notification"
	"gunes-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type CreateApplicationRequest struct {
	ApplicantName string `json:"applicant_name" validate:"required,max=150"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone" validate:"max=30"`
	RequestType   string `json:"request_type" validate:"required,oneof=INFO ACCESS CORRECTION DELETION OBJECTION DAMAGES"`
	Description   string `json:"description" validate:"required,min=10,max=5000"`
	Consent       bool   `json:"consent" validate:"required"`
}

type UpdateStatusRequest struct {
	Status       string `json:"status" validate:"required,oneof=PENDING IN_PROGRESS COMPLETED REJECTED"`
	Response     string `json:"response" validate:"max=10000"`
	AssignedToID *uint  `json:"assigned_to_id"`
}

type ApplicationResponse struct {
	models.KVKKApplication
	IsOverdue bool `json:"is_overdue"`
	IsDueSoon bool `json:"is_due_soon"`
	DaysLeft  int  `json:"days_left"`
}

func toResponse(app models.KVKKApplication, now time.Time) ApplicationResponse {
	return ApplicationResponse{
		KVKKApplication: app,
		IsOverdue:       IsOverdue(app, now),
		IsDueSoon:       IsDueSoon(app, now),
		DaysLeft:        int(app.ResponseDeadline.Sub(now).Hours() / 24),
	}
}

func newApplicationNo(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("KVKK-%s-%s", now.Format("20060102"), suffix)
}

// POST /api/public/kvkk/applications
func CreateApplicationHandler(responseDays int, clk clock.Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateApplicationRequest
		if err := validation.Parse(c, &body); err != nil {
			return err
		}

		now := clk.Now()
		app := models.KVKKApplication{
			ApplicationNo:    newApplicationNo(now),
			ApplicantName:    strings.TrimSpace(body.ApplicantName),
			Email:            strings.TrimSpace(strings.ToLower(body.Email)),
			Phone:            body.Phone,
			RequestType:      models.KVKKRequestType(body.RequestType),
			Description:      strings.TrimSpace(body.Description),
			Status:           models.KVKKPending,
			ResponseDeadline: now.AddDate(0, 0, responseDays),
		}

		err := database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&app).Error; err != nil {
				return err
			}
			return tx.Create(&models.KVKKAuditLog{
				ApplicationID: app.ID,
				Action:        models.KVKKActionCreated,
				Details:       fmt.Sprintf("Başvuru alındı (%s)", app.RequestType),
				CreatedAt:     now,
			}).Error
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Başvuru kaydedilemedi")
		}

		// Adminlere bildirim kritik değil
		if admins, err := notification.UserIDsByRole(database.DB, models.RoleAdmin); err == nil {
			if err := notification.Create(database.DB, admins, notification.Payload{
				Type:    notification.TypeKVKKNew,
				Title:   "Yeni KVKK başvurusu",
				Message: fmt.Sprintf("%s numaralı başvuru alındı.", app.ApplicationNo),
				Link:    fmt.Sprintf("/admin/kvkk/%d", app.ID),
			}); err != nil {
				log.Warn().Err(err).Msg("KVKK başvuru bildirimi yazılamadı")
			}
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"application_no":    app.ApplicationNo,
			"response_deadline": app.ResponseDeadline,
			"status":            app.Status,
		})
	}
}

// GET /api/admin/kvkk/applications?status=PENDING&overdue=true&due_soon=true
func ListApplicationsHandler(clk clock.Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		now := clk.Now()
		dbq := database.DB.Model(&models.KVKKApplication{})

		if status := c.Query("status"); status != "" {
			if !models.KVKKStatus(status).Valid() {
				return fiber.NewError(fiber.StatusBadRequest, "status geçersiz")
			}
			dbq = dbq.Where("status = ?", status)
		}

		var apps []models.KVKKApplication
		if err := dbq.Order("response_deadline asc, id asc").Find(&apps).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Başvurular listelenemedi")
		}

		onlyOverdue := c.QueryBool("overdue")
		onlyDueSoon := c.QueryBool("due_soon")

		resp := make([]ApplicationResponse, 0, len(apps))
		for _, a := range apps {
			if onlyOverdue && !IsOverdue(a, now) {
				continue
			}
			if onlyDueSoon && !IsDueSoon(a, now) {
				continue
			}
			resp = append(resp, toResponse(a, now))
		}
		return c.JSON(resp)
	}
}

// GET /api/admin/kvkk/applications/:id
func GetApplicationHandler(clk clock.Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var app models.KVKKApplication
		err := database.DB.Preload("Logs", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at asc, id asc")
		}).First(&app, "id = ?", c.Params("id")).Error
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Başvuru bulunamadı")
		}
		return c.JSON(toResponse(app, clk.Now()))
	}
}

// PUT /api/admin/kvkk/applications/:id/status
func UpdateStatusHandler(clk clock.Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body UpdateStatusRequest
		if err := validation.Parse(c, &body); err != nil {
			return err
		}
		id, err := auth.CurrentIdentity(c)
		if err != nil {
			return err
		}

		var app models.KVKKApplication
		if err := database.DB.First(&app, "id = ?", c.Params("id")).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Başvuru bulunamadı")
		}

		now := clk.Now()
		newStatus := models.KVKKStatus(body.Status)
		if err := applyStatus(&app, newStatus, strings.TrimSpace(body.Response), now); err != nil {
			return apperr.ToFiber(err)
		}
		if body.AssignedToID != nil {
			app.AssignedToID = body.AssignedToID
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Save(&app).Error; err != nil {
				return err
			}
			userID := id.UserID
			return tx.Create(&models.KVKKAuditLog{
				ApplicationID: app.ID,
				Action:        models.KVKKActionStatusChanged,
				PerformedBy:   &userID,
				Details:       fmt.Sprintf("Durum %s olarak güncellendi", newStatus),
				CreatedAt:     now,
			}).Error
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Başvuru güncellenemedi")
		}

		return c.JSON(toResponse(app, now))
	}
}

// GET /api/admin/kvkk/compliance?from=2026-01-01&to=2026-12-31
func ComplianceHandler(clk clock.Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.KVKKApplication{})
		if from := c.Query("from"); from != "" {
			d, err := time.Parse("2006-01-02", from)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "from geçersiz")
			}
			dbq = dbq.Where("created_at >= ?", d)
		}
		if to := c.Query("to"); to != "" {
			d, err := time.Parse("2006-01-02", to)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "to geçersiz")
			}
			dbq = dbq.Where("created_at < ?", d.AddDate(0, 0, 1))
		}

		var apps []models.KVKKApplication
		if err := dbq.Find(&apps).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Uyum raporu hesaplanamadı")
		}
		return c.JSON(Compliance(apps, clk.Now()))
	}
}

// POST /api/admin/kvkk/run-checks
func RunChecksHandler(checker *Checker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		res, err := checker.RunChecks(c.UserContext())
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}
