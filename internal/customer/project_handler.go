package customer

import (
	"strings"
	"time"

	"gunes-backend/internal/auth"
	"gunes-backend/internal/database"
	"gunes-backend/internal/models"
	"gunes-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ProjectRequest struct {
	CompanyID  *uint    `json:"company_id"`
	CustomerID uint     `json:"customer_id" validate:"required"`
	Name       string   `json:"name" validate:"required,max=150"`
	Status     string   `json:"status" validate:"omitempty,oneof=PLANNING APPROVED INSTALLING COMPLETED CANCELLED"`
	CapacityKW float64  `json:"capacity_kw" validate:"gte=0"`
	Location   string   `json:"location" validate:"max=255"`
	Latitude   *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude  *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	StartDate  string   `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate    string   `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

func optionalDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &d
}

func applyProject(p *models.Project, body ProjectRequest) error {
	p.CustomerID = body.CustomerID
	p.Name = strings.TrimSpace(body.Name)
	p.Status = models.ProjectPlanning
	if body.Status != "" {
		p.Status = models.ProjectStatus(body.Status)
	}
	p.CapacityKW = body.CapacityKW
	p.Location = body.Location
	p.Latitude = body.Latitude
	p.Longitude = body.Longitude
	p.StartDate = optionalDate(body.StartDate)
	p.EndDate = optionalDate(body.EndDate)
	if p.StartDate != nil && p.EndDate != nil && p.EndDate.Before(*p.StartDate) {
		return fiber.NewError(fiber.StatusBadRequest, "Bitiş tarihi başlangıçtan önce olamaz")
	}
	return nil
}

func checkCustomer(companyID, customerID uint) error {
	var count int64
	database.DB.Model(&models.Customer{}).
		Where("id = ? AND company_id = ?", customerID, companyID).
		Count(&count)
	if count == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "Müşteri bulunamadı")
	}
	return nil
}

// POST /api/projects
func CreateProjectHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ProjectRequest
		if err := validation.Parse(c, &body); err != nil {
			return err
		}
		companyID, err := auth.ResolveCompanyIDFromBody(c, body.CompanyID)
		if err != nil {
			return err
		}
		if err := checkCustomer(companyID, body.CustomerID); err != nil {
			return err
		}

		p := models.Project{CompanyID: companyID}
		if err := applyProject(&p, body); err != nil {
			return err
		}
		if err := database.DB.Omit("Customer").Create(&p).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Proje oluşturulamadı")
		}
		return c.Status(fiber.StatusCreated).JSON(p)
	}
}

// GET /api/projects?customer_id=3&status=INSTALLING
func ListProjectsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		companyID, err := auth.ResolveCompanyFilter(c)
		if err != nil {
			return err
		}
		dbq := database.DB.Model(&models.Project{})
		if companyID != nil {
			dbq = dbq.Where("company_id = ?", *companyID)
		}
		if cid := c.QueryInt("customer_id"); cid > 0 {
			dbq = dbq.Where("customer_id = ?", cid)
		}
		if status := c.Query("status"); status != "" {
			dbq = dbq.Where("status = ?", status)
		}

		var projects []models.Project
		if err := dbq.Order("id desc").Find(&projects).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Projeler listelenemedi")
		}
		return c.JSON(projects)
	}
}

func loadProject(c *fiber.Ctx) (models.Project, error) {
	var p models.Project
	if err := database.DB.First(&p, "id = ?", c.Params("id")).Error; err != nil {
		return p, fiber.NewError(fiber.StatusNotFound, "Proje bulunamadı")
	}
	return p, auth.CanAccessCompany(c, p.CompanyID)
}

// GET /api/projects/:id
func GetProjectHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := loadProject(c)
		if err != nil {
			return err
		}
		return c.JSON(p)
	}
}

// PUT /api/projects/:id
func UpdateProjectHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := loadProject(c)
		if err != nil {
			return err
		}
		var body ProjectRequest
		if err := validation.Parse(c, &body); err != nil {
			return err
		}
		if body.CustomerID != p.CustomerID {
			if err := checkCustomer(p.CompanyID, body.CustomerID); err != nil {
				return err
			}
		}
		if err := applyProject(&p, body); err != nil {
			return err
		}
		if err := database.DB.Omit("Customer").Save(&p).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Proje güncellenemedi")
		}
		return c.JSON(p)
	}
}

// DELETE /api/projects/:id
func DeleteProjectHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := loadProject(c)
		if err != nil {
			return err
		}
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&models.PhotoRequest{}).Where("project_id = ?", p.ID).Update("project_id", nil).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Quote{}).Where("project_id = ?", p.ID).Update("project_id", nil).Error; err != nil {
				return err
			}
			return tx.Delete(&models.Project{}, p.ID).Error
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Proje silinemedi")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
