// Package customer firmaların müşteri ve proje kayıtları.
package customer

import (
	"fmt"
	"strings"

	"gunes-backend/internal/audit"
	"gunes-backend/internal/auth"
	"gunes-backend/internal/database"
	"gunes-backend/internal/models"
	"gunes-backend/internal/photo"
	"gunes-backend/internal/quote"
	"gunes-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type CustomerRequest struct {
	CompanyID    *uint  `json:"company_id"`
	Name         string `json:"name" validate:"required,max=150"`
	Email        string `json:"email" validate:"omitempty,email,max=100"`
	Phone        string `json:"phone" validate:"max=30"`
	City         string `json:"city" validate:"max=60"`
	Address      string `json:"address" validate:"max=255"`
	CustomerType string `json:"customer_type" validate:"omitempty,oneof=INDIVIDUAL CORPORATE FARMER"`
}

type CustomerResponse struct {
	models.Customer
	ProjectCount int64 `json:"project_count"`
	QuoteCount   int64 `json:"quote_count"`
}

func applyCustomer(cu *models.Customer, body CustomerRequest) {
	cu.Name = strings.TrimSpace(body.Name)
	cu.Email = strings.ToLower(strings.TrimSpace(body.Email))
	cu.Phone = strings.TrimSpace(body.Phone)
	cu.City = strings.TrimSpace(body.City)
	cu.Address = body.Address
	cu.CustomerType = models.CustomerIndividual
	if body.CustomerType != "" {
		cu.CustomerType = models.CustomerType(body.CustomerType)
	}
}

// loadCustomer firmasız (kendi kaydolmuş) müşterilere sadece admin erişir.
func loadCustomer(c *fiber.Ctx) (models.Customer, error) {
	var cu models.Customer
	if err := database.DB.First(&cu, "id = ?", c.Params("id")).Error; err != nil {
		return cu, fiber.NewError(fiber.StatusNotFound, "Müşteri bulunamadı")
	}
	if cu.CompanyID == nil {
		id, err := auth.CurrentIdentity(c)
		if err != nil {
			return cu, err
		}
		if !id.IsAdmin() {
			return cu, fiber.NewError(fiber.StatusForbidden, "Bu kayda erişim yetkiniz yok")
		}
		return cu, nil
	}
	return cu, auth.CanAccessCompany(c, *cu.CompanyID)
}

// POST /api/customers
func CreateHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CustomerRequest
		if err := validation.Parse(c, &body); err != nil {
			return err
		}
		companyID, err := auth.ResolveCompanyIDFromBody(c, body.CompanyID)
		if err != nil {
			return err
		}

		cu := models.Customer{CompanyID: &companyID}
		applyCustomer(&cu, body)
		if err := database.DB.Create(&cu).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Müşteri oluşturulamadı")
		}

		audit.Record(c, database.DB, audit.LogOptions{
			CompanyID:   cu.CompanyID,
			EntityType:  audit.EntityCustomer,
			EntityID:    cu.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Müşteri eklendi: %s", cu.Name),
			After:       cu,
		})
		return c.Status(fiber.StatusCreated).JSON(cu)
	}
}

// GET /api/customers?q=ayşe&city=İzmir&type=FARMER
func ListHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		companyID, err := auth.ResolveCompanyFilter(c)
		if err != nil {
			return err
		}
		dbq := database.DB.Model(&models.Customer{})
		if companyID != nil {
			dbq = dbq.Where("company_id = ?", *companyID)
		}
		if q := strings.TrimSpace(c.Query("q")); q != "" {
			like := "%" + strings.ToLower(q) + "%"
			dbq = dbq.Where("LOWER(name) LIKE ? OR LOWER(email) LIKE ? OR phone LIKE ?", like, like, like)
		}
		if city := c.Query("city"); city != "" {
			dbq = dbq.Where("city = ?", city)
		}
		if t := c.Query("type"); t != "" {
			dbq = dbq.Where("customer_type = ?", t)
		}

		var customers []models.Customer
		if err := dbq.Order("name asc, id asc").Find(&customers).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Müşteriler listelenemedi")
		}
		return c.JSON(customers)
	}
}

// GET /api/customers/:id
func GetHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		cu, err := loadCustomer(c)
		if err != nil {
			return err
		}
		resp := CustomerResponse{Customer: cu}
		database.DB.Model(&models.Project{}).Where("customer_id = ?", cu.ID).Count(&resp.ProjectCount)
		database.DB.Model(&models.Quote{}).Where("customer_id = ?", cu.ID).Count(&resp.QuoteCount)
		return c.JSON(resp)
	}
}

// PUT /api/customers/:id
func UpdateHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		cu, err := loadCustomer(c)
		if err != nil {
			return err
		}
		var body CustomerRequest
		if err := validation.Parse(c, &body); err != nil {
			return err
		}

		before := cu
		applyCustomer(&cu, body)
		if err := database.DB.Save(&cu).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Müşteri güncellenemedi")
		}

		audit.Record(c, database.DB, audit.LogOptions{
			CompanyID:   cu.CompanyID,
			EntityType:  audit.EntityCustomer,
			EntityID:    cu.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Müşteri güncellendi: %s", cu.Name),
			Before:      before,
			After:       cu,
		})
		return c.JSON(cu)
	}
}

// Delete müşteriyi teklifleri, projeleri ve fotoğraf talepleriyle tek transaction'da siler.
// Depodaki fotoğraflar commit sonrası silinir.
func Delete(tx *gorm.DB, customerID uint) ([]string, error) {
	var keys []string
	err := tx.Transaction(func(tx *gorm.DB) error {
		if err := quote.DeleteForCustomer(tx, customerID); err != nil {
			return err
		}
		var err error
		if keys, err = photo.DeleteForCustomer(tx, customerID); err != nil {
			return err
		}
		projects := tx.Model(&models.Project{}).Select("id").Where("customer_id = ?", customerID)
		if err := tx.Model(&models.Quote{}).Where("project_id IN (?)", projects).Update("project_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Where("customer_id = ?", customerID).Delete(&models.Project{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.ProjectRequest{}).
			Where("customer_id = ?", customerID).
			Update("customer_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Customer{}, customerID).Error
	})
	return keys, err
}

// DELETE /api/customers/:id
func DeleteHandler(store photo.Storage) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cu, err := loadCustomer(c)
		if err != nil {
			return err
		}

		keys, err := Delete(database.DB, cu.ID)
		if err != nil {
			log.Error().Err(err).Uint("customer_id", cu.ID).Msg("müşteri silinemedi")
			return fiber.NewError(fiber.StatusInternalServerError, "Müşteri silinemedi")
		}
		photo.RemoveObjects(c.UserContext(), store, keys)

		audit.Record(c, database.DB, audit.LogOptions{
			CompanyID:   cu.CompanyID,
			EntityType:  audit.EntityCustomer,
			EntityID:    cu.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Müşteri silindi: %s", cu.Name),
			Before:      cu,
		})
		return c.SendStatus(fiber.StatusNoContent)
	}
}
