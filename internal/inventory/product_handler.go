// Package inventory firma ve platform ürün kataloğunu ve hazır sistem paketlerini yönetir.
package inventory

import (
	"errors"
	"fmt"
	"strings"

	"gunes-backend/internal/audit"
	"gunes-backend/internal/auth"
	"gunes-backend/internal/database"
	"gunes-backend/internal/models"
	"gunes-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ProductRequest struct {
	CompanyID *uint           `json:"company_id"` // sadece admin; boşsa platform kataloğu
	Name      string          `json:"name" validate:"required,max=150"`
	Brand     string          `json:"brand" validate:"max=100"`
	Model     string          `json:"model" validate:"max=100"`
	Category  string          `json:"category" validate:"required,oneof=PANEL INVERTER BATTERY MOUNTING CABLE OTHER"`
	Unit      string          `json:"unit" validate:"max=20"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Currency  string          `json:"currency" validate:"omitempty,oneof=TRY USD EUR"`
	PowerW    float64         `json:"power_w" validate:"gte=0"`
	Stock     int             `json:"stock" validate:"gte=0"`
	IsActive  *bool           `json:"is_active"`
}

// ownerForWrite kaydın sahibi firma: firma kullanıcısı için token'daki firma,
// admin için gövdedeki company_id (nil: platform).
func ownerForWrite(c *fiber.Ctx, bodyCompanyID *uint) (*uint, error) {
	id, err := auth.CurrentIdentity(c)
	if err != nil {
		return nil, err
	}
	if id.IsAdmin() {
		return bodyCompanyID, nil
	}
	if id.CompanyID == nil {
		return nil, fiber.NewError(fiber.StatusForbidden, "Firma bilgisi bulunamadı")
	}
	return id.CompanyID, nil
}

// canModify platform kayıtlarını sadece admin değiştirebilir.
func canModify(c *fiber.Ctx, owner *uint) error {
	if owner == nil {
		id, err := auth.CurrentIdentity(c)
		if err != nil {
			return err
		}
		if !id.IsAdmin() {
			return fiber.NewError(fiber.StatusForbidden, "Platform kataloğu sadece admin tarafından değiştirilebilir")
		}
		return nil
	}
	return auth.CanAccessCompany(c, *owner)
}

// visibleScope firma kullanıcısı kendi kayıtlarını ve platform kataloğunu görür.
func visibleScope(c *fiber.Ctx, dbq *gorm.DB) (*gorm.DB, error) {
	companyID, err := auth.ResolveCompanyFilter(c)
	if err != nil {
		return nil, err
	}
	if companyID == nil {
		return dbq, nil
	}
	return dbq.Where("company_id = ? OR company_id IS NULL", *companyID), nil
}

func companyOf(owner *uint) string {
	if owner == nil {
		return "platform"
	}
	return fmt.Sprintf("firma %d", *owner)
}

func applyProduct(p *models.Product, body *ProductRequest) error {
	if body.UnitPrice.IsNegative() {
		return fiber.NewError(fiber.StatusBadRequest, "unit_price negatif olamaz")
	}
	p.Name = strings.TrimSpace(body.Name)
	p.Brand = strings.TrimSpace(body.Brand)
	p.Model = strings.TrimSpace(body.Model)
	p.Category = models.ProductCategory(body.Category)
	p.Unit = strings.TrimSpace(body.Unit)
	if p.Unit == "" {
		p.Unit = "adet"
	}
	p.UnitPrice = body.UnitPrice.Round(2)
	p.Currency = body.Currency
	if p.Currency == "" {
		p.Currency = "TRY"
	}
	p.PowerW = body.PowerW
	p.Stock = body.Stock
	if body.IsActive != nil {
		p.IsActive = *body.IsActive
	}
	return nil
}

// GET /api/products?category=PANEL&active=true&q=mono
func ListProductsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq, err := visibleScope(c, database.DB.Model(&models.Product{}))
		if err != nil {
			return err
		}
		if category := c.Query("category"); category != "" {
			dbq = dbq.Where("category = ?", category)
		}
		if c.Query("active") != "" {
			dbq = dbq.Where("is_active = ?", c.QueryBool("active"))
		}
		if q := strings.TrimSpace(c.Query("q")); q != "" {
			like := "%" + strings.ToLower(q) + "%"
			dbq = dbq.Where("LOWER(name) LIKE ? OR LOWER(brand) LIKE ? OR LOWER(model) LIKE ?", like, like, like)
		}

		var products []models.Product
		if err := dbq.Order("category asc, name asc").Find(&products).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Ürünler listelenemedi")
		}
		return c.JSON(products)
	}
}

// POST /api/products
func CreateProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ProductRequest
		if err := validation.Parse(c, &body); err != nil {
			return err
		}
		owner, err := ownerForWrite(c, body.CompanyID)
		if err != nil {
			return err
		}

		p := models.Product{CompanyID: owner, IsActive: true}
		if err := applyProduct(&p, &body); err != nil {
			return err
		}
		if err := database.DB.Create(&p).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Ürün oluşturulamadı")
		}
		if !p.IsActive {
			database.DB.Model(&p).Update("is_active", false)
		}

		audit.Record(c, database.DB, audit.LogOptions{
			CompanyID:   owner,
			EntityType:  audit.EntityProduct,
			EntityID:    p.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Ürün eklendi: %s (%s)", p.Name, companyOf(owner)),
			After:       p,
		})
		return c.Status(fiber.StatusCreated).JSON(p)
	}
}

func loadProduct(c *fiber.Ctx) (*models.Product, error) {
	var p models.Product
	if err := database.DB.First(&p, "id = ?", c.Params("id")).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Ürün bulunamadı")
	}
	if err := canModify(c, p.CompanyID); err != nil {
		return nil, err
	}
	return &p, nil
}

// PUT /api/products/:id
func UpdateProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ProductRequest
		if err := validation.Parse(c, &body); err != nil {
			return err
		}
		p, err := loadProduct(c)
		if err != nil {
			return err
		}
		before := *p
		if err := applyProduct(p, &body); err != nil {
			return err
		}
		if err := database.DB.Save(p).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Ürün güncellenemedi")
		}

		audit.Record(c, database.DB, audit.LogOptions{
			CompanyID:   p.CompanyID,
			EntityType:  audit.EntityProduct,
			EntityID:    p.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Ürün güncellendi: %s", p.Name),
			Before:      before,
			After:       p,
		})
		return c.JSON(p)
	}
}

// DELETE /api/products/:id
// Pakette kullanılan ürün silinemez.
func DeleteProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := loadProduct(c)
		if err != nil {
			return err
		}
		var used int64
		database.DB.Model(&models.PackageItem{}).Where("product_id = ?", p.ID).Count(&used)
		if used > 0 {
			return fiber.NewError(fiber.StatusConflict, "Ürün bir pakette kullanılıyor")
		}

		if err := database.DB.Delete(&models.Product{}, "id = ?", p.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrForeignKeyViolated) {
				return fiber.NewError(fiber.StatusConflict, "Ürün başka kayıtlarda kullanılıyor")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Ürün silinemedi")
		}

		audit.Record(c, database.DB, audit.LogOptions{
			CompanyID:   p.CompanyID,
			EntityType:  audit.EntityProduct,
			EntityID:    p.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Ürün silindi: %s", p.Name),
			Before:      p,
		})
		return c.SendStatus(fiber.StatusNoContent)
	}
}
