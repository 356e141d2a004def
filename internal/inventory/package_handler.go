package inventory

import (
	"fmt"
	"strings"

	"gunes-backend/internal/audit"
	"gunes-backend/internal/database"
	"gunes-backend/internal/models"
	"gunes-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PackageItemRequest struct {
	ProductID uint            `json:"product_id" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
}

type PackageRequest struct {
	CompanyID   *uint                `json:"company_id"`
	Name        string               `json:"name" validate:"required,max=150"`
	Description string               `json:"description" validate:"max=5000"`
	Price       *decimal.Decimal     `json:"price"` // boşsa kalemlerin toplamı
	IsActive    *bool                `json:"is_active"`
	Items       []PackageItemRequest `json:"items" validate:"required,min=1,max=50,dive"`
}

type PackageItemResponse struct {
	ProductID   uint            `json:"product_id"`
	ProductName string          `json:"product_name"`
	Category    string          `json:"category"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type PackageResponse struct {
	models.Package
	ItemDetails []PackageItemResponse `json:"item_details"`
}

func toPackageResponse(pkg models.Package) PackageResponse {
	details := make([]PackageItemResponse, 0, len(pkg.Items))
	for _, it := range pkg.Items {
		details = append(details, PackageItemResponse{
			ProductID:   it.ProductID,
			ProductName: it.Product.Name,
			Category:    string(it.Product.Category),
			Quantity:    it.Quantity,
			UnitPrice:   it.Product.UnitPrice,
		})
	}
	return PackageResponse{Package: pkg, ItemDetails: details}
}

// packageTotals kalemlerden toplam gücü (kW) ve liste fiyatını hesaplar.
func packageTotals(items []models.PackageItem, products map[uint]models.Product) (float64, decimal.Decimal) {
	var watts float64
	price := decimal.Zero
	for _, it := range items {
		p := products[it.ProductID]
		watts += p.PowerW * it.Quantity.InexactFloat64()
		price = price.Add(p.UnitPrice.Mul(it.Quantity))
	}
	kw, _ := decimal.NewFromFloat(watts / 1000).Round(2).Float64()
	return kw, price.Round(2)
}

// buildPackageItems ürünlerin paket sahibinin kataloğunda olduğunu doğrular.
func buildPackageItems(owner *uint, reqs []PackageItemRequest) ([]models.PackageItem, map[uint]models.Product, error) {
	ids := make([]uint, 0, len(reqs))
	for i, r := range reqs {
		if !r.Quantity.IsPositive() {
			return nil, nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("items[%d].quantity sıfırdan büyük olmalı", i))
		}
		ids = append(ids, r.ProductID)
	}

	dbq := database.DB.Where("id IN ?", ids)
	if owner != nil {
		dbq = dbq.Where("company_id = ? OR company_id IS NULL", *owner)
	} else {
		dbq = dbq.Where("company_id IS NULL")
	}
	var products []models.Product
	if err := dbq.Find(&products).Error; err != nil {
		return nil, nil, fiber.NewError(fiber.StatusInternalServerError, "Ürünler okunamadı")
	}
	byID := make(map[uint]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	items := make([]models.PackageItem, 0, len(reqs))
	for i, r := range reqs {
		p, ok := byID[r.ProductID]
		if !ok {
			return nil, nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("items[%d]: ürün bulunamadı", i))
		}
		items = append(items, models.PackageItem{ProductID: p.ID, Quantity: r.Quantity})
	}
	return items, byID, nil
}

func applyPackage(pkg *models.Package, body *PackageRequest, items []models.PackageItem, products map[uint]models.Product) error {
	kw, listPrice := packageTotals(items, products)
	pkg.Name = strings.TrimSpace(body.Name)
	pkg.Description = body.Description
	pkg.TotalPowerKW = kw
	pkg.Price = listPrice
	if body.Price != nil {
		if body.Price.IsNegative() {
			return fiber.NewError(fiber.StatusBadRequest, "price negatif olamaz")
		}
		pkg.Price = body.Price.Round(2)
	}
	if body.IsActive != nil {
		pkg.IsActive = *body.IsActive
	}
	return nil
}

func loadPackage(c *fiber.Ctx) (*models.Package, error) {
	var pkg models.Package
	if err := database.DB.Preload("Items.Product").First(&pkg, "id = ?", c.Params("id")).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Paket bulunamadı")
	}
	return &pkg, nil
}

// GET /api/packages?active=true
func ListPackagesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq, err := visibleScope(c, database.DB.Model(&models.Package{}))
		if err != nil {
			return err
		}
		if c.Query("active") != "" {
			dbq = dbq.Where("is_active = ?", c.QueryBool("active"))
		}
		var pkgs []models.Package
		if err := dbq.Preload("Items.Product").Order("total_power_kw asc, id asc").Find(&pkgs).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Paketler listelenemedi")
		}
		resp := make([]PackageResponse, 0, len(pkgs))
		for _, p := range pkgs {
			resp = append(resp, toPackageResponse(p))
		}
		return c.JSON(resp)
	}
}

// GET /api/packages/:id
func GetPackageHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		pkg, err := loadPackage(c)
		if err != nil {
			return err
		}
		if pkg.CompanyID != nil {
			if err := canModify(c, pkg.CompanyID); err != nil {
				return err
			}
		}
		return c.JSON(toPackageResponse(*pkg))
	}
}

// POST /api/packages
func CreatePackageHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body PackageRequest
		if err := validation.Parse(c, &body); err != nil {
			return err
		}
		owner, err := ownerForWrite(c, body.CompanyID)
		if err != nil {
			return err
		}
		items, products, err := buildPackageItems(owner, body.Items)
		if err != nil {
			return err
		}

		pkg := models.Package{CompanyID: owner, IsActive: true}
		if err := applyPackage(&pkg, &body, items, products); err != nil {
			return err
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&pkg).Error; err != nil {
				return err
			}
			if !pkg.IsActive {
				if err := tx.Model(&pkg).Update("is_active", false).Error; err != nil {
					return err
				}
			}
			for i := range items {
				items[i].PackageID = pkg.ID
			}
			return tx.Omit("Product").Create(&items).Error
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Paket oluşturulamadı")
		}
		for i := range items {
			items[i].Product = products[items[i].ProductID]
		}
		pkg.Items = items

		audit.Record(c, database.DB, audit.LogOptions{
			CompanyID:   owner,
			EntityType:  audit.EntityPackage,
			EntityID:    pkg.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Paket eklendi: %s", pkg.Name),
			After:       pkg,
		})
		return c.Status(fiber.StatusCreated).JSON(toPackageResponse(pkg))
	}
}

// PUT /api/packages/:id
// Kalemler tamamen değiştirilir.
func UpdatePackageHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body PackageRequest
		if err := validation.Parse(c, &body); err != nil {
			return err
		}
		pkg, err := loadPackage(c)
		if err != nil {
			return err
		}
		if err := canModify(c, pkg.CompanyID); err != nil {
			return err
		}
		items, products, err := buildPackageItems(pkg.CompanyID, body.Items)
		if err != nil {
			return err
		}

		before := *pkg
		if err := applyPackage(pkg, &body, items, products); err != nil {
			return err
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("package_id = ?", pkg.ID).Delete(&models.PackageItem{}).Error; err != nil {
				return err
			}
			for i := range items {
				items[i].PackageID = pkg.ID
			}
			if err := tx.Omit("Product").Create(&items).Error; err != nil {
				return err
			}
			pkg.Items = nil
			return tx.Save(pkg).Error
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Paket güncellenemedi")
		}
		for i := range items {
			items[i].Product = products[items[i].ProductID]
		}
		pkg.Items = items

		audit.Record(c, database.DB, audit.LogOptions{
			CompanyID:   pkg.CompanyID,
			EntityType:  audit.EntityPackage,
			EntityID:    pkg.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("Paket güncellendi: %s", pkg.Name),
			Before:      before,
			After:       pkg,
		})
		return c.JSON(toPackageResponse(*pkg))
	}
}

// DELETE /api/packages/:id
func DeletePackageHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		pkg, err := loadPackage(c)
		if err != nil {
			return err
		}
		if err := canModify(c, pkg.CompanyID); err != nil {
			return err
		}
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("package_id = ?", pkg.ID).Delete(&models.PackageItem{}).Error; err != nil {
				return err
			}
			return tx.Delete(&models.Package{}, "id = ?", pkg.ID).Error
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Paket silinemedi")
		}

		audit.Record(c, database.DB, audit.LogOptions{
			CompanyID:   pkg.CompanyID,
			EntityType:  audit.EntityPackage,
			EntityID:    pkg.ID,
			Action:      models.AuditActionDelete,
			Description: fmt.Sprintf("Paket silindi: %s", pkg.Name),
			Before:      pkg,
		})
		return c.SendStatus(fiber.StatusNoContent)
	}
}
