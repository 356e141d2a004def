// Package audit ürün, paket, müşteri ve kur değişikliklerinin önce/sonra kaydını tutar
// ve ürün/paket işlemlerini geri almayı sağlar.
package audit

import (
	"encoding/json"
	"fmt"
	"time"

	"gunes-backend/internal/apperr"
	"gunes-backend/internal/auth"
	"gunes-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/juju/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	EntityProduct      = "product"
	EntityPackage      = "package"
	EntityCustomer     = "customer"
	EntityExchangeRate = "exchange_rate"
)

type LogOptions struct {
	CompanyID   *uint
	UserID      uint
	UserName    string
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	Before      any
	After       any
}

// toJSON jsonb kolonu boş string kabul etmez, nil için "null" yazılır.
func toJSON(v any) string {
	if v == nil {
		return "null"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

func WriteLog(db *gorm.DB, opts LogOptions) error {
	entry := models.AuditLog{
		CompanyID:   opts.CompanyID,
		UserID:      opts.UserID,
		UserName:    opts.UserName,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		BeforeData:  toJSON(opts.Before),
		AfterData:   toJSON(opts.After),
	}
	if err := db.Create(&entry).Error; err != nil {
		return errors.Annotate(err, "audit log kaydedilemedi")
	}
	return nil
}

// Record handler içinden çağrılır: kullanıcıyı oturumdan doldurur, hatayı sadece loglar.
func Record(c *fiber.Ctx, db *gorm.DB, opts LogOptions) {
	if user, err := auth.CurrentUser(c); err == nil {
		opts.UserID = user.ID
		opts.UserName = user.Name
	}
	if err := WriteLog(db, opts); err != nil {
		log.Warn().Err(err).Str("entity", opts.EntityType).Uint("entity_id", opts.EntityID).Msg("audit log yazılamadı")
	}
}

// UndoLog kaydı geri alır: create => sil, update => önceki hali, delete => yeniden oluştur.
// Tamamı tek transaction içinde yapılır.
func UndoLog(db *gorm.DB, logID, userID uint, userName string, now time.Time) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var entry models.AuditLog
		if err := tx.First(&entry, "id = ?", logID).Error; err != nil {
			return apperr.NotFound("log bulunamadı")
		}
		if entry.IsUndone {
			return apperr.Conflict("bu işlem zaten geri alınmış")
		}

		var err error
		switch entry.Action {
		case models.AuditActionCreate:
			err = deleteEntity(tx, entry.EntityType, entry.EntityID)
		case models.AuditActionUpdate:
			err = restoreEntity(tx, entry.EntityType, entry.EntityID, entry.BeforeData)
		case models.AuditActionDelete:
			err = recreateEntity(tx, entry.EntityType, entry.BeforeData)
		default:
			err = apperr.Invalid("bu işlem türü geri alınamaz")
		}
		if err != nil {
			return err
		}

		res := tx.Model(&models.AuditLog{}).
			Where("id = ? AND is_undone = ?", entry.ID, false).
			Updates(map[string]interface{}{"is_undone": true, "undone_by": userID, "undone_at": now})
		if res.Error != nil {
			return errors.Annotate(res.Error, "log güncellenemedi")
		}
		if res.RowsAffected == 0 {
			return apperr.Conflict("bu işlem zaten geri alınmış")
		}

		return WriteLog(tx, LogOptions{
			CompanyID:   entry.CompanyID,
			UserID:      userID,
			UserName:    userName,
			EntityType:  entry.EntityType,
			EntityID:    entry.EntityID,
			Action:      models.AuditActionUndo,
			Description: fmt.Sprintf("Geri alındı: %s", entry.Description),
		})
	})
}

func unsupported(entityType string) error {
	return apperr.Invalid("%s kayıtları geri alınamaz", entityType)
}

func deleteEntity(tx *gorm.DB, entityType string, id uint) error {
	switch entityType {
	case EntityProduct:
		return errors.Trace(tx.Delete(&models.Product{}, "id = ?", id).Error)
	case EntityPackage:
		if err := tx.Where("package_id = ?", id).Delete(&models.PackageItem{}).Error; err != nil {
			return errors.Trace(err)
		}
		return errors.Trace(tx.Delete(&models.Package{}, "id = ?", id).Error)
	}
	return unsupported(entityType)
}

func recreateEntity(tx *gorm.DB, entityType, data string) error {
	switch entityType {
	case EntityProduct:
		var p models.Product
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return errors.Annotate(err, "ürün verisi okunamadı")
		}
		// Aynı id ile geri oluşturulur
		return errors.Trace(tx.Create(&p).Error)
	case EntityPackage:
		var pkg models.Package
		if err := json.Unmarshal([]byte(data), &pkg); err != nil {
			return errors.Annotate(err, "paket verisi okunamadı")
		}
		items := pkg.Items
		pkg.Items = nil
		if err := tx.Create(&pkg).Error; err != nil {
			return errors.Trace(err)
		}
		return createItems(tx, pkg.ID, items)
	}
	return unsupported(entityType)
}

func restoreEntity(tx *gorm.DB, entityType string, id uint, data string) error {
	switch entityType {
	case EntityProduct:
		var p models.Product
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return errors.Annotate(err, "ürün verisi okunamadı")
		}
		return errors.Trace(tx.Model(&models.Product{}).Where("id = ?", id).Updates(map[string]interface{}{
			"name":       p.Name,
			"brand":      p.Brand,
			"model":      p.Model,
			"category":   p.Category,
			"unit":       p.Unit,
			"unit_price": p.UnitPrice,
			"currency":   p.Currency,
			"power_w":    p.PowerW,
			"stock":      p.Stock,
			"is_active":  p.IsActive,
		}).Error)
	case EntityPackage:
		var pkg models.Package
		if err := json.Unmarshal([]byte(data), &pkg); err != nil {
			return errors.Annotate(err, "paket verisi okunamadı")
		}
		if err := tx.Model(&models.Package{}).Where("id = ?", id).Updates(map[string]interface{}{
			"name":           pkg.Name,
			"description":    pkg.Description,
			"total_power_kw": pkg.TotalPowerKW,
			"price":          pkg.Price,
			"is_active":      pkg.IsActive,
		}).Error; err != nil {
			return errors.Trace(err)
		}
		if err := tx.Where("package_id = ?", id).Delete(&models.PackageItem{}).Error; err != nil {
			return errors.Trace(err)
		}
		return createItems(tx, id, pkg.Items)
	}
	return unsupported(entityType)
}

func createItems(tx *gorm.DB, packageID uint, src []models.PackageItem) error {
	if len(src) == 0 {
		return nil
	}
	items := make([]models.PackageItem, 0, len(src))
	for _, it := range src {
		items = append(items, models.PackageItem{PackageID: packageID, ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return errors.Trace(tx.Omit("Product").Create(&items).Error)
}
