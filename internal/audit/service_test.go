package audit

import (
	"testing"
	"time"

	"gunes-backend/internal/models"
	"gunes-backend/internal/testutil"

	"github.com/juju/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var now = time.Date(2026, time.July, 1, 10, 0, 0, 0, time.UTC)

func writeAndGetID(t *testing.T, db *gorm.DB, opts LogOptions) uint {
	t.Helper()
	require.NoError(t, WriteLog(db, opts))
	var entry models.AuditLog
	require.NoError(t, db.Order("id desc").First(&entry).Error)
	return entry.ID
}

func TestUndoProductUpdateAndCreate(t *testing.T) {
	db := testutil.OpenDB(t)
	company := testutil.CreateCompany(t, db, "Anadolu Güneş")
	user := testutil.CreateUser(t, db, models.RoleCompany, &company.ID)

	p := models.Product{
		CompanyID: &company.ID,
		Name:      "Panel 450W",
		Category:  models.CategoryPanel,
		Unit:      "adet",
		UnitPrice: decimal.RequireFromString("3500"),
		IsActive:  true,
	}
	require.NoError(t, db.Create(&p).Error)
	createID := writeAndGetID(t, db, LogOptions{
		CompanyID: &company.ID, UserID: user.ID, EntityType: EntityProduct, EntityID: p.ID,
		Action: models.AuditActionCreate, Description: "Ürün eklendi", After: p,
	})

	before := p
	p.Name = "Panel 450W (indirimli)"
	p.UnitPrice = decimal.RequireFromString("3100")
	require.NoError(t, db.Save(&p).Error)
	updateID := writeAndGetID(t, db, LogOptions{
		CompanyID: &company.ID, UserID: user.ID, EntityType: EntityProduct, EntityID: p.ID,
		Action: models.AuditActionUpdate, Description: "Ürün güncellendi", Before: before, After: p,
	})

	require.NoError(t, UndoLog(db, updateID, user.ID, user.Name, now))
	var restored models.Product
	require.NoError(t, db.First(&restored, p.ID).Error)
	assert.Equal(t, "Panel 450W", restored.Name)
	assert.True(t, decimal.RequireFromString("3500").Equal(restored.UnitPrice))

	err := UndoLog(db, updateID, user.ID, user.Name, now)
	assert.True(t, errors.Is(err, errors.AlreadyExists), "ikinci geri alma reddedilir: %v", err)

	require.NoError(t, UndoLog(db, createID, user.ID, user.Name, now))
	var count int64
	db.Model(&models.Product{}).Where("id = ?", p.ID).Count(&count)
	assert.Zero(t, count)

	var undoLogs int64
	db.Model(&models.AuditLog{}).Where("action = ?", models.AuditActionUndo).Count(&undoLogs)
	assert.Equal(t, int64(2), undoLogs)
}

func TestUndoPackageDeleteRecreatesItems(t *testing.T) {
	db := testutil.OpenDB(t)
	admin := testutil.CreateUser(t, db, models.RoleAdmin, nil)

	panel := models.Product{Name: "Panel", Category: models.CategoryPanel, Unit: "adet", UnitPrice: decimal.NewFromInt(4000), IsActive: true}
	require.NoError(t, db.Create(&panel).Error)
	pkg := models.Package{
		Name:     "5 kW Paket",
		Price:    decimal.NewFromInt(40000),
		IsActive: true,
		Items:    []models.PackageItem{{ProductID: panel.ID, Quantity: decimal.NewFromInt(10)}},
	}
	require.NoError(t, db.Create(&pkg).Error)

	require.NoError(t, db.Where("package_id = ?", pkg.ID).Delete(&models.PackageItem{}).Error)
	require.NoError(t, db.Delete(&models.Package{}, pkg.ID).Error)
	deleteID := writeAndGetID(t, db, LogOptions{
		UserID: admin.ID, EntityType: EntityPackage, EntityID: pkg.ID,
		Action: models.AuditActionDelete, Description: "Paket silindi", Before: pkg,
	})

	require.NoError(t, UndoLog(db, deleteID, admin.ID, admin.Name, now))

	var back models.Package
	require.NoError(t, db.Preload("Items").First(&back, pkg.ID).Error)
	assert.Equal(t, "5 kW Paket", back.Name)
	require.Len(t, back.Items, 1)
	assert.Equal(t, panel.ID, back.Items[0].ProductID)
	assert.True(t, decimal.NewFromInt(10).Equal(back.Items[0].Quantity))
}

func TestUndoUnsupportedEntity(t *testing.T) {
	db := testutil.OpenDB(t)
	admin := testutil.CreateUser(t, db, models.RoleAdmin, nil)
	id := writeAndGetID(t, db, LogOptions{
		UserID: admin.ID, EntityType: EntityCustomer, EntityID: 1,
		Action: models.AuditActionDelete, Description: "Müşteri silindi",
	})
	err := UndoLog(db, id, admin.ID, admin.Name, now)
	assert.True(t, errors.Is(err, errors.NotValid), "%v", err)

	var entry models.AuditLog
	require.NoError(t, db.First(&entry, id).Error)
	assert.False(t, entry.IsUndone)
}
