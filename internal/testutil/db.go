// Package testutil paket testlerinde ortak kullanılan veritabanı ve fiber yardımcıları.
package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"gunes-backend/internal/apperr"
	"gunes-backend/internal/auth"
	"gunes-backend/internal/database"
	"gunes-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenDB her test için ayrı bir in-memory SQLite açar, migration'ları çalıştırır
// ve global database.DB'yi test süresince bununla değiştirir.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))

	prev := database.DB
	database.DB = db
	t.Cleanup(func() {
		database.DB = prev
		_ = sqlDB.Close()
	})
	return db
}

// Date UTC gün başı.
func Date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func CreateCompany(t *testing.T, db *gorm.DB, name string) models.Company {
	t.Helper()
	c := models.Company{Name: name, TaxNumber: uuid.NewString()[:10], City: "İzmir"}
	require.NoError(t, db.Create(&c).Error)
	return c
}

func CreateUser(t *testing.T, db *gorm.DB, role models.UserRole, companyID *uint) models.User {
	t.Helper()
	u := models.User{
		Name:         string(role) + " kullanıcı",
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "x",
		Role:         role,
		CompanyID:    companyID,
		IsActive:     true,
	}
	require.NoError(t, db.Create(&u).Error)
	return u
}

func CreateCustomer(t *testing.T, db *gorm.DB, companyID uint) models.Customer {
	t.Helper()
	c := models.Customer{
		CompanyID:    &companyID,
		Name:         "Ayşe Yılmaz",
		Email:        "ayse@example.com",
		Phone:        "0532 111 22 33",
		City:         "İzmir",
		CustomerType: models.CustomerIndividual,
	}
	require.NoError(t, db.Create(&c).Error)
	return c
}

// WithIdentity JWT middleware'inin yaptığı gibi Locals'a kimlik yazan test middleware'i.
func WithIdentity(userID uint, role models.UserRole, companyID *uint) fiber.Handler {
	return func(c *fiber.Ctx) error {
		auth.SetIdentity(c, auth.Identity{UserID: userID, Role: role, CompanyID: companyID})
		return c.Next()
	}
}

// NewApp üretimdeki ErrorHandler ile aynı davranışa sahip fiber uygulaması.
func NewApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: apperr.Handler})
}

// Do JSON gövdeli istek atar, cevap durum kodunu ve gövdesini döndürür.
func Do(t *testing.T, app *fiber.App, method, path string, body any) (int, []byte) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

// DecodeJSON cevap gövdesini out'a çözer.
func DecodeJSON(t *testing.T, data []byte, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(data, out), string(data))
}
