package customer

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"testing"
	"time"

	"gunes-backend/internal/models"
	"gunes-backend/internal/photo"
	"gunes-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func itoa(id uint) string { return strconv.FormatUint(uint64(id), 10) }

func companyApp(t *testing.T, db *gorm.DB, company models.Company, store photo.Storage) (*fiber.App, models.User) {
	t.Helper()
	owner := testutil.CreateUser(t, db, models.RoleCompany, &company.ID)
	app := testutil.NewApp()
	app.Use(testutil.WithIdentity(owner.ID, models.RoleCompany, &company.ID))
	app.Post("/customers", CreateHandler())
	app.Get("/customers", ListHandler())
	app.Get("/customers/:id", GetHandler())
	app.Put("/customers/:id", UpdateHandler())
	app.Delete("/customers/:id", DeleteHandler(store))
	app.Post("/projects", CreateProjectHandler())
	app.Get("/projects", ListProjectsHandler())
	app.Get("/projects/:id", GetProjectHandler())
	app.Put("/projects/:id", UpdateProjectHandler())
	app.Delete("/projects/:id", DeleteProjectHandler())
	return app, owner
}

func TestCustomerCRUDAndScope(t *testing.T) {
	db := testutil.OpenDB(t)
	store, err := photo.NewLocal(t.TempDir())
	require.NoError(t, err)

	company := testutil.CreateCompany(t, db, "Ege Solar")
	app, _ := companyApp(t, db, company, store)

	status, body := testutil.Do(t, app, http.MethodPost, "/customers", map[string]any{
		"name":          " Mehmet Kaya ",
		"email":         "Mehmet@Example.com",
		"phone":         "0533 444 55 66",
		"city":          "Manisa",
		"customer_type": "FARMER",
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	var cu models.Customer
	testutil.DecodeJSON(t, body, &cu)
	assert.Equal(t, "Mehmet Kaya", cu.Name)
	assert.Equal(t, "mehmet@example.com", cu.Email)
	assert.Equal(t, company.ID, *cu.CompanyID)

	status, _ = testutil.Do(t, app, http.MethodPost, "/customers", map[string]any{"name": "X", "customer_type": "ALIEN"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = testutil.Do(t, app, http.MethodGet, "/customers?q=mehmet", nil)
	require.Equal(t, http.StatusOK, status)
	var list []models.Customer
	testutil.DecodeJSON(t, body, &list)
	assert.Len(t, list, 1)

	status, body = testutil.Do(t, app, http.MethodPut, "/customers/"+itoa(cu.ID), map[string]any{
		"name": "Mehmet Kaya", "city": "Salihli", "customer_type": "FARMER",
	})
	require.Equal(t, http.StatusOK, status, string(body))

	other := testutil.CreateCompany(t, db, "Başka Firma")
	otherApp, _ := companyApp(t, db, other, store)
	status, _ = testutil.Do(t, otherApp, http.MethodGet, "/customers/"+itoa(cu.ID), nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = testutil.Do(t, otherApp, http.MethodDelete, "/customers/"+itoa(cu.ID), nil)
	assert.Equal(t, http.StatusForbidden, status)
	status, body = testutil.Do(t, otherApp, http.MethodGet, "/customers", nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, "[]", string(body))

	// Başka firmanın müşterisine proje açılamaz
	status, _ = testutil.Do(t, otherApp, http.MethodPost, "/projects", map[string]any{"customer_id": cu.ID, "name": "Sera GES"})
	assert.Equal(t, http.StatusBadRequest, status)

	var logs []models.AuditLog
	require.NoError(t, db.Where("entity_type = ?", "customer").Order("id").Find(&logs).Error)
	require.Len(t, logs, 2)
	assert.Equal(t, models.AuditActionUpdate, logs[1].Action)
}

func TestProjectDates(t *testing.T) {
	db := testutil.OpenDB(t)
	store, err := photo.NewLocal(t.TempDir())
	require.NoError(t, err)
	company := testutil.CreateCompany(t, db, "Ege Solar")
	app, _ := companyApp(t, db, company, store)
	cu := testutil.CreateCustomer(t, db, company.ID)

	status, _ := testutil.Do(t, app, http.MethodPost, "/projects", map[string]any{
		"customer_id": cu.ID, "name": "Çatı GES", "start_date": "2026-06-10", "end_date": "2026-06-01",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := testutil.Do(t, app, http.MethodPost, "/projects", map[string]any{
		"customer_id": cu.ID, "name": "Çatı GES", "capacity_kw": 12.5, "start_date": "2026-06-01",
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	var p models.Project
	testutil.DecodeJSON(t, body, &p)
	assert.Equal(t, models.ProjectPlanning, p.Status)
	assert.Equal(t, testutil.Date(2026, time.June, 1), p.StartDate.UTC())
}

func TestDeleteCustomerCascades(t *testing.T) {
	db := testutil.OpenDB(t)
	store, err := photo.NewLocal(t.TempDir())
	require.NoError(t, err)
	company := testutil.CreateCompany(t, db, "Ege Solar")
	app, owner := companyApp(t, db, company, store)
	cu := testutil.CreateCustomer(t, db, company.ID)
	keep := testutil.CreateCustomer(t, db, company.ID)

	project := models.Project{CompanyID: company.ID, CustomerID: cu.ID, Name: "Çatı GES"}
	require.NoError(t, db.Omit("Customer").Create(&project).Error)

	newQuote := func(customerID uint, n string) models.Quote {
		q := models.Quote{
			QuoteNumber: "TKL-20260601-" + n,
			CompanyID:   company.ID,
			CustomerID:  customerID,
			ProjectID:   &project.ID,
			Status:      models.QuoteSent,
			Currency:    "TRY",
			Total:       decimal.NewFromInt(1000),
			ValidUntil:  testutil.Date(2026, time.July, 1),
			PublicToken: "token" + n,
			CreatedBy:   owner.ID,
			Items: []models.QuoteItem{{
				Description: "Panel",
				Quantity:    decimal.NewFromInt(1),
				UnitPrice:   decimal.NewFromInt(1000),
				LineTotal:   decimal.NewFromInt(1000),
			}},
		}
		require.NoError(t, db.Omit("Company", "Customer").Create(&q).Error)
		require.NoError(t, db.Create(&models.QuoteDelivery{QuoteID: q.ID, Channel: "email", Success: true}).Error)
		return q
	}
	newQuote(cu.ID, "A")
	kept := newQuote(keep.ID, "B")

	pr := models.PhotoRequest{
		CompanyID:      company.ID,
		CustomerID:     cu.ID,
		Token:          "phototoken",
		RequestedItems: "roof",
		Status:         models.PhotoPartial,
		ExpiresAt:      testutil.Date(2026, time.July, 1),
	}
	require.NoError(t, db.Create(&pr).Error)
	key := "photo-requests/" + itoa(pr.ID) + "/roof-1.png"
	require.NoError(t, store.Put(context.Background(), key, bytes.NewReader([]byte("png")), 3, "image/png"))
	require.NoError(t, db.Create(&models.PhotoUpload{PhotoRequestID: pr.ID, Item: "roof", ObjectKey: key}).Error)

	status, _ := testutil.Do(t, app, http.MethodDelete, "/customers/"+itoa(cu.ID), nil)
	require.Equal(t, http.StatusNoContent, status)

	count := func(model any, where string, args ...any) int64 {
		var n int64
		require.NoError(t, db.Model(model).Where(where, args...).Count(&n).Error)
		return n
	}
	assert.Zero(t, count(&models.Customer{}, "id = ?", cu.ID))
	assert.Zero(t, count(&models.Project{}, "customer_id = ?", cu.ID))
	assert.EqualValues(t, 1, count(&models.Quote{}, "1 = 1"))
	assert.EqualValues(t, 1, count(&models.QuoteItem{}, "1 = 1"))
	assert.EqualValues(t, 1, count(&models.QuoteDelivery{}, "quote_id = ?", kept.ID))
	assert.Zero(t, count(&models.PhotoRequest{}, "1 = 1"))
	assert.Zero(t, count(&models.PhotoUpload{}, "1 = 1"))
	assert.EqualValues(t, 1, count(&models.AuditLog{}, "entity_type = ? AND action = ?", "customer", models.AuditActionDelete))

	var reloaded models.Quote
	require.NoError(t, db.First(&reloaded, kept.ID).Error)
	assert.Nil(t, reloaded.ProjectID)

	_, err = store.Open(context.Background(), key)
	assert.Error(t, err)
}
