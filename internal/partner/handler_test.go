package partner

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"gunes-backend/internal/models"
	"gunes-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/juju/clock/testclock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func createPartner(t *testing.T, db *gorm.DB, name string, rating float64) (models.Partner, models.User) {
	t.Helper()
	company := testutil.CreateCompany(t, db, name)
	user := testutil.CreateUser(t, db, models.RoleCompany, &company.ID)
	p := models.Partner{
		CompanyID:      company.ID,
		Cities:         "Konya,Karaman",
		ServiceTypes:   "AGRICULTURAL,RESIDENTIAL",
		CommissionRate: decimal.RequireFromString("5"),
		IsActive:       true,
		IsVerified:     true,
		Rating:         rating,
	}
	require.NoError(t, db.Omit("Company").Create(&p).Error)
	return p, user
}

func partnerApp(clk *testclock.Clock, u models.User) *fiber.App {
	app := testutil.NewApp()
	app.Use(testutil.WithIdentity(u.ID, models.RoleCompany, u.CompanyID))
	app.Get("/leads", ListLeadsHandler())
	app.Put("/leads/:id/accept", AcceptLeadHandler())
	app.Put("/leads/:id/decline", DeclineLeadHandler(clk))
	app.Put("/leads/:id/complete", CompleteLeadHandler())
	app.Get("/commissions", ListCommissionsHandler())
	return app
}

func TestLeadRoutingFlow(t *testing.T) {
	db := testutil.OpenDB(t)
	clk := testclock.NewClock(time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC))

	best, bestUser := createPartner(t, db, "Konya Solar", 4.9)
	second, secondUser := createPartner(t, db, "Ova Enerji", 4.2)

	public := testutil.NewApp()
	public.Post("/partner-requests", CreateLeadHandler(clk))
	public.Post("/partners/:id/reviews", CreateReviewHandler())

	status, body := testutil.Do(t, public, http.MethodPost, "/partner-requests", map[string]any{
		"customer_name": "Mehmet Kaya",
		"phone":         "05551234567",
		"city":          "konya",
		"service_type":  "AGRICULTURAL",
		"estimated_kw":  120,
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	var created struct {
		ID          uint              `json:"id"`
		Status      models.LeadStatus `json:"status"`
		PartnerName string            `json:"partner_name"`
	}
	testutil.DecodeJSON(t, body, &created)
	assert.Equal(t, models.LeadAssigned, created.Status)
	assert.Equal(t, "Konya Solar", created.PartnerName)

	var notes int64
	db.Model(&models.Notification{}).Where("user_id = ? AND type = ?", bestUser.ID, "LEAD_ASSIGNED").Count(&notes)
	assert.Equal(t, int64(1), notes)

	// İlk ortak reddeder, ikinciye düşer
	bestApp := partnerApp(clk, bestUser)
	status, body = testutil.Do(t, bestApp, http.MethodPut, fmt.Sprintf("/leads/%d/decline", created.ID), nil)
	require.Equal(t, http.StatusOK, status, string(body))

	var lead models.PartnerQuoteRequest
	require.NoError(t, db.First(&lead, created.ID).Error)
	require.NotNil(t, lead.PartnerID)
	assert.Equal(t, second.ID, *lead.PartnerID)
	assert.Equal(t, models.LeadAssigned, lead.Status)
	assert.True(t, DeclinedSet(lead)[best.ID])

	status, _ = testutil.Do(t, bestApp, http.MethodPut, fmt.Sprintf("/leads/%d/accept", created.ID), nil)
	assert.Equal(t, http.StatusNotFound, status, "artık ilk ortağın talebi değil")

	secondApp := partnerApp(clk, secondUser)
	status, _ = testutil.Do(t, secondApp, http.MethodPut, fmt.Sprintf("/leads/%d/complete", created.ID),
		map[string]any{"contract_amount": "400000"})
	assert.Equal(t, http.StatusConflict, status, "kabul edilmeden tamamlanamaz")

	status, _ = testutil.Do(t, secondApp, http.MethodPut, fmt.Sprintf("/leads/%d/accept", created.ID), nil)
	require.Equal(t, http.StatusOK, status)

	status, body = testutil.Do(t, secondApp, http.MethodPut, fmt.Sprintf("/leads/%d/complete", created.ID),
		map[string]any{"contract_amount": "400000"})
	require.Equal(t, http.StatusOK, status, string(body))
	var cm models.Commission
	testutil.DecodeJSON(t, body, &cm)
	assert.True(t, decimal.RequireFromString("20000").Equal(cm.Amount), cm.Amount.String())
	assert.Equal(t, models.CommissionPending, cm.Status)

	status, body = testutil.Do(t, secondApp, http.MethodGet, "/commissions", nil)
	require.Equal(t, http.StatusOK, status)
	var list []models.Commission
	testutil.DecodeJSON(t, body, &list)
	assert.Len(t, list, 1)

	status, body = testutil.Do(t, public, http.MethodPost, fmt.Sprintf("/partners/%d/reviews", second.ID), map[string]any{
		"quote_request_id": created.ID,
		"customer_name":    "Mehmet Kaya",
		"rating":           3,
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	status, _ = testutil.Do(t, public, http.MethodPost, fmt.Sprintf("/partners/%d/reviews", second.ID), map[string]any{
		"customer_name": "Fatma Demir",
		"rating":        4,
	})
	require.Equal(t, http.StatusCreated, status)

	var stored models.Partner
	require.NoError(t, db.First(&stored, second.ID).Error)
	assert.Equal(t, 3.5, stored.Rating)
	assert.Equal(t, 2, stored.ReviewCount)
}

func TestLeadWithoutEligiblePartnerStaysPending(t *testing.T) {
	db := testutil.OpenDB(t)
	clk := testclock.NewClock(time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC))
	createPartner(t, db, "Konya Solar", 4.9)

	public := testutil.NewApp()
	public.Post("/partner-requests", CreateLeadHandler(clk))

	status, body := testutil.Do(t, public, http.MethodPost, "/partner-requests", map[string]any{
		"customer_name": "Ali Veli",
		"phone":         "05551234567",
		"city":          "Trabzon",
		"service_type":  "RESIDENTIAL",
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	var created struct {
		ID     uint              `json:"id"`
		Status models.LeadStatus `json:"status"`
	}
	testutil.DecodeJSON(t, body, &created)
	assert.Equal(t, models.LeadPending, created.Status)

	var lead models.PartnerQuoteRequest
	require.NoError(t, db.First(&lead, created.ID).Error)
	assert.Nil(t, lead.PartnerID)

	status, _ = testutil.Do(t, public, http.MethodPost, "/partner-requests", map[string]any{
		"customer_name": "Ali Veli",
		"phone":         "05551234567",
		"city":          "Trabzon",
		"service_type":  "TELEPORT",
	})
	assert.Equal(t, http.StatusBadRequest, status)
}
