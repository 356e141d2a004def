package quote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"gunes-backend/internal/delivery"
	"gunes-backend/internal/models"
	"gunes-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

type fakeChannel struct {
	name string
	err  error
	sent *[]delivery.Message
}

func (f fakeChannel) Name() string { return f.name }

func (f fakeChannel) Send(_ context.Context, msg delivery.Message) error {
	if f.sent != nil {
		*f.sent = append(*f.sent, msg)
	}
	return f.err
}

type fixture struct {
	db       *gorm.DB
	clk      *testclock.Clock
	company  models.Company
	owner    models.User
	customer models.Customer
	app      *fiber.App
	public   *fiber.App
	sent     []delivery.Message
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{db: testutil.OpenDB(t)}
	f.clk = testclock.NewClock(time.Date(2026, time.May, 4, 10, 0, 0, 0, time.UTC))
	f.company = testutil.CreateCompany(t, f.db, "Anadolu Güneş")
	f.owner = testutil.CreateUser(t, f.db, models.RoleCompany, &f.company.ID)
	f.customer = testutil.CreateCustomer(t, f.db, f.company.ID)

	registry := delivery.NewRegistry(
		fakeChannel{name: "email", sent: &f.sent},
		fakeChannel{name: "sms", err: errors.New("gateway kapalı")},
		fakeChannel{name: "whatsapp", err: errors.New("token geçersiz")},
	)

	f.app = testutil.NewApp()
	f.app.Use(testutil.WithIdentity(f.owner.ID, models.RoleCompany, &f.company.ID))
	f.app.Post("/quotes", CreateHandler(f.clk))
	f.app.Get("/quotes", ListHandler(f.clk))
	f.app.Get("/quotes/export", ExportHandler(f.clk))
	f.app.Get("/quotes/analytics", AnalyticsHandler(f.clk))
	f.app.Get("/quotes/:id", GetHandler(f.clk))
	f.app.Put("/quotes/:id", UpdateHandler(f.clk))
	f.app.Delete("/quotes/:id", DeleteHandler())
	f.app.Post("/quotes/:id/send", SendHandler(registry, "https://gunes.example.com", f.clk))
	f.app.Get("/quotes/:id/pdf", PDFHandler(f.clk))

	f.public = testutil.NewApp()
	f.public.Get("/public/quotes/:token", PublicViewHandler(f.clk))
	f.public.Post("/public/quotes/:token/respond", PublicRespondHandler(f.clk))
	return f
}

func (f *fixture) createQuote(t *testing.T) QuoteResponse {
	t.Helper()
	panel := models.Product{
		CompanyID: &f.company.ID,
		Name:      "Monokristal Panel 550W",
		Category:  models.CategoryPanel,
		Unit:      "adet",
		UnitPrice: d("4250.00"),
		PowerW:    550,
		IsActive:  true,
	}
	require.NoError(t, f.db.Create(&panel).Error)

	status, body := testutil.Do(t, f.app, http.MethodPost, "/quotes", map[string]any{
		"customer_id":   f.customer.ID,
		"discount_rate": "5",
		"notes":         "Montaj dahildir.",
		"items": []map[string]any{
			{"product_id": panel.ID, "quantity": "18"},
			{"description": "Kurulum ve işçilik", "quantity": "1", "unit": "iş", "unit_price": "12000"},
		},
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	var q QuoteResponse
	testutil.DecodeJSON(t, body, &q)
	return q
}

func TestCreateQuoteCalculatesTotals(t *testing.T) {
	f := newFixture(t)
	q := f.createQuote(t)

	assert.Equal(t, models.QuoteDraft, q.Status)
	assert.Regexp(t, `^TKL-20260504-[0-9A-F]{6}$`, q.QuoteNumber)
	assert.Len(t, q.PublicToken, 32)
	require.Len(t, q.Items, 2)
	assert.Equal(t, "Monokristal Panel 550W", q.Items[0].Description)
	assert.True(t, d("76500").Equal(q.Items[0].LineTotal))

	// 88500 - %5 = 84075; KDV %20 = 16815
	assert.True(t, d("88500").Equal(q.Subtotal), q.Subtotal.String())
	assert.True(t, d("4425").Equal(q.DiscountAmount))
	assert.True(t, d("16815").Equal(q.TaxAmount))
	assert.True(t, d("100890").Equal(q.Total), q.Total.String())
	assert.True(t, q.ValidUntil.Equal(f.clk.Now().AddDate(0, 0, 30)))
}

func TestCreateQuoteValidation(t *testing.T) {
	f := newFixture(t)

	status, _ := testutil.Do(t, f.app, http.MethodPost, "/quotes", map[string]any{
		"customer_id": f.customer.ID,
	})
	assert.Equal(t, http.StatusBadRequest, status, "kalemsiz teklif")

	status, _ = testutil.Do(t, f.app, http.MethodPost, "/quotes", map[string]any{
		"customer_id": f.customer.ID,
		"items":       []map[string]any{{"description": "Kablo", "quantity": "10"}},
	})
	assert.Equal(t, http.StatusBadRequest, status, "fiyatsız serbest kalem")

	other := testutil.CreateCompany(t, f.db, "Rakip Enerji")
	foreign := testutil.CreateCustomer(t, f.db, other.ID)
	status, _ = testutil.Do(t, f.app, http.MethodPost, "/quotes", map[string]any{
		"customer_id": foreign.ID,
		"items":       []map[string]any{{"description": "Kablo", "quantity": "10", "unit_price": "5"}},
	})
	assert.Equal(t, http.StatusBadRequest, status, "başka firmanın müşterisi")
}

func TestSendAndRespondFlow(t *testing.T) {
	f := newFixture(t)
	q := f.createQuote(t)
	path := fmt.Sprintf("/quotes/%d", q.ID)

	status, body := testutil.Do(t, f.app, http.MethodPut, path, map[string]any{
		"customer_id": f.customer.ID,
		"items":       []map[string]any{{"description": "Hibrit sistem", "quantity": "1", "unit_price": "50000"}},
	})
	require.Equal(t, http.StatusOK, status, string(body))
	var updated QuoteResponse
	testutil.DecodeJSON(t, body, &updated)
	assert.True(t, d("60000").Equal(updated.Total), updated.Total.String())

	// Taslak link üzerinden görünmez
	status, _ = testutil.Do(t, f.public, http.MethodGet, "/public/quotes/"+q.PublicToken, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = testutil.Do(t, f.app, http.MethodPost, path+"/send", map[string]any{
		"channels": []string{"email", "sms"},
	})
	require.Equal(t, http.StatusOK, status, string(body))
	var sent SendResponse
	testutil.DecodeJSON(t, body, &sent)
	assert.True(t, sent.Report.Success)
	require.Len(t, sent.Report.Results, 2)
	assert.Equal(t, "email", sent.Report.Results[0].Channel)
	assert.True(t, sent.Report.Results[0].Success)
	assert.False(t, sent.Report.Results[1].Success)
	assert.Equal(t, models.QuoteSent, sent.Quote.Status)

	require.Len(t, f.sent, 1)
	assert.Contains(t, f.sent[0].Text, "https://gunes.example.com/teklif/"+q.PublicToken)
	assert.Equal(t, "ayse@example.com", f.sent[0].To.Email)

	var deliveries int64
	f.db.Model(&models.QuoteDelivery{}).Where("quote_id = ?", q.ID).Count(&deliveries)
	assert.Equal(t, int64(2), deliveries)

	status, _ = testutil.Do(t, f.app, http.MethodPut, path, map[string]any{
		"customer_id": f.customer.ID,
		"items":       []map[string]any{{"description": "X", "quantity": "1", "unit_price": "1"}},
	})
	assert.Equal(t, http.StatusConflict, status, "gönderilmiş teklif düzenlenemez")

	status, body = testutil.Do(t, f.public, http.MethodGet, "/public/quotes/"+q.PublicToken, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	var pub PublicResponse
	testutil.DecodeJSON(t, body, &pub)
	assert.Equal(t, models.QuoteViewed, pub.Status)
	assert.Equal(t, "Anadolu Güneş", pub.CompanyName)
	assert.True(t, pub.CanRespond)

	status, body = testutil.Do(t, f.public, http.MethodPost, "/public/quotes/"+q.PublicToken+"/respond", map[string]any{
		"decision": "ACCEPTED",
	})
	require.Equal(t, http.StatusOK, status, string(body))

	status, _ = testutil.Do(t, f.public, http.MethodPost, "/public/quotes/"+q.PublicToken+"/respond", map[string]any{
		"decision": "REJECTED",
	})
	assert.Equal(t, http.StatusConflict, status)

	var stored models.Quote
	require.NoError(t, f.db.First(&stored, q.ID).Error)
	assert.Equal(t, models.QuoteAccepted, stored.Status)
	require.NotNil(t, stored.RespondedAt)

	var types []string
	f.db.Model(&models.Notification{}).Where("user_id = ?", f.owner.ID).Order("id").Pluck("type", &types)
	assert.Equal(t, []string{"QUOTE_VIEWED", "QUOTE_RESPONDED"}, types)

	status, _ = testutil.Do(t, f.app, http.MethodPost, path+"/send", map[string]any{"channels": []string{"email"}})
	assert.Equal(t, http.StatusConflict, status, "yanıtlanmış teklif tekrar gönderilemez")

	status, _ = testutil.Do(t, f.app, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusConflict, status)
}

func TestSendAllChannelsFailKeepsDraft(t *testing.T) {
	f := newFixture(t)
	q := f.createQuote(t)

	status, body := testutil.Do(t, f.app, http.MethodPost, fmt.Sprintf("/quotes/%d/send", q.ID), map[string]any{
		"channels": []string{"sms", "whatsapp"},
	})
	require.Equal(t, http.StatusOK, status, string(body))
	var resp SendResponse
	testutil.DecodeJSON(t, body, &resp)
	assert.False(t, resp.Report.Success)
	assert.Equal(t, models.QuoteDraft, resp.Quote.Status)

	var failed int64
	f.db.Model(&models.QuoteDelivery{}).Where("quote_id = ? AND success = ?", q.ID, false).Count(&failed)
	assert.Equal(t, int64(2), failed)

	status, _ = testutil.Do(t, f.app, http.MethodPost, fmt.Sprintf("/quotes/%d/send", q.ID), map[string]any{
		"channels": []string{"fax"},
	})
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestExpiredQuoteCannotBeAnswered(t *testing.T) {
	f := newFixture(t)
	q := f.createQuote(t)

	status, _ := testutil.Do(t, f.app, http.MethodPost, fmt.Sprintf("/quotes/%d/send", q.ID), map[string]any{
		"channels": []string{"email"},
	})
	require.Equal(t, http.StatusOK, status)

	f.clk.Advance(31 * 24 * time.Hour)

	status, _ = testutil.Do(t, f.public, http.MethodPost, "/public/quotes/"+q.PublicToken+"/respond", map[string]any{
		"decision": "ACCEPTED",
	})
	assert.Equal(t, http.StatusGone, status)

	status, body := testutil.Do(t, f.app, http.MethodGet, fmt.Sprintf("/quotes/%d", q.ID), nil)
	require.Equal(t, http.StatusOK, status)
	var got struct {
		Quote QuoteResponse `json:"quote"`
	}
	testutil.DecodeJSON(t, body, &got)
	assert.Equal(t, models.QuoteExpired, got.Quote.Status)
}

func TestQuoteTenantIsolation(t *testing.T) {
	f := newFixture(t)
	q := f.createQuote(t)

	other := testutil.CreateCompany(t, f.db, "Rakip Enerji")
	rival := testutil.CreateUser(t, f.db, models.RoleCompany, &other.ID)
	app := testutil.NewApp()
	app.Use(testutil.WithIdentity(rival.ID, models.RoleCompany, &other.ID))
	app.Get("/quotes", ListHandler(f.clk))
	app.Get("/quotes/:id", GetHandler(f.clk))

	status, _ := testutil.Do(t, app, http.MethodGet, fmt.Sprintf("/quotes/%d", q.ID), nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body := testutil.Do(t, app, http.MethodGet, "/quotes", nil)
	require.Equal(t, http.StatusOK, status)
	var list []QuoteResponse
	testutil.DecodeJSON(t, body, &list)
	assert.Empty(t, list)

	// başka firmanın projesi teklife bağlanamaz
	rivalCustomer := testutil.CreateCustomer(t, f.db, other.ID)
	rivalProject := models.Project{CompanyID: other.ID, CustomerID: rivalCustomer.ID, Name: "Rakip GES"}
	require.NoError(t, f.db.Omit("Customer").Create(&rivalProject).Error)
	ownProject := models.Project{CompanyID: f.company.ID, CustomerID: f.customer.ID, Name: "Çatı GES"}
	require.NoError(t, f.db.Omit("Customer").Create(&ownProject).Error)

	newQuote := func(projectID uint) map[string]any {
		return map[string]any{
			"customer_id": f.customer.ID,
			"project_id":  projectID,
			"items": []map[string]any{
				{"description": "Kurulum", "quantity": "1", "unit_price": "1000"},
			},
		}
	}
	status, body = testutil.Do(t, f.app, http.MethodPost, "/quotes", newQuote(rivalProject.ID))
	assert.Equal(t, http.StatusBadRequest, status, string(body))

	status, body = testutil.Do(t, f.app, http.MethodPut, fmt.Sprintf("/quotes/%d", q.ID), newQuote(rivalProject.ID))
	assert.Equal(t, http.StatusBadRequest, status, string(body))

	status, body = testutil.Do(t, f.app, http.MethodPost, "/quotes", newQuote(ownProject.ID))
	require.Equal(t, http.StatusCreated, status, string(body))
	var created QuoteResponse
	testutil.DecodeJSON(t, body, &created)
	require.NotNil(t, created.ProjectID)
	assert.Equal(t, ownProject.ID, *created.ProjectID)
}

func TestListingExpiresPastDueQuotes(t *testing.T) {
	f := newFixture(t)
	q := f.createQuote(t)

	status, _ := testutil.Do(t, f.app, http.MethodPost, fmt.Sprintf("/quotes/%d/send", q.ID), map[string]any{
		"channels": []string{"email"},
	})
	require.Equal(t, http.StatusOK, status)

	// başka firmanın süresi dolmuş teklifi bu firmanın listesinde güncellenmez
	other := testutil.CreateCompany(t, f.db, "Rakip Enerji")
	otherCustomer := testutil.CreateCustomer(t, f.db, other.ID)
	foreign := models.Quote{
		QuoteNumber: "TKL-RAKIP-1",
		PublicToken: "rakip-token",
		CompanyID:   other.ID,
		CustomerID:  otherCustomer.ID,
		Status:      models.QuoteSent,
		Currency:    "TRY",
		ValidUntil:  f.clk.Now().Add(24 * time.Hour),
	}
	require.NoError(t, f.db.Omit("Company", "Customer").Create(&foreign).Error)

	f.clk.Advance(40 * 24 * time.Hour)

	status, body := testutil.Do(t, f.app, http.MethodGet, "/quotes", nil)
	require.Equal(t, http.StatusOK, status)
	var list []QuoteResponse
	testutil.DecodeJSON(t, body, &list)
	require.Len(t, list, 1)
	assert.Equal(t, models.QuoteExpired, list[0].Status)

	status, body = testutil.Do(t, f.app, http.MethodGet, "/quotes/analytics", nil)
	require.Equal(t, http.StatusOK, status)
	var a Analytics
	testutil.DecodeJSON(t, body, &a)
	assert.Equal(t, 1, a.ByStatus[models.QuoteExpired].Count)
	assert.Equal(t, 0, a.ByStatus[models.QuoteSent].Count)

	var stored models.Quote
	require.NoError(t, f.db.First(&stored, foreign.ID).Error)
	assert.Equal(t, models.QuoteSent, stored.Status)
}

func TestValidUntilEndsAtIstanbulMidnight(t *testing.T) {
	f := newFixture(t)

	status, body := testutil.Do(t, f.app, http.MethodPost, "/quotes", map[string]any{
		"customer_id": f.customer.ID,
		"valid_until": "2026-05-10",
		"items": []map[string]any{
			{"description": "Keşif", "quantity": "1", "unit_price": "500"},
		},
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	var q QuoteResponse
	testutil.DecodeJSON(t, body, &q)
	// 10.05 23:59:59 İstanbul = 20:59:59 UTC
	assert.True(t, q.ValidUntil.Equal(time.Date(2026, time.May, 10, 20, 59, 59, 0, time.UTC)), q.ValidUntil.String())

	status, _ = testutil.Do(t, f.app, http.MethodPost, fmt.Sprintf("/quotes/%d/send", q.ID), map[string]any{
		"channels": []string{"email"},
	})
	require.Equal(t, http.StatusOK, status)

	// İstanbul'da 10.05 23:30: hâlâ geçerli
	f.clk.Advance(time.Date(2026, time.May, 10, 20, 30, 0, 0, time.UTC).Sub(f.clk.Now()))
	status, body = testutil.Do(t, f.app, http.MethodGet, "/quotes", nil)
	require.Equal(t, http.StatusOK, status)
	var list []QuoteResponse
	testutil.DecodeJSON(t, body, &list)
	require.Len(t, list, 1)
	assert.Equal(t, models.QuoteSent, list[0].Status)

	// 11.05 00:30 İstanbul
	f.clk.Advance(time.Hour)
	status, body = testutil.Do(t, f.app, http.MethodGet, "/quotes", nil)
	require.Equal(t, http.StatusOK, status)
	testutil.DecodeJSON(t, body, &list)
	require.Len(t, list, 1)
	assert.Equal(t, models.QuoteExpired, list[0].Status)
}

func TestPDFAndExport(t *testing.T) {
	f := newFixture(t)
	q := f.createQuote(t)

	req, _ := http.NewRequest(http.MethodGet, fmt.Sprintf("/quotes/%d/pdf", q.ID), nil)
	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	var pdf bytes.Buffer
	_, err = pdf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf.Bytes(), []byte("%PDF")))

	status, body := testutil.Do(t, f.app, http.MethodGet, "/quotes/export", nil)
	require.Equal(t, http.StatusOK, status)
	x, err := excelize.OpenReader(bytes.NewReader(body))
	require.NoError(t, err)
	defer x.Close()
	rows, err := x.GetRows("Teklifler")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, q.QuoteNumber, rows[1][0])
	assert.Equal(t, "Taslak", rows[1][2])

	status, body = testutil.Do(t, f.app, http.MethodGet, "/quotes/export?format=csv", nil)
	require.Equal(t, http.StatusOK, status)
	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(string(body), "\ufeff")), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[1], q.QuoteNumber+";"))
	assert.Contains(t, lines[1], ";Taslak;")
}
