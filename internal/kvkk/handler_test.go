package kvkk

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"gunes-backend/internal/models"
	"gunes-backend/internal/testutil"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplicationLifecycle(t *testing.T) {
	db := testutil.OpenDB(t)
	admin := testutil.CreateUser(t, db, models.RoleAdmin, nil)
	clk := testclock.NewClock(time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC))

	app := testutil.NewApp()
	app.Post("/public/kvkk", CreateApplicationHandler(30, clk))
	admins := app.Group("/admin", testutil.WithIdentity(admin.ID, models.RoleAdmin, nil))
	admins.Get("/kvkk", ListApplicationsHandler(clk))
	admins.Get("/kvkk/:id", GetApplicationHandler(clk))
	admins.Put("/kvkk/:id/status", UpdateStatusHandler(clk))

	t.Run("validation issues", func(t *testing.T) {
		status, body := testutil.Do(t, app, http.MethodPost, "/public/kvkk", map[string]any{
			"applicant_name": "Mehmet",
			"email":          "not-an-email",
			"request_type":   "ACCESS",
		})
		assert.Equal(t, http.StatusBadRequest, status)

		var resp struct {
			Issues []struct {
				Field string `json:"field"`
			} `json:"issues"`
		}
		testutil.DecodeJSON(t, body, &resp)
		fields := map[string]bool{}
		for _, i := range resp.Issues {
			fields[i.Field] = true
		}
		assert.True(t, fields["email"])
		assert.True(t, fields["description"])
		assert.True(t, fields["consent"])
	})

	status, body := testutil.Do(t, app, http.MethodPost, "/public/kvkk", map[string]any{
		"applicant_name": "Mehmet Demir",
		"email":          "Mehmet@Example.com",
		"request_type":   "DELETION",
		"description":    "Kişisel verilerimin silinmesini talep ediyorum.",
		"consent":        true,
	})
	require.Equal(t, http.StatusCreated, status, string(body))

	var stored models.KVKKApplication
	require.NoError(t, db.Preload("Logs").First(&stored).Error)
	assert.Equal(t, "mehmet@example.com", stored.Email)
	assert.True(t, stored.ResponseDeadline.Equal(clk.Now().AddDate(0, 0, 30)))
	require.Len(t, stored.Logs, 1)
	assert.Equal(t, models.KVKKActionCreated, stored.Logs[0].Action)

	// 31 gün sonra başvuru gecikmiş listede görünür
	clk.Advance(31 * 24 * time.Hour)
	status, body = testutil.Do(t, app, http.MethodGet, "/admin/kvkk?overdue=true", nil)
	require.Equal(t, http.StatusOK, status)
	var list []ApplicationResponse
	testutil.DecodeJSON(t, body, &list)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsOverdue)

	path := fmt.Sprintf("/admin/kvkk/%d/status", stored.ID)

	status, _ = testutil.Do(t, app, http.MethodPut, path, map[string]any{"status": "COMPLETED"})
	assert.Equal(t, http.StatusBadRequest, status, "response text required")

	status, body = testutil.Do(t, app, http.MethodPut, path, map[string]any{
		"status":   "COMPLETED",
		"response": "Verileriniz silinmiştir.",
	})
	require.Equal(t, http.StatusOK, status, string(body))

	status, body = testutil.Do(t, app, http.MethodGet, "/admin/kvkk?overdue=true", nil)
	require.Equal(t, http.StatusOK, status)
	testutil.DecodeJSON(t, body, &list)
	assert.Empty(t, list)

	status, _ = testutil.Do(t, app, http.MethodPut, path, map[string]any{"status": "IN_PROGRESS"})
	assert.Equal(t, http.StatusConflict, status)
}
