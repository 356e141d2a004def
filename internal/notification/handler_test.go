package notification

import (
	"fmt"
	"net/http"
	"testing"

	"gunes-backend/internal/models"
	"gunes-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listResponse struct {
	Items       []models.Notification `json:"items"`
	UnreadCount int64                 `json:"unread_count"`
}

func TestNotificationReadFlow(t *testing.T) {
	db := testutil.OpenDB(t)
	company := testutil.CreateCompany(t, db, "Ege Solar")
	owner := testutil.CreateUser(t, db, models.RoleCompany, &company.ID)
	other := testutil.CreateUser(t, db, models.RoleEmployee, &company.ID)

	require.NoError(t, Create(db, []uint{owner.ID}, Payload{Type: TypeQuoteViewed, Title: "Teklif görüntülendi"}))
	require.NoError(t, Create(db, []uint{owner.ID, other.ID}, Payload{Type: TypeQuoteResponded, Title: "Teklif yanıtlandı"}))

	app := testutil.NewApp()
	app.Use(testutil.WithIdentity(owner.ID, models.RoleCompany, &company.ID))
	app.Get("/notifications", ListHandler())
	app.Put("/notifications/read-all", MarkAllReadHandler())
	app.Put("/notifications/:id/read", MarkReadHandler())

	status, body := testutil.Do(t, app, http.MethodGet, "/notifications", nil)
	require.Equal(t, http.StatusOK, status)
	var list listResponse
	testutil.DecodeJSON(t, body, &list)
	require.Len(t, list.Items, 2)
	assert.EqualValues(t, 2, list.UnreadCount)

	status, _ = testutil.Do(t, app, http.MethodPut, fmt.Sprintf("/notifications/%d/read", list.Items[0].ID), nil)
	require.Equal(t, http.StatusNoContent, status)

	status, body = testutil.Do(t, app, http.MethodGet, "/notifications?unread=true", nil)
	require.Equal(t, http.StatusOK, status)
	list = listResponse{}
	testutil.DecodeJSON(t, body, &list)
	assert.Len(t, list.Items, 1)
	assert.EqualValues(t, 1, list.UnreadCount)

	status, _ = testutil.Do(t, app, http.MethodPut, "/notifications/read-all", nil)
	require.Equal(t, http.StatusOK, status)

	// diğer kullanıcının bildirimi etkilenmez
	var otherUnread int64
	db.Model(&models.Notification{}).Where("user_id = ? AND is_read = ?", other.ID, false).Count(&otherUnread)
	assert.EqualValues(t, 1, otherUnread)
}

func TestMarkReadOtherUsersNotification(t *testing.T) {
	db := testutil.OpenDB(t)
	company := testutil.CreateCompany(t, db, "Ege Solar")
	owner := testutil.CreateUser(t, db, models.RoleCompany, &company.ID)
	other := testutil.CreateUser(t, db, models.RoleEmployee, &company.ID)
	require.NoError(t, Create(db, []uint{other.ID}, Payload{Type: TypeLeaveReviewed, Title: "İzin onaylandı"}))

	var n models.Notification
	require.NoError(t, db.First(&n, "user_id = ?", other.ID).Error)

	app := testutil.NewApp()
	app.Use(testutil.WithIdentity(owner.ID, models.RoleCompany, &company.ID))
	app.Put("/notifications/:id/read", MarkReadHandler())

	status, _ := testutil.Do(t, app, http.MethodPut, fmt.Sprintf("/notifications/%d/read", n.ID), nil)
	assert.Equal(t, http.StatusNotFound, status)
}
