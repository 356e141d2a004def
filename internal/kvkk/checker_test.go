package kvkk

import (
	"context"
	"testing"
	"time"

	"gunes-backend/internal/models"
	"gunes-backend/internal/testutil"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunChecksDedupesNotifications(t *testing.T) {
	db := testutil.OpenDB(t)
	admin := testutil.CreateUser(t, db, models.RoleAdmin, nil)

	start := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	clk := testclock.NewClock(start)

	overdue := models.KVKKApplication{
		ApplicationNo: "KVKK-1", ApplicantName: "A", Email: "a@example.com",
		RequestType: models.KVKKRequestAccess, Description: "verilerimi görmek istiyorum",
		Status: models.KVKKPending, ResponseDeadline: start.AddDate(0, 0, -1),
	}
	dueSoon := models.KVKKApplication{
		ApplicationNo: "KVKK-2", ApplicantName: "B", Email: "b@example.com",
		RequestType: models.KVKKRequestDeletion, Description: "verilerimi silin lütfen",
		Status: models.KVKKInProgress, ResponseDeadline: start.AddDate(0, 0, 5),
	}
	farAway := models.KVKKApplication{
		ApplicationNo: "KVKK-3", ApplicantName: "C", Email: "c@example.com",
		RequestType: models.KVKKRequestInfo, Description: "bilgi talep ediyorum",
		Status: models.KVKKPending, ResponseDeadline: start.AddDate(0, 0, 20),
	}
	closed := models.KVKKApplication{
		ApplicationNo: "KVKK-4", ApplicantName: "D", Email: "d@example.com",
		RequestType: models.KVKKRequestInfo, Description: "bilgi talep ediyorum",
		Status: models.KVKKCompleted, ResponseDeadline: start.AddDate(0, 0, -10),
	}
	for _, a := range []*models.KVKKApplication{&overdue, &dueSoon, &farAway, &closed} {
		require.NoError(t, db.Create(a).Error)
	}

	checker := NewChecker(db, clk)

	res, err := checker.RunChecks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, CheckResult{Checked: 3, Overdue: 1, DueSoon: 1, AlertsSent: 1, RemindersSent: 1}, res)

	// Aynı gün ikinci çalıştırma yeni bildirim üretmez
	clk.Advance(3 * time.Hour)
	res, err = checker.RunChecks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.AlertsSent)
	assert.Equal(t, 0, res.RemindersSent)

	// Ertesi gün gecikme uyarısı tekrarlanır, hatırlatma 3 gün dolmadan tekrarlanmaz
	clk.Advance(24 * time.Hour)
	res, err = checker.RunChecks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.AlertsSent)
	assert.Equal(t, 0, res.RemindersSent)

	var notices int64
	db.Model(&models.Notification{}).Where("user_id = ?", admin.ID).Count(&notices)
	assert.EqualValues(t, 3, notices)

	var alerts int64
	db.Model(&models.KVKKAuditLog{}).
		Where("application_id = ? AND action = ?", overdue.ID, models.KVKKActionOverdueAlert).
		Count(&alerts)
	assert.EqualValues(t, 2, alerts)
}
