package kvkk

import (
	"testing"
	"time"

	"gunes-backend/internal/models"

	"github.com/stretchr/testify/assert"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func application(status models.KVKKStatus, deadline time.Time) models.KVKKApplication {
	return models.KVKKApplication{Status: status, ResponseDeadline: deadline, CreatedAt: deadline.AddDate(0, 0, -30)}
}

func TestIsOverdue(t *testing.T) {
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name string
		app  models.KVKKApplication
		want bool
	}{
		{"pending past deadline", application(models.KVKKPending, past), true},
		{"in progress past deadline", application(models.KVKKInProgress, past), true},
		{"completed past deadline", application(models.KVKKCompleted, past), false},
		{"rejected past deadline", application(models.KVKKRejected, past), false},
		{"pending future deadline", application(models.KVKKPending, future), false},
		{"deadline exactly now", application(models.KVKKPending, now), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsOverdue(tt.app, now))
		})
	}
}

func TestCompletingRemovesFromOverdue(t *testing.T) {
	a := application(models.KVKKPending, now.AddDate(0, 0, -2))
	assert.True(t, IsOverdue(a, now))

	err := applyStatus(&a, models.KVKKCompleted, "Talebiniz karşılanmıştır.", now)
	assert.NoError(t, err)
	assert.False(t, IsOverdue(a, now))
	assert.NotNil(t, a.RespondedAt)
}

func TestIsDueSoon(t *testing.T) {
	assert.True(t, IsDueSoon(application(models.KVKKPending, now.AddDate(0, 0, 3)), now))
	assert.True(t, IsDueSoon(application(models.KVKKInProgress, now.Add(DueSoonWindow)), now))
	assert.False(t, IsDueSoon(application(models.KVKKPending, now.Add(DueSoonWindow+time.Minute)), now))
	assert.False(t, IsDueSoon(application(models.KVKKPending, now.Add(-time.Minute)), now), "overdue is not due soon")
	assert.False(t, IsDueSoon(application(models.KVKKCompleted, now.AddDate(0, 0, 1)), now))
}

func TestAlreadyNotified(t *testing.T) {
	logs := []models.KVKKAuditLog{
		{Action: models.KVKKActionOverdueAlert, CreatedAt: now.Add(-2 * time.Hour)},
		{Action: models.KVKKActionDeadlineReminder, CreatedAt: now.AddDate(0, 0, -4)},
	}

	overdueSince := DedupeSince(models.KVKKActionOverdueAlert, now)
	assert.Equal(t, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), overdueSince)
	assert.True(t, AlreadyNotified(logs, models.KVKKActionOverdueAlert, overdueSince))

	// Dünkü uyarı bugün tekrar gönderilmeyi engellemez
	tomorrow := now.AddDate(0, 0, 1)
	assert.False(t, AlreadyNotified(logs, models.KVKKActionOverdueAlert, DedupeSince(models.KVKKActionOverdueAlert, tomorrow)))

	// 4 gün önceki hatırlatma 3 günlük pencerenin dışında
	assert.False(t, AlreadyNotified(logs, models.KVKKActionDeadlineReminder, DedupeSince(models.KVKKActionDeadlineReminder, now)))
}

func TestApplyStatus(t *testing.T) {
	a := application(models.KVKKPending, now.AddDate(0, 0, 10))

	assert.Error(t, applyStatus(&a, models.KVKKCompleted, "", now), "response required")
	assert.NoError(t, applyStatus(&a, models.KVKKInProgress, "", now))
	assert.Nil(t, a.RespondedAt)
	assert.NoError(t, applyStatus(&a, models.KVKKRejected, "Kimlik doğrulanamadı.", now))
	assert.Error(t, applyStatus(&a, models.KVKKPending, "", now), "closed application cannot reopen")
}

func TestCompliance(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		r := Compliance(nil, now)
		assert.Equal(t, 100, r.Score)
		assert.Equal(t, LevelExcellent, r.Level)
	})

	t.Run("mixed", func(t *testing.T) {
		deadline := now.AddDate(0, 0, -5)
		onTime := deadline.AddDate(0, 0, -1)
		late := deadline.AddDate(0, 0, 1)

		completedOnTime := application(models.KVKKCompleted, deadline)
		completedOnTime.RespondedAt = &onTime
		completedLate := application(models.KVKKCompleted, deadline)
		completedLate.RespondedAt = &late

		apps := []models.KVKKApplication{
			completedOnTime,
			completedLate,
			application(models.KVKKPending, deadline),                // overdue
			application(models.KVKKInProgress, now.AddDate(0, 0, 2)), // due soon
		}

		r := Compliance(apps, now)
		assert.Equal(t, 4, r.Total)
		assert.Equal(t, 1, r.Overdue)
		assert.Equal(t, 1, r.DueSoon)
		assert.Equal(t, 1, r.RespondedOnTime)
		assert.Equal(t, 1, r.RespondedLate)
		assert.Equal(t, 50, r.Score)
		assert.Equal(t, LevelNeedsImprovement, r.Level)
		assert.Equal(t, 2, r.ByStatus[models.KVKKCompleted])
		assert.Equal(t, 30.0, r.AverageResponseDays)
	})
}
