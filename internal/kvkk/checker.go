package kvkk

import (
	"context"
	"fmt"

	"gunes-backend/internal/metrics"
	"gunes-backend/internal/models"
	"gunes-backend/internal/notification"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Checker aktif başvuruların süre kontrolünü yapar; zamanlayıcı ve admin endpoint'i kullanır.
type Checker struct {
	DB    *gorm.DB
	Clock clock.Clock
}

type CheckResult struct {
	Checked       int `json:"checked"`
	Overdue       int `json:"overdue"`
	DueSoon       int `json:"due_soon"`
	AlertsSent    int `json:"alerts_sent"`
	RemindersSent int `json:"reminders_sent"`
}

func NewChecker(db *gorm.DB, clk clock.Clock) *Checker {
	if clk == nil {
		clk = clock.WallClock
	}
	return &Checker{DB: db, Clock: clk}
}

func (ch *Checker) RunChecks(ctx context.Context) (CheckResult, error) {
	var res CheckResult
	now := ch.Clock.Now()
	db := ch.DB.WithContext(ctx)

	var apps []models.KVKKApplication
	if err := db.Preload("Logs").
		Where("status IN ?", []models.KVKKStatus{models.KVKKPending, models.KVKKInProgress}).
		Order("response_deadline asc").
		Find(&apps).Error; err != nil {
		return res, errors.Annotate(err, "aktif KVKK başvuruları okunamadı")
	}

	admins, err := notification.UserIDsByRole(db, models.RoleAdmin)
	if err != nil {
		return res, errors.Annotate(err, "admin kullanıcıları okunamadı")
	}

	res.Checked = len(apps)
	for _, app := range apps {
		var action models.KVKKAction
		var payload notification.Payload

		switch {
		case IsOverdue(app, now):
			res.Overdue++
			action = models.KVKKActionOverdueAlert
			payload = notification.Payload{
				Type:    notification.TypeKVKKOverdue,
				Title:   "KVKK başvurusu süresi geçti",
				Message: fmt.Sprintf("%s numaralı başvurunun yanıt süresi %s tarihinde doldu.", app.ApplicationNo, app.ResponseDeadline.Format("02.01.2006")),
				Link:    fmt.Sprintf("/admin/kvkk/%d", app.ID),
			}
		case IsDueSoon(app, now):
			res.DueSoon++
			action = models.KVKKActionDeadlineReminder
			days := int(app.ResponseDeadline.Sub(now).Hours() / 24)
			payload = notification.Payload{
				Type:    notification.TypeKVKKReminder,
				Title:   "KVKK başvurusu yanıt süresi yaklaşıyor",
				Message: fmt.Sprintf("%s numaralı başvurunun yanıtlanması için %d gün kaldı.", app.ApplicationNo, days),
				Link:    fmt.Sprintf("/admin/kvkk/%d", app.ID),
			}
		default:
			continue
		}

		if AlreadyNotified(app.Logs, action, DedupeSince(action, now)) {
			continue
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			entry := models.KVKKAuditLog{
				ApplicationID: app.ID,
				Action:        action,
				Details:       payload.Message,
				CreatedAt:     now,
			}
			if err := tx.Create(&entry).Error; err != nil {
				return err
			}
			return notification.Create(tx, admins, payload)
		})
		if err != nil {
			// Tek başvurudaki hata diğerlerini durdurmasın
			log.Warn().Err(err).Uint("application_id", app.ID).Str("action", string(action)).Msg("KVKK bildirimi yazılamadı")
			continue
		}

		metrics.KVKKNotices.WithLabelValues(string(action)).Inc()
		if action == models.KVKKActionOverdueAlert {
			res.AlertsSent++
		} else {
			res.RemindersSent++
		}
	}

	log.Info().
		Int("checked", res.Checked).
		Int("overdue", res.Overdue).
		Int("due_soon", res.DueSoon).
		Int("alerts_sent", res.AlertsSent).
		Int("reminders_sent", res.RemindersSent).
		Msg("KVKK süre kontrolü tamamlandı")

	return res, nil
}
