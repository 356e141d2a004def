package kvkk

import (
	"math"
	"time"

	"gunes-backend/internal/apperr"
	"gunes-backend/internal/models"
)

const (
	DueSoonWindow  = 7 * 24 * time.Hour
	ReminderWindow = 3 * 24 * time.Hour
)

// IsActive başvuru hâlâ yanıt bekliyor mu?
func IsActive(status models.KVKKStatus) bool {
	return status == models.KVKKPending || status == models.KVKKInProgress
}

func IsOverdue(app models.KVKKApplication, now time.Time) bool {
	return IsActive(app.Status) && app.ResponseDeadline.Before(now)
}

// IsDueSoon: süresi geçmemiş ama 7 gün içinde dolacak aktif başvuru.
func IsDueSoon(app models.KVKKApplication, now time.Time) bool {
	if !IsActive(app.Status) || IsOverdue(app, now) {
		return false
	}
	return !app.ResponseDeadline.After(now.Add(DueSoonWindow))
}

// DedupeSince aynı türde bildirim için geriye bakılacak pencerenin başlangıcı.
// Gecikme uyarısı günde bir, hatırlatma üç günde bir.
func DedupeSince(action models.KVKKAction, now time.Time) time.Time {
	if action == models.KVKKActionOverdueAlert {
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	}
	return now.Add(-ReminderWindow)
}

// AlreadyNotified logs içinde since'ten sonra aynı aksiyon var mı?
func AlreadyNotified(logs []models.KVKKAuditLog, action models.KVKKAction, since time.Time) bool {
	for _, l := range logs {
		if l.Action == action && !l.CreatedAt.Before(since) {
			return true
		}
	}
	return false
}

type ComplianceLevel string

const (
	LevelExcellent        ComplianceLevel = "EXCELLENT"
	LevelGood             ComplianceLevel = "GOOD"
	LevelNeedsImprovement ComplianceLevel = "NEEDS_IMPROVEMENT"
	LevelCritical         ComplianceLevel = "CRITICAL"
)

type ComplianceReport struct {
	Score               int                       `json:"score"`
	Level               ComplianceLevel           `json:"level"`
	Total               int                       `json:"total"`
	ByStatus            map[models.KVKKStatus]int `json:"by_status"`
	Overdue             int                       `json:"overdue"`
	DueSoon             int                       `json:"due_soon"`
	RespondedOnTime     int                       `json:"responded_on_time"`
	RespondedLate       int                       `json:"responded_late"`
	AverageResponseDays float64                   `json:"average_response_days"`
}

func levelFor(score int) ComplianceLevel {
	switch {
	case score >= 90:
		return LevelExcellent
	case score >= 75:
		return LevelGood
	case score >= 50:
		return LevelNeedsImprovement
	}
	return LevelCritical
}

// Compliance başvuru listesinden uyum skorunu hesaplar.
// Skor: süresinde yanıtlanan veya süresi henüz dolmamış başvuruların oranı (0-100).
func Compliance(apps []models.KVKKApplication, now time.Time) ComplianceReport {
	r := ComplianceReport{
		ByStatus: map[models.KVKKStatus]int{},
		Total:    len(apps),
	}

	var responseDays float64
	for _, a := range apps {
		r.ByStatus[a.Status]++
		switch {
		case IsOverdue(a, now):
			r.Overdue++
		case IsDueSoon(a, now):
			r.DueSoon++
		}
		if a.RespondedAt != nil && !IsActive(a.Status) {
			if a.RespondedAt.After(a.ResponseDeadline) {
				r.RespondedLate++
			} else {
				r.RespondedOnTime++
			}
			responseDays += a.RespondedAt.Sub(a.CreatedAt).Hours() / 24
		}
	}

	if responded := r.RespondedOnTime + r.RespondedLate; responded > 0 {
		r.AverageResponseDays = math.Round(responseDays/float64(responded)*10) / 10
	}

	if r.Total == 0 {
		r.Score = 100
	} else {
		good := r.Total - r.Overdue - r.RespondedLate
		r.Score = int(math.Round(100 * float64(good) / float64(r.Total)))
		if r.Score < 0 {
			r.Score = 0
		}
	}
	r.Level = levelFor(r.Score)
	return r
}

// applyStatus durum geçişini uygular. Sonuçlanmış başvuru yeniden açılamaz;
// COMPLETED/REJECTED için yanıt metni zorunludur.
func applyStatus(app *models.KVKKApplication, status models.KVKKStatus, response string, now time.Time) error {
	if !IsActive(app.Status) {
		return apperr.Conflict("başvuru zaten sonuçlandırılmış (%s)", app.Status)
	}
	if !IsActive(status) {
		if response == "" {
			return apperr.Invalid("sonuçlandırma için yanıt metni zorunlu")
		}
		app.Response = response
		app.RespondedAt = &now
	}
	app.Status = status
	return nil
}
