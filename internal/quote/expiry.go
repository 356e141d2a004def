package quote

import (
	"fmt"
	"time"

	"gunes-backend/internal/metrics"
	"gunes-backend/internal/models"
	"gunes-backend/internal/notification"

	"github.com/juju/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var expirable = []models.QuoteStatus{models.QuoteSent, models.QuoteViewed}

// expireOne koşullu UPDATE: aynı teklif için eşzamanlı iki çağrıdan sadece biri satır etkiler.
func expireOne(db *gorm.DB, q *models.Quote, now time.Time) (bool, error) {
	res := db.Model(&models.Quote{}).
		Where("id = ? AND status IN ? AND valid_until < ?", q.ID, expirable, now).
		Updates(map[string]interface{}{
			"status":     models.QuoteExpired,
			"expired_at": now,
		})
	if res.Error != nil {
		return false, errors.Annotatef(res.Error, "teklif %d süresi güncellenemedi", q.ID)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	q.Status = models.QuoteExpired
	q.ExpiredAt = &now
	metrics.QuotesExpired.Inc()
	return true, nil
}

// ExpireDue geçerlilik tarihi geçmiş SENT/VIEWED teklifleri EXPIRED yapar, değişen sayıyı döner.
func ExpireDue(db *gorm.DB, now time.Time) (int, error) {
	return ExpireDueFor(db, nil, now)
}

// ExpireDueFor ExpireDue'nun tek firmaya sınırlı hali; companyID nil ise tüm firmalar.
func ExpireDueFor(db *gorm.DB, companyID *uint, now time.Time) (int, error) {
	dbq := db.Select("id", "quote_number", "company_id", "status").
		Where("status IN ? AND valid_until < ?", expirable, now)
	if companyID != nil {
		dbq = dbq.Where("company_id = ?", *companyID)
	}
	var due []models.Quote
	if err := dbq.Find(&due).Error; err != nil {
		return 0, errors.Annotate(err, "süresi dolan teklifler okunamadı")
	}

	expired := 0
	for i := range due {
		ok, err := expireOne(db, &due[i], now)
		if err != nil {
			return expired, err
		}
		if !ok {
			continue
		}
		expired++
		notification.NotifyCompany(due[i].CompanyID, notification.Payload{
			Type:    notification.TypeQuoteExpired,
			Title:   "Teklif süresi doldu",
			Message: fmt.Sprintf("%s numaralı teklifin geçerlilik süresi doldu.", due[i].QuoteNumber),
			Link:    fmt.Sprintf("/quotes/%d", due[i].ID),
		})
	}

	if expired > 0 {
		log.Info().Int("expired", expired).Msg("süresi dolan teklifler güncellendi")
	}
	return expired, nil
}

// expireIfDue tek teklif okunurken süresi dolmuşsa durumu günceller.
func expireIfDue(db *gorm.DB, q *models.Quote, now time.Time) error {
	if !q.ValidUntil.Before(now) {
		return nil
	}
	for _, s := range expirable {
		if q.Status == s {
			_, err := expireOne(db, q, now)
			return err
		}
	}
	return nil
}
