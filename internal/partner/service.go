package partner

import (
	"fmt"
	"time"

	"gunes-backend/internal/models"
	"gunes-backend/internal/notification"

	"github.com/juju/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var openStatuses = []models.LeadStatus{models.LeadAssigned, models.LeadAccepted}

func loadCandidates(db *gorm.DB) ([]Candidate, error) {
	var partners []models.Partner
	if err := db.Where("is_active = ? AND is_verified = ?", true, true).Find(&partners).Error; err != nil {
		return nil, errors.Annotate(err, "ortaklar okunamadı")
	}

	type openCount struct {
		PartnerID uint
		Count     int
	}
	var counts []openCount
	if err := db.Model(&models.PartnerQuoteRequest{}).
		Select("partner_id, COUNT(*) AS count").
		Where("partner_id IS NOT NULL AND status IN ?", openStatuses).
		Group("partner_id").
		Scan(&counts).Error; err != nil {
		return nil, errors.Annotate(err, "açık talepler sayılamadı")
	}
	open := make(map[uint]int, len(counts))
	for _, c := range counts {
		open[c.PartnerID] = c.Count
	}

	cands := make([]Candidate, 0, len(partners))
	for _, p := range partners {
		cands = append(cands, Candidate{Partner: p, OpenLeads: open[p.ID]})
	}
	return cands, nil
}

// Route talebi en uygun ortağa atar. Uygun ortak yoksa talep PENDING kalır ve nil döner.
// Bildirim göndermez, bkz. NotifyAssigned.
func Route(db *gorm.DB, lead *models.PartnerQuoteRequest, now time.Time) (*models.Partner, error) {
	cands, err := loadCandidates(db)
	if err != nil {
		return nil, err
	}
	ranked := Rank(cands, lead.City, lead.ServiceType, DeclinedSet(*lead))

	if len(ranked) == 0 {
		lead.PartnerID = nil
		lead.Status = models.LeadPending
		lead.AssignedAt = nil
		if err := db.Save(lead).Error; err != nil {
			return nil, errors.Annotate(err, "talep güncellenemedi")
		}
		log.Info().Uint("lead_id", lead.ID).Str("city", lead.City).Msg("uygun ortak bulunamadı, talep beklemede")
		return nil, nil
	}

	best := ranked[0].Partner
	lead.PartnerID = &best.ID
	lead.Status = models.LeadAssigned
	lead.AssignedAt = &now
	if err := db.Save(lead).Error; err != nil {
		return nil, errors.Annotate(err, "talep atanamadı")
	}

	return &best, nil
}

// NotifyAssigned atanan ortağın firma kullanıcılarına bildirim yazar; transaction dışında çağrılır.
func NotifyAssigned(p *models.Partner, lead *models.PartnerQuoteRequest) {
	if p == nil {
		return
	}
	notification.NotifyCompany(p.CompanyID, notification.Payload{
		Type:    notification.TypeLeadAssigned,
		Title:   "Yeni talep atandı",
		Message: fmt.Sprintf("%s ilinden %s talebi size yönlendirildi.", lead.City, lead.ServiceType),
		Link:    fmt.Sprintf("/partner/leads/%d", lead.ID),
	})
}

// RecalculateRating ortağın puanını değerlendirmelerinden yeniden hesaplar.
func RecalculateRating(db *gorm.DB, partnerID uint) error {
	var ratings []int
	if err := db.Model(&models.PartnerReview{}).Where("partner_id = ?", partnerID).Pluck("rating", &ratings).Error; err != nil {
		return errors.Annotate(err, "değerlendirmeler okunamadı")
	}
	return errors.Trace(db.Model(&models.Partner{}).Where("id = ?", partnerID).Updates(map[string]interface{}{
		"rating":       AverageRating(ratings),
		"review_count": len(ratings),
	}).Error)
}
