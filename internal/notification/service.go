package notification

import (
	"gunes-backend/internal/database"
	"gunes-backend/internal/models"

	"github.com/juju/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	TypeKVKKOverdue    = "KVKK_OVERDUE"
	TypeKVKKReminder   = "KVKK_REMINDER"
	TypeKVKKNew        = "KVKK_NEW"
	TypeQuoteViewed    = "QUOTE_VIEWED"
	TypeQuoteResponded = "QUOTE_RESPONDED"
	TypeQuoteExpired   = "QUOTE_EXPIRED"
	TypeLeadAssigned   = "LEAD_ASSIGNED"
	TypeLeaveRequested = "LEAVE_REQUESTED"
	TypeLeaveReviewed  = "LEAVE_REVIEWED"
	TypePhotosUploaded = "PHOTOS_UPLOADED"
)

type Payload struct {
	Type    string
	Title   string
	Message string
	Link    string
}

// Create verilen kullanıcılara bildirim kaydı açar.
func Create(db *gorm.DB, userIDs []uint, p Payload) error {
	if len(userIDs) == 0 {
		return nil
	}
	rows := make([]models.Notification, 0, len(userIDs))
	for _, uid := range userIDs {
		rows = append(rows, models.Notification{
			UserID:  uid,
			Type:    p.Type,
			Title:   p.Title,
			Message: p.Message,
			Link:    p.Link,
		})
	}
	if err := db.Create(&rows).Error; err != nil {
		return errors.Annotate(err, "bildirim kaydedilemedi")
	}
	return nil
}

// UserIDsByRole rolü taşıyan aktif kullanıcılar.
func UserIDsByRole(db *gorm.DB, role models.UserRole) ([]uint, error) {
	var ids []uint
	err := db.Model(&models.User{}).
		Where("role = ? AND is_active = ?", role, true).
		Pluck("id", &ids).Error
	return ids, errors.Trace(err)
}

// UserIDsByCompany firmanın COMPANY rolündeki aktif kullanıcıları.
func UserIDsByCompany(db *gorm.DB, companyID uint) ([]uint, error) {
	var ids []uint
	err := db.Model(&models.User{}).
		Where("company_id = ? AND role = ? AND is_active = ?", companyID, models.RoleCompany, true).
		Pluck("id", &ids).Error
	return ids, errors.Trace(err)
}

// NotifyCompany bildirim hatası kritik değil, sadece loglanır.
func NotifyCompany(companyID uint, p Payload) {
	ids, err := UserIDsByCompany(database.DB, companyID)
	if err == nil {
		err = Create(database.DB, ids, p)
	}
	if err != nil {
		log.Warn().Err(err).Uint("company_id", companyID).Str("type", p.Type).Msg("firma bildirimi gönderilemedi")
	}
}

// NotifyUser tek kullanıcıya best-effort bildirim.
func NotifyUser(userID uint, p Payload) {
	if err := Create(database.DB, []uint{userID}, p); err != nil {
		log.Warn().Err(err).Uint("user_id", userID).Str("type", p.Type).Msg("kullanıcı bildirimi gönderilemedi")
	}
}
