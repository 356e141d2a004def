package models

import "time"

type KVKKStatus string

const (
	KVKKPending    KVKKStatus = "PENDING"
	KVKKInProgress KVKKStatus = "IN_PROGRESS"
	KVKKCompleted  KVKKStatus = "COMPLETED"
	KVKKRejected   KVKKStatus = "REJECTED"
)

func (s KVKKStatus) Valid() bool {
	switch s {
	case KVKKPending, KVKKInProgress, KVKKCompleted, KVKKRejected:
		return true
	}
	return false
}

// KVKK md. 11 kapsamındaki başvuru türleri
type KVKKRequestType string

const (
	KVKKRequestInfo       KVKKRequestType = "INFO"
	KVKKRequestAccess     KVKKRequestType = "ACCESS"
	KVKKRequestCorrection KVKKRequestType = "CORRECTION"
	KVKKRequestDeletion   KVKKRequestType = "DELETION"
	KVKKRequestObjection  KVKKRequestType = "OBJECTION"
	KVKKRequestDamages    KVKKRequestType = "DAMAGES"
)

type KVKKApplication struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	ApplicationNo    string          `gorm:"size:40;uniqueIndex;not null" json:"application_no"`
	ApplicantName    string          `gorm:"size:150;not null" json:"applicant_name"`
	Email            string          `gorm:"size:100;not null" json:"email"`
	Phone            string          `gorm:"size:30" json:"phone"`
	RequestType      KVKKRequestType `gorm:"size:20;not null" json:"request_type"`
	Description      string          `gorm:"type:text;not null" json:"description"`
	Status           KVKKStatus      `gorm:"size:20;index;not null;default:PENDING" json:"status"`
	ResponseDeadline time.Time       `gorm:"index;not null" json:"response_deadline"`
	Response         string          `gorm:"type:text" json:"response"`
	RespondedAt      *time.Time      `json:"responded_at"`
	AssignedToID     *uint           `json:"assigned_to_id"`
	Logs             []KVKKAuditLog  `gorm:"foreignKey:ApplicationID;constraint:OnDelete:CASCADE" json:"logs,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

type KVKKAction string

const (
	KVKKActionCreated          KVKKAction = "CREATED"
	KVKKActionStatusChanged    KVKKAction = "STATUS_CHANGED"
	KVKKActionOverdueAlert     KVKKAction = "OVERDUE_ALERT"
	KVKKActionDeadlineReminder KVKKAction = "DEADLINE_REMINDER"
)

type KVKKAuditLog struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	ApplicationID uint       `gorm:"index;not null" json:"application_id"`
	Action        KVKKAction `gorm:"size:30;index;not null" json:"action"`
	PerformedBy   *uint      `json:"performed_by"` // nil: sistem (zamanlayıcı)
	Details       string     `gorm:"size:500" json:"details"`
	CreatedAt     time.Time  `gorm:"index" json:"created_at"`
}
