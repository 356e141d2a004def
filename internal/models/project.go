package models

import "time"

type ProjectStatus string

const (
	ProjectPlanning   ProjectStatus = "PLANNING"
	ProjectApproved   ProjectStatus = "APPROVED"
	ProjectInstalling ProjectStatus = "INSTALLING"
	ProjectCompleted  ProjectStatus = "COMPLETED"
	ProjectCancelled  ProjectStatus = "CANCELLED"
)

type Project struct {
	ID         uint          `gorm:"primaryKey" json:"id"`
	CompanyID  uint          `gorm:"index;not null" json:"company_id"`
	CustomerID uint          `gorm:"index;not null" json:"customer_id"`
	Customer   Customer      `json:"-"`
	Name       string        `gorm:"size:150;not null" json:"name"`
	Status     ProjectStatus `gorm:"size:20;not null;default:PLANNING" json:"status"`
	CapacityKW float64       `json:"capacity_kw"`
	Location   string        `gorm:"size:255" json:"location"`
	Latitude   *float64      `json:"latitude"`
	Longitude  *float64      `json:"longitude"`
	StartDate  *time.Time    `json:"start_date"`
	EndDate    *time.Time    `json:"end_date"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

type RequestStatus string

const (
	RequestNew                RequestStatus = "NEW"
	RequestContacted          RequestStatus = "CONTACTED"
	RequestSiteVisitScheduled RequestStatus = "SITE_VISIT_SCHEDULED"
	RequestSiteVisitDone      RequestStatus = "SITE_VISIT_DONE"
	RequestQuoteSent          RequestStatus = "QUOTE_SENT"
	RequestNegotiation        RequestStatus = "NEGOTIATION"
	RequestWon                RequestStatus = "WON"
	RequestLost               RequestStatus = "LOST"
)

func (s RequestStatus) Valid() bool {
	switch s {
	case RequestNew, RequestContacted, RequestSiteVisitScheduled, RequestSiteVisitDone,
		RequestQuoteSent, RequestNegotiation, RequestWon, RequestLost:
		return true
	}
	return false
}

// ProjectRequest: müşteri talebi / satış hattı kaydı
type ProjectRequest struct {
	ID              uint          `gorm:"primaryKey" json:"id"`
	CompanyID       *uint         `gorm:"index" json:"company_id"`
	CustomerID      *uint         `gorm:"index" json:"customer_id"`
	CustomerName    string        `gorm:"size:150;not null" json:"customer_name"`
	Phone           string        `gorm:"size:30" json:"phone"`
	Email           string        `gorm:"size:100" json:"email"`
	City            string        `gorm:"size:60" json:"city"`
	ProjectType     string        `gorm:"size:40" json:"project_type"` // RESIDENTIAL, COMMERCIAL, AGRICULTURAL...
	EstimatedKW     float64       `json:"estimated_kw"`
	Status          RequestStatus `gorm:"size:30;index;not null;default:NEW" json:"status"`
	StatusChangedAt time.Time     `gorm:"not null" json:"status_changed_at"`
	Notes           string        `gorm:"type:text" json:"notes"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}
