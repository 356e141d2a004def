package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Partner struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	CompanyID      uint            `gorm:"uniqueIndex;not null" json:"company_id"` // firma başına tek partner
	Company        Company         `json:"-"`
	Cities         string          `gorm:"size:500" json:"cities"`        // virgülle ayrılmış il listesi
	ServiceTypes   string          `gorm:"size:255" json:"service_types"` // virgülle ayrılmış hizmet türleri
	CommissionRate decimal.Decimal `gorm:"type:numeric(5,2);not null;default:0" json:"commission_rate"`
	IsActive       bool            `gorm:"default:true" json:"is_active"`
	IsVerified     bool            `gorm:"default:false" json:"is_verified"`
	Rating         float64         `gorm:"default:0" json:"rating"`
	ReviewCount    int             `gorm:"default:0" json:"review_count"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type LeadStatus string

const (
	LeadPending   LeadStatus = "PENDING"
	LeadAssigned  LeadStatus = "ASSIGNED"
	LeadAccepted  LeadStatus = "ACCEPTED"
	LeadCompleted LeadStatus = "COMPLETED"
	LeadCancelled LeadStatus = "CANCELLED"
)

type PartnerQuoteRequest struct {
	ID             uint             `gorm:"primaryKey" json:"id"`
	PartnerID      *uint            `gorm:"index" json:"partner_id"`
	CustomerName   string           `gorm:"size:150;not null" json:"customer_name"`
	Phone          string           `gorm:"size:30;not null" json:"phone"`
	Email          string           `gorm:"size:100" json:"email"`
	City           string           `gorm:"size:60;index;not null" json:"city"`
	ServiceType    string           `gorm:"size:40;not null" json:"service_type"`
	EstimatedKW    float64          `json:"estimated_kw"`
	Notes          string           `gorm:"type:text" json:"notes"`
	Status         LeadStatus       `gorm:"size:20;index;not null;default:PENDING" json:"status"`
	DeclinedBy     string           `gorm:"size:255" json:"-"` // reddeden partner id'leri
	AssignedAt     *time.Time       `json:"assigned_at"`
	ContractAmount *decimal.Decimal `gorm:"type:numeric(14,2)" json:"contract_amount"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

type CommissionStatus string

const (
	CommissionPending   CommissionStatus = "PENDING"
	CommissionPaid      CommissionStatus = "PAID"
	CommissionCancelled CommissionStatus = "CANCELLED"
)

type Commission struct {
	ID             uint             `gorm:"primaryKey" json:"id"`
	PartnerID      uint             `gorm:"index;not null" json:"partner_id"`
	QuoteRequestID uint             `gorm:"uniqueIndex;not null" json:"quote_request_id"`
	Amount         decimal.Decimal  `gorm:"type:numeric(14,2);not null" json:"amount"`
	Rate           decimal.Decimal  `gorm:"type:numeric(5,2);not null" json:"rate"`
	Status         CommissionStatus `gorm:"size:20;not null;default:PENDING" json:"status"`
	PaidAt         *time.Time       `json:"paid_at"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

type PartnerReview struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	PartnerID      uint      `gorm:"index;not null" json:"partner_id"`
	QuoteRequestID *uint     `gorm:"index" json:"quote_request_id"`
	CustomerName   string    `gorm:"size:150" json:"customer_name"`
	Rating         int       `gorm:"not null" json:"rating"`
	Comment        string    `gorm:"size:1000" json:"comment"`
	CreatedAt      time.Time `json:"created_at"`
}
