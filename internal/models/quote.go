package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type QuoteStatus string

const (
	QuoteDraft    QuoteStatus = "DRAFT"
	QuoteSent     QuoteStatus = "SENT"
	QuoteViewed   QuoteStatus = "VIEWED"
	QuoteAccepted QuoteStatus = "ACCEPTED"
	QuoteRejected QuoteStatus = "REJECTED"
	QuoteExpired  QuoteStatus = "EXPIRED"
)

type Quote struct {
	ID             uint            `gorm:"primaryKey"`
	QuoteNumber    string          `gorm:"size:40;uniqueIndex;not null"`
	CompanyID      uint            `gorm:"index;not null"`
	Company        Company
	CustomerID     uint            `gorm:"index;not null"`
	Customer       Customer
	ProjectID      *uint           `gorm:"index"`
	Status         QuoteStatus     `gorm:"size:20;index;not null;default:DRAFT"`
	Currency       string          `gorm:"size:3;not null;default:TRY"`
	Subtotal       decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	DiscountRate   decimal.Decimal `gorm:"type:numeric(5,2);not null;default:0"`
	DiscountAmount decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	TaxRate        decimal.Decimal `gorm:"type:numeric(5,2);not null;default:20"`
	TaxAmount      decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	Total          decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	ValidUntil     time.Time       `gorm:"index;not null"`
	Notes          string          `gorm:"type:text"`
	PublicToken    string          `gorm:"size:64;uniqueIndex;not null"`
	SentAt         *time.Time
	ViewedAt       *time.Time
	RespondedAt    *time.Time
	ExpiredAt      *time.Time
	CreatedBy      uint
	Items          []QuoteItem `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type QuoteItem struct {
	ID          uint            `gorm:"primaryKey"`
	QuoteID     uint            `gorm:"index;not null"`
	ProductID   *uint           `gorm:"index"`
	Description string          `gorm:"size:255;not null"`
	Quantity    decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Unit        string          `gorm:"size:20"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	LineTotal   decimal.Decimal `gorm:"type:numeric(14,2);not null"`
}

// QuoteDelivery: teklif gönderiminde kanal bazlı sonuç kaydı
type QuoteDelivery struct {
	ID        uint   `gorm:"primaryKey"`
	QuoteID   uint   `gorm:"index;not null"`
	Channel   string `gorm:"size:20;not null"`
	Recipient string `gorm:"size:150"`
	Success   bool
	Error     string `gorm:"size:500"`
	SentBy    uint
	CreatedAt time.Time
}
