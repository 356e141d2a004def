package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type RateSource string

const (
	RateSourceManual RateSource = "MANUAL"
	RateSourceTCMB   RateSource = "TCMB"
)

// ExchangeRate: 1 birim döviz = Rate TL
type ExchangeRate struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Currency      string          `gorm:"size:3;index;not null" json:"currency"`
	Rate          decimal.Decimal `gorm:"type:numeric(14,4);not null" json:"rate"`
	Source        RateSource      `gorm:"size:10;not null" json:"source"`
	IsActive      bool            `gorm:"index;default:true" json:"is_active"`
	EffectiveDate time.Time       `gorm:"index;not null" json:"effective_date"`
	CreatedBy     *uint           `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
