package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type ProductCategory string

const (
	CategoryPanel    ProductCategory = "PANEL"
	CategoryInverter ProductCategory = "INVERTER"
	CategoryBattery  ProductCategory = "BATTERY"
	CategoryMounting ProductCategory = "MOUNTING"
	CategoryCable    ProductCategory = "CABLE"
	CategoryOther    ProductCategory = "OTHER"
)

type Product struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	CompanyID *uint           `gorm:"index" json:"company_id"` // nil: platform kataloğu
	Name      string          `gorm:"size:150;not null" json:"name"`
	Brand     string          `gorm:"size:100" json:"brand"`
	Model     string          `gorm:"size:100" json:"model"`
	Category  ProductCategory `gorm:"size:20;index;not null" json:"category"`
	Unit      string          `gorm:"size:20;not null;default:adet" json:"unit"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"unit_price"`
	Currency  string          `gorm:"size:3;not null;default:TRY" json:"currency"`
	PowerW    float64         `json:"power_w"`
	Stock     int             `gorm:"default:0" json:"stock"`
	IsActive  bool            `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Package: hazır sistem paketi (ör. 10 kW çatı paketi)
type Package struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	CompanyID    *uint           `gorm:"index" json:"company_id"`
	Name         string          `gorm:"size:150;not null" json:"name"`
	Description  string          `gorm:"type:text" json:"description"`
	TotalPowerKW float64         `json:"total_power_kw"`
	Price        decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"price"`
	IsActive     bool            `gorm:"default:true" json:"is_active"`
	Items        []PackageItem   `gorm:"constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type PackageItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	PackageID uint            `gorm:"index;not null" json:"package_id"`
	ProductID uint            `gorm:"index;not null" json:"product_id"`
	Product   Product         `json:"-"`
	Quantity  decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"quantity"`
}
