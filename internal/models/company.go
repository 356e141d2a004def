package models

import "time"

// Company platformdaki kiracı (tenant); kurulum/danışmanlık firması.
type Company struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"size:150;not null" json:"name"`
	TaxNumber  string    `gorm:"size:20;uniqueIndex;not null" json:"tax_number"`
	TaxOffice  string    `gorm:"size:100" json:"tax_office"`
	City       string    `gorm:"size:60;index" json:"city"`
	Address    string    `gorm:"size:255" json:"address"`
	Phone      string    `gorm:"size:30" json:"phone"`
	Email      string    `gorm:"size:100" json:"email"`
	IsVerified bool      `gorm:"default:false" json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	Users []User `json:"-"`
}

type CustomerType string

const (
	CustomerIndividual CustomerType = "INDIVIDUAL"
	CustomerCorporate  CustomerType = "CORPORATE"
	CustomerFarmer     CustomerType = "FARMER"
)

type Customer struct {
	ID           uint         `gorm:"primaryKey" json:"id"`
	UserID       *uint        `gorm:"uniqueIndex" json:"user_id"`
	CompanyID    *uint        `gorm:"index" json:"company_id"`
	Name         string       `gorm:"size:150;not null" json:"name"`
	Email        string       `gorm:"size:100" json:"email"`
	Phone        string       `gorm:"size:30" json:"phone"`
	City         string       `gorm:"size:60" json:"city"`
	Address      string       `gorm:"size:255" json:"address"`
	CustomerType CustomerType `gorm:"size:20;not null;default:INDIVIDUAL" json:"customer_type"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}
