package models

import "time"

type UserRole string

const (
	RoleAdmin    UserRole = "ADMIN"
	RoleCompany  UserRole = "COMPANY"
	RoleCustomer UserRole = "CUSTOMER"
	RoleEmployee UserRole = "EMPLOYEE"
	RoleFarmer   UserRole = "FARMER"
)

func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleCompany, RoleCustomer, RoleEmployee, RoleFarmer:
		return true
	}
	return false
}

type User struct {
	ID           uint `gorm:"primaryKey"`
	CompanyID    *uint
	Company      *Company
	Name         string   `gorm:"size:100;not null"`
	Email        string   `gorm:"size:100;uniqueIndex;not null"`
	Phone        string   `gorm:"size:30"`
	PasswordHash string   `gorm:"size:255;not null"`
	Role         UserRole `gorm:"size:20;index;not null"`
	IsActive     bool     `gorm:"default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
