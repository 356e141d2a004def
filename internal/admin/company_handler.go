// Package admin platform yöneticisinin firma (tenant) yönetimi.
package admin

import (
	"errors"
	"strings"

	"gunes-backend/internal/database"
	"gunes-backend/internal/models"
	"gunes-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type CompanyRequest struct {
	Name      string `json:"name" validate:"required,max=150"`
	TaxNumber string `json:"tax_number" validate:"required,max=20"`
	TaxOffice string `json:"tax_office" validate:"max=100"`
	City      string `json:"city" validate:"max=60"`
	Address   string `json:"address" validate:"max=255"`
	Phone     string `json:"phone" validate:"max=30"`
	Email     string `json:"email" validate:"omitempty,email"`
}

type UpdateCompanyRequest struct {
	Name       *string `json:"name" validate:"omitempty,min=1,max=150"`
	TaxOffice  *string `json:"tax_office" validate:"omitempty,max=100"`
	City       *string `json:"city" validate:"omitempty,max=60"`
	Address    *string `json:"address" validate:"omitempty,max=255"`
	Phone      *string `json:"phone" validate:"omitempty,max=30"`
	Email      *string `json:"email" validate:"omitempty,email"`
	IsVerified *bool   `json:"is_verified"`
}

type CompanyUserRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Phone    string `json:"phone" validate:"max=30"`
	Role     string `json:"role" validate:"required,oneof=COMPANY EMPLOYEE"`
}

type CompanyResponse struct {
	models.Company
	UserCount     int64 `json:"user_count"`
	CustomerCount int64 `json:"customer_count"`
}

type CompanyUserResponse struct {
	ID        uint            `json:"id"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Phone     string          `json:"phone"`
	Role      models.UserRole `json:"role"`
	IsActive  bool            `json:"is_active"`
	CreatedAt string          `json:"created_at"`
}

func withCounts(company models.Company) CompanyResponse {
	resp := CompanyResponse{Company: company}
	database.DB.Model(&models.User{}).Where("company_id = ?", company.ID).Count(&resp.UserCount)
	database.DB.Model(&models.Customer{}).Where("company_id = ?", company.ID).Count(&resp.CustomerCount)
	return resp
}

// POST /api/admin/companies
func CreateCompanyHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CompanyRequest
		if err := validation.Parse(c, &body); err != nil {
			return err
		}

		company := models.Company{
			Name:      strings.TrimSpace(body.Name),
			TaxNumber: strings.TrimSpace(body.TaxNumber),
			TaxOffice: body.TaxOffice,
			City:      body.City,
			Address:   body.Address,
			Phone:     strings.TrimSpace(body.Phone),
			Email:     strings.ToLower(strings.TrimSpace(body.Email)),
		}
		if err := database.DB.Create(&company).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fiber.NewError(fiber.StatusConflict, "Bu vergi numarası zaten kayıtlı")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Firma oluşturulamadı")
		}
		return c.Status(fiber.StatusCreated).JSON(withCounts(company))
	}
}

// GET /api/admin/companies?city=İzmir&verified=true
func ListCompaniesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.Company{})
		if city := c.Query("city"); city != "" {
			dbq = dbq.Where("city = ?", city)
		}
		if v := c.Query("verified"); v != "" {
			dbq = dbq.Where("is_verified = ?", c.QueryBool("verified"))
		}

		var companies []models.Company
		if err := dbq.Order("name asc").Find(&companies).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Firmalar listelenemedi")
		}

		res := make([]CompanyResponse, 0, len(companies))
		for _, co := range companies {
			res = append(res, withCounts(co))
		}
		return c.JSON(res)
	}
}

func loadCompany(id string) (models.Company, error) {
	var company models.Company
	if err := database.DB.First(&company, "id = ?", id).Error; err != nil {
		return company, fiber.NewError(fiber.StatusNotFound, "Firma bulunamadı")
	}
	return company, nil
}

// GET /api/admin/companies/:id
func GetCompanyHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		company, err := loadCompany(c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(withCounts(company))
	}
}

// PUT /api/admin/companies/:id
func UpdateCompanyHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		company, err := loadCompany(c.Params("id"))
		if err != nil {
			return err
		}
		var body UpdateCompanyRequest
		if err := validation.Parse(c, &body); err != nil {
			return err
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "Firma adı boş olamaz")
			}
			company.Name = name
		}
		if body.TaxOffice != nil {
			company.TaxOffice = *body.TaxOffice
		}
		if body.City != nil {
			company.City = *body.City
		}
		if body.Address != nil {
			company.Address = *body.Address
		}
		if body.Phone != nil {
			company.Phone = strings.TrimSpace(*body.Phone)
		}
		if body.Email != nil {
			company.Email = strings.ToLower(strings.TrimSpace(*body.Email))
		}
		if body.IsVerified != nil {
			company.IsVerified = *body.IsVerified
		}

		if err := database.DB.Omit("Users").Save(&company).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Firma güncellenemedi")
		}
		return c.JSON(withCounts(company))
	}
}

// DELETE /api/admin/companies/:id
// Kullanıcısı veya müşterisi olan firma silinemez; önce pasife alınmalı.
func DeleteCompanyHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		company, err := loadCompany(c.Params("id"))
		if err != nil {
			return err
		}
		counts := withCounts(company)
		if counts.UserCount > 0 || counts.CustomerCount > 0 {
			return fiber.NewError(fiber.StatusConflict, "Firmaya bağlı kullanıcı veya müşteri var")
		}
		if err := database.DB.Delete(&models.Company{}, company.ID).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Firma silinemedi")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// POST /api/admin/companies/:id/users
func CreateCompanyUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		company, err := loadCompany(c.Params("id"))
		if err != nil {
			return err
		}
		var body CompanyUserRequest
		if err := validation.Parse(c, &body); err != nil {
			return err
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Şifre hashlenemedi")
		}

		user := models.User{
			Name:         strings.TrimSpace(body.Name),
			Email:        strings.ToLower(strings.TrimSpace(body.Email)),
			Phone:        body.Phone,
			PasswordHash: string(hash),
			Role:         models.UserRole(body.Role),
			CompanyID:    &company.ID,
			IsActive:     true,
		}
		if err := database.DB.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fiber.NewError(fiber.StatusConflict, "Bu email zaten kayıtlı")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Kullanıcı oluşturulamadı")
		}
		return c.Status(fiber.StatusCreated).JSON(toCompanyUser(user))
	}
}

func toCompanyUser(u models.User) CompanyUserResponse {
	return CompanyUserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Phone:     u.Phone,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// GET /api/admin/companies/:id/users
func ListCompanyUsersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var users []models.User
		if err := database.DB.
			Where("company_id = ?", c.Params("id")).
			Order("created_at DESC").
			Find(&users).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kullanıcılar listelenemedi")
		}

		res := make([]CompanyUserResponse, 0, len(users))
		for _, u := range users {
			res = append(res, toCompanyUser(u))
		}
		return c.JSON(res)
	}
}

type ActiveRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

// PUT /api/admin/users/:id/active
func SetUserActiveHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ActiveRequest
		if err := validation.Parse(c, &body); err != nil {
			return err
		}
		res := database.DB.Model(&models.User{}).
			Where("id = ? AND role <> ?", c.Params("id"), models.RoleAdmin).
			Update("is_active", *body.IsActive)
		if res.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kullanıcı güncellenemedi")
		}
		if res.RowsAffected == 0 {
			return fiber.NewError(fiber.StatusNotFound, "Kullanıcı bulunamadı")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
