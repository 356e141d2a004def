package auth

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

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Phone    string `json:"phone" validate:"max=30"`
	Role     string `json:"role" validate:"required,oneof=CUSTOMER COMPANY FARMER"`

	// Firma kaydı için
	CompanyName string `json:"company_name" validate:"required_if=Role COMPANY,max=150"`
	TaxNumber   string `json:"tax_number" validate:"required_if=Role COMPANY,max=20"`
	TaxOffice   string `json:"tax_office" validate:"max=100"`
	City        string `json:"city" validate:"max=60"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type CreateUserRequest struct {
	Name      string `json:"name" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	Phone     string `json:"phone" validate:"max=30"`
	Role      string `json:"role" validate:"required,oneof=ADMIN COMPANY CUSTOMER EMPLOYEE FARMER"`
	CompanyID *uint  `json:"company_id"`
}

type UserResponse struct {
	ID        uint            `json:"id"`
	Name      string          `json:"name"`
	Email     string          `json:"email"`
	Phone     string          `json:"phone"`
	Role      models.UserRole `json:"role"`
	CompanyID *uint           `json:"company_id"`
}

func toUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Phone:     u.Phone,
		Role:      u.Role,
		CompanyID: u.CompanyID,
	}
}

// POST /api/auth/register
func RegisterHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body RegisterRequest
		if err := validation.Parse(c, &body); err != nil {
			return err
		}
		body.Email = strings.TrimSpace(strings.ToLower(body.Email))

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Şifre hashlenemedi")
		}

		user := models.User{
			Name:         strings.TrimSpace(body.Name),
			Email:        body.Email,
			Phone:        body.Phone,
			PasswordHash: string(hash),
			Role:         models.UserRole(body.Role),
			IsActive:     true,
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if user.Role == models.RoleCompany {
				company := models.Company{
					Name:      strings.TrimSpace(body.CompanyName),
					TaxNumber: strings.TrimSpace(body.TaxNumber),
					TaxOffice: body.TaxOffice,
					City:      body.City,
					Phone:     body.Phone,
					Email:     body.Email,
				}
				if err := tx.Create(&company).Error; err != nil {
					return err
				}
				user.CompanyID = &company.ID
			}

			if err := tx.Create(&user).Error; err != nil {
				return err
			}

			if user.Role == models.RoleCustomer || user.Role == models.RoleFarmer {
				ctype := models.CustomerIndividual
				if user.Role == models.RoleFarmer {
					ctype = models.CustomerFarmer
				}
				customer := models.Customer{
					UserID:       &user.ID,
					Name:         user.Name,
					Email:        user.Email,
					Phone:        user.Phone,
					City:         body.City,
					CustomerType: ctype,
				}
				if err := tx.Create(&customer).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fiber.NewError(fiber.StatusConflict, "Bu email veya vergi numarası zaten kayıtlı")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Kullanıcı oluşturulamadı")
		}

		return c.Status(fiber.StatusCreated).JSON(toUserResponse(&user))
	}
}

// POST /api/auth/login
func LoginHandler(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := validation.Parse(c, &body); err != nil {
			return err
		}
		body.Email = strings.TrimSpace(strings.ToLower(body.Email))

		var user models.User
		if err := database.DB.Where("email = ?", body.Email).First(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Email veya şifre hatalı")
		}
		if !user.IsActive {
			return fiber.NewError(fiber.StatusUnauthorized, "Hesap pasif durumda")
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Email veya şifre hatalı")
		}

		token, err := GenerateToken(secret, &user)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Token oluşturulamadı")
		}

		return c.JSON(fiber.Map{
			"token": token,
			"user":  toUserResponse(&user),
		})
	}
}

// GET /api/auth/me
func MeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := CurrentUser(c)
		if err != nil {
			return err
		}

		response := fiber.Map{
			"user": toUserResponse(user),
		}

		if user.CompanyID != nil {
			var company models.Company
			if err := database.DB.First(&company, *user.CompanyID).Error; err == nil {
				response["company"] = company
			}
		}

		return c.JSON(response)
	}
}

// POST /api/admin/users
func CreateUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateUserRequest
		if err := validation.Parse(c, &body); err != nil {
			return err
		}
		body.Email = strings.TrimSpace(strings.ToLower(body.Email))

		role := models.UserRole(body.Role)
		if (role == models.RoleCompany || role == models.RoleEmployee) && body.CompanyID == nil {
			return fiber.NewError(fiber.StatusBadRequest, "Firma kullanıcıları için company_id zorunlu")
		}
		if body.CompanyID != nil {
			var count int64
			database.DB.Model(&models.Company{}).Where("id = ?", *body.CompanyID).Count(&count)
			if count == 0 {
				return fiber.NewError(fiber.StatusBadRequest, "Firma bulunamadı")
			}
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Şifre hashlenemedi")
		}

		user := models.User{
			Name:         strings.TrimSpace(body.Name),
			Email:        body.Email,
			Phone:        body.Phone,
			PasswordHash: string(hash),
			Role:         role,
			CompanyID:    body.CompanyID,
			IsActive:     true,
		}
		if err := database.DB.Create(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fiber.NewError(fiber.StatusConflict, "Bu email zaten kayıtlı")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Kullanıcı oluşturulamadı")
		}

		return c.Status(fiber.StatusCreated).JSON(toUserResponse(&user))
	}
}

// GET /api/admin/users?role=COMPANY&company_id=1
func ListUsersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.User{})
		if role := c.Query("role"); role != "" {
			dbq = dbq.Where("role = ?", role)
		}
		if cid := c.QueryInt("company_id"); cid > 0 {
			dbq = dbq.Where("company_id = ?", cid)
		}

		var users []models.User
		if err := dbq.Order("id asc").Find(&users).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Kullanıcılar listelenemedi")
		}

		resp := make([]UserResponse, 0, len(users))
		for i := range users {
			resp = append(resp, toUserResponse(&users[i]))
		}
		return c.JSON(resp)
	}
}
