package auth

import (
	"fmt"

	"gunes-backend/internal/database"
	"gunes-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// Identity JWT'den çözülen oturum bilgisi.
type Identity struct {
	UserID    uint
	Role      models.UserRole
	CompanyID *uint
}

func (i Identity) IsAdmin() bool {
	return i.Role == models.RoleAdmin
}

// IsCompanyMember firma (tenant) hesabına bağlı roller.
func (i Identity) IsCompanyMember() bool {
	return i.Role == models.RoleCompany || i.Role == models.RoleEmployee
}

// IsManager firma sahibi ya da admin.
func (i Identity) IsManager() bool {
	return i.Role == models.RoleAdmin || i.Role == models.RoleCompany
}

func (i Identity) HasRole(roles ...models.UserRole) bool {
	for _, r := range roles {
		if r == i.Role {
			return true
		}
	}
	return false
}

// CurrentUser kullanıcı kaydını veritabanından çeker (audit log için isim vb.)
func CurrentUser(c *fiber.Ctx) (*models.User, error) {
	id, err := CurrentIdentity(c)
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := database.DB.First(&user, "id = ?", id.UserID).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusInternalServerError, "Kullanıcı bulunamadı")
	}
	return &user, nil
}

// ResolveCompanyIDFromBody firma kullanıcıları için token'daki firmayı,
// admin için gövdeden gelen company_id'yi döndürür.
func ResolveCompanyIDFromBody(c *fiber.Ctx, bodyCompanyID *uint) (uint, error) {
	id, err := CurrentIdentity(c)
	if err != nil {
		return 0, err
	}
	if !id.IsAdmin() {
		if id.CompanyID == nil {
			return 0, fiber.NewError(fiber.StatusForbidden, "Firma bilgisi bulunamadı")
		}
		return *id.CompanyID, nil
	}
	if bodyCompanyID == nil || *bodyCompanyID == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "company_id zorunlu")
	}
	return *bodyCompanyID, nil
}

// ResolveCompanyFilter listeleme için firma filtresi: admin'de ?company_id opsiyonel (nil: hepsi).
func ResolveCompanyFilter(c *fiber.Ctx) (*uint, error) {
	id, err := CurrentIdentity(c)
	if err != nil {
		return nil, err
	}
	if !id.IsAdmin() {
		if id.CompanyID == nil {
			return nil, fiber.NewError(fiber.StatusForbidden, "Firma bilgisi bulunamadı")
		}
		return id.CompanyID, nil
	}
	cidStr := c.Query("company_id")
	if cidStr == "" {
		return nil, nil
	}
	var cid uint
	if _, err := fmt.Sscan(cidStr, &cid); err != nil || cid == 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "company_id geçersiz")
	}
	return &cid, nil
}

// CanAccessCompany kaydın firmasına erişim kontrolü.
func CanAccessCompany(c *fiber.Ctx, companyID uint) error {
	id, err := CurrentIdentity(c)
	if err != nil {
		return err
	}
	if id.IsAdmin() {
		return nil
	}
	if id.CompanyID == nil || *id.CompanyID != companyID {
		return fiber.NewError(fiber.StatusForbidden, "Bu kayda erişim yetkiniz yok")
	}
	return nil
}
