package auth

import (
	"strings"

	"gunes-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

const (
	CtxUserIDKey    = "user_id"
	CtxUserRoleKey  = "user_role"
	CtxCompanyIDKey = "company_id"
)

// SetIdentity kimliği Locals'a yazar; CurrentIdentity aynı anahtarlardan okur.
func SetIdentity(c *fiber.Ctx, id Identity) {
	c.Locals(CtxUserIDKey, id.UserID)
	c.Locals(CtxUserRoleKey, id.Role)
	c.Locals(CtxCompanyIDKey, id.CompanyID)
}

func CurrentIdentity(c *fiber.Ctx) (Identity, error) {
	userID, ok := c.Locals(CtxUserIDKey).(uint)
	if !ok {
		return Identity{}, fiber.NewError(fiber.StatusUnauthorized, "Oturum bulunamadı")
	}
	role, ok := c.Locals(CtxUserRoleKey).(models.UserRole)
	if !ok {
		return Identity{}, fiber.NewError(fiber.StatusForbidden, "Rol bilgisi alınamadı")
	}
	var companyID *uint
	if cPtr, ok := c.Locals(CtxCompanyIDKey).(*uint); ok && cPtr != nil {
		companyID = cPtr
	}
	return Identity{UserID: userID, Role: role, CompanyID: companyID}, nil
}

func bearerToken(c *fiber.Ctx) (string, error) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return "", fiber.NewError(fiber.StatusUnauthorized, "Authorization header eksik")
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return "", fiber.NewError(fiber.StatusUnauthorized, "Authorization formatı 'Bearer <token>' olmalı")
	}
	return strings.TrimSpace(token), nil
}

// JWTMiddleware token'ı doğrular ve kimliği isteğe bağlar.
func JWTMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, err := bearerToken(c)
		if err != nil {
			return err
		}
		claims, err := ParseToken(secret, raw)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Geçersiz veya süresi dolmuş token")
		}
		id, err := claims.Identity()
		if err != nil {
			log.Warn().Err(err).Str("path", c.Path()).Msg("token kimliği reddedildi")
			return fiber.NewError(fiber.StatusUnauthorized, "Geçersiz token")
		}

		SetIdentity(c, id)
		return c.Next()
	}
}

func RequireRole(allowedRoles ...models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := CurrentIdentity(c)
		if err != nil {
			return err
		}
		if !id.HasRole(allowedRoles...) {
			return fiber.NewError(fiber.StatusForbidden, "Bu işlem için yetkiniz yok")
		}
		return c.Next()
	}
}

// RequireManager firma sahibi ya da platform yöneticisi ister; çalışanlar 403 alır.
func RequireManager() fiber.Handler {
	return RequireRole(models.RoleAdmin, models.RoleCompany)
}

// EnsureManager RequireManager'ın handler içinden çağrılan hali.
func EnsureManager(c *fiber.Ctx) error {
	id, err := CurrentIdentity(c)
	if err != nil {
		return err
	}
	if !id.IsManager() {
		return fiber.NewError(fiber.StatusForbidden, "Bu işlem için yetkiniz yok")
	}
	return nil
}
