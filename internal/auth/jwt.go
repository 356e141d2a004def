package auth

import (
	"strconv"
	"time"

	"gunes-backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/juju/errors"
)

const (
	TokenTTL    = 24 * time.Hour
	tokenIssuer = "gunes-backend"
)

// Claims oturum token'ı: kullanıcı id'si subject'te, rol ve firma (tenant) ayrı alanlarda.
type Claims struct {
	Role      models.UserRole `json:"role"`
	CompanyID *uint           `json:"company_id,omitempty"`
	jwt.RegisteredClaims
}

func GenerateToken(secret string, user *models.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		Role:      user.Role,
		CompanyID: user.CompanyID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken imzayı, HS256 algoritmasını, issuer'ı ve süreyi doğrular.
func ParseToken(secret, raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (interface{}, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, errors.Annotate(err, "token doğrulanamadı")
	}
	return claims, nil
}

// Identity token içeriğini oturum kimliğine çevirir.
// Firma rolleri (COMPANY, EMPLOYEE) firma bilgisi olmadan geçersizdir.
func (c *Claims) Identity() (Identity, error) {
	uid, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || uid == 0 {
		return Identity{}, errors.NotValidf("token subject %q", c.Subject)
	}
	if !c.Role.Valid() {
		return Identity{}, errors.NotValidf("rol %q", c.Role)
	}
	id := Identity{UserID: uint(uid), Role: c.Role, CompanyID: c.CompanyID}
	if id.IsCompanyMember() && (id.CompanyID == nil || *id.CompanyID == 0) {
		return Identity{}, errors.NotValidf("firma bilgisi olmayan %s token'ı", c.Role)
	}
	return id, nil
}
