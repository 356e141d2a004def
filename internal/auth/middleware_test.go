package auth_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"gunes-backend/internal/auth"
	"gunes-backend/internal/models"
	"gunes-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func uintPtr(v uint) *uint { return &v }

func signClaims(t *testing.T, method jwt.SigningMethod, claims *auth.Claims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return raw
}

func claimsFor(userID uint, role models.UserRole, companyID *uint, exp time.Time) *auth.Claims {
	return &auth.Claims{
		Role:      role,
		CompanyID: companyID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Issuer:    "gunes-backend",
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
}

func identityApp(roles ...models.UserRole) *fiber.App {
	app := testutil.NewApp()
	app.Use(auth.JWTMiddleware(secret))
	handler := func(c *fiber.Ctx) error {
		id, err := auth.CurrentIdentity(c)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"user_id": id.UserID, "role": id.Role, "company_id": id.CompanyID})
	}
	if len(roles) > 0 {
		app.Get("/me", auth.RequireRole(roles...), handler)
	} else {
		app.Get("/me", handler)
	}
	app.Get("/manager", auth.RequireManager(), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })
	return app
}

func call(t *testing.T, app *fiber.App, path, token string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	buf, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, buf
}

func TestJWTMiddlewareResolvesIdentity(t *testing.T) {
	user := &models.User{Role: models.RoleEmployee, CompanyID: uintPtr(7)}
	user.ID = 42
	token, err := auth.GenerateToken(secret, user)
	require.NoError(t, err)

	claims, err := auth.ParseToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.Subject)
	assert.WithinDuration(t, time.Now().Add(auth.TokenTTL), claims.ExpiresAt.Time, time.Minute)

	status, body := call(t, identityApp(), "/me", token)
	require.Equal(t, http.StatusOK, status)
	var got struct {
		UserID    uint            `json:"user_id"`
		Role      models.UserRole `json:"role"`
		CompanyID *uint           `json:"company_id"`
	}
	testutil.DecodeJSON(t, body, &got)
	assert.EqualValues(t, 42, got.UserID)
	assert.Equal(t, models.RoleEmployee, got.Role)
	require.NotNil(t, got.CompanyID)
	assert.EqualValues(t, 7, *got.CompanyID)
}

func TestJWTMiddlewareRejectsBadTokens(t *testing.T) {
	app := identityApp()
	future := time.Now().Add(time.Hour)

	cases := map[string]string{
		"eksik":            "",
		"bozuk":            "abc.def.ghi",
		"süresi dolmuş":    signClaims(t, jwt.SigningMethodHS256, claimsFor(1, models.RoleAdmin, nil, time.Now().Add(-time.Minute))),
		"farklı algoritma": signClaims(t, jwt.SigningMethodHS384, claimsFor(1, models.RoleAdmin, nil, future)),
		"firmasız çalışan": signClaims(t, jwt.SigningMethodHS256, claimsFor(3, models.RoleEmployee, nil, future)),
		"bilinmeyen rol":   signClaims(t, jwt.SigningMethodHS256, claimsFor(3, models.UserRole("ROOT"), nil, future)),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			status, _ := call(t, app, "/me", token)
			assert.Equal(t, http.StatusUnauthorized, status)
		})
	}

	// farklı issuer
	c := claimsFor(1, models.RoleAdmin, nil, future)
	c.Issuer = "baska-servis"
	status, _ := call(t, app, "/me", signClaims(t, jwt.SigningMethodHS256, c))
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestRequireRoleAndManager(t *testing.T) {
	future := time.Now().Add(time.Hour)
	employee := signClaims(t, jwt.SigningMethodHS256, claimsFor(5, models.RoleEmployee, uintPtr(2), future))
	owner := signClaims(t, jwt.SigningMethodHS256, claimsFor(6, models.RoleCompany, uintPtr(2), future))
	admin := signClaims(t, jwt.SigningMethodHS256, claimsFor(1, models.RoleAdmin, nil, future))

	app := identityApp(models.RoleAdmin)
	status, _ := call(t, app, "/me", employee)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = call(t, app, "/me", admin)
	assert.Equal(t, http.StatusOK, status)

	status, _ = call(t, app, "/manager", employee)
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = call(t, app, "/manager", owner)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = call(t, app, "/manager", admin)
	assert.Equal(t, http.StatusNoContent, status)
}
