package ratelimit

import (
	"fmt"
	"math"
	"strconv"

	"gunes-backend/internal/auth"
	"gunes-backend/internal/metrics"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// ByUser kimliği doğrulanmış kullanıcıya göre anahtar; yoksa IP.
func ByUser(c *fiber.Ctx) string {
	if uid, ok := c.Locals(auth.CtxUserIDKey).(uint); ok {
		return fmt.Sprintf("user:%d", uid)
	}
	return "ip:" + c.IP()
}

// Middleware limit aşıldığında 429 ve Retry-After döner.
// Limiter hatasında istek geçirilir (Redis kesintisi gönderimi durdurmasın).
func Middleware(l Limiter, scope string, key func(*fiber.Ctx) string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		k := scope + ":" + key(c)
		d, err := l.Allow(c.UserContext(), k)
		if err != nil {
			log.Warn().Err(err).Str("scope", scope).Msg("rate limiter hatası, istek geçiriliyor")
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		if !d.Allowed {
			metrics.RateLimited.WithLabelValues(scope).Inc()
			retry := int(math.Ceil(d.RetryAfter.Seconds()))
			if retry < 1 {
				retry = 1
			}
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retry))
			return fiber.NewError(fiber.StatusTooManyRequests, "Çok fazla istek, lütfen daha sonra tekrar deneyin")
		}
		return c.Next()
	}
}
