// Package apperr servis katmanındaki juju/errors türlerini HTTP durum kodlarına çevirir.
package apperr

import (
	stderrors "errors"

	"gunes-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/juju/errors"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Expired süresi dolmuş kaynak (teklif linki, fotoğraf talebi) için hata türü.
const Expired = errors.ConstError("expired")

// Aşağıdaki yardımcılar Türkçe mesajı korur; juju'nun *f fonksiyonları İngilizce sonek ekler.

func NotFound(format string, args ...any) error {
	return errors.WithType(errors.Errorf(format, args...), errors.NotFound)
}

func Invalid(format string, args ...any) error {
	return errors.WithType(errors.Errorf(format, args...), errors.NotValid)
}

func Conflict(format string, args ...any) error {
	return errors.WithType(errors.Errorf(format, args...), errors.AlreadyExists)
}

func Forbidden(format string, args ...any) error {
	return errors.WithType(errors.Errorf(format, args...), errors.Forbidden)
}

func Gone(format string, args ...any) error {
	return errors.WithType(errors.Errorf(format, args...), Expired)
}

func TooManyRequests(format string, args ...any) error {
	return errors.WithType(errors.Errorf(format, args...), errors.QuotaLimitExceeded)
}

// ToFiber servis hatasını *fiber.Error'a çevirir; mesaj hatanın kendisidir.
// Tanınmayan hatalar olduğu gibi döner (ErrorHandler 500 üretir).
func ToFiber(err error) error {
	if err == nil {
		return nil
	}
	var fe *fiber.Error
	if stderrors.As(err, &fe) {
		return fe
	}

	status := StatusOf(err)
	if status == fiber.StatusInternalServerError {
		return err
	}
	return fiber.NewError(status, err.Error())
}

// StatusOf hatanın karşılık geldiği HTTP durum kodunu döndürür.
func StatusOf(err error) int {
	switch {
	case err == nil:
		return fiber.StatusOK
	case errors.Is(err, errors.NotFound), stderrors.Is(err, gorm.ErrRecordNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, errors.NotValid), errors.Is(err, errors.BadRequest):
		return fiber.StatusBadRequest
	case errors.Is(err, errors.AlreadyExists), stderrors.Is(err, gorm.ErrDuplicatedKey):
		return fiber.StatusConflict
	case errors.Is(err, errors.Unauthorized), errors.Is(err, errors.Forbidden):
		return fiber.StatusForbidden
	case errors.Is(err, errors.QuotaLimitExceeded):
		return fiber.StatusTooManyRequests
	case errors.Is(err, Expired):
		return fiber.StatusGone
	}
	return fiber.StatusInternalServerError
}

// Handler fiber ErrorHandler: {"error": msg} (doğrulama hatalarında "issues" listesiyle).
func Handler(c *fiber.Ctx, err error) error {
	var verr *validation.Error
	if stderrors.As(err, &verr) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  verr.Message,
			"issues": verr.Issues,
		})
	}

	if e, ok := ToFiber(err).(*fiber.Error); ok {
		return c.Status(e.Code).JSON(fiber.Map{
			"error": e.Message,
		})
	}

	log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("Beklenmeyen hata")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Beklenmeyen sunucu hatası",
	})
}
