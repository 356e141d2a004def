package validation

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// Issue tek bir alan doğrulama hatası.
type Issue struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// Error 400 cevabında issue listesiyle döner.
type Error struct {
	Message string
	Issues  []Issue
}

func (e *Error) Error() string {
	return e.Message
}

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Hata mesajlarında struct adları yerine JSON alan adlarını kullan
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Struct verilen struct'ı doğrular; hata varsa *Error döner.
func Struct(v any) error {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return &Error{Message: "Geçersiz veri"}
	}

	issues := make([]Issue, 0, len(verrs))
	for _, fe := range verrs {
		issues = append(issues, Issue{
			Field:   fieldPath(fe),
			Tag:     fe.Tag(),
			Message: message(fe),
		})
	}
	return &Error{Message: "Doğrulama hatası", Issues: issues}
}

// Parse istek gövdesini çözer ve doğrular.
func Parse(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Geçersiz istek gövdesi")
	}
	return Struct(out)
}

// fieldPath "CreateQuoteRequest.items[0].quantity" -> "items[0].quantity"
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "bu alan zorunlu"
	case "email":
		return "geçerli bir e-posta adresi olmalı"
	case "min":
		return fmt.Sprintf("en az %s olmalı", fe.Param())
	case "max":
		return fmt.Sprintf("en fazla %s olmalı", fe.Param())
	case "gt":
		return fmt.Sprintf("%s değerinden büyük olmalı", fe.Param())
	case "gte":
		return fmt.Sprintf("en az %s olmalı", fe.Param())
	case "lte":
		return fmt.Sprintf("en fazla %s olmalı", fe.Param())
	case "oneof":
		return fmt.Sprintf("şu değerlerden biri olmalı: %s", fe.Param())
	case "datetime":
		return fmt.Sprintf("tarih formatı %s olmalı", fe.Param())
	case "latitude", "longitude":
		return "geçerli bir koordinat olmalı"
	}
	return fmt.Sprintf("geçersiz değer (%s)", fe.Tag())
}
