package quote

import (
	"fmt"

	"gunes-backend/internal/apperr"
	"gunes-backend/internal/auth"
	"gunes-backend/internal/database"
	"gunes-backend/internal/delivery"
	"gunes-backend/internal/models"
	"gunes-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/juju/clock"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type SendBody struct {
	Channels []string `json:"channels" validate:"required,min=1,max=3,dive,oneof=email whatsapp sms"`
}

type SendResponse struct {
	Quote  QuoteResponse   `json:"quote"`
	Report delivery.Report `json:"report"`
}

// PublicLink müşterinin teklifi görüntüleyeceği adres.
func PublicLink(baseURL, token string) string {
	return fmt.Sprintf("%s/teklif/%s", baseURL, token)
}

func quoteInfo(q *models.Quote, baseURL string) delivery.QuoteInfo {
	return delivery.QuoteInfo{
		Number:       q.QuoteNumber,
		CompanyName:  q.Company.Name,
		CustomerName: q.Customer.Name,
		Total:        q.Total,
		Currency:     q.Currency,
		ValidUntil:   q.ValidUntil,
		Link:         PublicLink(baseURL, q.PublicToken),
	}
}

func recipientOf(cu models.Customer) string {
	switch {
	case cu.Email != "" && cu.Phone != "":
		return cu.Email + " / " + cu.Phone
	case cu.Email != "":
		return cu.Email
	}
	return cu.Phone
}

// POST /api/quotes/:id/send
// Seçilen her kanal bir kez denenir; en az biri başarılıysa taslak SENT olur.
func SendHandler(registry *delivery.Registry, baseURL string, clk clock.Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body SendBody
		if err := validation.Parse(c, &body); err != nil {
			return err
		}
		id, err := auth.CurrentIdentity(c)
		if err != nil {
			return err
		}
		channels, err := registry.Select(body.Channels)
		if err != nil {
			return apperr.ToFiber(err)
		}

		q, err := loadQuote(c, "Company", "Customer", "Items")
		if err != nil {
			return err
		}
		now := clk.Now()
		if err := expireIfDue(database.DB, q, now); err != nil {
			return err
		}
		switch q.Status {
		case models.QuoteDraft, models.QuoteSent, models.QuoteViewed:
		case models.QuoteExpired:
			return fiber.NewError(fiber.StatusConflict, "Teklifin geçerlilik süresi dolmuş")
		default:
			return fiber.NewError(fiber.StatusConflict, "Yanıtlanmış teklif tekrar gönderilemez")
		}

		msg, err := delivery.QuoteMessage(quoteInfo(q, baseURL), delivery.Recipient{
			Name:  q.Customer.Name,
			Email: q.Customer.Email,
			Phone: q.Customer.Phone,
		})
		if err != nil {
			return err
		}

		report := delivery.Deliver(c.UserContext(), channels, msg)

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			rows := make([]models.QuoteDelivery, 0, len(report.Results))
			for _, r := range report.Results {
				rows = append(rows, models.QuoteDelivery{
					QuoteID:   q.ID,
					Channel:   r.Channel,
					Recipient: recipientOf(q.Customer),
					Success:   r.Success,
					Error:     truncate(r.Error, 500),
					SentBy:    id.UserID,
					CreatedAt: now,
				})
			}
			if err := tx.Create(&rows).Error; err != nil {
				return err
			}
			if !report.Success || q.Status != models.QuoteDraft {
				return nil
			}
			res := tx.Model(&models.Quote{}).
				Where("id = ? AND status = ?", q.ID, models.QuoteDraft).
				Updates(map[string]interface{}{"status": models.QuoteSent, "sent_at": now})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 1 {
				q.Status = models.QuoteSent
				q.SentAt = &now
			}
			return nil
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Gönderim sonucu kaydedilemedi")
		}

		log.Info().
			Str("quote", q.QuoteNumber).
			Bool("success", report.Success).
			Int("channels", len(channels)).
			Msg("teklif gönderildi")

		return c.JSON(SendResponse{Quote: toResponse(q), Report: report})
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
