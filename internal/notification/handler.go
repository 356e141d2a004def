package notification

import (
	"time"

	"gunes-backend/internal/auth"
	"gunes-backend/internal/database"
	"gunes-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GET /api/notifications?unread=true&limit=50
func ListHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.CurrentIdentity(c)
		if err != nil {
			return err
		}

		limit := c.QueryInt("limit", 50)
		if limit <= 0 || limit > 200 {
			limit = 50
		}

		dbq := database.DB.Where("user_id = ?", id.UserID)
		if c.QueryBool("unread") {
			dbq = dbq.Where("is_read = ?", false)
		}

		var rows []models.Notification
		if err := dbq.Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Bildirimler listelenemedi")
		}

		var unread int64
		database.DB.Model(&models.Notification{}).
			Where("user_id = ? AND is_read = ?", id.UserID, false).
			Count(&unread)

		return c.JSON(fiber.Map{
			"items":        rows,
			"unread_count": unread,
		})
	}
}

// PUT /api/notifications/:id/read
func MarkReadHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.CurrentIdentity(c)
		if err != nil {
			return err
		}

		now := time.Now()
		res := database.DB.Model(&models.Notification{}).
			Where("id = ? AND user_id = ?", c.Params("id"), id.UserID).
			Updates(map[string]interface{}{"is_read": true, "read_at": now})
		if res.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Bildirim güncellenemedi")
		}
		if res.RowsAffected == 0 {
			return fiber.NewError(fiber.StatusNotFound, "Bildirim bulunamadı")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// PUT /api/notifications/read-all
func MarkAllReadHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.CurrentIdentity(c)
		if err != nil {
			return err
		}

		res := database.DB.Model(&models.Notification{}).
			Where("user_id = ? AND is_read = ?", id.UserID, false).
			Updates(map[string]interface{}{"is_read": true, "read_at": time.Now()})
		if res.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Bildirimler güncellenemedi")
		}
		return c.JSON(fiber.Map{"updated": res.RowsAffected})
	}
}
