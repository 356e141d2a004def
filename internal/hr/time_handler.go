package hr

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"gunes-backend/internal/auth"
	"gunes-backend/internal/database"
	"gunes-backend/internal/models"
	"gunes-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/juju/clock"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

type ClockRequest struct {
	EmployeeID *uint  `json:"employee_id"`
	Note       string `json:"note" validate:"max=255"`
}

// POST /api/hr/time-entries/clock-in
func ClockInHandler(clk clock.Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ClockRequest
		if err := validation.Parse(c, &body); err != nil {
			return err
		}
		emp, err := resolveEmployee(c, body.EmployeeID)
		if err != nil {
			return err
		}
		if !emp.IsActive {
			return fiber.NewError(fiber.StatusBadRequest, "Pasif çalışan giriş yapamaz")
		}

		var open int64
		database.DB.Model(&models.TimeEntry{}).
			Where("employee_id = ? AND clock_out IS NULL", emp.ID).
			Count(&open)
		if open > 0 {
			return fiber.NewError(fiber.StatusConflict, "Açık bir mesai kaydı zaten var")
		}

		entry := models.TimeEntry{
			EmployeeID: emp.ID,
			ClockIn:    clk.Now(),
			Note:       strings.TrimSpace(body.Note),
		}
		if err := database.DB.Create(&entry).Error; err != nil {
			// Aynı anda iki giriş isteği: kısmi unique index yakalar
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fiber.NewError(fiber.StatusConflict, "Açık bir mesai kaydı zaten var")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Mesai girişi kaydedilemedi")
		}
		return c.Status(fiber.StatusCreated).JSON(entry)
	}
}

// POST /api/hr/time-entries/clock-out
func ClockOutHandler(clk clock.Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ClockRequest
		if err := validation.Parse(c, &body); err != nil {
			return err
		}
		emp, err := resolveEmployee(c, body.EmployeeID)
		if err != nil {
			return err
		}

		var entry models.TimeEntry
		if err := database.DB.
			Where("employee_id = ? AND clock_out IS NULL", emp.ID).
			First(&entry).Error; err != nil {
			return fiber.NewError(fiber.StatusConflict, "Açık mesai kaydı bulunamadı")
		}

		now := clk.Now()
		entry.ClockOut = &now
		entry.Minutes = minutesBetween(entry.ClockIn, now)
		if note := strings.TrimSpace(body.Note); note != "" {
			entry.Note = note
		}
		if err := database.DB.Save(&entry).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Mesai çıkışı kaydedilemedi")
		}
		return c.JSON(entry)
	}
}

type timeEntryRow struct {
	models.TimeEntry
	EmployeeName string `json:"employee_name"`
}

// timeEntriesQuery listeleme ve export için ortak filtre: ?employee_id=&from=&to=
func timeEntriesQuery(c *fiber.Ctx) (*gorm.DB, error) {
	id, err := auth.CurrentIdentity(c)
	if err != nil {
		return nil, err
	}

	dbq := database.DB.Model(&models.TimeEntry{}).
		Select("time_entries.*, employees.first_name || ' ' || employees.last_name AS employee_name").
		Joins("JOIN employees ON employees.id = time_entries.employee_id")

	if id.Role == models.RoleEmployee {
		dbq = dbq.Where("employees.user_id = ?", id.UserID)
	} else {
		companyID, err := auth.ResolveCompanyFilter(c)
		if err != nil {
			return nil, err
		}
		if companyID != nil {
			dbq = dbq.Where("employees.company_id = ?", *companyID)
		}
		if emp := c.QueryInt("employee_id"); emp > 0 {
			dbq = dbq.Where("time_entries.employee_id = ?", emp)
		}
	}

	if from := c.Query("from"); from != "" {
		d, err := parseDate(from)
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, "from geçersiz")
		}
		dbq = dbq.Where("time_entries.clock_in >= ?", d)
	}
	if to := c.Query("to"); to != "" {
		d, err := parseDate(to)
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, "to geçersiz")
		}
		dbq = dbq.Where("time_entries.clock_in < ?", d.AddDate(0, 0, 1))
	}
	return dbq.Order("time_entries.clock_in asc, time_entries.id asc"), nil
}

// GET /api/hr/time-entries
func ListTimeEntriesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq, err := timeEntriesQuery(c)
		if err != nil {
			return err
		}
		var rows []timeEntryRow
		if err := dbq.Scan(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Mesai kayıtları listelenemedi")
		}
		return c.JSON(rows)
	}
}

// GET /api/hr/time-entries/export?from=2026-01-01&to=2026-01-31
// İki sayfalı XLSX: tüm kayıtlar ve çalışan bazlı toplam.
func ExportTimeEntriesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq, err := timeEntriesQuery(c)
		if err != nil {
			return err
		}
		var rows []timeEntryRow
		if err := dbq.Scan(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Mesai kayıtları okunamadı")
		}

		buf, err := buildTimesheet(rows)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Excel dosyası oluşturulamadı")
		}

		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="mesai.xlsx"`)
		return c.Send(buf.Bytes())
	}
}

func buildTimesheet(rows []timeEntryRow) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	const detail = "Mesai"
	const summary = "Özet"
	if err := f.SetSheetName("Sheet1", detail); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(summary); err != nil {
		return nil, err
	}

	headers := []string{"Çalışan", "Giriş", "Çıkış", "Süre (dk)", "Not"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(detail, cell, h)
	}

	type total struct {
		name    string
		minutes int
		days    map[string]bool
	}
	totals := map[uint]*total{}
	order := []uint{}

	for i, r := range rows {
		row := i + 2
		clockOut := ""
		if r.ClockOut != nil {
			clockOut = r.ClockOut.Format("02.01.2006 15:04")
		}
		f.SetCellValue(detail, fmt.Sprintf("A%d", row), r.EmployeeName)
		f.SetCellValue(detail, fmt.Sprintf("B%d", row), r.ClockIn.Format("02.01.2006 15:04"))
		f.SetCellValue(detail, fmt.Sprintf("C%d", row), clockOut)
		f.SetCellValue(detail, fmt.Sprintf("D%d", row), r.Minutes)
		f.SetCellValue(detail, fmt.Sprintf("E%d", row), r.Note)

		t, ok := totals[r.EmployeeID]
		if !ok {
			t = &total{name: r.EmployeeName, days: map[string]bool{}}
			totals[r.EmployeeID] = t
			order = append(order, r.EmployeeID)
		}
		t.minutes += r.Minutes
		t.days[r.ClockIn.Format("2006-01-02")] = true
	}

	f.SetCellValue(summary, "A1", "Çalışan")
	f.SetCellValue(summary, "B1", "Gün")
	f.SetCellValue(summary, "C1", "Toplam Saat")
	for i, empID := range order {
		t := totals[empID]
		row := i + 2
		f.SetCellValue(summary, fmt.Sprintf("A%d", row), t.name)
		f.SetCellValue(summary, fmt.Sprintf("B%d", row), len(t.days))
		f.SetCellValue(summary, fmt.Sprintf("C%d", row), float64(t.minutes)/60)
	}

	f.SetColWidth(detail, "A", "A", 28)
	f.SetColWidth(detail, "B", "C", 18)
	f.SetColWidth(detail, "E", "E", 40)
	f.SetColWidth(summary, "A", "A", 28)

	return f.WriteToBuffer()
}

// minutesBetween tamamlanmış dakika; çıkış girişten önceyse 0.
func minutesBetween(in, out time.Time) int {
	if out.Before(in) {
		return 0
	}
	return int(out.Sub(in).Minutes())
}
