package hr

import (
	"fmt"
	"strings"
	"time"

	"gunes-backend/internal/auth"
	"gunes-backend/internal/database"
	"gunes-backend/internal/models"
	"gunes-backend/internal/notification"
	"gunes-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/juju/clock"
)

type CreateLeaveRequest struct {
	EmployeeID *uint  `json:"employee_id"` // EMPLOYEE rolünde token'dan bulunur
	Type       string `json:"type" validate:"required,oneof=ANNUAL SICK UNPAID MATERNITY OTHER"`
	StartDate  string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate    string `json:"end_date" validate:"required,datetime=2006-01-02"`
	Reason     string `json:"reason" validate:"max=500"`
}

type ReviewLeaveRequest struct {
	Status string `json:"status" validate:"required,oneof=APPROVED REJECTED"`
	Note   string `json:"note" validate:"max=500"`
}

// resolveEmployee EMPLOYEE rolü için kendi kaydını, firma/admin için verilen çalışanı döndürür.
func resolveEmployee(c *fiber.Ctx, employeeID *uint) (models.Employee, error) {
	id, err := auth.CurrentIdentity(c)
	if err != nil {
		return models.Employee{}, err
	}
	if id.Role == models.RoleEmployee {
		var emp models.Employee
		if err := database.DB.Where("user_id = ?", id.UserID).First(&emp).Error; err != nil {
			return emp, fiber.NewError(fiber.StatusForbidden, "Kullanıcıya bağlı çalışan kaydı yok")
		}
		if employeeID != nil && *employeeID != emp.ID {
			return emp, fiber.NewError(fiber.StatusForbidden, "Sadece kendi kayıtlarınız için işlem yapabilirsiniz")
		}
		return emp, nil
	}
	if employeeID == nil || *employeeID == 0 {
		return models.Employee{}, fiber.NewError(fiber.StatusBadRequest, "employee_id zorunlu")
	}
	return loadEmployee(c, *employeeID)
}

// ensureSelfOrManager EMPLOYEE rolündeki kullanıcı sadece kendi kaydını görebilir.
func ensureSelfOrManager(c *fiber.Ctx, emp models.Employee) error {
	id, err := auth.CurrentIdentity(c)
	if err != nil {
		return err
	}
	if id.Role == models.RoleEmployee && (emp.UserID == nil || *emp.UserID != id.UserID) {
		return fiber.NewError(fiber.StatusForbidden, "Bu kayda erişim yetkiniz yok")
	}
	return nil
}

func employeeBalance(emp models.Employee, year int, asOf time.Time) (LeaveBalance, error) {
	var reqs []models.LeaveRequest
	err := database.DB.
		Where("employee_id = ? AND type = ? AND status IN ?", emp.ID, models.LeaveAnnual,
			[]models.LeaveStatus{models.LeaveApproved, models.LeavePending}).
		Find(&reqs).Error
	if err != nil {
		return LeaveBalance{}, err
	}
	return Balance(emp, reqs, year, asOf), nil
}

// GET /api/hr/employees/:id/leave-balance?year=2026
func LeaveBalanceHandler(clk clock.Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		emp, err := loadEmployee(c, c.Params("id"))
		if err != nil {
			return err
		}
		if err := ensureSelfOrManager(c, emp); err != nil {
			return err
		}

		now := clk.Now()
		year := c.QueryInt("year", now.Year())
		b, err := employeeBalance(emp, year, now)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "İzin bakiyesi hesaplanamadı")
		}
		return c.JSON(b)
	}
}

// GET /api/hr/me/leave-balance?year=2026
// Çalışanın kendi bakiyesi; employee id'si token'dan bulunur.
func MyLeaveBalanceHandler(clk clock.Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		emp, err := resolveEmployee(c, nil)
		if err != nil {
			return err
		}
		now := clk.Now()
		b, err := employeeBalance(emp, c.QueryInt("year", now.Year()), now)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "İzin bakiyesi hesaplanamadı")
		}
		return c.JSON(b)
	}
}

// POST /api/hr/leave-requests
func CreateLeaveRequestHandler(clk clock.Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateLeaveRequest
		if err := validation.Parse(c, &body); err != nil {
			return err
		}
		emp, err := resolveEmployee(c, body.EmployeeID)
		if err != nil {
			return err
		}
		if !emp.IsActive {
			return fiber.NewError(fiber.StatusBadRequest, "Pasif çalışan için izin talebi açılamaz")
		}

		start, err := parseDate(body.StartDate)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "start_date geçersiz")
		}
		end, err := parseDate(body.EndDate)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "end_date geçersiz")
		}
		if end.Before(start) {
			return fiber.NewError(fiber.StatusBadRequest, "Bitiş tarihi başlangıçtan önce olamaz")
		}
		days := WorkingDays(start, end)
		if days == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Seçilen aralıkta iş günü yok")
		}

		var active []models.LeaveRequest
		if err := database.DB.
			Where("employee_id = ? AND status IN ?", emp.ID,
				[]models.LeaveStatus{models.LeavePending, models.LeaveApproved}).
			Find(&active).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "İzin talepleri okunamadı")
		}
		for _, r := range active {
			if Overlaps(start, end, r.StartDate, r.EndDate) {
				return fiber.NewError(fiber.StatusConflict, "Bu tarihlerle çakışan bir izin talebi var")
			}
		}

		leaveType := models.LeaveType(body.Type)
		if leaveType == models.LeaveAnnual {
			b := Balance(emp, active, start.Year(), clk.Now())
			if days > b.Remaining {
				return fiber.NewError(fiber.StatusBadRequest,
					fmt.Sprintf("Yetersiz yıllık izin bakiyesi (kalan %d gün, talep %d gün)", b.Remaining, days))
			}
		}

		req := models.LeaveRequest{
			EmployeeID: emp.ID,
			Type:       leaveType,
			StartDate:  start,
			EndDate:    end,
			Days:       days,
			Status:     models.LeavePending,
			Reason:     strings.TrimSpace(body.Reason),
		}
		if err := database.DB.Create(&req).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "İzin talebi oluşturulamadı")
		}

		notification.NotifyCompany(emp.CompanyID, notification.Payload{
			Type:    notification.TypeLeaveRequested,
			Title:   "Yeni izin talebi",
			Message: fmt.Sprintf("%s %d günlük izin talep etti.", emp.FullName(), days),
			Link:    "/hr/leave-requests",
		})

		return c.Status(fiber.StatusCreated).JSON(req)
	}
}

// GET /api/hr/leave-requests?status=PENDING&employee_id=1&year=2026
func ListLeaveRequestsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := auth.CurrentIdentity(c)
		if err != nil {
			return err
		}

		dbq := database.DB.Model(&models.LeaveRequest{}).
			Joins("JOIN employees ON employees.id = leave_requests.employee_id")

		if id.Role == models.RoleEmployee {
			dbq = dbq.Where("employees.user_id = ?", id.UserID)
		} else {
			companyID, err := auth.ResolveCompanyFilter(c)
			if err != nil {
				return err
			}
			if companyID != nil {
				dbq = dbq.Where("employees.company_id = ?", *companyID)
			}
			if emp := c.QueryInt("employee_id"); emp > 0 {
				dbq = dbq.Where("leave_requests.employee_id = ?", emp)
			}
		}
		if status := c.Query("status"); status != "" {
			dbq = dbq.Where("leave_requests.status = ?", status)
		}
		if year := c.QueryInt("year"); year > 0 {
			from := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
			dbq = dbq.Where("leave_requests.start_date >= ? AND leave_requests.start_date < ?", from, from.AddDate(1, 0, 0))
		}

		var reqs []models.LeaveRequest
		if err := dbq.Order("leave_requests.start_date desc, leave_requests.id desc").Find(&reqs).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "İzin talepleri listelenemedi")
		}
		return c.JSON(reqs)
	}
}

func loadLeaveRequest(c *fiber.Ctx) (models.LeaveRequest, error) {
	var req models.LeaveRequest
	if err := database.DB.Preload("Employee").First(&req, "id = ?", c.Params("id")).Error; err != nil {
		return req, fiber.NewError(fiber.StatusNotFound, "İzin talebi bulunamadı")
	}
	if err := auth.CanAccessCompany(c, req.Employee.CompanyID); err != nil {
		return req, err
	}
	return req, nil
}

// PUT /api/hr/leave-requests/:id/review
// Sadece firma sahibi ya da admin; kimse kendi talebini değerlendiremez.
func ReviewLeaveRequestHandler(clk clock.Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body ReviewLeaveRequest
		if err := validation.Parse(c, &body); err != nil {
			return err
		}
		if err := auth.EnsureManager(c); err != nil {
			return err
		}
		id, err := auth.CurrentIdentity(c)
		if err != nil {
			return err
		}
		req, err := loadLeaveRequest(c)
		if err != nil {
			return err
		}
		if req.Employee.UserID != nil && *req.Employee.UserID == id.UserID {
			return fiber.NewError(fiber.StatusForbidden, "Kendi izin talebinizi değerlendiremezsiniz")
		}

		now := clk.Now()
		reviewer := id.UserID
		// Eşzamanlı iki onay/ret isteğinden sadece biri uygulanır
		res := database.DB.Model(&models.LeaveRequest{}).
			Where("id = ? AND status = ?", req.ID, models.LeavePending).
			Updates(map[string]interface{}{
				"status":      body.Status,
				"reviewed_by": reviewer,
				"reviewed_at": now,
				"review_note": strings.TrimSpace(body.Note),
			})
		if res.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "İzin talebi güncellenemedi")
		}
		if res.RowsAffected == 0 {
			return fiber.NewError(fiber.StatusConflict, "Sadece bekleyen talepler değerlendirilebilir")
		}

		req.Status = models.LeaveStatus(body.Status)
		req.ReviewedBy = &reviewer
		req.ReviewedAt = &now
		req.ReviewNote = strings.TrimSpace(body.Note)

		if req.Employee.UserID != nil {
			title := "İzin talebiniz onaylandı"
			if req.Status == models.LeaveRejected {
				title = "İzin talebiniz reddedildi"
			}
			notification.NotifyUser(*req.Employee.UserID, notification.Payload{
				Type:    notification.TypeLeaveReviewed,
				Title:   title,
				Message: fmt.Sprintf("%s - %s", req.StartDate.Format("02.01.2006"), req.EndDate.Format("02.01.2006")),
				Link:    "/hr/my-leaves",
			})
		}

		return c.JSON(req)
	}
}

// PUT /api/hr/leave-requests/:id/cancel
// Bekleyen ya da henüz başlamamış onaylı talepler iptal edilebilir.
func CancelLeaveRequestHandler(clk clock.Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, err := loadLeaveRequest(c)
		if err != nil {
			return err
		}
		if err := ensureSelfOrManager(c, req.Employee); err != nil {
			return err
		}

		now := clk.Now()
		switch {
		case req.Status == models.LeavePending:
		case req.Status == models.LeaveApproved && req.StartDate.After(now):
		default:
			return fiber.NewError(fiber.StatusConflict, "Bu izin talebi iptal edilemez")
		}

		if err := database.DB.Model(&models.LeaveRequest{}).
			Where("id = ?", req.ID).
			Update("status", models.LeaveCancelled).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "İzin talebi iptal edilemedi")
		}
		req.Status = models.LeaveCancelled
		return c.JSON(req)
	}
}
