package hr

import (
	"errors"
	"strings"
	"time"

	"gunes-backend/internal/auth"
	"gunes-backend/internal/database"
	"gunes-backend/internal/models"
	"gunes-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type DepartmentRequest struct {
	CompanyID *uint  `json:"company_id"` // sadece admin için
	Name      string `json:"name" validate:"required,max=100"`
}

type EmployeeRequest struct {
	CompanyID    *uint  `json:"company_id"`
	UserID       *uint  `json:"user_id"`
	DepartmentID *uint  `json:"department_id"`
	FirstName    string `json:"first_name" validate:"required,max=100"`
	LastName     string `json:"last_name" validate:"required,max=100"`
	Email        string `json:"email" validate:"omitempty,email"`
	Phone        string `json:"phone" validate:"max=30"`
	Position     string `json:"position" validate:"max=100"`
	StartDate    string `json:"start_date" validate:"required,datetime=2006-01-02"`
	IsActive     *bool  `json:"is_active"`
}

// POST /api/hr/departments
func CreateDepartmentHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body DepartmentRequest
		if err := validation.Parse(c, &body); err != nil {
			return err
		}
		companyID, err := auth.ResolveCompanyIDFromBody(c, body.CompanyID)
		if err != nil {
			return err
		}

		dep := models.Department{CompanyID: companyID, Name: strings.TrimSpace(body.Name)}
		if err := database.DB.Create(&dep).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fiber.NewError(fiber.StatusConflict, "Bu isimde bir departman zaten var")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Departman oluşturulamadı")
		}
		return c.Status(fiber.StatusCreated).JSON(dep)
	}
}

// GET /api/hr/departments
func ListDepartmentsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		companyID, err := auth.ResolveCompanyFilter(c)
		if err != nil {
			return err
		}
		dbq := database.DB.Model(&models.Department{})
		if companyID != nil {
			dbq = dbq.Where("company_id = ?", *companyID)
		}
		var deps []models.Department
		if err := dbq.Order("name asc").Find(&deps).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Departmanlar listelenemedi")
		}
		return c.JSON(deps)
	}
}

// PUT /api/hr/departments/:id
func UpdateDepartmentHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body DepartmentRequest
		if err := validation.Parse(c, &body); err != nil {
			return err
		}
		var dep models.Department
		if err := database.DB.First(&dep, "id = ?", c.Params("id")).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Departman bulunamadı")
		}
		if err := auth.CanAccessCompany(c, dep.CompanyID); err != nil {
			return err
		}

		dep.Name = strings.TrimSpace(body.Name)
		if err := database.DB.Save(&dep).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fiber.NewError(fiber.StatusConflict, "Bu isimde bir departman zaten var")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Departman güncellenemedi")
		}
		return c.JSON(dep)
	}
}

// DELETE /api/hr/departments/:id
func DeleteDepartmentHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var dep models.Department
		if err := database.DB.First(&dep, "id = ?", c.Params("id")).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Departman bulunamadı")
		}
		if err := auth.CanAccessCompany(c, dep.CompanyID); err != nil {
			return err
		}

		// Çalışanların departman bağlantısı kopar, kayıtları silinmez
		err := database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&models.Employee{}).
				Where("department_id = ?", dep.ID).
				Update("department_id", nil).Error; err != nil {
				return err
			}
			return tx.Delete(&dep).Error
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Departman silinemedi")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s, time.UTC)
}

// checkDepartment departmanın aynı firmaya ait olduğunu doğrular.
func checkDepartment(companyID uint, departmentID *uint) error {
	if departmentID == nil {
		return nil
	}
	var count int64
	database.DB.Model(&models.Department{}).
		Where("id = ? AND company_id = ?", *departmentID, companyID).
		Count(&count)
	if count == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "Departman bulunamadı")
	}
	return nil
}

// POST /api/hr/employees
func CreateEmployeeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body EmployeeRequest
		if err := validation.Parse(c, &body); err != nil {
			return err
		}
		companyID, err := auth.ResolveCompanyIDFromBody(c, body.CompanyID)
		if err != nil {
			return err
		}
		if err := checkDepartment(companyID, body.DepartmentID); err != nil {
			return err
		}
		start, err := parseDate(body.StartDate)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "start_date geçersiz")
		}

		emp := models.Employee{
			UserID:       body.UserID,
			CompanyID:    companyID,
			DepartmentID: body.DepartmentID,
			FirstName:    strings.TrimSpace(body.FirstName),
			LastName:     strings.TrimSpace(body.LastName),
			Email:        strings.TrimSpace(strings.ToLower(body.Email)),
			Phone:        body.Phone,
			Position:     body.Position,
			StartDate:    start,
			IsActive:     true,
		}
		if err := database.DB.Create(&emp).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fiber.NewError(fiber.StatusConflict, "Bu kullanıcı zaten bir çalışana bağlı")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Çalışan oluşturulamadı")
		}
		return c.Status(fiber.StatusCreated).JSON(emp)
	}
}

// GET /api/hr/employees?department_id=1&active=true
func ListEmployeesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		companyID, err := auth.ResolveCompanyFilter(c)
		if err != nil {
			return err
		}
		dbq := database.DB.Preload("Department")
		if companyID != nil {
			dbq = dbq.Where("company_id = ?", *companyID)
		}
		if dep := c.QueryInt("department_id"); dep > 0 {
			dbq = dbq.Where("department_id = ?", dep)
		}
		if c.QueryBool("active") {
			dbq = dbq.Where("is_active = ?", true)
		}

		var emps []models.Employee
		if err := dbq.Order("first_name asc, last_name asc").Find(&emps).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Çalışanlar listelenemedi")
		}
		return c.JSON(emps)
	}
}

// loadEmployee çalışanı yükler ve firma erişimini kontrol eder.
func loadEmployee(c *fiber.Ctx, id any) (models.Employee, error) {
	var emp models.Employee
	if err := database.DB.Preload("Department").First(&emp, "id = ?", id).Error; err != nil {
		return emp, fiber.NewError(fiber.StatusNotFound, "Çalışan bulunamadı")
	}
	if err := auth.CanAccessCompany(c, emp.CompanyID); err != nil {
		return emp, err
	}
	return emp, nil
}

// GET /api/hr/employees/:id
func GetEmployeeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		emp, err := loadEmployee(c, c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(emp)
	}
}

// PUT /api/hr/employees/:id
func UpdateEmployeeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body EmployeeRequest
		if err := validation.Parse(c, &body); err != nil {
			return err
		}
		emp, err := loadEmployee(c, c.Params("id"))
		if err != nil {
			return err
		}
		if err := checkDepartment(emp.CompanyID, body.DepartmentID); err != nil {
			return err
		}
		start, err := parseDate(body.StartDate)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "start_date geçersiz")
		}

		emp.Department = nil
		emp.DepartmentID = body.DepartmentID
		emp.FirstName = strings.TrimSpace(body.FirstName)
		emp.LastName = strings.TrimSpace(body.LastName)
		emp.Email = strings.TrimSpace(strings.ToLower(body.Email))
		emp.Phone = body.Phone
		emp.Position = body.Position
		emp.StartDate = start
		if body.UserID != nil {
			emp.UserID = body.UserID
		}
		if body.IsActive != nil {
			emp.IsActive = *body.IsActive
		}

		if err := database.DB.Save(&emp).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fiber.NewError(fiber.StatusConflict, "Bu kullanıcı zaten bir çalışana bağlı")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "Çalışan güncellenemedi")
		}
		return c.JSON(emp)
	}
}

// DELETE /api/hr/employees/:id
// İzin ve mesai geçmişi korunur; çalışan pasife alınır.
func DeleteEmployeeHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		emp, err := loadEmployee(c, c.Params("id"))
		if err != nil {
			return err
		}
		if err := database.DB.Model(&emp).Update("is_active", false).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Çalışan pasife alınamadı")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
