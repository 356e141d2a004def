package models

import "time"

type Department struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CompanyID uint      `gorm:"index;not null;uniqueIndex:idx_department_company_name" json:"company_id"`
	Name      string    `gorm:"size:100;not null;uniqueIndex:idx_department_company_name" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Employee struct {
	ID           uint        `gorm:"primaryKey" json:"id"`
	UserID       *uint       `gorm:"uniqueIndex" json:"user_id"`
	CompanyID    uint        `gorm:"index;not null" json:"company_id"`
	DepartmentID *uint       `gorm:"index" json:"department_id"`
	Department   *Department `json:"department,omitempty"`
	FirstName    string      `gorm:"size:100;not null" json:"first_name"`
	LastName     string      `gorm:"size:100;not null" json:"last_name"`
	Email        string      `gorm:"size:100" json:"email"`
	Phone        string      `gorm:"size:30" json:"phone"`
	Position     string      `gorm:"size:100" json:"position"`
	StartDate    time.Time   `gorm:"not null" json:"start_date"` // işe giriş tarihi
	IsActive     bool        `gorm:"default:true" json:"is_active"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

func (e Employee) FullName() string {
	return e.FirstName + " " + e.LastName
}

type LeaveType string

const (
	LeaveAnnual    LeaveType = "ANNUAL"
	LeaveSick      LeaveType = "SICK"
	LeaveUnpaid    LeaveType = "UNPAID"
	LeaveMaternity LeaveType = "MATERNITY"
	LeaveOther     LeaveType = "OTHER"
)

type LeaveStatus string

const (
	LeavePending   LeaveStatus = "PENDING"
	LeaveApproved  LeaveStatus = "APPROVED"
	LeaveRejected  LeaveStatus = "REJECTED"
	LeaveCancelled LeaveStatus = "CANCELLED"
)

type LeaveRequest struct {
	ID         uint        `gorm:"primaryKey" json:"id"`
	EmployeeID uint        `gorm:"index;not null" json:"employee_id"`
	Employee   Employee    `json:"-"`
	Type       LeaveType   `gorm:"size:20;not null" json:"type"`
	StartDate  time.Time   `gorm:"index;not null" json:"start_date"`
	EndDate    time.Time   `gorm:"not null" json:"end_date"`
	Days       int         `gorm:"not null" json:"days"` // iş günü sayısı
	Status     LeaveStatus `gorm:"size:20;index;not null;default:PENDING" json:"status"`
	Reason     string      `gorm:"size:500" json:"reason"`
	ReviewedBy *uint       `json:"reviewed_by"`
	ReviewedAt *time.Time  `json:"reviewed_at"`
	ReviewNote string      `gorm:"size:500" json:"review_note"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

type TimeEntry struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	EmployeeID uint       `gorm:"index;not null" json:"employee_id"`
	Employee   Employee   `json:"-"`
	ClockIn    time.Time  `gorm:"index;not null" json:"clock_in"`
	ClockOut   *time.Time `json:"clock_out"`
	Minutes    int        `gorm:"default:0" json:"minutes"`
	Note       string     `gorm:"size:255" json:"note"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
