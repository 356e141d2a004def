package hr

import (
	"time"

	"gunes-backend/internal/models"
)

// Entitlement 4857 sayılı İş Kanunu kademelerinden genişletilmiş yıllık izin hakkı.
func Entitlement(startDate, asOf time.Time) int {
	switch y := YearsOfService(startDate, asOf); {
	case y < 5:
		return 20
	case y < 10:
		return 25
	case y < 15:
		return 30
	default:
		return 35
	}
}

// YearsOfService tamamlanmış hizmet yılı.
func YearsOfService(startDate, asOf time.Time) int {
	if asOf.Before(startDate) {
		return 0
	}
	years := asOf.Year() - startDate.Year()
	anniversary := startDate.AddDate(years, 0, 0)
	if anniversary.After(asOf) {
		years--
	}
	return years
}

// WorkingDays start ile end arası (ikisi dahil) hafta içi gün sayısı.
func WorkingDays(start, end time.Time) int {
	s := dateOnly(start)
	e := dateOnly(end)
	if e.Before(s) {
		return 0
	}
	days := 0
	for d := s; !d.After(e); d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			days++
		}
	}
	return days
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

type LeaveBalance struct {
	EmployeeID     uint `json:"employee_id"`
	Year           int  `json:"year"`
	YearsOfService int  `json:"years_of_service"`
	Entitlement    int  `json:"entitlement"`
	Used           int  `json:"used"`
	Pending        int  `json:"pending"`
	Remaining      int  `json:"remaining"`
}

// Balance yıllık izin bakiyesi; sadece ANNUAL talepler düşülür, kalan asla negatif olmaz.
func Balance(emp models.Employee, requests []models.LeaveRequest, year int, asOf time.Time) LeaveBalance {
	b := LeaveBalance{
		EmployeeID:     emp.ID,
		Year:           year,
		YearsOfService: YearsOfService(emp.StartDate, asOf),
		Entitlement:    Entitlement(emp.StartDate, asOf),
	}
	for _, r := range requests {
		if r.EmployeeID != emp.ID || r.Type != models.LeaveAnnual || r.StartDate.Year() != year {
			continue
		}
		switch r.Status {
		case models.LeaveApproved:
			b.Used += r.Days
		case models.LeavePending:
			b.Pending += r.Days
		}
	}
	b.Remaining = b.Entitlement - b.Used - b.Pending
	if b.Remaining < 0 {
		b.Remaining = 0
	}
	return b
}

// Overlaps iki tarih aralığı (dahil) kesişiyor mu.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !dateOnly(aEnd).Before(dateOnly(bStart)) && !dateOnly(bEnd).Before(dateOnly(aStart))
}
