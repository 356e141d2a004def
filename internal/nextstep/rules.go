// Package nextstep satış hattındaki talepler için sıradaki adımları türetir.
package nextstep

import (
	"sort"
	"time"

	"gunes-backend/internal/models"
)

type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

func (p Priority) rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	}
	return 2
}

type rule struct {
	Type       string
	Title      string
	OffsetDays int
	Priority   Priority
}

var rules = map[models.RequestStatus][]rule{
	models.RequestNew: {
		{"CONTACT_CUSTOMER", "Müşteriyle iletişime geç", 1, PriorityHigh},
	},
	models.RequestContacted: {
		{"SCHEDULE_SITE_VISIT", "Keşif randevusu planla", 3, PriorityMedium},
	},
	models.RequestSiteVisitScheduled: {
		{"COMPLETE_SITE_VISIT", "Keşfi tamamla", 7, PriorityMedium},
	},
	models.RequestSiteVisitDone: {
		{"PREPARE_QUOTE", "Teklif hazırla", 2, PriorityHigh},
	},
	models.RequestQuoteSent: {
		{"FOLLOW_UP_QUOTE", "Teklif takibi yap", 3, PriorityMedium},
		{"CALL_CUSTOMER", "Müşteriyi ara", 7, PriorityLow},
	},
	models.RequestNegotiation: {
		{"FOLLOW_UP_NEGOTIATION", "Pazarlığı sonuçlandır", 2, PriorityHigh},
	},
	models.RequestWon: {
		{"PLAN_INSTALLATION", "Kurulumu planla", 5, PriorityHigh},
		{"COLLECT_DOCUMENTS", "Evrakları topla", 10, PriorityMedium},
	},
	models.RequestLost: nil,
}

type Step struct {
	RequestID    uint                 `json:"request_id"`
	CustomerName string               `json:"customer_name"`
	Status       models.RequestStatus `json:"status"`
	Type         string               `json:"type"`
	Title        string               `json:"title"`
	Priority     Priority             `json:"priority"`
	DueDate      time.Time            `json:"due_date"`
	IsOverdue    bool                 `json:"is_overdue"`
}

// ForRequest tek bir talebin adımları; sıralama tablodaki sıradır.
func ForRequest(r models.ProjectRequest, now time.Time) []Step {
	defs := rules[r.Status]
	steps := make([]Step, 0, len(defs))
	for _, d := range defs {
		due := r.StatusChangedAt.AddDate(0, 0, d.OffsetDays)
		steps = append(steps, Step{
			RequestID:    r.ID,
			CustomerName: r.CustomerName,
			Status:       r.Status,
			Type:         d.Type,
			Title:        d.Title,
			Priority:     d.Priority,
			DueDate:      due,
			IsOverdue:    now.After(due),
		})
	}
	return steps
}

// Derive tüm taleplerin adımlarını öncelik, son tarih ve talep id'sine göre sıralar.
func Derive(requests []models.ProjectRequest, now time.Time) []Step {
	steps := []Step{}
	for _, r := range requests {
		steps = append(steps, ForRequest(r, now)...)
	}
	sort.SliceStable(steps, func(i, j int) bool {
		a, b := steps[i], steps[j]
		if a.Priority.rank() != b.Priority.rank() {
			return a.Priority.rank() < b.Priority.rank()
		}
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.Before(b.DueDate)
		}
		return a.RequestID < b.RequestID
	})
	return steps
}
