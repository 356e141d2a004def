package quote

import (
	"time"

	"gunes-backend/internal/models"

	"github.com/shopspring/decimal"
)

type ItemBody struct {
	ProductID   *uint            `json:"product_id"`
	Description string           `json:"description" validate:"max=255"`
	Quantity    decimal.Decimal  `json:"quantity"`
	Unit        string           `json:"unit" validate:"max=20"`
	UnitPrice   *decimal.Decimal `json:"unit_price"` // boşsa ürün fiyatı
}

type QuoteBody struct {
	CompanyID    *uint            `json:"company_id"`
	CustomerID   uint             `json:"customer_id" validate:"required"`
	ProjectID    *uint            `json:"project_id"`
	PackageID    *uint            `json:"package_id"` // paket kalemleri teklife eklenir
	Currency     string           `json:"currency" validate:"omitempty,oneof=TRY USD EUR"`
	DiscountRate *decimal.Decimal `json:"discount_rate"`
	TaxRate      *decimal.Decimal `json:"tax_rate"`
	ValidUntil   string           `json:"valid_until" validate:"omitempty,datetime=2006-01-02"`
	Notes        string           `json:"notes" validate:"max=5000"`
	Items        []ItemBody       `json:"items" validate:"max=200,dive"`
}

type ItemResponse struct {
	ID          uint            `json:"id"`
	ProductID   *uint           `json:"product_id"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

type QuoteResponse struct {
	ID             uint               `json:"id"`
	QuoteNumber    string             `json:"quote_number"`
	CompanyID      uint               `json:"company_id"`
	CustomerID     uint               `json:"customer_id"`
	CustomerName   string             `json:"customer_name,omitempty"`
	ProjectID      *uint              `json:"project_id"`
	Status         models.QuoteStatus `json:"status"`
	Currency       string             `json:"currency"`
	Subtotal       decimal.Decimal    `json:"subtotal"`
	DiscountRate   decimal.Decimal    `json:"discount_rate"`
	DiscountAmount decimal.Decimal    `json:"discount_amount"`
	TaxRate        decimal.Decimal    `json:"tax_rate"`
	TaxAmount      decimal.Decimal    `json:"tax_amount"`
	Total          decimal.Decimal    `json:"total"`
	ValidUntil     time.Time          `json:"valid_until"`
	Notes          string             `json:"notes"`
	PublicToken    string             `json:"public_token"`
	SentAt         *time.Time         `json:"sent_at"`
	ViewedAt       *time.Time         `json:"viewed_at"`
	RespondedAt    *time.Time         `json:"responded_at"`
	ExpiredAt      *time.Time         `json:"expired_at"`
	CreatedAt      time.Time          `json:"created_at"`
	Items          []ItemResponse     `json:"items,omitempty"`
}

func toItemResponses(items []models.QuoteItem) []ItemResponse {
	out := make([]ItemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, ItemResponse{
			ID:          it.ID,
			ProductID:   it.ProductID,
			Description: it.Description,
			Quantity:    it.Quantity,
			Unit:        it.Unit,
			UnitPrice:   it.UnitPrice,
			LineTotal:   it.LineTotal,
		})
	}
	return out
}

func toResponse(q *models.Quote) QuoteResponse {
	return QuoteResponse{
		ID:             q.ID,
		QuoteNumber:    q.QuoteNumber,
		CompanyID:      q.CompanyID,
		CustomerID:     q.CustomerID,
		CustomerName:   q.Customer.Name,
		ProjectID:      q.ProjectID,
		Status:         q.Status,
		Currency:       q.Currency,
		Subtotal:       q.Subtotal,
		DiscountRate:   q.DiscountRate,
		DiscountAmount: q.DiscountAmount,
		TaxRate:        q.TaxRate,
		TaxAmount:      q.TaxAmount,
		Total:          q.Total,
		ValidUntil:     q.ValidUntil,
		Notes:          q.Notes,
		PublicToken:    q.PublicToken,
		SentAt:         q.SentAt,
		ViewedAt:       q.ViewedAt,
		RespondedAt:    q.RespondedAt,
		ExpiredAt:      q.ExpiredAt,
		CreatedAt:      q.CreatedAt,
		Items:          toItemResponses(q.Items),
	}
}

// PublicResponse müşteriye açık link üzerinden gösterilen alanlar.
type PublicResponse struct {
	QuoteNumber    string             `json:"quote_number"`
	CompanyName    string             `json:"company_name"`
	CompanyPhone   string             `json:"company_phone"`
	CompanyEmail   string             `json:"company_email"`
	CustomerName   string             `json:"customer_name"`
	Status         models.QuoteStatus `json:"status"`
	Currency       string             `json:"currency"`
	Subtotal       decimal.Decimal    `json:"subtotal"`
	DiscountAmount decimal.Decimal    `json:"discount_amount"`
	TaxRate        decimal.Decimal    `json:"tax_rate"`
	TaxAmount      decimal.Decimal    `json:"tax_amount"`
	Total          decimal.Decimal    `json:"total"`
	ValidUntil     time.Time          `json:"valid_until"`
	Notes          string             `json:"notes"`
	CanRespond     bool               `json:"can_respond"`
	Items          []ItemResponse     `json:"items"`
}

func toPublicResponse(q *models.Quote) PublicResponse {
	return PublicResponse{
		QuoteNumber:    q.QuoteNumber,
		CompanyName:    q.Company.Name,
		CompanyPhone:   q.Company.Phone,
		CompanyEmail:   q.Company.Email,
		CustomerName:   q.Customer.Name,
		Status:         q.Status,
		Currency:       q.Currency,
		Subtotal:       q.Subtotal,
		DiscountAmount: q.DiscountAmount,
		TaxRate:        q.TaxRate,
		TaxAmount:      q.TaxAmount,
		Total:          q.Total,
		ValidUntil:     q.ValidUntil,
		Notes:          q.Notes,
		CanRespond:     q.Status == models.QuoteSent || q.Status == models.QuoteViewed,
		Items:          toItemResponses(q.Items),
	}
}
