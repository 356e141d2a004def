package quote

import (
	"fmt"
	"strings"
	"time"

	"gunes-backend/internal/auth"
	"gunes-backend/internal/config"
	"gunes-backend/internal/database"
	"gunes-backend/internal/models"
	"gunes-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultValidDays = 30

func newQuoteNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("TKL-%s-%s", now.Format("20060102"), suffix)
}

func newPublicToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// catalogScope firmanın kendi ürünleri ve platform kataloğu.
func catalogScope(db *gorm.DB, companyID uint) *gorm.DB {
	return db.Where("company_id = ? OR company_id IS NULL", companyID)
}

// buildItems gövdedeki kalemleri (ve varsa paket içeriğini) teklif kalemlerine çevirir.
func buildItems(companyID uint, body *QuoteBody) ([]models.QuoteItem, error) {
	items := make([]models.QuoteItem, 0, len(body.Items))

	for i, ib := range body.Items {
		if !ib.Quantity.IsPositive() {
			return nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("items[%d].quantity sıfırdan büyük olmalı", i))
		}
		item := models.QuoteItem{
			ProductID:   ib.ProductID,
			Description: strings.TrimSpace(ib.Description),
			Quantity:    ib.Quantity,
			Unit:        ib.Unit,
		}

		if ib.ProductID != nil {
			var p models.Product
			if err := catalogScope(database.DB, companyID).First(&p, "id = ?", *ib.ProductID).Error; err != nil {
				return nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("items[%d]: ürün bulunamadı", i))
			}
			if item.Description == "" {
				item.Description = p.Name
			}
			if item.Unit == "" {
				item.Unit = p.Unit
			}
			item.UnitPrice = p.UnitPrice
		} else if item.Description == "" {
			return nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("items[%d].description zorunlu", i))
		}

		if ib.UnitPrice != nil {
			item.UnitPrice = *ib.UnitPrice
		} else if ib.ProductID == nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("items[%d].unit_price zorunlu", i))
		}
		if item.UnitPrice.IsNegative() {
			return nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("items[%d].unit_price negatif olamaz", i))
		}
		items = append(items, item)
	}

	if body.PackageID != nil {
		var pkg models.Package
		err := catalogScope(database.DB, companyID).
			Preload("Items.Product").
			First(&pkg, "id = ?", *body.PackageID).Error
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, "Paket bulunamadı")
		}
		for _, pi := range pkg.Items {
			productID := pi.ProductID
			items = append(items, models.QuoteItem{
				ProductID:   &productID,
				Description: pi.Product.Name,
				Quantity:    pi.Quantity,
				Unit:        pi.Product.Unit,
				UnitPrice:   pi.Product.UnitPrice,
			})
		}
	}

	if len(items) == 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Teklifte en az bir kalem olmalı")
	}
	return items, nil
}

// applyBody kalemleri ve oranları teklife yazar, toplamları hesaplar.
func applyBody(q *models.Quote, body *QuoteBody, items []models.QuoteItem, now time.Time) error {
	q.ProjectID = body.ProjectID
	q.Notes = body.Notes
	if body.Currency != "" {
		q.Currency = body.Currency
	}
	if q.Currency == "" {
		q.Currency = "TRY"
	}

	q.DiscountRate = decimal.Zero
	if body.DiscountRate != nil {
		q.DiscountRate = *body.DiscountRate
	}
	q.TaxRate = DefaultTaxRate
	if body.TaxRate != nil {
		q.TaxRate = *body.TaxRate
	}
	if q.DiscountRate.IsNegative() || q.DiscountRate.GreaterThan(hundred) {
		return fiber.NewError(fiber.StatusBadRequest, "discount_rate 0-100 arasında olmalı")
	}
	if q.TaxRate.IsNegative() || q.TaxRate.GreaterThan(hundred) {
		return fiber.NewError(fiber.StatusBadRequest, "tax_rate 0-100 arasında olmalı")
	}

	if body.ValidUntil != "" {
		d, err := time.ParseInLocation("2006-01-02", body.ValidUntil, config.Location())
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "valid_until geçersiz")
		}
		// Seçilen günün sonuna kadar (İstanbul saatiyle) geçerli
		q.ValidUntil = d.AddDate(0, 0, 1).Add(-time.Second).UTC()
	} else if q.ValidUntil.IsZero() {
		q.ValidUntil = now.AddDate(0, 0, defaultValidDays)
	}
	if !q.ValidUntil.After(now) {
		return fiber.NewError(fiber.StatusBadRequest, "valid_until gelecekte olmalı")
	}

	lines := make([]Line, len(items))
	for i, it := range items {
		lines[i] = Line{Quantity: it.Quantity, UnitPrice: it.UnitPrice}
	}
	t := Calculate(lines, q.DiscountRate, q.TaxRate)
	for i := range items {
		items[i].LineTotal = t.LineTotals[i]
	}
	q.Items = items
	q.Subtotal = t.Subtotal
	q.DiscountAmount = t.DiscountAmount
	q.TaxAmount = t.TaxAmount
	q.Total = t.Total
	return nil
}

// checkProject proje verilmişse aynı firma ve müşteriye ait olmalı.
func checkProject(companyID, customerID uint, projectID *uint) error {
	if projectID == nil {
		return nil
	}
	var count int64
	database.DB.Model(&models.Project{}).
		Where("id = ? AND company_id = ? AND customer_id = ?", *projectID, companyID, customerID).
		Count(&count)
	if count == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "Proje bulunamadı")
	}
	return nil
}

func checkCustomer(companyID, customerID uint) error {
	var count int64
	database.DB.Model(&models.Customer{}).
		Where("id = ? AND company_id = ?", customerID, companyID).
		Count(&count)
	if count == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "Müşteri bulunamadı")
	}
	return nil
}

// POST /api/quotes
func CreateHandler(clk clock.Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body QuoteBody
		if err := validation.Parse(c, &body); err != nil {
			return err
		}
		id, err := auth.CurrentIdentity(c)
		if err != nil {
			return err
		}
		companyID, err := auth.ResolveCompanyIDFromBody(c, body.CompanyID)
		if err != nil {
			return err
		}
		if err := checkCustomer(companyID, body.CustomerID); err != nil {
			return err
		}
		if err := checkProject(companyID, body.CustomerID, body.ProjectID); err != nil {
			return err
		}
		items, err := buildItems(companyID, &body)
		if err != nil {
			return err
		}

		now := clk.Now()
		q := models.Quote{
			QuoteNumber: newQuoteNumber(now),
			CompanyID:   companyID,
			CustomerID:  body.CustomerID,
			Status:      models.QuoteDraft,
			PublicToken: newPublicToken(),
			CreatedBy:   id.UserID,
		}
		if err := applyBody(&q, &body, items, now); err != nil {
			return err
		}

		if err := database.DB.Omit("Company", "Customer").Create(&q).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Teklif oluşturulamadı")
		}
		return c.Status(fiber.StatusCreated).JSON(toResponse(&q))
	}
}

func loadQuote(c *fiber.Ctx, preloads ...string) (*models.Quote, error) {
	var q models.Quote
	dbq := database.DB
	for _, p := range preloads {
		dbq = dbq.Preload(p)
	}
	if err := dbq.First(&q, "id = ?", c.Params("id")).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Teklif bulunamadı")
	}
	if err := auth.CanAccessCompany(c, q.CompanyID); err != nil {
		return nil, err
	}
	return &q, nil
}

// listQuery liste, export ve analizde ortak filtre: ?status=&customer_id=&from=&to=
// Filtrelemeden önce kapsamdaki süresi dolmuş teklifler EXPIRED yapılır.
func listQuery(c *fiber.Ctx, now time.Time) (*gorm.DB, error) {
	companyID, err := auth.ResolveCompanyFilter(c)
	if err != nil {
		return nil, err
	}
	if _, err := ExpireDueFor(database.DB, companyID, now); err != nil {
		return nil, err
	}
	dbq := database.DB.Model(&models.Quote{})
	if companyID != nil {
		dbq = dbq.Where("company_id = ?", *companyID)
	}
	if status := c.Query("status"); status != "" {
		dbq = dbq.Where("status = ?", status)
	}
	if cid := c.QueryInt("customer_id"); cid > 0 {
		dbq = dbq.Where("customer_id = ?", cid)
	}
	if from := c.Query("from"); from != "" {
		d, err := time.ParseInLocation("2006-01-02", from, time.UTC)
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, "from geçersiz")
		}
		dbq = dbq.Where("created_at >= ?", d)
	}
	if to := c.Query("to"); to != "" {
		d, err := time.ParseInLocation("2006-01-02", to, time.UTC)
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, "to geçersiz")
		}
		dbq = dbq.Where("created_at < ?", d.AddDate(0, 0, 1))
	}
	return dbq, nil
}

// GET /api/quotes
func ListHandler(clk clock.Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq, err := listQuery(c, clk.Now())
		if err != nil {
			return err
		}
		var quotes []models.Quote
		if err := dbq.Preload("Customer").Order("created_at desc, id desc").Find(&quotes).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Teklifler listelenemedi")
		}
		resp := make([]QuoteResponse, 0, len(quotes))
		for i := range quotes {
			resp = append(resp, toResponse(&quotes[i]))
		}
		return c.JSON(resp)
	}
}

// GET /api/quotes/:id
func GetHandler(clk clock.Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := loadQuote(c, "Customer", "Items")
		if err != nil {
			return err
		}
		if err := expireIfDue(database.DB, q, clk.Now()); err != nil {
			return err
		}

		var deliveries []models.QuoteDelivery
		database.DB.Where("quote_id = ?", q.ID).Order("created_at desc, id desc").Find(&deliveries)

		hist := make([]fiber.Map, 0, len(deliveries))
		for _, d := range deliveries {
			hist = append(hist, fiber.Map{
				"channel":    d.Channel,
				"recipient":  d.Recipient,
				"success":    d.Success,
				"error":      d.Error,
				"created_at": d.CreatedAt,
			})
		}
		return c.JSON(fiber.Map{
			"quote":      toResponse(q),
			"deliveries": hist,
		})
	}
}

// PUT /api/quotes/:id
// Sadece taslak teklifler düzenlenebilir; kalemler tamamen değiştirilir.
func UpdateHandler(clk clock.Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body QuoteBody
		if err := validation.Parse(c, &body); err != nil {
			return err
		}
		q, err := loadQuote(c)
		if err != nil {
			return err
		}
		if q.Status != models.QuoteDraft {
			return fiber.NewError(fiber.StatusConflict, "Sadece taslak teklifler düzenlenebilir")
		}
		if body.CustomerID != q.CustomerID {
			if err := checkCustomer(q.CompanyID, body.CustomerID); err != nil {
				return err
			}
			q.CustomerID = body.CustomerID
		}
		if err := checkProject(q.CompanyID, q.CustomerID, body.ProjectID); err != nil {
			return err
		}
		items, err := buildItems(q.CompanyID, &body)
		if err != nil {
			return err
		}
		if err := applyBody(q, &body, items, clk.Now()); err != nil {
			return err
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("quote_id = ?", q.ID).Delete(&models.QuoteItem{}).Error; err != nil {
				return err
			}
			for i := range q.Items {
				q.Items[i].QuoteID = q.ID
			}
			if err := tx.Create(&q.Items).Error; err != nil {
				return err
			}
			return tx.Omit(clause.Associations).Save(q).Error
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Teklif güncellenemedi")
		}
		return c.JSON(toResponse(q))
	}
}

// DELETE /api/quotes/:id
func DeleteHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := loadQuote(c)
		if err != nil {
			return err
		}
		if q.Status != models.QuoteDraft {
			return fiber.NewError(fiber.StatusConflict, "Gönderilmiş teklifler silinemez")
		}
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			return deleteQuotes(tx, []uint{q.ID})
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Teklif silinemedi")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// deleteQuotes teklifleri kalem ve gönderim kayıtlarıyla birlikte siler (transaction içinde çağrılır).
func deleteQuotes(tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Where("quote_id IN ?", ids).Delete(&models.QuoteItem{}).Error; err != nil {
		return err
	}
	if err := tx.Where("quote_id IN ?", ids).Delete(&models.QuoteDelivery{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", ids).Delete(&models.Quote{}).Error
}

// DeleteForCustomer müşteri silinirken tekliflerini temizler.
func DeleteForCustomer(tx *gorm.DB, customerID uint) error {
	var ids []uint
	if err := tx.Model(&models.Quote{}).Where("customer_id = ?", customerID).Pluck("id", &ids).Error; err != nil {
		return err
	}
	return deleteQuotes(tx, ids)
}
