package quote

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"gunes-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/juju/clock"
	"github.com/xuri/excelize/v2"
)

var statusLabels = map[models.QuoteStatus]string{
	models.QuoteDraft:    "Taslak",
	models.QuoteSent:     "Gönderildi",
	models.QuoteViewed:   "Görüntülendi",
	models.QuoteAccepted: "Kabul",
	models.QuoteRejected: "Red",
	models.QuoteExpired:  "Süresi Doldu",
}

func buildQuoteSheet(quotes []models.Quote) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Teklifler"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	headers := []string{"Teklif No", "Müşteri", "Durum", "Para Birimi", "Ara Toplam", "İskonto", "KDV", "Toplam", "Geçerlilik", "Oluşturma"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for i, q := range quotes {
		row := i + 2
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), q.QuoteNumber)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), q.Customer.Name)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), statusLabels[q.Status])
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), q.Currency)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), q.Subtotal.InexactFloat64())
		f.SetCellValue(sheet, fmt.Sprintf("F%d", row), q.DiscountAmount.InexactFloat64())
		f.SetCellValue(sheet, fmt.Sprintf("G%d", row), q.TaxAmount.InexactFloat64())
		f.SetCellValue(sheet, fmt.Sprintf("H%d", row), q.Total.InexactFloat64())
		f.SetCellValue(sheet, fmt.Sprintf("I%d", row), q.ValidUntil.Format("02.01.2006"))
		f.SetCellValue(sheet, fmt.Sprintf("J%d", row), q.CreatedAt.Format("02.01.2006"))
	}
	f.SetColWidth(sheet, "A", "B", 24)
	f.SetColWidth(sheet, "C", "J", 14)

	return f.WriteToBuffer()
}

// buildQuoteCSV Excel'in Türkçe karakterleri tanıması için UTF-8 BOM ve ';' ayırıcı kullanır.
func buildQuoteCSV(quotes []models.Quote) (*bytes.Buffer, error) {
	buf := bytes.NewBufferString("\ufeff")
	w := csv.NewWriter(buf)
	w.Comma = ';'

	if err := w.Write([]string{"Teklif No", "Müşteri", "Durum", "Para Birimi", "Ara Toplam", "İskonto", "KDV", "Toplam", "Geçerlilik", "Oluşturma"}); err != nil {
		return nil, err
	}
	for _, q := range quotes {
		err := w.Write([]string{
			q.QuoteNumber,
			q.Customer.Name,
			statusLabels[q.Status],
			q.Currency,
			q.Subtotal.StringFixed(2),
			q.DiscountAmount.StringFixed(2),
			q.TaxAmount.StringFixed(2),
			q.Total.StringFixed(2),
			q.ValidUntil.Format("02.01.2006"),
			q.CreatedAt.Format("02.01.2006"),
		})
		if err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf, w.Error()
}

// GET /api/quotes/export?status=&customer_id=&from=&to=&format=csv
func ExportHandler(clk clock.Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq, err := listQuery(c, clk.Now())
		if err != nil {
			return err
		}
		var quotes []models.Quote
		if err := dbq.Preload("Customer").Order("created_at asc, id asc").Find(&quotes).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Teklifler okunamadı")
		}

		if c.Query("format") == "csv" {
			buf, err := buildQuoteCSV(quotes)
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "CSV dosyası oluşturulamadı")
			}
			c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
			c.Set(fiber.HeaderContentDisposition, `attachment; filename="teklifler.csv"`)
			return c.Send(buf.Bytes())
		}

		buf, err := buildQuoteSheet(quotes)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Excel dosyası oluşturulamadı")
		}

		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="teklifler.xlsx"`)
		return c.Send(buf.Bytes())
	}
}
