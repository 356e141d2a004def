package quote

import (
	"bytes"
	"fmt"
	"strings"

	"gunes-backend/internal/database"
	"gunes-backend/internal/delivery"
	"gunes-backend/internal/models"

	"github.com/go-pdf/fpdf"
	"github.com/gofiber/fiber/v2"
	"github.com/juju/clock"
	"github.com/juju/errors"
)

// cp1252 çekirdek fontunda olmayan Türkçe harfler ASCII karşılıklarına iner;
// ç, ö, ü gibi harfler çeviriciden geçer.
var pdfReplacer = strings.NewReplacer(
	"ğ", "g", "Ğ", "G",
	"ı", "i", "İ", "I",
	"ş", "s", "Ş", "S",
)

// RenderPDF teklifin yazdırılabilir A4 çıktısı. Company, Customer ve Items yüklü olmalı.
func RenderPDF(q *models.Quote) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 20)
	tr := pdf.UnicodeTranslatorFromDescriptor("cp1252")
	txt := func(s string) string { return tr(pdfReplacer.Replace(s)) }

	pdf.SetTitle(q.QuoteNumber, false)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 10, txt(fmt.Sprintf("Sayfa %d/{nb}", pdf.PageNo())), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, txt(q.Company.Name), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	for _, line := range []string{q.Company.Address, q.Company.Phone, q.Company.Email} {
		if line != "" {
			pdf.CellFormat(0, 5, txt(line), "", 1, "L", false, 0, "")
		}
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 8, txt("FİYAT TEKLİFİ"), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(95, 6, txt("Teklif No: "+q.QuoteNumber), "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 6, txt("Tarih: "+q.CreatedAt.Format("02.01.2006")), "", 1, "R", false, 0, "")
	pdf.CellFormat(95, 6, txt("Müşteri: "+q.Customer.Name), "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 6, txt("Geçerlilik: "+q.ValidUntil.Format("02.01.2006")), "", 1, "R", false, 0, "")
	pdf.Ln(4)

	widths := []float64{80, 20, 20, 30, 30}
	headers := []string{"Açıklama", "Miktar", "Birim", "Birim Fiyat", "Tutar"}
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, txt(h), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, it := range q.Items {
		pdf.CellFormat(widths[0], 6, txt(it.Description), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, it.Quantity.String(), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 6, txt(it.Unit), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[3], 6, txt(delivery.FormatMoney(it.UnitPrice, q.Currency)), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[4], 6, txt(delivery.FormatMoney(it.LineTotal, q.Currency)), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(3)

	totals := [][2]string{
		{"Ara Toplam", delivery.FormatMoney(q.Subtotal, q.Currency)},
	}
	if q.DiscountAmount.IsPositive() {
		totals = append(totals, [2]string{
			fmt.Sprintf("İskonto (%%%s)", q.DiscountRate.String()),
			"-" + delivery.FormatMoney(q.DiscountAmount, q.Currency),
		})
	}
	totals = append(totals,
		[2]string{fmt.Sprintf("KDV (%%%s)", q.TaxRate.String()), delivery.FormatMoney(q.TaxAmount, q.Currency)},
		[2]string{"Genel Toplam", delivery.FormatMoney(q.Total, q.Currency)},
	)
	for i, row := range totals {
		if i == len(totals)-1 {
			pdf.SetFont("Helvetica", "B", 10)
		}
		pdf.CellFormat(150, 6, txt(row[0]), "", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, txt(row[1]), "", 1, "R", false, 0, "")
	}

	if q.Notes != "" {
		pdf.Ln(6)
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(0, 6, txt("Notlar"), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(0, 5, txt(q.Notes), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, errors.Annotate(err, "pdf oluşturulamadı")
	}
	return buf.Bytes(), nil
}

// GET /api/quotes/:id/pdf
func PDFHandler(clk clock.Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := loadQuote(c, "Company", "Customer", "Items")
		if err != nil {
			return err
		}
		if err := expireIfDue(database.DB, q, clk.Now()); err != nil {
			return err
		}
		data, err := RenderPDF(q)
		if err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, "application/pdf")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s.pdf"`, q.QuoteNumber))
		return c.Send(data)
	}
}
