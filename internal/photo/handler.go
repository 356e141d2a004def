package photo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"gunes-backend/internal/apperr"
	"gunes-backend/internal/auth"
	"gunes-backend/internal/database"
	"gunes-backend/internal/models"
	"gunes-backend/internal/notification"
	"gunes-backend/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	LinkValidity  = 7 * 24 * time.Hour
	MaxUploadSize = 10 << 20
)

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/heic": ".heic",
}

type CreateRequest struct {
	CompanyID  *uint    `json:"company_id"`
	CustomerID uint     `json:"customer_id" validate:"required"`
	ProjectID  *uint    `json:"project_id"`
	Title      string   `json:"title" validate:"max=200"`
	Items      []string `json:"items" validate:"required,min=1,max=10,dive,required,max=50"`
}

type RequestResponse struct {
	models.PhotoRequest
	Link  string   `json:"link"`
	Items []string `json:"items"`
}

type PublicItem struct {
	Item     string `json:"item"`
	Uploaded int    `json:"uploaded"`
}

type PublicResponse struct {
	Title       string                    `json:"title"`
	CompanyName string                    `json:"company_name"`
	Status      models.PhotoRequestStatus `json:"status"`
	ExpiresAt   time.Time                 `json:"expires_at"`
	Items       []PublicItem              `json:"items"`
}

func PublicLink(baseURL, token string) string {
	return baseURL + "/fotograf/" + token
}

// SplitItems virgülle ayrılmış kalemleri temizleyip sırayı koruyarak döndürür.
func SplitItems(s string) []string {
	var out []string
	seen := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// NextStatus yüklenen kalemlere göre talebin yeni durumu.
func NextStatus(requested []string, uploaded map[string]int) models.PhotoRequestStatus {
	if len(uploaded) == 0 {
		return models.PhotoPending
	}
	for _, item := range requested {
		if uploaded[item] == 0 {
			return models.PhotoPartial
		}
	}
	return models.PhotoCompleted
}

func uploadCounts(uploads []models.PhotoUpload) map[string]int {
	counts := map[string]int{}
	for _, u := range uploads {
		counts[u.Item]++
	}
	return counts
}

func toResponse(r models.PhotoRequest, baseURL string) RequestResponse {
	return RequestResponse{PhotoRequest: r, Link: PublicLink(baseURL, r.Token), Items: SplitItems(r.RequestedItems)}
}

// POST /api/photo-requests
func CreateHandler(baseURL string, clk clock.Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateRequest
		if err := validation.Parse(c, &body); err != nil {
			return err
		}
		companyID, err := auth.ResolveCompanyIDFromBody(c, body.CompanyID)
		if err != nil {
			return err
		}

		var count int64
		database.DB.Model(&models.Customer{}).
			Where("id = ? AND company_id = ?", body.CustomerID, companyID).
			Count(&count)
		if count == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Müşteri bulunamadı")
		}
		if body.ProjectID != nil {
			database.DB.Model(&models.Project{}).
				Where("id = ? AND company_id = ? AND customer_id = ?", *body.ProjectID, companyID, body.CustomerID).
				Count(&count)
			if count == 0 {
				return fiber.NewError(fiber.StatusBadRequest, "Proje bulunamadı")
			}
		}

		items := SplitItems(strings.Join(body.Items, ","))
		if len(items) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "En az bir fotoğraf kalemi gerekli")
		}

		now := clk.Now()
		req := models.PhotoRequest{
			CompanyID:      companyID,
			CustomerID:     body.CustomerID,
			ProjectID:      body.ProjectID,
			Token:          strings.ReplaceAll(uuid.NewString(), "-", ""),
			Title:          strings.TrimSpace(body.Title),
			RequestedItems: strings.Join(items, ","),
			Status:         models.PhotoPending,
			ExpiresAt:      now.Add(LinkValidity),
		}
		if req.Title == "" {
			req.Title = "Keşif fotoğrafları"
		}
		if err := database.DB.Create(&req).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Fotoğraf talebi oluşturulamadı")
		}
		return c.Status(fiber.StatusCreated).JSON(toResponse(req, baseURL))
	}
}

// GET /api/photo-requests?customer_id=3&status=PARTIAL
func ListHandler(baseURL string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		companyID, err := auth.ResolveCompanyFilter(c)
		if err != nil {
			return err
		}
		dbq := database.DB.Model(&models.PhotoRequest{}).Preload("Uploads")
		if companyID != nil {
			dbq = dbq.Where("company_id = ?", *companyID)
		}
		if cid := c.QueryInt("customer_id"); cid > 0 {
			dbq = dbq.Where("customer_id = ?", cid)
		}
		if status := c.Query("status"); status != "" {
			dbq = dbq.Where("status = ?", status)
		}

		var reqs []models.PhotoRequest
		if err := dbq.Order("id desc").Find(&reqs).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Fotoğraf talepleri listelenemedi")
		}
		resp := make([]RequestResponse, 0, len(reqs))
		for _, r := range reqs {
			resp = append(resp, toResponse(r, baseURL))
		}
		return c.JSON(resp)
	}
}

func loadOwned(c *fiber.Ctx) (*models.PhotoRequest, error) {
	var req models.PhotoRequest
	if err := database.DB.Preload("Uploads").First(&req, "id = ?", c.Params("id")).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Fotoğraf talebi bulunamadı")
	}
	if err := auth.CanAccessCompany(c, req.CompanyID); err != nil {
		return nil, err
	}
	return &req, nil
}

// GET /api/photo-requests/:id
func GetHandler(baseURL string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, err := loadOwned(c)
		if err != nil {
			return err
		}
		return c.JSON(toResponse(*req, baseURL))
	}
}

// GET /api/photo-requests/:id/uploads/:uploadId/file
func DownloadHandler(store Storage) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, err := loadOwned(c)
		if err != nil {
			return err
		}
		uploadID, err := c.ParamsInt("uploadId")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "uploadId geçersiz")
		}

		for _, u := range req.Uploads {
			if u.ID != uint(uploadID) {
				continue
			}
			rc, err := store.Open(c.UserContext(), u.ObjectKey)
			if err != nil {
				return apperr.ToFiber(err)
			}
			c.Set(fiber.HeaderContentType, u.ContentType)
			c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`inline; filename="%s"`, filepath.Base(u.ObjectKey)))
			return c.SendStream(rc, int(u.Size))
		}
		return fiber.NewError(fiber.StatusNotFound, "Dosya bulunamadı")
	}
}

// loadByToken süresi dolan talebi EXPIRED'a çeker ve 410 döner.
func loadByToken(c *fiber.Ctx, now time.Time) (*models.PhotoRequest, error) {
	var req models.PhotoRequest
	if err := database.DB.Preload("Uploads").First(&req, "token = ?", c.Params("token")).Error; err != nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Bağlantı geçersiz")
	}
	if req.Status == models.PhotoExpired {
		return nil, apperr.ToFiber(apperr.Gone("Bağlantının süresi dolmuş"))
	}
	if now.After(req.ExpiresAt) {
		if req.Status != models.PhotoCompleted {
			database.DB.Model(&models.PhotoRequest{}).
				Where("id = ? AND status IN ?", req.ID, []models.PhotoRequestStatus{models.PhotoPending, models.PhotoPartial}).
				Update("status", models.PhotoExpired)
		}
		return nil, apperr.ToFiber(apperr.Gone("Bağlantının süresi dolmuş"))
	}
	return &req, nil
}

func publicView(req *models.PhotoRequest) PublicResponse {
	var company models.Company
	database.DB.Select("name").First(&company, req.CompanyID)

	counts := uploadCounts(req.Uploads)
	items := make([]PublicItem, 0)
	for _, it := range SplitItems(req.RequestedItems) {
		items = append(items, PublicItem{Item: it, Uploaded: counts[it]})
	}
	return PublicResponse{
		Title:       req.Title,
		CompanyName: company.Name,
		Status:      req.Status,
		ExpiresAt:   req.ExpiresAt,
		Items:       items,
	}
}

// GET /api/public/photo-requests/:token
func PublicGetHandler(clk clock.Clock) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req, err := loadByToken(c, clk.Now())
		if err != nil {
			return err
		}
		return c.JSON(publicView(req))
	}
}

// detectType dosyanın ilk baytlarına bakar; HEIC için tarayıcının gönderdiği tipe güvenilir.
func detectType(head []byte, declared, filename string) (string, bool) {
	sniffed := http.DetectContentType(head)
	if _, ok := allowedTypes[sniffed]; ok {
		return sniffed, true
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if declared == "image/heic" || declared == "image/heif" || ext == ".heic" || ext == ".heif" {
		if len(head) >= 12 && string(head[4:8]) == "ftyp" {
			return "image/heic", true
		}
	}
	return "", false
}

// POST /api/public/photo-requests/:token/uploads (multipart: item, file)
func PublicUploadHandler(store Storage, clk clock.Clock, maxSize int64) fiber.Handler {
	return func(c *fiber.Ctx) error {
		now := clk.Now()
		req, err := loadByToken(c, now)
		if err != nil {
			return err
		}

		item := strings.TrimSpace(c.FormValue("item"))
		requested := SplitItems(req.RequestedItems)
		if !contains(requested, item) {
			return fiber.NewError(fiber.StatusBadRequest, "item talep edilen kalemlerden biri olmalı")
		}

		fh, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "file alanı zorunlu")
		}
		if fh.Size > maxSize {
			return fiber.NewError(fiber.StatusRequestEntityTooLarge, fmt.Sprintf("Dosya en fazla %d MB olabilir", maxSize>>20))
		}

		f, err := fh.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Dosya okunamadı")
		}
		defer f.Close()

		head := make([]byte, 512)
		n, _ := io.ReadFull(f, head)
		contentType, ok := detectType(head[:n], fh.Header.Get(fiber.HeaderContentType), fh.Filename)
		if !ok {
			return fiber.NewError(fiber.StatusBadRequest, "Sadece JPEG, PNG, WEBP veya HEIC yüklenebilir")
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "Dosya okunamadı")
		}

		key := fmt.Sprintf("photo-requests/%d/%s-%s%s", req.ID, sanitize(item),
			strings.ReplaceAll(uuid.NewString(), "-", "")[:12], allowedTypes[contentType])
		ctx := c.UserContext()
		if err := store.Put(ctx, key, f, fh.Size, contentType); err != nil {
			log.Error().Err(err).Str("key", key).Msg("fotoğraf kaydedilemedi")
			return fiber.NewError(fiber.StatusInternalServerError, "Dosya kaydedilemedi")
		}

		upload := models.PhotoUpload{
			PhotoRequestID: req.ID,
			Item:           item,
			FileName:       filepath.Base(fh.Filename),
			ObjectKey:      key,
			ContentType:    contentType,
			Size:           fh.Size,
		}
		prevStatus := req.Status
		status := prevStatus
		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&upload).Error; err != nil {
				return err
			}
			var uploads []models.PhotoUpload
			if err := tx.Where("photo_request_id = ?", req.ID).Find(&uploads).Error; err != nil {
				return err
			}
			status = NextStatus(requested, uploadCounts(uploads))
			return tx.Model(&models.PhotoRequest{}).Where("id = ?", req.ID).Update("status", status).Error
		})
		if err != nil {
			RemoveObjects(ctx, store, []string{key})
			return fiber.NewError(fiber.StatusInternalServerError, "Yükleme kaydedilemedi")
		}

		if status == models.PhotoCompleted && prevStatus != models.PhotoCompleted {
			notification.NotifyCompany(req.CompanyID, notification.Payload{
				Type:    notification.TypePhotosUploaded,
				Title:   "Fotoğraflar tamamlandı",
				Message: fmt.Sprintf("%q talebindeki tüm fotoğraflar yüklendi.", req.Title),
				Link:    fmt.Sprintf("/photo-requests/%d", req.ID),
			})
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"upload": upload,
			"status": status,
		})
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// sanitize kalem adını dosya anahtarında güvenle kullanılabilir hale getirir.
func sanitize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// RemoveObjects depodaki dosyaları best-effort siler.
func RemoveObjects(ctx context.Context, store Storage, keys []string) {
	for _, k := range keys {
		if err := store.Remove(ctx, k); err != nil {
			log.Warn().Err(err).Str("key", k).Msg("dosya silinemedi")
		}
	}
}

// DeleteForCustomer müşterinin taleplerini ve yükleme kayıtlarını siler, depodan silinecek anahtarları döndürür.
// Dosyalar transaction commit edildikten sonra RemoveObjects ile silinmelidir.
func DeleteForCustomer(tx *gorm.DB, customerID uint) ([]string, error) {
	var ids []uint
	if err := tx.Model(&models.PhotoRequest{}).Where("customer_id = ?", customerID).Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	var keys []string
	if err := tx.Model(&models.PhotoUpload{}).Where("photo_request_id IN ?", ids).Pluck("object_key", &keys).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("photo_request_id IN ?", ids).Delete(&models.PhotoUpload{}).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("id IN ?", ids).Delete(&models.PhotoRequest{}).Error; err != nil {
		return nil, err
	}
	return keys, nil
}
