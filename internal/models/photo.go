package models

import "time"

type PhotoRequestStatus string

const (
	PhotoPending   PhotoRequestStatus = "PENDING"
	PhotoPartial   PhotoRequestStatus = "PARTIAL"
	PhotoCompleted PhotoRequestStatus = "COMPLETED"
	PhotoExpired   PhotoRequestStatus = "EXPIRED"
)

// PhotoRequest: müşteriden çatı/elektrik panosu vb. fotoğraf talebi
type PhotoRequest struct {
	ID             uint               `gorm:"primaryKey" json:"id"`
	CompanyID      uint               `gorm:"index;not null" json:"company_id"`
	CustomerID     uint               `gorm:"index;not null" json:"customer_id"`
	ProjectID      *uint              `gorm:"index" json:"project_id"`
	Token          string             `gorm:"size:64;uniqueIndex;not null" json:"token"`
	Title          string             `gorm:"size:200" json:"title"`
	RequestedItems string             `gorm:"size:500;not null" json:"requested_items"` // virgülle ayrılmış (roof,meter,panel_board)
	Status         PhotoRequestStatus `gorm:"size:20;not null;default:PENDING" json:"status"`
	ExpiresAt      time.Time          `gorm:"not null" json:"expires_at"`
	Uploads        []PhotoUpload      `gorm:"constraint:OnDelete:CASCADE" json:"uploads,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

type PhotoUpload struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	PhotoRequestID uint      `gorm:"index;not null" json:"photo_request_id"`
	Item           string    `gorm:"size:50;not null" json:"item"`
	FileName       string    `gorm:"size:255" json:"file_name"`
	ObjectKey      string    `gorm:"size:255;not null" json:"object_key"`
	ContentType    string    `gorm:"size:100" json:"content_type"`
	Size           int64     `json:"size"`
	CreatedAt      time.Time `json:"created_at"`
}
