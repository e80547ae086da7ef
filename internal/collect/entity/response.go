package entity

import (
	"time"

	"gorm.io/gorm"
)

// FormResponse 表单提交记录
type FormResponse struct {
	ID            string         `json:"id" gorm:"primaryKey;size:32"`
	FormID        string         `json:"form_id" gorm:"size:32;not null;index"`
	UserID        string         `json:"user_id" gorm:"size:32;not null;index"`
	Values        JSONB          `json:"values" gorm:"type:jsonb;not null;default:'{}'"`
	ImageUploadID *int64         `json:"image_upload_id"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`

	// 关联
	ImageUpload *ImageUpload `json:"image_upload,omitempty" gorm:"foreignKey:ImageUploadID"`
}

func (FormResponse) TableName() string {
	return "form_responses"
}

// ImageUpload 上传资源记录
type ImageUpload struct {
	ID               int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	SecureURL        string    `json:"secure_url" gorm:"size:512;not null"`
	OriginalFilename string    `json:"original_filename" gorm:"size:256"`
	ObjectKey        string    `json:"object_key" gorm:"size:512;not null"`
	Size             int64     `json:"size"`
	ContentType      string    `json:"content_type" gorm:"size:128"`
	LocationID       *int64    `json:"location_id"`
	UploadedBy       string    `json:"uploaded_by" gorm:"size:32"`
	CreatedAt        time.Time `json:"created_at"`

	// 关联
	Location *Location `json:"location,omitempty" gorm:"foreignKey:LocationID"`
}

func (ImageUpload) TableName() string {
	return "image_uploads"
}

// Location 拍摄位置与时间元数据（来自图片EXIF）
type Location struct {
	ID        int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	TakenAt   *time.Time `json:"taken_at"`
	Latitude  *float64   `json:"latitude"`
	Longitude *float64   `json:"longitude"`
	CreatedAt time.Time  `json:"created_at"`
}

func (Location) TableName() string {
	return "locations"
}
