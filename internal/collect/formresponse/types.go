package formresponse

import (
	"context"
	"io"
	"time"
)

// FieldKind 字段类型
type FieldKind string

const (
	KindText        FieldKind = "text"
	KindDate        FieldKind = "date"
	KindRadio       FieldKind = "radio"
	KindCheckbox    FieldKind = "checkbox"
	KindImageUpload FieldKind = "image_upload"
	KindFileUpload  FieldKind = "file_upload"
)

// IsAsset 是否为上传类字段
func (k FieldKind) IsAsset() bool {
	return k == KindImageUpload || k == KindFileUpload
}

// FieldDefinition 表单字段定义，Label在表单内唯一
type FieldDefinition struct {
	Label    string    `json:"label"`
	Kind     FieldKind `json:"kind"`
	Required bool      `json:"required"`
	Choices  []string  `json:"choices,omitempty"`
}

// UploadFile 待上传的文件内容
type UploadFile struct {
	Reader      io.Reader
	Filename    string
	Size        int64
	ContentType string
}

// AssetUploadResult 上传服务返回的结果
type AssetUploadResult struct {
	SecureURL        string
	ID               int64
	OriginalFilename string
	TakenAt          *time.Time
}

// LinkedAsset 提交记录关联的资源快照
type LinkedAsset struct {
	ID               int64      `json:"id"`
	SecureURL        string     `json:"secure_url"`
	OriginalFilename string     `json:"original_filename"`
	TakenAt          *time.Time `json:"taken_at,omitempty"`
}

// ResponseRecord 持久化服务返回的提交记录快照
type ResponseRecord struct {
	ID          string                 `json:"id"`
	FormID      string                 `json:"form_id"`
	UserID      string                 `json:"user_id"`
	Values      map[string]interface{} `json:"values"`
	ImageUpload *LinkedAsset           `json:"image_upload,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// SubmitPayload 创建/更新提交记录的载荷
type SubmitPayload struct {
	FormID string
	UserID string
	Values map[string]interface{}
}

// SchemaService 表单结构加载协作方
type SchemaService interface {
	FieldDefinitions(ctx context.Context, formID string) ([]FieldDefinition, error)
}

// ResponseService 提交记录持久化协作方
type ResponseService interface {
	Fetch(ctx context.Context, responseID string) (*ResponseRecord, error)
	Create(ctx context.Context, payload SubmitPayload) (*ResponseRecord, error)
	Update(ctx context.Context, responseID string, payload SubmitPayload) (*ResponseRecord, error)
	DeletePermanently(ctx context.Context, responseID string) error
}

// UploadService 资源上传协作方，contextValues为当前值存储快照
type UploadService interface {
	Upload(ctx context.Context, file UploadFile, contextValues map[string]interface{}) (*AssetUploadResult, error)
}

// dbIDKey 上传字段的资源记录ID影子键
func dbIDKey(label string) string {
	return label + "DbId"
}

// originalFilenameKey 上传字段的原始文件名影子键
func originalFilenameKey(label string) string {
	return label + "OriginalFilename"
}
