package entity

import "time"

// 字段类型
const (
	FieldKindText        = "text"
	FieldKindDate        = "date"
	FieldKindRadio       = "radio"
	FieldKindCheckbox    = "checkbox"
	FieldKindImageUpload = "image_upload"
	FieldKindFileUpload  = "file_upload"
)

// ValidFieldKind 检查字段类型是否合法
func ValidFieldKind(kind string) bool {
	switch kind {
	case FieldKindText, FieldKindDate, FieldKindRadio, FieldKindCheckbox,
		FieldKindImageUpload, FieldKindFileUpload:
		return true
	}
	return false
}

// Form 表单定义
type Form struct {
	ID          string    `json:"id" gorm:"primaryKey;size:32"`
	Name        string    `json:"name" gorm:"size:128;not null"`
	Description string    `json:"description" gorm:"type:text"`
	CreatedBy   string    `json:"created_by" gorm:"size:32;not null"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// 关联
	Fields []FormField `json:"fields,omitempty" gorm:"foreignKey:FormID"`
}

func (Form) TableName() string {
	return "forms"
}

// FormField 表单字段定义，Label在表单内唯一
type FormField struct {
	ID        string     `json:"id" gorm:"primaryKey;size:32"`
	FormID    string     `json:"form_id" gorm:"size:32;not null;uniqueIndex:idx_form_label"`
	Label     string     `json:"label" gorm:"size:128;not null;uniqueIndex:idx_form_label"`
	Kind      string     `json:"kind" gorm:"size:32;not null;default:text"`
	Required  bool       `json:"required" gorm:"not null;default:false"`
	Choices   JSONBArray `json:"choices" gorm:"type:jsonb;default:'[]'"`
	SortOrder int        `json:"sort_order" gorm:"not null;default:0"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (FormField) TableName() string {
	return "form_fields"
}
