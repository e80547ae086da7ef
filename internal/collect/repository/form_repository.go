package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-collect/internal/collect/entity"
	"gorm.io/gorm"
)

// FormRepository 表单定义仓库
type FormRepository struct {
	db *gorm.DB
}

// NewFormRepository 创建表单定义仓库
func NewFormRepository(db *gorm.DB) *FormRepository {
	return &FormRepository{db: db}
}

// FindByID 根据ID查找表单（含字段定义，按排序号排列）
func (r *FormRepository) FindByID(ctx context.Context, id string) (*entity.Form, error) {
	var form entity.Form
	err := r.db.WithContext(ctx).
		Preload("Fields", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		First(&form, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &form, nil
}

// List 获取表单列表
func (r *FormRepository) List(ctx context.Context, page, pageSize int) ([]entity.Form, int64, error) {
	var forms []entity.Form
	var total int64

	if err := r.db.WithContext(ctx).Model(&entity.Form{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&forms).Error
	return forms, total, err
}

// ListFields 获取表单的字段定义，按排序号排列
func (r *FormRepository) ListFields(ctx context.Context, formID string) ([]entity.FormField, error) {
	var fields []entity.FormField
	err := r.db.WithContext(ctx).
		Where("form_id = ?", formID).
		Order("sort_order ASC").
		Find(&fields).Error
	return fields, err
}

// Create 创建表单及其字段定义
func (r *FormRepository) Create(ctx context.Context, form *entity.Form) error {
	return r.db.WithContext(ctx).Create(form).Error
}

// Update 更新表单，字段定义整体替换
func (r *FormRepository) Update(ctx context.Context, form *entity.Form) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("form_id = ?", form.ID).Delete(&entity.FormField{}).Error; err != nil {
			return err
		}
		return tx.Save(form).Error
	})
}

// Delete 删除表单及其字段定义
func (r *FormRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("form_id = ?", id).Delete(&entity.FormField{}).Error; err != nil {
			return err
		}
		return tx.Delete(&entity.Form{}, "id = ?", id).Error
	})
}
