package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bitfantasy/nimo-collect/internal/collect/entity"
	"gorm.io/gorm"
)

// ResponseRepository 表单提交记录仓库
type ResponseRepository struct {
	db *gorm.DB
}

// NewResponseRepository 创建表单提交记录仓库
func NewResponseRepository(db *gorm.DB) *ResponseRepository {
	return &ResponseRepository{db: db}
}

// FindByID 根据ID查找提交记录（含关联资源与位置信息）
func (r *ResponseRepository) FindByID(ctx context.Context, id string) (*entity.FormResponse, error) {
	var resp entity.FormResponse
	err := r.db.WithContext(ctx).
		Preload("ImageUpload.Location").
		First(&resp, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &resp, nil
}

// ListByForm 获取表单的提交记录列表
func (r *ResponseRepository) ListByForm(ctx context.Context, formID string, page, pageSize int) ([]entity.FormResponse, int64, error) {
	var responses []entity.FormResponse
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.FormResponse{}).Where("form_id = ?", formID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Preload("ImageUpload.Location").
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&responses).Error
	return responses, total, err
}

// Create 创建提交记录
func (r *ResponseRepository) Create(ctx context.Context, resp *entity.FormResponse) error {
	return r.db.WithContext(ctx).Create(resp).Error
}

// Update 更新提交记录
func (r *ResponseRepository) Update(ctx context.Context, resp *entity.FormResponse) error {
	return r.db.WithContext(ctx).Save(resp).Error
}

// DeletePermanently 永久删除提交记录并级联清理关联的资源/位置行
func (r *ResponseRepository) DeletePermanently(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var resp entity.FormResponse
		err := tx.Unscoped().First(&resp, "id = ?", id).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return gorm.ErrRecordNotFound
			}
			return err
		}

		uploadIDs := assetIDs(resp)
		if len(uploadIDs) > 0 {
			var uploads []entity.ImageUpload
			if err := tx.Find(&uploads, "id IN ?", uploadIDs).Error; err != nil {
				return err
			}
			locationIDs := make([]int64, 0, len(uploads))
			for _, u := range uploads {
				if u.LocationID != nil {
					locationIDs = append(locationIDs, *u.LocationID)
				}
			}
			if err := tx.Delete(&entity.ImageUpload{}, "id IN ?", uploadIDs).Error; err != nil {
				return err
			}
			if len(locationIDs) > 0 {
				if err := tx.Delete(&entity.Location{}, "id IN ?", locationIDs).Error; err != nil {
					return err
				}
			}
		}

		return tx.Unscoped().Delete(&entity.FormResponse{}, "id = ?", id).Error
	})
}

// assetIDs 收集提交记录引用的全部资源ID（values中的*DbId键与主关联列）
func assetIDs(resp entity.FormResponse) []int64 {
	seen := map[int64]bool{}
	ids := []int64{}
	add := func(id int64) {
		if id > 0 && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if resp.ImageUploadID != nil {
		add(*resp.ImageUploadID)
	}
	for key, val := range resp.Values {
		if !strings.HasSuffix(key, "DbId") {
			continue
		}
		switch v := val.(type) {
		case float64:
			add(int64(v))
		case int64:
			add(v)
		case int:
			add(int64(v))
		}
	}
	return ids
}
