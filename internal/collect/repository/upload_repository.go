package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-collect/internal/collect/entity"
	"gorm.io/gorm"
)

// UploadRepository 上传资源仓库
type UploadRepository struct {
	db *gorm.DB
}

// NewUploadRepository 创建上传资源仓库
func NewUploadRepository(db *gorm.DB) *UploadRepository {
	return &UploadRepository{db: db}
}

// CreateWithLocation 在一个事务内创建资源记录及其位置信息
func (r *UploadRepository) CreateWithLocation(ctx context.Context, upload *entity.ImageUpload, location *entity.Location) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if location != nil {
			if err := tx.Create(location).Error; err != nil {
				return err
			}
			upload.LocationID = &location.ID
		}
		return tx.Create(upload).Error
	})
}

// FindByID 根据ID查找资源记录
func (r *UploadRepository) FindByID(ctx context.Context, id int64) (*entity.ImageUpload, error) {
	var upload entity.ImageUpload
	err := r.db.WithContext(ctx).Preload("Location").First(&upload, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &upload, nil
}
