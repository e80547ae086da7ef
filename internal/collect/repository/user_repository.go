package repository

import (
	"context"
	"errors"

	"github.com/bitfantasy/nimo-collect/internal/collect/entity"
	"gorm.io/gorm"
)

// UserRepository 用户仓库
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository 创建用户仓库
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByID 根据ID查找用户
func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	var user entity.User
	err := r.db.WithContext(ctx).Preload("Roles").First(&user, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// ListAll 获取全部用户
func (r *UserRepository) ListAll(ctx context.Context) ([]entity.User, error) {
	var users []entity.User
	err := r.db.WithContext(ctx).
		Preload("Roles").
		Where("status = ?", "active").
		Order("name ASC").
		Find(&users).Error
	return users, err
}

// Search 按名字模糊搜索用户
func (r *UserRepository) Search(ctx context.Context, keyword string) ([]entity.User, error) {
	var users []entity.User
	err := r.db.WithContext(ctx).
		Where("status = ?", "active").
		Where("name ILIKE ? OR username ILIKE ?", "%"+keyword+"%", "%"+keyword+"%").
		Order("name ASC").
		Limit(20).
		Find(&users).Error
	return users, err
}
