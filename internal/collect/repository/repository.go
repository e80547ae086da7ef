package repository

import "gorm.io/gorm"

// Repositories 仓库集合
type Repositories struct {
	Form     *FormRepository
	Response *ResponseRepository
	Upload   *UploadRepository
	User     *UserRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Form:     NewFormRepository(db),
		Response: NewResponseRepository(db),
		Upload:   NewUploadRepository(db),
		User:     NewUserRepository(db),
	}
}
