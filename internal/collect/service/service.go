package service

import (
	"context"

	"github.com/bitfantasy/nimo-collect/internal/collect/entity"
	"github.com/bitfantasy/nimo-collect/internal/collect/repository"
	"github.com/bitfantasy/nimo-collect/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Services 服务集合
type Services struct {
	Form     *FormService
	Response *ResponseService
	Upload   *UploadService
	User     *UserService
	Export   *ExportService
}

// NewServices 创建服务集合
func NewServices(repos *repository.Repositories, rdb *redis.Client, cfg *config.Config, logger *zap.Logger) *Services {
	// 初始化MinIO客户端，未配置或失败时以仅元数据模式继续
	var minioClient *minio.Client
	if cfg.MinIO.Endpoint != "" {
		var err error
		minioClient, err = minio.New(cfg.MinIO.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.MinIO.AccessKey, cfg.MinIO.SecretKey, ""),
			Secure: cfg.MinIO.UseSSL,
		})
		if err != nil {
			logger.Warn("minio init failed, uploads will be metadata-only", zap.Error(err))
			minioClient = nil
		}
	}

	return &Services{
		Form:     NewFormService(repos.Form, rdb),
		Response: NewResponseService(repos.Response),
		Upload:   NewUploadService(repos.Upload, minioClient, cfg.MinIO.Bucket, cfg.MinIO.PublicBaseURL, logger),
		User:     NewUserService(repos.User),
		Export:   NewExportService(repos.Form, repos.Response),
	}
}

// UserService 用户服务
type UserService struct {
	repo *repository.UserRepository
}

// NewUserService 创建用户服务
func NewUserService(repo *repository.UserRepository) *UserService {
	return &UserService{repo: repo}
}

// ListAll 获取全部用户
func (s *UserService) ListAll(ctx context.Context) ([]entity.User, error) {
	return s.repo.ListAll(ctx)
}

// Search 按名字模糊搜索用户
func (s *UserService) Search(ctx context.Context, keyword string) ([]entity.User, error) {
	return s.repo.Search(ctx, keyword)
}
