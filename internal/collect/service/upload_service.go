package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/bitfantasy/nimo-collect/internal/collect/entity"
	"github.com/bitfantasy/nimo-collect/internal/collect/formresponse"
	"github.com/bitfantasy/nimo-collect/internal/collect/repository"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/rwcarlsen/goexif/exif"
	"go.uber.org/zap"
)

// UploadService 资源上传服务：对象写入MinIO，
// 从图片EXIF提取拍摄时间与经纬度并持久化资源/位置记录
type UploadService struct {
	repo          *repository.UploadRepository
	minioClient   *minio.Client
	bucket        string
	publicBaseURL string
	logger        *zap.Logger
}

// NewUploadService 创建资源上传服务
func NewUploadService(repo *repository.UploadRepository, minioClient *minio.Client, bucket, publicBaseURL string, logger *zap.Logger) *UploadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UploadService{
		repo:          repo,
		minioClient:   minioClient,
		bucket:        bucket,
		publicBaseURL: publicBaseURL,
		logger:        logger,
	}
}

// Upload 上传文件并返回资源结果；contextValues为调用方的当前填报快照
func (s *UploadService) Upload(ctx context.Context, file formresponse.UploadFile, contextValues map[string]interface{}) (*formresponse.AssetUploadResult, error) {
	data, err := io.ReadAll(file.Reader)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	objectKey := fmt.Sprintf("uploads/%s/%s%s",
		time.Now().Format("2006/01/02"), uuid.New().String()[:8], filepath.Ext(file.Filename))

	if s.minioClient != nil {
		_, err = s.minioClient.PutObject(ctx, s.bucket, objectKey,
			bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
				ContentType: file.ContentType,
			})
		if err != nil {
			return nil, fmt.Errorf("put object: %w", err)
		}
	}

	takenAt, lat, lng := extractCaptureMetadata(data)

	var location *entity.Location
	if takenAt != nil || lat != nil {
		location = &entity.Location{
			TakenAt:   takenAt,
			Latitude:  lat,
			Longitude: lng,
			CreatedAt: time.Now(),
		}
	}

	upload := &entity.ImageUpload{
		SecureURL:        s.secureURL(objectKey),
		OriginalFilename: file.Filename,
		ObjectKey:        objectKey,
		Size:             int64(len(data)),
		ContentType:      file.ContentType,
		CreatedAt:        time.Now(),
	}

	if err := s.repo.CreateWithLocation(ctx, upload, location); err != nil {
		return nil, fmt.Errorf("create upload record: %w", err)
	}

	s.logger.Debug("asset uploaded",
		zap.Int64("upload_id", upload.ID),
		zap.String("object_key", objectKey),
		zap.Int("context_fields", len(contextValues)),
		zap.Bool("has_taken_at", takenAt != nil),
	)

	return &formresponse.AssetUploadResult{
		SecureURL:        upload.SecureURL,
		ID:               upload.ID,
		OriginalFilename: file.Filename,
		TakenAt:          takenAt,
	}, nil
}

func (s *UploadService) secureURL(objectKey string) string {
	if s.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s/%s", s.publicBaseURL, s.bucket, objectKey)
	}
	return fmt.Sprintf("/%s/%s", s.bucket, objectKey)
}

// extractCaptureMetadata 从图片EXIF读取拍摄时间与经纬度，非图片或无EXIF时全部为nil
func extractCaptureMetadata(data []byte) (takenAt *time.Time, lat, lng *float64) {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, nil
	}

	if tm, err := x.DateTime(); err == nil {
		takenAt = &tm
	}
	if la, lo, err := x.LatLong(); err == nil {
		lat = &la
		lng = &lo
	}
	return takenAt, lat, lng
}
