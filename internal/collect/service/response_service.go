package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bitfantasy/nimo-collect/internal/collect/entity"
	"github.com/bitfantasy/nimo-collect/internal/collect/formresponse"
	"github.com/bitfantasy/nimo-collect/internal/collect/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ResponseService 提交记录持久化服务
type ResponseService struct {
	repo *repository.ResponseRepository
}

// NewResponseService 创建提交记录服务
func NewResponseService(repo *repository.ResponseRepository) *ResponseService {
	return &ResponseService{repo: repo}
}

// Fetch 获取提交记录快照（含关联资源与位置）
func (s *ResponseService) Fetch(ctx context.Context, responseID string) (*formresponse.ResponseRecord, error) {
	resp, err := s.repo.FindByID(ctx, responseID)
	if err != nil {
		return nil, fmt.Errorf("find response: %w", err)
	}
	if resp == nil {
		return nil, nil
	}
	return toRecord(resp), nil
}

// Create 创建提交记录
func (s *ResponseService) Create(ctx context.Context, payload formresponse.SubmitPayload) (*formresponse.ResponseRecord, error) {
	now := time.Now()
	resp := &entity.FormResponse{
		ID:            uuid.New().String()[:32],
		FormID:        payload.FormID,
		UserID:        payload.UserID,
		Values:        entity.JSONB(payload.Values),
		ImageUploadID: linkedAssetID(payload.Values),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, resp); err != nil {
		return nil, fmt.Errorf("create response: %w", err)
	}
	return toRecord(resp), nil
}

// Update 更新提交记录
func (s *ResponseService) Update(ctx context.Context, responseID string, payload formresponse.SubmitPayload) (*formresponse.ResponseRecord, error) {
	resp, err := s.repo.FindByID(ctx, responseID)
	if err != nil {
		return nil, fmt.Errorf("find response: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("response %s not found", responseID)
	}

	resp.Values = entity.JSONB(payload.Values)
	resp.ImageUploadID = linkedAssetID(payload.Values)
	resp.UpdatedAt = time.Now()
	if err := s.repo.Update(ctx, resp); err != nil {
		return nil, fmt.Errorf("update response: %w", err)
	}
	return toRecord(resp), nil
}

// DeletePermanently 永久删除提交记录并级联清理资源/位置行
func (s *ResponseService) DeletePermanently(ctx context.Context, responseID string) error {
	if err := s.repo.DeletePermanently(ctx, responseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return formresponse.ErrResponseNotFound
		}
		return fmt.Errorf("delete response: %w", err)
	}
	return nil
}

// Get 获取提交记录实体（管理端浏览用）
func (s *ResponseService) Get(ctx context.Context, id string) (*entity.FormResponse, error) {
	return s.repo.FindByID(ctx, id)
}

// ListByForm 获取表单的提交记录列表
func (s *ResponseService) ListByForm(ctx context.Context, formID string, page, pageSize int) ([]entity.FormResponse, int64, error) {
	return s.repo.ListByForm(ctx, formID, page, pageSize)
}

// linkedAssetID 取values中第一个非空DbId影子键作为主关联资源（键名排序保证确定性）
func linkedAssetID(values map[string]interface{}) *int64 {
	keys := make([]string, 0, len(values))
	for k := range values {
		if strings.HasSuffix(k, "DbId") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch v := values[k].(type) {
		case int64:
			return &v
		case int:
			id := int64(v)
			return &id
		case float64:
			id := int64(v)
			return &id
		}
	}
	return nil
}

func toRecord(resp *entity.FormResponse) *formresponse.ResponseRecord {
	record := &formresponse.ResponseRecord{
		ID:        resp.ID,
		FormID:    resp.FormID,
		UserID:    resp.UserID,
		Values:    map[string]interface{}(resp.Values),
		CreatedAt: resp.CreatedAt,
		UpdatedAt: resp.UpdatedAt,
	}
	if resp.ImageUpload != nil {
		asset := &formresponse.LinkedAsset{
			ID:               resp.ImageUpload.ID,
			SecureURL:        resp.ImageUpload.SecureURL,
			OriginalFilename: resp.ImageUpload.OriginalFilename,
		}
		if resp.ImageUpload.Location != nil {
			asset.TakenAt = resp.ImageUpload.Location.TakenAt
		}
		record.ImageUpload = asset
	}
	return record
}
