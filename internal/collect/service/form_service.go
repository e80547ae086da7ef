package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bitfantasy/nimo-collect/internal/collect/entity"
	"github.com/bitfantasy/nimo-collect/internal/collect/formresponse"
	"github.com/bitfantasy/nimo-collect/internal/collect/repository"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const fieldCacheTTL = 5 * time.Minute

// FormService 表单定义服务，字段定义走Redis缓存
type FormService struct {
	repo *repository.FormRepository
	rdb  *redis.Client
}

// NewFormService 创建表单定义服务
func NewFormService(repo *repository.FormRepository, rdb *redis.Client) *FormService {
	return &FormService{repo: repo, rdb: rdb}
}

// FieldInput 字段定义入参
type FieldInput struct {
	Label    string   `json:"label" binding:"required"`
	Kind     string   `json:"kind" binding:"required"`
	Required bool     `json:"required"`
	Choices  []string `json:"choices"`
}

// CreateFormRequest 创建表单请求
type CreateFormRequest struct {
	Name        string       `json:"name" binding:"required"`
	Description string       `json:"description"`
	Fields      []FieldInput `json:"fields" binding:"required"`
}

// UpdateFormRequest 更新表单请求，字段定义整体替换
type UpdateFormRequest struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Fields      []FieldInput `json:"fields"`
}

// FieldDefinitions 获取表单的有序字段定义；结果缓存于Redis
func (s *FormService) FieldDefinitions(ctx context.Context, formID string) ([]formresponse.FieldDefinition, error) {
	cacheKey := "form:fields:" + formID

	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, cacheKey).Result(); err == nil {
			var defs []formresponse.FieldDefinition
			if err := json.Unmarshal([]byte(cached), &defs); err == nil {
				return defs, nil
			}
		}
	}

	fields, err := s.repo.ListFields(ctx, formID)
	if err != nil {
		return nil, fmt.Errorf("list form fields: %w", err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("form %s has no fields", formID)
	}

	defs := make([]formresponse.FieldDefinition, 0, len(fields))
	for _, f := range fields {
		defs = append(defs, formresponse.FieldDefinition{
			Label:    f.Label,
			Kind:     formresponse.FieldKind(f.Kind),
			Required: f.Required,
			Choices:  f.Choices.Strings(),
		})
	}

	if s.rdb != nil {
		if data, err := json.Marshal(defs); err == nil {
			s.rdb.Set(ctx, cacheKey, data, fieldCacheTTL)
		}
	}

	return defs, nil
}

// Get 获取表单详情
func (s *FormService) Get(ctx context.Context, id string) (*entity.Form, error) {
	return s.repo.FindByID(ctx, id)
}

// List 获取表单列表
func (s *FormService) List(ctx context.Context, page, pageSize int) ([]entity.Form, int64, error) {
	return s.repo.List(ctx, page, pageSize)
}

// Create 创建表单
func (s *FormService) Create(ctx context.Context, createdBy string, req *CreateFormRequest) (*entity.Form, error) {
	if err := validateFields(req.Fields); err != nil {
		return nil, err
	}

	now := time.Now()
	form := &entity.Form{
		ID:          uuid.New().String()[:32],
		Name:        req.Name,
		Description: req.Description,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
		Fields:      buildFields("", req.Fields, now),
	}
	for i := range form.Fields {
		form.Fields[i].FormID = form.ID
	}

	if err := s.repo.Create(ctx, form); err != nil {
		return nil, fmt.Errorf("create form: %w", err)
	}
	return form, nil
}

// Update 更新表单，字段定义整体替换并失效缓存
func (s *FormService) Update(ctx context.Context, id string, req *UpdateFormRequest) (*entity.Form, error) {
	form, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find form: %w", err)
	}
	if form == nil {
		return nil, nil
	}

	if req.Name != "" {
		form.Name = req.Name
	}
	if req.Description != "" {
		form.Description = req.Description
	}
	form.UpdatedAt = time.Now()
	if len(req.Fields) > 0 {
		if err := validateFields(req.Fields); err != nil {
			return nil, err
		}
		form.Fields = buildFields(form.ID, req.Fields, form.UpdatedAt)
	}

	if err := s.repo.Update(ctx, form); err != nil {
		return nil, fmt.Errorf("update form: %w", err)
	}
	s.invalidateCache(ctx, id)
	return form, nil
}

// Delete 删除表单并失效缓存
func (s *FormService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete form: %w", err)
	}
	s.invalidateCache(ctx, id)
	return nil
}

func (s *FormService) invalidateCache(ctx context.Context, formID string) {
	if s.rdb != nil {
		s.rdb.Del(ctx, "form:fields:"+formID)
	}
}

func validateFields(fields []FieldInput) error {
	seen := map[string]bool{}
	for _, f := range fields {
		if !entity.ValidFieldKind(f.Kind) {
			return fmt.Errorf("invalid field kind: %s", f.Kind)
		}
		if seen[f.Label] {
			return fmt.Errorf("duplicate field label: %s", f.Label)
		}
		seen[f.Label] = true
	}
	return nil
}

func buildFields(formID string, inputs []FieldInput, now time.Time) []entity.FormField {
	fields := make([]entity.FormField, 0, len(inputs))
	for i, in := range inputs {
		choices := make(entity.JSONBArray, 0, len(in.Choices))
		for _, ch := range in.Choices {
			choices = append(choices, ch)
		}
		fields = append(fields, entity.FormField{
			ID:        uuid.New().String()[:32],
			FormID:    formID,
			Label:     in.Label,
			Kind:      in.Kind,
			Required:  in.Required,
			Choices:   choices,
			SortOrder: i,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	return fields
}
