package handler

import (
	"github.com/bitfantasy/nimo-collect/internal/collect/service"
	"github.com/gin-gonic/gin"
)

// FormHandler 表单定义处理器
type FormHandler struct {
	svc *service.FormService
}

// NewFormHandler 创建表单定义处理器
func NewFormHandler(svc *service.FormService) *FormHandler {
	return &FormHandler{svc: svc}
}

// List 获取表单列表
// GET /api/v1/forms
func (h *FormHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)

	forms, total, err := h.svc.List(c.Request.Context(), page, pageSize)
	if err != nil {
		InternalError(c, "获取表单列表失败: "+err.Error())
		return
	}

	Success(c, ListResponse{
		Items: forms,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: totalPages(total, pageSize),
		},
	})
}

// Get 获取表单详情（含有序字段定义）
// GET /api/v1/forms/:id
func (h *FormHandler) Get(c *gin.Context) {
	form, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		InternalError(c, "获取表单失败: "+err.Error())
		return
	}
	if form == nil {
		NotFound(c, "表单不存在")
		return
	}
	Success(c, form)
}

// Create 创建表单
// POST /api/v1/forms
func (h *FormHandler) Create(c *gin.Context) {
	var req service.CreateFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	form, err := h.svc.Create(c.Request.Context(), GetUserID(c), &req)
	if err != nil {
		BadRequest(c, "创建表单失败: "+err.Error())
		return
	}
	Created(c, form)
}

// Update 更新表单，字段定义整体替换
// PUT /api/v1/forms/:id
func (h *FormHandler) Update(c *gin.Context) {
	var req service.UpdateFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	form, err := h.svc.Update(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		BadRequest(c, "更新表单失败: "+err.Error())
		return
	}
	if form == nil {
		NotFound(c, "表单不存在")
		return
	}
	Success(c, form)
}

// Delete 删除表单
// DELETE /api/v1/forms/:id
func (h *FormHandler) Delete(c *gin.Context) {
	if err := h.svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		InternalError(c, "删除表单失败: "+err.Error())
		return
	}
	Success(c, gin.H{"message": "表单已删除"})
}
