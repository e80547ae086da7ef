package handler

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/bitfantasy/nimo-collect/internal/collect/formresponse"
	"github.com/bitfantasy/nimo-collect/internal/collect/service"
	"github.com/gin-gonic/gin"
)

// ResponseHandler 提交记录管理处理器
type ResponseHandler struct {
	svc       *service.ResponseService
	exportSvc *service.ExportService
}

// NewResponseHandler 创建提交记录处理器
func NewResponseHandler(svc *service.ResponseService, exportSvc *service.ExportService) *ResponseHandler {
	return &ResponseHandler{svc: svc, exportSvc: exportSvc}
}

// List 获取表单的提交记录列表
// GET /api/v1/forms/:id/responses
func (h *ResponseHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)

	responses, total, err := h.svc.ListByForm(c.Request.Context(), c.Param("id"), page, pageSize)
	if err != nil {
		InternalError(c, "获取提交记录失败: "+err.Error())
		return
	}

	Success(c, ListResponse{
		Items: responses,
		Pagination: &Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      int(total),
			TotalPages: totalPages(total, pageSize),
		},
	})
}

// Get 获取提交记录详情（含关联资源与拍摄位置）
// GET /api/v1/responses/:id
func (h *ResponseHandler) Get(c *gin.Context) {
	resp, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		InternalError(c, "获取提交记录失败: "+err.Error())
		return
	}
	if resp == nil {
		NotFound(c, "提交记录不存在")
		return
	}
	Success(c, resp)
}

// Delete 永久删除提交记录并级联清理关联资源
// DELETE /api/v1/responses/:id
func (h *ResponseHandler) Delete(c *gin.Context) {
	if err := h.svc.DeletePermanently(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, formresponse.ErrResponseNotFound) {
			NotFound(c, "提交记录不存在")
			return
		}
		InternalError(c, "删除提交记录失败: "+err.Error())
		return
	}
	Success(c, gin.H{"message": "提交记录已删除"})
}

// Export 导出表单全部提交记录为xlsx
// GET /api/v1/forms/:id/responses/export
func (h *ResponseHandler) Export(c *gin.Context) {
	f, filename, err := h.exportSvc.ExportResponses(c.Request.Context(), c.Param("id"))
	if err != nil {
		InternalError(c, "导出失败: "+err.Error())
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition",
		fmt.Sprintf(`attachment; filename*=UTF-8''%s`, url.PathEscape(filename)))
	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "写出文件失败: "+err.Error())
	}
}
