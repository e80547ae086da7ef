package handler

import (
	"bytes"
	"errors"
	"io"

	"github.com/bitfantasy/nimo-collect/internal/collect/formresponse"
	"github.com/bitfantasy/nimo-collect/internal/collect/service"
	"github.com/gin-gonic/gin"
)

// DraftHandler 表单填报草稿处理器：按会话ID操作填报控制器
type DraftHandler struct {
	drafts  *formresponse.Manager
	formSvc *service.FormService
}

// NewDraftHandler 创建草稿处理器
func NewDraftHandler(drafts *formresponse.Manager, formSvc *service.FormService) *DraftHandler {
	return &DraftHandler{drafts: drafts, formSvc: formSvc}
}

// CreateDraftRequest 创建草稿请求
type CreateDraftRequest struct {
	FormID string `json:"form_id" binding:"required"`
}

// Create 为指定表单创建草稿会话，表单结构异步加载
// POST /api/v1/drafts
func (h *DraftHandler) Create(c *gin.Context) {
	var req CreateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	form, err := h.formSvc.Get(c.Request.Context(), req.FormID)
	if err != nil {
		InternalError(c, "获取表单失败: "+err.Error())
		return
	}
	if form == nil {
		NotFound(c, "表单不存在")
		return
	}

	sid, ctl := h.drafts.Create(req.FormID, GetUserID(c))
	Created(c, gin.H{
		"session_id": sid,
		"state":      ctl.State(),
	})
}

// State 获取草稿当前聚合状态
// GET /api/v1/drafts/:sid
func (h *DraftHandler) State(c *gin.Context) {
	ctl, ok := h.drafts.Get(c.Param("sid"))
	if !ok {
		NotFound(c, "草稿会话不存在或已过期")
		return
	}
	Success(c, ctl.State())
}

// SetValueRequest 设置字段值请求
type SetValueRequest struct {
	Label string      `json:"label" binding:"required"`
	Value interface{} `json:"value"`
}

// SetValue 设置字段值（文本/日期/单选）
// PUT /api/v1/drafts/:sid/values
func (h *DraftHandler) SetValue(c *gin.Context) {
	ctl, ok := h.drafts.Get(c.Param("sid"))
	if !ok {
		NotFound(c, "草稿会话不存在或已过期")
		return
	}

	var req SetValueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	ctl.Set(req.Label, req.Value)
	Success(c, ctl.State())
}

// ToggleChoiceRequest 多选切换请求
type ToggleChoiceRequest struct {
	Label  string `json:"label" binding:"required"`
	Choice string `json:"choice" binding:"required"`
}

// ToggleChoice 切换多选字段的某个选项
// PUT /api/v1/drafts/:sid/choices
func (h *DraftHandler) ToggleChoice(c *gin.Context) {
	ctl, ok := h.drafts.Get(c.Param("sid"))
	if !ok {
		NotFound(c, "草稿会话不存在或已过期")
		return
	}

	var req ToggleChoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	ctl.Toggle(req.Label, req.Choice)
	Success(c, ctl.State())
}

// UploadFile 上传资源字段的文件，上传在后台进行
// POST /api/v1/drafts/:sid/files  (multipart: label, file)
func (h *DraftHandler) UploadFile(c *gin.Context) {
	ctl, ok := h.drafts.Get(c.Param("sid"))
	if !ok {
		NotFound(c, "草稿会话不存在或已过期")
		return
	}

	label := c.PostForm("label")
	if label == "" {
		BadRequest(c, "缺少字段标签")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "缺少上传文件: "+err.Error())
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		InternalError(c, "读取上传文件失败: "+err.Error())
		return
	}
	defer src.Close()

	// 请求结束后multipart临时文件即失效，先整体读入内存再交给后台上传
	data, err := io.ReadAll(src)
	if err != nil {
		InternalError(c, "读取上传文件失败: "+err.Error())
		return
	}

	ctl.OnFileChange(label, &formresponse.UploadFile{
		Reader:      bytes.NewReader(data),
		Filename:    fileHeader.Filename,
		Size:        int64(len(data)),
		ContentType: fileHeader.Header.Get("Content-Type"),
	})
	Success(c, ctl.State())
}

// ClearFile 清除资源字段的已选文件
// DELETE /api/v1/drafts/:sid/files/:label
func (h *DraftHandler) ClearFile(c *gin.Context) {
	ctl, ok := h.drafts.Get(c.Param("sid"))
	if !ok {
		NotFound(c, "草稿会话不存在或已过期")
		return
	}

	ctl.OnFileChange(c.Param("label"), nil)
	Success(c, ctl.State())
}

// SubmitRequest 提交请求；response_id非空时为更新已有提交
type SubmitRequest struct {
	ResponseID string `json:"response_id"`
}

// Submit 校验并提交当前草稿
// POST /api/v1/drafts/:sid/submit
func (h *DraftHandler) Submit(c *gin.Context) {
	ctl, ok := h.drafts.Get(c.Param("sid"))
	if !ok {
		NotFound(c, "草稿会话不存在或已过期")
		return
	}

	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	record, err := ctl.Submit(c.Request.Context(), req.ResponseID)
	if err != nil {
		switch {
		case errors.Is(err, formresponse.ErrInvalid):
			BadRequest(c, "表单尚未填写完整")
		case errors.Is(err, formresponse.ErrSubmitInFlight):
			Error(c, 40900, "提交正在进行中")
		default:
			InternalError(c, "提交失败: "+err.Error())
		}
		return
	}
	Success(c, gin.H{
		"response": record,
		"state":    ctl.State(),
	})
}

// LoadResponseRequest 载入已有提交请求
type LoadResponseRequest struct {
	ResponseID string `json:"response_id" binding:"required"`
}

// LoadResponse 将已有提交记录载入草稿以便编辑
// POST /api/v1/drafts/:sid/load
func (h *DraftHandler) LoadResponse(c *gin.Context) {
	ctl, ok := h.drafts.Get(c.Param("sid"))
	if !ok {
		NotFound(c, "草稿会话不存在或已过期")
		return
	}

	var req LoadResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "参数错误: "+err.Error())
		return
	}

	ctl.LoadForEdit(c.Request.Context(), req.ResponseID)
	Success(c, ctl.State())
}

// Reset 将草稿重置为空白状态
// POST /api/v1/drafts/:sid/reset
func (h *DraftHandler) Reset(c *gin.Context) {
	ctl, ok := h.drafts.Get(c.Param("sid"))
	if !ok {
		NotFound(c, "草稿会话不存在或已过期")
		return
	}

	ctl.Reset()
	Success(c, ctl.State())
}

// DeleteResponse 通过草稿控制器永久删除提交记录
// DELETE /api/v1/drafts/:sid/responses/:id
func (h *DraftHandler) DeleteResponse(c *gin.Context) {
	ctl, ok := h.drafts.Get(c.Param("sid"))
	if !ok {
		NotFound(c, "草稿会话不存在或已过期")
		return
	}

	if err := ctl.DeletePermanently(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, formresponse.ErrResponseNotFound) {
			NotFound(c, "提交记录不存在")
			return
		}
		state := ctl.State()
		Error(c, 50010, "删除失败: "+state.DeleteError)
		return
	}
	Success(c, ctl.State())
}

// Remove 关闭并移除草稿会话
// DELETE /api/v1/drafts/:sid
func (h *DraftHandler) Remove(c *gin.Context) {
	h.drafts.Remove(c.Param("sid"))
	Success(c, gin.H{"message": "草稿会话已移除"})
}
