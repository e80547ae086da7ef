package formresponse

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Controller 表单填报控制器：组合表单结构加载、值存储、上传协调、
// 校验与提交/编辑/删除编排，向展示层暴露单一聚合状态。
// 所有状态变更由同一把锁保护；协作方调用一律在锁外进行。
type Controller struct {
	formID string
	userID string

	schemaSvc       SchemaService
	responseSvc     ResponseService
	uploadSvc       UploadService
	logger          *zap.Logger
	onSubmitSuccess func()

	mu            sync.Mutex
	schema        []FieldDefinition
	schemaLoading bool
	schemaErr     string
	schemaGen     int

	values       map[string]interface{}
	uploading    map[string]bool
	uploadTokens map[string]int
	fieldErrs    map[string]string
	takenAt      map[string]time.Time

	loadingResponse bool
	loadErr         string

	submitting bool
	submitErr  string

	deleting  bool
	deleteErr string
}

// Deps 控制器协作方
type Deps struct {
	Schema   SchemaService
	Response ResponseService
	Upload   UploadService
	Logger   *zap.Logger
	// OnSubmitSuccess 提交成功后的回调（在重置状态之后、锁外调用）
	OnSubmitSuccess func()
}

// New 创建表单填报控制器
func New(formID, userID string, deps Deps) *Controller {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		formID:          formID,
		userID:          userID,
		schemaSvc:       deps.Schema,
		responseSvc:     deps.Response,
		uploadSvc:       deps.Upload,
		logger:          logger,
		onSubmitSuccess: deps.OnSubmitSuccess,
		values:          map[string]interface{}{},
		uploading:       map[string]bool{},
		uploadTokens:    map[string]int{},
		fieldErrs:       map[string]string{},
		takenAt:         map[string]time.Time{},
	}
}

// State 控制器聚合状态快照
type State struct {
	FormID          string                 `json:"form_id"`
	SchemaLoading   bool                   `json:"schema_loading"`
	SchemaError     string                 `json:"schema_error,omitempty"`
	Fields          []FieldDefinition      `json:"fields"`
	Values          map[string]interface{} `json:"values"`
	Uploading       map[string]bool        `json:"uploading"`
	FieldErrors     map[string]string      `json:"field_errors,omitempty"`
	TakenAt         map[string]string      `json:"taken_at,omitempty"`
	LoadingResponse bool                   `json:"loading_response"`
	LoadError       string                 `json:"load_error,omitempty"`
	Submitting      bool                   `json:"submitting"`
	SubmitError     string                 `json:"submit_error,omitempty"`
	Deleting        bool                   `json:"deleting"`
	DeleteError     string                 `json:"delete_error,omitempty"`
	Invalid         bool                   `json:"invalid"`
}

// State 返回当前聚合状态的快照
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	taken := make(map[string]string, len(c.takenAt))
	for label, t := range c.takenAt {
		taken[label] = formatTakenAt(t)
	}

	return State{
		FormID:          c.formID,
		SchemaLoading:   c.schemaLoading,
		SchemaError:     c.schemaErr,
		Fields:          append([]FieldDefinition(nil), c.schema...),
		Values:          copyValues(c.values),
		Uploading:       copyFlags(c.uploading),
		FieldErrors:     copyStrings(c.fieldErrs),
		TakenAt:         taken,
		LoadingResponse: c.loadingResponse,
		LoadError:       c.loadErr,
		Submitting:      c.submitting,
		SubmitError:     c.submitErr,
		Deleting:        c.deleting,
		DeleteError:     c.deleteErr,
		Invalid:         c.invalidLocked(),
	}
}

func (c *Controller) invalidLocked() bool {
	return Invalid(c.schema, c.values, c.uploading, c.schemaLoading || c.loadingResponse)
}

func formatTakenAt(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04:05")
}

func copyValues(values map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}

func copyFlags(flags map[string]bool) map[string]bool {
	out := make(map[string]bool, len(flags))
	for k, v := range flags {
		out[k] = v
	}
	return out
}

func copyStrings(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func asInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case float64:
		return int64(n), true
	}
	return 0, false
}
