package formresponse

import (
	"context"

	"go.uber.org/zap"
)

// LoadSchema 加载表单的字段定义并初始化值存储。
// 可重复调用；过期调用的结果通过加载代数判别后丢弃。
func (c *Controller) LoadSchema(ctx context.Context) {
	c.mu.Lock()
	c.schemaGen++
	gen := c.schemaGen
	c.schemaLoading = true
	c.schemaErr = ""
	c.mu.Unlock()

	defs, err := c.schemaSvc.FieldDefinitions(ctx, c.formID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.schemaGen {
		// 已有更新的加载请求，丢弃过期结果
		return
	}
	c.schemaLoading = false
	if err != nil {
		c.schemaErr = "加载表单结构失败: " + err.Error()
		c.logger.Warn("load form schema failed",
			zap.String("form_id", c.formID), zap.Error(err))
		return
	}
	c.schema = defs
	c.initializeLocked()
}

// Schema 返回当前已加载的字段定义
func (c *Controller) Schema() []FieldDefinition {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]FieldDefinition(nil), c.schema...)
}
