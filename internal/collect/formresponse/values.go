package formresponse

import "time"

// emptyValues 按字段定义生成初始值映射：
// Checkbox为空集合，上传字段为nil值加两个nil影子键，其余为空字符串。
func emptyValues(schema []FieldDefinition) map[string]interface{} {
	values := make(map[string]interface{}, len(schema)*2)
	for _, f := range schema {
		switch {
		case f.Kind == KindCheckbox:
			values[f.Label] = []string{}
		case f.Kind.IsAsset():
			values[f.Label] = nil
			values[dbIDKey(f.Label)] = nil
			values[originalFilenameKey(f.Label)] = nil
		default:
			values[f.Label] = ""
		}
	}
	return values
}

// initializeLocked 重建值存储并清空上传协调器状态，调用方必须持锁
func (c *Controller) initializeLocked() {
	c.values = emptyValues(c.schema)
	c.takenAt = map[string]time.Time{}
	c.fieldErrs = map[string]string{}
	// 令牌前移，在途上传的结果全部作废
	for label := range c.uploadTokens {
		c.uploadTokens[label]++
	}
	c.uploading = map[string]bool{}
}

// Set 覆盖单个字段值；不做类型校验，校验统一由Validator承担
func (c *Controller) Set(label string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[label] = value
}

// Toggle 勾选或取消勾选Checkbox选项
func (c *Controller) Toggle(label, choice string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := stringSlice(c.values[label])
	next := make([]string, 0, len(current)+1)
	found := false
	for _, v := range current {
		if v == choice {
			found = true
			continue
		}
		next = append(next, v)
	}
	if !found {
		next = append(next, choice)
	}
	c.values[label] = next
}

// Reset 按当前已加载的表单结构重置全部填报状态
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.initializeLocked()
}

// stringSlice 兼容编辑加载后JSON反序列化产生的[]interface{}形态
func stringSlice(v interface{}) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []interface{}:
		out := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}
