package formresponse

import "strings"

// Invalid 校验聚合状态是否不可提交。纯函数，无副作用。
// 规则按字段定义顺序逐个判定，遇到首个不满足即返回：
// 结构未加载完成或为空、必填字段为空、该字段有在途上传。
func Invalid(schema []FieldDefinition, values map[string]interface{}, uploading map[string]bool, loading bool) bool {
	if loading || len(schema) == 0 {
		return true
	}
	for _, f := range schema {
		if f.Required && fieldEmpty(f, values[f.Label]) {
			return true
		}
		if uploading[f.Label] {
			return true
		}
	}
	return false
}

// fieldEmpty 按字段类型判定空值：Checkbox看集合成员数，
// 上传字段要求非空白字符串，其余类型nil或空白字符串为空
func fieldEmpty(f FieldDefinition, v interface{}) bool {
	switch {
	case f.Kind == KindCheckbox:
		return len(stringSlice(v)) == 0
	case f.Kind.IsAsset():
		s, ok := v.(string)
		return !ok || strings.TrimSpace(s) == ""
	default:
		if v == nil {
			return true
		}
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s) == ""
		}
		return false
	}
}
