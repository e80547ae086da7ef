package formresponse

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// LoadForEdit 加载历史提交记录用于编辑。仅在表单结构加载完成后有意义。
// 新的值存储与拍摄时间映射在加载成功后整体替换；失败时原状态不变。
func (c *Controller) LoadForEdit(ctx context.Context, responseID string) {
	c.mu.Lock()
	if c.schemaLoading || len(c.schema) == 0 {
		c.loadErr = "表单结构尚未加载"
		c.mu.Unlock()
		return
	}
	c.loadingResponse = true
	c.loadErr = ""
	c.mu.Unlock()

	record, err := c.responseSvc.Fetch(ctx, responseID)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadingResponse = false
	if err != nil {
		c.loadErr = "加载提交记录失败: " + err.Error()
		c.logger.Warn("load response for edit failed",
			zap.String("response_id", responseID), zap.Error(err))
		return
	}
	if record == nil {
		c.loadErr = "提交记录不存在"
		return
	}

	// 先按表单结构建初始映射，再原样复制记录values的每个键
	values := emptyValues(c.schema)
	for k, v := range record.Values {
		values[k] = v
	}
	takenAt := map[string]time.Time{}

	// 关联资源覆盖所属上传字段的URL/DbId/拍摄时间
	if record.ImageUpload != nil {
		if label := matchAssetLabel(c.schema, values, record.ImageUpload.ID); label != "" {
			values[label] = record.ImageUpload.SecureURL
			values[dbIDKey(label)] = record.ImageUpload.ID
			if record.ImageUpload.OriginalFilename != "" {
				values[originalFilenameKey(label)] = record.ImageUpload.OriginalFilename
			}
			if record.ImageUpload.TakenAt != nil {
				takenAt[label] = *record.ImageUpload.TakenAt
			}
		}
	}

	c.values = values
	c.takenAt = takenAt
	c.fieldErrs = map[string]string{}
	for label := range c.uploadTokens {
		c.uploadTokens[label]++
	}
	c.uploading = map[string]bool{}
}

// matchAssetLabel 依据values中的DbId影子键匹配关联资源所属的上传字段，
// 无匹配时退回第一个上传字段
func matchAssetLabel(schema []FieldDefinition, values map[string]interface{}, assetID int64) string {
	first := ""
	for _, f := range schema {
		if !f.Kind.IsAsset() {
			continue
		}
		if first == "" {
			first = f.Label
		}
		if id, ok := asInt64(values[dbIDKey(f.Label)]); ok && id == assetID {
			return f.Label
		}
	}
	return first
}
