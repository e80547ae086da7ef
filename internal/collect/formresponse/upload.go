package formresponse

import (
	"context"

	"go.uber.org/zap"
)

// OnFileChange 处理上传字段的文件变更；file为nil表示用户清除了已选文件。
// 清除同步生效；上传作为独立异步任务执行，结果通过令牌判别，
// 仅该字段最近一次发起的上传可以写回结果。
func (c *Controller) OnFileChange(label string, file *UploadFile) {
	c.mu.Lock()
	if file == nil {
		c.clearAssetLocked(label)
		c.mu.Unlock()
		return
	}

	c.uploadTokens[label]++
	token := c.uploadTokens[label]
	c.uploading[label] = true
	delete(c.fieldErrs, label)
	snapshot := copyValues(c.values)
	c.mu.Unlock()

	go c.runUpload(label, token, *file, snapshot)
}

func (c *Controller) runUpload(label string, token int, file UploadFile, snapshot map[string]interface{}) {
	// 上传任务不随请求取消，与控制器生命周期一致
	result, err := c.uploadSvc.Upload(context.Background(), file, snapshot)

	c.mu.Lock()
	defer c.mu.Unlock()
	if token != c.uploadTokens[label] {
		// 已被更新的上传或清除操作取代
		return
	}
	c.uploading[label] = false
	if err != nil {
		// 上传失败保留原值，仅记录该字段的错误
		c.fieldErrs[label] = "上传失败: " + err.Error()
		c.logger.Warn("asset upload failed",
			zap.String("form_id", c.formID), zap.String("label", label), zap.Error(err))
		return
	}

	c.values[label] = result.SecureURL
	c.values[dbIDKey(label)] = result.ID
	if result.OriginalFilename != "" {
		c.values[originalFilenameKey(label)] = result.OriginalFilename
	}
	if result.TakenAt != nil {
		c.takenAt[label] = *result.TakenAt
	} else {
		delete(c.takenAt, label)
	}
}

// clearAssetLocked 清除字段值、两个影子键与拍摄时间，调用方必须持锁
func (c *Controller) clearAssetLocked(label string) {
	c.values[label] = nil
	c.values[dbIDKey(label)] = nil
	c.values[originalFilenameKey(label)] = nil
	delete(c.takenAt, label)
	delete(c.fieldErrs, label)
	c.uploadTokens[label]++
	c.uploading[label] = false
}

// GetTakenAt 返回字段拍摄时间的本地化显示文本，无记录时返回nil
func (c *Controller) GetTakenAt(label string) *string {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.takenAt[label]
	if !ok {
		return nil
	}
	s := formatTakenAt(t)
	return &s
}
