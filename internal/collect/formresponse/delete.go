package formresponse

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// ErrResponseNotFound 目标提交记录不存在
var ErrResponseNotFound = errors.New("response record not found")

// DeletePermanently 永久删除提交记录，关联资源/位置行由持久化服务级联清理。
// 错误同时写入状态槽供展示层读取。
func (c *Controller) DeletePermanently(ctx context.Context, responseID string) error {
	c.mu.Lock()
	c.deleting = true
	c.deleteErr = ""
	c.mu.Unlock()

	err := c.responseSvc.DeletePermanently(ctx, responseID)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleting = false
	if err != nil {
		c.deleteErr = "删除提交记录失败: " + err.Error()
		c.logger.Warn("delete response failed",
			zap.String("response_id", responseID), zap.Error(err))
		return err
	}
	return nil
}
