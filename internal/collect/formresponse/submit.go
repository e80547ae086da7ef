package formresponse

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
)

// 提交被拒绝时返回的错误
var (
	ErrInvalid        = errors.New("form state is invalid")
	ErrSubmitInFlight = errors.New("submission already in progress")
)

// Submit 校验通过后构建载荷并创建或更新提交记录；responseID非空表示更新。
// 校验不通过立即失败且不发起任何网络调用；提交失败保留已填写内容便于重试；
// 提交成功后重置填报状态并触发回调。同一控制器同时只允许一次提交。
func (c *Controller) Submit(ctx context.Context, responseID string) (*ResponseRecord, error) {
	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return nil, ErrSubmitInFlight
	}
	if c.invalidLocked() {
		c.submitErr = "表单尚未填写完整"
		c.mu.Unlock()
		return nil, ErrInvalid
	}

	payload := SubmitPayload{
		FormID: c.formID,
		UserID: c.userID,
		Values: copyValues(c.values),
	}
	// DbId影子键显式重新写入，保证资源关联ID不被上游浅拷贝丢弃
	for k, v := range c.values {
		if strings.HasSuffix(k, "DbId") {
			payload.Values[k] = v
		}
	}
	c.submitting = true
	c.submitErr = ""
	c.mu.Unlock()

	var record *ResponseRecord
	var err error
	if responseID != "" {
		record, err = c.responseSvc.Update(ctx, responseID, payload)
	} else {
		record, err = c.responseSvc.Create(ctx, payload)
	}

	c.mu.Lock()
	c.submitting = false
	if err != nil {
		c.submitErr = "提交失败: " + err.Error()
		c.mu.Unlock()
		c.logger.Warn("submit response failed",
			zap.String("form_id", c.formID), zap.Error(err))
		return nil, err
	}
	c.submitErr = ""
	c.initializeLocked()
	c.mu.Unlock()

	if c.onSubmitSuccess != nil {
		c.onSubmitSuccess()
	}
	return record, nil
}
