package taskqueue

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
)

// HandlerFunc 函数形式的处理器
type HandlerFunc func(ctx context.Context, task *Task) (interface{}, error)

// ProcessTask 实现Handler接口
func (f HandlerFunc) ProcessTask(ctx context.Context, task *Task) (interface{}, error) {
	return f(ctx, task)
}

// CaseExtractionFunc 处理一次案例提取
type CaseExtractionFunc func(ctx context.Context, payload CaseExtractionPayload) (*CaseExtractionResult, error)

// NewCaseExtractionHandler 解码载荷后交给 fn 处理
// 载荷无法解码时不再重试
func NewCaseExtractionHandler(fn CaseExtractionFunc) Handler {
	return HandlerFunc(func(ctx context.Context, task *Task) (interface{}, error) {
		var payload CaseExtractionPayload
		if err := UnmarshalPayload(task.Payload, &payload); err != nil {
			return nil, fmt.Errorf("%w: %v: %v", asynq.SkipRetry, ErrInvalidPayload, err)
		}
		if payload.DocumentID == "" {
			payload.DocumentID = task.DocumentID
		}
		if payload.DocumentID == "" || payload.FileID == "" {
			return nil, fmt.Errorf("%w: %v: document and file id required", asynq.SkipRetry, ErrInvalidPayload)
		}
		return fn(ctx, payload)
	})
}

// Permanent 标记错误为不可重试
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", asynq.SkipRetry, err)
}
