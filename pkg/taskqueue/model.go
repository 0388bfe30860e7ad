package taskqueue

import (
	"encoding/json"
	"time"
)

// TaskType 任务类型
type TaskType string

const (
	// TaskCaseExtraction 报告案例提取任务，覆盖提取、匿名化与解析的完整流程
	TaskCaseExtraction TaskType = "case_extraction"
)

// TaskStatus 任务状态
type TaskStatus string

const (
	// StatusPending 等待处理
	StatusPending TaskStatus = "pending"
	// StatusProcessing 处理中
	StatusProcessing TaskStatus = "processing"
	// StatusCompleted 已完成
	StatusCompleted TaskStatus = "completed"
	// StatusFailed 处理失败
	StatusFailed TaskStatus = "failed"
)

// Task 任务基础结构
type Task struct {
	ID          string          `json:"id"`           // 任务唯一标识符
	Type        TaskType        `json:"type"`         // 任务类型
	DocumentID  string          `json:"document_id"`  // 关联的报告ID
	Status      TaskStatus      `json:"status"`       // 任务状态
	Payload     json.RawMessage `json:"payload"`      // 任务载荷
	Result      json.RawMessage `json:"result"`       // 任务结果
	Error       string          `json:"error"`        // 错误信息（如果处理失败）
	CreatedAt   time.Time       `json:"created_at"`   // 创建时间
	UpdatedAt   time.Time       `json:"updated_at"`   // 更新时间
	StartedAt   *time.Time      `json:"started_at"`   // 开始处理时间
	CompletedAt *time.Time      `json:"completed_at"` // 完成时间
	Attempts    int             `json:"attempts"`     // 尝试次数
	MaxRetries  int             `json:"max_retries"`  // 最大重试次数
}

// CaseExtractionPayload 案例提取任务载荷
type CaseExtractionPayload struct {
	DocumentID    string `json:"document_id"`    // 报告ID
	FileID        string `json:"file_id"`        // 原始文件在存储中的ID
	FileName      string `json:"file_name"`      // 原始文件名
	PreserveDates bool   `json:"preserve_dates"` // 匿名化时保留日期
	PreserveTimes bool   `json:"preserve_times"` // 匿名化时保留时间
}

// CaseExtractionResult 案例提取任务结果
type CaseExtractionResult struct {
	DocumentID   string `json:"document_id"`   // 报告ID
	CaseCount    int    `json:"case_count"`    // 提取出的案例数
	Method       string `json:"method"`        // 解析方式 ai/pattern/none
	TranscriptID string `json:"transcript_id"` // 匿名化文本的存储ID
}
