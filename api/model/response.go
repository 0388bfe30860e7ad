package model

import (
	"encoding/json"
	"time"

	"github.com/fyerfyer/case-extractor/internal/anonymizer"
	"github.com/fyerfyer/case-extractor/internal/models"
)

// Response 通用响应结构
type Response struct {
	Code    int         `json:"code"`               // 响应状态码，0表示成功
	Message string      `json:"message"`            // 响应消息
	Data    interface{} `json:"data,omitempty"`     // 响应数据，可能为空
	TraceID string      `json:"trace_id,omitempty"` // 调用链追踪ID
}

// NewSuccessResponse 创建成功响应
func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Code:    0,
		Message: "success",
		Data:    data,
	}
}

// NewErrorResponse 创建错误响应
func NewErrorResponse(code int, message string) *Response {
	return &Response{
		Code:    code,
		Message: message,
	}
}

// CaseExtractionResponse 上传即解析的响应
type CaseExtractionResponse struct {
	DocumentID string              `json:"document_id,omitempty"` // 报告ID
	Cases      []models.CaseRecord `json:"cases"`                 // 提取出的案例
	Message    string              `json:"message"`               // 提示信息
}

// WorkflowResponse 完整流程的响应
type WorkflowResponse struct {
	Document DocumentInfo        `json:"document"` // 报告信息
	Cases    []models.CaseRecord `json:"cases"`    // 提取出的案例
	Message  string              `json:"message"`  // 提示信息
}

// AsyncProcessResponse 异步处理的响应
type AsyncProcessResponse struct {
	DocumentID string `json:"document_id"` // 报告ID
	TaskID     string `json:"task_id"`     // 任务ID
	Status     string `json:"status"`      // 报告状态
}

// DocumentInfo 报告信息
type DocumentInfo struct {
	ID                 string          `json:"id"`                            // 报告ID
	FileName           string          `json:"filename"`                      // 文件名
	FileType           string          `json:"file_type"`                     // 文件类型
	FileSize           int64           `json:"file_size"`                     // 文件大小
	Status             string          `json:"status"`                        // 状态
	Stage              string          `json:"stage,omitempty"`               // 当前处理阶段
	Method             string          `json:"method,omitempty"`              // 解析方式
	CaseCount          int             `json:"case_count"`                    // 案例数量
	Error              string          `json:"error,omitempty"`               // 错误信息
	TaskID             string          `json:"task_id,omitempty"`             // 关联任务
	AnonymizationStats json.RawMessage `json:"anonymization_stats,omitempty"` // 匿名化统计
	UploadedAt         time.Time       `json:"uploaded_at"`                   // 上传时间
	ProcessedAt        *time.Time      `json:"processed_at,omitempty"`        // 处理完成时间
}

// NewDocumentInfo 由数据模型构造报告信息
func NewDocumentInfo(doc *models.Document) DocumentInfo {
	info := DocumentInfo{
		ID:          doc.ID,
		FileName:    doc.FileName,
		FileType:    doc.FileType,
		FileSize:    doc.FileSize,
		Status:      string(doc.Status),
		Stage:       string(doc.CurrentStage),
		Method:      doc.Method,
		CaseCount:   doc.CaseCount,
		Error:       doc.Error,
		TaskID:      doc.CurrentTaskID,
		UploadedAt:  doc.UploadedAt,
		ProcessedAt: doc.ProcessedAt,
	}
	if len(doc.Metadata) > 0 {
		info.AnonymizationStats = json.RawMessage(doc.Metadata)
	}
	return info
}

// DocumentListResponse 报告列表响应
type DocumentListResponse struct {
	PaginationResponse
	Documents []DocumentInfo `json:"documents"` // 报告列表
}

// DocumentCasesResponse 报告案例响应
type DocumentCasesResponse struct {
	DocumentID string              `json:"document_id"` // 报告ID
	Cases      []models.CaseRecord `json:"cases"`       // 案例列表
}

// CaseInfo 持久化的案例
type CaseInfo struct {
	ID         string `json:"id"`          // 案例ID
	DocumentID string `json:"document_id"` // 所属报告
	Position   int    `json:"position"`    // 报告中的顺序
	models.CaseRecord
}

// NewCaseInfo 由数据模型构造案例信息
func NewCaseInfo(c *models.Case) CaseInfo {
	return CaseInfo{
		ID:         c.ID,
		DocumentID: c.DocumentID,
		Position:   c.Position,
		CaseRecord: c.ToRecord(),
	}
}

// CaseListResponse 案例列表响应
type CaseListResponse struct {
	PaginationResponse
	Cases []CaseInfo `json:"cases"` // 案例列表
}

// DocumentDeleteResponse 报告删除响应
type DocumentDeleteResponse struct {
	Success    bool   `json:"success"`     // 是否成功
	DocumentID string `json:"document_id"` // 报告ID
}

// AnonymizeTextResponse 文本匿名化响应
type AnonymizeTextResponse struct {
	AnonymizedText string `json:"anonymized_text"` // 匿名化文本
	Message        string `json:"message"`         // 提示信息
}

// AnonymizationStatsResponse 敏感信息统计响应
type AnonymizationStatsResponse struct {
	anonymizer.Stats
	Message string `json:"message"` // 提示信息
}

// AnonymizeDocumentResponse 文档匿名化响应
type AnonymizeDocumentResponse struct {
	FileName          string             `json:"filename"`              // 文件名
	FileType          string             `json:"file_type"`             // 文件类型
	AnonymizedContent []string           `json:"anonymized_content"`    // 匿名化后的段落
	Summary           anonymizer.Summary `json:"anonymization_summary"` // 替换摘要
	Message           string             `json:"message"`               // 提示信息
}

// PatternsResponse 检测规则说明
type PatternsResponse struct {
	Patterns []anonymizer.PatternInfo `json:"patterns"` // 规则列表
	Message  string                   `json:"message"`  // 提示信息
}

// PaginationResponse 分页响应信息
type PaginationResponse struct {
	Total    int64 `json:"total"`     // 总记录数
	Page     int   `json:"page"`      // 当前页码
	PageSize int   `json:"page_size"` // 每页大小
}
