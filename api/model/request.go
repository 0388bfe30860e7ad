package model

import (
	"mime/multipart"
	"time"

	"github.com/fyerfyer/case-extractor/internal/anonymizer"
)

// 分页请求参数
type PaginationRequest struct {
	Page     int `form:"page" json:"page" binding:"omitempty,min=1"`           // 当前页码，从1开始
	PageSize int `form:"page_size" json:"page_size" binding:"omitempty,min=1"` // 每页记录数
}

// GetPage 获取页码，默认为1
func (p *PaginationRequest) GetPage() int {
	if p.Page <= 0 {
		return 1
	}
	return p.Page
}

// GetPageSize 获取每页记录数，默认为10，最大为100
func (p *PaginationRequest) GetPageSize() int {
	if p.PageSize <= 0 {
		return 10
	}
	if p.PageSize > 100 {
		return 100
	}
	return p.PageSize
}

// Offset 当前页的起始位置
func (p *PaginationRequest) Offset() int {
	return (p.GetPage() - 1) * p.GetPageSize()
}

// AnonymizationOptions 匿名化开关，未提供时使用服务端默认值
type AnonymizationOptions struct {
	PreserveDates *bool `form:"preserve_dates" json:"preserve_dates"` // 保留日期
	PreserveTimes *bool `form:"preserve_times" json:"preserve_times"` // 保留时间
}

// Resolve 用请求中提供的开关覆盖默认值
func (o AnonymizationOptions) Resolve(defaults anonymizer.Options) anonymizer.Options {
	if o.PreserveDates != nil {
		defaults.PreserveDates = *o.PreserveDates
	}
	if o.PreserveTimes != nil {
		defaults.PreserveTimes = *o.PreserveTimes
	}
	return defaults
}

// DocumentUploadRequest 报告上传请求
type DocumentUploadRequest struct {
	File *multipart.FileHeader `form:"file" binding:"required"` // 文件对象
	AnonymizationOptions
}

// DocumentIDRequest 路径中的报告ID
type DocumentIDRequest struct {
	ID string `uri:"id" binding:"required"` // 报告ID
}

// DocumentListRequest 报告列表请求
type DocumentListRequest struct {
	PaginationRequest
	StartTime *time.Time `form:"start_time" json:"start_time" binding:"omitempty"`                                     // 开始时间
	EndTime   *time.Time `form:"end_time" json:"end_time" binding:"omitempty"`                                         // 结束时间
	Status    string     `form:"status" json:"status" binding:"omitempty,oneof=uploaded processing completed failed"`  // 报告状态
	Method    string     `form:"method" json:"method" binding:"omitempty,oneof=ai pattern none"`                       // 解析方式
	FileName  string     `form:"file_name" json:"file_name" binding:"omitempty"`                                       // 文件名模糊匹配
}

// CaseListRequest 案例列表请求
type CaseListRequest struct {
	PaginationRequest
	DocumentID string `form:"document_id" json:"document_id" binding:"omitempty"` // 所属报告
	Room       string `form:"room" json:"room" binding:"omitempty"`               // 房间号
	Status     string `form:"status" json:"status" binding:"omitempty"`           // 案例状态
	Importance string `form:"importance" json:"importance" binding:"omitempty"`   // 重要程度
}

// AnonymizeTextRequest 文本匿名化请求
type AnonymizeTextRequest struct {
	Text string `json:"text" binding:"required"` // 待匿名化文本
	AnonymizationOptions
}

// AnonymizationStatsRequest 敏感信息统计请求
type AnonymizationStatsRequest struct {
	Text string `json:"text" binding:"required"` // 待分析文本
}

// TaskStatusRequest 任务状态查询参数
type TaskStatusRequest struct {
	Wait string `form:"wait" json:"wait" binding:"omitempty"` // 等待时长，如 30s
}
