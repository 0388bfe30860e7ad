package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DocumentStatus 报告处理状态类型
type DocumentStatus string

const (
	// DocStatusUploaded 报告已上传，等待处理
	DocStatusUploaded DocumentStatus = "uploaded"
	// DocStatusProcessing 报告处理中
	DocStatusProcessing DocumentStatus = "processing"
	// DocStatusCompleted 报告处理完成
	DocStatusCompleted DocumentStatus = "completed"
	// DocStatusFailed 报告处理失败
	DocStatusFailed DocumentStatus = "failed"
)

// ProcessStage 报告处理阶段
type ProcessStage string

const (
	// StageExtracting 文本提取阶段
	StageExtracting ProcessStage = "extracting"
	// StageAnonymizing 匿名化阶段
	StageAnonymizing ProcessStage = "anonymizing"
	// StageParsing 案例解析阶段
	StageParsing ProcessStage = "parsing"
	// StageCompleted 处理完成
	StageCompleted ProcessStage = "completed"
)

// Document 上传报告的数据模型
// 记录文件元数据、处理状态以及匿名化统计
type Document struct {
	ID            string         `gorm:"primaryKey"`         // 报告ID，主键
	FileName      string         `gorm:"not null"`           // 原始文件名
	FileType      string         `gorm:"not null"`           // 文件类型（扩展名）
	FilePath      string         `gorm:"not null"`           // 存储中的文件ID
	FileSize      int64          `gorm:"not null"`           // 文件大小（字节）
	Status        DocumentStatus `gorm:"not null;index"`     // 处理状态
	UploadedAt    time.Time      `gorm:"not null;index"`     // 上传时间
	ProcessedAt   *time.Time     `gorm:"index"`              // 处理完成时间
	UpdatedAt     time.Time      `gorm:"not null;index"`     // 更新时间
	Error         string         `gorm:"type:text"`          // 错误信息
	CaseCount     int            `gorm:"not null;default:0"` // 提取出的案例数量
	Method        string         `gorm:"size:20"`            // 解析方式 ai/pattern/none
	TranscriptID  string         `gorm:"size:50"`            // 匿名化文本在存储中的ID
	Metadata      datatypes.JSON `gorm:"type:json"`          // 匿名化统计，JSON格式
	CurrentStage  ProcessStage   `gorm:"size:20"`            // 当前处理阶段
	CurrentTaskID string         `gorm:"size:50;index"`      // 当前关联的任务ID
}

// BeforeCreate GORM的钩子函数，创建记录前自动设置时间
func (d *Document) BeforeCreate(tx *gorm.DB) (err error) {
	if d.UploadedAt.IsZero() {
		d.UploadedAt = time.Now()
	}
	d.UpdatedAt = time.Now()
	return nil
}

// BeforeUpdate GORM的钩子函数，更新记录前自动设置更新时间
func (d *Document) BeforeUpdate(tx *gorm.DB) (err error) {
	d.UpdatedAt = time.Now()
	return nil
}

// TableName 明确指定表名
func (Document) TableName() string {
	return "documents"
}
