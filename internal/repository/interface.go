package repository

import "github.com/fyerfyer/case-extractor/internal/models"

// DocumentRepository 报告仓储接口
// 负责报告元数据与处理状态的存储和检索
type DocumentRepository interface {
	// Create 创建报告记录
	Create(doc *models.Document) error

	// Update 更新报告记录
	Update(doc *models.Document) error

	// GetByID 根据ID获取报告
	GetByID(id string) (*models.Document, error)

	// List 列出报告，支持分页和筛选
	List(offset, limit int, filters map[string]interface{}) ([]*models.Document, int64, error)

	// Delete 删除报告及其案例
	Delete(id string) error

	// UpdateStatus 更新报告状态
	UpdateStatus(id string, status models.DocumentStatus, errorMsg string) error

	// UpdateStage 更新当前处理阶段
	UpdateStage(id string, stage models.ProcessStage) error

	// SetTask 关联异步任务
	SetTask(id, taskID string) error
}

// CaseRepository 案例仓储接口
type CaseRepository interface {
	// ReplaceForDocument 用新的解析结果替换报告下的全部案例
	ReplaceForDocument(documentID string, records []models.CaseRecord) ([]*models.Case, error)

	// GetByID 根据ID获取案例
	GetByID(id string) (*models.Case, error)

	// ListByDocument 按顺序列出报告的案例
	ListByDocument(documentID string) ([]*models.Case, error)

	// List 列出案例，支持按 document_id、room、status、importance 筛选
	List(offset, limit int, filters map[string]interface{}) ([]*models.Case, int64, error)

	// CountByDocument 统计报告的案例数量
	CountByDocument(documentID string) (int64, error)

	// DeleteByDocument 删除报告的全部案例
	DeleteByDocument(documentID string) error
}
