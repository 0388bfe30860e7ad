package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/fyerfyer/case-extractor/internal/database"
	"github.com/fyerfyer/case-extractor/internal/models"
	"gorm.io/gorm"
)

// docRepository 报告仓储实现
type docRepository struct {
	db *gorm.DB // 数据库连接
}

// NewDocumentRepository 使用全局数据库连接创建报告仓储
func NewDocumentRepository() DocumentRepository {
	return &docRepository{db: database.MustDB()}
}

// NewDocumentRepositoryWithDB 使用指定的数据库连接创建报告仓储
func NewDocumentRepositoryWithDB(db *gorm.DB) DocumentRepository {
	if db == nil {
		db = database.MustDB()
	}
	return &docRepository{db: db}
}

// Create 创建报告记录
func (r *docRepository) Create(doc *models.Document) error {
	if doc.ID == "" {
		return errors.New("document ID cannot be empty")
	}
	return r.db.Create(doc).Error
}

// Update 更新报告记录
func (r *docRepository) Update(doc *models.Document) error {
	if doc.ID == "" {
		return errors.New("document ID cannot be empty")
	}
	return r.db.Save(doc).Error
}

// GetByID 根据ID获取报告
func (r *docRepository) GetByID(id string) (*models.Document, error) {
	var doc models.Document
	err := r.db.Where("id = ?", id).First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", models.ErrDocumentNotFound, id)
		}
		return nil, err
	}
	return &doc, nil
}

// List 列出报告，支持 status、method、file_name、start_time、end_time 筛选
func (r *docRepository) List(offset, limit int, filters map[string]interface{}) ([]*models.Document, int64, error) {
	var docs []*models.Document
	var total int64

	query := r.db.Model(&models.Document{})

	if status, ok := filters["status"]; ok {
		if s := fmt.Sprint(status); s != "" {
			query = query.Where("status = ?", s)
		}
	}
	if method, ok := filters["method"].(string); ok && method != "" {
		query = query.Where("method = ?", method)
	}
	if fileName, ok := filters["file_name"].(string); ok && fileName != "" {
		query = query.Where("file_name LIKE ?", "%"+fileName+"%")
	}
	if startTime, ok := filters["start_time"].(time.Time); ok && !startTime.IsZero() {
		query = query.Where("uploaded_at >= ?", startTime)
	}
	if endTime, ok := filters["end_time"].(time.Time); ok && !endTime.IsZero() {
		query = query.Where("uploaded_at <= ?", endTime)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 20
	}
	err := query.Order("uploaded_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&docs).Error
	if err != nil {
		return nil, 0, err
	}

	return docs, total, nil
}

// Delete 在一个事务中删除报告与其案例
func (r *docRepository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", id).Delete(&models.Case{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Document{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: %s", models.ErrDocumentNotFound, id)
		}
		return nil
	})
}

// UpdateStatus 更新报告状态
func (r *docRepository) UpdateStatus(id string, status models.DocumentStatus, errorMsg string) error {
	switch status {
	case models.DocStatusUploaded, models.DocStatusProcessing, models.DocStatusCompleted, models.DocStatusFailed:
	default:
		return fmt.Errorf("%w: %s", models.ErrInvalidDocumentStatus, status)
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":     status,
		"error":      errorMsg,
		"updated_at": now,
	}

	// 已完成或失败时记录处理完成时间
	if status == models.DocStatusCompleted || status == models.DocStatusFailed {
		updates["processed_at"] = &now
	}

	return r.updates(id, updates)
}

// UpdateStage 更新当前处理阶段
func (r *docRepository) UpdateStage(id string, stage models.ProcessStage) error {
	return r.updates(id, map[string]interface{}{
		"current_stage": stage,
		"updated_at":    time.Now(),
	})
}

// SetTask 关联异步任务
func (r *docRepository) SetTask(id, taskID string) error {
	return r.updates(id, map[string]interface{}{
		"current_task_id": taskID,
		"updated_at":      time.Now(),
	})
}

func (r *docRepository) updates(id string, values map[string]interface{}) error {
	res := r.db.Model(&models.Document{}).Where("id = ?", id).Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", models.ErrDocumentNotFound, id)
	}
	return nil
}
