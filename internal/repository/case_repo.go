package repository

import (
	"errors"
	"fmt"

	"github.com/fyerfyer/case-extractor/internal/database"
	"github.com/fyerfyer/case-extractor/internal/models"
	"gorm.io/gorm"
)

// caseBatchSize 批量写入案例的批次大小
const caseBatchSize = 100

// caseRepository 案例仓储实现
type caseRepository struct {
	db *gorm.DB
}

// NewCaseRepository 使用全局数据库连接创建案例仓储
func NewCaseRepository() CaseRepository {
	return &caseRepository{db: database.MustDB()}
}

// NewCaseRepositoryWithDB 使用指定的数据库连接创建案例仓储
func NewCaseRepositoryWithDB(db *gorm.DB) CaseRepository {
	if db == nil {
		db = database.MustDB()
	}
	return &caseRepository{db: db}
}

// ReplaceForDocument 在一个事务中删除旧案例并写入新案例
func (r *caseRepository) ReplaceForDocument(documentID string, records []models.CaseRecord) ([]*models.Case, error) {
	if documentID == "" {
		return nil, errors.New("document ID cannot be empty")
	}

	cases := make([]*models.Case, 0, len(records))
	for i, rec := range records {
		cases = append(cases, models.NewCaseFromRecord(documentID, i, rec))
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", documentID).Delete(&models.Case{}).Error; err != nil {
			return err
		}
		if len(cases) == 0 {
			return nil
		}
		return tx.CreateInBatches(cases, caseBatchSize).Error
	})
	if err != nil {
		return nil, err
	}
	return cases, nil
}

// GetByID 根据ID获取案例
func (r *caseRepository) GetByID(id string) (*models.Case, error) {
	var c models.Case
	if err := r.db.Where("id = ?", id).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", models.ErrCaseNotFound, id)
		}
		return nil, err
	}
	return &c, nil
}

// ListByDocument 按顺序列出报告的案例
func (r *caseRepository) ListByDocument(documentID string) ([]*models.Case, error) {
	var cases []*models.Case
	err := r.db.Where("document_id = ?", documentID).
		Order("position ASC").
		Find(&cases).Error
	return cases, err
}

// List 列出案例
func (r *caseRepository) List(offset, limit int, filters map[string]interface{}) ([]*models.Case, int64, error) {
	var cases []*models.Case
	var total int64

	query := r.db.Model(&models.Case{})
	for _, column := range []string{"document_id", "room", "status", "importance"} {
		if v, ok := filters[column].(string); ok && v != "" {
			query = query.Where(column+" = ?", v)
		}
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if limit <= 0 {
		limit = 20
	}
	err := query.Order("created_at DESC, position ASC").
		Offset(offset).
		Limit(limit).
		Find(&cases).Error
	if err != nil {
		return nil, 0, err
	}
	return cases, total, nil
}

// CountByDocument 统计报告的案例数量
func (r *caseRepository) CountByDocument(documentID string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Case{}).
		Where("document_id = ?", documentID).
		Count(&count).Error
	return count, err
}

// DeleteByDocument 删除报告的全部案例
func (r *caseRepository) DeleteByDocument(documentID string) error {
	return r.db.Where("document_id = ?", documentID).Delete(&models.Case{}).Error
}
