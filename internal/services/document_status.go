package services

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fyerfyer/case-extractor/internal/anonymizer"
	"github.com/fyerfyer/case-extractor/internal/models"
	"github.com/fyerfyer/case-extractor/internal/repository"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// validTransitions 报告状态的合法转换
var validTransitions = map[models.DocumentStatus][]models.DocumentStatus{
	models.DocStatusUploaded:   {models.DocStatusProcessing, models.DocStatusFailed},
	models.DocStatusProcessing: {models.DocStatusCompleted, models.DocStatusFailed},
	models.DocStatusCompleted:  {models.DocStatusProcessing}, // 允许重新解析
	models.DocStatusFailed:     {models.DocStatusProcessing}, // 允许重试
}

// Completion 处理完成时写回报告的信息
type Completion struct {
	Method       string
	CaseCount    int
	TranscriptID string
	Stats        anonymizer.Stats
}

// DocumentStatusManager 报告状态管理器
// 负责报告处理的生命周期状态
type DocumentStatusManager struct {
	repo   repository.DocumentRepository // 报告仓储接口
	logger *logrus.Logger                // 日志记录器
	mu     sync.Mutex                    // 保证状态转换的原子性
}

// NewDocumentStatusManager 创建报告状态管理器
func NewDocumentStatusManager(repo repository.DocumentRepository, logger *logrus.Logger) *DocumentStatusManager {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &DocumentStatusManager{
		repo:   repo,
		logger: logger,
	}
}

// MarkAsUploaded 创建已上传状态的报告记录
func (m *DocumentStatusManager) MarkAsUploaded(ctx context.Context, docID, fileName, fileID string, fileSize int64) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc := &models.Document{
		ID:       docID,
		FileName: fileName,
		FileType: getFileType(fileName),
		FilePath: fileID,
		FileSize: fileSize,
		Status:   models.DocStatusUploaded,
	}
	if err := m.repo.Create(doc); err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	m.logger.WithFields(logrus.Fields{
		"doc_id":    docID,
		"file_name": fileName,
		"file_size": fileSize,
	}).Info("Document uploaded")
	return doc, nil
}

// MarkAsProcessing 将报告标记为处理中
func (m *DocumentStatusManager) MarkAsProcessing(ctx context.Context, docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, err := m.repo.GetByID(docID)
	if err != nil {
		return err
	}
	if err := ValidateStateTransition(doc.Status, models.DocStatusProcessing); err != nil {
		return fmt.Errorf("document %s: %w", docID, err)
	}

	m.logger.WithField("doc_id", docID).Info("Marking document as processing")
	return m.repo.UpdateStatus(docID, models.DocStatusProcessing, "")
}

// MarkAsCompleted 记录解析结果并标记为完成
func (m *DocumentStatusManager) MarkAsCompleted(ctx context.Context, docID string, c Completion) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, err := m.repo.GetByID(docID)
	if err != nil {
		return err
	}
	if err := ValidateStateTransition(doc.Status, models.DocStatusCompleted); err != nil {
		return fmt.Errorf("document %s: %w", docID, err)
	}

	stats, err := json.Marshal(c.Stats)
	if err != nil {
		return fmt.Errorf("failed to encode anonymization stats: %w", err)
	}

	doc.Method = c.Method
	doc.CaseCount = c.CaseCount
	doc.TranscriptID = c.TranscriptID
	doc.Metadata = datatypes.JSON(stats)
	doc.CurrentStage = models.StageCompleted
	doc.Error = ""
	if err := m.repo.Update(doc); err != nil {
		return err
	}

	m.logger.WithFields(logrus.Fields{
		"doc_id":     docID,
		"case_count": c.CaseCount,
		"method":     c.Method,
	}).Info("Marking document as completed")
	return m.repo.UpdateStatus(docID, models.DocStatusCompleted, "")
}

// MarkAsFailed 将报告标记为处理失败
func (m *DocumentStatusManager) MarkAsFailed(ctx context.Context, docID string, errorMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.logger.WithFields(logrus.Fields{
		"doc_id": docID,
		"error":  errorMsg,
	}).Error("Marking document as failed")

	return m.repo.UpdateStatus(docID, models.DocStatusFailed, errorMsg)
}

// UpdateStage 记录当前处理阶段，失败只记录日志
func (m *DocumentStatusManager) UpdateStage(ctx context.Context, docID string, stage models.ProcessStage) {
	if err := m.repo.UpdateStage(docID, stage); err != nil {
		m.logger.WithError(err).WithField("doc_id", docID).Warn("Failed to update document stage")
	}
}

// GetDocument 获取报告
func (m *DocumentStatusManager) GetDocument(ctx context.Context, docID string) (*models.Document, error) {
	return m.repo.GetByID(docID)
}

// ListDocuments 获取报告列表
func (m *DocumentStatusManager) ListDocuments(ctx context.Context, offset, limit int, filters map[string]interface{}) ([]*models.Document, int64, error) {
	return m.repo.List(offset, limit, filters)
}

// ValidateStateTransition 验证状态转换的有效性
func ValidateStateTransition(from, to models.DocumentStatus) error {
	for _, validTo := range validTransitions[from] {
		if validTo == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", models.ErrInvalidDocumentStatus, from, to)
}

// getFileType 根据文件名获取不带点的小写扩展名
func getFileType(fileName string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(fileName)), ".")
}
