package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fyerfyer/case-extractor/internal/anonymizer"
	"github.com/fyerfyer/case-extractor/internal/document"
	"github.com/fyerfyer/case-extractor/internal/models"
	"github.com/fyerfyer/case-extractor/internal/repository"
	"github.com/fyerfyer/case-extractor/pkg/storage"
	"github.com/fyerfyer/case-extractor/pkg/taskqueue"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrQueueUnavailable 未配置任务队列
var ErrQueueUnavailable = errors.New("task queue not configured")

// DocumentService 报告服务
// 协调文件存储、处理流水线、案例持久化与异步任务
type DocumentService struct {
	storage       storage.Storage               // 文件存储服务
	pipeline      *CasePipeline                 // 报告处理流水线
	repo          repository.DocumentRepository // 报告元数据存储
	cases         repository.CaseRepository     // 案例存储
	statusManager *DocumentStatusManager        // 报告状态管理器
	taskQueue     taskqueue.Queue               // 任务队列
	maxFileSize   int64                         // 上传大小上限
	timeout       time.Duration                 // 单份报告的处理超时
	logger        *logrus.Logger                // 日志记录器
}

// DocumentOption 报告服务配置选项
type DocumentOption func(*DocumentService)

// NewDocumentService 创建报告服务
func NewDocumentService(store storage.Storage, pipeline *CasePipeline, opts ...DocumentOption) *DocumentService {
	srv := &DocumentService{
		storage:     store,
		pipeline:    pipeline,
		maxFileSize: 50 << 20,
		timeout:     5 * time.Minute,
		logger:      logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(srv)
	}
	return srv
}

// WithLogger 设置日志记录器
func WithLogger(logger *logrus.Logger) DocumentOption {
	return func(s *DocumentService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDocumentRepository 设置报告仓储
func WithDocumentRepository(repo repository.DocumentRepository) DocumentOption {
	return func(s *DocumentService) {
		s.repo = repo
	}
}

// WithCaseRepository 设置案例仓储
func WithCaseRepository(repo repository.CaseRepository) DocumentOption {
	return func(s *DocumentService) {
		s.cases = repo
	}
}

// WithStatusManager 设置状态管理器
func WithStatusManager(manager *DocumentStatusManager) DocumentOption {
	return func(s *DocumentService) {
		s.statusManager = manager
	}
}

// WithTaskQueue 设置任务队列，启用异步处理
func WithTaskQueue(queue taskqueue.Queue) DocumentOption {
	return func(s *DocumentService) {
		s.taskQueue = queue
	}
}

// WithMaxFileSize 设置上传大小上限
func WithMaxFileSize(n int64) DocumentOption {
	return func(s *DocumentService) {
		if n > 0 {
			s.maxFileSize = n
		}
	}
}

// WithTimeout 设置单份报告的处理超时
func WithTimeout(timeout time.Duration) DocumentOption {
	return func(s *DocumentService) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// Init 补齐未设置的依赖
func (s *DocumentService) Init() error {
	if s.storage == nil {
		return errors.New("storage is required")
	}
	if s.pipeline == nil {
		s.pipeline = NewCasePipeline(WithPipelineLogger(s.logger))
	}
	if s.repo == nil {
		s.repo = repository.NewDocumentRepository()
	}
	if s.cases == nil {
		s.cases = repository.NewCaseRepository()
	}
	if s.statusManager == nil {
		s.statusManager = NewDocumentStatusManager(s.repo, s.logger)
	}
	return nil
}

// Pipeline 返回服务使用的流水线
func (s *DocumentService) Pipeline() *CasePipeline {
	return s.pipeline
}

// AsyncEnabled 是否可以异步处理
func (s *DocumentService) AsyncEnabled() bool {
	return s.taskQueue != nil
}

// Upload 保存上传的报告并创建记录
func (s *DocumentService) Upload(ctx context.Context, r io.Reader, filename string) (*models.Document, error) {
	if !document.IsSupported(filename) {
		return nil, fmt.Errorf("%w: %s", document.ErrUnsupportedFormat, filename)
	}

	data, err := io.ReadAll(io.LimitReader(r, s.maxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > s.maxFileSize {
		return nil, fmt.Errorf("file exceeds %d bytes", s.maxFileSize)
	}

	info, err := s.storage.Save(bytes.NewReader(data), filename)
	if err != nil {
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	doc, err := s.statusManager.MarkAsUploaded(ctx, uuid.New().String(), filename, info.ID, info.Size)
	if err != nil {
		_ = s.storage.Delete(info.ID)
		return nil, err
	}
	return doc, nil
}

// ProcessDocument 同步处理已上传的报告，保存匿名化文本与案例
func (s *DocumentService) ProcessDocument(ctx context.Context, docID string, opts anonymizer.Options) (*PipelineResult, error) {
	doc, err := s.repo.GetByID(docID)
	if err != nil {
		return nil, err
	}
	if err := s.statusManager.MarkAsProcessing(ctx, docID); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result, err := s.process(ctx, doc, opts)
	if err != nil {
		if markErr := s.statusManager.MarkAsFailed(ctx, docID, err.Error()); markErr != nil {
			s.logger.WithError(markErr).WithField("doc_id", docID).Error("Failed to mark document as failed")
		}
		return nil, err
	}
	return result, nil
}

func (s *DocumentService) process(ctx context.Context, doc *models.Document, opts anonymizer.Options) (*PipelineResult, error) {
	data, err := storage.ReadAll(s.storage, doc.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to load file: %w", err)
	}

	result, err := s.pipeline.ProcessWithStages(ctx, data, doc.FileName, opts, func(stage models.ProcessStage) {
		s.statusManager.UpdateStage(ctx, doc.ID, stage)
	})
	if err != nil {
		return nil, err
	}

	var transcriptID string
	if result.AnonymizedText != "" {
		info, err := storage.SaveText(s.storage, storage.TranscriptName(doc.ID), result.AnonymizedText)
		if err != nil {
			return nil, fmt.Errorf("failed to store anonymized text: %w", err)
		}
		transcriptID = info.ID
		if doc.TranscriptID != "" && doc.TranscriptID != transcriptID {
			_ = s.storage.Delete(doc.TranscriptID)
		}
	}

	if _, err := s.cases.ReplaceForDocument(doc.ID, result.Cases); err != nil {
		return nil, fmt.Errorf("failed to save cases: %w", err)
	}

	err = s.statusManager.MarkAsCompleted(ctx, doc.ID, Completion{
		Method:       result.Method,
		CaseCount:    len(result.Cases),
		TranscriptID: transcriptID,
		Stats:        result.Stats,
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Workflow 上传并立即处理
func (s *DocumentService) Workflow(ctx context.Context, r io.Reader, filename string, opts anonymizer.Options) (*models.Document, *PipelineResult, error) {
	doc, err := s.Upload(ctx, r, filename)
	if err != nil {
		return nil, nil, err
	}

	result, err := s.ProcessDocument(ctx, doc.ID, opts)
	if err != nil {
		return doc, nil, err
	}

	doc, err = s.repo.GetByID(doc.ID)
	if err != nil {
		return nil, nil, err
	}
	return doc, result, nil
}

// IngestFile 处理收件目录中的文件
// 配置了任务队列时异步处理，否则同步处理。处理结束后源文件被删除
func (s *DocumentService) IngestFile(ctx context.Context, path string, opts anonymizer.Options) (*models.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	doc, err := s.Upload(ctx, f, filepath.Base(path))
	f.Close()
	if err != nil {
		return nil, err
	}

	log := s.logger.WithFields(logrus.Fields{"doc_id": doc.ID, "file_name": doc.FileName})
	if s.taskQueue != nil {
		if _, err := s.EnqueueProcessing(ctx, doc.ID, opts); err != nil {
			return doc, err
		}
		log.Info("Inbox file queued")
	} else {
		if _, err := s.ProcessDocument(ctx, doc.ID, opts); err != nil {
			return doc, err
		}
		log.Info("Inbox file processed")
	}

	if err := os.Remove(path); err != nil {
		log.WithError(err).Warn("Failed to remove inbox file")
	}
	return doc, nil
}

// EnqueueProcessing 将报告交给异步任务处理
func (s *DocumentService) EnqueueProcessing(ctx context.Context, docID string, opts anonymizer.Options) (string, error) {
	if s.taskQueue == nil {
		return "", ErrQueueUnavailable
	}

	doc, err := s.repo.GetByID(docID)
	if err != nil {
		return "", err
	}

	payload := taskqueue.CaseExtractionPayload{
		DocumentID:    doc.ID,
		FileID:        doc.FilePath,
		FileName:      doc.FileName,
		PreserveDates: opts.PreserveDates,
		PreserveTimes: opts.PreserveTimes,
	}
	taskID, err := s.taskQueue.Enqueue(ctx, taskqueue.TaskCaseExtraction, doc.ID, payload)
	if err != nil {
		return "", err
	}

	if err := s.repo.SetTask(doc.ID, taskID); err != nil {
		s.logger.WithError(err).WithField("doc_id", doc.ID).Warn("Failed to link task to document")
	}
	return taskID, nil
}

// CaseExtractionHandler 异步任务处理器
// 不支持的格式与提取失败不会重试
func (s *DocumentService) CaseExtractionHandler() taskqueue.Handler {
	return taskqueue.NewCaseExtractionHandler(func(ctx context.Context, p taskqueue.CaseExtractionPayload) (*taskqueue.CaseExtractionResult, error) {
		opts := anonymizer.Options{PreserveDates: p.PreserveDates, PreserveTimes: p.PreserveTimes}
		result, err := s.ProcessDocument(ctx, p.DocumentID, opts)
		if err != nil {
			if errors.Is(err, document.ErrUnsupportedFormat) ||
				errors.Is(err, document.ErrExtractionFailure) ||
				errors.Is(err, models.ErrDocumentNotFound) {
				return nil, taskqueue.Permanent(err)
			}
			return nil, err
		}

		doc, err := s.repo.GetByID(p.DocumentID)
		if err != nil {
			return nil, err
		}
		return &taskqueue.CaseExtractionResult{
			DocumentID:   doc.ID,
			CaseCount:    len(result.Cases),
			Method:       result.Method,
			TranscriptID: doc.TranscriptID,
		}, nil
	})
}

// GetDocument 获取报告
func (s *DocumentService) GetDocument(ctx context.Context, docID string) (*models.Document, error) {
	return s.statusManager.GetDocument(ctx, docID)
}

// ListDocuments 获取报告列表
func (s *DocumentService) ListDocuments(ctx context.Context, offset, limit int, filters map[string]interface{}) ([]*models.Document, int64, error) {
	return s.statusManager.ListDocuments(ctx, offset, limit, filters)
}

// GetCases 获取报告的案例
func (s *DocumentService) GetCases(ctx context.Context, docID string) ([]models.CaseRecord, error) {
	if _, err := s.repo.GetByID(docID); err != nil {
		return nil, err
	}
	stored, err := s.cases.ListByDocument(docID)
	if err != nil {
		return nil, err
	}
	records := make([]models.CaseRecord, 0, len(stored))
	for _, c := range stored {
		records = append(records, c.ToRecord())
	}
	return records, nil
}

// GetCase 获取单条案例
func (s *DocumentService) GetCase(ctx context.Context, caseID string) (*models.Case, error) {
	return s.cases.GetByID(caseID)
}

// ListCases 跨报告列出案例
func (s *DocumentService) ListCases(ctx context.Context, offset, limit int, filters map[string]interface{}) ([]*models.Case, int64, error) {
	return s.cases.List(offset, limit, filters)
}

// GetTranscript 读取报告的匿名化文本
func (s *DocumentService) GetTranscript(ctx context.Context, docID string) (string, error) {
	doc, err := s.repo.GetByID(docID)
	if err != nil {
		return "", err
	}
	if doc.TranscriptID == "" {
		return "", nil
	}
	data, err := storage.ReadAll(s.storage, doc.TranscriptID)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// GetTask 获取异步任务
func (s *DocumentService) GetTask(ctx context.Context, taskID string) (*taskqueue.Task, error) {
	if s.taskQueue == nil {
		return nil, ErrQueueUnavailable
	}
	return s.taskQueue.GetTask(ctx, taskID)
}

// WaitTask 等待任务结束，超时后返回任务当前状态
func (s *DocumentService) WaitTask(ctx context.Context, taskID string, timeout time.Duration) (*taskqueue.Task, error) {
	if s.taskQueue == nil {
		return nil, ErrQueueUnavailable
	}
	task, err := s.taskQueue.WaitForTask(ctx, taskID, timeout)
	if errors.Is(err, taskqueue.ErrTaskTimeout) {
		return s.taskQueue.GetTask(ctx, taskID)
	}
	return task, err
}

// DeleteDocument 删除报告、案例与存储中的文件
func (s *DocumentService) DeleteDocument(ctx context.Context, docID string) error {
	doc, err := s.repo.GetByID(docID)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(docID); err != nil {
		return err
	}

	for _, id := range []string{doc.FilePath, doc.TranscriptID} {
		if id == "" {
			continue
		}
		if err := s.storage.Delete(id); err != nil && !errors.Is(err, storage.ErrFileNotFound) {
			s.logger.WithError(err).WithField("file_id", id).Warn("Failed to delete stored file")
		}
	}

	if s.taskQueue != nil {
		tasks, err := s.taskQueue.GetTasksByDocument(ctx, docID)
		if err == nil {
			for _, task := range tasks {
				_ = s.taskQueue.DeleteTask(ctx, task.ID)
			}
		}
	}

	s.logger.WithField("doc_id", docID).Info("Document deleted")
	return nil
}
