package handler

import (
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/fyerfyer/case-extractor/api/middleware"
	"github.com/fyerfyer/case-extractor/api/model"
	"github.com/fyerfyer/case-extractor/internal/anonymizer"
	"github.com/fyerfyer/case-extractor/internal/export"
	"github.com/fyerfyer/case-extractor/internal/models"
	"github.com/fyerfyer/case-extractor/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// DocumentHandler 处理报告相关的API请求
type DocumentHandler struct {
	documentService *services.DocumentService // 报告服务
	logger          *logrus.Logger            // 日志记录器
}

// NewDocumentHandler 创建新的报告处理器
func NewDocumentHandler(documentService *services.DocumentService) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
		logger:          middleware.GetLogger(),
	}
}

// bindUpload 绑定上传文件与匿名化选项
func (h *DocumentHandler) bindUpload(c *gin.Context) (*multipart.FileHeader, anonymizer.Options, bool) {
	var req model.DocumentUploadRequest
	if err := c.ShouldBind(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("No file provided", err.Error()))
		return nil, anonymizer.Options{}, false
	}
	defaults := h.documentService.Pipeline().AnonymizationOptions()
	return req.File, req.AnonymizationOptions.Resolve(defaults), true
}

// UploadAndExtract 上传报告并立即返回提取出的案例
// POST /api/documents/upload
func (h *DocumentHandler) UploadAndExtract(c *gin.Context) {
	fh, opts, ok := h.bindUpload(c)
	if !ok {
		return
	}

	doc, result, ok := h.runWorkflow(c, fh, opts)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.CaseExtractionResponse{
		DocumentID: doc.ID,
		Cases:      result.Cases,
		Message:    extractionMessage(len(result.Cases), fh.Filename),
	}))
}

// Workflow 上传、处理并返回报告信息与案例
// POST /api/documents/workflow
func (h *DocumentHandler) Workflow(c *gin.Context) {
	fh, opts, ok := h.bindUpload(c)
	if !ok {
		return
	}

	doc, result, ok := h.runWorkflow(c, fh, opts)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.WorkflowResponse{
		Document: model.NewDocumentInfo(doc),
		Cases:    result.Cases,
		Message:  extractionMessage(len(result.Cases), fh.Filename),
	}))
}

func (h *DocumentHandler) runWorkflow(c *gin.Context, fh *multipart.FileHeader, opts anonymizer.Options) (*models.Document, *services.PipelineResult, bool) {
	file, err := fh.Open()
	if err != nil {
		middleware.HandleError(c, middleware.NewInternalError("Failed to open uploaded file", err.Error()))
		return nil, nil, false
	}
	defer file.Close()

	doc, result, err := h.documentService.Workflow(c.Request.Context(), file, fh.Filename, opts)
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"error":     err.Error(),
			"file_name": fh.Filename,
		}).Warn("Failed to process uploaded report")
		middleware.HandleError(c, err)
		return nil, nil, false
	}
	return doc, result, true
}

// UploadAsync 上传报告并提交异步处理任务
// POST /api/documents/async
func (h *DocumentHandler) UploadAsync(c *gin.Context) {
	if !h.documentService.AsyncEnabled() {
		middleware.HandleError(c, services.ErrQueueUnavailable)
		return
	}

	fh, opts, ok := h.bindUpload(c)
	if !ok {
		return
	}
	file, err := fh.Open()
	if err != nil {
		middleware.HandleError(c, middleware.NewInternalError("Failed to open uploaded file", err.Error()))
		return
	}
	defer file.Close()

	ctx := c.Request.Context()
	doc, err := h.documentService.Upload(ctx, file, fh.Filename)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	taskID, err := h.documentService.EnqueueProcessing(ctx, doc.ID, opts)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, model.NewSuccessResponse(model.AsyncProcessResponse{
		DocumentID: doc.ID,
		TaskID:     taskID,
		Status:     string(doc.Status),
	}))
}

// Reprocess 重新处理已上传的报告
// POST /api/documents/:id/process
func (h *DocumentHandler) Reprocess(c *gin.Context) {
	var uri model.DocumentIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("Invalid document id"))
		return
	}
	var req model.AnonymizationOptions
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("Invalid anonymization options", err.Error()))
		return
	}
	opts := req.Resolve(h.documentService.Pipeline().AnonymizationOptions())

	ctx := c.Request.Context()
	result, err := h.documentService.ProcessDocument(ctx, uri.ID, opts)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	doc, err := h.documentService.GetDocument(ctx, uri.ID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.WorkflowResponse{
		Document: model.NewDocumentInfo(doc),
		Cases:    result.Cases,
		Message:  extractionMessage(len(result.Cases), doc.FileName),
	}))
}

// GetDocument 获取报告信息
// GET /api/documents/:id
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	var req model.DocumentIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("Invalid document id"))
		return
	}

	doc, err := h.documentService.GetDocument(c.Request.Context(), req.ID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.NewSuccessResponse(model.NewDocumentInfo(doc)))
}

// ListDocuments 获取报告列表
// GET /api/documents
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	var req model.DocumentListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("Invalid query parameters", err.Error()))
		return
	}

	filters := make(map[string]interface{})
	if req.Status != "" {
		filters["status"] = req.Status
	}
	if req.Method != "" {
		filters["method"] = req.Method
	}
	if req.FileName != "" {
		filters["file_name"] = req.FileName
	}
	if req.StartTime != nil {
		filters["start_time"] = *req.StartTime
	}
	if req.EndTime != nil {
		filters["end_time"] = *req.EndTime
	}

	docs, total, err := h.documentService.ListDocuments(c.Request.Context(), req.Offset(), req.GetPageSize(), filters)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	infos := make([]model.DocumentInfo, 0, len(docs))
	for _, doc := range docs {
		infos = append(infos, model.NewDocumentInfo(doc))
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.DocumentListResponse{
		PaginationResponse: model.PaginationResponse{
			Total:    total,
			Page:     req.GetPage(),
			PageSize: req.GetPageSize(),
		},
		Documents: infos,
	}))
}

// GetDocumentCases 获取报告的案例
// GET /api/documents/:id/cases
func (h *DocumentHandler) GetDocumentCases(c *gin.Context) {
	var req model.DocumentIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("Invalid document id"))
		return
	}

	cases, err := h.documentService.GetCases(c.Request.Context(), req.ID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.NewSuccessResponse(model.DocumentCasesResponse{
		DocumentID: req.ID,
		Cases:      cases,
	}))
}

// ExportCases 导出报告的案例为 xlsx
// GET /api/documents/:id/cases/export
func (h *DocumentHandler) ExportCases(c *gin.Context) {
	var req model.DocumentIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("Invalid document id"))
		return
	}

	ctx := c.Request.Context()
	doc, err := h.documentService.GetDocument(ctx, req.ID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	cases, err := h.documentService.GetCases(ctx, req.ID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	data, err := export.CasesXLSX(cases)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(doc.FileName)))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// GetTranscript 获取匿名化后的报告文本
// GET /api/documents/:id/transcript
func (h *DocumentHandler) GetTranscript(c *gin.Context) {
	var req model.DocumentIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("Invalid document id"))
		return
	}

	text, err := h.documentService.GetTranscript(c.Request.Context(), req.ID)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	c.String(http.StatusOK, text)
}

// DeleteDocument 删除报告
// DELETE /api/documents/:id
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	var req model.DocumentIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("Invalid document id"))
		return
	}

	if err := h.documentService.DeleteDocument(c.Request.Context(), req.ID); err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.DocumentDeleteResponse{
		Success:    true,
		DocumentID: req.ID,
	}))
}

// extractionMessage 处理结果提示，没有案例时同样返回成功
func extractionMessage(n int, filename string) string {
	if n == 0 {
		return fmt.Sprintf("No cases found in %s", filename)
	}
	return fmt.Sprintf("Successfully processed %d cases from %s", n, filename)
}
