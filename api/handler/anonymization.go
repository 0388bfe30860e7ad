package handler

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/fyerfyer/case-extractor/api/middleware"
	"github.com/fyerfyer/case-extractor/api/model"
	"github.com/fyerfyer/case-extractor/internal/anonymizer"
	"github.com/fyerfyer/case-extractor/internal/document"
	"github.com/gin-gonic/gin"
)

// AnonymizationHandler 处理匿名化相关请求
type AnonymizationHandler struct {
	anonymizer  *anonymizer.Anonymizer
	defaults    anonymizer.Options
	maxFileSize int64
}

// NewAnonymizationHandler 创建匿名化处理器
// 接口默认不保留日期与时间
func NewAnonymizationHandler(a *anonymizer.Anonymizer, maxFileSize int64) *AnonymizationHandler {
	if maxFileSize <= 0 {
		maxFileSize = 50 << 20
	}
	return &AnonymizationHandler{
		anonymizer:  a,
		maxFileSize: maxFileSize,
	}
}

// AnonymizeText 匿名化一段文本
// POST /api/anonymization/text
func (h *AnonymizationHandler) AnonymizeText(c *gin.Context) {
	var req model.AnonymizeTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("Text is required", err.Error()))
		return
	}

	out := h.anonymizer.Anonymize(req.Text, req.AnonymizationOptions.Resolve(h.defaults))
	c.JSON(http.StatusOK, model.NewSuccessResponse(model.AnonymizeTextResponse{
		AnonymizedText: out,
		Message:        "Text anonymized successfully",
	}))
}

// Stats 统计文本中的敏感信息，不修改文本
// POST /api/anonymization/stats
func (h *AnonymizationHandler) Stats(c *gin.Context) {
	var req model.AnonymizationStatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("Text is required", err.Error()))
		return
	}

	stats := h.anonymizer.Stats(req.Text)
	c.JSON(http.StatusOK, model.NewSuccessResponse(model.AnonymizationStatsResponse{
		Stats:   stats,
		Message: fmt.Sprintf("Found %d potential PII elements in the text", stats.Total),
	}))
}

// AnonymizeDocument 提取文档文本并逐段匿名化
// POST /api/anonymization/document
func (h *AnonymizationHandler) AnonymizeDocument(c *gin.Context) {
	var req model.DocumentUploadRequest
	if err := c.ShouldBind(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("No file provided", err.Error()))
		return
	}
	filename := req.File.Filename
	if !document.IsSupported(filename) {
		middleware.HandleError(c, fmt.Errorf("%w: %s", document.ErrUnsupportedFormat, filename))
		return
	}

	file, err := req.File.Open()
	if err != nil {
		middleware.HandleError(c, middleware.NewInternalError("Failed to open uploaded file", err.Error()))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxFileSize))
	if err != nil {
		middleware.HandleError(c, middleware.NewInternalError("Failed to read uploaded file", err.Error()))
		return
	}
	text, err := document.Extract(data, filename)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	opts := req.AnonymizationOptions.Resolve(h.defaults)
	original := paragraphs(text)
	anonymized := make([]string, len(original))
	for i, p := range original {
		anonymized[i] = h.anonymizer.Anonymize(p, opts)
	}
	summary := anonymizer.Summarize(original, anonymized)
	message := fmt.Sprintf("Successfully anonymized %s. %d PII elements were replaced.", filename, summary.TotalReplacements)

	c.JSON(http.StatusOK, model.NewSuccessResponse(model.AnonymizeDocumentResponse{
		FileName:          filename,
		FileType:          string(document.DetectContentType(filename)),
		AnonymizedContent: anonymized,
		Summary:           summary,
		Message:           message,
	}))
}

// Patterns 列出检测规则
// GET /api/anonymization/patterns
func (h *AnonymizationHandler) Patterns(c *gin.Context) {
	patterns := anonymizer.Patterns()
	c.JSON(http.StatusOK, model.NewSuccessResponse(model.PatternsResponse{
		Patterns: patterns,
		Message:  fmt.Sprintf("Currently using %d PII detection patterns", len(patterns)),
	}))
}

// paragraphs 按行切分并去掉空行
func paragraphs(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
