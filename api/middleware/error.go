package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/fyerfyer/case-extractor/api/model"
	"github.com/fyerfyer/case-extractor/internal/document"
	"github.com/fyerfyer/case-extractor/internal/models"
	"github.com/fyerfyer/case-extractor/internal/services"
	"github.com/fyerfyer/case-extractor/pkg/taskqueue"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// 定义应用中的错误类型常量
const (
	ErrorTypeValidation    = "VALIDATION_ERROR"    // 输入验证错误
	ErrorTypeNotFound      = "NOT_FOUND_ERROR"     // 资源不存在错误
	ErrorTypeUnprocessable = "UNPROCESSABLE_ERROR" // 文件无法解析
	ErrorTypeConflict      = "CONFLICT_ERROR"      // 状态冲突
	ErrorTypeUnavailable   = "UNAVAILABLE_ERROR"   // 依赖服务不可用
	ErrorTypeInternal      = "INTERNAL_ERROR"      // 内部服务器错误
)

// AppError 应用错误结构体
type AppError struct {
	Type    string // 错误类型
	Message string // 错误消息
	Details string // 详细错误信息
	Code    int    // 错误代码
}

// Error 实现error接口的方法
func (e AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// NewValidationError 创建输入验证错误
func NewValidationError(message string, details ...string) AppError {
	return AppError{
		Type:    ErrorTypeValidation,
		Message: message,
		Details: strings.Join(details, "; "),
		Code:    http.StatusBadRequest,
	}
}

// NewNotFoundError 创建资源不存在错误
func NewNotFoundError(message string) AppError {
	return AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
		Code:    http.StatusNotFound,
	}
}

// NewUnprocessableError 创建文件无法解析错误
func NewUnprocessableError(message string, details ...string) AppError {
	return AppError{
		Type:    ErrorTypeUnprocessable,
		Message: message,
		Details: strings.Join(details, "; "),
		Code:    http.StatusUnprocessableEntity,
	}
}

// NewConflictError 创建状态冲突错误
func NewConflictError(message string, details ...string) AppError {
	return AppError{
		Type:    ErrorTypeConflict,
		Message: message,
		Details: strings.Join(details, "; "),
		Code:    http.StatusConflict,
	}
}

// NewUnavailableError 创建服务不可用错误
func NewUnavailableError(message string) AppError {
	return AppError{
		Type:    ErrorTypeUnavailable,
		Message: message,
		Code:    http.StatusServiceUnavailable,
	}
}

// NewInternalError 创建内部服务器错误
func NewInternalError(message string, details ...string) AppError {
	return AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Details: strings.Join(details, "; "),
		Code:    http.StatusInternalServerError,
	}
}

// FromError 将业务错误映射为应用错误
func FromError(err error) AppError {
	var appErr AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, document.ErrUnsupportedFormat):
		return NewValidationError("Unsupported file format, expected .pdf, .docx or .txt", err.Error())
	case errors.Is(err, document.ErrExtractionFailure):
		return NewUnprocessableError("Could not extract text from the document", err.Error())
	case errors.Is(err, models.ErrDocumentNotFound):
		return NewNotFoundError("Document not found")
	case errors.Is(err, models.ErrCaseNotFound):
		return NewNotFoundError("Case not found")
	case errors.Is(err, taskqueue.ErrTaskNotFound):
		return NewNotFoundError("Task not found")
	case errors.Is(err, models.ErrInvalidDocumentStatus):
		return NewConflictError("Document is not in a processable state", err.Error())
	case errors.Is(err, services.ErrQueueUnavailable):
		return NewUnavailableError("Async processing is not enabled")
	default:
		return NewInternalError("Internal server error", err.Error())
	}
}

// ErrorMiddleware 统一错误处理中间件
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 捕获 panic
		defer func() {
			if err := recover(); err != nil {
				log.WithFields(logrus.Fields{
					"error": err,
					"stack": string(debug.Stack()),
					"path":  c.Request.URL.Path,
				}).Error("Panic recovered in API request")

				errorResponse := model.NewErrorResponse(
					http.StatusInternalServerError,
					"An unexpected error occurred",
				)
				if gin.Mode() == gin.DebugMode {
					errorResponse.Message = fmt.Sprintf("Panic: %v", err)
				}
				errorResponse.TraceID = GetTraceID(c)

				c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse)
			}
		}()

		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		traceID := GetTraceID(c)
		appErr := FromError(c.Errors.Last().Err)

		entry := log.WithFields(logrus.Fields{
			FieldTraceID: traceID,
			FieldPath:    c.Request.URL.Path,
			"error_type": appErr.Type,
			FieldError:   appErr.Details,
		})
		if appErr.Code >= http.StatusInternalServerError {
			entry.Error(appErr.Message)
		} else {
			entry.Warn(appErr.Message)
		}

		errResp := model.NewErrorResponse(appErr.Code, appErr.Message)
		// 开发环境下返回具体错误信息
		if appErr.Code >= http.StatusInternalServerError && gin.Mode() == gin.DebugMode && appErr.Details != "" {
			errResp.Message = appErr.Details
		}
		errResp.TraceID = traceID

		c.AbortWithStatusJSON(appErr.Code, errResp)
	}
}

// HandleError 在处理器中使用的错误处理辅助函数
func HandleError(c *gin.Context, err error) {
	_ = c.Error(err)
}
