package handler

import (
	"net/http"
	"time"

	"github.com/fyerfyer/case-extractor/api/middleware"
	"github.com/fyerfyer/case-extractor/api/model"
	"github.com/fyerfyer/case-extractor/internal/services"
	"github.com/fyerfyer/case-extractor/pkg/taskqueue"
	"github.com/gin-gonic/gin"
)

// maxTaskWait 长轮询的最长等待时间
const maxTaskWait = time.Minute

// TaskHandler 处理任务相关的API请求
type TaskHandler struct {
	documentService *services.DocumentService
}

// NewTaskHandler 创建新的任务处理器
func NewTaskHandler(documentService *services.DocumentService) *TaskHandler {
	return &TaskHandler{documentService: documentService}
}

// GetTaskStatus 获取任务状态
// 带 wait 参数（如 wait=30s）时等待任务结束或超时后再返回
// GET /api/tasks/:id
func (h *TaskHandler) GetTaskStatus(c *gin.Context) {
	taskID := c.Param("id")
	if taskID == "" {
		middleware.HandleError(c, middleware.NewValidationError("Task id is required"))
		return
	}

	var req model.TaskStatusRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("Invalid query parameters", err.Error()))
		return
	}

	var (
		task *taskqueue.Task
		err  error
	)
	if req.Wait != "" {
		wait, parseErr := time.ParseDuration(req.Wait)
		if parseErr != nil || wait <= 0 {
			middleware.HandleError(c, middleware.NewValidationError("Invalid wait duration", req.Wait))
			return
		}
		if wait > maxTaskWait {
			wait = maxTaskWait
		}
		task, err = h.documentService.WaitTask(c.Request.Context(), taskID, wait)
	} else {
		task, err = h.documentService.GetTask(c.Request.Context(), taskID)
	}
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.NewSuccessResponse(taskqueue.NewTaskInfo(task)))
}
