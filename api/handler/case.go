package handler

import (
	"net/http"

	"github.com/fyerfyer/case-extractor/api/middleware"
	"github.com/fyerfyer/case-extractor/api/model"
	"github.com/fyerfyer/case-extractor/internal/services"
	"github.com/gin-gonic/gin"
)

// CaseHandler 处理案例查询请求
type CaseHandler struct {
	documentService *services.DocumentService
}

// NewCaseHandler 创建案例处理器
func NewCaseHandler(documentService *services.DocumentService) *CaseHandler {
	return &CaseHandler{documentService: documentService}
}

// GetCase 获取单条案例
// GET /api/cases/:id
func (h *CaseHandler) GetCase(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		middleware.HandleError(c, middleware.NewValidationError("Invalid case id"))
		return
	}

	record, err := h.documentService.GetCase(c.Request.Context(), id)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.NewSuccessResponse(model.NewCaseInfo(record)))
}

// ListCases 跨报告查询案例
// GET /api/cases
func (h *CaseHandler) ListCases(c *gin.Context) {
	var req model.CaseListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		middleware.HandleError(c, middleware.NewValidationError("Invalid query parameters", err.Error()))
		return
	}

	filters := make(map[string]interface{})
	if req.DocumentID != "" {
		filters["document_id"] = req.DocumentID
	}
	if req.Room != "" {
		filters["room"] = req.Room
	}
	if req.Status != "" {
		filters["status"] = req.Status
	}
	if req.Importance != "" {
		filters["importance"] = req.Importance
	}

	cases, total, err := h.documentService.ListCases(c.Request.Context(), req.Offset(), req.GetPageSize(), filters)
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	infos := make([]model.CaseInfo, 0, len(cases))
	for _, record := range cases {
		infos = append(infos, model.NewCaseInfo(record))
	}
	c.JSON(http.StatusOK, model.NewSuccessResponse(model.CaseListResponse{
		PaginationResponse: model.PaginationResponse{
			Total:    total,
			Page:     req.GetPage(),
			PageSize: req.GetPageSize(),
		},
		Cases: infos,
	}))
}
