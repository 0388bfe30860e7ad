package api

import (
	"net/http"

	"github.com/fyerfyer/case-extractor/api/handler"
	"github.com/fyerfyer/case-extractor/api/middleware"
	"github.com/gin-gonic/gin"
)

// Handlers 路由使用的全部处理器
type Handlers struct {
	Document      *handler.DocumentHandler
	Case          *handler.CaseHandler
	Anonymization *handler.AnonymizationHandler
	Task          *handler.TaskHandler
}

// SetupRouter 设置API路由
// 配置所有的API端点并应用中间件
func SetupRouter(h Handlers, maxUploadBytes int64) *gin.Engine {
	router := gin.New()
	if maxUploadBytes > 0 {
		router.MaxMultipartMemory = maxUploadBytes
	}

	// 追踪ID需要最先设置，错误处理与日志都会用到
	router.Use(middleware.SetTraceID())
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorMiddleware())
	router.Use(Cors())

	if gin.Mode() == gin.DebugMode {
		router.Use(middleware.RequestBodyLog())
	}

	api := router.Group("/api")
	{
		docGroup := api.Group("/documents")
		{
			// 上传并返回案例 - POST /api/documents/upload
			docGroup.POST("/upload", h.Document.UploadAndExtract)

			// 上传、处理并持久化 - POST /api/documents/workflow
			docGroup.POST("/workflow", h.Document.Workflow)

			// 异步处理 - POST /api/documents/async
			docGroup.POST("/async", h.Document.UploadAsync)

			docGroup.GET("", h.Document.ListDocuments)
			docGroup.GET("/:id", h.Document.GetDocument)
			docGroup.POST("/:id/process", h.Document.Reprocess)
			docGroup.GET("/:id/cases", h.Document.GetDocumentCases)
			docGroup.GET("/:id/cases/export", h.Document.ExportCases)
			docGroup.GET("/:id/transcript", h.Document.GetTranscript)
			docGroup.DELETE("/:id", h.Document.DeleteDocument)
		}

		caseGroup := api.Group("/cases")
		{
			caseGroup.GET("", h.Case.ListCases)
			caseGroup.GET("/:id", h.Case.GetCase)
		}

		anonGroup := api.Group("/anonymization")
		{
			anonGroup.POST("/text", h.Anonymization.AnonymizeText)
			anonGroup.POST("/stats", h.Anonymization.Stats)
			anonGroup.POST("/document", h.Anonymization.AnonymizeDocument)
			anonGroup.GET("/patterns", h.Anonymization.Patterns)
		}

		api.GET("/tasks/:id", h.Task.GetTaskStatus)

		// 健康检查API
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{
				"status": "ok",
			})
		})
	}

	return router
}

// Cors 跨域资源共享中间件
func Cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Trace-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
