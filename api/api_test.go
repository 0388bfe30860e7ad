package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fyerfyer/case-extractor/api/handler"
	"github.com/fyerfyer/case-extractor/internal/database"
	"github.com/fyerfyer/case-extractor/internal/repository"
	"github.com/fyerfyer/case-extractor/internal/services"
	"github.com/fyerfyer/case-extractor/pkg/storage"
	"github.com/fyerfyer/case-extractor/pkg/taskqueue"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const scenarioReport = "Guest Mr. John Smith\nRoom 101\nStatus OPEN\nCase: AC not working"

// 测试环境配置
type testEnv struct {
	Router          *gin.Engine
	Storage         storage.Storage
	Queue           taskqueue.Queue
	DocumentService *services.DocumentService
}

// envelope 通用响应，Data 留给具体用例解码
type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	TraceID string          `json:"trace_id"`
}

// 创建测试环境
func setupTestEnv(t *testing.T, withQueue bool) *testEnv {
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:api_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	fileStorage, err := storage.NewLocalStorage(storage.LocalConfig{Path: t.TempDir()})
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	docRepo := repository.NewDocumentRepositoryWithDB(db)
	opts := []services.DocumentOption{
		services.WithLogger(logger),
		services.WithDocumentRepository(docRepo),
		services.WithCaseRepository(repository.NewCaseRepositoryWithDB(db)),
		services.WithStatusManager(services.NewDocumentStatusManager(docRepo, logger)),
	}

	env := &testEnv{Storage: fileStorage}
	if withQueue {
		mr := miniredis.RunT(t)
		queue, err := taskqueue.NewRedisQueue(&taskqueue.Config{RedisAddr: mr.Addr(), RetryLimit: 1, Logger: logger})
		require.NoError(t, err)
		t.Cleanup(func() { _ = queue.Close() })
		env.Queue = queue
		opts = append(opts, services.WithTaskQueue(queue))
	}

	pipeline := services.NewCasePipeline(services.WithPipelineLogger(logger))
	env.DocumentService = services.NewDocumentService(fileStorage, pipeline, opts...)
	require.NoError(t, env.DocumentService.Init())

	env.Router = SetupRouter(Handlers{
		Document:      handler.NewDocumentHandler(env.DocumentService),
		Case:          handler.NewCaseHandler(env.DocumentService),
		Anonymization: handler.NewAnonymizationHandler(pipeline.Anonymizer(), 0),
		Task:          handler.NewTaskHandler(env.DocumentService),
	}, 0)
	return env
}

// newUploadRequest 构造 multipart 上传请求
func newUploadRequest(t *testing.T, url, filename string, content []byte, fields map[string]string) *http.Request {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, url, body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func newJSONRequest(t *testing.T, method, url string, payload interface{}) *http.Request {
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(method, url, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func serve(env *testEnv, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	env.Router.ServeHTTP(w, req)
	return w
}

// decode 解析响应，返回 Data 部分
func decode(t *testing.T, w *httptest.ResponseRecorder, data interface{}) envelope {
	var resp envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	if data != nil && len(resp.Data) > 0 {
		require.NoError(t, json.Unmarshal(resp.Data, data))
	}
	return resp
}

func TestHealth(t *testing.T) {
	env := setupTestEnv(t, false)

	w := serve(env, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Trace-ID"))
}

func TestTraceIDPropagated(t *testing.T) {
	env := setupTestEnv(t, false)

	req := httptest.NewRequest(http.MethodGet, "/api/documents/missing", nil)
	req.Header.Set("X-Trace-ID", "trace-123")
	w := serve(env, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	resp := decode(t, w, nil)
	assert.Equal(t, "trace-123", resp.TraceID)
	assert.Equal(t, "trace-123", w.Header().Get("X-Trace-ID"))
}
