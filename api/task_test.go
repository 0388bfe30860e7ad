package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fyerfyer/case-extractor/api/model"
	"github.com/fyerfyer/case-extractor/pkg/taskqueue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAsyncUploadAndTaskStatus(t *testing.T) {
	env := setupTestEnv(t, true)

	w := serve(env, newUploadRequest(t, "/api/documents/async", "night.txt", []byte(scenarioReport), nil))
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var accepted model.AsyncProcessResponse
	decode(t, w, &accepted)
	assert.Equal(t, "uploaded", accepted.Status)
	require.NotEmpty(t, accepted.TaskID)

	w = serve(env, httptest.NewRequest(http.MethodGet, "/api/tasks/"+accepted.TaskID, nil))
	require.Equal(t, http.StatusOK, w.Code)
	var info taskqueue.TaskInfo
	decode(t, w, &info)
	assert.Equal(t, taskqueue.StatusPending, info.Status)
	assert.Equal(t, accepted.DocumentID, info.DocumentID)

	// 模拟 worker 执行任务
	ctx := context.Background()
	task, err := env.Queue.GetTask(ctx, accepted.TaskID)
	require.NoError(t, err)
	_, err = env.DocumentService.CaseExtractionHandler().ProcessTask(ctx, task)
	require.NoError(t, err)

	w = serve(env, httptest.NewRequest(http.MethodGet, "/api/documents/"+accepted.DocumentID, nil))
	require.Equal(t, http.StatusOK, w.Code)
	var doc model.DocumentInfo
	decode(t, w, &doc)
	assert.Equal(t, "completed", doc.Status)
	assert.Equal(t, accepted.TaskID, doc.TaskID)
	assert.Equal(t, 1, doc.CaseCount)
}

func TestTaskNotFound(t *testing.T) {
	env := setupTestEnv(t, true)

	w := serve(env, httptest.NewRequest(http.MethodGet, "/api/tasks/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAsyncDisabled(t *testing.T) {
	env := setupTestEnv(t, false)

	w := serve(env, newUploadRequest(t, "/api/documents/async", "night.txt", []byte(scenarioReport), nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = serve(env, httptest.NewRequest(http.MethodGet, "/api/tasks/any", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestTaskStatusWait(t *testing.T) {
	env := setupTestEnv(t, true)

	w := serve(env, newUploadRequest(t, "/api/documents/async", "night.txt", []byte(scenarioReport), nil))
	require.Equal(t, http.StatusAccepted, w.Code)
	var accepted model.AsyncProcessResponse
	decode(t, w, &accepted)

	// 没有 worker 处理，等待超时后返回当前状态
	w = serve(env, httptest.NewRequest(http.MethodGet, "/api/tasks/"+accepted.TaskID+"?wait=50ms", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var info taskqueue.TaskInfo
	decode(t, w, &info)
	assert.Equal(t, taskqueue.StatusPending, info.Status)

	// 任务结束后立即返回
	require.NoError(t, env.Queue.UpdateTaskStatus(context.Background(), accepted.TaskID, taskqueue.StatusCompleted, nil, ""))
	w = serve(env, httptest.NewRequest(http.MethodGet, "/api/tasks/"+accepted.TaskID+"?wait=5s", nil))
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &info)
	assert.Equal(t, taskqueue.StatusCompleted, info.Status)

	w = serve(env, httptest.NewRequest(http.MethodGet, "/api/tasks/"+accepted.TaskID+"?wait=soon", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
