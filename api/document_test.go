package api

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fyerfyer/case-extractor/api/model"
	"github.com/fyerfyer/case-extractor/internal/export"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestUploadAndExtract(t *testing.T) {
	env := setupTestEnv(t, false)

	w := serve(env, newUploadRequest(t, "/api/documents/upload", "night.txt", []byte(scenarioReport), nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp model.CaseExtractionResponse
	decode(t, w, &resp)
	assert.Equal(t, "Successfully processed 1 cases from night.txt", resp.Message)
	require.Len(t, resp.Cases, 1)
	c := resp.Cases[0]
	assert.Equal(t, "Room 101", c.Title)
	assert.Equal(t, "101", *c.Room)
	assert.Equal(t, "OPEN", *c.Status)
	assert.Equal(t, "[CLIENT_NAME]", *c.Guest)
	assert.Equal(t, "AC not working", *c.CaseDescription)
	assert.Nil(t, c.Action)
	assert.NotEmpty(t, resp.DocumentID)

	// 缺失字段输出为 null
	assert.Contains(t, w.Body.String(), `"action":null`)
}

func TestUploadEmptyResult(t *testing.T) {
	env := setupTestEnv(t, false)

	w := serve(env, newUploadRequest(t, "/api/documents/upload", "tiny.txt", []byte("ok"), nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp model.CaseExtractionResponse
	decode(t, w, &resp)
	assert.Empty(t, resp.Cases)
	assert.Equal(t, "No cases found in tiny.txt", resp.Message)
	assert.Contains(t, w.Body.String(), `"cases":[]`)
}

func TestUploadErrors(t *testing.T) {
	env := setupTestEnv(t, false)

	t.Run("UnsupportedFormat", func(t *testing.T) {
		w := serve(env, newUploadRequest(t, "/api/documents/upload", "sheet.xlsx", []byte("data"), nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("ExtractionFailure", func(t *testing.T) {
		w := serve(env, newUploadRequest(t, "/api/documents/upload", "broken.docx", []byte("not a zip"), nil))
		assert.Contains(t, []int{http.StatusBadRequest, http.StatusUnprocessableEntity}, w.Code)
	})

	t.Run("MissingFile", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", bytes.NewReader(nil))
		req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
		w := serve(env, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestWorkflowAndQueries(t *testing.T) {
	env := setupTestEnv(t, false)

	w := serve(env, newUploadRequest(t, "/api/documents/workflow", "night.txt", []byte(scenarioReport),
		map[string]string{"preserve_dates": "false"}))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var wf model.WorkflowResponse
	decode(t, w, &wf)
	assert.Equal(t, "completed", wf.Document.Status)
	assert.Equal(t, "pattern", wf.Document.Method)
	assert.Equal(t, 1, wf.Document.CaseCount)
	assert.NotEmpty(t, wf.Document.AnonymizationStats)
	docID := wf.Document.ID

	t.Run("GetDocument", func(t *testing.T) {
		w := serve(env, httptest.NewRequest(http.MethodGet, "/api/documents/"+docID, nil))
		require.Equal(t, http.StatusOK, w.Code)
		var info model.DocumentInfo
		decode(t, w, &info)
		assert.Equal(t, "night.txt", info.FileName)
		assert.Equal(t, "txt", info.FileType)
	})

	t.Run("ListDocuments", func(t *testing.T) {
		w := serve(env, httptest.NewRequest(http.MethodGet, "/api/documents?status=completed&page=1&page_size=5", nil))
		require.Equal(t, http.StatusOK, w.Code)
		var list model.DocumentListResponse
		decode(t, w, &list)
		assert.Equal(t, int64(1), list.Total)
		assert.Equal(t, 5, list.PageSize)
		require.Len(t, list.Documents, 1)

		w = serve(env, httptest.NewRequest(http.MethodGet, "/api/documents?status=bogus", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("DocumentCases", func(t *testing.T) {
		w := serve(env, httptest.NewRequest(http.MethodGet, "/api/documents/"+docID+"/cases", nil))
		require.Equal(t, http.StatusOK, w.Code)
		var cases model.DocumentCasesResponse
		decode(t, w, &cases)
		require.Len(t, cases.Cases, 1)
		assert.Equal(t, wf.Cases, cases.Cases)
	})

	t.Run("Cases", func(t *testing.T) {
		w := serve(env, httptest.NewRequest(http.MethodGet, "/api/cases?room=101", nil))
		require.Equal(t, http.StatusOK, w.Code)
		var list model.CaseListResponse
		decode(t, w, &list)
		require.Len(t, list.Cases, 1)
		assert.Equal(t, docID, list.Cases[0].DocumentID)

		w = serve(env, httptest.NewRequest(http.MethodGet, "/api/cases/"+list.Cases[0].ID, nil))
		require.Equal(t, http.StatusOK, w.Code)
		var info model.CaseInfo
		decode(t, w, &info)
		assert.Equal(t, "Room 101", info.Title)

		w = serve(env, httptest.NewRequest(http.MethodGet, "/api/cases/unknown", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Export", func(t *testing.T) {
		w := serve(env, httptest.NewRequest(http.MethodGet, "/api/documents/"+docID+"/cases/export", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Content-Disposition"), "night.txt-cases.xlsx")

		f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
		require.NoError(t, err)
		defer f.Close()
		rows, err := f.GetRows(export.SheetName)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "101", rows[1][0])
	})

	t.Run("Transcript", func(t *testing.T) {
		w := serve(env, httptest.NewRequest(http.MethodGet, "/api/documents/"+docID+"/transcript", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "[CLIENT_NAME]")
		assert.NotContains(t, w.Body.String(), "John Smith")
	})

	t.Run("Reprocess", func(t *testing.T) {
		w := serve(env, httptest.NewRequest(http.MethodPost, "/api/documents/"+docID+"/process", nil))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var again model.WorkflowResponse
		decode(t, w, &again)
		assert.Equal(t, wf.Cases, again.Cases)
	})

	t.Run("Delete", func(t *testing.T) {
		w := serve(env, httptest.NewRequest(http.MethodDelete, "/api/documents/"+docID, nil))
		require.Equal(t, http.StatusOK, w.Code)

		w = serve(env, httptest.NewRequest(http.MethodGet, "/api/documents/"+docID, nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
