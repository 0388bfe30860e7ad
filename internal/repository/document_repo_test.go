package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/fyerfyer/case-extractor/internal/database"
	"github.com/fyerfyer/case-extractor/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	// 使用唯一的内存数据库标识符
	dbName := fmt.Sprintf("file:memdb_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{})
	require.NoError(t, err, "Failed to open in-memory database")
	require.NoError(t, database.AutoMigrate(db), "Failed to run migrations")

	originalDB := database.DB
	database.DB = db
	t.Cleanup(func() {
		database.DB = originalDB
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func newTestDocument(id string) *models.Document {
	return &models.Document{
		ID:       id,
		FileName: "night-report.pdf",
		FileType: "pdf",
		FilePath: "file-" + id,
		FileSize: 1024,
		Status:   models.DocStatusUploaded,
	}
}

func TestDocumentRepository_CreateAndGet(t *testing.T) {
	setupTestDB(t)
	repo := NewDocumentRepository()

	doc := newTestDocument("doc-1")
	require.NoError(t, repo.Create(doc))
	assert.False(t, doc.UploadedAt.IsZero())

	saved, err := repo.GetByID("doc-1")
	require.NoError(t, err)
	assert.Equal(t, "night-report.pdf", saved.FileName)
	assert.Equal(t, models.DocStatusUploaded, saved.Status)

	_, err = repo.GetByID("missing")
	assert.ErrorIs(t, err, models.ErrDocumentNotFound)

	assert.Error(t, repo.Create(&models.Document{}))
}

func TestDocumentRepository_Update(t *testing.T) {
	setupTestDB(t)
	repo := NewDocumentRepository()

	doc := newTestDocument("doc-2")
	require.NoError(t, repo.Create(doc))

	doc.Method = "pattern"
	doc.CaseCount = 3
	doc.TranscriptID = "transcript-1"
	require.NoError(t, repo.Update(doc))

	saved, err := repo.GetByID("doc-2")
	require.NoError(t, err)
	assert.Equal(t, "pattern", saved.Method)
	assert.Equal(t, 3, saved.CaseCount)
	assert.Equal(t, "transcript-1", saved.TranscriptID)
}

func TestDocumentRepository_StatusStageTask(t *testing.T) {
	setupTestDB(t)
	repo := NewDocumentRepository()
	require.NoError(t, repo.Create(newTestDocument("doc-3")))

	require.NoError(t, repo.UpdateStage("doc-3", models.StageAnonymizing))
	require.NoError(t, repo.SetTask("doc-3", "task-9"))
	require.NoError(t, repo.UpdateStatus("doc-3", models.DocStatusFailed, "unsupported file format"))

	saved, err := repo.GetByID("doc-3")
	require.NoError(t, err)
	assert.Equal(t, models.StageAnonymizing, saved.CurrentStage)
	assert.Equal(t, "task-9", saved.CurrentTaskID)
	assert.Equal(t, models.DocStatusFailed, saved.Status)
	assert.Equal(t, "unsupported file format", saved.Error)
	assert.NotNil(t, saved.ProcessedAt)

	assert.ErrorIs(t, repo.UpdateStatus("doc-3", "archived", ""), models.ErrInvalidDocumentStatus)
	assert.ErrorIs(t, repo.UpdateStage("missing", models.StageParsing), models.ErrDocumentNotFound)
}

func TestDocumentRepository_List(t *testing.T) {
	setupTestDB(t)
	repo := NewDocumentRepository()

	for i := 0; i < 5; i++ {
		doc := newTestDocument(fmt.Sprintf("doc-list-%d", i))
		doc.UploadedAt = time.Now().Add(time.Duration(i) * time.Minute)
		if i%2 == 0 {
			doc.Status = models.DocStatusCompleted
		}
		require.NoError(t, repo.Create(doc))
	}

	docs, total, err := repo.List(0, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Equal(t, "doc-list-4", docs[0].ID)

	docs, total, err = repo.List(0, 2, map[string]interface{}{"status": models.DocStatusCompleted})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, docs, 2)

	_, total, err = repo.List(0, 10, map[string]interface{}{"file_name": "night"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
}

func TestDocumentRepository_DeleteRemovesCases(t *testing.T) {
	setupTestDB(t)
	docs := NewDocumentRepository()
	cases := NewCaseRepository()

	require.NoError(t, docs.Create(newTestDocument("doc-del")))
	_, err := cases.ReplaceForDocument("doc-del", []models.CaseRecord{
		{Title: "Room 101", Room: models.StringPtr("101")},
	})
	require.NoError(t, err)

	require.NoError(t, docs.Delete("doc-del"))

	count, err := cases.CountByDocument("doc-del")
	require.NoError(t, err)
	assert.Zero(t, count)

	assert.ErrorIs(t, docs.Delete("doc-del"), models.ErrDocumentNotFound)
}
