package repository

import (
	"testing"

	"github.com/fyerfyer/case-extractor/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []models.CaseRecord {
	return []models.CaseRecord{
		{
			Title:           "Room 101",
			Room:            models.StringPtr("101"),
			Status:          models.StringPtr("OPEN"),
			Importance:      models.StringPtr("High"),
			Guest:           models.StringPtr("[CLIENT_NAME]"),
			CaseDescription: models.StringPtr("AC not working"),
		},
		{
			Title:  "Room 205",
			Room:   models.StringPtr("205"),
			Status: models.StringPtr("Closed"),
		},
		{
			Title:           "Noise complaint in lobby",
			CaseDescription: models.StringPtr("Noise complaint in lobby after midnight"),
		},
	}
}

func TestCaseRepository_ReplaceForDocument(t *testing.T) {
	setupTestDB(t)
	repo := NewCaseRepository()

	saved, err := repo.ReplaceForDocument("doc-1", sampleRecords())
	require.NoError(t, err)
	require.Len(t, saved, 3)
	for i, c := range saved {
		assert.NotEmpty(t, c.ID)
		assert.Equal(t, i, c.Position)
	}

	listed, err := repo.ListByDocument("doc-1")
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Equal(t, sampleRecords()[0], listed[0].ToRecord())
	assert.Equal(t, "Noise complaint in lobby", listed[2].Title)
	assert.Nil(t, listed[2].Room)

	// 再次写入替换旧结果
	_, err = repo.ReplaceForDocument("doc-1", sampleRecords()[:1])
	require.NoError(t, err)
	count, err := repo.CountByDocument("doc-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	_, err = repo.ReplaceForDocument("", sampleRecords())
	assert.Error(t, err)
}

func TestCaseRepository_GetByID(t *testing.T) {
	setupTestDB(t)
	repo := NewCaseRepository()

	saved, err := repo.ReplaceForDocument("doc-1", sampleRecords())
	require.NoError(t, err)

	c, err := repo.GetByID(saved[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "205", *c.Room)

	_, err = repo.GetByID("missing")
	assert.ErrorIs(t, err, models.ErrCaseNotFound)
}

func TestCaseRepository_List(t *testing.T) {
	setupTestDB(t)
	repo := NewCaseRepository()

	_, err := repo.ReplaceForDocument("doc-1", sampleRecords())
	require.NoError(t, err)
	_, err = repo.ReplaceForDocument("doc-2", sampleRecords()[:2])
	require.NoError(t, err)

	_, total, err := repo.List(0, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)

	cases, total, err := repo.List(0, 10, map[string]interface{}{"room": "101"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, cases, 2)

	_, total, err = repo.List(0, 10, map[string]interface{}{"document_id": "doc-2", "status": "Closed"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestCaseRepository_DeleteByDocument(t *testing.T) {
	setupTestDB(t)
	repo := NewCaseRepository()

	_, err := repo.ReplaceForDocument("doc-1", sampleRecords())
	require.NoError(t, err)
	require.NoError(t, repo.DeleteByDocument("doc-1"))

	cases, err := repo.ListByDocument("doc-1")
	require.NoError(t, err)
	assert.Empty(t, cases)
}
