package storage

import (
	"io"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, rc io.ReadCloser) string {
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(b)
}

// exerciseStorage 对任意实现执行同一组检查
func exerciseStorage(t *testing.T, s Storage) {
	content := "Guest [CLIENT_NAME]\nRoom 101\nStatus OPEN"

	info, err := s.Save(strings.NewReader(content), "Report.PDF")
	require.NoError(t, err)
	assert.NotEmpty(t, info.ID)
	assert.Equal(t, "Report.PDF", info.Name)
	assert.Equal(t, int64(len(content)), info.Size)
	assert.Equal(t, "application/pdf", info.MimeType)

	t.Run("Get", func(t *testing.T) {
		rc, err := s.Get(info.ID)
		require.NoError(t, err)
		assert.Equal(t, content, readAll(t, rc))
	})

	t.Run("ReadAll", func(t *testing.T) {
		data, err := ReadAll(s, info.ID)
		require.NoError(t, err)
		assert.Equal(t, content, string(data))
	})

	t.Run("List", func(t *testing.T) {
		files, err := s.List()
		require.NoError(t, err)
		var ids []string
		for _, f := range files {
			ids = append(ids, f.ID)
		}
		assert.Contains(t, ids, info.ID)
	})

	t.Run("Exists", func(t *testing.T) {
		ok, err := s.Exists(info.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.Exists("non-existent-id")
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = s.Exists("../etc/passwd")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Transcript", func(t *testing.T) {
		ti, err := SaveText(s, TranscriptName("doc-1"), "anonymized text")
		require.NoError(t, err)
		assert.Equal(t, "doc-1.anonymized.txt", ti.Name)
		assert.Equal(t, "text/plain", ti.MimeType)

		data, err := ReadAll(s, ti.ID)
		require.NoError(t, err)
		assert.Equal(t, "anonymized text", string(data))
		require.NoError(t, s.Delete(ti.ID))
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, s.Delete(info.ID))

		ok, err := s.Exists(info.ID)
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = s.Get(info.ID)
		assert.ErrorIs(t, err, ErrFileNotFound)
		assert.ErrorIs(t, s.Delete(info.ID), ErrFileNotFound)
	})
}

func TestLocalStorage(t *testing.T) {
	s, err := NewLocalStorage(LocalConfig{Path: t.TempDir()})
	require.NoError(t, err)
	exerciseStorage(t, s)
}

// TestMinioStorage 需要可用的MinIO服务，通过 MINIO_ENDPOINT 指定
func TestMinioStorage(t *testing.T) {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("MINIO_ENDPOINT not set, skipping MinIO tests")
	}

	s, err := NewMinioStorage(MinioConfig{
		Endpoint:  endpoint,
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Bucket:    "case-extractor-test",
	})
	require.NoError(t, err)
	exerciseStorage(t, s)
}

func TestNewStorage(t *testing.T) {
	s, err := NewStorage(Config{Type: "local", Local: LocalConfig{Path: t.TempDir()}})
	require.NoError(t, err)
	assert.IsType(t, &LocalStorage{}, s)

	_, err = NewStorage(Config{Type: "s3"})
	assert.Error(t, err)
}
