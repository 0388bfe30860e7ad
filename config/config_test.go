package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "local", cfg.Storage.Type)
	assert.Equal(t, "tongyi", cfg.LLM.Provider)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout)
	assert.True(t, cfg.Anonymization.PreserveDates)
	assert.True(t, cfg.Anonymization.PreserveTimes)
	assert.False(t, cfg.Document.DefaultCase)
	assert.Equal(t, 5*time.Minute, cfg.Document.ProcessingTimeout)
	assert.Equal(t, []string{".pdf", ".docx", ".txt"}, cfg.Watcher.Extensions)

	_, err = os.Stat(path)
	assert.NoError(t, err, "default config file should be written")
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9090
storage:
  type: minio
  bucket: reports
anonymization:
  preserve_dates: false
queue:
  enable: true
  retry_limit: 5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "minio", cfg.Storage.Type)
	assert.Equal(t, "reports", cfg.Storage.Bucket)
	assert.False(t, cfg.Anonymization.PreserveDates)
	assert.True(t, cfg.Anonymization.PreserveTimes)
	assert.True(t, cfg.Queue.Enable)
	assert.Equal(t, 5, cfg.Queue.RetryLimit)
	assert.Equal(t, "localhost:6379", cfg.Queue.RedisAddr)
}

func TestLoadEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
storage:
  secret_key: "${TEST_MINIO_SECRET}"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	t.Setenv("TEST_MINIO_SECRET", "s3cr3t")
	t.Setenv("LLM_API_KEY", "sk-test")
	t.Setenv("SERVER_PORT", "7070")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "s3cr3t", cfg.Storage.SecretKey)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestExpandValue(t *testing.T) {
	t.Setenv("TEST_EXPAND", "value")

	assert.Equal(t, "value", expandValue("${TEST_EXPAND}"))
	assert.Equal(t, "${TEST_UNSET_VAR}", expandValue("${TEST_UNSET_VAR}"))
	assert.Equal(t, "plain", expandValue("plain"))
}
