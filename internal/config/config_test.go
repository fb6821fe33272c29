package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000/api/v1", cfg.Backend.URL)
	assert.Equal(t, 10*time.Minute, cfg.Backend.RequestTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Pipeline.StageTimeout)
	assert.Equal(t, time.Second, cfg.Pipeline.PacingDelay)
	assert.True(t, cfg.Pipeline.UseGPU)
	assert.Equal(t, 2, cfg.Worker.Concurrency)
	assert.Equal(t, "translated-comics", cfg.S3.Bucket)
	assert.Equal(t, time.Hour, cfg.S3.PresignExpiry)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("BACKEND_URL", "http://translator:9000/api/v1")
	t.Setenv("PIPELINE_STAGE_TIMEOUT", "90s")
	t.Setenv("PIPELINE_PACING_DELAY", "0s")
	t.Setenv("PIPELINE_USE_GPU", "false")
	t.Setenv("WORKER_CONCURRENCY", "8")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_PASSWORD", "p@ss")
	t.Setenv("REDIS_PORT", "6380")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://translator:9000/api/v1", cfg.Backend.URL)
	assert.Equal(t, 90*time.Second, cfg.Pipeline.StageTimeout)
	assert.Zero(t, cfg.Pipeline.PacingDelay)
	assert.False(t, cfg.Pipeline.UseGPU)
	assert.Equal(t, 8, cfg.Worker.Concurrency)
	assert.Equal(t, "postgres://comictranslate:p@ss@db:5432/comictranslate?sslmode=disable", cfg.Database.DSN())
	assert.Equal(t, "localhost:6380", cfg.Redis.Addr())
}

func TestLoad_InvalidValue(t *testing.T) {
	t.Setenv("PIPELINE_STAGE_TIMEOUT", "five minutes")

	_, err := Load()
	assert.Error(t, err)
}
