package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, MarkerBackendSQL, cfg.Redis.MarkerBackend)
	assert.Equal(t, 0.4, cfg.Quiz.AcceptanceRate)
	assert.Equal(t, 10, cfg.Quiz.QuestionCount)
	assert.Equal(t, 20, cfg.Rewards.QuizBase)
	assert.Equal(t, 5, cfg.Rewards.QuizPerCorrect)
	assert.Equal(t, 10, cfg.Rewards.TaskDefault)
	assert.Equal(t, 15*time.Second, cfg.App.ShutdownTimeout)
	assert.Equal(t, time.UTC, cfg.Location())
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadFrom_Overrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"STORAGE_DRIVER":       "Postgres",
		"DATABASE_URL":         "postgres://engine@localhost:5432/engine",
		"MARKER_BACKEND":       "redis",
		"APP_TIMEZONE":         "Asia/Almaty",
		"HTTP_ALLOWED_ORIGINS": "http://localhost:3000,https://app.example.com",
		"QUIZ_RANDOM_SEED":     "42",
	})
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, MarkerBackendRedis, cfg.Redis.MarkerBackend)
	assert.Equal(t, "Asia/Almaty", cfg.Location().String())
	assert.Equal(t, []string{"http://localhost:3000", "https://app.example.com"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, int64(42), cfg.Quiz.RandomSeed)
}

func TestLoadFrom_CollectsAllProblems(t *testing.T) {
	_, err := LoadFrom(map[string]string{
		"STORAGE_DRIVER":       "postgres",
		"MARKER_BACKEND":       "memcached",
		"QUIZ_ACCEPTANCE_RATE": "1.5",
		"APP_TIMEZONE":         "Mars/Olympus",
	})
	require.Error(t, err)

	msg := err.Error()
	assert.Contains(t, msg, "DATABASE_URL is required")
	assert.Contains(t, msg, "MARKER_BACKEND must be")
	assert.Contains(t, msg, "QUIZ_ACCEPTANCE_RATE")
	assert.Contains(t, msg, "APP_TIMEZONE")
}

func TestLoadFrom_RejectsMalformedValues(t *testing.T) {
	_, err := LoadFrom(map[string]string{"HTTP_PORT": "eighty"})
	assert.Error(t, err)
}
