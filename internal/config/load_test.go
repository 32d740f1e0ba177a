package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/atelierhq/atelier-api/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir moves into a fresh temp dir so a developer's local config.yaml can
// never leak into the test.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(orig) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 3300, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Empty(t, cfg.Database.URL)
	assert.Equal(t, "characters.json", cfg.Database.CharactersFile)
	assert.Empty(t, cfg.Auth.JWTSecret)
	assert.Equal(t, 60, cfg.Auth.TokenLifetimeMinutes)
	assert.Equal(t, "gemini-2.0-flash", cfg.LLM.ModelName)
	assert.Equal(t, "imagen-3.0-generate-002", cfg.LLM.ImageModelName)
	assert.Equal(t, 3, cfg.LLM.MaxRetries)
	assert.Equal(t, 2, cfg.LLM.RetryDelaySeconds)
	assert.Equal(t, 5, cfg.Generation.MaxConcurrent)
	assert.Equal(t, 20, cfg.Generation.RetentionLimit)
	assert.InDelta(t, 6.0, cfg.Generation.GuidanceScale, 0.001)
	assert.Equal(t, 45, cfg.Generation.Steps)
	assert.Equal(t, int64(42), cfg.Generation.BaseSeed)
	assert.Equal(t, int64(42), cfg.Generation.ConsistencySeed)
	assert.Equal(t, "generated_images", cfg.Generation.OutputDir)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	chdir(t)
	t.Setenv("ATELIER_SERVER_PORT", "8088")
	t.Setenv("ATELIER_SERVER_LOG_LEVEL", "debug")
	t.Setenv("ATELIER_GENERATION_MAX_CONCURRENT", "2")
	t.Setenv("ATELIER_LLM_GEMINI_API_KEY", "test-key")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8088, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, 2, cfg.Generation.MaxConcurrent)
	assert.Equal(t, "test-key", cfg.LLM.GeminiAPIKey)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := chdir(t)
	yaml := []byte("server:\n  port: 9090\n  log_level: warn\ngeneration:\n  steps: 30\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o644))

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Server.LogLevel)
	assert.Equal(t, 30, cfg.Generation.Steps)
	assert.Equal(t, 5, cfg.Generation.MaxConcurrent, "unset file keys keep defaults")
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	dir := chdir(t)
	yaml := []byte("server:\n  port: 9090\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o644))
	t.Setenv("ATELIER_SERVER_PORT", "7070")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoad_ValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "port out of range",
			env:  map[string]string{"ATELIER_SERVER_PORT": "70000"},
		},
		{
			name: "bad log level",
			env:  map[string]string{"ATELIER_SERVER_LOG_LEVEL": "loud"},
		},
		{
			name: "short jwt secret",
			env:  map[string]string{"ATELIER_AUTH_JWT_SECRET": "tooshort"},
		},
		{
			name: "steps below floor",
			env:  map[string]string{"ATELIER_GENERATION_STEPS": "5"},
		},
		{
			name: "guidance above ceiling",
			env:  map[string]string{"ATELIER_GENERATION_GUIDANCE_SCALE": "25"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			chdir(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}
