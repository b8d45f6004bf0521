package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zombar/creepyparser/internal/analyzer"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Retrieval.Timeout)
	assert.Equal(t, 4, cfg.Retrieval.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.Analysis.Timeout)
	assert.Equal(t, analyzer.DialogueInvertedU, cfg.Analysis.Score.DialogueMode)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9090"
log_level: debug
retrieval:
  timeout: 3s
  max_attempts: 2
analysis:
  score:
    dialogue_mode: flat
  glitch:
    max_stacked_marks: 5
`)

	cfg, err := LoadWithEnv(path, envMap(nil))
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Retrieval.Timeout)
	assert.Equal(t, 2, cfg.Retrieval.MaxAttempts)
	assert.Equal(t, analyzer.DialogueFlat, cfg.Analysis.Score.DialogueMode)
	assert.Equal(t, 40.0, cfg.Analysis.Score.TriggerWeight, "unset weights keep defaults")
	assert.Equal(t, 5, cfg.Analysis.Glitch.MaxStackedMarks)
	assert.Equal(t, 0.05, cfg.Analysis.Glitch.DensityThreshold)

	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: \"9090\"\n")

	cfg, err := LoadWithEnv(path, envMap(map[string]string{
		"PORT":                   "7070",
		"RETRIEVAL_TIMEOUT":      "2s",
		"RETRIEVAL_MAX_ATTEMPTS": "6",
		"ANALYSIS_TIMEOUT":       "1m",
		"REDDIT_API_BASE":        "http://localhost:9999",
		"USER_AGENT":             "test-agent",
	}))
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, 2*time.Second, cfg.Retrieval.Timeout)
	assert.Equal(t, 6, cfg.Retrieval.MaxAttempts)
	assert.Equal(t, time.Minute, cfg.Analysis.Timeout)
	assert.Equal(t, "http://localhost:9999", cfg.SourceResolver().RedditAPIBase)
	assert.Equal(t, "test-agent", cfg.RetrievalClient().UserAgent)
}

func TestConfigFileFromEnv(t *testing.T) {
	path := writeConfig(t, "log_level: warn\n")

	cfg, err := LoadWithEnv("", envMap(map[string]string{EnvConfigFile: path}))
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		env    map[string]string
		target error
	}{
		{"missing explicit file", filepath.Join(t.TempDir(), "nope.yaml"), nil, ErrConfigNotFound},
		{"bad port", "", map[string]string{"PORT": "http"}, ErrInvalidPort},
		{"bad log level", "", map[string]string{"LOG_LEVEL": "loud"}, ErrInvalidLogLevel},
		{"zero attempts", "", map[string]string{"RETRIEVAL_MAX_ATTEMPTS": "0"}, ErrInvalidMaxAttempts},
		{"negative timeout", "", map[string]string{"ANALYSIS_TIMEOUT": "-1s"}, ErrInvalidTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadWithEnv(tt.path, envMap(tt.env))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.target), "got %v", err)
		})
	}
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	_, err := LoadWithEnv("", envMap(map[string]string{"RETRIEVAL_TIMEOUT": "soon"}))
	assert.Error(t, err)

	path := writeConfig(t, "analysis:\n  score:\n    dialogue_mode: sideways\n")
	_, err = LoadWithEnv(path, envMap(nil))
	assert.Error(t, err)

	path = writeConfig(t, "server: [not, a, map]\n")
	_, err = LoadWithEnv(path, envMap(nil))
	assert.Error(t, err)
}

func TestAnalyzerConfigLoadsLexicon(t *testing.T) {
	lexPath := filepath.Join(t.TempDir(), "lexicon.yaml")
	require.NoError(t, os.WriteFile(lexPath, []byte("categories:\n  - name: ghosts\n    terms: [wraith]\n"), 0o600))

	cfg := Default()
	cfg.Analysis.LexiconPath = lexPath
	acfg, err := cfg.Analyzer()
	require.NoError(t, err)
	assert.Equal(t, []string{"ghosts"}, acfg.Lexicon.Categories())

	cfg.Analysis.LexiconPath = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = cfg.Analyzer()
	assert.Error(t, err)
}
