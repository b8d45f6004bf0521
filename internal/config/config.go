// Package config assembles service settings from defaults, an optional YAML
// file and environment variables, in that order of precedence (last wins).
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/zombar/creepyparser/internal/analyzer"
	"github.com/zombar/creepyparser/internal/retrieval"
	"github.com/zombar/creepyparser/internal/source"
)

const (
	AppName        = "creepyparser"
	ConfigFileName = "config.yaml"
	// EnvConfigFile points at a config file when no --config flag is given
	EnvConfigFile = "CREEPYPARSER_CONFIG"

	DefaultPort            = "8080"
	DefaultLogLevel        = "info"
	DefaultAnalysisTimeout = 30 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
)

var (
	ErrConfigNotFound     = errors.New("configuration file not found")
	ErrInvalidPort        = errors.New("invalid port")
	ErrInvalidLogLevel    = errors.New("invalid log level: use debug, info, warn or error")
	ErrInvalidTimeout     = errors.New("invalid timeout: must be positive")
	ErrInvalidMaxAttempts = errors.New("invalid retrieval max_attempts: must be at least 1")
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	LogLevel  string          `yaml:"log_level"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Sources   SourcesConfig   `yaml:"sources"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
}

type ServerConfig struct {
	Port            string        `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type RetrievalConfig struct {
	Timeout        time.Duration `yaml:"timeout"`
	MaxAttempts    int           `yaml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
	RateLimit      float64       `yaml:"rate_limit"`
	RateBurst      int           `yaml:"rate_burst"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`
	UserAgent      string        `yaml:"user_agent"`
}

type SourcesConfig struct {
	RedditAPIBase string `yaml:"reddit_api_base"`
	FandomAPIBase string `yaml:"fandom_api_base"`
}

type AnalysisConfig struct {
	Timeout     time.Duration             `yaml:"timeout"`
	Workers     int                       `yaml:"workers"`
	LexiconPath string                    `yaml:"lexicon_path"`
	Score       analyzer.ScoreWeights     `yaml:"score"`
	Glitch      analyzer.GlitchThresholds `yaml:"glitch"`
}

// Default returns the built-in configuration
func Default() *Config {
	r := retrieval.DefaultConfig()
	return &Config{
		Server: ServerConfig{
			Port:            DefaultPort,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		LogLevel: DefaultLogLevel,
		Retrieval: RetrievalConfig{
			Timeout:        r.Timeout,
			MaxAttempts:    r.MaxAttempts,
			InitialBackoff: r.InitialBackoff,
			MaxBackoff:     r.MaxBackoff,
			RateLimit:      r.RateLimit,
			RateBurst:      r.RateBurst,
			MaxBodyBytes:   r.MaxBodyBytes,
			UserAgent:      r.UserAgent,
		},
		Sources: SourcesConfig{
			RedditAPIBase: source.DefaultRedditAPIBase,
		},
		Analysis: AnalysisConfig{
			Timeout: DefaultAnalysisTimeout,
			Score:   analyzer.DefaultScoreWeights(),
			Glitch:  analyzer.DefaultGlitchThresholds(),
		},
	}
}

// XDGConfigFile is the per-user config location, e.g. ~/.config/creepyparser/config.yaml
func XDGConfigFile() string {
	return filepath.Join(xdg.ConfigHome, AppName, ConfigFileName)
}

// Load reads configuration using the process environment
func Load(path string) (*Config, error) {
	return LoadWithEnv(path, os.Getenv)
}

// LoadWithEnv layers defaults, the config file and getenv overrides.
// An explicit path must exist; the discovered locations are optional.
func LoadWithEnv(path string, getenv func(string) string) (*Config, error) {
	cfg := Default()

	file, err := findConfigFile(path, getenv)
	if err != nil {
		return nil, err
	}
	if file != "" {
		if err := cfg.loadFile(file); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findConfigFile(explicit string, getenv func(string) string) (string, error) {
	if explicit == "" {
		explicit = getenv(EnvConfigFile)
	}
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("%w: %s", ErrConfigNotFound, explicit)
		}
		return explicit, nil
	}

	if p := XDGConfigFile(); fileExists(p) {
		return p, nil
	}
	return "", nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied config path
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("PORT"); v != "" {
		c.Server.Port = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := getenv("USER_AGENT"); v != "" {
		c.Retrieval.UserAgent = v
	}
	if v := getenv("REDDIT_API_BASE"); v != "" {
		c.Sources.RedditAPIBase = v
	}
	if v := getenv("FANDOM_API_BASE"); v != "" {
		c.Sources.FandomAPIBase = v
	}
	if v := getenv("LEXICON_PATH"); v != "" {
		c.Analysis.LexiconPath = v
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"RETRIEVAL_TIMEOUT", &c.Retrieval.Timeout},
		{"ANALYSIS_TIMEOUT", &c.Analysis.Timeout},
	}
	for _, d := range durations {
		v := getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.key, v, err)
		}
		*d.dst = parsed
	}

	if v := getenv("RETRIEVAL_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid RETRIEVAL_MAX_ATTEMPTS %q: %w", v, err)
		}
		c.Retrieval.MaxAttempts = n
	}
	return nil
}

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	if port, err := strconv.Atoi(c.Server.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("%w: %q", ErrInvalidPort, c.Server.Port)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if c.Retrieval.Timeout <= 0 || c.Analysis.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Retrieval.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}
	if err := c.Analysis.Score.Validate(); err != nil {
		return fmt.Errorf("invalid analysis.score: %w", err)
	}
	if err := c.Analysis.Glitch.Validate(); err != nil {
		return fmt.Errorf("invalid analysis.glitch: %w", err)
	}
	return nil
}

// SlogLevel parses LogLevel
func (c *Config) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.LogLevel)
}

// RetrievalClient returns the retrieval adapter settings
func (c *Config) RetrievalClient() retrieval.Config {
	r := c.Retrieval
	return retrieval.Config{
		Timeout:        r.Timeout,
		MaxAttempts:    r.MaxAttempts,
		InitialBackoff: r.InitialBackoff,
		MaxBackoff:     r.MaxBackoff,
		RateLimit:      r.RateLimit,
		RateBurst:      r.RateBurst,
		MaxBodyBytes:   r.MaxBodyBytes,
		UserAgent:      r.UserAgent,
	}
}

// SourceResolver returns the source endpoint settings
func (c *Config) SourceResolver() source.Config {
	return source.Config{
		RedditAPIBase: c.Sources.RedditAPIBase,
		FandomAPIBase: c.Sources.FandomAPIBase,
	}
}

// Analyzer builds the analyzer settings, loading a custom lexicon if set
func (c *Config) Analyzer() (analyzer.Config, error) {
	cfg := analyzer.Config{
		Weights: c.Analysis.Score,
		Glitch:  c.Analysis.Glitch,
		Lexicon: analyzer.DefaultLexicon(),
		Workers: c.Analysis.Workers,
	}
	if c.Analysis.LexiconPath != "" {
		lex, err := analyzer.LoadLexicon(c.Analysis.LexiconPath)
		if err != nil {
			return analyzer.Config{}, err
		}
		cfg.Lexicon = lex
	}
	return cfg, nil
}
