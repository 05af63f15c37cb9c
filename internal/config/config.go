package config

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultListenAddr        = ":8080"
	defaultDBPath            = "hades.db"
	defaultMaxConcurrentRuns = 4
	defaultTimeoutS          = 60

	envListenAddr        = "HADES_LISTEN_ADDR"
	envDBPath            = "HADES_DB_PATH"
	envLogLevel          = "HADES_LOG_LEVEL"
	envMaxConcurrentRuns = "HADES_MAX_CONCURRENT_RUNS"
	envDefaultTimeoutS   = "HADES_DEFAULT_TIMEOUT_S"
	envWorkflowPath      = "HADES_WORKFLOW_PATH"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	ListenAddr        string
	DBPath            string
	LogLevel          slog.Level
	MaxConcurrentRuns int
	DefaultTimeout    time.Duration
	// WorkflowPath optionally names a YAML or JSON workflow document that
	// replaces the built-in default workflow.
	WorkflowPath string
}

// Load reads configuration from environment variables with sensible defaults.
// Numeric values that do not parse as positive integers keep their default.
func Load() Config {
	cfg := Config{
		ListenAddr:        defaultListenAddr,
		DBPath:            defaultDBPath,
		LogLevel:          slog.LevelInfo,
		MaxConcurrentRuns: defaultMaxConcurrentRuns,
		DefaultTimeout:    defaultTimeoutS * time.Second,
	}

	if v := os.Getenv(envListenAddr); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv(envDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(envLogLevel); v != "" {
		cfg.LogLevel = ParseLogLevel(v)
	}
	if n, ok := parsePositive(os.Getenv(envMaxConcurrentRuns)); ok {
		cfg.MaxConcurrentRuns = n
	}
	if n, ok := parsePositive(os.Getenv(envDefaultTimeoutS)); ok {
		cfg.DefaultTimeout = time.Duration(n) * time.Second
	}
	cfg.WorkflowPath = os.Getenv(envWorkflowPath)

	return cfg
}

func parsePositive(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// ParseLogLevel maps debug, info, warn and error (any case) to a level.
// Anything else is info.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a structured JSON logger writing to w at the configured level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}
