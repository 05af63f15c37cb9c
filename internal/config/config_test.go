package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(envListenAddr, "")
	t.Setenv(envDBPath, "")
	t.Setenv(envLogLevel, "")
	t.Setenv(envMaxConcurrentRuns, "")
	t.Setenv(envDefaultTimeoutS, "")
	t.Setenv(envWorkflowPath, "")

	cfg := Load()

	if cfg.ListenAddr != defaultListenAddr {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, defaultListenAddr)
	}
	if cfg.DBPath != defaultDBPath {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, defaultDBPath)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want %v", cfg.LogLevel, slog.LevelInfo)
	}
	if cfg.MaxConcurrentRuns != defaultMaxConcurrentRuns {
		t.Errorf("MaxConcurrentRuns = %d, want %d", cfg.MaxConcurrentRuns, defaultMaxConcurrentRuns)
	}
	if cfg.DefaultTimeout != 60*time.Second {
		t.Errorf("DefaultTimeout = %v, want 60s", cfg.DefaultTimeout)
	}
	if cfg.WorkflowPath != "" {
		t.Errorf("WorkflowPath = %q, want empty", cfg.WorkflowPath)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv(envListenAddr, ":9090")
	t.Setenv(envDBPath, "/tmp/test.db")
	t.Setenv(envLogLevel, "debug")
	t.Setenv(envMaxConcurrentRuns, "8")
	t.Setenv(envDefaultTimeoutS, "5")
	t.Setenv(envWorkflowPath, "/etc/hades/workflow.yaml")

	cfg := Load()

	if cfg.ListenAddr != ":9090" {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, ":9090")
	}
	if cfg.DBPath != "/tmp/test.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "/tmp/test.db")
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want %v", cfg.LogLevel, slog.LevelDebug)
	}
	if cfg.MaxConcurrentRuns != 8 {
		t.Errorf("MaxConcurrentRuns = %d, want 8", cfg.MaxConcurrentRuns)
	}
	if cfg.DefaultTimeout != 5*time.Second {
		t.Errorf("DefaultTimeout = %v, want 5s", cfg.DefaultTimeout)
	}
	if cfg.WorkflowPath != "/etc/hades/workflow.yaml" {
		t.Errorf("WorkflowPath = %q, want %q", cfg.WorkflowPath, "/etc/hades/workflow.yaml")
	}
}

func TestLoadIgnoresInvalidNumbers(t *testing.T) {
	for _, v := range []string{"zero", "0", "-3"} {
		t.Setenv(envMaxConcurrentRuns, v)
		t.Setenv(envDefaultTimeoutS, v)

		cfg := Load()

		if cfg.MaxConcurrentRuns != defaultMaxConcurrentRuns {
			t.Errorf("%s: MaxConcurrentRuns = %d, want default", v, cfg.MaxConcurrentRuns)
		}
		if cfg.DefaultTimeout != defaultTimeoutS*time.Second {
			t.Errorf("%s: DefaultTimeout = %v, want default", v, cfg.DefaultTimeout)
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"invalid", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		got := ParseLogLevel(tt.input)
		if got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewLoggerOutputsJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)
	if logger == nil {
		t.Fatal("NewLogger returned nil")
	}

	logger.Info("test message", "key", "value")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("logger output is not valid JSON: %v\noutput: %s", err, buf.String())
	}

	for _, key := range []string{"time", "level", "msg"} {
		if _, ok := entry[key]; !ok {
			t.Errorf("JSON output missing expected key %q", key)
		}
	}
	if entry["msg"] != "test message" {
		t.Errorf("msg = %v, want %q", entry["msg"], "test message")
	}
	if entry["key"] != "value" {
		t.Errorf("key = %v, want %q", entry["key"], "value")
	}
}
