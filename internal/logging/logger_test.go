package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"convoy/internal/config"
	"convoy/internal/logging"
	"convoy/internal/services"
)

func TestNewFromConfigWritesJSONFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = t.TempDir()

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig returned error: %v", err)
	}
	logger.Info("file message", logging.String("k", "v"))

	path := filepath.Join(cfg.Paths.LogDir, logging.LogFileName(time.Now()))
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(content), &line); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", content, err)
	}
	if line["msg"] != "file message" || line["k"] != "v" || line["level"] != "info" {
		t.Fatalf("unexpected JSON record: %v", line)
	}
	if _, ok := line["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", line)
	}
}

func TestConsoleLoggerFormat(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "info", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logging.NewComponentLogger(logger, "extraction").Info("stage counts",
		logging.Int("kept", 2),
		logging.String("model", "some model"),
	)

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := string(content)
	if !strings.Contains(line, " INFO extraction: stage counts kept=2 model=\"some model\"\n") {
		t.Fatalf("unexpected console line %q", line)
	}
	if strings.Contains(line, ".go:") {
		t.Fatalf("expected no caller information in info logs, got %q", line)
	}
}

func TestConsoleLoggerIncludesCallerForDebug(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "console-debug.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "debug", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	logger.Info("message with caller")

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(content), ".go:") {
		t.Fatalf("expected caller information in debug logs, got %q", content)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestInvalidLevelDefaultsToInfo(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "level.log")
	logger, err := logging.New(logging.Options{Format: "console", Level: "invalid", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("shown")

	content, _ := os.ReadFile(logPath)
	if strings.Contains(string(content), "hidden") || !strings.Contains(string(content), "shown") {
		t.Fatalf("expected info level filtering, got %q", content)
	}
}

func TestWithContextAddsFields(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-1")
	ctx = services.WithThreadID(ctx, "T1")
	ctx = services.WithRequestID(ctx, "req-xyz")

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logging.WithContext(ctx, logger).Info("contextual log")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	for key, want := range map[string]string{
		logging.FieldRunID:         "run-1",
		logging.FieldThreadID:      "T1",
		logging.FieldCorrelationID: "req-xyz",
	} {
		if line[key] != want {
			t.Fatalf("field %s = %v, want %q", key, line[key], want)
		}
	}
	if _, ok := line[logging.FieldChannelID]; ok {
		t.Fatal("channel id should be absent when not set")
	}
}

func TestWarnWithContextFillsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	logging.WarnWithContext(logger, "thread skipped", "thread_failed", logging.String(logging.FieldImpact, "no tasks from thread"))

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if line[logging.FieldEventType] != "thread_failed" {
		t.Fatalf("unexpected event type: %v", line)
	}
	if line[logging.FieldErrorHint] != "check logs for details" {
		t.Fatalf("expected default error hint: %v", line)
	}
	if line[logging.FieldImpact] != "no tasks from thread" {
		t.Fatalf("caller impact should win: %v", line)
	}
}

func TestCleanupOldLogs(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "convoy-2020-01-01.log")
	kept := filepath.Join(dir, "convoy-2020-01-02.log")
	fresh := filepath.Join(dir, "convoy-today.log")
	other := filepath.Join(dir, "notes.txt")
	for _, path := range []string{old, kept, fresh, other} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	past := time.Now().AddDate(0, 0, -10)
	for _, path := range []string{old, kept, other} {
		if err := os.Chtimes(path, past, past); err != nil {
			t.Fatalf("chtimes: %v", err)
		}
	}

	removed := logging.CleanupOldLogs(logging.NewNop(), dir, "convoy-*.log", 5, kept)
	if len(removed) != 1 || filepath.Base(removed[0]) != filepath.Base(old) {
		t.Fatalf("unexpected removed set: %v", removed)
	}
	for _, path := range []string{kept, fresh, other} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s to remain: %v", path, err)
		}
	}

	if got := logging.CleanupOldLogs(nil, dir, "*", 0); got != nil {
		t.Fatalf("retention 0 must not prune, removed %v", got)
	}
}
