package logging

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var allCategories = []Category{
	CategoryBoot,
	CategoryScaffold,
	CategorySource,
	CategoryImports,
	CategoryRegistry,
	CategoryInject,
	CategoryWatch,
}

func resetLogging(t *testing.T) {
	t.Helper()
	CloseAll()
	SetConsole(nil)
	logsDir = ""
	workspace = ""
	config = Config{}
	t.Cleanup(func() {
		CloseAll()
		SetConsole(nil)
		logsDir = ""
		config = Config{}
	})
}

// TestAllCategoriesLog tests that all categories create log files when debug_mode is true
func TestAllCategoriesLog(t *testing.T) {
	resetLogging(t)
	tempDir := t.TempDir()

	if err := Initialize(tempDir, Config{DebugMode: true, Level: "debug"}); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}
	if !IsDebugMode() {
		t.Error("Expected debug mode to be enabled")
	}

	for _, cat := range allCategories {
		if !IsCategoryEnabled(cat) {
			t.Errorf("Category %s should be enabled", cat)
		}
		logger := Get(cat)
		logger.Info("Test info message for %s", cat)
		logger.Debug("Test debug message for %s", cat)
		logger.Warn("Test warn message for %s", cat)
		logger.Error("Test error message for %s", cat)
	}

	Boot("Convenience boot log")
	Scaffold("Convenience scaffold log")
	Source("Convenience source log")
	Imports("Convenience imports log")
	Registry("Convenience registry log")
	Inject("Convenience inject log")
	Watch("Convenience watch log")

	CloseAll()

	logsPath := filepath.Join(tempDir, ".inject", "logs")
	entries, err := os.ReadDir(logsPath)
	if err != nil {
		t.Fatalf("Failed to read logs dir: %v", err)
	}

	for _, cat := range allCategories {
		found := false
		for _, entry := range entries {
			if !strings.HasSuffix(entry.Name(), "_"+string(cat)+".log") {
				continue
			}
			found = true
			content, err := os.ReadFile(filepath.Join(logsPath, entry.Name()))
			if err != nil {
				t.Errorf("Failed to read log file for %s: %v", cat, err)
				break
			}
			if !strings.Contains(string(content), "Test debug message for "+string(cat)) {
				t.Errorf("Log file for %s is missing the debug line", cat)
			}
			break
		}
		if !found {
			t.Errorf("No log file found for category: %s", cat)
		}
	}
}

// TestDebugModeDisabled tests that no logs are created when debug_mode is false
func TestDebugModeDisabled(t *testing.T) {
	resetLogging(t)
	tempDir := t.TempDir()

	if err := Initialize(tempDir, Config{DebugMode: false}); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}
	if IsDebugMode() {
		t.Error("Expected debug mode to be disabled")
	}

	for _, cat := range allCategories {
		if IsCategoryEnabled(cat) {
			t.Errorf("Category %s should be disabled in production mode", cat)
		}
		Get(cat).Info("should not be written")
	}
	CloseAll()

	if _, err := os.Stat(filepath.Join(tempDir, ".inject", "logs")); !os.IsNotExist(err) {
		t.Errorf("Logs directory should not exist when debug mode is off, stat err = %v", err)
	}
}

// TestCategoryToggle tests that individual categories can be disabled
func TestCategoryToggle(t *testing.T) {
	resetLogging(t)
	tempDir := t.TempDir()

	cfg := Config{
		DebugMode: true,
		Level:     "info",
		Categories: map[string]bool{
			"imports":  true,
			"registry": false,
			"watch":    false,
		},
	}
	if err := Initialize(tempDir, cfg); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}

	if !IsCategoryEnabled(CategoryImports) {
		t.Error("imports should be enabled")
	}
	if IsCategoryEnabled(CategoryRegistry) {
		t.Error("registry should be disabled")
	}
	if !IsCategoryEnabled(CategorySource) {
		t.Error("categories missing from the map default to enabled")
	}

	Imports("enabled")
	Registry("disabled")
	Watch("disabled")
	CloseAll()

	entries, err := os.ReadDir(filepath.Join(tempDir, ".inject", "logs"))
	if err != nil {
		t.Fatalf("Failed to read logs dir: %v", err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	joined := strings.Join(names, " ")
	if !strings.Contains(joined, "_imports.log") {
		t.Errorf("expected imports log, got %v", names)
	}
	if strings.Contains(joined, "_registry.log") || strings.Contains(joined, "_watch.log") {
		t.Errorf("disabled categories must not create files, got %v", names)
	}
}

// TestLevelFilter checks that lines below the configured level are dropped.
func TestLevelFilter(t *testing.T) {
	resetLogging(t)
	tempDir := t.TempDir()

	if err := Initialize(tempDir, Config{DebugMode: true, Level: "warn"}); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}
	SourceDebug("hidden debug")
	Get(CategorySource).Warn("visible warn")
	CloseAll()

	matches, _ := filepath.Glob(filepath.Join(tempDir, ".inject", "logs", "*_source.log"))
	if len(matches) != 1 {
		t.Fatalf("expected one source log, got %v", matches)
	}
	content, _ := os.ReadFile(matches[0])
	if strings.Contains(string(content), "hidden debug") {
		t.Error("debug line should be filtered at warn level")
	}
	if !strings.Contains(string(content), "visible warn") {
		t.Error("warn line should be written")
	}
}

// TestConsoleMirror checks warnings reach the console even with file logging off.
func TestConsoleMirror(t *testing.T) {
	resetLogging(t)

	core, recorded := observer.New(zapcore.WarnLevel)
	SetConsole(zap.New(core))

	Get(CategoryScaffold).Info("not mirrored")
	ScaffoldWarn("seed copy failed for %s", "blog")
	Get(CategoryInject).Error("persist failed")

	entries := recorded.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 mirrored entries, got %d", len(entries))
	}
	if entries[0].Message != "seed copy failed for blog" {
		t.Errorf("unexpected message %q", entries[0].Message)
	}
	if got := entries[1].ContextMap()["category"]; got != string(CategoryInject) {
		t.Errorf("expected category field %q, got %v", CategoryInject, got)
	}
}

// TestAuditTrail checks audit events are written as JSON lines.
func TestAuditTrail(t *testing.T) {
	resetLogging(t)
	tempDir := t.TempDir()

	if err := Initialize(tempDir, Config{DebugMode: true}); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}
	if err := InitAudit(); err != nil {
		t.Fatalf("Failed to initialize audit: %v", err)
	}

	a := AuditRun("run-1")
	a.RunStart("src/content/config.ts", []string{"blog"})
	a.Mutation(AuditPropertyMerge, "blog", "collections.blog", "added")
	a.FileOp(AuditFileError, "src/content/config.ts", 0, errors.New("disk\nfull"))
	CloseAudit()

	matches, _ := filepath.Glob(filepath.Join(tempDir, ".inject", "logs", "*_audit.jsonl"))
	if len(matches) != 1 {
		t.Fatalf("expected one audit file, got %v", matches)
	}
	data, _ := os.ReadFile(matches[0])
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 audit lines, got %d", len(lines))
	}

	var merge AuditEvent
	if err := json.Unmarshal([]byte(lines[1]), &merge); err != nil {
		t.Fatalf("bad audit line: %v", err)
	}
	if merge.RunID != "run-1" || merge.EventType != AuditPropertyMerge {
		t.Errorf("unexpected event %+v", merge)
	}
	if merge.Summary != "property_merge(blog, collections.blog, added, ok)" {
		t.Errorf("unexpected summary %q", merge.Summary)
	}

	var failed AuditEvent
	if err := json.Unmarshal([]byte(lines[2]), &failed); err != nil {
		t.Fatalf("bad audit line: %v", err)
	}
	if failed.Success || !strings.HasSuffix(failed.Summary, `disk\nfull`) {
		t.Errorf("unexpected failure event %+v", failed)
	}
}

// TestTimerLogging tests the timing helper
func TestTimerLogging(t *testing.T) {
	resetLogging(t)
	if err := Initialize(t.TempDir(), Config{DebugMode: true, Level: "debug"}); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}

	timer := StartTimer(CategoryInject, "TestOperation")
	time.Sleep(time.Millisecond)
	elapsed := timer.Stop()

	if elapsed <= 0 {
		t.Error("Timer should have recorded non-zero duration")
	}
}
