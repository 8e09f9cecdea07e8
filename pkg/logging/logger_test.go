package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// setupTestDir points logging at a temporary directory and resets global state
func setupTestDir(t *testing.T) (cleanup func()) {
	t.Helper()

	tempDir := t.TempDir()

	origSessionID := sessionID
	origLevel := level.Level()

	sessionID = ""
	sessionIDOnce = sync.Once{}
	SetLogDirectory(tempDir)

	return func() {
		_ = Shutdown()
		SetConsole(nil)
		level.SetLevel(origLevel)
		sessionID = origSessionID
		sessionIDOnce = sync.Once{}
		if origSessionID != "" {
			sessionIDOnce.Do(func() {})
		}
		SetLogDirectory("")
	}
}

func readEntries(t *testing.T, path string) []map[string]interface{} {
	t.Helper()

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(string(content)), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("Log line is not JSON: %q", line)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestNewLogger(t *testing.T) {
	cleanup := setupTestDir(t)
	defer cleanup()

	logger, err := NewLogger("test-component")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Close()

	if logger.Component() != "test-component" {
		t.Errorf("Expected component 'test-component', got %q", logger.Component())
	}
	if logger.SessionID() == "" {
		t.Error("Expected non-empty session ID")
	}
	if logger.LogPath() == "" {
		t.Error("Expected non-empty log path")
	}

	logger.Infof("hello")
	if _, err := os.Stat(logger.LogPath()); os.IsNotExist(err) {
		t.Errorf("Log file does not exist at %s", logger.LogPath())
	}
}

func TestLoggerLevels(t *testing.T) {
	cleanup := setupTestDir(t)
	defer cleanup()

	if err := SetLevel("debug"); err != nil {
		t.Fatalf("SetLevel failed: %v", err)
	}

	logger, err := NewLogger("test")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Close()

	logger.Printf("Test message %d", 123)
	logger.Debugf("Debug message")
	logger.Infof("Info message")
	logger.Warnf("Warning message")
	logger.Errorf("Error message")

	entries := readEntries(t, logger.LogPath())
	expected := []struct{ level, msg string }{
		{"INFO", "Test message 123"},
		{"DEBUG", "Debug message"},
		{"INFO", "Info message"},
		{"WARN", "Warning message"},
		{"ERROR", "Error message"},
	}
	if len(entries) != len(expected) {
		t.Fatalf("Expected %d entries, got %d", len(expected), len(entries))
	}
	for i, want := range expected {
		if entries[i]["level"] != want.level || entries[i]["msg"] != want.msg {
			t.Errorf("Entry %d: expected %s %q, got %v", i, want.level, want.msg, entries[i])
		}
		if entries[i]["logger"] != "test" {
			t.Errorf("Entry %d: expected logger name 'test', got %v", i, entries[i]["logger"])
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	cleanup := setupTestDir(t)
	defer cleanup()

	if err := SetLevel("warn"); err != nil {
		t.Fatalf("SetLevel failed: %v", err)
	}

	logger, err := NewLogger("filtered")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Close()

	logger.Debugf("dropped")
	logger.Infof("dropped")
	logger.Warnf("kept")

	entries := readEntries(t, logger.LogPath())
	if len(entries) != 1 || entries[0]["msg"] != "kept" {
		t.Errorf("Expected only the warning, got %v", entries)
	}
}

func TestSetLevelInvalid(t *testing.T) {
	if err := SetLevel("loud"); err == nil {
		t.Error("Expected error for unknown level")
	}
}

func TestMultipleComponents(t *testing.T) {
	cleanup := setupTestDir(t)
	defer cleanup()

	logger1, err := NewLogger("component1")
	if err != nil {
		t.Fatalf("Failed to create logger1: %v", err)
	}
	defer logger1.Close()

	logger2, err := NewLogger("component2")
	if err != nil {
		t.Fatalf("Failed to create logger2: %v", err)
	}
	defer logger2.Close()

	if logger1.SessionID() != logger2.SessionID() {
		t.Errorf("Expected same session ID, got %q and %q", logger1.SessionID(), logger2.SessionID())
	}
	if logger1.LogPath() != logger2.LogPath() {
		t.Errorf("Expected same log path, got %q and %q", logger1.LogPath(), logger2.LogPath())
	}

	logger1.Printf("Message from component1")
	logger2.Printf("Message from component2")

	names := map[interface{}]bool{}
	for _, entry := range readEntries(t, logger1.LogPath()) {
		names[entry["logger"]] = true
	}
	if !names["component1"] || !names["component2"] {
		t.Errorf("Expected entries from both components, got %v", names)
	}
}

func TestConsoleMirror(t *testing.T) {
	cleanup := setupTestDir(t)
	defer cleanup()

	var buf bytes.Buffer
	SetConsole(&buf)

	logger, err := NewLogger("console")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Close()

	logger.Infof("visible on console")
	if !strings.Contains(buf.String(), "visible on console") {
		t.Errorf("Expected console output, got %q", buf.String())
	}
}

func TestZapFields(t *testing.T) {
	cleanup := setupTestDir(t)
	defer cleanup()

	logger, err := NewLogger("fields")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Close()

	logger.Zap().Sugar().Infow("structured", "port", 8123)

	entries := readEntries(t, logger.LogPath())
	if len(entries) != 1 || entries[0]["port"] != float64(8123) {
		t.Errorf("Expected port field, got %v", entries)
	}
	if entries[0]["session_id"] != logger.SessionID() {
		t.Errorf("Expected session_id field, got %v", entries[0]["session_id"])
	}
}

func TestGetSessionID(t *testing.T) {
	cleanup := setupTestDir(t)
	defer cleanup()

	id1 := GetSessionID()
	id2 := GetSessionID()

	if id1 != id2 {
		t.Errorf("Expected consistent session ID, got %q and %q", id1, id2)
	}
	if id1 == "" {
		t.Error("Expected non-empty session ID")
	}
}

func TestGetLogDirectory(t *testing.T) {
	cleanup := setupTestDir(t)
	defer cleanup()

	dir, err := GetLogDirectory()
	if err != nil {
		t.Fatalf("Failed to get log directory: %v", err)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		t.Errorf("Log directory does not exist or is not a directory: %s", dir)
	}
}

func TestFallbackToStderr(t *testing.T) {
	cleanup := setupTestDir(t)
	defer cleanup()

	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}
	SetLogDirectory(filepath.Join(blocker, "logs"))

	logger, err := NewLogger("fallback")
	if err == nil {
		t.Fatal("Expected error when log directory cannot be created")
	}
	if logger == nil {
		t.Fatal("Expected a usable fallback logger")
	}
	if logger.LogPath() != "" {
		t.Errorf("Expected empty log path for fallback, got %q", logger.LogPath())
	}
	if logger.Writer() != os.Stderr {
		t.Error("Expected fallback logger to write to stderr")
	}
	logger.Infof("still works")
}

func TestLoggerClose(t *testing.T) {
	cleanup := setupTestDir(t)
	defer cleanup()

	logger, err := NewLogger("test")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	if err := logger.Close(); err != nil {
		t.Errorf("First close failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("Second close failed: %v", err)
	}
}

func TestNop(t *testing.T) {
	logger := Nop()
	logger.Infof("ignored %d", 1)
	if logger.LogPath() != "" {
		t.Error("Nop logger should not have a log path")
	}
	if err := logger.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestLogPathFormat(t *testing.T) {
	cleanup := setupTestDir(t)
	defer cleanup()

	logger, err := NewLogger("test")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Close()

	fileName := filepath.Base(logger.LogPath())
	if !strings.HasSuffix(fileName, "-lookout.log") {
		t.Errorf("Expected log file to end with '-lookout.log', got %q", fileName)
	}

	sessionPart := strings.TrimSuffix(fileName, "-lookout.log")
	if sessionPart != logger.SessionID() {
		t.Errorf("Expected file name to start with session ID %q, got %q", logger.SessionID(), sessionPart)
	}
}
