package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger_WritesJSONToFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	log, err := NewLogger(dir, zapcore.InfoLevel)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}

	log.Info("run_started", zap.Int("urls", 2))
	log.Debug("filtered_out")
	_ = log.Sync()

	data, err := os.ReadFile(filepath.Join(dir, "statuscheck.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("want 1 line at info level, got %d: %s", len(lines), data)
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("not json: %v", err)
	}
	if entry["msg"] != "run_started" || entry["urls"] != float64(2) {
		t.Fatalf("unexpected entry %v", entry)
	}
	if _, ok := entry["ts"]; !ok {
		t.Fatalf("missing ts key: %v", entry)
	}
}

func TestNewLogger_EmptyDirIsNop(t *testing.T) {
	log, err := NewLogger("", zapcore.DebugLevel)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	log.Info("dropped")
}
