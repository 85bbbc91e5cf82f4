package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "info", Format: "json", Writer: &buf})

	log.Debug("hidden")
	log.Info("validated", "poi", 3)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %d: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("not JSON: %v", err)
	}
	if entry["msg"] != "validated" || entry["poi"] != float64(3) {
		t.Errorf("unexpected entry %v", entry)
	}
}

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	New(Config{Level: "debug", Format: "text", Writer: &buf}).Debug("visible")

	if !strings.Contains(buf.String(), "msg=visible") {
		t.Errorf("expected text output, got %q", buf.String())
	}
}

func TestInitWithConfig_FileOutput(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "nested", "kcmc.log")

	InitWithConfig(Config{
		Level:    "info",
		Format:   "json",
		Output:   "file",
		FilePath: logPath,
	})
	Info("test message")

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), "test message") {
		t.Errorf("log file misses the entry: %q", data)
	}
}

func TestInitWithConfig_FileOutputInvalidDir(t *testing.T) {
	// Недоступная директория: откатываемся на stderr
	InitWithConfig(Config{
		Level:    "info",
		Output:   "file",
		FilePath: "/proc/kcmc/deeply/nested/test.log",
	})

	if Log == nil {
		t.Error("Log should not be nil even with invalid path")
	}
}

func TestWithRun(t *testing.T) {
	var buf bytes.Buffer
	InitWithConfig(Config{Level: "info", Writer: &buf})
	defer Init("info")

	WithRun("run-1", "1 3 1;10 2 3;7", 2, 3).Info("suite finished")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("not JSON: %v", err)
	}
	if entry["run_id"] != "run-1" || entry["instance"] != "1 3 1;10 2 3;7" {
		t.Errorf("missing run attributes: %v", entry)
	}
	if entry["k"] != float64(2) || entry["m"] != float64(3) {
		t.Errorf("missing k/m: %v", entry)
	}
}

func TestHelpers(t *testing.T) {
	var buf bytes.Buffer
	InitWithConfig(Config{Level: "debug", Format: "text", Writer: &buf})
	defer Init("info")

	Debug("d", "key", "value")
	Info("i")
	Warn("w")
	Error("e")
	WithService("kcmc-svc").Info("svc")
	WithRequestID("req-123").Info("req")

	out := buf.String()
	for _, want := range []string{"msg=d", "msg=i", "msg=w", "msg=e", "service=kcmc-svc", "request_id=req-123"} {
		if !strings.Contains(out, want) {
			t.Errorf("output misses %q", want)
		}
	}
}
