package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{"": slog.LevelInfo, "DEBUG": slog.LevelDebug, "warning": slog.LevelWarn, "error": slog.LevelError}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNew_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := New("warn", "", &buf)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer closer.Close()
	logger.Info("hidden")
	logger.Warn("shown", "units", 5)
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "units=5") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestNew_WritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "docrag.log")
	logger, closer, err := New("info", path, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("index built")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	data, _ := os.ReadFile(path)
	if !strings.Contains(string(data), "index built") {
		t.Fatalf("log file content %q", data)
	}
}
