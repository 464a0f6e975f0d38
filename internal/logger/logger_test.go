package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"nonsense", LevelInfo},
		{"", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if ParseFormat("json") != FormatJSON || ParseFormat("JSON") != FormatJSON {
		t.Error("json format not parsed")
	}
	if ParseFormat("text") != FormatText || ParseFormat("") != FormatText {
		t.Error("text should be the fallback format")
	}
}

func TestSlogLogger_TextOutput(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewSlogLogger(Config{Level: LevelDebug, Writer: &buf})
	if err != nil {
		t.Fatalf("NewSlogLogger failed: %v", err)
	}
	defer l.Shutdown()

	l.Info("processing", "path", "a/b.txt", "bytes", 42)

	out := buf.String()
	if !strings.Contains(out, "processing") || !strings.Contains(out, "a/b.txt") {
		t.Errorf("output missing fields: %s", out)
	}
}

func TestSlogLogger_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewSlogLogger(Config{Level: LevelInfo, Format: FormatJSON, Writer: &buf})
	if err != nil {
		t.Fatalf("NewSlogLogger failed: %v", err)
	}
	defer l.Shutdown()

	l.Warn("slow fsync", "dir", "/data")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v: %s", err, buf.String())
	}
	if entry["msg"] != "slow fsync" || entry["dir"] != "/data" {
		t.Errorf("entry = %v", entry)
	}
}

func TestSlogLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewSlogLogger(Config{Level: LevelWarn, Writer: &buf})
	if err != nil {
		t.Fatalf("NewSlogLogger failed: %v", err)
	}
	defer l.Shutdown()

	l.Debug("hidden")
	l.Info("hidden too")
	l.Error("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("suppressed levels leaked: %s", out)
	}
	if !strings.Contains(out, "visible") {
		t.Errorf("error level suppressed: %s", out)
	}
}

func TestSlogLogger_With(t *testing.T) {
	var buf bytes.Buffer
	l, err := NewSlogLogger(Config{Level: LevelInfo, Writer: &buf})
	if err != nil {
		t.Fatalf("NewSlogLogger failed: %v", err)
	}
	defer l.Shutdown()

	child := l.With("component", "planner")
	child.Info("built plan")

	if !strings.Contains(buf.String(), "component=planner") {
		t.Errorf("bound attribute missing: %s", buf.String())
	}
}

func TestGlobal_BeforeInit(t *testing.T) {
	// Must never panic or return nil.
	Get().Info("discarded")
	With("k", "v").Debug("discarded")
}

func TestGlobal_InitAndShutdown(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(Config{Level: LevelInfo, Writer: &buf}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	if err := Init(Config{Writer: &buf}); err == nil {
		t.Error("double Init should fail")
	}

	Get().Info("through the global")
	if !strings.Contains(buf.String(), "through the global") {
		t.Errorf("global logger not wired: %s", buf.String())
	}

	if err := Shutdown(); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if err := Shutdown(); err != nil {
		t.Errorf("repeated Shutdown failed: %v", err)
	}
}

func TestFileWriter_RequiresPath(t *testing.T) {
	_, err := NewSlogLogger(Config{File: FileConfig{Enabled: true}})
	if err == nil {
		t.Fatal("expected error for file logging without a path")
	}
}
