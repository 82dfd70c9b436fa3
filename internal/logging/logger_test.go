package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewJSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "warn", "json")

	logger.Info("hidden")
	logger.Warn("shown", "user", "alice")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line, got %q", buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("expected json output: %v", err)
	}
	if entry["msg"] != "shown" || entry["user"] != "alice" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestNewTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "bogus", "TEXT")

	logger.Debug("hidden")
	logger.Info("hello")

	out := buf.String()
	if !strings.Contains(out, "hello") || strings.Contains(out, "hidden") {
		t.Fatalf("unexpected text output %q", out)
	}
	if json.Valid([]byte(strings.TrimSpace(out))) {
		t.Fatalf("text format should not emit json")
	}
}
