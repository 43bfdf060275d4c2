package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("warn", false, &buf)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger = WithFile(WithRun(logger, "run-1"), "/data/a.dcm")
	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("Expected one event at warn level, got %d: %q", len(lines), buf.String())
	}

	var event map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &event); err != nil {
		t.Fatalf("Event is not JSON: %v", err)
	}
	if event["run_id"] != "run-1" || event["file"] != "/data/a.dcm" || event["message"] != "shown" {
		t.Errorf("Unexpected event %v", event)
	}
}

func TestNewInvalidLevel(t *testing.T) {
	if _, err := New("chatty", false, &bytes.Buffer{}); err == nil {
		t.Error("Expected error for unknown level")
	}
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New("", true, &buf)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Info().Str("file", "x.dcm").Msg("processed")
	if !strings.Contains(buf.String(), "processed") || strings.HasPrefix(buf.String(), "{") {
		t.Errorf("Expected console output, got %q", buf.String())
	}
}
