package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestConsoleOutputPromotesComponent(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: "info", Format: "console", Output: &buf})
	log = log.With("component", "executor")

	log.Info("pass complete", "verified", 3, "failed", 0)

	line := buf.String()
	if !strings.Contains(line, "INFO [executor] pass complete") {
		t.Fatalf("header wrong: %q", line)
	}
	if !strings.Contains(line, "verified=3") || !strings.Contains(line, "failed=0") {
		t.Fatalf("attrs missing: %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component must not repeat as a pair: %q", line)
	}
}

func TestConsoleQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: "info", Output: &buf})

	log.Info("planned", "item", "Dark season 1 episode 3")

	if !strings.Contains(buf.String(), `item="Dark season 1 episode 3"`) {
		t.Fatalf("value not quoted: %q", buf.String())
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: "warn", Output: &buf})

	log.Info("hidden")
	log.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info leaked through warn level: %q", out)
	}
	if !strings.Contains(out, "visible") {
		t.Fatalf("warn suppressed: %q", out)
	}
}

func TestJSONFormatEmitsParsableRecords(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: "debug", Format: "json", Output: &buf})

	log.Debug("starting run", "run_id", "abc")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if record["msg"] != "starting run" || record["run_id"] != "abc" {
		t.Fatalf("record fields wrong: %v", record)
	}
}

func TestGroupedAttrsFlattenWithDots(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Level: "info", Output: &buf})

	log.Info("summary", slog.Group("actions", slog.Int("hide", 2), slog.Int("restore", 1)))

	out := buf.String()
	if !strings.Contains(out, "actions.hide=2") || !strings.Contains(out, "actions.restore=1") {
		t.Fatalf("groups not flattened: %q", out)
	}
}

func TestParseLevelFallsBackToInfo(t *testing.T) {
	if got := ParseLevel("verbose"); got != slog.LevelInfo {
		t.Fatalf("ParseLevel(verbose) = %v", got)
	}
	if got := ParseLevel("DEBUG"); got != slog.LevelDebug {
		t.Fatalf("ParseLevel(DEBUG) = %v", got)
	}
}
