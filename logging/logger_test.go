package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"
)

func newBufferedLogger(buf *bytes.Buffer, level LogLevel) *EvoMeshLogger {
	return NewLogger(&LoggerConfig{Level: level, Format: "json", Output: buf})
}

// lastEntry decodes the final JSON line written to buf.
func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) == 0 || lines[0] == "" {
		t.Fatal("no log output")
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v: %s", err, lines[len(lines)-1])
	}
	return entry
}

func TestEvoMeshLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferedLogger(&buf, LogLevelWarn)

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("visible")

	if strings.Contains(buf.String(), "hidden") {
		t.Fatalf("sub-threshold entries leaked: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "visible") {
		t.Fatalf("warn entry missing: %s", buf.String())
	}
}

func TestEvoMeshLogger_ContextualAttributes(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferedLogger(&buf, LogLevelInfo).
		WithComponent("gate").
		WithLineage("alpha", "run-1").
		WithContext("attempt", 2)

	l.Info("checked")

	entry := lastEntry(t, &buf)
	if entry["component"] != "gate" || entry["lineage"] != "alpha" || entry["run_id"] != "run-1" {
		t.Fatalf("contextual attributes missing: %v", entry)
	}
	if entry["attempt"] != float64(2) {
		t.Fatalf("custom attribute missing: %v", entry)
	}
}

func TestEvoMeshLogger_LogGateCheck(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferedLogger(&buf, LogLevelInfo)

	l.LogGateCheck("/repo", 5*time.Millisecond, false, 2, 1)

	entry := lastEntry(t, &buf)
	if entry["msg"] != "Validation gate failed" {
		t.Fatalf("unexpected message: %v", entry["msg"])
	}
	if entry["passed"] != false || entry["error_count"] != float64(2) || entry["warning_count"] != float64(1) {
		t.Fatalf("gate outcome attributes wrong: %v", entry)
	}

	buf.Reset()
	l.LogGateCheck("/repo", time.Millisecond, true, 0, 0)
	if entry := lastEntry(t, &buf); entry["msg"] != "Validation gate passed" {
		t.Fatalf("unexpected message: %v", entry["msg"])
	}
}

func TestEvoMeshLogger_LogExternalization(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferedLogger(&buf, LogLevelInfo)

	l.LogExternalization("/repo", "ok", 3, time.Second, nil)
	entry := lastEntry(t, &buf)
	if entry["msg"] != "Externalization completed" || entry["status"] != "ok" || entry["file_count"] != float64(3) {
		t.Fatalf("unexpected entry: %v", entry)
	}

	buf.Reset()
	l.LogExternalization("/repo", "failed", 0, time.Second, fmt.Errorf("push refused"))
	entry = lastEntry(t, &buf)
	if entry["msg"] != "Externalization failed" || entry["error"] != "push refused" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestEvoMeshLogger_LogLineageRun(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferedLogger(&buf, LogLevelInfo)

	l.LogLineageRun("alpha", 17, time.Second, "transcended", nil)

	entry := lastEntry(t, &buf)
	if entry["msg"] != "Lineage run completed" {
		t.Fatalf("unexpected message: %v", entry["msg"])
	}
	if entry["organism"] != "alpha" || entry["generations"] != float64(17) || entry["outcome"] != "transcended" {
		t.Fatalf("lineage attributes wrong: %v", entry)
	}
}

func TestEvoMeshLogger_ErrorWithStack(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferedLogger(&buf, LogLevelError)

	l.ErrorWithStack(fmt.Errorf("boom"), "machine halted")

	entry := lastEntry(t, &buf)
	if entry["error"] != "boom" {
		t.Fatalf("error attribute missing: %v", entry)
	}
	if stack, _ := entry["stack_trace"].(string); !strings.Contains(stack, "goroutine") {
		t.Fatalf("stack trace missing: %v", entry)
	}
}
