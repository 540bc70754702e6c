package observability

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func bufferLogger(buf *bytes.Buffer) *AuditLogger {
	return &AuditLogger{writer: buf, sessionID: "test-session", enabled: true}
}

func decodeEvents(t *testing.T, buf *bytes.Buffer) []AuditEvent {
	t.Helper()
	var events []AuditEvent
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var e AuditEvent
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("failed to parse line %q: %v", sc.Text(), err)
		}
		events = append(events, e)
	}
	return events
}

func TestNewAuditLogger_DisabledByDefault(t *testing.T) {
	l, err := NewAuditLogger(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.enabled {
		t.Fatal("expected disabled logger for nil config")
	}
	if err := l.Log(&AuditEvent{EventType: AuditEventRunStart}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewAuditLogger_File(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "nested", "runs.jsonl")

	l, err := NewAuditLogger(&AuditConfig{Enabled: true, OutputPath: logPath})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	l.LogRunStart("f1", "gpt-4o", 10, 20)
	if err := l.Close(); err != nil {
		t.Fatalf("close error: %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("expected log file: %v", err)
	}
	var e AuditEvent
	if err := json.Unmarshal(bytes.TrimSpace(data), &e); err != nil {
		t.Fatalf("failed to parse: %v", err)
	}
	if e.SessionID == "" {
		t.Fatal("expected generated session id")
	}
}

func TestAuditLogger_RunLifecycle(t *testing.T) {
	var buf bytes.Buffer
	l := bufferLogger(&buf)

	l.LogRunStart("f1", "gpt-4o", 12, 34)
	l.LogRunSuccess("f1", "gpt-4o", 150*time.Millisecond, 99)
	l.LogRunError("f2", "gpt-4o", time.Second, errors.New("rate limited"))
	l.LogRunRejected("f3", "Add input text to process.")

	events := decodeEvents(t, &buf)
	if len(events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(events))
	}
	if events[0].EventType != AuditEventRunStart || events[0].Details["input_chars"] != float64(34) {
		t.Fatalf("unexpected start event %+v", events[0])
	}
	if events[1].EventType != AuditEventRunSuccess || !events[1].Success {
		t.Fatalf("unexpected success event %+v", events[1])
	}
	if events[2].ErrorDetail != "rate limited" || events[2].Success {
		t.Fatalf("unexpected error event %+v", events[2])
	}
	if events[3].Message != "Add input text to process." {
		t.Fatalf("unexpected rejected event %+v", events[3])
	}
	for _, e := range events {
		if e.SessionID != "test-session" {
			t.Fatalf("expected session id on every event, got %q", e.SessionID)
		}
		if e.Timestamp.IsZero() {
			t.Fatal("expected timestamp to be filled")
		}
	}
}

func TestAuditLogger_FieldChangesAndImport(t *testing.T) {
	var buf bytes.Buffer
	l := bufferLogger(&buf)

	l.LogFieldChange(AuditEventFieldAdd, "f9", "Field 4")
	l.LogFieldChange(AuditEventFieldRemove, "f9", "Field 4")
	l.LogImport("yaml", 3)

	events := decodeEvents(t, &buf)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].EventType != AuditEventFieldAdd || events[1].EventType != AuditEventFieldRemove {
		t.Fatalf("unexpected field events %+v", events[:2])
	}
	if events[2].Details["format"] != "yaml" {
		t.Fatalf("unexpected import event %+v", events[2])
	}
}

func TestAuditLogger_NilSafe(t *testing.T) {
	var l *AuditLogger
	if err := l.Log(&AuditEvent{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
