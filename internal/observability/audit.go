package observability

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AuditEventType categorizes audit events.
type AuditEventType string

const (
	AuditEventRunStart    AuditEventType = "run.start"
	AuditEventRunSuccess  AuditEventType = "run.success"
	AuditEventRunError    AuditEventType = "run.error"
	AuditEventRunRejected AuditEventType = "run.rejected"
	AuditEventFieldAdd    AuditEventType = "field.add"
	AuditEventFieldRemove AuditEventType = "field.remove"
	AuditEventImport      AuditEventType = "state.import"
)

// AuditEvent is one line of the run history. Field texts and answers are
// never recorded, only their sizes.
type AuditEvent struct {
	Timestamp   time.Time              `json:"timestamp"`
	EventType   AuditEventType         `json:"event_type"`
	SessionID   string                 `json:"session_id"`
	FieldID     string                 `json:"field_id,omitempty"`
	Model       string                 `json:"model,omitempty"`
	Success     bool                   `json:"success"`
	Duration    time.Duration          `json:"duration_ms,omitempty"`
	Message     string                 `json:"message,omitempty"`
	Details     map[string]interface{} `json:"details,omitempty"`
	ErrorDetail string                 `json:"error_detail,omitempty"`
}

// AuditLogger appends JSON lines describing field runs.
type AuditLogger struct {
	mu        sync.Mutex
	writer    io.Writer
	sessionID string
	enabled   bool
}

// AuditConfig configures the audit logger.
type AuditConfig struct {
	Enabled    bool
	OutputPath string // File path or "stdout"/"stderr"
	SessionID  string
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(config *AuditConfig) (*AuditLogger, error) {
	if config == nil || !config.Enabled {
		return NopAuditLogger(), nil
	}

	var writer io.Writer
	switch config.OutputPath {
	case "stdout", "":
		writer = os.Stdout
	case "stderr":
		writer = os.Stderr
	default:
		if err := os.MkdirAll(filepath.Dir(config.OutputPath), 0o755); err != nil {
			return nil, fmt.Errorf("create audit log dir: %w", err)
		}
		f, err := os.OpenFile(config.OutputPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open audit log: %w", err)
		}
		writer = f
	}

	sessionID := config.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	return &AuditLogger{
		writer:    writer,
		sessionID: sessionID,
		enabled:   true,
	}, nil
}

// NopAuditLogger returns a logger that records nothing.
func NopAuditLogger() *AuditLogger {
	return &AuditLogger{enabled: false}
}

// Log writes an audit event.
func (l *AuditLogger) Log(event *AuditEvent) error {
	if l == nil || !l.enabled {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.SessionID == "" {
		event.SessionID = l.sessionID
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	_, err = fmt.Fprintf(l.writer, "%s\n", data)
	return err
}

// LogRunStart logs a field run being dispatched.
func (l *AuditLogger) LogRunStart(fieldID, model string, instructionLen, inputLen int) {
	l.Log(&AuditEvent{
		EventType: AuditEventRunStart,
		FieldID:   fieldID,
		Model:     model,
		Success:   true,
		Details: map[string]interface{}{
			"instruction_chars": instructionLen,
			"input_chars":       inputLen,
		},
	})
}

// LogRunSuccess logs a finished run.
func (l *AuditLogger) LogRunSuccess(fieldID, model string, duration time.Duration, answerLen int) {
	l.Log(&AuditEvent{
		EventType: AuditEventRunSuccess,
		FieldID:   fieldID,
		Model:     model,
		Success:   true,
		Duration:  duration,
		Details: map[string]interface{}{
			"answer_chars": answerLen,
		},
	})
}

// LogRunError logs a failed run.
func (l *AuditLogger) LogRunError(fieldID, model string, duration time.Duration, err error) {
	l.Log(&AuditEvent{
		EventType:   AuditEventRunError,
		FieldID:     fieldID,
		Model:       model,
		Success:     false,
		Duration:    duration,
		ErrorDetail: err.Error(),
	})
}

// LogRunRejected logs a run refused before any request was sent.
func (l *AuditLogger) LogRunRejected(fieldID, reason string) {
	l.Log(&AuditEvent{
		EventType: AuditEventRunRejected,
		FieldID:   fieldID,
		Success:   false,
		Message:   reason,
	})
}

// LogFieldChange logs a field being added or removed.
func (l *AuditLogger) LogFieldChange(eventType AuditEventType, fieldID, label string) {
	l.Log(&AuditEvent{
		EventType: eventType,
		FieldID:   fieldID,
		Success:   true,
		Message:   label,
	})
}

// LogImport logs a presets import.
func (l *AuditLogger) LogImport(format string, fieldCount int) {
	l.Log(&AuditEvent{
		EventType: AuditEventImport,
		Success:   true,
		Details: map[string]interface{}{
			"format":      format,
			"field_count": fieldCount,
		},
	})
}

// Close closes the audit logger (if using a file).
func (l *AuditLogger) Close() error {
	if l == nil {
		return nil
	}
	if closer, ok := l.writer.(io.Closer); ok {
		if closer != os.Stdout && closer != os.Stderr {
			return closer.Close()
		}
	}
	return nil
}
