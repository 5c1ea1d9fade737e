// Package audit records conversion events: uploads, rejected files and
// exports. Events describe what happened to a file; they never contain the
// file's data, so recording them does not persist session state.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Action is the kind of event being recorded.
type Action string

const (
	ActionUpload       Action = "upload"
	ActionUploadReject Action = "upload_rejected"
	ActionClean        Action = "clean"
	ActionConvert      Action = "convert"
	ActionConvertFail  Action = "convert_failed"
	ActionRemove       Action = "remove"
)

// Severity ranks events for filtering.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Event is a single audit entry.
type Event struct {
	ID        uuid.UUID `json:"id"`
	Action    Action    `json:"action"`
	Severity  Severity  `json:"severity"`
	SessionID string    `json:"sessionId"`
	FileName  string    `json:"fileName"`
	Format    string    `json:"format,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Rows      int       `json:"rows,omitempty"`
	Columns   int       `json:"columns,omitempty"`
	Bytes     int64     `json:"bytes,omitempty"`
	Error     string    `json:"error,omitempty"`
	IPAddress string    `json:"ipAddress,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// determineSeverity returns the severity for an action.
func determineSeverity(action Action) Severity {
	switch action {
	case ActionUploadReject, ActionConvertFail:
		return SeverityHigh
	case ActionConvert, ActionUpload:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Recorder persists or emits audit events.
type Recorder interface {
	Record(ctx context.Context, e Event) error
}

// NewEvent fills the generated fields of an event: ID, severity, timestamp,
// and client metadata carried on ctx.
func NewEvent(ctx context.Context, action Action, sessionID, fileName string) Event {
	client := ClientFromContext(ctx)
	return Event{
		ID:        uuid.New(),
		Action:    action,
		Severity:  determineSeverity(action),
		SessionID: sessionID,
		FileName:  fileName,
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
		CreatedAt: time.Now().UTC(),
	}
}

// LogRecorder writes events to a structured logger. It is the default when no
// database is configured.
type LogRecorder struct {
	logger *slog.Logger
}

// NewLogRecorder returns a recorder that logs to logger, or slog.Default if nil.
func NewLogRecorder(logger *slog.Logger) *LogRecorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogRecorder{logger: logger.With("component", "audit")}
}

// Record implements Recorder.
func (r *LogRecorder) Record(ctx context.Context, e Event) error {
	attrs := []any{
		"event_id", e.ID.String(),
		"action", string(e.Action),
		"severity", string(e.Severity),
		"session", e.SessionID,
		"file", e.FileName,
	}
	if e.Format != "" {
		attrs = append(attrs, "format", e.Format)
	}
	if e.Rows > 0 || e.Columns > 0 {
		attrs = append(attrs, "rows", e.Rows, "columns", e.Columns)
	}
	if e.Bytes > 0 {
		attrs = append(attrs, "bytes", e.Bytes)
	}
	if e.Detail != "" {
		attrs = append(attrs, "detail", e.Detail)
	}
	if e.Error != "" {
		attrs = append(attrs, "error", e.Error)
	}
	r.logger.InfoContext(ctx, "audit event", attrs...)
	return nil
}

// Multi fans an event out to several recorders. Every recorder is called;
// the first error is returned.
type Multi []Recorder

// Record implements Recorder.
func (m Multi) Record(ctx context.Context, e Event) error {
	var first error
	for _, r := range m {
		if err := r.Record(ctx, e); err != nil && first == nil {
			first = err
		}
	}
	return first
}
