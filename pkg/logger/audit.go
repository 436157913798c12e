package logger

import (
	"context"
	"log/slog"
	"time"
)

// FlowEvent records a transition of the onboarding flow, a write to the
// session store or a verifier account event.
type FlowEvent struct {
	EventType     string
	From          string
	To            string
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

// AuditLogger writes flow events with a stable attribute layout.
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// LogTransition logs a step change.
func (al *AuditLogger) LogTransition(from, to string) {
	al.log("flow", FlowEvent{
		EventType: "transition",
		From:      from,
		To:        to,
		Success:   true,
	})
}

// LogSessionWrite logs a write of a session fact.
func (al *AuditLogger) LogSessionWrite(key string, err error) {
	event := FlowEvent{
		EventType: "session_write",
		Success:   err == nil,
		Metadata:  map[string]string{"key": key},
	}
	if err != nil {
		event.FailureReason = err.Error()
	}
	al.log("flow", event)
}

// LogAccountEvent logs a verifier account event (signup, login, phone or
// email verification). A nil err records a success.
func (al *AuditLogger) LogAccountEvent(eventType, accountID string, err error) {
	event := FlowEvent{
		EventType: eventType,
		Success:   err == nil,
	}
	if accountID != "" {
		event.Metadata = map[string]string{"account_id": accountID}
	}
	if err != nil {
		event.FailureReason = err.Error()
	}
	al.log("account", event)
}

func (al *AuditLogger) log(auditType string, event FlowEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", auditType),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.From != "" {
		attrs = append(attrs, slog.String("from", event.From))
	}
	if event.To != "" {
		attrs = append(attrs, slog.String("to", event.To))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Metadata {
		attrs = append(attrs, slog.String(k, v))
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(context.Background(), level, "audit", attrs...)
}
