package api

import (
	"time"

	"go.uber.org/zap"
)

// AuditEntry records one pricing request for later replay
type AuditEntry struct {
	Timestamp    time.Time
	RequestID    string
	InputHash    string
	TableVersion int
	Total        int64
	ClientIP     string
	UserAgent    string
	DurationMs   int64
	Success      bool
	Error        string
}

// MarkFailed marks the audit entry as failed
func (e *AuditEntry) MarkFailed(err error) {
	e.Success = false
	e.Error = err.Error()
}

// SetDuration sets the duration
func (e *AuditEntry) SetDuration(d time.Duration) {
	e.DurationMs = d.Milliseconds()
}

// AuditLogger logs pricing requests
type AuditLogger interface {
	Log(entry AuditEntry)
}

// ZapAuditLogger writes audit entries as structured log lines
type ZapAuditLogger struct {
	logger *zap.Logger
}

// NewZapAuditLogger creates an audit logger
func NewZapAuditLogger(logger *zap.Logger) *ZapAuditLogger {
	return &ZapAuditLogger{logger: logger}
}

// Log writes entry
func (l *ZapAuditLogger) Log(e AuditEntry) {
	l.logger.Info("quote",
		zap.Time("timestamp", e.Timestamp),
		zap.String("request_id", e.RequestID),
		zap.String("input_hash", e.InputHash),
		zap.Int("table_version", e.TableVersion),
		zap.Int64("total", e.Total),
		zap.String("client_ip", e.ClientIP),
		zap.String("user_agent", e.UserAgent),
		zap.Int64("duration_ms", e.DurationMs),
		zap.Bool("success", e.Success),
		zap.String("error", e.Error),
	)
}
