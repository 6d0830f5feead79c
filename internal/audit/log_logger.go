package audit

import (
	"context"
	"log"
	"time"
)

// LogLogger writes audit entries to a process logger when no database is configured.
type LogLogger struct {
	logger *log.Logger
}

// NewLogLogger constructs a LogLogger.
func NewLogLogger(logger *log.Logger) *LogLogger {
	if logger == nil {
		logger = log.Default()
	}
	return &LogLogger{logger: logger}
}

// Log prints the entry.
func (l *LogLogger) Log(ctx context.Context, entry Entry) error {
	_ = ctx
	entry = prepare(entry, time.Now())
	l.logger.Printf("audit %s: id=%s location=%s actor=%s scope=%s ip=%s digest=%s",
		entry.Action, entry.ID, entry.LocationID, entry.Actor, entry.Scope, entry.IP, entry.PayloadDigest)
	return nil
}
