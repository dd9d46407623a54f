package engine

import (
	"fmt"

	"github.com/dbplane/dbplane/pkg/dbcapabilities"
	"github.com/dbplane/dbplane/pkg/logger"
)

// LogContext provides structured context for engine logging. Host and file
// identify the target; passwords never enter a log context.
type LogContext struct {
	Engine    dbcapabilities.Engine
	Host      string
	Port      int
	Database  string
	File      string
	Operation string
	TraceID   string
}

func (c LogContext) target() string {
	if c.File != "" {
		return c.File
	}
	if c.Port > 0 {
		return fmt.Sprintf("%s:%d/%s", c.Host, c.Port, c.Database)
	}
	return fmt.Sprintf("%s/%s", c.Host, c.Database)
}

// NewTraceID returns a fresh trace identifier for one call.
func NewTraceID() string {
	return logger.NewTraceID()
}

// DatabaseLogger provides unified logging for all engine operations.
type DatabaseLogger struct {
	logger *logger.Logger
}

// NewDatabaseLogger creates a new engine logger.
func NewDatabaseLogger(l *logger.Logger) *DatabaseLogger {
	return &DatabaseLogger{logger: l}
}

// LogConnectionAttempt logs when a connection attempt is starting.
func (dl *DatabaseLogger) LogConnectionAttempt(ctx LogContext) {
	if dl == nil || dl.logger == nil {
		return
	}
	dl.logger.WithTrace(ctx.TraceID).Debug("[%s] connecting to %s", ctx.Engine, ctx.target())
}

// LogConnectionFailure logs connection failures.
func (dl *DatabaseLogger) LogConnectionFailure(ctx LogContext, err error) {
	if dl == nil || dl.logger == nil {
		return
	}
	dl.logger.WithTrace(ctx.TraceID).Warn("[%s] connection to %s failed: %v", ctx.Engine, ctx.target(), err)
}

// LogOperation logs a completed operation with its duration.
func (dl *DatabaseLogger) LogOperation(ctx LogContext, durationMS int64) {
	if dl == nil || dl.logger == nil {
		return
	}
	dl.logger.WithTrace(ctx.TraceID).Info("[%s] %s on %s completed in %dms", ctx.Engine, ctx.Operation, ctx.target(), durationMS)
}

// LogOperationFailure logs a failed operation.
func (dl *DatabaseLogger) LogOperationFailure(ctx LogContext, err error) {
	if dl == nil || dl.logger == nil {
		return
	}
	dl.logger.WithTrace(ctx.TraceID).Warn("[%s] %s on %s failed: %v", ctx.Engine, ctx.Operation, ctx.target(), err)
}
