// Package logger provides structured, leveled console logging. All output
// goes to stderr so that stdout stays reserved for result envelopes.
package logger

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ANSI color codes for console output
const (
	ColorReset        = "\033[0m"
	ColorRed          = "\033[31m"
	ColorYellow       = "\033[33m"
	ColorGray         = "\033[37m"
	ColorGreen        = "\033[32m"
	ColorCyan         = "\033[36m"
	ColorBrightRed    = "\033[91m"
	ColorBrightYellow = "\033[93m"
	ColorBrightGray   = "\033[90m"
)

// LogLevelWidth is the fixed column width for log levels.
const LogLevelWidth = 5

// Level ordering for filtering.
var levelRank = map[string]int{
	"DEBUG": 0,
	"INFO":  1,
	"WARN":  2,
	"ERROR": 3,
	"FATAL": 4,
}

// LogEntry represents a single log entry
type LogEntry struct {
	Time    time.Time
	Level   string
	Message string
	Fields  map[string]string
	TraceID string
}

// Logger provides structured logging for one named component.
type Logger struct {
	component string

	mu           sync.RWMutex
	minLevel     int
	colorEnabled bool
	quiet        bool
}

// New creates a new logger instance
func New(component string) *Logger {
	return &Logger{
		component:    component,
		minLevel:     levelRank["INFO"],
		colorEnabled: isTerminal(),
	}
}

// isTerminal checks if stderr is a terminal (for color support)
func isTerminal() bool {
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	fileInfo, _ := os.Stderr.Stat()
	if fileInfo == nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// SetLevel sets the minimum level that will be emitted.
func (l *Logger) SetLevel(level string) {
	rank, ok := levelRank[strings.ToUpper(level)]
	if !ok {
		return
	}
	l.mu.Lock()
	l.minLevel = rank
	l.mu.Unlock()
}

// SetQuiet suppresses all output below ERROR.
func (l *Logger) SetQuiet(quiet bool) {
	l.mu.Lock()
	l.quiet = quiet
	l.mu.Unlock()
}

// NewTraceID returns a fresh trace identifier for one call.
func NewTraceID() string {
	return uuid.NewString()
}

// getColorForLevel returns the appropriate color for a log level
func (l *Logger) getColorForLevel(level string) string {
	if !l.colorEnabled {
		return ""
	}

	switch level {
	case "DEBUG":
		return ColorBrightGray
	case "INFO":
		return ColorGreen
	case "WARN":
		return ColorBrightYellow
	case "ERROR", "FATAL":
		return ColorBrightRed
	default:
		return ColorReset
	}
}

func (l *Logger) log(level, message string, fields map[string]string, traceID string) {
	l.mu.RLock()
	minLevel := l.minLevel
	if l.quiet {
		minLevel = levelRank["ERROR"]
	}
	colorEnabled := l.colorEnabled
	l.mu.RUnlock()

	if levelRank[level] < minLevel {
		return
	}

	now := time.Now()
	timestamp := now.Format("2006-01-02 15:04:05.000")

	color := l.getColorForLevel(level)
	resetColor := ""
	cyan := ""
	if colorEnabled {
		resetColor = ColorReset
		cyan = ColorCyan
	}

	line := fmt.Sprintf("%s[%s] [%s]%s [%s%-*s%s] %s",
		cyan, timestamp, l.component, resetColor, color, LogLevelWidth, level, resetColor, message)

	if traceID != "" {
		line += " trace=" + traceID
	}
	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			line += fmt.Sprintf(" %s=%s", k, fields[k])
		}
	}

	fmt.Fprintln(os.Stderr, line)
}

// Debug logs a debug message with optional formatting
func (l *Logger) Debug(message string, args ...interface{}) {
	if len(args) > 0 {
		message = fmt.Sprintf(message, args...)
	}
	l.log("DEBUG", message, nil, "")
}

// Info logs an info message with optional formatting
func (l *Logger) Info(message string, args ...interface{}) {
	if len(args) > 0 {
		message = fmt.Sprintf(message, args...)
	}
	l.log("INFO", message, nil, "")
}

// Warn logs a warning message with optional formatting
func (l *Logger) Warn(message string, args ...interface{}) {
	if len(args) > 0 {
		message = fmt.Sprintf(message, args...)
	}
	l.log("WARN", message, nil, "")
}

// Error logs an error message with optional formatting
func (l *Logger) Error(message string, args ...interface{}) {
	if len(args) > 0 {
		message = fmt.Sprintf(message, args...)
	}
	l.log("ERROR", message, nil, "")
}

// Fatal logs a fatal message and exits
func (l *Logger) Fatal(message string, args ...interface{}) {
	if len(args) > 0 {
		message = fmt.Sprintf(message, args...)
	}
	l.log("FATAL", message, nil, "")
	os.Exit(1)
}

// WithFields returns a context that attaches fields to every entry.
func (l *Logger) WithFields(fields map[string]string) *LogContext {
	return &LogContext{logger: l, fields: fields}
}

// WithTrace returns a context that stamps entries with a trace identifier.
func (l *Logger) WithTrace(traceID string) *LogContext {
	return &LogContext{logger: l, traceID: traceID}
}

// LogContext provides field-based logging
type LogContext struct {
	logger  *Logger
	fields  map[string]string
	traceID string
}

func (c *LogContext) Debug(message string, args ...interface{}) {
	if len(args) > 0 {
		message = fmt.Sprintf(message, args...)
	}
	c.logger.log("DEBUG", message, c.fields, c.traceID)
}

func (c *LogContext) Info(message string, args ...interface{}) {
	if len(args) > 0 {
		message = fmt.Sprintf(message, args...)
	}
	c.logger.log("INFO", message, c.fields, c.traceID)
}

func (c *LogContext) Warn(message string, args ...interface{}) {
	if len(args) > 0 {
		message = fmt.Sprintf(message, args...)
	}
	c.logger.log("WARN", message, c.fields, c.traceID)
}

func (c *LogContext) Error(message string, args ...interface{}) {
	if len(args) > 0 {
		message = fmt.Sprintf(message, args...)
	}
	c.logger.log("ERROR", message, c.fields, c.traceID)
}
