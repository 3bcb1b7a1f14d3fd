package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"mcp-servicenow/pkg/errors"
)

// LogContext represents contextual information for log entries
type LogContext map[string]interface{}

// StructuredLogger provides structured logging capabilities
type StructuredLogger struct {
	logger    *slog.Logger
	component string
	context   LogContext
}

// newHandlerOptions renames the slog keys to the field names used across the service.
func newHandlerOptions(level slog.Leveler) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case slog.TimeKey:
				return slog.Attr{
					Key:   "timestamp",
					Value: slog.StringValue(a.Value.Time().UTC().Format(time.RFC3339Nano)),
				}
			case slog.LevelKey:
				return slog.Attr{Key: "level", Value: a.Value}
			case slog.MessageKey:
				return slog.Attr{Key: "message", Value: a.Value}
			}
			return a
		},
	}
}

// NewStructuredLogger creates a logger writing JSON to stderr at debug level.
// Stdout carries the protocol stream and must never receive log output.
func NewStructuredLogger(component string) *StructuredLogger {
	return newStructuredLogger(component, os.Stderr, slog.LevelDebug)
}

func newStructuredLogger(component string, w io.Writer, level slog.Leveler) *StructuredLogger {
	return &StructuredLogger{
		logger:    slog.New(slog.NewJSONHandler(w, newHandlerOptions(level))),
		component: component,
		context:   make(LogContext),
	}
}

// WithContext adds context to the logger (returns a new logger instance)
func (sl *StructuredLogger) WithContext(key string, value interface{}) *StructuredLogger {
	newLogger := &StructuredLogger{
		logger:    sl.logger,
		component: sl.component,
		context:   make(LogContext, len(sl.context)+1),
	}

	for k, v := range sl.context {
		newLogger.context[k] = v
	}

	newLogger.context[key] = value
	return newLogger
}

// WithError adds error information to the logger context
func (sl *StructuredLogger) WithError(err error) *StructuredLogger {
	if err == nil {
		return sl
	}

	newLogger := sl.WithContext("error", err.Error())

	if structuredErr, ok := errors.As(err); ok {
		newLogger = newLogger.
			WithContext("error_category", structuredErr.Category).
			WithContext("error_code", structuredErr.Code).
			WithContext("error_severity", structuredErr.Severity).
			WithContext("error_recoverable", structuredErr.IsRecoverable())

		for k, v := range structuredErr.Context {
			// Raw model output can be large; the boundary echoes it to the caller already.
			if k == errors.ContextRawResponse {
				v = truncate(fmt.Sprint(v), 200)
			}
			newLogger = newLogger.WithContext(fmt.Sprintf("error_ctx_%s", k), v)
		}
	}

	return newLogger
}

// buildLogAttributes creates slog attributes from context
func (sl *StructuredLogger) buildLogAttributes() []slog.Attr {
	attrs := make([]slog.Attr, 0, len(sl.context)+1)
	attrs = append(attrs, slog.String("component", sl.component))

	for key, value := range sl.context {
		attrs = append(attrs, slog.Any(key, sanitizeValue(key, value)))
	}

	return attrs
}

func (sl *StructuredLogger) log(level slog.Level, message string) {
	sl.logger.LogAttrs(context.Background(), level, message, sl.buildLogAttributes()...)
}

// Debug logs a debug message
func (sl *StructuredLogger) Debug(message string) { sl.log(slog.LevelDebug, message) }

// Info logs an info message
func (sl *StructuredLogger) Info(message string) { sl.log(slog.LevelInfo, message) }

// Warn logs a warning message
func (sl *StructuredLogger) Warn(message string) { sl.log(slog.LevelWarn, message) }

// Error logs an error message
func (sl *StructuredLogger) Error(message string) { sl.log(slog.LevelError, message) }

// LogMCPMessage logs an MCP protocol message with timing information
func (sl *StructuredLogger) LogMCPMessage(method string, requestID interface{}, duration time.Duration, success bool) {
	logger := sl.WithContext("mcp_method", method).
		WithContext("request_id", requestID).
		WithContext("duration_ms", duration.Milliseconds()).
		WithContext("success", success)

	if success {
		logger.Debug("MCP message processed successfully")
	} else {
		logger.Warn("MCP message processing failed")
	}
}

// LogRemoteCall logs a single ServiceNow or generative API request
func (sl *StructuredLogger) LogRemoteCall(method, target string, status int, duration time.Duration, err error) {
	logger := sl.WithContext("remote_method", method).
		WithContext("remote_target", target).
		WithContext("status_code", status).
		WithContext("duration_ms", duration.Milliseconds())

	if err != nil {
		logger.WithError(err).Warn("Remote call failed")
		return
	}
	logger.Debug("Remote call completed")
}

// LogStartup logs application startup events
func (sl *StructuredLogger) LogStartup(event string, details map[string]interface{}) {
	logger := sl.WithContext("startup_event", event)
	for k, v := range details {
		logger = logger.WithContext(k, v)
	}
	logger.Info("Application startup event")
}

// LogShutdown logs application shutdown events
func (sl *StructuredLogger) LogShutdown(event string, details map[string]interface{}) {
	logger := sl.WithContext("shutdown_event", event)
	for k, v := range details {
		logger = logger.WithContext(k, v)
	}
	logger.Info("Application shutdown event")
}

// LogFileSystemEvent logs changes to watched configuration files
func (sl *StructuredLogger) LogFileSystemEvent(eventType string, path string, details map[string]interface{}) {
	logger := sl.WithContext("fs_event_type", eventType).
		WithContext("fs_path", path)

	for k, v := range details {
		logger = logger.WithContext(k, v)
	}

	logger.Info("File system event detected")
}

// sensitiveKeys are context keys whose values are never written out
var sensitiveKeys = []string{
	"password", "token", "secret", "api_key", "apikey", "auth", "credential",
}

// sanitizeValue masks values stored under sensitive keys and long opaque strings.
func sanitizeValue(key string, value interface{}) interface{} {
	keyLower := strings.ToLower(key)
	for _, sensitive := range sensitiveKeys {
		if strings.Contains(keyLower, sensitive) {
			return "[REDACTED]"
		}
	}

	if str, ok := value.(string); ok && len(str) > 32 && isAlphanumeric(str) {
		return fmt.Sprintf("[MASKED:%d_chars]", len(str))
	}
	return value
}

// isAlphanumeric checks if a string contains only alphanumeric characters
func isAlphanumeric(s string) bool {
	for _, r := range s {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
