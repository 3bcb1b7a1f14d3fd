package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// LogLevel represents the logging level
type LogLevel int

const (
	LogLevelDEBUG LogLevel = iota
	LogLevelINFO
	LogLevelWARN
	LogLevelERROR
)

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case LogLevelDEBUG:
		return slog.LevelDebug
	case LogLevelWARN:
		return slog.LevelWarn
	case LogLevelERROR:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLogLevel accepts any string and defaults to INFO for unknown levels
func ParseLogLevel(level string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return LogLevelDEBUG
	case "WARN", "WARNING":
		return LogLevelWARN
	case "ERROR":
		return LogLevelERROR
	default:
		return LogLevelINFO
	}
}

// LoggingManager manages structured logging across the application
type LoggingManager struct {
	loggers map[string]*StructuredLogger
	mutex   sync.RWMutex

	// Global context that gets added to all log entries
	globalContext LogContext

	stats LoggingStats

	logLevel LogLevel
	level    *slog.LevelVar
	output   *switchWriter
	logFile  *os.File
}

// LoggingStats tracks logging statistics
type LoggingStats struct {
	TotalMessages    int64            `json:"totalMessages"`
	MessagesByLevel  map[string]int64 `json:"messagesByLevel"`
	MessagesByLogger map[string]int64 `json:"messagesByLogger"`
	ErrorCount       int64            `json:"errorCount"`
	LastLogTime      time.Time        `json:"lastLogTime"`
}

// NewLoggingManager creates a logging manager writing to stderr at INFO
func NewLoggingManager() *LoggingManager {
	return NewLoggingManagerWithWriter(os.Stderr)
}

// NewLoggingManagerWithWriter creates a logging manager writing to w
func NewLoggingManagerWithWriter(w io.Writer) *LoggingManager {
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)

	return &LoggingManager{
		loggers:       make(map[string]*StructuredLogger),
		globalContext: make(LogContext),
		stats: LoggingStats{
			MessagesByLevel:  make(map[string]int64),
			MessagesByLogger: make(map[string]int64),
		},
		logLevel: LogLevelINFO,
		level:    level,
		output:   &switchWriter{w: w},
	}
}

// GetLogger gets or creates a logger for a specific component
func (lm *LoggingManager) GetLogger(component string) *StructuredLogger {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	if logger, exists := lm.loggers[component]; exists {
		return logger
	}

	logger := newStructuredLogger(component, lm.output, lm.level)
	for key, value := range lm.globalContext {
		logger = logger.WithContext(key, value)
	}

	lm.loggers[component] = logger
	return logger
}

// SetLogLevel sets the logging level for all loggers
// Accepts any string and defaults to INFO for invalid levels
func (lm *LoggingManager) SetLogLevel(level string) {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	lm.logLevel = ParseLogLevel(level)
	lm.level.Set(lm.logLevel.slogLevel())
}

// Level returns the current level
func (lm *LoggingManager) Level() LogLevel {
	lm.mutex.RLock()
	defer lm.mutex.RUnlock()
	return lm.logLevel
}

// shouldLog checks if a message at the given level should be logged
func (lm *LoggingManager) shouldLog(level LogLevel) bool {
	lm.mutex.RLock()
	defer lm.mutex.RUnlock()
	return level >= lm.logLevel
}

// SetLogFile mirrors all log output to path in addition to the primary writer.
// An empty path closes any previously opened file.
func (lm *LoggingManager) SetLogFile(path string) error {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	if lm.logFile != nil {
		lm.output.setSecondary(nil)
		_ = lm.logFile.Close()
		lm.logFile = nil
	}
	if path == "" {
		return nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file %s: %w", path, err)
	}
	lm.logFile = f
	lm.output.setSecondary(f)
	return nil
}

// Close releases the log file, if any
func (lm *LoggingManager) Close() error {
	return lm.SetLogFile("")
}

// SetGlobalContext sets global context that will be added to all log entries
func (lm *LoggingManager) SetGlobalContext(key string, value interface{}) {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	lm.globalContext[key] = value

	for component, logger := range lm.loggers {
		lm.loggers[component] = logger.WithContext(key, value)
	}
}

// GetGlobalContext returns a copy of the global context
func (lm *LoggingManager) GetGlobalContext() LogContext {
	lm.mutex.RLock()
	defer lm.mutex.RUnlock()

	context := make(LogContext, len(lm.globalContext))
	for k, v := range lm.globalContext {
		context[k] = v
	}
	return context
}

// LogError logs an error with full context
func (lm *LoggingManager) LogError(component string, err error, message string, context map[string]interface{}) {
	logger := lm.GetLogger(component).WithError(err)

	for k, v := range context {
		logger = logger.WithContext(k, v)
	}

	logger.Error(message)
	lm.updateStats(component, "ERROR")
}

// LogMCPRequest logs MCP protocol requests with timing
func (lm *LoggingManager) LogMCPRequest(method string, requestID interface{}, duration time.Duration, success bool, errorMsg string) {
	logger := lm.GetLogger("mcp_protocol")

	if !success && errorMsg != "" {
		logger = logger.WithContext("error_message", errorMsg)
	}

	logger.LogMCPMessage(method, requestID, duration, success)

	level := "DEBUG"
	if !success {
		level = "WARN"
	}
	lm.updateStats("mcp_protocol", level)
}

// LogToolInvocation logs the outcome of one tool call
func (lm *LoggingManager) LogToolInvocation(tool, invocationID string, duration time.Duration, err error) {
	logger := lm.GetLogger("tools").
		WithContext("tool", tool).
		WithContext("invocation_id", invocationID).
		WithContext("duration_ms", duration.Milliseconds())

	if err != nil {
		logger.WithError(err).Warn("Tool invocation failed")
		lm.updateStats("tools", "WARN")
		return
	}
	logger.Info("Tool invocation completed")
	lm.updateStats("tools", "INFO")
}

// LogFileSystemEvent logs configuration file changes
func (lm *LoggingManager) LogFileSystemEvent(eventType string, path string, processingTime time.Duration) {
	logger := lm.GetLogger("file_monitor")

	details := map[string]interface{}{
		"processing_time_ms": processingTime.Milliseconds(),
	}

	logger.LogFileSystemEvent(eventType, path, details)
	lm.updateStats("file_monitor", "INFO")
}

// LogStartupSequence logs application startup sequence
func (lm *LoggingManager) LogStartupSequence(phase string, details map[string]interface{}, duration time.Duration, success bool) {
	logger := lm.GetLogger("startup")

	startupDetails := make(map[string]interface{}, len(details)+2)
	for k, v := range details {
		startupDetails[k] = v
	}
	startupDetails["duration_ms"] = duration.Milliseconds()
	startupDetails["success"] = success

	logger.LogStartup(phase, startupDetails)

	level := "INFO"
	if !success {
		level = "ERROR"
	}
	lm.updateStats("startup", level)
}

// LogShutdownSequence logs application shutdown sequence
func (lm *LoggingManager) LogShutdownSequence(phase string, details map[string]interface{}, duration time.Duration, success bool) {
	logger := lm.GetLogger("shutdown")

	shutdownDetails := make(map[string]interface{}, len(details)+2)
	for k, v := range details {
		shutdownDetails[k] = v
	}
	shutdownDetails["duration_ms"] = duration.Milliseconds()
	shutdownDetails["success"] = success

	logger.LogShutdown(phase, shutdownDetails)

	level := "INFO"
	if !success {
		level = "ERROR"
	}
	lm.updateStats("shutdown", level)
}

// updateStats updates logging statistics
func (lm *LoggingManager) updateStats(component, level string) {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	lm.stats.TotalMessages++
	lm.stats.MessagesByLevel[level]++
	lm.stats.MessagesByLogger[component]++
	lm.stats.LastLogTime = time.Now()

	if level == "ERROR" {
		lm.stats.ErrorCount++
	}
}

// GetStats returns current logging statistics
func (lm *LoggingManager) GetStats() LoggingStats {
	lm.mutex.RLock()
	defer lm.mutex.RUnlock()

	stats := LoggingStats{
		TotalMessages:    lm.stats.TotalMessages,
		ErrorCount:       lm.stats.ErrorCount,
		LastLogTime:      lm.stats.LastLogTime,
		MessagesByLevel:  make(map[string]int64, len(lm.stats.MessagesByLevel)),
		MessagesByLogger: make(map[string]int64, len(lm.stats.MessagesByLogger)),
	}

	for k, v := range lm.stats.MessagesByLevel {
		stats.MessagesByLevel[k] = v
	}
	for k, v := range lm.stats.MessagesByLogger {
		stats.MessagesByLogger[k] = v
	}

	return stats
}

// switchWriter fans writes out to a primary writer and an optional file.
// Both can be swapped while loggers hold a reference to it.
type switchWriter struct {
	mu        sync.Mutex
	w         io.Writer
	secondary io.Writer
}

func (s *switchWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.w.Write(p)
	if s.secondary != nil {
		// A failing log file must not break primary output.
		_, _ = s.secondary.Write(p)
	}
	return n, err
}

func (s *switchWriter) setSecondary(w io.Writer) {
	s.mu.Lock()
	s.secondary = w
	s.mu.Unlock()
}
