package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/do/v2"

	"mcp-servicenow/internal/models"
	"mcp-servicenow/pkg/config"
	"mcp-servicenow/pkg/logging"
	"mcp-servicenow/pkg/metrics"
	"mcp-servicenow/pkg/monitor"
	"mcp-servicenow/pkg/tools"
)

const (
	// ServerName is reported in the initialize handshake
	ServerName = "mcp-servicenow"
	// ServerVersion is reported in the initialize handshake
	ServerVersion = "1.0.0"
	// ProtocolVersion is the MCP revision implemented
	ProtocolVersion = "2024-11-05"

	// maxMessageSize bounds one line of stdin; tool arguments may carry whole scripts
	maxMessageSize = 10 * 1024 * 1024
)

// MCPServer represents the main MCP server
type MCPServer struct {
	serverInfo   models.MCPServerInfo
	capabilities models.MCPCapabilities
	initialized  atomic.Bool

	toolManager *tools.ToolManager
	state       *serviceState
	loader      *config.Loader
	metrics     *metrics.Metrics
	monitor     *monitor.FileMonitor

	// Logging
	loggingManager *logging.LoggingManager
	logger         *logging.StructuredLogger

	// In-flight tools/call requests by request id
	inflight   map[string]context.CancelFunc
	inflightMu sync.Mutex
	calls      sync.WaitGroup

	writeMu      sync.Mutex
	shutdownOnce sync.Once
	mu           sync.RWMutex
}

// NewMCPServer assembles a server from the dependencies registered on injector
func NewMCPServer(injector Injector) (*MCPServer, error) {
	loggingManager, err := do.Invoke[*logging.LoggingManager](injector)
	if err != nil {
		return nil, fmt.Errorf("resolve logging manager dependency: %w", err)
	}
	loggingManager.SetGlobalContext("service", ServerName)
	loggingManager.SetGlobalContext("version", ServerVersion)

	settings, err := ResolveSettings(injector)
	if err != nil {
		return nil, err
	}
	toolManager, err := ResolveToolManager(injector)
	if err != nil {
		return nil, err
	}
	loader, err := do.Invoke[*config.Loader](injector)
	if err != nil {
		return nil, fmt.Errorf("resolve config loader dependency: %w", err)
	}
	m, err := do.Invoke[*metrics.Metrics](injector)
	if err != nil {
		return nil, fmt.Errorf("resolve metrics dependency: %w", err)
	}
	state, err := do.Invoke[*serviceState](injector)
	if err != nil {
		return nil, fmt.Errorf("resolve service state dependency: %w", err)
	}

	loggingManager.SetLogLevel(settings.Log.Level)
	if settings.Log.File != "" {
		if err := loggingManager.SetLogFile(settings.Log.File); err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
	}

	return &MCPServer{
		serverInfo: models.MCPServerInfo{
			Name:    ServerName,
			Version: ServerVersion,
		},
		capabilities: models.MCPCapabilities{
			Tools: &models.MCPToolCapabilities{ListChanged: false},
		},
		toolManager:    toolManager,
		state:          state,
		loader:         loader,
		metrics:        m,
		loggingManager: loggingManager,
		logger:         loggingManager.GetLogger("server"),
		inflight:       make(map[string]context.CancelFunc),
	}, nil
}

// Serve starts the background components and processes messages from reader
// until it is exhausted or ctx is cancelled
func (s *MCPServer) Serve(ctx context.Context, reader io.Reader, writer io.Writer) error {
	startTime := time.Now()
	settings := s.state.Settings()

	s.loggingManager.LogStartupSequence("server_start", settings.Summary(), 0, true)
	s.warnMissingSettings(settings)

	watchStart := time.Now()
	if err := s.watchConfig(); err != nil {
		s.loggingManager.LogStartupSequence("config_watch", map[string]interface{}{
			"error": err.Error(),
		}, time.Since(watchStart), false)
		s.logger.WithError(err).Warn("Configuration hot reload disabled")
	}

	if settings.Metrics.Addr != "" {
		go func() {
			if err := s.metrics.Serve(ctx, settings.Metrics.Addr); err != nil {
				s.logger.WithError(err).
					WithContext("addr", settings.Metrics.Addr).
					Error("Metrics listener stopped")
			}
		}()
	}

	s.loggingManager.LogStartupSequence("server_ready", map[string]interface{}{
		"tools":                 len(s.toolManager.ListTools()),
		"total_startup_time_ms": time.Since(startTime).Milliseconds(),
	}, time.Since(startTime), true)

	return s.processMessages(ctx, reader, writer)
}

// Shutdown cancels in-flight calls and stops background components. It is
// safe to call more than once.
func (s *MCPServer) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		shutdownStart := time.Now()
		s.loggingManager.LogShutdownSequence("shutdown_start", map[string]interface{}{}, 0, true)

		s.cancelAllCalls()

		done := make(chan struct{})
		go func() {
			s.calls.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			err = fmt.Errorf("waiting for in-flight calls: %w", ctx.Err())
		}

		s.mu.Lock()
		fileMonitor := s.monitor
		s.monitor = nil
		s.mu.Unlock()
		if fileMonitor != nil {
			monitorStart := time.Now()
			if stopErr := fileMonitor.StopWatching(); stopErr != nil {
				s.loggingManager.LogShutdownSequence("monitor_stop", map[string]interface{}{
					"error": stopErr.Error(),
				}, time.Since(monitorStart), false)
			} else {
				s.loggingManager.LogShutdownSequence("monitor_stop", map[string]interface{}{},
					time.Since(monitorStart), true)
			}
		}

		s.state.close()

		s.loggingManager.LogShutdownSequence("shutdown_complete", map[string]interface{}{
			"total_shutdown_time_ms": time.Since(shutdownStart).Milliseconds(),
		}, time.Since(shutdownStart), err == nil)
	})
	return err
}

// processMessages handles the JSON-RPC message processing loop. Messages are
// newline delimited. tools/call runs on its own goroutine; everything else is
// answered in order.
func (s *MCPServer) processMessages(ctx context.Context, reader io.Reader, writer io.Writer) error {
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), maxMessageSize)
	encoder := json.NewEncoder(writer)

	defer s.calls.Wait()

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var message models.MCPMessage
		if err := json.Unmarshal(line, &message); err != nil {
			s.logger.WithError(err).Warn("Error decoding message")
			s.write(encoder, s.createErrorResponse(nil, models.CodeParseError, "Parse error"))
			continue
		}

		if message.Method == methodToolsCall && !message.IsNotification() {
			s.calls.Add(1)
			go func(message models.MCPMessage) {
				defer s.calls.Done()
				s.write(encoder, s.handleMessage(ctx, &message))
			}(message)
			continue
		}

		s.write(encoder, s.handleMessage(ctx, &message))
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}
	return nil
}

// write serialises responses; concurrent tool calls share one writer
func (s *MCPServer) write(encoder *json.Encoder, response *models.MCPMessage) {
	if response == nil {
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := encoder.Encode(response); err != nil {
		s.logger.WithError(err).Error("Error encoding response")
	}
}

// HandleMessage processes individual MCP messages (exported for testing)
func (s *MCPServer) HandleMessage(ctx context.Context, message *models.MCPMessage) *models.MCPMessage {
	return s.handleMessage(ctx, message)
}

// handleMessage processes individual MCP messages
func (s *MCPServer) handleMessage(ctx context.Context, message *models.MCPMessage) *models.MCPMessage {
	startTime := time.Now()
	var response *models.MCPMessage
	var success = true
	var errorMsg string

	defer func() {
		duration := time.Since(startTime)
		s.loggingManager.LogMCPRequest(message.Method, message.ID, duration, success, errorMsg)
	}()

	if message.JSONRPC != "2.0" || message.Method == "" {
		success = false
		errorMsg = "Invalid Request"
		return s.createErrorResponse(message.ID, models.CodeInvalidRequest, "Invalid Request")
	}

	switch message.Method {
	case methodInitialize:
		response = s.handleInitialize(message)
	case methodInitialized:
		response = s.handleInitialized(message)
	case methodPing:
		response = s.handlePing(message)
	case methodToolsList:
		response = s.handleToolsList(message)
	case methodToolsCall:
		response = s.handleToolsCall(ctx, message)
	case methodCancelled:
		response = s.handleCancelled(message)
	case methodPerformance:
		response = s.handlePerformanceMetrics(message)
	default:
		success = false
		errorMsg = "Method not found"
		if message.IsNotification() {
			return nil
		}
		response = s.createErrorResponse(message.ID, models.CodeMethodNotFound, "Method not found")
	}

	if response != nil && response.Error != nil {
		success = false
		errorMsg = response.Error.Message
	}

	return response
}
