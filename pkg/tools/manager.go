package tools

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"mcp-servicenow/pkg/errors"
	"mcp-servicenow/pkg/logging"
)

// UnknownToolName is the stats and metrics bucket for calls naming no
// registered tool
const UnknownToolName = "_unknown"

// InvocationObserver is notified when a tool starts; the returned func is
// called with the outcome.
type InvocationObserver interface {
	ToolStarted(tool string) func(err error)
}

// Invocation describes one completed tool call
type Invocation struct {
	ID       string
	Tool     string
	Output   string
	Duration time.Duration
}

// ToolManager manages tool registration, discovery, and execution
type ToolManager struct {
	registry map[string]Tool
	order    []string
	executor *ToolExecutor
	logger   *logging.StructuredLogger
	observer InvocationObserver
	mu       sync.RWMutex

	// Performance metrics
	stats ToolStats
}

// ToolStats tracks performance metrics for tool invocations
type ToolStats struct {
	TotalInvocations     int64
	FailedInvocations    int64
	CancelledInvocations int64
	InvocationsByName    map[string]int64
	TotalExecutionTimeMs int64
	ExecutionTimeByName  map[string]int64
	mu                   sync.RWMutex
}

// NewToolManager creates a new ToolManager instance
func NewToolManager(logger *logging.StructuredLogger) *ToolManager {
	return &ToolManager{
		registry: make(map[string]Tool),
		executor: NewToolExecutor(logger),
		logger:   logger,
		stats: ToolStats{
			InvocationsByName:   make(map[string]int64),
			ExecutionTimeByName: make(map[string]int64),
		},
	}
}

// SetObserver attaches an invocation observer
func (tm *ToolManager) SetObserver(o InvocationObserver) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.observer = o
}

// RegisterTool registers a new tool in the manager
func (tm *ToolManager) RegisterTool(tool Tool) error {
	if tool == nil {
		return fmt.Errorf("cannot register nil tool")
	}

	name := tool.Name()
	if name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if def := tool.Definition(); def.Name != name {
		return fmt.Errorf("tool %s advertises name %q", name, def.Name)
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()

	if _, exists := tm.registry[name]; exists {
		return fmt.Errorf("tool %s already registered", name)
	}

	if tool.Definition().Description == "" {
		tm.logger.WithContext("tool", name).
			Warn("Tool registered without description")
	}

	if err := tm.executor.Compile(tool); err != nil {
		return err
	}

	tm.registry[name] = tool
	tm.order = append(tm.order, name)
	tm.logger.WithContext("tool", name).
		Debug("Tool registered")

	return nil
}

// GetTool retrieves a tool by name
func (tm *ToolManager) GetTool(name string) (Tool, error) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	tool, exists := tm.registry[name]
	if !exists {
		return nil, errors.NewMCPError(errors.ErrCodeToolNotFound, fmt.Sprintf("Unknown tool: %s", name), nil).
			WithContext("tool", name)
	}

	return tool, nil
}

// ListTools returns all registered tool definitions in registration order
func (tm *ToolManager) ListTools() []mcp.Tool {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	tools := make([]mcp.Tool, 0, len(tm.order))
	for _, name := range tm.order {
		tools = append(tools, tm.registry[name].Definition())
	}

	return tools
}

// ExecuteTool executes a tool by name. The returned Invocation is never nil,
// so callers can log the attempt even when it failed.
func (tm *ToolManager) ExecuteTool(ctx context.Context, name string, arguments map[string]interface{}) (*Invocation, error) {
	inv := &Invocation{ID: uuid.NewString(), Tool: name}
	startTime := time.Now()

	tool, err := tm.GetTool(name)

	// unknown names share one bucket so stats and metric labels stay bounded
	statName := name
	if err != nil {
		statName = UnknownToolName
	}

	tm.mu.RLock()
	observer := tm.observer
	tm.mu.RUnlock()
	done := func(error) {}
	if observer != nil {
		done = observer.ToolStarted(statName)
	}

	if err == nil {
		inv.Output, err = tm.executor.Execute(ctx, tool, arguments)
	}
	inv.Duration = time.Since(startTime)
	done(err)

	switch {
	case errors.HasCode(err, errors.ErrCodeToolCancelled):
		tm.recordCancelled(statName)
	case err != nil:
		tm.recordFailure(statName)
	default:
		tm.recordSuccess(statName, inv.Duration.Milliseconds())
	}

	if se, ok := errors.As(err); ok {
		se.WithContext("invocation_id", inv.ID)
	}
	return inv, err
}

// GetPerformanceMetrics returns current performance metrics
func (tm *ToolManager) GetPerformanceMetrics() map[string]interface{} {
	tm.stats.mu.RLock()
	defer tm.stats.mu.RUnlock()

	invocationsByName := make(map[string]int64, len(tm.stats.InvocationsByName))
	for name, count := range tm.stats.InvocationsByName {
		invocationsByName[name] = count
	}

	executionTimeByName := make(map[string]int64, len(tm.stats.ExecutionTimeByName))
	for name, ms := range tm.stats.ExecutionTimeByName {
		executionTimeByName[name] = ms
	}

	return map[string]interface{}{
		"total_invocations":       tm.stats.TotalInvocations,
		"failed_invocations":      tm.stats.FailedInvocations,
		"cancelled_invocations":   tm.stats.CancelledInvocations,
		"invocations_by_name":     invocationsByName,
		"total_execution_time_ms": tm.stats.TotalExecutionTimeMs,
		"execution_time_by_name":  executionTimeByName,
	}
}

// recordSuccess records a successful tool invocation
func (tm *ToolManager) recordSuccess(toolName string, executionTimeMs int64) {
	tm.stats.mu.Lock()
	defer tm.stats.mu.Unlock()

	tm.stats.TotalInvocations++
	tm.stats.InvocationsByName[toolName]++
	tm.stats.TotalExecutionTimeMs += executionTimeMs
	tm.stats.ExecutionTimeByName[toolName] += executionTimeMs
}

// recordFailure records a failed tool invocation
func (tm *ToolManager) recordFailure(toolName string) {
	tm.stats.mu.Lock()
	defer tm.stats.mu.Unlock()

	tm.stats.TotalInvocations++
	tm.stats.FailedInvocations++
	tm.stats.InvocationsByName[toolName]++
}

// recordCancelled records an invocation abandoned by the host
func (tm *ToolManager) recordCancelled(toolName string) {
	tm.stats.mu.Lock()
	defer tm.stats.mu.Unlock()

	tm.stats.TotalInvocations++
	tm.stats.CancelledInvocations++
	tm.stats.InvocationsByName[toolName]++
}
