package tools

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"mcp-servicenow/pkg/errors"
	"mcp-servicenow/pkg/logging"
)

type recordingObserver struct {
	mu       sync.Mutex
	started  []string
	outcomes []error
}

func (r *recordingObserver) ToolStarted(tool string) func(err error) {
	r.mu.Lock()
	r.started = append(r.started, tool)
	r.mu.Unlock()
	return func(err error) {
		r.mu.Lock()
		r.outcomes = append(r.outcomes, err)
		r.mu.Unlock()
	}
}

func TestNewToolManager(t *testing.T) {
	manager := NewToolManager(logging.NewStructuredLogger("test"))

	if manager.registry == nil {
		t.Error("ToolManager registry should be initialized")
	}
	if manager.executor == nil {
		t.Error("ToolManager executor should be initialized")
	}
	if len(manager.ListTools()) != 0 {
		t.Error("New manager should have no tools")
	}
}

func TestToolManager_RegisterTool(t *testing.T) {
	manager := NewToolManager(logging.NewStructuredLogger("test"))

	t.Run("RegisterValidTool", func(t *testing.T) {
		if err := manager.RegisterTool(newMockTool("test-tool", nil)); err != nil {
			t.Fatalf("RegisterTool() error = %v", err)
		}
		if _, err := manager.GetTool("test-tool"); err != nil {
			t.Errorf("GetTool() error = %v", err)
		}
	})

	t.Run("RegisterNilTool", func(t *testing.T) {
		if err := manager.RegisterTool(nil); err == nil {
			t.Error("Expected error for nil tool")
		}
	})

	t.Run("RegisterDuplicateTool", func(t *testing.T) {
		if err := manager.RegisterTool(newMockTool("test-tool", nil)); err == nil {
			t.Error("Expected error for duplicate tool")
		}
	})

	t.Run("RegisterEmptyName", func(t *testing.T) {
		if err := manager.RegisterTool(&mockTool{definition: mcp.NewTool("")}); err == nil {
			t.Error("Expected error for empty tool name")
		}
	})

	t.Run("RegisterInvalidSchema", func(t *testing.T) {
		broken := &mockTool{definition: mcp.NewTool("broken",
			mcp.WithNumber("count", mcp.Min(1), func(schema map[string]interface{}) {
				schema["minimum"] = "one"
			}),
		)}
		if err := manager.RegisterTool(broken); err == nil {
			t.Error("Expected error for a schema that does not compile")
		}
		if _, err := manager.GetTool("broken"); err == nil {
			t.Error("A tool with an invalid schema must not be registered")
		}
	})
}

func TestToolManager_ListToolsKeepsRegistrationOrder(t *testing.T) {
	manager := NewToolManager(logging.NewStructuredLogger("test"))
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := manager.RegisterTool(newMockTool(name, nil)); err != nil {
			t.Fatalf("RegisterTool(%s) error = %v", name, err)
		}
	}

	tools := manager.ListTools()
	if len(tools) != 3 {
		t.Fatalf("Expected 3 tools, got %d", len(tools))
	}
	for i, want := range []string{"zeta", "alpha", "mid"} {
		if tools[i].Name != want {
			t.Errorf("tools[%d] = %s, want %s", i, tools[i].Name, want)
		}
	}
}

func TestToolManager_ExecuteTool(t *testing.T) {
	manager := NewToolManager(logging.NewStructuredLogger("test"))
	observer := &recordingObserver{}
	manager.SetObserver(observer)

	if err := manager.RegisterTool(newMockTool("echo", func(ctx context.Context, args map[string]interface{}) (string, error) {
		return "echo: " + args["query"].(string), nil
	})); err != nil {
		t.Fatalf("RegisterTool() error = %v", err)
	}

	inv, err := manager.ExecuteTool(context.Background(), "echo", map[string]interface{}{"query": "hi"})
	if err != nil {
		t.Fatalf("ExecuteTool() error = %v", err)
	}
	if inv.Output != "echo: hi" {
		t.Errorf("Expected output 'echo: hi', got %q", inv.Output)
	}
	if _, err := uuid.Parse(inv.ID); err != nil {
		t.Errorf("Expected invocation id to be a UUID, got %q", inv.ID)
	}

	second, _ := manager.ExecuteTool(context.Background(), "echo", map[string]interface{}{"query": "again"})
	if second.ID == inv.ID {
		t.Error("Each invocation should get its own id")
	}

	if len(observer.started) != 2 || observer.started[0] != "echo" {
		t.Errorf("Observer should see both invocations, got %v", observer.started)
	}
	if observer.outcomes[0] != nil {
		t.Errorf("Expected nil outcome, got %v", observer.outcomes[0])
	}
}

func TestToolManager_ExecuteUnknownTool(t *testing.T) {
	manager := NewToolManager(logging.NewStructuredLogger("test"))

	inv, err := manager.ExecuteTool(context.Background(), "non-existent", nil)
	if inv == nil {
		t.Fatal("ExecuteTool() should always return an invocation")
	}
	if !errors.HasCode(err, errors.ErrCodeToolNotFound) {
		t.Fatalf("Expected TOOL_NOT_FOUND, got %v", err)
	}

	se, _ := errors.As(err)
	if se.Message != "Unknown tool: non-existent" {
		t.Errorf("Unexpected message %q", se.Message)
	}
	if se.Context["invocation_id"] != inv.ID {
		t.Errorf("Expected invocation id in error context, got %v", se.Context["invocation_id"])
	}
}

func TestToolManager_UnknownToolsShareOneBucket(t *testing.T) {
	manager := NewToolManager(logging.NewStructuredLogger("test"))
	observer := &recordingObserver{}
	manager.SetObserver(observer)

	for _, name := range []string{"nope-1", "nope-2", "nope-3"} {
		_, _ = manager.ExecuteTool(context.Background(), name, nil)
	}

	metrics := manager.GetPerformanceMetrics()
	byName := metrics["invocations_by_name"].(map[string]int64)
	if len(byName) != 1 || byName[UnknownToolName] != 3 {
		t.Errorf("Expected all unknown calls under %q, got %v", UnknownToolName, byName)
	}
	if metrics["failed_invocations"] != int64(3) {
		t.Errorf("Expected 3 failed invocations, got %v", metrics["failed_invocations"])
	}

	for _, started := range observer.started {
		if started != UnknownToolName {
			t.Errorf("Observer saw unbounded tool label %q", started)
		}
	}
}

func TestToolManager_GetPerformanceMetrics(t *testing.T) {
	manager := NewToolManager(logging.NewStructuredLogger("test"))

	_ = manager.RegisterTool(newMockTool("ok", nil))
	_ = manager.RegisterTool(newMockTool("fails", func(ctx context.Context, args map[string]interface{}) (string, error) {
		return "", errors.NewRemoteError(errors.ErrCodeRemoteHTTPStatus, "ServiceNow returned 500", nil)
	}))
	_ = manager.RegisterTool(newMockTool("cancelled", func(ctx context.Context, args map[string]interface{}) (string, error) {
		return "", ctx.Err()
	}))

	args := map[string]interface{}{"query": "x"}
	_, _ = manager.ExecuteTool(context.Background(), "ok", args)
	_, _ = manager.ExecuteTool(context.Background(), "ok", args)
	_, _ = manager.ExecuteTool(context.Background(), "fails", args)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _ = manager.ExecuteTool(ctx, "cancelled", args)

	metrics := manager.GetPerformanceMetrics()

	if metrics["total_invocations"] != int64(4) {
		t.Errorf("Expected 4 total invocations, got %v", metrics["total_invocations"])
	}
	if metrics["failed_invocations"] != int64(1) {
		t.Errorf("Expected 1 failed invocation, got %v", metrics["failed_invocations"])
	}
	if metrics["cancelled_invocations"] != int64(1) {
		t.Errorf("Expected 1 cancelled invocation, got %v", metrics["cancelled_invocations"])
	}

	byName := metrics["invocations_by_name"].(map[string]int64)
	if byName["ok"] != 2 || byName["fails"] != 1 || byName["cancelled"] != 1 {
		t.Errorf("Unexpected invocations by name: %v", byName)
	}
}

func TestToolManager_ConcurrentExecution(t *testing.T) {
	manager := NewToolManager(logging.NewStructuredLogger("test"))
	_ = manager.RegisterTool(newMockTool("parallel", nil))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := manager.ExecuteTool(context.Background(), "parallel", map[string]interface{}{"query": "x"}); err != nil {
				t.Errorf("ExecuteTool() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if got := manager.GetPerformanceMetrics()["total_invocations"]; got != int64(20) {
		t.Errorf("Expected 20 invocations, got %v", got)
	}
}
