package tools

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/require"

	"mcp-servicenow/pkg/logging"
	"mcp-servicenow/pkg/servicenow"
)

type storeCall struct {
	Method     string
	Collection string
	ID         string
	Fields     map[string]interface{}
	Params     servicenow.ListParams
}

// fakeStore records every call. Unset hooks fall back to echoing the
// request with a generated sys_id and number.
type fakeStore struct {
	mu    sync.Mutex
	calls []storeCall

	createFn func(collection string, fields map[string]interface{}) (servicenow.Record, error)
	getFn    func(id string) (servicenow.Record, error)
	updateFn func(id string, fields map[string]interface{}) (servicenow.Record, error)
	listFn   func(params servicenow.ListParams) ([]servicenow.Record, error)
}

func (f *fakeStore) record(c storeCall) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	return len(f.calls)
}

func (f *fakeStore) Create(_ context.Context, collection string, fields map[string]interface{}) (servicenow.Record, error) {
	n := f.record(storeCall{Method: "create", Collection: collection, Fields: fields})
	if f.createFn != nil {
		return f.createFn(collection, fields)
	}
	rec := servicenow.Record{"sys_id": fmt.Sprintf("id%d", n), "number": fmt.Sprintf("NUM%04d", n)}
	if name, ok := fields["name"]; ok {
		rec["name"] = name
	}
	return rec, nil
}

func (f *fakeStore) Get(_ context.Context, collection, id string) (servicenow.Record, error) {
	f.record(storeCall{Method: "get", Collection: collection, ID: id})
	if f.getFn != nil {
		return f.getFn(id)
	}
	return servicenow.Record{"sys_id": id}, nil
}

func (f *fakeStore) Update(_ context.Context, collection, id string, fields map[string]interface{}) (servicenow.Record, error) {
	f.record(storeCall{Method: "update", Collection: collection, ID: id, Fields: fields})
	if f.updateFn != nil {
		return f.updateFn(id, fields)
	}
	return servicenow.Record{"sys_id": id}, nil
}

func (f *fakeStore) List(_ context.Context, collection string, params servicenow.ListParams) ([]servicenow.Record, error) {
	f.record(storeCall{Method: "list", Collection: collection, Params: params})
	if f.listFn != nil {
		return f.listFn(params)
	}
	return []servicenow.Record{}, nil
}

func (f *fakeStore) Calls() []storeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]storeCall(nil), f.calls...)
}

// fakeGenerator replies with the scripted responses in order
type fakeGenerator struct {
	mu        sync.Mutex
	responses []string
	err       error
	prompts   []string
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	if len(g.responses) == 0 {
		return "", fmt.Errorf("no scripted response")
	}
	next := g.responses[0]
	g.responses = g.responses[1:]
	return next, nil
}

func (g *fakeGenerator) Model() string { return "fake-model" }

func newTestManager(t *testing.T, services *Services) *ToolManager {
	t.Helper()
	tm := NewToolManager(logging.NewStructuredLogger("test"))
	require.NoError(t, RegisterServiceNowTools(tm, Dependencies{Services: StaticServices(services)}))
	return tm
}

// call runs a tool through the manager and renders it the way the server does
func call(t *testing.T, tm *ToolManager, name string, args map[string]interface{}) (string, bool) {
	t.Helper()
	inv, err := tm.ExecuteTool(context.Background(), name, args)
	require.NotNil(t, inv)
	result := RenderResult(inv.Output, err)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])
	return text.Text, result.IsError
}
