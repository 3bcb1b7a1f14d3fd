package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"mcp-servicenow/pkg/articles"
	"mcp-servicenow/pkg/generative"
	"mcp-servicenow/pkg/prompts"
	"mcp-servicenow/pkg/servicenow"
)

// Tool represents an executable function exposed via MCP
type Tool interface {
	// Name returns the unique identifier for the tool
	Name() string

	// Definition returns the advertised name, description and input schema
	Definition() mcp.Tool

	// Execute runs the tool with validated arguments and returns the text
	// shown to the caller
	Execute(ctx context.Context, arguments map[string]interface{}) (string, error)
}

// RecordStore is the subset of the ServiceNow client the tools depend on
type RecordStore interface {
	Create(ctx context.Context, collection string, fields map[string]interface{}) (servicenow.Record, error)
	Get(ctx context.Context, collection, id string) (servicenow.Record, error)
	Update(ctx context.Context, collection, id string, fields map[string]interface{}) (servicenow.Record, error)
	List(ctx context.Context, collection string, params servicenow.ListParams) ([]servicenow.Record, error)
}

// Services is an immutable snapshot of the remote collaborators. Generator is
// nil when no API key is configured.
type Services struct {
	Records   RecordStore
	Generator generative.Generator
}

// ServicesProvider returns the snapshot current at the time of the call.
// Tools call it once per invocation.
type ServicesProvider func() *Services

// StaticServices returns a provider that always yields s
func StaticServices(s *Services) ServicesProvider {
	return func() *Services { return s }
}

// Dependencies are shared by every ServiceNow tool
type Dependencies struct {
	Services ServicesProvider
	Prompts  *prompts.PromptManager
	Articles *articles.Formatter
}

type toolBase struct {
	deps Dependencies
}

func (b toolBase) services() *Services {
	if b.deps.Services == nil {
		return &Services{}
	}
	if s := b.deps.Services(); s != nil {
		return s
	}
	return &Services{}
}
