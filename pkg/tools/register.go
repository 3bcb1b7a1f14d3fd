package tools

import (
	"fmt"

	"mcp-servicenow/pkg/articles"
	"mcp-servicenow/pkg/prompts"
)

// NewServiceNowTools returns the full catalog in advertised order
func NewServiceNowTools(deps Dependencies) []Tool {
	return []Tool{
		NewCreateIncidentTool(deps),
		NewCreateKBArticleTool(deps),
		NewCreateClientScriptTool(deps),
		NewCreateBusinessRuleTool(deps),
		NewCreateSLADefinitionTool(deps),
		NewCreateRecordProducerTool(deps),
		NewCreateVariableSetTool(deps),
		NewGetIncidentTool(deps),
		NewListIncidentsTool(deps),
		NewUpdateIncidentTool(deps),
		NewSmartIncidentTool(deps),
		NewSmartKBGeneratorTool(deps),
	}
}

// RegisterServiceNowTools registers the full catalog. Missing prompt or
// article helpers are filled with the defaults.
func RegisterServiceNowTools(tm *ToolManager, deps Dependencies) error {
	if deps.Prompts == nil {
		pm, err := prompts.NewPromptManager()
		if err != nil {
			return fmt.Errorf("load prompts: %w", err)
		}
		deps.Prompts = pm
	}
	if deps.Articles == nil {
		deps.Articles = articles.NewFormatter()
	}

	for _, tool := range NewServiceNowTools(deps) {
		if err := tm.RegisterTool(tool); err != nil {
			return fmt.Errorf("register %s: %w", tool.Name(), err)
		}
	}
	return nil
}
