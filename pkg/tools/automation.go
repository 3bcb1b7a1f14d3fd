package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"mcp-servicenow/pkg/errors"
	"mcp-servicenow/pkg/validation"
)

// CreateClientScriptTool creates a client-side script
type CreateClientScriptTool struct{ toolBase }

// NewCreateClientScriptTool creates a new CreateClientScriptTool instance
func NewCreateClientScriptTool(deps Dependencies) *CreateClientScriptTool {
	return &CreateClientScriptTool{toolBase{deps}}
}

func (t *CreateClientScriptTool) Name() string         { return CreateClientScript }
func (t *CreateClientScriptTool) Definition() mcp.Tool { return createClientScriptTool }

func (t *CreateClientScriptTool) Execute(ctx context.Context, arguments map[string]interface{}) (string, error) {
	req := clientScriptRequest{Active: true}
	if err := decodeArguments(arguments, &req); err != nil {
		return "", err
	}
	if err := validation.ValidateCollection(req.Table); err != nil {
		return "", err
	}
	if req.FieldName != "" {
		if err := validation.ValidateFieldName(req.FieldName); err != nil {
			return "", err
		}
	}
	store, err := t.records()
	if err != nil {
		return "", err
	}

	fields := map[string]interface{}{
		"name":   req.Name,
		"table":  req.Table,
		"script": req.Script,
		"type":   req.ScriptType,
		"active": req.Active,
	}
	setIfPresent(fields, "field", req.FieldName)

	record, err := store.Create(ctx, collectionClientScript, fields)
	if err != nil {
		return "", err
	}
	return createdText("Client Script", record, req.Name), nil
}

// CreateBusinessRuleTool creates a server-side business rule
type CreateBusinessRuleTool struct{ toolBase }

// NewCreateBusinessRuleTool creates a new CreateBusinessRuleTool instance
func NewCreateBusinessRuleTool(deps Dependencies) *CreateBusinessRuleTool {
	return &CreateBusinessRuleTool{toolBase{deps}}
}

func (t *CreateBusinessRuleTool) Name() string         { return CreateBusinessRule }
func (t *CreateBusinessRuleTool) Definition() mcp.Tool { return createBusinessRuleTool }

func (t *CreateBusinessRuleTool) Execute(ctx context.Context, arguments map[string]interface{}) (string, error) {
	req := businessRuleRequest{ActionInsert: true, Active: true}
	if err := decodeArguments(arguments, &req); err != nil {
		return "", err
	}
	if err := validation.ValidateCollection(req.Table); err != nil {
		return "", err
	}
	store, err := t.records()
	if err != nil {
		return "", err
	}

	record, err := store.Create(ctx, collectionBusinessRule, map[string]interface{}{
		"name":          req.Name,
		"collection":    req.Table,
		"script":        req.Script,
		"when_toggle":   req.When,
		"action_insert": req.ActionInsert,
		"action_update": req.ActionUpdate,
		"action_delete": req.ActionDelete,
		"action_query":  req.ActionQuery,
		"active":        req.Active,
	})
	if err != nil {
		return "", err
	}
	return createdText("Business Rule", record, req.Name), nil
}

// CreateSLADefinitionTool creates an SLA definition
type CreateSLADefinitionTool struct{ toolBase }

// NewCreateSLADefinitionTool creates a new CreateSLADefinitionTool instance
func NewCreateSLADefinitionTool(deps Dependencies) *CreateSLADefinitionTool {
	return &CreateSLADefinitionTool{toolBase{deps}}
}

func (t *CreateSLADefinitionTool) Name() string         { return CreateSLADefinition }
func (t *CreateSLADefinitionTool) Definition() mcp.Tool { return createSLADefinitionTool }

func (t *CreateSLADefinitionTool) Execute(ctx context.Context, arguments map[string]interface{}) (string, error) {
	var req slaDefinitionRequest
	if err := decodeArguments(arguments, &req); err != nil {
		return "", err
	}
	if req.DurationSeconds < 1 || req.DurationSeconds > maxDurationSeconds {
		return "", errors.NewValidationError(errors.ErrCodeInvalidParams,
			fmt.Sprintf("duration_seconds must be between 1 and %d", maxDurationSeconds), nil)
	}
	if err := validation.ValidateCollection(req.Table); err != nil {
		return "", err
	}
	store, err := t.records()
	if err != nil {
		return "", err
	}

	fields := map[string]interface{}{
		"name":            req.Name,
		"collection":      req.Table,
		"duration":        isoSeconds(req.DurationSeconds),
		"start_condition": req.StartCondition,
		"stop_condition":  req.StopCondition,
	}
	setIfPresent(fields, "pause_condition", req.PauseCondition)

	record, err := store.Create(ctx, collectionSLA, fields)
	if err != nil {
		return "", err
	}
	return createdText("SLA Definition", record, req.Name), nil
}

// isoSeconds renders a duration as an ISO-8601 seconds period
func isoSeconds(seconds int) string {
	return fmt.Sprintf("PT%dS", seconds)
}
