package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"mcp-servicenow/pkg/articles"
	"mcp-servicenow/pkg/errors"
	"mcp-servicenow/pkg/generative"
	"mcp-servicenow/pkg/prompts"
)

// titleExcerptLength is how much of a generated body is shown to the model
// when asking for a title
const titleExcerptLength = 500

// generator returns the configured generator or a configuration error
func (s *Services) generator() (generative.Generator, error) {
	if s.Generator != nil {
		return s.Generator, nil
	}
	return nil, errors.NewConfigurationError(errors.ErrCodeGenerativeNotConfigured,
		"Gemini AI is not configured. Please set GEMINI_API_KEY.")
}

func (b toolBase) render(name string, args map[string]string) (string, error) {
	if b.deps.Prompts == nil {
		return "", errors.NewSystemError(errors.ErrCodeInitializationFailed, "prompt templates are not loaded", nil)
	}
	prompt, err := b.deps.Prompts.Render(name, args)
	if err != nil {
		return "", errors.NewValidationError(errors.ErrCodeInvalidParams, "invalid prompt arguments", err).
			WithDetails(err.Error())
	}
	return prompt, nil
}

// SmartIncidentTool turns a free-text report into a structured incident
type SmartIncidentTool struct{ toolBase }

// NewSmartIncidentTool creates a new SmartIncidentTool instance
func NewSmartIncidentTool(deps Dependencies) *SmartIncidentTool {
	return &SmartIncidentTool{toolBase{deps}}
}

func (t *SmartIncidentTool) Name() string         { return SmartIncident }
func (t *SmartIncidentTool) Definition() mcp.Tool { return smartIncidentTool }

func (t *SmartIncidentTool) Execute(ctx context.Context, arguments map[string]interface{}) (string, error) {
	var req smartIncidentRequest
	if err := decodeArguments(arguments, &req); err != nil {
		return "", err
	}
	services := t.services()
	gen, err := services.generator()
	if err != nil {
		return "", err
	}
	store, err := services.records()
	if err != nil {
		return "", err
	}

	prompt, err := t.render(prompts.SmartIncident, map[string]string{"unstructured_text": req.UnstructuredText})
	if err != nil {
		return "", err
	}
	raw, err := gen.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}

	var extracted map[string]interface{}
	if err := json.Unmarshal([]byte(generative.StripCodeFence(raw)), &extracted); err != nil {
		return "", errors.NewAIParseError("Failed to parse AI response", err, raw)
	}
	if extracted == nil {
		return "", errors.NewAIParseError("Failed to parse AI response",
			fmt.Errorf("expected a JSON object, got null"), raw)
	}

	record, err := store.Create(ctx, collectionIncident, extracted)
	if err != nil {
		return "", err
	}

	pretty, err := json.MarshalIndent(extracted, "", "  ")
	if err != nil {
		return "", errors.NewSystemError(errors.ErrCodeUnexpectedPanic, "failed to format extracted data", err)
	}
	return fmt.Sprintf("Smart Incident created: %s\nExtracted Data: %s", record.Number(), pretty), nil
}

// SmartKBGeneratorTool drafts a knowledge article from raw notes
type SmartKBGeneratorTool struct{ toolBase }

// NewSmartKBGeneratorTool creates a new SmartKBGeneratorTool instance
func NewSmartKBGeneratorTool(deps Dependencies) *SmartKBGeneratorTool {
	return &SmartKBGeneratorTool{toolBase{deps}}
}

func (t *SmartKBGeneratorTool) Name() string         { return SmartKBGenerator }
func (t *SmartKBGeneratorTool) Definition() mcp.Tool { return smartKBGeneratorTool }

func (t *SmartKBGeneratorTool) Execute(ctx context.Context, arguments map[string]interface{}) (string, error) {
	var req smartKBRequest
	if err := decodeArguments(arguments, &req); err != nil {
		return "", err
	}
	services := t.services()
	gen, err := services.generator()
	if err != nil {
		return "", err
	}
	store, err := services.records()
	if err != nil {
		return "", err
	}

	bodyArgs := map[string]string{"source_content": req.SourceContent}
	if req.TargetAudience != "" {
		bodyArgs["target_audience"] = req.TargetAudience
	}
	prompt, err := t.render(prompts.KBArticleBody, bodyArgs)
	if err != nil {
		return "", err
	}
	rawBody, err := gen.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	body := t.formatter().NormalizeBody(generative.StripCodeFence(rawBody))
	if body == "" {
		return "", errors.NewAIParseError("Failed to parse AI response",
			fmt.Errorf("generated article body is empty"), rawBody)
	}

	prompt, err = t.render(prompts.KBArticleTitle, map[string]string{
		"article_excerpt": articles.Excerpt(body, titleExcerptLength),
	})
	if err != nil {
		return "", err
	}
	rawTitle, err := gen.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	title := t.formatter().CleanTitle(rawTitle)
	if title == "" {
		return "", errors.NewAIParseError("Failed to parse AI response",
			fmt.Errorf("generated title is empty"), rawTitle)
	}

	record, err := store.Create(ctx, collectionKnowledge, map[string]interface{}{
		"short_description": title,
		"text":              body,
		"workflow_state":    defaultWorkflowState,
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Smart KB Article created as Draft: %s\nTitle: %s", record.Number(), title), nil
}

func (t *SmartKBGeneratorTool) formatter() *articles.Formatter {
	if t.deps.Articles != nil {
		return t.deps.Articles
	}
	return articles.NewFormatter()
}
