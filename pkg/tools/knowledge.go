package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

const defaultWorkflowState = "draft"

// CreateKBArticleTool creates a knowledge article from caller supplied content
type CreateKBArticleTool struct{ toolBase }

// NewCreateKBArticleTool creates a new CreateKBArticleTool instance
func NewCreateKBArticleTool(deps Dependencies) *CreateKBArticleTool {
	return &CreateKBArticleTool{toolBase{deps}}
}

func (t *CreateKBArticleTool) Name() string         { return CreateKBArticle }
func (t *CreateKBArticleTool) Definition() mcp.Tool { return createKBArticleTool }

func (t *CreateKBArticleTool) Execute(ctx context.Context, arguments map[string]interface{}) (string, error) {
	req := kbArticleRequest{WorkflowState: defaultWorkflowState}
	if err := decodeArguments(arguments, &req); err != nil {
		return "", err
	}
	store, err := t.records()
	if err != nil {
		return "", err
	}

	fields := map[string]interface{}{
		"short_description": req.ShortDescription,
		"text":              req.ArticleBody,
		"workflow_state":    req.WorkflowState,
	}
	setIfPresent(fields, "kb_knowledge_base", req.KnowledgeBase)

	record, err := store.Create(ctx, collectionKnowledge, fields)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("KB Article created successfully: %s (sys_id: %s)", record.Number(), record.SysID()), nil
}
