package tools

import (
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"mcp-servicenow/pkg/errors"
)

// RenderResult turns a tool outcome into the text shown to the host. Tool
// failures never become protocol errors. A missing record is an ordinary
// answer; everything else is flagged with isError.
func RenderResult(output string, err error) *mcp.CallToolResult {
	if err == nil {
		return mcp.NewToolResultText(output)
	}

	se, ok := errors.As(err)
	if !ok {
		return mcp.NewToolResultError("Error: " + err.Error())
	}

	switch se.Category {
	case errors.ErrorCategoryNotFound:
		return mcp.NewToolResultText(se.Message)
	case errors.ErrorCategoryConfiguration:
		return mcp.NewToolResultError(se.Message)
	case errors.ErrorCategoryAIParse:
		cause := se.Message
		if se.Cause != nil {
			cause = se.Cause.Error()
		}
		return mcp.NewToolResultError(fmt.Sprintf("Failed to parse AI response: %s\nRaw Response: %v",
			cause, se.Context[errors.ContextRawResponse]))
	default:
		return mcp.NewToolResultError("Error: " + se.Summary())
	}
}
