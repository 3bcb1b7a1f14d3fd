package models

import "github.com/mark3labs/mcp-go/mcp"

// MCPToolsListResult represents the result of tools/list
type MCPToolsListResult struct {
	Tools []mcp.Tool `json:"tools"`
}

// MCPToolsCallParams represents parameters for tools/call
type MCPToolsCallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments,omitempty"`
}

// MCPToolCapabilities represents tool-related capabilities
type MCPToolCapabilities struct {
	ListChanged bool `json:"listChanged,omitempty"`
}
