package server

import (
	"mcp-servicenow/internal/models"
)

// JSON-RPC methods served
const (
	methodInitialize  = "initialize"
	methodInitialized = "notifications/initialized"
	methodPing        = "ping"
	methodToolsList   = "tools/list"
	methodToolsCall   = "tools/call"
	methodCancelled   = "notifications/cancelled"
	methodPerformance = "server/performance"
)

const serverInstructions = "Tools for creating and managing ServiceNow incidents, knowledge articles, " +
	"client scripts, business rules, SLA definitions, record producers and variable sets. " +
	"smart_incident and smart_kb_generator need a Gemini API key."

// handleInitialize handles the MCP initialize method
func (s *MCPServer) handleInitialize(message *models.MCPMessage) *models.MCPMessage {
	result := models.MCPInitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities:    s.capabilities,
		ServerInfo:      s.serverInfo,
		Instructions:    serverInstructions,
	}

	return &models.MCPMessage{
		JSONRPC: "2.0",
		ID:      message.ID,
		Result:  result,
	}
}

// handleInitialized handles the notifications/initialized method
func (s *MCPServer) handleInitialized(message *models.MCPMessage) *models.MCPMessage {
	s.initialized.Store(true)
	s.logger.Info("MCP server initialized successfully")
	return nil // No response for notifications
}

// handlePing answers liveness checks with an empty result
func (s *MCPServer) handlePing(message *models.MCPMessage) *models.MCPMessage {
	if message.IsNotification() {
		return nil
	}
	return &models.MCPMessage{
		JSONRPC: "2.0",
		ID:      message.ID,
		Result:  map[string]interface{}{},
	}
}
