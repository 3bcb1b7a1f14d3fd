package server

import (
	"context"
	"encoding/json"
	"fmt"

	"mcp-servicenow/internal/models"
	"mcp-servicenow/pkg/errors"
	"mcp-servicenow/pkg/tools"
)

// handleToolsList handles the tools/list method
func (s *MCPServer) handleToolsList(message *models.MCPMessage) *models.MCPMessage {
	result := models.MCPToolsListResult{
		Tools: s.toolManager.ListTools(),
	}

	return &models.MCPMessage{
		JSONRPC: "2.0",
		ID:      message.ID,
		Result:  result,
	}
}

// handleToolsCall handles the tools/call method. Tool failures, unknown tools
// and invalid arguments all come back as text content; only undecodable
// params are a protocol error. A call cancelled by the host gets no response.
func (s *MCPServer) handleToolsCall(ctx context.Context, message *models.MCPMessage) *models.MCPMessage {
	var params models.MCPToolsCallParams
	if err := decodeParams(message.Params, &params); err != nil {
		return s.createErrorResponse(message.ID, models.CodeInvalidParams, "Invalid parameters format")
	}

	if params.Name == "" {
		structuredErr := errors.NewValidationError(errors.ErrCodeInvalidParams,
			"Missing required parameter: name", nil)
		return s.createStructuredErrorResponse(message.ID, structuredErr)
	}

	callCtx, cancel := context.WithCancel(ctx)
	key := s.trackCall(message.ID, cancel)
	defer s.untrackCall(key, cancel)

	inv, err := s.toolManager.ExecuteTool(callCtx, params.Name, params.Arguments)
	s.loggingManager.LogToolInvocation(inv.Tool, inv.ID, inv.Duration, err)

	if callCtx.Err() != nil {
		s.logger.WithContext("tool", params.Name).
			WithContext("request_id", message.ID).
			Info("Tool call cancelled, response suppressed")
		return nil
	}

	return &models.MCPMessage{
		JSONRPC: "2.0",
		ID:      message.ID,
		Result:  tools.RenderResult(inv.Output, err),
	}
}

// handleCancelled cancels the in-flight call named by the notification
func (s *MCPServer) handleCancelled(message *models.MCPMessage) *models.MCPMessage {
	var params models.MCPCancelledParams
	if err := decodeParams(message.Params, &params); err != nil || params.RequestID == nil {
		s.logger.Warn("Ignoring malformed cancellation")
		return nil
	}

	s.inflightMu.Lock()
	cancel, ok := s.inflight[requestKey(params.RequestID)]
	s.inflightMu.Unlock()

	logger := s.logger.WithContext("request_id", params.RequestID)
	if params.Reason != "" {
		logger = logger.WithContext("reason", params.Reason)
	}
	if !ok {
		logger.Debug("Cancellation for unknown or finished request")
		return nil
	}

	cancel()
	logger.Info("Cancelling tool call")
	return nil
}

// trackCall records cancel under the request id. Notifications carry no id
// and cannot be cancelled.
func (s *MCPServer) trackCall(id interface{}, cancel context.CancelFunc) string {
	if id == nil {
		return ""
	}
	key := requestKey(id)

	s.inflightMu.Lock()
	s.inflight[key] = cancel
	s.inflightMu.Unlock()
	return key
}

func (s *MCPServer) untrackCall(key string, cancel context.CancelFunc) {
	cancel()
	if key == "" {
		return
	}

	s.inflightMu.Lock()
	delete(s.inflight, key)
	s.inflightMu.Unlock()
}

// cancelAllCalls cancels every in-flight call
func (s *MCPServer) cancelAllCalls() {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()

	for _, cancel := range s.inflight {
		cancel()
	}
}

// requestKey distinguishes the string id "1" from the number 1
func requestKey(id interface{}) string {
	return fmt.Sprintf("%T:%v", id, id)
}

// decodeParams converts the generic params value into target
func decodeParams(params interface{}, target interface{}) error {
	if params == nil {
		return nil
	}
	data, err := json.Marshal(params)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}
