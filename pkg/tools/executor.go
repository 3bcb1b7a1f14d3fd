// Package tools implements the ServiceNow tool catalog and its dispatcher.
//
// Every invocation goes through the ToolExecutor, which:
// - validates arguments against the tool's declared JSON schema
// - logs a truncated copy of the arguments
// - maps cancellation of the caller's context to a dedicated error
//
// There is no execution deadline here. Each remote call carries its own
// timeout, and the host cancels long calls with notifications/cancelled.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"mcp-servicenow/pkg/errors"
	"mcp-servicenow/pkg/logging"
)

const (
	// maxLogArgLength bounds argument values written to the log
	maxLogArgLength = 100

	schemaURLPrefix = "mem://tools/"
)

// ToolExecutor handles argument validation and execution
type ToolExecutor struct {
	logger  *logging.StructuredLogger
	mu      sync.RWMutex
	schemas map[string]*jsonschema.Schema
}

// NewToolExecutor creates a new ToolExecutor
func NewToolExecutor(logger *logging.StructuredLogger) *ToolExecutor {
	return &ToolExecutor{
		logger:  logger,
		schemas: make(map[string]*jsonschema.Schema),
	}
}

// Compile compiles and caches the input schema of tool
func (te *ToolExecutor) Compile(tool Tool) error {
	doc, err := inputSchemaDocument(tool)
	if err != nil {
		return fmt.Errorf("tool %s: %w", tool.Name(), err)
	}

	url := schemaURLPrefix + tool.Name() + ".json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, doc); err != nil {
		return fmt.Errorf("tool %s: add schema: %w", tool.Name(), err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return fmt.Errorf("tool %s: compile schema: %w", tool.Name(), err)
	}

	te.mu.Lock()
	te.schemas[tool.Name()] = schema
	te.mu.Unlock()
	return nil
}

// Execute validates arguments and runs the tool
func (te *ToolExecutor) Execute(ctx context.Context, tool Tool, arguments map[string]interface{}) (string, error) {
	if arguments == nil {
		arguments = map[string]interface{}{}
	}

	if err := te.ValidateArguments(tool, arguments); err != nil {
		te.logger.WithContext("tool", tool.Name()).
			WithError(err).
			Warn("Tool argument validation failed")
		return "", err
	}

	logger := te.logger.WithContext("tool", tool.Name())
	for k, v := range sanitizeArguments(arguments) {
		logger = logger.WithContext(fmt.Sprintf("arg_%s", k), v)
	}
	logger.Debug("Executing tool")

	output, err := tool.Execute(ctx, arguments)
	if err != nil {
		if ctx.Err() != nil {
			return "", errors.NewStructuredError(errors.ErrorCategorySystem, errors.ErrorSeverityLow,
				errors.ErrCodeToolCancelled, fmt.Sprintf("tool %s was cancelled", tool.Name())).
				WithCause(err)
		}
		return "", err
	}
	return output, nil
}

// ValidateArguments validates tool arguments against the tool's input schema
func (te *ToolExecutor) ValidateArguments(tool Tool, arguments map[string]interface{}) error {
	te.mu.RLock()
	schema, ok := te.schemas[tool.Name()]
	te.mu.RUnlock()
	if !ok {
		return nil
	}

	// Round-trip through JSON so Go numeric types match what the validator expects.
	data, err := json.Marshal(arguments)
	if err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidParams, "arguments are not valid JSON", err)
	}
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidParams, "arguments are not valid JSON", err)
	}

	if err := schema.Validate(instance); err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidParams,
			fmt.Sprintf("invalid arguments for %s", tool.Name()), err).
			WithDetails(validationDetails(err))
	}
	return nil
}

// inputSchemaDocument extracts the advertised input schema as a JSON document
func inputSchemaDocument(tool Tool) (interface{}, error) {
	data, err := json.Marshal(tool.Definition())
	if err != nil {
		return nil, fmt.Errorf("marshal definition: %w", err)
	}

	var def struct {
		InputSchema json.RawMessage `json:"inputSchema"`
	}
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("read definition: %w", err)
	}
	if len(def.InputSchema) == 0 {
		return nil, fmt.Errorf("definition has no input schema")
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(def.InputSchema))
}

// validationDetails flattens the validator's indented report to one line
func validationDetails(err error) string {
	lines := strings.Split(err.Error(), "\n")
	details := make([]string, 0, len(lines))
	for _, line := range lines[1:] {
		if line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "-")); line != "" {
			details = append(details, line)
		}
	}
	if len(details) == 0 {
		return err.Error()
	}
	return strings.Join(details, "; ")
}

// sanitizeArguments truncates long string values so large notes or scripts
// do not flood the log
func sanitizeArguments(arguments map[string]interface{}) map[string]interface{} {
	sanitized := make(map[string]interface{}, len(arguments))
	for key, value := range arguments {
		if s, ok := value.(string); ok && len(s) > maxLogArgLength {
			sanitized[key] = fmt.Sprintf("%s... [%d chars]", s[:maxLogArgLength], len(s))
		} else {
			sanitized[key] = value
		}
	}
	return sanitized
}
