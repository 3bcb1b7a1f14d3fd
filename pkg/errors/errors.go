package errors

import (
	stderrors "errors"
	"fmt"
	"time"

	"mcp-servicenow/internal/models"
)

// ErrorCategory represents different types of errors in the system
type ErrorCategory string

const (
	// Required settings (instance, credentials, API key) are missing
	ErrorCategoryConfiguration ErrorCategory = "configuration"
	// ServiceNow or the generative API failed or answered with a non-success status
	ErrorCategoryRemote ErrorCategory = "remote"
	// A record looked up by business key does not exist
	ErrorCategoryNotFound ErrorCategory = "not_found"
	// Model output could not be parsed into the expected shape
	ErrorCategoryAIParse ErrorCategory = "ai_parse"
	// MCP protocol related errors
	ErrorCategoryMCP ErrorCategory = "mcp"
	// Validation related errors
	ErrorCategoryValidation ErrorCategory = "validation"
	// System/internal errors
	ErrorCategorySystem ErrorCategory = "system"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	ErrorSeverityLow      ErrorSeverity = "low"
	ErrorSeverityMedium   ErrorSeverity = "medium"
	ErrorSeverityHigh     ErrorSeverity = "high"
	ErrorSeverityCritical ErrorSeverity = "critical"
)

// StructuredError represents a structured error with additional context
type StructuredError struct {
	Category    ErrorCategory          `json:"category"`
	Severity    ErrorSeverity          `json:"severity"`
	Code        string                 `json:"code"`
	Message     string                 `json:"message"`
	Details     string                 `json:"details,omitempty"`
	Context     map[string]interface{} `json:"context,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
	Recoverable bool                   `json:"recoverable"`
	Cause       error                  `json:"-"` // Original error, not serialized
}

// Error implements the error interface
func (se *StructuredError) Error() string {
	if se.Details != "" {
		return fmt.Sprintf("[%s:%s] %s: %s", se.Category, se.Code, se.Message, se.Details)
	}
	return fmt.Sprintf("[%s:%s] %s", se.Category, se.Code, se.Message)
}

// Unwrap returns the underlying error for error unwrapping
func (se *StructuredError) Unwrap() error {
	return se.Cause
}

// Summary returns the human readable part of the error without the category prefix.
func (se *StructuredError) Summary() string {
	if se.Details != "" {
		return se.Message + ": " + se.Details
	}
	return se.Message
}

// ToMCPError converts a StructuredError to an MCP protocol error
func (se *StructuredError) ToMCPError() *models.MCPError {
	var mcpCode int
	switch se.Category {
	case ErrorCategoryValidation:
		mcpCode = models.CodeInvalidParams
	case ErrorCategoryMCP:
		switch se.Code {
		case ErrCodeMethodNotFound:
			mcpCode = models.CodeMethodNotFound
		case ErrCodeParseError:
			mcpCode = models.CodeParseError
		case ErrCodeInvalidParams:
			mcpCode = models.CodeInvalidParams
		default:
			mcpCode = models.CodeInvalidRequest
		}
	default:
		mcpCode = models.CodeInternalError
	}

	return &models.MCPError{
		Code:    mcpCode,
		Message: se.Message,
		Data: map[string]interface{}{
			"category":  se.Category,
			"code":      se.Code,
			"severity":  se.Severity,
			"timestamp": se.Timestamp,
			"context":   se.Context,
		},
	}
}

// NewStructuredError creates a new structured error
func NewStructuredError(category ErrorCategory, severity ErrorSeverity, code, message string) *StructuredError {
	return &StructuredError{
		Category:    category,
		Severity:    severity,
		Code:        code,
		Message:     message,
		Timestamp:   time.Now(),
		Recoverable: severity != ErrorSeverityCritical,
		Context:     make(map[string]interface{}),
	}
}

// WithDetails adds details to the error
func (se *StructuredError) WithDetails(details string) *StructuredError {
	se.Details = details
	return se
}

// WithContext adds context information to the error
func (se *StructuredError) WithContext(key string, value interface{}) *StructuredError {
	if se.Context == nil {
		se.Context = make(map[string]interface{})
	}
	se.Context[key] = value
	return se
}

// WithCause sets the underlying cause error
func (se *StructuredError) WithCause(err error) *StructuredError {
	se.Cause = err
	return se
}

// IsRecoverable returns whether the error is recoverable
func (se *StructuredError) IsRecoverable() bool {
	return se.Recoverable
}

// SetRecoverable sets the recoverable flag
func (se *StructuredError) SetRecoverable(recoverable bool) *StructuredError {
	se.Recoverable = recoverable
	return se
}

// As returns the first StructuredError in err's chain.
func As(err error) (*StructuredError, bool) {
	var se *StructuredError
	if stderrors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsCategory reports whether err carries a StructuredError of the given category.
func IsCategory(err error, category ErrorCategory) bool {
	se, ok := As(err)
	return ok && se.Category == category
}

// HasCode reports whether err carries a StructuredError with the given code.
func HasCode(err error, code string) bool {
	se, ok := As(err)
	return ok && se.Code == code
}

// Predefined error constructors for common error scenarios

// NewConfigurationError reports a missing or unusable setting. Not recoverable
// without operator action, but the process keeps serving other tools.
func NewConfigurationError(code, message string) *StructuredError {
	return NewStructuredError(ErrorCategoryConfiguration, ErrorSeverityHigh, code, message).
		SetRecoverable(false)
}

// NewRemoteError creates an error for a failed call to ServiceNow or the generative API
func NewRemoteError(code, message string, err error) *StructuredError {
	severity := ErrorSeverityMedium
	if code == ErrCodeRemoteUnreachable {
		severity = ErrorSeverityHigh
	}
	return NewStructuredError(ErrorCategoryRemote, severity, code, message).WithCause(err)
}

// NewNotFoundError creates an error for a record lookup that matched nothing
func NewNotFoundError(code, message string) *StructuredError {
	return NewStructuredError(ErrorCategoryNotFound, ErrorSeverityLow, code, message)
}

// NewAIParseError creates an error for unparseable model output. The raw
// output is kept in the context so it can be shown to the caller.
func NewAIParseError(message string, err error, raw string) *StructuredError {
	return NewStructuredError(ErrorCategoryAIParse, ErrorSeverityLow, ErrCodeAIParseFailed, message).
		WithCause(err).
		WithContext(ContextRawResponse, raw)
}

// NewMCPError creates an MCP protocol related error
func NewMCPError(code, message string, err error) *StructuredError {
	return NewStructuredError(ErrorCategoryMCP, ErrorSeverityMedium, code, message).WithCause(err)
}

// NewValidationError creates a validation related error
func NewValidationError(code, message string, err error) *StructuredError {
	return NewStructuredError(ErrorCategoryValidation, ErrorSeverityLow, code, message).WithCause(err)
}

// NewSystemError creates a system/internal error
func NewSystemError(code, message string, err error) *StructuredError {
	return NewStructuredError(ErrorCategorySystem, ErrorSeverityCritical, code, message).WithCause(err)
}

// Context keys shared between producers and renderers
const (
	ContextRawResponse = "raw_response"
	ContextStatusCode  = "status_code"
	ContextParentID    = "parent_sys_id"
)

// Common error codes
const (
	// Configuration error codes
	ErrCodeServiceNowNotConfigured = "SERVICENOW_NOT_CONFIGURED"
	ErrCodeGenerativeNotConfigured = "GENERATIVE_NOT_CONFIGURED"

	// Remote error codes
	ErrCodeRemoteUnreachable       = "REMOTE_UNREACHABLE"
	ErrCodeRemoteHTTPStatus        = "REMOTE_HTTP_STATUS"
	ErrCodeRemoteInvalidBody       = "REMOTE_INVALID_BODY"
	ErrCodeUnexpectedShape         = "UNEXPECTED_RESPONSE_SHAPE"
	ErrCodeGenerativeRequestFailed = "GENERATIVE_REQUEST_FAILED"

	// Not found error codes
	ErrCodeRecordNotFound = "RECORD_NOT_FOUND"

	// AI parse error codes
	ErrCodeAIParseFailed = "AI_PARSE_FAILED"

	// MCP protocol error codes
	ErrCodeParseError     = "PARSE_ERROR"
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeMethodNotFound = "METHOD_NOT_FOUND"
	ErrCodeInvalidParams  = "INVALID_PARAMS"
	ErrCodeToolNotFound   = "TOOL_NOT_FOUND"

	// Validation error codes
	ErrCodeInvalidIdentifier = "INVALID_IDENTIFIER"
	ErrCodeInvalidQueryValue = "INVALID_QUERY_VALUE"

	// System error codes
	ErrCodeInitializationFailed = "INITIALIZATION_FAILED"
	ErrCodeShutdownFailed       = "SHUTDOWN_FAILED"
	ErrCodeUnexpectedPanic      = "UNEXPECTED_PANIC"
	ErrCodeToolCancelled        = "TOOL_CANCELLED"
)
