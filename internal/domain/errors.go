package domain

import (
	"fmt"
	"time"
)

// EngineError represents a standardized error response
type EngineError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface
func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeRuleSource    = "RULE_SOURCE_ERROR"
	ErrCodeAuditStore    = "AUDIT_STORE_ERROR"
	ErrCodeModelProvider = "MODEL_PROVIDER_ERROR"
	ErrCodeRateLimit     = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal      = "INTERNAL_SERVER_ERROR"
	ErrCodeValidation    = "VALIDATION_ERROR"
)

// NewEngineError creates a new EngineError with timestamp
func NewEngineError(code, message, details, requestID string) *EngineError {
	return &EngineError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// RuleSourceError records that an entire rule source could not be used:
// the file was missing, unreadable or unparsable. Loading continues with
// the remaining source.
type RuleSourceError struct {
	Source SourceSet `json:"source"`
	Path   string    `json:"path"`
	Reason string    `json:"reason"`
}

// Error implements the error interface
func (e RuleSourceError) Error() string {
	return fmt.Sprintf("rule source %s (%s): %s", e.Source, e.Path, e.Reason)
}

// RuleValidationError records a single rule rejected during loading. The
// rest of the set still loads.
type RuleValidationError struct {
	Source SourceSet `json:"source"`
	RuleID string    `json:"rule_id"`
	Index  int       `json:"index"`
	Reason string    `json:"reason"`
}

// Error implements the error interface
func (e RuleValidationError) Error() string {
	id := e.RuleID
	if id == "" {
		id = fmt.Sprintf("#%d", e.Index)
	}
	return fmt.Sprintf("rule %s in %s source: %s", id, e.Source, e.Reason)
}
