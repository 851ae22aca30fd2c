package errors

import (
	"fmt"
)

// ErrorCode represents different categories of errors
type ErrorCode string

const (
	// ErrCodeValidation indicates input validation errors
	ErrCodeValidation ErrorCode = "VALIDATION"

	// ErrCodeConfig indicates configuration errors, including a stored checkpoint
	// that is behind the configured start block
	ErrCodeConfig ErrorCode = "CONFIG"

	// ErrCodeDecode indicates a log that matches none of the known events
	ErrCodeDecode ErrorCode = "DECODE"

	// ErrCodeRPC indicates chain RPC errors
	ErrCodeRPC ErrorCode = "RPC"

	// ErrCodeDatabase indicates database operation errors
	ErrCodeDatabase ErrorCode = "DATABASE"

	// ErrCodePubSub indicates publish/subscribe transport errors
	ErrCodePubSub ErrorCode = "PUBSUB"

	// ErrCodeNotFound indicates a status transition on an unknown order
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeInternal indicates internal system errors
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// Severity represents the severity level of an error
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityInfo     Severity = "INFO"
)

// ChainError represents an error raised while serving a specific chain
type ChainError struct {
	Code     ErrorCode              `json:"code"`
	Message  string                 `json:"message"`
	Chain    string                 `json:"chain,omitempty"`
	Severity Severity               `json:"severity"`
	Cause    error                  `json:"-"`
	Context  map[string]interface{} `json:"context,omitempty"`
}

// NewChainError creates a new ChainError
func NewChainError(code ErrorCode, chain, message string, cause error) *ChainError {
	return &ChainError{
		Code:     code,
		Message:  message,
		Chain:    chain,
		Severity: determineSeverity(code),
		Cause:    cause,
		Context:  make(map[string]interface{}),
	}
}

// Error implements the error interface
func (e *ChainError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	if e.Chain != "" {
		return fmt.Sprintf("[%s:%s] %s: %s", e.Chain, e.Code, e.Severity, msg)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Severity, msg)
}

// Unwrap returns the underlying cause
func (e *ChainError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *ChainError) WithContext(key string, value interface{}) *ChainError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// IsRetryable returns true if restarting the failed service can clear the error.
// Config and decode errors only clear once the operator fixes the deployment.
func (e *ChainError) IsRetryable() bool {
	switch e.Code {
	case ErrCodeRPC, ErrCodePubSub, ErrCodeNotFound:
		return true
	case ErrCodeDatabase:
		return e.Severity != SeverityCritical
	default:
		return false
	}
}

func determineSeverity(code ErrorCode) Severity {
	switch code {
	case ErrCodeInternal, ErrCodeConfig:
		return SeverityCritical
	case ErrCodeDatabase, ErrCodeDecode:
		return SeverityHigh
	case ErrCodeRPC, ErrCodePubSub:
		return SeverityMedium
	case ErrCodeValidation, ErrCodeNotFound:
		return SeverityLow
	default:
		return SeverityInfo
	}
}

// NewValidationError creates a validation error
func NewValidationError(chain, message string) *ChainError {
	return NewChainError(ErrCodeValidation, chain, message, nil)
}

// NewConfigError creates a configuration error
func NewConfigError(chain, message string) *ChainError {
	return NewChainError(ErrCodeConfig, chain, message, nil)
}

// NewDecodeError creates a decode error
func NewDecodeError(chain, message string, cause error) *ChainError {
	return NewChainError(ErrCodeDecode, chain, message, cause)
}

// NewRPCError creates an RPC error
func NewRPCError(chain, message string, cause error) *ChainError {
	return NewChainError(ErrCodeRPC, chain, message, cause)
}

// NewDatabaseError creates a database error
func NewDatabaseError(chain, message string, cause error) *ChainError {
	return NewChainError(ErrCodeDatabase, chain, message, cause)
}

// NewPubSubError creates a pub/sub transport error
func NewPubSubError(chain, message string, cause error) *ChainError {
	return NewChainError(ErrCodePubSub, chain, message, cause)
}

// NewNotFoundError creates a not-found error
func NewNotFoundError(chain, message string, cause error) *ChainError {
	return NewChainError(ErrCodeNotFound, chain, message, cause)
}

// NewInternalError creates an internal error
func NewInternalError(chain, message string, cause error) *ChainError {
	return NewChainError(ErrCodeInternal, chain, message, cause)
}
