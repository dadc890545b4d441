// Package errors provides the coded error type shared by the agent workflows.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Error codes. Each code is one class in the workflow error taxonomy.
const (
	CodeProviderUnavailable = "PROVIDER_001" // external call failed, timed out or returned non-2xx
	CodeProviderResponse    = "PROVIDER_002" // external call returned an unusable payload
	CodeOutputValidation    = "MODEL_001"    // generative output did not match the expected shape
	CodeOutputBudget        = "MODEL_002"    // generative call made without a positive token budget
	CodeSemanticParse       = "COMPLIANCE_001"
	CodeHealthCheck         = "HEALTH_001"
	CodeCredentials         = "HEALTH_002"
	CodeSubRunFailed        = "RUN_001"
	CodeRunFinalized        = "RUN_002"
	CodeRunNotFound         = "RUN_003"
	CodeCancelled           = "RUN_004"
	CodeNoCheckpoint        = "RUN_005"
	CodeGraphInvalid        = "GRAPH_001"
	CodeGraphRoute          = "GRAPH_002"
	CodeNotFound            = "STORE_001"
	CodePersistence         = "STORE_002"
	CodeConfigInvalid       = "CONFIG_001"
)

// Error is the structured error type for workflow operations.
type Error struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// MarshalJSON includes the cause message.
func (e *Error) MarshalJSON() ([]byte, error) {
	type alias Error
	aux := struct {
		*alias
		CauseMsg string `json:"cause,omitempty"`
	}{
		alias: (*alias)(e),
	}
	if e.Cause != nil {
		aux.CauseMsg = e.Cause.Error()
	}
	return json.Marshal(aux)
}

// New creates a new Error.
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a new Error with a formatted message.
func Newf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps err with a code and message.
func Wrap(code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Cause: err}
}

// Wrapf wraps err with a code and formatted message.
func Wrapf(code string, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// --- Provider errors ---

// ProviderUnavailable reports a failed call to an external provider.
func ProviderUnavailable(provider, operation string, err error) *Error {
	return Wrapf(CodeProviderUnavailable, err, "%s: %s failed", provider, operation).
		WithDetail("provider", provider).
		WithDetail("operation", operation)
}

// ProviderResponse reports a provider payload that could not be used.
func ProviderResponse(provider, operation, reason string) *Error {
	return Newf(CodeProviderResponse, "%s: %s returned an unusable response: %s", provider, operation, reason).
		WithDetail("provider", provider).
		WithDetail("operation", operation)
}

// OutputValidation reports generative output that failed shape validation.
func OutputValidation(operation string, err error) *Error {
	return Wrapf(CodeOutputValidation, err, "model output for %s failed validation", operation).
		WithDetail("operation", operation)
}

// --- Run errors ---

// RunNotFound reports a missing workflow run.
func RunNotFound(runID string) *Error {
	return Newf(CodeRunNotFound, "workflow run not found: %s", runID).
		WithDetail("run_id", runID)
}

// RunFinalized reports a write against a run that already left running.
func RunFinalized(runID string) *Error {
	return Newf(CodeRunFinalized, "workflow run %s is already finalized", runID).
		WithDetail("run_id", runID)
}

// NotFound reports a missing persisted entity.
func NotFound(entity, id string) *Error {
	return Newf(CodeNotFound, "%s not found: %s", entity, id).
		WithDetail("entity", entity).
		WithDetail("id", id)
}

// HasCode checks whether err wraps an *Error with the given code.
func HasCode(err error, code string) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// Code returns the code of the first *Error in err's chain, or "".
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
