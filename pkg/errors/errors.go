// Package errors defines custom error types and error handling utilities for the
// Sentra reliability service. Every error in the pipeline taxonomy maps to a
// structured code and an HTTP status so that stage boundaries and API handlers
// treat failures uniformly.
package errors

import (
	"fmt"
	"net/http"

	"github.com/turtacn/sentra/pkg/constants"
)

// ================================================================================
// Base Error Interface
// ================================================================================

// SentraError represents a structured error with additional metadata.
type SentraError interface {
	error

	// Code returns the structured error code.
	Code() constants.ErrorCode

	// HTTPStatus returns the HTTP status code.
	HTTPStatus() int

	// Description returns a human-readable description.
	Description() string

	// Unwrap returns the underlying error for error chain support.
	Unwrap() error

	// WithCause adds a cause error to the error chain.
	WithCause(cause error) SentraError

	// WithMetadata adds additional context metadata.
	WithMetadata(key string, value interface{}) SentraError

	// Metadata returns all metadata.
	Metadata() map[string]interface{}
}

// ================================================================================
// Base Error Implementation
// ================================================================================

// baseError is the internal implementation of SentraError.
type baseError struct {
	code        constants.ErrorCode
	httpStatus  int
	description string
	message     string
	cause       error
	metadata    map[string]interface{}
}

// Error implements the error interface.
func (e *baseError) Error() string {
	if e.message != "" {
		return e.message
	}
	return e.description
}

// Code returns the structured error code.
func (e *baseError) Code() constants.ErrorCode {
	return e.code
}

// HTTPStatus returns the HTTP status code.
func (e *baseError) HTTPStatus() int {
	return e.httpStatus
}

// Description returns the error description.
func (e *baseError) Description() string {
	return e.description
}

// Unwrap returns the underlying cause error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// WithCause adds a cause error to the error chain.
func (e *baseError) WithCause(cause error) SentraError {
	e.cause = cause
	return e
}

// WithMetadata adds additional context metadata.
func (e *baseError) WithMetadata(key string, value interface{}) SentraError {
	if e.metadata == nil {
		e.metadata = make(map[string]interface{})
	}
	e.metadata[key] = value
	return e
}

// Metadata returns all metadata.
func (e *baseError) Metadata() map[string]interface{} {
	return e.metadata
}

// ================================================================================
// Error Constructor
// ================================================================================

// NewError creates a new SentraError with the specified parameters.
func NewError(code constants.ErrorCode, httpStatus int, description string, message string) SentraError {
	return &baseError{
		code:        code,
		httpStatus:  httpStatus,
		description: description,
		message:     message,
		metadata:    make(map[string]interface{}),
	}
}

// ================================================================================
// Generic Error Constructors
// ================================================================================

// ErrInvalidRequest creates an invalid_request error.
func ErrInvalidRequest(message string) SentraError {
	return NewError(
		constants.ErrCodeInvalidRequest,
		http.StatusBadRequest,
		"The request is missing a required parameter or includes an invalid value.",
		message,
	)
}

// ErrNotFound creates a generic not_found error.
func ErrNotFound(message string) SentraError {
	return NewError(
		constants.ErrCodeNotFound,
		http.StatusNotFound,
		"The requested resource does not exist.",
		message,
	)
}

// ErrUnauthorized creates an unauthorized error.
func ErrUnauthorized(message string) SentraError {
	return NewError(
		constants.ErrCodeUnauthorized,
		http.StatusUnauthorized,
		"Authentication is required or the provided credential is invalid.",
		message,
	)
}

// ErrServerError creates a server_error error.
func ErrServerError(message string) SentraError {
	return NewError(
		constants.ErrCodeServerError,
		http.StatusInternalServerError,
		"The service encountered an unexpected condition that prevented it from fulfilling the request.",
		message,
	)
}

// ================================================================================
// Pipeline Error Constructors
// ================================================================================

// ErrSourceUnavailable reports a metrics source read failure for one table.
// The observer records the skipped source and continues scanning.
func ErrSourceUnavailable(source string, cause error) SentraError {
	return NewError(
		constants.ErrCodeSourceUnavailable,
		http.StatusServiceUnavailable,
		"Metrics source read failed; source skipped for this cycle.",
		fmt.Sprintf("metrics source unavailable: %s", source),
	).WithCause(cause).WithMetadata("source", source)
}

// ErrOracleTimeout reports an oracle call that exceeded its deadline.
func ErrOracleTimeout(stage constants.Stage) SentraError {
	return NewError(
		constants.ErrCodeOracleTimeout,
		http.StatusGatewayTimeout,
		"Reasoning oracle call timed out; deterministic fallback applied.",
		fmt.Sprintf("oracle timeout at stage %s", stage),
	).WithMetadata("stage", string(stage))
}

// ErrOracleError reports a non-timeout oracle failure.
func ErrOracleError(stage constants.Stage, cause error) SentraError {
	return NewError(
		constants.ErrCodeOracleError,
		http.StatusBadGateway,
		"Reasoning oracle call failed; deterministic fallback applied.",
		fmt.Sprintf("oracle error at stage %s", stage),
	).WithCause(cause).WithMetadata("stage", string(stage))
}

// ErrBudgetExceeded reports that the per-cycle oracle budget is spent.
func ErrBudgetExceeded(used, limit int) SentraError {
	return NewError(
		constants.ErrCodeBudgetExceeded,
		http.StatusTooManyRequests,
		"Oracle call budget exceeded for this cycle; deterministic fallback applied.",
		fmt.Sprintf("oracle budget exceeded: %d/%d calls", used, limit),
	).WithMetadata("used", used).WithMetadata("limit", limit)
}

// ErrInvestigationStepFailed reports a single failed investigation step.
// The step is recorded in the evidence chain and execution continues.
func ErrInvestigationStepFailed(stepID, tool string, cause error) SentraError {
	return NewError(
		constants.ErrCodeInvestigationStepFailed,
		http.StatusInternalServerError,
		"An investigation step failed; recorded in the evidence chain.",
		fmt.Sprintf("investigation step %s (%s) failed", stepID, tool),
	).WithCause(cause).WithMetadata("step_id", stepID).WithMetadata("tool", tool)
}

// ErrInvestigationExhausted reports that no step produced usable evidence.
func ErrInvestigationExhausted(cycleID string) SentraError {
	return NewError(
		constants.ErrCodeInvestigationExhausted,
		http.StatusUnprocessableEntity,
		"No investigation step produced usable evidence; cycle ends as FALSE_POSITIVE.",
		fmt.Sprintf("investigation exhausted for cycle %s", cycleID),
	).WithMetadata("cycle_id", cycleID)
}

// ErrPersistenceFailure reports a historian write failure after retries.
func ErrPersistenceFailure(cause error) SentraError {
	return NewError(
		constants.ErrCodePersistenceFailure,
		http.StatusInternalServerError,
		"Incident store write failed after retries; cycle aborted.",
		"persistence failure",
	).WithCause(cause)
}

// ErrTokenInvalid reports an approval token that was already consumed or never existed.
func ErrTokenInvalid(tokenID string) SentraError {
	return NewError(
		constants.ErrCodeTokenInvalid,
		http.StatusConflict,
		"The approval token is unknown or has already been consumed.",
		fmt.Sprintf("approval token invalid: %s", tokenID),
	).WithMetadata("token_id", tokenID)
}

// ErrTokenExpired reports an approval token past its TTL.
func ErrTokenExpired(tokenID string) SentraError {
	return NewError(
		constants.ErrCodeTokenExpired,
		http.StatusGone,
		"The approval token has expired.",
		fmt.Sprintf("approval token expired: %s", tokenID),
	).WithMetadata("token_id", tokenID)
}

// ErrCycleAlreadyRunning reports a trigger for a tenant whose cycle slot is busy.
func ErrCycleAlreadyRunning(tenantID string) SentraError {
	return NewError(
		constants.ErrCodeCycleAlreadyRunning,
		http.StatusConflict,
		"A detection cycle is already running for this tenant.",
		fmt.Sprintf("cycle already running for tenant %s", tenantID),
	).WithMetadata("tenant_id", tenantID)
}

// ErrTenantNotFound creates a tenant not found error.
func ErrTenantNotFound(tenantID string) SentraError {
	return NewError(
		constants.ErrCodeTenantNotFound,
		http.StatusNotFound,
		"Tenant not found.",
		fmt.Sprintf("tenant not found: %s", tenantID),
	).WithMetadata("tenant_id", tenantID)
}

// ErrTenantSuspended creates a tenant suspended error.
func ErrTenantSuspended(tenantID string) SentraError {
	return NewError(
		constants.ErrCodeTenantSuspended,
		http.StatusForbidden,
		"Tenant is suspended; operations are rejected.",
		fmt.Sprintf("tenant is suspended: %s", tenantID),
	).WithMetadata("tenant_id", tenantID)
}

// ErrIncidentNotFound reports a missing incident, including cross-tenant reads.
func ErrIncidentNotFound(incidentID string) SentraError {
	return ErrNotFound(fmt.Sprintf("incident not found: %s", incidentID)).
		WithMetadata("incident_id", incidentID)
}

// ErrPolicyNotFound reports a missing policy.
func ErrPolicyNotFound(policyID string) SentraError {
	return ErrNotFound(fmt.Sprintf("policy not found: %s", policyID)).
		WithMetadata("policy_id", policyID)
}

// ErrNotificationFailure reports channel delivery failure after retry exhaustion.
func ErrNotificationFailure(channel string, attempts int, cause error) SentraError {
	return NewError(
		constants.ErrCodeNotificationFailure,
		http.StatusBadGateway,
		"Notification delivery failed after retries; recorded, cycle unaffected.",
		fmt.Sprintf("notification via %s failed after %d attempts", channel, attempts),
	).WithCause(cause).WithMetadata("channel", channel).WithMetadata("attempts", attempts)
}

// ErrDatabaseOperation is the generic wrapper for repository failures.
var ErrDatabaseOperation = NewError(
	constants.ErrCodePersistenceFailure,
	http.StatusInternalServerError,
	"database operation failed",
	"database operation failed",
)

// ================================================================================
// Error Validation Utilities
// ================================================================================

// IsSentraError checks if an error is a SentraError.
func IsSentraError(err error) bool {
	_, ok := err.(SentraError)
	return ok
}

// AsSentraError attempts to cast an error to SentraError.
func AsSentraError(err error) (SentraError, bool) {
	serr, ok := err.(SentraError)
	return serr, ok
}

// WrapError wraps a generic error into a SentraError.
func WrapError(err error, code constants.ErrorCode, message string) SentraError {
	var httpStatus int
	switch code {
	case constants.ErrCodeInvalidRequest:
		httpStatus = http.StatusBadRequest
	case constants.ErrCodeNotFound, constants.ErrCodeTenantNotFound:
		httpStatus = http.StatusNotFound
	case constants.ErrCodeUnauthorized:
		httpStatus = http.StatusUnauthorized
	case constants.ErrCodeCycleAlreadyRunning, constants.ErrCodeTokenInvalid:
		httpStatus = http.StatusConflict
	case constants.ErrCodeSourceUnavailable:
		httpStatus = http.StatusServiceUnavailable
	default:
		httpStatus = http.StatusInternalServerError
	}
	return NewError(code, httpStatus, err.Error(), message).WithCause(err)
}

// IsNotFound checks if an error is any not-found variant.
func IsNotFound(err error) bool {
	if serr, ok := AsSentraError(err); ok {
		code := serr.Code()
		return code == constants.ErrCodeNotFound || code == constants.ErrCodeTenantNotFound
	}
	return false
}

// IsTransient checks if an error is transient and can be retried.
func IsTransient(err error) bool {
	if serr, ok := AsSentraError(err); ok {
		code := serr.Code()
		return code == constants.ErrCodeSourceUnavailable ||
			code == constants.ErrCodeOracleTimeout ||
			code == constants.ErrCodePersistenceFailure
	}
	return false
}

// IsBudgetExceeded checks if an error is the oracle budget condition.
func IsBudgetExceeded(err error) bool {
	if serr, ok := AsSentraError(err); ok {
		return serr.Code() == constants.ErrCodeBudgetExceeded
	}
	return false
}

// ShouldLogError determines if an error should be logged based on severity.
func ShouldLogError(err error) bool {
	if serr, ok := AsSentraError(err); ok {
		status := serr.HTTPStatus()
		return status >= 500 || status == http.StatusTooManyRequests
	}
	return true
}

// ================================================================================
// Error Response Builder
// ================================================================================

// ErrorResponse represents the JSON structure for error responses.
type ErrorResponse struct {
	Error            string                 `json:"error"`
	ErrorDescription string                 `json:"error_description"`
	Metadata         map[string]interface{} `json:"metadata,omitempty"`
}

// ToErrorResponse converts a SentraError to an ErrorResponse.
func ToErrorResponse(err SentraError) *ErrorResponse {
	return &ErrorResponse{
		Error:            string(err.Code()),
		ErrorDescription: err.Description(),
		Metadata:         err.Metadata(),
	}
}

// ToGenericErrorResponse converts any error to an ErrorResponse.
func ToGenericErrorResponse(err error) *ErrorResponse {
	if serr, ok := AsSentraError(err); ok {
		return ToErrorResponse(serr)
	}
	return &ErrorResponse{
		Error:            string(constants.ErrCodeServerError),
		ErrorDescription: "An unexpected error occurred",
	}
}
