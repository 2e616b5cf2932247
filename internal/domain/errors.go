package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error codes for categorization
const (
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeConflict        = "CONFLICT"
	ErrCodeAuditInProgress = "AUDIT_IN_PROGRESS"
	ErrCodeUnreachable     = "SITE_UNREACHABLE"
	ErrCodeExternalAPI     = "EXTERNAL_API_ERROR"
	ErrCodeDatabase        = "DATABASE_ERROR"
	ErrCodeInternal        = "INTERNAL_ERROR"
)

// DomainError is a structured error for domain operations.
type DomainError struct {
	Code    string
	Message string
	Details map[string]any
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is for code-based comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Sentinel domain errors (used with errors.Is)
var (
	ErrNotFoundVal        = &DomainError{Code: ErrCodeNotFound, Message: "not found"}
	ErrInvalidInputVal    = &DomainError{Code: ErrCodeValidation, Message: "invalid input"}
	ErrAuditInProgressVal = &DomainError{Code: ErrCodeAuditInProgress, Message: "audit in progress"}
	ErrUnreachableVal     = &DomainError{Code: ErrCodeUnreachable, Message: "site unreachable"}
	ErrConflictVal        = &DomainError{Code: ErrCodeConflict, Message: "conflict"}
)

// IsSentinelError checks if err matches a sentinel error.
func IsSentinelError(err error, sentinel *DomainError) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == sentinel.Code
	}
	return false
}

// NotFoundError creates a not found domain error.
func NotFoundError(resource string, id any) *DomainError {
	return &DomainError{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s not found: %v", resource, id),
		Details: map[string]any{"resource": resource, "id": id},
		Err:     ErrNotFoundVal,
	}
}

// ValidationError creates a validation domain error. Invalid configuration
// (malformed URL, threshold out of range) is rejected with this before any
// network call, never silently defaulted.
func ValidationError(field, message string) *DomainError {
	return &DomainError{
		Code:    ErrCodeValidation,
		Message: message,
		Details: map[string]any{"field": field},
		Err:     ErrInvalidInputVal,
	}
}

// AuditInProgressError signals a second audit invocation for a lead whose
// audit is already RUNNING.
func AuditInProgressError(leadID uuid.UUID) *DomainError {
	return &DomainError{
		Code:    ErrCodeAuditInProgress,
		Message: fmt.Sprintf("audit already running for lead %s", leadID),
		Details: map[string]any{"lead_id": leadID.String()},
		Err:     ErrAuditInProgressVal,
	}
}

// UnreachableError signals a DNS/connection failure on the very first
// fetch. The audit fails fast and persists no partial data.
func UnreachableError(url string, err error) *DomainError {
	return &DomainError{
		Code:    ErrCodeUnreachable,
		Message: fmt.Sprintf("site unreachable: %s", url),
		Details: map[string]any{"url": url},
		Err:     fmt.Errorf("%w: %w", ErrUnreachableVal, err),
	}
}

// ExternalAPIError wraps a failure from an external collaborator.
func ExternalAPIError(service string, err error) *DomainError {
	return &DomainError{
		Code:    ErrCodeExternalAPI,
		Message: fmt.Sprintf("external service error: %s", service),
		Details: map[string]any{"service": service},
		Err:     err,
	}
}
