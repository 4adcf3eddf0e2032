// Package apperror defines the error taxonomy of the CFS core and the allow-list of
// messages that may be shown to a caller.
package apperror

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Caller-facing messages
const (
	MsgUnauthorized   = "You do not have permission to perform this action."
	MsgOrgRequired    = "Select an acting organization before performing this action."
	MsgValidation     = "Please correct the highlighted fields."
	MsgGeneric        = "Something went wrong. Please try again or contact support."
	MsgNotFoundFormat = "The requested %s was not found."
)

// ValidationError is a field-scoped rejection of caller input
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError returns a ValidationError for a single field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// Add records a message for field, keeping the first message per field
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = message
	}
}

// Empty reports whether no field failed
func (e *ValidationError) Empty() bool {
	return e == nil || len(e.Fields) == 0
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// AuthorizationError is returned when the caller lacks a capability
type AuthorizationError struct {
	Capability string
}

func (e *AuthorizationError) Error() string {
	return "missing capability " + e.Capability
}

// OrganizationRequiredError is returned when an org-scoped write has no acting organization
type OrganizationRequiredError struct{}

func (e *OrganizationRequiredError) Error() string {
	return "acting organization required"
}

// NotFoundError is returned when a referenced record is absent or out of scope
type NotFoundError struct {
	Resource string
	ID       int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

// StoreProcedureError wraps a failed atomic store call. Message is only shown to the
// caller when Safe is set, meaning the procedure raised it deliberately.
type StoreProcedureError struct {
	Procedure string
	Message   string
	Safe      bool
	Err       error
}

func (e *StoreProcedureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("procedure %s: %v", e.Procedure, e.Err)
	}
	return fmt.Sprintf("procedure %s: %s", e.Procedure, e.Message)
}

func (e *StoreProcedureError) Unwrap() error { return e.Err }

// CompensationFailure reports that undoing a partial write failed and a resource was
// left behind. It unwraps to the original error that triggered the compensation.
type CompensationFailure struct {
	Resource   string
	Cause      error
	CleanupErr error
}

func (e *CompensationFailure) Error() string {
	return fmt.Sprintf("compensation failed for %s: %v (cause: %v)", e.Resource, e.CleanupErr, e.Cause)
}

func (e *CompensationFailure) Unwrap() error { return e.Cause }

// SafeMessage returns the allow-listed caller-facing message for err
func SafeMessage(err error) string {
	var (
		ve  *ValidationError
		ae  *AuthorizationError
		oe  *OrganizationRequiredError
		nfe *NotFoundError
		spe *StoreProcedureError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return MsgValidation
	case errors.As(err, &ae):
		return MsgUnauthorized
	case errors.As(err, &oe):
		return MsgOrgRequired
	case errors.As(err, &nfe):
		return fmt.Sprintf(MsgNotFoundFormat, nfe.Resource)
	case errors.As(err, &spe) && spe.Safe && spe.Message != "":
		return spe.Message
	default:
		return MsgGeneric
	}
}
