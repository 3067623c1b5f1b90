// Package apierrors defines the typed business-error taxonomy shared by all
// registry components, plus the mapping from typed errors to HTTP responses.
//
// Business-rule violations are detected before any mutation and returned as
// one of these types; storage failures and other internal errors are wrapped
// with %w and surface as a generic 500.
package apierrors

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes, stable across releases. Clients and audit consumers key off these.
const (
	CodeNotFound             = "NOT_FOUND"
	CodeConflict             = "CONFLICT"
	CodeInvalidTransition    = "INVALID_TRANSITION"
	CodeForbidden            = "FORBIDDEN"
	CodeUnsupportedCondition = "UNSUPPORTED_CONDITION"
	CodeValidation           = "VALIDATION_ERROR"
)

// NotFoundError indicates a referenced entity does not exist.
type NotFoundError struct {
	EntityType string
	ID         string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.EntityType, e.ID)
}

// Code returns the stable error code.
func (e *NotFoundError) Code() string { return CodeNotFound }

// NotFound creates a NotFoundError for the given entity type and id.
func NotFound(entityType, id string) *NotFoundError {
	return &NotFoundError{EntityType: entityType, ID: id}
}

// ConflictError indicates the request conflicts with current state
// (duplicate name, already-linked version, lost insert race).
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return e.Reason }

// Code returns the stable error code.
func (e *ConflictError) Code() string { return CodeConflict }

// Conflict creates a ConflictError with the given reason.
func Conflict(reason string) *ConflictError {
	return &ConflictError{Reason: reason}
}

// InvalidTransitionError indicates a state machine rejected a transition.
// Both states are carried verbatim for audit diagnostics.
type InvalidTransitionError struct {
	Current   string
	Requested string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s -> %s", e.Current, e.Requested)
}

// Code returns the stable error code.
func (e *InvalidTransitionError) Code() string { return CodeInvalidTransition }

// InvalidTransition creates an InvalidTransitionError for the given states.
func InvalidTransition(current, requested string) *InvalidTransitionError {
	return &InvalidTransitionError{Current: current, Requested: requested}
}

// ForbiddenError indicates the acting user lacks a required role.
type ForbiddenError struct {
	RequiredRoles []string
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("requires one of roles: %s", strings.Join(e.RequiredRoles, ", "))
}

// Code returns the stable error code.
func (e *ForbiddenError) Code() string { return CodeForbidden }

// Forbidden creates a ForbiddenError listing the roles that would be accepted.
func Forbidden(requiredRoles ...string) *ForbiddenError {
	return &ForbiddenError{RequiredRoles: requiredRoles}
}

// UnsupportedConditionError indicates a triage rule condition uses syntax
// outside the closed expression grammar. The engine rejects such rules at
// load time rather than silently skipping them.
type UnsupportedConditionError struct {
	Expr   string
	Detail string
}

func (e *UnsupportedConditionError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("unsupported condition: %q", e.Expr)
	}
	return fmt.Sprintf("unsupported condition: %q: %s", e.Expr, e.Detail)
}

// Code returns the stable error code.
func (e *UnsupportedConditionError) Code() string { return CodeUnsupportedCondition }

// UnsupportedCondition creates an UnsupportedConditionError.
func UnsupportedCondition(expr, detail string) *UnsupportedConditionError {
	return &UnsupportedConditionError{Expr: expr, Detail: detail}
}

// ValidationError indicates a field-level input problem.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Code returns the stable error code.
func (e *ValidationError) Code() string { return CodeValidation }

// Validation creates a ValidationError for the given field.
func Validation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// Coded is implemented by every typed error in this package.
type Coded interface {
	error
	Code() string
}

// CodeOf returns the stable code for err, or "" if err is not a typed
// business error.
func CodeOf(err error) string {
	var coded Coded
	if errors.As(err, &coded) {
		return coded.Code()
	}
	return ""
}
