// Package errors provides typed errors for pgindexhealth operations.
//
// This package defines sentinel errors and error types that allow callers
// to handle specific error conditions programmatically using errors.Is()
// and errors.As().
//
// Sentinel Errors:
//   - ErrInvalidConnectionString: malformed connection string, never retried
//   - ErrHostUnreachable: network/auth failure talking to one host
//   - ErrNoPrimaryFound: no host in the cluster reports itself as primary
//   - ErrAmbiguousPrimary: more than one host reports itself as primary
//   - ErrDiagnosticQuery: a diagnostic query executed but failed
//   - ErrRegistryConfiguration: a diagnostic definition is inconsistent
//   - ErrUnknownDiagnostic: lookup of an identifier the registry does not know
//   - ErrInvalidConfig: configuration validation failed
//
// Typed Errors:
//   - InvalidConnectionStringError, HostUnreachableError
//   - NoPrimaryFoundError, AmbiguousPrimaryError
//   - DiagnosticQueryError, RegistryConfigurationError
//   - ValidationError, ReportError
//   - MultiError: aggregates multiple errors
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common error conditions.
// Use errors.Is() to check for these conditions.
var (
	ErrInvalidConnectionString = errors.New("invalid connection string")
	ErrHostUnreachable         = errors.New("host unreachable")
	ErrNoPrimaryFound          = errors.New("no primary found")
	ErrAmbiguousPrimary        = errors.New("ambiguous primary")
	ErrDiagnosticQuery         = errors.New("diagnostic query failed")
	ErrRegistryConfiguration   = errors.New("invalid registry configuration")
	ErrUnknownDiagnostic       = errors.New("unknown diagnostic")
	ErrInvalidConfig           = errors.New("invalid configuration")
)

// InvalidConnectionStringError reports a connection string that cannot be parsed.
// Value is expected to be sanitized by the caller when it may carry credentials.
type InvalidConnectionStringError struct {
	Value  string
	Reason string
}

// NewInvalidConnectionStringError creates a new InvalidConnectionStringError.
func NewInvalidConnectionStringError(value, reason string) *InvalidConnectionStringError {
	return &InvalidConnectionStringError{Value: value, Reason: reason}
}

// Error implements the error interface.
func (e *InvalidConnectionStringError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid connection string: %s", e.Reason)
	}
	return fmt.Sprintf("invalid connection string %q: %s", e.Value, e.Reason)
}

// Unwrap returns ErrInvalidConnectionString for errors.Is support.
func (e *InvalidConnectionStringError) Unwrap() error {
	return ErrInvalidConnectionString
}

// Is reports whether target matches this error type.
func (e *InvalidConnectionStringError) Is(target error) bool {
	_, ok := target.(*InvalidConnectionStringError)
	return ok || target == ErrInvalidConnectionString
}

// HostUnreachableError represents a network or authentication failure
// while probing or querying a single host.
type HostUnreachableError struct {
	Host string // host:port
	Op   string // e.g. "probe role", "query"
	Err  error
}

// NewHostUnreachableError creates a new HostUnreachableError.
func NewHostUnreachableError(host, op string, err error) *HostUnreachableError {
	return &HostUnreachableError{Host: host, Op: op, Err: err}
}

// Error implements the error interface.
func (e *HostUnreachableError) Error() string {
	return fmt.Sprintf("host %s unreachable during %s: %v", e.Host, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *HostUnreachableError) Unwrap() error {
	return e.Err
}

// Is reports whether target matches this error type.
func (e *HostUnreachableError) Is(target error) bool {
	_, ok := target.(*HostUnreachableError)
	return ok || target == ErrHostUnreachable
}

// NoPrimaryFoundError means every probed host answered, but none is writable.
// Usually the cluster is mid-failover.
type NoPrimaryFoundError struct {
	Hosts []string
}

// Error implements the error interface.
func (e *NoPrimaryFoundError) Error() string {
	if len(e.Hosts) == 0 {
		return "no primary found: cluster has no hosts"
	}
	return fmt.Sprintf("no primary found among hosts [%s]", strings.Join(e.Hosts, ", "))
}

// Unwrap returns ErrNoPrimaryFound for errors.Is support.
func (e *NoPrimaryFoundError) Unwrap() error {
	return ErrNoPrimaryFound
}

// AmbiguousPrimaryError means more than one host reports itself as primary
// (split-brain or stale metadata).
type AmbiguousPrimaryError struct {
	Primaries []string
}

// Error implements the error interface.
func (e *AmbiguousPrimaryError) Error() string {
	return fmt.Sprintf("ambiguous primary: %d hosts report primary [%s]", len(e.Primaries), strings.Join(e.Primaries, ", "))
}

// Unwrap returns ErrAmbiguousPrimary for errors.Is support.
func (e *AmbiguousPrimaryError) Unwrap() error {
	return ErrAmbiguousPrimary
}

// DiagnosticQueryError represents a diagnostic query that reached the host but failed.
type DiagnosticQueryError struct {
	Diagnostic string
	Host       string
	Err        error
}

// NewDiagnosticQueryError creates a new DiagnosticQueryError.
func NewDiagnosticQueryError(diagnostic, host string, err error) *DiagnosticQueryError {
	return &DiagnosticQueryError{Diagnostic: diagnostic, Host: host, Err: err}
}

// Error implements the error interface.
func (e *DiagnosticQueryError) Error() string {
	return fmt.Sprintf("diagnostic %s failed on host %s: %v", e.Diagnostic, e.Host, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *DiagnosticQueryError) Unwrap() error {
	return e.Err
}

// Is reports whether target matches this error type.
func (e *DiagnosticQueryError) Is(target error) bool {
	_, ok := target.(*DiagnosticQueryError)
	return ok || target == ErrDiagnosticQuery
}

// RegistryConfigurationError is raised while building the diagnostic registry,
// never while running a diagnostic.
type RegistryConfigurationError struct {
	Diagnostic string
	Reason     string
}

// NewRegistryConfigurationError creates a new RegistryConfigurationError.
func NewRegistryConfigurationError(diagnostic, reason string) *RegistryConfigurationError {
	return &RegistryConfigurationError{Diagnostic: diagnostic, Reason: reason}
}

// Error implements the error interface.
func (e *RegistryConfigurationError) Error() string {
	return fmt.Sprintf("invalid diagnostic %s: %s", e.Diagnostic, e.Reason)
}

// Unwrap returns ErrRegistryConfiguration for errors.Is support.
func (e *RegistryConfigurationError) Unwrap() error {
	return ErrRegistryConfiguration
}

// ValidationError represents a configuration or input validation error.
type ValidationError struct {
	Field   string // Field that failed validation
	Value   string // Value that was invalid (may be redacted for sensitive fields)
	Message string // Human-readable validation message
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, value, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Message)
}

// Unwrap returns ErrInvalidConfig for errors.Is support.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfig
}

// Is reports whether target matches this error type.
func (e *ValidationError) Is(target error) bool {
	_, ok := target.(*ValidationError)
	return ok
}

// ReportError represents an error during report generation.
type ReportError struct {
	Phase string // Phase that failed (e.g., "template", "render", "write")
	Path  string // Output path (if applicable)
	Err   error  // Underlying error
}

// NewReportError creates a new ReportError.
func NewReportError(phase, path string, err error) *ReportError {
	return &ReportError{Phase: phase, Path: path, Err: err}
}

// Error implements the error interface.
func (e *ReportError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("report %s error: %v", e.Phase, e.Err)
	}
	return fmt.Sprintf("report %s error for %s: %v", e.Phase, e.Path, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ReportError) Unwrap() error {
	return e.Err
}

// MultiError aggregates multiple errors into a single error.
type MultiError struct {
	Errors []error
}

// Add appends an error to the collection. Nil errors are ignored.
func (me *MultiError) Add(err error) {
	if err != nil {
		me.Errors = append(me.Errors, err)
	}
}

// Error implements the error interface.
func (me *MultiError) Error() string {
	switch len(me.Errors) {
	case 0:
		return "no errors"
	case 1:
		return me.Errors[0].Error()
	default:
		return fmt.Sprintf("%d errors occurred; first: %v", len(me.Errors), me.Errors[0])
	}
}

// Unwrap exposes every collected error to errors.Is/As.
func (me *MultiError) Unwrap() []error {
	return me.Errors
}

// ErrorOrNil returns nil if no errors were added, otherwise returns the MultiError.
func (me *MultiError) ErrorOrNil() error {
	if len(me.Errors) == 0 {
		return nil
	}
	return me
}

// IsTopologyError reports whether err stems from cluster topology rather than
// from a diagnostic itself. Callers use it to decide whether a retry may help.
func IsTopologyError(err error) bool {
	return errors.Is(err, ErrNoPrimaryFound) ||
		errors.Is(err, ErrAmbiguousPrimary) ||
		errors.Is(err, ErrHostUnreachable)
}
