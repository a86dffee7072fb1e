package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestInvalidConnectionStringError(t *testing.T) {
	err := NewInvalidConnectionStringError("mysql://h:1/db", "unsupported scheme")

	if !errors.Is(err, ErrInvalidConnectionString) {
		t.Error("expected errors.Is to match ErrInvalidConnectionString")
	}

	expected := `invalid connection string "mysql://h:1/db": unsupported scheme`
	if err.Error() != expected {
		t.Errorf("expected error %q, got %q", expected, err.Error())
	}
}

func TestInvalidConnectionStringErrorNoValue(t *testing.T) {
	err := NewInvalidConnectionStringError("", "blank")
	expected := "invalid connection string: blank"
	if err.Error() != expected {
		t.Errorf("expected error %q, got %q", expected, err.Error())
	}
}

func TestHostUnreachableError(t *testing.T) {
	underlying := errors.New("connection refused")
	err := NewHostUnreachableError("db-1:5432", "probe role", underlying)

	if !errors.Is(err, underlying) {
		t.Error("expected errors.Is to match underlying error")
	}
	if !errors.Is(err, ErrHostUnreachable) {
		t.Error("expected errors.Is to match ErrHostUnreachable")
	}

	expected := "host db-1:5432 unreachable during probe role: connection refused"
	if err.Error() != expected {
		t.Errorf("expected error %q, got %q", expected, err.Error())
	}
}

func TestHostUnreachableErrorWrapped(t *testing.T) {
	err := fmt.Errorf("resolve topology: %w", NewHostUnreachableError("db-2:5433", "query", errors.New("eof")))

	var target *HostUnreachableError
	if !errors.As(err, &target) {
		t.Fatal("expected errors.As to find HostUnreachableError")
	}
	if target.Host != "db-2:5433" {
		t.Errorf("expected host db-2:5433, got %q", target.Host)
	}
}

func TestNoPrimaryFoundError(t *testing.T) {
	err := &NoPrimaryFoundError{Hosts: []string{"a:5432", "b:5432"}}

	if !errors.Is(err, ErrNoPrimaryFound) {
		t.Error("expected errors.Is to match ErrNoPrimaryFound")
	}

	expected := "no primary found among hosts [a:5432, b:5432]"
	if err.Error() != expected {
		t.Errorf("expected error %q, got %q", expected, err.Error())
	}

	empty := &NoPrimaryFoundError{}
	if empty.Error() != "no primary found: cluster has no hosts" {
		t.Errorf("unexpected message for empty cluster: %q", empty.Error())
	}
}

func TestAmbiguousPrimaryError(t *testing.T) {
	err := &AmbiguousPrimaryError{Primaries: []string{"a:5432", "b:5432"}}

	if !errors.Is(err, ErrAmbiguousPrimary) {
		t.Error("expected errors.Is to match ErrAmbiguousPrimary")
	}
	if errors.Is(err, ErrNoPrimaryFound) {
		t.Error("AmbiguousPrimaryError should not match ErrNoPrimaryFound")
	}

	expected := "ambiguous primary: 2 hosts report primary [a:5432, b:5432]"
	if err.Error() != expected {
		t.Errorf("expected error %q, got %q", expected, err.Error())
	}
}

func TestDiagnosticQueryError(t *testing.T) {
	underlying := errors.New(`relation "pg_stat_user_indexes" does not exist`)
	err := NewDiagnosticQueryError("unused_indexes", "replica-2:5432", underlying)

	if !errors.Is(err, underlying) {
		t.Error("expected errors.Is to match underlying error")
	}
	if !errors.Is(err, ErrDiagnosticQuery) {
		t.Error("expected errors.Is to match ErrDiagnosticQuery")
	}

	var target *DiagnosticQueryError
	if !errors.As(fmt.Errorf("run: %w", err), &target) {
		t.Fatal("expected errors.As to find DiagnosticQueryError")
	}
	if target.Diagnostic != "unused_indexes" || target.Host != "replica-2:5432" {
		t.Errorf("unexpected fields: %+v", target)
	}
}

func TestRegistryConfigurationError(t *testing.T) {
	err := NewRegistryConfigurationError("unused_indexes", "across-cluster diagnostic requires a combiner")

	if !errors.Is(err, ErrRegistryConfiguration) {
		t.Error("expected errors.Is to match ErrRegistryConfiguration")
	}

	expected := "invalid diagnostic unused_indexes: across-cluster diagnostic requires a combiner"
	if err.Error() != expected {
		t.Errorf("expected error %q, got %q", expected, err.Error())
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("timeout", "-5s", "must be positive")

	if !errors.Is(err, ErrInvalidConfig) {
		t.Error("ValidationError should match ErrInvalidConfig")
	}

	expected := `invalid timeout "-5s": must be positive`
	if err.Error() != expected {
		t.Errorf("expected error %q, got %q", expected, err.Error())
	}
}

func TestValidationErrorNoValue(t *testing.T) {
	err := NewValidationError("url", "", "required")
	expected := "invalid url: required"
	if err.Error() != expected {
		t.Errorf("expected error %q, got %q", expected, err.Error())
	}
}

func TestReportError(t *testing.T) {
	err := NewReportError("template", "/tmp/report.html", errors.New("parse error"))

	expected := "report template error for /tmp/report.html: parse error"
	if err.Error() != expected {
		t.Errorf("expected error %q, got %q", expected, err.Error())
	}
}

func TestReportErrorNoPath(t *testing.T) {
	err := NewReportError("render", "", errors.New("data error"))
	expected := "report render error: data error"
	if err.Error() != expected {
		t.Errorf("expected error %q, got %q", expected, err.Error())
	}
}

func TestMultiError(t *testing.T) {
	me := &MultiError{}

	if me.ErrorOrNil() != nil {
		t.Error("empty MultiError should return nil")
	}

	me.Add(nil) // Should be ignored
	if me.ErrorOrNil() != nil {
		t.Error("MultiError with only nil should return nil")
	}

	err1 := errors.New("error 1")
	err2 := NewValidationError("schema", "", "must not be blank")

	me.Add(err1)
	me.Add(err2)

	if len(me.Errors) != 2 {
		t.Errorf("expected 2 errors, got %d", len(me.Errors))
	}

	if !errors.Is(me, err1) {
		t.Error("MultiError should match first error")
	}
	if !errors.Is(me, ErrInvalidConfig) {
		t.Error("MultiError should match errors past the first one")
	}

	expected := "2 errors occurred; first: error 1"
	if me.Error() != expected {
		t.Errorf("expected error %q, got %q", expected, me.Error())
	}
}

func TestMultiErrorEmpty(t *testing.T) {
	me := &MultiError{}
	if me.Error() != "no errors" {
		t.Errorf("empty MultiError.Error() should return 'no errors'")
	}
	if me.Unwrap() != nil {
		t.Error("empty MultiError.Unwrap() should return nil")
	}
}

func TestSentinelErrors(t *testing.T) {
	sentinels := []error{
		ErrInvalidConnectionString,
		ErrHostUnreachable,
		ErrNoPrimaryFound,
		ErrAmbiguousPrimary,
		ErrDiagnosticQuery,
		ErrRegistryConfiguration,
		ErrUnknownDiagnostic,
		ErrInvalidConfig,
	}

	for i, err1 := range sentinels {
		for j, err2 := range sentinels {
			if i != j && errors.Is(err1, err2) {
				t.Errorf("sentinel errors should be distinct: %v == %v", err1, err2)
			}
		}
	}
}

func TestIsTopologyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"no primary", &NoPrimaryFoundError{}, true},
		{"ambiguous", &AmbiguousPrimaryError{Primaries: []string{"a:1", "b:1"}}, true},
		{"unreachable", NewHostUnreachableError("a:5432", "query", errors.New("eof")), true},
		{"query failure", NewDiagnosticQueryError("d", "a:5432", errors.New("syntax")), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsTopologyError(tt.err); got != tt.want {
				t.Errorf("IsTopologyError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
