// Package clierr provides the exit-code taxonomy and sentinel error kinds
// used across matilda's CLI and discovery pipeline.
package clierr

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes, per the discovery run's reporting contract.
const (
	ExitSuccess = 0
	ExitGeneral = 1 // unclassified fallback, reserved as in the teacher's taxonomy
	ExitPartial = 2 // run was cancelled (timeout or memory ceiling) but emitted already-accepted rules
	ExitConfig  = 3
	ExitQuery   = 4
)

// Kind distinguishes the category of a discovery failure.
type Kind int

const (
	KindUnclassified Kind = iota
	KindConfig
	KindSchema
	KindQueryTimeout
	KindQueryDriver
	KindCancelled
	KindInternalInvariant
)

// ExitError wraps an error with an exit code and a kind.
type ExitError struct {
	Code    int
	Kind    Kind
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitWithError prints the error and exits with the appropriate code.
func ExitWithError(err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		fmt.Fprintln(os.Stderr, "Error:", exitErr.Error())
		os.Exit(exitErr.Code)
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(ExitGeneral)
}

// ConfigError creates an ExitError for a configuration problem (exit 3).
func ConfigError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitConfig, Kind: KindConfig, Message: msg, Err: err}
}

// SchemaError creates an ExitError for a catalog/schema introspection
// problem (exit 3 — schema errors are configuration-adjacent: the database
// the run was pointed at does not match what the algorithm needs).
func SchemaError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitConfig, Kind: KindSchema, Message: msg, Err: err}
}

// QueryTimeoutError creates an ExitError for a per-statement query timeout
// that escalated to a fatal condition (exit 4).
func QueryTimeoutError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitQuery, Kind: KindQueryTimeout, Message: msg, Err: err}
}

// QueryDriverError creates an ExitError for a driver-level query failure
// (exit 4).
func QueryDriverError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitQuery, Kind: KindQueryDriver, Message: msg, Err: err}
}

// PartialSuccessError creates an ExitError reporting a clean, cooperative
// cancellation (exit 2). This is not a failure: already-accepted rules were
// emitted and the run is reported as partial success.
func PartialSuccessError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitPartial, Kind: KindCancelled, Message: msg, Err: err}
}

// InternalInvariantError creates an ExitError for a violated internal
// invariant — a bug, not a user-facing condition. Reported via the general
// fallback code since it names no recognized exit-code category of its own.
func InternalInvariantError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitGeneral, Kind: KindInternalInvariant, Message: msg, Err: err}
}

// GeneralError creates an ExitError with the unclassified fallback code.
func GeneralError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitGeneral, Kind: KindUnclassified, Message: msg, Err: err}
}

// IsConfigErr reports whether err is (or wraps) a configuration error.
func IsConfigErr(err error) bool { return hasKind(err, KindConfig) }

// IsSchemaErr reports whether err is (or wraps) a schema/catalog error.
func IsSchemaErr(err error) bool { return hasKind(err, KindSchema) }

// IsTimeoutErr reports whether err is (or wraps) a query timeout error.
func IsTimeoutErr(err error) bool { return hasKind(err, KindQueryTimeout) }

// IsQueryDriverErr reports whether err is (or wraps) a driver-level query error.
func IsQueryDriverErr(err error) bool { return hasKind(err, KindQueryDriver) }

// IsCancelledErr reports whether err is (or wraps) a clean cancellation.
func IsCancelledErr(err error) bool { return hasKind(err, KindCancelled) }

// IsInternalInvariantErr reports whether err is (or wraps) a violated
// internal invariant.
func IsInternalInvariantErr(err error) bool { return hasKind(err, KindInternalInvariant) }

func hasKind(err error, k Kind) bool {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Kind == k
	}
	return false
}
