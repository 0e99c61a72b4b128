/*
errors.go - Error types shared by the timesheet packages

PURPOSE:
  Computation over rows never fails: malformed dates, clocks and numbers
  degrade instead. The only errors in the system come from collaborators
  (row source, job registry) and from configuration/import input. They are
  all defined here so the API and CLI can classify them with errors.Is.

SEE ALSO:
  - fetch.go: Wraps row source failures in FetchError
  - irregularity/rules_codes.go: Wraps registry failures in LookupError
  - api/handlers.go: Maps these to HTTP status codes
*/
package timesheet

import (
	"context"
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrSourceUnavailable is returned when rows cannot be read from the
	// tabular store.
	ErrSourceUnavailable = errors.New("row source unavailable")

	// ErrRegistryUnavailable is returned when the job registry lookup fails.
	ErrRegistryUnavailable = errors.New("job registry unavailable")

	// ErrEmployeeNotFound is returned when no rows exist for an employee.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrInvalidConfig is returned for bad detector or service settings.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidImport is returned when an uploaded timesheet cannot be read.
	ErrInvalidImport = errors.New("invalid import")

	// ErrInvalidQuery is returned by adapters when the backing store rejects
	// a statement itself (missing table, bad column). Repeating it cannot
	// succeed.
	ErrInvalidQuery = errors.New("invalid query")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// FetchError describes a failed page read.
type FetchError struct {
	Employee string
	Offset   int
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch rows for %q at offset %d (%d attempts): %v",
		e.Employee, e.Offset, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() []error {
	return []error{ErrSourceUnavailable, e.Err}
}

// LookupError describes a failed job registry batch.
type LookupError struct {
	Codes int
	Err   error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("lookup %d job codes: %v", e.Codes, e.Err)
}

func (e *LookupError) Unwrap() []error {
	return []error{ErrRegistryUnavailable, e.Err}
}

// ConfigError names the offending setting.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrSourceUnavailable) || errors.Is(err, ErrRegistryUnavailable)
}

// IsTransient returns true if a collaborator call that failed with err may
// succeed when repeated. Cancellation, invalid input, missing resources and
// rejected statements are final.
func IsTransient(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	case IsClientError(err), IsNotFound(err), errors.Is(err, ErrInvalidQuery):
		return false
	}
	return true
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidConfig) || errors.Is(err, ErrInvalidImport)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound)
}
