/*
errors.go - Errors shared by every store and service

PURPOSE:
  Backends translate their native conflict signals (optimistic version
  mismatch, PostgreSQL serialization failure) into ErrConcurrentModification
  so services can retry a unit of work without knowing the backend.

SEE ALSO:
  - retry.go: Retry loop keyed on IsRetryable
  - leave/errors.go: Business error taxonomy
*/
package generic

import "errors"

var (
	// ErrConcurrentModification is returned when a unit of work lost a race
	// with another one and may succeed on retry.
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}
