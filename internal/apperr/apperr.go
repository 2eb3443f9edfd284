// Package apperr defines the error taxonomy shared across the
// orchestration core. Quota and security violations are the only error
// kinds allowed to propagate out of a conversational turn; everything
// else degrades into a fallback result at the turn boundary.
package apperr

import (
	"errors"
	"fmt"
)

// ErrValidation marks user-fixable request errors. Wrap it with detail:
//
//	fmt.Errorf("%w: query is required", apperr.ErrValidation)
var ErrValidation = errors.New("invalid request")

// Validationf builds a validation error with formatted detail.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// QuotaExceededError indicates a rate or usage limit rejection. It always
// propagates to a caller capable of aborting the session.
type QuotaExceededError struct {
	Reason string
}

func (e *QuotaExceededError) Error() string {
	if e.Reason == "" {
		return "quota exceeded"
	}
	return e.Reason
}

// SecurityViolationError indicates a policy or safety rejection. It is
// never silently degraded.
type SecurityViolationError struct {
	Reason string
}

func (e *SecurityViolationError) Error() string {
	if e.Reason == "" {
		return "security violation"
	}
	return e.Reason
}

// Propagates reports whether err must be re-raised unchanged by the turn
// processor instead of being converted into a fallback outcome.
func Propagates(err error) bool {
	var quota *QuotaExceededError
	var security *SecurityViolationError
	return errors.As(err, &quota) || errors.As(err, &security)
}
