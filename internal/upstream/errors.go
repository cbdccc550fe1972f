package upstream

import (
	"errors"
	"fmt"
)

// Sentinel errors for template store operations. All of them can be checked
// with errors.Is() regardless of the context wrapped around them.

// ErrAlreadyUpToDate is returned by Fetch when the mirror already holds the
// latest template state.
var ErrAlreadyUpToDate = errors.New("already up to date")

// ErrResolveFailed is returned when a revision specifier cannot be resolved
// to a commit in the template repository.
var ErrResolveFailed = errors.New("cannot resolve revision")

// ErrInvalidLocation is returned when the template location is empty or
// cannot be used as a git remote.
var ErrInvalidLocation = errors.New("invalid template location")

// WrapError wraps an error with additional context while preserving the
// ability to check against sentinel errors using errors.Is().
func WrapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// WrapErrorf wraps an error with formatted additional context while
// preserving the ability to check against sentinel errors using errors.Is().
func WrapErrorf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
