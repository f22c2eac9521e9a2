package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrMissingSelection = errors.New("please select an option before submitting")
	ErrUnauthenticated  = errors.New("authentication required")

	// ErrPollInactive and ErrNotManager refine ErrForbidden.
	ErrPollInactive = fmt.Errorf("poll is not active: %w", ErrForbidden)
	ErrNotManager   = fmt.Errorf("only the owner or an admin may modify this poll: %w", ErrForbidden)
)

// ValidationError collects every problem found in user input.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) add(problem string) {
	e.Problems = append(e.Problems, problem)
}

func (e *ValidationError) orNil() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}

// IsValidation reports whether err carries a *ValidationError.
func IsValidation(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
