package script

import (
	"errors"
	"strings"
)

var (
	// ErrInvalidScript is matched by every ConfigurationError.
	ErrInvalidScript = errors.New("invalid script")
	// ErrEmptyScript is matched when either side has no statements.
	ErrEmptyScript = errors.New("script has a side with no statements")
)

// ConfigurationError collects every problem found while validating a script.
// A script that fails validation cannot be used to build a battle.
type ConfigurationError struct {
	Problems []string
	empty    bool
}

func (e *ConfigurationError) Error() string {
	return "invalid script: " + strings.Join(e.Problems, "; ")
}

// Unwrap lets errors.Is match ErrInvalidScript and, when relevant, ErrEmptyScript.
func (e *ConfigurationError) Unwrap() []error {
	errs := []error{ErrInvalidScript}
	if e.empty {
		errs = append(errs, ErrEmptyScript)
	}
	return errs
}

func (e *ConfigurationError) add(problem string) {
	e.Problems = append(e.Problems, problem)
}

func (e *ConfigurationError) orNil() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e
}
