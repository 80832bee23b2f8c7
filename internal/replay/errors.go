package replay

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyScenario is returned for a scenario file without content.
	ErrEmptyScenario = errors.New("empty scenario")

	// ErrInvalidScenario wraps structural scenario errors.
	ErrInvalidScenario = errors.New("invalid scenario")
)

// StepError reports a step that could not be performed.
type StepError struct {
	Step int
	Kind string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Step, e.Kind, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// ExpectationError reports a trace that differs from the scenario's
// expected labels.
type ExpectationError struct {
	Want []string
	Got  []string
}

func (e *ExpectationError) Error() string {
	return fmt.Sprintf("trace mismatch: want [%s], got [%s]",
		strings.Join(e.Want, " "), strings.Join(e.Got, " "))
}
