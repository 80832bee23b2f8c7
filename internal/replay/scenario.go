package replay

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Actions a subscription performs after recording its invocation.
const (
	ActionRecord                   = "record"
	ActionStopPropagation          = "stopPropagation"
	ActionStopImmediatePropagation = "stopImmediatePropagation"
	ActionPreventDefault           = "preventDefault"
	ActionHalt                     = "halt"
)

// Subscription phases.
const (
	PhaseBefore = "before"
	PhaseAfter  = "after"
)

// Scenario is a replayable delegation scenario.
type Scenario struct {
	Name          string         `yaml:"name"`
	Document      string         `yaml:"document"`
	Subscriptions []Subscription `yaml:"subscriptions"`
	Steps         []Step         `yaml:"steps"`

	// DoubleClick synthesizes "dblclick" from two quick clicks on the
	// same element.
	DoubleClick bool `yaml:"double_click,omitempty"`

	// Expect lists the trace labels the run must produce, in order.
	// Nil skips the check.
	Expect []string `yaml:"expect,omitempty"`
}

// Subscription is a bus subscription registered before the first step.
type Subscription struct {
	Label    string `yaml:"label"`
	Phase    string `yaml:"phase,omitempty"`
	Event    string `yaml:"event"`
	Selector string `yaml:"selector,omitempty"`
	Action   string `yaml:"action,omitempty"`
	Once     bool   `yaml:"once,omitempty"`
	Prepend  bool   `yaml:"prepend,omitempty"`
}

// Step is one scenario step. Exactly one of Dispatch, Insert, Remove and
// Detach is set.
type Step struct {
	// Dispatch fires the named native event at Target.
	Dispatch string `yaml:"dispatch,omitempty"`
	Target   string `yaml:"target,omitempty"`

	// Insert appends a new element.
	Insert *Insert `yaml:"insert,omitempty"`

	// Remove detaches the element the selector finds.
	Remove string `yaml:"remove,omitempty"`

	// Detach removes the subscription with the given label.
	Detach string `yaml:"detach,omitempty"`
}

// Insert describes an element appended by a step.
type Insert struct {
	Parent string            `yaml:"parent"`
	Tag    string            `yaml:"tag"`
	Attrs  map[string]string `yaml:"attrs,omitempty"`
}

// Kind names the step's operation.
func (s Step) Kind() string {
	switch {
	case s.Dispatch != "":
		return "dispatch"
	case s.Insert != nil:
		return "insert"
	case s.Remove != "":
		return "remove"
	case s.Detach != "":
		return "detach"
	}
	return ""
}

// LoadFile reads a scenario from a YAML file.
func LoadFile(path string) (*Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sc, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// Parse decodes and validates a scenario. Unknown fields are errors.
func Parse(r io.Reader) (*Scenario, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var sc Scenario
	if err := dec.Decode(&sc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyScenario
		}
		return nil, fmt.Errorf("decoding scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks the scenario's structure. Selectors are checked when
// the scenario runs.
func (sc *Scenario) Validate() error {
	var errs []error
	if sc.Document == "" {
		errs = append(errs, errors.New("document is required"))
	}

	labels := make(map[string]bool, len(sc.Subscriptions))
	for i, sub := range sc.Subscriptions {
		where := fmt.Sprintf("subscriptions[%d]", i)
		if sub.Label == "" {
			errs = append(errs, fmt.Errorf("%s: label is required", where))
		} else if labels[sub.Label] {
			errs = append(errs, fmt.Errorf("%s: duplicate label %q", where, sub.Label))
		}
		labels[sub.Label] = true

		if sub.Event == "" {
			errs = append(errs, fmt.Errorf("%s: event is required", where))
		}
		switch sub.Phase {
		case "", PhaseBefore, PhaseAfter:
		default:
			errs = append(errs, fmt.Errorf("%s: unknown phase %q", where, sub.Phase))
		}
		switch sub.Action {
		case "", ActionRecord, ActionStopPropagation, ActionStopImmediatePropagation, ActionPreventDefault, ActionHalt:
		default:
			errs = append(errs, fmt.Errorf("%s: unknown action %q", where, sub.Action))
		}
	}

	for i, step := range sc.Steps {
		where := fmt.Sprintf("steps[%d]", i)
		set := 0
		for _, ok := range []bool{step.Dispatch != "", step.Insert != nil, step.Remove != "", step.Detach != ""} {
			if ok {
				set++
			}
		}
		if set != 1 {
			errs = append(errs, fmt.Errorf("%s: exactly one of dispatch, insert, remove and detach is required", where))
			continue
		}
		switch {
		case step.Dispatch != "" && step.Target == "":
			errs = append(errs, fmt.Errorf("%s: dispatch needs a target", where))
		case step.Insert != nil && (step.Insert.Parent == "" || step.Insert.Tag == ""):
			errs = append(errs, fmt.Errorf("%s: insert needs a parent and a tag", where))
		case step.Detach != "" && !labels[step.Detach]:
			errs = append(errs, fmt.Errorf("%s: no subscription labeled %q", where, step.Detach))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidScenario, errors.Join(errs...))
	}
	return nil
}
