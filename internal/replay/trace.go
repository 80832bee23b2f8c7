package replay

import (
	"fmt"
	"io"
	"slices"

	"github.com/dshills/uidelegate/internal/dom"
)

// PhaseDefault marks trace entries recorded by a native default action.
const PhaseDefault = "default"

// Entry is one invocation recorded during a run.
type Entry struct {
	Step          int    `json:"step"`
	Label         string `json:"label"`
	Phase         string `json:"phase"`
	Topic         string `json:"topic,omitempty"`
	Target        string `json:"target,omitempty"`
	CurrentTarget string `json:"currentTarget,omitempty"`
}

// StepResult is the outcome of one step. The event fields are only set
// for dispatch steps.
type StepResult struct {
	Step               int    `json:"step"`
	Kind               string `json:"kind"`
	Event              string `json:"event,omitempty"`
	Target             string `json:"target,omitempty"`
	DefaultPrevented   bool   `json:"defaultPrevented,omitempty"`
	PropagationStopped bool   `json:"propagationStopped,omitempty"`
}

// Trace is the record of one scenario run.
type Trace struct {
	Scenario string       `json:"scenario,omitempty"`
	Entries  []Entry      `json:"entries"`
	Steps    []StepResult `json:"steps"`
}

// Labels returns the entry labels in execution order.
func (t *Trace) Labels() []string {
	labels := make([]string, len(t.Entries))
	for i, e := range t.Entries {
		labels[i] = e.Label
	}
	return labels
}

// Check compares the trace against the expected labels.
func (t *Trace) Check(want []string) error {
	if want == nil {
		return nil
	}
	got := t.Labels()
	if !slices.Equal(got, want) {
		return &ExpectationError{Want: want, Got: got}
	}
	return nil
}

// WriteText writes a line per step and per entry.
func (t *Trace) WriteText(w io.Writer) error {
	next := 0
	for _, s := range t.Steps {
		var err error
		if s.Kind == "dispatch" {
			_, err = fmt.Fprintf(w, "step %d: %s at %s", s.Step, s.Event, s.Target)
			if err == nil && s.DefaultPrevented {
				_, err = io.WriteString(w, " (default prevented)")
			}
			if err == nil && s.PropagationStopped {
				_, err = io.WriteString(w, " (propagation stopped)")
			}
			if err == nil {
				_, err = io.WriteString(w, "\n")
			}
		} else {
			_, err = fmt.Fprintf(w, "step %d: %s\n", s.Step, s.Kind)
		}
		if err != nil {
			return err
		}

		for ; next < len(t.Entries) && t.Entries[next].Step == s.Step; next++ {
			e := t.Entries[next]
			if e.Phase == PhaseDefault {
				_, err = fmt.Fprintf(w, "  %-7s %s\n", e.Phase, e.Target)
			} else {
				_, err = fmt.Fprintf(w, "  %-7s %s %s target=%s current=%s\n",
					e.Phase, e.Label, e.Topic, e.Target, e.CurrentTarget)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// nodeName renders a node as "#id", its tag name or "#document".
func nodeName(v any) string {
	n, ok := v.(*dom.Node)
	if !ok || n == nil {
		return ""
	}
	if n.IsDocument() {
		return "#document"
	}
	if id := n.ID(); id != "" {
		return "#" + id
	}
	return n.Tag()
}
