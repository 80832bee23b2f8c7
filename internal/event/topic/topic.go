package topic

import "strings"

// Topic identifies a custom event as "emitter:name".
// Examples: "UI:click", "UI:clickoutside", "red:save", "*:click"
type Topic string

const (
	// Wildcard matches any emitter or any event name.
	Wildcard = "*"

	// Separator splits the emitter from the event name.
	Separator = ":"
)

// New joins an emitter and an event name into a topic.
func New(emitter, name string) Topic {
	return Topic(emitter + Separator + name)
}

// Parse normalizes s into a topic. A bare event name ("click") is
// attributed to defaultEmitter.
func Parse(s, defaultEmitter string) Topic {
	if s == "" {
		return ""
	}
	if !strings.Contains(s, Separator) {
		return New(defaultEmitter, s)
	}
	return Topic(s)
}

// String returns the topic as a string.
func (t Topic) String() string {
	return string(t)
}

// Segments returns the emitter and the event name.
// A topic without separator yields a single segment.
func (t Topic) Segments() []string {
	if t == "" {
		return nil
	}
	return strings.SplitN(string(t), Separator, 2)
}

// Emitter returns the part before the separator.
//
// Example: "UI:click" -> "UI"
func (t Topic) Emitter() string {
	s := string(t)
	idx := strings.Index(s, Separator)
	if idx < 0 {
		return ""
	}
	return s[:idx]
}

// Name returns the event name after the separator.
//
// Example: "UI:click" -> "click"
func (t Topic) Name() string {
	s := string(t)
	idx := strings.Index(s, Separator)
	if idx < 0 {
		return s
	}
	return s[idx+1:]
}

// WithName returns the topic with its event name replaced.
func (t Topic) WithName(name string) Topic {
	return New(t.Emitter(), name)
}

// WithEmitter returns the topic with its emitter replaced.
func (t Topic) WithEmitter(emitter string) Topic {
	return New(emitter, t.Name())
}

// HasSuffix reports whether the event name ends with suffix and has
// something in front of it ("clickoutside" has suffix "outside", "outside"
// does not).
func (t Topic) HasSuffix(suffix string) bool {
	name := t.Name()
	return suffix != "" && len(name) > len(suffix) && strings.HasSuffix(name, suffix)
}

// TrimSuffix removes suffix from the event name.
func (t Topic) TrimSuffix(suffix string) Topic {
	if !t.HasSuffix(suffix) {
		return t
	}
	return t.WithName(strings.TrimSuffix(t.Name(), suffix))
}

// AddSuffix appends suffix to the event name.
func (t Topic) AddSuffix(suffix string) Topic {
	return t.WithName(t.Name() + suffix)
}

// IsWildcard returns true if either part is a wildcard.
func (t Topic) IsWildcard() bool {
	return t.Emitter() == Wildcard || t.Name() == Wildcard
}

// IsValid returns true if the topic is valid.
// A valid topic:
//   - Has exactly one separator
//   - Has a non-empty emitter and a non-empty name
//   - Uses the wildcard only as a whole part
func (t Topic) IsValid() bool {
	segs := t.Segments()
	if len(segs) != 2 {
		return false
	}
	for _, seg := range segs {
		if seg == "" || strings.Contains(seg, Separator) {
			return false
		}
		if seg != Wildcard && strings.Contains(seg, Wildcard) {
			return false
		}
	}
	return true
}

// Matches returns true if this concrete topic matches the given pattern.
// Each part of the pattern is either the exact value or the wildcard.
func (t Topic) Matches(pattern Topic) bool {
	return matchPart(t.Emitter(), pattern.Emitter()) && matchPart(t.Name(), pattern.Name())
}

// Overlaps returns true if some concrete topic could match both t and other.
// Wildcards are honoured on both sides: "*:click" overlaps "UI:*".
func (t Topic) Overlaps(other Topic) bool {
	return overlapPart(t.Emitter(), other.Emitter()) && overlapPart(t.Name(), other.Name())
}

// Classes returns the four subscription topics that receive an emission of
// t, in gathering order: exact, any emitter, any name, any emitter and name.
//
// Example: "UI:click" -> UI:click, *:click, UI:*, *:*
func (t Topic) Classes() []Topic {
	emitter, name := t.Emitter(), t.Name()
	return []Topic{
		t,
		New(Wildcard, name),
		New(emitter, Wildcard),
		New(Wildcard, Wildcard),
	}
}

func matchPart(value, pattern string) bool {
	return pattern == Wildcard || pattern == value
}

func overlapPart(a, b string) bool {
	return a == Wildcard || b == Wildcard || a == b
}
