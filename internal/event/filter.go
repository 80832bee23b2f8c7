package event

// Filter decides whether a subscriber receives an emission.
type Filter interface {
	// Match reports whether payload should be delivered.
	Match(payload any) bool
}

// FilterFunc is a predicate over the payload.
// Return true to allow the event, false to filter it out.
type FilterFunc func(payload any) bool

// Match implements Filter.
func (f FilterFunc) Match(payload any) bool {
	return f(payload)
}

// Common filter predicates for subscriptions.

// FilterPayload creates a filter over a typed payload.
// Payloads of another type are filtered out.
func FilterPayload[T any](predicate func(payload T) bool) FilterFunc {
	return func(payload any) bool {
		if p, ok := payload.(T); ok {
			return predicate(p)
		}
		return false
	}
}

// FilterAnd combines multiple filters with AND logic.
// All filters must pass for the event to be delivered.
func FilterAnd(filters ...Filter) FilterFunc {
	return func(payload any) bool {
		for _, f := range filters {
			if !f.Match(payload) {
				return false
			}
		}
		return true
	}
}

// FilterOr combines multiple filters with OR logic.
// At least one filter must pass for the event to be delivered.
func FilterOr(filters ...Filter) FilterFunc {
	return func(payload any) bool {
		for _, f := range filters {
			if f.Match(payload) {
				return true
			}
		}
		return false
	}
}

// FilterNot negates a filter.
func FilterNot(filter Filter) FilterFunc {
	return func(payload any) bool {
		return !filter.Match(payload)
	}
}

// FilterAll allows all events (no filtering).
func FilterAll() FilterFunc {
	return func(payload any) bool {
		return true
	}
}

// FilterNone blocks all events.
func FilterNone() FilterFunc {
	return func(payload any) bool {
		return false
	}
}
