package dom

import "errors"

// Sentinel errors for the dom package.
var (
	// ErrNotFound is returned when no node matches a query.
	ErrNotFound = errors.New("node not found")

	// ErrForeignNode is returned when a node belongs to another document.
	ErrForeignNode = errors.New("node belongs to another document")

	// ErrNotChild is returned by RemoveChild for a node of another parent.
	ErrNotChild = errors.New("node is not a child of the given parent")

	// ErrHierarchy is returned when an insertion would create a cycle or
	// move an attached node.
	ErrHierarchy = errors.New("invalid node hierarchy")
)

// SelectorError reports a selector that failed to compile.
type SelectorError struct {
	Selector string
	Err      error
}

// Error implements the error interface.
func (e *SelectorError) Error() string {
	return "invalid selector " + e.Selector + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *SelectorError) Unwrap() error {
	return e.Err
}
