// Package dom models the document the delegation layer listens on: an
// HTML tree parsed with golang.org/x/net/html, CSS selector matching via
// cascadia, and native events delivered to document-level capture
// listeners.
//
// Events do not travel through the tree here. A capture listener at the
// document receives every event of its type with the deepest target, and
// the delegation layer reconstructs the bubble path itself.
package dom
