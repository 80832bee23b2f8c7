// Package topic provides custom-event topics and pattern matching for the event bus.
//
// # Topic Format
//
// A topic names the emitter and the event, separated by a colon:
//
//	UI:click          a click coming from the document
//	UI:clickoutside   the "outside" companion of UI:click
//	red:save          an application event emitted by "red"
//
// # Wildcards
//
// Either part may be the wildcard "*":
//
//	*:click   click from any emitter
//	UI:*      any event from the UI emitter
//	*:*       everything
//
// An emission of UI:click is delivered to subscribers of the four classes
// returned by Topic.Classes, in that order.
//
// # Pattern Matching
//
// The Matcher type stores patterns in a small trie. Match answers which
// patterns a concrete topic falls under; Overlapping additionally treats
// wildcards in the queried topic as wildcards, which is what notification
// hooks need when someone subscribes to "*:click".
//
// # Usage
//
//	m := topic.NewMatcher()
//	m.Add(topic.Topic("UI:*"))
//
//	m.Match(topic.Topic("UI:click"))       // [UI:*]
//	m.Overlapping(topic.Topic("*:click"))  // [UI:*]
package topic
