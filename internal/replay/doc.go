// Package replay runs delegation scenarios against an in-memory document.
//
// A scenario is a YAML file holding an HTML document, the subscriptions to
// register and the steps to perform:
//
//	name: dropdown
//	document: |
//	  <div id="menu"><a id="open" class="item">open</a></div>
//	  <p id="page">text</p>
//	subscriptions:
//	  - label: item
//	    event: click
//	    selector: "#menu .item"
//	    action: stopPropagation
//	  - label: close
//	    event: clickoutside
//	    selector: "#menu"
//	steps:
//	  - dispatch: click
//	    target: "#open"
//	  - dispatch: click
//	    target: "#page"
//	expect: [item, default, close, default]
//
// Running it yields a Trace: one entry per subscriber invocation and per
// default action, in execution order, plus the state of each native event.
package replay
