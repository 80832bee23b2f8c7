package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCaptureListeners(t *testing.T) {
	doc := MustParseString(fixture)
	inner := doc.GetElementByID("inner")

	var calls []string
	first := doc.AddCaptureListener("click", func(ev *Event) {
		calls = append(calls, "first:"+ev.Target().ID())
	})
	doc.AddCaptureListener("click", func(ev *Event) {
		calls = append(calls, "second")
	})
	doc.AddCaptureListener("keyup", func(ev *Event) {
		calls = append(calls, "keyup")
	})

	assert.Equal(t, 2, doc.ListenerCount("click"))

	ev := doc.Fire("click", inner)
	assert.Equal(t, []string{"first:inner", "second"}, calls)
	assert.Equal(t, "click", ev.Type())

	assert.True(t, doc.RemoveCaptureListener("click", first))
	assert.False(t, doc.RemoveCaptureListener("click", first))
	assert.Equal(t, 1, doc.ListenerCount("click"))
}

func TestDispatch_DefaultAction(t *testing.T) {
	doc := MustParseString(fixture)
	inner := doc.GetElementByID("inner")

	var followed int
	doc.SetDefaultAction("click", func(ev *Event) { followed++ })

	assert.True(t, doc.Dispatch(NewEvent("click", inner)))
	assert.Equal(t, 1, followed)

	doc.AddCaptureListener("click", func(ev *Event) { ev.PreventDefault() })
	ev := NewEvent("click", inner)
	assert.False(t, doc.Dispatch(ev))
	assert.True(t, ev.DefaultPrevented())
	assert.Equal(t, 1, followed, "prevented default must not run")

	doc.SetDefaultAction("click", nil)
}

func TestDispatch_StopImmediate(t *testing.T) {
	doc := MustParseString(fixture)
	target := doc.GetElementByID("mid")

	var calls int
	doc.AddCaptureListener("click", func(ev *Event) {
		calls++
		ev.StopImmediatePropagation()
	})
	doc.AddCaptureListener("click", func(ev *Event) { calls++ })

	ev := doc.Fire("click", target)
	require.True(t, ev.PropagationStopped())
	assert.Equal(t, 1, calls)
}

func TestDispatch_ListenerAddedDuringDispatch(t *testing.T) {
	doc := MustParseString(fixture)
	target := doc.GetElementByID("mid")

	var late int
	doc.AddCaptureListener("click", func(ev *Event) {
		doc.AddCaptureListener("click", func(ev *Event) { late++ })
	})

	doc.Fire("click", target)
	assert.Equal(t, 0, late)
	doc.Fire("click", target)
	assert.Equal(t, 1, late)
}

func TestDispatch_AfterDefault(t *testing.T) {
	doc := MustParseString(fixture)
	target := doc.GetElementByID("inner")

	var order []string
	doc.SetDefaultAction("submit", func(ev *Event) { order = append(order, "default") })
	doc.AddCaptureListener("submit", func(ev *Event) {
		ev.AfterDefault(func() { order = append(order, "after") })
		order = append(order, "listener")
	})

	doc.Fire("submit", target)
	assert.Equal(t, []string{"listener", "default", "after"}, order)

	// Tasks run in queue order even when the default was prevented.
	order = nil
	ev := NewEvent("submit", target)
	ev.AfterDefault(func() { order = append(order, "early") })
	ev.PreventDefault()
	doc.Dispatch(ev)
	assert.Equal(t, []string{"listener", "early", "after"}, order)
}
