package trace

import (
	"strings"

	"github.com/yousuf/stepbyte/internal/interp"
	"github.com/yousuf/stepbyte/internal/sanitize"
)

// DefaultLibraryPatterns mark frames whose filename contains any of them as
// library code.
var DefaultLibraryPatterns = []string{"<frozen", "/lib/"}

// Instrumenter turns interpreter events into raw states. It implements
// interp.Hook.
type Instrumenter struct {
	tracker  *Tracker
	patterns []string
	states   []RawState
}

var _ interp.Hook = (*Instrumenter)(nil)

// NewInstrumenter returns an Instrumenter skipping frames that match
// patterns; nil selects DefaultLibraryPatterns.
func NewInstrumenter(patterns []string) *Instrumenter {
	if patterns == nil {
		patterns = DefaultLibraryPatterns
	}
	return &Instrumenter{tracker: NewTracker(), patterns: patterns}
}

// IsLibrary reports whether filename belongs to library code.
func (ins *Instrumenter) IsLibrary(filename string) bool {
	for _, p := range ins.patterns {
		if p != "" && strings.Contains(filename, p) {
			return true
		}
	}
	return false
}

func (ins *Instrumenter) OnCall(fr *interp.Frame) bool {
	if ins.IsLibrary(fr.Filename) {
		return false
	}
	ins.tracker.Push(fr.Function, fr.FirstLine)
	return true
}

func (ins *Instrumenter) OnLine(fr *interp.Frame) {
	st := ins.base(fr, EventStep)
	st.Variables = captureLocals(fr)
	st.StackDepth = ins.tracker.Depth()
	ins.states = append(ins.states, st)
}

func (ins *Instrumenter) OnReturn(fr *interp.Frame, result interp.Value) {
	if ins.tracker.Depth() == 0 {
		return
	}
	rv := sanitize.Return(result)
	st := ins.base(fr, EventReturn)
	st.Variables = Variables{{Name: "return_value", Value: rv}}
	st.StackDepth = ins.tracker.Depth() - 1
	st.ReturnValue = &rv
	ins.states = append(ins.states, st)
	ins.tracker.Pop()
}

func (ins *Instrumenter) OnException(fr *interp.Frame, exc *interp.Exception) {
	st := ins.base(fr, EventException)
	st.Variables = Variables{
		{Name: "exception_type", Value: sanitize.Text(exc.Type)},
		{Name: "exception_message", Value: sanitize.Text(exc.Message)},
	}
	st.StackDepth = ins.tracker.Depth()
	st.Error = true
	ins.states = append(ins.states, st)
}

func (ins *Instrumenter) base(fr *interp.Frame, ev EventType) RawState {
	st := RawState{
		EventType: ev,
		Line:      fr.Line,
		Function:  fr.Function,
		CallStack: ins.tracker.Stack(),
	}
	if top := ins.tracker.Top(); top != nil {
		st.CallID = top.CallID
		st.ParentID = top.ParentID
	}
	return st
}

func captureLocals(fr *interp.Frame) Variables {
	locals := fr.Locals()
	vars := make(Variables, 0, len(locals))
	for _, b := range locals {
		vars = append(vars, Variable{Name: b.Name, Value: sanitize.Sanitize(b.Value)})
	}
	return vars
}

// States returns the states recorded so far.
func (ins *Instrumenter) States() []RawState { return ins.states }

// Calls returns the call hierarchy recorded so far.
func (ins *Instrumenter) Calls() []CallRecord { return ins.tracker.Records() }
