// Package simplify reduces filtered raw states to the compact form a viewer
// steps through.
package simplify

import (
	"strings"

	"github.com/yousuf/stepbyte/internal/sanitize"
	"github.com/yousuf/stepbyte/internal/trace"
)

// State is one step of the simplified trace.
type State struct {
	Line       int                `json:"line"`
	Function   string             `json:"function"`
	Variables  trace.Variables    `json:"variables"`
	CallID     trace.CallID       `json:"callId"`
	ParentID   trace.CallID       `json:"parentId"`
	StackDepth int                `json:"stackDepth"`
	EventType  trace.EventType    `json:"eventType"`
	CallStack  []trace.StackFrame `json:"callStack,omitempty"`
	// ReturnValue is set on return states.
	ReturnValue  *sanitize.Value `json:"returnValue,omitempty"`
	Error        bool            `json:"error,omitempty"`
	ErrorMessage string          `json:"errorMessage,omitempty"`
	// Output and ErrorOutput are only ever set on the final state of a run.
	Output      string `json:"output,omitempty"`
	ErrorOutput string `json:"errorOutput,omitempty"`
}

var reservedFuncs = map[string]bool{
	"decode":   true,
	"__init__": true,
	"__new__":  true,
}

func reserved(fn string) bool {
	return reservedFuncs[fn] || strings.HasPrefix(fn, "_")
}

// States simplifies states. The result is a subsequence of the input in the
// same order.
func States(states []trace.RawState) []State {
	out := make([]State, 0, len(states))
	for _, st := range dedupeErrors(states) {
		if reserved(st.Function) {
			continue
		}
		s := State{
			Line:        st.Line,
			Function:    st.Function,
			Variables:   Clean(st.Variables),
			CallID:      st.CallID,
			ParentID:    st.ParentID,
			StackDepth:  st.StackDepth,
			EventType:   st.EventType,
			ReturnValue: st.ReturnValue,
		}
		if s.EventType == "" {
			s.EventType = trace.EventStep
		}
		if len(st.CallStack) > 0 {
			s.CallStack = append([]trace.StackFrame(nil), st.CallStack...)
		}
		if st.Error {
			s.Error = true
			s.ErrorMessage = errorMessage(st)
		}
		if st.Output != nil {
			s.Output = *st.Output
		}
		s.ErrorOutput = st.ErrorOutput

		if len(s.Variables) > 0 || s.Error || s.EventType != trace.EventStep {
			out = append(out, s)
		}
	}
	return out
}

// dedupeErrors keeps only the chronologically last error state of each
// function.
func dedupeErrors(states []trace.RawState) []trace.RawState {
	seen := make(map[string]bool)
	drop := make([]bool, len(states))
	for i := len(states) - 1; i >= 0; i-- {
		st := states[i]
		if !st.Error {
			continue
		}
		if seen[st.Function] {
			drop[i] = true
			continue
		}
		seen[st.Function] = true
	}
	out := make([]trace.RawState, 0, len(states))
	for i, st := range states {
		if !drop[i] {
			out = append(out, st)
		}
	}
	return out
}

func errorMessage(st trace.RawState) string {
	if st.ErrorDetails != nil {
		return st.ErrorDetails.Message
	}
	if msg, ok := st.Variables.Get("exception_message"); ok {
		if s, ok := msg.TextValue(); ok {
			return s
		}
		return msg.String()
	}
	return ""
}

// Clean drops dunder names and opaque values that only name an object,
// such as functions and modules.
func Clean(vars trace.Variables) trace.Variables {
	out := make(trace.Variables, 0, len(vars))
	for _, v := range vars {
		if strings.HasPrefix(v.Name, "__") && strings.HasSuffix(v.Name, "__") {
			continue
		}
		if v.Value.Kind() == sanitize.KindOpaqueText {
			s, _ := v.Value.TextValue()
			if strings.Contains(s, "module") || strings.Contains(s, "<") && strings.Contains(s, ">") {
				continue
			}
		}
		out = append(out, v)
	}
	return out
}
