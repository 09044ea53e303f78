// Package filter drops raw states that add nothing to a step-through view.
package filter

import (
	"strings"

	"github.com/yousuf/stepbyte/internal/trace"
)

// Threshold is the largest run that is passed through untouched.
const Threshold = 10

// errorHead is how many leading user states survive on the error path.
const errorHead = 5

var internalFuncs = map[string]bool{
	"format_exc":       true,
	"format_exception": true,
	"lazycache":        true,
	"checkcache":       true,
	"<listcomp>":       true,
	"decode":           true,
	"__init__":         true,
}

// Internal reports whether fn names error-unwinding or runtime machinery
// rather than user logic.
func Internal(fn string) bool {
	return internalFuncs[fn] || strings.HasPrefix(fn, "_")
}

// States returns the subsequence of states worth showing. The input is not
// modified and the result preserves relative order.
func States(states []trace.RawState) []trace.RawState {
	if len(states) <= Threshold {
		return states
	}
	for _, st := range states {
		if st.Error {
			return errorPath(states)
		}
	}
	return stepPath(states)
}

// errorPath keeps the first few user states and every error state.
func errorPath(states []trace.RawState) []trace.RawState {
	var out []trace.RawState
	user := 0
	for _, st := range states {
		if Internal(st.Function) {
			continue
		}
		if user < errorHead || st.Error {
			out = append(out, st)
		}
		user++
	}
	return out
}

// stepPath keeps a state whenever something visible changed since the last
// kept one, and always keeps the final state.
func stepPath(states []trace.RawState) []trace.RawState {
	var (
		out      []trace.RawState
		prev     trace.RawState
		lastKept = -1
	)
	for i, st := range states {
		keep := lastKept < 0 ||
			st.EventType != prev.EventType ||
			st.EventType == trace.EventReturn ||
			st.EventType == trace.EventException ||
			st.Line != prev.Line ||
			st.Function != prev.Function ||
			st.Variables.Changed(prev.Variables) ||
			st.Error
		if keep {
			out = append(out, st)
			prev = st
			lastKept = i
		}
	}
	if last := len(states) - 1; lastKept != last {
		out = append(out, states[last])
	}
	return out
}
