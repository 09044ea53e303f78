package simplify

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yousuf/stepbyte/internal/filter"
	"github.com/yousuf/stepbyte/internal/sanitize"
	"github.com/yousuf/stepbyte/internal/trace"
)

func pipeline(t *testing.T, src string) []State {
	t.Helper()
	run, err := trace.Execute(context.Background(), []byte(src), "", trace.Options{Filename: "/tmp/stage/main.py"})
	require.NoError(t, err)
	return States(filter.States(run.States))
}

func TestSimpleProgram(t *testing.T) {
	states := pipeline(t, "x = 1\nx = x + 1\nprint(x)\n")
	require.NotEmpty(t, states)
	for _, st := range states {
		require.Equal(t, "<module>", st.Function)
		require.False(t, st.Error)
		_, ok := st.Variables.Get("__name__")
		require.False(t, ok)
	}
	last := states[len(states)-1]
	require.Equal(t, "2\n", last.Output)
	for _, st := range states[:len(states)-1] {
		require.Empty(t, st.Output)
	}
}

func TestDivisionByZero(t *testing.T) {
	states := pipeline(t, "def divide(a, b):\n    return a / b\n\nresult = divide(10, 0)\nprint(result)\n")
	last := states[len(states)-1]
	require.True(t, last.Error)
	require.NotEmpty(t, last.ErrorMessage)
	require.Equal(t, "division by zero", last.ErrorMessage)

	for _, st := range states {
		if st.Function == "divide" && st.EventType == trace.EventStep {
			a, ok := st.Variables.Get("a")
			require.True(t, ok)
			require.True(t, sanitize.Int(10).Equal(a))
		}
		_, ok := st.Variables.Get("divide")
		require.False(t, ok, "function objects are not shown")
	}
}

func TestRecursionDepths(t *testing.T) {
	states := pipeline(t, "def fact(n):\n    if n <= 1:\n        return 1\n    return n * fact(n - 1)\n\nprint(fact(3))\n")
	var entries, returns []int
	seen := map[trace.CallID]bool{}
	for _, st := range states {
		if st.Function != "fact" {
			continue
		}
		switch st.EventType {
		case trace.EventStep:
			if !seen[st.CallID] {
				seen[st.CallID] = true
				entries = append(entries, st.StackDepth)
			}
		case trace.EventReturn:
			returns = append(returns, st.StackDepth)
			require.NotNil(t, st.ReturnValue)
		}
	}
	require.Equal(t, []int{2, 3, 4}, entries)
	require.Equal(t, []int{3, 2, 1}, returns)
}

func TestDedupeErrors(t *testing.T) {
	msg := func(fn, m string) trace.RawState {
		return trace.RawState{
			EventType: trace.EventException,
			Function:  fn,
			Error:     true,
			Variables: trace.Variables{
				{Name: "exception_type", Value: sanitize.Text("ValueError")},
				{Name: "exception_message", Value: sanitize.Text(m)},
			},
		}
	}
	in := []trace.RawState{
		msg("f", "first"),
		{EventType: trace.EventStep, Function: "f", Variables: trace.Variables{{Name: "x", Value: sanitize.Int(1)}}},
		msg("f", "second"),
		msg("g", "third"),
		msg("_hidden", "fourth"),
	}
	got := States(in)
	require.Len(t, got, 3)
	require.False(t, got[0].Error)
	require.Equal(t, "second", got[1].ErrorMessage)
	require.Equal(t, "third", got[2].ErrorMessage)
}

func TestErrorDetailsWin(t *testing.T) {
	in := []trace.RawState{{
		EventType:    trace.EventException,
		Function:     "main",
		Error:        true,
		Variables:    trace.Variables{{Name: "exception_message", Value: sanitize.Text("from variables")}},
		ErrorDetails: &trace.ErrorDetails{Type: "ValueError", Message: "from details"},
	}}
	require.Equal(t, "from details", States(in)[0].ErrorMessage)
}

func TestDropsEmptySteps(t *testing.T) {
	in := []trace.RawState{
		{EventType: trace.EventStep, Function: "<module>", Variables: trace.Variables{
			{Name: "__name__", Value: sanitize.Text("__main__")},
		}},
		{EventType: trace.EventReturn, Function: "<module>"},
		{EventType: trace.EventStep, Function: "__init__", Variables: trace.Variables{{Name: "x", Value: sanitize.Int(1)}}},
	}
	got := States(in)
	require.Len(t, got, 1)
	require.Equal(t, trace.EventReturn, got[0].EventType)
}

func TestClean(t *testing.T) {
	got := Clean(trace.Variables{
		{Name: "__file__", Value: sanitize.Text("main.py")},
		{Name: "f", Value: sanitize.Opaque("<function f>")},
		{Name: "m", Value: sanitize.Opaque("<module 'math'>")},
		{Name: "tag", Value: sanitize.Text("<b>")},
		{Name: "xs", Value: sanitize.Opaque("[1, 2]")},
		{Name: "n", Value: sanitize.Int(3)},
	})
	var names []string
	for _, v := range got {
		names = append(names, v.Name)
	}
	require.Equal(t, []string{"tag", "xs", "n"}, names)
}

func TestJSON(t *testing.T) {
	rv := sanitize.Int(6)
	out := "6\n"
	in := []trace.RawState{{
		EventType:   trace.EventReturn,
		Line:        4,
		Function:    "fact",
		Variables:   trace.Variables{{Name: "return_value", Value: rv}},
		CallID:      "fact_2",
		ParentID:    "<module>_1",
		StackDepth:  1,
		ReturnValue: &rv,
		CallStack:   []trace.StackFrame{{Function: "fact", Line: 1, CallID: "fact_2", ParentID: "<module>_1"}},
		Output:      &out,
	}}
	data, err := json.Marshal(States(in))
	require.NoError(t, err)
	require.JSONEq(t, `[{
		"line": 4,
		"function": "fact",
		"variables": {"return_value": 6},
		"callId": "fact_2",
		"parentId": "<module>_1",
		"stackDepth": 1,
		"eventType": "return",
		"callStack": [{"function": "fact", "line": 1, "call_id": "fact_2", "parent_id": "<module>_1"}],
		"returnValue": 6,
		"output": "6\n"
	}]`, string(data))
}

func TestDeterministic(t *testing.T) {
	run, err := trace.Execute(context.Background(), []byte("xs = [3, 1, 2]\nxs.sort()\nfor x in xs:\n    print(x)\n"), "", trace.Options{})
	require.NoError(t, err)
	filtered := filter.States(run.States)
	require.Equal(t, States(filtered), States(filtered))
}
