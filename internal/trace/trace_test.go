package trace

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yousuf/stepbyte/internal/interp"
	"github.com/yousuf/stepbyte/internal/sanitize"
)

func TestTracker(t *testing.T) {
	tr := NewTracker()
	mod := tr.Push("<module>", 1)
	require.Equal(t, CallID("<module>_1"), mod.CallID)
	require.Equal(t, CallID(""), mod.ParentID)
	require.Equal(t, 0, mod.StackDepth)

	f := tr.Push("f", 3)
	require.Equal(t, CallID("f_2"), f.CallID)
	require.Equal(t, mod.CallID, f.ParentID)
	require.Equal(t, 1, f.StackDepth)
	require.Equal(t, 2, tr.Depth())
	require.Equal(t, []StackFrame{
		{Function: "<module>", Line: 1, CallID: "<module>_1"},
		{Function: "f", Line: 3, CallID: "f_2", ParentID: "<module>_1"},
	}, tr.Stack())

	popped, ok := tr.Pop()
	require.True(t, ok)
	require.Equal(t, f, popped)
	g := tr.Push("f", 3)
	require.Equal(t, CallID("f_3"), g.CallID)

	recs := tr.Records()
	require.Len(t, recs, 3)
	require.Equal(t, []CallID{"f_2", "f_3"}, recs[0].Children)
	got, ok := tr.Lookup("f_3")
	require.True(t, ok)
	require.Equal(t, g, got)
}

func execute(t *testing.T, src string, opts Options) *Run {
	t.Helper()
	if opts.Filename == "" {
		opts.Filename = "/tmp/stage/main.py"
	}
	run, err := Execute(context.Background(), []byte(src), "", opts)
	require.NoError(t, err)
	return run
}

func TestExecuteSimpleProgram(t *testing.T) {
	run := execute(t, "x = 1\nx = x + 1\nprint(x)\n", Options{})
	require.Equal(t, OutcomeCompleted, run.Outcome)
	require.Len(t, run.Calls, 1)
	require.Equal(t, "<module>", run.Calls[0].Function)

	var events []EventType
	for _, st := range run.States {
		require.False(t, st.Error)
		require.Equal(t, "<module>", st.Function)
		events = append(events, st.EventType)
	}
	require.Equal(t, []EventType{EventStep, EventStep, EventStep, EventReturn}, events)

	x, ok := run.States[2].Variables.Get("x")
	require.True(t, ok)
	require.True(t, sanitize.Int(2).Equal(x))

	last := run.States[len(run.States)-1]
	require.NotNil(t, last.Output)
	require.Equal(t, "2\n", *last.Output)
	for _, st := range run.States[:len(run.States)-1] {
		require.Nil(t, st.Output)
	}
}

func TestExecuteRecursion(t *testing.T) {
	src := "def fact(n):\n    if n <= 1:\n        return 1\n    return n * fact(n - 1)\nresult = fact(3)\nprint(result)\n"
	run := execute(t, src, Options{})
	require.Equal(t, OutcomeCompleted, run.Outcome)

	var depths []int
	ids := map[CallID]bool{}
	for _, rec := range run.Calls {
		require.False(t, ids[rec.CallID], "duplicate call id %s", rec.CallID)
		if rec.ParentID != "" {
			require.True(t, ids[rec.ParentID], "parent %s not created before %s", rec.ParentID, rec.CallID)
		}
		ids[rec.CallID] = true
		if rec.Function == "fact" {
			depths = append(depths, rec.StackDepth)
		}
	}
	require.Equal(t, []int{1, 2, 3}, depths)

	var returns []int
	for _, st := range run.States {
		if st.EventType == EventReturn && st.Function == "fact" {
			returns = append(returns, st.StackDepth)
		}
	}
	require.Equal(t, []int{3, 2, 1}, returns)

	final := run.States[len(run.States)-2]
	require.Equal(t, 6, final.Line)
	v, ok := final.Variables.Get("result")
	require.True(t, ok)
	require.True(t, sanitize.Int(6).Equal(v))
}

func TestExecuteRuntimeError(t *testing.T) {
	run := execute(t, "def divide(a, b):\n    return a / b\nprint(divide(1, 0))\n", Options{
		Traceback: func(exc *interp.Exception) string { return "Traceback: " + exc.Error() },
	})
	require.Equal(t, OutcomeException, run.Outcome)
	require.NotNil(t, run.Exception)

	last := run.States[len(run.States)-1]
	require.True(t, last.Error)
	require.Equal(t, "main", last.Function)
	require.Equal(t, -1, last.Line)
	require.Equal(t, CallID(""), last.CallID)
	require.NotNil(t, last.ErrorDetails)
	require.Equal(t, "ZeroDivisionError", last.ErrorDetails.Type)
	require.Equal(t, "division by zero", last.ErrorDetails.Message)
	require.Equal(t, "Traceback: ZeroDivisionError: division by zero", last.ErrorDetails.Traceback)

	var excFuncs []string
	for _, st := range run.States[:len(run.States)-1] {
		if st.EventType == EventException {
			excFuncs = append(excFuncs, st.Function)
			msg, _ := st.Variables.Get("exception_message")
			require.Equal(t, "division by zero", msg.String())
		}
	}
	require.Equal(t, []string{"divide", "<module>"}, excFuncs)
}

func TestExecuteSyntaxError(t *testing.T) {
	run := execute(t, "x = 1\ndef f(:\n", Options{})
	require.Equal(t, OutcomeSyntaxError, run.Outcome)
	require.Len(t, run.States, 1)
	st := run.States[0]
	require.True(t, st.Error)
	require.Equal(t, 2, st.Line)
	require.Equal(t, "SyntaxError", st.ErrorDetails.Type)
	require.Contains(t, st.ErrorDetails.Message, "(main.py, line 2)")
	require.Empty(t, run.Calls)
}

func TestExecuteSkipsLibraryFrames(t *testing.T) {
	run := execute(t, "doubled = map(lambda x: x * 2, [1, 2])\n", Options{})
	require.Equal(t, OutcomeCompleted, run.Outcome)
	for _, st := range run.States {
		require.NotEqual(t, "map", st.Function)
	}
	require.Len(t, run.Calls, 3)
	for _, rec := range run.Calls[1:] {
		require.Equal(t, "<lambda>", rec.Function)
		require.Equal(t, CallID("<module>_1"), rec.ParentID)
		require.Equal(t, 1, rec.StackDepth)
	}
}

func TestExecuteStreams(t *testing.T) {
	run := execute(t, "print(\"hello world\")\nprint(\"warn\", file=sys.stderr)\n", Options{MaxOutputBytes: 5})
	require.Equal(t, "hello"+TruncationMarker, run.Stdout)
	require.Equal(t, "warn\n", run.Stderr)
	last := run.States[len(run.States)-1]
	require.Equal(t, "warn\n", last.ErrorOutput)

	run, err := Execute(context.Background(), []byte("name = input()\nprint(name.upper())\n"), "ada\n", Options{})
	require.NoError(t, err)
	require.Equal(t, "ADA\n", run.Stdout)
}

func TestExecuteLimits(t *testing.T) {
	run := execute(t, "while True:\n    pass\n", Options{MaxSteps: 100})
	require.Equal(t, OutcomeStepLimit, run.Outcome)
	require.True(t, run.States[len(run.States)-1].Error)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	run, err := Execute(ctx, []byte("x = 1\n"), "", Options{})
	require.NoError(t, err)
	require.Equal(t, OutcomeTimeout, run.Outcome)
}

func TestVariablesJSON(t *testing.T) {
	vars := Variables{
		{Name: "b", Value: sanitize.Int(1)},
		{Name: "a", Value: sanitize.Opaque("[1, 2]")},
	}
	data, err := json.Marshal(vars)
	require.NoError(t, err)
	require.Equal(t, `{"b":1,"a":"[1, 2]"}`, string(data))

	var back Variables
	require.NoError(t, json.Unmarshal(data, &back))
	require.Len(t, back, 2)
	require.Equal(t, "b", back[0].Name)
	require.False(t, vars.Changed(Variables{{Name: "b", Value: sanitize.Int(1)}, {Name: "a", Value: sanitize.Opaque("[1, 2]")}}))
	require.True(t, vars.Changed(Variables{{Name: "b", Value: sanitize.Int(2)}, {Name: "a", Value: sanitize.Opaque("[1, 2]")}}))
	require.True(t, vars.Changed(Variables{{Name: "b", Value: sanitize.Int(1)}}))
}

func TestRawStateJSON(t *testing.T) {
	st := RawState{EventType: EventStep, Line: 3, Function: "f", Variables: Variables{}, CallStack: []StackFrame{}}
	data, err := json.Marshal(st)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(data), `"callId":null`), string(data))
}
