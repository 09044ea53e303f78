package trace

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/yousuf/stepbyte/internal/interp"
	"github.com/yousuf/stepbyte/internal/sanitize"
)

// Options configures Execute.
type Options struct {
	// Filename is the path frames of the main module report.
	Filename string
	// DisplayName replaces Filename in diagnostics. Defaults to the base
	// name of Filename.
	DisplayName     string
	LibraryPatterns []string
	MaxSteps        int
	MaxDepth        int
	// MaxOutputBytes caps each of stdout and stderr.
	MaxOutputBytes int
	// Traceback renders the diagnostic text of an escaped exception.
	Traceback func(*interp.Exception) string
}

// Run is the outcome of one traced execution.
type Run struct {
	States  []RawState
	Calls   []CallRecord
	Outcome Outcome
	Stdout  string
	Stderr  string
	// Exception is the exception that ended the run, if any.
	Exception *interp.Exception
	Steps     int
}

// Execute compiles and runs src with stdin as its standard input. Failures
// of the program itself are reported in the returned Run; an error means
// the evaluator itself failed.
func Execute(ctx context.Context, src []byte, stdin string, opts Options) (*Run, error) {
	if opts.Filename == "" {
		opts.Filename = "<string>"
	}
	if opts.DisplayName == "" {
		opts.DisplayName = filepath.Base(opts.Filename)
	}
	format := opts.Traceback
	if format == nil {
		format = func(exc *interp.Exception) string { return exc.Error() }
	}

	run := &Run{Outcome: OutcomeCompleted}
	prog, err := compile(opts.Filename, src)
	if err != nil {
		var exc *interp.Exception
		if !errors.As(err, &exc) {
			return nil, errors.Wrap(err, "compiling source")
		}
		line := exc.Lineno()
		msg := exc.Message
		if line > 0 {
			msg = fmt.Sprintf("%s (%s, line %d)", exc.Message, opts.DisplayName, line)
		}
		run.Outcome = OutcomeSyntaxError
		run.Exception = exc
		run.States = []RawState{synthetic(exc.Type, msg, line, format(exc))}
		attachOutput(run.States, "", "")
		return run, nil
	}

	stdout := newCappedBuffer(opts.MaxOutputBytes)
	stderr := newCappedBuffer(opts.MaxOutputBytes)
	ins := NewInstrumenter(opts.LibraryPatterns)
	in := interp.New(interp.Options{
		Stdout:   stdout,
		Stderr:   stderr,
		Stdin:    strings.NewReader(stdin),
		Hook:     ins,
		MaxDepth: opts.MaxDepth,
		MaxSteps: opts.MaxSteps,
	})
	err = in.Exec(ctx, prog)
	run.Steps = in.Steps()
	states := ins.States()
	if err != nil {
		var exc *interp.Exception
		if !errors.As(err, &exc) {
			return nil, errors.Wrap(err, "executing source")
		}
		run.Exception = exc
		run.Outcome = outcomeOf(exc)
		if len(states) == 0 || !states[len(states)-1].Error {
			states = append(states, synthetic(exc.Type, exc.Message, -1, format(exc)))
		}
	}
	run.Stdout, run.Stderr = stdout.String(), stderr.String()
	attachOutput(states, run.Stdout, run.Stderr)
	run.States = states
	run.Calls = ins.Calls()
	return run, nil
}

// compile turns a parser panic into an evaluator error.
func compile(filename string, src []byte) (prog *interp.Program, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.AssertionFailedf("parser panic: %v", r)
		}
	}()
	return interp.Compile(filename, src)
}

func outcomeOf(exc *interp.Exception) Outcome {
	switch {
	case errors.Is(exc, interp.ErrDeadline), errors.Is(exc, interp.ErrCanceled):
		return OutcomeTimeout
	case errors.Is(exc, interp.ErrStepLimit):
		return OutcomeStepLimit
	}
	return OutcomeException
}

// synthetic builds the terminal error state used when no traced frame
// recorded the failure.
func synthetic(typ, msg string, line int, tb string) RawState {
	return RawState{
		EventType: EventException,
		Line:      line,
		Function:  "main",
		Variables: Variables{{Name: "exception", Value: sanitize.Text(msg)}},
		CallStack: []StackFrame{},
		Error:     true,
		ErrorDetails: &ErrorDetails{
			Type:      typ,
			Message:   msg,
			Traceback: tb,
		},
	}
}

func attachOutput(states []RawState, stdout, stderr string) {
	if len(states) == 0 {
		return
	}
	last := &states[len(states)-1]
	last.Output = &stdout
	last.ErrorOutput = stderr
}
