package interp

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Hook receives execution events. OnCall fires for every new frame; its
// result decides whether OnLine, OnReturn and OnException are delivered for
// that frame. Frames not traced by their hook still execute normally and
// frames they create are offered to OnCall again.
type Hook interface {
	OnCall(fr *Frame) bool
	// OnLine fires before the statement on fr.Line executes.
	OnLine(fr *Frame)
	// OnReturn fires when a traced frame exits. result is None when the
	// frame is unwound by an exception.
	OnReturn(fr *Frame, result Value)
	// OnException fires once for every frame an exception passes through.
	OnException(fr *Frame, exc *Exception)
}

// Frame is one activation of a function or of the module body.
type Frame struct {
	Function  string
	Filename  string
	FirstLine int
	// Line is the line currently executing.
	Line int
	Back *Frame

	env     *env
	globals *scope
	traced  bool
	result  Value
}

// Binding is a name bound in a frame's local scope.
type Binding struct {
	Name  string
	Value Value
}

// Locals returns the names bound in the frame's own scope in binding order.
// For the module frame these are the globals.
func (fr *Frame) Locals() []Binding {
	sc := fr.env.vars
	out := make([]Binding, 0, len(sc.names))
	for _, name := range sc.names {
		out = append(out, Binding{Name: name, Value: sc.vals[name]})
	}
	return out
}

// Traced reports whether the hook accepted line tracing for this frame.
func (fr *Frame) Traced() bool { return fr.traced }

// scope is an insertion ordered symbol table.
type scope struct {
	names []string
	vals  map[string]Value
}

func newScope() *scope {
	return &scope{vals: make(map[string]Value)}
}

func (s *scope) get(name string) (Value, bool) {
	v, ok := s.vals[name]
	return v, ok
}

func (s *scope) set(name string, v Value) {
	if _, ok := s.vals[name]; !ok {
		s.names = append(s.names, name)
	}
	s.vals[name] = v
}

// env links a scope to its lexically enclosing scopes. locals is the static
// set of names local to a function body; it is nil for the module scope and
// for comprehension scopes.
type env struct {
	vars   *scope
	locals map[string]bool
	parent *env
}

func (in *Interpreter) lookup(fr *Frame, e *env, name string) (Value, error) {
	first := true
	for ; e != nil; e = e.parent {
		if v, ok := e.vars.get(name); ok {
			return v, nil
		}
		if e.locals[name] {
			if first {
				return nil, newError("UnboundLocalError",
					"cannot access local variable '%s' where it is not associated with a value", name)
			}
			return nil, newError("NameError",
				"cannot access free variable '%s' where it is not associated with a value in enclosing scope", name)
		}
		if e.locals != nil {
			first = false
		}
	}
	if v, ok := fr.globals.get(name); ok {
		return v, nil
	}
	if v, ok := in.builtins[name]; ok {
		return v, nil
	}
	return nil, newError("NameError", "name '%s' is not defined", name)
}

// Exception is an error raised by traced code. It implements error so it can
// flow through Go error returns; Unwrap exposes the limit that caused it, if
// any.
type Exception struct {
	Type    string
	Message string
	// Traceback lists the frames the exception passed through, innermost
	// last.
	Traceback []TracebackEntry

	cause error
}

// TracebackEntry is one frame of an exception's traceback.
type TracebackEntry struct {
	Filename string
	Line     int
	Function string
}

var (
	// ErrDeadline marks exceptions raised because the run context expired.
	ErrDeadline = errors.New("execution deadline exceeded")
	// ErrCanceled marks exceptions raised because the run context was
	// canceled.
	ErrCanceled = errors.New("execution canceled")
	// ErrStepLimit marks exceptions raised because the step budget ran out.
	ErrStepLimit = errors.New("step limit exceeded")
)

func newError(typ, format string, args ...any) *Exception {
	return &Exception{Type: typ, Message: fmt.Sprintf(format, args...)}
}

func (e *Exception) Error() string {
	if e.Message == "" {
		return e.Type
	}
	return e.Type + ": " + e.Message
}

func (e *Exception) Unwrap() error { return e.cause }

// Lineno returns the innermost line of the traceback, or -1.
func (e *Exception) Lineno() int {
	if len(e.Traceback) == 0 {
		return -1
	}
	return e.Traceback[len(e.Traceback)-1].Line
}

func (e *Exception) unwindThrough(fr *Frame) {
	e.Traceback = append([]TracebackEntry{{
		Filename: fr.Filename,
		Line:     fr.Line,
		Function: fr.Function,
	}}, e.Traceback...)
}

func asException(err error) (*Exception, bool) {
	var exc *Exception
	if errors.As(err, &exc) {
		return exc, true
	}
	return nil, false
}
