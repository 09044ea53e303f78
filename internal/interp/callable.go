package interp

import (
	"bufio"
	"io"
	"strings"

	"go.starlark.net/syntax"
)

// Function is a user defined function or lambda.
type Function struct {
	Name     string
	Filename string
	Line     int

	params   []param
	body     []syntax.Stmt
	lambda   syntax.Expr
	locals   map[string]bool
	closure  *env
	globals  *scope
	defaults []Value
}

type paramKind int

const (
	paramPositional paramKind = iota
	paramVarArgs
	paramKwArgs
	paramKeywordOnly
)

type param struct {
	name string
	kind paramKind
	// def is the index into Function.defaults, or -1.
	def int
}

func (*Function) Type() string { return "function" }

// Builtin is a function implemented by the interpreter. recv is set for
// bound methods.
type Builtin struct {
	Name string
	recv Value
	fn   builtinFunc
}

type builtinFunc func(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error)

type kwarg struct {
	name  string
	value Value
}

func (*Builtin) Type() string { return "builtin_function_or_method" }

// TypeValue is a type object such as int or list. Calling it invokes its
// constructor.
type TypeValue struct {
	name string
	ctor builtinFunc
}

func (*TypeValue) Type() string { return "type" }

// Module is a built-in module such as sys or math.
type Module struct {
	name  string
	attrs map[string]Value
}

func (*Module) Type() string { return "module" }

// File is one of the standard streams.
type File struct {
	name string
	mode string
	w    io.Writer
	r    *bufio.Reader
}

func (*File) Type() string { return "TextIOWrapper" }

func (f *File) readline() (string, error) {
	if f.r == nil {
		return "", newError("OSError", "not readable")
	}
	line, err := f.r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", newError("OSError", "%s", err.Error())
	}
	return line, nil
}

func (f *File) write(s string) error {
	if f.w == nil {
		return newError("OSError", "not writable")
	}
	if _, err := io.WriteString(f.w, s); err != nil {
		return newError("OSError", "%s", err.Error())
	}
	return nil
}

func newFile(name, mode string, w io.Writer, r io.Reader) *File {
	f := &File{name: name, mode: mode, w: w}
	if r != nil {
		f.r = bufio.NewReader(r)
	}
	return f
}

func trimNewline(s string) string {
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r")
}
