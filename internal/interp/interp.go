// Package interp evaluates programs written in the Python subset accepted by
// the Starlark parser and reports execution events to a Hook.
package interp

import (
	"context"
	_ "embed"
	"io"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"go.starlark.net/syntax"
)

// PreludeFile is the filename of functions implemented in the language
// itself. Tracers treat it as library code.
const PreludeFile = "<frozen stepbyte.prelude>"

//go:embed prelude.star
var preludeSrc []byte

var (
	preludeOnce sync.Once
	preludeProg *Program
)

// Options configures an Interpreter.
type Options struct {
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader
	Hook   Hook
	// MaxDepth bounds the number of nested calls; zero means 1000.
	MaxDepth int
	// MaxSteps bounds the number of executed lines; zero means no limit.
	MaxSteps int
}

// Interpreter executes programs. It is not safe for concurrent use.
type Interpreter struct {
	opts     Options
	hook     Hook
	ctx      context.Context
	builtins map[string]Value

	depth int
	steps int

	stdin, stdout, stderr *File
}

// New returns an interpreter with fresh standard streams and builtins.
func New(opts Options) *Interpreter {
	if opts.Stdout == nil {
		opts.Stdout = io.Discard
	}
	if opts.Stderr == nil {
		opts.Stderr = io.Discard
	}
	if opts.Stdin == nil {
		opts.Stdin = strings.NewReader("")
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = 1000
	}
	in := &Interpreter{opts: opts, ctx: context.Background()}
	in.stdout = newFile("<stdout>", "w", opts.Stdout, nil)
	in.stderr = newFile("<stderr>", "w", opts.Stderr, nil)
	in.stdin = newFile("<stdin>", "r", nil, opts.Stdin)
	in.builtins = in.newBuiltins()
	in.loadPrelude()
	in.hook = opts.Hook
	return in
}

func (in *Interpreter) loadPrelude() {
	preludeOnce.Do(func() {
		prog, err := Compile(PreludeFile, preludeSrc)
		if err != nil {
			panic(errors.Wrap(err, "compiling prelude"))
		}
		preludeProg = prog
	})
	globals := newScope()
	fr := &Frame{Function: "<module>", Filename: PreludeFile, FirstLine: 1, env: &env{vars: globals}, globals: globals}
	if _, err := in.execBlock(fr, preludeProg.file.Stmts); err != nil {
		panic(errors.Wrap(err, "loading prelude"))
	}
	for _, b := range fr.Locals() {
		in.builtins[b.Name] = b.Value
	}
	in.steps = 0
}

// Steps returns the number of lines executed so far.
func (in *Interpreter) Steps() int { return in.steps }

// Exec runs prog as the main module. A raised exception that escapes the
// module is returned as an *Exception; ctx expiry and the step budget surface
// the same way, wrapping ErrDeadline, ErrCanceled or ErrStepLimit. Any other
// error is an evaluator fault.
func (in *Interpreter) Exec(ctx context.Context, prog *Program) (err error) {
	in.ctx = ctx
	defer func() {
		if r := recover(); r != nil {
			err = errors.AssertionFailedf("evaluator panic: %v", r)
		}
	}()

	globals := newScope()
	globals.set("__name__", String("__main__"))
	globals.set("__file__", String(prog.Filename))
	fr := &Frame{
		Function:  "<module>",
		Filename:  prog.Filename,
		FirstLine: 1,
		Line:      1,
		env:       &env{vars: globals},
		globals:   globals,
	}
	in.depth++
	defer func() { in.depth-- }()
	fr.traced = in.hook != nil && in.hook.OnCall(fr)
	_, err = in.execBlock(fr, prog.file.Stmts)
	return in.leave(fr, None, err)
}

// leave delivers the exit events for fr.
func (in *Interpreter) leave(fr *Frame, result Value, err error) error {
	if err != nil {
		exc, ok := asException(err)
		if !ok {
			return err
		}
		exc.unwindThrough(fr)
		if fr.traced {
			in.hook.OnException(fr, exc)
			in.hook.OnReturn(fr, None)
		}
		return exc
	}
	if fr.traced {
		in.hook.OnReturn(fr, result)
	}
	return nil
}

// line records that fr is about to execute line, enforcing the step budget
// and the context deadline.
func (in *Interpreter) line(fr *Frame, line int) error {
	fr.Line = line
	in.steps++
	if in.opts.MaxSteps > 0 && in.steps > in.opts.MaxSteps {
		return &Exception{Type: "RuntimeError", Message: "step limit exceeded", cause: ErrStepLimit}
	}
	if err := in.poll(); err != nil {
		return err
	}
	if fr.traced {
		in.hook.OnLine(fr)
	}
	return nil
}

func (in *Interpreter) poll() error {
	select {
	case <-in.ctx.Done():
		if errors.Is(in.ctx.Err(), context.DeadlineExceeded) {
			return &Exception{Type: "TimeoutError", Message: "execution timed out", cause: ErrDeadline}
		}
		return &Exception{Type: "KeyboardInterrupt", Message: "execution canceled", cause: ErrCanceled}
	default:
		return nil
	}
}

type control int

const (
	ctrlNone control = iota
	ctrlBreak
	ctrlContinue
	ctrlReturn
)

func stmtLine(st syntax.Stmt) int {
	start, _ := st.Span()
	return int(start.Line)
}

func (in *Interpreter) execBlock(fr *Frame, stmts []syntax.Stmt) (control, error) {
	prev := 0
	for _, st := range stmts {
		ln := stmtLine(st)
		if ln != prev {
			if err := in.line(fr, ln); err != nil {
				return ctrlNone, err
			}
		}
		prev = ln
		ctrl, err := in.execStmt(fr, st)
		if err != nil || ctrl != ctrlNone {
			return ctrl, err
		}
	}
	return ctrlNone, nil
}

func (in *Interpreter) execStmt(fr *Frame, st syntax.Stmt) (control, error) {
	e := fr.env
	switch st := st.(type) {
	case *syntax.ExprStmt:
		_, err := in.eval(fr, e, st.X)
		return ctrlNone, err

	case *syntax.AssignStmt:
		if st.Op == syntax.EQ {
			v, err := in.eval(fr, e, st.RHS)
			if err != nil {
				return ctrlNone, err
			}
			return ctrlNone, in.assign(fr, e, st.LHS, v)
		}
		return ctrlNone, in.augAssign(fr, e, st)

	case *syntax.DefStmt:
		fn, err := in.makeFunction(fr, e, st.Name.Name, st.Def, st.Params, st.Body, nil)
		if err != nil {
			return ctrlNone, err
		}
		e.vars.set(st.Name.Name, fn)
		return ctrlNone, nil

	case *syntax.ReturnStmt:
		fr.result = None
		if st.Result != nil {
			v, err := in.eval(fr, e, st.Result)
			if err != nil {
				return ctrlNone, err
			}
			fr.result = v
		}
		return ctrlReturn, nil

	case *syntax.BranchStmt:
		switch st.Token {
		case syntax.BREAK:
			return ctrlBreak, nil
		case syntax.CONTINUE:
			return ctrlContinue, nil
		}
		return ctrlNone, nil

	case *syntax.IfStmt:
		cond, err := in.eval(fr, e, st.Cond)
		if err != nil {
			return ctrlNone, err
		}
		if Truth(cond) {
			return in.execBlock(fr, st.True)
		}
		return in.execBlock(fr, st.False)

	case *syntax.ForStmt:
		return in.execFor(fr, st)

	case *syntax.WhileStmt:
		header := stmtLine(st)
		for first := true; ; first = false {
			if !first {
				if err := in.line(fr, header); err != nil {
					return ctrlNone, err
				}
			}
			cond, err := in.eval(fr, e, st.Cond)
			if err != nil {
				return ctrlNone, err
			}
			if !Truth(cond) {
				return ctrlNone, nil
			}
			ctrl, err := in.execBlock(fr, st.Body)
			if err != nil {
				return ctrlNone, err
			}
			switch ctrl {
			case ctrlBreak:
				return ctrlNone, nil
			case ctrlReturn:
				return ctrl, nil
			}
		}
	}
	return ctrlNone, errors.AssertionFailedf("unexpected statement %T", st)
}

func (in *Interpreter) execFor(fr *Frame, st *syntax.ForStmt) (control, error) {
	seq, err := in.eval(fr, fr.env, st.X)
	if err != nil {
		return ctrlNone, err
	}
	it, err := iterate(seq)
	if err != nil {
		return ctrlNone, err
	}
	header := stmtLine(st)
	for first := true; ; first = false {
		if !first {
			if err := in.line(fr, header); err != nil {
				return ctrlNone, err
			}
		}
		item, ok, err := it.next()
		if err != nil {
			return ctrlNone, err
		}
		if !ok {
			return ctrlNone, nil
		}
		if err := in.assign(fr, fr.env, st.Vars, item); err != nil {
			return ctrlNone, err
		}
		ctrl, err := in.execBlock(fr, st.Body)
		if err != nil {
			return ctrlNone, err
		}
		switch ctrl {
		case ctrlBreak:
			return ctrlNone, nil
		case ctrlReturn:
			return ctrl, nil
		}
	}
}

func (in *Interpreter) assign(fr *Frame, e *env, lhs syntax.Expr, v Value) error {
	switch lhs := lhs.(type) {
	case *syntax.Ident:
		e.vars.set(lhs.Name, v)
		return nil
	case *syntax.ParenExpr:
		return in.assign(fr, e, lhs.X, v)
	case *syntax.TupleExpr:
		return in.unpack(fr, e, lhs.List, v)
	case *syntax.ListExpr:
		return in.unpack(fr, e, lhs.List, v)
	case *syntax.IndexExpr:
		x, err := in.eval(fr, e, lhs.X)
		if err != nil {
			return err
		}
		k, err := in.eval(fr, e, lhs.Y)
		if err != nil {
			return err
		}
		return setIndex(x, k, v)
	case *syntax.DotExpr:
		x, err := in.eval(fr, e, lhs.X)
		if err != nil {
			return err
		}
		return newError("AttributeError", "'%s' object attribute '%s' is read-only", x.Type(), lhs.Name.Name)
	}
	return errors.AssertionFailedf("unexpected assignment target %T", lhs)
}

func (in *Interpreter) unpack(fr *Frame, e *env, targets []syntax.Expr, v Value) error {
	items, err := in.collect(v)
	if err != nil {
		if exc, ok := asException(err); ok && exc.Type == "TypeError" {
			return newError("TypeError", "cannot unpack non-iterable %s object", v.Type())
		}
		return err
	}
	if len(items) < len(targets) {
		return newError("ValueError", "not enough values to unpack (expected %d, got %d)", len(targets), len(items))
	}
	if len(items) > len(targets) {
		return newError("ValueError", "too many values to unpack (expected %d)", len(targets))
	}
	for i, t := range targets {
		if err := in.assign(fr, e, t, items[i]); err != nil {
			return err
		}
	}
	return nil
}

var augOps = map[syntax.Token]syntax.Token{
	syntax.PLUS_EQ:       syntax.PLUS,
	syntax.MINUS_EQ:      syntax.MINUS,
	syntax.STAR_EQ:       syntax.STAR,
	syntax.SLASH_EQ:      syntax.SLASH,
	syntax.SLASHSLASH_EQ: syntax.SLASHSLASH,
	syntax.PERCENT_EQ:    syntax.PERCENT,
	syntax.AMP_EQ:        syntax.AMP,
	syntax.PIPE_EQ:       syntax.PIPE,
	syntax.CIRCUMFLEX_EQ: syntax.CIRCUMFLEX,
	syntax.LTLT_EQ:       syntax.LTLT,
	syntax.GTGT_EQ:       syntax.GTGT,
}

func (in *Interpreter) augAssign(fr *Frame, e *env, st *syntax.AssignStmt) error {
	op, ok := augOps[st.Op]
	if !ok {
		return errors.AssertionFailedf("unexpected assignment operator %s", st.Op)
	}
	apply := func(old Value) (Value, error) {
		y, err := in.eval(fr, e, st.RHS)
		if err != nil {
			return nil, err
		}
		// list += iterable extends in place.
		if l, isList := old.(*List); isList && op == syntax.PLUS {
			items, err := in.collect(y)
			if err != nil {
				return nil, err
			}
			l.elems = append(l.elems, items...)
			return l, nil
		}
		return binary(op, old, y)
	}
	switch lhs := unparen(st.LHS).(type) {
	case *syntax.Ident:
		old, err := in.lookup(fr, e, lhs.Name)
		if err != nil {
			return err
		}
		v, err := apply(old)
		if err != nil {
			return err
		}
		e.vars.set(lhs.Name, v)
		return nil
	case *syntax.IndexExpr:
		x, err := in.eval(fr, e, lhs.X)
		if err != nil {
			return err
		}
		k, err := in.eval(fr, e, lhs.Y)
		if err != nil {
			return err
		}
		old, err := getIndex(x, k)
		if err != nil {
			return err
		}
		v, err := apply(old)
		if err != nil {
			return err
		}
		return setIndex(x, k, v)
	case *syntax.DotExpr:
		x, err := in.eval(fr, e, lhs.X)
		if err != nil {
			return err
		}
		return newError("AttributeError", "'%s' object attribute '%s' is read-only", x.Type(), lhs.Name.Name)
	}
	return errors.AssertionFailedf("unexpected assignment target %T", st.LHS)
}

func unparen(x syntax.Expr) syntax.Expr {
	for {
		p, ok := x.(*syntax.ParenExpr)
		if !ok {
			return x
		}
		x = p.X
	}
}

// write sends s to the given stream, used by print and the sys streams.
func (in *Interpreter) write(f *File, s string) error {
	if f == nil {
		f = in.stdout
	}
	return f.write(s)
}
