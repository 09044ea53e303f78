package interp

import (
	"strings"

	"go.starlark.net/syntax"
)

func (in *Interpreter) makeFunction(fr *Frame, e *env, name string, pos syntax.Position, params []syntax.Expr, body []syntax.Stmt, lambda syntax.Expr) (*Function, error) {
	fn := &Function{
		Name:     name,
		Filename: fr.Filename,
		Line:     int(pos.Line),
		body:     body,
		lambda:   lambda,
		locals:   localNames(params, body),
		globals:  fr.globals,
	}
	// Module level functions resolve free names through the globals only.
	if e.locals != nil || e.parent != nil {
		fn.closure = e
	}
	keywordOnly := false
	for _, p := range params {
		switch p := p.(type) {
		case *syntax.Ident:
			fn.params = append(fn.params, param{name: p.Name, kind: positionalKind(keywordOnly), def: -1})
		case *syntax.BinaryExpr:
			id, _ := p.X.(*syntax.Ident)
			if id == nil {
				continue
			}
			v, err := in.eval(fr, e, p.Y)
			if err != nil {
				return nil, err
			}
			fn.params = append(fn.params, param{name: id.Name, kind: positionalKind(keywordOnly), def: len(fn.defaults)})
			fn.defaults = append(fn.defaults, v)
		case *syntax.UnaryExpr:
			id, _ := p.X.(*syntax.Ident)
			switch {
			case p.Op == syntax.STAR && id == nil:
				keywordOnly = true
			case p.Op == syntax.STAR:
				keywordOnly = true
				fn.params = append(fn.params, param{name: id.Name, kind: paramVarArgs, def: -1})
			case p.Op == syntax.STARSTAR && id != nil:
				fn.params = append(fn.params, param{name: id.Name, kind: paramKwArgs, def: -1})
			}
		}
	}
	return fn, nil
}

func positionalKind(keywordOnly bool) paramKind {
	if keywordOnly {
		return paramKeywordOnly
	}
	return paramPositional
}

func (in *Interpreter) call(fr *Frame, fn Value, args []Value, kwargs []kwarg) (Value, error) {
	switch fn := fn.(type) {
	case *Function:
		return in.callFunction(fr, fn, args, kwargs)
	case *Builtin:
		return fn.fn(in, fr, fn, args, kwargs)
	case *TypeValue:
		if fn.ctor == nil {
			return nil, newError("TypeError", "cannot create '%s' instances", fn.name)
		}
		return fn.ctor(in, fr, &Builtin{Name: fn.name}, args, kwargs)
	}
	return nil, newError("TypeError", "'%s' object is not callable", fn.Type())
}

func (in *Interpreter) callFunction(caller *Frame, fn *Function, args []Value, kwargs []kwarg) (Value, error) {
	if in.depth >= in.opts.MaxDepth {
		return nil, newError("RecursionError", "maximum recursion depth exceeded")
	}
	locals := newScope()
	if err := fn.bind(locals, args, kwargs); err != nil {
		return nil, err
	}
	fr := &Frame{
		Function:  fn.Name,
		Filename:  fn.Filename,
		FirstLine: fn.Line,
		Line:      fn.Line,
		Back:      caller,
		env:       &env{vars: locals, locals: fn.locals, parent: fn.closure},
		globals:   fn.globals,
	}
	in.depth++
	defer func() { in.depth-- }()
	fr.traced = in.hook != nil && in.hook.OnCall(fr)

	var result Value = None
	var err error
	if fn.lambda != nil {
		start, _ := fn.lambda.Span()
		if err = in.line(fr, int(start.Line)); err == nil {
			result, err = in.eval(fr, fr.env, fn.lambda)
		}
	} else {
		var ctrl control
		ctrl, err = in.execBlock(fr, fn.body)
		if ctrl == ctrlReturn {
			result = fr.result
		}
	}
	if err != nil {
		return nil, in.leave(fr, None, err)
	}
	return result, in.leave(fr, result, nil)
}

// bind assigns call arguments to parameters in declaration order.
func (fn *Function) bind(locals *scope, args []Value, kwargs []kwarg) error {
	vals := make([]Value, len(fn.params))
	var varargs Tuple
	var kwdict *Dict
	varIdx, kwIdx := -1, -1
	npos := 0
	for i, p := range fn.params {
		switch p.kind {
		case paramPositional:
			npos++
		case paramVarArgs:
			varIdx = i
		case paramKwArgs:
			kwIdx = i
			kwdict = NewDict()
		}
	}

	for i, a := range args {
		if i < npos {
			vals[i] = a
			continue
		}
		if varIdx < 0 {
			return fn.tooManyPositional(npos, len(args))
		}
		varargs = append(varargs, a)
	}

	for _, kw := range kwargs {
		found := false
		for i, p := range fn.params {
			if p.name != kw.name || (p.kind != paramPositional && p.kind != paramKeywordOnly) {
				continue
			}
			if vals[i] != nil {
				return newError("TypeError", "%s() got multiple values for argument '%s'", fn.Name, kw.name)
			}
			vals[i] = kw.value
			found = true
			break
		}
		if found {
			continue
		}
		if kwdict == nil {
			return newError("TypeError", "%s() got an unexpected keyword argument '%s'", fn.Name, kw.name)
		}
		if _, dup, _ := kwdict.Get(String(kw.name)); dup {
			return newError("TypeError", "%s() got multiple values for keyword argument '%s'", fn.Name, kw.name)
		}
		_ = kwdict.Set(String(kw.name), kw.value)
	}

	var missingPos, missingKw []string
	for i, p := range fn.params {
		if vals[i] != nil || p.kind == paramVarArgs || p.kind == paramKwArgs {
			continue
		}
		if p.def >= 0 {
			vals[i] = fn.defaults[p.def]
			continue
		}
		if p.kind == paramKeywordOnly {
			missingKw = append(missingKw, p.name)
		} else {
			missingPos = append(missingPos, p.name)
		}
	}
	if len(missingPos) > 0 {
		return newError("TypeError", "%s() missing %d required positional %s: %s",
			fn.Name, len(missingPos), plural(len(missingPos), "argument"), joinNames(missingPos))
	}
	if len(missingKw) > 0 {
		return newError("TypeError", "%s() missing %d required keyword-only %s: %s",
			fn.Name, len(missingKw), plural(len(missingKw), "argument"), joinNames(missingKw))
	}

	if varIdx >= 0 {
		if varargs == nil {
			varargs = Tuple{}
		}
		vals[varIdx] = varargs
	}
	if kwIdx >= 0 {
		vals[kwIdx] = kwdict
	}
	for i, p := range fn.params {
		locals.set(p.name, vals[i])
	}
	return nil
}

func (fn *Function) tooManyPositional(npos, given int) error {
	required := 0
	for _, p := range fn.params {
		if p.kind == paramPositional && p.def < 0 {
			required++
		}
	}
	takes := plural(npos, "positional argument")
	if required != npos {
		return newError("TypeError", "%s() takes from %d to %d positional arguments but %d %s given",
			fn.Name, required, npos, given, wasWere(given))
	}
	return newError("TypeError", "%s() takes %d %s but %d %s given", fn.Name, npos, takes, given, wasWere(given))
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func wasWere(n int) string {
	if n == 1 {
		return "was"
	}
	return "were"
}

func joinNames(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "'" + n + "'"
	}
	switch len(quoted) {
	case 1:
		return quoted[0]
	case 2:
		return quoted[0] + " and " + quoted[1]
	}
	return strings.Join(quoted[:len(quoted)-1], ", ") + ", and " + quoted[len(quoted)-1]
}
