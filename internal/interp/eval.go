package interp

import (
	"math/big"

	"github.com/cockroachdb/errors"
	"go.starlark.net/syntax"
)

func (in *Interpreter) eval(fr *Frame, e *env, x syntax.Expr) (Value, error) {
	switch x := x.(type) {
	case *syntax.Literal:
		switch v := x.Value.(type) {
		case int64:
			return MakeInt(v), nil
		case *big.Int:
			return makeBigInt(new(big.Int).Set(v)), nil
		case float64:
			return Float(v), nil
		case string:
			return String(v), nil
		}
		return nil, errors.AssertionFailedf("unexpected literal %T", x.Value)

	case *syntax.Ident:
		switch x.Name {
		case "None":
			return None, nil
		case "True":
			return Bool(true), nil
		case "False":
			return Bool(false), nil
		}
		return in.lookup(fr, e, x.Name)

	case *syntax.ParenExpr:
		return in.eval(fr, e, x.X)

	case *syntax.UnaryExpr:
		v, err := in.eval(fr, e, x.X)
		if err != nil {
			return nil, err
		}
		return unary(x.Op, v)

	case *syntax.BinaryExpr:
		l, err := in.eval(fr, e, x.X)
		if err != nil {
			return nil, err
		}
		switch x.Op {
		case syntax.AND:
			if !Truth(l) {
				return l, nil
			}
			return in.eval(fr, e, x.Y)
		case syntax.OR:
			if Truth(l) {
				return l, nil
			}
			return in.eval(fr, e, x.Y)
		}
		r, err := in.eval(fr, e, x.Y)
		if err != nil {
			return nil, err
		}
		return binary(x.Op, l, r)

	case *syntax.CondExpr:
		cond, err := in.eval(fr, e, x.Cond)
		if err != nil {
			return nil, err
		}
		if Truth(cond) {
			return in.eval(fr, e, x.True)
		}
		return in.eval(fr, e, x.False)

	case *syntax.ListExpr:
		elems, err := in.evalList(fr, e, x.List)
		if err != nil {
			return nil, err
		}
		return NewList(elems), nil

	case *syntax.TupleExpr:
		elems, err := in.evalList(fr, e, x.List)
		if err != nil {
			return nil, err
		}
		return Tuple(elems), nil

	case *syntax.DictExpr:
		d := NewDict()
		for _, item := range x.List {
			entry := item.(*syntax.DictEntry)
			k, err := in.eval(fr, e, entry.Key)
			if err != nil {
				return nil, err
			}
			v, err := in.eval(fr, e, entry.Value)
			if err != nil {
				return nil, err
			}
			if err := d.Set(k, v); err != nil {
				return nil, err
			}
		}
		return d, nil

	case *syntax.IndexExpr:
		v, err := in.eval(fr, e, x.X)
		if err != nil {
			return nil, err
		}
		k, err := in.eval(fr, e, x.Y)
		if err != nil {
			return nil, err
		}
		return getIndex(v, k)

	case *syntax.SliceExpr:
		v, err := in.eval(fr, e, x.X)
		if err != nil {
			return nil, err
		}
		var bounds [3]Value
		for i, b := range []syntax.Expr{x.Lo, x.Hi, x.Step} {
			if b == nil {
				continue
			}
			if bounds[i], err = in.eval(fr, e, b); err != nil {
				return nil, err
			}
		}
		return slice(v, bounds[0], bounds[1], bounds[2])

	case *syntax.DotExpr:
		v, err := in.eval(fr, e, x.X)
		if err != nil {
			return nil, err
		}
		return in.attr(v, x.Name.Name)

	case *syntax.CallExpr:
		return in.evalCall(fr, e, x)

	case *syntax.LambdaExpr:
		return in.makeFunction(fr, e, "<lambda>", x.Lambda, x.Params, nil, x.Body)

	case *syntax.Comprehension:
		return in.evalComprehension(fr, e, x)
	}
	return nil, errors.AssertionFailedf("unexpected expression %T", x)
}

func (in *Interpreter) evalList(fr *Frame, e *env, list []syntax.Expr) ([]Value, error) {
	elems := make([]Value, 0, len(list))
	for _, x := range list {
		v, err := in.eval(fr, e, x)
		if err != nil {
			return nil, err
		}
		elems = append(elems, v)
	}
	return elems, nil
}

func (in *Interpreter) evalCall(fr *Frame, e *env, x *syntax.CallExpr) (Value, error) {
	fn, err := in.eval(fr, e, x.Fn)
	if err != nil {
		return nil, err
	}
	var args []Value
	var kwargs []kwarg
	for _, a := range x.Args {
		switch a := a.(type) {
		case *syntax.BinaryExpr:
			if id, ok := a.X.(*syntax.Ident); ok && a.Op == syntax.EQ {
				v, err := in.eval(fr, e, a.Y)
				if err != nil {
					return nil, err
				}
				kwargs = append(kwargs, kwarg{name: id.Name, value: v})
				continue
			}
		case *syntax.UnaryExpr:
			switch a.Op {
			case syntax.STAR:
				v, err := in.eval(fr, e, a.X)
				if err != nil {
					return nil, err
				}
				items, err := in.collect(v)
				if err != nil {
					return nil, newError("TypeError", "%s argument after * must be an iterable, not %s", calleeName(fn), v.Type())
				}
				args = append(args, items...)
				continue
			case syntax.STARSTAR:
				v, err := in.eval(fr, e, a.X)
				if err != nil {
					return nil, err
				}
				d, ok := v.(*Dict)
				if !ok {
					return nil, newError("TypeError", "%s argument after ** must be a mapping, not %s", calleeName(fn), v.Type())
				}
				for i, k := range d.keys {
					name, ok := k.(String)
					if !ok {
						return nil, newError("TypeError", "keywords must be strings")
					}
					kwargs = append(kwargs, kwarg{name: string(name), value: d.vals[i]})
				}
				continue
			}
		}
		v, err := in.eval(fr, e, a)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return in.call(fr, fn, args, kwargs)
}

func (in *Interpreter) evalComprehension(fr *Frame, outer *env, c *syntax.Comprehension) (Value, error) {
	inner := &env{vars: newScope(), parent: outer}
	var list *List
	var dict *Dict
	if c.Curly {
		dict = NewDict()
	} else {
		list = NewList([]Value{})
	}

	var loop func(i int) error
	loop = func(i int) error {
		if i == len(c.Clauses) {
			if dict != nil {
				entry := c.Body.(*syntax.DictEntry)
				k, err := in.eval(fr, inner, entry.Key)
				if err != nil {
					return err
				}
				v, err := in.eval(fr, inner, entry.Value)
				if err != nil {
					return err
				}
				return dict.Set(k, v)
			}
			v, err := in.eval(fr, inner, c.Body)
			if err != nil {
				return err
			}
			list.elems = append(list.elems, v)
			return nil
		}
		switch cl := c.Clauses[i].(type) {
		case *syntax.ForClause:
			scope := inner
			if i == 0 {
				scope = outer
			}
			seq, err := in.eval(fr, scope, cl.X)
			if err != nil {
				return err
			}
			it, err := iterate(seq)
			if err != nil {
				return err
			}
			for {
				item, ok, err := it.next()
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
				if err := in.poll(); err != nil {
					return err
				}
				if err := in.assign(fr, inner, cl.Vars, item); err != nil {
					return err
				}
				if err := loop(i + 1); err != nil {
					return err
				}
			}
		case *syntax.IfClause:
			cond, err := in.eval(fr, inner, cl.Cond)
			if err != nil {
				return err
			}
			if Truth(cond) {
				return loop(i + 1)
			}
			return nil
		}
		return errors.AssertionFailedf("unexpected comprehension clause %T", c.Clauses[i])
	}
	if err := loop(0); err != nil {
		return nil, err
	}
	if dict != nil {
		return dict, nil
	}
	return list, nil
}

func (in *Interpreter) attr(v Value, name string) (Value, error) {
	if m, ok := v.(*Module); ok {
		if a, ok := m.attrs[name]; ok {
			return a, nil
		}
		return nil, newError("AttributeError", "module '%s' has no attribute '%s'", m.name, name)
	}
	if fn, ok := methodsOf(v)[name]; ok {
		return &Builtin{Name: name, recv: v, fn: fn}, nil
	}
	return nil, newError("AttributeError", "'%s' object has no attribute '%s'", v.Type(), name)
}

func calleeName(fn Value) string {
	switch fn := fn.(type) {
	case *Function:
		return fn.Name + "()"
	case *Builtin:
		return fn.Name + "()"
	case *TypeValue:
		return fn.name + "()"
	}
	return fn.Type() + " object"
}
