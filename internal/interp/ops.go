package interp

import (
	"math"
	"math/big"
	"strings"

	"go.starlark.net/syntax"
)

func toInt(v Value) (Int, bool) {
	switch v := v.(type) {
	case Int:
		return v, true
	case Bool:
		if v {
			return MakeInt(1), true
		}
		return MakeInt(0), true
	}
	return Int{}, false
}

// toIntTrunc accepts floats too, truncating toward zero.
func toIntTrunc(v Value) (Int, bool) {
	if f, ok := v.(Float); ok {
		if math.IsInf(float64(f), 0) || math.IsNaN(float64(f)) {
			return Int{}, false
		}
		return floatToInt(float64(f)), true
	}
	return toInt(v)
}

func floatToInt(f float64) Int {
	f = math.Trunc(f)
	if f >= math.MinInt64 && f < math.MaxInt64 {
		return MakeInt(int64(f))
	}
	b, _ := new(big.Float).SetFloat64(f).Int(nil)
	return makeBigInt(b)
}

func toFloat(v Value) (float64, bool) {
	switch v := v.(type) {
	case Float:
		return float64(v), true
	case Int:
		return v.float(), true
	case Bool:
		if v {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func isNumber(v Value) bool {
	switch v.(type) {
	case Int, Float, Bool:
		return true
	}
	return false
}

func intAdd(a, b Int) Int {
	if x, ok := a.Int64(); ok {
		if y, ok := b.Int64(); ok {
			s := x + y
			if (y >= 0) == (s >= x) {
				return MakeInt(s)
			}
		}
	}
	return makeBigInt(new(big.Int).Add(a.BigInt(), b.BigInt()))
}

func intSub(a, b Int) Int {
	if x, ok := a.Int64(); ok {
		if y, ok := b.Int64(); ok {
			d := x - y
			if (y >= 0) == (d <= x) {
				return MakeInt(d)
			}
		}
	}
	return makeBigInt(new(big.Int).Sub(a.BigInt(), b.BigInt()))
}

func intMul(a, b Int) Int {
	if x, ok := a.Int64(); ok {
		if y, ok := b.Int64(); ok {
			if x == 0 || y == 0 {
				return MakeInt(0)
			}
			p := x * y
			if p/y == x && !(x == -1 && y == math.MinInt64) && !(y == -1 && x == math.MinInt64) {
				return MakeInt(p)
			}
		}
	}
	return makeBigInt(new(big.Int).Mul(a.BigInt(), b.BigInt()))
}

// intFloorDivMod returns the floored quotient and the remainder carrying the
// divisor's sign. b must be non-zero.
func intFloorDivMod(a, b Int) (Int, Int) {
	if x, ok := a.Int64(); ok {
		if y, ok := b.Int64(); ok && !(x == math.MinInt64 && y == -1) {
			q, r := x/y, x%y
			if r != 0 && (r < 0) != (y < 0) {
				q--
				r += y
			}
			return MakeInt(q), MakeInt(r)
		}
	}
	bb := b.BigInt()
	q, r := new(big.Int).QuoRem(a.BigInt(), bb, new(big.Int))
	if r.Sign() != 0 && r.Sign() != bb.Sign() {
		q.Sub(q, big.NewInt(1))
		r.Add(r, bb)
	}
	return makeBigInt(q), makeBigInt(r)
}

func intNeg(a Int) Int {
	if x, ok := a.Int64(); ok && x != math.MinInt64 {
		return MakeInt(-x)
	}
	return makeBigInt(new(big.Int).Neg(a.BigInt()))
}

func intCmp(a, b Int) int {
	if x, ok := a.Int64(); ok {
		if y, ok := b.Int64(); ok {
			switch {
			case x < y:
				return -1
			case x > y:
				return 1
			}
			return 0
		}
	}
	return a.BigInt().Cmp(b.BigInt())
}

func floatMod(x, y float64) float64 {
	m := math.Mod(x, y)
	if m != 0 && (m < 0) != (y < 0) {
		m += y
	}
	return m
}

func unsupported(op syntax.Token, x, y Value) error {
	return newError("TypeError", "unsupported operand type(s) for %s: '%s' and '%s'", op, x.Type(), y.Type())
}

// binary applies a non-short-circuit binary operator.
func binary(op syntax.Token, x, y Value) (Value, error) {
	switch op {
	case syntax.EQL:
		return Bool(equal(x, y)), nil
	case syntax.NEQ:
		return Bool(!equal(x, y)), nil
	case syntax.LT, syntax.GT, syntax.LE, syntax.GE:
		c, err := compare(op, x, y)
		if err != nil {
			return nil, err
		}
		switch op {
		case syntax.LT:
			return Bool(c < 0), nil
		case syntax.GT:
			return Bool(c > 0), nil
		case syntax.LE:
			return Bool(c <= 0), nil
		}
		return Bool(c >= 0), nil
	case syntax.IN, syntax.NOT_IN:
		ok, err := contains(y, x)
		if err != nil {
			return nil, err
		}
		return Bool(ok == (op == syntax.IN)), nil
	}

	if isNumber(x) && isNumber(y) {
		return arith(op, x, y)
	}

	switch op {
	case syntax.PLUS:
		switch x := x.(type) {
		case String:
			if y, ok := y.(String); ok {
				return x + y, nil
			}
			return nil, newError("TypeError", "can only concatenate str (not \"%s\") to str", y.Type())
		case *List:
			if y, ok := y.(*List); ok {
				elems := make([]Value, 0, len(x.elems)+len(y.elems))
				return NewList(append(append(elems, x.elems...), y.elems...)), nil
			}
			return nil, newError("TypeError", "can only concatenate list (not \"%s\") to list", y.Type())
		case Tuple:
			if y, ok := y.(Tuple); ok {
				t := make(Tuple, 0, len(x)+len(y))
				return append(append(t, x...), y...), nil
			}
			return nil, newError("TypeError", "can only concatenate tuple (not \"%s\") to tuple", y.Type())
		}
	case syntax.STAR:
		if n, ok := toInt(y); ok {
			if v, ok, err := repeat(x, n); ok {
				return v, err
			}
		}
		if n, ok := toInt(x); ok {
			if v, ok, err := repeat(y, n); ok {
				return v, err
			}
		}
	case syntax.PERCENT:
		if s, ok := x.(String); ok {
			return percentFormat(string(s), y)
		}
	case syntax.PIPE:
		if x, ok := x.(*Dict); ok {
			if y, ok := y.(*Dict); ok {
				d := NewDict()
				for _, src := range []*Dict{x, y} {
					for i, k := range src.keys {
						if err := d.Set(k, src.vals[i]); err != nil {
							return nil, err
						}
					}
				}
				return d, nil
			}
		}
	}
	return nil, unsupported(op, x, y)
}

// repeat implements sequence * n; ok is false when x is not a sequence.
func repeat(x Value, n Int) (Value, bool, error) {
	count, fits := n.Int64()
	if !fits || count > 1<<28 {
		return nil, true, newError("MemoryError", "repeated sequence too large")
	}
	if count < 0 {
		count = 0
	}
	switch x := x.(type) {
	case String:
		if int64(len(x))*count > 1<<28 {
			return nil, true, newError("MemoryError", "repeated sequence too large")
		}
		return String(strings.Repeat(string(x), int(count))), true, nil
	case *List:
		if int64(len(x.elems))*count > 1<<24 {
			return nil, true, newError("MemoryError", "repeated sequence too large")
		}
		elems := make([]Value, 0, len(x.elems)*int(count))
		for i := int64(0); i < count; i++ {
			elems = append(elems, x.elems...)
		}
		return NewList(elems), true, nil
	case Tuple:
		if int64(len(x))*count > 1<<24 {
			return nil, true, newError("MemoryError", "repeated sequence too large")
		}
		t := make(Tuple, 0, len(x)*int(count))
		for i := int64(0); i < count; i++ {
			t = append(t, x...)
		}
		return t, true, nil
	}
	return nil, false, nil
}

func arith(op syntax.Token, x, y Value) (Value, error) {
	a, aInt := toInt(x)
	b, bInt := toInt(y)
	if aInt && bInt {
		switch op {
		case syntax.PLUS:
			return intAdd(a, b), nil
		case syntax.MINUS:
			return intSub(a, b), nil
		case syntax.STAR:
			return intMul(a, b), nil
		case syntax.SLASH:
			if b.sign() == 0 {
				return nil, newError("ZeroDivisionError", "division by zero")
			}
			if ai, ok := a.Int64(); ok {
				if bi, ok := b.Int64(); ok {
					return Float(float64(ai) / float64(bi)), nil
				}
			}
			q, _ := new(big.Rat).SetFrac(a.BigInt(), b.BigInt()).Float64()
			return Float(q), nil
		case syntax.SLASHSLASH:
			if b.sign() == 0 {
				return nil, newError("ZeroDivisionError", "integer division or modulo by zero")
			}
			q, _ := intFloorDivMod(a, b)
			return q, nil
		case syntax.PERCENT:
			if b.sign() == 0 {
				return nil, newError("ZeroDivisionError", "integer modulo by zero")
			}
			_, r := intFloorDivMod(a, b)
			return r, nil
		case syntax.AMP:
			return makeBigInt(new(big.Int).And(a.BigInt(), b.BigInt())), nil
		case syntax.PIPE:
			if _, isBool := x.(Bool); isBool {
				if _, isBool := y.(Bool); isBool {
					return Bool(a.sign() != 0 || b.sign() != 0), nil
				}
			}
			return makeBigInt(new(big.Int).Or(a.BigInt(), b.BigInt())), nil
		case syntax.CIRCUMFLEX:
			return makeBigInt(new(big.Int).Xor(a.BigInt(), b.BigInt())), nil
		case syntax.LTLT, syntax.GTGT:
			if b.sign() < 0 {
				return nil, newError("ValueError", "negative shift count")
			}
			n, ok := b.Int64()
			if !ok || (op == syntax.LTLT && n > 1<<16) {
				return nil, newError("OverflowError", "shift count too large")
			}
			if op == syntax.LTLT {
				return makeBigInt(new(big.Int).Lsh(a.BigInt(), uint(n))), nil
			}
			return makeBigInt(new(big.Int).Rsh(a.BigInt(), uint(n))), nil
		}
		return nil, unsupported(op, x, y)
	}

	f, _ := toFloat(x)
	g, _ := toFloat(y)
	switch op {
	case syntax.PLUS:
		return Float(f + g), nil
	case syntax.MINUS:
		return Float(f - g), nil
	case syntax.STAR:
		return Float(f * g), nil
	case syntax.SLASH:
		if g == 0 {
			return nil, newError("ZeroDivisionError", "float division by zero")
		}
		return Float(f / g), nil
	case syntax.SLASHSLASH:
		if g == 0 {
			return nil, newError("ZeroDivisionError", "float floor division by zero")
		}
		return Float(math.Floor(f / g)), nil
	case syntax.PERCENT:
		if g == 0 {
			return nil, newError("ZeroDivisionError", "float modulo")
		}
		return Float(floatMod(f, g)), nil
	}
	return nil, unsupported(op, x, y)
}

func unary(op syntax.Token, x Value) (Value, error) {
	switch op {
	case syntax.NOT:
		return Bool(!Truth(x)), nil
	case syntax.MINUS:
		if f, ok := x.(Float); ok {
			return -f, nil
		}
		if n, ok := toInt(x); ok {
			return intNeg(n), nil
		}
	case syntax.PLUS:
		if f, ok := x.(Float); ok {
			return f, nil
		}
		if n, ok := toInt(x); ok {
			return n, nil
		}
	case syntax.TILDE:
		if n, ok := toInt(x); ok {
			return makeBigInt(new(big.Int).Not(n.BigInt())), nil
		}
	}
	return nil, newError("TypeError", "bad operand type for unary %s: '%s'", op, x.Type())
}

func equal(x, y Value) bool {
	if isNumber(x) && isNumber(y) {
		a, aInt := toInt(x)
		b, bInt := toInt(y)
		if aInt && bInt {
			return intCmp(a, b) == 0
		}
		f, _ := toFloat(x)
		g, _ := toFloat(y)
		return f == g
	}
	switch x := x.(type) {
	case NoneType:
		_, ok := y.(NoneType)
		return ok
	case String:
		y, ok := y.(String)
		return ok && x == y
	case *List:
		y, ok := y.(*List)
		return ok && (x == y || equalSeq(x.elems, y.elems))
	case Tuple:
		y, ok := y.(Tuple)
		return ok && equalSeq(x, y)
	case Range:
		y, ok := y.(Range)
		if !ok || x.Len() != y.Len() {
			return false
		}
		return x.Len() == 0 || (x.start == y.start && (x.Len() == 1 || x.step == y.step))
	case *Dict:
		y, ok := y.(*Dict)
		if !ok || x.Len() != y.Len() {
			return false
		}
		for i, k := range x.keys {
			v, found, err := y.Get(k)
			if err != nil || !found || !equal(x.vals[i], v) {
				return false
			}
		}
		return true
	case *Builtin:
		y, ok := y.(*Builtin)
		return ok && (x == y || (x.recv != nil && x.Name == y.Name && x.recv == y.recv))
	case *Function, *TypeValue, *Module, *File:
		return x == y
	}
	return false
}

func equalSeq(x, y []Value) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if !equal(x[i], y[i]) {
			return false
		}
	}
	return true
}

// compare orders x and y, returning a negative, zero or positive result.
func compare(op syntax.Token, x, y Value) (int, error) {
	if isNumber(x) && isNumber(y) {
		a, aInt := toInt(x)
		b, bInt := toInt(y)
		if aInt && bInt {
			return intCmp(a, b), nil
		}
		f, _ := toFloat(x)
		g, _ := toFloat(y)
		switch {
		case f < g:
			return -1, nil
		case f > g:
			return 1, nil
		case f == g:
			return 0, nil
		}
		// NaN compares false every way; callers only test the sign.
		if op == syntax.LT || op == syntax.LE {
			return 1, nil
		}
		return -1, nil
	}
	switch x := x.(type) {
	case String:
		if y, ok := y.(String); ok {
			return strings.Compare(string(x), string(y)), nil
		}
	case *List:
		if y, ok := y.(*List); ok {
			return compareSeq(op, x.elems, y.elems)
		}
	case Tuple:
		if y, ok := y.(Tuple); ok {
			return compareSeq(op, x, y)
		}
	}
	return 0, newError("TypeError", "'%s' not supported between instances of '%s' and '%s'", op, x.Type(), y.Type())
}

func compareSeq(op syntax.Token, x, y []Value) (int, error) {
	for i := 0; i < len(x) && i < len(y); i++ {
		if equal(x[i], y[i]) {
			continue
		}
		return compare(op, x[i], y[i])
	}
	return len(x) - len(y), nil
}

func contains(container, item Value) (bool, error) {
	switch c := container.(type) {
	case *List:
		for _, e := range c.elems {
			if equal(e, item) {
				return true, nil
			}
		}
		return false, nil
	case Tuple:
		for _, e := range c {
			if equal(e, item) {
				return true, nil
			}
		}
		return false, nil
	case *Dict:
		_, ok, err := c.Get(item)
		return ok, err
	case String:
		s, ok := item.(String)
		if !ok {
			return false, newError("TypeError", "'in <string>' requires string as left operand, not %s", item.Type())
		}
		return strings.Contains(string(c), string(s)), nil
	case Range:
		n, ok := toInt(item)
		if !ok {
			if f, isFloat := item.(Float); isFloat && float64(f) == math.Trunc(float64(f)) {
				n, ok = floatToInt(float64(f)), true
			}
		}
		if !ok {
			return false, nil
		}
		v, fits := n.Int64()
		if !fits || c.step == 0 {
			return false, nil
		}
		if c.step > 0 && (v < c.start || v >= c.stop) {
			return false, nil
		}
		if c.step < 0 && (v > c.start || v <= c.stop) {
			return false, nil
		}
		return (v-c.start)%c.step == 0, nil
	}
	return false, newError("TypeError", "argument of type '%s' is not iterable", container.Type())
}

// normIndex resolves a possibly negative index against n.
func normIndex(idx Value, n int, what string) (int, error) {
	i, ok := toInt(idx)
	if !ok {
		return 0, newError("TypeError", "%s indices must be integers or slices, not %s", what, idx.Type())
	}
	v, fits := i.Int64()
	if fits && v < 0 {
		v += int64(n)
	}
	if !fits || v < 0 || v >= int64(n) {
		return 0, newError("IndexError", "%s index out of range", what)
	}
	return int(v), nil
}

func getIndex(x, idx Value) (Value, error) {
	switch x := x.(type) {
	case *List:
		i, err := normIndex(idx, len(x.elems), "list")
		if err != nil {
			return nil, err
		}
		return x.elems[i], nil
	case Tuple:
		i, err := normIndex(idx, len(x), "tuple")
		if err != nil {
			return nil, err
		}
		return x[i], nil
	case String:
		if _, ok := toInt(idx); !ok {
			return nil, newError("TypeError", "string indices must be integers, not '%s'", idx.Type())
		}
		rs := []rune(string(x))
		i, err := normIndex(idx, len(rs), "string")
		if err != nil {
			return nil, err
		}
		return String(rs[i]), nil
	case Range:
		i, err := normIndex(idx, int(x.Len()), "range object")
		if err != nil {
			return nil, err
		}
		return MakeInt(x.at(int64(i))), nil
	case *Dict:
		v, ok, err := x.Get(idx)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, newError("KeyError", "%s", Repr(idx))
		}
		return v, nil
	}
	return nil, newError("TypeError", "'%s' object is not subscriptable", x.Type())
}

func setIndex(x, idx, v Value) error {
	switch x := x.(type) {
	case *List:
		if _, ok := toInt(idx); !ok {
			return newError("TypeError", "list indices must be integers or slices, not %s", idx.Type())
		}
		i, err := normIndex(idx, len(x.elems), "list")
		if err != nil {
			return newError("IndexError", "list assignment index out of range")
		}
		x.elems[i] = v
		return nil
	case *Dict:
		return x.Set(idx, v)
	}
	return newError("TypeError", "'%s' object does not support item assignment", x.Type())
}

// sliceIndices clamps optional slice bounds for a sequence of length n the
// way slice.indices does.
func sliceIndices(lo, hi, step Value, n int) (start, stop, stride int, err error) {
	stride = 1
	if step != nil && step != None {
		s, ok := toInt(step)
		if !ok {
			return 0, 0, 0, newError("TypeError", "slice indices must be integers or None")
		}
		v, _ := s.Int64()
		if v == 0 {
			return 0, 0, 0, newError("ValueError", "slice step cannot be zero")
		}
		stride = int(v)
	}
	bound := func(x Value, def int) (int, error) {
		if x == nil || x == None {
			return def, nil
		}
		b, ok := toInt(x)
		if !ok {
			return 0, newError("TypeError", "slice indices must be integers or None or have an __index__ method")
		}
		v, fits := b.Int64()
		if !fits {
			if b.sign() < 0 {
				v = math.MinInt32
			} else {
				v = math.MaxInt32
			}
		}
		if v < 0 {
			v += int64(n)
			if v < 0 {
				if stride < 0 {
					return -1, nil
				}
				return 0, nil
			}
		}
		if v >= int64(n) {
			if stride < 0 {
				return n - 1, nil
			}
			return n, nil
		}
		return int(v), nil
	}
	if stride > 0 {
		if start, err = bound(lo, 0); err != nil {
			return
		}
		stop, err = bound(hi, n)
	} else {
		if start, err = bound(lo, n-1); err != nil {
			return
		}
		stop, err = bound(hi, -1)
	}
	return
}

func sliceIndexList(start, stop, stride int) []int {
	var idx []int
	if stride > 0 {
		for i := start; i < stop; i += stride {
			idx = append(idx, i)
		}
	} else {
		for i := start; i > stop; i += stride {
			idx = append(idx, i)
		}
	}
	return idx
}

func slice(x, lo, hi, step Value) (Value, error) {
	switch x := x.(type) {
	case *List:
		start, stop, stride, err := sliceIndices(lo, hi, step, len(x.elems))
		if err != nil {
			return nil, err
		}
		elems := []Value{}
		for _, i := range sliceIndexList(start, stop, stride) {
			elems = append(elems, x.elems[i])
		}
		return NewList(elems), nil
	case Tuple:
		start, stop, stride, err := sliceIndices(lo, hi, step, len(x))
		if err != nil {
			return nil, err
		}
		t := Tuple{}
		for _, i := range sliceIndexList(start, stop, stride) {
			t = append(t, x[i])
		}
		return t, nil
	case String:
		rs := []rune(string(x))
		start, stop, stride, err := sliceIndices(lo, hi, step, len(rs))
		if err != nil {
			return nil, err
		}
		var b strings.Builder
		for _, i := range sliceIndexList(start, stop, stride) {
			b.WriteRune(rs[i])
		}
		return String(b.String()), nil
	case Range:
		n := int(x.Len())
		start, stop, stride, err := sliceIndices(lo, hi, step, n)
		if err != nil {
			return nil, err
		}
		idx := sliceIndexList(start, stop, stride)
		r := Range{start: x.at(int64(start)), step: x.step * int64(stride)}
		r.stop = r.start + int64(len(idx))*r.step
		return r, nil
	}
	return nil, newError("TypeError", "'%s' object is not subscriptable", x.Type())
}
