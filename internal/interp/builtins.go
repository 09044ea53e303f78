package interp

import (
	"math"
	"math/big"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
	"go.starlark.net/syntax"
)

// unpackArgs binds arguments to the named slots. A name ending in "?" is
// optional and left nil when absent.
func unpackArgs(fname string, args []Value, kwargs []kwarg, names ...string) ([]Value, error) {
	out := make([]Value, len(names))
	if len(args) > len(names) {
		return nil, newError("TypeError", "%s() takes at most %d %s (%d given)", fname, len(names), plural(len(names), "argument"), len(args))
	}
	copy(out, args)
	for _, kw := range kwargs {
		found := false
		for i, n := range names {
			if strings.TrimSuffix(n, "?") != kw.name {
				continue
			}
			if out[i] != nil {
				return nil, newError("TypeError", "%s() got multiple values for argument '%s'", fname, kw.name)
			}
			out[i] = kw.value
			found = true
		}
		if !found {
			return nil, newError("TypeError", "%s() got an unexpected keyword argument '%s'", fname, kw.name)
		}
	}
	for i, n := range names {
		if out[i] == nil && !strings.HasSuffix(n, "?") {
			return nil, newError("TypeError", "%s() missing required argument '%s' (pos %d)", fname, n, i+1)
		}
	}
	return out, nil
}

func noKwargs(fname string, kwargs []kwarg) error {
	if len(kwargs) > 0 {
		return newError("TypeError", "%s() takes no keyword arguments", fname)
	}
	return nil
}

func exactArgs(fname string, args []Value, kwargs []kwarg, n int) error {
	if err := noKwargs(fname, kwargs); err != nil {
		return err
	}
	if len(args) != n {
		if n == 1 {
			return newError("TypeError", "%s() takes exactly one argument (%d given)", fname, len(args))
		}
		return newError("TypeError", "%s expected %d arguments, got %d", fname, n, len(args))
	}
	return nil
}

func (in *Interpreter) newBuiltins() map[string]Value {
	fns := map[string]builtinFunc{
		"print":      builtinPrint,
		"input":      builtinInput,
		"len":        builtinLen,
		"repr":       builtinRepr,
		"abs":        builtinAbs,
		"min":        builtinMinMax,
		"max":        builtinMinMax,
		"sum":        builtinSum,
		"sorted":     builtinSorted,
		"reversed":   builtinReversed,
		"enumerate":  builtinEnumerate,
		"zip":        builtinZip,
		"any":        builtinAnyAll,
		"all":        builtinAnyAll,
		"round":      builtinRound,
		"divmod":     builtinDivmod,
		"pow":        builtinPow,
		"chr":        builtinChr,
		"ord":        builtinOrd,
		"hex":        builtinIntBase,
		"bin":        builtinIntBase,
		"oct":        builtinIntBase,
		"isinstance": builtinIsinstance,
		"hash":       builtinHash,
		"callable":   builtinCallable,
	}
	b := make(map[string]Value, len(fns)+16)
	for name, fn := range fns {
		b[name] = &Builtin{Name: name, fn: fn}
	}
	for name, ctor := range typeCtors {
		b[name] = &TypeValue{name: name, ctor: ctor}
	}
	b["sys"] = &Module{name: "sys", attrs: map[string]Value{
		"stdout":  in.stdout,
		"stderr":  in.stderr,
		"stdin":   in.stdin,
		"maxsize": MakeInt(math.MaxInt64),
	}}
	b["math"] = newMathModule()
	return b
}

var typeCtors map[string]builtinFunc

func init() {
	typeCtors = map[string]builtinFunc{
		"int":   builtinInt,
		"float": builtinFloat,
		"str":   builtinStr,
		"bool":  builtinBool,
		"list":  builtinList,
		"tuple": builtinTuple,
		"dict":  builtinDict,
		"range": builtinRange,
		"type":  builtinType,
	}
}

func builtinPrint(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	sep, end := " ", "\n"
	out := in.stdout
	for _, kw := range kwargs {
		switch kw.name {
		case "sep", "end":
			s := ""
			switch v := kw.value.(type) {
			case String:
				s = string(v)
			case NoneType:
				if kw.name == "sep" {
					s = " "
				} else {
					s = "\n"
				}
			default:
				return nil, newError("TypeError", "%s must be None or a string, not %s", kw.name, v.Type())
			}
			if kw.name == "sep" {
				sep = s
			} else {
				end = s
			}
		case "file":
			switch f := kw.value.(type) {
			case *File:
				out = f
			case NoneType:
			default:
				return nil, newError("AttributeError", "'%s' object has no attribute 'write'", f.Type())
			}
		case "flush":
		default:
			return nil, newError("TypeError", "'%s' is an invalid keyword argument for print()", kw.name)
		}
	}
	var sb strings.Builder
	for i, a := range args {
		if i > 0 {
			sb.WriteString(sep)
		}
		sb.WriteString(Str(a))
	}
	sb.WriteString(end)
	return None, in.write(out, sb.String())
}

func builtinInput(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	a, err := unpackArgs("input", args, kwargs, "prompt?")
	if err != nil {
		return nil, err
	}
	if a[0] != nil {
		if err := in.write(in.stdout, Str(a[0])); err != nil {
			return nil, err
		}
	}
	line, err := in.stdin.readline()
	if err != nil {
		return nil, err
	}
	if line == "" {
		return nil, newError("EOFError", "EOF when reading a line")
	}
	return String(trimNewline(line)), nil
}

func length(v Value) (int, bool) {
	switch v := v.(type) {
	case String:
		return utf8.RuneCountInString(string(v)), true
	case *List:
		return len(v.elems), true
	case Tuple:
		return len(v), true
	case *Dict:
		return v.Len(), true
	case Range:
		return int(v.Len()), true
	}
	return 0, false
}

func builtinLen(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	if err := exactArgs("len", args, kwargs, 1); err != nil {
		return nil, err
	}
	n, ok := length(args[0])
	if !ok {
		return nil, newError("TypeError", "object of type '%s' has no len()", args[0].Type())
	}
	return MakeInt(int64(n)), nil
}

func builtinRepr(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	if err := exactArgs("repr", args, kwargs, 1); err != nil {
		return nil, err
	}
	return String(Repr(args[0])), nil
}

func builtinAbs(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	if err := exactArgs("abs", args, kwargs, 1); err != nil {
		return nil, err
	}
	switch v := args[0].(type) {
	case Float:
		return Float(math.Abs(float64(v))), nil
	case Int, Bool:
		n, _ := toInt(v)
		if n.sign() < 0 {
			return intNeg(n), nil
		}
		return n, nil
	}
	return nil, newError("TypeError", "bad operand type for abs(): '%s'", args[0].Type())
}

func builtinMinMax(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	var key, def Value
	for _, kw := range kwargs {
		switch kw.name {
		case "key":
			key = kw.value
		case "default":
			def = kw.value
		default:
			return nil, newError("TypeError", "%s() got an unexpected keyword argument '%s'", b.Name, kw.name)
		}
	}
	var items []Value
	switch len(args) {
	case 0:
		return nil, newError("TypeError", "%s expected at least 1 argument, got 0", b.Name)
	case 1:
		var err error
		if items, err = in.collect(args[0]); err != nil {
			return nil, err
		}
	default:
		items = args
	}
	if len(items) == 0 {
		if def != nil {
			return def, nil
		}
		return nil, newError("ValueError", "%s() iterable argument is empty", b.Name)
	}
	best := items[0]
	bestKey, err := in.keyOf(fr, key, best)
	if err != nil {
		return nil, err
	}
	for _, item := range items[1:] {
		k, err := in.keyOf(fr, key, item)
		if err != nil {
			return nil, err
		}
		c, err := compare(syntax.LT, k, bestKey)
		if err != nil {
			return nil, err
		}
		if (b.Name == "min" && c < 0) || (b.Name == "max" && c > 0) {
			best, bestKey = item, k
		}
	}
	return best, nil
}

func (in *Interpreter) keyOf(fr *Frame, key, v Value) (Value, error) {
	if key == nil || key == None {
		return v, nil
	}
	return in.call(fr, key, []Value{v}, nil)
}

func builtinSum(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	a, err := unpackArgs("sum", args, kwargs, "iterable", "start?")
	if err != nil {
		return nil, err
	}
	items, err := in.collect(a[0])
	if err != nil {
		return nil, err
	}
	var acc Value = MakeInt(0)
	if a[1] != nil {
		if _, isStr := a[1].(String); isStr {
			return nil, newError("TypeError", "sum() can't sum strings [use ''.join(seq) instead]")
		}
		acc = a[1]
	}
	for _, item := range items {
		if acc, err = binary(syntax.PLUS, acc, item); err != nil {
			return nil, err
		}
	}
	return acc, nil
}

// sortValues sorts items stably, calling key on each element first.
func (in *Interpreter) sortValues(fr *Frame, items []Value, key Value, reverse bool) error {
	keys := make([]Value, len(items))
	for i, item := range items {
		k, err := in.keyOf(fr, key, item)
		if err != nil {
			return err
		}
		keys[i] = k
	}
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	var sortErr error
	sort.SliceStable(idx, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		a, b := keys[idx[i]], keys[idx[j]]
		if reverse {
			a, b = b, a
		}
		c, err := compare(syntax.LT, a, b)
		if err != nil {
			sortErr = err
			return false
		}
		return c < 0
	})
	if sortErr != nil {
		return sortErr
	}
	sorted := make([]Value, len(items))
	for i, j := range idx {
		sorted[i] = items[j]
	}
	copy(items, sorted)
	return nil
}

func sortOptions(fname string, kwargs []kwarg) (key Value, reverse bool, err error) {
	for _, kw := range kwargs {
		switch kw.name {
		case "key":
			key = kw.value
		case "reverse":
			reverse = Truth(kw.value)
		default:
			return nil, false, newError("TypeError", "%s() got an unexpected keyword argument '%s'", fname, kw.name)
		}
	}
	return key, reverse, nil
}

func builtinSorted(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	if len(args) != 1 {
		return nil, newError("TypeError", "sorted expected 1 argument, got %d", len(args))
	}
	key, reverse, err := sortOptions("sorted", kwargs)
	if err != nil {
		return nil, err
	}
	items, err := in.collect(args[0])
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Value{}
	}
	if err := in.sortValues(fr, items, key, reverse); err != nil {
		return nil, err
	}
	return NewList(items), nil
}

func builtinReversed(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	if err := exactArgs("reversed", args, kwargs, 1); err != nil {
		return nil, err
	}
	if _, isDict := args[0].(*Dict); isDict {
		return nil, newError("TypeError", "'dict' object is not reversible")
	}
	items, err := in.collect(args[0])
	if err != nil {
		return nil, err
	}
	out := make([]Value, len(items))
	for i, item := range items {
		out[len(items)-1-i] = item
	}
	return NewList(out), nil
}

func builtinEnumerate(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	a, err := unpackArgs("enumerate", args, kwargs, "iterable", "start?")
	if err != nil {
		return nil, err
	}
	start := MakeInt(0)
	if a[1] != nil {
		var ok bool
		if start, ok = toInt(a[1]); !ok {
			return nil, newError("TypeError", "'%s' object cannot be interpreted as an integer", a[1].Type())
		}
	}
	items, err := in.collect(a[0])
	if err != nil {
		return nil, err
	}
	out := make([]Value, len(items))
	for i, item := range items {
		out[i] = Tuple{intAdd(start, MakeInt(int64(i))), item}
	}
	return NewList(out), nil
}

func builtinZip(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	if err := noKwargs("zip", kwargs); err != nil {
		return nil, err
	}
	seqs := make([][]Value, len(args))
	n := -1
	for i, a := range args {
		items, err := in.collect(a)
		if err != nil {
			return nil, newError("TypeError", "zip argument #%d must support iteration", i+1)
		}
		seqs[i] = items
		if n < 0 || len(items) < n {
			n = len(items)
		}
	}
	out := []Value{}
	for i := 0; i < n; i++ {
		t := make(Tuple, len(seqs))
		for j := range seqs {
			t[j] = seqs[j][i]
		}
		out = append(out, t)
	}
	return NewList(out), nil
}

func builtinAnyAll(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	if err := exactArgs(b.Name, args, kwargs, 1); err != nil {
		return nil, err
	}
	items, err := in.collect(args[0])
	if err != nil {
		return nil, err
	}
	want := b.Name == "any"
	for _, item := range items {
		if Truth(item) == want {
			return Bool(want), nil
		}
	}
	return Bool(!want), nil
}

func builtinRound(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	a, err := unpackArgs("round", args, kwargs, "number", "ndigits?")
	if err != nil {
		return nil, err
	}
	if n, ok := toInt(a[0]); ok {
		return n, nil
	}
	f, ok := a[0].(Float)
	if !ok {
		return nil, newError("TypeError", "type %s doesn't define __round__ method", a[0].Type())
	}
	if a[1] == nil || a[1] == None {
		if math.IsInf(float64(f), 0) {
			return nil, newError("OverflowError", "cannot convert float infinity to integer")
		}
		if math.IsNaN(float64(f)) {
			return nil, newError("ValueError", "cannot convert float NaN to integer")
		}
		return floatToInt(math.RoundToEven(float64(f))), nil
	}
	nd, ok := toInt(a[1])
	if !ok {
		return nil, newError("TypeError", "'%s' object cannot be interpreted as an integer", a[1].Type())
	}
	digits, _ := nd.Int64()
	s := strconv.FormatFloat(float64(f), 'f', int(max(min(digits, 17), 0)), 64)
	if digits < 0 {
		p := math.Pow(10, float64(-digits))
		return Float(math.RoundToEven(float64(f)/p) * p), nil
	}
	r, _ := strconv.ParseFloat(s, 64)
	return Float(r), nil
}

func builtinDivmod(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	if err := exactArgs("divmod", args, kwargs, 2); err != nil {
		return nil, err
	}
	q, err := binary(syntax.SLASHSLASH, args[0], args[1])
	if err != nil {
		return nil, err
	}
	r, err := binary(syntax.PERCENT, args[0], args[1])
	if err != nil {
		return nil, err
	}
	return Tuple{q, r}, nil
}

func builtinPow(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	a, err := unpackArgs("pow", args, kwargs, "base", "exp", "mod?")
	if err != nil {
		return nil, err
	}
	return power(a[0], a[1], a[2])
}

func power(x, y, mod Value) (Value, error) {
	base, bInt := toInt(x)
	exp, eInt := toInt(y)
	if bInt && eInt {
		if mod != nil && mod != None {
			m, ok := toInt(mod)
			if !ok {
				return nil, newError("TypeError", "pow() 3rd argument not allowed unless all arguments are integers")
			}
			if m.sign() == 0 {
				return nil, newError("ValueError", "pow() 3rd argument cannot be 0")
			}
			if exp.sign() < 0 {
				return nil, newError("ValueError", "base is not invertible for the given modulus")
			}
			r := new(big.Int).Exp(base.BigInt(), exp.BigInt(), new(big.Int).Abs(m.BigInt()))
			_, rem := intFloorDivMod(makeBigInt(r), m)
			return rem, nil
		}
		if exp.sign() >= 0 {
			e, ok := exp.Int64()
			if !ok || (e > 1<<16 && base.BigInt().CmpAbs(big.NewInt(1)) > 0) {
				return nil, newError("OverflowError", "exponent too large")
			}
			return makeBigInt(new(big.Int).Exp(base.BigInt(), exp.BigInt(), nil)), nil
		}
		if base.sign() == 0 {
			return nil, newError("ZeroDivisionError", "0.0 cannot be raised to a negative power")
		}
	}
	f, ok1 := toFloat(x)
	g, ok2 := toFloat(y)
	if !ok1 || !ok2 {
		return nil, newError("TypeError", "unsupported operand type(s) for ** or pow(): '%s' and '%s'", x.Type(), y.Type())
	}
	if f == 0 && g < 0 {
		return nil, newError("ZeroDivisionError", "0.0 cannot be raised to a negative power")
	}
	if f < 0 && g != math.Trunc(g) {
		return nil, newError("ValueError", "math domain error")
	}
	return Float(math.Pow(f, g)), nil
}

func builtinChr(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	if err := exactArgs("chr", args, kwargs, 1); err != nil {
		return nil, err
	}
	n, ok := toInt(args[0])
	if !ok {
		return nil, newError("TypeError", "'%s' object cannot be interpreted as an integer", args[0].Type())
	}
	v, fits := n.Int64()
	if !fits || v < 0 || v > utf8.MaxRune {
		return nil, newError("ValueError", "chr() arg not in range(0x110000)")
	}
	return String(rune(v)), nil
}

func builtinOrd(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	if err := exactArgs("ord", args, kwargs, 1); err != nil {
		return nil, err
	}
	s, ok := args[0].(String)
	if !ok {
		return nil, newError("TypeError", "ord() expected string of length 1, but %s found", args[0].Type())
	}
	if n := utf8.RuneCountInString(string(s)); n != 1 {
		return nil, newError("TypeError", "ord() expected a character, but string of length %d found", n)
	}
	r, _ := utf8.DecodeRuneInString(string(s))
	return MakeInt(int64(r)), nil
}

func builtinIntBase(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	if err := exactArgs(b.Name, args, kwargs, 1); err != nil {
		return nil, err
	}
	n, ok := toInt(args[0])
	if !ok {
		return nil, newError("TypeError", "'%s' object cannot be interpreted as an integer", args[0].Type())
	}
	switch b.Name {
	case "hex":
		return String(formatIntBase(n, 16, "0x")), nil
	case "bin":
		return String(formatIntBase(n, 2, "0b")), nil
	}
	return String(formatIntBase(n, 8, "0o")), nil
}

func builtinIsinstance(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	if err := exactArgs("isinstance", args, kwargs, 2); err != nil {
		return nil, err
	}
	var types []Value
	switch t := args[1].(type) {
	case *TypeValue:
		types = []Value{t}
	case Tuple:
		types = t
	default:
		return nil, newError("TypeError", "isinstance() arg 2 must be a type, a tuple of types, or a union")
	}
	for _, t := range types {
		tv, ok := t.(*TypeValue)
		if !ok {
			return nil, newError("TypeError", "isinstance() arg 2 must be a type, a tuple of types, or a union")
		}
		typ := args[0].Type()
		if typ == tv.name || (typ == "bool" && tv.name == "int") {
			return Bool(true), nil
		}
	}
	return Bool(false), nil
}

func builtinHash(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	if err := exactArgs("hash", args, kwargs, 1); err != nil {
		return nil, err
	}
	k, err := hashKey(args[0])
	if err != nil {
		return nil, err
	}
	if n, ok := k.(int64); ok {
		return MakeInt(n), nil
	}
	return MakeInt(int64(xxhash.Sum64String(typeTag(k)+keyString(k)) >> 1)), nil
}

func builtinCallable(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	if err := exactArgs("callable", args, kwargs, 1); err != nil {
		return nil, err
	}
	switch args[0].(type) {
	case *Function, *Builtin, *TypeValue:
		return Bool(true), nil
	}
	return Bool(false), nil
}

func builtinInt(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	a, err := unpackArgs("int", args, kwargs, "x?", "base?")
	if err != nil {
		return nil, err
	}
	if a[0] == nil {
		return MakeInt(0), nil
	}
	if s, ok := a[0].(String); ok {
		base := int64(10)
		if a[1] != nil {
			n, ok := toInt(a[1])
			if !ok {
				return nil, newError("TypeError", "'%s' object cannot be interpreted as an integer", a[1].Type())
			}
			base, _ = n.Int64()
		}
		return parseInt(string(s), int(base))
	}
	if a[1] != nil {
		return nil, newError("TypeError", "int() can't convert non-string with explicit base")
	}
	switch v := a[0].(type) {
	case Float:
		if math.IsInf(float64(v), 0) {
			return nil, newError("OverflowError", "cannot convert float infinity to integer")
		}
		if math.IsNaN(float64(v)) {
			return nil, newError("ValueError", "cannot convert float NaN to integer")
		}
		return floatToInt(float64(v)), nil
	case Int, Bool:
		n, _ := toInt(v)
		return n, nil
	}
	return nil, newError("TypeError", "int() argument must be a string or a real number, not '%s'", a[0].Type())
}

func parseInt(s string, base int) (Value, error) {
	invalid := newError("ValueError", "invalid literal for int() with base %d: %s", base, quote(s))
	if base != 0 && (base < 2 || base > 36) {
		return nil, newError("ValueError", "int() base must be >= 2 and <= 36, or 0")
	}
	t := strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(t, "-") || strings.HasPrefix(t, "+") {
		neg = t[0] == '-'
		t = t[1:]
	}
	lower := strings.ToLower(t)
	for prefix, pb := range map[string]int{"0x": 16, "0o": 8, "0b": 2} {
		if strings.HasPrefix(lower, prefix) && (base == 0 || base == pb) {
			t, base = t[2:], pb
			break
		}
	}
	if base == 0 {
		base = 10
	}
	t = strings.ReplaceAll(t, "_", "")
	if t == "" {
		return nil, invalid
	}
	n, ok := new(big.Int).SetString(t, base)
	if !ok {
		return nil, invalid
	}
	if neg {
		n.Neg(n)
	}
	return makeBigInt(n), nil
}

func builtinFloat(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	a, err := unpackArgs("float", args, kwargs, "x?")
	if err != nil {
		return nil, err
	}
	if a[0] == nil {
		return Float(0), nil
	}
	if s, ok := a[0].(String); ok {
		t := strings.ToLower(strings.TrimSpace(string(s)))
		switch strings.TrimLeft(t, "+-") {
		case "inf", "infinity":
			if strings.HasPrefix(t, "-") {
				return Float(math.Inf(-1)), nil
			}
			return Float(math.Inf(1)), nil
		case "nan":
			return Float(math.NaN()), nil
		}
		f, err := strconv.ParseFloat(strings.ReplaceAll(t, "_", ""), 64)
		if err != nil && !strings.Contains(err.Error(), "range") {
			return nil, newError("ValueError", "could not convert string to float: %s", quote(string(s)))
		}
		return Float(f), nil
	}
	f, ok := toFloat(a[0])
	if !ok {
		return nil, newError("TypeError", "float() argument must be a string or a real number, not '%s'", a[0].Type())
	}
	return Float(f), nil
}

func builtinStr(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	a, err := unpackArgs("str", args, kwargs, "object?")
	if err != nil {
		return nil, err
	}
	if a[0] == nil {
		return String(""), nil
	}
	return String(Str(a[0])), nil
}

func builtinBool(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	a, err := unpackArgs("bool", args, kwargs, "x?")
	if err != nil {
		return nil, err
	}
	if a[0] == nil {
		return Bool(false), nil
	}
	return Bool(Truth(a[0])), nil
}

func builtinList(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	a, err := unpackArgs("list", args, kwargs, "iterable?")
	if err != nil {
		return nil, err
	}
	if a[0] == nil {
		return NewList([]Value{}), nil
	}
	items, err := in.collect(a[0])
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Value{}
	}
	return NewList(items), nil
}

func builtinTuple(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	a, err := unpackArgs("tuple", args, kwargs, "iterable?")
	if err != nil {
		return nil, err
	}
	if a[0] == nil {
		return Tuple{}, nil
	}
	items, err := in.collect(a[0])
	if err != nil {
		return nil, err
	}
	return Tuple(items), nil
}

func builtinDict(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	if len(args) > 1 {
		return nil, newError("TypeError", "dict expected at most 1 argument, got %d", len(args))
	}
	d := NewDict()
	if len(args) == 1 {
		if err := in.dictUpdate(d, args[0]); err != nil {
			return nil, err
		}
	}
	for _, kw := range kwargs {
		if err := d.Set(String(kw.name), kw.value); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// dictUpdate merges a dict or an iterable of pairs into d.
func (in *Interpreter) dictUpdate(d *Dict, src Value) error {
	if s, ok := src.(*Dict); ok {
		for i, k := range s.keys {
			if err := d.Set(k, s.vals[i]); err != nil {
				return err
			}
		}
		return nil
	}
	items, err := in.collect(src)
	if err != nil {
		return err
	}
	for i, item := range items {
		pair, err := in.collect(item)
		if err != nil {
			return newError("TypeError", "cannot convert dictionary update sequence element #%d to a sequence", i)
		}
		if len(pair) != 2 {
			return newError("ValueError", "dictionary update sequence element #%d has length %d; 2 is required", i, len(pair))
		}
		if err := d.Set(pair[0], pair[1]); err != nil {
			return err
		}
	}
	return nil
}

func builtinRange(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	if err := noKwargs("range", kwargs); err != nil {
		return nil, err
	}
	if len(args) < 1 || len(args) > 3 {
		return nil, newError("TypeError", "range expected at most 3 arguments, got %d", len(args))
	}
	vals := make([]int64, len(args))
	for i, a := range args {
		n, ok := toInt(a)
		if !ok {
			return nil, newError("TypeError", "'%s' object cannot be interpreted as an integer", a.Type())
		}
		v, fits := n.Int64()
		if !fits {
			return nil, newError("OverflowError", "Python int too large to convert to C ssize_t")
		}
		vals[i] = v
	}
	r := Range{step: 1}
	switch len(vals) {
	case 1:
		r.stop = vals[0]
	case 2:
		r.start, r.stop = vals[0], vals[1]
	case 3:
		r.start, r.stop, r.step = vals[0], vals[1], vals[2]
		if r.step == 0 {
			return nil, newError("ValueError", "range() arg 3 must not be zero")
		}
	}
	return r, nil
}

func builtinType(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	if err := exactArgs("type", args, kwargs, 1); err != nil {
		return nil, err
	}
	name := args[0].Type()
	if tv, ok := in.builtins[name].(*TypeValue); ok {
		return tv, nil
	}
	return &TypeValue{name: name}, nil
}

func newMathModule() *Module {
	unary := func(name string, f func(float64) (Value, error)) *Builtin {
		return &Builtin{Name: name, fn: func(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
			if err := exactArgs(name, args, kwargs, 1); err != nil {
				return nil, err
			}
			x, ok := toFloat(args[0])
			if !ok {
				return nil, newError("TypeError", "must be real number, not %s", args[0].Type())
			}
			return f(x)
		}}
	}
	domain := newError("ValueError", "math domain error")
	rounding := func(round func(float64) float64) func(float64) (Value, error) {
		return func(x float64) (Value, error) {
			if math.IsInf(x, 0) {
				return nil, newError("OverflowError", "cannot convert float infinity to integer")
			}
			if math.IsNaN(x) {
				return nil, newError("ValueError", "cannot convert float NaN to integer")
			}
			return floatToInt(round(x)), nil
		}
	}
	attrs := map[string]Value{
		"pi":  Float(math.Pi),
		"e":   Float(math.E),
		"inf": Float(math.Inf(1)),
		"nan": Float(math.NaN()),
		"sqrt": unary("sqrt", func(x float64) (Value, error) {
			if x < 0 {
				return nil, domain
			}
			return Float(math.Sqrt(x)), nil
		}),
		"floor": unary("floor", rounding(math.Floor)),
		"ceil":  unary("ceil", rounding(math.Ceil)),
		"log2": unary("log2", func(x float64) (Value, error) {
			if x <= 0 {
				return nil, domain
			}
			return Float(math.Log2(x)), nil
		}),
		"log10": unary("log10", func(x float64) (Value, error) {
			if x <= 0 {
				return nil, domain
			}
			return Float(math.Log10(x)), nil
		}),
		"fabs": unary("fabs", func(x float64) (Value, error) { return Float(math.Abs(x)), nil }),
	}
	attrs["log"] = &Builtin{Name: "log", fn: func(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
		a, err := unpackArgs("log", args, kwargs, "x", "base?")
		if err != nil {
			return nil, err
		}
		x, ok := toFloat(a[0])
		if !ok {
			return nil, newError("TypeError", "must be real number, not %s", a[0].Type())
		}
		if x <= 0 {
			return nil, domain
		}
		if a[1] == nil {
			return Float(math.Log(x)), nil
		}
		base, ok := toFloat(a[1])
		if !ok {
			return nil, newError("TypeError", "must be real number, not %s", a[1].Type())
		}
		if base <= 0 || base == 1 {
			return nil, domain
		}
		return Float(math.Log(x) / math.Log(base)), nil
	}}
	attrs["gcd"] = &Builtin{Name: "gcd", fn: func(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
		if err := noKwargs("gcd", kwargs); err != nil {
			return nil, err
		}
		g := new(big.Int)
		for _, a := range args {
			n, ok := toInt(a)
			if !ok {
				return nil, newError("TypeError", "'%s' object cannot be interpreted as an integer", a.Type())
			}
			g.GCD(nil, nil, g, new(big.Int).Abs(n.BigInt()))
		}
		return makeBigInt(g), nil
	}}
	return &Module{name: "math", attrs: attrs}
}
