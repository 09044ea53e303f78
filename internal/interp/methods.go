package interp

import (
	"io"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	listMethods map[string]builtinFunc
	dictMethods map[string]builtinFunc
	strMethods  map[string]builtinFunc
	fileMethods map[string]builtinFunc
)

func init() {
	listMethods = map[string]builtinFunc{
		"append":  listAppend,
		"extend":  listExtend,
		"insert":  listInsert,
		"pop":     listPop,
		"remove":  listRemove,
		"index":   listIndex,
		"count":   seqCount,
		"sort":    listSort,
		"reverse": listReverse,
		"clear":   listClear,
		"copy":    listCopy,
	}
	dictMethods = map[string]builtinFunc{
		"get":        dictGet,
		"keys":       dictKeys,
		"values":     dictValues,
		"items":      dictItems,
		"pop":        dictPop,
		"setdefault": dictSetdefault,
		"update":     dictUpdate,
		"clear":      dictClear,
		"copy":       dictCopy,
	}
	strMethods = map[string]builtinFunc{
		"join":       strJoin,
		"split":      strSplit,
		"rsplit":     strSplit,
		"splitlines": strSplitlines,
		"strip":      strStrip,
		"lstrip":     strStrip,
		"rstrip":     strStrip,
		"upper":      strCase,
		"lower":      strCase,
		"title":      strCase,
		"capitalize": strCase,
		"swapcase":   strCase,
		"replace":    strReplace,
		"startswith": strAffix,
		"endswith":   strAffix,
		"find":       strFind,
		"rfind":      strFind,
		"index":      strFind,
		"rindex":     strFind,
		"count":      strCount,
		"format":     strFormatMethod,
		"isdigit":    strPredicate,
		"isalpha":    strPredicate,
		"isalnum":    strPredicate,
		"isspace":    strPredicate,
		"isupper":    strPredicate,
		"islower":    strPredicate,
		"zfill":      strZfill,
		"center":     strJustify,
		"ljust":      strJustify,
		"rjust":      strJustify,
	}
	fileMethods = map[string]builtinFunc{
		"write":    fileWrite,
		"readline": fileReadline,
		"read":     fileRead,
		"flush":    fileFlush,
	}
}

func methodsOf(v Value) map[string]builtinFunc {
	switch v.(type) {
	case *List:
		return listMethods
	case Tuple:
		return map[string]builtinFunc{"index": listIndex, "count": seqCount}
	case *Dict:
		return dictMethods
	case String:
		return strMethods
	case *File:
		return fileMethods
	}
	return nil
}

func listAppend(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	if err := exactArgs("append", args, kwargs, 1); err != nil {
		return nil, err
	}
	l := b.recv.(*List)
	l.elems = append(l.elems, args[0])
	return None, nil
}

func listExtend(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	if err := exactArgs("extend", args, kwargs, 1); err != nil {
		return nil, err
	}
	items, err := in.collect(args[0])
	if err != nil {
		return nil, err
	}
	l := b.recv.(*List)
	l.elems = append(l.elems, items...)
	return None, nil
}

func listInsert(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	if err := exactArgs("insert", args, kwargs, 2); err != nil {
		return nil, err
	}
	n, ok := toInt(args[0])
	if !ok {
		return nil, newError("TypeError", "'%s' object cannot be interpreted as an integer", args[0].Type())
	}
	l := b.recv.(*List)
	i, _ := n.Int64()
	size := int64(len(l.elems))
	if i < 0 {
		i += size
	}
	i = max(0, min(i, size))
	l.elems = append(l.elems, nil)
	copy(l.elems[i+1:], l.elems[i:])
	l.elems[i] = args[1]
	return None, nil
}

func listPop(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	a, err := unpackArgs("pop", args, kwargs, "index?")
	if err != nil {
		return nil, err
	}
	l := b.recv.(*List)
	if len(l.elems) == 0 {
		return nil, newError("IndexError", "pop from empty list")
	}
	i := len(l.elems) - 1
	if a[0] != nil {
		if i, err = normIndex(a[0], len(l.elems), "pop"); err != nil {
			return nil, err
		}
	}
	v := l.elems[i]
	l.elems = append(l.elems[:i], l.elems[i+1:]...)
	return v, nil
}

func listRemove(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	if err := exactArgs("remove", args, kwargs, 1); err != nil {
		return nil, err
	}
	l := b.recv.(*List)
	for i, e := range l.elems {
		if equal(e, args[0]) {
			l.elems = append(l.elems[:i], l.elems[i+1:]...)
			return None, nil
		}
	}
	return nil, newError("ValueError", "list.remove(x): x not in list")
}

func seqElems(v Value) []Value {
	switch v := v.(type) {
	case *List:
		return v.elems
	case Tuple:
		return v
	}
	return nil
}

func listIndex(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	if err := exactArgs("index", args, kwargs, 1); err != nil {
		return nil, err
	}
	for i, e := range seqElems(b.recv) {
		if equal(e, args[0]) {
			return MakeInt(int64(i)), nil
		}
	}
	if _, isTuple := b.recv.(Tuple); isTuple {
		return nil, newError("ValueError", "tuple.index(x): x not in tuple")
	}
	return nil, newError("ValueError", "%s is not in list", Repr(args[0]))
}

func seqCount(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	if err := exactArgs("count", args, kwargs, 1); err != nil {
		return nil, err
	}
	n := 0
	for _, e := range seqElems(b.recv) {
		if equal(e, args[0]) {
			n++
		}
	}
	return MakeInt(int64(n)), nil
}

func listSort(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	if len(args) > 0 {
		return nil, newError("TypeError", "sort() takes no positional arguments")
	}
	key, reverse, err := sortOptions("sort", kwargs)
	if err != nil {
		return nil, err
	}
	return None, in.sortValues(fr, b.recv.(*List).elems, key, reverse)
}

func listReverse(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	if err := exactArgs("reverse", args, kwargs, 0); err != nil {
		return nil, err
	}
	elems := b.recv.(*List).elems
	for i, j := 0, len(elems)-1; i < j; i, j = i+1, j-1 {
		elems[i], elems[j] = elems[j], elems[i]
	}
	return None, nil
}

func listClear(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	if err := exactArgs("clear", args, kwargs, 0); err != nil {
		return nil, err
	}
	b.recv.(*List).elems = []Value{}
	return None, nil
}

func listCopy(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	if err := exactArgs("copy", args, kwargs, 0); err != nil {
		return nil, err
	}
	return NewList(append([]Value{}, b.recv.(*List).elems...)), nil
}

func dictGet(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	a, err := unpackArgs("get", args, kwargs, "key", "default?")
	if err != nil {
		return nil, err
	}
	v, ok, err := b.recv.(*Dict).Get(a[0])
	if err != nil {
		return nil, err
	}
	if ok {
		return v, nil
	}
	if a[1] == nil {
		return None, nil
	}
	return a[1], nil
}

func dictKeys(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	if err := exactArgs("keys", args, kwargs, 0); err != nil {
		return nil, err
	}
	return NewList(append([]Value{}, b.recv.(*Dict).keys...)), nil
}

func dictValues(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	if err := exactArgs("values", args, kwargs, 0); err != nil {
		return nil, err
	}
	return NewList(append([]Value{}, b.recv.(*Dict).vals...)), nil
}

func dictItems(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	if err := exactArgs("items", args, kwargs, 0); err != nil {
		return nil, err
	}
	d := b.recv.(*Dict)
	items := make([]Value, len(d.keys))
	for i, k := range d.keys {
		items[i] = Tuple{k, d.vals[i]}
	}
	return NewList(items), nil
}

func dictPop(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	a, err := unpackArgs("pop", args, kwargs, "key", "default?")
	if err != nil {
		return nil, err
	}
	v, ok, err := b.recv.(*Dict).Delete(a[0])
	if err != nil {
		return nil, err
	}
	if ok {
		return v, nil
	}
	if a[1] != nil {
		return a[1], nil
	}
	return nil, newError("KeyError", "%s", Repr(a[0]))
}

func dictSetdefault(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	a, err := unpackArgs("setdefault", args, kwargs, "key", "default?")
	if err != nil {
		return nil, err
	}
	d := b.recv.(*Dict)
	v, ok, err := d.Get(a[0])
	if err != nil {
		return nil, err
	}
	if ok {
		return v, nil
	}
	def := a[1]
	if def == nil {
		def = None
	}
	return def, d.Set(a[0], def)
}

func dictUpdate(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	if len(args) > 1 {
		return nil, newError("TypeError", "update expected at most 1 argument, got %d", len(args))
	}
	d := b.recv.(*Dict)
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
	return None, nil
}

func dictClear(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	if err := exactArgs("clear", args, kwargs, 0); err != nil {
		return nil, err
	}
	b.recv.(*Dict).clear()
	return None, nil
}

func dictCopy(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	if err := exactArgs("copy", args, kwargs, 0); err != nil {
		return nil, err
	}
	d := NewDict()
	if err := in.dictUpdate(d, b.recv); err != nil {
		return nil, err
	}
	return d, nil
}

func recvString(b *Builtin) string { return string(b.recv.(String)) }

func strArg(fname string, v Value) (string, error) {
	s, ok := v.(String)
	if !ok {
		return "", newError("TypeError", "%s() argument must be str, not %s", fname, v.Type())
	}
	return string(s), nil
}

func strJoin(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	if err := exactArgs("join", args, kwargs, 1); err != nil {
		return nil, err
	}
	items, err := in.collect(args[0])
	if err != nil {
		return nil, err
	}
	parts := make([]string, len(items))
	for i, item := range items {
		s, ok := item.(String)
		if !ok {
			return nil, newError("TypeError", "sequence item %d: expected str instance, %s found", i, item.Type())
		}
		parts[i] = string(s)
	}
	return String(strings.Join(parts, recvString(b))), nil
}

func strSplit(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	a, err := unpackArgs(b.Name, args, kwargs, "sep?", "maxsplit?")
	if err != nil {
		return nil, err
	}
	s := recvString(b)
	limit := -1
	if a[1] != nil {
		n, ok := toInt(a[1])
		if !ok {
			return nil, newError("TypeError", "'%s' object cannot be interpreted as an integer", a[1].Type())
		}
		v, _ := n.Int64()
		limit = int(v)
	}
	var parts []string
	if a[0] == nil || a[0] == None {
		parts = splitWhitespace(s, limit, b.Name == "rsplit")
	} else {
		sep, err := strArg(b.Name, a[0])
		if err != nil {
			return nil, err
		}
		if sep == "" {
			return nil, newError("ValueError", "empty separator")
		}
		switch {
		case limit < 0:
			parts = strings.Split(s, sep)
		case b.Name == "rsplit":
			parts = rsplitN(s, sep, limit)
		default:
			parts = strings.SplitN(s, sep, limit+1)
		}
	}
	out := make([]Value, len(parts))
	for i, p := range parts {
		out[i] = String(p)
	}
	return NewList(out), nil
}

func splitWhitespace(s string, limit int, fromRight bool) []string {
	fields := strings.Fields(s)
	if limit < 0 || len(fields) <= limit+1 {
		return fields
	}
	if fromRight {
		// Keep the leading remainder verbatim apart from outer whitespace.
		rest := strings.TrimRightFunc(s, unicode.IsSpace)
		tail := make([]string, 0, limit)
		for i := 0; i < limit; i++ {
			j := strings.LastIndexFunc(rest, unicode.IsSpace)
			tail = append([]string{rest[j+1:]}, tail...)
			rest = strings.TrimRightFunc(rest[:j+1], unicode.IsSpace)
		}
		return append([]string{strings.TrimLeftFunc(rest, unicode.IsSpace)}, tail...)
	}
	rest := strings.TrimLeftFunc(s, unicode.IsSpace)
	head := make([]string, 0, limit+1)
	for i := 0; i < limit; i++ {
		j := strings.IndexFunc(rest, unicode.IsSpace)
		head = append(head, rest[:j])
		rest = strings.TrimLeftFunc(rest[j:], unicode.IsSpace)
	}
	return append(head, rest)
}

func rsplitN(s, sep string, limit int) []string {
	var tail []string
	for i := 0; i < limit; i++ {
		j := strings.LastIndex(s, sep)
		if j < 0 {
			break
		}
		tail = append([]string{s[j+len(sep):]}, tail...)
		s = s[:j]
	}
	return append([]string{s}, tail...)
}

func strSplitlines(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	if err := exactArgs("splitlines", args, kwargs, 0); err != nil {
		return nil, err
	}
	s := strings.ReplaceAll(recvString(b), "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.TrimSuffix(s, "\n")
	out := []Value{}
	if s == "" && recvString(b) == "" {
		return NewList(out), nil
	}
	for _, line := range strings.Split(s, "\n") {
		out = append(out, String(line))
	}
	return NewList(out), nil
}

func strStrip(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	a, err := unpackArgs(b.Name, args, kwargs, "chars?")
	if err != nil {
		return nil, err
	}
	s := recvString(b)
	if a[0] == nil || a[0] == None {
		switch b.Name {
		case "lstrip":
			return String(strings.TrimLeftFunc(s, unicode.IsSpace)), nil
		case "rstrip":
			return String(strings.TrimRightFunc(s, unicode.IsSpace)), nil
		}
		return String(strings.TrimSpace(s)), nil
	}
	chars, err := strArg(b.Name, a[0])
	if err != nil {
		return nil, err
	}
	switch b.Name {
	case "lstrip":
		return String(strings.TrimLeft(s, chars)), nil
	case "rstrip":
		return String(strings.TrimRight(s, chars)), nil
	}
	return String(strings.Trim(s, chars)), nil
}

func strCase(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	if err := exactArgs(b.Name, args, kwargs, 0); err != nil {
		return nil, err
	}
	s := recvString(b)
	switch b.Name {
	case "upper":
		return String(strings.ToUpper(s)), nil
	case "lower":
		return String(strings.ToLower(s)), nil
	case "capitalize":
		if s == "" {
			return String(""), nil
		}
		r, size := utf8.DecodeRuneInString(s)
		return String(string(unicode.ToUpper(r)) + strings.ToLower(s[size:])), nil
	case "swapcase":
		return String(strings.Map(func(r rune) rune {
			if unicode.IsUpper(r) {
				return unicode.ToLower(r)
			}
			return unicode.ToUpper(r)
		}, s)), nil
	}
	var sb strings.Builder
	prevLetter := false
	for _, r := range s {
		if prevLetter {
			sb.WriteRune(unicode.ToLower(r))
		} else {
			sb.WriteRune(unicode.ToUpper(r))
		}
		prevLetter = unicode.IsLetter(r)
	}
	return String(sb.String()), nil
}

func strReplace(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	a, err := unpackArgs("replace", args, kwargs, "old", "new", "count?")
	if err != nil {
		return nil, err
	}
	old, err := strArg("replace", a[0])
	if err != nil {
		return nil, err
	}
	repl, err := strArg("replace", a[1])
	if err != nil {
		return nil, err
	}
	n := -1
	if a[2] != nil {
		c, ok := toInt(a[2])
		if !ok {
			return nil, newError("TypeError", "'%s' object cannot be interpreted as an integer", a[2].Type())
		}
		v, _ := c.Int64()
		n = int(v)
	}
	return String(strings.Replace(recvString(b), old, repl, n)), nil
}

func strAffix(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	if err := exactArgs(b.Name, args, kwargs, 1); err != nil {
		return nil, err
	}
	var candidates []Value
	switch x := args[0].(type) {
	case String:
		candidates = []Value{x}
	case Tuple:
		candidates = x
	default:
		return nil, newError("TypeError", "%s first arg must be str or a tuple of str, not %s", b.Name, x.Type())
	}
	s := recvString(b)
	for _, c := range candidates {
		affix, err := strArg(b.Name, c)
		if err != nil {
			return nil, err
		}
		if (b.Name == "startswith" && strings.HasPrefix(s, affix)) || (b.Name == "endswith" && strings.HasSuffix(s, affix)) {
			return Bool(true), nil
		}
	}
	return Bool(false), nil
}

func strFind(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	if err := exactArgs(b.Name, args, kwargs, 1); err != nil {
		return nil, err
	}
	sub, err := strArg(b.Name, args[0])
	if err != nil {
		return nil, err
	}
	s := recvString(b)
	var i int
	if strings.HasPrefix(b.Name, "r") {
		i = strings.LastIndex(s, sub)
	} else {
		i = strings.Index(s, sub)
	}
	if i < 0 {
		if strings.HasSuffix(b.Name, "index") {
			return nil, newError("ValueError", "substring not found")
		}
		return MakeInt(-1), nil
	}
	return MakeInt(int64(utf8.RuneCountInString(s[:i]))), nil
}

func strCount(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	if err := exactArgs("count", args, kwargs, 1); err != nil {
		return nil, err
	}
	sub, err := strArg("count", args[0])
	if err != nil {
		return nil, err
	}
	s := recvString(b)
	if sub == "" {
		return MakeInt(int64(utf8.RuneCountInString(s) + 1)), nil
	}
	return MakeInt(int64(strings.Count(s, sub))), nil
}

func strFormatMethod(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	s, err := strFormat(recvString(b), args, kwargs)
	if err != nil {
		return nil, err
	}
	return String(s), nil
}

func strPredicate(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	if err := exactArgs(b.Name, args, kwargs, 0); err != nil {
		return nil, err
	}
	s := recvString(b)
	if s == "" {
		return Bool(false), nil
	}
	var pred func(rune) bool
	switch b.Name {
	case "isdigit":
		pred = unicode.IsDigit
	case "isalpha":
		pred = unicode.IsLetter
	case "isalnum":
		pred = func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }
	case "isspace":
		pred = unicode.IsSpace
	case "isupper", "islower":
		cased := false
		for _, r := range s {
			if unicode.IsUpper(r) || unicode.IsLower(r) {
				cased = true
				if (b.Name == "isupper") != unicode.IsUpper(r) {
					return Bool(false), nil
				}
			}
		}
		return Bool(cased), nil
	}
	for _, r := range s {
		if !pred(r) {
			return Bool(false), nil
		}
	}
	return Bool(true), nil
}

func strZfill(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	if err := exactArgs("zfill", args, kwargs, 1); err != nil {
		return nil, err
	}
	w, ok := toInt(args[0])
	if !ok {
		return nil, newError("TypeError", "'%s' object cannot be interpreted as an integer", args[0].Type())
	}
	width, _ := w.Int64()
	s := recvString(b)
	pad := int(width) - utf8.RuneCountInString(s)
	if pad <= 0 {
		return String(s), nil
	}
	sign := ""
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		sign, s = s[:1], s[1:]
	}
	return String(sign + strings.Repeat("0", pad) + s), nil
}

func strJustify(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	a, err := unpackArgs(b.Name, args, kwargs, "width", "fillchar?")
	if err != nil {
		return nil, err
	}
	w, ok := toInt(a[0])
	if !ok {
		return nil, newError("TypeError", "'%s' object cannot be interpreted as an integer", a[0].Type())
	}
	fill := " "
	if a[1] != nil {
		if fill, err = strArg(b.Name, a[1]); err != nil {
			return nil, err
		}
		if utf8.RuneCountInString(fill) != 1 {
			return nil, newError("TypeError", "The fill character must be exactly one character long")
		}
	}
	width, _ := w.Int64()
	s := recvString(b)
	pad := int(width) - utf8.RuneCountInString(s)
	if pad <= 0 {
		return String(s), nil
	}
	switch b.Name {
	case "ljust":
		return String(s + strings.Repeat(fill, pad)), nil
	case "rjust":
		return String(strings.Repeat(fill, pad) + s), nil
	}
	left := pad / 2
	if pad%2 == 1 && len(s)%2 == 1 {
		left++
	}
	return String(strings.Repeat(fill, left) + s + strings.Repeat(fill, pad-left)), nil
}

func fileWrite(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	if err := exactArgs("write", args, kwargs, 1); err != nil {
		return nil, err
	}
	s, ok := args[0].(String)
	if !ok {
		return nil, newError("TypeError", "write() argument must be str, not %s", args[0].Type())
	}
	if err := b.recv.(*File).write(string(s)); err != nil {
		return nil, err
	}
	return MakeInt(int64(utf8.RuneCountInString(string(s)))), nil
}

func fileReadline(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	if err := exactArgs("readline", args, kwargs, 0); err != nil {
		return nil, err
	}
	line, err := b.recv.(*File).readline()
	if err != nil {
		return nil, err
	}
	return String(line), nil
}

func fileRead(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	if err := exactArgs("read", args, kwargs, 0); err != nil {
		return nil, err
	}
	f := b.recv.(*File)
	if f.r == nil {
		return nil, newError("OSError", "not readable")
	}
	data, err := io.ReadAll(f.r)
	if err != nil {
		return nil, newError("OSError", "%s", err.Error())
	}
	return String(data), nil
}

func fileFlush(in *Interpreter, fr *Frame, b *Builtin, args []Value, kwargs []kwarg) (Value, error) {
	if err := exactArgs("flush", args, kwargs, 0); err != nil {
		return nil, err
	}
	return None, nil
}
