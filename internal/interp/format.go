package interp

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Repr returns the printed representation of v as the repr builtin would.
func Repr(v Value) string {
	var b strings.Builder
	writeRepr(&b, v, nil)
	return b.String()
}

// Str returns v converted as the str builtin would.
func Str(v Value) string {
	if s, ok := v.(String); ok {
		return string(s)
	}
	return Repr(v)
}

func writeRepr(b *strings.Builder, v Value, path []Value) {
	for _, p := range path {
		if p == v {
			switch v.(type) {
			case *List:
				b.WriteString("[...]")
			case *Dict:
				b.WriteString("{...}")
			}
			return
		}
	}
	switch v := v.(type) {
	case NoneType:
		b.WriteString("None")
	case Bool:
		if v {
			b.WriteString("True")
		} else {
			b.WriteString("False")
		}
	case Int:
		b.WriteString(v.String())
	case Float:
		b.WriteString(formatFloat(float64(v)))
	case String:
		b.WriteString(quote(string(v)))
	case *List:
		path = append(path, v)
		b.WriteByte('[')
		for i, e := range v.elems {
			if i > 0 {
				b.WriteString(", ")
			}
			writeRepr(b, e, path)
		}
		b.WriteByte(']')
	case Tuple:
		b.WriteByte('(')
		for i, e := range v {
			if i > 0 {
				b.WriteString(", ")
			}
			writeRepr(b, e, path)
		}
		if len(v) == 1 {
			b.WriteByte(',')
		}
		b.WriteByte(')')
	case *Dict:
		path = append(path, v)
		b.WriteByte('{')
		for i, k := range v.keys {
			if i > 0 {
				b.WriteString(", ")
			}
			writeRepr(b, k, path)
			b.WriteString(": ")
			writeRepr(b, v.vals[i], path)
		}
		b.WriteByte('}')
	case Range:
		if v.step == 1 {
			fmt.Fprintf(b, "range(%d, %d)", v.start, v.stop)
		} else {
			fmt.Fprintf(b, "range(%d, %d, %d)", v.start, v.stop, v.step)
		}
	case *Function:
		fmt.Fprintf(b, "<function %s at line %d>", v.Name, v.Line)
	case *Builtin:
		if v.recv != nil {
			fmt.Fprintf(b, "<built-in method %s of %s object>", v.Name, v.recv.Type())
		} else {
			fmt.Fprintf(b, "<built-in function %s>", v.Name)
		}
	case *TypeValue:
		fmt.Fprintf(b, "<class '%s'>", v.name)
	case *Module:
		fmt.Fprintf(b, "<module '%s' (built-in)>", v.name)
	case *File:
		fmt.Fprintf(b, "<_io.TextIOWrapper name='%s' mode='%s' encoding='utf-8'>", v.name, v.mode)
	default:
		fmt.Fprintf(b, "<%s object>", v.Type())
	}
}

// formatFloat renders f the way the language's float repr does: the
// shortest round-tripping form, always with a fractional part or exponent.
func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "nan"
	}
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func quote(s string) string {
	q := '\''
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		q = '"'
	}
	var b strings.Builder
	b.WriteRune(q)
	for _, r := range s {
		switch {
		case r == '\\':
			b.WriteString(`\\`)
		case r == q:
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, `\x%02x`, r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteRune(q)
	return b.String()
}

// percentFormat implements str % args.
func percentFormat(format string, arg Value) (Value, error) {
	args := []Value{arg}
	if t, ok := arg.(Tuple); ok {
		args = t
	}
	var b strings.Builder
	n := 0
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(format) {
			return nil, newError("ValueError", "incomplete format")
		}
		if format[i] == '%' {
			b.WriteByte('%')
			continue
		}
		if format[i] == '(' {
			return nil, newError("TypeError", "format requires a mapping")
		}
		start := i
		for i < len(format) && strings.IndexByte("-+ #0", format[i]) >= 0 {
			i++
		}
		for i < len(format) && isDigit(format[i]) {
			i++
		}
		if i < len(format) && format[i] == '.' {
			i++
			for i < len(format) && isDigit(format[i]) {
				i++
			}
		}
		if i >= len(format) {
			return nil, newError("ValueError", "incomplete format")
		}
		if n >= len(args) {
			return nil, newError("TypeError", "not enough arguments for format string")
		}
		s, err := formatPercentArg(format[start:i], format[i], args[n])
		if err != nil {
			return nil, err
		}
		n++
		b.WriteString(s)
	}
	if n < len(args) {
		return nil, newError("TypeError", "not all arguments converted during string formatting")
	}
	return String(b.String()), nil
}

func formatPercentArg(spec string, verb byte, a Value) (string, error) {
	switch verb {
	case 's':
		return fmt.Sprintf("%"+spec+"s", Str(a)), nil
	case 'r', 'a':
		return fmt.Sprintf("%"+spec+"s", Repr(a)), nil
	case 'd', 'i', 'u':
		n, ok := toIntTrunc(a)
		if !ok {
			return "", newError("TypeError", "%%%c format: a real number is required, not %s", verb, a.Type())
		}
		return fmt.Sprintf("%"+spec+"d", n.BigInt()), nil
	case 'x', 'X', 'o':
		n, ok := toInt(a)
		if !ok {
			return "", newError("TypeError", "%%%c format: an integer is required, not %s", verb, a.Type())
		}
		return fmt.Sprintf("%"+spec+string(verb), n.BigInt()), nil
	case 'f', 'F', 'e', 'E', 'g', 'G':
		f, ok := toFloat(a)
		if !ok {
			return "", newError("TypeError", "must be real number, not %s", a.Type())
		}
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return fmt.Sprintf("%"+strings.TrimLeft(spec, "0")+"s", formatFloat(f)), nil
		}
		return fmt.Sprintf("%"+spec+string(verb), f), nil
	case 'c':
		switch a := a.(type) {
		case String:
			if utf8.RuneCountInString(string(a)) != 1 {
				return "", newError("TypeError", "%%c requires an int or a unicode character, not a string of length %d", utf8.RuneCountInString(string(a)))
			}
			return string(a), nil
		case Int:
			n, ok := a.Int64()
			if !ok || n < 0 || n > utf8.MaxRune {
				return "", newError("OverflowError", "%%c arg not in range(0x110000)")
			}
			return string(rune(n)), nil
		}
		return "", newError("TypeError", "%%c requires an int or a unicode character, not %s", a.Type())
	}
	return "", newError("ValueError", "unsupported format character '%c' (0x%x)", verb, verb)
}

// strFormat implements str.format.
func strFormat(format string, args []Value, kwargs []kwarg) (string, error) {
	var b strings.Builder
	auto := 0
	for i := 0; i < len(format); i++ {
		c := format[i]
		switch c {
		case '{':
			if i+1 < len(format) && format[i+1] == '{' {
				b.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(format[i:], '}')
			if end < 0 {
				return "", newError("ValueError", "Single '{' encountered in format string")
			}
			field := format[i+1 : i+end]
			i += end
			name, spec, _ := strings.Cut(field, ":")
			name, conv, _ := strings.Cut(name, "!")
			var v Value
			switch {
			case name == "":
				if auto >= len(args) {
					return "", newError("IndexError", "Replacement index %d out of range for positional args tuple", auto)
				}
				v = args[auto]
				auto++
			case isDigits(name):
				idx, _ := strconv.Atoi(name)
				if idx >= len(args) {
					return "", newError("IndexError", "Replacement index %d out of range for positional args tuple", idx)
				}
				v = args[idx]
			default:
				for _, kw := range kwargs {
					if kw.name == name {
						v = kw.value
					}
				}
				if v == nil {
					return "", newError("KeyError", "%s", quote(name))
				}
			}
			switch conv {
			case "r":
				v = String(Repr(v))
			case "s":
				v = String(Str(v))
			case "":
			default:
				return "", newError("ValueError", "Unknown conversion specifier %s", conv)
			}
			s, err := formatSpec(v, spec)
			if err != nil {
				return "", err
			}
			b.WriteString(s)
		case '}':
			if i+1 < len(format) && format[i+1] == '}' {
				b.WriteByte('}')
				i++
				continue
			}
			return "", newError("ValueError", "Single '}' encountered in format string")
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}

// formatSpec applies a format specification mini-language string to v.
func formatSpec(v Value, spec string) (string, error) {
	if spec == "" {
		return Str(v), nil
	}
	invalid := func() error {
		return newError("ValueError", "Invalid format specifier '%s' for object of type '%s'", spec, v.Type())
	}
	rs := []rune(spec)
	fill, align := ' ', rune(0)
	if len(rs) >= 2 && strings.ContainsRune("<>^=", rs[1]) {
		fill, align, rs = rs[0], rs[1], rs[2:]
	} else if len(rs) >= 1 && strings.ContainsRune("<>^=", rs[0]) {
		align, rs = rs[0], rs[1:]
	}
	sign := rune(0)
	if len(rs) > 0 && strings.ContainsRune("+- ", rs[0]) {
		sign, rs = rs[0], rs[1:]
	}
	if len(rs) > 0 && rs[0] == '0' {
		if align == 0 {
			fill, align = '0', '='
		}
		rs = rs[1:]
	}
	width := 0
	for len(rs) > 0 && rs[0] >= '0' && rs[0] <= '9' {
		width = width*10 + int(rs[0]-'0')
		rs = rs[1:]
	}
	group := rune(0)
	if len(rs) > 0 && (rs[0] == ',' || rs[0] == '_') {
		group, rs = rs[0], rs[1:]
	}
	prec := -1
	if len(rs) > 0 && rs[0] == '.' {
		rs = rs[1:]
		prec = 0
		if len(rs) == 0 || rs[0] < '0' || rs[0] > '9' {
			return "", newError("ValueError", "Format specifier missing precision")
		}
		for len(rs) > 0 && rs[0] >= '0' && rs[0] <= '9' {
			prec = prec*10 + int(rs[0]-'0')
			rs = rs[1:]
		}
	}
	typ := rune(0)
	if len(rs) == 1 {
		typ = rs[0]
	} else if len(rs) > 1 {
		return "", invalid()
	}

	numeric := false
	var body string
	switch x := v.(type) {
	case Int, Bool:
		numeric = true
		n, _ := toInt(x)
		switch typ {
		case 0, 'd', 'n':
			if prec >= 0 {
				return "", newError("ValueError", "Precision not allowed in integer format specifier")
			}
			body = n.BigInt().String()
		case 'x':
			body = n.BigInt().Text(16)
		case 'X':
			body = strings.ToUpper(n.BigInt().Text(16))
		case 'o':
			body = n.BigInt().Text(8)
		case 'b':
			body = n.BigInt().Text(2)
		case 'c':
			body = string(rune(n.small))
			numeric = false
		case 'f', 'F', 'e', 'E', 'g', 'G', '%':
			body = formatFloatSpec(n.float(), typ, prec)
		default:
			return "", newError("ValueError", "Unknown format code '%c' for object of type 'int'", typ)
		}
	case Float:
		numeric = true
		switch typ {
		case 0:
			if prec < 0 {
				body = formatFloat(float64(x))
			} else {
				body = formatFloatSpec(float64(x), 'g', prec)
			}
		case 'f', 'F', 'e', 'E', 'g', 'G', '%':
			body = formatFloatSpec(float64(x), typ, prec)
		default:
			return "", newError("ValueError", "Unknown format code '%c' for object of type 'float'", typ)
		}
	default:
		if typ != 0 && typ != 's' {
			return "", newError("ValueError", "Unknown format code '%c' for object of type '%s'", typ, v.Type())
		}
		if sign != 0 || group != 0 {
			return "", invalid()
		}
		body = Str(v)
		if prec >= 0 && utf8.RuneCountInString(body) > prec {
			body = string([]rune(body)[:prec])
		}
	}

	prefix := ""
	if numeric {
		if strings.HasPrefix(body, "-") {
			prefix, body = "-", body[1:]
		} else if sign == '+' || sign == ' ' {
			prefix = string(sign)
		}
		if group != 0 {
			body = groupDigits(body, group)
		}
	}
	pad := width - utf8.RuneCountInString(prefix) - utf8.RuneCountInString(body)
	if pad <= 0 {
		return prefix + body, nil
	}
	if align == 0 {
		align = '<'
		if numeric {
			align = '>'
		}
	}
	fills := strings.Repeat(string(fill), pad)
	switch align {
	case '<':
		return prefix + body + fills, nil
	case '^':
		left := strings.Repeat(string(fill), pad/2)
		right := strings.Repeat(string(fill), pad-pad/2)
		return left + prefix + body + right, nil
	case '=':
		return prefix + fills + body, nil
	}
	return fills + prefix + body, nil
}

func formatFloatSpec(f float64, typ rune, prec int) string {
	if prec < 0 {
		prec = 6
	}
	if math.IsInf(f, 0) || math.IsNaN(f) {
		s := formatFloat(f)
		if typ == 'F' || typ == 'E' || typ == 'G' {
			s = strings.ToUpper(s)
		}
		return s
	}
	switch typ {
	case '%':
		return strconv.FormatFloat(f*100, 'f', prec, 64) + "%"
	case 'F':
		typ = 'f'
	case 'g', 'G':
		if prec == 0 {
			prec = 1
		}
	}
	return strconv.FormatFloat(f, byte(typ), prec, 64)
}

func groupDigits(s string, sep rune) string {
	intPart, frac := s, ""
	if i := strings.IndexAny(s, ".eE%"); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}
	if len(intPart) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(intPart) % 3
	if lead > 0 {
		b.WriteString(intPart[:lead])
	}
	for i := lead; i < len(intPart); i += 3 {
		if b.Len() > 0 {
			b.WriteRune(sep)
		}
		b.WriteString(intPart[i : i+3])
	}
	return b.String() + frac
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

// formatIntBase renders n with a 0x/0o/0b style prefix after the sign.
func formatIntBase(n Int, base int, prefix string) string {
	b := n.BigInt()
	if b.Sign() < 0 {
		return "-" + prefix + new(big.Int).Neg(b).Text(base)
	}
	return prefix + b.Text(base)
}
