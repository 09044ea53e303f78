package interp

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

type recordingHook struct {
	events []string
	skip   string
}

func (h *recordingHook) OnCall(fr *Frame) bool {
	h.events = append(h.events, "call "+fr.Function)
	return fr.Filename != h.skip
}

func (h *recordingHook) OnLine(fr *Frame) {
	h.events = append(h.events, fmt.Sprintf("line %s %d", fr.Function, fr.Line))
}

func (h *recordingHook) OnReturn(fr *Frame, result Value) {
	h.events = append(h.events, fmt.Sprintf("return %s %s", fr.Function, Repr(result)))
}

func (h *recordingHook) OnException(fr *Frame, exc *Exception) {
	h.events = append(h.events, fmt.Sprintf("exception %s %s", fr.Function, exc.Type))
}

type result struct {
	stdout, stderr string
	err            error
	hook           *recordingHook
}

func run(t *testing.T, src string, opts Options) result {
	t.Helper()
	return runContext(t, context.Background(), src, opts)
}

func runContext(t *testing.T, ctx context.Context, src string, opts Options) result {
	t.Helper()
	prog, err := Compile("main.py", []byte(src))
	require.NoError(t, err)
	var stdout, stderr bytes.Buffer
	hook := &recordingHook{skip: PreludeFile}
	opts.Stdout, opts.Stderr, opts.Hook = &stdout, &stderr, hook
	err = New(opts).Exec(ctx, prog)
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err, hook: hook}
}

func requireException(t *testing.T, err error, typ string) *Exception {
	t.Helper()
	require.Error(t, err)
	exc, ok := asException(err)
	require.True(t, ok, "expected *Exception, got %T: %v", err, err)
	require.Equal(t, typ, exc.Type, exc.Error())
	return exc
}

func TestOutput(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"arithmetic", "print(1 + 2, 7 // 2, -7 // 2, 7 % -3, 10 / 4, True + 1)", "3 3 -4 -2 2.5 2\n"},
		{"float repr", "print(1 / 3, 2.0, 1e20, 0.1 + 0.2)", "0.3333333333333333 2.0 1e+20 0.30000000000000004\n"},
		{"big ints", "x = 9223372036854775807\nprint(x + 1, x * x)", "9223372036854775808 85070591730234615847396907784232501249\n"},
		{"percent format", "print(\"%d items, %.2f avg, %s\" % (3, 2.5, \"ok\"))", "3 items, 2.50 avg, ok\n"},
		{"str format", "print(\"{} and {:>4}|{:.1f}\".format(1, \"a\", 2.25))", "1 and    a|2.2\n"},
		{"repr containers", "print([\"a\", 1, 2.0, None, True], (1,), {\"k\": [1]})", "['a', 1, 2.0, None, True] (1,) {'k': [1]}\n"},
		{"comprehensions", "print([x * x for x in range(4) if x % 2 == 0], {k: v for k, v in [(\"a\", 1)]})", "[0, 4] {'a': 1}\n"},
		{"sorting", "print(sorted([3, 1, 2], reverse=True), sorted([\"bb\", \"a\"], key=len))", "[3, 2, 1] ['a', 'bb']\n"},
		{"slices", "s = \"hello\"\nprint(s[1:3], s[::-1], [1, 2, 3, 4][-2:])", "el olleh [3, 4]\n"},
		{"unpacking", "a, (b, c) = 1, [2, 3]\nprint(a + b + c)", "6\n"},
		{"closures", "def make():\n    count = 10\n    def inc():\n        return count + 1\n    return inc\nprint(make()())", "11\n"},
		{"defaults and varargs", "def f(a, b=2, *rest, **kw):\n    return [a, b, rest, kw]\nprint(f(1), f(1, 3, 4, z=5))", "[1, 2, (), {}] [1, 3, (4,), {'z': 5}]\n"},
		{"map and filter", "print(map(lambda x: x * 2, [1, 2]), filter(None, [0, 1, 2]))", "[2, 4] [1, 2]\n"},
		{"str methods", "print(\",\".join([\"a\", \"b\"]), \"a b  c\".split(), \"  x \".strip().upper())", "a,b ['a', 'b', 'c'] X\n"},
		{"dict methods", "d = {}\nd[\"a\"] = 1\nd.setdefault(\"b\", 2)\nprint(d.get(\"c\", 0), d.items(), len(d))", "0 [('a', 1), ('b', 2)] 2\n"},
		{"augmented", "x = [1]\nx += [2]\nn = 5\nn -= 2\nn *= 3\nprint(x, n)", "[1, 2] 9\n"},
		{"isinstance", "print(isinstance(True, int), isinstance(\"s\", (int, str)), type(1) == int)", "True True True\n"},
		{"math", "print(math.sqrt(16), math.floor(2.7), math.gcd(12, 18))", "4.0 2 6\n"},
		{"while", "n = 0\nwhile n < 3:\n    n += 1\nprint(n)", "3\n"},
		{"print options", "print(1, 2, sep=\"-\", end=\"!\\n\")", "1-2!\n"},
		{"round", "print(round(2.5), round(3.5), round(2.675, 2))", "2 4 2.67\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := run(t, tc.src, Options{})
			require.NoError(t, r.err)
			require.Equal(t, tc.want, r.stdout)
		})
	}
}

func TestExceptions(t *testing.T) {
	tests := []struct {
		name string
		src  string
		typ  string
		msg  string
		line int
	}{
		{"division", "x = 1\ny = x / 0", "ZeroDivisionError", "division by zero", 2},
		{"floor division", "print(1 // 0)", "ZeroDivisionError", "integer division or modulo by zero", 1},
		{"name", "print(missing)", "NameError", "name 'missing' is not defined", 1},
		{"index", "a = [1]\nprint(a[3])", "IndexError", "list index out of range", 2},
		{"key", "d = {}\nd[\"k\"]", "KeyError", "'k'", 2},
		{"type", "1 + \"a\"", "TypeError", "unsupported operand type(s) for +: 'int' and 'str'", 1},
		{"unbound local", "x = 1\ndef f():\n    print(x)\n    x = 2\nf()", "UnboundLocalError", "cannot access local variable 'x' where it is not associated with a value", 3},
		{"missing argument", "def f(a, b):\n    pass\nf(1)", "TypeError", "f() missing 1 required positional argument: 'b'", 3},
		{"int parse", "int(\"abc\")", "ValueError", "invalid literal for int() with base 10: 'abc'", 1},
		{"unpack", "a, b = [1, 2, 3]", "ValueError", "too many values to unpack (expected 2)", 1},
		{"dict resized while iterating", "d = {1: 2}\nfor k in d:\n    d[k + 1] = 0", "RuntimeError", "dictionary changed size during iteration", 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := run(t, tc.src, Options{})
			exc := requireException(t, r.err, tc.typ)
			require.Equal(t, tc.msg, exc.Message)
			require.Equal(t, tc.line, exc.Lineno())
		})
	}
}

func TestHookEvents(t *testing.T) {
	r := run(t, "def add(a, b):\n    return a + b\nx = add(1, 2)\n", Options{})
	require.NoError(t, r.err)
	require.Equal(t, []string{
		"call <module>",
		"line <module> 1",
		"line <module> 3",
		"call add",
		"line add 2",
		"return add 3",
		"return <module> None",
	}, r.hook.events)
}

func TestLoopHeaderEvents(t *testing.T) {
	r := run(t, "for i in range(2):\n    pass\n", Options{})
	require.NoError(t, r.err)
	require.Equal(t, []string{
		"call <module>",
		"line <module> 1",
		"line <module> 2",
		"line <module> 1",
		"line <module> 2",
		"line <module> 1",
		"return <module> None",
	}, r.hook.events)
}

func TestExceptionEvents(t *testing.T) {
	r := run(t, "def boom():\n    return 1 / 0\nboom()\n", Options{})
	exc := requireException(t, r.err, "ZeroDivisionError")
	require.Equal(t, []string{
		"call <module>",
		"line <module> 1",
		"line <module> 3",
		"call boom",
		"line boom 2",
		"exception boom ZeroDivisionError",
		"return boom None",
		"exception <module> ZeroDivisionError",
		"return <module> None",
	}, r.hook.events)
	require.Equal(t, []TracebackEntry{
		{Filename: "main.py", Line: 3, Function: "<module>"},
		{Filename: "main.py", Line: 2, Function: "boom"},
	}, exc.Traceback)
}

func TestLibraryFramesAreNotTraced(t *testing.T) {
	r := run(t, "print(map(lambda x: x + 1, [1, 2]))\n", Options{})
	require.NoError(t, r.err)
	require.Equal(t, "[2, 3]\n", r.stdout)
	lambdaCalls := 0
	for _, ev := range r.hook.events {
		require.False(t, strings.HasPrefix(ev, "line map"), ev)
		require.NotEqual(t, "return map [2, 3]", ev)
		if ev == "call <lambda>" {
			lambdaCalls++
		}
	}
	require.Equal(t, 2, lambdaCalls)
	require.Contains(t, r.hook.events, "call map")
}

func TestLocalsOrder(t *testing.T) {
	prog, err := Compile("main.py", []byte("def f(b, a):\n    c = a + b\n    return c\nf(1, 2)\n"))
	require.NoError(t, err)
	var seen [][]string
	hook := &localsHook{onLine: func(fr *Frame) {
		if fr.Function != "f" {
			return
		}
		var names []string
		for _, b := range fr.Locals() {
			names = append(names, b.Name)
		}
		seen = append(seen, names)
	}}
	require.NoError(t, New(Options{Hook: hook}).Exec(context.Background(), prog))
	require.Equal(t, [][]string{{"b", "a"}, {"b", "a", "c"}}, seen)
}

type localsHook struct {
	onLine func(*Frame)
}

func (h *localsHook) OnCall(*Frame) bool             { return true }
func (h *localsHook) OnLine(fr *Frame)               { h.onLine(fr) }
func (h *localsHook) OnReturn(*Frame, Value)         {}
func (h *localsHook) OnException(*Frame, *Exception) {}

func TestLimits(t *testing.T) {
	t.Run("steps", func(t *testing.T) {
		r := run(t, "while True:\n    pass\n", Options{MaxSteps: 50})
		exc := requireException(t, r.err, "RuntimeError")
		require.True(t, errors.Is(exc, ErrStepLimit))
	})
	t.Run("deadline in while loop", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		r := runContext(t, ctx, "n = 0\nwhile True:\n    n += 1\n", Options{})
		exc := requireException(t, r.err, "TimeoutError")
		require.True(t, errors.Is(exc, ErrDeadline))
	})
	t.Run("deadline", func(t *testing.T) {
		ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
		defer cancel()
		r := runContext(t, ctx, "x = 1\n", Options{})
		exc := requireException(t, r.err, "TimeoutError")
		require.True(t, errors.Is(exc, ErrDeadline))
	})
	t.Run("recursion", func(t *testing.T) {
		r := run(t, "def f(n):\n    return f(n + 1)\nf(0)\n", Options{MaxDepth: 50})
		requireException(t, r.err, "RecursionError")
	})
}

func TestStreams(t *testing.T) {
	r := run(t, "name = input(\"Name: \")\nprint(\"Hi \" + name)\nprint(\"oops\", file=sys.stderr)\n",
		Options{Stdin: strings.NewReader("Ada\n")})
	require.NoError(t, r.err)
	require.Equal(t, "Name: Hi Ada\n", r.stdout)
	require.Equal(t, "oops\n", r.stderr)

	r = run(t, "input()\n", Options{})
	requireException(t, r.err, "EOFError")
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
	}{
		{"parse", "x = 1\ndef f(:\n", 2},
		{"return outside function", "return 1\n", 1},
		{"break outside loop", "x = 1\nbreak\n", 2},
		{"load", "load(\"a.star\", \"b\")\n", 1},
		{"bad target", "f() = 1\n", 1},
		{"missing colon", "x = 1\nif x\n    pass\n", 2},
		{"missing colon before blank line", "while True\n\n    pass\n", 1},
		{"missing colon at end of file", "x = 1\nwhile True", 2},
		{"set comprehension inside while", "while True:\n    s = {i for i in []}\n", 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Compile("main.py", []byte(tc.src))
			exc := requireException(t, err, "SyntaxError")
			require.Equal(t, tc.line, exc.Lineno())
		})
	}
}
