package interp

import (
	"strings"

	"github.com/cockroachdb/errors"
	"go.starlark.net/syntax"
)

// Program is a parsed and checked source file.
type Program struct {
	Filename string
	file     *syntax.File
}

var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
	Recursion:       true,
}

// Compile parses src. Syntax problems are reported as a SyntaxError
// *Exception whose traceback holds the offending line.
func Compile(filename string, src []byte) (*Program, error) {
	f, err := fileOptions.Parse(filename, src, 0)
	if err != nil {
		var serr syntax.Error
		if errors.As(err, &serr) {
			pos := serr.Pos
			pos.Line = errorLine(src, serr)
			return nil, syntaxError(filename, pos, "%s", serr.Msg)
		}
		return nil, &Exception{Type: "SyntaxError", Message: err.Error()}
	}
	c := checker{filename: filename}
	c.stmts(f.Stmts, false, false)
	if c.err == nil {
		walk(f, c.expr)
	}
	if c.err != nil {
		return nil, c.err
	}
	return &Program{Filename: filename, file: f}, nil
}

// errorLine returns the line a parse error belongs to. Errors about a
// newline or the end of the file are positioned after the token, so they
// move back to the last line holding code.
func errorLine(src []byte, serr syntax.Error) int32 {
	line := serr.Pos.Line
	switch {
	case strings.HasPrefix(serr.Msg, "got newline"):
		line--
	case strings.HasPrefix(serr.Msg, "got end of file"):
	default:
		return line
	}
	lines := strings.Split(string(src), "\n")
	if int(line) > len(lines) {
		line = int32(len(lines))
	}
	for line > 1 {
		text := strings.TrimSpace(lines[line-1])
		if text != "" && !strings.HasPrefix(text, "#") {
			break
		}
		line--
	}
	if line < 1 {
		line = 1
	}
	return line
}

// walk is syntax.Walk extended to while loops, which syntax.Walk does not
// descend into.
func walk(n syntax.Node, f func(syntax.Node) bool) {
	syntax.Walk(n, func(n syntax.Node) bool {
		w, ok := n.(*syntax.WhileStmt)
		if !ok {
			return f(n)
		}
		if f(w) {
			walk(w.Cond, f)
			for _, st := range w.Body {
				walk(st, f)
			}
			f(nil)
		}
		return false
	})
}

func syntaxError(filename string, pos syntax.Position, format string, args ...any) *Exception {
	exc := newError("SyntaxError", format, args...)
	exc.Traceback = []TracebackEntry{{Filename: filename, Line: int(pos.Line), Function: "<module>"}}
	return exc
}

// checker rejects constructs the parser accepts but the evaluator does not
// run, and enforces placement rules for return, break and continue.
type checker struct {
	filename string
	err      *Exception
}

func (c *checker) fail(n syntax.Node, format string, args ...any) {
	if c.err == nil {
		pos, _ := n.Span()
		c.err = syntaxError(c.filename, pos, format, args...)
	}
}

func (c *checker) stmts(stmts []syntax.Stmt, inFunc, inLoop bool) {
	for _, st := range stmts {
		switch st := st.(type) {
		case *syntax.LoadStmt:
			c.fail(st, "load statements are not supported")
		case *syntax.ReturnStmt:
			if !inFunc {
				c.fail(st, "'return' outside function")
			}
		case *syntax.BranchStmt:
			switch st.Token {
			case syntax.BREAK:
				if !inLoop {
					c.fail(st, "'break' outside loop")
				}
			case syntax.CONTINUE:
				if !inLoop {
					c.fail(st, "'continue' not properly in loop")
				}
			}
		case *syntax.AssignStmt:
			if st.Op == syntax.EQ {
				c.target(st.LHS, true)
			} else {
				c.target(st.LHS, false)
			}
		case *syntax.DefStmt:
			c.params(st.Params)
			c.stmts(st.Body, true, false)
		case *syntax.IfStmt:
			c.stmts(st.True, inFunc, inLoop)
			c.stmts(st.False, inFunc, inLoop)
		case *syntax.ForStmt:
			c.target(st.Vars, true)
			c.stmts(st.Body, inFunc, true)
		case *syntax.WhileStmt:
			c.stmts(st.Body, inFunc, true)
		}
	}
}

func (c *checker) target(x syntax.Expr, unpack bool) {
	switch x := x.(type) {
	case *syntax.Ident, *syntax.IndexExpr, *syntax.DotExpr:
	case *syntax.ParenExpr:
		c.target(x.X, unpack)
	case *syntax.TupleExpr:
		if !unpack {
			c.fail(x, "'tuple' is an illegal expression for augmented assignment")
			return
		}
		for _, e := range x.List {
			c.target(e, true)
		}
	case *syntax.ListExpr:
		if !unpack {
			c.fail(x, "'list' is an illegal expression for augmented assignment")
			return
		}
		for _, e := range x.List {
			c.target(e, true)
		}
	default:
		c.fail(x, "cannot assign to expression")
	}
}

func (c *checker) params(params []syntax.Expr) {
	seen := make(map[string]bool)
	sawDefault, sawStar := false, false
	for _, p := range params {
		var name *syntax.Ident
		switch p := p.(type) {
		case *syntax.Ident:
			if sawDefault && !sawStar {
				c.fail(p, "non-default argument follows default argument")
			}
			name = p
		case *syntax.BinaryExpr:
			sawDefault = true
			name, _ = p.X.(*syntax.Ident)
		case *syntax.UnaryExpr:
			if p.Op == syntax.STAR {
				sawStar = true
			}
			if p.X != nil {
				name, _ = p.X.(*syntax.Ident)
			}
		}
		if name == nil {
			continue
		}
		if seen[name.Name] {
			c.fail(name, "duplicate argument '%s' in function definition", name.Name)
		}
		seen[name.Name] = true
	}
}

func (c *checker) expr(n syntax.Node) bool {
	if c.err != nil {
		return false
	}
	switch n := n.(type) {
	case *syntax.Literal:
		if n.Token == syntax.BYTES {
			c.fail(n, "bytes literals are not supported")
		}
	case *syntax.Comprehension:
		if _, isDict := n.Body.(*syntax.DictEntry); n.Curly && !isDict {
			c.fail(n, "set comprehensions are not supported")
		}
		for _, cl := range n.Clauses {
			if fc, ok := cl.(*syntax.ForClause); ok {
				c.target(fc.Vars, true)
			}
		}
	case *syntax.LambdaExpr:
		c.params(n.Params)
	}
	return true
}

// localNames returns the names a function body binds, excluding those bound
// only inside nested functions, lambdas or comprehensions.
func localNames(params []syntax.Expr, body []syntax.Stmt) map[string]bool {
	locals := make(map[string]bool)
	for _, p := range params {
		switch p := p.(type) {
		case *syntax.Ident:
			locals[p.Name] = true
		case *syntax.BinaryExpr:
			if id, ok := p.X.(*syntax.Ident); ok {
				locals[id.Name] = true
			}
		case *syntax.UnaryExpr:
			if id, ok := p.X.(*syntax.Ident); ok {
				locals[id.Name] = true
			}
		}
	}
	var bind func(x syntax.Expr)
	bind = func(x syntax.Expr) {
		switch x := x.(type) {
		case *syntax.Ident:
			locals[x.Name] = true
		case *syntax.ParenExpr:
			bind(x.X)
		case *syntax.TupleExpr:
			for _, e := range x.List {
				bind(e)
			}
		case *syntax.ListExpr:
			for _, e := range x.List {
				bind(e)
			}
		}
	}
	var visit func(stmts []syntax.Stmt)
	visit = func(stmts []syntax.Stmt) {
		for _, st := range stmts {
			switch st := st.(type) {
			case *syntax.AssignStmt:
				bind(st.LHS)
			case *syntax.DefStmt:
				locals[st.Name.Name] = true
			case *syntax.ForStmt:
				bind(st.Vars)
				visit(st.Body)
			case *syntax.WhileStmt:
				visit(st.Body)
			case *syntax.IfStmt:
				visit(st.True)
				visit(st.False)
			}
		}
	}
	visit(body)
	return locals
}
