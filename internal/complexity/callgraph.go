package complexity

import (
	"strings"

	"go.starlark.net/syntax"
)

var parseOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
	Recursion:       true,
}

// recursiveFunctions returns, in definition order, the functions that can
// reach themselves through direct calls. Sources that do not parse fall
// back to a textual search.
func recursiveFunctions(src string) (out []string) {
	defer func() {
		if r := recover(); r != nil {
			out = textualRecursion(src)
		}
	}()
	f, err := parseOptions.Parse("complexity.py", src, 0)
	if err != nil {
		return textualRecursion(src)
	}
	g := buildCallGraph(f)
	for _, name := range g.order {
		if g.reaches(name, name) {
			out = append(out, name)
		}
	}
	return out
}

// callGraph maps each defined function to the defined functions its own
// body calls by name. Nested definitions are nodes of their own.
type callGraph struct {
	order []string
	edges map[string]map[string]bool
}

func buildCallGraph(f *syntax.File) *callGraph {
	g := &callGraph{edges: make(map[string]map[string]bool)}
	var defs []*syntax.DefStmt
	walk(f, func(n syntax.Node) bool {
		if def, ok := n.(*syntax.DefStmt); ok {
			defs = append(defs, def)
			if _, seen := g.edges[def.Name.Name]; !seen {
				g.order = append(g.order, def.Name.Name)
				g.edges[def.Name.Name] = make(map[string]bool)
			}
		}
		return true
	})
	for _, def := range defs {
		callees := g.edges[def.Name.Name]
		for _, stmt := range def.Body {
			walk(stmt, func(n syntax.Node) bool {
				switch n := n.(type) {
				case *syntax.DefStmt:
					return false
				case *syntax.CallExpr:
					if id, ok := n.Fn.(*syntax.Ident); ok {
						if _, defined := g.edges[id.Name]; defined {
							callees[id.Name] = true
						}
					}
				}
				return true
			})
		}
	}
	return g
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

// reaches reports whether a non-empty call path leads from one function to
// another.
func (g *callGraph) reaches(from, to string) bool {
	seen := make(map[string]bool)
	stack := []string{from}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for next := range g.edges[cur] {
			if next == to {
				return true
			}
			if !seen[next] {
				seen[next] = true
				stack = append(stack, next)
			}
		}
	}
	return false
}

// textualRecursion flags a function when "name(" appears anywhere in the
// source outside its own def line.
func textualRecursion(src string) []string {
	if !strings.Contains(src, "def ") {
		return nil
	}
	var out []string
	for _, line := range strings.Split(src, "\n") {
		stripped := strings.TrimSpace(line)
		if !strings.HasPrefix(stripped, "def ") {
			continue
		}
		name, _, ok := strings.Cut(strings.TrimPrefix(stripped, "def "), "(")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		rest := strings.ReplaceAll(src, line, "")
		if strings.Contains(rest, name+"(") {
			out = append(out, name)
		}
	}
	return out
}
