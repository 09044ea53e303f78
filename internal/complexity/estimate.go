// Package complexity gives a rough, static estimate of the time and space
// complexity of a program from its source text. It never executes the
// program and never fails: on trouble it returns what it has so far.
package complexity

import (
	"fmt"
	"strings"
)

// LoopDetail describes one loop header line.
type LoopDetail struct {
	Type         string `json:"type"`
	Line         string `json:"line"`
	LineNumber   int    `json:"line_number"`
	NestingLevel int    `json:"nesting_level"`
}

// Estimate is the result of analysing one source text.
type Estimate struct {
	Time               string       `json:"time"`
	Space              string       `json:"space"`
	HasRecursion       bool         `json:"has_recursion"`
	HasLoops           bool         `json:"has_loops"`
	LoopDetails        []LoopDetail `json:"loop_details"`
	RecursiveFunctions []string     `json:"recursive_functions"`
}

const (
	constant    = "O(1)"
	linear      = "O(n)"
	exponential = "O(2^n)"
)

var loopKeywords = []string{"for ", "while "}

// Analyze estimates the complexity of src.
func Analyze(src string) (est Estimate) {
	est = Estimate{
		Time:               constant,
		Space:              constant,
		LoopDetails:        []LoopDetail{},
		RecursiveFunctions: []string{},
	}
	// Keep whatever was established before a failure.
	defer func() { _ = recover() }()

	if fns := recursiveFunctions(src); len(fns) > 0 {
		est.HasRecursion = true
		est.RecursiveFunctions = fns
		est.Time = exponential
		est.Space = linear
	}

	total := 0
	for _, kw := range loopKeywords {
		total += strings.Count(src, kw)
	}
	if total == 0 {
		return est
	}
	est.HasLoops = true
	est.Time = polynomial(total)

	details, maxNesting := loopNesting(src)
	est.LoopDetails = details
	if maxNesting > 0 {
		est.Time = polynomial(maxNesting)
	}
	return est
}

// polynomial names the class O(n^k).
func polynomial(k int) string {
	switch k {
	case 1:
		return linear
	case 2:
		return "O(n²)"
	case 3:
		return "O(n³)"
	}
	return fmt.Sprintf("O(n^%d)", k)
}

// loopNesting finds loop header lines and how deeply each is nested inside
// other loops, judged by indentation.
func loopNesting(src string) ([]LoopDetail, int) {
	var (
		details    = []LoopDetail{}
		open       []int
		maxNesting int
	)
	for i, line := range strings.Split(src, "\n") {
		stripped := strings.TrimSpace(line)
		if stripped == "" || strings.HasPrefix(stripped, "#") {
			continue
		}
		indent := indentOf(line)
		for len(open) > 0 && open[len(open)-1] >= indent {
			open = open[:len(open)-1]
		}
		kind, ok := loopHeader(stripped)
		if !ok {
			continue
		}
		open = append(open, indent)
		maxNesting = max(maxNesting, len(open))
		details = append(details, LoopDetail{
			Type:         kind,
			Line:         line,
			LineNumber:   i + 1,
			NestingLevel: len(open),
		})
	}
	return details, maxNesting
}

func loopHeader(stripped string) (string, bool) {
	for _, kw := range loopKeywords {
		if strings.HasPrefix(stripped, kw) {
			return strings.TrimSpace(kw), true
		}
	}
	return "", false
}

// indentOf measures leading whitespace, with tabs advancing to the next
// multiple of eight.
func indentOf(line string) int {
	n := 0
	for _, c := range line {
		switch c {
		case ' ':
			n++
		case '\t':
			n += 8 - n%8
		default:
			return n
		}
	}
	return n
}
