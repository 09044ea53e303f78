package traceback

import (
	"fmt"
	"strings"
)

const header = "Traceback (most recent call last):"

// formatter formats mapped frames into Python traceback text
type formatter struct{}

// newFormatter creates a new formatter
func newFormatter() *formatter {
	return &formatter{}
}

// FormatFrame formats a single mapped frame. Syntax errors have no function
// context, so withFunction is false for them.
func (f *formatter) FormatFrame(fr mappedFrame, withFunction bool) string {
	fileName := fr.Filename
	if fr.Mapped && fr.DisplayName != nil {
		fileName = *fr.DisplayName
	}

	var b strings.Builder
	fmt.Fprintf(&b, "  File \"%s\", line %d", fileName, fr.Line)
	if withFunction {
		fmt.Fprintf(&b, ", in %s", fr.Function)
	}
	if fr.SourceLine != nil {
		if text := strings.TrimSpace(*fr.SourceLine); text != "" {
			fmt.Fprintf(&b, "\n    %s", text)
		}
	}
	return b.String()
}

// FormatTraceback formats a whole traceback ending with the exception line
func (f *formatter) FormatTraceback(frames []mappedFrame, excLine string) string {
	lines := make([]string, 0, len(frames)+2)
	lines = append(lines, header)
	for _, fr := range frames {
		lines = append(lines, f.FormatFrame(fr, true))
	}
	lines = append(lines, excLine)
	return strings.Join(lines, "\n")
}

// FormatSyntaxError formats the location of a syntax error followed by the
// exception line
func (f *formatter) FormatSyntaxError(fr *mappedFrame, excLine string) string {
	if fr == nil {
		return excLine
	}
	return f.FormatFrame(*fr, false) + "\n" + excLine
}
