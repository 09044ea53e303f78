// Package traceback renders interpreter exceptions as Python-style
// tracebacks, showing registered files under their display names.
package traceback

import (
	"strings"
	"sync"

	"github.com/yousuf/stepbyte/internal/interp"
)

// Mapper resolves traceback frames against registered source files. It is
// safe for concurrent use.
type Mapper struct {
	mu    sync.RWMutex
	files map[string]file
}

type file struct {
	display string
	lines   []string
}

// NewMapper creates an empty Mapper.
func NewMapper() *Mapper {
	return &Mapper{files: make(map[string]file)}
}

// Register records that frames executing path should be shown as display,
// with src used to quote source lines.
func (m *Mapper) Register(path, display string, src []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path] = file{display: display, lines: strings.Split(string(src), "\n")}
}

// Forget drops a registered file.
func (m *Mapper) Forget(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, path)
}

// Format renders exc. Syntax errors show only the offending location.
func (m *Mapper) Format(exc *interp.Exception) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	f := newFormatter()
	frames := make([]mappedFrame, len(exc.Traceback))
	for i, e := range exc.Traceback {
		frames[i] = m.mapFrame(frame{Filename: e.Filename, Line: e.Line, Function: e.Function})
	}
	if exc.Type == "SyntaxError" {
		var loc *mappedFrame
		if len(frames) > 0 {
			loc = &frames[len(frames)-1]
		}
		return f.FormatSyntaxError(loc, exc.Error())
	}
	return f.FormatTraceback(frames, exc.Error())
}

// mapFrame resolves a single frame
func (m *Mapper) mapFrame(fr frame) mappedFrame {
	src, ok := m.files[fr.Filename]
	if !ok {
		return mappedFrame{frame: fr, Mapped: false}
	}
	mapped := mappedFrame{frame: fr, DisplayName: &src.display, Mapped: true}
	if fr.Line >= 1 && fr.Line <= len(src.lines) {
		line := src.lines[fr.Line-1]
		mapped.SourceLine = &line
	}
	return mapped
}
