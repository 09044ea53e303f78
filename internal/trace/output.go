package trace

import (
	"bytes"
	"unicode/utf8"
)

// TruncationMarker ends a stream that exceeded its cap.
const TruncationMarker = "\n[output truncated]"

// cappedBuffer keeps at most limit bytes of what is written to it and
// silently drops the rest. A limit of zero or less disables the cap.
type cappedBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func newCappedBuffer(limit int) *cappedBuffer {
	return &cappedBuffer{limit: limit}
}

func (c *cappedBuffer) Write(p []byte) (int, error) {
	if c.limit <= 0 {
		return c.buf.Write(p)
	}
	if c.truncated {
		return len(p), nil
	}
	room := c.limit - c.buf.Len()
	if len(p) <= room {
		return c.buf.Write(p)
	}
	if room > 0 {
		cut := room
		for cut > 0 && !utf8.RuneStart(p[cut]) {
			cut--
		}
		c.buf.Write(p[:cut])
	}
	c.truncated = true
	return len(p), nil
}

func (c *cappedBuffer) String() string {
	if c.truncated {
		return c.buf.String() + TruncationMarker
	}
	return c.buf.String()
}
