package sanitize

import (
	"github.com/yousuf/stepbyte/internal/interp"
)

const (
	// Unparseable replaces a value whose printed form could not be produced.
	Unparseable = "Error: Unparseable value"
	// UnparseableReturn is the sentinel used for return values.
	UnparseableReturn = "Error: Unparseable return value"
)

// Sanitize converts v. Scalars keep their kind; everything else becomes the
// opaque text of its printed form. It never panics.
func Sanitize(v interp.Value) Value {
	return sanitize(v, Unparseable)
}

// Return converts a function result the way Sanitize converts locals.
func Return(v interp.Value) Value {
	return sanitize(v, UnparseableReturn)
}

func sanitize(v interp.Value, sentinel string) (out Value) {
	defer func() {
		if r := recover(); r != nil {
			out = Opaque(sentinel)
		}
	}()
	switch v := v.(type) {
	case nil, interp.NoneType:
		return Null()
	case interp.Bool:
		return Bool(bool(v))
	case interp.Int:
		if n, ok := v.Int64(); ok {
			return Int(n)
		}
		return BigInt(v.BigInt())
	case interp.Float:
		return Float(float64(v))
	case interp.String:
		return Text(string(v))
	}
	return Opaque(interp.Repr(v))
}
