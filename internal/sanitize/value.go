// Package sanitize converts interpreter values into transport safe values.
package sanitize

import (
	"bytes"
	"encoding/json"
	"math"
	"math/big"
	"strconv"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindText
	// KindOpaqueText is the printed form of a value with no scalar
	// representation, such as a list or a function.
	KindOpaqueText
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindText:
		return "text"
	case KindOpaqueText:
		return "opaque"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a closed variant over the scalar kinds a trace carries. The zero
// Value is null.
type Value struct {
	kind Kind
	b    bool
	f    float64
	// s holds decimal digits for ints and the text for text kinds.
	s string
}

func Null() Value           { return Value{} }
func Bool(b bool) Value     { return Value{kind: KindBool, b: b} }
func Int(n int64) Value     { return Value{kind: KindInt, s: strconv.FormatInt(n, 10)} }
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }
func Text(s string) Value   { return Value{kind: KindText, s: s} }
func Opaque(s string) Value { return Value{kind: KindOpaqueText, s: s} }

// BigInt returns an int Value of arbitrary size.
func BigInt(n *big.Int) Value { return Value{kind: KindInt, s: n.String()} }

func (v Value) Kind() Kind { return v.kind }

// TextValue returns the text of a text or opaque value.
func (v Value) TextValue() (string, bool) {
	if v.kind == KindText || v.kind == KindOpaqueText {
		return v.s, true
	}
	return "", false
}

// Equal reports whether v and o hold the same variant and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindBool:
		return v.b == o.b
	case KindFloat:
		return v.f == o.f || (math.IsNaN(v.f) && math.IsNaN(o.f))
	}
	return v.s == o.s
}

// String renders v for humans: text unquoted, null as None.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "None"
	case KindBool:
		if v.b {
			return "True"
		}
		return "False"
	case KindFloat:
		return formatFloat(v.f)
	}
	return v.s
}

// MarshalJSON writes one JSON form per kind. Floats always carry a decimal
// point or exponent so they stay distinguishable from ints; non-finite
// floats are written as strings.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return strconv.AppendBool(nil, v.b), nil
	case KindInt:
		return []byte(v.s), nil
	case KindFloat:
		switch {
		case math.IsNaN(v.f):
			return []byte(`"NaN"`), nil
		case math.IsInf(v.f, 1):
			return []byte(`"Infinity"`), nil
		case math.IsInf(v.f, -1):
			return []byte(`"-Infinity"`), nil
		}
		return []byte(formatFloat(v.f)), nil
	}
	return json.Marshal(v.s)
}

// UnmarshalJSON restores a Value from its JSON form. Strings come back as
// text; the opaque tag does not survive a round trip.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	switch raw := raw.(type) {
	case nil:
		*v = Null()
	case bool:
		*v = Bool(raw)
	case string:
		*v = Text(raw)
	case json.Number:
		if n, ok := new(big.Int).SetString(raw.String(), 10); ok {
			*v = BigInt(n)
			return nil
		}
		f, err := raw.Float64()
		if err != nil {
			return err
		}
		*v = Float(f)
	default:
		*v = Opaque(string(data))
	}
	return nil
}

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
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			return s
		}
	}
	return s + ".0"
}
