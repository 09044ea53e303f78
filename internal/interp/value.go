package interp

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
)

// Value is a runtime value of the traced language.
type Value interface {
	// Type returns the name the language reports for the value's type.
	Type() string
}

// NoneType is the type of None.
type NoneType struct{}

// None is the single NoneType value.
var None Value = NoneType{}

func (NoneType) Type() string { return "NoneType" }

// Bool is a boolean value.
type Bool bool

func (Bool) Type() string { return "bool" }

// Float is a double precision floating point value.
type Float float64

func (Float) Type() string { return "float" }

// String is an immutable text value.
type String string

func (String) Type() string { return "str" }

// Int is an integer of arbitrary precision. Values that fit in 64 bits are
// kept unboxed; big is set only when they do not.
type Int struct {
	small int64
	big   *big.Int
}

// MakeInt returns the Int for n.
func MakeInt(n int64) Int { return Int{small: n} }

func makeBigInt(b *big.Int) Int {
	if b.IsInt64() {
		return Int{small: b.Int64()}
	}
	return Int{big: b}
}

func (Int) Type() string { return "int" }

// Int64 returns the value as an int64 and whether it fits.
func (i Int) Int64() (int64, bool) {
	if i.big != nil {
		return 0, false
	}
	return i.small, true
}

// BigInt returns the value as a new big.Int.
func (i Int) BigInt() *big.Int {
	if i.big != nil {
		return new(big.Int).Set(i.big)
	}
	return big.NewInt(i.small)
}

func (i Int) sign() int {
	if i.big != nil {
		return i.big.Sign()
	}
	switch {
	case i.small < 0:
		return -1
	case i.small > 0:
		return 1
	}
	return 0
}

func (i Int) float() float64 {
	if i.big != nil {
		f, _ := new(big.Float).SetInt(i.big).Float64()
		return f
	}
	return float64(i.small)
}

func (i Int) String() string {
	if i.big != nil {
		return i.big.String()
	}
	return strconv.FormatInt(i.small, 10)
}

// List is a mutable sequence.
type List struct {
	elems []Value
}

// NewList returns a list holding elems.
func NewList(elems []Value) *List { return &List{elems: elems} }

func (*List) Type() string { return "list" }

// Elems returns the backing elements. Callers must not retain the slice
// across mutations.
func (l *List) Elems() []Value { return l.elems }

// Len returns the number of elements.
func (l *List) Len() int { return len(l.elems) }

// Tuple is an immutable sequence.
type Tuple []Value

func (Tuple) Type() string { return "tuple" }

// Range is the lazy integer sequence produced by range().
type Range struct {
	start, stop, step int64
}

func (Range) Type() string { return "range" }

func (r Range) Len() int64 {
	switch {
	case r.step > 0 && r.start < r.stop:
		return (r.stop - r.start + r.step - 1) / r.step
	case r.step < 0 && r.start > r.stop:
		return (r.start - r.stop - r.step - 1) / -r.step
	}
	return 0
}

func (r Range) at(i int64) int64 { return r.start + i*r.step }

// Dict is an insertion ordered mapping.
type Dict struct {
	keys  []Value
	vals  []Value
	index map[any]int
}

// NewDict returns an empty dict.
func NewDict() *Dict { return &Dict{index: make(map[any]int)} }

func (*Dict) Type() string { return "dict" }

// Len returns the number of entries.
func (d *Dict) Len() int { return len(d.keys) }

// Keys returns the keys in insertion order.
func (d *Dict) Keys() []Value { return d.keys }

// Get looks up k.
func (d *Dict) Get(k Value) (Value, bool, error) {
	hk, err := hashKey(k)
	if err != nil {
		return nil, false, err
	}
	i, ok := d.index[hk]
	if !ok {
		return nil, false, nil
	}
	return d.vals[i], true, nil
}

// Set inserts or replaces the value for k.
func (d *Dict) Set(k, v Value) error {
	hk, err := hashKey(k)
	if err != nil {
		return err
	}
	if i, ok := d.index[hk]; ok {
		d.vals[i] = v
		return nil
	}
	d.index[hk] = len(d.keys)
	d.keys = append(d.keys, k)
	d.vals = append(d.vals, v)
	return nil
}

// Delete removes k and reports whether it was present.
func (d *Dict) Delete(k Value) (Value, bool, error) {
	hk, err := hashKey(k)
	if err != nil {
		return nil, false, err
	}
	i, ok := d.index[hk]
	if !ok {
		return nil, false, nil
	}
	v := d.vals[i]
	d.keys = append(d.keys[:i], d.keys[i+1:]...)
	d.vals = append(d.vals[:i], d.vals[i+1:]...)
	delete(d.index, hk)
	for j := i; j < len(d.keys); j++ {
		hk, _ := hashKey(d.keys[j])
		d.index[hk] = j
	}
	return v, true, nil
}

func (d *Dict) clear() {
	d.keys, d.vals = nil, nil
	d.index = make(map[any]int)
}

type tupleKey string

// hashKey maps a hashable value to a comparable Go value such that values
// comparing equal in the language share a key.
func hashKey(v Value) (any, error) {
	switch v := v.(type) {
	case NoneType:
		return v, nil
	case Bool:
		if v {
			return int64(1), nil
		}
		return int64(0), nil
	case Int:
		if n, ok := v.Int64(); ok {
			return n, nil
		}
		return "int:" + v.String(), nil
	case Float:
		f := float64(v)
		if f == math.Trunc(f) && math.Abs(f) < 1<<63 {
			return int64(f), nil
		}
		return f, nil
	case String:
		return string(v), nil
	case Tuple:
		key := "("
		for _, e := range v {
			ek, err := hashKey(e)
			if err != nil {
				return nil, err
			}
			key += strconv.Quote(typeTag(ek)) + ":" + strconv.Quote(keyString(ek)) + ","
		}
		return tupleKey(key + ")"), nil
	case *Function, *Builtin, *Module, *TypeValue, *File:
		return v, nil
	}
	return nil, newError("TypeError", "unhashable type: '%s'", v.Type())
}

func typeTag(k any) string {
	switch k.(type) {
	case int64:
		return "i"
	case float64:
		return "f"
	case string:
		return "s"
	case tupleKey:
		return "t"
	}
	return "o"
}

func keyString(k any) string {
	switch k := k.(type) {
	case int64:
		return strconv.FormatInt(k, 10)
	case float64:
		return strconv.FormatFloat(k, 'g', -1, 64)
	case string:
		return k
	case tupleKey:
		return string(k)
	case NoneType:
		return "None"
	}
	return fmt.Sprintf("%p", k)
}

// Truth reports the truthiness of v.
func Truth(v Value) bool {
	switch v := v.(type) {
	case NoneType:
		return false
	case Bool:
		return bool(v)
	case Int:
		return v.sign() != 0
	case Float:
		return v != 0
	case String:
		return len(v) > 0
	case *List:
		return len(v.elems) > 0
	case Tuple:
		return len(v) > 0
	case *Dict:
		return v.Len() > 0
	case Range:
		return v.Len() > 0
	}
	return true
}
