package interp

import "unicode/utf8"

type iterator interface {
	next() (Value, bool, error)
}

type sliceIter struct {
	elems []Value
	i     int
}

func (it *sliceIter) next() (Value, bool, error) {
	if it.i >= len(it.elems) {
		return nil, false, nil
	}
	it.i++
	return it.elems[it.i-1], true, nil
}

// listIter reads the list live so appends during iteration are observed.
type listIter struct {
	l *List
	i int
}

func (it *listIter) next() (Value, bool, error) {
	if it.i >= len(it.l.elems) {
		return nil, false, nil
	}
	it.i++
	return it.l.elems[it.i-1], true, nil
}

type rangeIter struct {
	r Range
	i int64
}

func (it *rangeIter) next() (Value, bool, error) {
	if it.i >= it.r.Len() {
		return nil, false, nil
	}
	it.i++
	return MakeInt(it.r.at(it.i - 1)), true, nil
}

type stringIter struct {
	s string
}

func (it *stringIter) next() (Value, bool, error) {
	if it.s == "" {
		return nil, false, nil
	}
	r, size := utf8.DecodeRuneInString(it.s)
	it.s = it.s[size:]
	return String(r), true, nil
}

// dictIter walks a snapshot of the keys and fails once the dict no longer
// has as many entries as the snapshot.
type dictIter struct {
	d    *Dict
	keys []Value
	i    int
}

func (it *dictIter) next() (Value, bool, error) {
	if it.d.Len() != len(it.keys) {
		return nil, false, newError("RuntimeError", "dictionary changed size during iteration")
	}
	if it.i >= len(it.keys) {
		return nil, false, nil
	}
	it.i++
	return it.keys[it.i-1], true, nil
}

func iterate(v Value) (iterator, error) {
	switch v := v.(type) {
	case *List:
		return &listIter{l: v}, nil
	case Tuple:
		return &sliceIter{elems: v}, nil
	case Range:
		return &rangeIter{r: v}, nil
	case String:
		return &stringIter{s: string(v)}, nil
	case *Dict:
		keys := make([]Value, len(v.keys))
		copy(keys, v.keys)
		return &dictIter{d: v, keys: keys}, nil
	}
	return nil, newError("TypeError", "'%s' object is not iterable", v.Type())
}

const maxCollect = 1 << 24

// collect materializes an iterable.
func (in *Interpreter) collect(v Value) ([]Value, error) {
	switch v := v.(type) {
	case Tuple:
		return append([]Value(nil), v...), nil
	case Range:
		if v.Len() > maxCollect {
			return nil, newError("MemoryError", "range too large to materialize")
		}
	}
	it, err := iterate(v)
	if err != nil {
		return nil, err
	}
	var out []Value
	for {
		item, ok, err := it.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, item)
		if len(out)%1024 == 0 {
			if err := in.poll(); err != nil {
				return nil, err
			}
		}
	}
}
