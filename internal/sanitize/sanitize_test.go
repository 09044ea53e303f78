package sanitize

import (
	"encoding/json"
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yousuf/stepbyte/internal/interp"
)

type explodingValue struct{}

func (explodingValue) Type() string { panic("boom") }

func TestSanitize(t *testing.T) {
	huge, _ := new(big.Int).SetString("123456789012345678901234567890", 10)
	tests := []struct {
		name string
		in   interp.Value
		want Value
	}{
		{"none", interp.None, Null()},
		{"nil", nil, Null()},
		{"bool", interp.Bool(true), Bool(true)},
		{"int", interp.MakeInt(42), Int(42)},
		{"float", interp.Float(2.5), Float(2.5)},
		{"string", interp.String("hi"), Text("hi")},
		{"list", interp.NewList([]interp.Value{interp.MakeInt(1), interp.String("a")}), Opaque("[1, 'a']")},
		{"tuple", interp.Tuple{interp.MakeInt(1)}, Opaque("(1,)")},
		{"panicking value", explodingValue{}, Opaque(Unparseable)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Sanitize(tc.in)
			require.True(t, tc.want.Equal(got), "want %v (%s), got %v (%s)", tc.want, tc.want.Kind(), got, got.Kind())
		})
	}

	t.Run("big int", func(t *testing.T) {
		require.Equal(t, `123456789012345678901234567890`, mustJSON(t, BigInt(huge)))
	})

	t.Run("return sentinel", func(t *testing.T) {
		require.True(t, Opaque(UnparseableReturn).Equal(Return(explodingValue{})))
	})
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func TestMarshalJSON(t *testing.T) {
	got := mustJSON(t, map[string]Value{
		"a": Null(),
		"b": Bool(false),
		"c": Int(-3),
		"d": Float(2),
		"e": Float(0.5),
		"f": Float(math.Inf(1)),
		"g": Text("x\"y"),
		"h": Opaque("<function f at line 1>"),
	})
	require.JSONEq(t, `{"a":null,"b":false,"c":-3,"d":2.0,"e":0.5,"f":"Infinity","g":"x\"y","h":"<function f at line 1>"}`, got)
	require.Contains(t, got, `"d":2.0`)
}

func TestUnmarshalJSON(t *testing.T) {
	var vals []Value
	require.NoError(t, json.Unmarshal([]byte(`[null, true, 7, 1.5, "s"]`), &vals))
	require.Len(t, vals, 5)
	require.Equal(t, KindNull, vals[0].Kind())
	require.True(t, Bool(true).Equal(vals[1]))
	require.True(t, Int(7).Equal(vals[2]))
	require.True(t, Float(1.5).Equal(vals[3]))
	require.True(t, Text("s").Equal(vals[4]))
}

func TestString(t *testing.T) {
	require.Equal(t, "None", Null().String())
	require.Equal(t, "True", Bool(true).String())
	require.Equal(t, "3.0", Float(3).String())
	require.Equal(t, "plain", Text("plain").String())
}
