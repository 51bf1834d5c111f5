package dataset

import (
	"testing"

	"github.com/das2gopher/das2stream/format"
	"github.com/stretchr/testify/require"
)

func TestArrayVarPassesThroughIndices(t *testing.T) {
	r := require.New(t)

	arr, err := NewArray(format.ValueReal64, nil)
	r.NoError(err)
	r.NoError(arr.Append(7))
	r.NoError(arr.Append(8))

	v := NewArrayVar(arr)
	r.Equal(1, v.Rank())

	got, err := v.Get(1)
	r.NoError(err)
	r.Equal(8.0, got)
}

func TestArrayVarWithFixedIndexDropsDimension(t *testing.T) {
	r := require.New(t)

	arr, err := NewArray(format.ValueReal64, []int{2})
	r.NoError(err)
	r.NoError(arr.Append(1, 2))
	r.NoError(arr.Append(3, 4))

	v := NewArrayVar(arr).WithFixedIndex(1, 1)
	r.Equal(1, v.Rank())
	r.True(v.Degenerate(1))
	r.False(v.Degenerate(0))

	got, err := v.Get(1)
	r.NoError(err)
	r.Equal(4.0, got)
}

func TestConstantVarAlwaysReturnsValue(t *testing.T) {
	r := require.New(t)

	v := NewConstantVar(42, 1)
	got, err := v.Get(5)
	r.NoError(err)
	r.Equal(42.0, got)
	r.True(v.Degenerate(0))
}

func TestPolynomialVarEvaluatesQuadratic(t *testing.T) {
	r := require.New(t)

	v := NewPolynomialVar(0, 1, []float64{1, 2, 3}) // 1 + 2x + 3x^2
	got, err := v.Get(2)
	r.NoError(err)
	r.Equal(1+2*2+3*4.0, got)
	r.False(v.Degenerate(0))
}

func TestBinaryOpVarArithmetic(t *testing.T) {
	r := require.New(t)

	a := NewConstantVar(10, 1)
	b := NewConstantVar(4, 1)

	cases := []struct {
		op   BinOp
		want float64
	}{
		{OpAdd, 14},
		{OpSub, 6},
		{OpMul, 40},
		{OpDiv, 2.5},
	}
	for _, c := range cases {
		v := NewBinaryOpVar(c.op, a, b, 1)
		got, err := v.Get(0)
		r.NoError(err)
		r.Equal(c.want, got)
	}

	r.True(NewBinaryOpVar(OpAdd, a, b, 1).Degenerate(0))
}

func TestBinaryOpVarDivisionByZero(t *testing.T) {
	r := require.New(t)

	v := NewBinaryOpVar(OpDiv, NewConstantVar(1, 1), NewConstantVar(0, 1), 1)
	_, err := v.Get(0)
	r.Error(err)
}
