// Package dataset implements the das2 dataset model (C7): typed,
// dynamic-dimension arrays, codec-driven record decoding, and array-backed
// or computed variables.
package dataset

import (
	"fmt"

	"github.com/das2gopher/das2stream/daserr"
	"github.com/das2gopher/das2stream/format"
)

// MaxRank is the highest rank an Array supports (C7 "rank <= 8").
const MaxRank = 8

// Array is a rank <= 8, dynamic-dimension buffer of a typed scalar. Index 0
// is the "ragged" dimension: it grows by amortized doubling as records are
// appended. Inner dimensions (index 1..rank-1) are fixed at construction.
//
// Numeric value types are stored in a flat float64 backing slice regardless
// of their wire width; ValueText stores one string per scalar instead.
type Array struct {
	valueType  format.ValueType
	innerShape []int // fixed dimensions, index 1..rank-1
	innerSize  int   // product of innerShape, >= 1

	length int // current extent of index 0
	data   []float64
	text   []string
}

// NewArray allocates an empty Array of valueType with the given inner shape
// (the fixed dimensions beyond the ragged index 0). A nil/empty innerShape
// means rank 1.
func NewArray(valueType format.ValueType, innerShape []int) (*Array, error) {
	if len(innerShape)+1 > MaxRank {
		return nil, fmt.Errorf("dataset: %w: rank %d exceeds max %d", daserr.ErrShapeMismatch, len(innerShape)+1, MaxRank)
	}

	innerSize := 1
	for _, d := range innerShape {
		if d <= 0 {
			return nil, fmt.Errorf("dataset: %w: non-positive inner dimension %d", daserr.ErrShapeMismatch, d)
		}
		innerSize *= d
	}

	shape := append([]int(nil), innerShape...)

	return &Array{valueType: valueType, innerShape: shape, innerSize: innerSize}, nil
}

// ValueType reports the scalar type this array carries.
func (a *Array) ValueType() format.ValueType { return a.valueType }

// Rank reports the array's total rank (1 + len(inner shape)).
func (a *Array) Rank() int { return 1 + len(a.innerShape) }

// Len reports the current extent of the ragged index-0 dimension.
func (a *Array) Len() int { return a.length }

// Shape reports the full shape, index 0 first.
func (a *Array) Shape() []int {
	return append([]int{a.length}, a.innerShape...)
}

// Append grows index 0 by one record, appending innerSize numeric values
// (row-major across the inner dimensions). Growth is amortized: the backing
// slice doubles rather than growing by exactly one record at a time.
func (a *Array) Append(values ...float64) error {
	if a.valueType == format.ValueText {
		return fmt.Errorf("dataset: %w: Append does not accept text values", daserr.ErrInvalidOp)
	}
	if len(values) != a.innerSize {
		return fmt.Errorf("dataset: %w: got %d values, want %d", daserr.ErrShapeMismatch, len(values), a.innerSize)
	}

	needed := (a.length + 1) * a.innerSize
	a.data = growFloat64(a.data, needed)
	copy(a.data[a.length*a.innerSize:needed], values)
	a.length++

	return nil
}

// AppendText is Append's counterpart for a ValueText array.
func (a *Array) AppendText(values ...string) error {
	if a.valueType != format.ValueText {
		return fmt.Errorf("dataset: %w: AppendText only valid on a text array", daserr.ErrInvalidOp)
	}
	if len(values) != a.innerSize {
		return fmt.Errorf("dataset: %w: got %d values, want %d", daserr.ErrShapeMismatch, len(values), a.innerSize)
	}

	needed := (a.length + 1) * a.innerSize
	a.text = growString(a.text, needed)
	copy(a.text[a.length*a.innerSize:needed], values)
	a.length++

	return nil
}

// growFloat64 returns s grown to at least n elements, doubling capacity each
// time it must reallocate (amortized O(1) Append), the same growth discipline
// the teacher's columnar index-0 dimension uses.
func growFloat64(s []float64, n int) []float64 {
	if cap(s) >= n {
		return s[:n]
	}
	newCap := max(2*cap(s), n)
	grown := make([]float64, n, newCap)
	copy(grown, s)

	return grown
}

func growString(s []string, n int) []string {
	if cap(s) >= n {
		return s[:n]
	}
	newCap := max(2*cap(s), n)
	grown := make([]string, n, newCap)
	copy(grown, s)

	return grown
}

// At returns the numeric scalar at the given full index (index 0 first,
// followed by one index per inner dimension).
func (a *Array) At(idx ...int) (float64, error) {
	off, err := a.offset(idx)
	if err != nil {
		return 0, err
	}

	return a.data[off], nil
}

// AtText is At's counterpart for a ValueText array.
func (a *Array) AtText(idx ...int) (string, error) {
	off, err := a.offset(idx)
	if err != nil {
		return "", err
	}

	return a.text[off], nil
}

func (a *Array) offset(idx []int) (int, error) {
	if len(idx) != a.Rank() {
		return 0, fmt.Errorf("dataset: %w: index rank %d, array rank %d", daserr.ErrShapeMismatch, len(idx), a.Rank())
	}
	if idx[0] < 0 || idx[0] >= a.length {
		return 0, fmt.Errorf("dataset: %w: index 0 value %d out of [0,%d)", daserr.ErrShapeMismatch, idx[0], a.length)
	}
	for dim, i := range idx[1:] {
		if i < 0 || i >= a.innerShape[dim] {
			return 0, fmt.Errorf("dataset: %w: index %d value %d out of [0,%d)", daserr.ErrShapeMismatch, dim+1, i, a.innerShape[dim])
		}
	}

	return idx[0]*a.innerSize + innerOffset(a.innerShape, idx[1:]), nil
}

// innerOffset computes the row-major offset within one record's inner block.
func innerOffset(shape []int, idx []int) int {
	off := 0
	stride := 1
	for dim := len(shape) - 1; dim >= 0; dim-- {
		off += idx[dim] * stride
		stride *= shape[dim]
	}

	return off
}

// Clear truncates index 0 to zero length without releasing the backing
// storage (C7 "clear truncates index 0 to 0").
func (a *Array) Clear() {
	a.length = 0
	a.data = a.data[:0]
	a.text = a.text[:0]
}
