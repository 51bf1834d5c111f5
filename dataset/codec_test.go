package dataset

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/das2gopher/das2stream/endian"
	"github.com/das2gopher/das2stream/format"
	"github.com/stretchr/testify/require"
)

func TestCodecDecodeBinaryLEFloat64(t *testing.T) {
	r := require.New(t)

	buf := make([]byte, 16)
	binary.LittleEndian.PutUint64(buf[0:8], mustFloat64Bits(1.25))
	binary.LittleEndian.PutUint64(buf[8:16], mustFloat64Bits(-2.5))

	c := Codec{ValueType: format.ValueReal64, Width: 8, Encoding: format.EncodingBinaryLE, Count: 2, Endian: endian.GetLittleEndianEngine()}
	arr, err := NewArray(format.ValueReal64, []int{2})
	r.NoError(err)

	n, err := c.Decode(buf, arr)
	r.NoError(err)
	r.Equal(16, n)

	v0, err := arr.At(0, 0)
	r.NoError(err)
	r.Equal(1.25, v0)
	v1, err := arr.At(0, 1)
	r.NoError(err)
	r.Equal(-2.5, v1)
}

func TestCodecDecodeBinaryPartialFails(t *testing.T) {
	r := require.New(t)

	c := Codec{ValueType: format.ValueReal64, Width: 8, Encoding: format.EncodingBinaryLE, Count: 2}
	arr, err := NewArray(format.ValueReal64, []int{2})
	r.NoError(err)

	_, err = c.Decode(make([]byte, 10), arr)
	r.Error(err)
}

func TestCodecDecodeTextFixed(t *testing.T) {
	r := require.New(t)

	c := Codec{ValueType: format.ValueReal64, Width: 6, Encoding: format.EncodingTextFixed, Count: 2}
	arr, err := NewArray(format.ValueReal64, []int{2})
	r.NoError(err)

	n, err := c.Decode([]byte("  1.50 -2.25"), arr)
	r.NoError(err)
	r.Equal(12, n)

	v0, err := arr.At(0, 0)
	r.NoError(err)
	r.Equal(1.5, v0)
}

func TestCodecDecodeTextDelimited(t *testing.T) {
	r := require.New(t)

	c := Codec{ValueType: format.ValueReal64, Encoding: format.EncodingTextDelimited, Count: 3, Delim: ','}
	arr, err := NewArray(format.ValueReal64, []int{3})
	r.NoError(err)

	n, err := c.Decode([]byte("1,2,3,rest"), arr)
	r.NoError(err)
	r.Equal(6, n)

	v2, err := arr.At(0, 2)
	r.NoError(err)
	r.Equal(3.0, v2)
	r.Equal(-1, c.RecBytes())
}

func TestCodecRecBytes(t *testing.T) {
	r := require.New(t)

	c := Codec{Width: 8, Count: 3, Encoding: format.EncodingBinaryLE}
	r.Equal(24, c.RecBytes())
}

func mustFloat64Bits(f float64) uint64 {
	return math.Float64bits(f)
}
