package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/das2gopher/das2stream/daserr"
	"github.com/das2gopher/das2stream/endian"
	"github.com/das2gopher/das2stream/format"
)

// Codec describes how one record's worth of bytes for a single variable
// decode into values: a value type, byte width, wire encoding, and a count
// of values per record (C7 "Codecs. Each codec holds (value type, width,
// encoding, count)").
type Codec struct {
	ValueType format.ValueType
	Width     int // byte width per scalar; -1 if variable-length
	Encoding  format.CodecEncoding
	Count     int
	Endian    endian.EndianEngine // binary-LE/BE codecs only
	Delim     byte                // text-delimited codecs only
}

// RecBytes returns the codec's fixed per-record byte width, or -1 if the
// codec is variable-length (text-delimited is the only variable-width
// encoding this package models).
func (c Codec) RecBytes() int {
	if c.Encoding == format.EncodingTextDelimited {
		return -1
	}

	return c.Width * c.Count
}

// Decode reads exactly RecBytes() bytes (or, for a variable-length text
// codec, as many as buf holds up to the next record boundary the caller
// supplies) from buf and appends the decoded values into arr. It returns the
// number of bytes consumed.
func (c Codec) Decode(buf []byte, arr *Array) (int, error) {
	switch c.Encoding {
	case format.EncodingBinaryLE, format.EncodingBinaryBE:
		return c.decodeBinary(buf, arr)
	case format.EncodingTextFixed:
		return c.decodeTextFixed(buf, arr)
	case format.EncodingTextDelimited:
		return c.decodeTextDelimited(buf, arr)
	case format.EncodingTimeString:
		return c.decodeTextFixed(buf, arr)
	default:
		return 0, fmt.Errorf("dataset: %w: unknown codec encoding %v", daserr.ErrInternal, c.Encoding)
	}
}

func (c Codec) decodeBinary(buf []byte, arr *Array) (int, error) {
	need := c.Width * c.Count
	if len(buf) < need {
		return 0, fmt.Errorf("dataset: %w: need %d bytes, have %d", daserr.ErrPartialPacket, need, len(buf))
	}

	eng := c.Endian
	if eng == nil {
		eng = endian.GetLittleEndianEngine()
	}

	vals := make([]float64, c.Count)
	for i := 0; i < c.Count; i++ {
		word := buf[i*c.Width : (i+1)*c.Width]
		v, err := c.decodeBinaryScalar(eng, word)
		if err != nil {
			return 0, err
		}
		vals[i] = v
	}

	if err := arr.Append(vals...); err != nil {
		return 0, err
	}

	return need, nil
}

// decodeBinaryScalar reinterprets one word of raw bytes per the codec's
// declared value type: float widths decode as IEEE-754, everything else
// (including ValueTime's 8-byte µs2000 storage) decodes as a two's-complement
// or unsigned integer widened to float64.
func (c Codec) decodeBinaryScalar(eng endian.EndianEngine, word []byte) (float64, error) {
	switch c.ValueType {
	case format.ValueReal32:
		if c.Width != 4 {
			return 0, fmt.Errorf("dataset: %w: real32 codec width must be 4, got %d", daserr.ErrInternal, c.Width)
		}
		return float64(math.Float32frombits(eng.Uint32(word))), nil
	case format.ValueReal64, format.ValueTime:
		if c.Width != 8 {
			return 0, fmt.Errorf("dataset: %w: real64/time codec width must be 8, got %d", daserr.ErrInternal, c.Width)
		}
		return math.Float64frombits(eng.Uint64(word)), nil
	default:
		unsigned := c.ValueType == format.ValueUint8 || c.ValueType == format.ValueUint16 ||
			c.ValueType == format.ValueUint32 || c.ValueType == format.ValueUint64
		switch c.Width {
		case 1:
			if unsigned {
				return float64(word[0]), nil
			}
			return float64(int8(word[0])), nil
		case 2:
			if unsigned {
				return float64(eng.Uint16(word)), nil
			}
			return float64(int16(eng.Uint16(word))), nil
		case 4:
			if unsigned {
				return float64(eng.Uint32(word)), nil
			}
			return float64(int32(eng.Uint32(word))), nil
		case 8:
			if unsigned {
				return float64(eng.Uint64(word)), nil
			}
			return float64(int64(eng.Uint64(word))), nil
		default:
			return 0, fmt.Errorf("dataset: %w: unsupported binary codec width %d", daserr.ErrInternal, c.Width)
		}
	}
}

func (c Codec) decodeTextFixed(buf []byte, arr *Array) (int, error) {
	need := c.Width * c.Count
	if len(buf) < need {
		return 0, fmt.Errorf("dataset: %w: need %d bytes, have %d", daserr.ErrPartialPacket, need, len(buf))
	}

	if arr.ValueType() == format.ValueText {
		vals := make([]string, c.Count)
		for i := 0; i < c.Count; i++ {
			vals[i] = strings.TrimSpace(string(buf[i*c.Width : (i+1)*c.Width]))
		}
		if err := arr.AppendText(vals...); err != nil {
			return 0, err
		}

		return need, nil
	}

	vals := make([]float64, c.Count)
	for i := 0; i < c.Count; i++ {
		field := strings.TrimSpace(string(buf[i*c.Width : (i+1)*c.Width]))
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return 0, fmt.Errorf("dataset: %w: field %q: %v", daserr.ErrProtocol, field, err)
		}
		vals[i] = v
	}
	if err := arr.Append(vals...); err != nil {
		return 0, err
	}

	return need, nil
}

func (c Codec) decodeTextDelimited(buf []byte, arr *Array) (int, error) {
	delim := c.Delim
	if delim == 0 {
		delim = ' '
	}

	fields := make([]string, 0, c.Count)
	consumed := 0
	rest := buf
	for len(fields) < c.Count {
		i := indexByte(rest, delim)
		if i < 0 {
			fields = append(fields, string(rest))
			consumed += len(rest)
			rest = nil
			break
		}
		fields = append(fields, string(rest[:i]))
		consumed += i + 1
		rest = rest[i+1:]
	}
	if len(fields) != c.Count {
		return 0, fmt.Errorf("dataset: %w: got %d delimited fields, want %d", daserr.ErrPartialPacket, len(fields), c.Count)
	}

	if arr.ValueType() == format.ValueText {
		if err := arr.AppendText(fields...); err != nil {
			return 0, err
		}

		return consumed, nil
	}

	vals := make([]float64, c.Count)
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return 0, fmt.Errorf("dataset: %w: field %q: %v", daserr.ErrProtocol, f, err)
		}
		vals[i] = v
	}
	if err := arr.Append(vals...); err != nil {
		return 0, err
	}

	return consumed, nil
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}

	return -1
}
