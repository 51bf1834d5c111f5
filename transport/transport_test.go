package transport

import (
	"testing"

	"github.com/das2gopher/das2stream/daserr"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsBadGrammar(t *testing.T) {
	r := require.New(t)

	_, err := NewBuffer(nil, Mode{Grammar: 4})
	r.Error(err)
}

func TestReadNAndWriteNRoundTrip(t *testing.T) {
	r := require.New(t)

	w, err := NewBuffer(nil, Mode{Write: true, Grammar: 3})
	r.NoError(err)
	r.NoError(w.WriteN([]byte("hello")))

	buf := w.rw.(bufferConn)
	data := buf.Bytes()

	rd, err := NewBuffer(append([]byte(nil), data...), Mode{Grammar: 3})
	r.NoError(err)

	got, err := rd.ReadN(5)
	r.NoError(err)
	r.Equal("hello", string(got))
}

func TestReadNPartialFails(t *testing.T) {
	r := require.New(t)

	rd, err := NewBuffer([]byte("ab"), Mode{Grammar: 3})
	r.NoError(err)

	_, err = rd.ReadN(5)
	r.ErrorIs(err, daserr.ErrPartialPacket)
}

func TestReadUntilDelimiter(t *testing.T) {
	r := require.New(t)

	rd, err := NewBuffer([]byte("abc|def"), Mode{Grammar: 3})
	r.NoError(err)

	line, err := rd.ReadUntil('|')
	r.NoError(err)
	r.Equal("abc|", string(line))
}

func TestGetc(t *testing.T) {
	r := require.New(t)

	rd, err := NewBuffer([]byte("Z"), Mode{Grammar: 2})
	r.NoError(err)

	b, err := rd.Getc()
	r.NoError(err)
	r.Equal(byte('Z'), b)
}

func TestPrintf(t *testing.T) {
	r := require.New(t)

	w, err := NewBuffer(nil, Mode{Write: true, Grammar: 2})
	r.NoError(err)
	r.NoError(w.Printf("[%02d]%06d", 1, 3))

	buf := w.rw.(bufferConn)
	r.Equal("[01]000003", buf.String())
}

func TestEnterCompressedOnceOnly(t *testing.T) {
	r := require.New(t)

	w, err := NewBuffer(nil, Mode{Write: true, Grammar: 3})
	r.NoError(err)
	r.NoError(w.EnterCompressed())
	r.Error(w.EnterCompressed())
}

func TestCompressedRoundTrip(t *testing.T) {
	r := require.New(t)

	w, err := NewBuffer(nil, Mode{Write: true, Grammar: 3})
	r.NoError(err)
	r.NoError(w.EnterCompressed())
	r.NoError(w.WriteN([]byte("payload bytes")))
	r.NoError(w.Close())

	buf := w.rw.(bufferConn)
	compressed := append([]byte(nil), buf.Bytes()...)

	rd, err := NewBuffer(compressed, Mode{Grammar: 3})
	r.NoError(err)
	r.NoError(rd.EnterCompressed())

	got, err := rd.ReadN(len("payload bytes"))
	r.NoError(err)
	r.Equal("payload bytes", string(got))
}
