// Package transport implements the byte-level sink/source abstraction C1
// describes: read N bytes, read until a byte, write N bytes, printf-like
// formatted write, getc, close, with an optional zlib compression layer that
// may be switched on exactly once, before the first payload after the stream
// header.
package transport

import (
	"bufio"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/das2gopher/das2stream/daserr"
	"github.com/das2gopher/das2stream/internal/options"
	"github.com/das2gopher/das2stream/internal/pool"
)

// Mode selects direction and grammar version; the zero value is invalid.
type Mode struct {
	Write   bool
	Grammar int // 2 or 3
}

// Transport wraps an underlying io.Reader/io.Writer/io.Closer with das2's
// fixed read/write primitives and an optional mid-stream zlib layer.
type Transport struct {
	rw     io.ReadWriteCloser
	br     *bufio.Reader
	mode   Mode
	staged *pool.ByteBuffer

	compressing bool
	everEntered bool
	zr          io.ReadCloser
	zw          *zlib.Writer
}

// Option configures a Transport at construction.
type Option = options.Option[Transport]

// stagingBufferSize is the minimum staging buffer C1 requires (>= 64 KiB);
// it reuses the codec's 256 KiB default chunk buffer from internal/pool.
const stagingBufferSize = pool.ChunkBufferDefaultSize

// New wraps rw as a Transport for the given mode.
func New(rw io.ReadWriteCloser, mode Mode, opts ...Option) (*Transport, error) {
	if mode.Grammar != 2 && mode.Grammar != 3 {
		return nil, fmt.Errorf("transport: %w: grammar must be 2 or 3", daserr.ErrInvalidOp)
	}

	t := &Transport{
		rw:     rw,
		br:     bufio.NewReaderSize(rw, stagingBufferSize),
		mode:   mode,
		staged: pool.NewByteBuffer(stagingBufferSize),
	}

	if err := options.Apply(t, opts...); err != nil {
		return nil, err
	}

	return t, nil
}

// Grammar reports the wire grammar version (2 or 3) this transport was opened with.
func (t *Transport) Grammar() int { return t.mode.Grammar }

// ReadN reads exactly n bytes, blocking and retrying internally on short reads.
// When the input is exhausted before any byte is read the error wraps io.EOF;
// when it ends part way through the n bytes the error is ErrPartialPacket.
func (t *Transport) ReadN(n int) ([]byte, error) {
	buf := make([]byte, n)
	src := io.Reader(t.br)
	if t.compressing && t.zr != nil {
		src = t.zr
	}

	if _, err := io.ReadFull(src, buf); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("transport: %w", io.EOF)
		}
		if err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("transport: %w", daserr.ErrPartialPacket)
		}

		return nil, fmt.Errorf("transport: read %d bytes: %w: %v", n, daserr.ErrIO, err)
	}

	return buf, nil
}

// ReadUntil reads bytes up to and including the first occurrence of delim.
func (t *Transport) ReadUntil(delim byte) ([]byte, error) {
	if t.compressing && t.zr != nil {
		return readUntilFrom(t.zr, delim)
	}

	line, err := t.br.ReadBytes(delim)
	if err != nil {
		return nil, fmt.Errorf("transport: read until %q: %w: %v", delim, daserr.ErrIO, err)
	}

	return line, nil
}

func readUntilFrom(r io.Reader, delim byte) ([]byte, error) {
	var out []byte
	one := make([]byte, 1)
	for {
		if _, err := io.ReadFull(r, one); err != nil {
			return nil, fmt.Errorf("transport: read until %q: %w: %v", delim, daserr.ErrIO, err)
		}
		out = append(out, one[0])
		if one[0] == delim {
			return out, nil
		}
	}
}

// Getc reads a single byte.
func (t *Transport) Getc() (byte, error) {
	b, err := t.ReadN(1)
	if err != nil {
		return 0, err
	}

	return b[0], nil
}

// WriteN writes all of data, retrying internally until complete or a hard
// failure (C1 "Partial writes must be retried internally until complete").
func (t *Transport) WriteN(data []byte) error {
	dst := io.Writer(t.rw)
	if t.compressing && t.zw != nil {
		dst = t.zw
	}

	for len(data) > 0 {
		n, err := dst.Write(data)
		if err != nil {
			return fmt.Errorf("transport: write: %w: %v", daserr.ErrIO, err)
		}
		data = data[n:]
	}

	return nil
}

// Printf writes a formatted string, the same way as WriteN(fmt.Sprintf(...)).
func (t *Transport) Printf(format string, args ...any) error {
	return t.WriteN([]byte(fmt.Sprintf(format, args...)))
}

// EnterCompressed switches subsequent reads/writes through zlib inflate/
// deflate. It may be called at most once per Transport (C1 "Compression may
// be enabled mid-stream only once, before the first payload after the stream
// header").
func (t *Transport) EnterCompressed() error {
	if t.everEntered {
		return fmt.Errorf("transport: %w: compression already entered", daserr.ErrProtocol)
	}
	t.everEntered = true
	t.compressing = true

	if t.mode.Write {
		t.zw = zlib.NewWriter(t.rw)
		return nil
	}

	zr, err := zlib.NewReader(t.br)
	if err != nil {
		return fmt.Errorf("transport: enter compressed mode: %w: %v", daserr.ErrIO, err)
	}
	t.zr = zr

	return nil
}

// Close flushes any open compressor and closes the underlying stream.
func (t *Transport) Close() error {
	if t.zw != nil {
		if err := t.zw.Close(); err != nil {
			return fmt.Errorf("transport: close compressor: %w: %v", daserr.ErrIO, err)
		}
	}
	if t.zr != nil {
		_ = t.zr.Close()
	}

	return t.rw.Close()
}
