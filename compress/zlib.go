package compress

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zlib"
)

// ZlibCompressor implements the wire-mandated compression mode for the stream codec
// (C1 §4.1): once a stream header declares compression="deflate", every subsequent
// chunk's payload is wrapped in a zlib (RFC 1950) stream. klauspost/compress/zlib is
// a drop-in, faster reimplementation of the standard library's compress/zlib with
// the identical wire format, so switching streams mid-flight to/from a peer using
// the stdlib zlib package is unaffected.
type ZlibCompressor struct {
	level int
}

var _ Codec = (*ZlibCompressor)(nil)

// NewZlibCompressor creates a zlib codec at the default compression level.
func NewZlibCompressor() ZlibCompressor {
	return ZlibCompressor{level: zlib.DefaultCompression}
}

// NewZlibCompressorLevel creates a zlib codec at the given compression level
// (zlib.NoCompression..zlib.BestCompression).
func NewZlibCompressorLevel(level int) ZlibCompressor {
	return ZlibCompressor{level: level}
}

var zlibWriterPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

// Compress deflates data into a self-contained zlib stream.
func (c ZlibCompressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	buf, _ := zlibWriterPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer zlibWriterPool.Put(buf)

	w, err := zlib.NewWriterLevel(buf, c.level)
	if err != nil {
		return nil, fmt.Errorf("zlib: create writer: %w", err)
	}

	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("zlib: write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("zlib: close: %w", err)
	}

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())

	return out, nil
}

// Decompress inflates a zlib stream produced by Compress (or any RFC 1950 peer, e.g.
// the wire format's stdlib-zlib-speaking das2 C reference implementation).
func (c ZlibCompressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("zlib: open reader: %w", err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("zlib: read: %w", err)
	}

	return out, nil
}
