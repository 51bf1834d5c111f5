package transport

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"

	"github.com/das2gopher/das2stream/daserr"
)

// NewFile opens path and wraps it as a Transport. Grammar/write direction
// come from mode; path is opened read-only or write-only (created/truncated)
// to match.
func NewFile(path string, mode Mode, opts ...Option) (*Transport, error) {
	var f *os.File
	var err error
	if mode.Write {
		f, err = os.Create(path)
	} else {
		f, err = os.Open(path)
	}
	if err != nil {
		return nil, fmt.Errorf("transport: open %q: %w: %v", path, daserr.ErrIO, err)
	}

	return New(f, mode, opts...)
}

// NewSocket dials addr over TCP and wraps the connection as a Transport.
func NewSocket(network, addr string, mode Mode, opts ...Option) (*Transport, error) {
	conn, err := net.Dial(network, addr)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s %q: %w: %v", network, addr, daserr.ErrIO, err)
	}

	return New(conn, mode, opts...)
}

// NewTLS dials addr over TLS and wraps the session as a Transport. The
// session is opened in auto-retry mode (tls.Conn always behaves this way in
// Go's standard library, unlike C TLS libraries where this must be requested
// explicitly), so the transport's fixed-size reads never observe a partial
// TLS record (spec §5 "Blocking I/O").
func NewTLS(addr string, cfg *tls.Config, mode Mode, opts ...Option) (*Transport, error) {
	conn, err := tls.Dial("tcp", addr, cfg)
	if err != nil {
		return nil, fmt.Errorf("transport: tls dial %q: %w: %v", addr, daserr.ErrIO, err)
	}

	return New(conn, mode, opts...)
}

// pipeConn joins a subprocess's stdin and stdout into one io.ReadWriteCloser.
type pipeConn struct {
	cmd *exec.Cmd
	in  io.WriteCloser
	out io.ReadCloser
}

func (p *pipeConn) Read(b []byte) (int, error)  { return p.out.Read(b) }
func (p *pipeConn) Write(b []byte) (int, error) { return p.in.Write(b) }
func (p *pipeConn) Close() error {
	inErr := p.in.Close()
	outErr := p.out.Close()
	waitErr := p.cmd.Wait()
	if inErr != nil {
		return inErr
	}
	if outErr != nil {
		return outErr
	}

	return waitErr
}

// NewPipe spawns name with args and wraps its stdin/stdout as a Transport.
func NewPipe(mode Mode, name string, args []string, opts ...Option) (*Transport, error) {
	cmd := exec.Command(name, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("transport: pipe stdin: %w: %v", daserr.ErrIO, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("transport: pipe stdout: %w: %v", daserr.ErrIO, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("transport: start %q: %w: %v", name, daserr.ErrIO, err)
	}

	return New(&pipeConn{cmd: cmd, in: stdin, out: stdout}, mode, opts...)
}

// stdioConn adapts a single direction of standard input/output (stdin or
// stdout) to io.ReadWriteCloser, the same split pipeConn uses for a
// subprocess's two halves, since a Unix filter's input and output are
// different file descriptors rather than one combined connection.
type stdioConn struct {
	r io.Reader
	w io.Writer
	c io.Closer
}

func (s stdioConn) Read(b []byte) (int, error) {
	if s.r == nil {
		return 0, fmt.Errorf("transport: stdio: %w: read on a write-only stream", daserr.ErrInvalidOp)
	}

	return s.r.Read(b)
}

func (s stdioConn) Write(b []byte) (int, error) {
	if s.w == nil {
		return 0, fmt.Errorf("transport: stdio: %w: write on a read-only stream", daserr.ErrInvalidOp)
	}

	return s.w.Write(b)
}

func (s stdioConn) Close() error { return s.c.Close() }

// NewStdin wraps os.Stdin as a read-mode Transport, for filters that read
// their das2 stream from standard input.
func NewStdin(grammar int, opts ...Option) (*Transport, error) {
	return New(stdioConn{r: os.Stdin, c: os.Stdin}, Mode{Grammar: grammar}, opts...)
}

// NewStdout wraps os.Stdout as a write-mode Transport, for filters that write
// their das2 stream to standard output.
func NewStdout(grammar int, opts ...Option) (*Transport, error) {
	return New(stdioConn{w: os.Stdout, c: os.Stdout}, Mode{Write: true, Grammar: grammar}, opts...)
}

// bufferConn adapts a bytes.Buffer to io.ReadWriteCloser for in-memory
// transports (test fixtures, embedding a das2 stream in another payload).
type bufferConn struct {
	*bytes.Buffer
}

func (bufferConn) Close() error { return nil }

// NewBuffer wraps an in-memory byte buffer as a Transport. initial seeds the
// buffer's contents (useful for a read-mode transport over fixed test data).
func NewBuffer(initial []byte, mode Mode, opts ...Option) (*Transport, error) {
	return New(bufferConn{Buffer: bytes.NewBuffer(initial)}, mode, opts...)
}
