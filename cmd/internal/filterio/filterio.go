// Package filterio is the shared scaffolding every cmd/ filter main uses:
// open stdin/stdout as a das2 stream pair, run the codec loop, and map the
// result to one of the exit codes the external interface promises (spec §6:
// 0 success, 11 protocol/IO, 13 bad argument, 48 server-side problem,
// 100-112 per-tool application errors), emitting a final <exception> chunk
// on fatal error the way every filter in the original suite does.
package filterio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/das2gopher/das2stream/daserr"
	"github.com/das2gopher/das2stream/stream"
	"github.com/das2gopher/das2stream/transport"
)

// ExitCode groups the spec's fixed process exit codes by what went wrong.
const (
	ExitSuccess     = 0
	ExitIOOrProto   = 11
	ExitBadArgument = 13
	ExitServerSide  = 48
	ExitApp         = 100
)

// countingWriter sets wrote once anything beyond zero bytes has been written
// to stdout, so a fatal error's handler can tell whether the stream already
// has data on it (spec §7: "emit a final exception chunk after any data was
// written").
type countingWriter struct {
	w     io.Writer
	wrote bool
}

func (c *countingWriter) Write(b []byte) (int, error) {
	n, err := c.w.Write(b)
	if n > 0 {
		c.wrote = true
	}

	return n, err
}

// stdioHalf adapts one direction of a standard stream to io.ReadWriteCloser,
// the same split transport.NewPipe's pipeConn uses for a subprocess's two halves.
type stdioHalf struct {
	r io.Reader
	w io.Writer
	c io.Closer
}

func (s stdioHalf) Read(b []byte) (int, error) {
	if s.r == nil {
		return 0, fmt.Errorf("filterio: %w: read on a write-only stream", daserr.ErrInvalidOp)
	}

	return s.r.Read(b)
}

func (s stdioHalf) Write(b []byte) (int, error) {
	if s.w == nil {
		return 0, fmt.Errorf("filterio: %w: write on a read-only stream", daserr.ErrInvalidOp)
	}

	return s.w.Write(b)
}

func (s stdioHalf) Close() error { return s.c.Close() }

// Stdio is one filter's open input and output streams.
type Stdio struct {
	In     *transport.Transport
	Out    *transport.Transport
	Writer *stream.Writer

	outCounter *countingWriter
}

// OpenStdio opens stdin as a read-mode Transport and stdout as a write-mode
// Transport, both at the given grammar version, and wraps the output side in
// a stream.Writer.
func OpenStdio(grammar int) (*Stdio, error) {
	in, err := transport.New(stdioHalf{r: os.Stdin, c: os.Stdin}, transport.Mode{Grammar: grammar})
	if err != nil {
		return nil, err
	}

	counter := &countingWriter{w: os.Stdout}
	out, err := transport.New(stdioHalf{w: counter, c: os.Stdout}, transport.Mode{Write: true, Grammar: grammar})
	if err != nil {
		return nil, err
	}

	return &Stdio{In: in, Out: out, Writer: stream.NewWriter(out), outCounter: counter}, nil
}

// WroteAnything reports whether any byte has been written to stdout yet.
func (s *Stdio) WroteAnything() bool { return s.outCounter.wrote }

// Run drives codec to completion and returns the process exit code to use.
// On a fatal error, after any data has already reached stdout, it appends a
// final <exception> chunk before returning (spec §7). The cmd/ main is the
// one place in the module allowed to read daserr.ActiveDisposition; library
// code under codec never does.
func Run(s *Stdio, codec *stream.Codec) int {
	err := codec.ReadAll()
	if err == nil {
		return ExitSuccess
	}

	if s.WroteAnything() {
		_ = s.Writer.WriteException(exceptionDoc(err))
	}

	code := ExitCodeFor(err)
	if daserr.ActiveDisposition() == daserr.DispositionAbort {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	return code
}

// exceptionDoc renders err as the <exception type="..." message="..."/>
// chunk spec §7 requires on fatal error.
func exceptionDoc(err error) []byte {
	return []byte(fmt.Sprintf(`<exception type=%q message=%q/>`, ExceptionType(err), err.Error()))
}

// ExceptionType maps err to the short type name its <exception> chunk
// carries, grounded on the sentinel family in package daserr.
func ExceptionType(err error) string {
	switch {
	case errors.Is(err, daserr.ErrNoData):
		return "NoDataInInterval"
	case errors.Is(err, daserr.ErrIO):
		return "IOError"
	case errors.Is(err, daserr.ErrProtocol), errors.Is(err, daserr.ErrPartialPacket):
		return "StreamProtocolError"
	case errors.Is(err, daserr.ErrXMLParse):
		return "DescriptorParseError"
	case errors.Is(err, daserr.ErrInvalidOp):
		return "InvalidArgument"
	case errors.Is(err, daserr.ErrUnitConvert):
		return "UnitConversionError"
	case errors.Is(err, daserr.ErrShapeMismatch):
		return "ShapeMismatch"
	case errors.Is(err, daserr.ErrInternal):
		return "InternalError"
	case errors.Is(err, daserr.ErrOutOfBand):
		return "UnexpectedOutOfBand"
	default:
		return "ServerError"
	}
}

// ExitCodeFor maps err to the process exit code spec §6 assigns it.
func ExitCodeFor(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, daserr.ErrIO), errors.Is(err, daserr.ErrProtocol), errors.Is(err, daserr.ErrPartialPacket),
		errors.Is(err, daserr.ErrXMLParse):
		return ExitIOOrProto
	case errors.Is(err, daserr.ErrInvalidOp):
		return ExitBadArgument
	case errors.Is(err, daserr.ErrInternal), errors.Is(err, daserr.ErrOutOfBand):
		return ExitServerSide
	default:
		return ExitApp
	}
}

// Fail prints msg to stderr and returns the bad-argument exit code, for
// command-line validation failures discovered before any stream is opened.
func Fail(msg string) int {
	fmt.Fprintln(os.Stderr, msg)

	return ExitBadArgument
}

// progressHandler wraps a Handler to tick a ProgressLogger on every data
// chunk, the generic form of das2_bin_avgsec.c's -p/--no-progress toggle.
type progressHandler struct {
	stream.Handler
	logger *stream.ProgressLogger
	count  int64
}

func (p *progressHandler) PktData(id int, payload []byte) error {
	p.count++
	if err := p.logger.Tick(p.count, -1); err != nil {
		return err
	}

	return p.Handler.PktData(id, payload)
}

func (p *progressHandler) DsData(id int, payload []byte) error {
	p.count++
	if err := p.logger.Tick(p.count, -1); err != nil {
		return err
	}

	return p.Handler.DsData(id, payload)
}

// WithProgress wraps h so every record it processes also emits a rate-limited
// progress comment on w, unless disabled is set.
func WithProgress(h stream.Handler, w *stream.Writer, disabled bool) stream.Handler {
	if disabled {
		return h
	}

	logger := stream.NewProgressLogger(w, 10, func(done, _ int64) string {
		return fmt.Sprintf(`<comment type="progress" value="%d"/>`, done)
	})

	return &progressHandler{Handler: h, logger: logger}
}
