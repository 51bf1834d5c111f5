package filterio

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/das2gopher/das2stream/daserr"
)

func TestExitCodeForMapsSentinelFamilies(t *testing.T) {
	r := require.New(t)

	r.Equal(ExitSuccess, ExitCodeFor(nil))
	r.Equal(ExitIOOrProto, ExitCodeFor(fmt.Errorf("wrap: %w", daserr.ErrIO)))
	r.Equal(ExitIOOrProto, ExitCodeFor(fmt.Errorf("wrap: %w", daserr.ErrXMLParse)))
	r.Equal(ExitBadArgument, ExitCodeFor(fmt.Errorf("wrap: %w", daserr.ErrInvalidOp)))
	r.Equal(ExitServerSide, ExitCodeFor(fmt.Errorf("wrap: %w", daserr.ErrInternal)))
	r.Equal(ExitApp, ExitCodeFor(fmt.Errorf("some unmapped failure")))
}

func TestExceptionTypeNamesEachSentinelFamily(t *testing.T) {
	r := require.New(t)

	r.Equal("NoDataInInterval", ExceptionType(fmt.Errorf("wrap: %w", daserr.ErrNoData)))
	r.Equal("IOError", ExceptionType(fmt.Errorf("wrap: %w", daserr.ErrIO)))
	r.Equal("InvalidArgument", ExceptionType(fmt.Errorf("wrap: %w", daserr.ErrInvalidOp)))
	r.Equal("ServerError", ExceptionType(fmt.Errorf("unmapped")))
}

func TestCountingWriterTracksNonEmptyWrites(t *testing.T) {
	r := require.New(t)

	c := &countingWriter{w: discardWriter{}}
	r.False(c.wrote)
	n, err := c.Write(nil)
	r.NoError(err)
	r.Equal(0, n)
	r.False(c.wrote, "a zero-length write must not count as data on the wire")

	_, err = c.Write([]byte("x"))
	r.NoError(err)
	r.True(c.wrote)
}

type discardWriter struct{}

func (discardWriter) Write(b []byte) (int, error) { return len(b), nil }
