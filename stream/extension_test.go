package stream_test

import (
	"testing"

	"github.com/das2gopher/das2stream/format"
	"github.com/das2gopher/das2stream/stream"
	"github.com/stretchr/testify/require"
)

type extHandler struct {
	stream.BaseHandler
	ids      []int
	payloads [][]byte
}

func (h *extHandler) Extension(id int, payload []byte) error {
	h.ids = append(h.ids, id)
	h.payloads = append(h.payloads, append([]byte(nil), payload...))

	return nil
}

func TestExtensionChunkRoundTripsThroughZstd(t *testing.T) {
	r := require.New(t)

	wtp, buf := newWriteTransport(t, 3)
	w := stream.NewWriter(wtp)
	r.NoError(w.WriteStreamHeader([]byte(`<stream version="3"/>`)))
	r.NoError(w.WriteExtension(7, format.CompressionZstd, []byte("cached spectral estimate payload")))

	rtp := newReadTransport(t, buf.Bytes(), 3)
	c := stream.NewCodec(rtp)
	h := &extHandler{}
	r.NoError(c.AddHandler(h))
	r.NoError(c.ReadAll())

	r.Len(h.payloads, 1)
	r.Equal(7, h.ids[0])
	r.Equal("cached spectral estimate payload", string(h.payloads[0]))
}

func TestExtensionChunkSupportsEachCodec(t *testing.T) {
	r := require.New(t)

	for _, ct := range []format.CompressionType{
		format.CompressionNone, format.CompressionZlib, format.CompressionZstd,
		format.CompressionS2, format.CompressionLZ4,
	} {
		wtp, buf := newWriteTransport(t, 3)
		w := stream.NewWriter(wtp)
		r.NoError(w.WriteStreamHeader([]byte(`<stream version="3"/>`)))
		r.NoError(w.WriteExtension(-1, ct, []byte("roundtrip me")))

		rtp := newReadTransport(t, buf.Bytes(), 3)
		c := stream.NewCodec(rtp)
		h := &extHandler{}
		r.NoError(c.AddHandler(h))
		r.NoError(c.ReadAll())

		r.Len(h.payloads, 1, "codec %s", ct)
		r.Equal(-1, h.ids[0])
		r.Equal("roundtrip me", string(h.payloads[0]), "codec %s", ct)
	}
}

func TestWriteExtensionRejectsV2Grammar(t *testing.T) {
	r := require.New(t)

	wtp, _ := newWriteTransport(t, 2)
	w := stream.NewWriter(wtp)
	r.Error(w.WriteExtension(1, format.CompressionZstd, []byte("x")))
}
