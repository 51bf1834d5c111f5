package stream

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/das2gopher/das2stream/compress"
	"github.com/das2gopher/das2stream/daserr"
	"github.com/das2gopher/das2stream/format"
	"github.com/das2gopher/das2stream/section"
	"github.com/das2gopher/das2stream/transport"
)

// Codec drives the dispatch algorithm C6 describes: frame one chunk at a
// time off a Transport, classify it, and invoke the matching method on every
// registered Handler in registration order.
type Codec struct {
	r        *reader
	handlers []Handler
	isDesc   map[int]bool // true once a descriptor (of either kind) has been seen for id
	isDs     map[int]bool // true if the installed descriptor for id is dataset-shaped
	sawHeader bool
}

// NewCodec wraps tp for dispatch. Handlers must be added with AddHandler
// before calling ReadAll.
func NewCodec(tp *transport.Transport) *Codec {
	return &Codec{
		r:      newReader(tp),
		isDesc: map[int]bool{},
		isDs:   map[int]bool{},
	}
}

// AddHandler registers h at the end of the handler chain. Returns
// daserr.ErrInvalidOp if the chain is already at its 10-handler limit.
func (c *Codec) AddHandler(h Handler) error {
	if len(c.handlers) >= maxHandlers {
		return fmt.Errorf("stream: %w: handler chain limit (%d) reached", daserr.ErrInvalidOp, maxHandlers)
	}
	c.handlers = append(c.handlers, h)

	return nil
}

// DeclareRecordSize registers the v2 binary record width for packet id, so a
// later `:NN:` data chunk can be framed. A Handler calls this from within its
// PktDesc/DsDesc callback once it has parsed the descriptor's codec list.
func (c *Codec) DeclareRecordSize(id, recBytes int) {
	c.r.declareRecBytes(id, recBytes)
}

// ReadAll runs the dispatch loop to completion: io.EOF at a chunk boundary
// ends the loop cleanly, any other error aborts it. Close is invoked on
// every handler exactly once, regardless of how the loop ends.
func (c *Codec) ReadAll() error {
	loopErr := c.loop()

	var closeErr error
	for _, h := range c.handlers {
		if err := h.Close(); err != nil && closeErr == nil {
			closeErr = err
		}
	}

	if loopErr != nil {
		return loopErr
	}

	return closeErr
}

func (c *Codec) loop() error {
	for {
		ch, err := c.r.next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			return err
		}

		if err := c.dispatch(ch); err != nil {
			return err
		}
	}
}

func (c *Codec) dispatch(ch chunk) error {
	switch ch.usage {
	case section.UsageOutOfBand:
		return c.dispatchOutOfBand(ch)
	case section.UsagePassThrough:
		return nil
	case section.UsageExtension:
		return c.dispatchExtension(ch)
	default:
	}

	switch ch.content {
	case section.ContentDocumentFramed:
		return c.dispatchDescriptor(ch)
	case section.ContentPacketFramed:
		return c.dispatchData(ch)
	default:
		return fmt.Errorf("stream: %w: unclassified chunk", daserr.ErrInternal)
	}
}

func (c *Codec) dispatchDescriptor(ch chunk) error {
	if ch.kind == section.ChunkStream {
		c.sawHeader = true
		return c.forEachHandler(func(h Handler) error { return h.StreamDesc(ch.payload) })
	}

	ds := looksLikeDatasetDoc(ch.payload)

	if c.isDesc[ch.id] {
		if err := c.forEachHandler(func(h Handler) error { return h.PktRedef(ch.id, ch.payload) }); err != nil {
			return err
		}
	}
	c.isDesc[ch.id] = true
	c.isDs[ch.id] = ds

	if ds {
		return c.forEachHandler(func(h Handler) error { return h.DsDesc(ch.id, ch.payload) })
	}

	return c.forEachHandler(func(h Handler) error { return h.PktDesc(ch.id, ch.payload) })
}

func (c *Codec) dispatchData(ch chunk) error {
	if c.isDs[ch.id] {
		return c.forEachHandler(func(h Handler) error { return h.DsData(ch.id, ch.payload) })
	}

	return c.forEachHandler(func(h Handler) error { return h.PktData(ch.id, ch.payload) })
}

// dispatchExtension decompresses an extension-chunk (T=X) attachment using
// the codec its payload marker names, then hands the raw bytes to every
// handler's Extension callback. An unrecognized marker is relayed
// uncompressed, matching C6's "pass through what you don't understand" rule
// for chunk kinds a reader doesn't know how to interpret.
func (c *Codec) dispatchExtension(ch chunk) error {
	ct, ok := extensionCodec(ch.payloadChar)
	if !ok {
		return c.forEachHandler(func(h Handler) error { return h.Extension(ch.id, ch.payload) })
	}

	codec, err := compress.GetCodec(ct)
	if err != nil {
		return fmt.Errorf("stream: %w", err)
	}

	raw, err := codec.Decompress(ch.payload)
	if err != nil {
		return fmt.Errorf("stream: extension chunk: %w: %v", daserr.ErrIO, err)
	}

	return c.forEachHandler(func(h Handler) error { return h.Extension(ch.id, raw) })
}

func extensionCodec(p section.ChunkPayload) (format.CompressionType, bool) {
	switch p {
	case section.PayloadExtNone:
		return format.CompressionNone, true
	case section.PayloadExtZlib:
		return format.CompressionZlib, true
	case section.PayloadExtZstd:
		return format.CompressionZstd, true
	case section.PayloadExtS2:
		return format.CompressionS2, true
	case section.PayloadExtLZ4:
		return format.CompressionLZ4, true
	default:
		return 0, false
	}
}

func (c *Codec) dispatchOutOfBand(ch chunk) error {
	isException := ch.kind == section.ChunkException || bytes.Contains(ch.payload, []byte("<exception"))
	if isException {
		return c.forEachHandler(func(h Handler) error { return h.Exception(ch.payload) })
	}

	return c.forEachHandler(func(h Handler) error { return h.Comment(ch.payload) })
}

func (c *Codec) forEachHandler(call func(Handler) error) error {
	for _, h := range c.handlers {
		if err := call(h); err != nil {
			return err
		}
	}

	return nil
}

func looksLikeDatasetDoc(doc []byte) bool {
	return bytes.Contains(doc, []byte("<dataset"))
}
