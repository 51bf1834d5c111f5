package stream

import (
	"fmt"

	"github.com/das2gopher/das2stream/compress"
	"github.com/das2gopher/das2stream/daserr"
	"github.com/das2gopher/das2stream/format"
	"github.com/das2gopher/das2stream/section"
	"github.com/das2gopher/das2stream/transport"
)

// Writer emits chunks in the grammar the underlying transport was opened
// with, mirroring the reader's framing decisions (C6 "Writer side. Mirror
// decisions").
type Writer struct {
	tp      *transport.Transport
	grammar section.Grammar
}

// NewWriter wraps tp, using tp.Grammar() to select v2 or v3 framing.
func NewWriter(tp *transport.Transport) *Writer {
	g := section.GrammarV3
	if tp.Grammar() == 2 {
		g = section.GrammarV2
	}

	return &Writer{tp: tp, grammar: g}
}

// WriteStreamHeader writes the stream header document, id 0.
func (w *Writer) WriteStreamHeader(doc []byte) error {
	return w.writeDescriptor(section.ChunkStream, 0, doc)
}

// WritePktDesc writes a packet (or, under v3, dataset) descriptor document.
func (w *Writer) WritePktDesc(id int, doc []byte) error {
	return w.writeDescriptor(section.ChunkHeader, id, doc)
}

func (w *Writer) writeDescriptor(kind section.ChunkKind, id int, doc []byte) error {
	if w.grammar == section.GrammarV2 {
		tag := "[00]"
		if kind != section.ChunkStream {
			if id < section.V2MinPacketID || id > section.V2MaxPacketID {
				return fmt.Errorf("stream: %w: packet id %d out of v2 range", daserr.ErrInvalidOp, id)
			}
			tag = fmt.Sprintf("[%02d]", id)
		}

		return w.tp.Printf("%s%06d%s", tag, len(doc), doc)
	}

	idField := ""
	if kind != section.ChunkStream {
		idField = fmt.Sprintf("%d", id)
	}
	t := "S"
	if kind == section.ChunkHeader {
		t = "H"
	}

	return w.tp.Printf("|%sx|%s|%d|%s", t, idField, len(doc), doc)
}

// WritePktData writes a binary data chunk for packet/dataset id.
func (w *Writer) WritePktData(id int, payload []byte) error {
	if w.grammar == section.GrammarV2 {
		if id < section.V2MinPacketID || id > section.V2MaxPacketID {
			return fmt.Errorf("stream: %w: packet id %d out of v2 range", daserr.ErrInvalidOp, id)
		}
		if err := w.tp.Printf(":%02d:", id); err != nil {
			return err
		}

		return w.tp.WriteN(payload)
	}

	if err := w.tp.Printf("|Pd|%d|%d|", id, len(payload)); err != nil {
		return err
	}

	return w.tp.WriteN(payload)
}

// WriteComment writes a progress/log out-of-band document.
func (w *Writer) WriteComment(doc []byte) error {
	return w.writeOutOfBand(section.ChunkComment, doc)
}

// WriteException writes a fatal-error out-of-band document.
func (w *Writer) WriteException(doc []byte) error {
	return w.writeOutOfBand(section.ChunkException, doc)
}

// WriteExtension compresses raw with the named algorithm and writes it as an
// extension chunk (T=X), the side-channel attachment kind C6 §4.6 reserves
// for payloads outside the standard packet/comment/exception taxonomy (e.g. a
// cached spectral estimate). id may be -1 for an attachment with no packet
// association. Not available on v2; extension chunks are a v3-only kind.
func (w *Writer) WriteExtension(id int, ct format.CompressionType, raw []byte) error {
	if w.grammar == section.GrammarV2 {
		return fmt.Errorf("stream: %w: extension chunks require v3 grammar", daserr.ErrInvalidOp)
	}

	marker, ok := extensionMarker(ct)
	if !ok {
		return fmt.Errorf("stream: %w: unsupported extension codec %s", daserr.ErrInvalidOp, ct)
	}

	codec, err := compress.GetCodec(ct)
	if err != nil {
		return fmt.Errorf("stream: %w", err)
	}
	payload, err := codec.Compress(raw)
	if err != nil {
		return fmt.Errorf("stream: extension chunk: %w: %v", daserr.ErrIO, err)
	}

	idField := ""
	if id >= 0 {
		idField = fmt.Sprintf("%d", id)
	}

	return w.tp.Printf("|X%c|%s|%d|%s", marker, idField, len(payload), payload)
}

func extensionMarker(ct format.CompressionType) (byte, bool) {
	switch ct {
	case format.CompressionNone:
		return byte(section.PayloadExtNone), true
	case format.CompressionZlib:
		return byte(section.PayloadExtZlib), true
	case format.CompressionZstd:
		return byte(section.PayloadExtZstd), true
	case format.CompressionS2:
		return byte(section.PayloadExtS2), true
	case format.CompressionLZ4:
		return byte(section.PayloadExtLZ4), true
	default:
		return 0, false
	}
}

func (w *Writer) writeOutOfBand(kind section.ChunkKind, doc []byte) error {
	if w.grammar == section.GrammarV2 {
		return w.tp.Printf("[xx]%06d%s", len(doc), doc)
	}

	t := "C"
	if kind == section.ChunkException {
		t = "E"
	}

	return w.tp.Printf("|%sx||%d|%s", t, len(doc), doc)
}
