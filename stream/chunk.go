package stream

import (
	"fmt"
	"strconv"

	"github.com/das2gopher/das2stream/daserr"
	"github.com/das2gopher/das2stream/section"
	"github.com/das2gopher/das2stream/transport"
)

// chunk is one framed unit read off the wire: a classified kind, the packet
// or dataset id it's addressed to (-1 when the grammar has none, as with v2
// out-of-band chunks), and the payload bytes.
type chunk struct {
	kind    section.ChunkKind
	id      int
	payload []byte

	content     section.ChunkContent
	encoding    section.ChunkEncoding
	usage       section.ChunkUsage
	payloadChar section.ChunkPayload
}

// reader frames chunks off a *transport.Transport, detecting the wire
// grammar from the first chunk and tracking the byte offset for error
// reporting (C6 "any malformed tag -> ProtocolError with byte offset").
type reader struct {
	tp      *transport.Transport
	grammar section.Grammar
	offset  int64

	// recBytes holds the v2 binary record width declared for a packet id by
	// a prior descriptor chunk (C6 step 3: "the size comes from the
	// previously stored descriptor for id NN"). Populated via declareRecBytes,
	// which Handlers call from within their PktDesc/DsDesc callback.
	recBytes map[int]int
}

func newReader(tp *transport.Transport) *reader {
	return &reader{tp: tp, recBytes: map[int]int{}}
}

// declareRecBytes records the binary record width for packet id n, so that a
// later v2 `:NN:` data chunk (which carries no length field of its own) can
// be framed correctly.
func (r *reader) declareRecBytes(id, n int) {
	r.recBytes[id] = n
}

func (r *reader) protocolErr(format string, args ...any) error {
	err := fmt.Errorf("stream: "+format, args...)
	err = fmt.Errorf("%w: %w", daserr.ErrProtocol, err)

	return daserr.ByteOffset(err, r.offset)
}

func (r *reader) read(n int) ([]byte, error) {
	b, err := r.tp.ReadN(n)
	if err != nil {
		return nil, err
	}
	r.offset += int64(len(b))

	return b, nil
}

// next reads and classifies the next chunk. It returns transport.ReadN's
// error unchanged on EOF/partial-read so callers can distinguish clean
// end-of-stream from truncation.
func (r *reader) next() (chunk, error) {
	head, err := r.read(4)
	if err != nil {
		return chunk{}, err
	}

	if r.grammar == section.GrammarUnknown {
		if err := r.detectGrammar(head); err != nil {
			return chunk{}, err
		}
	}

	if r.grammar == section.GrammarV3 {
		return r.readV3(head)
	}

	return r.readV2(head)
}

func (r *reader) detectGrammar(head []byte) error {
	switch {
	case string(head) == "[00]":
		r.grammar = section.GrammarV2
		return nil
	case head[0] == section.V3Separator && head[3] == section.V3Separator &&
		section.ChunkKind(head[1]) == section.ChunkStream && section.ChunkPayload(head[2]) == section.PayloadXML:
		r.grammar = section.GrammarV3
		return nil
	default:
		return r.protocolErr("first chunk %q is not a stream header", head)
	}
}

func (r *reader) readV2(head []byte) (chunk, error) {
	switch {
	case head[0] == section.V2DescOpenByte && head[3] == section.V2DescCloseByte:
		idStr := string(head[1:3])
		var k section.ChunkKind
		var id int
		switch {
		case idStr == section.V2OutOfBandPktIDChars:
			// refined to exception by the caller, inspecting the payload's root tag
			k, id = section.ChunkComment, -1
		default:
			n, err := strconv.Atoi(idStr)
			if err != nil {
				return chunk{}, r.protocolErr("invalid v2 descriptor id %q", idStr)
			}
			id = n
			if n == section.V2StreamHeaderPktID {
				k = section.ChunkStream
			} else {
				k = section.ChunkHeader
			}
		}

		lenField, err := r.read(section.V2LengthFieldWidth)
		if err != nil {
			return chunk{}, err
		}
		n, err := strconv.Atoi(string(lenField))
		if err != nil {
			return chunk{}, r.protocolErr("invalid v2 length field %q", lenField)
		}
		if n > pool256KiB {
			return chunk{}, r.protocolErr("chunk length %d exceeds staging buffer", n)
		}

		payload, err := r.read(n)
		if err != nil {
			return chunk{}, err
		}

		c, e, u := k.Classify(section.PayloadXML)

		return chunk{kind: k, id: id, payload: payload, content: c, encoding: e, usage: u, payloadChar: section.PayloadXML}, nil

	case head[0] == section.V2DataSentinelByte && head[3] == section.V2DataSentinelByte:
		idStr := string(head[1:3])
		id, err := strconv.Atoi(idStr)
		if err != nil {
			return chunk{}, r.protocolErr("invalid v2 data id %q", idStr)
		}
		n, ok := r.recBytes[id]
		if !ok {
			return chunk{}, r.protocolErr("no descriptor installed for packet id %d", id)
		}
		if n < 0 {
			return chunk{}, r.protocolErr("packet id %d has a variable-length record; not legal on v2 data", id)
		}

		payload, err := r.read(n)
		if err != nil {
			return chunk{}, err
		}

		c, e, u := section.ChunkPacketData.Classify(section.PayloadBinary)

		return chunk{kind: section.ChunkPacketData, id: id, payload: payload, content: c, encoding: e, usage: u, payloadChar: section.PayloadBinary}, nil

	default:
		return chunk{}, r.protocolErr("unrecognized v2 tag %q", head)
	}
}

func (r *reader) readV3(head []byte) (chunk, error) {
	if head[0] != section.V3Separator {
		return chunk{}, r.protocolErr("v3 tag %q missing leading separator", head)
	}
	k := section.ChunkKind(head[1])
	p := section.ChunkPayload(head[2])
	if !k.Valid() {
		return chunk{}, r.protocolErr("invalid v3 chunk kind %q", head[1])
	}
	if head[3] != section.V3Separator {
		return chunk{}, r.protocolErr("v3 tag %q missing trailing separator", head)
	}

	idField, err := r.readUntilSeparator()
	if err != nil {
		return chunk{}, err
	}
	var id int
	if len(idField) > 0 {
		id, err = strconv.Atoi(string(idField))
		if err != nil {
			return chunk{}, r.protocolErr("invalid v3 id %q", idField)
		}
	} else {
		id = -1
	}

	lenField, err := r.readUntilSeparator()
	if err != nil {
		return chunk{}, err
	}
	n, err := strconv.Atoi(string(lenField))
	if err != nil {
		return chunk{}, r.protocolErr("invalid v3 length %q", lenField)
	}
	if n > pool256KiB {
		return chunk{}, r.protocolErr("chunk length %d exceeds staging buffer", n)
	}

	payload, err := r.read(n)
	if err != nil {
		return chunk{}, err
	}

	content, encoding, usage := k.Classify(p)
	if !p.Valid() {
		encoding = section.EncodingExtension
	}

	return chunk{kind: k, id: id, payload: payload, content: content, encoding: encoding, usage: usage, payloadChar: p}, nil
}

// readUntilSeparator reads bytes up to (but not including) the next '|',
// consuming the separator itself.
func (r *reader) readUntilSeparator() ([]byte, error) {
	line, err := r.tp.ReadUntil(section.V3Separator)
	if err != nil {
		return nil, err
	}
	r.offset += int64(len(line))

	return line[:len(line)-1], nil
}

// pool256KiB is the staging buffer size a single chunk's payload may not
// exceed (C6 step 4: "error if any chunk declares a larger length").
const pool256KiB = 256 * 1024
