package histogram

import (
	"fmt"
	"math"
	"strings"

	"github.com/das2gopher/das2stream/builder"
	"github.com/das2gopher/das2stream/daserr"
	"github.com/das2gopher/das2stream/dataset"
	"github.com/das2gopher/das2stream/descriptor"
	"github.com/das2gopher/das2stream/endian"
	"github.com/das2gopher/das2stream/internal/options"
	"github.com/das2gopher/das2stream/stream"
	"github.com/das2gopher/das2stream/units"
)

// planeState is one non-X plane's output wiring: its own output packet id,
// whether that id's descriptor has been sent, and the bin table it feeds.
// das2_histo.c gives every input plane its own output PktDesc since planes
// with different units can't share a value axis; this is that same rule.
type planeState struct {
	outID    int
	descSent bool
	acc      *binAccumulator
}

// packetState is the per-input-packet-id bookkeeping: the parsed descriptor,
// the X plane's index (dropped from every output), and one planeState per
// remaining plane.
type packetState struct {
	inDesc *builder.PacketDescriptor
	xIdx   int
	ds     *dataset.Dataset
	planes map[int]*planeState
}

// Histogrammer bins each non-X plane's own value range into fixed-width bins,
// dropping the X axis and emitting a count (or cumulative-fraction) plane
// instead, grounded on das2_histo.c.
type Histogrammer struct {
	stream.BaseHandler

	cfg    Config
	out    *stream.Writer
	nextID int
	states map[int]*packetState
}

// New returns a Histogrammer that writes its histogram output to out.
func New(out *stream.Writer, opts ...Option) (*Histogrammer, error) {
	cfg := defaultConfig()
	if err := options.Apply(&cfg, opts...); err != nil {
		return nil, err
	}
	if cfg.BinWidth <= 0 {
		return nil, fmt.Errorf("histogram: %w: bin width must be positive", daserr.ErrInvalidOp)
	}

	return &Histogrammer{cfg: cfg, out: out, nextID: 1, states: map[int]*packetState{}}, nil
}

// StreamDesc forwards the stream header, rewriting its title to note the
// histogram transform, grounded on das2_histo.c's onStreamHdr.
func (h *Histogrammer) StreamDesc(doc []byte) error {
	rewritten, err := h.rewriteStreamDoc(doc)
	if err != nil {
		return err
	}

	return h.out.WriteStreamHeader(rewritten)
}

func (h *Histogrammer) rewriteStreamDoc(doc []byte) ([]byte, error) {
	tr := descriptor.NewTree()
	root := tr.Root()
	if err := descriptor.ParseV3(tr, root, string(doc)); err != nil {
		return nil, fmt.Errorf("histogram: %w", err)
	}

	suffix := "Histogram"
	switch h.cfg.Mode {
	case FracBelow:
		suffix = "Normalized Cumulative Histogram"
	case FracAbove:
		suffix = "Normalized Reverse Cumulative Histogram"
	}

	title := suffix
	if p, ok := tr.GetProperty(root, "title"); ok && p.Value != "" {
		title = p.Value + " - " + suffix
	}
	tr.SetProperty(root, descriptor.Property{Name: "title", Type: descriptor.TypeString, Value: title})

	return []byte(descriptor.SerializeV3(tr, root)), nil
}

// PktDesc requires no particular plane kind (Y and YScan both qualify, per
// das2_histo.c treating everything but X the same way) and mints one output
// packet id per non-X plane.
func (h *Histogrammer) PktDesc(id int, doc []byte) error {
	desc, err := builder.ParsePacketDescriptor(doc)
	if err != nil {
		return err
	}

	xIdx := -1
	for i, p := range desc.Planes {
		if p.Kind == "x" {
			xIdx = i

			break
		}
	}
	if xIdx < 0 {
		return fmt.Errorf("histogram: %w: packet %d has no x plane", daserr.ErrInvalidOp, id)
	}

	ps := &packetState{inDesc: desc, xIdx: xIdx, planes: map[int]*planeState{}}
	ps.ds = dataset.NewDataset(fmt.Sprintf("histo-%d", id))
	for _, p := range desc.Planes {
		arr, err := dataset.NewArray(p.Codec.ValueType, innerShapeFor(p.Codec))
		if err != nil {
			return err
		}
		ps.ds.AddPlane(p.Name, p.Codec, arr)
	}

	for i, p := range desc.Planes {
		if i == xIdx {
			continue
		}
		if h.nextID > 99 {
			return fmt.Errorf("histogram: %w: exhausted output packet id range 1..99", daserr.ErrInvalidOp)
		}
		outID := h.nextID
		h.nextID++

		ps.planes[i] = &planeState{outID: outID, acc: newBinAccumulator(p.Codec.Count, h.cfg)}
	}

	h.states[id] = ps

	return nil
}

// Comment and Exception pass their out-of-band chunks straight through,
// grounded on das2_histo.c's onComment/onException.
func (h *Histogrammer) Comment(doc []byte) error   { return h.out.WriteComment(doc) }
func (h *Histogrammer) Exception(doc []byte) error { return h.out.WriteException(doc) }

func (h *Histogrammer) PktData(id int, payload []byte) error { return h.accumulate(id, payload) }
func (h *Histogrammer) DsData(id int, payload []byte) error  { return h.accumulate(id, payload) }

func (h *Histogrammer) accumulate(id int, payload []byte) error {
	ps, ok := h.states[id]
	if !ok {
		return fmt.Errorf("histogram: %w: data for undeclared packet id %d", daserr.ErrProtocol, id)
	}

	if _, err := ps.ds.DecodeAll(payload); err != nil {
		return err
	}
	defer ps.ds.Clear()

	n := ps.ds.Len()
	for rec := 0; rec < n; rec++ {
		for planeIdx, pst := range ps.planes {
			p := ps.inDesc.Planes[planeIdx]
			items := p.Codec.Count
			if items < 1 {
				items = 1
			}
			for col := 0; col < items; col++ {
				var v float64
				var err error
				if items > 1 {
					v, err = ps.ds.Planes[planeIdx].Array.At(rec, col)
				} else {
					v, err = ps.ds.Planes[planeIdx].Array.At(rec)
				}
				if err != nil {
					return err
				}
				if p.HasFill && v == p.Fill {
					continue
				}
				pst.acc.add(v, col)
			}
		}
	}

	return nil
}

// Close flushes every open packet's accumulated histograms, grounded on
// das2_histo.c's onClose walking every live input packet id and calling
// emitAndFreePkts.
func (h *Histogrammer) Close() error {
	for id, ps := range h.states {
		if err := h.flush(id, ps); err != nil {
			return err
		}
	}

	return nil
}

func (h *Histogrammer) flush(id int, ps *packetState) error {
	for planeIdx, pst := range ps.planes {
		p := ps.inDesc.Planes[planeIdx]
		idxs := pst.acc.sortedIndices()
		switch h.cfg.Mode {
		case FracBelow:
			pst.acc.applyFracBelow(idxs)
		case FracAbove:
			pst.acc.applyFracAbove(idxs)
		}

		if !pst.descSent {
			if err := h.out.WritePktDesc(pst.outID, h.buildOutputDescriptor(pst.outID, p)); err != nil {
				return err
			}
			pst.descSent = true
		}

		eng := endian.GetLittleEndianEngine()
		for _, idx := range idxs {
			row := pst.acc.bins[idx]
			var buf []byte
			buf = append(buf, eng.AppendUint64(nil, math.Float64bits(pst.acc.valueAt(idx)))...)
			for _, v := range row {
				buf = append(buf, eng.AppendUint32(nil, math.Float32bits(float32(v)))...)
			}
			if err := h.out.WritePktData(pst.outID, buf); err != nil {
				return err
			}
		}
	}
	delete(h.states, id)

	return nil
}

// buildOutputDescriptor renders the value-axis plane plus the count (or
// fraction) plane for one input plane, grounded on das2_histo.c's onPktHdr:
// a fresh real64 X plane holding the value axis, and a copy of the input
// plane's shape but dimensionless units and a "_hist" name suffix.
func (h *Histogrammer) buildOutputDescriptor(outID int, p builder.PlaneDescriptor) []byte {
	label := "Value Count"
	switch h.cfg.Mode {
	case FracBelow:
		label = "Fraction at or below"
	case FracAbove:
		label = "Fraction at or above"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `<packet id="%d"><plane name="value" kind="x" units="%s" valueType="real64" width="8" encoding="binary-le" count="1"/>`,
		outID, units.ToStr(p.Units))
	fmt.Fprintf(&sb, `<plane name="%s_hist" kind="%s" units="" valueType="real32" width="4" encoding="binary-le" count="%d" label="%s"/></packet>`,
		p.Name, p.Kind, countOrOne(p.Codec.Count), label)

	return []byte(sb.String())
}

func countOrOne(n int) int {
	if n < 1 {
		return 1
	}

	return n
}

func innerShapeFor(c dataset.Codec) []int {
	if c.Count > 1 {
		return []int{c.Count}
	}

	return nil
}

