// Package reducer implements the time-binning reducer (C9): a stream.Handler
// that groups successive records into fixed-width time bins, folds each
// bin's values into running statistics, and emits one reduced record per bin
// to a downstream Writer.
package reducer

import (
	"fmt"
	"math"
	"strings"

	"github.com/das2gopher/das2stream/builder"
	"github.com/das2gopher/das2stream/daserr"
	"github.com/das2gopher/das2stream/dataset"
	"github.com/das2gopher/das2stream/descriptor"
	"github.com/das2gopher/das2stream/endian"
	"github.com/das2gopher/das2stream/format"
	"github.com/das2gopher/das2stream/internal/options"
	"github.com/das2gopher/das2stream/section"
	"github.com/das2gopher/das2stream/stream"
	"github.com/das2gopher/das2stream/units"
)

var (
	secondsUnit = mustUnit("s")
	us2000Unit  = mustUnit("us2000")
)

func mustUnit(s string) units.Unit {
	u, err := units.FromStr(s)
	if err != nil {
		panic(err)
	}

	return u
}

// planeState is the reducer's bookkeeping for one non-X plane of a packet:
// its source descriptor, whether the waveform-collapse rule applies, and one
// accumulator per item (1 for a scalar Y plane or a collapsed YScan; one per
// offset index otherwise).
type planeState struct {
	srcIdx    int
	desc      builder.PlaneDescriptor
	collapsed bool
	accs      []accumulator
}

// packetState is the reducer's per-packet-id bin machinery.
type packetState struct {
	inDesc     *builder.PacketDescriptor
	ds         *dataset.Dataset
	xIdx       int
	planes     []planeState
	binWidthUS float64
	beginUS    float64
	haveBegin  bool
	curBin     int
	haveBin    bool

	// outFlags mirrors the output descriptor's plane order: PlaneFlag.Operation
	// names a synthesized statistic plane, and WithCollapsedWaveform marks the
	// primary plane a YScan was folded into.
	outFlags []section.PlaneFlag
}

// Reducer accumulates per-bin statistics and forwards reduced records to out.
type Reducer struct {
	stream.BaseHandler

	cfg    Config
	out    *stream.Writer
	states map[int]*packetState
}

// New returns a Reducer that writes its reduced output to out.
func New(out *stream.Writer, opts ...Option) (*Reducer, error) {
	cfg := defaultConfig()
	if err := options.Apply(&cfg, opts...); err != nil {
		return nil, err
	}
	if cfg.BinSeconds <= 0 {
		return nil, fmt.Errorf("reducer: %w: bin width must be positive", daserr.ErrInvalidOp)
	}

	return &Reducer{cfg: cfg, out: out, states: map[int]*packetState{}}, nil
}

// StreamDesc forwards the stream header downstream, after updating the
// cache-resolution and key-parameter metadata C9 names ("Derived stream
// metadata").
func (r *Reducer) StreamDesc(doc []byte) error {
	rewritten, err := r.rewriteStreamDoc(doc)
	if err != nil {
		return err
	}

	return r.out.WriteStreamHeader(rewritten)
}

func (r *Reducer) rewriteStreamDoc(doc []byte) ([]byte, error) {
	tr := descriptor.NewTree()
	root := tr.Root()
	if err := descriptor.ParseV3(tr, root, string(doc)); err != nil {
		return nil, fmt.Errorf("reducer: %w", err)
	}

	binWidth := r.cfg.BinSeconds
	res := binWidth
	if p, ok := tr.GetProperty(root, "xCacheResolution"); ok {
		if v, err := p.Float(); err == nil && v > res {
			res = v
		}
	}
	width := binWidth
	if p, ok := tr.GetProperty(root, "xTagWidth"); ok {
		if v, err := p.Float(); err == nil && v > width {
			width = v
		}
	}

	tr.SetProperty(root, descriptor.Property{Name: "xCacheResolution", Type: descriptor.TypeReal, Value: fmt.Sprintf("%g", res)})
	tr.SetProperty(root, descriptor.Property{Name: "xTagWidth", Type: descriptor.TypeReal, Value: fmt.Sprintf("%g", width)})
	tr.SetProperty(root, descriptor.Property{Name: "xCacheResInfo", Type: descriptor.TypeString,
		Value: fmt.Sprintf("binned at %g s resolution", binWidth)})

	if p, ok := tr.GetProperty(root, "Data_type"); ok && strings.HasPrefix(p.Value, "H0>") {
		tr.SetProperty(root, descriptor.Property{Name: "Data_type", Type: descriptor.TypeString, Value: "K0>Key Parameter"})
	}

	return []byte(descriptor.SerializeV3(tr, root)), nil
}

// PktDesc installs a new packet pair: it requires an X (time) plane, applies
// the waveform-collapse rule to any eligible YScan plane, and forwards a
// rewritten descriptor downstream carrying the configured auxiliary planes.
func (r *Reducer) PktDesc(id int, doc []byte) error {
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
		return fmt.Errorf("reducer: %w: packet %d has no x plane", daserr.ErrInvalidOp, id)
	}

	ps := &packetState{
		inDesc:     desc,
		xIdx:       xIdx,
		binWidthUS: r.cfg.BinSeconds * 1e6,
	}
	ps.ds = dataset.NewDataset(fmt.Sprintf("reducer-%d", id))
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
		collapsed := p.Kind == "yscan" && p.HasOffsetSpan && p.OffsetSpanSeconds <= r.cfg.BinSeconds &&
			units.CanConvert(p.OffsetUnits, secondsUnit)

		n := p.Codec.Count
		if collapsed || n < 1 {
			n = 1
		}
		ps.planes = append(ps.planes, planeState{
			srcIdx:    i,
			desc:      p,
			collapsed: collapsed,
			accs:      make([]accumulator, n),
		})
	}

	r.states[id] = ps

	return r.out.WritePktDesc(id, r.buildOutputDescriptor(id, ps))
}

// PktData decodes a legacy binary record and folds it into the matching
// packet's per-bin accumulators, flushing whenever the record's X value
// crosses into a new bin.
func (r *Reducer) PktData(id int, payload []byte) error {
	return r.accumulate(id, payload)
}

// DsData does the same for a v3 dataset-shaped record.
func (r *Reducer) DsData(id int, payload []byte) error {
	return r.accumulate(id, payload)
}

func (r *Reducer) accumulate(id int, payload []byte) error {
	ps, ok := r.states[id]
	if !ok {
		return fmt.Errorf("reducer: %w: data for undeclared packet id %d", daserr.ErrProtocol, id)
	}

	if _, err := ps.ds.DecodeAll(payload); err != nil {
		return err
	}
	defer ps.ds.Clear()

	n := ps.ds.Len()
	for rec := 0; rec < n; rec++ {
		if err := r.foldRecord(id, ps, rec); err != nil {
			return err
		}
	}

	return nil
}

func (r *Reducer) foldRecord(id int, ps *packetState, rec int) error {
	xPlane := ps.inDesc.Planes[ps.xIdx]
	xRaw, err := ps.ds.Planes[ps.xIdx].Array.At(rec)
	if err != nil {
		return err
	}
	xUS, err := units.ConvertTo(us2000Unit, xRaw, xPlane.Units)
	if err != nil {
		xUS = xRaw // plane already declared in an epoch-incompatible unit; treat as already us2000
	}

	bin := r.binIndex(ps, xUS)
	if ps.haveBin && bin != ps.curBin {
		if err := r.flush(id, ps); err != nil {
			return err
		}
	}
	ps.curBin = bin
	ps.haveBin = true

	for pi := range ps.planes {
		plane := &ps.planes[pi]
		if plane.collapsed {
			var sum float64
			var count int
			for item := 0; item < plane.desc.Codec.Count; item++ {
				v, err := ps.ds.Planes[plane.srcIdx].Array.At(rec, item)
				if err != nil {
					return err
				}
				if plane.desc.HasFill && v == plane.desc.Fill {
					continue
				}
				sum += v
				count++
			}
			if count == 0 {
				plane.accs[0].dropFill()

				continue
			}
			plane.accs[0].add(sum / float64(count))

			continue
		}

		if len(plane.accs) == 1 && plane.desc.Codec.Count <= 1 {
			v, err := ps.ds.Planes[plane.srcIdx].Array.At(rec)
			if err != nil {
				return err
			}
			if plane.desc.HasFill && v == plane.desc.Fill {
				plane.accs[0].dropFill()
			} else {
				plane.accs[0].add(v)
			}

			continue
		}

		for item := range plane.accs {
			v, err := ps.ds.Planes[plane.srcIdx].Array.At(rec, item)
			if err != nil {
				return err
			}
			if plane.desc.HasFill && v == plane.desc.Fill {
				plane.accs[item].dropFill()
			} else {
				plane.accs[item].add(v)
			}
		}
	}

	return nil
}

// binIndex implements the bin boundary policy: bin 0 starts at the
// user-supplied Begin or the first observed X, and bin n covers
// [begin + n*W, begin + (n+1)*W).
func (r *Reducer) binIndex(ps *packetState, xUS float64) int {
	if !ps.haveBegin {
		if r.cfg.Begin != nil {
			ps.beginUS = *r.cfg.Begin
		} else {
			ps.beginUS = xUS
		}
		ps.haveBegin = true
	}

	return int(math.Floor((xUS - ps.beginUS) / ps.binWidthUS))
}

func (ps *packetState) binCenterUS() float64 {
	return ps.beginUS + (float64(ps.curBin)+0.5)*ps.binWidthUS
}

// statOrFill substitutes plane's declared fill for stat when the bin's
// primary accumulator saw no samples at all (every record in the bin was
// fill, or the bin is otherwise empty), so an empty bin reads as "no data"
// rather than a measured zero (das2_bin_avgsec.c:250-255 emits the plane's
// fill for average/min/max/stddev when count==0).
func statOrFill(plane *planeState, stat float64) float64 {
	if plane.accs[0].count == 0 && plane.desc.HasFill {
		return plane.desc.Fill
	}

	return stat
}

// flush writes the current bin's reduced record downstream and resets every
// plane's accumulators.
func (r *Reducer) flush(id int, ps *packetState) error {
	eng := endian.GetLittleEndianEngine()
	var buf []byte
	buf = append(buf, encodeScalar(eng, scalarCodec(ps.inDesc.Planes[ps.xIdx].Codec), ps.binCenterUS())...)

	for pi := range ps.planes {
		plane := &ps.planes[pi]
		buf = append(buf, encodeScalar(eng, scalarCodec(plane.desc.Codec), statOrFill(plane, plane.accs[0].mean()))...)
	}
	if r.cfg.MinMax {
		for pi := range ps.planes {
			plane := &ps.planes[pi]
			buf = append(buf, encodeScalar(eng, scalarCodec(plane.desc.Codec), statOrFill(plane, plane.accs[0].min))...)
		}
		for pi := range ps.planes {
			plane := &ps.planes[pi]
			buf = append(buf, encodeScalar(eng, scalarCodec(plane.desc.Codec), statOrFill(plane, plane.accs[0].max))...)
		}
	}
	if r.cfg.StdDev {
		for pi := range ps.planes {
			plane := &ps.planes[pi]
			buf = append(buf, encodeScalar(eng, scalarCodec(plane.desc.Codec), statOrFill(plane, plane.accs[0].stddev()))...)
		}
	}
	if r.cfg.Peak {
		for pi := range ps.planes {
			plane := &ps.planes[pi]
			buf = append(buf, encodeScalar(eng, scalarCodec(plane.desc.Codec), statOrFill(plane, plane.accs[0].peak))...)
		}
		for pi := range ps.planes {
			plane := &ps.planes[pi]
			buf = append(buf, encodeScalar(eng, scalarCodec(plane.desc.Codec), statOrFill(plane, plane.accs[0].valley))...)
		}
	}

	for pi := range ps.planes {
		ps.planes[pi].accs[0].reset()
		if len(ps.planes[pi].accs) > 1 {
			for item := 1; item < len(ps.planes[pi].accs); item++ {
				ps.planes[pi].accs[item].reset()
			}
		}
	}

	return r.out.WritePktData(id, buf)
}

// PlaneFlags returns the output descriptor's per-plane side table for
// packet id, in the same order as the planes written by buildOutputDescriptor.
func (r *Reducer) PlaneFlags(id int) []section.PlaneFlag {
	ps, ok := r.states[id]
	if !ok {
		return nil
	}

	return ps.outFlags
}

// Close flushes every packet's open bin (C9 "Final flush runs from close").
// Comment and Exception pass their out-of-band chunks straight through,
// grounded on das2_histo.c's onComment/onException (every filter in the
// original suite forwards these rather than dropping them).
func (r *Reducer) Comment(doc []byte) error   { return r.out.WriteComment(doc) }
func (r *Reducer) Exception(doc []byte) error { return r.out.WriteException(doc) }

func (r *Reducer) Close() error {
	for id, ps := range r.states {
		if ps.haveBin {
			if err := r.flush(id, ps); err != nil {
				return err
			}
			ps.haveBin = false
		}
	}

	return nil
}

// buildOutputDescriptor renders the reduced packet's descriptor document:
// the X plane unchanged, each Y/YScan plane (collapsed to scalar Y when the
// waveform-collapse rule applies), followed by the configured `.min`/`.max`/
// `.stddev`/`.peak`/`.valley` auxiliary planes.
func (r *Reducer) buildOutputDescriptor(id int, ps *packetState) []byte {
	var sb strings.Builder
	ps.outFlags = ps.outFlags[:0]

	fmt.Fprintf(&sb, `<packet id="%d">`, id)
	xDesc := ps.inDesc.Planes[ps.xIdx]
	xDesc.Codec = scalarCodec(xDesc.Codec)
	sb.WriteString(planeTag(xDesc, ""))
	ps.outFlags = append(ps.outFlags, section.PlaneFlag{})

	for _, plane := range ps.planes {
		desc := plane.desc
		flag := section.PlaneFlag{}
		if plane.collapsed {
			desc.Kind = "y"
			desc.Codec = scalarCodec(desc.Codec)
			flag.WithCollapsedWaveform()
		}
		sb.WriteString(planeTag(desc, ""))
		ps.outFlags = append(ps.outFlags, flag)
	}

	appendAux := func(suffix, operation string) {
		for _, plane := range ps.planes {
			sb.WriteString(planeTag(auxPlane(plane.desc, suffix), operation))
			flag := section.PlaneFlag{}
			flag.WithAuxiliary(operation)
			ps.outFlags = append(ps.outFlags, flag)
		}
	}

	if r.cfg.MinMax {
		appendAux(".min", "BIN_MIN")
		appendAux(".max", "BIN_MAX")
	}
	if r.cfg.StdDev {
		appendAux(".stddev", "BIN_STDDEV")
	}
	if r.cfg.Peak {
		appendAux(".peak", "BIN_PEAK")
		appendAux(".valley", "BIN_VALLEY")
	}

	sb.WriteString(`</packet>`)

	return []byte(sb.String())
}

func auxPlane(src builder.PlaneDescriptor, suffix string) builder.PlaneDescriptor {
	aux := src
	aux.Name = src.Name + suffix
	aux.Kind = "y"
	aux.Codec = scalarCodec(src.Codec)
	aux.HasFill = false
	aux.HasOffsetSpan = false

	return aux
}

func scalarCodec(c dataset.Codec) dataset.Codec {
	c.Count = 1
	if c.ValueType != format.ValueReal32 {
		c.ValueType = format.ValueReal64
		c.Width = 8
	}
	c.Encoding = format.EncodingBinaryLE

	return c
}

func planeTag(p builder.PlaneDescriptor, operation string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `<plane name="%s" kind="%s" units="%s" valueType="%s" width="%d" encoding="%s" count="%d"`,
		p.Name, p.Kind, units.ToStr(p.Units), p.Codec.ValueType, p.Codec.Width, p.Codec.Encoding, p.Codec.Count)
	if operation != "" {
		fmt.Fprintf(&sb, ` operation="%s"`, operation)
	}
	sb.WriteString(`/>`)

	return sb.String()
}

func innerShapeFor(c dataset.Codec) []int {
	if c.Count > 1 {
		return []int{c.Count}
	}

	return nil
}

func encodeScalar(eng endian.EndianEngine, c dataset.Codec, v float64) []byte {
	switch c.ValueType {
	case format.ValueReal32:
		return eng.AppendUint32(nil, math.Float32bits(float32(v)))
	default:
		return eng.AppendUint64(nil, math.Float64bits(v))
	}
}
