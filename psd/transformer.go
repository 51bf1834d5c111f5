package psd

import (
	"fmt"
	"math"
	"strings"

	"github.com/das2gopher/das2stream/builder"
	"github.com/das2gopher/das2stream/daserr"
	"github.com/das2gopher/das2stream/dataset"
	"github.com/das2gopher/das2stream/endian"
	"github.com/das2gopher/das2stream/fftcache"
	"github.com/das2gopher/das2stream/format"
	"github.com/das2gopher/das2stream/internal/options"
	"github.com/das2gopher/das2stream/internal/pool"
	"github.com/das2gopher/das2stream/stream"
	"github.com/das2gopher/das2stream/units"
)

var us2000Unit = mustUnit("us2000")

// cadenceTolerance is how far a sample interval may drift from the running
// cadence before the accumulation buffer is discarded (psd_xoffset.c's
// consistency check allows "more than 1% off the average").
const cadenceTolerance = 0.01

// packetState is the transformer's per-input-packet-id bookkeeping. A packet
// follows exactly one of two paths: offset (it already carries one or more
// YScan planes, transformed along their own offset axis) or accumulation
// (its Y planes are scalar time-domain samples collected across records).
type packetState struct {
	inDesc     *builder.PacketDescriptor
	xIdx       int
	offsetIdxs []int
	scalarIdxs []int
	ds         *dataset.Dataset

	// offset path
	transforms []offsetTransform
	outID      int
	descSent   bool

	// accumulation path
	cadenceSeconds float64
	haveCadence    bool
	lastXUS        float64
	haveLastX      bool
	samples        [][]float64
	xsUS           []float64
	readPt         int
	accFreqStep    float64
	accAmpScale    float64
	accOutLen      int
	accOutID       int
	accDescSent    bool
}

// Transformer replaces time-domain planes with spectral-density planes (C10).
type Transformer struct {
	stream.BaseHandler

	cfg    Config
	out    *stream.Writer
	cache  *fftcache.Cache
	plan   *fftcache.Plan
	ids    *outputIDMap
	states map[int]*packetState
}

// New returns a Transformer that writes its spectral output to out.
func New(out *stream.Writer, opts ...Option) (*Transformer, error) {
	cfg := defaultConfig()
	if err := options.Apply(&cfg, opts...); err != nil {
		return nil, err
	}
	if cfg.Length <= 1 {
		return nil, fmt.Errorf("psd: %w: length must be > 1", daserr.ErrInvalidOp)
	}
	if cfg.SlideDenom <= 0 {
		return nil, fmt.Errorf("psd: %w: slide denominator must be positive", daserr.ErrInvalidOp)
	}

	cache := fftcache.NewCache()
	plan, err := cache.GetPlan(cfg.Length, fftcache.Forward)
	if err != nil {
		return nil, err
	}
	cache.Borrow(plan)

	return &Transformer{
		cfg: cfg, out: out, cache: cache, plan: plan,
		ids: newOutputIDMap(), states: map[int]*packetState{},
	}, nil
}

func (t *Transformer) StreamDesc(doc []byte) error {
	return t.out.WriteStreamHeader(doc)
}

// PktDesc classifies the packet's non-X planes into the offset path (YScan
// planes, transformed immediately since their shape is already known) and the
// accumulation path (scalar Y/XScan planes, whose output shape waits on
// cadence detection from the data).
func (t *Transformer) PktDesc(id int, doc []byte) error {
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
		return fmt.Errorf("psd: %w: packet %d has no x plane", daserr.ErrInvalidOp, id)
	}

	ps := &packetState{inDesc: desc, xIdx: xIdx}
	ps.ds = dataset.NewDataset(fmt.Sprintf("psd-%d", id))
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
		if p.Kind == "yscan" {
			ps.offsetIdxs = append(ps.offsetIdxs, i)
		} else {
			ps.scalarIdxs = append(ps.scalarIdxs, i)
		}
	}
	if len(ps.offsetIdxs) == 0 && len(ps.scalarIdxs) == 0 {
		return fmt.Errorf("psd: %w: packet %d has no Y or YScan plane to transform", daserr.ErrInvalidOp, id)
	}

	if len(ps.offsetIdxs) > 0 {
		if err := t.buildOffsetOutput(id, ps); err != nil {
			return err
		}
	} else {
		ps.samples = make([][]float64, len(ps.scalarIdxs))
	}

	t.states[id] = ps

	return nil
}

func (t *Transformer) PktData(id int, payload []byte) error { return t.accumulate(id, payload) }
func (t *Transformer) DsData(id int, payload []byte) error  { return t.accumulate(id, payload) }

func (t *Transformer) accumulate(id int, payload []byte) error {
	ps, ok := t.states[id]
	if !ok {
		return fmt.Errorf("psd: %w: data for undeclared packet id %d", daserr.ErrProtocol, id)
	}

	if _, err := ps.ds.DecodeAll(payload); err != nil {
		return err
	}
	defer ps.ds.Clear()

	n := ps.ds.Len()
	for rec := 0; rec < n; rec++ {
		var err error
		if len(ps.offsetIdxs) > 0 {
			err = t.foldOffsetRecord(ps, rec)
		} else {
			err = t.foldScalarRecord(id, ps, rec)
		}
		if err != nil {
			return err
		}
	}

	return nil
}

// buildOffsetOutput derives each offset plane's frequency-domain shape via
// TransformOffsetPlane, renders the output descriptor document, and assigns
// (or reuses) its output packet id (spec §4.10 "Packet id remap ... reuse
// that id [when] an output shape matches an existing output descriptor").
func (t *Transformer) buildOffsetOutput(id int, ps *packetState) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, `<packet id="out">`)
	sb.WriteString(planeTag(ps.inDesc.Planes[ps.xIdx]))

	ps.transforms = make([]offsetTransform, len(ps.inDesc.Planes))
	for i, p := range ps.inDesc.Planes {
		if i == ps.xIdx {
			continue
		}
		isOffset := false
		for _, oi := range ps.offsetIdxs {
			if oi == i {
				isOffset = true

				break
			}
		}
		if !isOffset {
			sb.WriteString(planeTag(p))

			continue
		}

		out, tr, err := TransformOffsetPlane(p, t.cfg)
		if err != nil {
			return err
		}
		ps.transforms[i] = tr
		sb.WriteString(planeTag(out))
	}
	sb.WriteString(`</packet>`)

	outID, isNew, err := t.ids.assign([]byte(sb.String()))
	if err != nil {
		return err
	}
	ps.outID = outID

	if isNew {
		finalDoc := strings.Replace(sb.String(), `id="out"`, fmt.Sprintf(`id="%d"`, outID), 1)
		if err := t.out.WritePktDesc(outID, []byte(finalDoc)); err != nil {
			return err
		}
	}
	ps.descSent = true

	return nil
}

// foldOffsetRecord slides a Length-point window across one record's
// already-offset YScan planes, emitting one output record per window
// position (spec §4.10 "Slide input by LENGTH / SLIDE_DENOM between
// outputs"), grounded on psd_xoffset.c's onXScanPktData.
func (t *Transformer) foldOffsetRecord(ps *packetState, rec int) error {
	primary := ps.offsetIdxs[0]
	waveformLen := ps.inDesc.Planes[primary].Codec.Count
	slide := t.cfg.Length / t.cfg.SlideDenom
	if slide < 1 {
		slide = 1
	}

	xPlane := ps.inDesc.Planes[ps.xIdx]
	xRaw, err := ps.ds.Planes[ps.xIdx].Array.At(rec)
	if err != nil {
		return err
	}

	for start := 0; start+t.cfg.Length <= waveformLen; start += slide {
		eng := endian.GetLittleEndianEngine()
		var buf []byte

		outX := xRaw
		if len(ps.transforms) > primary {
			deltaSamples := float64(start) + float64(t.cfg.Length)/2
			outX = xRaw + deltaSamples*ps.transforms[primary].sampleInterval*1e6
		}
		buf = append(buf, encodeScalar(eng, xPlane.Codec, outX)...)

		for i, p := range ps.inDesc.Planes {
			if i == ps.xIdx {
				continue
			}
			isOffset := false
			for _, oi := range ps.offsetIdxs {
				if oi == i {
					isOffset = true

					break
				}
			}
			if !isOffset {
				v, err := ps.ds.Planes[i].Array.At(rec)
				if err != nil {
					return err
				}
				buf = append(buf, encodeScalar(eng, p.Codec, v)...)

				continue
			}

			spectrum, err := t.transformWindow(ps, i, rec, start)
			if err != nil {
				return err
			}
			scale := ps.transforms[i].ampScale
			for _, v := range spectrum {
				buf = append(buf, encodeScalar(eng, scalarCodec(p.Codec), v*scale)...)
			}
		}

		if err := t.out.WritePktData(ps.outID, buf); err != nil {
			return err
		}
	}

	return nil
}

func (t *Transformer) transformWindow(ps *packetState, planeIdx, rec, start int) ([]float64, error) {
	window, cleanup := pool.GetFloat64Slice(t.cfg.Length)
	defer cleanup()

	for i := 0; i < t.cfg.Length; i++ {
		v, err := ps.ds.Planes[planeIdx].Array.At(rec, start+i)
		if err != nil {
			return nil, err
		}
		window[i] = v
	}

	seq := make([]complex128, t.cfg.Length)
	for i, v := range window {
		seq[i] = complex(v, 0)
	}

	return fftcache.EstimatePSD(t.cache, t.plan, seq, t.cfg.Window, t.cfg.DCCenter)
}

// foldScalarRecord appends one record's X and scalar Y values into the
// running accumulation buffers, detecting cadence from consecutive XTag
// differences and discarding the buffer on a cadence break (spec §4.10
// "collect LENGTH consecutive time-domain samples with a fixed cadence
// ... If cadence breaks, discard the partial buffer").
func (t *Transformer) foldScalarRecord(id int, ps *packetState, rec int) error {
	xPlane := ps.inDesc.Planes[ps.xIdx]
	xRaw, err := ps.ds.Planes[ps.xIdx].Array.At(rec)
	if err != nil {
		return err
	}
	xUS, err := units.ConvertTo(us2000Unit, xRaw, xPlane.Units)
	if err != nil {
		xUS = xRaw
	}

	if ps.haveLastX {
		diffSeconds := (xUS - ps.lastXUS) / 1e6
		expected := diffSeconds
		if t.cfg.Cadence != nil {
			expected = *t.cfg.Cadence
		} else if ps.haveCadence {
			expected = ps.cadenceSeconds
		}
		if expected != 0 && math.Abs(diffSeconds-expected)/math.Abs(expected) > cadenceTolerance {
			t.resetAccumulation(ps)
		} else if t.cfg.Cadence == nil && !ps.haveCadence {
			ps.cadenceSeconds = diffSeconds
			ps.haveCadence = true
		}
	}
	ps.lastXUS = xUS
	ps.haveLastX = true

	ps.xsUS = append(ps.xsUS, xUS)
	for i, si := range ps.scalarIdxs {
		v, err := ps.ds.Planes[si].Array.At(rec)
		if err != nil {
			return err
		}
		ps.samples[i] = append(ps.samples[i], v)
	}

	cadence := ps.cadenceSeconds
	if t.cfg.Cadence != nil {
		cadence = *t.cfg.Cadence
		ps.haveCadence = true
	}
	if !ps.haveCadence {
		return nil
	}

	if !ps.accDescSent {
		if err := t.buildScalarOutput(id, ps, cadence); err != nil {
			return err
		}
	}

	slide := t.cfg.Length / t.cfg.SlideDenom
	if slide < 1 {
		slide = 1
	}
	for len(ps.xsUS)-ps.readPt >= t.cfg.Length {
		if err := t.flushScalarWindow(ps); err != nil {
			return err
		}
		ps.readPt += slide
	}
	t.compactAccumulation(ps)

	return nil
}

func (t *Transformer) resetAccumulation(ps *packetState) {
	ps.xsUS = ps.xsUS[:0]
	for i := range ps.samples {
		ps.samples[i] = ps.samples[i][:0]
	}
	ps.readPt = 0
	ps.haveCadence = false
}

// compactAccumulation drops fully-consumed samples once the buffer has grown
// well past one window, so a long-running stream doesn't grow these slices
// without bound.
func (t *Transformer) compactAccumulation(ps *packetState) {
	if ps.readPt < 4*t.cfg.Length {
		return
	}
	cut := ps.readPt
	ps.xsUS = append(ps.xsUS[:0], ps.xsUS[cut:]...)
	for i := range ps.samples {
		ps.samples[i] = append(ps.samples[i][:0], ps.samples[i][cut:]...)
	}
	ps.readPt = 0
}

func (t *Transformer) buildScalarOutput(id int, ps *packetState, cadenceSeconds float64) error {
	freqStep := 1.0 / (cadenceSeconds * float64(t.cfg.Length))
	ampScale := float64(t.cfg.Length) * cadenceSeconds
	outLen := t.cfg.Length/2 + 1

	ps.accFreqStep = freqStep
	ps.accAmpScale = ampScale
	ps.accOutLen = outLen

	var sb strings.Builder
	sb.WriteString(`<packet id="out">`)
	sb.WriteString(planeTag(ps.inDesc.Planes[ps.xIdx]))
	for _, si := range ps.scalarIdxs {
		p := ps.inDesc.Planes[si]
		zUnits, err := units.Power(p.Units, 2)
		if err != nil {
			return err
		}
		hzInv, err := units.Power(hertz, -1)
		if err != nil {
			return err
		}
		zUnits, err = units.Multiply(zUnits, hzInv)
		if err != nil {
			return err
		}

		out := builder.PlaneDescriptor{
			Name: p.Name, Kind: "yscan", Units: zUnits,
			OffsetUnits: hertz, OffsetSpanSeconds: freqStep * float64(outLen-1),
			Codec: dataset.Codec{ValueType: format.ValueReal64, Width: 8, Encoding: format.EncodingBinaryLE, Count: outLen},
		}
		sb.WriteString(planeTag(out))
	}
	sb.WriteString(`</packet>`)

	outID, isNew, err := t.ids.assign([]byte(sb.String()))
	if err != nil {
		return err
	}
	ps.accOutID = outID
	ps.accDescSent = true

	if isNew {
		finalDoc := strings.Replace(sb.String(), `id="out"`, fmt.Sprintf(`id="%d"`, outID), 1)

		return t.out.WritePktDesc(outID, []byte(finalDoc))
	}

	return nil
}

func (t *Transformer) flushScalarWindow(ps *packetState) error {
	eng := endian.GetLittleEndianEngine()
	var buf []byte

	windowCenterUS := ps.xsUS[ps.readPt] + (float64(t.cfg.Length)/2)*ps.cadenceSeconds*1e6
	buf = append(buf, encodeScalar(eng, ps.inDesc.Planes[ps.xIdx].Codec, windowCenterUS)...)

	for i := range ps.scalarIdxs {
		seq := make([]complex128, t.cfg.Length)
		for k := 0; k < t.cfg.Length; k++ {
			seq[k] = complex(ps.samples[i][ps.readPt+k], 0)
		}
		spectrum, err := fftcache.EstimatePSD(t.cache, t.plan, seq, t.cfg.Window, t.cfg.DCCenter)
		if err != nil {
			return err
		}
		for _, v := range spectrum {
			buf = append(buf, encodeScalar(eng, scalarCodec(ps.inDesc.Planes[ps.scalarIdxs[i]].Codec), v*ps.accAmpScale)...)
		}
	}

	return t.out.WritePktData(ps.accOutID, buf)
}

// Comment and Exception pass their out-of-band chunks straight through,
// grounded on das2_histo.c's onComment/onException.
func (t *Transformer) Comment(doc []byte) error   { return t.out.WriteComment(doc) }
func (t *Transformer) Exception(doc []byte) error { return t.out.WriteException(doc) }

func (t *Transformer) Close() error {
	t.cache.Release(t.plan)

	return nil
}

func innerShapeFor(c dataset.Codec) []int {
	if c.Count > 1 {
		return []int{c.Count}
	}

	return nil
}

func scalarCodec(c dataset.Codec) dataset.Codec {
	c.Count = 1
	c.ValueType = format.ValueReal64
	c.Width = 8
	c.Encoding = format.EncodingBinaryLE

	return c
}

func encodeScalar(eng endian.EndianEngine, c dataset.Codec, v float64) []byte {
	switch c.ValueType {
	case format.ValueReal32:
		return eng.AppendUint32(nil, math.Float32bits(float32(v)))
	default:
		return eng.AppendUint64(nil, math.Float64bits(v))
	}
}

func planeTag(p builder.PlaneDescriptor) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `<plane name="%s" kind="%s" units="%s" valueType="%s" width="%d" encoding="%s" count="%d"`,
		p.Name, p.Kind, units.ToStr(p.Units), p.Codec.ValueType, p.Codec.Width, p.Codec.Encoding, p.Codec.Count)
	if p.HasOffsetSpan || p.OffsetSpanSeconds != 0 {
		fmt.Fprintf(&sb, ` offsetUnits="%s" offsetSpan="%g"`, units.ToStr(p.OffsetUnits), p.OffsetSpanSeconds)
	}
	if p.HasFill {
		fmt.Fprintf(&sb, ` fill="%g"`, p.Fill)
	}
	sb.WriteString(`/>`)

	return sb.String()
}
