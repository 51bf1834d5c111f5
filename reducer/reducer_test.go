package reducer

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/das2gopher/das2stream/stream"
	"github.com/das2gopher/das2stream/transport"
	"github.com/stretchr/testify/require"
)

type memRW struct{ *bytes.Buffer }

func (memRW) Close() error { return nil }

func newWriter(t *testing.T) (*stream.Writer, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	tp, err := transport.New(memRW{buf}, transport.Mode{Write: true, Grammar: 3})
	require.NoError(t, err)

	w := stream.NewWriter(tp)
	require.NoError(t, w.WriteStreamHeader([]byte(`<stream version="3"/>`)))

	return w, buf
}

// recordingHandler captures everything a Writer emitted so a test can
// inspect it by decoding the buffer back through a Codec.
type recordingHandler struct {
	stream.BaseHandler
	streamDesc []byte
	pktDesc    map[int][]byte
	pktData    map[int][][]byte
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{pktDesc: map[int][]byte{}, pktData: map[int][][]byte{}}
}

func (h *recordingHandler) StreamDesc(doc []byte) error {
	h.streamDesc = append([]byte(nil), doc...)

	return nil
}

func (h *recordingHandler) PktDesc(id int, doc []byte) error {
	h.pktDesc[id] = append([]byte(nil), doc...)

	return nil
}

func (h *recordingHandler) DsDesc(id int, doc []byte) error { return h.PktDesc(id, doc) }

func (h *recordingHandler) PktData(id int, payload []byte) error {
	h.pktData[id] = append(h.pktData[id], append([]byte(nil), payload...))

	return nil
}

func (h *recordingHandler) DsData(id int, payload []byte) error { return h.PktData(id, payload) }

func decodeWritten(t *testing.T, buf []byte) *recordingHandler {
	t.Helper()
	tp, err := transport.New(memRW{bytes.NewBuffer(buf)}, transport.Mode{Grammar: 3})
	require.NoError(t, err)

	codec := stream.NewCodec(tp)
	h := newRecordingHandler()
	require.NoError(t, codec.AddHandler(h))
	require.NoError(t, codec.ReadAll())

	return h
}

func floatBytes(vals ...float64) []byte {
	buf := make([]byte, 8*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint64(buf[i*8:(i+1)*8], math.Float64bits(v))
	}

	return buf
}

func floatAt(t *testing.T, payload []byte, i int) float64 {
	t.Helper()
	require.GreaterOrEqual(t, len(payload), (i+1)*8)

	return math.Float64frombits(binary.LittleEndian.Uint64(payload[i*8 : (i+1)*8]))
}

const xDoc = `<packet id="1"><plane name="time" kind="x" units="us2000"/><plane name="flux" kind="y" units="1/cm2 s"/></packet>`

func TestPktDescRequiresXPlane(t *testing.T) {
	r := require.New(t)

	w, _ := newWriter(t)
	red, err := New(w)
	r.NoError(err)

	doc := []byte(`<packet id="1"><plane name="flux" kind="y" units="1/cm2 s"/></packet>`)
	r.Error(red.PktDesc(1, doc))
}

func TestBinIndexGroupsRecordsAndFlushesOnCrossing(t *testing.T) {
	r := require.New(t)

	w, buf := newWriter(t)
	red, err := New(w, WithBinSeconds(1))
	r.NoError(err)

	r.NoError(red.PktDesc(1, []byte(xDoc)))

	// begin derives from the first X (0 us2000); records at 0.1s and 0.5s
	// stay in bin 0, the record at 1.2s crosses into bin 1 and flushes bin 0.
	r.NoError(red.PktData(1, floatBytes(0, 10)))
	r.NoError(red.PktData(1, floatBytes(100000, 20)))
	r.NoError(red.PktData(1, floatBytes(500000, 30)))
	r.NoError(red.PktData(1, floatBytes(1200000, 40)))
	r.NoError(red.Close())

	h := decodeWritten(t, buf.Bytes())
	recs := h.pktData[1]
	r.Len(recs, 2, "first flush on crossing, second on Close")

	r.InDelta(500000.0, floatAt(t, recs[0], 0), 1, "bin 0 center at begin+0.5*W")
	r.InDelta(20.0, floatAt(t, recs[0], 1), 1e-9, "mean of 10,20,30")

	r.InDelta(1500000.0, floatAt(t, recs[1], 0), 1)
	r.InDelta(40.0, floatAt(t, recs[1], 1), 1e-9)
}

func TestExplicitBeginPinsBinZero(t *testing.T) {
	r := require.New(t)

	w, buf := newWriter(t)
	red, err := New(w, WithBinSeconds(1), WithBegin(-500000))
	r.NoError(err)

	r.NoError(red.PktDesc(1, []byte(xDoc)))
	r.NoError(red.PktData(1, floatBytes(0, 5)))
	r.NoError(red.Close())

	h := decodeWritten(t, buf.Bytes())
	recs := h.pktData[1]
	r.Len(recs, 1)
	r.InDelta(0.0, floatAt(t, recs[0], 0), 1, "begin -0.5s + half width = 0")
}

func TestFillValuesAreDroppedFromTheMean(t *testing.T) {
	r := require.New(t)

	w, buf := newWriter(t)
	red, err := New(w, WithBinSeconds(1))
	r.NoError(err)

	doc := []byte(`<packet id="1"><plane name="time" kind="x" units="us2000"/>` +
		`<plane name="flux" kind="y" units="1/cm2 s" fill="-999"/></packet>`)
	r.NoError(red.PktDesc(1, doc))

	r.NoError(red.PktData(1, floatBytes(0, -999)))
	r.NoError(red.PktData(1, floatBytes(100000, 10)))
	r.NoError(red.Close())

	h := decodeWritten(t, buf.Bytes())
	recs := h.pktData[1]
	r.Len(recs, 1)
	r.InDelta(10.0, floatAt(t, recs[0], 1), 1e-9, "fill value excluded from the mean")
}

func TestEmptyBinEmitsFillInsteadOfZero(t *testing.T) {
	r := require.New(t)

	w, buf := newWriter(t)
	red, err := New(w, WithBinSeconds(1), WithMinMax(), WithStdDev())
	r.NoError(err)

	doc := []byte(`<packet id="1"><plane name="time" kind="x" units="us2000"/>` +
		`<plane name="flux" kind="y" units="1/cm2 s" fill="-999"/></packet>`)
	r.NoError(red.PktDesc(1, doc))

	// Bin 0 sees nothing but fill; bin 1's arrival forces bin 0's flush.
	r.NoError(red.PktData(1, floatBytes(0, -999)))
	r.NoError(red.PktData(1, floatBytes(1000000, 5)))
	r.NoError(red.Close())

	h := decodeWritten(t, buf.Bytes())
	recs := h.pktData[1]
	r.Len(recs, 2)

	// mean, min, max, stddev: all four should read as the declared fill, not 0.
	r.InDelta(-999.0, floatAt(t, recs[0], 1), 1e-9, "mean of an empty bin is fill, not 0")
	r.InDelta(-999.0, floatAt(t, recs[0], 2), 1e-9, "min of an empty bin is fill, not 0")
	r.InDelta(-999.0, floatAt(t, recs[0], 3), 1e-9, "max of an empty bin is fill, not 0")
	r.InDelta(-999.0, floatAt(t, recs[0], 4), 1e-9, "stddev of an empty bin is fill, not 0")

	r.InDelta(5.0, floatAt(t, recs[1], 1), 1e-9, "populated bin still reports its mean")
}

func TestWaveformCollapseFoldsYScanToScalar(t *testing.T) {
	r := require.New(t)

	w, buf := newWriter(t)
	red, err := New(w, WithBinSeconds(1))
	r.NoError(err)

	doc := []byte(`<packet id="1"><plane name="time" kind="x" units="us2000"/>` +
		`<plane name="wave" kind="yscan" units="V" count="3" offsetUnits="s" offsetSpan="0.01"/></packet>`)
	r.NoError(red.PktDesc(1, doc))

	outDoc := string(red.buildOutputDescriptor(1, red.states[1]))
	r.Contains(outDoc, `kind="y"`)
	r.NotContains(outDoc, `kind="yscan"`)

	flags := red.PlaneFlags(1)
	r.Len(flags, 2)
	r.False(flags[0].IsCollapsedWaveform(), "x plane is untouched")
	r.True(flags[1].IsCollapsedWaveform())

	r.NoError(red.PktData(1, floatBytes(0, 1, 2, 3)))
	r.NoError(red.Close())

	h := decodeWritten(t, buf.Bytes())
	recs := h.pktData[1]
	r.Len(recs, 1)
	r.InDelta(2.0, floatAt(t, recs[0], 1), 1e-9, "collapsed plane is the per-record mean across offsets")
}

func TestYScanNotCollapsedWhenSpanExceedsBinWidth(t *testing.T) {
	r := require.New(t)

	w, _ := newWriter(t)
	red, err := New(w, WithBinSeconds(1))
	r.NoError(err)

	doc := []byte(`<packet id="1"><plane name="time" kind="x" units="us2000"/>` +
		`<plane name="wave" kind="yscan" units="V" count="3" offsetUnits="s" offsetSpan="5"/></packet>`)
	r.NoError(red.PktDesc(1, doc))

	flags := red.PlaneFlags(1)
	r.False(flags[1].IsCollapsedWaveform())
}

func TestMinMaxStdDevPeakAuxiliaryPlanes(t *testing.T) {
	r := require.New(t)

	w, buf := newWriter(t)
	red, err := New(w, WithBinSeconds(1), WithMinMax(), WithStdDev(), WithPeak())
	r.NoError(err)

	r.NoError(red.PktDesc(1, []byte(xDoc)))

	outDoc := string(red.buildOutputDescriptor(1, red.states[1]))
	r.Regexp(`name="flux\.min"[^>]* operation="BIN_MIN"`, outDoc)
	r.Regexp(`name="flux\.max"[^>]* operation="BIN_MAX"`, outDoc)
	r.Regexp(`name="flux\.stddev"[^>]* operation="BIN_STDDEV"`, outDoc)
	r.Regexp(`name="flux\.peak"[^>]* operation="BIN_PEAK"`, outDoc)
	r.Regexp(`name="flux\.valley"[^>]* operation="BIN_VALLEY"`, outDoc)

	flags := red.PlaneFlags(1)
	r.Len(flags, 7) // x, flux, .min, .max, .stddev, .peak, .valley
	for _, f := range flags[2:] {
		r.True(f.IsAuxiliary())
	}
	r.Equal("BIN_MIN", flags[2].Operation)
	r.Equal("BIN_MAX", flags[3].Operation)
	r.Equal("BIN_STDDEV", flags[4].Operation)
	r.Equal("BIN_PEAK", flags[5].Operation)
	r.Equal("BIN_VALLEY", flags[6].Operation)

	r.NoError(red.PktData(1, floatBytes(0, 1)))
	r.NoError(red.PktData(1, floatBytes(100000, 3)))
	r.NoError(red.PktData(1, floatBytes(200000, 5)))
	r.NoError(red.Close())

	h := decodeWritten(t, buf.Bytes())
	recs := h.pktData[1]
	r.Len(recs, 1)

	// layout: x, flux(mean), flux.min, flux.max, flux.stddev, flux.peak, flux.valley
	r.InDelta(3.0, floatAt(t, recs[0], 1), 1e-9, "mean of 1,3,5")
	r.InDelta(1.0, floatAt(t, recs[0], 2), 1e-9, "min")
	r.InDelta(5.0, floatAt(t, recs[0], 3), 1e-9, "max")
	r.InDelta(math.Sqrt(8.0/3.0), floatAt(t, recs[0], 4), 1e-9, "population stddev of 1,3,5")
	r.InDelta(5.0, floatAt(t, recs[0], 5), 1e-9, "peak")
	r.InDelta(1.0, floatAt(t, recs[0], 6), 1e-9, "valley")
}

func TestCloseFlushesEveryOpenPacketExactlyOnce(t *testing.T) {
	r := require.New(t)

	w, buf := newWriter(t)
	red, err := New(w, WithBinSeconds(1))
	r.NoError(err)

	r.NoError(red.PktDesc(1, []byte(xDoc)))
	r.NoError(red.PktData(1, floatBytes(0, 1)))
	r.NoError(red.Close())
	r.NoError(red.Close(), "a second close with no new data must not re-emit")

	h := decodeWritten(t, buf.Bytes())
	r.Len(h.pktData[1], 1)
}

func TestDataForUndeclaredPacketFails(t *testing.T) {
	r := require.New(t)

	w, _ := newWriter(t)
	red, err := New(w)
	r.NoError(err)

	r.Error(red.PktData(9, floatBytes(1, 2)))
}

func TestNewRejectsNonPositiveBinWidth(t *testing.T) {
	r := require.New(t)

	w, _ := newWriter(t)
	_, err := New(w, WithBinSeconds(0))
	r.Error(err)
}

func TestStreamDescRewritesDerivedMetadata(t *testing.T) {
	r := require.New(t)

	w, buf := newWriter(t)
	red, err := New(w, WithBinSeconds(4))
	r.NoError(err)

	doc := []byte(`<p name="xCacheResolution" type="real">1</p>` +
		`<p name="xTagWidth" type="real">1</p>` +
		`<p name="Data_type" type="string">H0&gt;Survey</p>`)
	r.NoError(red.StreamDesc(doc))

	h := decodeWritten(t, buf.Bytes())
	got := string(h.streamDesc)
	r.Contains(got, `name="xCacheResolution"`)
	r.Contains(got, `>4<`)
	r.Contains(got, `name="xTagWidth"`)
	r.Contains(got, `name="xCacheResInfo"`)
	r.Contains(got, `K0&gt;Key Parameter`)
}
