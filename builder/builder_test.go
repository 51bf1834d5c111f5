package builder

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func floatBytes(vals ...float64) []byte {
	buf := make([]byte, 8*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint64(buf[i*8:(i+1)*8], math.Float64bits(v))
	}

	return buf
}

func TestPktDescAssignsNewPairAndGroupID(t *testing.T) {
	r := require.New(t)

	b := New()
	doc := []byte(`<packet id="1"><plane name="time" kind="x" units="us2000"/><plane name="flux" kind="y" units="1/cm2 s"/></packet>`)
	r.NoError(b.PktDesc(1, doc))

	p, ok := b.Pair(1)
	r.True(ok)
	r.Equal("flux", p.GroupID)
	r.Len(p.Desc.Planes, 2)
}

func TestPktDescFormatEquivalentRedefinitionReusesDataset(t *testing.T) {
	r := require.New(t)

	b := New()
	doc := []byte(`<packet id="1"><plane name="time" kind="x" units="us2000"/><plane name="flux" kind="y" units="1/cm2 s"/></packet>`)
	r.NoError(b.PktDesc(1, doc))

	p1, _ := b.Pair(1)
	r.NoError(p1.Dataset.Decode(floatBytes(100, 1.0)))
	r.Equal(1, p1.Dataset.Len())

	redef := []byte(`<packet id="1"><plane name="time" kind="x" units="us2000"/><plane name="flux" kind="y" units="1/cm2 s" fill="-1"/></packet>`)
	r.NoError(b.PktDesc(1, redef))

	p2, _ := b.Pair(1)
	r.Same(p1, p2)
	r.Equal(1, p2.Dataset.Len(), "format-equivalent redefinition must keep accumulated records")
	r.Equal(-1.0, p2.Desc.Planes[1].Fill)
}

func TestPktDescFormatChangeStartsNewPair(t *testing.T) {
	r := require.New(t)

	b := New()
	doc := []byte(`<packet id="1"><plane name="time" kind="x" units="us2000"/><plane name="flux" kind="y" units="1/cm2 s"/></packet>`)
	r.NoError(b.PktDesc(1, doc))
	p1, _ := b.Pair(1)
	r.NoError(p1.Dataset.Decode(floatBytes(100, 1.0)))

	reshaped := []byte(`<packet id="1"><plane name="time" kind="x" units="us2000"/><plane name="flux" kind="y" units="1/cm2 s" count="3"/></packet>`)
	r.NoError(b.PktDesc(1, reshaped))

	p2, _ := b.Pair(1)
	r.NotSame(p1, p2)
	r.Equal(0, p2.Dataset.Len())
}

func TestGroupIDReusedAcrossSimilarPacketIDs(t *testing.T) {
	r := require.New(t)

	b := New()
	doc1 := []byte(`<packet id="1"><plane name="time" kind="x" units="us2000"/><plane name="flux" kind="y" units="1/cm2 s"/></packet>`)
	r.NoError(b.PktDesc(1, doc1))

	doc2 := []byte(`<packet id="2"><plane name="time" kind="x" units="us2000"/><plane name="flux" kind="y" units="1/cm2 s"/></packet>`)
	r.NoError(b.PktDesc(2, doc2))

	p1, _ := b.Pair(1)
	p2, _ := b.Pair(2)
	r.Equal(p1.GroupID, p2.GroupID)
	r.NotSame(p1, p2)
}

func TestDsDescRefusesPacketIDReuse(t *testing.T) {
	r := require.New(t)

	b := New()
	doc := []byte(`<dataset id="1"><plane name="time" kind="x" units="us2000"/></dataset>`)
	r.NoError(b.DsDesc(1, doc))
	r.Error(b.DsDesc(1, doc))
}

func TestPktDataRoutesToDatasetArray(t *testing.T) {
	r := require.New(t)

	b := New()
	doc := []byte(`<packet id="5"><plane name="time" kind="x" units="us2000"/><plane name="flux" kind="y" units="1/cm2 s"/></packet>`)
	r.NoError(b.PktDesc(5, doc))
	r.NoError(b.PktData(5, floatBytes(10, 20)))

	p, _ := b.Pair(5)
	r.Equal(1, p.Dataset.Len())
}

func TestPktDataForUndeclaredIDFails(t *testing.T) {
	r := require.New(t)

	b := New()
	r.Error(b.PktData(9, floatBytes(1)))
}

func TestCloseFreezesAllPairs(t *testing.T) {
	r := require.New(t)

	b := New()
	doc := []byte(`<packet id="1"><plane name="flux" kind="y" units="1/cm2 s"/></packet>`)
	r.NoError(b.PktDesc(1, doc))
	r.NoError(b.PktData(1, floatBytes(1)))
	r.NoError(b.PktData(1, floatBytes(2)))

	r.NoError(b.Close())

	p, _ := b.Pair(1)
	r.True(p.Immutable())
	r.Equal(2, p.RecordCount())
	r.Error(b.PktData(1, floatBytes(3)), "data after close must be rejected")
}

func TestStreamDescCapturesHeaderDocument(t *testing.T) {
	r := require.New(t)

	b := New()
	r.NoError(b.StreamDesc([]byte(`<stream version="3"/>`)))
	r.Equal(`<stream version="3"/>`, string(b.StreamProperties()))
}
