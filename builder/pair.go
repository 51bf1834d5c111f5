package builder

import "github.com/das2gopher/das2stream/dataset"

// Pair is one (saved packet descriptor, owned dataset) entry in the
// builder's table (spec §4.8: "a vector of pairs").
type Pair struct {
	Desc        *PacketDescriptor
	Dataset     *dataset.Dataset
	GroupID     string
	immutable   bool
	recordCount int
}

// Immutable reports whether the stream has closed and this pair's dataset
// is frozen (B3).
func (p *Pair) Immutable() bool { return p.immutable }

// RecordCount returns the cached record count set on close (B3). Before
// close it tracks the dataset's live length.
func (p *Pair) RecordCount() int {
	if p.immutable {
		return p.recordCount
	}

	return p.Dataset.Len()
}

func newPair(id int, desc *PacketDescriptor, groupID string) *Pair {
	ds := dataset.NewDataset(groupID)
	for _, pl := range desc.Planes {
		var innerShape []int
		if pl.Codec.Count > 1 {
			innerShape = []int{pl.Codec.Count}
		}
		arr, err := dataset.NewArray(pl.Codec.ValueType, innerShape)
		if err != nil {
			// Every PlaneDescriptor codec is built from validated attributes;
			// a rank <= 2 array never fails construction here.
			panic(err)
		}
		ds.AddPlane(pl.Name, pl.Codec, arr)
	}

	return &Pair{Desc: desc, Dataset: ds, GroupID: groupID}
}
