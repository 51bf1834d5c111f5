package psd

import (
	"fmt"

	"github.com/das2gopher/das2stream/daserr"
	"github.com/das2gopher/das2stream/internal/hash"
)

// outputIDMap assigns output packet ids lazily from 1..99, reusing an id
// whenever a newly built output descriptor document matches one already
// assigned, so the number of distinct output packet shapes collapses
// (spec §4.10 "Packet id remap: assign new ids 1..99 lazily; if an output
// shape matches an existing output descriptor, reuse that id").
type outputIDMap struct {
	next   int
	byHash map[uint64]int
}

func newOutputIDMap() *outputIDMap {
	return &outputIDMap{next: 1, byHash: map[uint64]int{}}
}

// assign returns the output id for doc, minting a new one only when no
// previously assigned output descriptor has the same byte-for-byte shape.
func (m *outputIDMap) assign(doc []byte) (int, bool, error) {
	h := hash.ID(string(doc))
	if id, ok := m.byHash[h]; ok {
		return id, false, nil
	}
	if m.next > 99 {
		return 0, false, fmt.Errorf("psd: %w: exhausted output packet id range 1..99", daserr.ErrInvalidOp)
	}

	id := m.next
	m.next++
	m.byHash[h] = id

	return id, true, nil
}
