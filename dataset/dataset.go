package dataset

import (
	"fmt"

	"github.com/das2gopher/das2stream/daserr"
)

// Plane names one codec/array pair within a Dataset's record layout, in
// declaration order.
type Plane struct {
	Name  string
	Codec Codec
	Array *Array
}

// Dataset is a named collection of planes sharing one record layout, decoded
// record by record as data chunks arrive (C7 "dasds_decode_data(buf) iterates
// codecs in declaration order, each reading one record slice").
type Dataset struct {
	Name      string
	Planes    []Plane
	Variables map[string]Variable
}

// NewDataset returns an empty dataset; planes are added with AddPlane.
func NewDataset(name string) *Dataset {
	return &Dataset{Name: name, Variables: map[string]Variable{}}
}

// AddPlane appends a plane to the dataset's record layout.
func (d *Dataset) AddPlane(name string, codec Codec, arr *Array) {
	d.Planes = append(d.Planes, Plane{Name: name, Codec: codec, Array: arr})
}

// RecBytes is the sum of the dataset's codecs' fixed widths, or -1 if any
// codec is variable-length (C7 "returns -1 if any codec is variable-length
// (not legal on v2 data packets)").
func (d *Dataset) RecBytes() int {
	total := 0
	for _, p := range d.Planes {
		n := p.Codec.RecBytes()
		if n < 0 {
			return -1
		}
		total += n
	}

	return total
}

// Decode iterates the dataset's codecs in declaration order over buf,
// decoding one record's worth of planes and appending into each plane's
// backing array. It returns the number of bytes consumed, which may be less
// than len(buf) if buf holds more than one record.
func (d *Dataset) Decode(buf []byte) (int, error) {
	consumed := 0
	for _, p := range d.Planes {
		n, err := p.Codec.Decode(buf[consumed:], p.Array)
		if err != nil {
			return consumed, fmt.Errorf("dataset %q plane %q: %w", d.Name, p.Name, err)
		}
		consumed += n
	}

	return consumed, nil
}

// DecodeAll repeatedly calls Decode until buf is exhausted, for a chunk
// carrying multiple fixed-width records back to back.
func (d *Dataset) DecodeAll(buf []byte) (int, error) {
	records := 0
	for len(buf) > 0 {
		n, err := d.Decode(buf)
		if err != nil {
			return records, err
		}
		if n == 0 {
			return records, fmt.Errorf("dataset %q: %w: codec consumed zero bytes", d.Name, daserr.ErrInternal)
		}
		buf = buf[n:]
		records++
	}

	return records, nil
}

// Clear truncates every plane's array to zero length.
func (d *Dataset) Clear() {
	for _, p := range d.Planes {
		p.Array.Clear()
	}
}

// Len reports the record count, taken from the first plane (all planes in a
// dataset share the same index-0 extent).
func (d *Dataset) Len() int {
	if len(d.Planes) == 0 {
		return 0
	}

	return d.Planes[0].Array.Len()
}
