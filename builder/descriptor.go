// Package builder implements the dataset builder (C8): a stream.Handler that
// upgrades legacy packet descriptors into datasets, assigns format and group
// identity (B1/B2), and hands ownership of completed datasets to its caller
// on stream close (B3).
package builder

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/das2gopher/das2stream/daserr"
	"github.com/das2gopher/das2stream/dataset"
	"github.com/das2gopher/das2stream/format"
	"github.com/das2gopher/das2stream/internal/hash"
	"github.com/das2gopher/das2stream/units"
)

// PlaneDescriptor is one plane of a packet/dataset descriptor: its role
// ("x", "y", "yscan", "min", "max", "stddev", ...), name, units, and wire
// codec. No packet/dataset-descriptor XML grammar file survived in the
// retrieved original source, so this is this package's own reading of the
// spec's plane vocabulary, carried as a single `<plane>` element per plane
// inside a `<packet id="NN">...</packet>` document — see DESIGN.md.
type PlaneDescriptor struct {
	Name  string
	Kind  string
	Units units.Unit
	Codec dataset.Codec

	// OffsetUnits and OffsetSpanSeconds describe a YScan plane's offset axis
	// (the waveform's own per-record sample axis, as opposed to the packet's
	// primary X axis). Zero value means the descriptor carried neither
	// attribute, which C9's waveform-collapse rule treats as "not
	// collapsible" rather than a zero-width span.
	OffsetUnits       units.Unit
	OffsetSpanSeconds float64
	HasOffsetSpan     bool

	// Fill is the plane's declared fill value, if the descriptor named one.
	Fill    float64
	HasFill bool
}

// PacketDescriptor is the parsed form of one packet (or v3 dataset)
// descriptor document: an ordered list of planes.
type PacketDescriptor struct {
	Planes []PlaneDescriptor
}

// FormatEquivalent reports whether d and other agree plane by plane on name,
// kind, units and wire codec (value type, width, encoding, item count)
// (B1: "format-equivalent definition").
func (d *PacketDescriptor) FormatEquivalent(other *PacketDescriptor) bool {
	if len(d.Planes) != len(other.Planes) {
		return false
	}
	for i, p := range d.Planes {
		o := other.Planes[i]
		if p.Name != o.Name || p.Kind != o.Kind || units.ToStr(p.Units) != units.ToStr(o.Units) {
			return false
		}
		if p.Codec.ValueType != o.Codec.ValueType || p.Codec.Width != o.Codec.Width ||
			p.Codec.Encoding != o.Codec.Encoding || p.Codec.Count != o.Codec.Count {
			return false
		}
	}

	return true
}

// Similar reports whether d and other share the same kind/units/name per
// plane, independent of y-tag values or codec framing (B2: "a saved packet
// descriptor is similar (same kind/units/name per plane but y-tags may
// differ)").
func (d *PacketDescriptor) Similar(other *PacketDescriptor) bool {
	return d.similarityHash() == other.similarityHash()
}

// similarityHash xxHashes the plane (name, kind, units) signature, grounded
// on internal/hash's xxhash wrapper — used here for the B2 group-similarity
// scan instead of a metric-name cache key.
func (d *PacketDescriptor) similarityHash() uint64 {
	var sb strings.Builder
	for _, p := range d.Planes {
		sb.WriteString(p.Name)
		sb.WriteByte('\x00')
		sb.WriteString(p.Kind)
		sb.WriteByte('\x00')
		sb.WriteString(units.ToStr(p.Units))
		sb.WriteByte('\x01')
	}

	return hash.ID(sb.String())
}

// FirstDataPlaneName returns the name of the first plane whose kind isn't
// "x" (B2: "mint a new group id from the first data plane's name").
func (d *PacketDescriptor) FirstDataPlaneName() string {
	for _, p := range d.Planes {
		if p.Kind != "x" {
			return p.Name
		}
	}
	if len(d.Planes) > 0 {
		return d.Planes[0].Name
	}

	return ""
}

// ParsePacketDescriptor parses a `<packet id="NN"><plane .../>...</packet>`
// document into a PacketDescriptor.
func ParsePacketDescriptor(doc []byte) (*PacketDescriptor, error) {
	pd := &PacketDescriptor{}
	for _, pl := range parsePlaneTags(doc) {
		pd.Planes = append(pd.Planes, pl)
	}
	if len(pd.Planes) == 0 {
		return nil, fmt.Errorf("builder: %w: packet descriptor has no planes", daserr.ErrXMLParse)
	}

	return pd, nil
}

func parsePlaneTags(doc []byte) []PlaneDescriptor {
	var planes []PlaneDescriptor
	s := string(doc)
	rest := s
	for {
		start := strings.Index(rest, "<plane ")
		if start < 0 {
			break
		}
		rest = rest[start:]
		end := strings.IndexByte(rest, '>')
		if end < 0 {
			break
		}
		tag := rest[:end+1]
		rest = rest[end+1:]

		pl, ok := parsePlaneTag(tag)
		if ok {
			planes = append(planes, pl)
		}
	}

	return planes
}

func parsePlaneTag(tag string) (PlaneDescriptor, bool) {
	attrs := attrMap(tag)

	name, ok := attrs["name"]
	if !ok {
		return PlaneDescriptor{}, false
	}
	kind := attrs["kind"]
	if kind == "" {
		kind = "y"
	}

	u := units.Dimensionless
	if us, ok := attrs["units"]; ok && us != "" {
		if parsed, err := units.FromStr(us); err == nil {
			u = parsed
		}
	}

	vt := format.ValueReal64
	if vs, ok := attrs["valueType"]; ok {
		vt = valueTypeFromString(vs)
	}
	width := vt.Width()
	if ws, ok := attrs["width"]; ok {
		if w, err := strconv.Atoi(ws); err == nil {
			width = w
		}
	}
	count := 1
	if cs, ok := attrs["count"]; ok {
		if c, err := strconv.Atoi(cs); err == nil {
			count = c
		}
	}
	enc := format.EncodingBinaryLE
	if es, ok := attrs["encoding"]; ok {
		enc = encodingFromString(es)
	}

	pl := PlaneDescriptor{
		Name:  name,
		Kind:  kind,
		Units: u,
		Codec: dataset.Codec{ValueType: vt, Width: width, Encoding: enc, Count: count},
	}

	if ou, ok := attrs["offsetUnits"]; ok {
		if parsed, err := units.FromStr(ou); err == nil {
			pl.OffsetUnits = parsed
		}
	}
	if os, ok := attrs["offsetSpan"]; ok {
		if f, err := strconv.ParseFloat(os, 64); err == nil {
			pl.OffsetSpanSeconds = f
			pl.HasOffsetSpan = true
		}
	}
	if fs, ok := attrs["fill"]; ok {
		if f, err := strconv.ParseFloat(fs, 64); err == nil {
			pl.Fill = f
			pl.HasFill = true
		}
	}

	return pl, true
}

func valueTypeFromString(s string) format.ValueType {
	switch s {
	case "int8":
		return format.ValueInt8
	case "int16":
		return format.ValueInt16
	case "int32":
		return format.ValueInt32
	case "int64":
		return format.ValueInt64
	case "real32":
		return format.ValueReal32
	case "text":
		return format.ValueText
	case "time":
		return format.ValueTime
	default:
		return format.ValueReal64
	}
}

func encodingFromString(s string) format.CodecEncoding {
	switch s {
	case "binary-be":
		return format.EncodingBinaryBE
	case "text-fixed":
		return format.EncodingTextFixed
	case "text-delimited":
		return format.EncodingTextDelimited
	case "time-string":
		return format.EncodingTimeString
	default:
		return format.EncodingBinaryLE
	}
}

func attrMap(tag string) map[string]string {
	out := map[string]string{}
	rest := tag
	for {
		eq := strings.IndexByte(rest, '=')
		if eq < 0 {
			return out
		}
		name := strings.TrimSpace(rest[:eq])
		if i := strings.LastIndexAny(name, " \t\n<"); i >= 0 {
			name = name[i+1:]
		}
		valRest := strings.TrimLeft(rest[eq+1:], " \t\n")
		if valRest == "" {
			return out
		}
		quote := valRest[0]
		if quote != '"' && quote != '\'' {
			return out
		}
		valRest = valRest[1:]
		end := strings.IndexByte(valRest, quote)
		if end < 0 {
			return out
		}
		if name != "" {
			out[name] = valRest[:end]
		}
		rest = valRest[end+1:]
	}
}
