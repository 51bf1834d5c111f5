package descriptor

import (
	"fmt"
	"strings"

	"github.com/das2gopher/das2stream/units"
)

// SerializeV3 renders id's own properties as v3 `<p>` elements, one per
// property: `<p name="..." type="..." units="...">value</p>` (C3
// "Serialization"). The units attribute is omitted for a dimensionless
// property.
func SerializeV3(t *Tree, id NodeID) string {
	var sb strings.Builder
	for _, p := range t.OwnProperties(id) {
		sb.WriteString(`<p name="`)
		sb.WriteString(escapeAttr(p.Name))
		sb.WriteString(`" type="`)
		sb.WriteString(p.Type.String())
		sb.WriteString(`"`)
		if p.Units != units.Dimensionless {
			sb.WriteString(` units="`)
			sb.WriteString(escapeAttr(units.ToStr(p.Units)))
			sb.WriteString(`"`)
		}
		sb.WriteString(">")
		sb.WriteString(escapeText(p.Value))
		sb.WriteString("</p>\n")
	}

	return sb.String()
}

// SerializeV2 renders id's own properties as a single legacy `<properties>`
// element with one `ns:name="value"` attribute per property, the v2 wire
// form C3 names ("legacy `<properties foo:bar="…"/>`"). The namespace prefix
// is derived from the property's type (the v2 convention of tagging a
// property's kind via its XML namespace rather than a separate type attribute).
func SerializeV2(t *Tree, id NodeID) string {
	props := t.OwnProperties(id)
	if len(props) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("<properties")
	for _, p := range props {
		sb.WriteString(" ")
		sb.WriteString(v2Namespace(p.Type))
		sb.WriteString(":")
		sb.WriteString(escapeAttr(p.Name))
		sb.WriteString(`="`)
		sb.WriteString(escapeAttr(p.Value))
		sb.WriteString(`"`)
	}
	sb.WriteString("/>")

	return sb.String()
}

func v2Namespace(t PropType) string {
	switch t {
	case TypeBool:
		return "boolean"
	case TypeInt:
		return "int"
	case TypeReal:
		return "double"
	case TypeDatum:
		return "Datum"
	case TypeDatumRange:
		return "DatumRange"
	case TypeTime:
		return "Time"
	case TypeTimeRange:
		return "TimeRange"
	default:
		return "String"
	}
}

func v2TypeFromNamespace(ns string) PropType {
	switch ns {
	case "boolean":
		return TypeBool
	case "int":
		return TypeInt
	case "double":
		return TypeReal
	case "Datum":
		return TypeDatum
	case "DatumRange":
		return TypeDatumRange
	case "Time":
		return TypeTime
	case "TimeRange":
		return TypeTimeRange
	default:
		return TypeString
	}
}

var attrEscaper = strings.NewReplacer(`&`, "&amp;", `"`, "&quot;", `<`, "&lt;", `>`, "&gt;")
var textEscaper = strings.NewReplacer(`&`, "&amp;", `<`, "&lt;", `>`, "&gt;")

func escapeAttr(s string) string { return attrEscaper.Replace(s) }
func escapeText(s string) string { return textEscaper.Replace(s) }

var attrUnescaper = strings.NewReplacer("&quot;", `"`, "&lt;", "<", "&gt;", ">", "&amp;", "&")

func unescape(s string) string { return attrUnescaper.Replace(s) }

// errNotImplemented reports a property form the parsers do not recognize. No
// parse path in this package currently returns it.
var errNotImplemented = fmt.Errorf("descriptor: property form not recognized")
