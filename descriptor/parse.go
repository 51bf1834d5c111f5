package descriptor

import (
	"fmt"
	"strings"

	"github.com/das2gopher/das2stream/daserr"
	"github.com/das2gopher/das2stream/units"
)

// ParseV3 reads zero or more `<p name="..." type="..." units="...">value</p>`
// elements from doc and installs each as a property of id.
func ParseV3(t *Tree, id NodeID, doc string) error {
	rest := doc
	for {
		start := strings.Index(rest, "<p ")
		if start < 0 {
			start = strings.Index(rest, "<p>")
			if start < 0 {
				return nil
			}
		}
		rest = rest[start:]

		tagEnd := strings.IndexByte(rest, '>')
		if tagEnd < 0 {
			return fmt.Errorf("descriptor: unterminated <p> tag: %w", daserr.ErrXMLParse)
		}
		tag := rest[:tagEnd+1]
		rest = rest[tagEnd+1:]

		close := strings.Index(rest, "</p>")
		if close < 0 {
			return fmt.Errorf("descriptor: unterminated <p> element: %w", daserr.ErrXMLParse)
		}
		value := rest[:close]
		rest = rest[close+len("</p>"):]

		p, err := parsePTag(tag, value)
		if err != nil {
			return err
		}
		t.SetProperty(id, p)
	}
}

func parsePTag(tag, value string) (Property, error) {
	attrs := parseAttrs(tag)

	name, ok := attrs["name"]
	if !ok {
		return Property{}, fmt.Errorf("descriptor: <p> missing name attribute: %w", daserr.ErrXMLParse)
	}

	pt := TypeString
	if ts, ok := attrs["type"]; ok {
		if parsed, ok := parsePropType(ts); ok {
			pt = parsed
		}
	}

	u := units.Dimensionless
	if us, ok := attrs["units"]; ok && us != "" {
		parsed, err := units.FromStr(us)
		if err != nil {
			return Property{}, fmt.Errorf("descriptor: property %q: %w", name, err)
		}
		u = parsed
	}

	return Property{Name: name, Type: pt, Units: u, Value: unescape(value)}, nil
}

// ParseV2 reads a single legacy `<properties foo:bar="..."/>` element from
// doc and installs one property per attribute, using the attribute's
// namespace prefix to recover its PropType (C3 v2 wire form).
func ParseV2(t *Tree, id NodeID, doc string) error {
	start := strings.Index(doc, "<properties")
	if start < 0 {
		return nil
	}
	end := strings.IndexByte(doc[start:], '>')
	if end < 0 {
		return fmt.Errorf("descriptor: unterminated <properties> tag: %w", daserr.ErrXMLParse)
	}
	tag := doc[start : start+end+1]

	attrs := parseAttrs(tag)
	for qualified, value := range attrs {
		ns, name, found := strings.Cut(qualified, ":")
		if !found {
			name = ns
			ns = "String"
		}
		t.SetProperty(id, Property{
			Name:  name,
			Type:  v2TypeFromNamespace(ns),
			Units: units.Dimensionless,
			Value: unescape(value),
		})
	}

	return nil
}

// parseAttrs extracts name="value" (or name='value') pairs from an XML start
// tag into a map, so source order is not kept; ParseV2 installs its
// namespace attributes in map iteration order.
func parseAttrs(tag string) map[string]string {
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

		valStart := rest[eq+1:]
		valStart = strings.TrimLeft(valStart, " \t\n")
		if valStart == "" {
			return out
		}
		quote := valStart[0]
		if quote != '"' && quote != '\'' {
			return out
		}
		valStart = valStart[1:]

		end := strings.IndexByte(valStart, quote)
		if end < 0 {
			return out
		}

		if name != "" {
			out[name] = unescape(valStart[:end])
		}
		rest = valStart[end+1:]
	}
}
