package units

import (
	"strconv"
	"strings"
)

// ToLabel renders u as a typeset label: an underscore in a base name marks the
// start of a subscript, wrapped in !b...!n (begin/end subscript); a non-unity
// exponent is wrapped in !a...!n (begin/end superscript), matching the escape
// convention das2 plot labels use in place of to_str's "**" notation (C2 §4.2
// "to_label").
func ToLabel(u Unit) string {
	c, ok := reg.form(u)
	if !ok {
		return "?"
	}
	if c.epoch != "" {
		return c.epoch
	}
	if len(c.comps) == 0 {
		return ""
	}

	parts := make([]string, len(c.comps))
	for i, comp := range c.comps {
		parts[i] = labelComponent(comp)
	}

	return strings.Join(parts, " ")
}

func labelComponent(c component) string {
	var sb strings.Builder

	base, sub, hasSub := strings.Cut(c.name, "_")
	sb.WriteString(base)
	if hasSub {
		sb.WriteString("!b")
		sb.WriteString(sub)
		sb.WriteString("!n")
	}

	if c.num != 1 || c.den != 1 {
		sb.WriteString("!a")
		if c.den == 1 {
			sb.WriteString(strconv.Itoa(c.num))
		} else {
			sb.WriteString(strconv.Itoa(c.num))
			sb.WriteByte('/')
			sb.WriteString(strconv.Itoa(c.den))
		}
		sb.WriteString("!n")
	}

	return sb.String()
}
