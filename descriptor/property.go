package descriptor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/das2gopher/das2stream/daserr"
	"github.com/das2gopher/das2stream/units"
)

// PropType enumerates the eight property types C3 names: string, bool, int,
// real, datum, datum-range, time, time-range. There is no separate type for
// multi-valued sets.
type PropType int

const (
	TypeString PropType = iota
	TypeBool
	TypeInt
	TypeReal
	TypeDatum
	TypeDatumRange
	TypeTime
	TypeTimeRange
)

func (t PropType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeBool:
		return "boolean"
	case TypeInt:
		return "int"
	case TypeReal:
		return "real"
	case TypeDatum:
		return "Datum"
	case TypeDatumRange:
		return "DatumRange"
	case TypeTime:
		return "Time"
	case TypeTimeRange:
		return "TimeRange"
	default:
		return "unknown"
	}
}

func parsePropType(s string) (PropType, bool) {
	switch s {
	case "string":
		return TypeString, true
	case "boolean", "bool":
		return TypeBool, true
	case "int", "integer":
		return TypeInt, true
	case "real", "double", "float":
		return TypeReal, true
	case "Datum", "datum":
		return TypeDatum, true
	case "DatumRange", "datumRange":
		return TypeDatumRange, true
	case "Time", "time":
		return TypeTime, true
	case "TimeRange", "timeRange":
		return TypeTimeRange, true
	default:
		return 0, false
	}
}

// Property is one named, typed value attached to a descriptor node. Value
// holds the raw (unconverted) string form; Units is zero (units.Dimensionless)
// for property types that carry no physical unit. Sep is non-zero for a
// multi-valued property, the separator between its values in Value.
type Property struct {
	Name  string
	Type  PropType
	Units units.Unit
	Sep   byte
	Value string
}

// Values splits a multi-valued property's Value on Sep; a single-valued
// property (Sep == 0) returns a one-element slice.
func (p Property) Values() []string {
	if p.Sep == 0 {
		return []string{p.Value}
	}

	return strings.Split(p.Value, string(p.Sep))
}

// Float parses Value as a real/int/datum-typed property's numeric value.
func (p Property) Float() (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(p.Value), 64)
	if err != nil {
		return 0, fmt.Errorf("descriptor: property %q: %w: %v", p.Name, daserr.ErrProtocol, err)
	}

	return v, nil
}

// Bool parses Value as a boolean-typed property's value.
func (p Property) Bool() (bool, error) {
	switch strings.ToLower(strings.TrimSpace(p.Value)) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no":
		return false, nil
	default:
		return false, fmt.Errorf("descriptor: property %q: %w: not a boolean", p.Name, daserr.ErrProtocol)
	}
}

// ConvertTo converts a Datum-typed property's numeric value from its own
// Units into to.
func (p Property) ConvertTo(to units.Unit) (float64, error) {
	x, err := p.Float()
	if err != nil {
		return 0, err
	}

	return units.ConvertTo(to, x, p.Units)
}

func errPropertyNotFound(name string) error {
	return fmt.Errorf("descriptor: property %q: %w", name, daserr.ErrNoData)
}
