package units

import "errors"

// ErrInvalidOp is returned when an algebraic operation is attempted on an epoch
// unit, which names a point in time rather than an interval and so cannot be
// inverted, multiplied, raised to a power, or taken a root of (C2 §4.2).
var ErrInvalidOp = errors.New("units: invalid operation on epoch unit")

// epochIntervalName maps each epoch unit's canonical name to the name of its
// associated interval unit (C3 "Each epoch unit has an associated interval unit").
// UTC has no numeric interval unit: it is a string-formatted timestamp, convertible
// only through das time parsing, not through the interval algebra.
var epochIntervalName = map[string]string{
	"us2000": "us",
	"mj1958": "days",
	"t2000":  "s",
	"t1970":  "s",
	"ns1970": "ns",
	"TT2000": "ns",
}

var epochUnitNames = map[string]bool{
	"us2000": true, "mj1958": true, "t2000": true, "t1970": true,
	"ns1970": true, "UTC": true, "TT2000": true,
}

// epochEpochOffsetUS holds each epoch's origin expressed as an offset, in
// microseconds, from the us2000 epoch (2000-01-01T00:00:00 UTC), used as the
// pivot for ConvertTo between non-TT2000 epoch units (C2 §4.2).
var epochEpochOffsetUS = map[string]float64{
	"us2000": 0,
	"t2000":  0,
	"mj1958": -1325376000e6, // mj1958 day 0 = 1958-01-01, us2000 epoch = 2000-01-01
	"t1970":  -946684800e6,  // 1970-01-01 relative to 2000-01-01
	"ns1970": -946684800e6,
}

// epochUnitScaleToUS converts one unit of the epoch's native interval into
// microseconds (e.g. t2000 counts seconds, so its scale is 1e6).
var epochUnitScaleToUS = map[string]float64{
	"us2000": 1,
	"t2000":  1e6,
	"mj1958": 86400e6,
	"t1970":  1e6,
	"ns1970": 1e-3,
}

// IsEpoch reports whether u is one of the designated epoch (point-in-time) units.
func IsEpoch(u Unit) bool {
	c, ok := reg.form(u)
	if !ok {
		return false
	}

	return c.epoch != ""
}

// IntervalUnit returns the invertible interval unit associated with an epoch
// unit, or ErrInvalidOp if u is not an epoch unit or has no numeric interval
// counterpart (UTC).
func IntervalUnit(u Unit) (Unit, error) {
	c, ok := reg.form(u)
	if !ok || c.epoch == "" {
		return 0, ErrInvalidOp
	}

	name, ok := epochIntervalName[c.epoch]
	if !ok {
		return 0, ErrInvalidOp
	}

	iv, err := FromStr(name)
	if err != nil {
		return 0, err
	}

	return iv, nil
}

// epochUnit returns the interned handle for the named epoch unit, registering
// it on first use.
func epochUnit(name string) Unit {
	return reg.intern(canonical{epoch: name})
}

// toUS2000Micros converts a datum x in unit u (must be a non-UTC epoch unit) into
// microseconds since the us2000 epoch, the pivot used by ConvertTo.
func toUS2000Micros(u Unit, x float64) (float64, error) {
	c, ok := reg.form(u)
	if !ok || c.epoch == "" || c.epoch == "UTC" {
		return 0, ErrInvalidOp
	}

	scale, ok := epochUnitScaleToUS[c.epoch]
	if !ok {
		return 0, ErrInvalidOp
	}

	return x*scale + epochEpochOffsetUS[c.epoch], nil
}

// fromUS2000Micros is the inverse of toUS2000Micros.
func fromUS2000Micros(u Unit, us float64) (float64, error) {
	c, ok := reg.form(u)
	if !ok || c.epoch == "" || c.epoch == "UTC" {
		return 0, ErrInvalidOp
	}

	scale, ok := epochUnitScaleToUS[c.epoch]
	if !ok {
		return 0, ErrInvalidOp
	}

	return (us - epochEpochOffsetUS[c.epoch]) / scale, nil
}
