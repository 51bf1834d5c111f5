package units

import (
	"fmt"

	"github.com/das2gopher/das2stream/dastime"
)

// DatumFromDT converts a broken-down calendar time into a numeric datum
// expressed in epochUnit (C2 §4.2 "datum_from_dt"). epochUnit must be one of
// the designated epoch units; UTC has no numeric datum and always fails.
func DatumFromDT(epochUnit Unit, bdt dastime.BrokenDown) (float64, error) {
	c, ok := reg.form(epochUnit)
	if !ok || c.epoch == "" || c.epoch == "UTC" {
		return 0, ErrInvalidOp
	}

	t := bdt.ToTime()

	if c.epoch == "TT2000" {
		return float64(dastime.ToTT2000(t)), nil
	}

	return fromUS2000Micros(epochUnit, dastime.ToUS2000(t))
}

// DTFromDatum is the inverse of DatumFromDT: it converts a numeric datum in
// epochUnit back to a broken-down calendar time.
func DTFromDatum(epochUnit Unit, x float64) (dastime.BrokenDown, error) {
	c, ok := reg.form(epochUnit)
	if !ok || c.epoch == "" || c.epoch == "UTC" {
		return dastime.BrokenDown{}, ErrInvalidOp
	}

	if c.epoch == "TT2000" {
		return dastime.FromTime(dastime.FromTT2000(int64(x))), nil
	}

	us, err := toUS2000Micros(epochUnit, x)
	if err != nil {
		return dastime.BrokenDown{}, fmt.Errorf("units: datum to time: %w", err)
	}

	return dastime.FromTime(dastime.FromUS2000(us)), nil
}
