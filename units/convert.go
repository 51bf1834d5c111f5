package units

import (
	"fmt"

	"github.com/das2gopher/das2stream/dastime"
)

// ConvertTo converts x, expressed in unit from, into the equivalent value in
// unit to (C2 §4.2, "ConvertTo"). Non-epoch units convert by the linear ratio
// of their reduced factors; epoch units pivot through microseconds since
// us2000, except TT2000 on either side, which pivots through dastime's
// leap-second-aware timescale instead since TT2000 is not a linear offset
// from UTC-based epochs. UTC itself has no numeric form and always fails.
func ConvertTo(to Unit, x float64, from Unit) (float64, error) {
	cFrom, okFrom := reg.form(from)
	cTo, okTo := reg.form(to)
	if !okFrom || !okTo {
		return 0, fmt.Errorf("units: invalid handle")
	}

	if cFrom.epoch != "" || cTo.epoch != "" {
		return convertEpoch(cTo, to, x, cFrom, from)
	}

	rFrom, facFrom, err := Reduce(from)
	if err != nil {
		return 0, err
	}
	rTo, facTo, err := Reduce(to)
	if err != nil {
		return 0, err
	}
	if rFrom != rTo {
		return 0, fmt.Errorf("units: %q and %q are not convertible", ToStr(from), ToStr(to))
	}

	return x * facFrom / facTo, nil
}

func convertEpoch(cTo canonical, to Unit, x float64, cFrom canonical, from Unit) (float64, error) {
	if cFrom.epoch == "" || cTo.epoch == "" {
		return 0, ErrInvalidOp
	}
	if cFrom.epoch == "UTC" || cTo.epoch == "UTC" {
		return 0, ErrInvalidOp
	}

	if cFrom.epoch == "TT2000" || cTo.epoch == "TT2000" {
		return convertViaTT2000(to, cTo, x, from, cFrom)
	}

	us, err := toUS2000Micros(from, x)
	if err != nil {
		return 0, err
	}

	return fromUS2000Micros(to, us)
}

func convertViaTT2000(to Unit, cTo canonical, x float64, from Unit, cFrom canonical) (float64, error) {
	if cFrom.epoch == "TT2000" {
		if cTo.epoch == "TT2000" {
			return x, nil
		}

		instant := dastime.FromTT2000(int64(x))

		return fromUS2000Micros(to, dastime.ToUS2000(instant))
	}

	us, err := toUS2000Micros(from, x)
	if err != nil {
		return 0, err
	}
	instant := dastime.FromUS2000(us)

	return float64(dastime.ToTT2000(instant)), nil
}
