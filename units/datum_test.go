package units

import (
	"testing"

	"github.com/das2gopher/das2stream/dastime"
	"github.com/stretchr/testify/require"
)

func TestDatumFromDTRoundTrip(t *testing.T) {
	r := require.New(t)

	us2000, err := FromStr("us2000")
	r.NoError(err)

	bdt := dastime.BrokenDown{Year: 2020, Month: 3, Day: 15, Hour: 12, Minute: 30, Second: 0}

	x, err := DatumFromDT(us2000, bdt)
	r.NoError(err)

	back, err := DTFromDatum(us2000, x)
	r.NoError(err)
	r.Equal(bdt.Year, back.Year)
	r.Equal(bdt.Month, back.Month)
	r.Equal(bdt.Day, back.Day)
	r.Equal(bdt.Hour, back.Hour)
	r.Equal(bdt.Minute, back.Minute)
	r.InDelta(bdt.Second, back.Second, 1e-6)
}

func TestDatumFromDTUTCFails(t *testing.T) {
	r := require.New(t)

	utc, err := FromStr("UTC")
	r.NoError(err)

	_, err = DatumFromDT(utc, dastime.BrokenDown{Year: 2020, Month: 1, Day: 1})
	r.ErrorIs(err, ErrInvalidOp)
}

func TestDatumFromDTTT2000(t *testing.T) {
	r := require.New(t)

	tt2000, err := FromStr("TT2000")
	r.NoError(err)

	bdt := dastime.BrokenDown{Year: 2000, Month: 1, Day: 1, Hour: 0, Minute: 0, Second: 0}

	x, err := DatumFromDT(tt2000, bdt)
	r.NoError(err)
	r.InDelta(0, x, 1e-6, "this package's TT2000 is anchored at 2000-01-01T00:00:00 UTC")
}
