package units

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConvertToLinear(t *testing.T) {
	r := require.New(t)

	km, err := FromStr("km")
	r.NoError(err)
	m, err := FromStr("m")
	r.NoError(err)

	got, err := ConvertTo(m, 1.5, km)
	r.NoError(err)
	r.InDelta(1500.0, got, 1e-9)
}

func TestConvertToIncompatible(t *testing.T) {
	r := require.New(t)

	m, err := FromStr("m")
	r.NoError(err)
	s, err := FromStr("s")
	r.NoError(err)

	_, err = ConvertTo(s, 1, m)
	r.Error(err)
}

func TestConvertToEpochPivot(t *testing.T) {
	r := require.New(t)

	us2000, err := FromStr("us2000")
	r.NoError(err)
	t1970, err := FromStr("t1970")
	r.NoError(err)

	// 2000-01-01T00:00:00 UTC is 946684800 seconds after the Unix epoch.
	got, err := ConvertTo(t1970, 0, us2000)
	r.NoError(err)
	r.InDelta(946684800.0, got, 1e-6)

	back, err := ConvertTo(us2000, got, t1970)
	r.NoError(err)
	r.InDelta(0, back, 1e-6)
}

func TestConvertToEpochUTCFails(t *testing.T) {
	r := require.New(t)

	us2000, err := FromStr("us2000")
	r.NoError(err)
	utc, err := FromStr("UTC")
	r.NoError(err)

	_, err = ConvertTo(us2000, 0, utc)
	r.ErrorIs(err, ErrInvalidOp)
}

func TestConvertToTT2000RoundTrip(t *testing.T) {
	r := require.New(t)

	tt2000, err := FromStr("TT2000")
	r.NoError(err)
	us2000, err := FromStr("us2000")
	r.NoError(err)

	us, err := ConvertTo(us2000, 0, tt2000)
	r.NoError(err)

	back, err := ConvertTo(tt2000, us, us2000)
	r.NoError(err)
	r.InDelta(0, back, 1e6, "nanosecond datum should round-trip through microsecond us2000 within 1ms")
}
