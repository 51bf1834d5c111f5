package units

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInvertEpochFails(t *testing.T) {
	r := require.New(t)

	u, err := FromStr("us2000")
	r.NoError(err)

	_, err = Invert(u)
	r.ErrorIs(err, ErrInvalidOp)
}

func TestMultiplyDivideRoundTrip(t *testing.T) {
	r := require.New(t)

	a, err := FromStr("V")
	r.NoError(err)
	b, err := FromStr("m")
	r.NoError(err)

	prod, err := Multiply(a, b)
	r.NoError(err)

	back, err := Divide(prod, b)
	r.NoError(err)
	r.Equal(a, back)
}

func TestPowerAndRoot(t *testing.T) {
	r := require.New(t)

	u, err := FromStr("Hz")
	r.NoError(err)

	sq, err := Power(u, 2)
	r.NoError(err)
	r.Equal("Hz**2", ToStr(sq))

	back, err := Root(sq, 2)
	r.NoError(err)
	r.Equal(u, back)
}

func TestCanConvert(t *testing.T) {
	r := require.New(t)

	a, err := FromStr("km")
	r.NoError(err)
	b, err := FromStr("m")
	r.NoError(err)
	r.True(CanConvert(a, b))

	c, err := FromStr("s")
	r.NoError(err)
	r.False(CanConvert(a, c))
}

func TestCanConvertEpoch(t *testing.T) {
	r := require.New(t)

	a, err := FromStr("us2000")
	r.NoError(err)
	b, err := FromStr("t1970")
	r.NoError(err)
	r.True(CanConvert(a, b))

	utc, err := FromStr("UTC")
	r.NoError(err)
	r.True(CanConvert(a, utc))
}
