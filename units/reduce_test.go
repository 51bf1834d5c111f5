package units

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReduceSIPrefix(t *testing.T) {
	r := require.New(t)

	u, err := FromStr("kHz")
	r.NoError(err)

	reduced, factor, err := Reduce(u)
	r.NoError(err)
	r.Equal("Hz", ToStr(reduced))
	r.InDelta(1000.0, factor, 1e-9)
}

func TestReduceAdHocSynonym(t *testing.T) {
	r := require.New(t)

	u, err := FromStr("day")
	r.NoError(err)

	reduced, factor, err := Reduce(u)
	r.NoError(err)
	r.Equal("s", ToStr(reduced))
	r.InDelta(86400.0, factor, 1e-9)
}

func TestReduceCompound(t *testing.T) {
	r := require.New(t)

	u, err := FromStr("km/s")
	r.NoError(err)

	reduced, factor, err := Reduce(u)
	r.NoError(err)
	r.Equal("m s**-1", ToStr(reduced))
	r.InDelta(1000.0, factor, 1e-9)
}

func TestReduceNoPrefixLeavesUnitAlone(t *testing.T) {
	r := require.New(t)

	u, err := FromStr("mol")
	r.NoError(err)

	reduced, factor, err := Reduce(u)
	r.NoError(err)
	r.Equal("mol", ToStr(reduced))
	r.InDelta(1.0, factor, 1e-9)
}
