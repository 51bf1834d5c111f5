package units

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToLabelSubscriptAndExponent(t *testing.T) {
	r := require.New(t)

	u, err := FromStr("B_specdens**2")
	r.NoError(err)

	r.Equal("B!bspecdens!n!a2!n", ToLabel(u))
}

func TestToLabelNoSubNoExponent(t *testing.T) {
	r := require.New(t)

	u, err := FromStr("nT")
	r.NoError(err)

	r.Equal("nT", ToLabel(u))
}

func TestToLabelEpoch(t *testing.T) {
	r := require.New(t)

	u, err := FromStr("us2000")
	r.NoError(err)

	r.Equal("us2000", ToLabel(u))
}
