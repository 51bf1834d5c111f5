package descriptor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPropertyValuesSingleAndMulti(t *testing.T) {
	r := require.New(t)

	single := Property{Name: "a", Value: "x"}
	r.Equal([]string{"x"}, single.Values())

	multi := Property{Name: "b", Sep: ',', Value: "x,y,z"}
	r.Equal([]string{"x", "y", "z"}, multi.Values())
}

func TestPropertyFloat(t *testing.T) {
	r := require.New(t)

	p := Property{Name: "n", Value: " 3.5 "}
	v, err := p.Float()
	r.NoError(err)
	r.Equal(3.5, v)

	bad := Property{Name: "n", Value: "not-a-number"}
	_, err = bad.Float()
	r.Error(err)
}

func TestPropertyBool(t *testing.T) {
	r := require.New(t)

	cases := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"1", true},
		{"yes", true},
		{"false", false},
		{"0", false},
		{"no", false},
	}
	for _, c := range cases {
		p := Property{Name: "flag", Value: c.value}
		got, err := p.Bool()
		r.NoError(err)
		r.Equal(c.want, got)
	}

	_, err := (Property{Name: "flag", Value: "maybe"}).Bool()
	r.Error(err)
}

func TestPropTypeStringRoundTrip(t *testing.T) {
	r := require.New(t)

	types := []PropType{TypeString, TypeBool, TypeInt, TypeReal, TypeDatum, TypeDatumRange, TypeTime, TypeTimeRange}
	for _, pt := range types {
		parsed, ok := parsePropType(pt.String())
		r.True(ok, pt.String())
		r.Equal(pt, parsed)
	}
}
