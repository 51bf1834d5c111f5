package descriptor

import (
	"testing"

	"github.com/das2gopher/das2stream/units"
	"github.com/stretchr/testify/require"
)

func TestSetPropertyReplacesInPlace(t *testing.T) {
	r := require.New(t)

	tr := NewTree()
	root := tr.Root()

	tr.SetProperty(root, Property{Name: "title", Type: TypeString, Value: "first"})
	tr.SetProperty(root, Property{Name: "title", Type: TypeString, Value: "second"})

	props := tr.OwnProperties(root)
	r.Len(props, 1)
	r.Equal("second", props[0].Value)
}

func TestOwnPropertiesPreservesDeclarationOrder(t *testing.T) {
	r := require.New(t)

	tr := NewTree()
	root := tr.Root()

	tr.SetProperty(root, Property{Name: "a", Value: "1"})
	tr.SetProperty(root, Property{Name: "b", Value: "2"})
	tr.SetProperty(root, Property{Name: "c", Value: "3"})

	props := tr.OwnProperties(root)
	r.Equal([]string{"a", "b", "c"}, []string{props[0].Name, props[1].Name, props[2].Name})
}

func TestGetPropertyWalksToRootOnMiss(t *testing.T) {
	r := require.New(t)

	tr := NewTree()
	root := tr.Root()
	tr.SetProperty(root, Property{Name: "label", Value: "from-root"})

	child := tr.NewNode(root)
	grandchild := tr.NewNode(child)

	p, ok := tr.GetProperty(grandchild, "label")
	r.True(ok)
	r.Equal("from-root", p.Value)

	_, ok = tr.OwnProperty(grandchild, "label")
	r.False(ok)
}

func TestGetPropertyPrefersOwnOverInherited(t *testing.T) {
	r := require.New(t)

	tr := NewTree()
	root := tr.Root()
	tr.SetProperty(root, Property{Name: "label", Value: "root-value"})

	child := tr.NewNode(root)
	tr.SetProperty(child, Property{Name: "label", Value: "child-value"})

	p, ok := tr.GetProperty(child, "label")
	r.True(ok)
	r.Equal("child-value", p.Value)
}

func TestGetPropertyMissingReturnsFalse(t *testing.T) {
	r := require.New(t)

	tr := NewTree()
	_, ok := tr.GetProperty(tr.Root(), "nope")
	r.False(ok)
}

func TestConvertDatumUsesPropertyUnits(t *testing.T) {
	r := require.New(t)

	km, err := units.FromStr("km")
	r.NoError(err)
	m, err := units.FromStr("m")
	r.NoError(err)

	tr := NewTree()
	root := tr.Root()
	tr.SetProperty(root, Property{Name: "range", Type: TypeReal, Units: km, Value: "2.5"})

	v, err := tr.ConvertDatum(root, "range", m)
	r.NoError(err)
	r.InDelta(2500.0, v, 1e-9)
}

func TestConvertDatumMissingProperty(t *testing.T) {
	r := require.New(t)

	tr := NewTree()
	_, err := tr.ConvertDatum(tr.Root(), "nope", units.Dimensionless)
	r.Error(err)
}
