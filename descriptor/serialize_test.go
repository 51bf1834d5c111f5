package descriptor

import (
	"strings"
	"testing"

	"github.com/das2gopher/das2stream/units"
	"github.com/stretchr/testify/require"
)

func TestSerializeV3RoundTripsThroughParseV3(t *testing.T) {
	r := require.New(t)

	m, err := units.FromStr("m")
	r.NoError(err)

	tr := NewTree()
	root := tr.Root()
	tr.SetProperty(root, Property{Name: "title", Type: TypeString, Value: "Example & <Data>"})
	tr.SetProperty(root, Property{Name: "range", Type: TypeReal, Units: m, Value: "12.5"})

	doc := SerializeV3(tr, root)
	r.Contains(doc, `name="title"`)
	r.Contains(doc, `name="range"`)
	r.Contains(doc, `units="m"`)
	r.Contains(doc, "Example &amp; &lt;Data&gt;")

	tr2 := NewTree()
	root2 := tr2.Root()
	r.NoError(ParseV3(tr2, root2, doc))

	title, ok := tr2.OwnProperty(root2, "title")
	r.True(ok)
	r.Equal("Example & <Data>", title.Value)

	rng, ok := tr2.OwnProperty(root2, "range")
	r.True(ok)
	r.Equal("12.5", rng.Value)
	r.Equal(m, rng.Units)
}

func TestSerializeV3OmitsUnitsForDimensionless(t *testing.T) {
	r := require.New(t)

	tr := NewTree()
	root := tr.Root()
	tr.SetProperty(root, Property{Name: "label", Type: TypeString, Value: "plain"})

	doc := SerializeV3(tr, root)
	r.NotContains(doc, "units=")
}

func TestSerializeV2RoundTripsThroughParseV2(t *testing.T) {
	r := require.New(t)

	tr := NewTree()
	root := tr.Root()
	tr.SetProperty(root, Property{Name: "count", Type: TypeInt, Value: "5"})
	tr.SetProperty(root, Property{Name: "ready", Type: TypeBool, Value: "true"})

	doc := SerializeV2(tr, root)
	r.True(strings.HasPrefix(doc, "<properties"))
	r.Contains(doc, "int:count=")
	r.Contains(doc, "boolean:ready=")

	tr2 := NewTree()
	root2 := tr2.Root()
	r.NoError(ParseV2(tr2, root2, doc))

	count, ok := tr2.OwnProperty(root2, "count")
	r.True(ok)
	r.Equal(TypeInt, count.Type)
	r.Equal("5", count.Value)

	ready, ok := tr2.OwnProperty(root2, "ready")
	r.True(ok)
	r.Equal(TypeBool, ready.Type)
}

func TestSerializeV2EmptyForNoProperties(t *testing.T) {
	r := require.New(t)

	tr := NewTree()
	r.Equal("", SerializeV2(tr, tr.Root()))
}

func TestParseV3MissingNameIsXMLError(t *testing.T) {
	r := require.New(t)

	tr := NewTree()
	err := ParseV3(tr, tr.Root(), `<p type="string">value</p>`)
	r.Error(err)
}

func TestParseV3NoElementsIsNoop(t *testing.T) {
	r := require.New(t)

	tr := NewTree()
	r.NoError(ParseV3(tr, tr.Root(), "plain text, no properties here"))
	r.Empty(tr.OwnProperties(tr.Root()))
}
