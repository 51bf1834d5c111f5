// Package descriptor implements the property-bag descriptor tree (C3): an
// arena of nodes addressed by integer id, each carrying a set of typed,
// unit-aware properties, with inheritance-by-walk-to-root on lookup miss.
package descriptor

import "github.com/das2gopher/das2stream/units"

// NodeID addresses a node in a Tree's arena. The zero value, 0, is the root.
type NodeID int32

// noParent marks the root node, which has no parent to walk to.
const noParent NodeID = -1

// Node is one descriptor in the tree: a set of own properties plus the id of
// the node inheritance lookups continue from on a miss.
type Node struct {
	parent NodeID
	props  map[string]Property
	order  []string // property insertion order, for stable serialization
}

// Tree is an arena of descriptor Nodes. The grounding is das2's own note that
// a back-pointer descriptor tree maps naturally onto a flat vector of records
// plus parent-index fields rather than a pointer-linked, cyclically-owned
// tree (spec §9 "Descriptor tree with back-pointers").
type Tree struct {
	nodes []Node
}

// NewTree returns a Tree with just the root node (id 0, no parent).
func NewTree() *Tree {
	return &Tree{nodes: []Node{{parent: noParent, props: map[string]Property{}}}}
}

// Root returns the root node's id.
func (t *Tree) Root() NodeID { return 0 }

// NewNode appends a new node parented at parent and returns its id.
func (t *Tree) NewNode(parent NodeID) NodeID {
	t.nodes = append(t.nodes, Node{parent: parent, props: map[string]Property{}})

	return NodeID(len(t.nodes) - 1)
}

func (t *Tree) node(id NodeID) *Node {
	return &t.nodes[id]
}

// SetProperty installs p on id, replacing any existing property of the same
// name in place (C3 "Setting a property with the same name replaces in place").
func (t *Tree) SetProperty(id NodeID, p Property) {
	n := t.node(id)
	if _, exists := n.props[p.Name]; !exists {
		n.order = append(n.order, p.Name)
	}
	n.props[p.Name] = p
}

// OwnProperty returns the property named name set directly on id, without
// walking to parents.
func (t *Tree) OwnProperty(id NodeID, name string) (Property, bool) {
	p, ok := t.node(id).props[name]

	return p, ok
}

// GetProperty reads the property named name, walking toward the root on a
// miss (C3 "Reading walks to root on miss").
func (t *Tree) GetProperty(id NodeID, name string) (Property, bool) {
	for cur := id; ; {
		if p, ok := t.node(cur).props[name]; ok {
			return p, true
		}
		parent := t.node(cur).parent
		if parent == noParent {
			return Property{}, false
		}
		cur = parent
	}
}

// OwnProperties returns id's own properties in declaration order.
func (t *Tree) OwnProperties(id NodeID) []Property {
	n := t.node(id)
	out := make([]Property, 0, len(n.order))
	for _, name := range n.order {
		out = append(out, n.props[name])
	}

	return out
}

// ConvertDatum reads a datum-typed property and converts its value into to,
// using the property's own units as the source (C3 "may carry units,
// enabling conversion at read time").
func (t *Tree) ConvertDatum(id NodeID, name string, to units.Unit) (float64, error) {
	p, ok := t.GetProperty(id, name)
	if !ok {
		return 0, errPropertyNotFound(name)
	}

	return p.ConvertTo(to)
}
