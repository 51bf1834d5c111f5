// Package units implements the canonical physical-unit algebra (C2): parsing,
// interning, equality, multiplication/division/inversion/power/root, SI-prefix
// reduction, and epoch-aware conversion. It is grounded on the original das2C
// units.c/units.h, reworked as a process-global interner behind a read-mostly
// lock, the same shape the reference library's sync.Pool-backed buffer pools use
// for "mostly reads, occasional writes needing the full lock" resources.
package units

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// component is one base-name/exponent term of a canonical unit expression.
type component struct {
	name string
	num  int
	den  int // always > 0
}

func (c component) String() string {
	if c.den == 1 {
		if c.num == 1 {
			return c.name
		}

		return fmt.Sprintf("%s**%d", c.name, c.num)
	}

	return fmt.Sprintf("%s**%d/%d", c.name, c.num, c.den)
}

func (c component) key() string {
	return fmt.Sprintf("%s\x00%d\x00%d", c.name, c.num, c.den)
}

// canonical is the fully reduced, sorted sequence of components for one unit
// expression, plus the epoch tag if this expression names a point in time rather
// than an interval.
type canonical struct {
	comps []component
	epoch string // non-empty iff this unit is an epoch unit (e.g. "us2000")
}

func (c canonical) key() string {
	if c.epoch != "" {
		return "epoch\x00" + c.epoch
	}

	var sb strings.Builder
	for _, comp := range c.comps {
		sb.WriteString(comp.key())
		sb.WriteByte('\x01')
	}

	return sb.String()
}

func (c canonical) String() string {
	if c.epoch != "" {
		return c.epoch
	}

	if len(c.comps) == 0 {
		return "" // dimensionless
	}

	parts := make([]string, len(c.comps))
	for i, comp := range c.comps {
		parts[i] = comp.String()
	}

	return strings.Join(parts, " ")
}

// sortPreference ranks well-known base names so canonical output orders the way
// the original C library's DasUnit tables do (most physically salient first):
// V, T, N, kg, m, s, A, K, mol, cd, Hz, rad, sr, then everything else alphabetically.
var sortPreference = map[string]int{
	"V": 100, "T": 95, "N": 90, "kg": 85, "g": 84, "m": 80, "s": 75,
	"A": 70, "K": 65, "mol": 60, "cd": 55, "Hz": 50, "rad": 45, "sr": 40,
}

func prefOf(name string) int {
	if p, ok := sortPreference[name]; ok {
		return p
	}

	return 0
}

// normalize sorts comps in canonical order: positive exponents before negative,
// higher sort-preference first, then by exponent, then lexicographically by name.
// It also merges duplicate base names and drops any that cancel to 0.
func normalize(comps []component) []component {
	merged := map[string]*component{}
	order := []string{}
	for _, c := range comps {
		if existing, ok := merged[c.name]; ok {
			// a/b + c/d = (ad+cb)/(bd), reduced by gcd below.
			existing.num = existing.num*c.den + c.num*existing.den
			existing.den = existing.den * c.den
			g := gcd(abs(existing.num), existing.den)
			if g > 1 {
				existing.num /= g
				existing.den /= g
			}
		} else {
			cp := c
			merged[c.name] = &cp
			order = append(order, c.name)
		}
	}

	out := make([]component, 0, len(order))
	for _, name := range order {
		c := *merged[name]
		if c.num != 0 {
			out = append(out, c)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		aPos, bPos := a.num >= 0, b.num >= 0
		if aPos != bPos {
			return aPos
		}
		pa, pb := prefOf(a.name), prefOf(b.name)
		if pa != pb {
			return pa > pb
		}
		ea, eb := float64(a.num)/float64(a.den), float64(b.num)/float64(b.den)
		if ea != eb {
			if aPos {
				return ea > eb
			}

			return ea < eb
		}

		return a.name < b.name
	})

	return out
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}

	return a
}

func abs(n int) int {
	if n < 0 {
		return -n
	}

	return n
}

// Unit is an interned, opaque handle to a canonical unit expression. The zero
// value is invalid; use Dimensionless for the empty (unitless) expression.
type Unit int32

// Dimensionless is the canonical handle for the empty unit expression.
var Dimensionless Unit

type registry struct {
	mu      sync.RWMutex
	byKey   map[string]Unit
	forms   []canonical // index 0 is unused so the zero Unit stays invalid
	strings []string    // cached To-string form, same indexing as forms
}

var reg = newRegistry()

func newRegistry() *registry {
	r := &registry{
		byKey: make(map[string]Unit),
		forms: make([]canonical, 1),
	}
	r.strings = make([]string, 1)
	Dimensionless = r.intern(canonical{})

	return r
}

// intern returns the stable handle for c, inserting it if this is the first time
// c has been seen. Lookups take only the read lock on the common path; only a
// miss promotes to the write lock, matching the package doc's "read-mostly
// lock" design.
func (r *registry) intern(c canonical) Unit {
	k := c.key()

	r.mu.RLock()
	if u, ok := r.byKey[k]; ok {
		r.mu.RUnlock()
		return u
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if u, ok := r.byKey[k]; ok {
		return u
	}

	r.forms = append(r.forms, c)
	r.strings = append(r.strings, c.String())
	u := Unit(len(r.forms) - 1)
	r.byKey[k] = u

	return u
}

func (r *registry) form(u Unit) (canonical, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if int(u) <= 0 || int(u) >= len(r.forms) {
		return canonical{}, false
	}

	return r.forms[u], true
}

// ToStr renders u back to its canonical string form.
func ToStr(u Unit) string {
	r := reg
	r.mu.RLock()
	defer r.mu.RUnlock()

	if int(u) <= 0 || int(u) >= len(r.strings) {
		return "?"
	}

	return r.strings[u]
}

// Equal reports whether a and b name the same canonical unit expression.
// Handles from the same process are comparable directly, but Equal is provided
// for symmetry with the spec's equality operation and for cross-registry safety.
func Equal(a, b Unit) bool { return a == b }

func (u Unit) String() string { return ToStr(u) }
