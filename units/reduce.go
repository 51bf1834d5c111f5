package units

import "math"

// siPrefixes maps a single- or double-character SI prefix to its multiplier.
// Only prefixes that appear as a genuine prefix of a known base unit are
// stripped; an unrecognized leading letter sequence is left as its own base
// name (so "mol" is not mistaken for milli-"ol").
var siPrefixes = map[string]float64{
	"Y": 1e24, "Z": 1e21, "E": 1e18, "P": 1e15, "T": 1e12, "G": 1e9,
	"M": 1e6, "k": 1e3, "h": 1e2, "da": 1e1,
	"d": 1e-1, "c": 1e-2, "m": 1e-3, "u": 1e-6, "μ": 1e-6,
	"n": 1e-9, "p": 1e-12, "f": 1e-15, "a": 1e-18,
}

// reducibleBases is the set of base names SI prefixes are recognized against.
var reducibleBases = map[string]bool{
	"Hz": true, "V": true, "A": true, "W": true, "m": true, "g": true,
	"s": true, "K": true, "T": true, "N": true, "Pa": true, "J": true,
	"Ω": true, "F": true, "eV": true,
}

// adHocSynonyms are names reduce() replaces outright (name and factor), not via
// an SI prefix split: day/hour/minute names and the historical "gamma" for nT.
var adHocSynonyms = map[string]struct {
	name   string
	factor float64
}{
	"day":     {"s", 86400},
	"days":    {"s", 86400},
	"hour":    {"s", 3600},
	"hours":   {"s", 3600},
	"hr":      {"s", 3600},
	"min":     {"s", 60},
	"minute":  {"s", 60},
	"minutes": {"s", 60},
	"gamma":   {"nT", 1},
	"%":       {"%", 1},
}

// splitPrefix returns (baseName, multiplier, true) if name decomposes into a
// recognized SI prefix plus a reducible base unit.
func splitPrefix(name string) (string, float64, bool) {
	for _, plen := range []int{2, 1} { // try "da"-style 2-char prefixes first
		if len(name) <= plen {
			continue
		}
		prefix := name[:plen]
		mult, ok := siPrefixes[prefix]
		if !ok {
			continue
		}
		base := name[plen:]
		if reducibleBases[base] {
			return base, mult, true
		}
	}

	return "", 0, false
}

// Reduce strips SI prefixes and ad-hoc synonyms (day -> 86400 s, etc.) from u,
// returning the reduced unit and the numeric factor to multiply a value in u by
// to obtain the equivalent value in the reduced unit (C2 §4.2, invariant U1).
func Reduce(u Unit) (Unit, float64, error) {
	c, err := formOf(u)
	if err != nil {
		return 0, 0, err
	}

	out := make([]component, len(c.comps))
	factor := 1.0
	for i, comp := range c.comps {
		name := comp.name
		mult := 1.0

		if syn, ok := adHocSynonyms[name]; ok {
			name = syn.name
			mult = syn.factor
		} else if base, pmult, ok := splitPrefix(name); ok {
			name = base
			mult = pmult
		}

		exp := float64(comp.num) / float64(comp.den)
		factor *= math.Pow(mult, exp)
		out[i] = component{name: name, num: comp.num, den: comp.den}
	}

	return reg.intern(canonical{comps: normalize(out)}), factor, nil
}
