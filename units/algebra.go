package units

import "fmt"

func formOf(u Unit) (canonical, error) {
	c, ok := reg.form(u)
	if !ok {
		return canonical{}, fmt.Errorf("units: invalid handle %d", u)
	}
	if c.epoch != "" {
		return canonical{}, ErrInvalidOp
	}

	return c, nil
}

// Invert returns 1/u. Epoch units fail with ErrInvalidOp (U2, C2 §4.2).
func Invert(u Unit) (Unit, error) {
	c, err := formOf(u)
	if err != nil {
		return 0, err
	}

	inv := make([]component, len(c.comps))
	for i, comp := range c.comps {
		inv[i] = component{name: comp.name, num: -comp.num, den: comp.den}
	}

	return reg.intern(canonical{comps: normalize(inv)}), nil
}

// Multiply returns a*b, combining like base names by adding exponents.
func Multiply(a, b Unit) (Unit, error) {
	ca, err := formOf(a)
	if err != nil {
		return 0, err
	}
	cb, err := formOf(b)
	if err != nil {
		return 0, err
	}

	comps := append(append([]component{}, ca.comps...), cb.comps...)

	return reg.intern(canonical{comps: normalize(comps)}), nil
}

// Divide returns a/b.
func Divide(a, b Unit) (Unit, error) {
	inv, err := Invert(b)
	if err != nil {
		return 0, err
	}

	return Multiply(a, inv)
}

// Power returns u**n.
func Power(u Unit, n int) (Unit, error) {
	c, err := formOf(u)
	if err != nil {
		return 0, err
	}

	out := make([]component, len(c.comps))
	for i, comp := range c.comps {
		out[i] = component{name: comp.name, num: comp.num * n, den: comp.den}
	}

	return reg.intern(canonical{comps: normalize(out)}), nil
}

// Root returns the n-th root of u; fails if any exponent is not evenly
// divisible by n in the rational sense required to keep the result a ratio of
// integers (den *= n is always legal, so Root never actually fails for n != 0).
func Root(u Unit, n int) (Unit, error) {
	if n == 0 {
		return 0, fmt.Errorf("units: root degree must be non-zero")
	}

	c, err := formOf(u)
	if err != nil {
		return 0, err
	}

	out := make([]component, len(c.comps))
	for i, comp := range c.comps {
		out[i] = component{name: comp.name, num: comp.num, den: comp.den * n}
	}

	return reg.intern(canonical{comps: normalize(out)}), nil
}

// CanConvert reports whether a and b are convertible: both are epoch units, or
// their reduced canonical sequences match pairwise on name and exponent.
func CanConvert(a, b Unit) bool {
	ca, okA := reg.form(a)
	cb, okB := reg.form(b)
	if !okA || !okB {
		return false
	}
	if ca.epoch != "" || cb.epoch != "" {
		return ca.epoch != "" && cb.epoch != ""
	}

	ra, _, errA := Reduce(a)
	rb, _, errB := Reduce(b)
	if errA != nil || errB != nil {
		return false
	}

	return ra == rb
}
