package fftcache

import "math"

// Window selects a windowing function applied before the transform.
type Window int

const (
	// WindowNone applies no window (rectangular).
	WindowNone Window = iota
	// WindowHann applies a Hann window.
	WindowHann
)

// hannWindow returns the n-point Hann window coefficients.
func hannWindow(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}

	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}

	return w
}

func windowSumSquares(w Window, n int) float64 {
	switch w {
	case WindowHann:
		sum := 0.0
		for _, v := range hannWindow(n) {
			sum += v * v
		}

		return sum * float64(n)
	default:
		return float64(n) * float64(n)
	}
}

// EstimatePSD computes a magnitude-squared spectrum for input on plan, with
// an optional window and optional DC-centering (subtracting the input's mean
// before transforming). isReal indicates the input's imaginary parts are all
// zero: the positive- and negative-frequency bins are then folded together so
// the returned spectrum has length plan.Len()/2+1; otherwise all N bins are
// retained unfolded (C5 §4.5 "Power-spectral-density estimator").
//
// The result is normalized by the window's squared-sum so that
// sum(output) == mean-square(input) when input is stationary white noise,
// i.e. so input and output power match Parseval's identity.
func EstimatePSD(c *Cache, plan *Plan, input []complex128, win Window, dcCenter bool) ([]float64, error) {
	n := plan.Len()
	seq := make([]complex128, n)
	copy(seq, input)

	if dcCenter {
		var mean complex128
		for _, v := range seq {
			mean += v
		}
		mean /= complex(float64(n), 0)
		for i := range seq {
			seq[i] -= mean
		}
	}

	if win != WindowNone {
		w := hannWindow(n)
		for i := range seq {
			seq[i] *= complex(w[i], 0)
		}
	}

	coeffs, err := c.Execute(plan, seq)
	if err != nil {
		return nil, err
	}

	norm := windowSumSquares(win, n)
	mag2 := make([]float64, n)
	for i, v := range coeffs {
		re, im := real(v), imag(v)
		mag2[i] = (re*re + im*im) / norm
	}

	isReal := true
	for _, v := range input {
		if imag(v) != 0 {
			isReal = false
			break
		}
	}
	if !isReal {
		return mag2, nil
	}

	half := n/2 + 1
	out := make([]float64, half)
	out[0] = mag2[0]

	loopEnd := half
	if n%2 == 0 {
		out[half-1] = mag2[half-1] // Nyquist bin is unpaired
		loopEnd = half - 1
	}
	for i := 1; i < loopEnd; i++ {
		out[i] = mag2[i] + mag2[n-i]
	}

	return out, nil
}
