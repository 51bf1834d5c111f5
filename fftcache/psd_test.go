package fftcache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEstimatePSDRealInputFoldsBins(t *testing.T) {
	r := require.New(t)

	c := NewCache()
	n := 8
	p, err := c.GetPlan(n, Forward)
	r.NoError(err)

	in := make([]complex128, n)
	for i := range in {
		in[i] = complex(float64(i%2), 0)
	}

	out, err := EstimatePSD(c, p, in, WindowNone, false)
	r.NoError(err)
	r.Len(out, n/2+1)
}

func TestEstimatePSDComplexInputKeepsAllBins(t *testing.T) {
	r := require.New(t)

	c := NewCache()
	n := 8
	p, err := c.GetPlan(n, Forward)
	r.NoError(err)

	in := make([]complex128, n)
	for i := range in {
		in[i] = complex(float64(i), float64(i)*0.5)
	}

	out, err := EstimatePSD(c, p, in, WindowNone, false)
	r.NoError(err)
	r.Len(out, n)
}

func TestEstimatePSDParsevalNoWindow(t *testing.T) {
	r := require.New(t)

	c := NewCache()
	n := 16
	p, err := c.GetPlan(n, Forward)
	r.NoError(err)

	in := make([]complex128, n)
	for i := range in {
		in[i] = complex(float64(i)-float64(n)/2, 0)
	}

	out, err := EstimatePSD(c, p, in, WindowNone, false)
	r.NoError(err)

	var timeEnergy float64
	for _, v := range in {
		re := real(v)
		timeEnergy += re * re
	}

	// Folding a real-input spectrum back into its half-band form only
	// recombines conjugate-pair bins; it never discards energy, so summing
	// the folded output reproduces the mean-square Parseval identity
	// sum(|x[n]|^2)/N == sum(|X[k]|^2)/Wss.
	var freqEnergy float64
	for _, v := range out {
		freqEnergy += v
	}

	meanSquare := timeEnergy / float64(n)
	r.InDelta(meanSquare, freqEnergy, meanSquare*1e-6+1e-9)
}
