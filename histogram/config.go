// Package histogram implements a value-domain histogram filter, a sibling of
// the time-domain binning reducer (reducer) and the spectral transformer
// (psd): instead of bins along the X axis, it bins along each non-X plane's
// own value range, emitting one output packet per input plane with a dropped
// X axis and a synthesized value axis plus a dimensionless count plane.
package histogram

import "github.com/das2gopher/das2stream/internal/options"

// Mode selects what a bin's emitted count actually represents, grounded on
// das2_histo.c's -b/-a command line switches.
type Mode int

const (
	// RawCounts emits the number of observations landing in each bin.
	RawCounts Mode = iota
	// FracBelow emits the cumulative fraction of observations at or below
	// each bin, normalized by the column's total count.
	FracBelow
	// FracAbove emits the cumulative fraction of observations at or above
	// each bin, normalized by the column's total count.
	FracAbove
)

// Config holds a Histogrammer's bin width, count/fraction mode, and optional
// pinned bin origin.
type Config struct {
	BinWidth float64
	Mode     Mode
	Begin    *float64 // nil: derive from the first non-fill value seen per plane
}

func defaultConfig() Config {
	return Config{BinWidth: 1.0, Mode: RawCounts}
}

// Option configures a Histogrammer at construction.
type Option = options.Option[*Config]

// WithBinWidth sets the fixed bin width along the value axis.
func WithBinWidth(w float64) Option {
	return options.NoError(func(c *Config) { c.BinWidth = w })
}

// WithMode selects RawCounts, FracBelow, or FracAbove output.
func WithMode(m Mode) Option {
	return options.NoError(func(c *Config) { c.Mode = m })
}

// WithBegin pins the bin origin instead of deriving it from the first
// observed value per plane.
func WithBegin(v float64) Option {
	return options.NoError(func(c *Config) { c.Begin = &v })
}
