package reducer

import "github.com/das2gopher/das2stream/internal/options"

// Config holds the binning reducer's per-stream configuration (C9).
type Config struct {
	BinSeconds float64
	Begin      *float64 // us2000; nil means derive bin 0 from the first observed X
	MinMax     bool
	StdDev     bool
	Peak       bool // peak-preserving variant, grounded on das2_bin_peakavgsec.c
}

func defaultConfig() Config {
	return Config{BinSeconds: 1}
}

// Option configures a Reducer at construction.
type Option = options.Option[*Config]

// WithBinSeconds sets the bin width W in seconds. The default is 1 second.
func WithBinSeconds(seconds float64) Option {
	return options.NoError(func(c *Config) { c.BinSeconds = seconds })
}

// WithBegin pins bin 0's start to begin (in us2000) instead of deriving it
// from the first observed X value.
func WithBegin(beginUS2000 float64) Option {
	return options.NoError(func(c *Config) { c.Begin = &beginUS2000 })
}

// WithMinMax adds `.min`/`.max` auxiliary planes alongside the averaged
// primary plane.
func WithMinMax() Option {
	return options.NoError(func(c *Config) { c.MinMax = true })
}

// WithStdDev adds a `.stddev` auxiliary plane.
func WithStdDev() Option {
	return options.NoError(func(c *Config) { c.StdDev = true })
}

// WithPeak adds `.peak`/`.valley` auxiliary planes tracking the running
// maximum and minimum excursion within the bin, as das2_bin_peakavgsec.c
// does alongside (rather than instead of) the averaging pass.
func WithPeak() Option {
	return options.NoError(func(c *Config) { c.Peak = true })
}
