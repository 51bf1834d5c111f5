// Package psd implements the PSD transformer (C10): a stream.Handler that
// replaces time-domain planes with spectral-density planes via fftcache (C5),
// remapping packet ids as output shapes stabilize.
package psd

import (
	"github.com/das2gopher/das2stream/fftcache"
	"github.com/das2gopher/das2stream/internal/options"
)

// Config holds the PSD transformer's per-stream configuration.
type Config struct {
	Length     int // LENGTH: samples per transform
	SlideDenom int // SLIDE_DENOM: slide input by Length/SlideDenom between outputs
	Window     fftcache.Window
	DCCenter   bool
	Cadence    *float64 // seconds; nil means derive from XTag differences
}

func defaultConfig() Config {
	return Config{Length: 1024, SlideDenom: 2, Window: fftcache.WindowHann}
}

// Option configures a Transformer at construction.
type Option = options.Option[*Config]

// WithLength sets LENGTH, the number of samples per transform.
func WithLength(n int) Option {
	return options.NoError(func(c *Config) { c.Length = n })
}

// WithSlideDenom sets SLIDE_DENOM; the window advances by Length/SlideDenom
// samples between outputs.
func WithSlideDenom(n int) Option {
	return options.NoError(func(c *Config) { c.SlideDenom = n })
}

// WithWindow selects the windowing function applied before each transform.
func WithWindow(w fftcache.Window) Option {
	return options.NoError(func(c *Config) { c.Window = w })
}

// WithDCCenter subtracts each window's mean before transforming.
func WithDCCenter() Option {
	return options.NoError(func(c *Config) { c.DCCenter = true })
}

// WithCadence pins the time-domain sample interval (seconds) instead of
// deriving it from consecutive XTag differences.
func WithCadence(seconds float64) Option {
	return options.NoError(func(c *Config) { c.Cadence = &seconds })
}
