package psd

import (
	"fmt"

	"github.com/das2gopher/das2stream/builder"
	"github.com/das2gopher/das2stream/daserr"
	"github.com/das2gopher/das2stream/dataset"
	"github.com/das2gopher/das2stream/format"
	"github.com/das2gopher/das2stream/units"
)

var hertz = mustUnit("Hz")

func mustUnit(s string) units.Unit {
	u, err := units.FromStr(s)
	if err != nil {
		panic(err)
	}

	return u
}

// offsetTransform is the per-plane scaling an already-offset (YScan) plane
// needs to become a frequency-domain YScan: the sample interval implied by
// its declared offset span, the output frequency spacing, and the amplitude
// scale factor applied to each PSD bin.
type offsetTransform struct {
	sampleInterval float64 // seconds between waveform samples
	freqInterval   float64 // output y-tag spacing, in freqUnits
	freqUnits      units.Unit
	ampScale       float64 // multiplies each |X_k|^2 bin
	outLen         int     // N/2+1 for a real input
}

// TransformOffsetPlane derives the frequency-domain plane descriptor and
// scale factors for an offset-form YScan, grounded on psd_xoffset.c's
// mkYscanPdFromYscanPd: invert the offset units (time to frequency), and
// scale amplitude-squared by N*Δt/S_hz so the result lands in
// `<signal units>^2 / Hz` (spec §4.10 "amplitude² is normalized to
// `V² … Hz⁻¹` shape by multiplying by N · Δt / S_hz").
func TransformOffsetPlane(src builder.PlaneDescriptor, cfg Config) (builder.PlaneDescriptor, offsetTransform, error) {
	if src.Kind != "yscan" {
		return builder.PlaneDescriptor{}, offsetTransform{}, fmt.Errorf(
			"psd: %w: TransformOffsetPlane requires a yscan plane, got kind %q", daserr.ErrInvalidOp, src.Kind)
	}
	if src.Codec.Count < cfg.Length {
		return builder.PlaneDescriptor{}, offsetTransform{}, fmt.Errorf(
			"psd: %w: plane %q has %d items, need at least %d for a %d-point transform",
			daserr.ErrInvalidOp, src.Name, src.Codec.Count, cfg.Length, cfg.Length)
	}

	sampleInterval := 1.0
	if src.HasOffsetSpan && src.Codec.Count > 1 {
		sampleInterval = src.OffsetSpanSeconds / float64(src.Codec.Count-1)
	}

	freqInterval := 1.0 / (sampleInterval * float64(cfg.Length))

	yOrigUnits := src.OffsetUnits
	yUnits, err := units.Invert(yOrigUnits)
	if err != nil {
		return builder.PlaneDescriptor{}, offsetTransform{}, err
	}

	ampScale := float64(cfg.Length) * sampleInterval
	if units.CanConvert(yUnits, hertz) {
		rYOutScale, err := units.ConvertTo(hertz, 1.0, yUnits)
		if err != nil {
			return builder.PlaneDescriptor{}, offsetTransform{}, err
		}
		yUnits = hertz
		ampScale = (float64(cfg.Length) * sampleInterval) / rYOutScale
		freqInterval *= rYOutScale
	}

	zUnits, err := units.Power(src.Units, 2)
	if err != nil {
		return builder.PlaneDescriptor{}, offsetTransform{}, err
	}
	yInv, err := units.Power(yUnits, -1)
	if err != nil {
		return builder.PlaneDescriptor{}, offsetTransform{}, err
	}
	zUnits, err = units.Multiply(zUnits, yInv)
	if err != nil {
		return builder.PlaneDescriptor{}, offsetTransform{}, err
	}

	outLen := cfg.Length/2 + 1

	out := builder.PlaneDescriptor{
		Name:          src.Name,
		Kind:          "yscan",
		Units:         zUnits,
		OffsetUnits:   yUnits,
		Fill:          src.Fill,
		HasFill:       src.HasFill,
		OffsetSpanSeconds: freqInterval * float64(outLen-1),
		HasOffsetSpan: false, // frequency span, not a time span; not collapse-eligible
		Codec:         dataset.Codec{ValueType: format.ValueReal64, Width: 8, Encoding: format.EncodingBinaryLE, Count: outLen},
	}

	return out, offsetTransform{
		sampleInterval: sampleInterval,
		freqInterval:   freqInterval,
		freqUnits:      yUnits,
		ampScale:       ampScale,
		outLen:         outLen,
	}, nil
}
