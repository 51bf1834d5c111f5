package dastime

import "time"

// tt2000Epoch is this package's TT2000 origin: 2000-01-01T00:00:00 UTC. Unlike
// CDF's TT2000 (which references 2000-01-01T11:58:55.816 TAI so that its zero
// lines up with TT noon), das2stream only needs a leap-second-aware integer
// timescale internally consistent across the stream, so it anchors TT2000 at
// a plain UTC midnight and lets Delta(AT) differences carry the leap seconds.
var tt2000Epoch = mustDate(2000, 1, 1)

var tt2000EpochDeltaAT = DeltaAT(tt2000Epoch)

// ToTT2000 converts a UTC instant to nanoseconds on this package's TT2000
// timescale: a monotonic count that absorbs leap seconds, so a duration
// spanning a leap second reads one second longer than the same UTC clock
// interval elsewhere (C2 "an epoch unit names a point in time", C4 TT2000).
func ToTT2000(t time.Time) int64 {
	t = t.UTC()
	naive := t.Sub(tt2000Epoch)
	leapDelta := DeltaAT(t) - tt2000EpochDeltaAT

	return naive.Nanoseconds() + int64(leapDelta*1e9)
}

// FromTT2000 is the inverse of ToTT2000. Delta(AT) is piecewise constant, so a
// fixed-point iteration over the correction converges in at most a couple of
// steps: the correction only moves when the guess crosses a leap boundary.
func FromTT2000(ns int64) time.Time {
	guess := tt2000Epoch.Add(time.Duration(ns))

	for i := 0; i < 3; i++ {
		leapDelta := DeltaAT(guess) - tt2000EpochDeltaAT
		corrected := tt2000Epoch.Add(time.Duration(ns - int64(leapDelta*1e9)))
		if corrected.Equal(guess) {
			break
		}
		guess = corrected
	}

	return guess
}
