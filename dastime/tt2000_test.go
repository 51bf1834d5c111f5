package dastime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestToTT2000RoundTrip(t *testing.T) {
	r := require.New(t)

	in := time.Date(2021, 6, 15, 13, 45, 30, 250000000, time.UTC)
	ns := ToTT2000(in)
	out := FromTT2000(ns)

	r.True(in.Equal(out), "expected %v, got %v", in, out)
}

func TestToTT2000EpochIsZero(t *testing.T) {
	r := require.New(t)

	r.Equal(int64(0), ToTT2000(tt2000Epoch))
}

func Test1972JulyLeapSecondStep(t *testing.T) {
	r := require.New(t)

	// Delta(AT) is flat on both sides of this boundary (10.0 before,
	// 11.0 after), so one wall-clock second of elapsed UTC time should read
	// as exactly two seconds of elapsed TT2000.
	before := time.Date(1972, 6, 30, 23, 59, 59, 0, time.UTC)
	after := time.Date(1972, 7, 1, 0, 0, 0, 0, time.UTC)

	diff := ToTT2000(after) - ToTT2000(before)
	r.Equal(int64(2*time.Second), diff)
}
