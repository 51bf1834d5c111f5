package dastime

import "time"

var (
	us2000Epoch = mustDate(2000, 1, 1)
	unix1970    = mustDate(1970, 1, 1)
	mj1958Epoch = mustDate(1958, 1, 1)
)

// ToUS2000 returns microseconds since 2000-01-01T00:00:00 UTC, the pivot
// units.ConvertTo uses for every non-TT2000 epoch unit (C2 "us2000").
func ToUS2000(t time.Time) float64 {
	return float64(t.UTC().Sub(us2000Epoch)) / float64(time.Microsecond)
}

// FromUS2000 is the inverse of ToUS2000.
func FromUS2000(us float64) time.Time {
	return us2000Epoch.Add(time.Duration(us * float64(time.Microsecond)))
}

// ToNS1970 returns nanoseconds since the Unix epoch ("ns1970").
func ToNS1970(t time.Time) int64 {
	return t.UTC().Sub(unix1970).Nanoseconds()
}

// FromNS1970 is the inverse of ToNS1970.
func FromNS1970(ns int64) time.Time {
	return unix1970.Add(time.Duration(ns))
}

// ToMJ1958 returns the fractional Modified Julian Day count since 1958-01-01
// UTC ("mj1958"), das2's preferred compact epoch for long baseline missions.
func ToMJ1958(t time.Time) float64 {
	return t.UTC().Sub(mj1958Epoch).Hours() / 24
}

// FromMJ1958 is the inverse of ToMJ1958.
func FromMJ1958(days float64) time.Time {
	return mj1958Epoch.Add(time.Duration(days * 24 * float64(time.Hour)))
}
