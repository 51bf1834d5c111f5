// Package dastime implements calendar parsing and the epoch conversions C2's
// units package pivots through: broken-down time normalization and the
// TAI-UTC leap second table, grounded on the original das2C time.c/tt2000.c.
package dastime

import "time"

// leapEntry is one row of the historical TAI-UTC (Delta AT) table: the UTC
// instant the row takes effect, the delta in seconds at that instant, and
// (pre-1972 only) the linear drift applied between table rows. The pre-1972
// rows and drift coefficients are the historical IERS/USNO values as carried
// by tt2000.c's LTS table; the flat post-1972 integer values are the familiar
// announced leap seconds.
type leapEntry struct {
	effective    time.Time
	delta        float64
	driftBaseMJD float64
	driftRate    float64
}

func mustDate(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

// leapTable is the built-in Delta(AT) table. It stops at the 2017-01-01 entry,
// the last leap second announced as of this table's construction; DeltaAT
// holds that value constant beyond it. A deployment that needs a newer table
// supplies one via SetLeapSecondTable.
var leapTable = []leapEntry{
	{mustDate(1960, 1, 1), 1.4178180, 37300.0, 0.0012960},
	{mustDate(1961, 1, 1), 1.4228180, 37300.0, 0.0012960},
	{mustDate(1961, 8, 1), 1.3728180, 37300.0, 0.0012960},
	{mustDate(1962, 1, 1), 1.8458580, 37665.0, 0.0011232},
	{mustDate(1963, 11, 1), 1.9458580, 37665.0, 0.0011232},
	{mustDate(1964, 1, 1), 3.2401300, 38761.0, 0.0012960},
	{mustDate(1964, 4, 1), 3.3401300, 38761.0, 0.0012960},
	{mustDate(1964, 9, 1), 3.4401300, 38761.0, 0.0012960},
	{mustDate(1965, 1, 1), 3.5401300, 38761.0, 0.0012960},
	{mustDate(1965, 3, 1), 3.6401300, 38761.0, 0.0012960},
	{mustDate(1965, 7, 1), 3.7401300, 38761.0, 0.0012960},
	{mustDate(1965, 9, 1), 3.8401300, 38761.0, 0.0012960},
	{mustDate(1966, 1, 1), 4.3131700, 39126.0, 0.0025920},
	{mustDate(1968, 2, 1), 4.2131700, 39126.0, 0.0025920},
	{mustDate(1972, 1, 1), 10.0, 0, 0},
	{mustDate(1972, 7, 1), 11.0, 0, 0},
	{mustDate(1973, 1, 1), 12.0, 0, 0},
	{mustDate(1974, 1, 1), 13.0, 0, 0},
	{mustDate(1975, 1, 1), 14.0, 0, 0},
	{mustDate(1976, 1, 1), 15.0, 0, 0},
	{mustDate(1977, 1, 1), 16.0, 0, 0},
	{mustDate(1978, 1, 1), 17.0, 0, 0},
	{mustDate(1979, 1, 1), 18.0, 0, 0},
	{mustDate(1980, 1, 1), 19.0, 0, 0},
	{mustDate(1981, 7, 1), 20.0, 0, 0},
	{mustDate(1982, 7, 1), 21.0, 0, 0},
	{mustDate(1983, 7, 1), 22.0, 0, 0},
	{mustDate(1985, 7, 1), 23.0, 0, 0},
	{mustDate(1988, 1, 1), 24.0, 0, 0},
	{mustDate(1990, 1, 1), 25.0, 0, 0},
	{mustDate(1991, 1, 1), 26.0, 0, 0},
	{mustDate(1992, 7, 1), 27.0, 0, 0},
	{mustDate(1993, 7, 1), 28.0, 0, 0},
	{mustDate(1994, 7, 1), 29.0, 0, 0},
	{mustDate(1996, 1, 1), 30.0, 0, 0},
	{mustDate(1997, 7, 1), 31.0, 0, 0},
	{mustDate(1999, 1, 1), 32.0, 0, 0},
	{mustDate(2006, 1, 1), 33.0, 0, 0},
	{mustDate(2009, 1, 1), 34.0, 0, 0},
	{mustDate(2012, 7, 1), 35.0, 0, 0},
	{mustDate(2015, 7, 1), 36.0, 0, 0},
	{mustDate(2017, 1, 1), 37.0, 0, 0},
}

var mjdEpoch = mustDate(1858, 11, 17)

func mjd(t time.Time) float64 {
	return t.Sub(mjdEpoch).Hours() / 24
}

// LeapSecondTable supplies Delta(AT) = TAI-UTC, in seconds, at a given UTC
// instant. The built-in table satisfies this without configuration; callers
// tracking leap seconds newer than this package's build can install their own
// via SetLeapSecondTable.
type LeapSecondTable interface {
	DeltaAT(t time.Time) float64
}

type builtinTable struct{}

func (builtinTable) DeltaAT(t time.Time) float64 {
	if t.Before(leapTable[0].effective) {
		return 0
	}

	e := leapTable[0]
	for _, row := range leapTable {
		if t.Before(row.effective) {
			break
		}
		e = row
	}

	if e.driftRate == 0 {
		return e.delta
	}

	return e.delta + (mjd(t)-e.driftBaseMJD)*e.driftRate
}

var activeTable LeapSecondTable = builtinTable{}

// SetLeapSecondTable replaces the package-wide Delta(AT) provider. Passing nil
// restores the built-in table.
func SetLeapSecondTable(t LeapSecondTable) {
	if t == nil {
		activeTable = builtinTable{}
		return
	}
	activeTable = t
}

// DeltaAT returns TAI-UTC, in seconds, in effect at t per the active leap
// second table.
func DeltaAT(t time.Time) float64 {
	return activeTable.DeltaAT(t)
}
