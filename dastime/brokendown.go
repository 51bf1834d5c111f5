package dastime

import (
	"fmt"
	"time"
)

// BrokenDown is a calendar instant split into fields, the representation
// das2/time.c's das_time_t uses throughout its parsing and formatting paths.
// Second carries sub-second precision so a single field holds leap-second-free
// fractional time.
type BrokenDown struct {
	Year   int
	Month  int // 1-12
	Day    int // day of month, 1-31
	YDay   int // day of year, filled in by Normalize; Normalize and ToTime ignore it on input
	Hour   int
	Minute int
	Second float64
}

// Normalize cascades any out-of-range field (Second >= 60, Minute >= 60, Day
// past the end of Month, negative fields, ...) up into the field above it and
// fills in YDay, the way das2/time.c's dt_tnorm does after arithmetic that can
// leave a das_time_t's fields out of their natural ranges.
func Normalize(bd BrokenDown) BrokenDown {
	t := time.Date(bd.Year, time.Month(bd.Month), bd.Day, bd.Hour, bd.Minute, 0, 0, time.UTC)

	wholeSec := int64(bd.Second)
	frac := bd.Second - float64(wholeSec)
	t = t.Add(time.Duration(wholeSec) * time.Second)

	out := fromTime(t)
	out.Second += frac

	return out
}

func fromTime(t time.Time) BrokenDown {
	t = t.UTC()
	return BrokenDown{
		Year:   t.Year(),
		Month:  int(t.Month()),
		Day:    t.Day(),
		YDay:   t.YearDay(),
		Hour:   t.Hour(),
		Minute: t.Minute(),
		Second: float64(t.Second()),
	}
}

// ToTime converts bd to a time.Time, dropping sub-nanosecond precision loss
// only past the 9th decimal place of Second.
func (bd BrokenDown) ToTime() time.Time {
	sec := int(bd.Second)
	nsec := int((bd.Second - float64(sec)) * 1e9)

	return time.Date(bd.Year, time.Month(bd.Month), bd.Day, bd.Hour, bd.Minute, sec, nsec, time.UTC)
}

// FromTime converts a time.Time to a normalized BrokenDown.
func FromTime(t time.Time) BrokenDown {
	t = t.UTC()
	bd := fromTime(t)
	bd.Second += float64(t.Nanosecond()) / 1e9

	return bd
}

func (bd BrokenDown) String() string {
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%09.6fZ",
		bd.Year, bd.Month, bd.Day, bd.Hour, bd.Minute, bd.Second)
}
