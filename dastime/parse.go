package dastime

import (
	"fmt"
	"strconv"
	"strings"
)

var monthNames = []string{
	"january", "february", "march", "april", "may", "june",
	"july", "august", "september", "october", "november", "december",
}

func monthFromName(tok string) (int, bool) {
	tok = strings.ToLower(tok)
	for i, name := range monthNames {
		if strings.HasPrefix(name, tok) && len(tok) >= 3 {
			return i + 1, true
		}
	}

	return 0, false
}

// isDelim reports whether r is one of the field delimiters das2/d1_parsetime.c
// splits on: whitespace, '/', '-', ':', ',', '_', ';', plus 'T' for the PDS/ISO
// date-time separator.
func isDelim(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\r', '/', '-', ':', ',', '_', ';', 'T':
		return true
	default:
		return false
	}
}

// Parse accepts the common ASCII date/time forms das2 streams carry in-band:
// ISO 8601 ("2020-01-02T03:04:05.6Z"), space/slash delimited ("2020-01-02
// 03:04:05"), day-of-year ("2020-015T00:00"), and month-name forms
// ("2 Jan 2020 03:04:05"). It is forgiving about trailing fields: anything
// from seconds on down may be omitted and defaults to zero.
func Parse(s string) (BrokenDown, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "Z")
	if s == "" {
		return BrokenDown{}, fmt.Errorf("dastime: empty time string")
	}

	fields := strings.FieldsFunc(s, isDelim)
	if len(fields) == 0 {
		return BrokenDown{}, fmt.Errorf("dastime: no fields in %q", s)
	}

	var nums []float64
	var month int
	for _, f := range fields {
		if m, ok := monthFromName(f); ok {
			month = m
			continue
		}
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return BrokenDown{}, fmt.Errorf("dastime: parse %q: unrecognized field %q", s, f)
		}
		nums = append(nums, v)
	}

	bd := BrokenDown{}
	switch {
	case month != 0 && len(nums) >= 2:
		// "2 Jan 2020 [03 04 05]" or "Jan 2 2020 [...]"
		bd.Day = int(nums[0])
		bd.Year = int(nums[1])
		bd.Month = month
		nums = nums[2:]
	case len(nums) >= 2 && month == 0 && looksLikeYearDOY(fields, nums):
		// "2020 015 [00 00 00]" (year, day-of-year)
		bd.Year = int(nums[0])
		bd.YDay = int(nums[1])
		nums = nums[2:]
	case len(nums) >= 3:
		bd.Year = int(nums[0])
		bd.Month = int(nums[1])
		bd.Day = int(nums[2])
		nums = nums[3:]
	default:
		return BrokenDown{}, fmt.Errorf("dastime: parse %q: not enough date fields", s)
	}

	if len(nums) >= 1 {
		bd.Hour = int(nums[0])
	}
	if len(nums) >= 2 {
		bd.Minute = int(nums[1])
	}
	if len(nums) >= 3 {
		bd.Second = nums[2]
	}

	if bd.YDay != 0 && bd.Month == 0 {
		bd = yDayToMonthDay(bd)
	}

	return bd, nil
}

// looksLikeYearDOY is a narrow heuristic: with no month token and a first
// field that reads like a 4-digit year, the date is a year/day-of-year pair
// when the second field is written with three digits ("015") or is larger
// than any month or day of month (> 31). Anything else falls through to the
// year/month/day reading, and a bare two-field date is rejected there.
func looksLikeYearDOY(fields []string, nums []float64) bool {
	return len(fields[0]) == 4 && (len(fields[1]) == 3 || nums[1] > 31)
}

var cumDaysNonLeap = [12]int{0, 31, 59, 90, 120, 151, 181, 212, 243, 273, 304, 334}
var cumDaysLeap = [12]int{0, 31, 60, 91, 121, 152, 182, 213, 244, 274, 305, 335}

func isLeapYear(y int) bool {
	return y%4 == 0 && (y%100 != 0 || y%400 == 0)
}

func yDayToMonthDay(bd BrokenDown) BrokenDown {
	cum := cumDaysNonLeap
	if isLeapYear(bd.Year) {
		cum = cumDaysLeap
	}

	month := 1
	for m := 11; m >= 0; m-- {
		if bd.YDay > cum[m] {
			month = m + 1
			break
		}
	}
	bd.Month = month
	bd.Day = bd.YDay - cum[month-1]

	return bd
}
