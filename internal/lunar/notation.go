package lunar

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Tag is the optional prefix a note may put in front of a lunar date.
const Tag = "农历"

// LeapMarker marks the month of a lunar date as the leap month.
const LeapMarker = "闰"

var notationRe = regexp.MustCompile(`^(?:` + Tag + `)?\s*(\d{4})-(` + LeapMarker + `)?(\d{2})-(\d{2})\s*$`)

// Date is a date on the lunar calendar as written in a note.
// Month and Day are not range checked; the converter rejects impossible dates.
type Date struct {
	Year  int
	Month int
	Day   int
	Leap  bool
}

// Parse reads the constrained lunar notation, e.g. "2023-02-10",
// "2023-闰02-10" or "农历 2023-02-10". It reports false for anything else.
func Parse(raw string) (Date, bool) {
	m := notationRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return Date{}, false
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[3])
	day, _ := strconv.Atoi(m[4])
	return Date{Year: year, Month: month, Day: day, Leap: m[2] != ""}, true
}

// String renders the date back into canonical notation.
func (d Date) String() string {
	leap := ""
	if d.Leap {
		leap = LeapMarker
	}
	return fmt.Sprintf("%04d-%s%02d-%02d", d.Year, leap, d.Month, d.Day)
}
