package lunar

import (
	"fmt"

	"cloudeng.io/datetime"
	"github.com/6tail/lunar-go/calendar"
)

// Converter is the astronomical lunar/solar primitive.
type Converter interface {
	// LeapMonth returns the leap month of the lunar year, or 0 when it has none.
	LeapMonth(year int) (int, error)
	// ToSolar converts a lunar date to a calendar date. A negative month
	// selects the leap month of that number.
	ToSolar(year, month, day int) (datetime.CalendarDate, error)
}

// SixTail is the Converter backed by lunar-go. The library panics on dates
// that do not exist; those panics are returned as errors.
type SixTail struct{}

func (SixTail) LeapMonth(year int) (leap int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lunar year %d: %v", year, r)
		}
	}()
	return calendar.NewLunarYear(year).GetLeapMonth(), nil
}

func (SixTail) ToSolar(year, month, day int) (cd datetime.CalendarDate, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lunar %d/%d/%d: %v", year, month, day, r)
		}
	}()
	solar := calendar.NewLunarFromYmd(year, month, day).GetSolar()
	return datetime.NewCalendarDate(solar.GetYear(), datetime.Month(solar.GetMonth()), solar.GetDay()), nil
}
