package lunar

import (
	"fmt"
	"time"

	"cloudeng.io/datetime"

	"github.com/dangehub/obsidian-lunar-solar-sync/internal/datefmt"
)

// SearchYears bounds FindNext. Leap months recur on a roughly 19 year cycle and
// some leap month/day pairs skip several cycles, so four cycles plus margin.
const SearchYears = 80

// Resolver turns lunar dates into calendar dates.
type Resolver struct {
	Converter Converter
	Formatter datefmt.Formatter
	// Now supplies "today"; defaults to time.Now in the local zone.
	Now func() time.Time
}

// NewResolver returns a Resolver using lunar-go and moment-style formatting.
func NewResolver() *Resolver {
	return &Resolver{Converter: SixTail{}, Formatter: datefmt.Moment{}, Now: time.Now}
}

// Today returns the current local date.
func (r *Resolver) Today() datetime.CalendarDate {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	return datetime.NewCalendarDateFromTime(now())
}

// ToSolar converts d for the given year. It reports false when leap
// resolution rejects the year or the converter fails.
func (r *Resolver) ToSolar(year int, d Date, strategy LeapStrategy) (datetime.CalendarDate, bool) {
	rm, ok := ResolveMonth(r.Converter, year, d, strategy)
	if !ok {
		return 0, false
	}
	cd, err := r.Converter.ToSolar(year, rm.Signed(), d.Day)
	if err != nil {
		return 0, false
	}
	return cd, true
}

// FindNext returns the first occurrence of d on or after today, trying the
// current year first and then up to SearchYears years in total.
func (r *Resolver) FindNext(d Date, strategy LeapStrategy) (datetime.CalendarDate, bool) {
	today := r.Today()
	for i := 0; i < SearchYears; i++ {
		cd, ok := r.ToSolar(today.Year()+i, d, strategy)
		if ok && !Before(cd, today) {
			return cd, true
		}
	}
	return 0, false
}

// BuildRange converts d for every year in [center-past, center+future] and
// returns key/value pairs rendered through keyPattern and dateFormat. Years
// that fail to convert are omitted; a later year wins a colliding key.
func (r *Resolver) BuildRange(d Date, strategy LeapStrategy, center, past, future int, keyPattern, dateFormat string) (*Fields, error) {
	f := r.Formatter
	if f == nil {
		f = datefmt.Moment{}
	}
	out := NewFields()
	for y := center - past; y <= center+future; y++ {
		cd, ok := r.ToSolar(y, d, strategy)
		if !ok {
			continue
		}
		key, err := datefmt.Render(f, keyPattern, cd)
		if err != nil {
			return nil, fmt.Errorf("key pattern %q: %w", keyPattern, err)
		}
		value, err := datefmt.Render(f, dateFormat, cd)
		if err != nil {
			return nil, fmt.Errorf("date format %q: %w", dateFormat, err)
		}
		out.Set(key, value)
	}
	return out, nil
}

// Before reports whether a falls on an earlier day than b. CalendarDate packs
// year, month and day from the high bits down, so the values order directly.
func Before(a, b datetime.CalendarDate) bool {
	return a < b
}
