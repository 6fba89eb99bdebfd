package lunar

// ResolvedMonth is the month handed to Converter.ToSolar after leap resolution.
type ResolvedMonth struct {
	Month int
	Leap  bool
}

// Signed returns the month in the converter's convention: negative for a leap month.
func (r ResolvedMonth) Signed() int {
	if r.Leap {
		return -r.Month
	}
	return r.Month
}

// ResolveMonth picks the effective month of d for targetYear under strategy.
// It reports false when the date cannot be placed in that year (Strict only).
// A failed leap-month lookup counts as "no leap month".
func ResolveMonth(conv Converter, targetYear int, d Date, strategy LeapStrategy) (ResolvedMonth, bool) {
	if !d.Leap {
		return ResolvedMonth{Month: d.Month}, true
	}
	leap, err := conv.LeapMonth(targetYear)
	hasLeap := err == nil && leap == d.Month
	if hasLeap {
		return ResolvedMonth{Month: d.Month, Leap: true}, true
	}
	switch strategy {
	case Forward:
		return ResolvedMonth{Month: d.Month}, true
	case Backward:
		// Month 12 stays in month 12; the date never rolls into the next year.
		return ResolvedMonth{Month: min(d.Month+1, 12)}, true
	default:
		return ResolvedMonth{}, false
	}
}
