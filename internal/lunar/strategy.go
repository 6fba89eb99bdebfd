package lunar

import "strings"

// LeapStrategy decides how a leap-month date maps onto a year that may lack that leap month.
type LeapStrategy string

const (
	// Strict only converts in years that have the same leap month.
	Strict LeapStrategy = "strict"
	// Forward falls back to the ordinary month of the same number.
	Forward LeapStrategy = "forward"
	// Backward falls back to the following ordinary month, clamped at 12.
	Backward LeapStrategy = "backward"
)

var strategyLabels = map[LeapStrategy]string{
	Strict:   "严格",
	Forward:  "向前",
	Backward: "向后",
}

// Strategies lists every strategy in display order.
func Strategies() []LeapStrategy {
	return []LeapStrategy{Strict, Forward, Backward}
}

// Valid reports whether s is one of the three known strategies.
func (s LeapStrategy) Valid() bool {
	_, ok := strategyLabels[s]
	return ok
}

// Label returns the human-readable form accepted in note overrides.
func (s LeapStrategy) Label() string {
	return strategyLabels[s]
}

// ParseStrategy maps an override value to a strategy. Both the identifier
// ("forward") and the label ("向前") are accepted. Anything else, including
// the empty string, yields fallback.
func ParseStrategy(text string, fallback LeapStrategy) LeapStrategy {
	text = strings.TrimSpace(text)
	for s, label := range strategyLabels {
		if text == string(s) || text == label {
			return s
		}
	}
	return fallback
}
