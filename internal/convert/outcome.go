package convert

import (
	"fmt"

	cerrors "cloudeng.io/errors"

	"github.com/dangehub/obsidian-lunar-solar-sync/internal/lunar"
)

// Status is the terminal state of one processed note.
type Status string

const (
	StatusUpdated   Status = "updated"
	StatusUnchanged Status = "unchanged"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Reasons attached to skipped and failed outcomes.
const (
	ReasonNoFrontmatter = "no-frontmatter"
	ReasonNoSourceKey   = "no-source-key"
	ReasonInvalidFormat = "invalid-format"
	ReasonNoSolar       = "no-solar"
	ReasonException     = "exception"
)

// Outcome describes what happened to one note.
type Outcome struct {
	Path   string
	Status Status
	Reason string
	// Values holds every computed field; Changes only those that differ from the note.
	Values  *lunar.Fields
	Changes *lunar.Fields
	// Strategy is the leap strategy in effect after per-note overrides.
	Strategy lunar.LeapStrategy
	Err      error
}

func skipped(reason string) Outcome {
	return Outcome{Status: StatusSkipped, Reason: reason}
}

func failed(err error) Outcome {
	return Outcome{Status: StatusFailed, Reason: ReasonException, Err: err}
}

func (o Outcome) String() string {
	if o.Reason != "" {
		return fmt.Sprintf("%s (%s)", o.Status, o.Reason)
	}
	return string(o.Status)
}

// Summary tallies the outcomes of a run.
type Summary struct {
	Outcomes  []Outcome
	Updated   int
	Unchanged int
	Skipped   int
	Failed    int
}

// Add records one outcome.
func (s *Summary) Add(o Outcome) {
	s.Outcomes = append(s.Outcomes, o)
	switch o.Status {
	case StatusUpdated:
		s.Updated++
	case StatusUnchanged:
		s.Unchanged++
	case StatusSkipped:
		s.Skipped++
	case StatusFailed:
		s.Failed++
	}
}

// Total returns the number of notes seen.
func (s Summary) Total() int {
	return len(s.Outcomes)
}

func (s Summary) String() string {
	return fmt.Sprintf("%d updated, %d unchanged, %d skipped, %d failed", s.Updated, s.Unchanged, s.Skipped, s.Failed)
}

// Err joins the errors of all failed notes, or returns nil.
func (s Summary) Err() error {
	var errs cerrors.M
	for _, o := range s.Outcomes {
		if o.Status == StatusFailed {
			errs.Append(fmt.Errorf("%s: %w", o.Path, o.Err))
		}
	}
	return errs.Err()
}
