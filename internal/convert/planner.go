package convert

import (
	"github.com/dangehub/obsidian-lunar-solar-sync/internal/datefmt"
	"github.com/dangehub/obsidian-lunar-solar-sync/internal/lunar"
	"github.com/dangehub/obsidian-lunar-solar-sync/internal/note"
)

// Planner computes the fields a note should carry without touching disk.
type Planner struct {
	Resolver *lunar.Resolver
	Settings Settings
}

// NewPlanner returns a Planner using the production resolver.
func NewPlanner(settings Settings) *Planner {
	return &Planner{Resolver: lunar.NewResolver(), Settings: settings}
}

// Strategy returns the leap strategy for n: the per-note override when it
// names a known strategy, the configured default otherwise.
func (p *Planner) Strategy(n *note.Note) lunar.LeapStrategy {
	override, _ := n.String(p.Settings.LeapStrategyKey)
	return lunar.ParseStrategy(override, p.Settings.DefaultLeapStrategy)
}

// Plan runs the per-note state machine: frontmatter, source field, notation,
// strategy, conversion and finally a diff against the existing values. The
// error is non-nil only for formatter failures.
func (p *Planner) Plan(n *note.Note) (Outcome, error) {
	if !n.HasFrontmatter {
		return skipped(ReasonNoFrontmatter), nil
	}
	raw, ok := n.String(p.Settings.SourceKey)
	if !ok {
		return skipped(ReasonNoSourceKey), nil
	}
	date, ok := lunar.Parse(raw)
	if !ok {
		return skipped(ReasonInvalidFormat), nil
	}
	strategy := p.Strategy(n)

	values, err := p.Compute(date, strategy)
	if err != nil {
		return Outcome{}, err
	}
	if values.Len() == 0 {
		out := skipped(ReasonNoSolar)
		out.Strategy = strategy
		return out, nil
	}

	changes := lunar.NewFields()
	for _, k := range values.Keys() {
		v, _ := values.Get(k)
		if cur, ok := n.String(k); ok && cur == v {
			continue
		}
		changes.Set(k, v)
	}
	out := Outcome{Status: StatusUnchanged, Values: values, Changes: changes, Strategy: strategy}
	if changes.Len() > 0 {
		out.Status = StatusUpdated
	}
	return out, nil
}

// Compute returns the output fields for a lunar date under the configured
// mode. An empty result means no solar date could be found.
func (p *Planner) Compute(date lunar.Date, strategy lunar.LeapStrategy) (*lunar.Fields, error) {
	s := p.Settings
	r := p.Resolver
	if s.OutputMode == Range {
		return r.BuildRange(date, strategy, r.Today().Year(), s.RangePast, s.RangeFuture, s.OutputKeyPattern, s.OutputDateFormat)
	}
	fields := lunar.NewFields()
	next, ok := r.FindNext(date, strategy)
	if !ok {
		return fields, nil
	}
	f := r.Formatter
	if f == nil {
		f = datefmt.Moment{}
	}
	value, err := datefmt.Render(f, s.OutputDateFormat, next)
	if err != nil {
		return nil, err
	}
	fields.Set(s.OutputKeySingle, value)
	return fields, nil
}
