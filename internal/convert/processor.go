package convert

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/dangehub/obsidian-lunar-solar-sync/internal/note"
)

// Processor applies a Planner to notes on disk.
type Processor struct {
	Planner *Planner
	Logger  *log.Logger
	// DryRun computes outcomes without writing any file.
	DryRun bool
	// Root, when set, anchors relative paths. Outcomes keep the path as given.
	Root string
}

// NewProcessor returns a Processor that logs nowhere.
func NewProcessor(settings Settings) *Processor {
	return &Processor{Planner: NewPlanner(settings), Logger: log.New(io.Discard)}
}

func (p *Processor) logger() *log.Logger {
	if p.Logger == nil {
		p.Logger = log.New(io.Discard)
	}
	return p.Logger
}

func (p *Processor) abs(path string) string {
	if p.Root == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.Root, filepath.FromSlash(path))
}

// ProcessFile converts one note. It never returns an error: read, parse,
// format and write failures become a failed outcome, and so does a panic.
func (p *Processor) ProcessFile(path string) (out Outcome) {
	logger := p.logger()
	defer func() {
		if r := recover(); r != nil {
			out = failed(fmt.Errorf("panic: %v", r))
			out.Path = path
			logger.Error("conversion panicked", "path", path, "err", r)
		}
	}()

	n, err := note.Load(p.abs(path))
	if err != nil {
		out = failed(err)
		out.Path = path
		logger.Error("failed to load note", "path", path, "err", err)
		return out
	}

	out, err = p.Planner.Plan(n)
	out.Path = path
	if err != nil {
		out = failed(err)
		out.Path = path
		logger.Error("failed to compute solar dates", "path", path, "err", err)
		return out
	}
	if out.Status != StatusUpdated {
		logger.Debug("note not changed", "path", path, "status", out.String())
		return out
	}

	if p.DryRun {
		logger.Info("would update note", "path", path, "fields", out.Changes.Keys())
		return out
	}
	for _, k := range out.Changes.Keys() {
		v, _ := out.Changes.Get(k)
		n.Set(k, v)
	}
	if err := note.Save(p.abs(path), n); err != nil {
		out = failed(err)
		out.Path = path
		logger.Error("failed to save note", "path", path, "err", err)
		return out
	}
	logger.Info("updated note", "path", path, "fields", out.Changes.Keys())
	return out
}

// ProcessAll converts paths in order. A failure on one note does not stop the
// others.
func (p *Processor) ProcessAll(paths []string) Summary {
	var s Summary
	for _, path := range paths {
		s.Add(p.ProcessFile(path))
	}
	p.logger().Info("sync finished", "notes", s.Total(), "updated", s.Updated, "unchanged", s.Unchanged, "skipped", s.Skipped, "failed", s.Failed)
	return s
}
