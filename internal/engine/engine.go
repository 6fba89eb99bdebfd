// Package engine wires a loaded config home to the vault and the note
// processor. The CLI, the watcher and the MCP server all go through it.
package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dangehub/obsidian-lunar-solar-sync/internal/convert"
	"github.com/dangehub/obsidian-lunar-solar-sync/internal/store"
	"github.com/dangehub/obsidian-lunar-solar-sync/internal/vault"
	"github.com/dangehub/obsidian-lunar-solar-sync/internal/watch"
)

// Engine runs conversions against the configured vault.
type Engine struct {
	Store     *store.Store
	Vault     *vault.Vault
	Processor *convert.Processor
	Logger    *log.Logger
}

// New opens the vault named in the store's config.
func New(st *store.Store, logger *log.Logger) (*Engine, error) {
	v, err := vault.Open(st.Config.Vault.Path)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	p := convert.NewProcessor(st.Config.Conversion)
	p.Logger = logger
	p.Root = v.Root
	return &Engine{Store: st, Vault: v, Processor: p, Logger: logger}, nil
}

// Locate turns a user-supplied note path into a vault-relative one. Absolute
// paths and paths relative to the working directory are tried before paths
// relative to the vault root.
func (e *Engine) Locate(path string) (string, error) {
	candidates := []string{path}
	if !filepath.IsAbs(path) {
		candidates = append(candidates, e.Vault.Abs(path))
	}
	for _, c := range candidates {
		info, err := os.Stat(c)
		if err != nil || info.IsDir() {
			continue
		}
		rel, err := e.Vault.Rel(c)
		if err != nil {
			continue
		}
		return rel, nil
	}
	return "", fmt.Errorf("note not found: %s", path)
}

func (e *Engine) processor(dryRun bool) *convert.Processor {
	p := *e.Processor
	p.DryRun = dryRun
	return &p
}

// SyncNote converts a single note. The summary holds exactly one outcome so
// the single-note and vault-wide runs report the same way.
func (e *Engine) SyncNote(path string, dryRun bool) (convert.Summary, error) {
	rel, err := e.Locate(path)
	if err != nil {
		return convert.Summary{}, err
	}
	return e.processor(dryRun).ProcessAll([]string{rel}), nil
}

// Documents lists the notes within the configured target paths.
func (e *Engine) Documents() ([]string, error) {
	return e.Vault.Scoped(e.Store.Config.Conversion.TargetPaths)
}

// SyncAll converts every note within the configured target paths.
func (e *Engine) SyncAll(dryRun bool) (convert.Summary, error) {
	docs, err := e.Documents()
	if err != nil {
		return convert.Summary{}, err
	}
	return e.processor(dryRun).ProcessAll(docs), nil
}

// Watch re-syncs notes as they change until ctx is cancelled. Each outcome is
// passed to report when it is non-nil.
func (e *Engine) Watch(ctx context.Context, report func(convert.Outcome)) error {
	w, err := watch.New(e.Vault, e.Store.Config.Conversion.TargetPaths, func(rel string) {
		out := e.Processor.ProcessFile(rel)
		if report != nil {
			report(out)
		}
	})
	if err != nil {
		return err
	}
	w.Logger = e.Logger
	w.Debounce = time.Duration(e.Store.Config.Watch.DebounceMS) * time.Millisecond
	return w.Run(ctx)
}
