package watch

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/dangehub/obsidian-lunar-solar-sync/internal/vault"
)

// DefaultDebounce is how long a file must stay quiet before it is handed on.
const DefaultDebounce = 300 * time.Millisecond

// Handler receives the vault-relative path of a note that settled.
type Handler func(rel string)

// Watcher re-syncs notes when they change on disk. It watches the whole vault
// tree, skipping dot-directories, and only reports notes within Targets.
type Watcher struct {
	Vault    *vault.Vault
	Targets  []string
	Debounce time.Duration
	Logger   *log.Logger
	Handle   Handler

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	pending map[string]time.Time
}

// New creates a Watcher for v. Call Run to start it.
func New(v *vault.Vault, targets []string, handle Handler) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	w := &Watcher{
		Vault:    v,
		Targets:  targets,
		Debounce: DefaultDebounce,
		Logger:   log.New(io.Discard),
		Handle:   handle,
		fsw:      fsw,
		pending:  make(map[string]time.Time),
	}
	if err := w.addTree(v.Root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// addTree registers root and every non-hidden directory below it.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.Vault.Root && vault.Hidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		w.Logger.Debug("watching directory", "path", path)
		return nil
	})
}

// WatchList returns the directories currently watched.
func (w *Watcher) WatchList() []string {
	dirs := w.fsw.WatchList()
	sort.Strings(dirs)
	return dirs
}

// Run processes events until ctx is cancelled, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	tick := w.Debounce / 3
	if tick <= 0 {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.Logger.Error("watch error", "err", err)

		case <-ticker.C:
			w.flush()
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if vault.Hidden(filepath.Base(event.Name)) {
				return
			}
			if err := w.addTree(event.Name); err != nil {
				w.Logger.Warn("failed to watch new directory", "path", event.Name, "err", err)
			}
			return
		}
	}
	if !vault.IsNote(event.Name) {
		return
	}
	rel, err := w.Vault.Rel(event.Name)
	if err != nil || !vault.InScope(rel, w.Targets) {
		return
	}
	w.mu.Lock()
	w.pending[rel] = time.Now()
	w.mu.Unlock()
}

// flush hands on every note that has been quiet for the debounce window.
func (w *Watcher) flush() {
	w.mu.Lock()
	now := time.Now()
	var ready []string
	for rel, at := range w.pending {
		if now.Sub(at) >= w.Debounce {
			ready = append(ready, rel)
			delete(w.pending, rel)
		}
	}
	w.mu.Unlock()

	sort.Strings(ready)
	for _, rel := range ready {
		w.Logger.Debug("note settled", "path", rel)
		if w.Handle != nil {
			w.Handle(rel)
		}
	}
}
