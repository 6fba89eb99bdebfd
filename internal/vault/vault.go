package vault

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Vault is a directory tree of markdown notes.
type Vault struct {
	Root string
}

// Open validates path and returns a Vault rooted at its absolute form.
func Open(path string) (*Vault, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("no vault configured (run: lunarsync init --vault <path>)")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	info, err := os.Stat(absPath)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("path does not exist or is not a directory: %s", absPath)
	}
	return &Vault{Root: absPath}, nil
}

// IsNote reports whether name looks like a markdown note.
func IsNote(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".md")
}

// Hidden reports whether a directory should be skipped when walking the vault.
func Hidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// Documents returns the vault-relative slash paths of every note, sorted.
// Dot-directories such as .obsidian, .git and .trash are skipped.
func (v *Vault) Documents() ([]string, error) {
	var docs []string
	err := filepath.WalkDir(v.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != v.Root && Hidden(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !IsNote(d.Name()) {
			return nil
		}
		rel, err := v.Rel(path)
		if err != nil {
			return err
		}
		docs = append(docs, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan vault: %w", err)
	}
	sort.Strings(docs)
	return docs, nil
}

// Scoped returns the documents that fall within targets.
func (v *Vault) Scoped(targets []string) ([]string, error) {
	docs, err := v.Documents()
	if err != nil {
		return nil, err
	}
	var out []string
	for _, d := range docs {
		if InScope(d, targets) {
			out = append(out, d)
		}
	}
	return out, nil
}

// Abs turns a vault-relative path into an absolute one.
func (v *Vault) Abs(rel string) string {
	return filepath.Join(v.Root, filepath.FromSlash(rel))
}

// Rel turns a path inside the vault into a vault-relative slash path.
func (v *Vault) Rel(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}
	rel, err := filepath.Rel(v.Root, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside the vault %s", absPath, v.Root)
	}
	return filepath.ToSlash(rel), nil
}

// InScope reports whether doc matches one of targets. A target matches when
// it equals doc or names a folder containing it. An empty target list, or one
// with only blank entries, matches everything.
func InScope(doc string, targets []string) bool {
	doc = strings.TrimPrefix(filepath.ToSlash(doc), "/")
	scoped := false
	for _, t := range targets {
		t = strings.TrimPrefix(filepath.ToSlash(strings.TrimSpace(t)), "/")
		if t == "" {
			continue
		}
		scoped = true
		if doc == t {
			return true
		}
		if !strings.HasSuffix(t, "/") {
			t += "/"
		}
		if strings.HasPrefix(doc, t) {
			return true
		}
	}
	return !scoped
}
