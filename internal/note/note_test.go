package note

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParse_WithFrontmatter(t *testing.T) {
	raw := []byte(`---
title: Grandma
lunar: 2023-闰02-10
tags:
  - family
---

# Grandma

Body text.
`)
	n, err := Parse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !n.HasFrontmatter {
		t.Fatal("expected frontmatter")
	}
	if v, ok := n.String("lunar"); !ok || v != "2023-闰02-10" {
		t.Errorf("lunar = %q, %v", v, ok)
	}
	if _, ok := n.String("tags"); ok {
		t.Error("a list is not a string")
	}
	if diff := cmp.Diff([]string{"title", "lunar", "tags"}, n.Keys()); diff != "" {
		t.Errorf("keys (-want +got):\n%s", diff)
	}
	if !strings.HasPrefix(n.Body, "\n# Grandma") {
		t.Errorf("body = %q", n.Body)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	raw := []byte("# Just a markdown file\n\n---\nlunar: 2023-02-10\n---\n")
	n, err := Parse(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.HasFrontmatter {
		t.Error("frontmatter must start the document")
	}
	if n.Body != string(raw) {
		t.Error("body should be the whole document")
	}
}

func TestParse_UnterminatedFrontmatter(t *testing.T) {
	n, err := Parse([]byte("---\nlunar: 2023-02-10\nno closing delimiter"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.HasFrontmatter {
		t.Error("unterminated block is not frontmatter")
	}
}

func TestParse_EmptyFrontmatter(t *testing.T) {
	n, err := Parse([]byte("---\n---\nbody\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !n.HasFrontmatter {
		t.Fatal("empty block is still frontmatter")
	}
	if len(n.Keys()) != 0 || n.Body != "body\n" {
		t.Errorf("keys = %v, body = %q", n.Keys(), n.Body)
	}
}

func TestParse_InvalidYAML(t *testing.T) {
	if _, err := Parse([]byte("---\nlunar: [unclosed\n---\n")); err == nil {
		t.Error("expected YAML error")
	}
	if _, err := Parse([]byte("---\n- a\n- b\n---\n")); err == nil {
		t.Error("expected error for a list at the top level")
	}
}

func TestString_ScalarKinds(t *testing.T) {
	n, err := Parse([]byte(`---
quoted: "2023-02-10"
bare: 2023-02-10
number: 20230210
flag: true
empty:
---
`))
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		key  string
		want string
		ok   bool
	}{
		{"quoted", "2023-02-10", true},
		{"bare", "2023-02-10", true},
		{"number", "", false},
		{"flag", "", false},
		{"empty", "", false},
		{"missing", "", false},
	}
	for _, tt := range tests {
		got, ok := n.String(tt.key)
		if got != tt.want || ok != tt.ok {
			t.Errorf("String(%q) = %q, %v; want %q, %v", tt.key, got, ok, tt.want, tt.ok)
		}
	}
}

func TestSetAndBytes(t *testing.T) {
	raw := "---\n# people\ntitle: Grandma # mum's side\nlunar: 2023-02-10\nsolar: old\n---\nBody stays.\n"
	n, err := Parse([]byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	n.Set("solar", "2026-03-29")
	n.Set("solar_2027", "2027-03-18")

	out, err := n.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	got := string(out)
	for _, want := range []string{
		"# people",
		"# mum's side",
		"lunar: 2023-02-10\n",
		"solar: \"2026-03-29\"\n",
		"solar_2027: \"2027-03-18\"\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if !strings.HasSuffix(got, "---\nBody stays.\n") {
		t.Errorf("body not preserved:\n%s", got)
	}
	if strings.Index(got, "title:") > strings.Index(got, "solar_2027:") {
		t.Error("new keys must be appended after existing ones")
	}

	again, err := Parse(out)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := again.String("solar"); v != "2026-03-29" {
		t.Errorf("round trip solar = %q", v)
	}
}

func TestBytes_UnchangedIsIdentical(t *testing.T) {
	raw := "---\nb: 1\na:   \"x\"\n---\nbody"
	n, err := Parse([]byte(raw))
	if err != nil {
		t.Fatal(err)
	}
	out, err := n.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != raw {
		t.Errorf("got %q", out)
	}
}

func TestLoadSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "note.md")
	if err := os.WriteFile(path, []byte("---\nlunar: 2024-08-15\n---\ntext\n"), 0600); err != nil {
		t.Fatal(err)
	}
	n, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if n.FilePath != path {
		t.Errorf("FilePath = %q", n.FilePath)
	}
	n.Set("solar", "2026-09-25")
	if err := Save(path, n); err != nil {
		t.Fatalf("Save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}
	reloaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := reloaded.String("solar"); v != "2026-09-25" {
		t.Errorf("solar = %q", v)
	}
	if reloaded.Body != "text\n" {
		t.Errorf("body = %q", reloaded.Body)
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.md")); err == nil {
		t.Error("expected error for missing file")
	}
}
