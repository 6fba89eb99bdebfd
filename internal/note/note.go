package note

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Note is a markdown document split into its YAML frontmatter and body.
// The frontmatter is kept as a yaml.Node mapping so that keys the caller
// never touches keep their order, comments and quoting.
type Note struct {
	HasFrontmatter bool
	Body           string
	FilePath       string

	raw   string
	meta  *yaml.Node
	dirty bool
}

// Parse splits a markdown document into frontmatter and body. Frontmatter is
// delimited by --- lines at the very start of the document. A document with
// no block, or with an opening --- that is never closed, has no frontmatter.
func Parse(raw []byte) (*Note, error) {
	content := string(raw)
	n := &Note{Body: content, raw: content}

	first, rest, ok := cutLine(content)
	if !ok || !isFence(first) {
		return n, nil
	}
	fm, body, ok := splitClosing(rest)
	if !ok {
		return n, nil
	}

	meta, err := decodeMapping(fm)
	if err != nil {
		return nil, err
	}
	n.HasFrontmatter = true
	n.Body = body
	n.meta = meta
	return n, nil
}

// cutLine returns the first line without its terminator and the remainder.
func cutLine(s string) (line, rest string, ok bool) {
	i := strings.IndexByte(s, '\n')
	if i < 0 {
		return s, "", s != ""
	}
	return s[:i], s[i+1:], true
}

func isFence(line string) bool {
	return strings.TrimRight(line, " \t\r") == "---"
}

// splitClosing finds the closing fence in s and returns the YAML text before
// it and everything after the fence line.
func splitClosing(s string) (fm, body string, ok bool) {
	offset := 0
	for offset <= len(s) {
		line, rest, more := cutLine(s[offset:])
		if !more {
			return "", "", false
		}
		if isFence(line) {
			return s[:offset], rest, true
		}
		offset = len(s) - len(rest)
		if rest == "" {
			return "", "", false
		}
	}
	return "", "", false
}

func decodeMapping(text string) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return nil, fmt.Errorf("invalid frontmatter YAML: %w", err)
	}
	empty := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return empty, nil
	}
	root := doc.Content[0]
	switch {
	case root.Kind == yaml.MappingNode:
		return root, nil
	case root.Kind == yaml.ScalarNode && root.ShortTag() == "!!null":
		return empty, nil
	default:
		return nil, fmt.Errorf("frontmatter is not a mapping")
	}
}

func (n *Note) lookup(key string) *yaml.Node {
	if n.meta == nil {
		return nil
	}
	for i := 0; i+1 < len(n.meta.Content); i += 2 {
		if n.meta.Content[i].Value == key {
			return n.meta.Content[i+1]
		}
	}
	return nil
}

// String returns the text of a scalar field. Plain strings qualify, and so
// do YAML timestamps such as an unquoted 2023-02-10, which notes treat as
// text. Numbers, booleans, nulls, lists and maps do not.
func (n *Note) String(key string) (string, bool) {
	v := n.lookup(key)
	if v == nil || v.Kind != yaml.ScalarNode {
		return "", false
	}
	switch v.ShortTag() {
	case "!!str", "!!timestamp":
		return v.Value, true
	}
	return "", false
}

// Keys returns the frontmatter keys in document order.
func (n *Note) Keys() []string {
	if n.meta == nil {
		return nil
	}
	keys := make([]string, 0, len(n.meta.Content)/2)
	for i := 0; i+1 < len(n.meta.Content); i += 2 {
		keys = append(keys, n.meta.Content[i].Value)
	}
	return keys
}

// Set stores a string field, replacing an existing value in place or
// appending the key at the end of the block.
func (n *Note) Set(key, value string) {
	if n.meta == nil {
		n.meta = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		n.HasFrontmatter = true
	}
	n.dirty = true
	if v := n.lookup(key); v != nil {
		style := yaml.Style(0)
		if v.Kind == yaml.ScalarNode {
			style = v.Style & (yaml.SingleQuotedStyle | yaml.DoubleQuotedStyle)
		}
		*v = yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value, Style: style, LineComment: v.LineComment}
		return
	}
	n.meta.Content = append(n.meta.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value},
	)
}

// Bytes renders the document. An unmodified note is returned byte for byte.
func (n *Note) Bytes() ([]byte, error) {
	if !n.dirty {
		return []byte(n.raw), nil
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(n.meta); err != nil {
		return nil, fmt.Errorf("failed to marshal frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to marshal frontmatter: %w", err)
	}
	buf.WriteString("---\n")
	buf.WriteString(n.Body)
	return buf.Bytes(), nil
}

// Load reads a note from a file path.
func Load(path string) (*Note, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read note: %w", err)
	}
	n, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	n.FilePath = path
	return n, nil
}

// Save writes the note back to path, keeping the file's permissions.
func Save(path string, n *Note) error {
	data, err := n.Bytes()
	if err != nil {
		return err
	}
	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(path, data, mode); err != nil {
		return fmt.Errorf("failed to write note: %w", err)
	}
	n.raw = string(data)
	n.dirty = false
	return nil
}
