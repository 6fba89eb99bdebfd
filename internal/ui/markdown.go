package ui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
)

// RenderMarkdown prints md to stderr through glamour, or raw when rendering fails.
func RenderMarkdown(md string) {
	out, err := markdown(md)
	if err != nil {
		// Fallback: print raw
		fmt.Fprintln(os.Stderr, md)
		return
	}
	fmt.Fprint(os.Stderr, out)
}

// markdown renders md for the terminal.
func markdown(md string) (string, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", err
	}
	return renderer.Render(md)
}
