// Package markdown renders model responses into HTML suitable for chat bubbles.
package markdown

import (
	"bytes"
	"fmt"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	md = goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			highlighting.NewHighlighting(
				highlighting.WithStyle("monokai"),
			),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
		),
	)

	// Model output is untrusted; the raw document only ever runs inside the sandboxed preview
	// frame, never inline in the chat pane. The style allowances cover what chroma emits for
	// syntax highlighting.
	policy = func() *bluemonday.Policy {
		p := bluemonday.UGCPolicy()
		p.AllowAttrs("class", "style").OnElements("span", "pre", "code")
		p.AllowStyles("color", "background-color", "font-weight", "font-style", "text-decoration").Globally()
		return p
	}()
)

// Render converts markdown text into sanitized HTML. Fenced code blocks are syntax-highlighted
// with inline styles so the result needs no extra stylesheet.
func Render(text string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("failed to convert markdown: %w", err)
	}
	return policy.SanitizeReader(&buf).String(), nil
}
