// Package codeblock locates fenced HTML code blocks inside streamed markdown text.
package codeblock

import "strings"

const (
	openFence  = "```html"
	closeFence = "```"
)

// Extract scans text for non-overlapping markdown code fences tagged with the literal "html"
// language token and returns the inner content of the last fully-closed block, trimmed of the
// whitespace surrounding the fences. The second return value is false when no closed block exists
// yet, which is the common case for most of a streamed response.
//
// Extract is pure and runs in a single pass, so calling it repeatedly on a growing prefix of the
// same text is safe: the result only ever improves from absent to the most recent complete block.
// An unclosed fence at the end of the text is never returned, as its content is not yet a
// syntactically complete document.
func Extract(text string) (string, bool) {
	var last string
	found := false

	for i := 0; i < len(text); {
		rel := strings.Index(text[i:], openFence)
		if rel < 0 {
			break
		}
		start := i + rel + len(openFence)

		end := strings.Index(text[start:], closeFence)
		if end < 0 {
			// Open block still streaming in.
			break
		}

		last = strings.TrimSpace(text[start : start+end])
		found = true
		i = start + end + len(closeFence)
	}

	return last, found
}
