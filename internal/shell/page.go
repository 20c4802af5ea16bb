package shell

import (
	"regexp"
	"strings"
)

// DefaultPage is loaded by Init
const DefaultPage = `<main>
<h1>KUI</h1>
<p>Load a page with <code>SetPage</code>. Markup may reference host resources
through <code>kui_src</code> and <code>kui_href</code>.</p>
</main>`

const (
	pageHead = `<!doctype html><html><head><meta charset="utf-8"></head><body>`
	pageTail = `</body></html>`
)

var documentPattern = regexp.MustCompile(`(?i)^\s*(<!doctype|<html)`)

// wrapPage turns a body fragment into a full document. Full documents are
// returned unchanged.
func wrapPage(markup string) string {
	if documentPattern.MatchString(markup) {
		return markup
	}
	var b strings.Builder
	b.Grow(len(pageHead) + len(markup) + len(pageTail))
	b.WriteString(pageHead)
	b.WriteString(markup)
	b.WriteString(pageTail)
	return b.String()
}
