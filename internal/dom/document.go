package dom

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"github.com/saintfish/chardet"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"

	"github.com/GriffinCanCode/kui/internal/shared/id"
)

// ReadyState mirrors document.readyState
type ReadyState string

const (
	StateLoading  ReadyState = "loading"
	StateComplete ReadyState = "complete"
)

// Document is a live, concurrency-safe HTML tree
type Document struct {
	id   id.DocumentID
	root *html.Node

	// mu guards the tree, ready state and observer list
	mu        sync.RWMutex
	ready     ReadyState
	observers []*Observer

	loaded   chan struct{}
	loadOnce sync.Once

	wrapMu   sync.Mutex
	wrappers map[*html.Node]*Element
}

// Parse reads an HTML document. The result is in the loading state until
// MarkComplete is called.
func Parse(r io.Reader) (*Document, error) {
	gq, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return newDocument(gq.Nodes[0]), nil
}

// ParseString parses an HTML string
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// ParseBytes parses raw page bytes, converting them to UTF-8 first using
// the detected charset.
func ParseBytes(data []byte) (*Document, error) {
	r, err := charset.NewReaderLabel(DetectCharset(data), bytes.NewReader(data))
	if err != nil {
		return Parse(bytes.NewReader(data))
	}
	return Parse(r)
}

// DetectCharset guesses the encoding of raw page bytes
func DetectCharset(data []byte) string {
	if len(data) == 0 {
		return "utf-8"
	}
	result, err := chardet.NewHtmlDetector().DetectBest(data)
	if err != nil || result == nil {
		return "utf-8"
	}
	return strings.ToLower(result.Charset)
}

func newDocument(root *html.Node) *Document {
	return &Document{
		id:       id.NewDocumentID(),
		root:     root,
		ready:    StateLoading,
		loaded:   make(chan struct{}),
		wrappers: make(map[*html.Node]*Element),
	}
}

// ID returns the document identifier
func (d *Document) ID() id.DocumentID {
	return d.id
}

// ReadyState returns the current ready state
func (d *Document) ReadyState() ReadyState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.ready
}

// MarkComplete moves the document to the complete state and fires the
// one-shot load signal. Later calls do nothing.
func (d *Document) MarkComplete() {
	d.loadOnce.Do(func() {
		d.mu.Lock()
		d.ready = StateComplete
		d.mu.Unlock()
		close(d.loaded)
	})
}

// Loaded is closed when the document finishes loading
func (d *Document) Loaded() <-chan struct{} {
	return d.loaded
}

// DocumentElement returns the <html> element
func (d *Document) DocumentElement() *Element {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return d.Wrap(c)
		}
	}
	return nil
}

// Body returns the <body> element
func (d *Document) Body() *Element {
	return d.childOfRoot(atom.Body)
}

// Head returns the <head> element
func (d *Document) Head() *Element {
	return d.childOfRoot(atom.Head)
}

func (d *Document) childOfRoot(a atom.Atom) *Element {
	htmlEl := d.DocumentElement()
	if htmlEl == nil {
		return nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	for c := htmlEl.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			return d.Wrap(c)
		}
	}
	return nil
}

// QuerySelectorAll returns every element matching a CSS selector, in
// document order
func (d *Document) QuerySelectorAll(selector string) ([]*Element, error) {
	m, err := compile(selector)
	if err != nil {
		return nil, err
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.find(d.root, m), nil
}

// QuerySelector returns the first element matching a CSS selector
func (d *Document) QuerySelector(selector string) (*Element, error) {
	els, err := d.QuerySelectorAll(selector)
	if err != nil || len(els) == 0 {
		return nil, err
	}
	return els[0], nil
}

// QueryXPath evaluates an XPath expression against the document
func (d *Document) QueryXPath(expr string) ([]*Element, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	nodes, err := htmlquery.QueryAll(d.root, expr)
	if err != nil {
		return nil, fmt.Errorf("invalid xpath %q: %w", expr, err)
	}
	out := make([]*Element, 0, len(nodes))
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			out = append(out, d.Wrap(n))
		}
	}
	return out, nil
}

// CreateElement creates a detached element owned by the document
func (d *Document) CreateElement(tag string) *Element {
	tag = strings.ToLower(tag)
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
	return d.Wrap(n)
}

// HTML renders the whole document
func (d *Document) HTML() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var buf bytes.Buffer
	if err := html.Render(&buf, d.root); err != nil {
		return ""
	}
	return buf.String()
}

// Wrap returns the element wrapper for n, or nil if n is not an element.
// Wrappers are cached so the same node always yields the same *Element.
func (d *Document) Wrap(n *html.Node) *Element {
	if n == nil || n.Type != html.ElementNode {
		return nil
	}
	d.wrapMu.Lock()
	defer d.wrapMu.Unlock()
	if el, ok := d.wrappers[n]; ok {
		return el
	}
	el := &Element{doc: d, node: n}
	d.wrappers[n] = el
	return el
}

// adopt makes el the wrapper of its node again, so an element detached and
// reinserted by the same handle keeps its identity.
func (d *Document) adopt(el *Element) {
	d.wrapMu.Lock()
	defer d.wrapMu.Unlock()
	if _, ok := d.wrappers[el.node]; !ok {
		d.wrappers[el.node] = el
	}
}

// forget drops the cached wrappers of a detached subtree. Handles held
// elsewhere stay usable.
func (d *Document) forget(root *html.Node) {
	d.wrapMu.Lock()
	defer d.wrapMu.Unlock()
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		delete(d.wrappers, n)
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
}

// find collects descendants of root matching m; the caller holds mu.
func (d *Document) find(root *html.Node, m goquery.Matcher) []*Element {
	sel := goquery.NewDocumentFromNode(root).FindMatcher(m)
	out := make([]*Element, 0, len(sel.Nodes))
	for _, n := range sel.Nodes {
		out = append(out, d.Wrap(n))
	}
	return out
}

func compile(selector string) (cascadia.Selector, error) {
	m, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid selector %q: %w", selector, err)
	}
	return m, nil
}
