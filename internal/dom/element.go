package dom

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/net/html"
)

// Element is a handle to an element node in a Document
type Element struct {
	doc  *Document
	node *html.Node

	// value a script runtime keeps for this element, scoped to its owner
	handleMu sync.Mutex
	owner    interface{}
	handle   interface{}
}

// Handle returns the value owner attached to e with SetHandle
func (e *Element) Handle(owner interface{}) (interface{}, bool) {
	e.handleMu.Lock()
	defer e.handleMu.Unlock()
	if e.owner != owner || e.handle == nil {
		return nil, false
	}
	return e.handle, true
}

// SetHandle attaches v to e for owner, replacing any other owner's value.
// The value lives as long as the element wrapper.
func (e *Element) SetHandle(owner, v interface{}) {
	e.handleMu.Lock()
	e.owner, e.handle = owner, v
	e.handleMu.Unlock()
}

// Document returns the owning document
func (e *Element) Document() *Document {
	return e.doc
}

// Node exposes the underlying node. Callers must not mutate it.
func (e *Element) Node() *html.Node {
	return e.node
}

// TagName returns the upper-case tag name
func (e *Element) TagName() string {
	return strings.ToUpper(e.node.Data)
}

// ID returns the id attribute
func (e *Element) ID() string {
	v, _ := e.GetAttribute("id")
	return v
}

// GetAttribute returns the value of name
func (e *Element) GetAttribute(name string) (string, bool) {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	return getAttr(e.node, name)
}

// HasAttribute reports whether name is present
func (e *Element) HasAttribute(name string) bool {
	_, ok := e.GetAttribute(name)
	return ok
}

// SetAttribute sets name to value
func (e *Element) SetAttribute(name, value string) {
	name = strings.ToLower(name)
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	for i := range e.node.Attr {
		if e.node.Attr[i].Namespace == "" && e.node.Attr[i].Key == name {
			e.node.Attr[i].Val = value
			return
		}
	}
	e.node.Attr = append(e.node.Attr, html.Attribute{Key: name, Val: value})
}

// RemoveAttribute removes name if present
func (e *Element) RemoveAttribute(name string) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	removeAttr(e.node, name)
}

// TakeAttribute reads and removes name in one step, so concurrent callers
// see the value at most once. An empty value counts as absent and is left
// in place.
func (e *Element) TakeAttribute(name string) (string, bool) {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	v, ok := getAttr(e.node, name)
	if !ok || v == "" {
		return "", false
	}
	removeAttr(e.node, name)
	return v, true
}

// Attributes returns a copy of the attribute list
func (e *Element) Attributes() []html.Attribute {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	return append([]html.Attribute(nil), e.node.Attr...)
}

// Parent returns the parent element, or nil
func (e *Element) Parent() *Element {
	e.doc.mu.RLock()
	p := e.node.Parent
	e.doc.mu.RUnlock()
	return e.doc.Wrap(p)
}

// Children returns the element children in order
func (e *Element) Children() []*Element {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	var out []*Element
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, e.doc.Wrap(c))
		}
	}
	return out
}

// IsConnected reports whether the element is attached to the document
func (e *Element) IsConnected() bool {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	for n := e.node; n != nil; n = n.Parent {
		if n == e.doc.root {
			return true
		}
	}
	return false
}

// TextContent returns the concatenated text of the subtree
func (e *Element) TextContent() string {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(e.node)
	return b.String()
}

// AppendChild appends child, moving it if it is already in a tree
func (e *Element) AppendChild(child *Element) error {
	if child.doc != e.doc {
		return fmt.Errorf("cannot append element from another document")
	}
	if child == e {
		return fmt.Errorf("cannot append element to itself")
	}

	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	for n := e.node; n != nil; n = n.Parent {
		if n == child.node {
			return fmt.Errorf("cannot append an ancestor")
		}
	}

	if old := child.node.Parent; old != nil {
		old.RemoveChild(child.node)
		e.doc.notify(old, nil, []*html.Node{child.node})
	}
	e.node.AppendChild(child.node)
	e.doc.adopt(child)
	e.doc.notify(e.node, []*html.Node{child.node}, nil)
	return nil
}

// AppendHTML parses markup in the context of e and appends the result,
// like insertAdjacentHTML("beforeend", markup).
func (e *Element) AppendHTML(markup string) error {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	nodes, err := html.ParseFragment(strings.NewReader(markup), e.node)
	if err != nil {
		return fmt.Errorf("failed to parse fragment: %w", err)
	}

	for _, n := range nodes {
		e.node.AppendChild(n)
	}
	if len(nodes) > 0 {
		e.doc.notify(e.node, nodes, nil)
	}
	return nil
}

// SetInnerHTML replaces the children of e with parsed markup
func (e *Element) SetInnerHTML(markup string) error {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()

	nodes, err := html.ParseFragment(strings.NewReader(markup), e.node)
	if err != nil {
		return fmt.Errorf("failed to parse fragment: %w", err)
	}

	var removed []*html.Node
	for c := e.node.FirstChild; c != nil; {
		next := c.NextSibling
		e.node.RemoveChild(c)
		e.doc.forget(c)
		removed = append(removed, c)
		c = next
	}
	for _, n := range nodes {
		e.node.AppendChild(n)
	}
	if len(removed) > 0 || len(nodes) > 0 {
		e.doc.notify(e.node, nodes, removed)
	}
	return nil
}

// InnerHTML renders the children of e
func (e *Element) InnerHTML() string {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	var buf bytes.Buffer
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return ""
		}
	}
	return buf.String()
}

// OuterHTML renders e and its subtree
func (e *Element) OuterHTML() string {
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	var buf bytes.Buffer
	if err := html.Render(&buf, e.node); err != nil {
		return ""
	}
	return buf.String()
}

// Remove detaches e from its parent
func (e *Element) Remove() {
	e.doc.mu.Lock()
	defer e.doc.mu.Unlock()
	parent := e.node.Parent
	if parent == nil {
		return
	}
	parent.RemoveChild(e.node)
	e.doc.forget(e.node)
	e.doc.notify(parent, nil, []*html.Node{e.node})
}

// QuerySelectorAll returns descendants of e matching a CSS selector
func (e *Element) QuerySelectorAll(selector string) ([]*Element, error) {
	m, err := compile(selector)
	if err != nil {
		return nil, err
	}
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	return e.doc.find(e.node, m), nil
}

// QuerySelector returns the first descendant matching a CSS selector
func (e *Element) QuerySelector(selector string) (*Element, error) {
	els, err := e.QuerySelectorAll(selector)
	if err != nil || len(els) == 0 {
		return nil, err
	}
	return els[0], nil
}

// Matches reports whether e itself matches a CSS selector
func (e *Element) Matches(selector string) (bool, error) {
	m, err := compile(selector)
	if err != nil {
		return false, err
	}
	e.doc.mu.RLock()
	defer e.doc.mu.RUnlock()
	return m.Match(e.node), nil
}

func getAttr(n *html.Node, name string) (string, bool) {
	name = strings.ToLower(name)
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func removeAttr(n *html.Node, name string) {
	name = strings.ToLower(name)
	attrs := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			continue
		}
		attrs = append(attrs, a)
	}
	n.Attr = attrs
}
