// Package upgrade rewrites placeholder attributes into loadable ones.
//
// An element may carry kui_src and/or kui_href holding an opaque locator.
// The Upgrader takes the placeholder off the element, resolves the locator
// through the host and writes the resulting reference into src or href.
// A failed resolution is logged and leaves the element without the real
// attribute.
//
// The Watcher drives the Upgrader: one scan of the document once it is
// loaded, then every element node added later, including placeholders
// nested inside an inserted subtree. Taking the placeholder is atomic, so
// an element is upgraded at most once per attribute however many
// notifications mention it.
package upgrade
