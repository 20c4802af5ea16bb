// Package resource resolves host locators into derived resources.
//
// A Resolver calls the host resolution binding with {url: locator}, decodes
// the base64 payload and stores the bytes with their media type in a
// document-scoped Table. The returned Reference (blob:<origin>/<uuid>) is
// what the upgrader writes into src/href.
//
// References live until Release is called or the table is closed when the
// document unloads.
package resource
