// Package shell hosts one page at a time: it binds host functions, installs
// the kui surface, and for every page creates a document, a resource table,
// an upgrader with its watcher, and a script runtime.
//
// Lifecycle:
//
//	None -> Initialized -> Running -> Disposed
//
// Init loads DefaultPage. SetPage may be called any time before disposal
// and unloads the previous page first, releasing its derived resources.
package shell
