/*
Package bridge connects page code to host bindings.

A Binding is a Go function the host registers in Globals before any page
script runs. The Adapter looks bindings up by name, invokes them and
normalizes the reply: a binding may return a mapping, a struct, or the JSON
text of an object, and callers always receive a types.Result.

The Surface is what page code sees as the global kui object. Install is
check-then-reuse: a second install in the same document returns the first
surface.

	globals := bridge.NewGlobals()
	globals.Bind(bridge.VersionBinding, host.VersionBinding())

	adapter := bridge.NewAdapter(globals, logger, metrics)
	surface, _, err := bridge.Install(adapter)
	version, err := surface.Version(ctx)

Errors are *bridge.Error values; compare kinds with errors.Is against the
Err* sentinels.
*/
package bridge
