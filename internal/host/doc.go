/*
Package host provides the reference host bindings.

# Bindings

  - __kui_version: replies {"version": "dev-1.1.1"} as JSON text
  - __kui_resolve: replies {"mime", "b64"} as JSON text for a locator
  - __fs_open, __fs_read, __fs_write, __fs_seek, __fs_close: streamed file
    access under a root directory, enabled by Config.FilesRoot

# Locators

A leading kui:/ is dropped in any letter case. What remains is looked up by
scheme:

	asset://img/a.png      asset store
	file:///tmp/a.png      local file
	https://cdn/a.png      remote fetch (Config.Remote)
	img/a.png, /img/a.png  asset store

The asset store indexes Config.AssetsRoot with fastwalk, keeping files that
match a doublestar include pattern. Media types come from the extension
with content sniffing as a fallback. Remote fetches go through resty with
retries, a rate limit and one circuit breaker per host.

# Usage

	h, err := host.New(host.Config{AssetsRoot: "./web", Include: []string{"**"}}, logger)
	if err := h.Index(ctx); err != nil { ... }
	h.Bind(globals)
*/
package host
