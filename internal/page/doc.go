/*
Package page runs page script against a document and the host bridge.

# Overview

Each page gets one goja runtime. The runtime exposes:

  - kui: frozen object with version() and native(name, payload), both
    returning promises
  - document: a DOM subset over internal/dom (querySelector,
    getElementById, createElement, insertAdjacentHTML, innerHTML, ...)
  - console: captured per execution and mirrored to the logger
  - setTimeout / clearTimeout

require, process, module and exports are removed.

# Execution model

Script runs on the goroutine calling Execute. Host calls run on their own
goroutines and post their replies back as jobs; Execute keeps running jobs
until every promise it started has settled, the timeout fires, or ctx is
done. A script that evaluates to a promise yields its settled value.

	rt, err := page.New(page.DefaultConfig(), surface, doc, logger)
	rt.InstallBridge()

	res, err := rt.Execute(ctx, `(async () => await kui.version())()`)
	// res.Value == "dev-1.1.1"
*/
package page
