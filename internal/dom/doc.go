/*
Package dom is a live HTML document model with structural mutation
observers.

Trees are parsed with goquery on top of golang.org/x/net/html and queried
with CSS selectors (cascadia) or XPath (htmlquery). Every read and write
goes through the document lock, so elements can be touched from page
script, upgrade goroutines and observer callbacks at the same time.

	doc, err := dom.ParseString(`<body><img kui_src="asset://logo.png"></body>`)
	obs, err := doc.Observe(nil, dom.ObserveOptions{ChildList: true, Subtree: true},
		func(records []dom.MutationRecord) {
			for _, rec := range records {
				// rec.AddedNodes ...
			}
		})
	defer obs.Disconnect()

	body := doc.Body()
	_ = body.AppendHTML(`<div><a kui_href="doc://readme"></a></div>`)
	obs.Flush()

TakeAttribute is the read-and-remove primitive the upgrader relies on:
of any number of concurrent callers, at most one sees a given value.
*/
package dom
