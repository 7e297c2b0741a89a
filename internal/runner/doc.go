// Package runner loads a manifest into a simulated page.
//
// A Runner wires the pieces together the way a browser host would: one
// event loop, one page.Document, a unit.Factory checking match conditions
// against the manifest's page, and a top-level scheduler. Run dispatches the
// queue, then fires the document lifecycle topics, draining the loop after
// each step:
//
//	dispatch -> drain -> dom-content-loaded -> drain -> page-load -> drain
//
// (dom-content-loaded comes first when the page starts ready.)
//
// Every publish call on every bus the run creates is traced in order. A run
// that drains without "all-work-done" is stalled: some unit neither loaded
// nor was ignored.
package runner
