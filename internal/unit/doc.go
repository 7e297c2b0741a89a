// Package unit implements the loadable units a Scheduler dispatches.
//
// A Descriptor names a kind and its source:
//
//   - script: external script, async and defer by default
//   - js: inline JavaScript
//   - block-script: parser-blocking external script; once the document is
//     ready it is re-queued as a script
//   - html: markup fragment. A fragment with <script> elements is split into
//     pieces that a nested serial scheduler loads in order; the fragment
//     reports "appended" and "loaded" once they are all done
//
// Any other type yields a unit that is always ignored.
//
// Units render into an Injector (the host document) and report back on
// their scheduler's bus with "appended.<id>", "ignored.<id>" and later
// "loaded.<id>". Ids are unique per Registry: a missing id becomes "tm_<n>",
// a taken one gets a "_1", "_2", ... suffix.
package unit
