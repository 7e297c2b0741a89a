// Package page provides an in-memory host document for units to render
// into. It is what the CLI and the scenario harness load manifests against;
// a browser binding would implement unit.Injector the same way.
package page
