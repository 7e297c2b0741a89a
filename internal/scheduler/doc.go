// Package scheduler turns a queue of unit descriptors into an ordered
// sequence of dispatches and a single "all-work-done" notification.
//
// Each Scheduler owns a message bus. Dispatching a descriptor asks the
// UnitFactory for a LoadableUnit and calls Attach; the unit reports back by
// publishing exactly one of "appended.<id>", "loaded.<id>" or
// "ignored.<id>" on the scheduler's bus (sync or async). The scheduler's own
// subscriptions react to those topics:
//
//   - dispatch trigger: "appended" in eager mode, "loaded" in serial mode,
//     and "ignored" in both, each call DispatchNext
//   - completion counting: "loaded" and "ignored" decrement the pending
//     count while not paused; reaching zero publishes "all-work-done"
//
// Because the bus bubbles "loaded.tm_3" up to "loaded", one subscription per
// base topic sees every unit.
//
// # Registry
//
// Every Scheduler is appended to a process-wide registry at construction and
// keeps its index as a stable id. Code produced by a loaded unit uses
// GetByID to call back into the scheduler that loaded it.
package scheduler
