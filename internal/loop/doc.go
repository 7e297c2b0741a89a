// Package loop provides the deferred execution queue used by the message bus.
//
// The bus never runs asynchronous deliveries inline. Instead it posts a Task
// to a Loop, which runs tasks strictly one at a time in FIFO order. This is
// the Go rendition of "schedule on the next turn of the event loop":
//
//   - Publish posts one delivery task per call
//   - Archive replay of asynchronously published messages posts one task per entry
//   - A handler error that must not block its siblings is re-posted as its
//     own task, so it surfaces as an uncaught error on a later turn
//
// Two ways to drive a Loop:
//
//	// Deterministic, single goroutine (tests, CLI)
//	l := loop.New()
//	b := bus.New(l)
//	b.Publish("car.drive", 14)
//	l.Drain()
//
//	// Long-running dispatcher
//	go l.Run(ctx)
package loop
