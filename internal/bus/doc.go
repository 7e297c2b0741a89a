// Package bus implements the hierarchical publish/subscribe message bus.
//
// Topics are dot-delimited strings ("car.drive"). Publishing bubbles UP:
// subscribers of the exact topic are called first, then subscribers of each
// ancestor ("car"), most specific first. Archive replay bubbles DOWN: a new
// subscriber of "car" is handed every archived message published to "car"
// or any descendant ("car.drive", "car.sell.fast").
//
// # Delivery
//
// Publish schedules delivery on a Deferrer (normally a *loop.Loop);
// PublishSync delivers inline before returning. Both take a snapshot of the
// subscriber lists at call time, so subscribing or unsubscribing after the
// call never changes who receives that message.
//
// # Handler errors
//
// A handler fails by returning an error or panicking. With the immediate
// flag set, the first failure on the exact topic stops delivery and is
// returned to the publisher. Otherwise, and always for ancestor topics, the
// failure is re-posted to the Deferrer as its own task so siblings still
// receive the message and the error surfaces as an uncaught loop error.
//
// # Tokens
//
// Subscription tokens come from one process-wide counter shared by every
// Bus, so a token identifies a subscription uniquely across all buses.
package bus
