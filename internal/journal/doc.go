// Package journal provides SQLite-backed diagnostic storage for bus traffic.
//
// A journal is an append-only log with:
//   - Runs: one row per manifest run, keyed by a UUIDv7 run id
//   - Events: every publish call seen by a bus tap during the run
//
// # Ordering
//
// Events are ordered by seq, a per-run logical clock, never by timestamps.
// started_at on runs is informational only.
//
// # Payloads
//
// Message data is stored as canonical JSON: object keys sorted by UTF-16
// code units, strings NFC normalized, no HTML escaping. Identical payloads
// therefore compare equal as text across runs.
//
// The journal is write-only diagnostics. Nothing in it is read back into a
// bus or scheduler.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Events must belong to a known run
package journal
