// Package history provides a snapshot-based undo/redo history.
//
// A History holds an ordered sequence of immutable snapshots and a cursor
// marking the current one:
//
//	h := history.New(100)     // [100], cursor 0
//	h.Record(120)             // [100 120], cursor 1
//	h.Record(150)             // [100 120 150], cursor 2
//	h.Undo()                  // cursor 1, Current() == 120
//	h.Record(125)             // [100 120 125], 150 is no longer reachable
//
// # Boundaries
//
// Undo at the oldest snapshot and Redo at the newest are no-ops that report
// false. They never return an error.
//
// # Restore
//
// RestoreTo loads an externally held snapshot as the current state without
// changing the sequence or the cursor. The next Record, Undo or Redo ends it.
//
// # Capacity
//
// WithCapacity bounds the sequence. When a Record overflows it, the oldest
// snapshots are evicted and the cursor shifts with them.
//
// # Initialization
//
// A History must be created with New. Calling any method on a zero History
// panics with ErrUninitialized.
package history
