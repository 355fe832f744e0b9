package history

import (
	"time"

	"github.com/google/uuid"
	"github.com/tiendc/go-deepcopy"
)

// Snapshot is an immutable point-in-time copy of the tracked state.
type Snapshot[T any] struct {
	ID         string    // Unique snapshot identifier
	Seq        int       // Monotonic sequence number, 0 for the initial state
	Value      T         // Deep copy of the state
	RecordedAt time.Time // When the snapshot was recorded
}

// History manages undo/redo over a linear sequence of snapshots.
//
// The sequence always holds at least one snapshot and the cursor always
// points at one of them. History is not safe for concurrent use; the owner
// must serialize access.
type History[T any] struct {
	snapshots []Snapshot[T]
	cursor    int          // Index of the current snapshot
	capacity  int          // Maximum number of snapshots, 0 for unbounded
	nextSeq   int          // Sequence number for the next Record
	restored  *Snapshot[T] // Out-of-band restore overlay, nil when inactive
	now       func() time.Time
}

// New creates a history whose only snapshot is initial, with the cursor on it.
func New[T any](initial T, opts ...Option) *History[T] {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	h := &History[T]{
		capacity: cfg.capacity,
		now:      cfg.clock,
	}
	if h.capacity > 0 {
		h.snapshots = make([]Snapshot[T], 0, h.capacity)
	}
	h.snapshots = append(h.snapshots, h.newSnapshot(initial))
	return h
}

// Record appends v after the cursor and moves the cursor onto it.
// Any redo tail beyond the old cursor is discarded, as is an active restore.
// When the history is bounded and full, the oldest snapshots are evicted.
func (h *History[T]) Record(v T) Snapshot[T] {
	h.mustInit()

	// Drop the redo tail, zeroing it so the backing array releases values
	if h.cursor < len(h.snapshots)-1 {
		clear(h.snapshots[h.cursor+1:])
		h.snapshots = h.snapshots[:h.cursor+1]
	}

	snap := h.newSnapshot(v)
	h.snapshots = append(h.snapshots, snap)
	h.cursor = len(h.snapshots) - 1
	h.restored = nil

	if h.capacity > 0 && len(h.snapshots) > h.capacity {
		excess := len(h.snapshots) - h.capacity
		kept := make([]Snapshot[T], h.capacity)
		copy(kept, h.snapshots[excess:])
		h.snapshots = kept
		h.cursor -= excess
	}

	return h.export(snap)
}

// Undo moves the cursor back one snapshot and returns it.
// At the oldest snapshot it returns false and changes nothing.
func (h *History[T]) Undo() (Snapshot[T], bool) {
	h.mustInit()

	if !h.CanUndo() {
		return Snapshot[T]{}, false
	}

	h.cursor--
	h.restored = nil
	return h.export(h.snapshots[h.cursor]), true
}

// Redo moves the cursor forward one snapshot and returns it.
// At the newest snapshot it returns false and changes nothing.
func (h *History[T]) Redo() (Snapshot[T], bool) {
	h.mustInit()

	if !h.CanRedo() {
		return Snapshot[T]{}, false
	}

	h.cursor++
	h.restored = nil
	return h.export(h.snapshots[h.cursor]), true
}

// RestoreTo makes s the current state without touching the sequence or the
// cursor. The restore stays in effect until the next Record, Undo or Redo.
func (h *History[T]) RestoreTo(s Snapshot[T]) {
	h.mustInit()

	restored := h.export(s)
	h.restored = &restored
}

// Current returns the current state.
func (h *History[T]) Current() T {
	h.mustInit()

	if h.restored != nil {
		return copyValue(h.restored.Value)
	}
	return copyValue(h.snapshots[h.cursor].Value)
}

// Restored reports whether an out-of-band restore is in effect.
func (h *History[T]) Restored() bool {
	h.mustInit()
	return h.restored != nil
}

// CanUndo returns true if there is an older snapshot to move to.
func (h *History[T]) CanUndo() bool {
	h.mustInit()
	return h.cursor > 0
}

// CanRedo returns true if there is a newer snapshot to move to.
func (h *History[T]) CanRedo() bool {
	h.mustInit()
	return h.cursor+1 < len(h.snapshots)
}

// Len returns the number of snapshots held.
func (h *History[T]) Len() int {
	h.mustInit()
	return len(h.snapshots)
}

// Cursor returns the index of the current snapshot.
func (h *History[T]) Cursor() int {
	h.mustInit()
	return h.cursor
}

// Capacity returns the snapshot limit, 0 when unbounded.
func (h *History[T]) Capacity() int {
	h.mustInit()
	return h.capacity
}

// At returns the snapshot at index i.
func (h *History[T]) At(i int) (Snapshot[T], bool) {
	h.mustInit()

	if i < 0 || i >= len(h.snapshots) {
		return Snapshot[T]{}, false
	}
	return h.export(h.snapshots[i]), true
}

// Snapshots returns a copy of the whole sequence, oldest first.
func (h *History[T]) Snapshots() []Snapshot[T] {
	h.mustInit()

	out := make([]Snapshot[T], len(h.snapshots))
	for i, s := range h.snapshots {
		out[i] = h.export(s)
	}
	return out
}

func (h *History[T]) newSnapshot(v T) Snapshot[T] {
	snap := Snapshot[T]{
		ID:         uuid.NewString(),
		Seq:        h.nextSeq,
		Value:      copyValue(v),
		RecordedAt: h.now(),
	}
	h.nextSeq++
	return snap
}

// export hands out a snapshot whose value does not alias history storage.
func (h *History[T]) export(s Snapshot[T]) Snapshot[T] {
	s.Value = copyValue(s.Value)
	return s
}

func (h *History[T]) mustInit() {
	if h == nil || len(h.snapshots) == 0 {
		panic(ErrUninitialized)
	}
}

// copyValue deep-copies v. Values the copier cannot handle (functions,
// channels) are kept as a shallow copy.
func copyValue[T any](v T) T {
	var out T
	if err := deepcopy.Copy(&out, &v); err != nil {
		return v
	}
	return out
}
