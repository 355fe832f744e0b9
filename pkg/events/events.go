// Package events publishes account changes to reactors as an explicit step.
//
// Nothing in snapledger notifies reactors implicitly. The code that performs
// an operation decides when to call Publish and receives the reactions back.
package events

import (
	"fmt"
	"sync"
	"time"
)

// Type categorizes events.
type Type string

const (
	// Deposited is published after a successful deposit.
	Deposited Type = "account.deposited"
	// Withdrawn is published after a successful withdrawal.
	Withdrawn Type = "account.withdrawn"
	// Rejected is published when validation refuses a mutation.
	Rejected Type = "account.rejected"
	// Undone is published after an undo moved the cursor.
	Undone Type = "history.undone"
	// Redone is published after a redo moved the cursor.
	Redone Type = "history.redone"
	// Restored is published after an out-of-band restore.
	Restored Type = "history.restored"
)

// Event describes one completed account operation.
type Event struct {
	Type      Type
	AccountID string
	Amount    int64 // Requested amount, 0 for history moves
	Balance   int64 // Balance after the operation
	Previous  int64 // Balance before the operation
	Timestamp time.Time
}

// Reaction is what a reactor produced for an event.
type Reaction struct {
	Reactor string `json:"reactor"`
	Message string `json:"message"`
}

// Reactor decides whether and how to react to an event.
type Reactor interface {
	Name() string
	// React returns the reaction message, or "" to stay silent.
	React(Event) string
}

// ReactorFunc adapts a function to the Reactor interface.
type ReactorFunc struct {
	ID string
	Fn func(Event) string
}

// Name implements Reactor.
func (r ReactorFunc) Name() string { return r.ID }

// React implements Reactor.
func (r ReactorFunc) React(e Event) string { return r.Fn(e) }

// Bus holds the registered reactors. It is safe for concurrent use.
type Bus struct {
	mu       sync.RWMutex
	reactors []Reactor
}

// NewBus creates a bus with the given reactors registered in order.
func NewBus(reactors ...Reactor) *Bus {
	b := &Bus{}
	for _, r := range reactors {
		b.Register(r)
	}
	return b
}

// Register adds r to the bus. Nil reactors are ignored.
func (b *Bus) Register(r Reactor) {
	if r == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reactors = append(b.reactors, r)
}

// Unregister removes every reactor with the given name and reports whether
// any was removed.
func (b *Bus) Unregister(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	kept := b.reactors[:0]
	removed := false
	for _, r := range b.reactors {
		if r.Name() == name {
			removed = true
			continue
		}
		kept = append(kept, r)
	}
	clear(b.reactors[len(kept):])
	b.reactors = kept
	return removed
}

// Len returns the number of registered reactors.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.reactors)
}

// Publish hands e to every reactor in registration order and returns the
// non-empty reactions.
func (b *Bus) Publish(e Event) []Reaction {
	b.mu.RLock()
	reactors := make([]Reactor, len(b.reactors))
	copy(reactors, b.reactors)
	b.mu.RUnlock()

	var reactions []Reaction
	for _, r := range reactors {
		if msg := r.React(e); msg != "" {
			reactions = append(reactions, Reaction{Reactor: r.Name(), Message: msg})
		}
	}
	return reactions
}

// ThresholdWatcher reacts when a balance crosses below Below.
// It only fires on the crossing, not on every event spent under the threshold.
type ThresholdWatcher struct {
	Watcher string
	Below   int64
}

// Name implements Reactor.
func (w ThresholdWatcher) Name() string { return w.Watcher }

// React implements Reactor.
func (w ThresholdWatcher) React(e Event) string {
	if e.Type == Rejected {
		return ""
	}
	if e.Balance < w.Below && e.Previous >= w.Below {
		return fmt.Sprintf("%s: balance %d dropped below %d", w.Watcher, e.Balance, w.Below)
	}
	return ""
}
