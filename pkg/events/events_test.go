package events

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishReturnsReactions(t *testing.T) {
	bus := NewBus(
		ThresholdWatcher{Watcher: "low-funds", Below: 50},
		ReactorFunc{ID: "echo", Fn: func(e Event) string { return string(e.Type) }},
		ReactorFunc{ID: "silent", Fn: func(Event) string { return "" }},
	)
	require.Equal(t, 3, bus.Len())

	reactions := bus.Publish(Event{Type: Withdrawn, Amount: 60, Previous: 100, Balance: 40})

	require.Len(t, reactions, 2)
	assert.Equal(t, "low-funds", reactions[0].Reactor)
	assert.Equal(t, "low-funds: balance 40 dropped below 50", reactions[0].Message)
	assert.Equal(t, Reaction{Reactor: "echo", Message: "account.withdrawn"}, reactions[1])
}

func TestBus_PublishWithoutReactors(t *testing.T) {
	bus := NewBus()
	assert.Empty(t, bus.Publish(Event{Type: Deposited}))
}

func TestBus_RegisterIgnoresNil(t *testing.T) {
	bus := NewBus(nil)
	bus.Register(nil)
	assert.Equal(t, 0, bus.Len())
}

func TestBus_Unregister(t *testing.T) {
	bus := NewBus(
		ThresholdWatcher{Watcher: "a", Below: 1},
		ThresholdWatcher{Watcher: "b", Below: 1},
		ThresholdWatcher{Watcher: "a", Below: 2},
	)

	assert.True(t, bus.Unregister("a"))
	assert.Equal(t, 1, bus.Len())
	assert.False(t, bus.Unregister("a"))
}

func TestThresholdWatcher(t *testing.T) {
	w := ThresholdWatcher{Watcher: "w", Below: 100}

	tests := []struct {
		name  string
		event Event
		fires bool
	}{
		{"crossing down", Event{Type: Withdrawn, Previous: 120, Balance: 90}, true},
		{"already below", Event{Type: Withdrawn, Previous: 90, Balance: 80}, false},
		{"staying above", Event{Type: Withdrawn, Previous: 200, Balance: 150}, false},
		{"crossing up", Event{Type: Deposited, Previous: 90, Balance: 130}, false},
		{"undo crossing down", Event{Type: Undone, Previous: 100, Balance: 99}, true},
		{"rejected ignored", Event{Type: Rejected, Previous: 120, Balance: 90}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := w.React(tt.event)
			if tt.fires {
				assert.NotEmpty(t, got)
			} else {
				assert.Empty(t, got)
			}
		})
	}
}

func TestBus_ConcurrentPublish(t *testing.T) {
	bus := NewBus(ThresholdWatcher{Watcher: "w", Below: 10})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Register(ReactorFunc{ID: "x", Fn: func(Event) string { return "" }})
			_ = bus.Publish(Event{Type: Withdrawn, Previous: 20, Balance: 5})
		}()
	}
	wg.Wait()

	assert.Equal(t, 9, bus.Len())
}
