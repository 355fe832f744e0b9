package history

import (
	"errors"
	"time"
)

// ErrUninitialized is the panic value for operations on a History that was
// not built with New.
var ErrUninitialized = errors.New("history: not initialized, construct with New")

// Option configures a History.
type Option func(*config)

type config struct {
	capacity int
	clock    func() time.Time
}

func defaultConfig() config {
	return config{
		capacity: 0,
		clock:    time.Now,
	}
}

// WithCapacity bounds the number of snapshots kept. Values <= 0 leave the
// history unbounded.
func WithCapacity(n int) Option {
	return func(c *config) {
		if n < 0 {
			n = 0
		}
		c.capacity = n
	}
}

// WithClock overrides the time source used for RecordedAt.
func WithClock(clock func() time.Time) Option {
	return func(c *config) {
		if clock != nil {
			c.clock = clock
		}
	}
}
