// Package testutil holds fixtures shared by snapledger tests.
package testutil

import (
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"testing"
	"time"
)

// ScenariosDir returns the absolute path of the example scenarios shipped
// with the repository.
func ScenariosDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "examples", "scenarios")
}

// ScenarioFile returns the path of the named example scenario.
func ScenarioFile(name string) string {
	return filepath.Join(ScenariosDir(), name+".yaml")
}

// ScenarioFiles lists the example scenario files in name order.
func ScenarioFiles(t testing.TB) []string {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(ScenariosDir(), "*.yaml"))
	if err != nil {
		t.Fatalf("failed to list example scenarios: %v", err)
	}
	if len(files) == 0 {
		t.Fatalf("no example scenarios in %s", ScenariosDir())
	}
	sort.Strings(files)
	return files
}

// Clock is a deterministic clock. Every call to Now advances it by Step.
type Clock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewClock creates a clock starting at start.
func NewClock(start time.Time, step time.Duration) *Clock {
	return &Clock{now: start, step: step}
}

// Now returns the current time and advances the clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now
	c.now = c.now.Add(c.step)
	return now
}

// SetupConfigDir points the CLI config directory environment variable at a
// fresh temporary directory and returns it.
func SetupConfigDir(t *testing.T, envVar string) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(envVar, dir)
	return dir
}
