package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestScenarioFiles(t *testing.T) {
	files := ScenarioFiles(t)
	assert.Contains(t, files, ScenarioFile("ledger-demo"))
	for _, f := range files {
		assert.Equal(t, ".yaml", filepath.Ext(f))
		assert.FileExists(t, f)
	}
}

func TestClock(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	c := NewClock(start, time.Second)

	assert.Equal(t, start, c.Now())
	assert.Equal(t, start.Add(time.Second), c.Now())
	assert.Equal(t, start.Add(2*time.Second), c.Now())
}

func TestSetupConfigDir(t *testing.T) {
	dir := SetupConfigDir(t, "SNAPLEDGER_TESTUTIL_DIR")
	assert.Equal(t, dir, os.Getenv("SNAPLEDGER_TESTUTIL_DIR"))
	assert.DirExists(t, dir)
}
