package scenario

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/snapledger/internal/testutil"
	operrors "github.com/dshills/snapledger/pkg/errors"
	"github.com/dshills/snapledger/pkg/ledger"
	"github.com/dshills/snapledger/pkg/metrics"
)

const ledgerDemo = `
name: ledger-demo
initial: 100
steps:
  - op: deposit
    amount: 20
  - op: deposit
    amount: 30
    expect:
      balance: 150
  - op: undo
    expect:
      balance: 120
  - op: undo
    expect:
      balance: 100
  - op: redo
    expect:
      balance: 120
`

func TestParse(t *testing.T) {
	sc, err := Parse([]byte(ledgerDemo))
	require.NoError(t, err)

	assert.Equal(t, "ledger-demo", sc.Name)
	assert.Equal(t, int64(100), sc.Initial)
	require.Len(t, sc.Steps, 5)
	assert.Equal(t, OpDeposit, sc.Steps[0].Op)
	assert.Equal(t, int64(20), sc.Steps[0].Amount)
	require.NotNil(t, sc.Steps[1].Expect)
	require.NotNil(t, sc.Steps[1].Expect.Balance)
	assert.Equal(t, int64(150), *sc.Steps[1].Expect.Balance)
}

func TestParse_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing steps", "name: x\n"},
		{"unknown op", "name: x\nsteps:\n  - op: transfer\n"},
		{"deposit without amount", "name: x\nsteps:\n  - op: deposit\n"},
		{"unknown field", "name: x\nbalance: 3\nsteps:\n  - op: undo\n"},
		{"bad policy kind", "name: x\npolicy:\n  kind: overdraft\nsteps:\n  - op: undo\n"},
		{"amount not integer", "name: x\nsteps:\n  - op: deposit\n    amount: ten\n"},
		{"negative seq", "name: x\nsteps:\n  - op: restore\n    seq: -1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.ErrorIs(t, err, ErrSchemaViolation)
		})
	}
}

func TestParse_SemanticErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad name", "name: 1-demo\nsteps:\n  - op: undo\n"},
		{"restore without seq", "name: x\nsteps:\n  - op: restore\n"},
		{"expect without block", "name: x\nsteps:\n  - op: expect\n"},
		{"equals without path", "name: x\nsteps:\n  - op: undo\n    expect:\n      equals: 3\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.ErrorIs(t, err, ErrInvalidScenario)
		})
	}
}

func TestParse_Empty(t *testing.T) {
	_, err := Parse([]byte("  \n"))
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSchema_ReturnsCopy(t *testing.T) {
	s := Schema()
	require.NotEmpty(t, s)
	s[0] = 'x'
	assert.NotEqual(t, byte('x'), Schema()[0])
}

func TestRunner_LedgerDemo(t *testing.T) {
	sc, err := Parse([]byte(ledgerDemo))
	require.NoError(t, err)

	report, err := NewRunner().Run(context.Background(), sc)
	require.NoError(t, err)

	assert.True(t, report.Passed(sc))
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, int64(120), report.Final.Balance)
	assert.Equal(t, 3, report.Final.Length)
	assert.Equal(t, 1, report.Final.Cursor)

	balances := make([]int64, 0, len(report.Steps))
	for _, s := range report.Steps {
		balances = append(balances, s.Balance)
	}
	assert.Equal(t, []int64{120, 150, 120, 100, 120}, balances)
}

func TestRunner_ExampleScenarios(t *testing.T) {
	for _, file := range testutil.ScenarioFiles(t) {
		t.Run(filepath.Base(file), func(t *testing.T) {
			sc, err := Load(file)
			require.NoError(t, err)

			report, err := NewRunner().Run(context.Background(), sc)
			require.NoError(t, err)
			assert.True(t, report.Passed(sc))
		})
	}
}

func TestRunner_FailedExpectation(t *testing.T) {
	sc, err := Parse([]byte(`
name: failing
initial: 10
steps:
  - op: deposit
    amount: 5
  - op: withdraw
    amount: 100
    expect:
      ok: true
  - op: deposit
    amount: 1
`))
	require.NoError(t, err)

	report, err := NewRunner().Run(context.Background(), sc)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExpectationFailed)

	var opErr *operrors.OperationalError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, 1, opErr.Step)
	assert.Equal(t, "failing", opErr.Scenario)
	assert.Equal(t, "withdraw", opErr.Attributes["op"])

	require.NotNil(t, report)
	assert.Len(t, report.Steps, 1)
	assert.False(t, report.Passed(sc))
	assert.Equal(t, int64(15), report.Final.Balance)
}

func TestRunner_PathExpectations(t *testing.T) {
	tests := []struct {
		name    string
		expect  string
		wantErr bool
	}{
		{"values", "path: snapshots.#.value\n      equals: [1, 3]", false},
		{"count", "path: snapshots.#\n      equals: 2", false},
		{"exists only", "path: id", false},
		{"mismatch", "path: balance\n      equals: 4", true},
		{"missing path", "path: nothing.here", true},
		{"bool", "path: can_undo\n      equals: true", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := "name: paths\ninitial: 1\nsteps:\n  - op: deposit\n    amount: 2\n  - op: expect\n    expect:\n      " + tt.expect + "\n"
			sc, err := Parse([]byte(doc))
			require.NoError(t, err)

			_, err = NewRunner().Run(context.Background(), sc)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrExpectationFailed)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRunner_RestoreUnknownSeq(t *testing.T) {
	sc, err := Parse([]byte("name: restore\nsteps:\n  - op: restore\n    seq: 9\n"))
	require.NoError(t, err)

	_, err = NewRunner().Run(context.Background(), sc)
	assert.ErrorIs(t, err, ErrUnknownSnapshot)
}

func TestRunner_RestoreDiscardedSnapshot(t *testing.T) {
	// Seq 1 is discarded from history by the withdraw, but the runner
	// still holds it and can restore it out of band
	sc, err := Parse([]byte(`
name: discarded
initial: 10
steps:
  - op: deposit
    amount: 90
  - op: undo
  - op: withdraw
    amount: 5
    expect:
      length: 2
  - op: restore
    seq: 1
    expect:
      balance: 100
      length: 2
      cursor: 1
`))
	require.NoError(t, err)

	_, err = NewRunner().Run(context.Background(), sc)
	assert.NoError(t, err)
}

func TestRunner_Reactions(t *testing.T) {
	sc, err := Parse([]byte(`
name: watchers
initial: 100
watchers:
  - name: low
    below: 50
  - name: empty
    below: 1
steps:
  - op: withdraw
    amount: 60
    expect:
      reactions: 1
  - op: withdraw
    amount: 40
    expect:
      reactions: 1
  - op: withdraw
    amount: 1
    expect:
      ok: false
      reactions: 0
  - op: undo
    expect:
      reactions: 0
`))
	require.NoError(t, err)

	report, err := NewRunner().Run(context.Background(), sc)
	require.NoError(t, err)
	assert.Equal(t, "low", report.Steps[0].Reactions[0].Reactor)
	assert.Equal(t, "empty", report.Steps[1].Reactions[0].Reactor)
}

func TestRunner_ContextCancelled(t *testing.T) {
	sc, err := Parse([]byte(ledgerDemo))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := NewRunner().Run(ctx, sc)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, report.Steps)
	assert.Equal(t, int64(100), report.Final.Balance)
}

func TestRunner_BadPolicy(t *testing.T) {
	sc := &Scenario{
		Name:   "bad-policy",
		Policy: ledger.PolicyConfig{Kind: ledger.PolicyExpression, Withdraw: "amount >"},
		Steps:  []Step{{Op: OpUndo}},
	}

	_, err := NewRunner().Run(context.Background(), sc)
	var opErr *operrors.OperationalError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, operrors.NoStep, opErr.Step)
	assert.Equal(t, "building policy", opErr.Operation)
}

func TestRunner_NilScenario(t *testing.T) {
	_, err := NewRunner().Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidScenario)
}

func TestRunner_Metrics(t *testing.T) {
	sc, err := Parse([]byte(ledgerDemo))
	require.NoError(t, err)

	collector := metrics.NewCollector(prometheus.NewRegistry())
	_, err = NewRunner(WithRecorder(collector)).Run(context.Background(), sc)
	require.NoError(t, err)

	assert.Equal(t, float64(2), collector.OperationCount(metrics.OpDeposit, metrics.OutcomeApplied))
	assert.Equal(t, float64(2), collector.OperationCount(metrics.OpUndo, metrics.OutcomeApplied))
	assert.Equal(t, float64(1), collector.OperationCount(metrics.OpRedo, metrics.OutcomeApplied))
}
