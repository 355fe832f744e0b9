package scenario

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/dshills/snapledger/pkg/domain/types"
	operrors "github.com/dshills/snapledger/pkg/errors"
	"github.com/dshills/snapledger/pkg/events"
	"github.com/dshills/snapledger/pkg/ledger"
	"github.com/dshills/snapledger/pkg/logger"
	"github.com/dshills/snapledger/pkg/metrics"
)

var (
	// ErrExpectationFailed is returned when an expect block does not hold
	ErrExpectationFailed = errors.New("expectation failed")
	// ErrUnknownSnapshot is returned when restore names a seq never observed
	ErrUnknownSnapshot = errors.New("unknown snapshot")
)

// StepResult records what a step did.
type StepResult struct {
	Index     int               `json:"index"`
	Op        Op                `json:"op"`
	Amount    int64             `json:"amount,omitempty"`
	OK        bool              `json:"ok"`
	Balance   int64             `json:"balance"`
	Cursor    int               `json:"cursor"`
	Length    int               `json:"length"`
	Reactions []events.Reaction `json:"reactions,omitempty"`
}

// Report is the outcome of a scenario run.
type Report struct {
	RunID     types.ScenarioID `json:"run_id"`
	Scenario  string           `json:"scenario"`
	Steps     []StepResult     `json:"steps"`
	Final     ledger.State     `json:"final"`
	StartedAt time.Time        `json:"started_at"`
	Duration  time.Duration    `json:"duration"`
}

// Passed reports whether every step ran.
func (r *Report) Passed(sc *Scenario) bool {
	return r != nil && sc != nil && len(r.Steps) == len(sc.Steps)
}

// Runner executes scenarios against fresh accounts.
type Runner struct {
	log      *zap.Logger
	recorder metrics.Recorder
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the runner logger. Accounts created by the runner log
// through it too.
func WithLogger(l *zap.Logger) RunnerOption {
	return func(r *Runner) { r.log = logger.OrNop(l) }
}

// WithRecorder sets the metrics recorder handed to accounts.
func WithRecorder(rec metrics.Recorder) RunnerOption {
	return func(r *Runner) {
		if rec != nil {
			r.recorder = rec
		}
	}
}

// NewRunner creates a runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		log:      zap.NewNop(),
		recorder: metrics.NopRecorder{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// run holds per-run state.
type run struct {
	sc       *Scenario
	account  *ledger.Account
	bus      *events.Bus
	observed map[int]ledger.Snapshot
	log      *zap.Logger
}

// Run executes sc step by step. It stops at the first failed expectation or
// when ctx is done, returning the partial report with the error.
func (r *Runner) Run(ctx context.Context, sc *Scenario) (*Report, error) {
	if sc == nil {
		return nil, fmt.Errorf("%w: nil scenario", ErrInvalidScenario)
	}
	if err := sc.Validate(); err != nil {
		return nil, operrors.NewOperationalError("validating scenario", sc.Name, operrors.NoStep, err)
	}

	policy, err := ledger.NewPolicy(sc.Policy)
	if err != nil {
		return nil, operrors.NewOperationalError("building policy", sc.Name, operrors.NoStep, err)
	}

	report := &Report{
		RunID:     types.NewScenarioID(),
		Scenario:  sc.Name,
		StartedAt: time.Now(),
	}
	log := r.log.Named(logger.ComponentScenario).With(
		zap.String("scenario", sc.Name),
		zap.String("run", report.RunID.String()))

	st := &run{
		sc: sc,
		account: ledger.NewAccount(sc.Initial,
			ledger.WithPolicy(policy),
			ledger.WithCapacity(sc.Capacity),
			ledger.WithRecorder(r.recorder),
			ledger.WithLogger(r.log),
		),
		bus:      events.NewBus(),
		observed: make(map[int]ledger.Snapshot),
		log:      log,
	}
	for _, w := range sc.Watchers {
		st.bus.Register(events.ThresholdWatcher{Watcher: w.Name, Below: w.Below})
	}
	for _, snap := range st.account.Snapshots() {
		st.observed[snap.Seq] = snap
	}

	log.Info("scenario started", zap.Int("steps", len(sc.Steps)), zap.Int64("initial", sc.Initial))

	defer func() {
		report.Final = st.account.State()
		report.Duration = time.Since(report.StartedAt)
	}()

	for i, step := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return report, operrors.NewOperationalError("running scenario", sc.Name, i, err)
		}

		result, err := st.apply(i, step)
		if err != nil {
			return report, operrors.NewOperationalError("running step", sc.Name, i, err)
		}

		if step.Expect != nil {
			if err := st.check(step.Expect, result); err != nil {
				opErr := operrors.NewOperationalError("checking step", sc.Name, i, err).
					WithAttr("op", string(step.Op)).
					WithAttr("balance", result.Balance)
				log.Warn("expectation failed", opErr.Fields()...)
				return report, opErr
			}
		}
		report.Steps = append(report.Steps, result)
	}

	log.Info("scenario passed", zap.Int64("balance", st.account.Balance()))
	return report, nil
}

// apply performs one step and publishes the resulting event.
func (st *run) apply(i int, step Step) (StepResult, error) {
	previous := st.account.Balance()
	result := StepResult{Index: i, Op: step.Op, Amount: step.Amount, OK: true}

	var (
		snap      ledger.Snapshot
		eventType events.Type
	)
	switch step.Op {
	case OpDeposit:
		snap, result.OK = st.account.Deposit(step.Amount)
		eventType = events.Deposited
	case OpWithdraw:
		snap, result.OK = st.account.Withdraw(step.Amount)
		eventType = events.Withdrawn
	case OpUndo:
		snap, result.OK = st.account.Undo()
		eventType = events.Undone
	case OpRedo:
		snap, result.OK = st.account.Redo()
		eventType = events.Redone
	case OpRestore:
		target, ok := st.observed[*step.Seq]
		if !ok {
			return result, fmt.Errorf("%w: seq %d", ErrUnknownSnapshot, *step.Seq)
		}
		st.account.Restore(target)
		eventType = events.Restored
	case OpExpect:
		// Assertions only
	default:
		return result, fmt.Errorf("%w: unknown op %q", ErrInvalidScenario, step.Op)
	}

	if result.OK && (step.Op == OpDeposit || step.Op == OpWithdraw || step.Op == OpUndo || step.Op == OpRedo) {
		st.observed[snap.Seq] = snap
	}

	state := st.account.State()
	result.Balance = state.Balance
	result.Cursor = state.Cursor
	result.Length = state.Length

	if eventType != "" {
		// Refused mutations are published as such; boundary moves publish nothing
		switch {
		case result.OK:
		case step.Op == OpDeposit || step.Op == OpWithdraw:
			eventType = events.Rejected
		default:
			eventType = ""
		}
	}
	if eventType != "" {
		result.Reactions = st.bus.Publish(events.Event{
			Type:      eventType,
			AccountID: st.account.ID().String(),
			Amount:    step.Amount,
			Balance:   result.Balance,
			Previous:  previous,
			Timestamp: time.Now(),
		})
		for _, reaction := range result.Reactions {
			st.log.Info("reaction", zap.String("reactor", reaction.Reactor), zap.String("message", reaction.Message))
		}
	}

	st.log.Debug("step applied",
		zap.Int("step", i),
		zap.String("op", string(step.Op)),
		zap.Bool("ok", result.OK),
		zap.Int64("balance", result.Balance))
	return result, nil
}

// check evaluates an expect block against the step result and account state.
func (st *run) check(exp *Expect, result StepResult) error {
	if exp.Balance != nil && *exp.Balance != result.Balance {
		return fmt.Errorf("%w: balance is %d, want %d", ErrExpectationFailed, result.Balance, *exp.Balance)
	}
	if exp.OK != nil && *exp.OK != result.OK {
		return fmt.Errorf("%w: ok is %v, want %v", ErrExpectationFailed, result.OK, *exp.OK)
	}
	if exp.Length != nil && *exp.Length != result.Length {
		return fmt.Errorf("%w: length is %d, want %d", ErrExpectationFailed, result.Length, *exp.Length)
	}
	if exp.Cursor != nil && *exp.Cursor != result.Cursor {
		return fmt.Errorf("%w: cursor is %d, want %d", ErrExpectationFailed, result.Cursor, *exp.Cursor)
	}
	if exp.Reactions != nil && *exp.Reactions != len(result.Reactions) {
		return fmt.Errorf("%w: %d reactions, want %d", ErrExpectationFailed, len(result.Reactions), *exp.Reactions)
	}

	if exp.Path != "" {
		data, err := json.Marshal(st.account)
		if err != nil {
			return fmt.Errorf("failed to encode account state: %w", err)
		}
		if err := matchPath(data, exp.Path, exp.Equals); err != nil {
			return err
		}
	}
	return nil
}

// matchPath compares the value at a gjson path with want by JSON encoding.
// A nil want only asserts that the path exists.
func matchPath(data []byte, path string, want interface{}) error {
	got := gjson.GetBytes(data, path)
	if !got.Exists() {
		return fmt.Errorf("%w: path %q not found", ErrExpectationFailed, path)
	}
	if want == nil {
		return nil
	}

	gotJSON, err := json.Marshal(got.Value())
	if err != nil {
		return fmt.Errorf("failed to encode value at %q: %w", path, err)
	}
	wantJSON, err := json.Marshal(want)
	if err != nil {
		return fmt.Errorf("failed to encode expected value: %w", err)
	}

	if string(gotJSON) != string(wantJSON) {
		return fmt.Errorf("%w: %s is %s, want %s", ErrExpectationFailed, path, gotJSON, wantJSON)
	}
	return nil
}
