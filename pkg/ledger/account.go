package ledger

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/snapledger/pkg/domain/types"
	"github.com/dshills/snapledger/pkg/history"
	"github.com/dshills/snapledger/pkg/logger"
	"github.com/dshills/snapledger/pkg/metrics"
)

// Snapshot is a recorded account balance.
type Snapshot = history.Snapshot[int64]

// Account is an integer balance whose every change is recorded in a snapshot
// history it owns exclusively.
//
// Validation, mutation and recording happen under one lock, so concurrent
// callers cannot interleave on the timeline.
type Account struct {
	mu       sync.Mutex
	id       types.AccountID
	balance  int64
	history  *history.History[int64]
	policy   Policy
	recorder metrics.Recorder
	log      *zap.Logger
}

// Option configures an Account.
type Option func(*accountConfig)

type accountConfig struct {
	id          types.AccountID
	policy      Policy
	recorder    metrics.Recorder
	log         *zap.Logger
	historyOpts []history.Option
}

// WithID sets the account ID instead of generating one.
func WithID(id types.AccountID) Option {
	return func(c *accountConfig) { c.id = id }
}

// WithPolicy sets the validation policy. The default is FloorPolicy{}.
func WithPolicy(p Policy) Option {
	return func(c *accountConfig) {
		if p != nil {
			c.policy = p
		}
	}
}

// WithCapacity bounds the snapshot history. See history.WithCapacity.
func WithCapacity(n int) Option {
	return func(c *accountConfig) {
		c.historyOpts = append(c.historyOpts, history.WithCapacity(n))
	}
}

// WithClock sets the time source for snapshot timestamps.
func WithClock(clock func() time.Time) Option {
	return func(c *accountConfig) {
		c.historyOpts = append(c.historyOpts, history.WithClock(clock))
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(c *accountConfig) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *accountConfig) { c.log = l }
}

// NewAccount creates an account holding balance, recorded as its first snapshot.
func NewAccount(balance int64, opts ...Option) *Account {
	cfg := accountConfig{
		policy:   FloorPolicy{},
		recorder: metrics.NopRecorder{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.id.IsZero() {
		cfg.id = types.NewAccountID()
	}

	a := &Account{
		id:       cfg.id,
		balance:  balance,
		history:  history.New(balance, cfg.historyOpts...),
		policy:   cfg.policy,
		recorder: cfg.recorder,
		log:      logger.OrNop(cfg.log).Named(logger.ComponentLedger).With(zap.String("account", cfg.id.String())),
	}
	a.recorder.HistoryLength(a.id.String(), a.history.Len())
	return a
}

// ID returns the account ID.
func (a *Account) ID() types.AccountID {
	return a.id
}

// Balance returns the current balance.
func (a *Account) Balance() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance
}

// Deposit adds amount and records the new balance.
// It returns false, recording nothing, when the policy refuses the amount.
func (a *Account) Deposit(amount int64) (Snapshot, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.policy.AllowDeposit(a.balance, amount) {
		a.reject(metrics.OpDeposit, amount)
		return Snapshot{}, false
	}

	a.balance += amount
	return a.record(metrics.OpDeposit, amount), true
}

// Withdraw subtracts amount and records the new balance.
// It returns false, recording nothing, when the policy refuses the amount.
func (a *Account) Withdraw(amount int64) (Snapshot, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.policy.AllowWithdraw(a.balance, amount) {
		a.reject(metrics.OpWithdraw, amount)
		return Snapshot{}, false
	}

	a.balance -= amount
	return a.record(metrics.OpWithdraw, amount), true
}

// Undo returns to the previous snapshot. At the oldest snapshot it returns
// false and the balance is unchanged.
func (a *Account) Undo() (Snapshot, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	snap, ok := a.history.Undo()
	a.move(metrics.OpUndo, snap, ok)
	return snap, ok
}

// Redo moves forward to the next snapshot. At the newest snapshot it returns
// false and the balance is unchanged.
func (a *Account) Redo() (Snapshot, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	snap, ok := a.history.Redo()
	a.move(metrics.OpRedo, snap, ok)
	return snap, ok
}

// Restore sets the balance to s.Value. The history keeps its snapshots and
// cursor, so redo history survives a restore.
func (a *Account) Restore(s Snapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()

	previous := a.balance
	a.history.RestoreTo(s)
	a.balance = s.Value

	a.recorder.Operation(metrics.OpRestore, metrics.OutcomeApplied)
	a.log.Debug("restored snapshot",
		zap.String("snapshot", s.ID),
		zap.Int("seq", s.Seq),
		zap.Int64("from", previous),
		zap.Int64("to", a.balance))
}

// CanUndo reports whether Undo would move.
func (a *Account) CanUndo() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.history.CanUndo()
}

// CanRedo reports whether Redo would move.
func (a *Account) CanRedo() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.history.CanRedo()
}

// Len returns the number of snapshots in the history.
func (a *Account) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.history.Len()
}

// Cursor returns the index of the current snapshot.
func (a *Account) Cursor() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.history.Cursor()
}

// Snapshots returns the recorded snapshots, oldest first.
func (a *Account) Snapshots() []Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.history.Snapshots()
}

// SnapshotView is the JSON form of a snapshot.
type SnapshotView struct {
	ID         string    `json:"id"`
	Seq        int       `json:"seq"`
	Value      int64     `json:"value"`
	RecordedAt time.Time `json:"recorded_at"`
}

// State is a consistent view of an account and its history.
type State struct {
	ID        string         `json:"id"`
	Balance   int64          `json:"balance"`
	Cursor    int            `json:"cursor"`
	Length    int            `json:"length"`
	Restored  bool           `json:"restored"`
	CanUndo   bool           `json:"can_undo"`
	CanRedo   bool           `json:"can_redo"`
	Snapshots []SnapshotView `json:"snapshots"`
}

// State captures the account and its history under one lock.
func (a *Account) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()

	snaps := a.history.Snapshots()
	views := make([]SnapshotView, len(snaps))
	for i, s := range snaps {
		views[i] = SnapshotView{ID: s.ID, Seq: s.Seq, Value: s.Value, RecordedAt: s.RecordedAt}
	}

	return State{
		ID:        a.id.String(),
		Balance:   a.balance,
		Cursor:    a.history.Cursor(),
		Length:    a.history.Len(),
		Restored:  a.history.Restored(),
		CanUndo:   a.history.CanUndo(),
		CanRedo:   a.history.CanRedo(),
		Snapshots: views,
	}
}

// MarshalJSON encodes the account State.
func (a *Account) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.State())
}

// record appends the current balance. Callers hold a.mu.
func (a *Account) record(op string, amount int64) Snapshot {
	snap := a.history.Record(a.balance)

	a.recorder.Operation(op, metrics.OutcomeApplied)
	a.recorder.HistoryLength(a.id.String(), a.history.Len())
	a.log.Debug("recorded snapshot",
		zap.String("op", op),
		zap.Int64("amount", amount),
		zap.Int64("balance", a.balance),
		zap.Int("seq", snap.Seq),
		zap.Int("cursor", a.history.Cursor()))
	return snap
}

// reject logs a refused mutation. Callers hold a.mu.
func (a *Account) reject(op string, amount int64) {
	a.recorder.Operation(op, metrics.OutcomeRejected)
	a.log.Debug("mutation rejected by policy",
		zap.String("op", op),
		zap.Int64("amount", amount),
		zap.Int64("balance", a.balance))
}

// move applies an undo/redo result. Callers hold a.mu.
func (a *Account) move(op string, snap Snapshot, ok bool) {
	if !ok {
		a.recorder.Operation(op, metrics.OutcomeNoop)
		a.log.Debug("nothing to "+op, zap.Int("cursor", a.history.Cursor()))
		return
	}

	a.balance = snap.Value
	a.recorder.Operation(op, metrics.OutcomeApplied)
	a.log.Debug(op,
		zap.Int64("balance", a.balance),
		zap.Int("seq", snap.Seq),
		zap.Int("cursor", a.history.Cursor()))
}
