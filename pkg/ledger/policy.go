package ledger

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/dshills/snapledger/pkg/rules"
)

// ErrUnknownPolicy is returned for a policy kind with no constructor.
var ErrUnknownPolicy = errors.New("unknown policy kind")

// Policy decides whether a mutation may be applied.
//
// Both methods must be pure functions of their arguments: the account calls
// them before mutating anything and records nothing when they refuse.
type Policy interface {
	AllowDeposit(balance, amount int64) bool
	AllowWithdraw(balance, amount int64) bool
}

// PolicyKind names a built-in policy.
type PolicyKind string

const (
	// PolicyFloor refuses withdrawals that would take the balance below Floor.
	PolicyFloor PolicyKind = "floor"
	// PolicyStrict only allows withdrawing strictly less than the balance.
	PolicyStrict PolicyKind = "strict"
	// PolicyExpression evaluates user supplied rule expressions.
	PolicyExpression PolicyKind = "expression"
)

// PolicyConfig selects and parameterizes a policy.
type PolicyConfig struct {
	Kind     PolicyKind `yaml:"kind" json:"kind"`
	Floor    int64      `yaml:"floor,omitempty" json:"floor,omitempty"`
	Deposit  string     `yaml:"deposit,omitempty" json:"deposit,omitempty"`
	Withdraw string     `yaml:"withdraw,omitempty" json:"withdraw,omitempty"`
}

var policyConstructors = map[PolicyKind]func(PolicyConfig) (Policy, error){
	PolicyFloor: func(cfg PolicyConfig) (Policy, error) {
		return FloorPolicy{Floor: cfg.Floor}, nil
	},
	PolicyStrict: func(PolicyConfig) (Policy, error) {
		return StrictPolicy{}, nil
	},
	PolicyExpression: func(cfg PolicyConfig) (Policy, error) {
		p, err := NewExpressionPolicy(rules.NewEvaluator(), cfg)
		if err != nil {
			return nil, err
		}
		return p, nil
	},
}

// NewPolicy builds the policy named by cfg.Kind. An empty kind means floor.
func NewPolicy(cfg PolicyConfig) (Policy, error) {
	if cfg.Kind == "" {
		cfg.Kind = PolicyFloor
	}

	build, ok := policyConstructors[cfg.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q (valid: %v)", ErrUnknownPolicy, cfg.Kind, PolicyKinds())
	}
	return build(cfg)
}

// PolicyKinds lists the built-in policy kinds in sorted order.
func PolicyKinds() []PolicyKind {
	kinds := make([]PolicyKind, 0, len(policyConstructors))
	for k := range policyConstructors {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// FloorPolicy keeps the balance at or above Floor.
// The zero value forbids going below zero.
type FloorPolicy struct {
	Floor int64
}

// AllowDeposit implements Policy.
func (p FloorPolicy) AllowDeposit(balance, amount int64) bool {
	return amount > 0 && balance <= math.MaxInt64-amount
}

// AllowWithdraw implements Policy.
func (p FloorPolicy) AllowWithdraw(balance, amount int64) bool {
	if amount <= 0 || balance < p.Floor {
		return false
	}
	return amount <= balance-p.Floor
}

// StrictPolicy allows a withdrawal only when amount is strictly less than the
// balance, so a withdrawal can never empty the account.
type StrictPolicy struct{}

// AllowDeposit implements Policy.
func (StrictPolicy) AllowDeposit(balance, amount int64) bool {
	return amount > 0 && balance <= math.MaxInt64-amount
}

// AllowWithdraw implements Policy.
func (StrictPolicy) AllowWithdraw(balance, amount int64) bool {
	return amount > 0 && amount < balance
}

// ExpressionPolicy evaluates compiled rule expressions. An empty expression
// falls back to the floor rule for that operation. Evaluation errors refuse
// the mutation, as do non-positive amounts.
type ExpressionPolicy struct {
	floor    FloorPolicy
	deposit  *rules.Rule
	withdraw *rules.Rule
}

// NewExpressionPolicy compiles the deposit and withdraw expressions of cfg.
func NewExpressionPolicy(e *rules.Evaluator, cfg PolicyConfig) (*ExpressionPolicy, error) {
	p := &ExpressionPolicy{floor: FloorPolicy{Floor: cfg.Floor}}

	if cfg.Deposit == "" && cfg.Withdraw == "" {
		return nil, fmt.Errorf("expression policy needs a deposit or withdraw expression: %w", rules.ErrEmptyExpression)
	}

	var err error
	if cfg.Deposit != "" {
		if p.deposit, err = e.Compile(cfg.Deposit); err != nil {
			return nil, fmt.Errorf("deposit rule: %w", err)
		}
	}
	if cfg.Withdraw != "" {
		if p.withdraw, err = e.Compile(cfg.Withdraw); err != nil {
			return nil, fmt.Errorf("withdraw rule: %w", err)
		}
	}
	return p, nil
}

// AllowDeposit implements Policy.
func (p *ExpressionPolicy) AllowDeposit(balance, amount int64) bool {
	if p.deposit == nil {
		return p.floor.AllowDeposit(balance, amount)
	}
	// Non-positive amounts and overflow are never allowed, whatever the rule says
	if amount <= 0 || balance > math.MaxInt64-amount {
		return false
	}
	return p.eval(p.deposit, balance, amount)
}

// AllowWithdraw implements Policy.
func (p *ExpressionPolicy) AllowWithdraw(balance, amount int64) bool {
	if p.withdraw == nil {
		return p.floor.AllowWithdraw(balance, amount)
	}
	if amount <= 0 || balance < math.MinInt64+amount {
		return false
	}
	return p.eval(p.withdraw, balance, amount)
}

func (p *ExpressionPolicy) eval(r *rules.Rule, balance, amount int64) bool {
	ok, err := r.Eval(rules.Input{Balance: balance, Amount: amount, Floor: p.floor.Floor})
	return err == nil && ok
}
