package rules

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

var (
	// ErrInvalidExpression is returned when an expression fails to compile or run
	ErrInvalidExpression = errors.New("invalid expression")
	// ErrUnsafeOperation is returned when an expression references blocked identifiers
	ErrUnsafeOperation = errors.New("unsafe operation in expression")
	// ErrEmptyExpression is returned for blank expressions
	ErrEmptyExpression = errors.New("empty expression")
)

// Variables exposed to every rule.
const (
	VarBalance = "balance"
	VarAmount  = "amount"
	VarFloor   = "floor"
)

// Input is the data a rule is evaluated against.
type Input struct {
	Balance int64
	Amount  int64
	Floor   int64
}

func (in Input) env() map[string]interface{} {
	return map[string]interface{}{
		VarBalance: in.Balance,
		VarAmount:  in.Amount,
		VarFloor:   in.Floor,
	}
}

// Rule is a compiled boolean expression.
type Rule struct {
	source  string
	program *vm.Program
}

// Source returns the expression text the rule was compiled from.
func (r *Rule) Source() string {
	return r.source
}

// Eval runs the rule against in.
func (r *Rule) Eval(in Input) (bool, error) {
	result, err := expr.Run(r.program, in.env())
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}

	allowed, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("%w: expected bool result, got %T", ErrInvalidExpression, result)
	}
	return allowed, nil
}

// Evaluator compiles rules and caches them by source text.
// It is safe for concurrent use.
type Evaluator struct {
	mu    sync.Mutex
	cache map[string]*Rule
}

// NewEvaluator creates an evaluator with an empty program cache.
func NewEvaluator() *Evaluator {
	return &Evaluator{
		cache: make(map[string]*Rule),
	}
}

// Compile returns the rule for expression, compiling it on first use.
// Only balance, amount and floor are in scope, and the result must be a bool.
func (e *Evaluator) Compile(expression string) (*Rule, error) {
	expression = strings.TrimSpace(expression)
	if expression == "" {
		return nil, ErrEmptyExpression
	}

	if err := validateExpression(expression); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if rule, ok := e.cache[expression]; ok {
		return rule, nil
	}

	program, err := expr.Compile(expression,
		expr.Env(Input{}.env()),
		expr.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidExpression, err)
	}

	rule := &Rule{source: expression, program: program}
	e.cache[expression] = rule
	return rule, nil
}

// Evaluate compiles expression if needed and runs it against in.
func (e *Evaluator) Evaluate(expression string, in Input) (bool, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return false, err
	}
	return rule.Eval(in)
}

// CacheSize returns the number of compiled rules held.
func (e *Evaluator) CacheSize() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.cache)
}

// validateExpression rejects expressions that reach for anything outside
// arithmetic over the rule variables.
func validateExpression(expression string) error {
	unsafePatterns := []string{
		"os.",
		"exec.",
		"http.",
		"net.",
		"syscall.",
		"unsafe.",
		"__proto__",
		"ReadFile",
		"WriteFile",
		"Command",
	}

	lowerExpr := strings.ToLower(expression)
	for _, pattern := range unsafePatterns {
		if strings.Contains(lowerExpr, strings.ToLower(pattern)) {
			return ErrUnsafeOperation
		}
	}
	return nil
}
