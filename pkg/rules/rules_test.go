package rules

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluator_Evaluate(t *testing.T) {
	tests := []struct {
		name       string
		expression string
		input      Input
		want       bool
	}{
		{"floor allows", "balance - amount >= floor", Input{Balance: 100, Amount: 40}, true},
		{"floor allows exact", "balance - amount >= floor", Input{Balance: 100, Amount: 100}, true},
		{"floor rejects", "balance - amount >= floor", Input{Balance: 100, Amount: 101}, false},
		{"negative floor", "balance - amount >= floor", Input{Balance: 10, Amount: 50, Floor: -50}, true},
		{"strict rejects equal", "amount > 0 && amount < balance", Input{Balance: 50, Amount: 50}, false},
		{"strict allows", "amount > 0 && amount < balance", Input{Balance: 50, Amount: 49}, true},
		{"cap on amount", "amount <= 500", Input{Amount: 501}, false},
		{"logical or", "amount == 1 || balance > 1000", Input{Balance: 5000, Amount: 7}, true},
		{"modulo", "amount % 5 == 0", Input{Amount: 25}, true},
	}

	e := NewEvaluator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Evaluate(tt.expression, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluator_CompileErrors(t *testing.T) {
	tests := []struct {
		name       string
		expression string
		wantErr    error
	}{
		{"empty", "   ", ErrEmptyExpression},
		{"not bool", "balance + amount", ErrInvalidExpression},
		{"unknown variable", "limit > amount", ErrInvalidExpression},
		{"syntax", "balance >=", ErrInvalidExpression},
		{"unsafe", `os.Exit(1) == nil`, ErrUnsafeOperation},
	}

	e := NewEvaluator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Compile(tt.expression)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
	assert.Equal(t, 0, e.CacheSize())
}

func TestEvaluator_CachesBySource(t *testing.T) {
	e := NewEvaluator()

	first, err := e.Compile("amount > 0")
	require.NoError(t, err)
	second, err := e.Compile("  amount > 0 ")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, "amount > 0", first.Source())
	assert.Equal(t, 1, e.CacheSize())
}

func TestEvaluator_ConcurrentCompile(t *testing.T) {
	e := NewEvaluator()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := e.Evaluate("balance >= amount", Input{Balance: 10, Amount: 3})
			assert.NoError(t, err)
			assert.True(t, ok)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, e.CacheSize())
}

func TestRule_EvalRuntimeError(t *testing.T) {
	e := NewEvaluator()
	rule, err := e.Compile("balance % amount == 0")
	require.NoError(t, err)

	// Integer modulo by zero fails at run time
	_, err = rule.Eval(Input{Balance: 10, Amount: 0})
	assert.ErrorIs(t, err, ErrInvalidExpression)
}
