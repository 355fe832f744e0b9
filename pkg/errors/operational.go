// Package errors carries operational context on errors returned by the
// scenario runner and the CLI.
package errors

import (
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
)

// NoStep marks an OperationalError that is not tied to a scenario step.
const NoStep = -1

// OperationalError wraps a failure with the scenario, step and operation it
// happened in.
type OperationalError struct {
	Operation  string                 // What was being done, e.g. "checking step"
	Scenario   string                 // Scenario name
	Step       int                    // Step index, NoStep if not applicable
	Timestamp  time.Time              // When the error occurred
	Attributes map[string]interface{} // Additional context (optional)
	Cause      error
}

// NewOperationalError wraps cause. It returns nil when cause is nil.
//
//	if err != nil {
//	    return NewOperationalError("running step", sc.Name, i, err)
//	}
func NewOperationalError(operation, scenario string, step int, cause error) *OperationalError {
	if cause == nil {
		return nil
	}

	return &OperationalError{
		Operation: operation,
		Scenario:  scenario,
		Step:      step,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

// WithAttr records an attribute and returns e. Safe on a nil receiver.
func (e *OperationalError) WithAttr(key string, value interface{}) *OperationalError {
	if e == nil {
		return nil
	}
	if e.Attributes == nil {
		e.Attributes = make(map[string]interface{})
	}
	e.Attributes[key] = value
	return e
}

// Error formats as "[timestamp] operation: scenario=name step=n: cause".
// The step is omitted when it is NoStep.
func (e *OperationalError) Error() string {
	if e == nil {
		return "<nil OperationalError>"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s: scenario=%s", e.Timestamp.Format(time.RFC3339), e.Operation, e.Scenario)
	if e.Step != NoStep {
		fmt.Fprintf(&b, " step=%d", e.Step)
	}
	fmt.Fprintf(&b, ": %v", e.Cause)
	return b.String()
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *OperationalError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Fields returns the error context as zap fields, attributes in key order.
func (e *OperationalError) Fields() []zap.Field {
	if e == nil {
		return nil
	}

	fields := []zap.Field{
		zap.String("operation", e.Operation),
		zap.String("scenario", e.Scenario),
	}
	if e.Step != NoStep {
		fields = append(fields, zap.Int("step", e.Step))
	}

	keys := make([]string, 0, len(e.Attributes))
	for k := range e.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, zap.Any(k, e.Attributes[k]))
	}
	return append(fields, zap.Error(e.Cause))
}

// StepOf returns the step index carried by the first OperationalError in
// err's chain.
func StepOf(err error) (int, bool) {
	var opErr *OperationalError
	if !stderrors.As(err, &opErr) || opErr.Step == NoStep {
		return NoStep, false
	}
	return opErr.Step, true
}
