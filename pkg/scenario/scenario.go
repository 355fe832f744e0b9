package scenario

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dshills/snapledger/pkg/ledger"
	"github.com/dshills/snapledger/pkg/validation"
)

// ErrInvalidScenario is returned when a scenario is structurally valid YAML
// but cannot be run.
var ErrInvalidScenario = errors.New("invalid scenario")

// Op names a scenario step operation.
type Op string

const (
	OpDeposit  Op = "deposit"
	OpWithdraw Op = "withdraw"
	OpUndo     Op = "undo"
	OpRedo     Op = "redo"
	OpRestore  Op = "restore"
	OpExpect   Op = "expect"
)

// Scenario is a scripted sequence of account operations with expectations.
type Scenario struct {
	Name        string              `yaml:"name" json:"name"`
	Description string              `yaml:"description,omitempty" json:"description,omitempty"`
	Initial     int64               `yaml:"initial" json:"initial"`
	Capacity    int                 `yaml:"capacity,omitempty" json:"capacity,omitempty"`
	Policy      ledger.PolicyConfig `yaml:"policy,omitempty" json:"policy,omitempty"`
	Watchers    []Watcher           `yaml:"watchers,omitempty" json:"watchers,omitempty"`
	Steps       []Step              `yaml:"steps" json:"steps"`
}

// Watcher configures a threshold reactor.
type Watcher struct {
	Name  string `yaml:"name" json:"name"`
	Below int64  `yaml:"below" json:"below"`
}

// Step is one scenario operation. Amount applies to deposit and withdraw,
// Seq to restore.
type Step struct {
	Op     Op      `yaml:"op" json:"op"`
	Amount int64   `yaml:"amount,omitempty" json:"amount,omitempty"`
	Seq    *int    `yaml:"seq,omitempty" json:"seq,omitempty"`
	Expect *Expect `yaml:"expect,omitempty" json:"expect,omitempty"`
}

// Expect lists assertions checked after a step. Unset fields are not checked.
type Expect struct {
	Balance   *int64      `yaml:"balance,omitempty" json:"balance,omitempty"`
	OK        *bool       `yaml:"ok,omitempty" json:"ok,omitempty"`
	Length    *int        `yaml:"length,omitempty" json:"length,omitempty"`
	Cursor    *int        `yaml:"cursor,omitempty" json:"cursor,omitempty"`
	Reactions *int        `yaml:"reactions,omitempty" json:"reactions,omitempty"`
	Path      string      `yaml:"path,omitempty" json:"path,omitempty"`
	Equals    interface{} `yaml:"equals,omitempty" json:"equals,omitempty"`
}

// Parse validates data against the scenario schema and decodes it.
func Parse(data []byte) (*Scenario, error) {
	if err := ValidateSchema(data); err != nil {
		return nil, err
	}

	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario YAML: %w", err)
	}

	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Load reads and parses the scenario file at path.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return Parse(data)
}

// Validate checks the rules the schema cannot express.
func (s *Scenario) Validate() error {
	if !validation.IsValidName(s.Name) {
		return fmt.Errorf("%w: name %q must start with a letter and contain only letters, digits, '-' or '_'", ErrInvalidScenario, s.Name)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("%w: no steps", ErrInvalidScenario)
	}

	for i, step := range s.Steps {
		switch step.Op {
		case OpDeposit, OpWithdraw, OpUndo, OpRedo:
		case OpRestore:
			if step.Seq == nil {
				return fmt.Errorf("%w: step %d: restore needs seq", ErrInvalidScenario, i)
			}
		case OpExpect:
			if step.Expect == nil {
				return fmt.Errorf("%w: step %d: expect needs an expect block", ErrInvalidScenario, i)
			}
		default:
			return fmt.Errorf("%w: step %d: unknown op %q", ErrInvalidScenario, i, step.Op)
		}

		if step.Expect != nil && step.Expect.Path == "" && step.Expect.Equals != nil {
			return fmt.Errorf("%w: step %d: equals needs a path", ErrInvalidScenario, i)
		}
	}
	return nil
}
