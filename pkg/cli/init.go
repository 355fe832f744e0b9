package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/dshills/snapledger/pkg/ledger"
	"github.com/dshills/snapledger/pkg/scenario"
	"github.com/dshills/snapledger/pkg/validation"
)

// NewInitCommand creates the init command
func NewInitCommand() *cobra.Command {
	var (
		description string
		policy      string
		initial     int64
		force       bool
	)

	cmd := &cobra.Command{
		Use:   "init <scenario-name>",
		Short: "Initialize a new scenario",
		Long: `Create a new scenario file from a starter template.

The scenario is created in ~/.snapledger/scenarios/<scenario-name>.yaml

Examples:
  snapledger init my-scenario
  snapledger init overdraft --policy strict --initial 5000
  snapledger init my-scenario --force  # overwrite an existing file`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			if !validation.IsValidName(name) {
				return fmt.Errorf("invalid scenario name: %s\n\nScenario names must:\n  - Start with a letter\n  - Contain only letters, numbers, hyphens, and underscores\n  - Be between 1 and %d characters", name, validation.MaxNameLength)
			}

			path, err := validation.ResolveWithin(GetScenariosDir(), name+".yaml")
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("scenario already exists: %s\n\nLocation: %s", name, path)
			}

			sc, err := starterScenario(name, description, ledger.PolicyKind(policy), initial)
			if err != nil {
				return err
			}

			data, err := yaml.Marshal(sc)
			if err != nil {
				return fmt.Errorf("failed to marshal scenario: %w", err)
			}
			// The template must round-trip through the same checks as user files
			if _, err := scenario.Parse(data); err != nil {
				return fmt.Errorf("generated scenario is invalid: %w", err)
			}

			if err := os.WriteFile(path, data, 0644); err != nil {
				return fmt.Errorf("failed to write scenario file: %w", err)
			}
			Logger().Debug("scenario created", zap.String("path", path))

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Created scenario: %s\n", name)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  Location: %s\n", path)

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "\nNext steps:")
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  1. Edit the steps in %s\n", path)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  2. Validate: snapledger validate %s\n", name)
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  3. Run: snapledger run %s\n", name)

			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Scenario description")
	cmd.Flags().StringVarP(&policy, "policy", "p", string(ledger.PolicyFloor), "Account policy (floor, strict)")
	cmd.Flags().Int64Var(&initial, "initial", 100, "Initial balance")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing scenario")

	return cmd
}

// starterScenario builds a deposit, withdraw, undo, redo walk-through that
// passes for any initial balance the policy accepts.
func starterScenario(name, description string, kind ledger.PolicyKind, initial int64) (*scenario.Scenario, error) {
	switch kind {
	case ledger.PolicyFloor, ledger.PolicyStrict:
	case ledger.PolicyExpression:
		return nil, fmt.Errorf("expression policies need rules; start from %s and edit the policy block", ledger.PolicyFloor)
	default:
		return nil, fmt.Errorf("%w: %s", ledger.ErrUnknownPolicy, kind)
	}
	if description == "" {
		description = "Deposit, withdraw, then step back and forward through history"
	}

	ptr := func(v int64) *int64 { return &v }
	yes := true
	afterDeposit := initial + 10

	return &scenario.Scenario{
		Name:        name,
		Description: description,
		Initial:     initial,
		Policy:      ledger.PolicyConfig{Kind: kind},
		Steps: []scenario.Step{
			{Op: scenario.OpDeposit, Amount: 10, Expect: &scenario.Expect{Balance: ptr(afterDeposit), OK: &yes}},
			{Op: scenario.OpWithdraw, Amount: 5, Expect: &scenario.Expect{Balance: ptr(afterDeposit - 5)}},
			{Op: scenario.OpUndo, Expect: &scenario.Expect{Balance: ptr(afterDeposit)}},
			{Op: scenario.OpRedo, Expect: &scenario.Expect{Balance: ptr(afterDeposit - 5)}},
		},
	}, nil
}
