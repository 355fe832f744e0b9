package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/snapledger/pkg/ledger"
	"github.com/dshills/snapledger/pkg/scenario"
)

// NewValidateCommand creates the validate command
func NewValidateCommand() *cobra.Command {
	var (
		verbose     bool
		printSchema bool
	)

	cmd := &cobra.Command{
		Use:   "validate [scenario]",
		Short: "Validate a scenario",
		Long: `Validate a scenario file without running it.

This checks:
- The document against the scenario JSON schema
- Scenario name and step structure
- The account policy (including rule expressions)

Examples:
  snapledger validate ledger-demo
  snapledger validate ./examples/scenarios/strict-price.yaml --verbose
  snapledger validate --schema`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if printSchema {
				_, err := cmd.OutOrStdout().Write(scenario.Schema())
				return err
			}
			if len(args) == 0 {
				return fmt.Errorf("requires a scenario name or file")
			}

			path, err := resolveScenarioPath(args[0])
			if err != nil {
				return err
			}

			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read scenario file: %w", err)
			}

			if err := scenario.ValidateSchema(data); err != nil {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "✗ Scenario does not match the schema")
				if verbose {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "  Error: %v\n", err)
				}
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "✓ Scenario matches the schema")

			sc, err := scenario.Parse(data)
			if err != nil {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "✗ Scenario structure invalid")
				if verbose {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "  Error: %v\n", err)
				}
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Scenario structure valid (%d steps)\n", len(sc.Steps))

			applyDefaults(sc, GlobalConfig.File)
			if _, err := ledger.NewPolicy(sc.Policy); err != nil {
				_, _ = fmt.Fprintln(cmd.ErrOrStderr(), "✗ Policy invalid")
				if verbose {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "  Error: %v\n", err)
				}
				return err
			}
			kind := sc.Policy.Kind
			if kind == "" {
				kind = ledger.PolicyFloor
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "✓ Policy '%s' valid\n", kind)

			if verbose && len(sc.Watchers) > 0 {
				for _, w := range sc.Watchers {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  Watcher '%s' fires below %d\n", w.Name, w.Below)
				}
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "\n✓ Scenario validation passed")
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Scenario '%s' is valid and ready to run\n", sc.Name)

			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed validation information")
	cmd.Flags().BoolVar(&printSchema, "schema", false, "Print the scenario JSON schema and exit")

	return cmd
}
