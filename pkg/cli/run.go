package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	operrors "github.com/dshills/snapledger/pkg/errors"
	"github.com/dshills/snapledger/pkg/metrics"
	"github.com/dshills/snapledger/pkg/scenario"
)

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	var (
		outputJSON  bool
		showMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "run <scenario>",
		Short: "Run a scenario",
		Long: `Run a scenario against a fresh account and check its expectations.

The argument is either a path to a scenario file or the name of a scenario
in ~/.snapledger/scenarios/<scenario>.yaml

Examples:
  # Run a named scenario
  snapledger run ledger-demo

  # Run a file and print the report as JSON
  snapledger run ./examples/scenarios/redo-tail.yaml --output-json

  # Print operation metrics after the run
  snapledger run ledger-demo --metrics`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, path, err := loadScenario(args[0])
			if err != nil {
				return err
			}
			Logger().Debug("scenario loaded", zap.String("path", path))

			reg := prometheus.NewRegistry()
			runner := scenario.NewRunner(
				scenario.WithLogger(Logger()),
				scenario.WithRecorder(metrics.NewCollector(reg)),
			)

			report, runErr := runner.Run(cmd.Context(), sc)

			if outputJSON {
				if report != nil {
					output, err := json.MarshalIndent(report, "", "  ")
					if err != nil {
						return fmt.Errorf("failed to marshal report: %w", err)
					}
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(output))
				}
			} else {
				printReport(cmd.OutOrStdout(), sc, report, runErr)
			}

			if showMetrics {
				_, _ = fmt.Fprintln(cmd.OutOrStdout())
				if err := metrics.WriteText(cmd.OutOrStdout(), reg); err != nil {
					return err
				}
			}

			return runErr
		},
	}

	cmd.Flags().BoolVar(&outputJSON, "output-json", false, "Output the report as JSON")
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "Print operation metrics after the run")

	return cmd
}

// printReport writes a human-readable summary of a scenario run.
func printReport(w io.Writer, sc *scenario.Scenario, report *scenario.Report, runErr error) {
	if report == nil {
		_, _ = fmt.Fprintf(w, "✗ Scenario '%s' could not start: %v\n", sc.Name, runErr)
		return
	}

	_, _ = fmt.Fprintf(w, "✓ Started scenario '%s' (run %s)\n", sc.Name, report.RunID)
	for _, step := range report.Steps {
		_, _ = fmt.Fprintln(w, formatStep(step))
	}

	if runErr != nil {
		if step, ok := operrors.StepOf(runErr); ok {
			_, _ = fmt.Fprintf(w, "✗ Step %d failed: %v\n", step, runErr)
		} else {
			_, _ = fmt.Fprintf(w, "✗ %v\n", runErr)
		}
		return
	}
	_, _ = fmt.Fprintf(w, "✓ Scenario passed (%d steps, %s)\n", len(report.Steps), report.Duration)
	_, _ = fmt.Fprintf(w, "  Balance: %d  Cursor: %d  Length: %d\n",
		report.Final.Balance, report.Final.Cursor, report.Final.Length)
}

func formatStep(step scenario.StepResult) string {
	mark := "✓"
	if !step.OK {
		mark = "·"
	}
	op := string(step.Op)
	if step.Amount != 0 {
		op = fmt.Sprintf("%s %d", op, step.Amount)
	}
	line := fmt.Sprintf("  %s [%d] %-14s balance=%d cursor=%d length=%d",
		mark, step.Index, op, step.Balance, step.Cursor, step.Length)
	for _, r := range step.Reactions {
		line += fmt.Sprintf("\n      ↳ %s: %s", r.Reactor, r.Message)
	}
	return line
}
