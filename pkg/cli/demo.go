package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dshills/snapledger/pkg/ledger"
)

// NewDemoCommand creates the demo command
func NewDemoCommand() *cobra.Command {
	var initial int64

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Walk an account through deposits, undo and redo",
		Long: `Create an account, deposit 20 and 30, undo twice and redo once,
printing the balance and history position after each step.

Examples:
  snapledger demo
  snapledger demo --initial 500`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			policy, err := ledger.NewPolicy(GlobalConfig.File.Policy)
			if err != nil {
				return err
			}

			account := ledger.NewAccount(initial,
				ledger.WithPolicy(policy),
				ledger.WithCapacity(GlobalConfig.File.History.Capacity),
				ledger.WithLogger(Logger()),
			)
			return runDemo(cmd.OutOrStdout(), account)
		},
	}

	cmd.Flags().Int64Var(&initial, "initial", 100, "Initial balance")

	return cmd
}

func runDemo(w io.Writer, account *ledger.Account) error {
	show := func(label string, ok bool) {
		mark := "✓"
		if !ok {
			mark = "·"
		}
		_, _ = fmt.Fprintf(w, "%s %-12s balance=%d cursor=%d length=%d\n",
			mark, label, account.Balance(), account.Cursor(), account.Len())
	}

	show("open", true)

	_, ok := account.Deposit(20)
	show("deposit 20", ok)
	_, ok = account.Deposit(30)
	show("deposit 30", ok)
	_, ok = account.Undo()
	show("undo", ok)
	_, ok = account.Undo()
	show("undo", ok)
	_, ok = account.Redo()
	show("redo", ok)

	if !ok {
		return fmt.Errorf("demo did not complete: redo refused")
	}
	return nil
}
