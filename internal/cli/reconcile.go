package cli

import (
	"github.com/spf13/cobra"

	"condor-trader/internal/logging"
	"condor-trader/internal/reconcile"
)

// addReconcileCommands adds the state reconciliation commands.
func addReconcileCommands(rootCmd *cobra.Command, app *App) {
	reconcileCmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Compare broker positions against the local snapshot",
		Long: `Fetches broker positions, compares them against the local position
snapshot, and reports discrepancies. Exit code 1 when any discrepancy is
found; nothing is ever auto-corrected.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := reconcile.NewReconciler(app.Config.Reconcile, app.Broker, app.Store,
				logging.FromContext(cmd.Context()))

			run, err := r.Run(cmd.Context())
			if err != nil {
				app.Exit(ExitInternalErr)
				return err
			}

			out := NewOutput(cmd)
			if out.IsJSON() {
				if err := out.JSON(run); err != nil {
					return err
				}
			} else {
				out.Header("Reconciliation")
				out.Printf("  Local positions: %d  Broker positions: %d\n",
					run.LocalCount, run.ExternalCount)
				if len(run.Discrepancies) == 0 {
					out.Success("  No discrepancies")
				}
				for _, d := range run.Discrepancies {
					out.Warn("  [%s] %s", d.Kind, d.Message)
				}
			}

			if len(run.Discrepancies) > 0 {
				app.Exit(ExitActionNeeded)
			}
			return nil
		},
	}

	historyCmd := &cobra.Command{
		Use:   "reconcile-history",
		Short: "Show recent reconciliation sweeps",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Store == nil {
				return nil
			}
			runs, err := app.Store.RecentReconcileRuns(cmd.Context(), 20)
			if err != nil {
				app.Exit(ExitInternalErr)
				return err
			}

			out := NewOutput(cmd)
			if out.IsJSON() {
				return out.JSON(runs)
			}
			out.Header("Recent reconciliations")
			for _, run := range runs {
				out.Printf("  %s  local %d / external %d, discrepancies %d\n",
					run.RanAt.Format("2006-01-02 15:04:05"), run.LocalCount,
					run.ExternalCount, len(run.Discrepancies))
			}
			return nil
		},
	}

	rootCmd.AddCommand(reconcileCmd, historyCmd)
}
