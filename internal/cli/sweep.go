package cli

import (
	"github.com/spf13/cobra"

	"condor-trader/internal/logging"
	"condor-trader/internal/monitor"
)

// addSweepCommands adds the zombie-order cleanup commands.
func addSweepCommands(rootCmd *cobra.Command, app *App) {
	var dryRun bool

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "Cancel working orders older than the age threshold",
		Long: `Fetches all working orders and cancels any past the configured age
threshold. Exit code 1 when anything was cancelled (or would be, with
--dry-run) or any cancel failed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			m := monitor.NewMonitor(app.Config.Monitor, app.Broker, app.Store,
				logging.FromContext(cmd.Context()))

			result, err := m.Sweep(cmd.Context(), dryRun)
			if err != nil {
				app.Exit(ExitInternalErr)
				return err
			}

			out := NewOutput(cmd)
			if out.IsJSON() {
				if err := out.JSON(result); err != nil {
					return err
				}
			} else {
				out.Header("Zombie sweep")
				out.Printf("  Checked: %d  Cancelled: %d  Failed: %d  (cumulative: %d)\n",
					result.Checked, len(result.Cancelled), len(result.Failures), result.TotalCount)
				for _, c := range result.Cancelled {
					verb := "cancelled"
					if c.DryRun {
						verb = "would cancel"
					}
					out.Warn("  %s %s (%s, age %s)", verb, c.OrderID, c.Symbol, c.AgeAtCancel)
				}
				for _, f := range result.Failures {
					out.Error("  cancel failed for %s (%s): %s", f.OrderID, f.Symbol, f.Error)
				}
			}

			if len(result.Cancelled) > 0 || len(result.Failures) > 0 {
				app.Exit(ExitActionNeeded)
			}
			return nil
		},
	}
	sweepCmd.Flags().BoolVar(&dryRun, "dry-run", false, "report zombies without cancelling")

	historyCmd := &cobra.Command{
		Use:   "sweep-history",
		Short: "Show recent zombie-order cancellations",
		RunE: func(cmd *cobra.Command, args []string) error {
			m := monitor.NewMonitor(app.Config.Monitor, app.Broker, app.Store,
				logging.FromContext(cmd.Context()))
			history, err := m.History(cmd.Context())
			if err != nil {
				app.Exit(ExitInternalErr)
				return err
			}

			out := NewOutput(cmd)
			if out.IsJSON() {
				return out.JSON(history)
			}
			out.Header("Recent cancellations")
			for _, c := range history {
				out.Printf("  %s  %s (%s, age %s, dry-run %v)\n",
					c.CancelledAt.Format("2006-01-02 15:04:05"), c.OrderID, c.Symbol, c.AgeAtCancel, c.DryRun)
			}
			return nil
		},
	}

	rootCmd.AddCommand(sweepCmd, historyCmd)
}
