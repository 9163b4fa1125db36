package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"condor-trader/internal/models"
)

// addRegimeCommands adds regime snapshot commands.
func addRegimeCommands(rootCmd *cobra.Command, app *App) {
	regimeCmd := &cobra.Command{
		Use:   "regime",
		Short: "Read or write the market regime snapshot",
	}

	var (
		bias       string
		confidence float64
		volatility string
		maxPosPct  float64
		maxDaily   float64
		validFor   time.Duration
		source     string
	)

	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Write a new regime snapshot (brain side)",
		Long: `Writes the regime snapshot atomically. Run by the slow regime
classification job; the decision path only ever reads it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			r := models.MarketRegime{
				Bias:            models.Bias(strings.ToUpper(bias)),
				Confidence:      confidence,
				Volatility:      models.VolatilityRegime(strings.ToUpper(volatility)),
				MaxPositionPct:  maxPosPct,
				MaxDailyRiskPct: maxDaily,
				UpdatedAt:       now,
				ValidUntil:      now.Add(validFor),
				Source:          source,
			}

			if err := app.Regime.Update(r); err != nil {
				app.Exit(ExitInternalErr)
				return err
			}

			out := NewOutput(cmd)
			if out.IsJSON() {
				return out.JSON(r)
			}
			out.Success("Regime updated: %s/%s confidence %.2f, valid until %s",
				r.Bias, r.Volatility, r.Confidence, r.ValidUntil.Format(time.RFC3339))
			return nil
		},
	}
	updateCmd.Flags().StringVar(&bias, "bias", "NEUTRAL", "directional bias (LONG, SHORT, NEUTRAL)")
	updateCmd.Flags().Float64Var(&confidence, "confidence", 0.5, "bias confidence [0,1]")
	updateCmd.Flags().StringVar(&volatility, "volatility", "NORMAL", "volatility regime (LOW, NORMAL, HIGH, EXTREME)")
	updateCmd.Flags().Float64Var(&maxPosPct, "max-position-pct", 5.0, "position size ceiling (percent of equity)")
	updateCmd.Flags().Float64Var(&maxDaily, "max-daily-risk-pct", 2.0, "daily risk ceiling (percent of equity)")
	updateCmd.Flags().DurationVar(&validFor, "valid-for", 45*time.Minute, "validity window from now")
	updateCmd.Flags().StringVar(&source, "source", "manual", "snapshot producer identifier")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the regime the decision path currently sees",
		RunE: func(cmd *cobra.Command, args []string) error {
			r := app.Regime.Get()
			out := NewOutput(cmd)
			if out.IsJSON() {
				return out.JSON(r)
			}

			out.Header("Market Regime")
			out.Printf("  Bias:        %s (confidence %.2f)\n", r.Bias, r.Confidence)
			out.Printf("  Volatility:  %s\n", r.Volatility)
			out.Printf("  Max pos:     %.1f%%  Max daily risk: %.1f%%\n", r.MaxPositionPct, r.MaxDailyRiskPct)
			out.Printf("  Updated:     %s\n", r.UpdatedAt.Format(time.RFC3339))
			out.Printf("  Valid until: %s\n", r.ValidUntil.Format(time.RFC3339))
			out.Printf("  Source:      %s\n", r.Source)
			if r.Source == "conservative-default" {
				out.Warn("Snapshot missing or stale: conservative default in effect")
				app.Exit(ExitActionNeeded)
			}
			return nil
		},
	}

	checkCmd := &cobra.Command{
		Use:   "check [side]",
		Short: "Check whether the regime permits trading a side (BUY or SELL)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			side := models.SideSell
			if len(args) == 1 {
				side = models.OrderSide(strings.ToUpper(args[0]))
			}
			if side != models.SideBuy && side != models.SideSell {
				app.Exit(ExitInternalErr)
				return fmt.Errorf("invalid side %q (must be BUY or SELL)", args[0])
			}

			ok, reason := app.Regime.ShouldTrade(side)
			out := NewOutput(cmd)
			if out.IsJSON() {
				return out.JSON(map[string]interface{}{
					"side": side, "permitted": ok, "reason": reason,
				})
			}
			if ok {
				out.Success("%s permitted: %s", side, reason)
			} else {
				out.Warn("%s blocked: %s", side, reason)
				app.Exit(ExitActionNeeded)
			}
			return nil
		},
	}

	regimeCmd.AddCommand(updateCmd, showCmd, checkCmd)
	rootCmd.AddCommand(regimeCmd)
}
