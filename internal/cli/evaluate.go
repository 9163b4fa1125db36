package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"condor-trader/internal/broker"
	"condor-trader/internal/logging"
	"condor-trader/internal/models"
	"condor-trader/internal/pipeline"
	"condor-trader/pkg/utils"
)

// addEvaluateCommands adds the decision-cycle command.
func addEvaluateCommands(rootCmd *cobra.Command, app *App) {
	var (
		symbol    string
		price     float64
		currentIV float64
		ivLow     float64
		ivHigh    float64
		adx       float64
		plusDI    float64
		minusDI   float64
		rsi       float64
		equity    float64
		submit    bool
	)

	evaluateCmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Run one decision cycle for a symbol",
		Long: `Runs regime gate, signal classification, structure construction, and
the risk gate for one symbol. With --submit the approved order is sent
through the broker; otherwise the cycle is advisory.

Exit code 1 means the trade was blocked or skipped; the JSON result
names the exact rule and reason.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := NewOutput(cmd)

			evaluator := pipeline.NewEvaluator(app.Config, app.Regime, app.Broker, app.Store,
				logging.FromContext(cmd.Context()), submit)

			account := models.AccountState{
				Equity:        equity,
				EarningsDates: parseEarnings(app.Config.Risk.Earnings),
			}
			if app.Broker != nil {
				positions, err := fetchOpenPositions(cmd.Context(), app.Broker)
				if err != nil {
					// The position-count rule cannot be verified without
					// the broker's book; refusing beats failing open.
					app.Exit(ExitInternalErr)
					return fmt.Errorf("fetching open positions: %w", err)
				}
				account.OpenPositions = positions
			}

			in := models.IndicatorSet{
				Symbol:    strings.ToUpper(symbol),
				Price:     price,
				CurrentIV: currentIV,
				IVLow52w:  ivLow,
				IVHigh52w: ivHigh,
				ADX:       adx,
				PlusDI:    plusDI,
				MinusDI:   minusDI,
				RSI:       rsi,
			}

			outcome, err := evaluator.Evaluate(cmd.Context(), in, account)
			if err != nil {
				app.Exit(ExitInternalErr)
				return err
			}

			if out.IsJSON() {
				if err := out.JSON(outcome); err != nil {
					return err
				}
			} else {
				printOutcome(out, outcome)
			}

			if !outcome.Submitted && (outcome.BlockedBy != "" || outcome.Signal.Strategy == models.StrategySkip) {
				app.Exit(ExitActionNeeded)
			}
			return nil
		},
	}

	evaluateCmd.Flags().StringVar(&symbol, "symbol", "SPY", "underlying symbol")
	evaluateCmd.Flags().Float64Var(&price, "price", 0, "current underlying price")
	evaluateCmd.Flags().Float64Var(&currentIV, "iv", 0, "current implied volatility")
	evaluateCmd.Flags().Float64Var(&ivLow, "iv-52w-low", 0, "52-week IV low")
	evaluateCmd.Flags().Float64Var(&ivHigh, "iv-52w-high", 0, "52-week IV high")
	evaluateCmd.Flags().Float64Var(&adx, "adx", 0, "ADX reading")
	evaluateCmd.Flags().Float64Var(&plusDI, "plus-di", 0, "+DI reading")
	evaluateCmd.Flags().Float64Var(&minusDI, "minus-di", 0, "-DI reading")
	evaluateCmd.Flags().Float64Var(&rsi, "rsi", 50, "RSI reading")
	evaluateCmd.Flags().Float64Var(&equity, "equity", 0, "account equity for position sizing")
	evaluateCmd.Flags().BoolVar(&submit, "submit", false, "submit the approved order to the broker")
	_ = evaluateCmd.MarkFlagRequired("price")

	historyCmd := &cobra.Command{
		Use:   "decisions-history",
		Short: "Show recent decision cycles from the journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.Store == nil {
				return nil
			}
			decisions, err := app.Store.RecentDecisions(cmd.Context(), 20)
			if err != nil {
				app.Exit(ExitInternalErr)
				return err
			}

			out := NewOutput(cmd)
			if out.IsJSON() {
				return out.JSON(decisions)
			}
			out.Header("Recent decisions")
			for _, d := range decisions {
				verdict := "blocked"
				if d.Approved {
					verdict = "approved"
				}
				if d.Strategy == models.StrategySkip {
					verdict = "skipped"
				}
				out.Printf("  %s  %-4s %-16s %-8s  %s\n",
					d.Timestamp.Format("2006-01-02 15:04:05"), d.Symbol, d.Strategy, verdict, d.Reasoning)
			}
			return nil
		},
	}

	rootCmd.AddCommand(evaluateCmd, historyCmd)
}

// fetchOpenPositions loads the broker's position book for the
// position-count rule. The read is idempotent and retried once; the
// caller treats a final failure as fatal rather than counting zero.
func fetchOpenPositions(ctx context.Context, b broker.Broker) ([]models.Position, error) {
	return utils.RetryWithResult(ctx, utils.ReadRetryConfig(), func() ([]models.Position, error) {
		return b.ListPositions(ctx)
	})
}

func printOutcome(out *Output, o *pipeline.Outcome) {
	out.Header("Decision: %s", o.Symbol)
	out.Printf("  Strategy:   %s (confidence %.2f)\n", o.Signal.Strategy, o.Signal.Confidence)
	out.Printf("  Reasoning:  %s\n", o.Signal.Reasoning)

	if o.Order != nil {
		out.Printf("  Legs:\n")
		for _, leg := range o.Order.Legs {
			out.Printf("    %-4s %-4s strike %.2f exp %s (est. premium %.2f)\n",
				leg.Side, leg.OptionType, leg.Strike, leg.Expiration.Format("2006-01-02"), leg.EstimatedPremium)
		}
		out.Printf("  Net credit: $%.2f  Max loss: $%.2f  PoP est: %.0f%%\n",
			o.Order.NetCredit, o.Order.MaxLoss, o.Order.ProbProfit*100)
	}

	if o.RiskResult != nil {
		out.Printf("  Risk checks:\n")
		for _, c := range o.RiskResult.Checks {
			mark := "PASS"
			if !c.Passed {
				mark = "FAIL"
			}
			out.Printf("    [%s] %-18s %s\n", mark, c.Rule, c.Message)
		}
	}

	switch {
	case o.Submitted:
		out.Success("Submitted order %s", o.OrderID)
	case o.BlockedBy != "":
		out.Warn("Blocked by %s: %s", o.BlockedBy, o.Reason)
	case o.Signal.Strategy == models.StrategySkip:
		out.Warn("Skipped: %s", o.Reason)
	default:
		out.Success("Approved (advisory mode, not submitted)")
	}
}

// parseEarnings converts configured YYYY-MM-DD earnings dates into the
// shape the risk gate consumes; malformed dates are skipped.
func parseEarnings(raw map[string][]string) map[string][]time.Time {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string][]time.Time, len(raw))
	for symbol, dates := range raw {
		for _, d := range dates {
			t, err := time.Parse("2006-01-02", d)
			if err != nil {
				continue
			}
			key := strings.ToUpper(symbol)
			out[key] = append(out[key], t)
		}
	}
	return out
}
