package risk

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// Property: shrinking a proposed position can only help the sizing
// check. If a trade fails position sizing at quantity q, then at any
// quantity q' < q where the collateral fits the limit the check passes;
// it never requires a size increase to pass.
func TestProperty_SizingMonotoneInQuantity(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	g := NewGate(testConfig(), []string{"SPY"})

	equityGen := gen.Float64Range(10000, 1000000)
	qtyGen := gen.IntRange(1, 50)

	properties.Property("smaller size never flips sizing pass->fail", prop.ForAll(
		func(equity float64, qty int) bool {
			account := testAccount(equity)

			larger := testCondor("SPY", 35)
			larger.Quantity = qty + 1
			smaller := testCondor("SPY", 35)
			smaller.Quantity = qty

			largerResult := g.EvaluateAll(larger, account, testNow)
			smallerResult := g.EvaluateAll(smaller, account, testNow)

			largerPass := largerResult.Checks[2].Passed
			smallerPass := smallerResult.Checks[2].Passed

			// Monotone: pass at the larger size implies pass at the smaller.
			if largerPass && !smallerPass {
				return false
			}
			return true
		},
		equityGen, qtyGen,
	))

	properties.Property("sizing check matches the collateral arithmetic", prop.ForAll(
		func(equity float64, qty int) bool {
			account := testAccount(equity)
			order := testCondor("SPY", 35)
			order.Quantity = qty

			result := g.EvaluateAll(order, account, testNow)
			wantPass := order.Collateral() <= equity*0.05
			return result.Checks[2].Passed == wantPass
		},
		equityGen, qtyGen,
	))

	properties.TestingRun(t)
}

// Property: the gate always reports all six checks in a fixed order,
// and Approved is exactly the conjunction of the individual results.
func TestProperty_ApprovedIsConjunction(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	g := NewGate(testConfig(), []string{"SPY", "QQQ"})

	symbolGen := gen.OneConstOf("SPY", "QQQ", "TSLA", "GME")
	dteGen := gen.IntRange(1, 90)
	equityGen := gen.Float64Range(0, 500000)

	properties.Property("approved == all checks passed", prop.ForAll(
		func(symbol string, dte int, equity float64) bool {
			order := testCondor(symbol, dte)
			result := g.EvaluateAll(order, testAccount(equity), testNow)

			if len(result.Checks) != 6 {
				return false
			}
			all := true
			for _, c := range result.Checks {
				if !c.Passed {
					all = false
				}
				if c.Message == "" {
					return false // every check must explain itself
				}
			}
			return result.Approved == all
		},
		symbolGen, dteGen, equityGen,
	))

	properties.TestingRun(t)
}
