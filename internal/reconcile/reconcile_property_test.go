package reconcile

import (
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"condor-trader/internal/models"
)

func genBook(symbols []string) gopter.Gen {
	return gen.SliceOf(gen.OneConstOf(symbols[0], symbols[1], symbols[2], symbols[3])).
		FlatMap(func(v interface{}) gopter.Gen {
			picked := v.([]string)
			return gen.SliceOfN(len(picked), gen.Float64Range(1, 100)).
				Map(func(qtys []float64) map[string]models.Position {
					book := make(map[string]models.Position, len(picked))
					for i, s := range picked {
						book[s] = models.Position{
							Symbol:      s,
							Quantity:    qtys[i],
							MarketValue: qtys[i] * 100,
						}
					}
					return book
				})
		}, reflect.TypeOf(map[string]models.Position{}))
}

func TestProperty_CompareSymmetry(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)
	symbols := []string{"SPY", "QQQ", "IWM", "DIA"}

	properties.Property("swapping inputs swaps only direction labels", prop.ForAll(
		func(a, b map[string]models.Position) bool {
			forward := Compare(a, b, testTol)
			backward := Compare(b, a, testTol)

			if len(forward) != len(backward) {
				return false
			}

			count := func(discs []models.Discrepancy, kind models.DiscrepancyKind) map[string]int {
				out := map[string]int{}
				for _, d := range discs {
					if d.Kind == kind {
						out[d.Symbol]++
					}
				}
				return out
			}

			// A symbol only in B is "missing locally" forward and
			// "local only" backward, and vice versa.
			if !equalCounts(count(forward, models.DiscrepancyMissingLocally), count(backward, models.DiscrepancyLocalOnly)) {
				return false
			}
			if !equalCounts(count(forward, models.DiscrepancyLocalOnly), count(backward, models.DiscrepancyMissingLocally)) {
				return false
			}

			// Field mismatches on shared symbols are direction-independent:
			// the quantity epsilon is absolute and the value tolerance
			// pivots on the larger magnitude.
			if !equalCounts(count(forward, models.DiscrepancyQuantity), count(backward, models.DiscrepancyQuantity)) {
				return false
			}
			return equalCounts(count(forward, models.DiscrepancyMarketValue), count(backward, models.DiscrepancyMarketValue))
		},
		genBook(symbols),
		genBook(symbols),
	))

	properties.Property("comparing a book against itself is clean", prop.ForAll(
		func(a map[string]models.Position) bool {
			return len(Compare(a, a, testTol)) == 0
		},
		genBook(symbols),
	))

	properties.TestingRun(t)
}

func equalCounts(a, b map[string]int) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
