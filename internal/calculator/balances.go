// Package calculator implements the pure settlement pipeline: it turns
// normalized debt edges into per-member balances, reduces balances to a list
// of transfers, and re-aggregates those transfers into the group and person
// views the UI consumes. Everything in this package is a total, synchronous
// function over in-memory values; all fallibility lives upstream in
// extraction and data acquisition.
package calculator

import (
	"math"

	"github.com/apachehub/deudacero/internal/models"
)

// Epsilon is the smallest monetary amount treated as non-zero. Amounts at or
// below it are floating-point noise and are suppressed everywhere.
const Epsilon = 0.009

// RoundToTwo rounds a monetary amount to 2 decimals, half away from zero.
func RoundToTwo(v float64) float64 {
	return math.Round(v*100) / 100
}

// AggregateBalances folds one group's debt edges into net balances per
// member: negative means the member owes, positive means they are owed.
// Every intermediate value is rounded to 2 decimals to keep floating drift
// out of the totals. Members whose final balance is within Epsilon of zero
// are omitted; they are settled.
//
// The sum of all returned balances is always within Epsilon of zero, since
// each edge contributes -amount to the debtor and +amount to the creditor.
func AggregateBalances(edges []models.DebtEdge) map[int64]float64 {
	balances := make(map[int64]float64)
	for _, edge := range edges {
		balances[edge.DebtorID] = RoundToTwo(balances[edge.DebtorID] - edge.Amount)
		balances[edge.CreditorID] = RoundToTwo(balances[edge.CreditorID] + edge.Amount)
	}

	for id, balance := range balances {
		if math.Abs(balance) <= Epsilon {
			delete(balances, id)
		}
	}
	return balances
}
