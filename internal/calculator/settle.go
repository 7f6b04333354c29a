package calculator

import (
	"math"
	"sort"
)

// Transfer is one solver output: From must pay To the given amount.
type Transfer struct {
	From   int64
	To     int64
	Amount float64
}

// Solve reduces a balance map to the transfers that zero it out.
//
// Members are partitioned into debtors (negative balance) and creditors
// (positive balance), each visited in ascending member-id order so the result
// is deterministic. Each debtor is matched greedily against creditors in
// order, paying min(debtor remaining, creditor remaining) until their debt is
// exhausted. Transfers are emitted debtor-major, creditor-minor; no attempt
// is made to minimize the transfer count beyond greedy full saturation.
//
// For every member the emitted transfers net out to the negation of their
// input balance, within Epsilon. No transfer is self-directed or
// non-positive.
func Solve(balances map[int64]float64) []Transfer {
	type position struct {
		id     int64
		amount float64
	}

	var debtors, creditors []position
	for id, balance := range balances {
		balance = RoundToTwo(balance)
		if math.Abs(balance) <= Epsilon {
			continue
		}
		if balance < 0 {
			debtors = append(debtors, position{id: id, amount: RoundToTwo(-balance)})
		} else {
			creditors = append(creditors, position{id: id, amount: balance})
		}
	}
	sort.Slice(debtors, func(i, j int) bool { return debtors[i].id < debtors[j].id })
	sort.Slice(creditors, func(i, j int) bool { return creditors[i].id < creditors[j].id })

	var transfers []Transfer
	for _, debtor := range debtors {
		remaining := debtor.amount
		for i := range creditors {
			if remaining <= Epsilon {
				break
			}
			creditor := &creditors[i]
			if creditor.amount <= Epsilon {
				continue
			}
			pay := RoundToTwo(math.Min(remaining, creditor.amount))
			if pay <= Epsilon {
				continue
			}
			transfers = append(transfers, Transfer{From: debtor.id, To: creditor.id, Amount: pay})
			creditor.amount = RoundToTwo(creditor.amount - pay)
			remaining = RoundToTwo(remaining - pay)
		}
	}
	return transfers
}
