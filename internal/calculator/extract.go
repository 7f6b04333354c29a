package calculator

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/apachehub/deudacero/internal/models"
)

// timestampLayouts are tried in order when parsing backend date strings.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ExtractGroup normalizes one group's detail payload into GroupRecords:
// expense shares and confirmed payments become debt edges, and when neither
// yields any edge but the backend supplied a balance snapshot, edges are
// synthesized from that snapshot so the view is never empty while the server
// already knows net positions.
//
// Malformed records (no identifiable payer, unparseable or non-positive
// amounts) are skipped with a warning and never abort extraction for the
// rest of the group.
func ExtractGroup(groupID int64, groupName string, detail *models.GroupDetail) models.GroupRecords {
	edges := expenseEdges(groupID, detail)
	edges = append(edges, paymentEdges(groupID, detail)...)

	if len(edges) == 0 {
		if balances := snapshotBalances(detail); len(balances) > 0 {
			for _, t := range Solve(balances) {
				amount := RoundToTwo(t.Amount)
				if amount <= Epsilon {
					continue
				}
				edges = append(edges, models.DebtEdge{
					Amount:     amount,
					DebtorID:   t.From,
					CreditorID: t.To,
					Source:     models.SourceSnapshot,
				})
			}
		}
	}

	return models.GroupRecords{
		GroupID:     groupID,
		GroupName:   groupName,
		MemberNames: memberNames(detail),
		Edges:       edges,
	}
}

// expenseEdges turns each expense into debtor→payer edges, one per share
// bearer other than the payer.
func expenseEdges(groupID int64, detail *models.GroupDetail) []models.DebtEdge {
	var edges []models.DebtEdge

	for i := range detail.Expenses {
		expense := &detail.Expenses[i]

		payerID, ok := expense.PayerID()
		if !ok {
			slog.Warn("skipping expense without identifiable payer", "group_id", groupID, "expense_index", i)
			continue
		}

		amount, ok := expense.Amount.Value()
		if !ok || amount <= Epsilon {
			slog.Warn("skipping expense with unusable amount", "group_id", groupID, "expense_index", i)
			continue
		}

		shares := normalizedShares(expense, detail, amount)
		occurredAt := expenseTimestamp(expense, detail)

		for _, share := range shares {
			if share.memberID == payerID || share.amount <= Epsilon {
				continue
			}
			edges = append(edges, models.DebtEdge{
				Amount:     share.amount,
				DebtorID:   share.memberID,
				CreditorID: payerID,
				OccurredAt: occurredAt,
				Source:     models.SourceExpense,
			})
		}
	}
	return edges
}

type normalizedShare struct {
	memberID int64
	amount   float64
}

// normalizedShares resolves an expense's share lines. Explicit amounts win;
// percentage shares are resolved against the expense amount. When no share
// line is usable, the expense is split evenly across its stated participant
// set, or across all current group members as a last resort.
func normalizedShares(expense *models.ExpensePayload, detail *models.GroupDetail, expenseAmount float64) []normalizedShare {
	var shares []normalizedShare

	for _, share := range expense.Shares {
		memberID, ok := share.BearerID()
		if !ok {
			slog.Warn("skipping share without member id")
			continue
		}
		amount, ok := share.Amount.Value()
		if !ok {
			if pct, pctOK := share.Percentage.Value(); pctOK {
				amount = RoundToTwo(pct / 100 * expenseAmount)
				ok = true
			}
		}
		if ok && amount > Epsilon {
			shares = append(shares, normalizedShare{memberID: memberID, amount: RoundToTwo(amount)})
		}
	}

	if len(shares) > 0 {
		return shares
	}

	participants := expense.SplitAmong
	if len(participants) == 0 {
		participants = detail.Members
	}
	var ids []int64
	for _, p := range participants {
		if id, ok := p.ID.Value(); ok {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	even := RoundToTwo(expenseAmount / float64(len(ids)))
	if even <= Epsilon {
		return nil
	}
	for _, id := range ids {
		shares = append(shares, normalizedShare{memberID: id, amount: even})
	}
	return shares
}

// paymentEdges models each confirmed payment as the cancellation of a debt
// owed by the payer: an edge from the receiver back to the payer. Pending
// payments never produce edges.
func paymentEdges(groupID int64, detail *models.GroupDetail) []models.DebtEdge {
	var edges []models.DebtEdge

	for i := range detail.ConfirmedPayments {
		payment := &detail.ConfirmedPayments[i]

		amount, ok := payment.Amount.Value()
		if !ok || amount <= Epsilon {
			slog.Warn("skipping payment with unusable amount", "group_id", groupID, "payment_index", i)
			continue
		}

		var payerID, receiverID int64
		var payerOK, receiverOK bool
		if payment.FromMember != nil {
			payerID, payerOK = payment.FromMember.ID.Value()
		}
		if payment.ToMember != nil {
			receiverID, receiverOK = payment.ToMember.ID.Value()
		}
		if !payerOK || !receiverOK {
			slog.Warn("skipping payment without both member ids", "group_id", groupID, "payment_index", i)
			continue
		}

		edges = append(edges, models.DebtEdge{
			Amount:     RoundToTwo(amount),
			DebtorID:   receiverID,
			CreditorID: payerID,
			OccurredAt: parseTimestamp(payment.CreatedAt),
			Source:     models.SourcePayment,
		})
	}
	return edges
}

// snapshotBalances reads the server-side balance snapshot, preferring the
// adjusted map, then the original one, then per-member aggregate rows.
func snapshotBalances(detail *models.GroupDetail) map[int64]float64 {
	raw := detail.BalanceAdjusted
	if len(raw) == 0 {
		raw = detail.BalanceOriginal
	}

	balances := make(map[int64]float64)
	for key, value := range raw {
		memberID, err := strconv.ParseInt(strings.TrimSpace(key), 10, 64)
		if err != nil {
			slog.Warn("skipping snapshot balance with non-numeric member key", "key", key)
			continue
		}
		if v, ok := value.Value(); ok {
			balances[memberID] = RoundToTwo(v)
		}
	}
	if len(balances) > 0 {
		return balances
	}

	for _, share := range detail.AggregatedShares {
		memberID, ok := share.MemberID.Value()
		if !ok {
			continue
		}
		if v, vOK := share.Balance.Value(); vOK {
			balances[memberID] = RoundToTwo(v)
		}
	}
	return balances
}

// memberNames builds the display-name lookup: member list first (name, then
// email), aggregated shares fill the gaps.
func memberNames(detail *models.GroupDetail) map[int64]string {
	names := make(map[int64]string)
	for _, member := range detail.Members {
		id, ok := member.ID.Value()
		if !ok {
			continue
		}
		name := strings.TrimSpace(member.Name)
		if name == "" {
			name = strings.TrimSpace(member.Email)
		}
		if name != "" {
			names[id] = name
		}
	}
	for _, share := range detail.AggregatedShares {
		id, ok := share.MemberID.Value()
		if !ok {
			continue
		}
		if _, seen := names[id]; seen {
			continue
		}
		if name := strings.TrimSpace(share.MemberName); name != "" {
			names[id] = name
		}
	}
	return names
}

// expenseTimestamp picks the expense's occurrence time: its date field, then
// its creation time, then the group's creation time.
func expenseTimestamp(expense *models.ExpensePayload, detail *models.GroupDetail) *time.Time {
	for _, candidate := range []string{expense.Date, expense.CreatedAt, detail.CreatedAt} {
		if ts := parseTimestamp(candidate); ts != nil {
			return ts
		}
	}
	return nil
}

func parseTimestamp(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return &ts
		}
	}
	return nil
}
