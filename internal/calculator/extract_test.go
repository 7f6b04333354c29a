package calculator

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/apachehub/deudacero/internal/models"
)

func decodeDetail(t *testing.T, raw string) *models.GroupDetail {
	t.Helper()
	var detail models.GroupDetail
	if err := json.Unmarshal([]byte(raw), &detail); err != nil {
		t.Fatalf("failed to decode detail payload: %v", err)
	}
	return &detail
}

func TestExtractGroupEvenSplit(t *testing.T) {
	// 90.00 paid by member 1, no explicit shares, split among 1, 2, 3.
	detail := decodeDetail(t, `{
		"id": 7,
		"name": "Trip",
		"members": [
			{"id": 1, "name": "Ana"},
			{"id": 2, "name": "Luis"},
			{"id": 3, "name": "Marta"}
		],
		"expenses": [
			{"amount": 90.00, "payer": {"id": 1}, "date": "2026-08-10T12:00:00Z"}
		]
	}`)

	records := ExtractGroup(7, "Trip", detail)

	if len(records.Edges) != 2 {
		t.Fatalf("got %d edges, want 2: %+v", len(records.Edges), records.Edges)
	}
	for _, e := range records.Edges {
		if e.CreditorID != 1 {
			t.Errorf("creditor = %d, want payer 1", e.CreditorID)
		}
		if math.Abs(e.Amount-30.0) > Epsilon {
			t.Errorf("edge amount = %v, want 30.00", e.Amount)
		}
		if e.Source != models.SourceExpense {
			t.Errorf("edge source = %q, want expense", e.Source)
		}
		if e.OccurredAt == nil {
			t.Error("expected edge to carry the expense date")
		}
	}
	if records.Edges[0].DebtorID == 1 || records.Edges[1].DebtorID == 1 {
		t.Error("payer must not owe themselves")
	}
}

func TestExtractGroupExplicitAndPercentageShares(t *testing.T) {
	detail := decodeDetail(t, `{
		"id": 3,
		"members": [{"id": 1, "name": "Ana"}, {"id": 2, "name": "Luis"}],
		"expenses": [
			{
				"amount": 100,
				"paidBy": 1,
				"shares": [
					{"memberId": 1, "amount": 40},
					{"memberId": 2, "amount": 60}
				]
			},
			{
				"amount": 80,
				"payer": {"id": 2},
				"shares": [
					{"member": {"id": 1}, "percentage": 25},
					{"member": {"id": 2}, "percentage": 75}
				]
			}
		]
	}`)

	records := ExtractGroup(3, "Flat", detail)

	if len(records.Edges) != 2 {
		t.Fatalf("got %d edges, want 2: %+v", len(records.Edges), records.Edges)
	}
	// Expense 1: member 2 owes 60 to member 1; the payer's own share emits
	// nothing.
	if records.Edges[0].DebtorID != 2 || records.Edges[0].CreditorID != 1 {
		t.Errorf("edge 0 = %d->%d, want 2->1", records.Edges[0].DebtorID, records.Edges[0].CreditorID)
	}
	if math.Abs(records.Edges[0].Amount-60) > Epsilon {
		t.Errorf("edge 0 amount = %v, want 60", records.Edges[0].Amount)
	}
	// Expense 2: 25% of 80 = 20 owed by member 1 to member 2.
	if records.Edges[1].DebtorID != 1 || records.Edges[1].CreditorID != 2 {
		t.Errorf("edge 1 = %d->%d, want 1->2", records.Edges[1].DebtorID, records.Edges[1].CreditorID)
	}
	if math.Abs(records.Edges[1].Amount-20) > Epsilon {
		t.Errorf("edge 1 amount = %v, want 20", records.Edges[1].Amount)
	}
}

func TestExtractGroupConfirmedPayments(t *testing.T) {
	// A payment from member 2 to member 1 cancels debt owed by 2: it is
	// modeled as an edge from the receiver back to the payer.
	detail := decodeDetail(t, `{
		"id": 4,
		"members": [{"id": 1, "name": "Ana"}, {"id": 2, "name": "Luis"}],
		"confirmedPayments": [
			{"amount": 25, "fromMember": {"id": 2}, "toMember": {"id": 1}, "createdAt": "2026-08-12T09:30:00Z"}
		],
		"pendingPayments": [
			{"amount": 99, "fromMember": {"id": 1}, "toMember": {"id": 2}}
		]
	}`)

	records := ExtractGroup(4, "Dinner", detail)

	if len(records.Edges) != 1 {
		t.Fatalf("got %d edges, want 1 (pending payments must not appear): %+v", len(records.Edges), records.Edges)
	}
	e := records.Edges[0]
	if e.DebtorID != 1 || e.CreditorID != 2 {
		t.Errorf("payment edge = %d->%d, want 1->2", e.DebtorID, e.CreditorID)
	}
	if math.Abs(e.Amount-25) > Epsilon {
		t.Errorf("payment edge amount = %v, want 25", e.Amount)
	}
	if e.Source != models.SourcePayment {
		t.Errorf("payment edge source = %q, want payment", e.Source)
	}
}

func TestExtractGroupSnapshotFallback(t *testing.T) {
	detail := decodeDetail(t, `{
		"id": 9,
		"members": [{"id": 1, "name": "Ana"}, {"id": 2, "name": "Luis"}, {"id": 3, "name": "Marta"}],
		"balanceAdjusted": {"1": -30, "2": 10, "3": 20}
	}`)

	records := ExtractGroup(9, "Old group", detail)

	if len(records.Edges) != 2 {
		t.Fatalf("got %d edges, want 2: %+v", len(records.Edges), records.Edges)
	}
	for _, e := range records.Edges {
		if e.Source != models.SourceSnapshot {
			t.Errorf("edge source = %q, want snapshot", e.Source)
		}
		if e.DebtorID != 1 {
			t.Errorf("debtor = %d, want 1", e.DebtorID)
		}
	}
}

func TestExtractGroupSkipsMalformedRecords(t *testing.T) {
	detail := decodeDetail(t, `{
		"id": 5,
		"members": [{"id": 1, "name": "Ana"}, {"id": 2, "name": "Luis"}],
		"expenses": [
			{"amount": 10},
			{"amount": "not-a-number", "payer": {"id": 1}},
			{"amount": -5, "payer": {"id": 1}},
			{"amount": 20, "payer": {"id": 1}}
		]
	}`)

	records := ExtractGroup(5, "Messy", detail)

	// Only the last expense survives: 20 split evenly between 1 and 2
	// yields one edge (member 2 owes 10).
	if len(records.Edges) != 1 {
		t.Fatalf("got %d edges, want 1: %+v", len(records.Edges), records.Edges)
	}
	if math.Abs(records.Edges[0].Amount-10) > Epsilon {
		t.Errorf("edge amount = %v, want 10", records.Edges[0].Amount)
	}
}

func TestExtractGroupMemberNames(t *testing.T) {
	detail := decodeDetail(t, `{
		"id": 6,
		"members": [
			{"id": 1, "name": "Ana"},
			{"id": 2, "email": "luis@example.com"},
			{"id": 3}
		],
		"aggregatedShares": [
			{"memberId": 3, "memberName": "Marta"},
			{"memberId": 1, "memberName": "Ignored"}
		]
	}`)

	records := ExtractGroup(6, "Names", detail)

	want := map[int64]string{1: "Ana", 2: "luis@example.com", 3: "Marta"}
	for id, name := range want {
		if records.MemberNames[id] != name {
			t.Errorf("name[%d] = %q, want %q", id, records.MemberNames[id], name)
		}
	}
}
