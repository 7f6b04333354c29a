package models

import "time"

// EdgeSource records where a debt edge came from. The filter pipeline needs
// it because snapshot-derived edges carry no usable timestamp and must not be
// dropped by a date range.
type EdgeSource string

const (
	// SourceExpense marks an edge derived from an expense share.
	SourceExpense EdgeSource = "expense"

	// SourcePayment marks an edge derived from a confirmed payment.
	SourcePayment EdgeSource = "payment"

	// SourceSnapshot marks an edge synthesized from a server-side balance
	// snapshot when no expense or payment edges were available.
	SourceSnapshot EdgeSource = "snapshot"
)

// DebtEdge is one atomic directed obligation: the debtor owes the creditor
// Amount within a single group. Edges with amounts at or below the engine
// epsilon are discarded during extraction and never reach storage.
type DebtEdge struct {
	// Amount is the owed amount, always positive, rounded to 2 decimals.
	Amount float64 `json:"amount"`

	// DebtorID is the member who owes.
	DebtorID int64 `json:"debtorId"`

	// CreditorID is the member who is owed.
	CreditorID int64 `json:"creditorId"`

	// OccurredAt is when the underlying expense or payment happened.
	// Nil for edges without a usable timestamp; such edges are treated as
	// always in range by the date filter.
	OccurredAt *time.Time `json:"occurredAt,omitempty"`

	// Source records how the edge was derived.
	Source EdgeSource `json:"source"`
}

// GroupRecords is the normalized pull for one group: everything the engine
// needs to compute that group's settlements. A member's full set of
// GroupRecords is replaced wholesale on each successful refresh.
type GroupRecords struct {
	// GroupID is the backend's numeric group id.
	GroupID int64 `json:"groupId"`

	// GroupName is the display name of the group.
	GroupName string `json:"groupName"`

	// MemberNames maps member ids to display names. Missing entries fall
	// back to a generic "Member {id}" label at breakdown time.
	MemberNames map[int64]string `json:"memberNames"`

	// Edges are the group's normalized debt edges.
	Edges []DebtEdge `json:"edges"`
}

// Member is a group participant as reported by the backend.
type Member struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}
