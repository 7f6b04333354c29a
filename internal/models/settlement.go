package models

import "time"

// SettlementEntry represents one transfer that must happen for the debtor to
// no longer owe the creditor within a group. Entries are immutable snapshots
// recomputed on every refresh; they are never persisted.
type SettlementEntry struct {
	// ID is a deterministic identifier ("{group}-{from}-{to}-{index}") so
	// that identical inputs always produce identical entries.
	ID string `json:"id"`

	// GroupID is the group this transfer settles debts in.
	GroupID int64 `json:"groupId"`

	// GroupName is the group's display name.
	GroupName string `json:"groupName"`

	// FromMemberID is the member who must pay.
	FromMemberID int64 `json:"fromMemberId"`

	// ToMemberID is the member who must be paid.
	ToMemberID int64 `json:"toMemberId"`

	// Amount is the transfer amount, always positive, rounded to 2 decimals.
	Amount float64 `json:"amount"`

	// FromName and ToName are resolved display names.
	FromName string `json:"fromName"`
	ToName   string `json:"toName"`

	// OccurredAt is the latest occurrence timestamp seen among the debt
	// edges between this pair, when any edge carried one.
	OccurredAt *time.Time `json:"occurredAt,omitempty"`
}
