package models

// GroupBreakdown is one group's settlement view scoped to the viewing member.
type GroupBreakdown struct {
	GroupID   int64  `json:"groupId"`
	GroupName string `json:"groupName"`

	// YouOwe is the sum of settlement amounts where the viewing member is
	// the payer; OwedToYou where they are the receiver.
	YouOwe    float64 `json:"youOwe"`
	OwedToYou float64 `json:"owedToYou"`

	Settlements []SettlementEntry `json:"settlements"`
}

// PersonBreakdown re-indexes the viewing member's settlement entries by the
// counterpart member, accumulated across all groups.
type PersonBreakdown struct {
	MemberID int64  `json:"memberId"`
	Name     string `json:"name"`

	YouOwe    float64 `json:"youOwe"`
	OwedToYou float64 `json:"owedToYou"`

	Settlements []SettlementEntry `json:"settlements"`
}

// Totals is the viewing member's overall position, summed over the group
// breakdowns.
type Totals struct {
	YouOwe    float64 `json:"youOwe"`
	OwedToYou float64 `json:"owedToYou"`

	// Net is OwedToYou - YouOwe: positive means the member comes out ahead.
	Net float64 `json:"net"`
}
