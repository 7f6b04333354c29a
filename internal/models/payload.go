package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// The backend API is loosely typed: ids arrive as numbers or strings, member
// references as bare ids or embedded objects, and the same concept hides
// under several field names (groupId/id/group.id). The Flex types below
// absorb those shapes during unmarshalling so the extractor can normalize
// explicitly and skip bad records with a logged reason instead of silently
// coalescing them.

// FlexFloat is an amount that may arrive as a JSON number, a numeric string,
// or null. Non-finite and unparseable values are reported as invalid.
type FlexFloat struct {
	value float64
	valid bool
}

// Value returns the parsed amount and whether it was present and finite.
func (f FlexFloat) Value() (float64, bool) {
	return f.value, f.valid
}

func (f *FlexFloat) UnmarshalJSON(b []byte) error {
	f.valid = false
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	s := string(b)
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	f.value = v
	f.valid = true
	return nil
}

// FlexID is an identifier that may arrive as a JSON number or numeric string.
type FlexID struct {
	value int64
	valid bool
}

// Value returns the parsed id and whether it was usable.
func (f FlexID) Value() (int64, bool) {
	return f.value, f.valid
}

func (f *FlexID) UnmarshalJSON(b []byte) error {
	f.valid = false
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	s := string(b)
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
	}
	// Some endpoints serialize ids as floats (123.0).
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		f.value = v
		f.valid = true
		return nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil && v == math.Trunc(v) {
		f.value = int64(v)
		f.valid = true
	}
	return nil
}

// MemberRef is a member reference that may arrive as a bare id or as an
// object carrying id/memberId plus optional display fields.
type MemberRef struct {
	ID    FlexID
	Name  string
	Email string
}

func (m *MemberRef) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	if b[0] != '{' {
		return m.ID.UnmarshalJSON(b)
	}
	var obj struct {
		ID       FlexID `json:"id"`
		MemberID FlexID `json:"memberId"`
		Name     string `json:"name"`
		Email    string `json:"email"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return nil
	}
	if _, ok := obj.ID.Value(); ok {
		m.ID = obj.ID
	} else {
		m.ID = obj.MemberID
	}
	m.Name = obj.Name
	m.Email = obj.Email
	return nil
}

// GroupSummary is one entry of the member's group list. The group identity
// may sit at the top level or nested under "group".
type GroupSummary struct {
	GroupID FlexID `json:"groupId"`
	ID      FlexID `json:"id"`
	Name    string `json:"name"`
	Group   *struct {
		ID   FlexID `json:"id"`
		Name string `json:"name"`
	} `json:"group"`
}

// ResolvedID returns the group id from whichever field carries it.
func (g GroupSummary) ResolvedID() (int64, bool) {
	if id, ok := g.GroupID.Value(); ok {
		return id, true
	}
	if id, ok := g.ID.Value(); ok {
		return id, true
	}
	if g.Group != nil {
		return g.Group.ID.Value()
	}
	return 0, false
}

// ResolvedName returns the group display name, or "" when absent.
func (g GroupSummary) ResolvedName() string {
	if strings.TrimSpace(g.Name) != "" {
		return g.Name
	}
	if g.Group != nil && strings.TrimSpace(g.Group.Name) != "" {
		return g.Group.Name
	}
	return ""
}

// SharePayload is one share line of an expense.
type SharePayload struct {
	MemberID   FlexID     `json:"memberId"`
	Member     *MemberRef `json:"member"`
	Amount     FlexFloat  `json:"amount"`
	Percentage FlexFloat  `json:"percentage"`
}

// BearerID resolves the share's member id from memberId or the embedded
// member reference.
func (s SharePayload) BearerID() (int64, bool) {
	if id, ok := s.MemberID.Value(); ok {
		return id, true
	}
	if s.Member != nil {
		return s.Member.ID.Value()
	}
	return 0, false
}

// ExpensePayload is one expense record of a group detail.
type ExpensePayload struct {
	Amount     FlexFloat      `json:"amount"`
	Payer      *MemberRef     `json:"payer"`
	PaidBy     *MemberRef     `json:"paidBy"`
	Shares     []SharePayload `json:"shares"`
	SplitAmong []MemberRef    `json:"splitAmong"`
	Date       string         `json:"date"`
	CreatedAt  string         `json:"createdAt"`
}

// PayerID resolves the paying member from payer or paidBy.
func (e ExpensePayload) PayerID() (int64, bool) {
	if e.Payer != nil {
		if id, ok := e.Payer.ID.Value(); ok {
			return id, true
		}
	}
	if e.PaidBy != nil {
		return e.PaidBy.ID.Value()
	}
	return 0, false
}

// PaymentPayload is one payment record of a group detail.
type PaymentPayload struct {
	Amount     FlexFloat  `json:"amount"`
	FromMember *MemberRef `json:"fromMember"`
	ToMember   *MemberRef `json:"toMember"`
	Confirmed  bool       `json:"confirmed"`
	CreatedAt  string     `json:"createdAt"`
}

// AggregatedSharePayload is the backend's per-member aggregate row.
type AggregatedSharePayload struct {
	MemberID   FlexID    `json:"memberId"`
	MemberName string    `json:"memberName"`
	Balance    FlexFloat `json:"balance"`
}

// GroupDetail is the full per-group payload consumed by the extractor.
type GroupDetail struct {
	ID               FlexID                   `json:"id"`
	Name             string                   `json:"name"`
	CreatedAt        string                   `json:"createdAt"`
	Members          []MemberRef              `json:"members"`
	Expenses         []ExpensePayload         `json:"expenses"`
	AggregatedShares []AggregatedSharePayload `json:"aggregatedShares"`

	// BalanceAdjusted is preferred over BalanceOriginal when both exist.
	BalanceOriginal map[string]FlexFloat `json:"balanceOriginal"`
	BalanceAdjusted map[string]FlexFloat `json:"balanceAdjusted"`

	ConfirmedPayments []PaymentPayload `json:"confirmedPayments"`
	PendingPayments   []PaymentPayload `json:"pendingPayments"`
}

// IdentityPayload is the "who am I" response.
type IdentityPayload struct {
	MemberID FlexID `json:"memberId"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}
