package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// BalanceEvent is a backend notification that a member's records changed and
// the cached pull is stale. It carries only identifiers; the refresh fetches
// the full records from the backend.
type BalanceEvent struct {
	MemberID  int64     `json:"memberId"`
	GroupID   int64     `json:"groupId,omitempty"`
	Kind      string    `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
}

// NewBalanceEvent creates an event for the given member and kind.
func NewBalanceEvent(memberID, groupID int64, kind string) *BalanceEvent {
	return &BalanceEvent{
		MemberID:  memberID,
		GroupID:   groupID,
		Kind:      kind,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes.
func (e *BalanceEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// BalanceEventFromJSON parses an event from JSON bytes. Events without a
// member id cannot be routed to a refresh and are rejected.
func BalanceEventFromJSON(data []byte) (*BalanceEvent, error) {
	var event BalanceEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, err
	}
	if event.MemberID <= 0 {
		return nil, fmt.Errorf("event missing member id")
	}
	return &event, nil
}
