package models

// DateRange selects the time window applied to debt edges before aggregation.
type DateRange string

const (
	RangeAll    DateRange = "all"
	Range7Days  DateRange = "7d"
	Range30Days DateRange = "30d"
	RangeCustom DateRange = "custom"
)

// AllGroups is the GroupID value meaning "no group filter".
const AllGroups int64 = 0

// FilterState captures the active filter selection. It is session state
// applied fresh to the latest raw pull on every change; it never mutates the
// source records.
type FilterState struct {
	DateRange DateRange `json:"dateRange" validate:"oneof=all 7d 30d custom"`

	// GroupID narrows the view to a single group; AllGroups disables the
	// group filter.
	GroupID int64 `json:"groupId" validate:"gte=0"`

	// StartDate and EndDate are strict YYYY-MM-DD calendar dates, only used
	// when DateRange is RangeCustom. Either may be empty for an open bound.
	StartDate string `json:"startDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `json:"endDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// DefaultFilter is the unfiltered state: all time, all groups.
func DefaultFilter() FilterState {
	return FilterState{DateRange: RangeAll, GroupID: AllGroups}
}

// IsActive reports whether the filter narrows anything.
func (f FilterState) IsActive() bool {
	return f.DateRange != RangeAll || f.GroupID != AllGroups
}
