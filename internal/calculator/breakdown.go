package calculator

import (
	"fmt"
	"sort"
	"time"

	"github.com/apachehub/deudacero/internal/models"
)

// Breakdowns is the full computed view for one member: the same settlement
// entries indexed by group and by counterpart person.
type Breakdowns struct {
	Groups []models.GroupBreakdown  `json:"groups"`
	People []models.PersonBreakdown `json:"people"`
}

// BuildBreakdowns runs the filter → aggregate → solve pipeline per group and
// re-indexes the resulting settlement entries by group and by counterpart,
// scoped to the viewing member. now anchors the rolling date windows.
//
// Groups are returned sorted by owedToYou descending; this ordering is the
// display contract and nothing downstream may resort.
func BuildBreakdowns(groups []models.GroupRecords, filter models.FilterState, viewerID int64, now time.Time) Breakdowns {
	bounds := ResolveDateBounds(filter, now)
	selected := filter.GroupID != models.AllGroups

	var groupRows []models.GroupBreakdown
	people := make(map[int64]*models.PersonBreakdown)

	for _, group := range groups {
		if selected && group.GroupID != filter.GroupID {
			continue
		}

		settlements := groupSettlements(group, bounds)
		if len(settlements) == 0 {
			// A selected group stays visible even when the filter leaves
			// nothing to settle.
			if selected {
				groupRows = append(groupRows, models.GroupBreakdown{
					GroupID:     group.GroupID,
					GroupName:   group.GroupName,
					Settlements: []models.SettlementEntry{},
				})
			}
			continue
		}

		var youOwe, owedToYou float64
		for _, entry := range settlements {
			if entry.FromMemberID == viewerID {
				youOwe += entry.Amount
			}
			if entry.ToMemberID == viewerID {
				owedToYou += entry.Amount
			}
			if entry.FromMemberID != viewerID && entry.ToMemberID != viewerID {
				continue
			}

			counterpartID := entry.FromMemberID
			if counterpartID == viewerID {
				counterpartID = entry.ToMemberID
			}
			person := people[counterpartID]
			if person == nil {
				person = &models.PersonBreakdown{
					MemberID: counterpartID,
					Name:     displayName(group.MemberNames, counterpartID),
				}
				people[counterpartID] = person
			}
			if entry.FromMemberID == viewerID {
				person.YouOwe += entry.Amount
			} else {
				person.OwedToYou += entry.Amount
			}
			person.Settlements = append(person.Settlements, entry)
		}

		groupRows = append(groupRows, models.GroupBreakdown{
			GroupID:     group.GroupID,
			GroupName:   group.GroupName,
			YouOwe:      RoundToTwo(youOwe),
			OwedToYou:   RoundToTwo(owedToYou),
			Settlements: settlements,
		})
	}

	personRows := make([]models.PersonBreakdown, 0, len(people))
	for _, person := range people {
		person.YouOwe = RoundToTwo(person.YouOwe)
		person.OwedToYou = RoundToTwo(person.OwedToYou)
		if person.YouOwe <= Epsilon && person.OwedToYou <= Epsilon {
			continue
		}
		personRows = append(personRows, *person)
	}
	sort.Slice(personRows, func(i, j int) bool {
		if personRows[i].OwedToYou != personRows[j].OwedToYou {
			return personRows[i].OwedToYou > personRows[j].OwedToYou
		}
		return personRows[i].MemberID < personRows[j].MemberID
	})

	sort.SliceStable(groupRows, func(i, j int) bool {
		return groupRows[i].OwedToYou > groupRows[j].OwedToYou
	})

	return Breakdowns{Groups: groupRows, People: personRows}
}

// groupSettlements runs one group through the date filter, the aggregator and
// the solver, attaching names and the latest occurrence date seen for each
// debtor→creditor pair.
func groupSettlements(group models.GroupRecords, bounds DateBounds) []models.SettlementEntry {
	filtered := FilterEdges(group.Edges, bounds)
	if len(filtered) == 0 {
		return nil
	}

	pairDates := make(map[[2]int64]*time.Time)
	for _, edge := range filtered {
		if edge.OccurredAt == nil {
			continue
		}
		key := [2]int64{edge.DebtorID, edge.CreditorID}
		if current := pairDates[key]; current == nil || edge.OccurredAt.After(*current) {
			pairDates[key] = edge.OccurredAt
		}
	}

	transfers := Solve(AggregateBalances(filtered))
	settlements := make([]models.SettlementEntry, 0, len(transfers))
	for i, t := range transfers {
		amount := RoundToTwo(t.Amount)
		if amount <= Epsilon {
			continue
		}
		settlements = append(settlements, models.SettlementEntry{
			ID:           fmt.Sprintf("%d-%d-%d-%d", group.GroupID, t.From, t.To, i),
			GroupID:      group.GroupID,
			GroupName:    group.GroupName,
			FromMemberID: t.From,
			ToMemberID:   t.To,
			Amount:       amount,
			FromName:     displayName(group.MemberNames, t.From),
			ToName:       displayName(group.MemberNames, t.To),
			OccurredAt:   pairDates[[2]int64{t.From, t.To}],
		})
	}
	return settlements
}

// ComputeTotals sums the group breakdowns into the member's overall position.
func ComputeTotals(groups []models.GroupBreakdown) models.Totals {
	var totals models.Totals
	for _, group := range groups {
		totals.YouOwe += group.YouOwe
		totals.OwedToYou += group.OwedToYou
	}
	totals.YouOwe = RoundToTwo(totals.YouOwe)
	totals.OwedToYou = RoundToTwo(totals.OwedToYou)
	totals.Net = RoundToTwo(totals.OwedToYou - totals.YouOwe)
	return totals
}

// FilterSummary renders the active filter as "date range • group", derived
// from the filter state alone plus group names for the label lookup.
func FilterSummary(filter models.FilterState, groups []models.GroupRecords) string {
	return dateLabel(filter) + " • " + groupLabel(filter, groups)
}

func dateLabel(filter models.FilterState) string {
	switch filter.DateRange {
	case models.Range7Days:
		return "Last 7 days"
	case models.Range30Days:
		return "Last 30 days"
	case models.RangeCustom:
		start := displayDate(filter.StartDate)
		end := displayDate(filter.EndDate)
		switch {
		case start != "" && end != "":
			return start + " to " + end
		case start != "":
			return "From " + start
		case end != "":
			return "Until " + end
		default:
			return "Custom range"
		}
	default:
		return "All time"
	}
}

func groupLabel(filter models.FilterState, groups []models.GroupRecords) string {
	if filter.GroupID == models.AllGroups {
		return "All groups"
	}
	for _, group := range groups {
		if group.GroupID == filter.GroupID {
			return group.GroupName
		}
	}
	return "Selected group"
}

func displayDate(value string) string {
	ts, err := time.Parse(dateLayout, value)
	if err != nil {
		return ""
	}
	return ts.Format("Jan 02, 2006")
}

func displayName(names map[int64]string, id int64) string {
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	return fmt.Sprintf("Member %d", id)
}
