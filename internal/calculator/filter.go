package calculator

import (
	"time"

	"github.com/apachehub/deudacero/internal/models"
)

// dateLayout is the strict calendar-date format accepted for custom bounds.
const dateLayout = "2006-01-02"

// DateBounds is a resolved inclusive time window. A nil side is open.
type DateBounds struct {
	Start *time.Time
	End   *time.Time
}

// ResolveDateBounds converts a filter's date-range selection into concrete
// bounds relative to now. Rolling windows end at the end of the current day
// and cover 7 or 30 calendar days including today. Custom dates must be
// strict YYYY-MM-DD; an unparseable custom date leaves that side open.
func ResolveDateBounds(filter models.FilterState, now time.Time) DateBounds {
	switch filter.DateRange {
	case models.Range7Days:
		end := endOfDay(now)
		start := startOfDay(end.AddDate(0, 0, -6))
		return DateBounds{Start: &start, End: &end}
	case models.Range30Days:
		end := endOfDay(now)
		start := startOfDay(end.AddDate(0, 0, -29))
		return DateBounds{Start: &start, End: &end}
	case models.RangeCustom:
		var bounds DateBounds
		if ts, err := time.ParseInLocation(dateLayout, filter.StartDate, now.Location()); err == nil {
			start := startOfDay(ts)
			bounds.Start = &start
		}
		if ts, err := time.ParseInLocation(dateLayout, filter.EndDate, now.Location()); err == nil {
			end := endOfDay(ts)
			bounds.End = &end
		}
		return bounds
	default:
		return DateBounds{}
	}
}

// FilterEdges drops edges outside the resolved date bounds and edges whose
// amount is noise. Edges without a timestamp are always in range: dropping
// legacy untimestamped records silently would understate balances. Edges
// synthesized from a balance snapshot are likewise exempt from the date
// filter, since a snapshot has no per-edge time to filter on.
func FilterEdges(edges []models.DebtEdge, bounds DateBounds) []models.DebtEdge {
	filtered := make([]models.DebtEdge, 0, len(edges))
	for _, edge := range edges {
		if edge.Amount <= Epsilon {
			continue
		}
		if edge.Source != models.SourceSnapshot && edge.OccurredAt != nil {
			if bounds.Start != nil && edge.OccurredAt.Before(*bounds.Start) {
				continue
			}
			if bounds.End != nil && edge.OccurredAt.After(*bounds.End) {
				continue
			}
		}
		filtered = append(filtered, edge)
	}
	return filtered
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}
