package schedule

import (
	"fmt"
	"sort"
	"time"
)

// WithinWindow reports whether at falls inside the daily [start, end) window
// in zone. A window whose end precedes its start wraps past midnight. A
// degenerate window (start == end) contains nothing.
func WithinWindow(start, end, zone string, at time.Time) (bool, error) {
	loc, err := LoadLocation(zone)
	if err != nil {
		return false, err
	}
	startMin, err := ParseHHMM(start)
	if err != nil {
		return false, err
	}
	endMin, err := ParseHHMM(end)
	if err != nil {
		return false, err
	}

	local := at.In(loc)
	cur := local.Hour()*60 + local.Minute()
	switch {
	case startMin == endMin:
		return false, nil
	case startMin < endMin:
		return cur >= startMin && cur < endMin, nil
	default:
		return cur >= startMin || cur < endMin, nil
	}
}

// NextWindowEdge returns the first window boundary (start or end) strictly
// after the given instant. Used to expire manual group overrides.
func NextWindowEdge(start, end, zone string, after time.Time) (time.Time, error) {
	loc, err := LoadLocation(zone)
	if err != nil {
		return time.Time{}, err
	}
	startMin, err := ParseHHMM(start)
	if err != nil {
		return time.Time{}, err
	}
	endMin, err := ParseHHMM(end)
	if err != nil {
		return time.Time{}, err
	}

	local := after.In(loc)
	var edges []time.Time
	for _, dayOffset := range []int{0, 1} {
		day := local.AddDate(0, 0, dayOffset)
		for _, m := range []int{startMin, endMin} {
			edge := time.Date(day.Year(), day.Month(), day.Day(), m/60, m%60, 0, 0, loc)
			if edge.After(after) {
				edges = append(edges, edge)
			}
		}
	}
	if len(edges) == 0 {
		return time.Time{}, fmt.Errorf("no window edge after %s", after.Format(time.RFC3339))
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].Before(edges[j]) })
	return edges[0], nil
}

// WeekdayAllowed reports whether the instant's weekday in zone is permitted
// by days (0 = Sunday, 6 = Saturday). An empty list permits every day.
func WeekdayAllowed(days []int, zone string, at time.Time) (bool, error) {
	if len(days) == 0 {
		return true, nil
	}
	loc, err := LoadLocation(zone)
	if err != nil {
		return false, err
	}
	weekday := int(at.In(loc).Weekday())
	for _, d := range days {
		if d == weekday {
			return true, nil
		}
	}
	return false, nil
}

// DateExcluded reports whether the instant's date in zone appears in the
// YYYY-MM-DD exclusion list.
func DateExcluded(exclusions []string, zone string, at time.Time) (bool, error) {
	if len(exclusions) == 0 {
		return false, nil
	}
	loc, err := LoadLocation(zone)
	if err != nil {
		return false, err
	}
	date := at.In(loc).Format(DateLayout)
	for _, ex := range exclusions {
		if ex == date {
			return true, nil
		}
	}
	return false, nil
}
