// Package schedule implements the scheduling calculus: next-firing
// evaluation for cron and time-range schedules, daily window containment,
// and the calendar filters (weekdays, excluded dates). Everything here is
// deterministic and performs no I/O.
package schedule

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// HHMM is the wall-clock layout used by windows and time ranges.
const HHMM = "15:04"

// DateLayout is the calendar-date layout used by exclusions and stats buckets.
const DateLayout = "2006-01-02"

// Frequency units accepted by time-range schedules.
const (
	UnitMinutes = "minutes"
	UnitHours   = "hours"
)

// cronParser accepts the standard 5-field form only: minute hour dom month dow.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ParseCron parses a 5-field cron expression.
func ParseCron(expr string) (cron.Schedule, error) {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return sched, nil
}

// ValidateCron reports whether expr is a parseable 5-field cron expression.
func ValidateCron(expr string) error {
	_, err := ParseCron(expr)
	return err
}

// LoadLocation resolves an IANA timezone identifier.
func LoadLocation(zone string) (*time.Location, error) {
	if zone == "" {
		return nil, fmt.Errorf("timezone is required")
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", zone, err)
	}
	return loc, nil
}

// ValidateTimezone reports whether zone is a valid IANA identifier.
func ValidateTimezone(zone string) error {
	_, err := LoadLocation(zone)
	return err
}

// ParseHHMM parses an HH:MM value into minutes since midnight.
func ParseHHMM(s string) (int, error) {
	t, err := time.Parse(HHMM, s)
	if err != nil {
		return 0, fmt.Errorf("invalid HH:MM value %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// ValidateDate checks a YYYY-MM-DD calendar date.
func ValidateDate(s string) error {
	if _, err := time.Parse(DateLayout, s); err != nil {
		return fmt.Errorf("invalid date %q: %w", s, err)
	}
	return nil
}

// NextAfter returns the smallest instant strictly after ref at which expr
// fires in zone. Local times skipped by a spring-forward transition fire at
// the transition instant, the next valid local time; repeated local times
// fire on the first occurrence.
func NextAfter(expr, zone string, ref time.Time) (time.Time, error) {
	sched, err := ParseCron(expr)
	if err != nil {
		return time.Time{}, err
	}
	loc, err := LoadLocation(zone)
	if err != nil {
		return time.Time{}, err
	}
	next := sched.Next(ref.In(loc))
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("no upcoming firing for cron expression %q", expr)
	}
	if gap, ok := gapFiring(sched, loc, ref, next); ok {
		return gap, nil
	}
	return next, nil
}

// gapFiring checks the spring-forward transitions between ref and next for a
// schedule match whose local time was skipped. The cron library walks
// wall-clock fields, so such a match would otherwise slip a whole period.
// The corrected firing is the transition instant itself.
func gapFiring(sched cron.Schedule, loc *time.Location, ref, next time.Time) (time.Time, bool) {
	from := ref
	for {
		trans, ok := nextTransition(loc, from, next)
		if !ok {
			return time.Time{}, false
		}
		before := trans.Add(-time.Second)
		_, offBefore := before.In(loc).Zone()
		_, offAfter := trans.In(loc).Zone()
		if delta := offAfter - offBefore; delta > 0 {
			// Replay the schedule in a DST-free copy of the pre-transition
			// offset, where the skipped wall times exist. A hit inside
			// [trans, trans+delta) means the real firing was swallowed.
			fixed := time.FixedZone(loc.String(), offBefore)
			probe := sched.Next(before.In(fixed))
			gapEnd := trans.Add(time.Duration(delta) * time.Second)
			if !probe.Before(trans) && probe.Before(gapEnd) {
				return trans.In(loc), true
			}
		}
		from = trans
	}
}

// nextTransition finds the first UTC-offset change in (from, until], probing
// by day and narrowing to the second. Transitions in real zone data are
// whole-second aligned.
func nextTransition(loc *time.Location, from, until time.Time) (time.Time, bool) {
	if !until.After(from) {
		return time.Time{}, false
	}
	_, startOff := from.In(loc).Zone()
	lo := from
	var hi time.Time
	for {
		hi = lo.Add(24 * time.Hour)
		if hi.After(until) {
			hi = until
		}
		if _, off := hi.In(loc).Zone(); off != startOff {
			break
		}
		if !hi.Before(until) {
			return time.Time{}, false
		}
		lo = hi
	}
	for hi.Sub(lo) > time.Second {
		mid := lo.Add(hi.Sub(lo) / 2)
		if _, off := mid.In(loc).Zone(); off == startOff {
			lo = mid
		} else {
			hi = mid
		}
	}
	return hi.Truncate(time.Second), true
}

// Frequency is the step of a time-range schedule.
type Frequency struct {
	Value int    `json:"value" bson:"value"`
	Unit  string `json:"unit" bson:"unit"`
}

// Duration converts the frequency to a time.Duration.
func (f Frequency) Duration() (time.Duration, error) {
	if f.Value < 1 {
		return 0, fmt.Errorf("frequency value must be at least 1")
	}
	switch f.Unit {
	case UnitMinutes:
		return time.Duration(f.Value) * time.Minute, nil
	case UnitHours:
		return time.Duration(f.Value) * time.Hour, nil
	default:
		return 0, fmt.Errorf("invalid frequency unit %q", f.Unit)
	}
}

// TimeRange is the second schedule form: fire every Frequency between Start
// and End daily. An End earlier than Start wraps past midnight.
type TimeRange struct {
	Start     string    `json:"start" bson:"start"`
	End       string    `json:"end" bson:"end"`
	Frequency Frequency `json:"frequency" bson:"frequency"`
}

// Validate checks the range's times and frequency.
func (tr TimeRange) Validate() error {
	if _, err := ParseHHMM(tr.Start); err != nil {
		return fmt.Errorf("invalid time range start: %w", err)
	}
	if _, err := ParseHHMM(tr.End); err != nil {
		return fmt.Errorf("invalid time range end: %w", err)
	}
	if _, err := tr.Frequency.Duration(); err != nil {
		return err
	}
	return nil
}

// NextRangeAfter returns the smallest slot instant strictly after ref. Slots
// lie at start + k*frequency within the daily [start, end] span in zone.
func NextRangeAfter(tr TimeRange, zone string, ref time.Time) (time.Time, error) {
	loc, err := LoadLocation(zone)
	if err != nil {
		return time.Time{}, err
	}
	startMin, err := ParseHHMM(tr.Start)
	if err != nil {
		return time.Time{}, err
	}
	endMin, err := ParseHHMM(tr.End)
	if err != nil {
		return time.Time{}, err
	}
	step, err := tr.Frequency.Duration()
	if err != nil {
		return time.Time{}, err
	}

	// The sequence anchored on a given day can produce the next slot even
	// when that day is yesterday (overnight ranges) or tomorrow (ref past
	// today's last slot).
	local := ref.In(loc)
	for _, dayOffset := range []int{-1, 0, 1} {
		day := local.AddDate(0, 0, dayOffset)
		seqStart := time.Date(day.Year(), day.Month(), day.Day(), startMin/60, startMin%60, 0, 0, loc)
		seqEnd := time.Date(day.Year(), day.Month(), day.Day(), endMin/60, endMin%60, 0, 0, loc)
		if endMin < startMin {
			seqEnd = seqEnd.AddDate(0, 0, 1)
		}
		for slot := seqStart; !slot.After(seqEnd); slot = slot.Add(step) {
			if slot.After(ref) {
				return slot, nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("no upcoming slot in time range %s-%s", tr.Start, tr.End)
}
