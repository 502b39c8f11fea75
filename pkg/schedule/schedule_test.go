package schedule

import (
	"testing"
	"time"
)

func mustUTC(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("bad test time %q: %v", value, err)
	}
	return parsed
}

// TestValidateCron tests 5-field cron expression parsing
func TestValidateCron(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		wantErr bool
	}{
		{name: "every five minutes", expr: "*/5 * * * *", wantErr: false},
		{name: "weekday mornings", expr: "0 9 * * 1-5", wantErr: false},
		{name: "list of minutes", expr: "15,45 8 1 * *", wantErr: false},
		{name: "wildcard everything", expr: "* * * * *", wantErr: false},
		{name: "empty expression", expr: "", wantErr: true},
		{name: "not a cron", expr: "tomorrow at noon", wantErr: true},
		{name: "four fields", expr: "0 10 * *", wantErr: true},
		{name: "six fields", expr: "0 0 10 * * *", wantErr: true},
		{name: "minute out of range", expr: "60 * * * *", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCron(tt.expr)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCron(%q) error = %v, wantErr %v", tt.expr, err, tt.wantErr)
			}
		})
	}
}

// TestValidateTimezone tests IANA timezone resolution
func TestValidateTimezone(t *testing.T) {
	tests := []struct {
		name    string
		zone    string
		wantErr bool
	}{
		{name: "utc", zone: "UTC", wantErr: false},
		{name: "iana zone", zone: "America/New_York", wantErr: false},
		{name: "empty", zone: "", wantErr: true},
		{name: "unknown", zone: "Mars/Olympus_Mons", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTimezone(tt.zone)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateTimezone(%q) error = %v, wantErr %v", tt.zone, err, tt.wantErr)
			}
		})
	}
}

// TestNextAfter tests cron next-firing evaluation, including the strict
// inequality and DST transitions
func TestNextAfter(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		zone    string
		ref     string
		want    string
		wantErr bool
	}{
		{
			name: "daily firing later the same day",
			expr: "0 10 * * *",
			zone: "UTC",
			ref:  "2025-01-15T09:59:00Z",
			want: "2025-01-15T10:00:00Z",
		},
		{
			name: "ref exactly on a firing moves to the next one",
			expr: "0 10 * * *",
			zone: "UTC",
			ref:  "2025-01-15T10:00:00Z",
			want: "2025-01-16T10:00:00Z",
		},
		{
			name: "quarter hour steps",
			expr: "*/15 * * * *",
			zone: "UTC",
			ref:  "2025-01-15T10:07:00Z",
			want: "2025-01-15T10:15:00Z",
		},
		{
			name: "weekday restriction crosses to next monday",
			expr: "0 9 * * 1",
			zone: "Europe/Berlin",
			ref:  "2025-01-15T12:00:00Z",
			want: "2025-01-20T08:00:00Z",
		},
		{
			name: "firing computed in the schedule timezone",
			expr: "30 8 * * *",
			zone: "Asia/Tokyo",
			ref:  "2025-06-01T00:00:00Z",
			want: "2025-06-01T23:30:00Z",
		},
		{
			// 2025-03-09 02:30 does not exist in New York; the firing lands
			// on the transition instant, 03:00 EDT.
			name: "spring forward gap fires at the transition",
			expr: "30 2 * * *",
			zone: "America/New_York",
			ref:  "2025-03-09T05:00:00Z",
			want: "2025-03-09T07:00:00Z",
		},
		{
			name: "spring forward day outside the gap is unaffected",
			expr: "30 3 * * *",
			zone: "America/New_York",
			ref:  "2025-03-09T05:00:00Z",
			want: "2025-03-09T07:30:00Z",
		},
		{
			// 2025-11-02 01:30 occurs twice in New York; the first
			// occurrence (EDT) wins.
			name: "fall back repeats fire on the first occurrence",
			expr: "30 1 * * *",
			zone: "America/New_York",
			ref:  "2025-11-02T04:00:00Z",
			want: "2025-11-02T05:30:00Z",
		},
		{
			name:    "invalid expression",
			expr:    "bad",
			zone:    "UTC",
			ref:     "2025-01-15T10:00:00Z",
			wantErr: true,
		},
		{
			name:    "invalid timezone",
			expr:    "0 10 * * *",
			zone:    "Nowhere/Null",
			ref:     "2025-01-15T10:00:00Z",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextAfter(tt.expr, tt.zone, mustUTC(t, tt.ref))
			if (err != nil) != tt.wantErr {
				t.Fatalf("NextAfter() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			want := mustUTC(t, tt.want)
			if !got.Equal(want) {
				t.Errorf("NextAfter() = %s, want %s", got.UTC().Format(time.RFC3339), tt.want)
			}
		})
	}
}

// TestNextRangeAfter tests slot computation for time-range schedules
func TestNextRangeAfter(t *testing.T) {
	every30m := Frequency{Value: 30, Unit: UnitMinutes}
	every2h := Frequency{Value: 2, Unit: UnitHours}

	tests := []struct {
		name    string
		tr      TimeRange
		zone    string
		ref     string
		want    string
		wantErr bool
	}{
		{
			name: "mid range snaps to the next slot",
			tr:   TimeRange{Start: "09:00", End: "17:00", Frequency: every30m},
			zone: "UTC",
			ref:  "2025-01-15T10:05:00Z",
			want: "2025-01-15T10:30:00Z",
		},
		{
			name: "before the range start",
			tr:   TimeRange{Start: "09:00", End: "17:00", Frequency: every30m},
			zone: "UTC",
			ref:  "2025-01-15T08:00:00Z",
			want: "2025-01-15T09:00:00Z",
		},
		{
			name: "past the range end rolls to tomorrow",
			tr:   TimeRange{Start: "09:00", End: "17:00", Frequency: every30m},
			zone: "UTC",
			ref:  "2025-01-15T18:00:00Z",
			want: "2025-01-16T09:00:00Z",
		},
		{
			name: "end boundary is a valid slot",
			tr:   TimeRange{Start: "09:00", End: "17:00", Frequency: every2h},
			zone: "UTC",
			ref:  "2025-01-15T16:00:00Z",
			want: "2025-01-15T17:00:00Z",
		},
		{
			// Slots are 09:00 and 09:45; 10:30 would overshoot the end.
			name: "step that does not divide the span stops early",
			tr:   TimeRange{Start: "09:00", End: "10:00", Frequency: Frequency{Value: 45, Unit: UnitMinutes}},
			zone: "UTC",
			ref:  "2025-01-15T09:46:00Z",
			want: "2025-01-16T09:00:00Z",
		},
		{
			name: "overnight range continues past midnight",
			tr:   TimeRange{Start: "22:00", End: "02:00", Frequency: Frequency{Value: 1, Unit: UnitHours}},
			zone: "UTC",
			ref:  "2025-01-16T00:30:00Z",
			want: "2025-01-16T01:00:00Z",
		},
		{
			name: "overnight range before the evening start",
			tr:   TimeRange{Start: "22:00", End: "02:00", Frequency: Frequency{Value: 1, Unit: UnitHours}},
			zone: "UTC",
			ref:  "2025-01-15T21:00:00Z",
			want: "2025-01-15T22:00:00Z",
		},
		{
			name: "slots computed in the schedule timezone",
			tr:   TimeRange{Start: "09:00", End: "10:00", Frequency: Frequency{Value: 1, Unit: UnitHours}},
			zone: "America/New_York",
			ref:  "2025-01-15T13:30:00Z",
			want: "2025-01-15T14:00:00Z",
		},
		{
			name:    "invalid timezone",
			tr:      TimeRange{Start: "09:00", End: "17:00", Frequency: every30m},
			zone:    "Not/AZone",
			ref:     "2025-01-15T10:00:00Z",
			wantErr: true,
		},
		{
			name:    "invalid start time",
			tr:      TimeRange{Start: "25:00", End: "17:00", Frequency: every30m},
			zone:    "UTC",
			ref:     "2025-01-15T10:00:00Z",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextRangeAfter(tt.tr, tt.zone, mustUTC(t, tt.ref))
			if (err != nil) != tt.wantErr {
				t.Fatalf("NextRangeAfter() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			want := mustUTC(t, tt.want)
			if !got.Equal(want) {
				t.Errorf("NextRangeAfter() = %s, want %s", got.UTC().Format(time.RFC3339), tt.want)
			}
		})
	}
}

// TestParseHHMM tests wall-clock parsing into minutes since midnight
func TestParseHHMM(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    int
		wantErr bool
	}{
		{name: "midnight", value: "00:00", want: 0},
		{name: "morning", value: "09:30", want: 570},
		{name: "last minute", value: "23:59", want: 1439},
		{name: "hour out of range", value: "24:00", wantErr: true},
		{name: "minute out of range", value: "12:60", wantErr: true},
		{name: "garbage", value: "ab:cd", wantErr: true},
		{name: "empty", value: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHHMM(tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseHHMM(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseHHMM(%q) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}

// TestValidateDate tests calendar date validation
func TestValidateDate(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{name: "valid date", value: "2025-01-15", wantErr: false},
		{name: "leap day", value: "2024-02-29", wantErr: false},
		{name: "month out of range", value: "2025-13-01", wantErr: true},
		{name: "day out of range", value: "2025-02-30", wantErr: true},
		{name: "wrong layout", value: "15-01-2025", wantErr: true},
		{name: "empty", value: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDate(tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateDate(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
		})
	}
}

// TestFrequencyDuration tests frequency unit conversion
func TestFrequencyDuration(t *testing.T) {
	tests := []struct {
		name    string
		freq    Frequency
		want    time.Duration
		wantErr bool
	}{
		{name: "minutes", freq: Frequency{Value: 30, Unit: UnitMinutes}, want: 30 * time.Minute},
		{name: "hours", freq: Frequency{Value: 2, Unit: UnitHours}, want: 2 * time.Hour},
		{name: "single minute", freq: Frequency{Value: 1, Unit: UnitMinutes}, want: time.Minute},
		{name: "zero value", freq: Frequency{Value: 0, Unit: UnitMinutes}, wantErr: true},
		{name: "negative value", freq: Frequency{Value: -5, Unit: UnitHours}, wantErr: true},
		{name: "unknown unit", freq: Frequency{Value: 1, Unit: "days"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.freq.Duration()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Duration() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("Duration() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestTimeRangeValidate tests time range shape validation
func TestTimeRangeValidate(t *testing.T) {
	tests := []struct {
		name    string
		tr      TimeRange
		wantErr bool
	}{
		{
			name:    "valid",
			tr:      TimeRange{Start: "09:00", End: "17:00", Frequency: Frequency{Value: 30, Unit: UnitMinutes}},
			wantErr: false,
		},
		{
			name:    "overnight is valid",
			tr:      TimeRange{Start: "22:00", End: "02:00", Frequency: Frequency{Value: 1, Unit: UnitHours}},
			wantErr: false,
		},
		{
			name:    "bad start",
			tr:      TimeRange{Start: "9am", End: "17:00", Frequency: Frequency{Value: 30, Unit: UnitMinutes}},
			wantErr: true,
		},
		{
			name:    "bad end",
			tr:      TimeRange{Start: "09:00", End: "17:60", Frequency: Frequency{Value: 30, Unit: UnitMinutes}},
			wantErr: true,
		},
		{
			name:    "bad frequency",
			tr:      TimeRange{Start: "09:00", End: "17:00", Frequency: Frequency{Value: 30, Unit: "seconds"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tr.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
