package schedule

import (
	"testing"
	"time"
)

// TestWithinWindow tests daily window containment, including overnight wrap
func TestWithinWindow(t *testing.T) {
	tests := []struct {
		name    string
		start   string
		end     string
		zone    string
		at      string
		want    bool
		wantErr bool
	}{
		{name: "before the window", start: "09:00", end: "17:00", zone: "UTC", at: "2025-01-15T08:59:00Z", want: false},
		{name: "at the start", start: "09:00", end: "17:00", zone: "UTC", at: "2025-01-15T09:00:00Z", want: true},
		{name: "last minute inside", start: "09:00", end: "17:00", zone: "UTC", at: "2025-01-15T16:59:00Z", want: true},
		{name: "end is exclusive", start: "09:00", end: "17:00", zone: "UTC", at: "2025-01-15T17:00:00Z", want: false},
		{name: "overnight late evening", start: "22:00", end: "02:00", zone: "UTC", at: "2025-01-15T23:00:00Z", want: true},
		{name: "overnight early morning", start: "22:00", end: "02:00", zone: "UTC", at: "2025-01-15T01:59:00Z", want: true},
		{name: "overnight end is exclusive", start: "22:00", end: "02:00", zone: "UTC", at: "2025-01-15T02:00:00Z", want: false},
		{name: "overnight midday outside", start: "22:00", end: "02:00", zone: "UTC", at: "2025-01-15T12:00:00Z", want: false},
		{name: "degenerate window contains nothing", start: "09:00", end: "09:00", zone: "UTC", at: "2025-01-15T09:00:00Z", want: false},
		{name: "containment uses the window timezone", start: "09:00", end: "17:00", zone: "America/New_York", at: "2025-01-15T13:30:00Z", want: false},
		{name: "same instant inside once converted", start: "09:00", end: "17:00", zone: "America/New_York", at: "2025-01-15T14:30:00Z", want: true},
		{name: "invalid zone", start: "09:00", end: "17:00", zone: "Not/Real", at: "2025-01-15T10:00:00Z", wantErr: true},
		{name: "invalid start", start: "bad", end: "17:00", zone: "UTC", at: "2025-01-15T10:00:00Z", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := WithinWindow(tt.start, tt.end, tt.zone, mustUTC(t, tt.at))
			if (err != nil) != tt.wantErr {
				t.Fatalf("WithinWindow() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("WithinWindow() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestNextWindowEdge tests finding the first boundary strictly after an instant
func TestNextWindowEdge(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
		zone  string
		after string
		want  string
	}{
		{
			name:  "before the window the next edge is the start",
			start: "09:00", end: "17:00", zone: "UTC",
			after: "2025-01-15T08:00:00Z",
			want:  "2025-01-15T09:00:00Z",
		},
		{
			name:  "inside the window the next edge is the end",
			start: "09:00", end: "17:00", zone: "UTC",
			after: "2025-01-15T10:00:00Z",
			want:  "2025-01-15T17:00:00Z",
		},
		{
			name:  "after the window the next edge is tomorrow's start",
			start: "09:00", end: "17:00", zone: "UTC",
			after: "2025-01-15T17:30:00Z",
			want:  "2025-01-16T09:00:00Z",
		},
		{
			name:  "exactly on an edge moves strictly past it",
			start: "09:00", end: "17:00", zone: "UTC",
			after: "2025-01-15T09:00:00Z",
			want:  "2025-01-15T17:00:00Z",
		},
		{
			name:  "overnight window orders its edges correctly",
			start: "22:00", end: "02:00", zone: "UTC",
			after: "2025-01-15T23:00:00Z",
			want:  "2025-01-16T02:00:00Z",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextWindowEdge(tt.start, tt.end, tt.zone, mustUTC(t, tt.after))
			if err != nil {
				t.Fatalf("NextWindowEdge() error = %v", err)
			}
			want := mustUTC(t, tt.want)
			if !got.Equal(want) {
				t.Errorf("NextWindowEdge() = %s, want %s", got.UTC().Format(time.RFC3339), tt.want)
			}
		})
	}
}

// TestWeekdayAllowed tests the days-of-week filter, which is evaluated in the
// schedule's timezone, not UTC
func TestWeekdayAllowed(t *testing.T) {
	// 2025-01-17T23:00:00Z is Friday in UTC but already Saturday in Auckland.
	fridayLateUTC := "2025-01-17T23:00:00Z"

	tests := []struct {
		name    string
		days    []int
		zone    string
		at      string
		want    bool
		wantErr bool
	}{
		{name: "empty list allows every day", days: nil, zone: "UTC", at: fridayLateUTC, want: true},
		{name: "weekday matches in utc", days: []int{5}, zone: "UTC", at: fridayLateUTC, want: true},
		{name: "same instant is saturday in auckland", days: []int{5}, zone: "Pacific/Auckland", at: fridayLateUTC, want: false},
		{name: "saturday allowed in auckland", days: []int{6}, zone: "Pacific/Auckland", at: fridayLateUTC, want: true},
		{name: "sunday is zero", days: []int{0}, zone: "UTC", at: "2025-01-19T12:00:00Z", want: true},
		{name: "invalid zone", days: []int{1}, zone: "Under/Water", at: fridayLateUTC, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := WeekdayAllowed(tt.days, tt.zone, mustUTC(t, tt.at))
			if (err != nil) != tt.wantErr {
				t.Fatalf("WeekdayAllowed() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("WeekdayAllowed() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestDateExcluded tests the exclusion date filter in the schedule's timezone
func TestDateExcluded(t *testing.T) {
	tests := []struct {
		name       string
		exclusions []string
		zone       string
		at         string
		want       bool
	}{
		{name: "empty list excludes nothing", exclusions: nil, zone: "UTC", at: "2025-01-15T10:00:00Z", want: false},
		{name: "matching date", exclusions: []string{"2025-01-15"}, zone: "UTC", at: "2025-01-15T10:00:00Z", want: true},
		{name: "non matching date", exclusions: []string{"2025-12-25"}, zone: "UTC", at: "2025-01-15T10:00:00Z", want: false},
		{
			// 23:30 UTC on the 15th is already the 16th in Tokyo.
			name:       "date taken in the schedule timezone",
			exclusions: []string{"2025-01-16"},
			zone:       "Asia/Tokyo",
			at:         "2025-01-15T23:30:00Z",
			want:       true,
		},
		{
			name:       "same instant not excluded in utc",
			exclusions: []string{"2025-01-16"},
			zone:       "UTC",
			at:         "2025-01-15T23:30:00Z",
			want:       false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DateExcluded(tt.exclusions, tt.zone, mustUTC(t, tt.at))
			if err != nil {
				t.Fatalf("DateExcluded() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DateExcluded() = %v, want %v", got, tt.want)
			}
		})
	}
}
