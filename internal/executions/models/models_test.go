package models

import "testing"

// TestValidTransition tests the execution status state machine
func TestValidTransition(t *testing.T) {
	tests := []struct {
		from string
		to   string
		want bool
	}{
		{from: StatusPending, to: StatusRunning, want: true},
		{from: StatusPending, to: StatusCancelled, want: true},
		{from: StatusPending, to: StatusSuccess, want: false},
		{from: StatusPending, to: StatusFailed, want: false},
		{from: StatusRunning, to: StatusSuccess, want: true},
		{from: StatusRunning, to: StatusFailed, want: true},
		{from: StatusRunning, to: StatusCancelled, want: true},
		{from: StatusRunning, to: StatusPending, want: false},
		{from: StatusSuccess, to: StatusRunning, want: false},
		{from: StatusFailed, to: StatusRunning, want: false},
		{from: StatusCancelled, to: StatusPending, want: false},
		{from: "UNKNOWN", to: StatusRunning, want: false},
		{from: StatusPending, to: "UNKNOWN", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"_to_"+tt.to, func(t *testing.T) {
			if got := ValidTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("ValidTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

// TestTerminal tests terminal status detection
func TestTerminal(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{status: StatusSuccess, want: true},
		{status: StatusFailed, want: true},
		{status: StatusCancelled, want: true},
		{status: StatusPending, want: false},
		{status: StatusRunning, want: false},
		{status: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			if got := Terminal(tt.status); got != tt.want {
				t.Errorf("Terminal(%s) = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

// TestValidLevel tests executor log level validation
func TestValidLevel(t *testing.T) {
	for _, level := range []string{LevelDebug, LevelInfo, LevelWarn, LevelError} {
		if !ValidLevel(level) {
			t.Errorf("ValidLevel(%s) = false, want true", level)
		}
	}
	for _, level := range []string{"TRACE", "info", "", "FATAL"} {
		if ValidLevel(level) {
			t.Errorf("ValidLevel(%q) = true, want false", level)
		}
	}
}
