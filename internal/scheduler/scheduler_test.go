package scheduler

import (
	"testing"
	"time"
)

func TestShouldSendDayReminder(t *testing.T) {
	now := time.Date(2024, 6, 10, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name  string
		until time.Duration
		sent  bool
		want  bool
	}{
		{"exactly 24h out", 24 * time.Hour, false, true},
		{"lower edge 23h", 23 * time.Hour, false, true},
		{"upper edge 25h", 25 * time.Hour, false, true},
		{"too far 26h", 26 * time.Hour, false, false},
		{"too close 20h", 20 * time.Hour, false, false},
		{"already sent", 24 * time.Hour, true, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ShouldSendDayReminder(now.Add(tc.until), now, tc.sent)
			if got != tc.want {
				t.Errorf("ShouldSendDayReminder(+%v, sent=%v) = %v, want %v", tc.until, tc.sent, got, tc.want)
			}
		})
	}
}

func TestShouldSendHourReminder(t *testing.T) {
	now := time.Date(2024, 6, 10, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name  string
		until time.Duration
		sent  bool
		want  bool
	}{
		{"30 minutes out", 30 * time.Minute, false, true},
		{"edge 90 minutes", 90 * time.Minute, false, true},
		{"too far 2h", 2 * time.Hour, false, false},
		{"slot already started", -5 * time.Minute, false, false},
		{"already sent", 30 * time.Minute, true, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ShouldSendHourReminder(now.Add(tc.until), now, tc.sent)
			if got != tc.want {
				t.Errorf("ShouldSendHourReminder(+%v, sent=%v) = %v, want %v", tc.until, tc.sent, got, tc.want)
			}
		})
	}
}
