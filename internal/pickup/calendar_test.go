package pickup

import (
	"testing"
	"time"
)

func TestToUTCRoundTrip(t *testing.T) {
	cases := []struct {
		date string
		hhmm string
	}{
		{"2024-01-01", "00:00"},
		{"2024-01-01", "06:59"},
		{"2024-01-01", "07:00"},
		{"2024-02-29", "12:30"},
		{"2024-12-31", "23:59"},
	}
	for _, tc := range cases {
		t.Run(tc.date+"T"+tc.hhmm, func(t *testing.T) {
			utc, err := ToUTC(tc.date, tc.hhmm)
			if err != nil {
				t.Fatalf("ToUTC: %v", err)
			}
			if got := LocalDate(utc); got != tc.date {
				t.Errorf("LocalDate = %s, want %s", got, tc.date)
			}
			if got := LocalHHMM(utc); got != tc.hhmm {
				t.Errorf("LocalHHMM = %s, want %s", got, tc.hhmm)
			}
		})
	}
}

func TestToUTCOffset(t *testing.T) {
	// 10:00 Jakarta is 03:00 UTC.
	utc, err := ToUTC("2024-01-01", "10:00")
	if err != nil {
		t.Fatalf("ToUTC: %v", err)
	}
	want := time.Date(2024, 1, 1, 3, 0, 0, 0, time.UTC)
	if !utc.Equal(want) {
		t.Errorf("ToUTC = %s, want %s", utc, want)
	}
}

func TestToUTCInvalid(t *testing.T) {
	for _, tc := range []struct{ date, hhmm string }{
		{"2024-01-01", "24:00"},
		{"2024-01-01", "09:60"},
		{"2024-01-01", "morning"},
		{"01-01-2024", "09:00"},
		{"", "09:00"},
	} {
		if _, err := ToUTC(tc.date, tc.hhmm); err == nil {
			t.Errorf("ToUTC(%q, %q) accepted invalid input", tc.date, tc.hhmm)
		}
	}
}

func TestIsWithinOperatingHours(t *testing.T) {
	at := func(hhmm string) time.Time {
		utc, err := ToUTC("2024-06-10", hhmm)
		if err != nil {
			t.Fatalf("ToUTC: %v", err)
		}
		return utc
	}
	cases := []struct {
		hhmm string
		want bool
	}{
		{"08:59", false},
		{"09:00", true}, // opening is inclusive
		{"14:30", true},
		{"19:59", true},
		{"20:00", false}, // closing is exclusive
		{"23:00", false},
	}
	for _, tc := range cases {
		if got := IsWithinOperatingHours("09:00", "20:00", at(tc.hhmm)); got != tc.want {
			t.Errorf("IsWithinOperatingHours(09:00, 20:00, %s) = %v, want %v", tc.hhmm, got, tc.want)
		}
	}
}

func TestSlotEnd(t *testing.T) {
	cases := []struct {
		start string
		slot  int
		want  string
	}{
		{"09:00", 60, "10:00"},
		{"19:30", 60, "20:30"},
		{"23:30", 60, "00:30"}, // wraps past midnight
		{"23:00", 120, "01:00"},
		{"10:00", 0, "11:00"}, // zero slot falls back to the 60 min default
	}
	for _, tc := range cases {
		got, err := SlotEnd(tc.start, tc.slot)
		if err != nil {
			t.Fatalf("SlotEnd(%s, %d): %v", tc.start, tc.slot, err)
		}
		if got != tc.want {
			t.Errorf("SlotEnd(%s, %d) = %s, want %s", tc.start, tc.slot, got, tc.want)
		}
	}
}

func TestSameDayBufferSatisfied(t *testing.T) {
	// now = 2024-06-10 10:00 Jakarta
	now, err := ToUTC("2024-06-10", "10:00")
	if err != nil {
		t.Fatalf("ToUTC: %v", err)
	}

	t.Run("future date always passes", func(t *testing.T) {
		if !SameDayBufferSatisfied("2024-06-11", "09:00", 120, now) {
			t.Error("tomorrow at opening should satisfy the buffer")
		}
	})

	t.Run("today inside buffer rejected", func(t *testing.T) {
		if SameDayBufferSatisfied("2024-06-10", "11:00", 120, now) {
			t.Error("slot one hour ahead must not satisfy a 120 min buffer")
		}
	})

	t.Run("today at exact buffer passes", func(t *testing.T) {
		if !SameDayBufferSatisfied("2024-06-10", "12:00", 120, now) {
			t.Error("slot exactly buffer minutes ahead should pass")
		}
	})
}

func TestDaysFromToday(t *testing.T) {
	// 23:30 Jakarta on June 10 is already June 10 16:30 UTC; the local
	// calendar day must win over the UTC one.
	now, err := ToUTC("2024-06-10", "23:30")
	if err != nil {
		t.Fatalf("ToUTC: %v", err)
	}
	cases := []struct {
		date string
		want int
	}{
		{"2024-06-10", 0},
		{"2024-06-11", 1},
		{"2024-06-09", -1},
		{"2024-06-15", 5},
	}
	for _, tc := range cases {
		got, err := DaysFromToday(tc.date, now)
		if err != nil {
			t.Fatalf("DaysFromToday(%s): %v", tc.date, err)
		}
		if got != tc.want {
			t.Errorf("DaysFromToday(%s) = %d, want %d", tc.date, got, tc.want)
		}
	}
}
