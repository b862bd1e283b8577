// Package pickup implements the store's pickup calendar: conversions between
// the fixed Asia/Jakarta offset (UTC+7, no DST) and UTC instants, operating
// hours checks, slot boundaries, and the minimum pickup time calculator.
package pickup

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Jakarta is a fixed UTC+7 zone. The tz database is deliberately not used:
// Indonesia has no DST and the deployment pins the offset.
var Jakarta = time.FixedZone("Asia/Jakarta", 7*60*60)

const minutesPerDay = 24 * 60

// ParseHHMM converts "HH:mm" to minutes of day.
func ParseHHMM(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q, expected HH:mm", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("time %q out of range", s)
	}
	return h*60 + m, nil
}

// FormatHHMM renders minutes of day as "HH:mm".
func FormatHHMM(min int) string {
	min = ((min % minutesPerDay) + minutesPerDay) % minutesPerDay
	return fmt.Sprintf("%02d:%02d", min/60, min%60)
}

// ToUTC interprets a local (date, "HH:mm") pair in the Jakarta zone and
// returns the UTC instant. date is "YYYY-MM-DD".
func ToUTC(date, hhmm string) (time.Time, error) {
	min, err := ParseHHMM(hhmm)
	if err != nil {
		return time.Time{}, err
	}
	d, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(date), Jakarta)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", date)
	}
	return d.Add(time.Duration(min) * time.Minute).UTC(), nil
}

// LocalDate returns the Jakarta-local calendar date of t as "YYYY-MM-DD".
func LocalDate(t time.Time) string {
	return t.In(Jakarta).Format("2006-01-02")
}

// LocalHHMM returns the Jakarta-local wall time of t as "HH:mm".
func LocalHHMM(t time.Time) string {
	return t.In(Jakarta).Format("15:04")
}

// MinutesOfDay returns the Jakarta-local minutes since midnight of t.
func MinutesOfDay(t time.Time) int {
	local := t.In(Jakarta)
	return local.Hour()*60 + local.Minute()
}

// IsWithinOperatingHours checks the half-open window [open, close): a
// candidate before opening or at/after closing is rejected.
func IsWithinOperatingHours(openHHMM, closeHHMM string, candidate time.Time) bool {
	open, err := ParseHHMM(openHHMM)
	if err != nil {
		return false
	}
	close, err := ParseHHMM(closeHHMM)
	if err != nil {
		return false
	}
	m := MinutesOfDay(candidate)
	return m >= open && m < close
}

// SlotEnd computes the end of a pickup slot as "HH:mm", wrapping past
// midnight with modulo arithmetic. The wrap is accepted, not an error.
func SlotEnd(startHHMM string, slotMinutes int) (string, error) {
	start, err := ParseHHMM(startHHMM)
	if err != nil {
		return "", err
	}
	if slotMinutes <= 0 {
		slotMinutes = 60
	}
	return FormatHHMM(start + slotMinutes), nil
}

// SameDayBufferSatisfied enforces the lead time for same-day pickups: when
// date is today (Jakarta-local), the slot start must be at least
// bufferMinutes ahead of now. Any future date passes unconditionally.
func SameDayBufferSatisfied(date, startHHMM string, bufferMinutes int, now time.Time) bool {
	if date != LocalDate(now) {
		return true
	}
	start, err := ParseHHMM(startHHMM)
	if err != nil {
		return false
	}
	return start >= MinutesOfDay(now)+bufferMinutes
}

// DaysFromToday returns the Jakarta-local calendar-day distance from now to
// date. Today is 0, tomorrow 1, yesterday -1.
func DaysFromToday(date string, now time.Time) (int, error) {
	target, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(date), Jakarta)
	if err != nil {
		return 0, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", date)
	}
	local := now.In(Jakarta)
	today := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, Jakarta)
	return int(target.Sub(today).Hours() / 24), nil
}
