package pickup

import "time"

// Hours is an operating window in minutes of day, half-open [Open, Close).
type Hours struct {
	Open  int
	Close int
}

// ParseHours builds an Hours from "HH:mm" strings.
func ParseHours(openHHMM, closeHHMM string) (Hours, error) {
	open, err := ParseHHMM(openHHMM)
	if err != nil {
		return Hours{}, err
	}
	close, err := ParseHHMM(closeHHMM)
	if err != nil {
		return Hours{}, err
	}
	return Hours{Open: open, Close: close}, nil
}

// Guard against degenerate configs where the buffer can never land inside
// the operating window.
const maxDayRollovers = 8

// MinPickupAt computes the earliest legal pickup instant for an order
// created at createdAt (UTC). leadDays is the maximum preorder lead across
// the order's items; the slowest item gates the whole order.
//
// Preorder orders (leadDays > 0) snap to opening time leadDays calendar days
// after the creation date; the lead time already absorbs the service buffer.
//
// Ready-stock orders add readyBufferMinutes to the creation instant and walk
// forward: a candidate before opening snaps to that day's opening; a
// candidate at or past closing carries the minutes that overflowed the
// window to the next day's opening. The overflow is carried, never
// truncated, so an order placed shortly before closing keeps its full
// buffer into the next morning.
//
// The result always satisfies IsWithinOperatingHours for sane hours.
func MinPickupAt(createdAt time.Time, leadDays, readyBufferMinutes int, h Hours) time.Time {
	local := createdAt.In(Jakarta).Truncate(time.Minute)

	if leadDays > 0 {
		return atMinutes(local.AddDate(0, 0, leadDays), h.Open).UTC()
	}

	cand := local.Add(time.Duration(readyBufferMinutes) * time.Minute)
	for i := 0; i < maxDayRollovers; i++ {
		m := cand.Hour()*60 + cand.Minute()
		if m < h.Open {
			return atMinutes(cand, h.Open).UTC()
		}
		if m >= h.Close {
			overflow := m - h.Close
			cand = atMinutes(cand.AddDate(0, 0, 1), h.Open).Add(time.Duration(overflow) * time.Minute)
			continue
		}
		return cand.UTC()
	}
	return atMinutes(cand, h.Open).UTC()
}

// atMinutes returns the instant at min minutes past midnight on the
// Jakarta-local calendar day of day.
func atMinutes(day time.Time, min int) time.Time {
	local := day.In(Jakarta)
	return time.Date(local.Year(), local.Month(), local.Day(), min/60, min%60, 0, 0, Jakarta)
}
