// Package availability holds the pure calendar rules that decide which event
// dates can be reserved. Both the HTTP layer and the workflow engine evaluate
// the same predicate, so a date the client offers is never one the server
// would turn around and reject.
package availability

import "time"

// maxScanDays bounds the forward scan for a first selectable date. A window
// longer than a year with no working days must terminate with the fallback,
// which callers treat as the "no bookable date exists" signal.
const maxScanDays = 366

// Policy is the date-selectability input, derived from the active event
// settings. A zero OpenDate/CloseDate pair means no explicit window is
// configured and only the past-date rule applies.
type Policy struct {
	OpenDate     time.Time
	CloseDate    time.Time
	WorkingDays  []time.Weekday
	BlockedDates []time.Time
	MaxSeats     int
}

// Midnight normalizes a timestamp to the start of its calendar day.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func (p Policy) hasWindow() bool {
	return !p.OpenDate.IsZero() && !p.CloseDate.IsZero()
}

func (p Policy) isWorkingDay(d time.Weekday) bool {
	for _, w := range p.WorkingDays {
		if w == d {
			return true
		}
	}
	return false
}

func (p Policy) isBlocked(date time.Time) bool {
	day := Midnight(date)
	for _, b := range p.BlockedDates {
		if Midnight(b).Equal(day) {
			return true
		}
	}
	return false
}

// IsDateSelectable reports whether date can be reserved under the policy.
// Rules, in precedence order: past dates are never selectable; a configured
// window is inclusive on both ends (openDate start-of-day, closeDate
// end-of-day); the weekday must be a working day; blocked dates lose to
// everything else by exact calendar-day equality.
func IsDateSelectable(date time.Time, p Policy, today time.Time) bool {
	day := Midnight(date)

	if day.Before(Midnight(today)) {
		return false
	}

	if p.hasWindow() {
		if day.Before(Midnight(p.OpenDate)) || day.After(Midnight(p.CloseDate)) {
			return false
		}
	}

	if !p.isWorkingDay(day.Weekday()) {
		return false
	}

	if p.isBlocked(day) {
		return false
	}

	return true
}

// FirstSelectableDate scans forward from max(today, openDate) for the first
// selectable day, giving the date picker its initial focus. When nothing is
// selectable within the scan bound it returns the fallback unchanged
// (openDate when a window exists, otherwise today); callers detect the empty
// availability condition by the combination of an unchanged fallback and
// every candidate date being disabled.
func FirstSelectableDate(p Policy, today time.Time) time.Time {
	start := Midnight(today)
	if p.hasWindow() && Midnight(p.OpenDate).After(start) {
		start = Midnight(p.OpenDate)
	}

	cursor := start
	for i := 0; i < maxScanDays; i++ {
		if p.hasWindow() && cursor.After(Midnight(p.CloseDate)) {
			break
		}
		if IsDateSelectable(cursor, p, today) {
			return cursor
		}
		cursor = cursor.AddDate(0, 0, 1)
	}

	if p.hasWindow() {
		return Midnight(p.OpenDate)
	}
	return Midnight(today)
}

// SelectableDates enumerates every selectable day in the window, in order.
// With no configured window it looks a year ahead from today.
func SelectableDates(p Policy, today time.Time) []time.Time {
	start := Midnight(today)
	if p.hasWindow() && Midnight(p.OpenDate).After(start) {
		start = Midnight(p.OpenDate)
	}

	var dates []time.Time
	cursor := start
	for i := 0; i < maxScanDays; i++ {
		if p.hasWindow() && cursor.After(Midnight(p.CloseDate)) {
			break
		}
		if IsDateSelectable(cursor, p, today) {
			dates = append(dates, cursor)
		}
		cursor = cursor.AddDate(0, 0, 1)
	}
	return dates
}

// HasAvailability reports whether any date in the window is selectable.
func HasAvailability(p Policy, today time.Time) bool {
	first := FirstSelectableDate(p, today)
	return IsDateSelectable(first, p, today)
}
