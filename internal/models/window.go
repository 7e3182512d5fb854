package models

import "time"

// Window is the half-open occupancy interval [PickupAt, ReturnAt) during
// which a booked unit is physically out.
type Window struct {
	PickupAt time.Time
	ReturnAt time.Time
}

// WindowForEvent derives the occupancy window from an event date: pickup at
// 17:00 local the day before, return at 17:00 local on the event day. Only
// the calendar date of eventDate matters.
func WindowForEvent(eventDate time.Time) Window {
	y, m, d := eventDate.Date()
	ret := time.Date(y, m, d, HandoffHour, 0, 0, 0, time.Local)
	return Window{
		PickupAt: ret.AddDate(0, 0, -1),
		ReturnAt: ret,
	}
}

// Overlaps reports half-open interval intersection: [a,b) and [c,d) overlap
// iff a < d and c < b. Back-to-back rentals with a 17:00 handoff do not
// overlap.
func (w Window) Overlaps(other Window) bool {
	return w.PickupAt.Before(other.ReturnAt) && other.PickupAt.Before(w.ReturnAt)
}

// Dates returns every calendar date the window touches, pickup day and
// return day inclusive.
func (w Window) Dates() []time.Time {
	start := DateOnly(w.PickupAt)
	end := DateOnly(w.ReturnAt)

	var dates []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

// DateOnly truncates t to midnight local time.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

// IsPastDate reports whether date falls on a calendar day before today.
func IsPastDate(date time.Time, now time.Time) bool {
	return DateOnly(date).Before(DateOnly(now))
}
