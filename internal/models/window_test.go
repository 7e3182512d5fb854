package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindowForEvent(t *testing.T) {
	event := time.Date(2024, 6, 10, 12, 30, 0, 0, time.Local)
	w := WindowForEvent(event)

	assert.Equal(t, time.Date(2024, 6, 9, 17, 0, 0, 0, time.Local), w.PickupAt)
	assert.Equal(t, time.Date(2024, 6, 10, 17, 0, 0, 0, time.Local), w.ReturnAt)
}

func TestWindowOverlaps(t *testing.T) {
	day := func(d int) Window {
		return WindowForEvent(time.Date(2024, 6, d, 0, 0, 0, 0, time.Local))
	}

	tests := []struct {
		name string
		a, b Window
		want bool
	}{
		{"same event date", day(10), day(10), true},
		{"adjacent dates hand off at 17:00", day(10), day(11), false},
		{"two days apart do not touch", day(10), day(12), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Overlaps(tt.b))
			assert.Equal(t, tt.want, tt.b.Overlaps(tt.a))
		})
	}
}

func TestWindowOverlapsHalfOpen(t *testing.T) {
	// Return at 17:00 and pickup at 17:00 the same day must not count as
	// overlap: the unit changes hands that evening.
	a := WindowForEvent(time.Date(2024, 6, 10, 0, 0, 0, 0, time.Local))
	b := Window{PickupAt: a.ReturnAt, ReturnAt: a.ReturnAt.AddDate(0, 0, 1)}

	assert.False(t, a.Overlaps(b))
	assert.False(t, b.Overlaps(a))
}

func TestWindowDates(t *testing.T) {
	w := WindowForEvent(time.Date(2024, 6, 10, 0, 0, 0, 0, time.Local))
	dates := w.Dates()

	require.Len(t, dates, 2)
	assert.Equal(t, time.Date(2024, 6, 9, 0, 0, 0, 0, time.Local), dates[0])
	assert.Equal(t, time.Date(2024, 6, 10, 0, 0, 0, 0, time.Local), dates[1])
}

func TestBookingSetEventDate(t *testing.T) {
	var b Booking
	b.SetEventDate(time.Date(2024, 6, 10, 23, 59, 0, 0, time.Local))

	assert.Equal(t, time.Date(2024, 6, 10, 0, 0, 0, 0, time.Local), b.EventDate)
	assert.Equal(t, time.Date(2024, 6, 9, 17, 0, 0, 0, time.Local), b.PickupAt)
	assert.Equal(t, time.Date(2024, 6, 10, 17, 0, 0, 0, time.Local), b.ReturnAt)
}

func TestIsPastDate(t *testing.T) {
	now := time.Date(2024, 6, 10, 15, 0, 0, 0, time.Local)

	assert.True(t, IsPastDate(now.AddDate(0, 0, -1), now))
	assert.False(t, IsPastDate(now, now))
	assert.False(t, IsPastDate(now.AddDate(0, 0, 1), now))
	// Earlier the same day is still "today", not past.
	assert.False(t, IsPastDate(time.Date(2024, 6, 10, 0, 1, 0, 0, time.Local), now))
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusNew, StatusConfirmed))
	assert.True(t, CanTransition(StatusNew, StatusCancelled))
	assert.True(t, CanTransition(StatusConfirmed, StatusCompleted))
	assert.False(t, CanTransition(StatusCancelled, StatusNew))
	assert.False(t, CanTransition(StatusCompleted, StatusCancelled))
	assert.False(t, CanTransition(StatusNew, "rejected"))
}

func TestValidPhone(t *testing.T) {
	assert.True(t, ValidPhone("+79161234567"))
	assert.False(t, ValidPhone("79161234567"))
	assert.False(t, ValidPhone("+7916123456"))
	assert.False(t, ValidPhone("+791612345678"))
	assert.False(t, ValidPhone("+7916123456a"))
	assert.False(t, ValidPhone(""))
}
