package models

import "time"

// Booking is one reservation of a single unit. CostumeTitle is a display
// snapshot taken at creation time and never feeds availability decisions.
type Booking struct {
	ID           int64     `json:"id"`
	UserTgID     int64     `json:"user_tg_id"`
	ClientName   string    `json:"client_name"`
	Phone        string    `json:"phone"`
	CostumeID    int64     `json:"costume_id"`
	CostumeTitle string    `json:"costume_title"`
	Size         string    `json:"size"`
	ChildName    string    `json:"child_name,omitempty"`
	ChildAge     int64     `json:"child_age,omitempty"`
	ChildHeight  int64     `json:"child_height,omitempty"`
	Status       string    `json:"status"`
	Channel      string    `json:"channel"`
	EventDate    time.Time `json:"event_date"`
	PickupAt     time.Time `json:"pickup_at"`
	ReturnAt     time.Time `json:"return_at"`
	SheetRowLink string    `json:"sheet_row_link,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Window returns the booking's occupancy interval.
func (b *Booking) Window() Window {
	return Window{PickupAt: b.PickupAt, ReturnAt: b.ReturnAt}
}

// SetEventDate stores the event date and derives the occupancy window
// from it.
func (b *Booking) SetEventDate(eventDate time.Time) {
	b.EventDate = DateOnly(eventDate)
	w := WindowForEvent(eventDate)
	b.PickupAt = w.PickupAt
	b.ReturnAt = w.ReturnAt
}

// IsActive reports whether the booking currently occupies a unit.
func (b *Booking) IsActive() bool {
	return b.Status == StatusNew || b.Status == StatusConfirmed
}

// BlockedDate is one fully-occupied calendar date for a costume size.
type BlockedDate struct {
	Date time.Time `json:"date"`
	Size string    `json:"size"`
}
