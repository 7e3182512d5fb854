package events

import (
	"encoding/json"
	"sync"
	"time"

	"costumier/internal/models"
)

const (
	EventBookingCreated       = "booking_created"
	EventBookingStatusChanged = "booking_status_changed"
	EventOfflineRental        = "offline_rental"
)

// BookingEventPayload is the booking snapshot carried by every booking
// event. Consumers must not reach back into the store.
type BookingEventPayload struct {
	BookingID    int64     `json:"booking_id"`
	UserTgID     int64     `json:"user_tg_id"`
	ClientName   string    `json:"client_name"`
	Phone        string    `json:"phone"`
	CostumeID    int64     `json:"costume_id"`
	CostumeTitle string    `json:"costume_title"`
	Size         string    `json:"size"`
	Status       string    `json:"status"`
	Channel      string    `json:"channel"`
	EventDate    time.Time `json:"event_date"`
	PickupAt     time.Time `json:"pickup_at"`
	ReturnAt     time.Time `json:"return_at"`
	ChangedByID  int64     `json:"changed_by_id,omitempty"`
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}

// NewBookingPayload snapshots a booking for publishing.
func NewBookingPayload(b *models.Booking) BookingEventPayload {
	return BookingEventPayload{
		BookingID:    b.ID,
		UserTgID:     b.UserTgID,
		ClientName:   b.ClientName,
		Phone:        b.Phone,
		CostumeID:    b.CostumeID,
		CostumeTitle: b.CostumeTitle,
		Size:         b.Size,
		Status:       b.Status,
		Channel:      b.Channel,
		EventDate:    b.EventDate,
		PickupAt:     b.PickupAt,
		ReturnAt:     b.ReturnAt,
	}
}
