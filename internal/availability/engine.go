package availability

import (
	"context"
	"iter"
	"sort"
	"time"

	"costumier/internal/domain"
	"costumier/internal/models"

	"github.com/rs/zerolog"
)

// Engine answers availability questions over the booking store. It never
// mutates stock: a size is free on a date while the number of active
// bookings whose occupancy windows overlap that date's window stays below
// the physical unit count.
type Engine struct {
	store  domain.Store
	logger *zerolog.Logger
	now    func() time.Time
}

func NewEngine(store domain.Store, logger *zerolog.Logger) *Engine {
	return &Engine{store: store, logger: logger, now: time.Now}
}

// IsAvailable reports whether a unit of the given size is free for the
// event date. Past dates are rejected with ErrPastDate.
func (e *Engine) IsAvailable(ctx context.Context, costumeID int64, size string, eventDate time.Time) (bool, error) {
	if models.IsPastDate(eventDate, e.now()) {
		return false, domain.ErrPastDate
	}

	costume, err := e.store.GetCostume(ctx, costumeID)
	if err != nil {
		return false, err
	}
	if !costume.HasSize(size) {
		return false, domain.ErrCostumeNotFound
	}

	stock := costume.Stock(size)
	if stock <= 0 {
		return false, nil
	}

	count, err := e.store.CountOverlapping(ctx, costumeID, size, models.WindowForEvent(eventDate))
	if err != nil {
		return false, err
	}

	return count < stock, nil
}

// BlockedDates yields every event date on which the size has no free unit,
// in ascending order. The sequence is finite (only dates touched by an
// active booking window can be blocked) and restartable.
func (e *Engine) BlockedDates(ctx context.Context, costumeID int64, size string) (iter.Seq[models.BlockedDate], error) {
	costume, err := e.store.GetCostume(ctx, costumeID)
	if err != nil {
		return nil, err
	}
	if !costume.HasSize(size) {
		return nil, domain.ErrCostumeNotFound
	}
	stock := costume.Stock(size)

	active, err := e.store.GetActiveBookings(ctx, costumeID, size)
	if err != nil {
		return nil, err
	}

	blocked := blockedDates(active, stock, size)

	return func(yield func(models.BlockedDate) bool) {
		for _, bd := range blocked {
			if !yield(bd) {
				return
			}
		}
	}, nil
}

// blockedDates computes the sorted set of blocked event dates for one size.
// Candidate dates are exactly those covered by some active window; for each
// candidate the overlap count against the candidate's own window is compared
// to the stock.
func blockedDates(active []*models.Booking, stock int64, size string) []models.BlockedDate {
	candidates := make(map[time.Time]struct{})
	for _, b := range active {
		for _, d := range b.Window().Dates() {
			candidates[d] = struct{}{}
		}
	}

	var blocked []models.BlockedDate
	for date := range candidates {
		w := models.WindowForEvent(date)
		var count int64
		for _, b := range active {
			if w.Overlaps(b.Window()) {
				count++
			}
		}
		if count >= stock {
			blocked = append(blocked, models.BlockedDate{Date: date, Size: size})
		}
	}

	sort.Slice(blocked, func(i, j int) bool {
		return blocked[i].Date.Before(blocked[j].Date)
	})
	return blocked
}
