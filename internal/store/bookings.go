package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"costumier/internal/domain"
	"costumier/internal/models"
)

const bookingColumns = `id, user_tg_id, client_name, phone, costume_id, costume_title, size,
       child_name, child_age, child_height, status, channel, event_date,
       pickup_at, return_at, sheet_row_link, created_at, updated_at`

const dateLayout = "2006-01-02"

// CountOverlapping counts active bookings for (costumeID, size) whose
// occupancy window intersects w, half-open: pickup < w.return AND
// w.pickup < return.
func (s *Store) CountOverlapping(ctx context.Context, costumeID int64, size string, w models.Window) (int64, error) {
	query := `SELECT COUNT(*) FROM bookings
              WHERE costume_id = ? AND size = ? AND status IN (?, ?)
              AND pickup_at < ? AND ? < return_at`
	var count int64
	err := s.QueryRowContext(ctx, query,
		costumeID, size, models.StatusNew, models.StatusConfirmed,
		w.ReturnAt.Unix(), w.PickupAt.Unix(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count overlapping bookings: %w", err)
	}
	return count, nil
}

// CreateBookingLocked runs the availability check and the insert inside one
// transaction so two concurrent creates cannot both take the last unit.
// SQLite holds the write lock for the whole count-then-insert sequence.
func (s *Store) CreateBookingLocked(ctx context.Context, booking *models.Booking) error {
	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var stockRaw string
	err = tx.QueryRowContext(ctx, `SELECT stock_by_size FROM costumes WHERE id = ?`, booking.CostumeID).Scan(&stockRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrCostumeNotFound
	}
	if err != nil {
		return fmt.Errorf("read stock in tx: %w", err)
	}

	var stockBySize map[string]int64
	if err := json.Unmarshal([]byte(stockRaw), &stockBySize); err != nil {
		return fmt.Errorf("decode stock in tx: %w", err)
	}
	stock := stockBySize[booking.Size]

	w := booking.Window()
	var overlapping int64
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings
              WHERE costume_id = ? AND size = ? AND status IN (?, ?)
              AND pickup_at < ? AND ? < return_at`,
		booking.CostumeID, booking.Size, models.StatusNew, models.StatusConfirmed,
		w.ReturnAt.Unix(), w.PickupAt.Unix(),
	).Scan(&overlapping)
	if err != nil {
		return fmt.Errorf("count overlapping in tx: %w", err)
	}

	if overlapping >= stock {
		return &domain.ConflictError{
			Size: booking.Size,
			Date: booking.EventDate.Format(dateLayout),
		}
	}

	now := time.Now()
	result, err := tx.ExecContext(ctx, `INSERT INTO bookings (
                  user_tg_id, client_name, phone, costume_id, costume_title, size,
                  child_name, child_age, child_height, status, channel, event_date,
                  pickup_at, return_at, sheet_row_link, created_at, updated_at
              ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		booking.UserTgID,
		booking.ClientName,
		booking.Phone,
		booking.CostumeID,
		booking.CostumeTitle,
		booking.Size,
		booking.ChildName,
		booking.ChildAge,
		booking.ChildHeight,
		booking.Status,
		booking.Channel,
		booking.EventDate.Format(dateLayout),
		booking.PickupAt.Unix(),
		booking.ReturnAt.Unix(),
		booking.SheetRowLink,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("insert booking in tx: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id in tx: %w", err)
	}
	booking.ID = id
	booking.CreatedAt = now
	booking.UpdatedAt = now

	return tx.Commit()
}

func (s *Store) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	booking, err := scanBooking(s.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrBookingNotFound
	}
	return booking, err
}

// GetBookings returns all bookings, optionally filtered by status, newest
// first.
func (s *Store) GetBookings(ctx context.Context, status string) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings ORDER BY created_at DESC`
	args := []any{}
	if status != "" {
		query = `SELECT ` + bookingColumns + ` FROM bookings WHERE status = ? ORDER BY created_at DESC`
		args = append(args, status)
	}
	return s.queryBookings(ctx, query, args...)
}

func (s *Store) GetUserBookings(ctx context.Context, userTgID int64) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE user_tg_id = ? ORDER BY created_at DESC`
	return s.queryBookings(ctx, query, userTgID)
}

func (s *Store) GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE event_date >= ? AND event_date <= ? ORDER BY event_date, created_at`
	return s.queryBookings(ctx, query, start.Format(dateLayout), end.Format(dateLayout))
}

// GetActiveBookings returns new/confirmed bookings for one costume size.
func (s *Store) GetActiveBookings(ctx context.Context, costumeID int64, size string) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE costume_id = ? AND size = ? AND status IN (?, ?)`
	return s.queryBookings(ctx, query, costumeID, size, models.StatusNew, models.StatusConfirmed)
}

func (s *Store) UpdateBookingStatus(ctx context.Context, id int64, status string) error {
	result, err := s.ExecContext(ctx,
		`UPDATE bookings SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("update booking status: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return domain.ErrBookingNotFound
	}
	return nil
}

func (s *Store) UpdateBookingSheetLink(ctx context.Context, id int64, link string) error {
	_, err := s.ExecContext(ctx,
		`UPDATE bookings SET sheet_row_link = ?, updated_at = ? WHERE id = ?`,
		link, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("update booking sheet link: %w", err)
	}
	return nil
}

func (s *Store) queryBookings(ctx context.Context, query string, args ...any) ([]*models.Booking, error) {
	rows, err := s.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	return bookings, rows.Err()
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var b models.Booking
	var eventDate string
	var pickupAt, returnAt int64
	err := row.Scan(
		&b.ID, &b.UserTgID, &b.ClientName, &b.Phone, &b.CostumeID, &b.CostumeTitle, &b.Size,
		&b.ChildName, &b.ChildAge, &b.ChildHeight, &b.Status, &b.Channel, &eventDate,
		&pickupAt, &returnAt, &b.SheetRowLink, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan booking: %w", err)
	}

	b.EventDate, err = time.ParseInLocation(dateLayout, eventDate, time.Local)
	if err != nil {
		return nil, fmt.Errorf("parse event date %q: %w", eventDate, err)
	}
	b.PickupAt = time.Unix(pickupAt, 0).In(time.Local)
	b.ReturnAt = time.Unix(returnAt, 0).In(time.Local)
	return &b, nil
}
