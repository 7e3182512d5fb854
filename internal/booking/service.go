package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"costumier/internal/domain"
	"costumier/internal/events"
	"costumier/internal/models"

	"github.com/rs/zerolog"
)

// Service owns the booking lifecycle: creation with the per-phone rate
// limit, user cancellation, admin status changes and walk-in rentals.
type Service struct {
	store           domain.Store
	limiter         domain.BookingLimiter
	eventBus        domain.EventPublisher
	sheetsWorker    domain.SyncWorker
	rateLimitWindow time.Duration
	maxBookingDays  int
	logger          *zerolog.Logger
	now             func() time.Time
}

func NewService(store domain.Store, limiter domain.BookingLimiter, eventBus domain.EventPublisher, sheetsWorker domain.SyncWorker, rateLimitWindow time.Duration, maxBookingDays int, logger *zerolog.Logger) *Service {
	if rateLimitWindow <= 0 {
		rateLimitWindow = models.BookingRateLimitWindowSeconds * time.Second
	}
	if maxBookingDays <= 0 {
		maxBookingDays = 365
	}
	return &Service{
		store:           store,
		limiter:         limiter,
		eventBus:        eventBus,
		sheetsWorker:    sheetsWorker,
		rateLimitWindow: rateLimitWindow,
		maxBookingDays:  maxBookingDays,
		logger:          logger,
		now:             time.Now,
	}
}

// Create validates and persists an online booking. The order is fixed:
// field validation, date validation, rate limit, then the atomic
// availability check inside the store.
func (s *Service) Create(ctx context.Context, req *domain.CreateBookingRequest) (*models.Booking, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	if models.IsPastDate(req.EventDate, s.now()) {
		return nil, domain.ErrPastDate
	}
	if req.EventDate.After(s.now().AddDate(0, 0, s.maxBookingDays)) {
		return nil, domain.NewValidationError("event_date")
	}

	// Одна попытка на телефон за окно, независимо от исхода
	allowed, err := s.limiter.Allow(ctx, req.Phone, s.rateLimitWindow)
	if err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	if !allowed {
		return nil, domain.ErrRateLimited
	}

	costume, err := s.store.GetCostume(ctx, req.CostumeID)
	if err != nil {
		return nil, err
	}
	if !costume.HasSize(req.Size) {
		return nil, domain.NewValidationError("size")
	}

	booking := &models.Booking{
		UserTgID:     req.UserTgID,
		ClientName:   req.ClientName,
		Phone:        req.Phone,
		CostumeID:    costume.ID,
		CostumeTitle: costume.Title,
		Size:         req.Size,
		ChildName:    req.ChildName,
		ChildAge:     req.ChildAge,
		ChildHeight:  req.ChildHeight,
		Status:       models.StatusNew,
		Channel:      models.ChannelOnline,
	}
	booking.SetEventDate(req.EventDate)

	if err := s.store.CreateBookingLocked(ctx, booking); err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("booking_id", booking.ID).
		Int64("costume_id", booking.CostumeID).
		Str("size", booking.Size).
		Str("event_date", booking.EventDate.Format("2006-01-02")).
		Msg("Booking created")

	s.publishEvent(events.EventBookingCreated, booking, 0)
	s.enqueueAppend(ctx, booking)

	return booking, nil
}

// Cancel lets the requester cancel their own booking. Terminal bookings
// stay terminal.
func (s *Service) Cancel(ctx context.Context, bookingID, requesterTgID int64) (*models.Booking, error) {
	booking, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if booking.UserTgID != requesterTgID {
		return nil, domain.ErrForbidden
	}
	if models.IsTerminalStatus(booking.Status) {
		return nil, domain.ErrAlreadyFinal
	}

	if err := s.store.UpdateBookingStatus(ctx, bookingID, models.StatusCancelled); err != nil {
		return nil, err
	}
	booking.Status = models.StatusCancelled

	s.publishEvent(events.EventBookingStatusChanged, booking, requesterTgID)
	s.enqueueStatus(ctx, booking.ID, booking.Status)

	return booking, nil
}

// AdminChangeStatus applies an admin-driven status transition and records
// it in the audit log.
func (s *Service) AdminChangeStatus(ctx context.Context, admin domain.Admin, bookingID int64, newStatus string) (*models.Booking, error) {
	if !models.IsKnownStatus(newStatus) {
		return nil, domain.NewValidationError("status")
	}

	booking, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if models.IsTerminalStatus(booking.Status) {
		return nil, domain.ErrAlreadyFinal
	}
	if !models.CanTransition(booking.Status, newStatus) {
		return nil, domain.NewValidationError("status")
	}

	if err := s.store.UpdateBookingStatus(ctx, bookingID, newStatus); err != nil {
		return nil, err
	}
	oldStatus := booking.Status
	booking.Status = newStatus

	s.appendAdminLog(ctx, admin, models.ActionBookingStatusChange, map[string]interface{}{
		"booking_id": bookingID,
		"from":       oldStatus,
		"to":         newStatus,
	})

	s.publishEvent(events.EventBookingStatusChanged, booking, admin.TgID)
	s.enqueueStatus(ctx, booking.ID, booking.Status)

	return booking, nil
}

// CreateOffline records a walk-in rental for today. The costume is looked
// up by title, the booking is born confirmed and occupies today's window
// like any other active booking.
func (s *Service) CreateOffline(ctx context.Context, admin domain.Admin, req *domain.OfflineRentalRequest) (*models.Booking, error) {
	var missing []string
	if req.CostumeTitle == "" {
		missing = append(missing, "costume_title")
	}
	if req.Size == "" {
		missing = append(missing, "size")
	}
	if req.ClientName == "" {
		missing = append(missing, "client_name")
	}
	if req.Phone != "" && !models.ValidPhone(req.Phone) {
		missing = append(missing, "phone")
	}
	if len(missing) > 0 {
		return nil, domain.NewValidationError(missing...)
	}

	costume, err := s.store.GetCostumeByTitle(ctx, req.CostumeTitle)
	if err != nil {
		return nil, err
	}
	if !costume.HasSize(req.Size) {
		return nil, domain.NewValidationError("size")
	}

	booking := &models.Booking{
		ClientName:   req.ClientName,
		Phone:        req.Phone,
		CostumeID:    costume.ID,
		CostumeTitle: costume.Title,
		Size:         req.Size,
		Status:       models.StatusConfirmed,
		Channel:      models.ChannelOffline,
	}
	booking.SetEventDate(s.now())

	if err := s.store.CreateBookingLocked(ctx, booking); err != nil {
		return nil, err
	}

	s.appendAdminLog(ctx, admin, models.ActionOfflineRental, map[string]interface{}{
		"booking_id": booking.ID,
		"costume_id": costume.ID,
		"size":       req.Size,
	})

	s.publishEvent(events.EventOfflineRental, booking, admin.TgID)
	s.enqueueAppend(ctx, booking)

	return booking, nil
}

func (s *Service) UserBookings(ctx context.Context, userTgID int64) ([]*models.Booking, error) {
	return s.store.GetUserBookings(ctx, userTgID)
}

func (s *Service) Bookings(ctx context.Context, status string) ([]*models.Booking, error) {
	if status != "" && !models.IsKnownStatus(status) {
		return nil, domain.NewValidationError("status")
	}
	return s.store.GetBookings(ctx, status)
}

func (s *Service) BookingsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error) {
	return s.store.GetBookingsByDateRange(ctx, start, end)
}

func validateCreate(req *domain.CreateBookingRequest) error {
	var missing []string
	if req.UserTgID == 0 {
		missing = append(missing, "user_tg_id")
	}
	if req.ClientName == "" {
		missing = append(missing, "client_name")
	}
	if !models.ValidPhone(req.Phone) {
		missing = append(missing, "phone")
	}
	if req.CostumeID <= 0 {
		missing = append(missing, "costume_id")
	}
	if req.Size == "" {
		missing = append(missing, "size")
	}
	if req.EventDate.IsZero() {
		missing = append(missing, "event_date")
	}
	if req.ChildAge < 0 {
		missing = append(missing, "child_age")
	}
	if req.ChildHeight < 0 {
		missing = append(missing, "child_height")
	}
	if len(missing) > 0 {
		return domain.NewValidationError(missing...)
	}
	return nil
}

func (s *Service) publishEvent(eventType string, booking *models.Booking, changedByID int64) {
	if s.eventBus == nil {
		return
	}

	payload := events.NewBookingPayload(booking)
	payload.ChangedByID = changedByID

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", booking.ID).Msg("publish event error")
	}
}

func (s *Service) enqueueAppend(ctx context.Context, booking *models.Booking) {
	if s.sheetsWorker == nil {
		return
	}
	if err := s.sheetsWorker.EnqueueAppend(ctx, booking); err != nil {
		s.logger.Error().Err(err).Int64("booking_id", booking.ID).Msg("sheets enqueue error")
	}
}

func (s *Service) enqueueStatus(ctx context.Context, bookingID int64, status string) {
	if s.sheetsWorker == nil {
		return
	}
	if err := s.sheetsWorker.EnqueueStatus(ctx, bookingID, status); err != nil {
		s.logger.Error().Err(err).Int64("booking_id", bookingID).Msg("sheets enqueue error")
	}
}

func (s *Service) appendAdminLog(ctx context.Context, admin domain.Admin, action string, details map[string]interface{}) {
	raw, err := json.Marshal(details)
	if err != nil {
		s.logger.Error().Err(err).Str("action", action).Msg("marshal admin log details")
		return
	}
	entry := &models.AdminLogEntry{
		AdminTgID: admin.TgID,
		Action:    action,
		Details:   string(raw),
	}
	if err := s.store.AppendAdminLog(ctx, entry); err != nil {
		s.logger.Error().Err(err).Str("action", action).Msg("append admin log")
	}
}
