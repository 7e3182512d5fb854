package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"costumier/internal/domain"
	"costumier/internal/metrics"
)

type createBookingRequest struct {
	UserTgID    int64  `json:"user_tg_id"`
	ClientName  string `json:"client_name"`
	Phone       string `json:"phone"`
	CostumeID   int64  `json:"costume_id"`
	Size        string `json:"size"`
	EventDate   string `json:"event_date"`
	ChildName   string `json:"child_name,omitempty"`
	ChildAge    int64  `json:"child_age,omitempty"`
	ChildHeight int64  `json:"child_height,omitempty"`
}

func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	costumes, err := s.catalog.AvailableCostumes(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("list costumes")
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": costumes})
}

func (s *Server) handleBlockedDates(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid costume id")
		return
	}
	size := r.URL.Query().Get("size")
	if size == "" {
		writeError(w, http.StatusBadRequest, codeValidation, "size is required")
		return
	}

	seq, err := s.availability.BlockedDates(r.Context(), id, size)
	if err != nil {
		s.logger.Error().Err(err).Int64("costume_id", id).Msg("blocked dates")
		writeDomainError(w, err)
		return
	}

	type blockedDate struct {
		Date string `json:"date"`
		Size string `json:"size"`
	}
	dates := make([]blockedDate, 0)
	for bd := range seq {
		dates = append(dates, blockedDate{Date: bd.Date.Format("2006-01-02"), Size: bd.Size})
	}
	writeJSON(w, http.StatusOK, map[string]any{"blocked_dates": dates})
}

func (s *Server) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var body createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid JSON body")
		return
	}

	var eventDate time.Time
	if body.EventDate != "" {
		var err error
		eventDate, err = time.ParseInLocation("2006-01-02", body.EventDate, time.Local)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeValidation, "invalid event_date; expected YYYY-MM-DD")
			return
		}
	}

	start := time.Now()
	booking, err := s.bookings.Create(r.Context(), &domain.CreateBookingRequest{
		UserTgID:    body.UserTgID,
		ClientName:  body.ClientName,
		Phone:       body.Phone,
		CostumeID:   body.CostumeID,
		Size:        body.Size,
		EventDate:   eventDate,
		ChildName:   body.ChildName,
		ChildAge:    body.ChildAge,
		ChildHeight: body.ChildHeight,
	})
	if err != nil {
		var conflict *domain.ConflictError
		if errors.As(err, &conflict) {
			metrics.IncBookingConflict()
		}
		if !domain.IsValidation(err) && !domain.IsConflict(err) {
			s.logger.Error().Err(err).Msg("create booking")
		}
		writeDomainError(w, err)
		return
	}

	metrics.IncBookingCreated(booking.Channel)
	metrics.ObserveBookingCreate(time.Since(start).Seconds())
	writeJSON(w, http.StatusOK, booking)
}

func (s *Server) handleMyBookings(w http.ResponseWriter, r *http.Request) {
	tgID := requesterID(r)
	if tgID == 0 {
		writeError(w, http.StatusUnauthorized, codeForbidden, "x-tg-id header is required")
		return
	}

	bookings, err := s.bookings.UserBookings(r.Context(), tgID)
	if err != nil {
		s.logger.Error().Err(err).Int64("tg_id", tgID).Msg("list user bookings")
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func (s *Server) handleCancelBooking(w http.ResponseWriter, r *http.Request) {
	tgID := requesterID(r)
	if tgID == 0 {
		writeError(w, http.StatusUnauthorized, codeForbidden, "x-tg-id header is required")
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid booking id")
		return
	}

	booking, err := s.bookings.Cancel(r.Context(), id, tgID)
	if err != nil {
		if errors.Is(err, domain.ErrForbidden) || domain.IsNotFound(err) || domain.IsConflict(err) {
			writeDomainError(w, err)
			return
		}
		s.logger.Error().Err(err).Int64("booking_id", id).Msg("cancel booking")
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

// parseDateQuery reads an optional YYYY-MM-DD query parameter.
func parseDateQuery(r *http.Request, name string, fallback time.Time) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	return time.ParseInLocation("2006-01-02", raw, time.Local)
}
