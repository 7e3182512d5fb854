package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"costumier/internal/config"
	"costumier/internal/domain"

	"github.com/rs/zerolog"
)

// Server exposes the public booking API and the admin surface.
type Server struct {
	catalog      domain.CatalogService
	bookings     domain.BookingService
	availability domain.AvailabilityEngine
	users        domain.UserService
	store        domain.Store
	adminToken   string
	uploadsPath  string
	logger       *zerolog.Logger
	server       *http.Server
}

func NewServer(cfg config.HTTPConfig, uploadsPath string, catalog domain.CatalogService, bookings domain.BookingService, availability domain.AvailabilityEngine, users domain.UserService, store domain.Store, logger *zerolog.Logger) *Server {
	s := &Server{
		catalog:      catalog,
		bookings:     bookings,
		availability: availability,
		users:        users,
		store:        store,
		adminToken:   cfg.AdminToken,
		uploadsPath:  uploadsPath,
		logger:       logger,
	}

	limiter := newClientLimiter(cfg.RateLimit)
	handler := loggingMiddleware(logger, limiter.Wrap(s.routes()))

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return s
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("GET /api/v1/items", s.handleItems)
	mux.HandleFunc("GET /api/v1/items/{id}/blocked-dates", s.handleBlockedDates)
	mux.HandleFunc("POST /api/v1/bookings", s.handleCreateBooking)
	mux.HandleFunc("GET /api/v1/bookings/mine", s.handleMyBookings)
	mux.HandleFunc("PUT /api/v1/bookings/{id}/cancel", s.handleCancelBooking)

	mux.HandleFunc("GET /api/v1/admin/costumes", s.requireAdmin(s.handleAdminListCostumes))
	mux.HandleFunc("POST /api/v1/admin/costumes", s.requireAdmin(s.handleAdminCreateCostume))
	mux.HandleFunc("PUT /api/v1/admin/costumes/{id}", s.requireAdmin(s.handleAdminUpdateCostume))
	mux.HandleFunc("DELETE /api/v1/admin/costumes/{id}", s.requireAdmin(s.handleAdminDeleteCostume))
	mux.HandleFunc("GET /api/v1/admin/stock", s.requireAdmin(s.handleAdminStock))
	mux.HandleFunc("POST /api/v1/admin/stock/adjust", s.requireAdmin(s.handleAdminAdjustStock))
	mux.HandleFunc("GET /api/v1/admin/bookings", s.requireAdmin(s.handleAdminBookings))
	mux.HandleFunc("PUT /api/v1/admin/bookings/{id}/status", s.requireAdmin(s.handleAdminBookingStatus))
	mux.HandleFunc("GET /api/v1/admin/logs", s.requireAdmin(s.handleAdminLogs))
	mux.HandleFunc("POST /api/v1/admin/upload", s.requireAdmin(s.handleAdminUpload))
	mux.HandleFunc("GET /api/v1/admin/export", s.requireAdmin(s.handleAdminExport))

	// Отдаем загруженные фото как статику
	mux.Handle("GET /uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.uploadsPath))))

	return mux
}

func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler returns the root handler; used by tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
