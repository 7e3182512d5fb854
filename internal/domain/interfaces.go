package domain

import (
	"context"
	"iter"
	"time"

	"costumier/internal/models"
)

// Admin is a resolved administrative identity. Handlers authenticate the
// request, build an Admin, and pass it down explicitly; services never read
// ambient request state.
type Admin struct {
	TgID int64
}

// Store is the persistence boundary over costumes, bookings, audit log,
// users and the sheets sync queue.
type Store interface {
	CreateCostume(ctx context.Context, costume *models.Costume) error
	GetCostume(ctx context.Context, id int64) (*models.Costume, error)
	GetCostumeByTitle(ctx context.Context, title string) (*models.Costume, error)
	GetAvailableCostumes(ctx context.Context) ([]*models.Costume, error)
	GetAllCostumes(ctx context.Context) ([]*models.Costume, error)
	UpdateCostume(ctx context.Context, costume *models.Costume) error
	DeleteCostume(ctx context.Context, id int64) error
	SetStock(ctx context.Context, costumeID int64, size string, count int64) error

	CreateBookingLocked(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	GetBookings(ctx context.Context, status string) ([]*models.Booking, error)
	GetUserBookings(ctx context.Context, userTgID int64) ([]*models.Booking, error)
	GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error)
	GetActiveBookings(ctx context.Context, costumeID int64, size string) ([]*models.Booking, error)
	CountOverlapping(ctx context.Context, costumeID int64, size string, w models.Window) (int64, error)
	UpdateBookingStatus(ctx context.Context, id int64, status string) error
	UpdateBookingSheetLink(ctx context.Context, id int64, link string) error

	AppendAdminLog(ctx context.Context, entry *models.AdminLogEntry) error
	GetAdminLog(ctx context.Context, limit int) ([]*models.AdminLogEntry, error)

	UpsertUser(ctx context.Context, user *models.User) error
	GetUserByTgID(ctx context.Context, tgID int64) (*models.User, error)

	CreateSyncTask(ctx context.Context, task *models.SyncTask) error
	GetPendingSyncTasks(ctx context.Context, limit int) ([]models.SyncTask, error)
	ClaimSyncTask(ctx context.Context, id int64) (bool, error)
	ResetStaleSyncTasks(ctx context.Context) error
	UpdateSyncTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error
}

// AvailabilityEngine answers availability questions without mutating state.
type AvailabilityEngine interface {
	IsAvailable(ctx context.Context, costumeID int64, size string, eventDate time.Time) (bool, error)
	BlockedDates(ctx context.Context, costumeID int64, size string) (iter.Seq[models.BlockedDate], error)
}

// BookingLimiter throttles booking creation per requester key.
type BookingLimiter interface {
	Allow(ctx context.Context, key string, window time.Duration) (bool, error)
}

// BookingService orchestrates the booking lifecycle.
type BookingService interface {
	Create(ctx context.Context, req *CreateBookingRequest) (*models.Booking, error)
	Cancel(ctx context.Context, bookingID, requesterTgID int64) (*models.Booking, error)
	AdminChangeStatus(ctx context.Context, admin Admin, bookingID int64, newStatus string) (*models.Booking, error)
	CreateOffline(ctx context.Context, admin Admin, req *OfflineRentalRequest) (*models.Booking, error)
	UserBookings(ctx context.Context, userTgID int64) ([]*models.Booking, error)
	Bookings(ctx context.Context, status string) ([]*models.Booking, error)
	BookingsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error)
}

// CreateBookingRequest carries everything an online booking needs.
type CreateBookingRequest struct {
	UserTgID    int64
	ClientName  string
	Phone       string
	CostumeID   int64
	Size        string
	EventDate   time.Time
	ChildName   string
	ChildAge    int64
	ChildHeight int64
}

// OfflineRentalRequest is an admin-issued walk-in rental for today.
type OfflineRentalRequest struct {
	CostumeTitle string
	Size         string
	ClientName   string
	Phone        string
}

// CatalogService manages costumes and stock.
type CatalogService interface {
	AvailableCostumes(ctx context.Context) ([]*models.Costume, error)
	AllCostumes(ctx context.Context) ([]*models.Costume, error)
	GetCostume(ctx context.Context, id int64) (*models.Costume, error)
	CreateCostume(ctx context.Context, admin Admin, costume *models.Costume) error
	UpdateCostume(ctx context.Context, admin Admin, costume *models.Costume) error
	DeleteCostume(ctx context.Context, admin Admin, id int64) error
	AdjustStock(ctx context.Context, admin Admin, costumeID int64, size string, delta int64) (int64, error)
}

// UserService manages Telegram identities.
type UserService interface {
	SaveUser(ctx context.Context, user *models.User) error
	GetUserByTgID(ctx context.Context, tgID int64) (*models.User, error)
	IsAdmin(ctx context.Context, tgID int64) bool
}

// EventPublisher fans booking events out to in-process subscribers.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// SheetsMirror applies booking rows to the external spreadsheet.
type SheetsMirror interface {
	AppendBooking(ctx context.Context, booking *models.Booking) (string, error)
	UpdateBookingStatus(ctx context.Context, bookingID int64, status string) error
}

// SyncWorker accepts mirror tasks for asynchronous processing.
type SyncWorker interface {
	EnqueueAppend(ctx context.Context, booking *models.Booking) error
	EnqueueStatus(ctx context.Context, bookingID int64, status string) error
}
