package models

import "time"

// AdminLogEntry is one append-only audit record. Details carries the full
// JSON payload of whatever was changed; entries are never mutated.
type AdminLogEntry struct {
	ID        int64     `json:"id"`
	AdminTgID int64     `json:"admin_tg_id"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	ActionCreateCostume       = "create_costume"
	ActionUpdateCostume       = "update_costume"
	ActionDeleteCostume       = "delete_costume"
	ActionAdjustStock         = "adjust_stock"
	ActionBookingStatusChange = "booking_status_change"
	ActionOfflineRental       = "offline_rental"
	ActionUploadPhotos        = "upload_photos"
)
