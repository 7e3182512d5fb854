package store

import (
	"context"
	"fmt"
	"time"

	"costumier/internal/models"
)

func (s *Store) AppendAdminLog(ctx context.Context, entry *models.AdminLogEntry) error {
	if entry.Details == "" {
		entry.Details = "{}"
	}
	now := time.Now()
	result, err := s.ExecContext(ctx,
		`INSERT INTO admin_log (admin_tg_id, action, details, created_at) VALUES (?, ?, ?, ?)`,
		entry.AdminTgID, entry.Action, entry.Details, now,
	)
	if err != nil {
		return fmt.Errorf("append admin log: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	entry.ID = id
	entry.CreatedAt = now
	return nil
}

func (s *Store) GetAdminLog(ctx context.Context, limit int) ([]*models.AdminLogEntry, error) {
	if limit <= 0 {
		limit = models.AdminLogPageSize
	}
	rows, err := s.QueryContext(ctx,
		`SELECT id, admin_tg_id, action, details, created_at FROM admin_log ORDER BY created_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query admin log: %w", err)
	}
	defer rows.Close()

	var entries []*models.AdminLogEntry
	for rows.Next() {
		var e models.AdminLogEntry
		if err := rows.Scan(&e.ID, &e.AdminTgID, &e.Action, &e.Details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan admin log entry: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
