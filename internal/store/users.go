package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"costumier/internal/domain"
	"costumier/internal/models"
)

func (s *Store) UpsertUser(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (tg_id, username, first_name, last_name, is_admin, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?)
              ON CONFLICT(tg_id) DO UPDATE SET
                  username = excluded.username,
                  first_name = excluded.first_name,
                  last_name = excluded.last_name,
                  is_admin = excluded.is_admin,
                  updated_at = excluded.updated_at`

	now := time.Now()
	_, err := s.ExecContext(ctx, query,
		user.TgID,
		user.Username,
		user.FirstName,
		user.LastName,
		user.IsAdmin,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (s *Store) GetUserByTgID(ctx context.Context, tgID int64) (*models.User, error) {
	query := `SELECT id, tg_id, username, first_name, last_name, is_admin, created_at, updated_at
              FROM users WHERE tg_id = ?`

	var user models.User
	err := s.QueryRowContext(ctx, query, tgID).Scan(
		&user.ID,
		&user.TgID,
		&user.Username,
		&user.FirstName,
		&user.LastName,
		&user.IsAdmin,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by tg id: %w", err)
	}
	return &user, nil
}
