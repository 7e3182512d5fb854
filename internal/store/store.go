package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	_ "github.com/mattn/go-sqlite3"
)

// Store wraps the SQLite database behind domain.Store.
type Store struct {
	*sql.DB
	logger *zerolog.Logger
}

// New opens (or creates) the database at path and applies the schema.
// Use ":memory:" for tests.
func New(path string, logger *zerolog.Logger) (*Store, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// SQLite serializes writers; a single connection avoids SQLITE_BUSY on
	// the count-then-insert transaction.
	db.SetMaxOpenConns(1)

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return &Store{DB: db, logger: logger}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS costumes (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            title TEXT NOT NULL,
            price INTEGER NOT NULL DEFAULT 0,
            sizes TEXT NOT NULL DEFAULT '[]',
            stock_by_size TEXT NOT NULL DEFAULT '{}',
            photos TEXT NOT NULL DEFAULT '[]',
            available BOOLEAN NOT NULL DEFAULT 1,
            height_range TEXT NOT NULL DEFAULT '',
            notes TEXT NOT NULL DEFAULT '',
            description TEXT NOT NULL DEFAULT '',
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        )`,

		`CREATE TABLE IF NOT EXISTS bookings (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            user_tg_id INTEGER NOT NULL,
            client_name TEXT NOT NULL,
            phone TEXT NOT NULL,
            costume_id INTEGER NOT NULL,
            costume_title TEXT NOT NULL,
            size TEXT NOT NULL,
            child_name TEXT NOT NULL DEFAULT '',
            child_age INTEGER NOT NULL DEFAULT 0,
            child_height INTEGER NOT NULL DEFAULT 0,
            status TEXT NOT NULL DEFAULT 'new',
            channel TEXT NOT NULL DEFAULT 'online',
            event_date TEXT NOT NULL,
            pickup_at INTEGER NOT NULL,
            return_at INTEGER NOT NULL,
            sheet_row_link TEXT NOT NULL DEFAULT '',
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        )`,

		`CREATE TABLE IF NOT EXISTS admin_log (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            admin_tg_id INTEGER NOT NULL,
            action TEXT NOT NULL,
            details TEXT NOT NULL DEFAULT '{}',
            created_at DATETIME NOT NULL
        )`,

		`CREATE TABLE IF NOT EXISTS users (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            tg_id INTEGER UNIQUE NOT NULL,
            username TEXT NOT NULL DEFAULT '',
            first_name TEXT NOT NULL DEFAULT '',
            last_name TEXT NOT NULL DEFAULT '',
            is_admin BOOLEAN NOT NULL DEFAULT 0,
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL
        )`,

		`CREATE TABLE IF NOT EXISTS sync_queue (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            task_type TEXT NOT NULL,
            booking_id INTEGER NOT NULL,
            payload TEXT NOT NULL DEFAULT '{}',
            status TEXT NOT NULL DEFAULT 'pending',
            retry_count INTEGER NOT NULL DEFAULT 0,
            last_error TEXT NOT NULL DEFAULT '',
            created_at DATETIME NOT NULL,
            processed_at DATETIME,
            next_retry_at DATETIME
        )`,

		`CREATE INDEX IF NOT EXISTS idx_bookings_costume_size_status ON bookings(costume_id, size, status)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_window ON bookings(pickup_at, return_at)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_user ON bookings(user_tg_id)`,
		`CREATE INDEX IF NOT EXISTS idx_costumes_title ON costumes(title COLLATE NOCASE)`,
		`CREATE INDEX IF NOT EXISTS idx_users_tg_id ON users(tg_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_queue_status ON sync_queue(status)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("execute %q: %w", query, err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}
