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

const costumeColumns = `id, title, price, sizes, stock_by_size, photos, available,
       height_range, notes, description, created_at, updated_at`

func (s *Store) CreateCostume(ctx context.Context, costume *models.Costume) error {
	sizes, stock, photos, err := encodeCostumeFields(costume)
	if err != nil {
		return err
	}

	query := `INSERT INTO costumes (title, price, sizes, stock_by_size, photos, available,
                  height_range, notes, description, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := s.ExecContext(ctx, query,
		costume.Title,
		costume.Price,
		sizes,
		stock,
		photos,
		costume.Available,
		costume.HeightRange,
		costume.Notes,
		costume.Description,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("create costume: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	costume.ID = id
	costume.CreatedAt = now
	costume.UpdatedAt = now

	return nil
}

func (s *Store) GetCostume(ctx context.Context, id int64) (*models.Costume, error) {
	query := `SELECT ` + costumeColumns + ` FROM costumes WHERE id = ?`
	return s.scanCostumeRow(s.QueryRowContext(ctx, query, id))
}

// GetCostumeByTitle matches the title case-insensitively and exactly, for
// walk-in rentals issued by title.
func (s *Store) GetCostumeByTitle(ctx context.Context, title string) (*models.Costume, error) {
	query := `SELECT ` + costumeColumns + ` FROM costumes WHERE title = ? COLLATE NOCASE`
	return s.scanCostumeRow(s.QueryRowContext(ctx, query, title))
}

func (s *Store) GetAvailableCostumes(ctx context.Context) ([]*models.Costume, error) {
	return s.queryCostumes(ctx, `SELECT `+costumeColumns+` FROM costumes WHERE available = 1 ORDER BY title`)
}

func (s *Store) GetAllCostumes(ctx context.Context) ([]*models.Costume, error) {
	return s.queryCostumes(ctx, `SELECT `+costumeColumns+` FROM costumes ORDER BY title`)
}

func (s *Store) UpdateCostume(ctx context.Context, costume *models.Costume) error {
	sizes, stock, photos, err := encodeCostumeFields(costume)
	if err != nil {
		return err
	}

	query := `UPDATE costumes SET title = ?, price = ?, sizes = ?, stock_by_size = ?, photos = ?,
                  available = ?, height_range = ?, notes = ?, description = ?, updated_at = ?
              WHERE id = ?`
	now := time.Now()
	result, err := s.ExecContext(ctx, query,
		costume.Title,
		costume.Price,
		sizes,
		stock,
		photos,
		costume.Available,
		costume.HeightRange,
		costume.Notes,
		costume.Description,
		now,
		costume.ID,
	)
	if err != nil {
		return fmt.Errorf("update costume: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return domain.ErrCostumeNotFound
	}
	costume.UpdatedAt = now
	return nil
}

func (s *Store) DeleteCostume(ctx context.Context, id int64) error {
	result, err := s.ExecContext(ctx, `DELETE FROM costumes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete costume: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return domain.ErrCostumeNotFound
	}
	return nil
}

// SetStock overwrites one size's physical unit count.
func (s *Store) SetStock(ctx context.Context, costumeID int64, size string, count int64) error {
	costume, err := s.GetCostume(ctx, costumeID)
	if err != nil {
		return err
	}
	if costume.StockBySize == nil {
		costume.StockBySize = make(map[string]int64)
	}
	costume.StockBySize[size] = count
	return s.UpdateCostume(ctx, costume)
}

// SyncCatalog inserts seed costumes missing from the database. Rows that
// already exist keep their admin edits.
func (s *Store) SyncCatalog(ctx context.Context, seed []models.Costume) error {
	for i := range seed {
		costume := seed[i]
		_, err := s.GetCostumeByTitle(ctx, costume.Title)
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrCostumeNotFound) {
			return err
		}
		if err := s.CreateCostume(ctx, &costume); err != nil {
			return fmt.Errorf("seed costume %q: %w", costume.Title, err)
		}
	}
	return nil
}

func (s *Store) queryCostumes(ctx context.Context, query string) ([]*models.Costume, error) {
	rows, err := s.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query costumes: %w", err)
	}
	defer rows.Close()

	var costumes []*models.Costume
	for rows.Next() {
		costume, err := scanCostume(rows)
		if err != nil {
			return nil, err
		}
		costumes = append(costumes, costume)
	}
	return costumes, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanCostumeRow(row *sql.Row) (*models.Costume, error) {
	costume, err := scanCostume(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCostumeNotFound
	}
	return costume, err
}

func scanCostume(row rowScanner) (*models.Costume, error) {
	var c models.Costume
	var sizes, stock, photos string
	err := row.Scan(
		&c.ID, &c.Title, &c.Price, &sizes, &stock, &photos, &c.Available,
		&c.HeightRange, &c.Notes, &c.Description, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan costume: %w", err)
	}

	if err := json.Unmarshal([]byte(sizes), &c.Sizes); err != nil {
		return nil, fmt.Errorf("decode sizes: %w", err)
	}
	if err := json.Unmarshal([]byte(stock), &c.StockBySize); err != nil {
		return nil, fmt.Errorf("decode stock_by_size: %w", err)
	}
	if err := json.Unmarshal([]byte(photos), &c.Photos); err != nil {
		return nil, fmt.Errorf("decode photos: %w", err)
	}
	return &c, nil
}

func encodeCostumeFields(costume *models.Costume) (sizes, stock, photos string, err error) {
	if costume.Sizes == nil {
		costume.Sizes = []string{}
	}
	if costume.StockBySize == nil {
		costume.StockBySize = map[string]int64{}
	}
	if costume.Photos == nil {
		costume.Photos = []string{}
	}

	rawSizes, err := json.Marshal(costume.Sizes)
	if err != nil {
		return "", "", "", fmt.Errorf("encode sizes: %w", err)
	}
	rawStock, err := json.Marshal(costume.StockBySize)
	if err != nil {
		return "", "", "", fmt.Errorf("encode stock_by_size: %w", err)
	}
	rawPhotos, err := json.Marshal(costume.Photos)
	if err != nil {
		return "", "", "", fmt.Errorf("encode photos: %w", err)
	}
	return string(rawSizes), string(rawStock), string(rawPhotos), nil
}
