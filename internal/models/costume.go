package models

import "time"

// Costume is a rentable catalog item. StockBySize holds the number of
// physical units per size label; it stays fixed under booking create and
// cancel (bookings consume occupancy, not stock) and changes only through
// explicit admin stock adjustments.
type Costume struct {
	ID          int64            `json:"id" yaml:"id"`
	Title       string           `json:"title" yaml:"title"`
	Price       int64            `json:"price" yaml:"price"`
	Sizes       []string         `json:"sizes" yaml:"sizes"`
	StockBySize map[string]int64 `json:"stock_by_size" yaml:"stock_by_size"`
	Photos      []string         `json:"photos" yaml:"photos"`
	Available   bool             `json:"available" yaml:"available"`
	HeightRange string           `json:"height_range,omitempty" yaml:"height_range"`
	Notes       string           `json:"notes,omitempty" yaml:"notes"`
	Description string           `json:"description,omitempty" yaml:"description"`
	CreatedAt   time.Time        `json:"created_at" yaml:"-"`
	UpdatedAt   time.Time        `json:"updated_at" yaml:"-"`
}

// HasSize reports whether size is one of the costume's listed size labels.
func (c *Costume) HasSize(size string) bool {
	for _, s := range c.Sizes {
		if s == size {
			return true
		}
	}
	return false
}

// Stock returns the physical unit count for a size, zero when unlisted.
func (c *Costume) Stock(size string) int64 {
	if c.StockBySize == nil {
		return 0
	}
	return c.StockBySize[size]
}
