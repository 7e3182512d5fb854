package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"costumier/internal/config"
	"costumier/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Client mirrors bookings into a Google spreadsheet. The sheet is a
// best-effort copy for the shop owner; the database stays authoritative.
type Client struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
	rowCache      map[int64]int
	cacheMu       sync.RWMutex
}

func NewClient(ctx context.Context, cfg config.GoogleConfig) (*Client, error) {
	// Сервисный аккаунт, JWT из файла учетных данных
	credentialsJSON, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %v", err)
	}

	jwtConfig, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %v", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(jwtConfig.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %v", err)
	}

	return &Client{
		service:       srv,
		spreadsheetID: cfg.BookingsSpreadsheetID,
		sheetName:     cfg.BookingsSheetName,
		rowCache:      make(map[int64]int),
	}, nil
}

// TestConnection reads the header cell to verify access.
func (c *Client) TestConnection(ctx context.Context) error {
	_, err := c.service.Spreadsheets.Values.Get(c.spreadsheetID, c.sheetName+"!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %v", err)
	}
	return nil
}

// ServiceAccountEmail returns the email the spreadsheet must be shared with.
func ServiceAccountEmail(credentialsFile string) (string, error) {
	file, err := os.ReadFile(credentialsFile)
	if err != nil {
		return "", err
	}

	var creds struct {
		ClientEmail string `json:"client_email"`
	}
	if err := json.Unmarshal(file, &creds); err != nil {
		return "", err
	}
	return creds.ClientEmail, nil
}

// AppendBooking appends a booking row and returns a direct link to it.
func (c *Client) AppendBooking(ctx context.Context, booking *models.Booking) (string, error) {
	row := []interface{}{
		booking.ID,
		booking.ClientName,
		booking.Phone,
		booking.CostumeTitle,
		booking.Size,
		booking.EventDate.Format("2006-01-02"),
		booking.PickupAt.Format("2006-01-02 15:04"),
		booking.ReturnAt.Format("2006-01-02 15:04"),
		booking.Status,
		booking.Channel,
		booking.ChildName,
		booking.CreatedAt.Format("2006-01-02 15:04:05"),
	}

	resp, err := c.service.Spreadsheets.Values.Append(c.spreadsheetID, c.sheetName+"!A:A", &sheets.ValueRange{
		Values: [][]interface{}{row},
	}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return "", err
	}

	rowIdx := parseAppendedRow(resp)
	if rowIdx > 0 {
		c.cacheMu.Lock()
		c.rowCache[booking.ID] = rowIdx
		c.cacheMu.Unlock()
		return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/edit#range=A%d", c.spreadsheetID, rowIdx), nil
	}
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/edit", c.spreadsheetID), nil
}

// UpdateBookingStatus rewrites the status cell of the booking's row.
func (c *Client) UpdateBookingStatus(ctx context.Context, bookingID int64, status string) error {
	rowIdx, err := c.findBookingRow(ctx, bookingID)
	if err != nil {
		return err
	}

	rangeData := fmt.Sprintf("%s!I%d", c.sheetName, rowIdx)
	_, err = c.service.Spreadsheets.Values.Update(c.spreadsheetID, rangeData, &sheets.ValueRange{
		Values: [][]interface{}{{status}},
	}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}

// RefreshRowCache re-reads the ID column. Called on a timer from main.
func (c *Client) RefreshRowCache(ctx context.Context) error {
	resp, err := c.service.Spreadsheets.Values.Get(c.spreadsheetID, c.sheetName+"!A:A").Context(ctx).Do()
	if err != nil {
		return err
	}

	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	c.rowCache = make(map[int64]int)

	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if id := cellID(row[0]); id > 0 {
			c.rowCache[id] = i + 1
		}
	}
	return nil
}

func (c *Client) findBookingRow(ctx context.Context, bookingID int64) (int, error) {
	c.cacheMu.RLock()
	rowIdx, ok := c.rowCache[bookingID]
	c.cacheMu.RUnlock()
	if ok {
		return rowIdx, nil
	}

	if err := c.RefreshRowCache(ctx); err != nil {
		return 0, err
	}

	c.cacheMu.RLock()
	rowIdx, ok = c.rowCache[bookingID]
	c.cacheMu.RUnlock()
	if !ok {
		return 0, fmt.Errorf("booking %d not found in sheet", bookingID)
	}
	return rowIdx, nil
}

// parseAppendedRow extracts the row number from an append response range
// like "Bookings!A5:L5".
func parseAppendedRow(resp *sheets.AppendValuesResponse) int {
	if resp == nil || resp.Updates == nil {
		return 0
	}
	updated := resp.Updates.UpdatedRange
	idx := strings.Index(updated, "!A")
	if idx < 0 {
		return 0
	}
	rest := updated[idx+2:]
	if colon := strings.Index(rest, ":"); colon >= 0 {
		rest = rest[:colon]
	}
	row, err := strconv.Atoi(rest)
	if err != nil {
		return 0
	}
	return row
}

func cellID(cell interface{}) int64 {
	switch v := cell.(type) {
	case float64:
		return int64(v)
	case string:
		id, _ := strconv.ParseInt(v, 10, 64)
		return id
	}
	return 0
}
