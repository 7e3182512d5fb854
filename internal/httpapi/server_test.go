package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"costumier/internal/availability"
	"costumier/internal/booking"
	"costumier/internal/catalog"
	"costumier/internal/config"
	"costumier/internal/events"
	"costumier/internal/models"
	"costumier/internal/ratelimit"
	"costumier/internal/store"
	"costumier/internal/users"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminToken = "test-secret"

type testAPI struct {
	server *Server
	store  *store.Store
}

func setupAPI(t *testing.T) *testAPI {
	t.Helper()
	logger := zerolog.New(os.Stdout)
	s, err := store.New(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	bus := events.NewEventBus()
	bookingSvc := booking.NewService(s, ratelimit.NewMemoryLimiter(), bus, nil, 30*time.Second, 365, &logger)
	catalogSvc := catalog.NewService(s, &logger)
	engine := availability.NewEngine(s, &logger)
	userSvc := users.NewService(s, []int64{42}, &logger)

	cfg := config.HTTPConfig{Port: 0, AdminToken: adminToken}
	srv := NewServer(cfg, t.TempDir(), catalogSvc, bookingSvc, engine, userSvc, s, &logger)
	return &testAPI{server: srv, store: s}
}

func (a *testAPI) createCostume(t *testing.T, stock map[string]int64) *models.Costume {
	t.Helper()
	sizes := make([]string, 0, len(stock))
	for size := range stock {
		sizes = append(sizes, size)
	}
	costume := &models.Costume{Title: "Snow Queen Dress", Sizes: sizes, StockBySize: stock, Available: true}
	require.NoError(t, a.store.CreateCostume(context.Background(), costume))
	return costume
}

func (a *testAPI) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	a.server.Handler().ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope errorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Error.Code
}

func bookingBody(costumeID int64, phone, eventDate string) map[string]any {
	return map[string]any{
		"user_tg_id":  100,
		"client_name": "Anna",
		"phone":       phone,
		"costume_id":  costumeID,
		"size":        "M",
		"event_date":  eventDate,
	}
}

func futureDate(days int) string {
	return time.Now().AddDate(0, 0, days).Format("2006-01-02")
}

func TestHealthz(t *testing.T) {
	a := setupAPI(t)
	rec := a.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestItems(t *testing.T) {
	a := setupAPI(t)
	a.createCostume(t, map[string]int64{"M": 1})

	hidden := &models.Costume{Title: "Hidden", Available: false}
	require.NoError(t, a.store.CreateCostume(context.Background(), hidden))

	rec := a.do(t, http.MethodGet, "/api/v1/items", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Items []models.Costume `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "Snow Queen Dress", resp.Items[0].Title)
}

func TestCreateBookingAndConflict(t *testing.T) {
	a := setupAPI(t)
	costume := a.createCostume(t, map[string]int64{"M": 1})
	date := futureDate(7)

	rec := a.do(t, http.MethodPost, "/api/v1/bookings", bookingBody(costume.ID, "+79161234567", date), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var created models.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotZero(t, created.ID)
	assert.Equal(t, models.StatusNew, created.Status)

	// Same size and date from another phone conflicts.
	rec = a.do(t, http.MethodPost, "/api/v1/bookings", bookingBody(costume.ID, "+79160000000", date), nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, codeConflict, errorCode(t, rec))
	assert.Contains(t, rec.Body.String(), "size M taken on "+date)
}

func TestCreateBookingValidation(t *testing.T) {
	a := setupAPI(t)

	rec := a.do(t, http.MethodPost, "/api/v1/bookings", map[string]any{"phone": "bad"}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, codeValidation, errorCode(t, rec))
}

func TestCreateBookingUnknownCostume(t *testing.T) {
	a := setupAPI(t)

	rec := a.do(t, http.MethodPost, "/api/v1/bookings", bookingBody(9999, "+79161234567", futureDate(7)), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, codeNotFound, errorCode(t, rec))
}

func TestCreateBookingRateLimited(t *testing.T) {
	a := setupAPI(t)
	costume := a.createCostume(t, map[string]int64{"M": 5})

	rec := a.do(t, http.MethodPost, "/api/v1/bookings", bookingBody(costume.ID, "+79161234567", futureDate(7)), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/v1/bookings", bookingBody(costume.ID, "+79161234567", futureDate(9)), nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, codeRateLimited, errorCode(t, rec))
}

func TestBlockedDates(t *testing.T) {
	a := setupAPI(t)
	costume := a.createCostume(t, map[string]int64{"M": 1})
	date := futureDate(7)

	rec := a.do(t, http.MethodPost, "/api/v1/bookings", bookingBody(costume.ID, "+79161234567", date), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodGet, fmt.Sprintf("/api/v1/items/%d/blocked-dates?size=M", costume.ID), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		BlockedDates []struct {
			Date string `json:"date"`
			Size string `json:"size"`
		} `json:"blocked_dates"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.BlockedDates, 1)
	assert.Equal(t, date, resp.BlockedDates[0].Date)
	assert.Equal(t, "M", resp.BlockedDates[0].Size)

	// size query is mandatory.
	rec = a.do(t, http.MethodGet, fmt.Sprintf("/api/v1/items/%d/blocked-dates", costume.ID), nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMyBookingsAndCancel(t *testing.T) {
	a := setupAPI(t)
	costume := a.createCostume(t, map[string]int64{"M": 1})

	rec := a.do(t, http.MethodPost, "/api/v1/bookings", bookingBody(costume.ID, "+79161234567", futureDate(7)), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var created models.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	// No header.
	rec = a.do(t, http.MethodGet, "/api/v1/bookings/mine", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/v1/bookings/mine", nil, map[string]string{"x-tg-id": "100"})
	require.Equal(t, http.StatusOK, rec.Code)
	var mine struct {
		Bookings []models.Booking `json:"bookings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &mine))
	require.Len(t, mine.Bookings, 1)

	// Foreign requester cannot cancel.
	rec = a.do(t, http.MethodPut, fmt.Sprintf("/api/v1/bookings/%d/cancel", created.ID), nil, map[string]string{"x-tg-id": "200"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(t, http.MethodPut, fmt.Sprintf("/api/v1/bookings/%d/cancel", created.ID), nil, map[string]string{"x-tg-id": "100"})
	require.Equal(t, http.StatusOK, rec.Code)
	var cancelled models.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cancelled))
	assert.Equal(t, models.StatusCancelled, cancelled.Status)

	// Second cancel is a conflict.
	rec = a.do(t, http.MethodPut, fmt.Sprintf("/api/v1/bookings/%d/cancel", created.ID), nil, map[string]string{"x-tg-id": "100"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, codeConflict, errorCode(t, rec))
}

func TestAdminAuth(t *testing.T) {
	a := setupAPI(t)

	// No credentials.
	rec := a.do(t, http.MethodGet, "/api/v1/admin/costumes", nil, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Wrong token.
	rec = a.do(t, http.MethodGet, "/api/v1/admin/costumes", nil, map[string]string{"x-admin-token": "nope"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Shared secret.
	rec = a.do(t, http.MethodGet, "/api/v1/admin/costumes", nil, map[string]string{"x-admin-token": adminToken})
	assert.Equal(t, http.StatusOK, rec.Code)

	// Config admin by tg id.
	rec = a.do(t, http.MethodGet, "/api/v1/admin/costumes", nil, map[string]string{"x-tg-id": "42"})
	assert.Equal(t, http.StatusOK, rec.Code)

	// Plain user by tg id.
	rec = a.do(t, http.MethodGet, "/api/v1/admin/costumes", nil, map[string]string{"x-tg-id": "100"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminCostumeCRUD(t *testing.T) {
	a := setupAPI(t)
	auth := map[string]string{"x-admin-token": adminToken}

	body := map[string]any{
		"title":         "Gnome",
		"price":         900,
		"sizes":         []string{"S", "M"},
		"stock_by_size": map[string]int64{"S": 1, "M": 2},
		"available":     true,
	}
	rec := a.do(t, http.MethodPost, "/api/v1/admin/costumes", body, auth)
	require.Equal(t, http.StatusOK, rec.Code)
	var created models.Costume
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotZero(t, created.ID)

	created.Price = 1200
	rec = a.do(t, http.MethodPut, fmt.Sprintf("/api/v1/admin/costumes/%d", created.ID), created, auth)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/admin/costumes/%d", created.ID), nil, auth)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/admin/costumes/%d", created.ID), nil, auth)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Every mutation was audited.
	rec = a.do(t, http.MethodGet, "/api/v1/admin/logs", nil, auth)
	require.Equal(t, http.StatusOK, rec.Code)
	var logs struct {
		Logs []models.AdminLogEntry `json:"logs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &logs))
	assert.Len(t, logs.Logs, 3)
}

func TestAdminAdjustStock(t *testing.T) {
	a := setupAPI(t)
	costume := a.createCostume(t, map[string]int64{"M": 1})
	auth := map[string]string{"x-admin-token": adminToken}

	rec := a.do(t, http.MethodPost, "/api/v1/admin/stock/adjust", map[string]any{
		"costume_id": costume.ID, "size": "M", "delta": 2,
	}, auth)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Count int64 `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(3), resp.Count)

	rec = a.do(t, http.MethodPost, "/api/v1/admin/stock/adjust", map[string]any{
		"costume_id": costume.ID, "size": "M", "delta": -10,
	}, auth)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, codeValidation, errorCode(t, rec))
}

func TestAdminBookingStatus(t *testing.T) {
	a := setupAPI(t)
	costume := a.createCostume(t, map[string]int64{"M": 1})
	auth := map[string]string{"x-admin-token": adminToken}

	rec := a.do(t, http.MethodPost, "/api/v1/bookings", bookingBody(costume.ID, "+79161234567", futureDate(7)), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var created models.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = a.do(t, http.MethodPut, fmt.Sprintf("/api/v1/admin/bookings/%d/status", created.ID), map[string]string{"status": models.StatusConfirmed}, auth)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/v1/admin/bookings?status="+models.StatusConfirmed, nil, auth)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Bookings []models.Booking `json:"bookings"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Len(t, listed.Bookings, 1)
}

func TestAdminUpload(t *testing.T) {
	a := setupAPI(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("photos", "dress.jpg")
	require.NoError(t, err)
	_, err = part.Write([]byte("not really a jpeg"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("x-admin-token", adminToken)
	rec := httptest.NewRecorder()
	a.server.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Photos []string `json:"photos"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Photos, 1)
	assert.True(t, strings.HasPrefix(resp.Photos[0], "/uploads/"))
	assert.True(t, strings.HasSuffix(resp.Photos[0], ".jpg"))
}

func TestAdminUploadRejectsBadType(t *testing.T) {
	a := setupAPI(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("photos", "malware.exe")
	require.NoError(t, err)
	_, err = part.Write([]byte("nope"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("x-admin-token", adminToken)
	rec := httptest.NewRecorder()
	a.server.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminExport(t *testing.T) {
	a := setupAPI(t)
	costume := a.createCostume(t, map[string]int64{"M": 1})
	auth := map[string]string{"x-admin-token": adminToken}

	rec := a.do(t, http.MethodPost, "/api/v1/bookings", bookingBody(costume.ID, "+79161234567", futureDate(7)), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/v1/admin/export", nil, auth)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
	assert.NotZero(t, rec.Body.Len())

	rec = a.do(t, http.MethodGet, "/api/v1/admin/export?from=2030-01-02&to=2030-01-01", nil, auth)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
