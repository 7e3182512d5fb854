package worker

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"costumier/internal/models"
	"costumier/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMirror struct {
	appended  []int64
	statuses  map[int64]string
	link      string
	failUntil int
	calls     int
}

func (m *fakeMirror) AppendBooking(_ context.Context, b *models.Booking) (string, error) {
	m.calls++
	if m.calls <= m.failUntil {
		return "", errors.New("sheets unavailable")
	}
	m.appended = append(m.appended, b.ID)
	return m.link, nil
}

func (m *fakeMirror) UpdateBookingStatus(_ context.Context, bookingID int64, status string) error {
	m.calls++
	if m.calls <= m.failUntil {
		return errors.New("sheets unavailable")
	}
	if m.statuses == nil {
		m.statuses = make(map[int64]string)
	}
	m.statuses[bookingID] = status
	return nil
}

func setupWorker(t *testing.T, mirror *fakeMirror, redisClient *redis.Client) (*SheetsWorker, *store.Store) {
	t.Helper()
	logger := zerolog.New(os.Stdout)
	s, err := store.New(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	w := NewSheetsWorker(s, mirror, redisClient, RetryPolicy{MaxRetries: 3, InitialDelay: time.Millisecond}, &logger)
	return w, s
}

func createBooking(t *testing.T, s *store.Store) *models.Booking {
	t.Helper()
	ctx := context.Background()
	costume := &models.Costume{Title: "Dress", Sizes: []string{"M"}, StockBySize: map[string]int64{"M": 1}, Available: true}
	require.NoError(t, s.CreateCostume(ctx, costume))

	b := &models.Booking{
		UserTgID:     100,
		ClientName:   "Anna",
		Phone:        "+79161234567",
		CostumeID:    costume.ID,
		CostumeTitle: costume.Title,
		Size:         "M",
		Status:       models.StatusNew,
		Channel:      models.ChannelOnline,
	}
	b.SetEventDate(time.Now().AddDate(0, 0, 7))
	require.NoError(t, s.CreateBookingLocked(ctx, b))
	return b
}

func TestEnqueueAppendPersists(t *testing.T) {
	mirror := &fakeMirror{}
	w, s := setupWorker(t, mirror, nil)
	booking := createBooking(t, s)

	require.NoError(t, w.EnqueueAppend(context.Background(), booking))

	tasks, err := s.GetPendingSyncTasks(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, TaskAppend, tasks[0].TaskType)
	assert.Equal(t, booking.ID, tasks[0].BookingID)
}

func TestProcessAppendSavesLink(t *testing.T) {
	mirror := &fakeMirror{link: "https://docs.google.com/spreadsheets/d/x/edit#range=A5"}
	w, s := setupWorker(t, mirror, nil)
	booking := createBooking(t, s)
	ctx := context.Background()

	require.NoError(t, w.EnqueueAppend(ctx, booking))

	task, ok := w.tryLocalQueue()
	require.True(t, ok)
	w.processTask(ctx, &task)

	assert.Equal(t, []int64{booking.ID}, mirror.appended)

	got, err := s.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, mirror.link, got.SheetRowLink)

	pending, err := s.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestProcessStatusUpdate(t *testing.T) {
	mirror := &fakeMirror{}
	w, s := setupWorker(t, mirror, nil)
	booking := createBooking(t, s)
	ctx := context.Background()

	require.NoError(t, w.EnqueueStatus(ctx, booking.ID, models.StatusConfirmed))

	task, ok := w.tryLocalQueue()
	require.True(t, ok)
	w.processTask(ctx, &task)

	assert.Equal(t, models.StatusConfirmed, mirror.statuses[booking.ID])
}

func TestProcessRetriesThenSucceeds(t *testing.T) {
	mirror := &fakeMirror{failUntil: 1}
	w, s := setupWorker(t, mirror, nil)
	booking := createBooking(t, s)
	ctx := context.Background()

	require.NoError(t, w.EnqueueAppend(ctx, booking))

	task, ok := w.tryLocalQueue()
	require.True(t, ok)
	w.processTask(ctx, &task)

	// First attempt failed, the task went to retry with a backoff stamp.
	assert.Empty(t, mirror.appended)

	time.Sleep(5 * time.Millisecond)
	pending, err := s.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].RetryCount)

	w.processTask(ctx, &pending[0])
	assert.Equal(t, []int64{booking.ID}, mirror.appended)
}

func TestProcessExhaustsRetries(t *testing.T) {
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redisClient.Close() })

	mirror := &fakeMirror{failUntil: 100}
	w, s := setupWorker(t, mirror, redisClient)
	booking := createBooking(t, s)
	ctx := context.Background()

	require.NoError(t, w.EnqueueAppend(ctx, booking))

	// Drain the redis copy and fail it through all attempts.
	task, ok := w.tryRedis(ctx)
	require.True(t, ok)
	for i := 0; i < 3; i++ {
		w.processTask(ctx, &task)
		task.RetryCount++
	}

	// Dead letter holds the poisoned task.
	n, err := redisClient.LLen(ctx, w.deadLetterKey).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	time.Sleep(5 * time.Millisecond)
	pending, err := s.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestDuplicateDeliveryAppendsOnce(t *testing.T) {
	mirror := &fakeMirror{}
	w, s := setupWorker(t, mirror, nil)
	booking := createBooking(t, s)
	ctx := context.Background()

	require.NoError(t, w.EnqueueAppend(ctx, booking))

	// The same task arrives twice: once via the channel, once via polling.
	task, ok := w.tryLocalQueue()
	require.True(t, ok)
	pending, err := s.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	w.processTask(ctx, &task)
	w.processTask(ctx, &pending[0])

	assert.Equal(t, []int64{booking.ID}, mirror.appended)
}

func TestStaleProcessingRequeued(t *testing.T) {
	mirror := &fakeMirror{}
	w, s := setupWorker(t, mirror, nil)
	booking := createBooking(t, s)
	ctx := context.Background()

	require.NoError(t, w.EnqueueAppend(ctx, booking))

	task, ok := w.tryLocalQueue()
	require.True(t, ok)
	claimed, err := s.ClaimSyncTask(ctx, task.ID)
	require.NoError(t, err)
	require.True(t, claimed)

	// Claimed tasks are invisible to polling.
	pending, err := s.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// After a restart the claim is released and polling sees it again.
	require.NoError(t, s.ResetStaleSyncTasks(ctx))
	pending, err = s.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, task.ID, pending[0].ID)
}

func TestUnknownTaskTypeFails(t *testing.T) {
	mirror := &fakeMirror{}
	w, s := setupWorker(t, mirror, nil)
	ctx := context.Background()

	task := models.SyncTask{TaskType: "bogus", Payload: "{}", Status: "pending"}
	require.NoError(t, s.CreateSyncTask(ctx, &task))

	w.processTask(ctx, &task)

	pending, err := s.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRetryPolicyNextDelay(t *testing.T) {
	policy := RetryPolicy{MaxRetries: 5, InitialDelay: time.Second, MaxDelay: 10 * time.Second, BackoffFactor: 2}

	assert.Equal(t, time.Second, policy.NextDelay(1))
	assert.Equal(t, 2*time.Second, policy.NextDelay(2))
	assert.Equal(t, 4*time.Second, policy.NextDelay(3))
	// Clamped to MaxDelay.
	assert.Equal(t, 10*time.Second, policy.NextDelay(10))
	// Out of range attempt behaves like the first.
	assert.Equal(t, time.Second, policy.NextDelay(0))
}
