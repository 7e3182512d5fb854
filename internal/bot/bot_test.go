package bot

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"costumier/internal/booking"
	"costumier/internal/catalog"
	"costumier/internal/events"
	"costumier/internal/models"
	"costumier/internal/ratelimit"
	"costumier/internal/store"
	"costumier/internal/users"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	sent []tgbotapi.MessageConfig
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) GetUpdatesChan(_ tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return make(chan tgbotapi.Update)
}

func (f *fakeAPI) lastText(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, f.sent)
	return f.sent[len(f.sent)-1].Text
}

type fixture struct {
	bot   *Bot
	api   *fakeAPI
	store *store.Store
}

func setup(t *testing.T) *fixture {
	t.Helper()
	logger := zerolog.New(os.Stdout)
	s, err := store.New(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	bookingSvc := booking.NewService(s, ratelimit.NewMemoryLimiter(), events.NewEventBus(), nil, 30*time.Second, 365, &logger)
	catalogSvc := catalog.NewService(s, &logger)
	userSvc := users.NewService(s, []int64{42}, &logger)

	api := &fakeAPI{}
	return &fixture{
		bot:   New(api, catalogSvc, bookingSvc, userSvc, &logger),
		api:   api,
		store: s,
	}
}

func (f *fixture) createCostume(t *testing.T) *models.Costume {
	t.Helper()
	costume := &models.Costume{
		Title:       "Snow Queen Dress",
		Price:       1500,
		Sizes:       []string{"M"},
		StockBySize: map[string]int64{"M": 1},
		Available:   true,
	}
	require.NoError(t, f.store.CreateCostume(context.Background(), costume))
	return costume
}

func message(tgID int64, text string) *tgbotapi.Message {
	msg := &tgbotapi.Message{
		From: &tgbotapi.User{ID: tgID, UserName: "anna", FirstName: "Anna"},
		Chat: &tgbotapi.Chat{ID: tgID},
		Text: text,
	}
	if len(text) > 0 && text[0] == '/' {
		end := len(text)
		for i, r := range text {
			if r == ' ' {
				end = i
				break
			}
		}
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: end}}
	}
	return msg
}

func TestStartRegistersUser(t *testing.T) {
	f := setup(t)
	f.bot.handleMessage(context.Background(), message(100, "/start"))

	user, err := f.store.GetUserByTgID(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, "anna", user.Username)
	assert.Contains(t, f.api.lastText(t), "/items")
	assert.NotContains(t, f.api.lastText(t), "/rent")
}

func TestStartShowsAdminCommands(t *testing.T) {
	f := setup(t)
	f.bot.handleMessage(context.Background(), message(42, "/start"))
	assert.Contains(t, f.api.lastText(t), "/rent")
}

func TestItems(t *testing.T) {
	f := setup(t)
	f.createCostume(t)

	f.bot.handleMessage(context.Background(), message(100, "/items"))
	text := f.api.lastText(t)
	assert.Contains(t, text, "Snow Queen Dress")
	assert.Contains(t, text, "1500")
}

func TestBookAndCancelFlow(t *testing.T) {
	f := setup(t)
	costume := f.createCostume(t)
	date := time.Now().AddDate(0, 0, 7).Format("2006-01-02")

	cmd := fmt.Sprintf("/book %d M %s Анна;+79161234567", costume.ID, date)
	f.bot.handleMessage(context.Background(), message(100, cmd))
	assert.Contains(t, f.api.lastText(t), "принята")

	bookings, err := f.store.GetUserBookings(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, bookings, 1)

	f.bot.handleMessage(context.Background(), message(100, "/my"))
	assert.Contains(t, f.api.lastText(t), "ожидает подтверждения")

	f.bot.handleMessage(context.Background(), message(100, fmt.Sprintf("/cancel %d", bookings[0].ID)))
	assert.Contains(t, f.api.lastText(t), "отменена")

	// Someone else's booking stays private.
	f.bot.handleMessage(context.Background(), message(200, fmt.Sprintf("/cancel %d", bookings[0].ID)))
	assert.Contains(t, f.api.lastText(t), "не найдена")
}

func TestBookConflictMessage(t *testing.T) {
	f := setup(t)
	costume := f.createCostume(t)
	date := time.Now().AddDate(0, 0, 7).Format("2006-01-02")

	f.bot.handleMessage(context.Background(), message(100, fmt.Sprintf("/book %d M %s Анна;+79161234567", costume.ID, date)))
	f.bot.handleMessage(context.Background(), message(200, fmt.Sprintf("/book %d M %s Вера;+79160000000", costume.ID, date)))

	assert.Contains(t, f.api.lastText(t), "уже занят")
}

func TestRentRequiresAdmin(t *testing.T) {
	f := setup(t)
	f.createCostume(t)

	f.bot.handleMessage(context.Background(), message(100, "/rent Snow Queen Dress;M;Olga"))
	assert.NotContains(t, f.api.lastText(t), "оформлен")

	f.bot.handleMessage(context.Background(), message(42, "/rent snow queen dress;M;Olga"))
	assert.Contains(t, f.api.lastText(t), "оформлен")

	bookings, err := f.store.GetBookings(context.Background(), models.StatusConfirmed)
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, models.ChannelOffline, bookings[0].Channel)
}

func TestUnknownCommandShowsHelp(t *testing.T) {
	f := setup(t)
	f.bot.handleMessage(context.Background(), message(100, "/frobnicate"))
	assert.Contains(t, f.api.lastText(t), "Команды:")
}
