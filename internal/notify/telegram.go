package notify

import (
	"encoding/json"
	"fmt"

	"costumier/internal/events"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// Sender is the slice of tgbotapi.BotAPI the sink needs.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSink turns booking events into chat messages: every event goes
// to the admin chat, online bookings also ping the requester. Delivery is
// best-effort; failures are logged and dropped.
type TelegramSink struct {
	bot         Sender
	adminChatID int64
	logger      *zerolog.Logger
}

func NewTelegramSink(bot Sender, adminChatID int64, logger *zerolog.Logger) *TelegramSink {
	return &TelegramSink{bot: bot, adminChatID: adminChatID, logger: logger}
}

// SubscribeAll attaches the sink to every booking event type.
func (s *TelegramSink) SubscribeAll(bus *events.EventBus) {
	bus.Subscribe(events.EventBookingCreated, s.handleCreated)
	bus.Subscribe(events.EventBookingStatusChanged, s.handleStatusChanged)
	bus.Subscribe(events.EventOfflineRental, s.handleOfflineRental)
}

func (s *TelegramSink) handleCreated(event *events.Event) error {
	payload, err := s.decode(event)
	if err != nil {
		return err
	}

	text := fmt.Sprintf(
		"🆕 Новая заявка #%d\n%s, %s\nКостюм: %s (%s)\nПраздник: %s\nВыдача: %s, возврат: %s",
		payload.BookingID,
		payload.ClientName,
		payload.Phone,
		payload.CostumeTitle,
		payload.Size,
		payload.EventDate.Format("02.01.2006"),
		payload.PickupAt.Format("02.01 15:04"),
		payload.ReturnAt.Format("02.01 15:04"),
	)
	s.send(s.adminChatID, text)

	if payload.UserTgID != 0 {
		s.send(payload.UserTgID, fmt.Sprintf(
			"Ваша заявка #%d принята!\nКостюм: %s (%s)\nЗабрать: %s после 17:00\nВернуть: %s до 17:00",
			payload.BookingID,
			payload.CostumeTitle,
			payload.Size,
			payload.PickupAt.Format("02.01.2006"),
			payload.ReturnAt.Format("02.01.2006"),
		))
	}
	return nil
}

func (s *TelegramSink) handleStatusChanged(event *events.Event) error {
	payload, err := s.decode(event)
	if err != nil {
		return err
	}

	s.send(s.adminChatID, fmt.Sprintf("Заявка #%d: статус %s", payload.BookingID, payload.Status))

	if payload.UserTgID != 0 && payload.UserTgID != payload.ChangedByID {
		s.send(payload.UserTgID, fmt.Sprintf("Статус вашей заявки #%d: %s", payload.BookingID, payload.Status))
	}
	return nil
}

func (s *TelegramSink) handleOfflineRental(event *events.Event) error {
	payload, err := s.decode(event)
	if err != nil {
		return err
	}

	s.send(s.adminChatID, fmt.Sprintf(
		"🏪 Прокат в магазине #%d\n%s\nКостюм: %s (%s), возврат завтра до 17:00",
		payload.BookingID,
		payload.ClientName,
		payload.CostumeTitle,
		payload.Size,
	))
	return nil
}

func (s *TelegramSink) decode(event *events.Event) (events.BookingEventPayload, error) {
	var payload events.BookingEventPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", event.Type).Msg("decode event payload")
		return payload, err
	}
	return payload, nil
}

func (s *TelegramSink) send(chatID int64, text string) {
	if s.bot == nil || chatID == 0 {
		return
	}
	if _, err := s.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		s.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("notification send failed")
	}
}
