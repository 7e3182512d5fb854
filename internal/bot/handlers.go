package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"costumier/internal/domain"
	"costumier/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const helpText = `Команды:
/items — каталог костюмов
/book <id> <размер> <дата ГГГГ-ММ-ДД> <имя>;<телефон +7...> — забронировать
/my — мои заявки
/cancel <номер заявки> — отменить заявку`

const adminHelpText = `
Команды администратора:
/rent <название>;<размер>;<имя клиента>[;<телефон>] — прокат в магазине`

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if !msg.IsCommand() {
		b.send(msg.Chat.ID, helpText)
		return
	}

	switch msg.Command() {
	case "start":
		b.handleStart(ctx, msg)
	case "items":
		b.handleItems(ctx, msg)
	case "book":
		b.handleBook(ctx, msg)
	case "my":
		b.handleMyBookings(ctx, msg)
	case "cancel":
		b.handleCancel(ctx, msg)
	case "rent":
		b.handleRent(ctx, msg)
	default:
		b.send(msg.Chat.ID, helpText)
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	user := &models.User{
		TgID:      msg.From.ID,
		Username:  msg.From.UserName,
		FirstName: msg.From.FirstName,
		LastName:  msg.From.LastName,
	}
	if err := b.users.SaveUser(ctx, user); err != nil {
		b.logger.Error().Err(err).Int64("tg_id", msg.From.ID).Msg("save user")
	}

	text := "Здравствуйте! Это прокат детских костюмов.\n" + helpText
	if b.users.IsAdmin(ctx, msg.From.ID) {
		text += adminHelpText
	}
	b.send(msg.Chat.ID, text)
}

func (b *Bot) handleItems(ctx context.Context, msg *tgbotapi.Message) {
	costumes, err := b.catalog.AvailableCostumes(ctx)
	if err != nil {
		b.logger.Error().Err(err).Msg("list costumes")
		b.send(msg.Chat.ID, "Не удалось загрузить каталог, попробуйте позже.")
		return
	}
	if len(costumes) == 0 {
		b.send(msg.Chat.ID, "Каталог пока пуст.")
		return
	}

	var sb strings.Builder
	sb.WriteString("Доступные костюмы:\n")
	for _, c := range costumes {
		fmt.Fprintf(&sb, "\n#%d %s — %d ₽\nРазмеры: %s\n", c.ID, c.Title, c.Price, strings.Join(c.Sizes, ", "))
		if c.HeightRange != "" {
			fmt.Fprintf(&sb, "Рост: %s\n", c.HeightRange)
		}
	}
	b.send(msg.Chat.ID, sb.String())
}

// handleBook parses "/book <id> <size> <date> <name>;<phone>".
func (b *Bot) handleBook(ctx context.Context, msg *tgbotapi.Message) {
	args := strings.TrimSpace(msg.CommandArguments())
	fields := strings.SplitN(args, " ", 4)
	if len(fields) < 4 {
		b.send(msg.Chat.ID, "Формат: /book <id> <размер> <дата ГГГГ-ММ-ДД> <имя>;<телефон +7...>")
		return
	}

	costumeID, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		b.send(msg.Chat.ID, "Номер костюма должен быть числом, см. /items")
		return
	}

	eventDate, err := time.ParseInLocation("2006-01-02", fields[2], time.Local)
	if err != nil {
		b.send(msg.Chat.ID, "Дата в формате ГГГГ-ММ-ДД, например 2026-12-30")
		return
	}

	contact := strings.SplitN(fields[3], ";", 2)
	if len(contact) < 2 {
		b.send(msg.Chat.ID, "Укажите имя и телефон через точку с запятой: Анна;+79161234567")
		return
	}

	booking, err := b.bookings.Create(ctx, &domain.CreateBookingRequest{
		UserTgID:   msg.From.ID,
		ClientName: strings.TrimSpace(contact[0]),
		Phone:      strings.TrimSpace(contact[1]),
		CostumeID:  costumeID,
		Size:       fields[1],
		EventDate:  eventDate,
	})
	if err != nil {
		b.send(msg.Chat.ID, bookingErrorText(err))
		return
	}

	b.send(msg.Chat.ID, fmt.Sprintf(
		"Заявка #%d принята!\n%s (%s) на %s\nЗабрать: %s после 17:00\nВернуть: %s до 17:00",
		booking.ID,
		booking.CostumeTitle,
		booking.Size,
		booking.EventDate.Format("02.01.2006"),
		booking.PickupAt.Format("02.01.2006"),
		booking.ReturnAt.Format("02.01.2006"),
	))
}

func (b *Bot) handleMyBookings(ctx context.Context, msg *tgbotapi.Message) {
	bookings, err := b.bookings.UserBookings(ctx, msg.From.ID)
	if err != nil {
		b.logger.Error().Err(err).Int64("tg_id", msg.From.ID).Msg("list user bookings")
		b.send(msg.Chat.ID, "Не удалось загрузить заявки, попробуйте позже.")
		return
	}
	if len(bookings) == 0 {
		b.send(msg.Chat.ID, "У вас пока нет заявок.")
		return
	}

	var sb strings.Builder
	sb.WriteString("Ваши заявки:\n")
	for _, bk := range bookings {
		fmt.Fprintf(&sb, "\n#%d %s (%s) на %s — %s\n",
			bk.ID, bk.CostumeTitle, bk.Size, bk.EventDate.Format("02.01.2006"), statusText(bk.Status))
	}
	b.send(msg.Chat.ID, sb.String())
}

func (b *Bot) handleCancel(ctx context.Context, msg *tgbotapi.Message) {
	id, err := strconv.ParseInt(strings.TrimSpace(msg.CommandArguments()), 10, 64)
	if err != nil {
		b.send(msg.Chat.ID, "Формат: /cancel <номер заявки>")
		return
	}

	booking, err := b.bookings.Cancel(ctx, id, msg.From.ID)
	switch {
	case err == nil:
		b.send(msg.Chat.ID, fmt.Sprintf("Заявка #%d отменена.", booking.ID))
	case errors.Is(err, domain.ErrBookingNotFound), errors.Is(err, domain.ErrForbidden):
		b.send(msg.Chat.ID, "Заявка не найдена.")
	case errors.Is(err, domain.ErrAlreadyFinal):
		b.send(msg.Chat.ID, "Эта заявка уже закрыта.")
	default:
		b.logger.Error().Err(err).Int64("booking_id", id).Msg("cancel booking")
		b.send(msg.Chat.ID, "Не получилось отменить заявку, попробуйте позже.")
	}
}

// handleRent registers a walk-in rental: "/rent title;size;client[;phone]".
func (b *Bot) handleRent(ctx context.Context, msg *tgbotapi.Message) {
	if !b.users.IsAdmin(ctx, msg.From.ID) {
		b.send(msg.Chat.ID, helpText)
		return
	}

	parts := strings.Split(msg.CommandArguments(), ";")
	if len(parts) < 3 {
		b.send(msg.Chat.ID, "Формат: /rent <название>;<размер>;<имя клиента>[;<телефон>]")
		return
	}
	req := &domain.OfflineRentalRequest{
		CostumeTitle: strings.TrimSpace(parts[0]),
		Size:         strings.TrimSpace(parts[1]),
		ClientName:   strings.TrimSpace(parts[2]),
	}
	if len(parts) > 3 {
		req.Phone = strings.TrimSpace(parts[3])
	}

	booking, err := b.bookings.CreateOffline(ctx, domain.Admin{TgID: msg.From.ID}, req)
	if err != nil {
		b.send(msg.Chat.ID, bookingErrorText(err))
		return
	}

	b.send(msg.Chat.ID, fmt.Sprintf(
		"Прокат #%d оформлен: %s (%s), возврат %s до 17:00.",
		booking.ID, booking.CostumeTitle, booking.Size, booking.ReturnAt.Format("02.01.2006"),
	))
}

func bookingErrorText(err error) string {
	var conflict *domain.ConflictError
	switch {
	case errors.As(err, &conflict):
		return fmt.Sprintf("Размер %s уже занят на %s, выберите другую дату.", conflict.Size, conflict.Date)
	case errors.Is(err, domain.ErrCostumeNotFound):
		return "Такой костюм не найден, см. /items"
	case errors.Is(err, domain.ErrPastDate):
		return "Эта дата уже прошла."
	case errors.Is(err, domain.ErrRateLimited):
		return "Слишком часто, подождите полминуты и попробуйте снова."
	case domain.IsValidation(err):
		return "Проверьте данные: " + err.Error()
	default:
		return "Что-то пошло не так, попробуйте позже."
	}
}

func statusText(status string) string {
	switch status {
	case models.StatusNew:
		return "ожидает подтверждения"
	case models.StatusConfirmed:
		return "подтверждена"
	case models.StatusCancelled:
		return "отменена"
	case models.StatusCompleted:
		return "завершена"
	default:
		return status
	}
}
