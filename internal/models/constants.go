package models

const (
	StatusNew       = "new"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

const (
	ChannelOnline  = "online"
	ChannelOffline = "offline"
)

const (
	// HandoffHour is the local hour at which a costume changes hands:
	// picked up after 17:00 the day before the event, returned by 17:00
	// on the event day.
	HandoffHour = 17

	// BookingRateLimitWindow окно между попытками создания заявки, сек
	BookingRateLimitWindowSeconds = 30

	// WorkerQueueSize размер очереди воркера
	WorkerQueueSize = 128

	// AdminLogPageSize сколько записей журнала отдаем по умолчанию
	AdminLogPageSize = 200

	// MaxUploadFiles максимум файлов за одну загрузку
	MaxUploadFiles = 5

	// MaxUploadBytes максимальный размер одного файла
	MaxUploadBytes = 2 << 20

	// SheetsMaxRetries сколько раз повторяем задачу зеркала перед dead letter
	SheetsMaxRetries = 5

	// SheetsRetryBaseSeconds стартовая задержка между повторами, сек
	SheetsRetryBaseSeconds = 2

	// SheetsRetryMaxSeconds потолок задержки между повторами, сек
	SheetsRetryMaxSeconds = 60
)

// ActiveStatuses are the statuses that occupy a unit.
func ActiveStatuses() []string {
	return []string{StatusNew, StatusConfirmed}
}

// IsTerminalStatus reports whether no further transitions are allowed.
func IsTerminalStatus(status string) bool {
	return status == StatusCancelled || status == StatusCompleted
}

// IsKnownStatus reports whether status is one of the four booking states.
func IsKnownStatus(status string) bool {
	switch status {
	case StatusNew, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// CanTransition enforces the monotonic status rule: active states may move
// to any other state, terminal states absorb.
func CanTransition(from, to string) bool {
	if !IsKnownStatus(to) {
		return false
	}
	return !IsTerminalStatus(from)
}
