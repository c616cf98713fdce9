package bookings

import "errors"

var (
	// ErrBookingNotFound возвращается, когда бронирование не найдено
	ErrBookingNotFound = errors.New("booking not found")

	// ErrIllegalTransition возвращается, когда запрошенный переход не входит
	// в граф жизненного цикла; переход никогда не выполняется "насильно"
	ErrIllegalTransition = errors.New("illegal booking status transition")

	// ErrNotStarted возвращается при попытке check-in до начала бронирования
	ErrNotStarted = errors.New("booking has not started yet")

	// ErrSlotTaken возвращается, когда слот pending-бронирования успел занять другой
	ErrSlotTaken = errors.New("slot is no longer free")

	// ErrAccessDenied возвращается, когда у пользователя нет прав доступа
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("invalid input data")

	// ErrInternal возвращается при внутренних ошибках сервиса
	ErrInternal = errors.New("service: internal error")
)
