package create_booking

import "errors"

var (
	// ErrOrganizationNotFound возвращается, когда организация не найдена
	ErrOrganizationNotFound = errors.New("create_booking: organization not found")

	// ErrNoCapacity возвращается, когда ни в одном активном лоте организации
	// нет свободного слота. Запрос отклоняется сразу, без очереди и повторов
	ErrNoCapacity = errors.New("create_booking: no free slot in any active lot")

	// ErrInvalidInput возвращается при некорректных входных данных
	ErrInvalidInput = errors.New("create_booking: invalid input data")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("create_booking: internal error")
)
