package organization

import "errors"

var (
	// ErrOrganizationNotFound возвращается, когда организация не найдена
	ErrOrganizationNotFound = errors.New("organization.repository: organization not found")

	// ErrLotNotFound возвращается, когда парковочный лот не найден
	ErrLotNotFound = errors.New("organization.repository: parking lot not found")

	// ErrCounterOutOfRange возвращается, когда изменение available_slots вывело бы
	// счетчик за пределы [0, total_slots]
	ErrCounterOutOfRange = errors.New("organization.repository: available_slots out of range")

	// ErrBuildQuery возвращается при ошибке построения SQL запроса
	ErrBuildQuery = errors.New("organization.repository: failed to build query")

	// ErrExecQuery возвращается при ошибке выполнения SQL запроса
	ErrExecQuery = errors.New("organization.repository: failed to execute query")

	// ErrScanRow возвращается при ошибке сканирования результата запроса
	ErrScanRow = errors.New("organization.repository: failed to scan row")
)
