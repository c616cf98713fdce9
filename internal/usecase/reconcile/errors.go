package reconcile

import "errors"

var (
	// ErrOrganizationNotFound возвращается, когда организация не найдена
	ErrOrganizationNotFound = errors.New("reconcile: organization not found")

	// ErrInternal возвращается при внутренних ошибках usecase
	ErrInternal = errors.New("reconcile: internal error")
)
