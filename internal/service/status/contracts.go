package status

import (
	"context"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
)

// BookingRepository интерфейс репозитория бронирований
type BookingRepository interface {
	GetOccupiedSlotNumbers(ctx context.Context, lotID int64) ([]string, error)
}

// OrganizationRepository интерфейс репозитория организаций
type OrganizationRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Organization, error)
	ListActiveLots(ctx context.Context, organizationID int64) ([]*domain.ParkingLot, error)
}

// Cache интерфейс кэша витрины занятости
type Cache interface {
	Get(ctx context.Context, organizationID int64) ([]byte, error)
	Set(ctx context.Context, organizationID int64, payload []byte) error
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
