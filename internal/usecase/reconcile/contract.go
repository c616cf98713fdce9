package reconcile

import (
	"context"
	"time"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
)

// BookingRepository интерфейс репозитория бронирований
type BookingRepository interface {
	CountOccupying(ctx context.Context, organizationID int64) (int, error)
	MarkOverstays(ctx context.Context, organizationID int64, now time.Time) (int64, error)
	MarkNoShows(ctx context.Context, organizationID int64, cutoff time.Time) (int64, error)
	CompleteOverstays(ctx context.Context, organizationID int64, cutoff time.Time) (int64, error)
}

// OrganizationRepository интерфейс репозитория организаций
type OrganizationRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Organization, error)
	ListIDs(ctx context.Context) ([]int64, error)
	SetAvailableSlots(ctx context.Context, organizationID int64, value int) error
}

// AuditRepository интерфейс append-only аудита реконсиляций
type AuditRepository interface {
	Create(ctx context.Context, run *domain.ReconciliationRun) error
}

// StatusCache интерфейс кэша статуса организации
type StatusCache interface {
	Invalidate(ctx context.Context, organizationID int64)
}

// TransactionManager интерфейс для управления транзакциями
type TransactionManager interface {
	DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
}

// TimeProvider интерфейс для получения текущего времени (для тестирования)
type TimeProvider interface {
	Now() time.Time
}

// MetricsCollector интерфейс метрик реконсиляции
type MetricsCollector interface {
	IncReconcileRun(outcome string)
	IncDriftCorrection(organizationID int64)
	AddSweepTransitions(sweep string, count int64)
}

// Logger интерфейс для логирования
type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}

// RealTimeProvider реальный провайдер времени для production
type RealTimeProvider struct{}

// Now возвращает текущее время
func (p *RealTimeProvider) Now() time.Time {
	return time.Now()
}

// NopMetrics заглушка метрик, используется при выключенном сборе метрик
type NopMetrics struct{}

func (NopMetrics) IncReconcileRun(string)            {}
func (NopMetrics) IncDriftCorrection(int64)          {}
func (NopMetrics) AddSweepTransitions(string, int64) {}
