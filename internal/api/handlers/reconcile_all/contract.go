package reconcile_all

import (
	"context"

	"github.com/m04kA/SMC-ParkingService/internal/usecase/reconcile"
)

type ReconcileUseCase interface {
	ReconcileAll(ctx context.Context) (*reconcile.BulkResult, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
