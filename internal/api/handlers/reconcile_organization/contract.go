package reconcile_organization

import (
	"context"

	"github.com/m04kA/SMC-ParkingService/internal/usecase/reconcile"
)

type ReconcileUseCase interface {
	Reconcile(ctx context.Context, organizationID int64) (*reconcile.Result, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
