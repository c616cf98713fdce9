package get_org_status

import (
	"context"

	"github.com/m04kA/SMC-ParkingService/internal/service/status/models"
)

type StatusService interface {
	GetOrganizationStatus(ctx context.Context, organizationID int64) (*models.OrganizationStatusResponse, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
