package create_booking

import (
	"fmt"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
)

// validateRequest проверяет входные данные запроса на аллокацию
func validateRequest(req *Request) error {
	if req.UserID <= 0 {
		return fmt.Errorf("%w: userId is required", ErrInvalidInput)
	}
	if req.OrganizationID <= 0 {
		return fmt.Errorf("%w: organizationId is required", ErrInvalidInput)
	}
	if req.VehicleNumber == "" {
		return fmt.Errorf("%w: vehicleNumber is required", ErrInvalidInput)
	}
	if len(req.VehicleNumber) > domain.MaxVehicleNumberLength {
		return fmt.Errorf("%w: vehicleNumber is too long", ErrInvalidInput)
	}
	if req.StartTime.IsZero() || req.EndTime.IsZero() {
		return fmt.Errorf("%w: startTime and endTime are required", ErrInvalidInput)
	}
	if !req.EndTime.After(req.StartTime) {
		return fmt.Errorf("%w: endTime must be after startTime", ErrInvalidInput)
	}
	if durationHours(req.StartTime, req.EndTime) > domain.MaxBookingHours {
		return fmt.Errorf("%w: booking is too long", ErrInvalidInput)
	}
	return nil
}
