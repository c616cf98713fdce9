package create_booking

import (
	"fmt"
	"time"

	createBooking "github.com/m04kA/SMC-ParkingService/internal/usecase/create_booking"
)

// CreateBookingRequest HTTP-модель запроса на создание бронирования
type CreateBookingRequest struct {
	OrganizationID int64  `json:"organizationId"`
	VehicleNumber  string `json:"vehicleNumber"`
	StartTime      string `json:"startTime"` // RFC3339
	EndTime        string `json:"endTime"`   // RFC3339
}

// ToUseCaseRequest конвертирует HTTP-запрос в модель use case
func (r *CreateBookingRequest) ToUseCaseRequest(userID int64) (*createBooking.Request, error) {
	startTime, err := time.Parse(time.RFC3339, r.StartTime)
	if err != nil {
		return nil, fmt.Errorf("parse startTime: %w", err)
	}

	endTime, err := time.Parse(time.RFC3339, r.EndTime)
	if err != nil {
		return nil, fmt.Errorf("parse endTime: %w", err)
	}

	return &createBooking.Request{
		UserID:         userID,
		OrganizationID: r.OrganizationID,
		VehicleNumber:  r.VehicleNumber,
		StartTime:      startTime,
		EndTime:        endTime,
	}, nil
}

// CreateBookingResponse HTTP-модель созданного бронирования
type CreateBookingResponse struct {
	ID             int64   `json:"id"`
	OrganizationID int64   `json:"organizationId"`
	ParkingLotID   int64   `json:"parkingLotId"`
	SlotNumber     string  `json:"slotNumber"`
	UserID         int64   `json:"userId"`
	VehicleNumber  string  `json:"vehicleNumber"`
	StartTime      string  `json:"startTime"`
	EndTime        string  `json:"endTime"`
	DurationHours  int     `json:"durationHours"`
	Amount         float64 `json:"amount"`
	Status         string  `json:"status"`
	PaymentStatus  string  `json:"paymentStatus"`
	CreatedAt      string  `json:"createdAt"`
	UpdatedAt      string  `json:"updatedAt"`
}

// FromUseCaseResponse конвертирует ответ use case в HTTP-модель
func FromUseCaseResponse(resp *createBooking.Response) *CreateBookingResponse {
	return &CreateBookingResponse{
		ID:             resp.ID,
		OrganizationID: resp.OrganizationID,
		ParkingLotID:   resp.ParkingLotID,
		SlotNumber:     resp.SlotNumber,
		UserID:         resp.UserID,
		VehicleNumber:  resp.VehicleNumber,
		StartTime:      resp.StartTime.Format(time.RFC3339),
		EndTime:        resp.EndTime.Format(time.RFC3339),
		DurationHours:  resp.DurationHours,
		Amount:         resp.Amount,
		Status:         resp.Status,
		PaymentStatus:  resp.PaymentStatus,
		CreatedAt:      resp.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      resp.UpdatedAt.Format(time.RFC3339),
	}
}
