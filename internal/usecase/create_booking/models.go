package create_booking

import "time"

// Request модель запроса на создание бронирования
type Request struct {
	UserID         int64     // ID пользователя
	OrganizationID int64     // ID организации
	VehicleNumber  string    // Госномер автомобиля
	StartTime      time.Time // Начало бронирования
	EndTime        time.Time // Окончание бронирования
}

// Response модель ответа с созданным бронированием
type Response struct {
	ID             int64
	OrganizationID int64
	ParkingLotID   int64
	SlotNumber     string // Стабильный идентификатор слота, например "L7-004"
	UserID         int64
	VehicleNumber  string
	StartTime      time.Time
	EndTime        time.Time
	DurationHours  int
	Amount         float64
	Status         string
	PaymentStatus  string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
