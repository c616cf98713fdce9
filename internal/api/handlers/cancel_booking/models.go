package cancel_booking

// CancelBookingRequest HTTP-модель запроса на отмену бронирования
type CancelBookingRequest struct {
	CancellationReason string `json:"cancellationReason"`
}

// CancelBookingResponse HTTP-модель ответа на отмену
type CancelBookingResponse struct {
	Message string `json:"message"`
}
