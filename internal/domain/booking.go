package domain

import "time"

// BookingStatus represents the lifecycle status of a booking
type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusActive    BookingStatus = "active"
	StatusOverstay  BookingStatus = "overstay"
	StatusCompleted BookingStatus = "completed"
	StatusCancelled BookingStatus = "cancelled"
	StatusNoShow    BookingStatus = "no_show"
)

// PaymentStatus represents the payment state of a booking.
// It is an independent axis and never drives lifecycle transitions.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Booking represents a parking slot booking
type Booking struct {
	ID             int64
	OrganizationID int64
	ParkingLotID   int64
	SlotNumber     string
	UserID         int64
	VehicleNumber  string
	StartTime      time.Time
	EndTime        time.Time
	DurationHours  int
	Amount         float64
	Status         BookingStatus
	PaymentStatus  PaymentStatus

	CancellationReason *string
	CancelledAt        *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// legalTransitions is the booking lifecycle graph.
// Terminal states (completed, cancelled, no_show) have no outgoing edges.
var legalTransitions = map[BookingStatus][]BookingStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusActive, StatusCancelled, StatusNoShow},
	StatusActive:    {StatusOverstay, StatusCompleted},
	StatusOverstay:  {StatusCompleted},
}

// CanTransition returns true if from -> to follows the lifecycle graph
func CanTransition(from, to BookingStatus) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal returns true if the status has no outgoing transitions
func (s BookingStatus) IsTerminal() bool {
	return len(legalTransitions[s]) == 0 && s.IsValid()
}

// IsValid returns true if the status is a known booking status
func (s BookingStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusActive, StatusOverstay,
		StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// IsOccupying returns true if the status counts against available capacity
func (s BookingStatus) IsOccupying() bool {
	for _, occ := range OccupyingStatuses {
		if s == occ {
			return true
		}
	}
	return false
}

// CanBeCancelled returns true if the booking can still be cancelled
func (b *Booking) CanBeCancelled() bool {
	return CanTransition(b.Status, StatusCancelled)
}

// IsOccupying returns true if the booking currently holds its slot
func (b *Booking) IsOccupying() bool {
	return b.Status.IsOccupying()
}

// IsOverdue returns true if the booking end time has passed at the given instant
func (b *Booking) IsOverdue(now time.Time) bool {
	return now.After(b.EndTime)
}

// HasStarted returns true if the booking start time has passed at the given instant
func (b *Booking) HasStarted(now time.Time) bool {
	return !now.Before(b.StartTime)
}
