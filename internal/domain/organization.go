package domain

import "time"

// Organization owns a pool of parking capacity split across prioritized lots
type Organization struct {
	ID   int64
	Name string

	// TotalSlots is invariant: the sum of TotalSlots over the organization's lots
	TotalSlots int

	// AvailableSlots is a derived counter: TotalSlots minus the number of
	// occupying bookings. It is maintained transactionally on every
	// allocation and occupancy-affecting transition, with the reconciler
	// as a backstop. Booking state is the source of truth, never this column.
	AvailableSlots int

	// MemberParkingFree affects pricing only, never occupancy
	MemberParkingFree bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ComputeAvailable derives the correct available counter from an occupied count,
// clamped to [0, TotalSlots]
func (o *Organization) ComputeAvailable(occupiedCount int) int {
	available := o.TotalSlots - occupiedCount
	if available < 0 {
		return 0
	}
	if available > o.TotalSlots {
		return o.TotalSlots
	}
	return available
}
