package domain

// OccupyingStatuses is the set of booking statuses that count against
// available capacity. A confirmed booking already holds its slot: otherwise
// the allocator could hand the same index to a second request before the
// first one activates. Applied uniformly by the allocator, the reconciler,
// the overstay detector and status views.
var OccupyingStatuses = []BookingStatus{
	StatusConfirmed,
	StatusActive,
	StatusOverstay,
}

// TerminalStatuses are retained for audit and history; bookings are never deleted
var TerminalStatuses = []BookingStatus{
	StatusCompleted,
	StatusCancelled,
	StatusNoShow,
}

// Default lifecycle windows, overridable via config
const (
	// DefaultNoShowGraceMinutes how long past start_time a confirmed booking
	// may stay unactivated before the sweep marks it no_show
	DefaultNoShowGraceMinutes = 30

	// DefaultOverstayGraceMinutes how long past end_time an overstay booking
	// may stay unchecked-out before the sweep completes it
	DefaultOverstayGraceMinutes = 120

	// DefaultHourlyRate fallback price per hour when the organization has none configured
	DefaultHourlyRate = 50.0
)

// Business validation constants
const (
	MaxVehicleNumberLength = 20
	MaxBookingHours        = 24 * 7
	MaxCancelReasonLength  = 500
)

// OccupyingStatusStrings returns OccupyingStatuses as plain strings for SQL filters
func OccupyingStatusStrings() []string {
	out := make([]string, len(OccupyingStatuses))
	for i, s := range OccupyingStatuses {
		out[i] = string(s)
	}
	return out
}
