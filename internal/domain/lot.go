package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParkingLot is a named, prioritized sub-pool of an organization's capacity
type ParkingLot struct {
	ID             int64
	OrganizationID int64
	Name           string
	Description    *string

	// LotCode is an opaque stable integer key assigned at lot creation.
	// Slot numbers are derived from it instead of the human-editable name,
	// so renaming a lot never changes or collides slot identities.
	LotCode int64

	TotalSlots int

	// PriorityOrder is unique per organization; lower fills first
	PriorityOrder int

	// IsActive excludes the lot from allocation; bookings already placed
	// in an inactive lot keep occupying their slots
	IsActive bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// InRange returns true if index is a valid slot index for the lot
func (l *ParkingLot) InRange(index int) bool {
	return index >= 1 && index <= l.TotalSlots
}

// FormatSlotNumber renders the stable slot identity for a lot code and index,
// e.g. "L7-004". A slot is not a stored row: the pair (lot, index) is the identity.
func FormatSlotNumber(lotCode int64, index int) string {
	return fmt.Sprintf("L%d-%03d", lotCode, index)
}

// ParseSlotIndex extracts the slot index from a slot number produced by
// FormatSlotNumber
func ParseSlotIndex(slotNumber string) (int, error) {
	sep := strings.LastIndex(slotNumber, "-")
	if sep < 0 || sep == len(slotNumber)-1 {
		return 0, fmt.Errorf("invalid slot number %q", slotNumber)
	}
	index, err := strconv.Atoi(slotNumber[sep+1:])
	if err != nil || index < 1 {
		return 0, fmt.Errorf("invalid slot number %q", slotNumber)
	}
	return index, nil
}
