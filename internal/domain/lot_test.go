package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatSlotNumber(t *testing.T) {
	assert.Equal(t, "L7-004", FormatSlotNumber(7, 4))
	assert.Equal(t, "L1-001", FormatSlotNumber(1, 1))
	assert.Equal(t, "L42-120", FormatSlotNumber(42, 120))

	// Indexes above 999 widen without truncation
	assert.Equal(t, "L3-1000", FormatSlotNumber(3, 1000))
}

func TestParseSlotIndex(t *testing.T) {
	index, err := ParseSlotIndex("L7-004")
	assert.NoError(t, err)
	assert.Equal(t, 4, index)

	index, err = ParseSlotIndex("L42-120")
	assert.NoError(t, err)
	assert.Equal(t, 120, index)

	for _, malformed := range []string{"", "L7", "L7-", "L7-abc", "L7-0", "7004"} {
		_, err := ParseSlotIndex(malformed)
		assert.Error(t, err, "parsing %q must fail", malformed)
	}
}

func TestFormatParse_RoundTrip(t *testing.T) {
	// Renaming a lot never changes slot identity: only the code and index matter
	for index := 1; index <= 12; index++ {
		parsed, err := ParseSlotIndex(FormatSlotNumber(9, index))
		assert.NoError(t, err)
		assert.Equal(t, index, parsed)
	}
}

func TestParkingLot_InRange(t *testing.T) {
	lot := &ParkingLot{TotalSlots: 5}

	assert.True(t, lot.InRange(1))
	assert.True(t, lot.InRange(5))
	assert.False(t, lot.InRange(0))
	assert.False(t, lot.InRange(6))
	assert.False(t, lot.InRange(-1))
}

func TestOrganization_ComputeAvailable(t *testing.T) {
	org := &Organization{TotalSlots: 10}

	assert.Equal(t, 10, org.ComputeAvailable(0))
	assert.Equal(t, 7, org.ComputeAvailable(3))
	assert.Equal(t, 0, org.ComputeAvailable(10))

	// Clamped when bookings exceed capacity or the count is negative
	assert.Equal(t, 0, org.ComputeAvailable(15))
	assert.Equal(t, 10, org.ComputeAvailable(-1))
}
