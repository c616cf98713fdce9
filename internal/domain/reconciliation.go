package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReconciliationRun is the audit record of one occupancy reconciliation pass
// over a single organization. Rows are written only when work was done or
// drift was found; they are never updated or deleted.
type ReconciliationRun struct {
	RunID          uuid.UUID
	OrganizationID int64

	// StoredAvailable is the available_slots value found before correction
	StoredAvailable int

	// CorrectedAvailable is the value recomputed from booking state
	CorrectedAvailable int

	// Delta is CorrectedAvailable - StoredAvailable; zero means no drift
	Delta int

	OccupiedCount int

	RanAt time.Time
}

// HasDrift returns true if the stored counter differed from the recomputed value
func (r *ReconciliationRun) HasDrift() bool {
	return r.Delta != 0
}
