package reconcile_organization

import (
	"time"

	"github.com/m04kA/SMC-ParkingService/internal/usecase/reconcile"
)

// ReconcileResponse HTTP-модель результата реконсиляции организации
type ReconcileResponse struct {
	OrganizationID     int64 `json:"organizationId"`
	OccupiedCount      int   `json:"occupiedCount"`
	StoredAvailable    int   `json:"storedAvailable"`
	CorrectedAvailable int   `json:"correctedAvailable"`
	Delta              int   `json:"delta"`
	DriftDetected      bool  `json:"driftDetected"`
	Overstays          int64 `json:"overstays"`
	NoShows            int64 `json:"noShows"`
	AutoCompleted      int64 `json:"autoCompleted"`

	RanAt string `json:"ranAt"`
}

// FromUseCaseResult конвертирует результат use case в HTTP-модель
func FromUseCaseResult(r *reconcile.Result) *ReconcileResponse {
	return &ReconcileResponse{
		OrganizationID:     r.OrganizationID,
		OccupiedCount:      r.OccupiedCount,
		StoredAvailable:    r.StoredAvailable,
		CorrectedAvailable: r.CorrectedAvailable,
		Delta:              r.Delta,
		DriftDetected:      r.DriftDetected(),
		Overstays:          r.Overstays,
		NoShows:            r.NoShows,
		AutoCompleted:      r.AutoCompleted,
		RanAt:              r.RanAt.Format(time.RFC3339),
	}
}
