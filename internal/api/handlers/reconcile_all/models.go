package reconcile_all

import (
	"time"

	"github.com/m04kA/SMC-ParkingService/internal/usecase/reconcile"
)

// OrganizationResult результат реконсиляции одной организации
type OrganizationResult struct {
	OrganizationID     int64  `json:"organizationId"`
	OccupiedCount      int    `json:"occupiedCount"`
	StoredAvailable    int    `json:"storedAvailable"`
	CorrectedAvailable int    `json:"correctedAvailable"`
	Delta              int    `json:"delta"`
	DriftDetected      bool   `json:"driftDetected"`
	Overstays          int64  `json:"overstays"`
	NoShows            int64  `json:"noShows"`
	AutoCompleted      int64  `json:"autoCompleted"`
	RanAt              string `json:"ranAt"`
}

// ReconcileAllResponse HTTP-модель результата полной реконсиляции
type ReconcileAllResponse struct {
	Results        []*OrganizationResult `json:"results"`
	CorrectedCount int                   `json:"correctedCount"`
	Failed         map[int64]string      `json:"failed,omitempty"`
}

// FromUseCaseResult конвертирует результат use case в HTTP-модель
func FromUseCaseResult(bulk *reconcile.BulkResult) *ReconcileAllResponse {
	resp := &ReconcileAllResponse{
		Results:        make([]*OrganizationResult, 0, len(bulk.Results)),
		CorrectedCount: bulk.CorrectedCount(),
	}

	for _, r := range bulk.Results {
		resp.Results = append(resp.Results, &OrganizationResult{
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
		})
	}

	if len(bulk.Failed) > 0 {
		resp.Failed = make(map[int64]string, len(bulk.Failed))
		for orgID, err := range bulk.Failed {
			resp.Failed[orgID] = err.Error()
		}
	}

	return resp
}
