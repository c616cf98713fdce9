package reconcile

import "time"

// Result результат реконсиляции одной организации
type Result struct {
	OrganizationID     int64
	OccupiedCount      int
	StoredAvailable    int // значение available_slots до прохода
	CorrectedAvailable int // значение, пересчитанное из состояния бронирований
	Delta              int // CorrectedAvailable - StoredAvailable; 0 — дрейфа не было

	// Количество переходов, выполненных time-triggered sweep-ами этого прохода
	Overstays     int64
	NoShows       int64
	AutoCompleted int64

	RanAt time.Time
}

// DriftDetected сообщает, был ли исправлен дрейф счетчика
func (r *Result) DriftDetected() bool {
	return r.Delta != 0
}

// BulkResult результат реконсиляции всех организаций
type BulkResult struct {
	Results []*Result

	// Failed — организации, чей проход завершился ошибкой (остальные не прерываются)
	Failed map[int64]error
}

// CorrectedCount число организаций с исправленным дрейфом
func (b *BulkResult) CorrectedCount() int {
	count := 0
	for _, r := range b.Results {
		if r.DriftDetected() {
			count++
		}
	}
	return count
}
