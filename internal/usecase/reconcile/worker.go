package reconcile

import (
	"context"
	"time"
)

// RunPeriodic запускает периодическую реконсиляцию всех организаций
// Блокируется до отмены контекста; запускается из main отдельной горутиной
func (uc *UseCase) RunPeriodic(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	uc.logger.Info("Reconcile worker started: interval=%s", interval)

	for {
		select {
		case <-ctx.Done():
			uc.logger.Info("Reconcile worker stopped")
			return
		case <-ticker.C:
			if _, err := uc.ReconcileAll(ctx); err != nil {
				uc.logger.Error("Reconcile worker: pass failed: %v", err)
			}
		}
	}
}
