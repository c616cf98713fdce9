package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
	orgRepo "github.com/m04kA/SMC-ParkingService/internal/infra/storage/organization"
)

// UseCase use case реконсиляции занятости
//
// Реконсиляция — первоклассная замена разовых repair-скриптов: пересчитывает
// занятость из состояния бронирований и исправляет дрейф производного счетчика
// available_slots. Проход идемпотентен и не изменяет строки бронирований, кроме
// time-triggered sweep-ов (overstay / no_show / авто-checkout), которые сами
// идемпотентны. Безопасен при конкурентной аллокации: читает только
// закоммиченные строки в сериализуемой транзакции
type UseCase struct {
	bookingRepo  BookingRepository
	orgRepo      OrganizationRepository
	auditRepo    AuditRepository
	statusCache  StatusCache
	txManager    TransactionManager
	timeProvider TimeProvider
	metrics      MetricsCollector
	logger       Logger

	noShowGrace   time.Duration
	overstayGrace time.Duration
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	bookingRepo BookingRepository,
	orgRepo OrganizationRepository,
	auditRepo AuditRepository,
	statusCache StatusCache,
	txManager TransactionManager,
	metrics MetricsCollector,
	noShowGrace time.Duration,
	overstayGrace time.Duration,
	logger Logger,
) *UseCase {
	if noShowGrace <= 0 {
		noShowGrace = domain.DefaultNoShowGraceMinutes * time.Minute
	}
	if overstayGrace <= 0 {
		overstayGrace = domain.DefaultOverstayGraceMinutes * time.Minute
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &UseCase{
		bookingRepo:   bookingRepo,
		orgRepo:       orgRepo,
		auditRepo:     auditRepo,
		statusCache:   statusCache,
		txManager:     txManager,
		timeProvider:  &RealTimeProvider{},
		metrics:       metrics,
		logger:        logger,
		noShowGrace:   noShowGrace,
		overstayGrace: overstayGrace,
	}
}

// Reconcile выполняет один проход реконсиляции для организации
func (uc *UseCase) Reconcile(ctx context.Context, organizationID int64) (*Result, error) {
	var result *Result

	err := uc.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		r, err := uc.reconcileInTx(txCtx, organizationID)
		if err != nil {
			return err
		}
		result = r
		return nil
	})

	if err != nil {
		uc.metrics.IncReconcileRun("error")
		return nil, err
	}

	uc.metrics.IncReconcileRun("ok")
	uc.statusCache.Invalidate(ctx, organizationID)

	if result.DriftDetected() {
		uc.metrics.IncDriftCorrection(organizationID)
		uc.logger.Warn("Reconcile: drift corrected for org=%d: stored=%d, correct=%d, delta=%+d (occupied=%d)",
			organizationID, result.StoredAvailable, result.CorrectedAvailable, result.Delta, result.OccupiedCount)
	} else {
		uc.logger.Info("Reconcile: org=%d clean: available=%d, occupied=%d (overstay=%d, no_show=%d, auto_completed=%d)",
			organizationID, result.CorrectedAvailable, result.OccupiedCount,
			result.Overstays, result.NoShows, result.AutoCompleted)
	}

	return result, nil
}

// reconcileInTx тело прохода; выполняется внутри сериализуемой транзакции
func (uc *UseCase) reconcileInTx(ctx context.Context, organizationID int64) (*Result, error) {
	// Блокируем строку организации, чтобы не гоняться с аллокатором за счетчик
	org, err := uc.orgRepo.GetByID(ctx, organizationID)
	if err != nil {
		if errors.Is(err, orgRepo.ErrOrganizationNotFound) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("%w: failed to get organization: %v", ErrInternal, err)
	}

	now := uc.timeProvider.Now()

	// Time-triggered sweep-ы перед пересчетом: порядок важен, авто-checkout
	// должен видеть overstay-строки, проставленные этим же проходом
	overstays, err := uc.bookingRepo.MarkOverstays(ctx, organizationID, now)
	if err != nil {
		return nil, fmt.Errorf("%w: overstay sweep: %v", ErrInternal, err)
	}
	uc.metrics.AddSweepTransitions("overstay", overstays)

	noShows, err := uc.bookingRepo.MarkNoShows(ctx, organizationID, now.Add(-uc.noShowGrace))
	if err != nil {
		return nil, fmt.Errorf("%w: no-show sweep: %v", ErrInternal, err)
	}
	uc.metrics.AddSweepTransitions("no_show", noShows)

	autoCompleted, err := uc.bookingRepo.CompleteOverstays(ctx, organizationID, now.Add(-uc.overstayGrace))
	if err != nil {
		return nil, fmt.Errorf("%w: auto-complete sweep: %v", ErrInternal, err)
	}
	uc.metrics.AddSweepTransitions("auto_complete", autoCompleted)

	occupied, err := uc.bookingRepo.CountOccupying(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to count occupying bookings: %v", ErrInternal, err)
	}

	corrected := org.ComputeAvailable(occupied)
	delta := corrected - org.AvailableSlots

	result := &Result{
		OrganizationID:     organizationID,
		OccupiedCount:      occupied,
		StoredAvailable:    org.AvailableSlots,
		CorrectedAvailable: corrected,
		Delta:              delta,
		Overstays:          overstays,
		NoShows:            noShows,
		AutoCompleted:      autoCompleted,
		RanAt:              now,
	}

	if delta != 0 {
		if err := uc.orgRepo.SetAvailableSlots(ctx, organizationID, corrected); err != nil {
			return nil, fmt.Errorf("%w: failed to correct available_slots: %v", ErrInternal, err)
		}
	}

	// Аудит пишем, когда проход что-то изменил; чистые проходы не раздувают журнал
	if delta != 0 || overstays+noShows+autoCompleted > 0 {
		run := &domain.ReconciliationRun{
			RunID:              uuid.New(),
			OrganizationID:     organizationID,
			StoredAvailable:    org.AvailableSlots,
			CorrectedAvailable: corrected,
			Delta:              delta,
			OccupiedCount:      occupied,
			RanAt:              now,
		}
		if err := uc.auditRepo.Create(ctx, run); err != nil {
			return nil, fmt.Errorf("%w: failed to write audit record: %v", ErrInternal, err)
		}
	}

	return result, nil
}

// ReconcileAll выполняет реконсиляцию всех организаций
// Ошибка одной организации не прерывает остальные
func (uc *UseCase) ReconcileAll(ctx context.Context) (*BulkResult, error) {
	ids, err := uc.orgRepo.ListIDs(ctx)
	if err != nil {
		uc.logger.Error("ReconcileAll: failed to list organizations: %v", err)
		return nil, fmt.Errorf("%w: failed to list organizations: %v", ErrInternal, err)
	}

	bulk := &BulkResult{
		Results: make([]*Result, 0, len(ids)),
		Failed:  make(map[int64]error),
	}

	for _, id := range ids {
		result, err := uc.Reconcile(ctx, id)
		if err != nil {
			uc.logger.Error("ReconcileAll: org=%d failed: %v", id, err)
			bulk.Failed[id] = err
			continue
		}
		bulk.Results = append(bulk.Results, result)
	}

	uc.logger.Info("ReconcileAll: %d organizations processed, %d corrected, %d failed",
		len(bulk.Results), bulk.CorrectedCount(), len(bulk.Failed))

	return bulk, nil
}
