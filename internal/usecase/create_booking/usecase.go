package create_booking

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
	orgRepo "github.com/m04kA/SMC-ParkingService/internal/infra/storage/organization"
)

// UseCase use case аллокации слота и создания бронирования
//
// Аллокация детерминирована и аудируема: активные лоты обходятся по возрастанию
// priority_order, внутри лота выбирается наименьший свободный индекс. Сканирование
// занятости и вставка бронирования выполняются одной сериализуемой транзакцией с
// блокировкой строки организации, поэтому два конкурентных запроса не могут
// получить один и тот же слот — проигравший конфликт сериализации повторяется
// менеджером транзакций поверх уже обновленной занятости
type UseCase struct {
	bookingRepo  BookingRepository
	orgRepo      OrganizationRepository
	statusCache  StatusCache
	txManager    TransactionManager
	timeProvider TimeProvider
	hourlyRate   float64
	logger       Logger
}

// NewUseCase создает новый экземпляр use case
func NewUseCase(
	bookingRepo BookingRepository,
	orgRepo OrganizationRepository,
	statusCache StatusCache,
	txManager TransactionManager,
	hourlyRate float64,
	logger Logger,
) *UseCase {
	if hourlyRate <= 0 {
		hourlyRate = domain.DefaultHourlyRate
	}
	return &UseCase{
		bookingRepo:  bookingRepo,
		orgRepo:      orgRepo,
		statusCache:  statusCache,
		txManager:    txManager,
		timeProvider: &RealTimeProvider{},
		hourlyRate:   hourlyRate,
		logger:       logger,
	}
}

// Execute выполняет аллокацию: выбирает свободный слот и создает бронирование
// Либо успех сразу, либо ErrNoCapacity — очереди на переподписанный спрос нет
func (uc *UseCase) Execute(ctx context.Context, req *Request) (*Response, error) {
	uc.logger.Info("CreateBooking: user=%d, org=%d, vehicle=%s, start=%s, end=%s",
		req.UserID, req.OrganizationID, req.VehicleNumber,
		req.StartTime.Format(time.RFC3339), req.EndTime.Format(time.RFC3339))

	if err := validateRequest(req); err != nil {
		uc.logger.Warn("CreateBooking: validation failed: %v", err)
		return nil, err
	}

	var result *domain.Booking

	err := uc.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		// Блокируем строку организации — аллокация сериализуется по организации
		org, err := uc.orgRepo.GetByID(txCtx, req.OrganizationID)
		if err != nil {
			if errors.Is(err, orgRepo.ErrOrganizationNotFound) {
				uc.logger.Warn("CreateBooking: organization id=%d not found", req.OrganizationID)
				return ErrOrganizationNotFound
			}
			uc.logger.Error("CreateBooking: failed to get organization id=%d: %v", req.OrganizationID, err)
			return fmt.Errorf("%w: failed to get organization: %v", ErrInternal, err)
		}

		lots, err := uc.orgRepo.ListActiveLots(txCtx, req.OrganizationID)
		if err != nil {
			uc.logger.Error("CreateBooking: failed to list lots for org=%d: %v", req.OrganizationID, err)
			return fmt.Errorf("%w: failed to list lots: %v", ErrInternal, err)
		}

		lot, slotIndex, err := uc.pickSlot(txCtx, lots)
		if err != nil {
			if errors.Is(err, ErrNoCapacity) {
				uc.logger.Warn("CreateBooking: no capacity in org=%d (%d active lots)",
					req.OrganizationID, len(lots))
			}
			return err
		}

		slotNumber := domain.FormatSlotNumber(lot.LotCode, slotIndex)
		hours := durationHours(req.StartTime, req.EndTime)

		booking := &domain.Booking{
			OrganizationID: req.OrganizationID,
			ParkingLotID:   lot.ID,
			SlotNumber:     slotNumber,
			UserID:         req.UserID,
			VehicleNumber:  req.VehicleNumber,
			StartTime:      req.StartTime,
			EndTime:        req.EndTime,
			DurationHours:  hours,
			Amount:         uc.bookingAmount(org, hours),
			Status:         domain.StatusConfirmed,
			PaymentStatus:  domain.PaymentPending,
		}

		created, err := uc.bookingRepo.Create(txCtx, booking)
		if err != nil {
			uc.logger.Error("CreateBooking: failed to create booking on slot %s: %v", slotNumber, err)
			return fmt.Errorf("%w: failed to create booking: %v", ErrInternal, err)
		}

		// Счетчик available_slots обновляется в той же транзакции, что и вставка:
		// состояние бронирований остается первичным источником, реконсиляция — бэкстопом
		if err := uc.orgRepo.AdjustAvailableSlots(txCtx, req.OrganizationID, -1); err != nil {
			if errors.Is(err, orgRepo.ErrCounterOutOfRange) {
				// Счетчик уже дрейфовал; бронирование остается в силе
				uc.logger.Warn("CreateBooking: available_slots counter drifted for org=%d, left for reconciler",
					req.OrganizationID)
			} else {
				uc.logger.Error("CreateBooking: failed to decrement available_slots for org=%d: %v",
					req.OrganizationID, err)
				return fmt.Errorf("%w: failed to adjust available_slots: %v", ErrInternal, err)
			}
		}

		result = created
		return nil
	})

	if err != nil {
		return nil, err
	}

	uc.statusCache.Invalidate(ctx, req.OrganizationID)

	uc.logger.Info("CreateBooking: successfully created booking id=%d, lot=%d, slot=%s",
		result.ID, result.ParkingLotID, result.SlotNumber)

	return &Response{
		ID:             result.ID,
		OrganizationID: result.OrganizationID,
		ParkingLotID:   result.ParkingLotID,
		SlotNumber:     result.SlotNumber,
		UserID:         result.UserID,
		VehicleNumber:  result.VehicleNumber,
		StartTime:      result.StartTime,
		EndTime:        result.EndTime,
		DurationHours:  result.DurationHours,
		Amount:         result.Amount,
		Status:         string(result.Status),
		PaymentStatus:  string(result.PaymentStatus),
		CreatedAt:      result.CreatedAt,
		UpdatedAt:      result.UpdatedAt,
	}, nil
}

// pickSlot выбирает первый свободный слот: лоты по возрастанию priority_order,
// внутри лота наименьший свободный индекс из [1, total_slots]
func (uc *UseCase) pickSlot(ctx context.Context, lots []*domain.ParkingLot) (*domain.ParkingLot, int, error) {
	for _, lot := range lots {
		occupiedNumbers, err := uc.bookingRepo.GetOccupiedSlotNumbers(ctx, lot.ID)
		if err != nil {
			uc.logger.Error("CreateBooking: failed to get occupied slots for lot=%d: %v", lot.ID, err)
			return nil, 0, fmt.Errorf("%w: failed to get occupied slots: %v", ErrInternal, err)
		}

		occupied := make(map[int]bool, len(occupiedNumbers))
		for _, slotNumber := range occupiedNumbers {
			index, err := domain.ParseSlotIndex(slotNumber)
			if err != nil {
				// Строка с нераспознаваемым slot_number занимает неизвестный индекс;
				// пропускаем её, реконсиляция выровняет счетчик
				uc.logger.Warn("CreateBooking: malformed slot_number %q in lot=%d", slotNumber, lot.ID)
				continue
			}
			occupied[index] = true
		}

		for index := 1; index <= lot.TotalSlots; index++ {
			if !occupied[index] {
				return lot, index, nil
			}
		}
	}

	return nil, 0, ErrNoCapacity
}

// bookingAmount считает стоимость бронирования
// member_parking_free влияет только на цену, не на занятость
func (uc *UseCase) bookingAmount(org *domain.Organization, hours int) float64 {
	if org.MemberParkingFree {
		return 0
	}
	return uc.hourlyRate * float64(hours)
}

// durationHours длительность бронирования в часах, с округлением вверх
func durationHours(start, end time.Time) int {
	return int(math.Ceil(end.Sub(start).Hours()))
}
