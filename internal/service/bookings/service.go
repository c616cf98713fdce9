package bookings

import (
	"context"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
	bookingRepo "github.com/m04kA/SMC-ParkingService/internal/infra/storage/booking"
	orgRepo "github.com/m04kA/SMC-ParkingService/internal/infra/storage/organization"
	"github.com/m04kA/SMC-ParkingService/internal/service/bookings/models"
)

// Service сервис переходов жизненного цикла бронирований
//
// Каждый переход — атомарный read-modify-write: строка бронирования блокируется
// в сериализуемой транзакции, CAS-обновление проверяет текущий статус в WHERE,
// и в той же транзакции корректируется счетчик available_slots, если переход
// меняет принадлежность occupying-набору. Два конкурентных checkout-а одной
// строки не потеряют обновление: проигравший получит ErrIllegalTransition
type Service struct {
	bookingRepo  BookingRepository
	orgRepo      OrganizationRepository
	statusCache  StatusCache
	txManager    TransactionManager
	timeProvider TimeProvider
	logger       Logger
}

// NewService создает новый экземпляр сервиса бронирований
func NewService(
	bookingRepo BookingRepository,
	orgRepo OrganizationRepository,
	statusCache StatusCache,
	txManager TransactionManager,
	logger Logger,
) *Service {
	return &Service{
		bookingRepo:  bookingRepo,
		orgRepo:      orgRepo,
		statusCache:  statusCache,
		txManager:    txManager,
		timeProvider: &RealTimeProvider{},
		logger:       logger,
	}
}

// GetByID получает бронирование по ID
// Пользователь видит только собственные бронирования
func (s *Service) GetByID(ctx context.Context, id int64, userID int64) (*models.BookingResponse, error) {
	s.logger.Info("GetByID: fetching booking id=%d for user=%d", id, userID)

	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrBookingNotFound) {
			s.logger.Warn("GetByID: booking id=%d not found", id)
			return nil, ErrBookingNotFound
		}
		s.logger.Error("GetByID: repository error for booking id=%d: %v", id, err)
		return nil, fmt.Errorf("%w: GetByID - repository error: %v", ErrInternal, err)
	}

	if booking.UserID != userID {
		s.logger.Warn("GetByID: access denied for user=%d to booking id=%d", userID, id)
		return nil, ErrAccessDenied
	}

	return models.FromDomainBooking(booking), nil
}

// GetUserBookings получает историю бронирований пользователя
// Опционально фильтрует по статусу
func (s *Service) GetUserBookings(ctx context.Context, req *models.GetUserBookingsRequest) (*models.BookingListResponse, error) {
	s.logger.Info("GetUserBookings: fetching bookings for user=%d, status=%v", req.UserID, req.Status)

	var domainStatus *domain.BookingStatus
	if req.Status != nil {
		status, err := models.ToDomainBookingStatus(*req.Status)
		if err != nil {
			s.logger.Warn("GetUserBookings: invalid status=%s for user=%d", *req.Status, req.UserID)
			return nil, fmt.Errorf("%w: invalid status", ErrInvalidInput)
		}
		domainStatus = &status
	}

	bookings, err := s.bookingRepo.GetByUserID(ctx, req.UserID, domainStatus)
	if err != nil {
		s.logger.Error("GetUserBookings: repository error for user=%d: %v", req.UserID, err)
		return nil, fmt.Errorf("%w: GetUserBookings - repository error: %v", ErrInternal, err)
	}

	return models.FromDomainBookingList(bookings), nil
}

// Checkin активирует подтвержденное бронирование (confirmed -> active)
// Выполняется watchman-ом при въезде; слот уже занят, счетчик не меняется
func (s *Service) Checkin(ctx context.Context, bookingID int64) (*models.BookingResponse, error) {
	s.logger.Info("Checkin: activating booking id=%d", bookingID)

	var result *domain.Booking

	err := s.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		booking, err := s.getForTransition(txCtx, "Checkin", bookingID)
		if err != nil {
			return err
		}

		if booking.Status != domain.StatusConfirmed {
			s.logger.Warn("Checkin: illegal transition %s -> active for booking id=%d", booking.Status, bookingID)
			return ErrIllegalTransition
		}

		// Активация до начала бронирования запрещена: occupying-переход confirmed -> active
		// привязан к booking_start_time
		if !booking.HasStarted(s.timeProvider.Now()) {
			s.logger.Warn("Checkin: booking id=%d has not started yet (start=%s)",
				bookingID, booking.StartTime)
			return ErrNotStarted
		}

		if err := s.casUpdate(txCtx, "Checkin", bookingID,
			[]domain.BookingStatus{domain.StatusConfirmed}, domain.StatusActive); err != nil {
			return err
		}

		booking.Status = domain.StatusActive
		result = booking
		return nil
	})

	if err != nil {
		return nil, err
	}

	s.statusCache.Invalidate(ctx, result.OrganizationID)
	s.logger.Info("Checkin: booking id=%d is now active on slot %s", bookingID, result.SlotNumber)
	return models.FromDomainBooking(result), nil
}

// Checkout завершает бронирование (active|overstay -> completed) и освобождает слот
func (s *Service) Checkout(ctx context.Context, bookingID int64) (*models.BookingResponse, error) {
	s.logger.Info("Checkout: completing booking id=%d", bookingID)

	var result *domain.Booking

	err := s.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		booking, err := s.getForTransition(txCtx, "Checkout", bookingID)
		if err != nil {
			return err
		}

		if !domain.CanTransition(booking.Status, domain.StatusCompleted) {
			s.logger.Warn("Checkout: illegal transition %s -> completed for booking id=%d",
				booking.Status, bookingID)
			return ErrIllegalTransition
		}

		if err := s.casUpdate(txCtx, "Checkout", bookingID,
			[]domain.BookingStatus{domain.StatusActive, domain.StatusOverstay},
			domain.StatusCompleted); err != nil {
			return err
		}

		// Бронирование покидает occupying-набор — слот освобождается
		s.releaseSlot(txCtx, "Checkout", booking.OrganizationID)

		booking.Status = domain.StatusCompleted
		result = booking
		return nil
	})

	if err != nil {
		return nil, err
	}

	s.statusCache.Invalidate(ctx, result.OrganizationID)
	s.logger.Info("Checkout: booking id=%d completed, slot %s released", bookingID, result.SlotNumber)
	return models.FromDomainBooking(result), nil
}

// Cancel отменяет бронирование (pending|confirmed -> cancelled)
// Доступно только владельцу бронирования, до активации
func (s *Service) Cancel(ctx context.Context, bookingID int64, req *models.CancelBookingRequest) error {
	s.logger.Info("Cancel: cancelling booking id=%d by user=%d", bookingID, req.UserID)

	if len(req.CancellationReason) > domain.MaxCancelReasonLength {
		return fmt.Errorf("%w: cancellation reason is too long", ErrInvalidInput)
	}

	var organizationID int64

	err := s.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		booking, err := s.getForTransition(txCtx, "Cancel", bookingID)
		if err != nil {
			return err
		}

		if booking.UserID != req.UserID {
			s.logger.Warn("Cancel: access denied for user=%d to booking id=%d", req.UserID, bookingID)
			return ErrAccessDenied
		}

		if !booking.CanBeCancelled() {
			s.logger.Warn("Cancel: illegal transition %s -> cancelled for booking id=%d",
				booking.Status, bookingID)
			return ErrIllegalTransition
		}

		wasOccupying := booking.IsOccupying()

		if err := s.bookingRepo.CancelIf(txCtx, bookingID,
			[]domain.BookingStatus{domain.StatusPending, domain.StatusConfirmed},
			req.CancellationReason); err != nil {
			if errors.Is(err, bookingRepo.ErrStatusNotUpdated) {
				return ErrIllegalTransition
			}
			s.logger.Error("Cancel: repository error for booking id=%d: %v", bookingID, err)
			return fmt.Errorf("%w: Cancel - repository error: %v", ErrInternal, err)
		}

		// pending не занимал слот; отмена confirmed возвращает слот в пул
		if wasOccupying {
			s.releaseSlot(txCtx, "Cancel", booking.OrganizationID)
		}

		organizationID = booking.OrganizationID
		return nil
	})

	if err != nil {
		return err
	}

	s.statusCache.Invalidate(ctx, organizationID)
	s.logger.Info("Cancel: booking id=%d cancelled by user=%d", bookingID, req.UserID)
	return nil
}

// Confirm подтверждает pending-бронирование (pending -> confirmed)
// pending не занимал слот, поэтому перед входом в occupying-набор слот
// перепроверяется: его мог занять другой запрос
func (s *Service) Confirm(ctx context.Context, bookingID int64) (*models.BookingResponse, error) {
	s.logger.Info("Confirm: confirming booking id=%d", bookingID)

	var result *domain.Booking

	err := s.txManager.DoSerializable(ctx, func(txCtx context.Context) error {
		booking, err := s.getForTransition(txCtx, "Confirm", bookingID)
		if err != nil {
			return err
		}

		if booking.Status != domain.StatusPending {
			s.logger.Warn("Confirm: illegal transition %s -> confirmed for booking id=%d",
				booking.Status, bookingID)
			return ErrIllegalTransition
		}

		occupying, err := s.bookingRepo.CountOccupyingOnSlot(txCtx, booking.ParkingLotID, booking.SlotNumber)
		if err != nil {
			s.logger.Error("Confirm: failed to check slot %s: %v", booking.SlotNumber, err)
			return fmt.Errorf("%w: Confirm - failed to check slot: %v", ErrInternal, err)
		}
		if occupying > 0 {
			s.logger.Warn("Confirm: slot %s of booking id=%d is no longer free", booking.SlotNumber, bookingID)
			return ErrSlotTaken
		}

		if err := s.casUpdate(txCtx, "Confirm", bookingID,
			[]domain.BookingStatus{domain.StatusPending}, domain.StatusConfirmed); err != nil {
			return err
		}

		// Бронирование входит в occupying-набор — слот занимается
		if err := s.orgRepo.AdjustAvailableSlots(txCtx, booking.OrganizationID, -1); err != nil {
			if errors.Is(err, orgRepo.ErrCounterOutOfRange) {
				s.logger.Warn("Confirm: available_slots counter drifted for org=%d, left for reconciler",
					booking.OrganizationID)
			} else {
				s.logger.Error("Confirm: failed to adjust available_slots for org=%d: %v",
					booking.OrganizationID, err)
				return fmt.Errorf("%w: Confirm - failed to adjust available_slots: %v", ErrInternal, err)
			}
		}

		booking.Status = domain.StatusConfirmed
		result = booking
		return nil
	})

	if err != nil {
		return nil, err
	}

	s.statusCache.Invalidate(ctx, result.OrganizationID)
	s.logger.Info("Confirm: booking id=%d confirmed on slot %s", bookingID, result.SlotNumber)
	return models.FromDomainBooking(result), nil
}

// getForTransition загружает бронирование под блокировкой строки
func (s *Service) getForTransition(ctx context.Context, op string, bookingID int64) (*domain.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, bookingRepo.ErrBookingNotFound) {
			s.logger.Warn("%s: booking id=%d not found", op, bookingID)
			return nil, ErrBookingNotFound
		}
		s.logger.Error("%s: repository error for booking id=%d: %v", op, bookingID, err)
		return nil, fmt.Errorf("%w: %s - repository error: %v", ErrInternal, op, err)
	}
	return booking, nil
}

// casUpdate выполняет CAS-обновление статуса; несработавший CAS — недопустимый переход
func (s *Service) casUpdate(ctx context.Context, op string, bookingID int64, from []domain.BookingStatus, to domain.BookingStatus) error {
	if err := s.bookingRepo.UpdateStatusIf(ctx, bookingID, from, to); err != nil {
		if errors.Is(err, bookingRepo.ErrStatusNotUpdated) {
			return ErrIllegalTransition
		}
		s.logger.Error("%s: repository error for booking id=%d: %v", op, bookingID, err)
		return fmt.Errorf("%w: %s - repository error: %v", ErrInternal, op, err)
	}
	return nil
}

// releaseSlot инкрементирует available_slots; выход за границы — признак дрейфа,
// который исправит реконсиляция, а не повод откатывать переход
func (s *Service) releaseSlot(ctx context.Context, op string, organizationID int64) {
	if err := s.orgRepo.AdjustAvailableSlots(ctx, organizationID, 1); err != nil {
		if errors.Is(err, orgRepo.ErrCounterOutOfRange) {
			s.logger.Warn("%s: available_slots counter drifted for org=%d, left for reconciler",
				op, organizationID)
			return
		}
		s.logger.Error("%s: failed to increment available_slots for org=%d: %v", op, organizationID, err)
	}
}
