package status

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/m04kA/SMC-ParkingService/internal/infra/cache/orgstatus"
	orgRepo "github.com/m04kA/SMC-ParkingService/internal/infra/storage/organization"
	"github.com/m04kA/SMC-ParkingService/internal/service/status/models"
)

// Service сервис витрины занятости организации
//
// Счетчики всегда пересчитываются от occupying-бронирований: хранимый
// available_slots — производная величина и в витрину не попадает.
// Готовый ответ кэшируется в Redis с коротким TTL; кэш инвалидируется
// аллокатором, переходами жизненного цикла и реконсиляцией
type Service struct {
	bookingRepo BookingRepository
	orgRepo     OrganizationRepository
	cache       Cache
	logger      Logger
}

// NewService создает новый экземпляр сервиса витрины
func NewService(
	bookingRepo BookingRepository,
	orgRepo OrganizationRepository,
	cache Cache,
	logger Logger,
) *Service {
	return &Service{
		bookingRepo: bookingRepo,
		orgRepo:     orgRepo,
		cache:       cache,
		logger:      logger,
	}
}

// GetOrganizationStatus возвращает занятость организации с разбивкой по паркингам
func (s *Service) GetOrganizationStatus(ctx context.Context, organizationID int64) (*models.OrganizationStatusResponse, error) {
	if cached, err := s.cache.Get(ctx, organizationID); err == nil {
		var resp models.OrganizationStatusResponse
		if err := json.Unmarshal(cached, &resp); err == nil {
			return &resp, nil
		}
		s.logger.Warn("GetOrganizationStatus: corrupt cache entry for org=%d, recomputing", organizationID)
	} else if !errors.Is(err, orgstatus.ErrCacheMiss) {
		s.logger.Warn("GetOrganizationStatus: cache read failed for org=%d: %v", organizationID, err)
	}

	resp, err := s.compute(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(resp); err == nil {
		if err := s.cache.Set(ctx, organizationID, payload); err != nil {
			s.logger.Warn("GetOrganizationStatus: cache write failed for org=%d: %v", organizationID, err)
		}
	}

	return resp, nil
}

// compute собирает витрину от состояния бронирований
func (s *Service) compute(ctx context.Context, organizationID int64) (*models.OrganizationStatusResponse, error) {
	org, err := s.orgRepo.GetByID(ctx, organizationID)
	if err != nil {
		if errors.Is(err, orgRepo.ErrOrganizationNotFound) {
			s.logger.Warn("GetOrganizationStatus: organization id=%d not found", organizationID)
			return nil, ErrOrganizationNotFound
		}
		s.logger.Error("GetOrganizationStatus: failed to get organization id=%d: %v", organizationID, err)
		return nil, fmt.Errorf("%w: failed to get organization: %v", ErrInternal, err)
	}

	lots, err := s.orgRepo.ListActiveLots(ctx, organizationID)
	if err != nil {
		s.logger.Error("GetOrganizationStatus: failed to list lots for org=%d: %v", organizationID, err)
		return nil, fmt.Errorf("%w: failed to list lots: %v", ErrInternal, err)
	}

	resp := &models.OrganizationStatusResponse{
		OrganizationID: org.ID,
		Name:           org.Name,
		Lots:           make([]*models.LotStatus, 0, len(lots)),
	}

	for _, lot := range lots {
		occupiedNumbers, err := s.bookingRepo.GetOccupiedSlotNumbers(ctx, lot.ID)
		if err != nil {
			s.logger.Error("GetOrganizationStatus: failed to get occupied slots for lot=%d: %v", lot.ID, err)
			return nil, fmt.Errorf("%w: failed to get occupied slots: %v", ErrInternal, err)
		}

		occupied := len(occupiedNumbers)
		available := lot.TotalSlots - occupied
		if available < 0 {
			available = 0
		}

		resp.Lots = append(resp.Lots, &models.LotStatus{
			LotID:               lot.ID,
			Name:                lot.Name,
			PriorityOrder:       lot.PriorityOrder,
			TotalSlots:          lot.TotalSlots,
			OccupiedSlots:       occupied,
			AvailableSlots:      available,
			OccupiedSlotNumbers: occupiedNumbers,
		})

		resp.TotalSlots += lot.TotalSlots
		resp.OccupiedSlots += occupied
		resp.AvailableSlots += available
	}

	return resp, nil
}
