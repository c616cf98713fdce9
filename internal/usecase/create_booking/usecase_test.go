package create_booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
	orgRepo "github.com/m04kA/SMC-ParkingService/internal/infra/storage/organization"
)

// Mock структуры

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) Create(ctx context.Context, booking *domain.Booking) (*domain.Booking, error) {
	args := m.Called(ctx, booking)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) GetOccupiedSlotNumbers(ctx context.Context, lotID int64) ([]string, error) {
	args := m.Called(ctx, lotID)
	return args.Get(0).([]string), args.Error(1)
}

type MockOrganizationRepository struct {
	mock.Mock
}

func (m *MockOrganizationRepository) GetByID(ctx context.Context, id int64) (*domain.Organization, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Organization), args.Error(1)
}

func (m *MockOrganizationRepository) ListActiveLots(ctx context.Context, organizationID int64) ([]*domain.ParkingLot, error) {
	args := m.Called(ctx, organizationID)
	return args.Get(0).([]*domain.ParkingLot), args.Error(1)
}

func (m *MockOrganizationRepository) AdjustAvailableSlots(ctx context.Context, organizationID int64, delta int) error {
	args := m.Called(ctx, organizationID, delta)
	return args.Error(0)
}

type MockStatusCache struct {
	mock.Mock
}

func (m *MockStatusCache) Invalidate(ctx context.Context, organizationID int64) {
	m.Called(ctx, organizationID)
}

// fakeTxManager выполняет функцию без реальной транзакции
type fakeTxManager struct{}

func (f *fakeTxManager) DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type nopLogger struct{}

func (nopLogger) Info(format string, v ...interface{})  {}
func (nopLogger) Warn(format string, v ...interface{})  {}
func (nopLogger) Error(format string, v ...interface{}) {}

func newTestUseCase(bookingRepo *MockBookingRepository, organizationRepo *MockOrganizationRepository, cache *MockStatusCache) *UseCase {
	return &UseCase{
		bookingRepo:  bookingRepo,
		orgRepo:      organizationRepo,
		statusCache:  cache,
		txManager:    &fakeTxManager{},
		timeProvider: &RealTimeProvider{},
		hourlyRate:   100,
		logger:       nopLogger{},
	}
}

func validRequest() *Request {
	start := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	return &Request{
		UserID:         7,
		OrganizationID: 1,
		VehicleNumber:  "А123ВС77",
		StartTime:      start,
		EndTime:        start.Add(3 * time.Hour),
	}
}

// Тест 1: Успешная аллокация — наименьший свободный индекс в приоритетном лоте
func TestCreateBooking_Success_LowestFreeIndex(t *testing.T) {
	mockBookingRepo := &MockBookingRepository{}
	mockOrgRepo := &MockOrganizationRepository{}
	mockCache := &MockStatusCache{}
	uc := newTestUseCase(mockBookingRepo, mockOrgRepo, mockCache)

	ctx := context.Background()
	req := validRequest()

	org := &domain.Organization{ID: 1, TotalSlots: 10, AvailableSlots: 7}
	lots := []*domain.ParkingLot{
		{ID: 11, LotCode: 7, TotalSlots: 5, PriorityOrder: 1, IsActive: true},
	}

	mockOrgRepo.On("GetByID", ctx, int64(1)).Return(org, nil).Once()
	mockOrgRepo.On("ListActiveLots", ctx, int64(1)).Return(lots, nil).Once()
	// Индексы 1 и 2 заняты, дыра на 3
	mockBookingRepo.On("GetOccupiedSlotNumbers", ctx, int64(11)).
		Return([]string{"L7-001", "L7-002", "L7-004"}, nil).Once()
	mockBookingRepo.On("Create", ctx, mock.AnythingOfType("*domain.Booking")).
		Run(func(args mock.Arguments) {
			b := args.Get(1).(*domain.Booking)
			assert.Equal(t, "L7-003", b.SlotNumber)
			assert.Equal(t, domain.StatusConfirmed, b.Status)
			assert.Equal(t, domain.PaymentPending, b.PaymentStatus)
			assert.Equal(t, 3, b.DurationHours)
			assert.Equal(t, 300.0, b.Amount)
			b.ID = 42
		}).
		Return(&domain.Booking{ID: 42, OrganizationID: 1, ParkingLotID: 11, SlotNumber: "L7-003",
			Status: domain.StatusConfirmed, PaymentStatus: domain.PaymentPending}, nil).Once()
	mockOrgRepo.On("AdjustAvailableSlots", ctx, int64(1), -1).Return(nil).Once()
	mockCache.On("Invalidate", ctx, int64(1)).Once()

	resp, err := uc.Execute(ctx, req)

	assert.NoError(t, err)
	assert.NotNil(t, resp)
	assert.Equal(t, int64(42), resp.ID)
	assert.Equal(t, "L7-003", resp.SlotNumber)

	mockBookingRepo.AssertExpectations(t)
	mockOrgRepo.AssertExpectations(t)
	mockCache.AssertExpectations(t)
}

// Тест 2: Переполненный приоритетный лот — аллокация переливается в следующий
func TestCreateBooking_SpillsToNextLot(t *testing.T) {
	mockBookingRepo := &MockBookingRepository{}
	mockOrgRepo := &MockOrganizationRepository{}
	mockCache := &MockStatusCache{}
	uc := newTestUseCase(mockBookingRepo, mockOrgRepo, mockCache)

	ctx := context.Background()
	req := validRequest()

	org := &domain.Organization{ID: 1, TotalSlots: 5, AvailableSlots: 3}
	lots := []*domain.ParkingLot{
		{ID: 11, LotCode: 1, TotalSlots: 2, PriorityOrder: 1, IsActive: true},
		{ID: 12, LotCode: 2, TotalSlots: 3, PriorityOrder: 2, IsActive: true},
	}

	mockOrgRepo.On("GetByID", ctx, int64(1)).Return(org, nil).Once()
	mockOrgRepo.On("ListActiveLots", ctx, int64(1)).Return(lots, nil).Once()
	mockBookingRepo.On("GetOccupiedSlotNumbers", ctx, int64(11)).
		Return([]string{"L1-001", "L1-002"}, nil).Once()
	mockBookingRepo.On("GetOccupiedSlotNumbers", ctx, int64(12)).
		Return([]string{"L2-001"}, nil).Once()
	mockBookingRepo.On("Create", ctx, mock.AnythingOfType("*domain.Booking")).
		Run(func(args mock.Arguments) {
			b := args.Get(1).(*domain.Booking)
			assert.Equal(t, int64(12), b.ParkingLotID)
			assert.Equal(t, "L2-002", b.SlotNumber)
		}).
		Return(&domain.Booking{ID: 43, OrganizationID: 1, ParkingLotID: 12, SlotNumber: "L2-002",
			Status: domain.StatusConfirmed}, nil).Once()
	mockOrgRepo.On("AdjustAvailableSlots", ctx, int64(1), -1).Return(nil).Once()
	mockCache.On("Invalidate", ctx, int64(1)).Once()

	resp, err := uc.Execute(ctx, req)

	assert.NoError(t, err)
	assert.Equal(t, "L2-002", resp.SlotNumber)

	mockBookingRepo.AssertExpectations(t)
	mockOrgRepo.AssertExpectations(t)
}

// Тест 3: Нет свободных слотов — ErrNoCapacity без вставки и без изменения счетчика
func TestCreateBooking_NoCapacity(t *testing.T) {
	mockBookingRepo := &MockBookingRepository{}
	mockOrgRepo := &MockOrganizationRepository{}
	mockCache := &MockStatusCache{}
	uc := newTestUseCase(mockBookingRepo, mockOrgRepo, mockCache)

	ctx := context.Background()
	req := validRequest()

	org := &domain.Organization{ID: 1, TotalSlots: 2, AvailableSlots: 0}
	lots := []*domain.ParkingLot{
		{ID: 11, LotCode: 1, TotalSlots: 2, PriorityOrder: 1, IsActive: true},
	}

	mockOrgRepo.On("GetByID", ctx, int64(1)).Return(org, nil).Once()
	mockOrgRepo.On("ListActiveLots", ctx, int64(1)).Return(lots, nil).Once()
	mockBookingRepo.On("GetOccupiedSlotNumbers", ctx, int64(11)).
		Return([]string{"L1-001", "L1-002"}, nil).Once()

	resp, err := uc.Execute(ctx, req)

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrNoCapacity)

	mockBookingRepo.AssertNotCalled(t, "Create")
	mockOrgRepo.AssertNotCalled(t, "AdjustAvailableSlots")
	mockCache.AssertNotCalled(t, "Invalidate")
}

// Тест 4: Организация не найдена
func TestCreateBooking_OrganizationNotFound(t *testing.T) {
	mockBookingRepo := &MockBookingRepository{}
	mockOrgRepo := &MockOrganizationRepository{}
	mockCache := &MockStatusCache{}
	uc := newTestUseCase(mockBookingRepo, mockOrgRepo, mockCache)

	ctx := context.Background()
	req := validRequest()

	mockOrgRepo.On("GetByID", ctx, int64(1)).Return(nil, orgRepo.ErrOrganizationNotFound).Once()

	resp, err := uc.Execute(ctx, req)

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrOrganizationNotFound)
	mockOrgRepo.AssertExpectations(t)
}

// Тест 5: member_parking_free обнуляет цену, но не занятость
func TestCreateBooking_MemberParkingFree(t *testing.T) {
	mockBookingRepo := &MockBookingRepository{}
	mockOrgRepo := &MockOrganizationRepository{}
	mockCache := &MockStatusCache{}
	uc := newTestUseCase(mockBookingRepo, mockOrgRepo, mockCache)

	ctx := context.Background()
	req := validRequest()

	org := &domain.Organization{ID: 1, TotalSlots: 5, AvailableSlots: 5, MemberParkingFree: true}
	lots := []*domain.ParkingLot{
		{ID: 11, LotCode: 1, TotalSlots: 5, PriorityOrder: 1, IsActive: true},
	}

	mockOrgRepo.On("GetByID", ctx, int64(1)).Return(org, nil).Once()
	mockOrgRepo.On("ListActiveLots", ctx, int64(1)).Return(lots, nil).Once()
	mockBookingRepo.On("GetOccupiedSlotNumbers", ctx, int64(11)).Return([]string{}, nil).Once()
	mockBookingRepo.On("Create", ctx, mock.AnythingOfType("*domain.Booking")).
		Run(func(args mock.Arguments) {
			b := args.Get(1).(*domain.Booking)
			assert.Equal(t, 0.0, b.Amount)
		}).
		Return(&domain.Booking{ID: 44, OrganizationID: 1, ParkingLotID: 11, SlotNumber: "L1-001"}, nil).Once()
	// Слот все равно занимается
	mockOrgRepo.On("AdjustAvailableSlots", ctx, int64(1), -1).Return(nil).Once()
	mockCache.On("Invalidate", ctx, int64(1)).Once()

	_, err := uc.Execute(ctx, req)

	assert.NoError(t, err)
	mockBookingRepo.AssertExpectations(t)
	mockOrgRepo.AssertExpectations(t)
}

// Тест 6: Нераспознаваемый slot_number пропускается, его индекс не блокирует аллокацию
func TestCreateBooking_MalformedSlotNumberSkipped(t *testing.T) {
	mockBookingRepo := &MockBookingRepository{}
	mockOrgRepo := &MockOrganizationRepository{}
	mockCache := &MockStatusCache{}
	uc := newTestUseCase(mockBookingRepo, mockOrgRepo, mockCache)

	ctx := context.Background()
	req := validRequest()

	org := &domain.Organization{ID: 1, TotalSlots: 2, AvailableSlots: 1}
	lots := []*domain.ParkingLot{
		{ID: 11, LotCode: 1, TotalSlots: 2, PriorityOrder: 1, IsActive: true},
	}

	mockOrgRepo.On("GetByID", ctx, int64(1)).Return(org, nil).Once()
	mockOrgRepo.On("ListActiveLots", ctx, int64(1)).Return(lots, nil).Once()
	mockBookingRepo.On("GetOccupiedSlotNumbers", ctx, int64(11)).
		Return([]string{"garbage", "L1-001"}, nil).Once()
	mockBookingRepo.On("Create", ctx, mock.AnythingOfType("*domain.Booking")).
		Run(func(args mock.Arguments) {
			assert.Equal(t, "L1-002", args.Get(1).(*domain.Booking).SlotNumber)
		}).
		Return(&domain.Booking{ID: 45, OrganizationID: 1, ParkingLotID: 11, SlotNumber: "L1-002"}, nil).Once()
	mockOrgRepo.On("AdjustAvailableSlots", ctx, int64(1), -1).Return(nil).Once()
	mockCache.On("Invalidate", ctx, int64(1)).Once()

	_, err := uc.Execute(ctx, req)

	assert.NoError(t, err)
	mockBookingRepo.AssertExpectations(t)
}

// Тест 7: Дрейф счетчика не отменяет аллокацию
func TestCreateBooking_CounterDriftTolerated(t *testing.T) {
	mockBookingRepo := &MockBookingRepository{}
	mockOrgRepo := &MockOrganizationRepository{}
	mockCache := &MockStatusCache{}
	uc := newTestUseCase(mockBookingRepo, mockOrgRepo, mockCache)

	ctx := context.Background()
	req := validRequest()

	org := &domain.Organization{ID: 1, TotalSlots: 5, AvailableSlots: 0} // счетчик уже врет
	lots := []*domain.ParkingLot{
		{ID: 11, LotCode: 1, TotalSlots: 5, PriorityOrder: 1, IsActive: true},
	}

	mockOrgRepo.On("GetByID", ctx, int64(1)).Return(org, nil).Once()
	mockOrgRepo.On("ListActiveLots", ctx, int64(1)).Return(lots, nil).Once()
	mockBookingRepo.On("GetOccupiedSlotNumbers", ctx, int64(11)).Return([]string{}, nil).Once()
	mockBookingRepo.On("Create", ctx, mock.AnythingOfType("*domain.Booking")).
		Return(&domain.Booking{ID: 46, OrganizationID: 1, ParkingLotID: 11, SlotNumber: "L1-001"}, nil).Once()
	mockOrgRepo.On("AdjustAvailableSlots", ctx, int64(1), -1).Return(orgRepo.ErrCounterOutOfRange).Once()
	mockCache.On("Invalidate", ctx, int64(1)).Once()

	resp, err := uc.Execute(ctx, req)

	assert.NoError(t, err)
	assert.NotNil(t, resp)
	mockOrgRepo.AssertExpectations(t)
}

// Тест 8: Валидация входных данных
func TestCreateBooking_ValidationErrors(t *testing.T) {
	uc := newTestUseCase(&MockBookingRepository{}, &MockOrganizationRepository{}, &MockStatusCache{})
	ctx := context.Background()
	start := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)

	testCases := []struct {
		name string
		req  *Request
	}{
		{
			name: "missing user",
			req:  &Request{OrganizationID: 1, VehicleNumber: "X", StartTime: start, EndTime: start.Add(time.Hour)},
		},
		{
			name: "missing organization",
			req:  &Request{UserID: 7, VehicleNumber: "X", StartTime: start, EndTime: start.Add(time.Hour)},
		},
		{
			name: "missing vehicle",
			req:  &Request{UserID: 7, OrganizationID: 1, StartTime: start, EndTime: start.Add(time.Hour)},
		},
		{
			name: "end before start",
			req:  &Request{UserID: 7, OrganizationID: 1, VehicleNumber: "X", StartTime: start, EndTime: start.Add(-time.Hour)},
		},
		{
			name: "end equals start",
			req:  &Request{UserID: 7, OrganizationID: 1, VehicleNumber: "X", StartTime: start, EndTime: start},
		},
		{
			name: "too long",
			req:  &Request{UserID: 7, OrganizationID: 1, VehicleNumber: "X", StartTime: start, EndTime: start.Add(200 * 24 * time.Hour)},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := uc.Execute(ctx, tc.req)
			assert.Nil(t, resp)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

// Тест 9: Неполный последний час оплачивается целиком
func TestDurationHours_RoundsUp(t *testing.T) {
	start := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, 1, durationHours(start, start.Add(time.Hour)))
	assert.Equal(t, 2, durationHours(start, start.Add(90*time.Minute)))
	assert.Equal(t, 1, durationHours(start, start.Add(time.Minute)))
	assert.Equal(t, 24, durationHours(start, start.Add(24*time.Hour)))
}
