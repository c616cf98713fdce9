package bookings

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/m04kA/SMC-ParkingService/internal/domain"
	bookingRepo "github.com/m04kA/SMC-ParkingService/internal/infra/storage/booking"
	orgRepo "github.com/m04kA/SMC-ParkingService/internal/infra/storage/organization"
	"github.com/m04kA/SMC-ParkingService/internal/service/bookings/models"
)

// Mock структуры

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) GetByUserID(ctx context.Context, userID int64, status *domain.BookingStatus) ([]*domain.Booking, error) {
	args := m.Called(ctx, userID, status)
	return args.Get(0).([]*domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) CountOccupyingOnSlot(ctx context.Context, lotID int64, slotNumber string) (int, error) {
	args := m.Called(ctx, lotID, slotNumber)
	return args.Int(0), args.Error(1)
}

func (m *MockBookingRepository) UpdateStatusIf(ctx context.Context, id int64, from []domain.BookingStatus, to domain.BookingStatus) error {
	args := m.Called(ctx, id, from, to)
	return args.Error(0)
}

func (m *MockBookingRepository) CancelIf(ctx context.Context, id int64, from []domain.BookingStatus, reason string) error {
	args := m.Called(ctx, id, from, reason)
	return args.Error(0)
}

type MockOrganizationRepository struct {
	mock.Mock
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

type fakeTxManager struct{}

func (f *fakeTxManager) DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type nopLogger struct{}

func (nopLogger) Info(format string, v ...interface{})  {}
func (nopLogger) Warn(format string, v ...interface{})  {}
func (nopLogger) Error(format string, v ...interface{}) {}

type fixedTimeProvider struct {
	now time.Time
}

func (p *fixedTimeProvider) Now() time.Time {
	return p.now
}

var testNow = time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)

func newTestService(bookingRepository *MockBookingRepository, organizationRepository *MockOrganizationRepository, cache *MockStatusCache) *Service {
	return &Service{
		bookingRepo:  bookingRepository,
		orgRepo:      organizationRepository,
		statusCache:  cache,
		txManager:    &fakeTxManager{},
		timeProvider: &fixedTimeProvider{now: testNow},
		logger:       nopLogger{},
	}
}

func confirmedBooking() *domain.Booking {
	return &domain.Booking{
		ID:             10,
		OrganizationID: 1,
		ParkingLotID:   11,
		SlotNumber:     "L7-003",
		UserID:         7,
		Status:         domain.StatusConfirmed,
		StartTime:      testNow.Add(-time.Hour),
		EndTime:        testNow.Add(2 * time.Hour),
	}
}

// Тест 1: Check-in успешно активирует подтвержденное бронирование
func TestService_Checkin_Success(t *testing.T) {
	mockBookingRepo := &MockBookingRepository{}
	mockOrgRepo := &MockOrganizationRepository{}
	mockCache := &MockStatusCache{}
	service := newTestService(mockBookingRepo, mockOrgRepo, mockCache)

	ctx := context.Background()
	booking := confirmedBooking()

	mockBookingRepo.On("GetByID", ctx, int64(10)).Return(booking, nil).Once()
	mockBookingRepo.On("UpdateStatusIf", ctx, int64(10),
		[]domain.BookingStatus{domain.StatusConfirmed}, domain.StatusActive).Return(nil).Once()
	mockCache.On("Invalidate", ctx, int64(1)).Once()

	resp, err := service.Checkin(ctx, 10)

	assert.NoError(t, err)
	assert.Equal(t, string(domain.StatusActive), resp.Status)

	// Бронирование уже занимало слот — счетчик не трогаем
	mockOrgRepo.AssertNotCalled(t, "AdjustAvailableSlots")
	mockBookingRepo.AssertExpectations(t)
	mockCache.AssertExpectations(t)
}

// Тест 2: Check-in до начала бронирования запрещен
func TestService_Checkin_BeforeStart(t *testing.T) {
	mockBookingRepo := &MockBookingRepository{}
	mockOrgRepo := &MockOrganizationRepository{}
	mockCache := &MockStatusCache{}
	service := newTestService(mockBookingRepo, mockOrgRepo, mockCache)

	ctx := context.Background()
	booking := confirmedBooking()
	booking.StartTime = testNow.Add(time.Hour)

	mockBookingRepo.On("GetByID", ctx, int64(10)).Return(booking, nil).Once()

	resp, err := service.Checkin(ctx, 10)

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrNotStarted)
	mockBookingRepo.AssertNotCalled(t, "UpdateStatusIf")
	mockCache.AssertNotCalled(t, "Invalidate")
}

// Тест 3: Check-in из недопустимого статуса
func TestService_Checkin_IllegalTransition(t *testing.T) {
	mockBookingRepo := &MockBookingRepository{}
	mockOrgRepo := &MockOrganizationRepository{}
	mockCache := &MockStatusCache{}
	service := newTestService(mockBookingRepo, mockOrgRepo, mockCache)

	ctx := context.Background()
	booking := confirmedBooking()
	booking.Status = domain.StatusCompleted

	mockBookingRepo.On("GetByID", ctx, int64(10)).Return(booking, nil).Once()

	resp, err := service.Checkin(ctx, 10)

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrIllegalTransition)
}

// Тест 4: Checkout завершает active-бронирование и освобождает слот
func TestService_Checkout_ReleasesSlot(t *testing.T) {
	mockBookingRepo := &MockBookingRepository{}
	mockOrgRepo := &MockOrganizationRepository{}
	mockCache := &MockStatusCache{}
	service := newTestService(mockBookingRepo, mockOrgRepo, mockCache)

	ctx := context.Background()
	booking := confirmedBooking()
	booking.Status = domain.StatusActive

	mockBookingRepo.On("GetByID", ctx, int64(10)).Return(booking, nil).Once()
	mockBookingRepo.On("UpdateStatusIf", ctx, int64(10),
		[]domain.BookingStatus{domain.StatusActive, domain.StatusOverstay},
		domain.StatusCompleted).Return(nil).Once()
	mockOrgRepo.On("AdjustAvailableSlots", ctx, int64(1), 1).Return(nil).Once()
	mockCache.On("Invalidate", ctx, int64(1)).Once()

	resp, err := service.Checkout(ctx, 10)

	assert.NoError(t, err)
	assert.Equal(t, string(domain.StatusCompleted), resp.Status)

	mockBookingRepo.AssertExpectations(t)
	mockOrgRepo.AssertExpectations(t)
}

// Тест 5: Checkout работает и из overstay (поздний выезд)
func TestService_Checkout_FromOverstay(t *testing.T) {
	mockBookingRepo := &MockBookingRepository{}
	mockOrgRepo := &MockOrganizationRepository{}
	mockCache := &MockStatusCache{}
	service := newTestService(mockBookingRepo, mockOrgRepo, mockCache)

	ctx := context.Background()
	booking := confirmedBooking()
	booking.Status = domain.StatusOverstay

	mockBookingRepo.On("GetByID", ctx, int64(10)).Return(booking, nil).Once()
	mockBookingRepo.On("UpdateStatusIf", ctx, int64(10),
		[]domain.BookingStatus{domain.StatusActive, domain.StatusOverstay},
		domain.StatusCompleted).Return(nil).Once()
	mockOrgRepo.On("AdjustAvailableSlots", ctx, int64(1), 1).Return(nil).Once()
	mockCache.On("Invalidate", ctx, int64(1)).Once()

	resp, err := service.Checkout(ctx, 10)

	assert.NoError(t, err)
	assert.Equal(t, string(domain.StatusCompleted), resp.Status)
}

// Тест 6: Проигравший CAS получает ErrIllegalTransition, слот не освобождается дважды
func TestService_Checkout_LosesCAS(t *testing.T) {
	mockBookingRepo := &MockBookingRepository{}
	mockOrgRepo := &MockOrganizationRepository{}
	mockCache := &MockStatusCache{}
	service := newTestService(mockBookingRepo, mockOrgRepo, mockCache)

	ctx := context.Background()
	booking := confirmedBooking()
	booking.Status = domain.StatusActive

	mockBookingRepo.On("GetByID", ctx, int64(10)).Return(booking, nil).Once()
	mockBookingRepo.On("UpdateStatusIf", ctx, int64(10), mock.Anything, domain.StatusCompleted).
		Return(bookingRepo.ErrStatusNotUpdated).Once()

	resp, err := service.Checkout(ctx, 10)

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrIllegalTransition)
	mockOrgRepo.AssertNotCalled(t, "AdjustAvailableSlots")
	mockCache.AssertNotCalled(t, "Invalidate")
}

// Тест 7: Отмена подтвержденного бронирования владельцем освобождает слот
func TestService_Cancel_ConfirmedReleasesSlot(t *testing.T) {
	mockBookingRepo := &MockBookingRepository{}
	mockOrgRepo := &MockOrganizationRepository{}
	mockCache := &MockStatusCache{}
	service := newTestService(mockBookingRepo, mockOrgRepo, mockCache)

	ctx := context.Background()
	booking := confirmedBooking()

	mockBookingRepo.On("GetByID", ctx, int64(10)).Return(booking, nil).Once()
	mockBookingRepo.On("CancelIf", ctx, int64(10),
		[]domain.BookingStatus{domain.StatusPending, domain.StatusConfirmed},
		"планы изменились").Return(nil).Once()
	mockOrgRepo.On("AdjustAvailableSlots", ctx, int64(1), 1).Return(nil).Once()
	mockCache.On("Invalidate", ctx, int64(1)).Once()

	err := service.Cancel(ctx, 10, &models.CancelBookingRequest{
		UserID:             7,
		CancellationReason: "планы изменились",
	})

	assert.NoError(t, err)
	mockBookingRepo.AssertExpectations(t)
	mockOrgRepo.AssertExpectations(t)
}

// Тест 8: Отмена pending-бронирования не трогает счетчик — слот не был занят
func TestService_Cancel_PendingKeepsCounter(t *testing.T) {
	mockBookingRepo := &MockBookingRepository{}
	mockOrgRepo := &MockOrganizationRepository{}
	mockCache := &MockStatusCache{}
	service := newTestService(mockBookingRepo, mockOrgRepo, mockCache)

	ctx := context.Background()
	booking := confirmedBooking()
	booking.Status = domain.StatusPending

	mockBookingRepo.On("GetByID", ctx, int64(10)).Return(booking, nil).Once()
	mockBookingRepo.On("CancelIf", ctx, int64(10), mock.Anything, "").Return(nil).Once()
	mockCache.On("Invalidate", ctx, int64(1)).Once()

	err := service.Cancel(ctx, 10, &models.CancelBookingRequest{UserID: 7})

	assert.NoError(t, err)
	mockOrgRepo.AssertNotCalled(t, "AdjustAvailableSlots")
}

// Тест 9: Отмена чужого бронирования запрещена
func TestService_Cancel_AccessDenied(t *testing.T) {
	mockBookingRepo := &MockBookingRepository{}
	mockOrgRepo := &MockOrganizationRepository{}
	mockCache := &MockStatusCache{}
	service := newTestService(mockBookingRepo, mockOrgRepo, mockCache)

	ctx := context.Background()
	booking := confirmedBooking()

	mockBookingRepo.On("GetByID", ctx, int64(10)).Return(booking, nil).Once()

	err := service.Cancel(ctx, 10, &models.CancelBookingRequest{UserID: 999})

	assert.ErrorIs(t, err, ErrAccessDenied)
	mockBookingRepo.AssertNotCalled(t, "CancelIf")
}

// Тест 10: Отмена активного бронирования запрещена
func TestService_Cancel_ActiveIsIllegal(t *testing.T) {
	mockBookingRepo := &MockBookingRepository{}
	mockOrgRepo := &MockOrganizationRepository{}
	mockCache := &MockStatusCache{}
	service := newTestService(mockBookingRepo, mockOrgRepo, mockCache)

	ctx := context.Background()
	booking := confirmedBooking()
	booking.Status = domain.StatusActive

	mockBookingRepo.On("GetByID", ctx, int64(10)).Return(booking, nil).Once()

	err := service.Cancel(ctx, 10, &models.CancelBookingRequest{UserID: 7})

	assert.ErrorIs(t, err, ErrIllegalTransition)
	mockBookingRepo.AssertNotCalled(t, "CancelIf")
}

// Тест 11: Confirm перепроверяет слот — занятый слот дает ErrSlotTaken
func TestService_Confirm_SlotTaken(t *testing.T) {
	mockBookingRepo := &MockBookingRepository{}
	mockOrgRepo := &MockOrganizationRepository{}
	mockCache := &MockStatusCache{}
	service := newTestService(mockBookingRepo, mockOrgRepo, mockCache)

	ctx := context.Background()
	booking := confirmedBooking()
	booking.Status = domain.StatusPending

	mockBookingRepo.On("GetByID", ctx, int64(10)).Return(booking, nil).Once()
	mockBookingRepo.On("CountOccupyingOnSlot", ctx, int64(11), "L7-003").Return(1, nil).Once()

	resp, err := service.Confirm(ctx, 10)

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrSlotTaken)
	mockBookingRepo.AssertNotCalled(t, "UpdateStatusIf")
}

// Тест 12: Confirm занимает слот и декрементирует счетчик
func TestService_Confirm_Success(t *testing.T) {
	mockBookingRepo := &MockBookingRepository{}
	mockOrgRepo := &MockOrganizationRepository{}
	mockCache := &MockStatusCache{}
	service := newTestService(mockBookingRepo, mockOrgRepo, mockCache)

	ctx := context.Background()
	booking := confirmedBooking()
	booking.Status = domain.StatusPending

	mockBookingRepo.On("GetByID", ctx, int64(10)).Return(booking, nil).Once()
	mockBookingRepo.On("CountOccupyingOnSlot", ctx, int64(11), "L7-003").Return(0, nil).Once()
	mockBookingRepo.On("UpdateStatusIf", ctx, int64(10),
		[]domain.BookingStatus{domain.StatusPending}, domain.StatusConfirmed).Return(nil).Once()
	mockOrgRepo.On("AdjustAvailableSlots", ctx, int64(1), -1).Return(nil).Once()
	mockCache.On("Invalidate", ctx, int64(1)).Once()

	resp, err := service.Confirm(ctx, 10)

	assert.NoError(t, err)
	assert.Equal(t, string(domain.StatusConfirmed), resp.Status)
	mockBookingRepo.AssertExpectations(t)
	mockOrgRepo.AssertExpectations(t)
}

// Тест 13: Дрейф счетчика при checkout не откатывает переход
func TestService_Checkout_CounterDriftTolerated(t *testing.T) {
	mockBookingRepo := &MockBookingRepository{}
	mockOrgRepo := &MockOrganizationRepository{}
	mockCache := &MockStatusCache{}
	service := newTestService(mockBookingRepo, mockOrgRepo, mockCache)

	ctx := context.Background()
	booking := confirmedBooking()
	booking.Status = domain.StatusActive

	mockBookingRepo.On("GetByID", ctx, int64(10)).Return(booking, nil).Once()
	mockBookingRepo.On("UpdateStatusIf", ctx, int64(10), mock.Anything, domain.StatusCompleted).
		Return(nil).Once()
	mockOrgRepo.On("AdjustAvailableSlots", ctx, int64(1), 1).
		Return(orgRepo.ErrCounterOutOfRange).Once()
	mockCache.On("Invalidate", ctx, int64(1)).Once()

	resp, err := service.Checkout(ctx, 10)

	assert.NoError(t, err)
	assert.Equal(t, string(domain.StatusCompleted), resp.Status)
}

// Тест 14: GetByID чужого бронирования
func TestService_GetByID_AccessDenied(t *testing.T) {
	mockBookingRepo := &MockBookingRepository{}
	mockOrgRepo := &MockOrganizationRepository{}
	mockCache := &MockStatusCache{}
	service := newTestService(mockBookingRepo, mockOrgRepo, mockCache)

	ctx := context.Background()
	mockBookingRepo.On("GetByID", ctx, int64(10)).Return(confirmedBooking(), nil).Once()

	resp, err := service.GetByID(ctx, 10, 999)

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrAccessDenied)
}

// Тест 15: GetByID не найдено
func TestService_GetByID_NotFound(t *testing.T) {
	mockBookingRepo := &MockBookingRepository{}
	mockOrgRepo := &MockOrganizationRepository{}
	mockCache := &MockStatusCache{}
	service := newTestService(mockBookingRepo, mockOrgRepo, mockCache)

	ctx := context.Background()
	mockBookingRepo.On("GetByID", ctx, int64(10)).Return(nil, bookingRepo.ErrBookingNotFound).Once()

	resp, err := service.GetByID(ctx, 10, 7)

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

// Тест 16: Фильтр истории по некорректному статусу
func TestService_GetUserBookings_InvalidStatus(t *testing.T) {
	mockBookingRepo := &MockBookingRepository{}
	mockOrgRepo := &MockOrganizationRepository{}
	mockCache := &MockStatusCache{}
	service := newTestService(mockBookingRepo, mockOrgRepo, mockCache)

	ctx := context.Background()
	bad := "parked"
	resp, err := service.GetUserBookings(ctx, &models.GetUserBookingsRequest{UserID: 7, Status: &bad})

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, ErrInvalidInput)
	mockBookingRepo.AssertNotCalled(t, "GetByUserID")
}

// Тест 17: История с фильтром по статусу
func TestService_GetUserBookings_WithFilter(t *testing.T) {
	mockBookingRepo := &MockBookingRepository{}
	mockOrgRepo := &MockOrganizationRepository{}
	mockCache := &MockStatusCache{}
	service := newTestService(mockBookingRepo, mockOrgRepo, mockCache)

	ctx := context.Background()
	completed := domain.StatusCompleted
	history := []*domain.Booking{
		{ID: 1, UserID: 7, Status: domain.StatusCompleted, SlotNumber: "L1-001"},
		{ID: 2, UserID: 7, Status: domain.StatusCompleted, SlotNumber: "L1-002"},
	}

	mockBookingRepo.On("GetByUserID", ctx, int64(7), &completed).Return(history, nil).Once()

	resp, err := service.GetUserBookings(ctx, &models.GetUserBookingsRequest{
		UserID: 7,
		Status: func() *string { s := "completed"; return &s }(),
	})

	assert.NoError(t, err)
	assert.Equal(t, 2, resp.Total)
	assert.Len(t, resp.Bookings, 2)
}
