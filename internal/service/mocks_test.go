package service

import (
	"context"
	"time"

	"github.com/basepark/smartpark/internal/domain"
	"github.com/basepark/smartpark/internal/dto"
)

// MockSpotRepository is a mock implementation of repository.SpotRepository
type MockSpotRepository struct {
	GetAllFunc          func(ctx context.Context) ([]*domain.Spot, error)
	GetByIDFunc         func(ctx context.Context, spotID string) (*domain.Spot, error)
	ReserveFunc         func(ctx context.Context, spotID, plate, name string, until *time.Time) error
	OccupyFunc          func(ctx context.Context, spotID, plate string, until *time.Time) error
	OccupyAvailableFunc func(ctx context.Context, spotID, plate, name string, until *time.Time) error
	ClaimAvailableFunc  func(ctx context.Context, plate, name string, until *time.Time) (string, error)
	ReleaseFunc         func(ctx context.Context, spotID string) error
	OverrideFunc        func(ctx context.Context, spot *domain.Spot, expectedVersion int64) error
	ResetAllFunc        func(ctx context.Context) error
	ReplaceAllFunc      func(ctx context.Context, spots []*domain.Spot) error
}

func (m *MockSpotRepository) GetAll(ctx context.Context) ([]*domain.Spot, error) {
	if m.GetAllFunc != nil {
		return m.GetAllFunc(ctx)
	}
	return []*domain.Spot{}, nil
}

func (m *MockSpotRepository) GetByID(ctx context.Context, spotID string) (*domain.Spot, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, spotID)
	}
	return nil, domain.ErrSpotNotFound
}

func (m *MockSpotRepository) Reserve(ctx context.Context, spotID, plate, name string, until *time.Time) error {
	if m.ReserveFunc != nil {
		return m.ReserveFunc(ctx, spotID, plate, name, until)
	}
	return nil
}

func (m *MockSpotRepository) Occupy(ctx context.Context, spotID, plate string, until *time.Time) error {
	if m.OccupyFunc != nil {
		return m.OccupyFunc(ctx, spotID, plate, until)
	}
	return nil
}

func (m *MockSpotRepository) OccupyAvailable(ctx context.Context, spotID, plate, name string, until *time.Time) error {
	if m.OccupyAvailableFunc != nil {
		return m.OccupyAvailableFunc(ctx, spotID, plate, name, until)
	}
	return nil
}

func (m *MockSpotRepository) ClaimAvailable(ctx context.Context, plate, name string, until *time.Time) (string, error) {
	if m.ClaimAvailableFunc != nil {
		return m.ClaimAvailableFunc(ctx, plate, name, until)
	}
	return "A01", nil
}

func (m *MockSpotRepository) Release(ctx context.Context, spotID string) error {
	if m.ReleaseFunc != nil {
		return m.ReleaseFunc(ctx, spotID)
	}
	return nil
}

func (m *MockSpotRepository) Override(ctx context.Context, spot *domain.Spot, expectedVersion int64) error {
	if m.OverrideFunc != nil {
		return m.OverrideFunc(ctx, spot, expectedVersion)
	}
	return nil
}

func (m *MockSpotRepository) ResetAll(ctx context.Context) error {
	if m.ResetAllFunc != nil {
		return m.ResetAllFunc(ctx)
	}
	return nil
}

func (m *MockSpotRepository) ReplaceAll(ctx context.Context, spots []*domain.Spot) error {
	if m.ReplaceAllFunc != nil {
		return m.ReplaceAllFunc(ctx, spots)
	}
	return nil
}

// MockReservationRepository is a mock implementation of
// repository.ReservationRepository
type MockReservationRepository struct {
	CreateFunc             func(ctx context.Context, res *domain.Reservation) error
	GetByIDFunc            func(ctx context.Context, id int64) (*domain.Reservation, error)
	ListFunc               func(ctx context.Context, statuses []domain.ReservationStatus, limit, offset int) ([]*domain.Reservation, error)
	FindPendingByPlateFunc func(ctx context.Context, plate string) (*domain.Reservation, error)
	FindRunningByPlateFunc func(ctx context.Context, plate string) (*domain.Reservation, error)
	HasRunningForSpotFunc  func(ctx context.Context, spotID string) (bool, error)
	ActivateFunc           func(ctx context.Context, id int64, start, end, detected time.Time) error
	GetExpiredFunc         func(ctx context.Context, now time.Time, limit int) ([]*domain.Reservation, error)
	MarkExpiredFunc        func(ctx context.Context, id int64) error
	GetStalePendingFunc    func(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Reservation, error)
	CancelFunc             func(ctx context.Context, id int64) error
	ClearFunc              func(ctx context.Context) error
}

func (m *MockReservationRepository) Create(ctx context.Context, res *domain.Reservation) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, res)
	}
	res.ID = 1
	return nil
}

func (m *MockReservationRepository) GetByID(ctx context.Context, id int64) (*domain.Reservation, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, domain.ErrReservationNotFound
}

func (m *MockReservationRepository) List(ctx context.Context, statuses []domain.ReservationStatus, limit, offset int) ([]*domain.Reservation, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, statuses, limit, offset)
	}
	return []*domain.Reservation{}, nil
}

func (m *MockReservationRepository) FindPendingByPlate(ctx context.Context, plate string) (*domain.Reservation, error) {
	if m.FindPendingByPlateFunc != nil {
		return m.FindPendingByPlateFunc(ctx, plate)
	}
	return nil, nil
}

func (m *MockReservationRepository) FindRunningByPlate(ctx context.Context, plate string) (*domain.Reservation, error) {
	if m.FindRunningByPlateFunc != nil {
		return m.FindRunningByPlateFunc(ctx, plate)
	}
	return nil, nil
}

func (m *MockReservationRepository) HasRunningForSpot(ctx context.Context, spotID string) (bool, error) {
	if m.HasRunningForSpotFunc != nil {
		return m.HasRunningForSpotFunc(ctx, spotID)
	}
	return false, nil
}

func (m *MockReservationRepository) Activate(ctx context.Context, id int64, start, end, detected time.Time) error {
	if m.ActivateFunc != nil {
		return m.ActivateFunc(ctx, id, start, end, detected)
	}
	return nil
}

func (m *MockReservationRepository) GetExpired(ctx context.Context, now time.Time, limit int) ([]*domain.Reservation, error) {
	if m.GetExpiredFunc != nil {
		return m.GetExpiredFunc(ctx, now, limit)
	}
	return []*domain.Reservation{}, nil
}

func (m *MockReservationRepository) MarkExpired(ctx context.Context, id int64) error {
	if m.MarkExpiredFunc != nil {
		return m.MarkExpiredFunc(ctx, id)
	}
	return nil
}

func (m *MockReservationRepository) GetStalePending(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Reservation, error) {
	if m.GetStalePendingFunc != nil {
		return m.GetStalePendingFunc(ctx, cutoff, limit)
	}
	return []*domain.Reservation{}, nil
}

func (m *MockReservationRepository) Cancel(ctx context.Context, id int64) error {
	if m.CancelFunc != nil {
		return m.CancelFunc(ctx, id)
	}
	return nil
}

func (m *MockReservationRepository) Clear(ctx context.Context) error {
	if m.ClearFunc != nil {
		return m.ClearFunc(ctx)
	}
	return nil
}

// MockQueueRepository is a mock implementation of repository.QueueRepository
type MockQueueRepository struct {
	EnqueueFunc      func(ctx context.Context, entry *domain.QueueEntry) error
	ListFunc         func(ctx context.Context) ([]*domain.QueueEntry, error)
	PendingCountFunc func(ctx context.Context) (int, error)
	DequeueNextFunc  func(ctx context.Context) (*domain.QueueEntry, error)
	ClearFunc        func(ctx context.Context) error
}

func (m *MockQueueRepository) Enqueue(ctx context.Context, entry *domain.QueueEntry) error {
	if m.EnqueueFunc != nil {
		return m.EnqueueFunc(ctx, entry)
	}
	entry.ID = 1
	return nil
}

func (m *MockQueueRepository) List(ctx context.Context) ([]*domain.QueueEntry, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return []*domain.QueueEntry{}, nil
}

func (m *MockQueueRepository) PendingCount(ctx context.Context) (int, error) {
	if m.PendingCountFunc != nil {
		return m.PendingCountFunc(ctx)
	}
	return 1, nil
}

func (m *MockQueueRepository) DequeueNext(ctx context.Context) (*domain.QueueEntry, error) {
	if m.DequeueNextFunc != nil {
		return m.DequeueNextFunc(ctx)
	}
	return nil, nil
}

func (m *MockQueueRepository) Clear(ctx context.Context) error {
	if m.ClearFunc != nil {
		return m.ClearFunc(ctx)
	}
	return nil
}

// MockDetectionRepository is a mock implementation of
// repository.DetectionRepository
type MockDetectionRepository struct {
	RecordFunc func(ctx context.Context, rec *domain.DetectionRecord) error
	RecentFunc func(ctx context.Context, limit int) ([]*domain.DetectionRecord, error)
	ClearFunc  func(ctx context.Context) error
}

func (m *MockDetectionRepository) Record(ctx context.Context, rec *domain.DetectionRecord) error {
	if m.RecordFunc != nil {
		return m.RecordFunc(ctx, rec)
	}
	return nil
}

func (m *MockDetectionRepository) Recent(ctx context.Context, limit int) ([]*domain.DetectionRecord, error) {
	if m.RecentFunc != nil {
		return m.RecentFunc(ctx, limit)
	}
	return []*domain.DetectionRecord{}, nil
}

func (m *MockDetectionRepository) Clear(ctx context.Context) error {
	if m.ClearFunc != nil {
		return m.ClearFunc(ctx)
	}
	return nil
}

// MockSettingsRepository is a mock implementation of
// repository.SettingsRepository
type MockSettingsRepository struct {
	GetFunc           func(ctx context.Context) (*domain.SystemSettings, error)
	UpdateFunc        func(ctx context.Context, settings *domain.SystemSettings) error
	RecordActionFunc  func(ctx context.Context, action *domain.SystemAction) error
	RecentActionsFunc func(ctx context.Context, limit int) ([]*domain.SystemAction, error)
}

func (m *MockSettingsRepository) Get(ctx context.Context) (*domain.SystemSettings, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx)
	}
	return domain.DefaultSettings(time.Now()), nil
}

func (m *MockSettingsRepository) Update(ctx context.Context, settings *domain.SystemSettings) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, settings)
	}
	return nil
}

func (m *MockSettingsRepository) RecordAction(ctx context.Context, action *domain.SystemAction) error {
	if m.RecordActionFunc != nil {
		return m.RecordActionFunc(ctx, action)
	}
	return nil
}

func (m *MockSettingsRepository) RecentActions(ctx context.Context, limit int) ([]*domain.SystemAction, error) {
	if m.RecentActionsFunc != nil {
		return m.RecentActionsFunc(ctx, limit)
	}
	return []*domain.SystemAction{}, nil
}

// MockUserRepository is a mock implementation of repository.UserRepository
type MockUserRepository struct {
	GetByUsernameFunc   func(ctx context.Context, username string) (*domain.AdminUser, error)
	UpdateLastLoginFunc func(ctx context.Context, id int64, at time.Time) error
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*domain.AdminUser, error) {
	if m.GetByUsernameFunc != nil {
		return m.GetByUsernameFunc(ctx, username)
	}
	return nil, domain.ErrInvalidCredentials
}

func (m *MockUserRepository) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	if m.UpdateLastLoginFunc != nil {
		return m.UpdateLastLoginFunc(ctx, id, at)
	}
	return nil
}

// MockNotifier is a mock implementation of Notifier
type MockNotifier struct {
	NotifySpotAvailableFunc        func(ctx context.Context, entry *domain.QueueEntry, spotID string) error
	NotifyQueueJoinedFunc          func(ctx context.Context, entry *domain.QueueEntry, position int) error
	NotifyReservationConfirmedFunc func(ctx context.Context, res *domain.Reservation, contact string) error
}

func (m *MockNotifier) NotifySpotAvailable(ctx context.Context, entry *domain.QueueEntry, spotID string) error {
	if m.NotifySpotAvailableFunc != nil {
		return m.NotifySpotAvailableFunc(ctx, entry, spotID)
	}
	return nil
}

func (m *MockNotifier) NotifyQueueJoined(ctx context.Context, entry *domain.QueueEntry, position int) error {
	if m.NotifyQueueJoinedFunc != nil {
		return m.NotifyQueueJoinedFunc(ctx, entry, position)
	}
	return nil
}

func (m *MockNotifier) NotifyReservationConfirmed(ctx context.Context, res *domain.Reservation, contact string) error {
	if m.NotifyReservationConfirmedFunc != nil {
		return m.NotifyReservationConfirmedFunc(ctx, res, contact)
	}
	return nil
}

// MockQueueService is a mock implementation of QueueService
type MockQueueService struct {
	JoinFunc        func(ctx context.Context, req *dto.JoinQueueRequest) (*dto.JoinQueueResponse, error)
	ListFunc        func(ctx context.Context) (*dto.QueueListResponse, error)
	HandOffSpotFunc func(ctx context.Context, spotID string) (bool, error)
}

func (m *MockQueueService) Join(ctx context.Context, req *dto.JoinQueueRequest) (*dto.JoinQueueResponse, error) {
	if m.JoinFunc != nil {
		return m.JoinFunc(ctx, req)
	}
	return &dto.JoinQueueResponse{}, nil
}

func (m *MockQueueService) List(ctx context.Context) (*dto.QueueListResponse, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return &dto.QueueListResponse{}, nil
}

func (m *MockQueueService) HandOffSpot(ctx context.Context, spotID string) (bool, error) {
	if m.HandOffSpotFunc != nil {
		return m.HandOffSpotFunc(ctx, spotID)
	}
	return false, nil
}
