package handler

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/basepark/smartpark/internal/domain"
	"github.com/basepark/smartpark/internal/dto"
	"github.com/basepark/smartpark/internal/service"
)

// MockParkingService is a mock implementation of service.ParkingService
type MockParkingService struct {
	mock.Mock
}

func (m *MockParkingService) GetSpots(ctx context.Context) (*dto.SpotListResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.SpotListResponse), args.Error(1)
}

func (m *MockParkingService) CreateReservation(ctx context.Context, req *dto.CreateReservationRequest) (*dto.ReservationResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ReservationResponse), args.Error(1)
}

func (m *MockParkingService) CreateWalkIn(ctx context.Context, req *dto.WalkInRequest) (*dto.ReservationResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ReservationResponse), args.Error(1)
}

func (m *MockParkingService) ListReservations(ctx context.Context, status, plate string, limit, offset int) (*dto.ReservationListResponse, error) {
	args := m.Called(ctx, status, plate, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.ReservationListResponse), args.Error(1)
}

func (m *MockParkingService) OverrideSpot(ctx context.Context, spotID string, req *dto.OverrideSpotRequest, admin string) (*dto.SpotResponse, error) {
	args := m.Called(ctx, spotID, req, admin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.SpotResponse), args.Error(1)
}

func (m *MockParkingService) ResetSpots(ctx context.Context, admin string) error {
	args := m.Called(ctx, admin)
	return args.Error(0)
}

func (m *MockParkingService) FactoryReset(ctx context.Context, admin string) error {
	args := m.Called(ctx, admin)
	return args.Error(0)
}

// MockArbitratorService is a mock implementation of service.ArbitratorService
type MockArbitratorService struct {
	mock.Mock
}

func (m *MockArbitratorService) ProcessDetection(ctx context.Context, event *domain.DetectionEvent) (*domain.DetectionResult, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DetectionResult), args.Error(1)
}

func (m *MockArbitratorService) RecentDetections(ctx context.Context, limit int) ([]*dto.DetectionRecordResponse, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*dto.DetectionRecordResponse), args.Error(1)
}

// MockQueueService is a mock implementation of service.QueueService
type MockQueueService struct {
	mock.Mock
}

func (m *MockQueueService) Join(ctx context.Context, req *dto.JoinQueueRequest) (*dto.JoinQueueResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.JoinQueueResponse), args.Error(1)
}

func (m *MockQueueService) List(ctx context.Context) (*dto.QueueListResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.QueueListResponse), args.Error(1)
}

func (m *MockQueueService) HandOffSpot(ctx context.Context, spotID string) (bool, error) {
	args := m.Called(ctx, spotID)
	return args.Bool(0), args.Error(1)
}

// MockSettingsService is a mock implementation of service.SettingsService
type MockSettingsService struct {
	mock.Mock
}

func (m *MockSettingsService) Get(ctx context.Context) (*dto.SettingsResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.SettingsResponse), args.Error(1)
}

func (m *MockSettingsService) Update(ctx context.Context, req *dto.UpdateSettingsRequest, admin string) (*dto.SettingsResponse, error) {
	args := m.Called(ctx, req, admin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.SettingsResponse), args.Error(1)
}

// MockSweeperService is a mock implementation of service.SweeperService
type MockSweeperService struct {
	mock.Mock
}

func (m *MockSweeperService) Sweep(ctx context.Context) (*service.SweepResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SweepResult), args.Error(1)
}

// MockAuthService is a mock implementation of service.AuthService
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.LoginResponse), args.Error(1)
}

func (m *MockAuthService) ValidateToken(tokenString string) (*service.TokenClaims, error) {
	args := m.Called(tokenString)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.TokenClaims), args.Error(1)
}
