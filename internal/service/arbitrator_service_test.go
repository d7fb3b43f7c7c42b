package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basepark/smartpark/internal/domain"
)

func TestArbitratorService_ProcessDetection(t *testing.T) {
	ctx := context.Background()

	t.Run("activates a matching pending reservation", func(t *testing.T) {
		pending := &domain.Reservation{
			ID: 11, SpotID: "A05", PlateNumber: "ABC-123",
			DurationMinutes: 120, Status: domain.ReservationStatusWaiting,
		}
		var activatedID int64
		var activatedEnd time.Time
		resRepo := &MockReservationRepository{
			FindPendingByPlateFunc: func(ctx context.Context, plate string) (*domain.Reservation, error) {
				assert.Equal(t, "ABC-123", plate)
				return pending, nil
			},
			ActivateFunc: func(ctx context.Context, id int64, start, end, detected time.Time) error {
				activatedID = id
				activatedEnd = end
				return nil
			},
		}
		occupied := ""
		spotRepo := &MockSpotRepository{
			OccupyFunc: func(ctx context.Context, spotID, plate string, until *time.Time) error {
				occupied = spotID
				return nil
			},
		}
		archived := false
		detectionRepo := &MockDetectionRepository{
			RecordFunc: func(ctx context.Context, rec *domain.DetectionRecord) error {
				archived = true
				assert.Equal(t, domain.ActionReservationActivated, rec.Action)
				assert.Equal(t, "A05", rec.SpotID)
				return nil
			},
		}

		svc := NewArbitratorService(spotRepo, resRepo, detectionRepo, &MockSettingsRepository{}, nil)

		result, err := svc.ProcessDetection(ctx, &domain.DetectionEvent{
			PlateNumber: "abc-123", Confidence: 0.97, Camera: "gate-1",
		})

		require.NoError(t, err)
		assert.Equal(t, domain.ActionReservationActivated, result.Action)
		assert.Equal(t, "A05", result.SpotID)
		assert.Equal(t, int64(11), activatedID)
		assert.Equal(t, "A05", occupied)
		assert.True(t, archived)
		assert.WithinDuration(t, time.Now().Add(2*time.Hour), activatedEnd, 5*time.Second)
	})

	t.Run("pending reservation wins over the emergency flag", func(t *testing.T) {
		resRepo := &MockReservationRepository{
			FindPendingByPlateFunc: func(ctx context.Context, plate string) (*domain.Reservation, error) {
				return &domain.Reservation{ID: 5, SpotID: "B01", PlateNumber: plate, DurationMinutes: 60}, nil
			},
		}
		spotRepo := &MockSpotRepository{
			ClaimAvailableFunc: func(ctx context.Context, plate, name string, until *time.Time) (string, error) {
				t.Fatal("emergency claim should not run for a reserved plate")
				return "", nil
			},
		}

		svc := NewArbitratorService(spotRepo, resRepo, &MockDetectionRepository{}, &MockSettingsRepository{}, nil)

		result, err := svc.ProcessDetection(ctx, &domain.DetectionEvent{
			PlateNumber: "AMB-911", IsEmergency: true,
		})

		require.NoError(t, err)
		assert.Equal(t, domain.ActionReservationActivated, result.Action)
		assert.Equal(t, "B01", result.SpotID)
	})

	t.Run("lost activation race is benign", func(t *testing.T) {
		resRepo := &MockReservationRepository{
			FindPendingByPlateFunc: func(ctx context.Context, plate string) (*domain.Reservation, error) {
				return &domain.Reservation{ID: 9, SpotID: "A02", PlateNumber: plate, DurationMinutes: 30}, nil
			},
			ActivateFunc: func(ctx context.Context, id int64, start, end, detected time.Time) error {
				return domain.ErrConcurrencyConflict
			},
		}

		svc := NewArbitratorService(&MockSpotRepository{}, resRepo, &MockDetectionRepository{}, &MockSettingsRepository{}, nil)

		result, err := svc.ProcessDetection(ctx, &domain.DetectionEvent{PlateNumber: "ABC-123"})

		require.NoError(t, err)
		assert.Equal(t, domain.ActionUnknownVehicle, result.Action)
		assert.Equal(t, "reservation already activated", result.Message)
	})

	t.Run("emergency vehicle claims a free spot", func(t *testing.T) {
		var created *domain.Reservation
		resRepo := &MockReservationRepository{
			CreateFunc: func(ctx context.Context, res *domain.Reservation) error {
				res.ID = 3
				created = res
				return nil
			},
		}
		spotRepo := &MockSpotRepository{
			ClaimAvailableFunc: func(ctx context.Context, plate, name string, until *time.Time) (string, error) {
				assert.Equal(t, domain.EmergencyCustomerName, name)
				require.NotNil(t, until)
				return "E04", nil
			},
		}

		svc := NewArbitratorService(spotRepo, resRepo, &MockDetectionRepository{}, &MockSettingsRepository{}, nil)

		result, err := svc.ProcessDetection(ctx, &domain.DetectionEvent{
			PlateNumber: "fire-77", IsEmergency: true,
		})

		require.NoError(t, err)
		assert.Equal(t, domain.ActionEmergencyAssigned, result.Action)
		assert.Equal(t, "E04", result.SpotID)

		require.NotNil(t, created)
		assert.Equal(t, domain.ReservationStatusEmergency, created.Status)
		assert.Equal(t, domain.EmergencyCustomerName, created.CustomerName)
		require.NotNil(t, created.EndTime)
		assert.WithinDuration(t, created.StartTime.Add(domain.EmergencyDuration), *created.EndTime, time.Second)
	})

	t.Run("emergency repeat sighting keeps the existing spot", func(t *testing.T) {
		resRepo := &MockReservationRepository{
			FindRunningByPlateFunc: func(ctx context.Context, plate string) (*domain.Reservation, error) {
				return &domain.Reservation{ID: 2, SpotID: "E01", PlateNumber: plate, Status: domain.ReservationStatusEmergency}, nil
			},
		}
		spotRepo := &MockSpotRepository{
			ClaimAvailableFunc: func(ctx context.Context, plate, name string, until *time.Time) (string, error) {
				t.Fatal("a parked emergency vehicle must not claim a second spot")
				return "", nil
			},
		}

		svc := NewArbitratorService(spotRepo, resRepo, &MockDetectionRepository{}, &MockSettingsRepository{}, nil)

		result, err := svc.ProcessDetection(ctx, &domain.DetectionEvent{
			PlateNumber: "FIRE-77", IsEmergency: true,
		})

		require.NoError(t, err)
		assert.Equal(t, domain.ActionUnknownVehicle, result.Action)
		assert.Equal(t, "E01", result.SpotID)
	})

	t.Run("full lot turns an emergency into no_capacity", func(t *testing.T) {
		spotRepo := &MockSpotRepository{
			ClaimAvailableFunc: func(ctx context.Context, plate, name string, until *time.Time) (string, error) {
				return "", domain.ErrSpotNotAvailable
			},
		}

		svc := NewArbitratorService(spotRepo, &MockReservationRepository{}, &MockDetectionRepository{}, &MockSettingsRepository{}, nil)

		result, err := svc.ProcessDetection(ctx, &domain.DetectionEvent{
			PlateNumber: "AMB-911", IsEmergency: true,
		})

		require.NoError(t, err)
		assert.Equal(t, domain.ActionNoCapacity, result.Action)
		assert.Empty(t, result.SpotID)
	})

	t.Run("releases the claimed spot when the emergency insert fails", func(t *testing.T) {
		released := ""
		spotRepo := &MockSpotRepository{
			ClaimAvailableFunc: func(ctx context.Context, plate, name string, until *time.Time) (string, error) {
				return "E02", nil
			},
			ReleaseFunc: func(ctx context.Context, spotID string) error {
				released = spotID
				return nil
			},
		}
		resRepo := &MockReservationRepository{
			CreateFunc: func(ctx context.Context, res *domain.Reservation) error {
				return assert.AnError
			},
		}

		svc := NewArbitratorService(spotRepo, resRepo, &MockDetectionRepository{}, &MockSettingsRepository{}, nil)

		_, err := svc.ProcessDetection(ctx, &domain.DetectionEvent{
			PlateNumber: "AMB-911", IsEmergency: true,
		})

		assert.Error(t, err)
		assert.Equal(t, "E02", released)
	})

	t.Run("unknown plate without reservation", func(t *testing.T) {
		svc := NewArbitratorService(&MockSpotRepository{}, &MockReservationRepository{}, &MockDetectionRepository{}, &MockSettingsRepository{}, nil)

		result, err := svc.ProcessDetection(ctx, &domain.DetectionEvent{PlateNumber: "ZZZ-000"})

		require.NoError(t, err)
		assert.Equal(t, domain.ActionUnknownVehicle, result.Action)
	})

	t.Run("gates on settings", func(t *testing.T) {
		tests := []struct {
			name    string
			mutate  func(s *domain.SystemSettings)
			wantErr error
		}{
			{
				name:    "system disabled",
				mutate:  func(s *domain.SystemSettings) { s.SystemEnabled = false },
				wantErr: domain.ErrSystemDisabled,
			},
			{
				name:    "anpr disabled",
				mutate:  func(s *domain.SystemSettings) { s.ANPREnabled = false },
				wantErr: domain.ErrANPRDisabled,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				settingsRepo := &MockSettingsRepository{
					GetFunc: func(ctx context.Context) (*domain.SystemSettings, error) {
						s := domain.DefaultSettings(time.Now())
						tt.mutate(s)
						return s, nil
					},
				}

				svc := NewArbitratorService(&MockSpotRepository{}, &MockReservationRepository{}, &MockDetectionRepository{}, settingsRepo, nil)

				_, err := svc.ProcessDetection(ctx, &domain.DetectionEvent{PlateNumber: "ABC-123"})
				assert.ErrorIs(t, err, tt.wantErr)
			})
		}
	})

	t.Run("rejects a blank plate", func(t *testing.T) {
		svc := NewArbitratorService(&MockSpotRepository{}, &MockReservationRepository{}, &MockDetectionRepository{}, &MockSettingsRepository{}, nil)

		_, err := svc.ProcessDetection(ctx, &domain.DetectionEvent{PlateNumber: "   "})
		assert.ErrorIs(t, err, domain.ErrInvalidPlate)
	})

	t.Run("archive failure does not fail the detection", func(t *testing.T) {
		detectionRepo := &MockDetectionRepository{
			RecordFunc: func(ctx context.Context, rec *domain.DetectionRecord) error {
				return assert.AnError
			},
		}

		svc := NewArbitratorService(&MockSpotRepository{}, &MockReservationRepository{}, detectionRepo, &MockSettingsRepository{}, nil)

		result, err := svc.ProcessDetection(ctx, &domain.DetectionEvent{PlateNumber: "ABC-123"})

		require.NoError(t, err)
		assert.Equal(t, domain.ActionUnknownVehicle, result.Action)
	})
}

func TestArbitratorService_RecentDetections(t *testing.T) {
	ctx := context.Background()

	var gotLimit int
	detectionRepo := &MockDetectionRepository{
		RecentFunc: func(ctx context.Context, limit int) ([]*domain.DetectionRecord, error) {
			gotLimit = limit
			return []*domain.DetectionRecord{
				{ID: 2, PlateNumber: "ABC-123", Action: domain.ActionReservationActivated, CreatedAt: time.Now()},
				{ID: 1, PlateNumber: "ZZZ-000", Action: domain.ActionUnknownVehicle, CreatedAt: time.Now().Add(-time.Minute)},
			}, nil
		},
	}

	svc := NewArbitratorService(&MockSpotRepository{}, &MockReservationRepository{}, detectionRepo, &MockSettingsRepository{}, nil)

	out, err := svc.RecentDetections(ctx, 0)

	require.NoError(t, err)
	assert.Equal(t, 50, gotLimit, "out-of-range limits fall back to the default")
	require.Len(t, out, 2)
	assert.Equal(t, "ABC-123", out[0].PlateNumber)
}
