package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basepark/smartpark/internal/domain"
)

func TestSweeperService_Sweep(t *testing.T) {
	ctx := context.Background()

	t.Run("expires overdue reservations and frees their spots", func(t *testing.T) {
		overdue := []*domain.Reservation{
			{ID: 1, SpotID: "A01", PlateNumber: "ABC-123", Status: domain.ReservationStatusActive},
			{ID: 2, SpotID: "E03", PlateNumber: "AMB-911", Status: domain.ReservationStatusEmergency},
		}
		var expired []int64
		resRepo := &MockReservationRepository{
			GetExpiredFunc: func(ctx context.Context, now time.Time, limit int) ([]*domain.Reservation, error) {
				return overdue, nil
			},
			MarkExpiredFunc: func(ctx context.Context, id int64) error {
				expired = append(expired, id)
				return nil
			},
		}
		var released []string
		spotRepo := &MockSpotRepository{
			ReleaseFunc: func(ctx context.Context, spotID string) error {
				released = append(released, spotID)
				return nil
			},
		}

		svc := NewSweeperService(spotRepo, resRepo, &MockQueueService{}, nil, 100)

		result, err := svc.Sweep(ctx)

		require.NoError(t, err)
		assert.Equal(t, 2, result.Expired)
		assert.Equal(t, 0, result.Cancelled)
		assert.Equal(t, []int64{1, 2}, expired)
		assert.Equal(t, []string{"A01", "E03"}, released)
	})

	t.Run("cancels stale pending holds past the window", func(t *testing.T) {
		var gotCutoff time.Time
		resRepo := &MockReservationRepository{
			GetStalePendingFunc: func(ctx context.Context, cutoff time.Time, limit int) ([]*domain.Reservation, error) {
				gotCutoff = cutoff
				return []*domain.Reservation{
					{ID: 4, SpotID: "B05", PlateNumber: "NO-SHOW", Status: domain.ReservationStatusWaiting},
				}, nil
			},
		}
		released := ""
		spotRepo := &MockSpotRepository{
			ReleaseFunc: func(ctx context.Context, spotID string) error {
				released = spotID
				return nil
			},
		}

		svc := NewSweeperService(spotRepo, resRepo, &MockQueueService{}, nil, 100)

		result, err := svc.Sweep(ctx)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Cancelled)
		assert.Equal(t, "B05", released)
		assert.WithinDuration(t, time.Now().Add(-domain.PendingWindow), gotCutoff, 5*time.Second)
	})

	t.Run("hands each freed spot to the waiting queue", func(t *testing.T) {
		resRepo := &MockReservationRepository{
			GetExpiredFunc: func(ctx context.Context, now time.Time, limit int) ([]*domain.Reservation, error) {
				return []*domain.Reservation{
					{ID: 1, SpotID: "A01", Status: domain.ReservationStatusActive},
					{ID: 2, SpotID: "A02", Status: domain.ReservationStatusActive},
				}, nil
			},
		}
		var handedOff []string
		queueSvc := &MockQueueService{
			HandOffSpotFunc: func(ctx context.Context, spotID string) (bool, error) {
				handedOff = append(handedOff, spotID)
				// Only the first freed spot finds a waiting party
				return spotID == "A01", nil
			},
		}

		svc := NewSweeperService(&MockSpotRepository{}, resRepo, queueSvc, nil, 100)

		result, err := svc.Sweep(ctx)

		require.NoError(t, err)
		assert.Equal(t, 2, result.Expired)
		assert.Equal(t, 1, result.Notified)
		assert.Equal(t, []string{"A01", "A02"}, handedOff)
	})

	t.Run("freed spot ends up held, not re-occupied, after a hand-off", func(t *testing.T) {
		resRepo := &MockReservationRepository{
			GetExpiredFunc: func(ctx context.Context, now time.Time, limit int) ([]*domain.Reservation, error) {
				return []*domain.Reservation{
					{ID: 1, SpotID: "A01", PlateNumber: "GONE-1", Status: domain.ReservationStatusActive},
				}, nil
			},
		}
		// A tiny in-memory spot: the sweep releases it, then the real
		// queue service hands it to the next party.
		spotStatus := domain.SpotStatusOccupied
		spotRepo := &MockSpotRepository{
			ReleaseFunc: func(ctx context.Context, spotID string) error {
				spotStatus = domain.SpotStatusAvailable
				return nil
			},
			ReserveFunc: func(ctx context.Context, spotID, plate, name string, until *time.Time) error {
				if spotStatus != domain.SpotStatusAvailable {
					return domain.ErrSpotNotAvailable
				}
				spotStatus = domain.SpotStatusReserved
				return nil
			},
			OccupyAvailableFunc: func(ctx context.Context, spotID, plate, name string, until *time.Time) error {
				t.Fatal("the sweep hand-off must not occupy the freed spot")
				return nil
			},
		}
		queueRepo := &MockQueueRepository{
			DequeueNextFunc: func(ctx context.Context) (*domain.QueueEntry, error) {
				return &domain.QueueEntry{ID: 7, PlateNumber: "WAIT-1", Name: "Pat", Contact: "pat@example.com"}, nil
			},
		}
		var handOffRes *domain.Reservation
		handOffResRepo := &MockReservationRepository{
			CreateFunc: func(ctx context.Context, res *domain.Reservation) error {
				handOffRes = res
				return nil
			},
		}
		queueSvc := NewQueueService(queueRepo, spotRepo, handOffResRepo, &MockNotifier{}, nil)

		svc := NewSweeperService(spotRepo, resRepo, queueSvc, nil, 100)

		result, err := svc.Sweep(ctx)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Expired)
		assert.Equal(t, 1, result.Notified)
		assert.Equal(t, domain.SpotStatusReserved, spotStatus)

		require.NotNil(t, handOffRes)
		assert.Equal(t, domain.ReservationStatusWaiting, handOffRes.Status)
		assert.Nil(t, handOffRes.StartTime)
	})

	t.Run("skips rows another sweeper already expired", func(t *testing.T) {
		resRepo := &MockReservationRepository{
			GetExpiredFunc: func(ctx context.Context, now time.Time, limit int) ([]*domain.Reservation, error) {
				return []*domain.Reservation{
					{ID: 1, SpotID: "A01", Status: domain.ReservationStatusActive},
					{ID: 2, SpotID: "A02", Status: domain.ReservationStatusActive},
				}, nil
			},
			MarkExpiredFunc: func(ctx context.Context, id int64) error {
				if id == 1 {
					return domain.ErrReservationNotFound
				}
				return nil
			},
		}
		var released []string
		spotRepo := &MockSpotRepository{
			ReleaseFunc: func(ctx context.Context, spotID string) error {
				released = append(released, spotID)
				return nil
			},
		}

		svc := NewSweeperService(spotRepo, resRepo, &MockQueueService{}, nil, 100)

		result, err := svc.Sweep(ctx)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Expired)
		assert.Equal(t, []string{"A02"}, released, "only the row this sweep won gets its spot released")
	})

	t.Run("release failure skips the row without wedging the sweep", func(t *testing.T) {
		resRepo := &MockReservationRepository{
			GetExpiredFunc: func(ctx context.Context, now time.Time, limit int) ([]*domain.Reservation, error) {
				return []*domain.Reservation{
					{ID: 1, SpotID: "A01", Status: domain.ReservationStatusActive},
					{ID: 2, SpotID: "A02", Status: domain.ReservationStatusActive},
				}, nil
			},
		}
		spotRepo := &MockSpotRepository{
			ReleaseFunc: func(ctx context.Context, spotID string) error {
				if spotID == "A01" {
					return assert.AnError
				}
				return nil
			},
		}

		svc := NewSweeperService(spotRepo, resRepo, &MockQueueService{}, nil, 100)

		result, err := svc.Sweep(ctx)

		require.NoError(t, err)
		assert.Equal(t, 1, result.Expired)
	})

	t.Run("propagates a failing expired query", func(t *testing.T) {
		resRepo := &MockReservationRepository{
			GetExpiredFunc: func(ctx context.Context, now time.Time, limit int) ([]*domain.Reservation, error) {
				return nil, assert.AnError
			},
		}

		svc := NewSweeperService(&MockSpotRepository{}, resRepo, &MockQueueService{}, nil, 100)

		_, err := svc.Sweep(ctx)
		assert.Error(t, err)
	})

	t.Run("empty sweep reports zeros", func(t *testing.T) {
		svc := NewSweeperService(&MockSpotRepository{}, &MockReservationRepository{}, &MockQueueService{}, nil, 100)

		result, err := svc.Sweep(ctx)

		require.NoError(t, err)
		assert.Zero(t, result.Expired)
		assert.Zero(t, result.Cancelled)
		assert.Zero(t, result.Notified)
	})
}
