package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/basepark/smartpark/internal/domain"
	"github.com/basepark/smartpark/internal/dto"
)

func TestQueueService_Join(t *testing.T) {
	ctx := context.Background()

	t.Run("enqueues and reports position", func(t *testing.T) {
		var enqueued *domain.QueueEntry
		queueRepo := &MockQueueRepository{
			EnqueueFunc: func(ctx context.Context, entry *domain.QueueEntry) error {
				entry.ID = 8
				enqueued = entry
				return nil
			},
			PendingCountFunc: func(ctx context.Context) (int, error) {
				return 3, nil
			},
		}
		notified := false
		notifier := &MockNotifier{
			NotifyQueueJoinedFunc: func(ctx context.Context, entry *domain.QueueEntry, position int) error {
				notified = true
				assert.Equal(t, 3, position)
				return nil
			},
		}

		svc := NewQueueService(queueRepo, &MockSpotRepository{}, &MockReservationRepository{}, notifier, nil)

		resp, err := svc.Join(ctx, &dto.JoinQueueRequest{
			PlateNumber: " wait-1 ", Name: "Pat", Contact: "pat@example.com",
		})

		require.NoError(t, err)
		assert.Equal(t, 3, resp.Position)
		assert.Equal(t, "WAIT-1", resp.PlateNumber)
		assert.Equal(t, "email", resp.ContactKind)
		assert.True(t, notified)

		require.NotNil(t, enqueued)
		assert.Equal(t, "WAIT-1", enqueued.PlateNumber)
		assert.False(t, enqueued.Notified)
	})

	t.Run("rejects invalid contact", func(t *testing.T) {
		queueRepo := &MockQueueRepository{
			EnqueueFunc: func(ctx context.Context, entry *domain.QueueEntry) error {
				t.Fatal("invalid entries must not reach the repository")
				return nil
			},
		}

		svc := NewQueueService(queueRepo, &MockSpotRepository{}, &MockReservationRepository{}, nil, nil)

		_, err := svc.Join(ctx, &dto.JoinQueueRequest{
			PlateNumber: "WAIT-1", Name: "Pat", Contact: "not-a-contact",
		})

		assert.ErrorIs(t, err, domain.ErrInvalidContact)
	})

	t.Run("accepts a phone contact", func(t *testing.T) {
		svc := NewQueueService(&MockQueueRepository{}, &MockSpotRepository{}, &MockReservationRepository{}, nil, nil)

		resp, err := svc.Join(ctx, &dto.JoinQueueRequest{
			PlateNumber: "WAIT-2", Name: "Sam", Contact: "+46701234567",
		})

		require.NoError(t, err)
		assert.Equal(t, "phone", resp.ContactKind)
	})

	t.Run("notification failure does not fail the join", func(t *testing.T) {
		notifier := &MockNotifier{
			NotifyQueueJoinedFunc: func(ctx context.Context, entry *domain.QueueEntry, position int) error {
				return assert.AnError
			},
		}

		svc := NewQueueService(&MockQueueRepository{}, &MockSpotRepository{}, &MockReservationRepository{}, notifier, nil)

		_, err := svc.Join(ctx, &dto.JoinQueueRequest{
			PlateNumber: "WAIT-3", Name: "Kim", Contact: "kim@example.com",
		})

		assert.NoError(t, err)
	})
}

func TestQueueService_HandOffSpot(t *testing.T) {
	ctx := context.Background()

	t.Run("empty queue hands off nothing", func(t *testing.T) {
		svc := NewQueueService(&MockQueueRepository{}, &MockSpotRepository{}, &MockReservationRepository{}, nil, nil)

		handed, err := svc.HandOffSpot(ctx, "A01")

		require.NoError(t, err)
		assert.False(t, handed)
	})

	t.Run("next party gets a pending hold on the spot", func(t *testing.T) {
		entry := &domain.QueueEntry{
			ID: 4, PlateNumber: "WAIT-1", Name: "Pat",
			Contact: "pat@example.com", Timestamp: time.Now().Add(-10 * time.Minute),
		}
		queueRepo := &MockQueueRepository{
			DequeueNextFunc: func(ctx context.Context) (*domain.QueueEntry, error) {
				return entry, nil
			},
		}
		reservedSpot := ""
		spotRepo := &MockSpotRepository{
			ReserveFunc: func(ctx context.Context, spotID, plate, name string, until *time.Time) error {
				reservedSpot = spotID
				assert.Equal(t, "WAIT-1", plate)
				require.NotNil(t, until)
				assert.WithinDuration(t, time.Now().Add(domain.PendingWindow), *until, 5*time.Second)
				return nil
			},
			OccupyAvailableFunc: func(ctx context.Context, spotID, plate, name string, until *time.Time) error {
				t.Fatal("a hand-off must hold the spot, not occupy it")
				return nil
			},
		}
		var created *domain.Reservation
		resRepo := &MockReservationRepository{
			CreateFunc: func(ctx context.Context, res *domain.Reservation) error {
				created = res
				return nil
			},
		}
		notifiedSpot := ""
		notifier := &MockNotifier{
			NotifySpotAvailableFunc: func(ctx context.Context, e *domain.QueueEntry, spotID string) error {
				notifiedSpot = spotID
				assert.Equal(t, entry.PlateNumber, e.PlateNumber)
				return nil
			},
		}

		svc := NewQueueService(queueRepo, spotRepo, resRepo, notifier, nil)

		handed, err := svc.HandOffSpot(ctx, "B02")

		require.NoError(t, err)
		assert.True(t, handed)
		assert.Equal(t, "B02", reservedSpot)
		assert.Equal(t, "B02", notifiedSpot)

		require.NotNil(t, created)
		assert.Equal(t, domain.ReservationStatusWaiting, created.Status)
		assert.Equal(t, "B02", created.SpotID)
		assert.Nil(t, created.StartTime)
		assert.Nil(t, created.EndTime)
		assert.Equal(t, int(domain.QueueHandOffDuration/time.Minute), created.DurationMinutes)
	})

	t.Run("notifies the party even when the hold fails", func(t *testing.T) {
		queueRepo := &MockQueueRepository{
			DequeueNextFunc: func(ctx context.Context) (*domain.QueueEntry, error) {
				return &domain.QueueEntry{ID: 1, PlateNumber: "WAIT-1", Name: "Pat", Contact: "pat@example.com"}, nil
			},
		}
		spotRepo := &MockSpotRepository{
			ReserveFunc: func(ctx context.Context, spotID, plate, name string, until *time.Time) error {
				return domain.ErrSpotNotAvailable
			},
		}
		notified := false
		notifier := &MockNotifier{
			NotifySpotAvailableFunc: func(ctx context.Context, e *domain.QueueEntry, spotID string) error {
				notified = true
				return nil
			},
		}

		svc := NewQueueService(queueRepo, spotRepo, &MockReservationRepository{}, notifier, nil)

		handed, err := svc.HandOffSpot(ctx, "A01")

		assert.ErrorIs(t, err, domain.ErrSpotNotAvailable)
		assert.False(t, handed)
		assert.True(t, notified)
	})

	t.Run("releases the hold when the create fails", func(t *testing.T) {
		queueRepo := &MockQueueRepository{
			DequeueNextFunc: func(ctx context.Context) (*domain.QueueEntry, error) {
				return &domain.QueueEntry{ID: 1, PlateNumber: "WAIT-1", Name: "Pat", Contact: "pat@example.com"}, nil
			},
		}
		released := ""
		spotRepo := &MockSpotRepository{
			ReserveFunc: func(ctx context.Context, spotID, plate, name string, until *time.Time) error {
				return nil
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

		svc := NewQueueService(queueRepo, spotRepo, resRepo, nil, nil)

		handed, err := svc.HandOffSpot(ctx, "A01")

		assert.Error(t, err)
		assert.False(t, handed)
		assert.Equal(t, "A01", released)
	})
}

func TestQueueService_List(t *testing.T) {
	ctx := context.Background()

	queueRepo := &MockQueueRepository{
		ListFunc: func(ctx context.Context) ([]*domain.QueueEntry, error) {
			return []*domain.QueueEntry{
				{ID: 1, PlateNumber: "WAIT-1", Name: "Pat", Contact: "pat@example.com", Notified: true},
				{ID: 2, PlateNumber: "WAIT-2", Name: "Sam", Contact: "+46701234567"},
			}, nil
		},
	}

	svc := NewQueueService(queueRepo, &MockSpotRepository{}, &MockReservationRepository{}, nil, nil)

	resp, err := svc.List(ctx)

	require.NoError(t, err)
	require.Len(t, resp.Entries, 2)
	assert.Equal(t, 1, resp.Entries[0].Position)
	assert.Equal(t, 2, resp.Entries[1].Position)
	assert.True(t, resp.Entries[0].Notified)
}
