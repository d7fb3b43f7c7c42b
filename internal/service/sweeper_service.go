package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/basepark/smartpark/internal/domain"
	"github.com/basepark/smartpark/internal/metrics"
	"github.com/basepark/smartpark/internal/repository"
	"github.com/basepark/smartpark/pkg/logger"
	"github.com/basepark/smartpark/pkg/telemetry"
)

// SweepResult reports what one sweep did
type SweepResult struct {
	Expired   int
	Cancelled int
	Notified  int
}

// SweeperService reclaims spots from expired reservations and stale pending
// holds, then hands freed spots to the waiting queue.
type SweeperService interface {
	// Sweep runs one sweep pass
	Sweep(ctx context.Context) (*SweepResult, error)
}

// sweeperService implements SweeperService
type sweeperService struct {
	spotRepo  repository.SpotRepository
	resRepo   repository.ReservationRepository
	queueSvc  QueueService
	publisher EventPublisher
	batchSize int
	log       *logger.Logger
}

// NewSweeperService creates a new sweeper service
func NewSweeperService(
	spotRepo repository.SpotRepository,
	resRepo repository.ReservationRepository,
	queueSvc QueueService,
	publisher EventPublisher,
	batchSize int,
) SweeperService {
	if batchSize <= 0 {
		batchSize = 100
	}
	if publisher == nil {
		publisher = NewNoOpEventPublisher()
	}
	return &sweeperService{
		spotRepo:  spotRepo,
		resRepo:   resRepo,
		queueSvc:  queueSvc,
		publisher: publisher,
		batchSize: batchSize,
		log:       logger.Get(),
	}
}

// Sweep expires overdue reservations, cancels stale pending holds, and hands
// freed spots to the waiting queue. Per-reservation failures are logged and
// skipped; one bad row must not wedge the sweep.
func (s *sweeperService) Sweep(ctx context.Context) (*SweepResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.sweeper.sweep")
	defer span.End()

	start := time.Now()
	result := &SweepResult{}

	if err := s.expireOverdue(ctx, result); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if err := s.cancelStalePending(ctx, result); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	metrics.RecordExpirations(ctx, int64(result.Expired))
	metrics.RecordCancellations(ctx, int64(result.Cancelled))
	metrics.RecordSweep(ctx, time.Since(start).Seconds())

	span.SetAttributes(
		attribute.Int("expired", result.Expired),
		attribute.Int("cancelled", result.Cancelled),
		attribute.Int("notified", result.Notified),
	)
	span.SetStatus(codes.Ok, "")
	return result, nil
}

func (s *sweeperService) expireOverdue(ctx context.Context, result *SweepResult) error {
	overdue, err := s.resRepo.GetExpired(ctx, time.Now(), s.batchSize)
	if err != nil {
		return err
	}

	for _, res := range overdue {
		if err := s.resRepo.MarkExpired(ctx, res.ID); err != nil {
			if errors.Is(err, domain.ErrReservationNotFound) {
				// Another sweeper got here first
				continue
			}
			s.log.ErrorContext(ctx, "failed to expire reservation",
				zap.Int64("reservation_id", res.ID), zap.Error(err))
			continue
		}

		if err := s.spotRepo.Release(ctx, res.SpotID); err != nil {
			s.log.ErrorContext(ctx, "failed to release spot after expiry",
				zap.String("spot_id", res.SpotID), zap.Error(err))
			continue
		}

		res.Status = domain.ReservationStatusExpired
		_ = s.publisher.PublishReservationExpired(ctx, res)
		result.Expired++

		handed, err := s.queueSvc.HandOffSpot(ctx, res.SpotID)
		if err != nil {
			s.log.WarnContext(ctx, "queue hand-off failed after expiry",
				zap.String("spot_id", res.SpotID), zap.Error(err))
			continue
		}
		if handed {
			result.Notified++
		}
	}

	return nil
}

func (s *sweeperService) cancelStalePending(ctx context.Context, result *SweepResult) error {
	cutoff := time.Now().Add(-domain.PendingWindow)
	stale, err := s.resRepo.GetStalePending(ctx, cutoff, s.batchSize)
	if err != nil {
		return err
	}

	for _, res := range stale {
		if err := s.resRepo.Cancel(ctx, res.ID); err != nil {
			if errors.Is(err, domain.ErrReservationNotFound) {
				continue
			}
			s.log.ErrorContext(ctx, "failed to cancel stale reservation",
				zap.Int64("reservation_id", res.ID), zap.Error(err))
			continue
		}

		if err := s.spotRepo.Release(ctx, res.SpotID); err != nil {
			s.log.ErrorContext(ctx, "failed to release spot after cancellation",
				zap.String("spot_id", res.SpotID), zap.Error(err))
			continue
		}

		res.Status = domain.ReservationStatusCancelled
		_ = s.publisher.PublishReservationCancelled(ctx, res)
		result.Cancelled++

		handed, err := s.queueSvc.HandOffSpot(ctx, res.SpotID)
		if err != nil {
			s.log.WarnContext(ctx, "queue hand-off failed after cancellation",
				zap.String("spot_id", res.SpotID), zap.Error(err))
			continue
		}
		if handed {
			result.Notified++
		}
	}

	return nil
}
