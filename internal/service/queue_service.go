package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/basepark/smartpark/internal/domain"
	"github.com/basepark/smartpark/internal/dto"
	"github.com/basepark/smartpark/internal/metrics"
	"github.com/basepark/smartpark/internal/repository"
	"github.com/basepark/smartpark/pkg/logger"
	"github.com/basepark/smartpark/pkg/telemetry"
)

// QueueService defines the interface for waiting queue business logic
type QueueService interface {
	// Join appends a party to the waiting queue
	Join(ctx context.Context, req *dto.JoinQueueRequest) (*dto.JoinQueueResponse, error)

	// List retrieves the full queue in FIFO order
	List(ctx context.Context) (*dto.QueueListResponse, error)

	// HandOffSpot gives a just-freed spot to the next waiting party.
	// Returns false when nobody is waiting.
	HandOffSpot(ctx context.Context, spotID string) (bool, error)
}

// queueService implements QueueService
type queueService struct {
	queueRepo repository.QueueRepository
	spotRepo  repository.SpotRepository
	resRepo   repository.ReservationRepository
	notifier  Notifier
	publisher EventPublisher
	log       *logger.Logger
}

// NewQueueService creates a new queue service
func NewQueueService(
	queueRepo repository.QueueRepository,
	spotRepo repository.SpotRepository,
	resRepo repository.ReservationRepository,
	notifier Notifier,
	publisher EventPublisher,
) QueueService {
	if notifier == nil {
		notifier = NewLogNotifier(nil)
	}
	if publisher == nil {
		publisher = NewNoOpEventPublisher()
	}
	return &queueService{
		queueRepo: queueRepo,
		spotRepo:  spotRepo,
		resRepo:   resRepo,
		notifier:  notifier,
		publisher: publisher,
		log:       logger.Get(),
	}
}

// Join appends a party to the waiting queue
func (s *queueService) Join(ctx context.Context, req *dto.JoinQueueRequest) (*dto.JoinQueueResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.queue.join")
	defer span.End()

	entry := &domain.QueueEntry{
		PlateNumber: domain.NormalizePlate(req.PlateNumber),
		Name:        req.Name,
		Contact:     req.Contact,
		Timestamp:   time.Now(),
	}
	if err := entry.Validate(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.String("plate", entry.PlateNumber),
		attribute.String("contact_kind", domain.ContactKind(entry.Contact)),
	)

	if err := s.queueRepo.Enqueue(ctx, entry); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	position, err := s.queueRepo.PendingCount(ctx)
	if err != nil {
		// The join succeeded; the position is informational
		s.log.WarnContext(ctx, "failed to read queue position", zap.Error(err))
		position = 0
	}

	// Confirmation is best-effort
	if err := s.notifier.NotifyQueueJoined(ctx, entry, position); err != nil {
		s.log.WarnContext(ctx, "queue join notification failed",
			zap.String("contact", entry.Contact), zap.Error(err))
	}

	metrics.RecordQueueJoin(ctx)

	span.SetAttributes(attribute.Int("position", position))
	span.SetStatus(codes.Ok, "")
	return &dto.JoinQueueResponse{
		Position:    position,
		PlateNumber: entry.PlateNumber,
		ContactKind: domain.ContactKind(entry.Contact),
		JoinedAt:    entry.Timestamp,
		Message:     "You will be contacted when a spot frees up.",
	}, nil
}

// List retrieves the full queue in FIFO order
func (s *queueService) List(ctx context.Context) (*dto.QueueListResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.queue.list")
	defer span.End()

	entries, err := s.queueRepo.List(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("count", len(entries)))
	span.SetStatus(codes.Ok, "")
	return dto.QueueListFromDomain(entries), nil
}

// HandOffSpot gives a just-freed spot to the next waiting party. The party
// gets a pending hold on the spot; the reservation activates when the camera
// sees their plate, and the sweeper reclaims the hold on a no-show.
func (s *queueService) HandOffSpot(ctx context.Context, spotID string) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.queue.hand_off_spot")
	defer span.End()

	span.SetAttributes(attribute.String("spot_id", spotID))

	entry, err := s.queueRepo.DequeueNext(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}
	if entry == nil {
		span.SetStatus(codes.Ok, "queue empty")
		return false, nil
	}

	// Tell the party right away; the entry is already consumed, so a
	// failure below must not leave them uninformed.
	if err := s.notifier.NotifySpotAvailable(ctx, entry, spotID); err != nil {
		s.log.WarnContext(ctx, "spot available notification failed",
			zap.String("contact", entry.Contact), zap.Error(err))
	}

	holdUntil := time.Now().Add(domain.PendingWindow)
	if err := s.spotRepo.Reserve(ctx, spotID, entry.PlateNumber, entry.Name, &holdUntil); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}

	res := &domain.Reservation{
		SpotID:          spotID,
		PlateNumber:     entry.PlateNumber,
		CustomerName:    entry.Name,
		DurationMinutes: int(domain.QueueHandOffDuration / time.Minute),
		Status:          domain.ReservationStatusWaiting,
		CreatedAt:       time.Now(),
	}
	if err := s.resRepo.Create(ctx, res); err != nil {
		if relErr := s.spotRepo.Release(ctx, spotID); relErr != nil {
			s.log.ErrorContext(ctx, "failed to release spot after create error",
				zap.String("spot_id", spotID), zap.Error(relErr))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}

	_ = s.publisher.PublishQueueNotified(ctx, entry)
	metrics.RecordQueueNotification(ctx)

	span.SetAttributes(
		attribute.Int64("entry_id", entry.ID),
		attribute.String("plate", entry.PlateNumber),
	)
	span.SetStatus(codes.Ok, "")
	return true, nil
}
