package service

import (
	"context"
	"errors"
	"fmt"
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

// ArbitratorService decides what one plate detection means: a pending
// reservation arriving, an emergency vehicle, or nothing at all.
type ArbitratorService interface {
	// ProcessDetection arbitrates one detection event against the current
	// reservation and spot state
	ProcessDetection(ctx context.Context, event *domain.DetectionEvent) (*domain.DetectionResult, error)

	// RecentDetections retrieves the newest archived detections
	RecentDetections(ctx context.Context, limit int) ([]*dto.DetectionRecordResponse, error)
}

// arbitratorService implements ArbitratorService
type arbitratorService struct {
	spotRepo      repository.SpotRepository
	resRepo       repository.ReservationRepository
	detectionRepo repository.DetectionRepository
	settingsRepo  repository.SettingsRepository
	publisher     EventPublisher
	log           *logger.Logger
}

// NewArbitratorService creates a new arbitrator service
func NewArbitratorService(
	spotRepo repository.SpotRepository,
	resRepo repository.ReservationRepository,
	detectionRepo repository.DetectionRepository,
	settingsRepo repository.SettingsRepository,
	publisher EventPublisher,
) ArbitratorService {
	if publisher == nil {
		publisher = NewNoOpEventPublisher()
	}
	return &arbitratorService{
		spotRepo:      spotRepo,
		resRepo:       resRepo,
		detectionRepo: detectionRepo,
		settingsRepo:  settingsRepo,
		publisher:     publisher,
		log:           logger.Get(),
	}
}

// ProcessDetection arbitrates one detection event. Precedence: a matching
// pending reservation wins over the emergency path, which wins over the
// unknown-vehicle fallthrough.
func (s *arbitratorService) ProcessDetection(ctx context.Context, event *domain.DetectionEvent) (*domain.DetectionResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.arbitrator.process_detection")
	defer span.End()

	start := time.Now()

	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if !settings.SystemEnabled {
		span.SetStatus(codes.Error, "system disabled")
		return nil, domain.ErrSystemDisabled
	}
	if !settings.ANPREnabled {
		span.SetStatus(codes.Error, "anpr disabled")
		return nil, domain.ErrANPRDisabled
	}

	plate := domain.NormalizePlate(event.PlateNumber)
	if plate == "" {
		span.SetStatus(codes.Error, "invalid plate")
		return nil, domain.ErrInvalidPlate
	}

	span.SetAttributes(
		attribute.String("plate", plate),
		attribute.Bool("is_emergency", event.IsEmergency),
		attribute.Float64("confidence", event.Confidence),
	)

	result, err := s.arbitrate(ctx, plate, event)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.archive(ctx, event, plate, result)
	metrics.RecordDetection(ctx, string(result.Action), time.Since(start).Seconds())

	span.SetAttributes(
		attribute.String("action", string(result.Action)),
		attribute.String("spot_id", result.SpotID),
	)
	span.SetStatus(codes.Ok, "")
	return result, nil
}

func (s *arbitratorService) arbitrate(ctx context.Context, plate string, event *domain.DetectionEvent) (*domain.DetectionResult, error) {
	// Pending reservation match comes first, emergency or not
	pending, err := s.resRepo.FindPendingByPlate(ctx, plate)
	if err != nil {
		return nil, err
	}
	if pending != nil {
		return s.activate(ctx, pending, plate)
	}

	if event.IsEmergency {
		return s.admitEmergency(ctx, plate)
	}

	return &domain.DetectionResult{
		Action:      domain.ActionUnknownVehicle,
		PlateNumber: plate,
		Message:     "no reservation for this plate",
	}, nil
}

// activate starts the reservation clock at first sight of the plate
func (s *arbitratorService) activate(ctx context.Context, res *domain.Reservation, plate string) (*domain.DetectionResult, error) {
	now := time.Now()
	end := res.EndTimeFrom(now)

	err := s.resRepo.Activate(ctx, res.ID, now, end, now)
	if err != nil {
		if errors.Is(err, domain.ErrConcurrencyConflict) {
			// A concurrent detection already won; this sighting carries
			// no new information.
			return &domain.DetectionResult{
				Action:      domain.ActionUnknownVehicle,
				PlateNumber: plate,
				Message:     "reservation already activated",
			}, nil
		}
		return nil, err
	}

	if err := s.spotRepo.Occupy(ctx, res.SpotID, plate, &end); err != nil {
		// The reservation is active regardless; the spot row catches up
		// on the next sweep if this write raced an override.
		s.log.ErrorContext(ctx, "failed to mark spot occupied after activation",
			zap.String("spot_id", res.SpotID), zap.Error(err))
	}

	res.Status = domain.ReservationStatusActive
	res.StartTime = &now
	res.EndTime = &end
	res.DetectionTime = &now

	_ = s.publisher.PublishReservationActivated(ctx, res)
	if metrics.ReservationsActivated != nil {
		metrics.ReservationsActivated.Inc(ctx, attribute.String("spot_id", res.SpotID))
	}

	return &domain.DetectionResult{
		Action:      domain.ActionReservationActivated,
		SpotID:      res.SpotID,
		PlateNumber: plate,
		Message:     fmt.Sprintf("reservation %d activated on spot %s", res.ID, res.SpotID),
	}, nil
}

// admitEmergency grants any free spot to an emergency vehicle
func (s *arbitratorService) admitEmergency(ctx context.Context, plate string) (*domain.DetectionResult, error) {
	// An emergency vehicle already parked keeps its spot; repeat sightings
	// must not claim a second one.
	running, err := s.resRepo.FindRunningByPlate(ctx, plate)
	if err != nil {
		return nil, err
	}
	if running != nil {
		return &domain.DetectionResult{
			Action:      domain.ActionUnknownVehicle,
			SpotID:      running.SpotID,
			PlateNumber: plate,
			Message:     "vehicle already has a spot",
		}, nil
	}

	now := time.Now()
	end := now.Add(domain.EmergencyDuration)

	spotID, err := s.spotRepo.ClaimAvailable(ctx, plate, domain.EmergencyCustomerName, &end)
	if err != nil {
		if errors.Is(err, domain.ErrSpotNotAvailable) {
			// Full lot is a normal outcome, not an error
			return &domain.DetectionResult{
				Action:      domain.ActionNoCapacity,
				PlateNumber: plate,
				Message:     "no free spot for emergency vehicle",
			}, nil
		}
		return nil, err
	}

	res := &domain.Reservation{
		SpotID:          spotID,
		PlateNumber:     plate,
		CustomerName:    domain.EmergencyCustomerName,
		StartTime:       &now,
		EndTime:         &end,
		DurationMinutes: int(domain.EmergencyDuration / time.Minute),
		DetectionTime:   &now,
		Status:          domain.ReservationStatusEmergency,
		CreatedAt:       now,
	}
	if err := s.resRepo.Create(ctx, res); err != nil {
		if relErr := s.spotRepo.Release(ctx, spotID); relErr != nil {
			s.log.ErrorContext(ctx, "failed to release spot after emergency create error",
				zap.String("spot_id", spotID), zap.Error(relErr))
		}
		return nil, err
	}

	_ = s.publisher.PublishEmergencyAssigned(ctx, res)
	metrics.RecordEmergencyAdmission(ctx, spotID)

	return &domain.DetectionResult{
		Action:      domain.ActionEmergencyAssigned,
		SpotID:      spotID,
		PlateNumber: plate,
		Message:     fmt.Sprintf("emergency vehicle assigned spot %s", spotID),
	}, nil
}

// archive stores the detection audit entry. Failure to archive never fails
// the detection itself.
func (s *arbitratorService) archive(ctx context.Context, event *domain.DetectionEvent, plate string, result *domain.DetectionResult) {
	rec := &domain.DetectionRecord{
		PlateNumber: plate,
		Confidence:  event.Confidence,
		IsEmergency: event.IsEmergency,
		Camera:      event.Camera,
		Action:      result.Action,
		SpotID:      result.SpotID,
		CreatedAt:   time.Now(),
	}
	if err := s.detectionRepo.Record(ctx, rec); err != nil {
		s.log.WarnContext(ctx, "failed to archive detection",
			zap.String("plate", plate), zap.Error(err))
	}
}

// RecentDetections retrieves the newest archived detections
func (s *arbitratorService) RecentDetections(ctx context.Context, limit int) ([]*dto.DetectionRecordResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.arbitrator.recent_detections")
	defer span.End()

	if limit <= 0 || limit > 200 {
		limit = 50
	}

	records, err := s.detectionRepo.Recent(ctx, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	out := make([]*dto.DetectionRecordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, dto.DetectionRecordFromDomain(rec))
	}

	span.SetAttributes(attribute.Int("count", len(out)))
	span.SetStatus(codes.Ok, "")
	return out, nil
}
